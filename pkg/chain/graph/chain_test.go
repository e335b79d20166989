package graph

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtonic/resumebot/pkg/index"
	"github.com/gtonic/resumebot/pkg/provider"
)

type entityEngine struct {
	name string

	mu        sync.Mutex
	questions []string
}

func (e *entityEngine) Query(ctx context.Context, question string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.questions = append(e.questions, question)
	return e.name + " answer", nil
}

type summarizer struct {
	prompt string
}

func (s *summarizer) Complete(ctx context.Context, messages []provider.Message, options *provider.CompleteOptions) (*provider.Completion, error) {
	s.prompt = messages[len(messages)-1].Content

	return &provider.Completion{
		Message: &provider.Message{Role: provider.MessageRoleAssistant, Content: "combined"},
	}, nil
}

func newTestChain(t *testing.T) (*Chain, *summarizer, map[string]*entityEngine) {
	t.Helper()

	engines := map[string]*entityEngine{
		"Jane Doe":   {name: "Jane Doe"},
		"John Doe":   {name: "John Doe"},
		"John Smith": {name: "John Smith"},
	}

	s := &summarizer{}

	options := []Option{WithCompleter(s)}

	for name, e := range engines {
		options = append(options, WithEntity(name, e))
	}

	c, err := New(options...)
	require.NoError(t, err)

	return c, s, engines
}

func TestFullNameRoutesToSingleEntity(t *testing.T) {
	c, s, engines := newTestChain(t)

	answer, err := c.Query(context.Background(), "What does John Smith do?")
	require.NoError(t, err)

	assert.Equal(t, "John Smith answer", answer)
	assert.Equal(t, []string{"What does John Smith do?"}, engines["John Smith"].questions)
	assert.Empty(t, engines["John Doe"].questions)
	assert.Empty(t, s.prompt)
}

func TestUniqueFirstNameRoutesToSingleEntity(t *testing.T) {
	c, _, engines := newTestChain(t)

	answer, err := c.Query(context.Background(), "Where did jane study?")
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe answer", answer)
	assert.Len(t, engines["Jane Doe"].questions, 1)
}

func TestSharedFirstNameIsNotRouted(t *testing.T) {
	c, s, engines := newTestChain(t)

	answer, err := c.Query(context.Background(), "Does John know Java?")
	require.NoError(t, err)

	assert.Equal(t, "combined", answer)

	for _, e := range engines {
		assert.Len(t, e.questions, 1)
	}

	assert.Contains(t, s.prompt, "Answer about Jane Doe:\nJane Doe answer")
	assert.Contains(t, s.prompt, "Question: Does John know Java?")
}

func TestSeveralNamesAreDecomposed(t *testing.T) {
	c, s, engines := newTestChain(t)

	answer, err := c.Query(context.Background(), "Compare Jane Doe and John Smith")
	require.NoError(t, err)

	assert.Equal(t, "combined", answer)
	assert.Empty(t, engines["John Doe"].questions)

	require.Len(t, engines["Jane Doe"].questions, 1)
	assert.True(t, strings.HasPrefix(engines["Jane Doe"].questions[0], "Answer only for Jane Doe."))

	assert.Contains(t, s.prompt, "Answer about John Smith:")
}

type unitEmbedder struct{}

func (unitEmbedder) Embed(ctx context.Context, texts []string) (*provider.Embedding, error) {
	result := &provider.Embedding{}

	for range texts {
		result.Embeddings = append(result.Embeddings, []float32{1, 0})
	}

	return result, nil
}

func TestBuilderCreatesEntityChains(t *testing.T) {
	corpus := &index.Corpus{
		Indexes: []*index.Index{
			{Entity: "Ada Lovelace", Summary: index.Summary("Ada Lovelace"), Documents: []index.Document{{Content: "Analytical engine.", Embedding: []float32{1, 0}}}},
		},
	}

	s := &summarizer{}

	b := &Builder{Completer: s, Embedder: unitEmbedder{}}

	engine, err := b.Build(corpus)
	require.NoError(t, err)

	answer, err := engine.Query(context.Background(), "What did she work on?")
	require.NoError(t, err)

	assert.Equal(t, "combined", answer)
	assert.Contains(t, s.prompt, "Analytical engine.")

	_, err = b.Build(&index.Corpus{})
	assert.Error(t, err)
}
