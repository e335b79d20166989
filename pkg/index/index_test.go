package index

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtonic/resumebot/pkg/provider"
)

type staticEmbedder struct {
	vector []float32
}

func (e *staticEmbedder) Embed(ctx context.Context, texts []string) (*provider.Embedding, error) {
	result := &provider.Embedding{}

	for range texts {
		result.Embeddings = append(result.Embeddings, e.vector)
	}

	return result, nil
}

func testIndex() *Index {
	return &Index{
		Entity:  "Jane Doe",
		Summary: Summary("Jane Doe"),
		Documents: []Document{
			{ID: "1", Content: "Go developer", Embedding: []float32{1, 0, 0}},
			{ID: "2", Content: "Gardening", Embedding: []float32{0, 1, 0}},
			{ID: "3", Content: "Kubernetes", Embedding: []float32{0.8, 0.2, 0}},
		},
	}
}

func TestSearchRanksBySimilarity(t *testing.T) {
	limit := 2

	results, err := testIndex().Search(context.Background(), []float32{1, 0, 0}, &QueryOptions{Limit: &limit})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "1", results[0].Document.ID)
	assert.Equal(t, "3", results[1].Document.ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestSearchClampsLimitToCollection(t *testing.T) {
	limit := 10

	results, err := testIndex().Search(context.Background(), []float32{0, 1, 0}, &QueryOptions{Limit: &limit})
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, "2", results[0].Document.ID)
}

func TestSearchEmptyIndex(t *testing.T) {
	idx := &Index{Entity: "Nobody"}

	results, err := idx.Search(context.Background(), []float32{1, 0}, nil)
	require.NoError(t, err)

	assert.Empty(t, results)
	assert.Zero(t, idx.Len())
}

func TestSearchRejectsChunksWithoutEmbedding(t *testing.T) {
	idx := &Index{Entity: "Jane Doe", Documents: []Document{{ID: "1", Content: "Go developer"}}}

	_, err := idx.Search(context.Background(), []float32{1, 0}, nil)
	assert.ErrorIs(t, err, errMissingEmbedding)
}

func TestRetrieverUsesEmbedder(t *testing.T) {
	r, err := NewRetriever(testIndex(), &staticEmbedder{vector: []float32{0, 1, 0}})
	require.NoError(t, err)

	results, err := r.Query(context.Background(), "hobbies?", nil)
	require.NoError(t, err)

	require.NotEmpty(t, results)
	assert.Equal(t, "Gardening", results[0].Document.Content)
}

func TestWriteAndLoadCorpus(t *testing.T) {
	dir := t.TempDir()

	written := testIndex()
	written.Documents[1].Source = "Jane_Doe_Resume.pdf"

	require.NoError(t, Write(context.Background(), dir, written))

	assert.FileExists(t, filepath.Join(dir, "Jane Doe", "index.json"))
	assert.DirExists(t, filepath.Join(dir, "Jane Doe", "vectors"))

	c, err := LoadCorpus(dir, []string{"Jane Doe"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Jane Doe"}, c.Names())

	idx, ok := c.Index("Jane Doe")
	require.True(t, ok)
	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, Summary("Jane Doe"), idx.Summary)

	results, err := idx.Search(context.Background(), []float32{0, 1, 0}, nil)
	require.NoError(t, err)

	require.NotEmpty(t, results)
	assert.Equal(t, "Gardening", results[0].Document.Content)
	assert.Equal(t, "Jane_Doe_Resume.pdf", results[0].Document.Source)

	_, err = LoadCorpus(dir, []string{"Nobody"})
	assert.Error(t, err)
}

func TestSummaryMentionsName(t *testing.T) {
	assert.Contains(t, Summary("Ada Lovelace"), "This content contains resume of Ada Lovelace.")
}

func TestWriteReplacesPreviousChunks(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, Write(context.Background(), dir, testIndex()))
	require.NoError(t, Write(context.Background(), dir, &Index{
		Entity:    "Jane Doe",
		Documents: []Document{{ID: "9", Content: "Rust developer", Embedding: []float32{1, 0, 0}}},
	}))

	idx, err := Load(dir, "Jane Doe")
	require.NoError(t, err)

	assert.Equal(t, 1, idx.Len())
}
