package retrieval

import (
	"context"
	"errors"
	"slices"
	"strings"
	"text/template"

	"github.com/gtonic/resumebot/pkg/chain"
	"github.com/gtonic/resumebot/pkg/index"
	"github.com/gtonic/resumebot/pkg/provider"
)

var _ chain.Provider = &Chain{}

// DefaultLimit is the number of chunks handed to the completer.
const DefaultLimit = 3

var promptTemplate = template.Must(template.New("prompt").Parse(`Context information is below.
---------------------
{{ range .Results }}{{ .Document.Content }}
{{ end }}---------------------
Given the context information and not prior knowledge, answer the question: {{ .Question }}
`))

type Chain struct {
	completer provider.Completer
	index     index.Provider

	messages []provider.Message

	limit       int
	temperature *float32
}

type Option func(*Chain)

func New(options ...Option) (*Chain, error) {
	c := &Chain{
		limit: DefaultLimit,
	}

	for _, option := range options {
		option(c)
	}

	if c.completer == nil {
		return nil, errors.New("missing completer provider")
	}

	if c.index == nil {
		return nil, errors.New("missing index provider")
	}

	return c, nil
}

func WithCompleter(completer provider.Completer) Option {
	return func(c *Chain) {
		c.completer = completer
	}
}

func WithIndex(index index.Provider) Option {
	return func(c *Chain) {
		c.index = index
	}
}

func WithMessages(messages ...provider.Message) Option {
	return func(c *Chain) {
		c.messages = messages
	}
}

func WithLimit(limit int) Option {
	return func(c *Chain) {
		c.limit = limit
	}
}

func WithTemperature(temperature float32) Option {
	return func(c *Chain) {
		c.temperature = &temperature
	}
}

func (c *Chain) Query(ctx context.Context, question string) (string, error) {
	results, err := c.index.Query(ctx, question, &index.QueryOptions{
		Limit: &c.limit,
	})

	if err != nil {
		return "", err
	}

	var prompt strings.Builder

	if err := promptTemplate.Execute(&prompt, map[string]any{
		"Question": question,
		"Results":  results,
	}); err != nil {
		return "", err
	}

	messages := slices.Concat(c.messages, []provider.Message{
		provider.UserMessage(prompt.String()),
	})

	completion, err := c.completer.Complete(ctx, messages, &provider.CompleteOptions{
		Temperature: c.temperature,
	})

	if err != nil {
		return "", err
	}

	if completion.Message == nil {
		return "", errors.New("empty completion")
	}

	return strings.TrimSpace(completion.Message.Content), nil
}
