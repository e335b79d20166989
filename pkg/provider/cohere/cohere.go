package cohere

import (
	"context"
	"errors"
	"strings"

	cohere "github.com/cohere-ai/cohere-go/v2"
	"github.com/cohere-ai/cohere-go/v2/client"
	"github.com/cohere-ai/cohere-go/v2/option"

	"github.com/gtonic/resumebot/pkg/provider"
)

var _ provider.Completer = &Completer{}

type Completer struct {
	url   string
	token string
	model string

	client *client.Client
}

type Option func(*Completer)

func WithURL(url string) Option {
	return func(c *Completer) {
		c.url = url
	}
}

func WithToken(token string) Option {
	return func(c *Completer) {
		c.token = token
	}
}

func NewCompleter(model string, options ...Option) (*Completer, error) {
	c := &Completer{
		model: model,
	}

	for _, option := range options {
		option(c)
	}

	if c.model == "" {
		return nil, errors.New("missing model")
	}

	var opts []option.RequestOption

	if c.url != "" {
		opts = append(opts, option.WithBaseURL(c.url))
	}

	if c.token != "" {
		opts = append(opts, option.WithToken(c.token))
	}

	c.client = client.NewClient(opts...)

	return c, nil
}

// Complete sends the last user message as the question and everything
// before it as chat history. System messages become the preamble.
func (c *Completer) Complete(ctx context.Context, messages []provider.Message, options *provider.CompleteOptions) (*provider.Completion, error) {
	if options == nil {
		options = new(provider.CompleteOptions)
	}

	req := &cohere.ChatRequest{
		Model: &c.model,
	}

	var preamble []string

	last := -1

	for i, m := range messages {
		if m.Role == provider.MessageRoleUser {
			last = i
		}
	}

	if last < 0 {
		return nil, errors.New("missing user message")
	}

	for i, m := range messages {
		switch {
		case m.Role == provider.MessageRoleSystem:
			preamble = append(preamble, m.Content)

		case i == last:
			req.Message = m.Content

		case m.Role == provider.MessageRoleAssistant:
			req.ChatHistory = append(req.ChatHistory, &cohere.Message{
				Role:    "CHATBOT",
				Chatbot: &cohere.ChatMessage{Message: m.Content},
			})

		default:
			req.ChatHistory = append(req.ChatHistory, &cohere.Message{
				Role: "USER",
				User: &cohere.ChatMessage{Message: m.Content},
			})
		}
	}

	if len(preamble) > 0 {
		p := strings.Join(preamble, "\n\n")
		req.Preamble = &p
	}

	if options.Temperature != nil {
		t := float64(*options.Temperature)
		req.Temperature = &t
	}

	if options.MaxTokens != nil {
		req.MaxTokens = options.MaxTokens
	}

	resp, err := c.client.Chat(ctx, req)

	if err != nil {
		return nil, err
	}

	return &provider.Completion{
		Model: c.model,

		Message: &provider.Message{
			Role:    provider.MessageRoleAssistant,
			Content: resp.Text,
		},
	}, nil
}
