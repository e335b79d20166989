package anthropic

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/gtonic/resumebot/pkg/provider"
)

var _ provider.Completer = &Completer{}

type Completer struct {
	url   string
	token string
	model string

	client anthropic.Client
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
		opts = append(opts, option.WithAPIKey(c.token))
	}

	c.client = anthropic.NewClient(opts...)

	return c, nil
}

func (c *Completer) Complete(ctx context.Context, messages []provider.Message, options *provider.CompleteOptions) (*provider.Completion, error) {
	if options == nil {
		options = new(provider.CompleteOptions)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 1024,
	}

	if options.MaxTokens != nil {
		params.MaxTokens = int64(*options.MaxTokens)
	}

	if options.Temperature != nil {
		params.Temperature = anthropic.Float(float64(*options.Temperature))
	}

	for _, m := range messages {
		switch m.Role {
		case provider.MessageRoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})

		case provider.MessageRoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))

		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	msg, err := c.client.Messages.New(ctx, params)

	if err != nil {
		return nil, err
	}

	var text strings.Builder

	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &provider.Completion{
		ID:    msg.ID,
		Model: string(msg.Model),

		Message: &provider.Message{
			Role:    provider.MessageRoleAssistant,
			Content: text.String(),
		},

		Usage: &provider.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}, nil
}
