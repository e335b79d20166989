// Package replicate completes chats with models run on Replicate, such as
// meta/meta-llama-3-70b-instruct.
package replicate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/replicate/replicate-go"

	"github.com/gtonic/resumebot/pkg/provider"
)

var _ provider.Completer = &Completer{}

type Completer struct {
	url   string
	token string
	model string

	client *replicate.Client
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

	if c.token == "" {
		c.token = os.Getenv("REPLICATE_API_TOKEN")
	}

	opts := []replicate.ClientOption{
		replicate.WithToken(c.token),
	}

	if c.url != "" {
		opts = append(opts, replicate.WithBaseURL(c.url))
	}

	client, err := replicate.NewClient(opts...)

	if err != nil {
		return nil, fmt.Errorf("creating replicate client: %w", err)
	}

	c.client = client

	return c, nil
}

func (c *Completer) Complete(ctx context.Context, messages []provider.Message, options *provider.CompleteOptions) (*provider.Completion, error) {
	if options == nil {
		options = new(provider.CompleteOptions)
	}

	var system []string
	var turns []provider.Message

	for _, m := range messages {
		if m.Role == provider.MessageRoleSystem {
			system = append(system, m.Content)
			continue
		}

		turns = append(turns, m)
	}

	input := replicate.PredictionInput{
		"prompt": prompt(turns),
	}

	if len(system) > 0 {
		input["system_prompt"] = strings.Join(system, "\n\n")
	}

	if options.Temperature != nil {
		input["temperature"] = *options.Temperature
	}

	if options.MaxTokens != nil {
		input["max_tokens"] = *options.MaxTokens
	}

	output, err := c.client.Run(ctx, c.model, input, nil)

	if err != nil {
		return nil, err
	}

	content, err := text(output)

	if err != nil {
		return nil, err
	}

	return &provider.Completion{
		Model: c.model,

		Message: &provider.Message{
			Role:    provider.MessageRoleAssistant,
			Content: content,
		},
	}, nil
}

// prompt renders the conversation for models that take a single prompt. A
// lone user message is passed as is.
func prompt(turns []provider.Message) string {
	if len(turns) == 1 && turns[0].Role != provider.MessageRoleAssistant {
		return turns[0].Content
	}

	var b strings.Builder

	for _, m := range turns {
		if m.Role == provider.MessageRoleAssistant {
			b.WriteString("Assistant: ")
		} else {
			b.WriteString("User: ")
		}

		b.WriteString(m.Content)
		b.WriteString("\n")
	}

	b.WriteString("Assistant:")
	return b.String()
}

// text joins the streamed tokens language models return as output.
func text(output replicate.PredictionOutput) (string, error) {
	switch v := output.(type) {
	case string:
		return v, nil

	case []any:
		var b strings.Builder

		for _, token := range v {
			s, ok := token.(string)

			if !ok {
				return "", fmt.Errorf("unexpected output token %T", token)
			}

			b.WriteString(s)
		}

		return b.String(), nil

	case nil:
		return "", errors.New("prediction returned no output")

	default:
		return "", fmt.Errorf("unexpected output %T", output)
	}
}
