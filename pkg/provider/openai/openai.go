package openai

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/gtonic/resumebot/pkg/provider"
)

var (
	_ provider.Completer = &Completer{}
	_ provider.Embedder  = &Embedder{}
)

type Config struct {
	url   string
	token string
	model string
}

type Option func(*Config)

func WithURL(url string) Option {
	return func(c *Config) {
		c.url = url
	}
}

func WithToken(token string) Option {
	return func(c *Config) {
		c.token = token
	}
}

func (c *Config) client() openai.Client {
	var options []option.RequestOption

	if c.url != "" {
		options = append(options, option.WithBaseURL(c.url))
	}

	if c.token != "" {
		options = append(options, option.WithAPIKey(c.token))
	}

	return openai.NewClient(options...)
}

type Completer struct {
	*Config
	client openai.Client
}

func NewCompleter(model string, options ...Option) (*Completer, error) {
	cfg := &Config{
		model: model,
	}

	for _, option := range options {
		option(cfg)
	}

	if cfg.model == "" {
		return nil, errors.New("missing model")
	}

	return &Completer{
		Config: cfg,
		client: cfg.client(),
	}, nil
}

func (c *Completer) Complete(ctx context.Context, messages []provider.Message, options *provider.CompleteOptions) (*provider.Completion, error) {
	if options == nil {
		options = new(provider.CompleteOptions)
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
	}

	for _, m := range messages {
		switch m.Role {
		case provider.MessageRoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))

		case provider.MessageRoleAssistant:
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))

		default:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}

	if options.Temperature != nil {
		params.Temperature = openai.Float(float64(*options.Temperature))
	}

	if options.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*options.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)

	if err != nil {
		return nil, convertError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("no completion choices returned")
	}

	return &provider.Completion{
		ID:    resp.ID,
		Model: resp.Model,

		Message: &provider.Message{
			Role:    provider.MessageRoleAssistant,
			Content: resp.Choices[0].Message.Content,
		},

		Usage: &provider.Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
	}, nil
}

type Embedder struct {
	*Config
	client openai.Client
}

func NewEmbedder(model string, options ...Option) (*Embedder, error) {
	cfg := &Config{
		model: model,
	}

	for _, option := range options {
		option(cfg)
	}

	if cfg.model == "" {
		return nil, errors.New("missing model")
	}

	return &Embedder{
		Config: cfg,
		client: cfg.client(),
	}, nil
}

func (e *Embedder) Embed(ctx context.Context, texts []string) (*provider.Embedding, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	})

	if err != nil {
		return nil, convertError(err)
	}

	result := &provider.Embedding{
		Model:      resp.Model,
		Embeddings: make([][]float32, len(texts)),
	}

	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(texts) {
			continue
		}

		vector := make([]float32, len(d.Embedding))

		for i, v := range d.Embedding {
			vector[i] = float32(v)
		}

		result.Embeddings[d.Index] = vector
	}

	return result, nil
}

func convertError(err error) error {
	var apierr *openai.Error

	if errors.As(err, &apierr) {
		return errors.New(apierr.Message)
	}

	return err
}
