package gemini

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/gtonic/resumebot/pkg/provider"
)

var (
	_ provider.Completer = &Completer{}
	_ provider.Embedder  = &Embedder{}
)

type Config struct {
	token string
	model string
}

type Option func(*Config)

func WithToken(token string) Option {
	return func(c *Config) {
		c.token = token
	}
}

func (c *Config) newClient(ctx context.Context) (*genai.Client, error) {
	var options []option.ClientOption

	if c.token != "" {
		options = append(options, option.WithAPIKey(c.token))
	}

	return genai.NewClient(ctx, options...)
}

type Completer struct {
	*Config
	client *genai.Client
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

	client, err := cfg.newClient(context.Background())

	if err != nil {
		return nil, err
	}

	return &Completer{
		Config: cfg,
		client: client,
	}, nil
}

func (c *Completer) Close() error {
	return c.client.Close()
}

func (c *Completer) Complete(ctx context.Context, messages []provider.Message, options *provider.CompleteOptions) (*provider.Completion, error) {
	if options == nil {
		options = new(provider.CompleteOptions)
	}

	model := c.client.GenerativeModel(c.model)

	if options.Temperature != nil {
		model.SetTemperature(*options.Temperature)
	}

	if options.MaxTokens != nil {
		model.SetMaxOutputTokens(int32(*options.MaxTokens))
	}

	var system []genai.Part
	var history []*genai.Content

	for _, m := range messages {
		switch m.Role {
		case provider.MessageRoleSystem:
			system = append(system, genai.Text(m.Content))

		case provider.MessageRoleAssistant:
			history = append(history, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(m.Content)}})

		default:
			history = append(history, genai.NewUserContent(genai.Text(m.Content)))
		}
	}

	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{Parts: system}
	}

	if len(history) == 0 {
		return nil, errors.New("no user message")
	}

	session := model.StartChat()
	session.History = history[:len(history)-1]

	resp, err := session.SendMessage(ctx, history[len(history)-1].Parts...)

	if err != nil {
		return nil, err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("no completion candidates returned")
	}

	var text strings.Builder

	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	result := &provider.Completion{
		Model: c.model,

		Message: &provider.Message{
			Role:    provider.MessageRoleAssistant,
			Content: text.String(),
		},
	}

	if resp.UsageMetadata != nil {
		result.Usage = &provider.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}

	return result, nil
}

type Embedder struct {
	*Config
	client *genai.Client
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

	client, err := cfg.newClient(context.Background())

	if err != nil {
		return nil, err
	}

	return &Embedder{
		Config: cfg,
		client: client,
	}, nil
}

func (e *Embedder) Close() error {
	return e.client.Close()
}

func (e *Embedder) Embed(ctx context.Context, texts []string) (*provider.Embedding, error) {
	em := e.client.EmbeddingModel(e.model)
	batch := em.NewBatch()

	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := em.BatchEmbedContents(ctx, batch)

	if err != nil {
		return nil, err
	}

	result := &provider.Embedding{
		Model: e.model,
	}

	for _, emb := range resp.Embeddings {
		result.Embeddings = append(result.Embeddings, emb.Values)
	}

	return result, nil
}
