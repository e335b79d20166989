package config

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/gtonic/resumebot/pkg/chain"
	"github.com/gtonic/resumebot/pkg/chain/graph"
	"github.com/gtonic/resumebot/pkg/chain/search"
	"github.com/gtonic/resumebot/pkg/chain/static"
	"github.com/gtonic/resumebot/pkg/provider"
)

// LlamaAnswer is served by the llama backend until a local model exists.
const LlamaAnswer = "Local Llama 2 is not implemented yet."

// Backend is one /ask endpoint. Resume backends build their engine from the
// current corpus through Builder, all others answer with Engine.
type Backend struct {
	Name  string
	Label string

	Builder chain.Builder
	Engine  chain.Provider

	// Record stores the interaction in the user's history.
	Record bool
}

// Resume reports whether the backend needs a fresh local index.
func (b *Backend) Resume() bool {
	return b.Builder != nil
}

type backendConfig struct {
	Type string `yaml:"type"`

	Label string `yaml:"label"`

	Completer   string   `yaml:"completer"`
	Temperature *float32 `yaml:"temperature"`
	Limit       int      `yaml:"limit"`
	Concurrency int      `yaml:"concurrency"`
	Prompt      string   `yaml:"prompt"`

	Text string `yaml:"text"`

	Project   string `yaml:"project"`
	Location  string `yaml:"location"`
	DataStore string `yaml:"data_store"`
}

func (c *Config) Backend(name string) (*Backend, error) {
	if c.backends != nil {
		if b, ok := c.backends[name]; ok {
			return b, nil
		}
	}

	return nil, errors.New("backend not found: " + name)
}

// Backends returns the configured backend names in order.
func (c *Config) Backends() []string {
	names := make([]string, 0, len(c.backends))

	for name := range c.backends {
		names = append(names, name)
	}

	slices.Sort(names)
	return names
}

func (c *Config) registerBackends(ctx context.Context, f *configFile) error {
	c.backends = make(map[string]*Backend)

	for name, cfg := range f.Backends {
		if strings.ContainsAny(name, "/ ") {
			return fmt.Errorf("backend %s: invalid name", name)
		}

		b, err := c.createBackend(ctx, name, cfg)

		if err != nil {
			return fmt.Errorf("backend %s: %w", name, err)
		}

		c.backends[name] = b
	}

	return nil
}

func (c *Config) createBackend(ctx context.Context, name string, cfg backendConfig) (*Backend, error) {
	b := &Backend{
		Name:  name,
		Label: cfg.Label,

		Record: cfg.Type != "static",
	}

	if b.Label == "" {
		b.Label = name
	}

	switch cfg.Type {
	case "resume":
		if c.Coordinator == nil {
			return nil, errors.New("index section is required")
		}

		if c.Indexer == nil {
			return nil, errors.New("index.embedder is required")
		}

		if cfg.Completer == "" {
			return nil, errors.New("completer is required")
		}

		completer, err := c.Completer(cfg.Completer)

		if err != nil {
			return nil, err
		}

		embedder, err := c.Embedder(c.embedderID())

		if err != nil {
			return nil, err
		}

		builder := &graph.Builder{
			Completer: completer,
			Embedder:  embedder,

			Limit:       cfg.Limit,
			Concurrency: cfg.Concurrency,
			Temperature: cfg.Temperature,
		}

		if builder.Temperature == nil {
			var zero float32
			builder.Temperature = &zero
		}

		if cfg.Prompt != "" {
			builder.Messages = []provider.Message{provider.SystemMessage(cfg.Prompt)}
		}

		b.Builder = builder

	case "search":
		var options []search.Option

		if cfg.Location != "" {
			options = append(options, search.WithLocation(cfg.Location))
		}

		engine, err := search.New(ctx, cfg.Project, cfg.DataStore, nil, options...)

		if err != nil {
			return nil, err
		}

		b.Engine = engine

	case "static":
		text := cfg.Text

		if text == "" {
			text = LlamaAnswer
		}

		b.Engine = static.New(text)

	default:
		return nil, errors.New("invalid backend type: " + cfg.Type)
	}

	return b, nil
}
