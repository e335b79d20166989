package config

import (
	"errors"
	"fmt"

	"github.com/gtonic/resumebot/pkg/provider"
	"github.com/gtonic/resumebot/pkg/provider/anthropic"
	"github.com/gtonic/resumebot/pkg/provider/bedrock"
	"github.com/gtonic/resumebot/pkg/provider/cohere"
	"github.com/gtonic/resumebot/pkg/provider/gemini"
	"github.com/gtonic/resumebot/pkg/provider/openai"
	"github.com/gtonic/resumebot/pkg/provider/replicate"
)

type providerConfig struct {
	Type string `yaml:"type"`

	URL   string `yaml:"url"`
	Token string `yaml:"token"`

	Region string `yaml:"region"`

	Models map[string]modelConfig `yaml:"models"`
}

type modelConfig struct {
	Type string `yaml:"type"`
	ID   string `yaml:"id"`

	Limit *int `yaml:"limit"`
}

type modelContext struct {
	ID string

	Limit *int
}

func (c *Config) Completer(id string) (provider.Completer, error) {
	if c.completer != nil {
		if p, ok := c.completer[id]; ok {
			return p, nil
		}
	}

	return nil, errors.New("completer not found: " + id)
}

func (c *Config) Embedder(id string) (provider.Embedder, error) {
	if c.embedder != nil {
		if p, ok := c.embedder[id]; ok {
			return p, nil
		}
	}

	return nil, errors.New("embedder not found: " + id)
}

func (c *Config) registerCompleter(id, model string, p provider.Completer) {
	if c.completer == nil {
		c.completer = make(map[string]provider.Completer)
	}

	if c.models == nil {
		c.models = make(map[string]string)
	}

	c.models[id] = model
	c.completer[id] = p
}

func (c *Config) registerEmbedder(id, model string, p provider.Embedder) {
	if c.embedder == nil {
		c.embedder = make(map[string]provider.Embedder)
	}

	if c.models == nil {
		c.models = make(map[string]string)
	}

	c.models[id] = model
	c.embedder[id] = p
}

func (c *Config) registerProviders(f *configFile) error {
	for _, p := range f.Providers {
		for id, m := range p.Models {
			if m.ID == "" {
				m.ID = id
			}

			model := modelContext{
				ID:    m.ID,
				Limit: m.Limit,
			}

			switch m.Type {
			case "completer", "":
				completer, err := createCompleter(p, model)

				if err != nil {
					return fmt.Errorf("model %s: %w", id, err)
				}

				c.registerCompleter(id, m.ID, provider.LimitCompleter(completer, createLimiter(m.Limit)))

			case "embedder":
				embedder, err := createEmbedder(p, model)

				if err != nil {
					return fmt.Errorf("model %s: %w", id, err)
				}

				c.registerEmbedder(id, m.ID, provider.LimitEmbedder(embedder, createLimiter(m.Limit)))

			default:
				return fmt.Errorf("model %s: invalid model type: %s", id, m.Type)
			}
		}
	}

	return nil
}

func createCompleter(cfg providerConfig, model modelContext) (provider.Completer, error) {
	switch cfg.Type {
	case "openai":
		var options []openai.Option

		if cfg.URL != "" {
			options = append(options, openai.WithURL(cfg.URL))
		}

		if cfg.Token != "" {
			options = append(options, openai.WithToken(cfg.Token))
		}

		return openai.NewCompleter(model.ID, options...)

	case "gemini":
		var options []gemini.Option

		if cfg.Token != "" {
			options = append(options, gemini.WithToken(cfg.Token))
		}

		return gemini.NewCompleter(model.ID, options...)

	case "anthropic":
		var options []anthropic.Option

		if cfg.URL != "" {
			options = append(options, anthropic.WithURL(cfg.URL))
		}

		if cfg.Token != "" {
			options = append(options, anthropic.WithToken(cfg.Token))
		}

		return anthropic.NewCompleter(model.ID, options...)

	case "bedrock":
		var options []bedrock.Option

		if cfg.URL != "" {
			options = append(options, bedrock.WithURL(cfg.URL))
		}

		if cfg.Region != "" {
			options = append(options, bedrock.WithRegion(cfg.Region))
		}

		return bedrock.NewCompleter(model.ID, options...)

	case "replicate":
		var options []replicate.Option

		if cfg.URL != "" {
			options = append(options, replicate.WithURL(cfg.URL))
		}

		if cfg.Token != "" {
			options = append(options, replicate.WithToken(cfg.Token))
		}

		return replicate.NewCompleter(model.ID, options...)

	case "cohere":
		var options []cohere.Option

		if cfg.URL != "" {
			options = append(options, cohere.WithURL(cfg.URL))
		}

		if cfg.Token != "" {
			options = append(options, cohere.WithToken(cfg.Token))
		}

		return cohere.NewCompleter(model.ID, options...)

	default:
		return nil, errors.New("invalid completer type: " + cfg.Type)
	}
}

func createEmbedder(cfg providerConfig, model modelContext) (provider.Embedder, error) {
	switch cfg.Type {
	case "openai":
		var options []openai.Option

		if cfg.URL != "" {
			options = append(options, openai.WithURL(cfg.URL))
		}

		if cfg.Token != "" {
			options = append(options, openai.WithToken(cfg.Token))
		}

		return openai.NewEmbedder(model.ID, options...)

	case "gemini":
		var options []gemini.Option

		if cfg.Token != "" {
			options = append(options, gemini.WithToken(cfg.Token))
		}

		return gemini.NewEmbedder(model.ID, options...)

	default:
		return nil, errors.New("invalid embedder type: " + cfg.Type)
	}
}
