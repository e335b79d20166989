package config

import (
	"context"
	"errors"

	"github.com/gtonic/resumebot/pkg/authorizer"
	"github.com/gtonic/resumebot/pkg/authorizer/header"
	"github.com/gtonic/resumebot/pkg/authorizer/iap"
)

type authorizerConfig struct {
	Type string `yaml:"type"`

	Header   string `yaml:"header"`
	Audience string `yaml:"audience"`
}

func (c *Config) registerAuthorizer(ctx context.Context, f *configFile) error {
	if len(f.Authorizers) == 0 {
		c.Authorizers = append(c.Authorizers, header.New())
		return nil
	}

	for _, a := range f.Authorizers {
		p, err := createAuthorizer(ctx, a)

		if err != nil {
			return err
		}

		c.Authorizers = append(c.Authorizers, p)
	}

	return nil
}

func createAuthorizer(ctx context.Context, cfg authorizerConfig) (authorizer.Provider, error) {
	switch cfg.Type {
	case "header":
		var options []header.Option

		if cfg.Header != "" {
			options = append(options, header.WithHeader(cfg.Header))
		}

		return header.New(options...), nil

	case "iap":
		if cfg.Audience == "" {
			return nil, errors.New("iap authorizer: audience is required")
		}

		return iap.New(ctx, cfg.Audience)

	default:
		return nil, errors.New("invalid authorizer type: " + cfg.Type)
	}
}
