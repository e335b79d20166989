package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/gtonic/resumebot/pkg/connector"
	"github.com/gtonic/resumebot/pkg/connector/warmer"
	"github.com/gtonic/resumebot/pkg/connector/watcher"
)

type connectorConfig struct {
	Type string `yaml:"type"`

	// warmer
	Interval string `yaml:"interval,omitempty"`

	// watcher
	Delay string `yaml:"delay,omitempty"`
}

func (c *Config) registerConnectors(f *configFile) error {
	var configs map[string]connectorConfig

	if err := f.Connectors.Decode(&configs); err != nil {
		if len(f.Connectors.Content) > 0 {
			return fmt.Errorf("failed to decode connectors: %w", err)
		}

		return nil
	}

	for id, cfg := range configs {
		var p connector.Provider
		var err error

		switch cfg.Type {
		case "warmer":
			p, err = c.createWarmer(id, cfg)

		case "watcher":
			p, err = c.createWatcher(id, cfg)

		default:
			err = fmt.Errorf("unknown connector type: %s", cfg.Type)
		}

		if err != nil {
			return fmt.Errorf("failed to create connector %s (type %s): %w", id, cfg.Type, err)
		}

		c.RegisterConnector(id, p)
	}

	return nil
}

func (c *Config) createWarmer(id string, cfg connectorConfig) (connector.Provider, error) {
	if c.Coordinator == nil {
		return nil, errors.New("index section is required")
	}

	var options []warmer.Option

	if cfg.Interval != "" {
		interval, err := time.ParseDuration(cfg.Interval)

		if err != nil {
			return nil, fmt.Errorf("invalid interval '%s': %w", cfg.Interval, err)
		}

		options = append(options, warmer.WithInterval(interval))
	}

	return warmer.New(id, c.Coordinator, options...)
}

func (c *Config) createWatcher(id string, cfg connectorConfig) (connector.Provider, error) {
	if c.Coordinator == nil {
		return nil, errors.New("index section is required")
	}

	if c.Blobs != nil {
		return nil, errors.New("watcher only works without a blob section")
	}

	var options []watcher.Option

	if cfg.Delay != "" {
		delay, err := time.ParseDuration(cfg.Delay)

		if err != nil {
			return nil, fmt.Errorf("invalid delay '%s': %w", cfg.Delay, err)
		}

		options = append(options, watcher.WithDelay(delay))
	}

	return watcher.New(id, c.Directory.Source, c.Coordinator, options...)
}
