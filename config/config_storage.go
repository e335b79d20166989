package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gtonic/resumebot/pkg/blob/gcs"
	"github.com/gtonic/resumebot/pkg/blob/local"
	"github.com/gtonic/resumebot/pkg/database/firestore"
	"github.com/gtonic/resumebot/pkg/database/memory"
	"github.com/gtonic/resumebot/pkg/database/sqlite"
)

type storageConfig struct {
	Type string `yaml:"type"`

	Project  string `yaml:"project"`
	Database string `yaml:"database"`
	Prefix   string `yaml:"prefix"`

	Path string `yaml:"path"`
}

type blobConfig struct {
	Type string `yaml:"type"`

	Path        string `yaml:"path"`
	Concurrency int    `yaml:"concurrency"`

	IndexBucket  string `yaml:"index_bucket"`
	SourceBucket string `yaml:"source_bucket"`
}

func (c *Config) registerStorage(ctx context.Context, f *configFile) error {
	cfg := f.Storage

	if cfg == nil {
		cfg = &storageConfig{Type: "memory"}
	}

	switch cfg.Type {
	case "memory", "":
		db := memory.New()

		c.Markers = db
		c.History = db
		c.Votes = db

	case "sqlite":
		path := cfg.Path

		if path == "" {
			path = filepath.Join(".", "resumebot.db")
		}

		db, err := sqlite.New(path)

		if err != nil {
			return fmt.Errorf("storage: %w", err)
		}

		c.closers = append(c.closers, db.Close)

		c.Markers = db
		c.History = db
		c.Votes = db

	case "firestore":
		if cfg.Project == "" {
			return errors.New("storage: project is required")
		}

		var options []firestore.Option

		if cfg.Prefix != "" {
			options = append(options, firestore.WithPrefix(cfg.Prefix))
		}

		db, err := firestore.New(ctx, cfg.Project, cfg.Database, nil, options...)

		if err != nil {
			return fmt.Errorf("storage: %w", err)
		}

		c.closers = append(c.closers, db.Close)

		c.Markers = db
		c.History = db
		c.Votes = db

	default:
		return errors.New("invalid storage type: " + cfg.Type)
	}

	return nil
}

func (c *Config) registerBlob(ctx context.Context, f *configFile) error {
	cfg := f.Blob

	if cfg == nil {
		return nil
	}

	if cfg.IndexBucket == "" {
		return errors.New("blob: index_bucket is required")
	}

	c.IndexBucket = cfg.IndexBucket
	c.SourceBucket = cfg.SourceBucket

	switch cfg.Type {
	case "gcs", "":
		var options []gcs.Option

		if cfg.Concurrency > 0 {
			options = append(options, gcs.WithConcurrency(cfg.Concurrency))
		}

		client, err := gcs.New(ctx, nil, options...)

		if err != nil {
			return fmt.Errorf("blob: %w", err)
		}

		c.closers = append(c.closers, client.Close)
		c.Blobs = client

	case "local":
		if cfg.Path == "" {
			return errors.New("blob: path is required")
		}

		client, err := local.New(cfg.Path)

		if err != nil {
			return fmt.Errorf("blob: %w", err)
		}

		c.Blobs = client

	default:
		return errors.New("invalid blob type: " + cfg.Type)
	}

	return nil
}
