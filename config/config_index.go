package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gtonic/resumebot/pkg/index"
	"github.com/gtonic/resumebot/pkg/indexer"
	"github.com/gtonic/resumebot/pkg/ingest"
	"github.com/gtonic/resumebot/pkg/memory"
	"github.com/gtonic/resumebot/pkg/refresh"
	"github.com/gtonic/resumebot/pkg/segmenter/sentence"
)

type indexConfig struct {
	Path   string `yaml:"path"`
	Source string `yaml:"source"`

	Extensions []string `yaml:"extensions"`

	Embedder  string `yaml:"embedder"`
	BatchSize int    `yaml:"batch_size"`

	CacheTTL  string `yaml:"cache_ttl"`
	CacheSize int    `yaml:"cache_size"`

	DownloadTimeout string `yaml:"download_timeout"`

	Chunk *chunkConfig `yaml:"chunk"`
}

type chunkConfig struct {
	Sentences int  `yaml:"sentences"`
	Overlap   *int `yaml:"overlap"`
	Size      int  `yaml:"size"`
}

type managerConfig struct {
	Workdir string `yaml:"workdir"`
}

type historyConfig struct {
	Enabled      *bool `yaml:"enabled"`
	RecordErrors *bool `yaml:"record_errors"`
}

func (c *Config) registerIndex(f *configFile) error {
	cfg := f.Index

	if cfg == nil {
		return nil
	}

	if cfg.Path == "" {
		return errors.New("index: path is required")
	}

	c.Directory = &index.Directory{
		Path:   cfg.Path,
		Source: cfg.Source,

		Extensions: cfg.Extensions,
	}

	if c.Directory.Source == "" {
		c.Directory.Source = filepath.Join(filepath.Dir(cfg.Path), "resumes")
	}

	if cfg.Embedder != "" {
		c.indexEmbedder = cfg.Embedder

		i, err := c.createIndexer(cfg)

		if err != nil {
			return err
		}

		c.Indexer = i
	}

	options := []refresh.Option{
		refresh.WithDirectory(c.Directory),
		refresh.WithMarkers(c.Markers),
	}

	if c.Indexer != nil {
		options = append(options, refresh.WithIndexer(c.Indexer))
	}

	if c.Blobs != nil {
		options = append(options, refresh.WithBlobs(c.Blobs, c.IndexBucket))
	}

	if cfg.CacheTTL != "" {
		ttl, err := time.ParseDuration(cfg.CacheTTL)

		if err != nil {
			return fmt.Errorf("index: invalid cache_ttl: %w", err)
		}

		options = append(options, refresh.WithTTL(ttl))
	}

	if cfg.CacheSize > 0 {
		options = append(options, refresh.WithMaxEntries(cfg.CacheSize))
	}

	if cfg.DownloadTimeout != "" {
		timeout, err := time.ParseDuration(cfg.DownloadTimeout)

		if err != nil {
			return fmt.Errorf("index: invalid download_timeout: %w", err)
		}

		options = append(options, refresh.WithDownloadTimeout(timeout))
	}

	coordinator, err := refresh.New(options...)

	if err != nil {
		return fmt.Errorf("index: %w", err)
	}

	c.Coordinator = coordinator

	return nil
}

// embedderID names the embedder the index is built with. Questions have to
// be embedded with the same one.
func (c *Config) embedderID() string {
	return c.indexEmbedder
}

func (c *Config) createIndexer(cfg *indexConfig) (*indexer.Indexer, error) {
	embedder, err := c.Embedder(cfg.Embedder)

	if err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}

	options := []indexer.Option{
		indexer.WithEmbedder(embedder),
		indexer.WithModel(c.models[cfg.Embedder]),
	}

	if cfg.BatchSize > 0 {
		options = append(options, indexer.WithBatchSize(cfg.BatchSize))
	}

	if chunk := cfg.Chunk; chunk != nil {
		var segmenterOptions []sentence.Option

		if chunk.Sentences > 0 {
			segmenterOptions = append(segmenterOptions, sentence.WithSentences(chunk.Sentences))
		}

		if chunk.Overlap != nil {
			segmenterOptions = append(segmenterOptions, sentence.WithOverlap(*chunk.Overlap))
		}

		if chunk.Size > 0 {
			segmenterOptions = append(segmenterOptions, sentence.WithSize(chunk.Size))
		}

		options = append(options, indexer.WithSegmenter(sentence.New(segmenterOptions...)))
	}

	return indexer.New(options...)
}

// registerManager sets up the ingest pipeline when both buckets and an
// indexer are configured.
func (c *Config) registerManager(f *configFile) error {
	if c.Blobs == nil || c.SourceBucket == "" || c.Indexer == nil {
		if f.Manager != nil {
			return errors.New("manager: blob.source_bucket and index.embedder are required")
		}

		return nil
	}

	workdir := filepath.Join(os.TempDir(), "resumebot")

	if f.Manager != nil && f.Manager.Workdir != "" {
		workdir = f.Manager.Workdir
	}

	options := []ingest.Option{
		ingest.WithBlobs(c.Blobs, c.SourceBucket, c.IndexBucket),
		ingest.WithMarkers(c.Markers),
		ingest.WithIndexer(c.Indexer),
	}

	if c.Directory != nil && len(c.Directory.Extensions) > 0 {
		options = append(options, ingest.WithExtensions(c.Directory.Extensions...))
	}

	p, err := ingest.New(workdir, options...)

	if err != nil {
		return fmt.Errorf("manager: %w", err)
	}

	c.Pipeline = p

	return nil
}

func (c *Config) registerHistory(f *configFile) error {
	cfg := f.History

	if cfg == nil {
		cfg = &historyConfig{}
	}

	c.Recorder = memory.NewRecorder(&memory.Config{
		Enabled:      boolValue(cfg.Enabled, true),
		RecordErrors: boolValue(cfg.RecordErrors, true),
	}, c.History)

	return nil
}
