// Package indexer turns source resumes into persisted entity indexes.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gtonic/resumebot/pkg/extractor"
	"github.com/gtonic/resumebot/pkg/extractor/pdf"
	"github.com/gtonic/resumebot/pkg/extractor/text"
	"github.com/gtonic/resumebot/pkg/index"
	"github.com/gtonic/resumebot/pkg/provider"
	"github.com/gtonic/resumebot/pkg/segmenter"
	"github.com/gtonic/resumebot/pkg/segmenter/sentence"
)

type Indexer struct {
	extractor extractor.Provider
	segmenter segmenter.Provider
	embedder  provider.Embedder

	model     string
	batchSize int
}

type Option func(*Indexer)

func WithExtractor(extractor extractor.Provider) Option {
	return func(i *Indexer) {
		i.extractor = extractor
	}
}

func WithSegmenter(segmenter segmenter.Provider) Option {
	return func(i *Indexer) {
		i.segmenter = segmenter
	}
}

func WithEmbedder(embedder provider.Embedder) Option {
	return func(i *Indexer) {
		i.embedder = embedder
	}
}

// WithModel records the embedding model name in every written index.
func WithModel(model string) Option {
	return func(i *Indexer) {
		i.model = model
	}
}

func WithBatchSize(n int) Option {
	return func(i *Indexer) {
		i.batchSize = n
	}
}

// DefaultExtractor handles PDF, plain text and markdown sources.
func DefaultExtractor() extractor.Mux {
	return extractor.Mux{
		".pdf": pdf.New(),
		".txt": text.New(),
		".md":  text.New(),
	}
}

func New(options ...Option) (*Indexer, error) {
	i := &Indexer{
		extractor: DefaultExtractor(),
		segmenter: sentence.New(),

		batchSize: 64,
	}

	for _, option := range options {
		option(i)
	}

	if i.embedder == nil {
		return nil, errors.New("missing embedder provider")
	}

	if i.batchSize <= 0 {
		i.batchSize = 64
	}

	return i, nil
}

// Build writes the index of one entity below dir.
func (i *Indexer) Build(ctx context.Context, dir string, e index.Entity) error {
	logger := log.WithField("entity", e.Name)

	var docs []index.Document

	for _, source := range e.Sources {
		content, err := i.extractor.Extract(ctx, source)

		if err != nil {
			return fmt.Errorf("extracting %s: %w", source, err)
		}

		segments, err := i.segmenter.Segment(ctx, content)

		if err != nil {
			return fmt.Errorf("segmenting %s: %w", source, err)
		}

		name := filepath.Base(source)

		for _, s := range segments {
			docs = append(docs, index.Document{
				ID:      name + "#" + strconv.Itoa(s.Index),
				Content: s.Text,
				Source:  name,
			})
		}
	}

	if len(docs) == 0 {
		logger.Warn("no content found in source files")
	}

	for start := 0; start < len(docs); start += i.batchSize {
		end := min(start+i.batchSize, len(docs))

		texts := make([]string, 0, end-start)

		for _, d := range docs[start:end] {
			texts = append(texts, d.Content)
		}

		embedding, err := i.embedder.Embed(ctx, texts)

		if err != nil {
			return fmt.Errorf("embedding %s: %w", e.Name, err)
		}

		if len(embedding.Embeddings) != len(texts) {
			return fmt.Errorf("embedding %s: got %d vectors for %d chunks", e.Name, len(embedding.Embeddings), len(texts))
		}

		for j, v := range embedding.Embeddings {
			docs[start+j].Embedding = v
		}
	}

	idx := &index.Index{
		Entity:  e.Name,
		Summary: index.Summary(e.Name),

		Model: i.model,

		Documents: docs,

		Created: time.Now().UTC(),
	}

	if err := index.Write(ctx, dir, idx); err != nil {
		return fmt.Errorf("writing index for %s: %w", e.Name, err)
	}

	logger.Infof("indexed %d chunks", len(docs))
	return nil
}

// BuildAll builds every entity of the manifest that came from source files.
func (i *Indexer) BuildAll(ctx context.Context, dir string, m *index.Manifest) error {
	for _, e := range m.Entities {
		if len(e.Sources) == 0 {
			continue
		}

		if err := i.Build(ctx, dir, e); err != nil {
			return err
		}
	}

	return nil
}
