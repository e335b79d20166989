// Package ingest turns the source resumes into a published index. It is the
// only writer of the update marker.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	log "github.com/sirupsen/logrus"

	"github.com/gtonic/resumebot/pkg/blob"
	"github.com/gtonic/resumebot/pkg/index"
	"github.com/gtonic/resumebot/pkg/marker"
)

type Indexer interface {
	BuildAll(ctx context.Context, dir string, m *index.Manifest) error
}

type Result struct {
	Entities []string
	Updated  time.Time
}

type Pipeline struct {
	workdir string

	blobs        blob.Provider
	sourceBucket string
	indexBucket  string

	markers marker.Provider
	indexer Indexer

	extensions []string
}

type Option func(*Pipeline)

func WithBlobs(blobs blob.Provider, sourceBucket, indexBucket string) Option {
	return func(p *Pipeline) {
		p.blobs = blobs
		p.sourceBucket = sourceBucket
		p.indexBucket = indexBucket
	}
}

func WithMarkers(markers marker.Provider) Option {
	return func(p *Pipeline) {
		p.markers = markers
	}
}

func WithIndexer(indexer Indexer) Option {
	return func(p *Pipeline) {
		p.indexer = indexer
	}
}

func WithExtensions(extensions ...string) Option {
	return func(p *Pipeline) {
		p.extensions = extensions
	}
}

func New(workdir string, options ...Option) (*Pipeline, error) {
	p := &Pipeline{
		workdir: workdir,
	}

	for _, option := range options {
		option(p)
	}

	if p.workdir == "" {
		return nil, errors.New("missing working directory")
	}

	if p.blobs == nil {
		return nil, errors.New("missing blob provider")
	}

	if p.sourceBucket == "" || p.indexBucket == "" {
		return nil, errors.New("missing source or index bucket")
	}

	if p.markers == nil {
		return nil, errors.New("missing marker provider")
	}

	if p.indexer == nil {
		return nil, errors.New("missing indexer")
	}

	return p, nil
}

// Run downloads the sources, rebuilds the whole index, uploads it and moves
// the marker forward. Runs are serialized across processes sharing workdir.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if err := os.MkdirAll(p.workdir, 0o755); err != nil {
		return nil, err
	}

	lock := flock.New(filepath.Join(p.workdir, ".lock"))

	locked, err := lock.TryLockContext(ctx, 250*time.Millisecond)

	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", p.workdir, err)
	}

	if !locked {
		return nil, fmt.Errorf("locking %s: %w", p.workdir, ctx.Err())
	}

	defer lock.Unlock()

	logger := log.WithFields(log.Fields{
		"source": p.sourceBucket,
		"index":  p.indexBucket,
	})

	dir := &index.Directory{
		Path:   filepath.Join(p.workdir, "index"),
		Source: filepath.Join(p.workdir, "resumes"),

		Extensions: p.extensions,
	}

	logger.Info("downloading source resumes")

	if err := p.blobs.DownloadAll(ctx, p.sourceBucket, dir.Source); err != nil {
		return nil, fmt.Errorf("downloading sources: %w", err)
	}

	if err := os.RemoveAll(dir.Path); err != nil {
		return nil, err
	}

	m, err := dir.Ensure()

	if err != nil {
		return nil, err
	}

	logger.Infof("building index for %d entities", len(m.Entities))

	if err := blob.ReplaceDir(dir.Path, func(tmp string) error {
		return p.indexer.BuildAll(ctx, tmp, m)
	}); err != nil {
		return nil, fmt.Errorf("building index: %w", err)
	}

	logger.Info("uploading index")

	if err := p.blobs.UploadAll(ctx, dir.Path, p.indexBucket); err != nil {
		return nil, fmt.Errorf("uploading index: %w", err)
	}

	updated, err := marker.Touch(ctx, p.markers, time.Time{})

	if err != nil {
		return nil, fmt.Errorf("updating marker: %w", err)
	}

	logger.WithField("updated", updated).Info("index published")

	return &Result{
		Entities: m.Names(),
		Updated:  updated,
	}, nil
}
