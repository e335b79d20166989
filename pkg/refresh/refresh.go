// Package refresh keeps the local index in step with the remote update
// marker.
//
// The freshness check is memoized per ttl window, so the remote marker is read
// at most once per window under sustained load. When the check finds the local
// index stale, the download runs under a mutex and the staleness is checked
// again once the mutex is held: callers that queued behind a finished download
// skip their own. A failed download leaves the local state untouched and is
// not memoized, so the next caller tries again.
//
// The mutex has no timeout. A hanging download blocks every caller queued
// behind it; WithDownloadTimeout bounds the download itself.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/gtonic/resumebot/pkg/blob"
	"github.com/gtonic/resumebot/pkg/cache"
	"github.com/gtonic/resumebot/pkg/index"
	"github.com/gtonic/resumebot/pkg/marker"
)

// ErrUnavailable wraps remote failures while reading the marker or
// downloading the index.
var ErrUnavailable = errors.New("index unavailable")

const DefaultTTL = time.Minute

// Indexer builds entity indexes from source files.
type Indexer interface {
	BuildAll(ctx context.Context, dir string, m *index.Manifest) error
}

// state is the last successful refresh. A nil marker means the refresh ran
// while no marker was recorded.
type state struct {
	marker *time.Time
}

type Coordinator struct {
	dir *index.Directory

	markers marker.Provider

	blobs  blob.Provider
	bucket string

	indexer Indexer

	ttl             time.Duration
	downloadTimeout time.Duration
	cacheOptions    []cache.Option

	mu     sync.Mutex
	state  atomic.Pointer[state]
	corpus *index.Corpus

	check *cache.Cache[struct{}, struct{}]

	refreshes metric.Int64Counter
}

type Option func(*Coordinator)

func WithDirectory(dir *index.Directory) Option {
	return func(c *Coordinator) {
		c.dir = dir
	}
}

func WithMarkers(markers marker.Provider) Option {
	return func(c *Coordinator) {
		c.markers = markers
	}
}

// WithBlobs enables remote refreshes from bucket. Without it the coordinator
// only manages the local directory.
func WithBlobs(blobs blob.Provider, bucket string) Option {
	return func(c *Coordinator) {
		c.blobs = blobs
		c.bucket = bucket
	}
}

func WithIndexer(indexer Indexer) Option {
	return func(c *Coordinator) {
		c.indexer = indexer
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(c *Coordinator) {
		c.ttl = ttl
	}
}

func WithMaxEntries(n int) Option {
	return func(c *Coordinator) {
		c.cacheOptions = append(c.cacheOptions, cache.WithMaxEntries(n))
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.cacheOptions = append(c.cacheOptions, cache.WithClock(now))
	}
}

func WithDownloadTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.downloadTimeout = d
	}
}

func New(options ...Option) (*Coordinator, error) {
	c := &Coordinator{
		ttl: DefaultTTL,
	}

	for _, option := range options {
		option(c)
	}

	if c.dir == nil || c.dir.Path == "" {
		return nil, errors.New("missing index directory")
	}

	if c.blobs != nil {
		if c.markers == nil {
			return nil, errors.New("missing marker provider")
		}

		if c.bucket == "" {
			return nil, errors.New("missing index bucket")
		}
	}

	check, err := cache.New(c.refresh, c.ttl, c.cacheOptions...)

	if err != nil {
		return nil, err
	}

	c.check = check

	c.refreshes, err = otel.Meter("github.com/gtonic/resumebot/pkg/refresh").Int64Counter("resumebot.index.refreshes",
		metric.WithDescription("Index freshness checks by result"),
	)

	if err != nil {
		return nil, err
	}

	return c, nil
}

// Refresh makes sure the local index is at least as new as the remote marker
// observed in the current ttl window.
func (c *Coordinator) Refresh(ctx context.Context) error {
	_, err := c.check.Get(ctx, struct{}{})
	return err
}

// Applied returns the marker value of the last successful refresh, or nil.
func (c *Coordinator) Applied() *time.Time {
	s := c.state.Load()

	if s == nil || s.marker == nil {
		return nil
	}

	t := *s.marker
	return &t
}

func (c *Coordinator) refresh(ctx context.Context, _ struct{}) (struct{}, error) {
	if c.blobs == nil {
		return struct{}{}, nil
	}

	remote, err := c.markers.Get(ctx)

	if err != nil {
		c.record(ctx, "failed")
		return struct{}{}, fmt.Errorf("%w: reading marker: %w", ErrUnavailable, err)
	}

	// unlocked read, only used to decide whether to queue for the mutex
	seen := c.state.Load()

	if !stale(seen, remote) {
		log.Debug("local index is current")
		c.record(ctx, "current")

		return struct{}{}, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.state.Load()

	if !stale(current, remote) || (remote == nil && current != seen) {
		log.Info("local index was refreshed while waiting, skipping download")
		c.record(ctx, "skipped")

		return struct{}{}, nil
	}

	if c.downloadTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, c.downloadTimeout)
		defer cancel()
	}

	logger := log.WithField("bucket", c.bucket)
	logger.Info("refreshing local index")

	if err := c.blobs.DownloadAll(ctx, c.bucket, c.dir.Path); err != nil {
		c.record(ctx, "failed")
		return struct{}{}, fmt.Errorf("%w: downloading index: %w", ErrUnavailable, err)
	}

	c.corpus = nil
	c.state.Store(&state{marker: remote})

	c.record(ctx, "downloaded")
	logger.Info("local index refreshed")

	return struct{}{}, nil
}

// stale treats a missing remote marker as always stale.
func stale(s *state, remote *time.Time) bool {
	if s == nil || s.marker == nil || remote == nil {
		return true
	}

	return s.marker.Before(*remote)
}

func (c *Coordinator) record(ctx context.Context, result string) {
	c.refreshes.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// Corpus refreshes the index if needed and returns the loaded entity
// indexes. When no entities exist at all the corpus is empty and the error
// is nil.
func (c *Coordinator) Corpus(ctx context.Context) (*index.Corpus, error) {
	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.corpus != nil {
		return c.corpus, nil
	}

	m, err := c.dir.Ensure()

	if err != nil {
		return nil, err
	}

	if m.Empty() {
		return &index.Corpus{}, nil
	}

	if !m.Indexed {
		if c.indexer == nil {
			return nil, errors.New("no index available and no indexer configured")
		}

		log.WithField("path", c.dir.Path).Infof("building index for %d entities", len(m.Entities))

		if err := blob.ReplaceDir(c.dir.Path, func(dir string) error {
			return c.indexer.BuildAll(ctx, dir, m)
		}); err != nil {
			return nil, fmt.Errorf("building index: %w", err)
		}
	}

	corpus, err := index.LoadCorpus(c.dir.Path, m.Names())

	if err != nil {
		return nil, err
	}

	c.corpus = corpus
	return corpus, nil
}

// Names refreshes the index if needed and lists the known entities without
// loading their indexes.
func (c *Coordinator) Names(ctx context.Context) ([]string, error) {
	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.corpus != nil {
		return c.corpus.Names(), nil
	}

	m, err := c.dir.Ensure()

	if err != nil {
		return nil, err
	}

	return m.Names(), nil
}

// Reset drops the local index so that the next call rebuilds or downloads it.
func (c *Coordinator) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.corpus = nil
	c.state.Store(nil)
	c.check.Purge()

	return os.RemoveAll(c.dir.Path)
}
