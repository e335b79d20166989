package refresh

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtonic/resumebot/pkg/blob"
	"github.com/gtonic/resumebot/pkg/index"
)

type fakeMarkers struct {
	mu    sync.Mutex
	value *time.Time
	err   error

	reads atomic.Int32
}

func (m *fakeMarkers) Get(ctx context.Context) (*time.Time, error) {
	m.reads.Add(1)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	if m.value == nil {
		return nil, nil
	}

	t := *m.value
	return &t, nil
}

func (m *fakeMarkers) Set(ctx context.Context, t time.Time) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.value = &t
	return t, nil
}

func (m *fakeMarkers) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.value = nil
	return nil
}

// fakeBlobs writes one entity index per download and can be made to block or
// fail.
type fakeBlobs struct {
	started chan struct{}
	release chan struct{}

	failures atomic.Int32
	calls    atomic.Int32
}

func (b *fakeBlobs) DownloadAll(ctx context.Context, bucket, dst string) error {
	b.calls.Add(1)

	if b.started != nil {
		b.started <- struct{}{}
	}

	if b.release != nil {
		select {
		case <-b.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if b.failures.Load() > 0 {
		b.failures.Add(-1)
		return errors.New("connection reset")
	}

	return blob.ReplaceDir(dst, func(dir string) error {
		return index.Write(ctx, dir, &index.Index{Entity: "Jane Doe", Summary: index.Summary("Jane Doe")})
	})
}

func (b *fakeBlobs) UploadAll(ctx context.Context, src, bucket string) error {
	return errors.New("not supported")
}

type fakeIndexer struct {
	calls atomic.Int32
}

func (i *fakeIndexer) BuildAll(ctx context.Context, dir string, m *index.Manifest) error {
	i.calls.Add(1)

	for _, e := range m.Entities {
		if err := index.Write(ctx, dir, &index.Index{Entity: e.Name, Summary: index.Summary(e.Name)}); err != nil {
			return err
		}
	}

	return nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func markerAt(t time.Time) *time.Time {
	return &t
}

func newTestCoordinator(t *testing.T, markers *fakeMarkers, blobs *fakeBlobs, c *clock) *Coordinator {
	t.Helper()

	root := t.TempDir()

	coordinator, err := New(
		WithDirectory(&index.Directory{
			Path:   filepath.Join(root, "index"),
			Source: filepath.Join(root, "resumes"),
		}),
		WithMarkers(markers),
		WithBlobs(blobs, "resumes-index"),
		WithTTL(time.Minute),
		WithClock(c.Now),
	)
	require.NoError(t, err)

	return coordinator
}

func TestConcurrentRefreshDownloadsOnce(t *testing.T) {
	t1 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	markers := &fakeMarkers{value: markerAt(t1)}
	blobs := &fakeBlobs{started: make(chan struct{}, 16), release: make(chan struct{})}
	c := &clock{now: time.Unix(600, 0)}

	coordinator := newTestCoordinator(t, markers, blobs, c)

	const callers = 10

	var wg sync.WaitGroup
	errs := make(chan error, callers)

	for range callers {
		wg.Add(1)

		go func() {
			defer wg.Done()
			errs <- coordinator.Refresh(context.Background())
		}()
	}

	<-blobs.started

	require.Eventually(t, func() bool {
		return markers.reads.Load() == callers
	}, 5*time.Second, time.Millisecond)

	close(blobs.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	assert.EqualValues(t, 1, blobs.calls.Load())
	assert.Equal(t, &t1, coordinator.Applied())
}

func TestWaiterSkipsDownloadAfterConcurrentRefresh(t *testing.T) {
	t1 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	markers := &fakeMarkers{value: markerAt(t1)}
	blobs := &fakeBlobs{started: make(chan struct{}, 2), release: make(chan struct{})}
	c := &clock{now: time.Unix(600, 0)}

	coordinator := newTestCoordinator(t, markers, blobs, c)

	first := make(chan error, 1)
	go func() { first <- coordinator.Refresh(context.Background()) }()

	<-blobs.started

	second := make(chan error, 1)
	go func() { second <- coordinator.Refresh(context.Background()) }()

	require.Eventually(t, func() bool {
		return markers.reads.Load() == 2
	}, 5*time.Second, time.Millisecond)

	close(blobs.release)

	require.NoError(t, <-first)
	require.NoError(t, <-second)

	assert.EqualValues(t, 1, blobs.calls.Load())
}

func TestRefreshUsesMarkerValueAsLocalState(t *testing.T) {
	t1 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	markers := &fakeMarkers{value: markerAt(t1)}
	blobs := &fakeBlobs{}
	c := &clock{now: time.Unix(600, 0)}

	coordinator := newTestCoordinator(t, markers, blobs, c)
	assert.Nil(t, coordinator.Applied())

	require.NoError(t, coordinator.Refresh(context.Background()))
	assert.Equal(t, &t1, coordinator.Applied())
}

func TestRefreshReadsMarkerOncePerWindow(t *testing.T) {
	t1 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	markers := &fakeMarkers{value: markerAt(t1)}
	blobs := &fakeBlobs{}
	c := &clock{now: time.Unix(600, 0)}

	coordinator := newTestCoordinator(t, markers, blobs, c)

	for range 5 {
		require.NoError(t, coordinator.Refresh(context.Background()))
	}

	assert.EqualValues(t, 1, markers.reads.Load())
	assert.EqualValues(t, 1, blobs.calls.Load())

	c.Advance(time.Minute)

	require.NoError(t, coordinator.Refresh(context.Background()))

	assert.EqualValues(t, 2, markers.reads.Load())
	assert.EqualValues(t, 1, blobs.calls.Load(), "unchanged marker must not download again")
}

func TestRefreshFollowsNewerMarker(t *testing.T) {
	t1 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	markers := &fakeMarkers{value: markerAt(t1)}
	blobs := &fakeBlobs{}
	c := &clock{now: time.Unix(600, 0)}

	coordinator := newTestCoordinator(t, markers, blobs, c)

	require.NoError(t, coordinator.Refresh(context.Background()))

	_, err := markers.Set(context.Background(), t2)
	require.NoError(t, err)

	// same window, change is not observed yet
	require.NoError(t, coordinator.Refresh(context.Background()))
	assert.Equal(t, &t1, coordinator.Applied())

	c.Advance(time.Minute)

	require.NoError(t, coordinator.Refresh(context.Background()))
	assert.Equal(t, &t2, coordinator.Applied())
	assert.EqualValues(t, 2, blobs.calls.Load())
}

func TestRefreshFailureIsRetried(t *testing.T) {
	t1 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	markers := &fakeMarkers{value: markerAt(t1)}
	blobs := &fakeBlobs{}
	blobs.failures.Store(1)

	c := &clock{now: time.Unix(600, 0)}

	coordinator := newTestCoordinator(t, markers, blobs, c)

	err := coordinator.Refresh(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Nil(t, coordinator.Applied())

	require.NoError(t, coordinator.Refresh(context.Background()))
	assert.Equal(t, &t1, coordinator.Applied())
	assert.EqualValues(t, 2, blobs.calls.Load())
}

func TestMarkerReadFailureIsUnavailable(t *testing.T) {
	markers := &fakeMarkers{err: errors.New("deadline exceeded")}
	blobs := &fakeBlobs{}
	c := &clock{now: time.Unix(600, 0)}

	coordinator := newTestCoordinator(t, markers, blobs, c)

	_, err := coordinator.Corpus(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)

	assert.EqualValues(t, 0, blobs.calls.Load())
}

func TestAbsentMarkerIsAlwaysStale(t *testing.T) {
	markers := &fakeMarkers{}
	blobs := &fakeBlobs{}
	c := &clock{now: time.Unix(600, 0)}

	coordinator := newTestCoordinator(t, markers, blobs, c)

	require.NoError(t, coordinator.Refresh(context.Background()))
	assert.Nil(t, coordinator.Applied())

	c.Advance(time.Minute)

	require.NoError(t, coordinator.Refresh(context.Background()))
	assert.EqualValues(t, 2, blobs.calls.Load())
}

func TestAbsentMarkerConcurrentRefreshDownloadsOnce(t *testing.T) {
	markers := &fakeMarkers{}
	blobs := &fakeBlobs{started: make(chan struct{}, 8), release: make(chan struct{})}
	c := &clock{now: time.Unix(600, 0)}

	coordinator := newTestCoordinator(t, markers, blobs, c)

	var wg sync.WaitGroup

	for range 4 {
		wg.Add(1)

		go func() {
			defer wg.Done()
			assert.NoError(t, coordinator.Refresh(context.Background()))
		}()
	}

	<-blobs.started

	require.Eventually(t, func() bool {
		return markers.reads.Load() == 4
	}, 5*time.Second, time.Millisecond)

	// let every caller take its snapshot before the download finishes
	time.Sleep(50 * time.Millisecond)

	close(blobs.release)
	wg.Wait()

	assert.EqualValues(t, 1, blobs.calls.Load())
}

func TestCorpusLoadsDownloadedIndex(t *testing.T) {
	t1 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	markers := &fakeMarkers{value: markerAt(t1)}
	blobs := &fakeBlobs{}
	c := &clock{now: time.Unix(600, 0)}

	coordinator := newTestCoordinator(t, markers, blobs, c)

	corpus, err := coordinator.Corpus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Jane Doe"}, corpus.Names())

	again, err := coordinator.Corpus(context.Background())
	require.NoError(t, err)
	assert.Same(t, corpus, again)

	names, err := coordinator.Names(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Jane Doe"}, names)
}

func TestCorpusBuildsLocalIndexFromSources(t *testing.T) {
	root := t.TempDir()

	dir := &index.Directory{
		Path:       filepath.Join(root, "index"),
		Source:     filepath.Join(root, "resumes"),
		Extensions: []string{".txt"},
	}

	require.NoError(t, os.MkdirAll(dir.Path, 0o755))
	require.NoError(t, os.MkdirAll(dir.Source, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir.Source, "Ada_Lovelace_Resume.txt"), []byte("Mathematician."), 0o644))

	indexer := &fakeIndexer{}

	coordinator, err := New(WithDirectory(dir), WithIndexer(indexer))
	require.NoError(t, err)

	corpus, err := coordinator.Corpus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Ada Lovelace"}, corpus.Names())

	_, err = coordinator.Corpus(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, indexer.calls.Load())

	require.NoError(t, coordinator.Reset())

	_, err = coordinator.Corpus(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, indexer.calls.Load())
}

func TestCorpusWithoutEntitiesIsEmpty(t *testing.T) {
	root := t.TempDir()

	coordinator, err := New(WithDirectory(&index.Directory{
		Path:   filepath.Join(root, "index"),
		Source: filepath.Join(root, "resumes"),
	}))
	require.NoError(t, err)

	corpus, err := coordinator.Corpus(context.Background())
	require.NoError(t, err)
	assert.Zero(t, corpus.Len())

	assert.DirExists(t, filepath.Join(root, "resumes"))
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New()
	assert.Error(t, err)

	_, err = New(
		WithDirectory(&index.Directory{Path: t.TempDir()}),
		WithBlobs(&fakeBlobs{}, "bucket"),
	)
	assert.Error(t, err, "remote mode needs a marker provider")
}
