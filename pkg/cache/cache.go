// Package cache memoizes function results for a fixed time window.
//
// Results are keyed by the call argument and the epoch-aligned bucket the call
// falls into (unix time divided by the ttl). Two calls in the same bucket share
// a result, calls in different buckets run the function again, even if they are
// only a moment apart. Concurrent first calls for the same key may all run the
// function; callers that need single-flight must add it themselves.
package cache

import (
	"context"
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultMaxEntries = 1 << 14

type Func[K comparable, V any] func(ctx context.Context, key K) (V, error)

type Cache[K comparable, V any] struct {
	fn  Func[K, V]
	ttl time.Duration

	now func() time.Time

	entries *lru.Cache[bucketKey[K], V]
}

type bucketKey[K comparable] struct {
	Key    K
	Bucket int64
}

type options struct {
	now  func() time.Time
	size int
}

type Option func(*options)

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func WithMaxEntries(size int) Option {
	return func(o *options) {
		o.size = size
	}
}

func New[K comparable, V any](fn Func[K, V], ttl time.Duration, opts ...Option) (*Cache[K, V], error) {
	if fn == nil {
		return nil, errors.New("missing function")
	}

	if ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}

	o := &options{
		now:  time.Now,
		size: DefaultMaxEntries,
	}

	for _, opt := range opts {
		opt(o)
	}

	entries, err := lru.New[bucketKey[K], V](o.size)

	if err != nil {
		return nil, err
	}

	return &Cache[K, V]{
		fn:  fn,
		ttl: ttl,

		now: o.now,

		entries: entries,
	}, nil
}

// Get returns the memoized result for key in the current bucket, calling the
// wrapped function on a miss. Errors are returned as-is and never stored.
func (c *Cache[K, V]) Get(ctx context.Context, key K) (V, error) {
	k := bucketKey[K]{
		Key:    key,
		Bucket: c.Bucket(c.now()),
	}

	if v, ok := c.entries.Get(k); ok {
		return v, nil
	}

	v, err := c.fn(ctx, key)

	if err != nil {
		return v, err
	}

	c.entries.Add(k, v)

	return v, nil
}

// Bucket returns the epoch-aligned window index for t.
func (c *Cache[K, V]) Bucket(t time.Time) int64 {
	return t.UnixNano() / int64(c.ttl)
}

func (c *Cache[K, V]) TTL() time.Duration {
	return c.ttl
}

func (c *Cache[K, V]) Len() int {
	return c.entries.Len()
}

func (c *Cache[K, V]) Purge() {
	c.entries.Purge()
}
