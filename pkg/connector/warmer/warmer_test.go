package warmer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtonic/resumebot/pkg/index"
)

type countingLoader struct {
	calls atomic.Int32
	err   error
}

func (l *countingLoader) Corpus(ctx context.Context) (*index.Corpus, error) {
	l.calls.Add(1)

	if l.err != nil {
		return nil, l.err
	}

	return &index.Corpus{}, nil
}

func TestStartWarmsPeriodically(t *testing.T) {
	loader := &countingLoader{}

	c, err := New("warmer", loader, WithInterval(10*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, "warmer", c.ID())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool {
		return loader.calls.Load() >= 3
	}, 5*time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestStartKeepsRunningOnErrors(t *testing.T) {
	loader := &countingLoader{err: errors.New("index unavailable")}

	c, err := New("warmer", loader, WithInterval(10*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go c.Start(ctx)

	require.Eventually(t, func() bool {
		return loader.calls.Load() >= 2
	}, 5*time.Second, 5*time.Millisecond)
}

func TestNewRequiresLoader(t *testing.T) {
	_, err := New("warmer", nil)
	assert.Error(t, err)
}
