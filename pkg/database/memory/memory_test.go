package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtonic/resumebot/pkg/history"
	"github.com/gtonic/resumebot/pkg/vote"
)

func TestMarkerCopiesValue(t *testing.T) {
	d := New()
	ctx := context.Background()

	at := time.Unix(1000, 0)
	_, err := d.Set(ctx, at)
	require.NoError(t, err)

	got, err := d.Get(ctx)
	require.NoError(t, err)

	*got = time.Unix(0, 0)

	again, err := d.Get(ctx)
	require.NoError(t, err)
	assert.True(t, at.Equal(*again))
}

func TestHistoryAndVotes(t *testing.T) {
	d := New()
	ctx := context.Background()

	require.NoError(t, d.Record(ctx, "anonymous", history.Interaction{Question: "q", Answer: "a"}))

	u, err := d.User(ctx, "anonymous")
	require.NoError(t, err)
	assert.Len(t, u.Interactions, 1)

	require.NoError(t, d.Submit(ctx, vote.Vote{Backend: "palm", Upvoted: false}))
	require.NoError(t, d.Submit(ctx, vote.Vote{Backend: "gpt", Upvoted: true}))

	stats, err := d.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, []vote.Stats{
		{Backend: "gpt", Up: 1},
		{Backend: "palm", Down: -1},
	}, stats)
}
