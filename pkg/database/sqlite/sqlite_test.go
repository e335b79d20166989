package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtonic/resumebot/pkg/history"
	"github.com/gtonic/resumebot/pkg/marker"
	"github.com/gtonic/resumebot/pkg/vote"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()

	d, err := New(filepath.Join(t.TempDir(), "resumebot.db"))
	require.NoError(t, err)

	t.Cleanup(func() { d.Close() })

	return d
}

func TestMarkerLifecycle(t *testing.T) {
	d := newTestDatabase(t)
	ctx := context.Background()

	got, err := d.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got, "marker must be absent before the first touch")

	at := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	stored, err := d.Set(ctx, at)
	require.NoError(t, err)
	assert.True(t, at.Equal(stored))

	got, err = d.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, at.Equal(*got))

	require.NoError(t, d.Clear(ctx))

	got, err = d.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTouchDefaultsToNow(t *testing.T) {
	d := newTestDatabase(t)

	before := time.Now().Add(-time.Second)

	stored, err := marker.Touch(context.Background(), d, time.Time{})
	require.NoError(t, err)

	assert.True(t, stored.After(before))
}

func TestRecordCreatesUser(t *testing.T) {
	d := newTestDatabase(t)
	ctx := context.Background()

	_, err := d.User(ctx, "jane@example.com")
	assert.ErrorIs(t, err, history.ErrNotFound)

	require.NoError(t, d.Record(ctx, "jane@example.com", history.Interaction{
		Backend:  "gpt-3.5-turbo",
		Question: "Who knows Go?",
		Answer:   "Jane Doe",
	}))

	require.NoError(t, d.Record(ctx, "jane@example.com", history.Interaction{
		Backend:  "gpt-3.5-turbo",
		Question: "Who knows Rust?",
		Answer:   "Error querying LLM: timeout",
		Failed:   true,
	}))

	u, err := d.User(ctx, "jane@example.com")
	require.NoError(t, err)

	require.Len(t, u.Interactions, 2)
	assert.Equal(t, "Who knows Go?", u.Interactions[0].Question)
	assert.False(t, u.Interactions[0].Failed)
	assert.True(t, u.Interactions[1].Failed)
	assert.False(t, u.FirstLogin.IsZero())
}

func TestVoteTotals(t *testing.T) {
	d := newTestDatabase(t)
	ctx := context.Background()

	require.NoError(t, d.Submit(ctx, vote.Vote{Backend: "gpt", Upvoted: true}))
	require.NoError(t, d.Submit(ctx, vote.Vote{Backend: "gpt", Upvoted: true}))
	require.NoError(t, d.Submit(ctx, vote.Vote{Backend: "gpt", Upvoted: false}))
	require.NoError(t, d.Submit(ctx, vote.Vote{Backend: "palm", Upvoted: false}))

	stats, err := d.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, []vote.Stats{
		{Backend: "gpt", Up: 2, Down: -1},
		{Backend: "palm", Up: 0, Down: -1},
	}, stats)
}

func TestReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resumebot.db")

	d, err := New(path)
	require.NoError(t, err)

	_, err = d.Set(context.Background(), time.Unix(100, 0))
	require.NoError(t, err)
	require.NoError(t, d.Close())

	d, err = New(path)
	require.NoError(t, err)
	defer d.Close()

	got, err := d.Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(100), got.Unix())
}

func TestUserRejectsMalformedTimestamps(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		damage string
	}{
		{name: "first login", damage: "UPDATE users SET first_login = 'yesterday'"},
		{name: "interaction", damage: "UPDATE interactions SET timestamp = 'noon'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDatabase(t)

			require.NoError(t, d.Record(ctx, "jane@example.com", history.Interaction{
				Backend:  "gpt-3.5-turbo",
				Question: "Who knows Go?",
				Answer:   "Jane Doe",
			}))

			_, err := d.db.ExecContext(ctx, tt.damage)
			require.NoError(t, err)

			_, err = d.User(ctx, "jane@example.com")
			assert.ErrorContains(t, err, "parsing")
		})
	}
}
