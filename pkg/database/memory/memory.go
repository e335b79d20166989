// Package memory keeps markers, user history and votes in process memory.
// It backs local development and tests.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gtonic/resumebot/pkg/history"
	"github.com/gtonic/resumebot/pkg/marker"
	"github.com/gtonic/resumebot/pkg/vote"
)

var (
	_ marker.Provider  = &Database{}
	_ history.Provider = &Database{}
	_ vote.Provider    = &Database{}
)

type Database struct {
	mu sync.Mutex

	marker *time.Time

	users map[string]*history.User
	votes map[string]*vote.Stats

	submissions []vote.Vote
}

func New() *Database {
	return &Database{
		users: make(map[string]*history.User),
		votes: make(map[string]*vote.Stats),
	}
}

func (d *Database) Get(ctx context.Context) (*time.Time, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.marker == nil {
		return nil, nil
	}

	t := *d.marker
	return &t, nil
}

func (d *Database) Set(ctx context.Context, t time.Time) (time.Time, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.marker = &t
	return t, nil
}

func (d *Database) Clear(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.marker = nil
	return nil
}

func (d *Database) Record(ctx context.Context, userID string, interaction history.Interaction) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if interaction.Timestamp.IsZero() {
		interaction.Timestamp = time.Now().UTC()
	}

	u, ok := d.users[userID]

	if !ok {
		u = &history.User{
			ID:         userID,
			FirstLogin: interaction.Timestamp,
		}

		d.users[userID] = u
	}

	u.Interactions = append(u.Interactions, interaction)
	return nil
}

func (d *Database) User(ctx context.Context, userID string) (*history.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[userID]

	if !ok {
		return nil, history.ErrNotFound
	}

	result := *u
	result.Interactions = slices.Clone(u.Interactions)

	return &result, nil
}

func (d *Database) Submit(ctx context.Context, v vote.Vote) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if v.Timestamp.IsZero() {
		v.Timestamp = time.Now().UTC()
	}

	s, ok := d.votes[v.Backend]

	if !ok {
		s = &vote.Stats{Backend: v.Backend}
		d.votes[v.Backend] = s
	}

	if v.Upvoted {
		s.Up++
	} else {
		s.Down--
	}

	d.submissions = append(d.submissions, v)
	return nil
}

func (d *Database) Stats(ctx context.Context) ([]vote.Stats, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	result := make([]vote.Stats, 0, len(d.votes))

	for _, s := range d.votes {
		result = append(result, *s)
	}

	slices.SortFunc(result, func(a, b vote.Stats) int {
		return strings.Compare(a.Backend, b.Backend)
	})

	return result, nil
}
