package vote

import (
	"context"
	"time"
)

type Vote struct {
	UserID  string
	Backend string

	Question string
	Answer   string

	Upvoted bool

	Timestamp time.Time
}

// Stats holds the totals for one backend. Down is never positive: each
// downvote is recorded as a decrement.
type Stats struct {
	Backend string

	Up   int
	Down int
}

type Provider interface {
	Submit(ctx context.Context, v Vote) error

	Stats(ctx context.Context) ([]Stats, error)
}
