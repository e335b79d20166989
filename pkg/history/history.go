package history

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("user not found")

type Interaction struct {
	ID string

	Backend string

	Question string
	Answer   string

	Failed bool

	Timestamp time.Time
}

type User struct {
	ID string

	FirstLogin time.Time

	Interactions []Interaction
}

type Provider interface {
	// Record appends an interaction to the user's history, creating the user
	// on first contact.
	Record(ctx context.Context, userID string, interaction Interaction) error

	User(ctx context.Context, userID string) (*User, error)
}
