// Package marker describes the remote record that tells every replica when the
// source resumes last changed.
package marker

import (
	"context"
	"time"
)

type Provider interface {
	// Get returns the last recorded update, or nil when none was ever recorded
	// or the marker was cleared.
	Get(ctx context.Context) (*time.Time, error)

	// Set records t and returns the stored value.
	Set(ctx context.Context, t time.Time) (time.Time, error)

	// Clear removes the recorded update.
	Clear(ctx context.Context) error
}

// Touch records t, or the current time when t is zero.
func Touch(ctx context.Context, p Provider, t time.Time) (time.Time, error) {
	if t.IsZero() {
		t = time.Now().UTC()
	}

	return p.Set(ctx, t)
}
