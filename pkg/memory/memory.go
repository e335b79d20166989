// Package memory records the questions users ask and the answers they get.
package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/gtonic/resumebot/pkg/history"
)

// ErrorPrefix starts the answer stored for a failed query.
const ErrorPrefix = "Error querying LLM: "

type Config struct {
	Enabled      bool
	RecordErrors bool
}

// Recorder writes interactions to a history provider. Failures are logged
// and never returned, so they cannot mask the answer or error of a query.
type Recorder struct {
	config  *Config
	history history.Provider

	now func() time.Time
}

// NewRecorder returns a recorder that does nothing when config is disabled
// or no provider is given.
func NewRecorder(config *Config, p history.Provider) *Recorder {
	if config == nil || p == nil {
		return &Recorder{config: config, now: time.Now}
	}

	return &Recorder{config: config, history: p, now: time.Now}
}

func (r *Recorder) Config() *Config {
	return r.config
}

func (r *Recorder) enabled() bool {
	return r.config != nil && r.config.Enabled && r.history != nil
}

// Record stores a successful answer.
func (r *Recorder) Record(ctx context.Context, userID, backend, question, answer string) {
	r.record(ctx, userID, history.Interaction{
		Backend:  backend,
		Question: question,
		Answer:   answer,
	})
}

// RecordFailure stores the error text as the answer when error recording is
// enabled.
func (r *Recorder) RecordFailure(ctx context.Context, userID, backend, question string, err error) {
	if r.config == nil || !r.config.RecordErrors {
		return
	}

	r.record(ctx, userID, history.Interaction{
		Backend:  backend,
		Question: question,
		Answer:   ErrorPrefix + err.Error(),
		Failed:   true,
	})
}

func (r *Recorder) record(ctx context.Context, userID string, interaction history.Interaction) {
	if !r.enabled() {
		return
	}

	interaction.ID = uuid.NewString()
	interaction.Timestamp = r.now().UTC()

	logger := log.WithFields(log.Fields{
		"user":    userID,
		"backend": interaction.Backend,
	})

	// the request may already be gone, the record should still land
	ctx = context.WithoutCancel(ctx)

	if err := r.history.Record(ctx, userID, interaction); err != nil {
		logger.WithError(err).Error("failed to record interaction")
		return
	}

	logger.Debug("interaction recorded")
}
