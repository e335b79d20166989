// Package chain defines the query engines that turn a question into an answer.
package chain

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gtonic/resumebot/pkg/index"
)

type Provider interface {
	Query(ctx context.Context, question string) (string, error)
}

// Builder turns a loaded corpus into a query engine.
type Builder interface {
	Build(corpus *index.Corpus) (Provider, error)
}

type logging struct {
	label    string
	provider Provider
}

// WithLogging logs every question, its duration and failures under label.
func WithLogging(p Provider, label string) Provider {
	return &logging{
		label:    label,
		provider: p,
	}
}

func (l *logging) Query(ctx context.Context, question string) (string, error) {
	logger := log.WithField("backend", l.label)
	logger.WithField("question", question).Debug("query started")

	start := time.Now()
	answer, err := l.provider.Query(ctx, question)

	logger = logger.WithField("duration", time.Since(start).Round(time.Millisecond))

	if err != nil {
		logger.WithError(err).Error("query failed")
		return "", err
	}

	logger.Info("query finished")
	return answer, nil
}
