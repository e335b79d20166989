// Package warmer keeps the local index fresh between requests so that
// downloads happen in the background instead of on the request path.
package warmer

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gtonic/resumebot/pkg/connector"
	"github.com/gtonic/resumebot/pkg/index"
)

var _ connector.Provider = (*Connector)(nil)

const DefaultInterval = time.Minute

type Loader interface {
	Corpus(ctx context.Context) (*index.Corpus, error)
}

type Connector struct {
	id string

	loader   Loader
	interval time.Duration
}

type Option func(*Connector)

func WithInterval(interval time.Duration) Option {
	return func(c *Connector) {
		c.interval = interval
	}
}

func New(id string, loader Loader, options ...Option) (*Connector, error) {
	c := &Connector{
		id: id,

		loader:   loader,
		interval: DefaultInterval,
	}

	for _, option := range options {
		option(c)
	}

	if c.loader == nil {
		return nil, errors.New("missing index loader")
	}

	if c.interval <= 0 {
		c.interval = DefaultInterval
	}

	return c, nil
}

func (c *Connector) ID() string {
	return c.id
}

func (c *Connector) Start(ctx context.Context) error {
	logger := log.WithField("connector", c.id)
	logger.WithField("interval", c.interval).Info("starting index warmer")

	c.warm(ctx, logger)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("stopping index warmer")
			return ctx.Err()

		case <-ticker.C:
			c.warm(ctx, logger)
		}
	}
}

func (c *Connector) warm(ctx context.Context, logger *log.Entry) {
	corpus, err := c.loader.Corpus(ctx)

	if err != nil {
		if ctx.Err() == nil {
			logger.WithError(err).Warn("failed to warm index")
		}

		return
	}

	logger.WithField("entities", corpus.Len()).Debug("index warm")
}
