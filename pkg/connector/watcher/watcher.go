// Package watcher rebuilds the local index when source resumes change on
// disk. It is meant for local development, where no resume manager uploads
// a fresh index.
package watcher

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"github.com/gtonic/resumebot/pkg/connector"
	"github.com/gtonic/resumebot/pkg/index"
)

var _ connector.Provider = (*Connector)(nil)

const DefaultDelay = 2 * time.Second

type Rebuilder interface {
	Reset() error
	Corpus(ctx context.Context) (*index.Corpus, error)
}

type Connector struct {
	id string

	path  string
	delay time.Duration

	rebuilder Rebuilder
}

type Option func(*Connector)

// WithDelay sets how long the directory has to stay quiet before a rebuild.
func WithDelay(delay time.Duration) Option {
	return func(c *Connector) {
		c.delay = delay
	}
}

func New(id, path string, rebuilder Rebuilder, options ...Option) (*Connector, error) {
	c := &Connector{
		id:   id,
		path: path,

		delay: DefaultDelay,

		rebuilder: rebuilder,
	}

	for _, option := range options {
		option(c)
	}

	if c.path == "" {
		return nil, errors.New("missing source path")
	}

	if c.rebuilder == nil {
		return nil, errors.New("missing rebuilder")
	}

	return c, nil
}

func (c *Connector) ID() string {
	return c.id
}

func (c *Connector) Start(ctx context.Context) error {
	logger := log.WithFields(log.Fields{
		"connector": c.id,
		"path":      c.path,
	})

	if err := os.MkdirAll(c.path, 0o755); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()

	if err != nil {
		return err
	}

	defer w.Close()

	if err := w.Add(c.path); err != nil {
		return err
	}

	logger.Info("watching source directory")

	timer := time.NewTimer(c.delay)
	timer.Stop()

	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("stopping source watcher")
			return ctx.Err()

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}

			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}

			logger.WithField("file", event.Name).Debug("source changed")
			timer.Reset(c.delay)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}

			logger.WithError(err).Warn("watch error")

		case <-timer.C:
			c.rebuild(ctx, logger)
		}
	}
}

func (c *Connector) rebuild(ctx context.Context, logger *log.Entry) {
	logger.Info("sources changed, rebuilding index")

	if err := c.rebuilder.Reset(); err != nil {
		logger.WithError(err).Error("failed to reset index")
		return
	}

	corpus, err := c.rebuilder.Corpus(ctx)

	if err != nil {
		logger.WithError(err).Error("failed to rebuild index")
		return
	}

	logger.WithField("entities", corpus.Len()).Info("index rebuilt")
}
