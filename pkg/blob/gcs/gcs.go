package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/gtonic/resumebot/pkg/blob"
)

var _ blob.Provider = &Client{}

type Client struct {
	client *storage.Client

	concurrency int
}

type Option func(*Client)

func WithConcurrency(n int) Option {
	return func(c *Client) {
		c.concurrency = n
	}
}

func New(ctx context.Context, opts []option.ClientOption, options ...Option) (*Client, error) {
	client, err := storage.NewClient(ctx, opts...)

	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	c := &Client{
		client: client,

		concurrency: 8,
	}

	for _, option := range options {
		option(c)
	}

	return c, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) DownloadAll(ctx context.Context, bucket, dst string) error {
	b := c.client.Bucket(bucket)

	if _, err := b.Attrs(ctx); err != nil {
		if errors.Is(err, storage.ErrBucketNotExist) {
			return fmt.Errorf("%w: %s", blob.ErrNotFound, bucket)
		}

		return err
	}

	return blob.ReplaceDir(dst, func(dir string) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(c.concurrency)

		// dir is removed once fill returns, so running downloads must stop first.
		abort := func(err error) error {
			cancel()
			g.Wait()

			return err
		}

		it := b.Objects(ctx, nil)

		count := 0

		for {
			attrs, err := it.Next()

			if errors.Is(err, iterator.Done) {
				break
			}

			if err != nil {
				return abort(fmt.Errorf("listing %s: %w", bucket, err))
			}

			if strings.HasSuffix(attrs.Name, "/") {
				continue
			}

			path, err := blob.LocalPath(dir, attrs.Name)

			if err != nil {
				return abort(err)
			}

			name := attrs.Name
			count++

			g.Go(func() error {
				return c.download(ctx, b.Object(name), path)
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}

		log.WithField("bucket", bucket).Infof("downloaded %d objects to %s", count, dst)
		return nil
	})
}

func (c *Client) download(ctx context.Context, obj *storage.ObjectHandle, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	r, err := obj.NewReader(ctx)

	if err != nil {
		return fmt.Errorf("reading %s: %w", obj.ObjectName(), err)
	}

	defer r.Close()

	f, err := os.Create(path)

	if err != nil {
		return err
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("downloading %s: %w", obj.ObjectName(), err)
	}

	return f.Close()
}

func (c *Client) UploadAll(ctx context.Context, src, bucket string) error {
	b := c.client.Bucket(bucket)

	if err := c.clear(ctx, b); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(src, path)

		if err != nil {
			return err
		}

		name := filepath.ToSlash(rel)

		g.Go(func() error {
			return c.upload(ctx, b.Object(name), path)
		})

		return nil
	})

	if err != nil {
		g.Wait()
		return err
	}

	return g.Wait()
}

func (c *Client) clear(ctx context.Context, b *storage.BucketHandle) error {
	it := b.Objects(ctx, nil)

	for {
		attrs, err := it.Next()

		if errors.Is(err, iterator.Done) {
			return nil
		}

		if errors.Is(err, storage.ErrBucketNotExist) {
			return fmt.Errorf("%w: %s", blob.ErrNotFound, b.BucketName())
		}

		if err != nil {
			return err
		}

		if err := b.Object(attrs.Name).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("deleting %s: %w", attrs.Name, err)
		}
	}
}

func (c *Client) upload(ctx context.Context, obj *storage.ObjectHandle, path string) error {
	f, err := os.Open(path)

	if err != nil {
		return err
	}

	defer f.Close()

	w := obj.NewWriter(ctx)

	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return fmt.Errorf("uploading %s: %w", obj.ObjectName(), err)
	}

	return w.Close()
}
