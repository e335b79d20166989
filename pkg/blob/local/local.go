// Package local serves buckets from sub directories of a local root. It stands in
// for Cloud Storage during local development and in tests.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gtonic/resumebot/pkg/blob"
)

var _ blob.Provider = &Client{}

type Client struct {
	root string
}

func New(root string) (*Client, error) {
	if root == "" {
		return nil, errors.New("missing root directory")
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}

	return &Client{
		root: root,
	}, nil
}

func (c *Client) bucketPath(bucket string) (string, error) {
	if bucket == "" {
		return "", errors.New("missing bucket")
	}

	return blob.LocalPath(c.root, bucket)
}

func (c *Client) DownloadAll(ctx context.Context, bucket, dst string) error {
	src, err := c.bucketPath(bucket)

	if err != nil {
		return err
	}

	if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", blob.ErrNotFound, bucket)
	}

	return blob.ReplaceDir(dst, func(dir string) error {
		return copyTree(ctx, src, dir)
	})
}

func (c *Client) UploadAll(ctx context.Context, src, bucket string) error {
	dst, err := c.bucketPath(bucket)

	if err != nil {
		return err
	}

	return blob.ReplaceDir(dst, func(dir string) error {
		return copyTree(ctx, src, dir)
	})
}

func copyTree(ctx context.Context, src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)

		if err != nil {
			return err
		}

		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}

		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)

	if err != nil {
		return err
	}

	defer in.Close()

	out, err := os.Create(dst)

	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
