package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ErrNotFound reports a missing bucket. An existing but empty bucket is not
// an error.
var ErrNotFound = errors.New("bucket not found")

type Provider interface {
	// DownloadAll replaces the contents of dst with every object in bucket.
	DownloadAll(ctx context.Context, bucket, dst string) error

	// UploadAll replaces the contents of bucket with every file under src.
	UploadAll(ctx context.Context, src, bucket string) error
}

// ReplaceDir fills a fresh sibling of dst and swaps it in once fill
// succeeds. On failure dst is left untouched.
func ReplaceDir(dst string, fill func(dir string) error) error {
	dst = filepath.Clean(dst)
	parent := filepath.Dir(dst)

	if err := os.MkdirAll(parent, 0o755); err != nil {
		return err
	}

	tmp := filepath.Join(parent, "."+filepath.Base(dst)+"-"+uuid.NewString())

	if err := os.MkdirAll(tmp, 0o755); err != nil {
		return err
	}

	if err := fill(tmp); err != nil {
		os.RemoveAll(tmp)
		return err
	}

	old := tmp + ".old"

	if err := os.Rename(dst, old); err != nil && !errors.Is(err, os.ErrNotExist) {
		os.RemoveAll(tmp)
		return fmt.Errorf("moving %s aside: %w", dst, err)
	}

	if err := os.Rename(tmp, dst); err != nil {
		os.Rename(old, dst)
		os.RemoveAll(tmp)
		return fmt.Errorf("swapping %s: %w", dst, err)
	}

	os.RemoveAll(old)
	return nil
}

// LocalPath maps an object name onto dir, rejecting names that would escape it.
func LocalPath(dir, name string) (string, error) {
	rel := filepath.FromSlash(name)

	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("invalid object name %q", name)
	}

	return filepath.Join(dir, rel), nil
}
