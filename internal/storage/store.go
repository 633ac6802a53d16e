package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"subtitler/internal/fileutil"
)

// ErrNotFound reports a missing object.
var ErrNotFound = errors.New("object not found")

// Store is the object-storage boundary the pipeline depends on. Objects are
// addressed by bucket and key and assumed atomic per object.
type Store interface {
	// Get downloads the object into destPath.
	Get(ctx context.Context, bucket, key, destPath string) error
	// Put uploads the file at srcPath as the object.
	Put(ctx context.Context, bucket, key, srcPath string) error
	// Size returns the object size in bytes.
	Size(ctx context.Context, bucket, key string) (int64, error)
}

// Dir is a Store backed by a directory tree: each bucket is a subdirectory of
// Root and keys map to relative paths beneath it. Puts go through a temp file
// and rename so readers never observe partial objects.
type Dir struct {
	Root string
}

// NewDir creates a directory-backed store rooted at root.
func NewDir(root string) *Dir {
	return &Dir{Root: root}
}

func (d *Dir) objectPath(bucket, key string) (string, error) {
	bucket = strings.TrimSpace(bucket)
	key = strings.Trim(strings.TrimSpace(key), "/")
	if bucket == "" || key == "" {
		return "", fmt.Errorf("storage: bucket and key are required")
	}
	path := filepath.Join(d.Root, bucket, filepath.FromSlash(key))
	rootPrefix := filepath.Join(d.Root, bucket) + string(filepath.Separator)
	if !strings.HasPrefix(path, rootPrefix) {
		return "", fmt.Errorf("storage: key %q escapes bucket", key)
	}
	return path, nil
}

// Get implements Store.
func (d *Dir) Get(ctx context.Context, bucket, key, destPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := d.objectPath(bucket, key)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, bucket, key)
		}
		return fmt.Errorf("stat object: %w", err)
	}
	if err := fileutil.CopyFile(path, destPath); err != nil {
		return fmt.Errorf("get %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Put implements Store.
func (d *Dir) Put(ctx context.Context, bucket, key, srcPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := d.objectPath(bucket, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure bucket dir: %w", err)
	}
	tmp := path + ".partial"
	if err := fileutil.CopyFile(srcPath, tmp); err != nil {
		return fmt.Errorf("put %s/%s: %w", bucket, key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("put %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Size implements Store.
func (d *Dir) Size(ctx context.Context, bucket, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	path, err := d.objectPath(bucket, key)
	if err != nil {
		return 0, err
	}
	size, err := fileutil.FileSize(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: %s/%s", ErrNotFound, bucket, key)
		}
		return 0, err
	}
	return size, nil
}
