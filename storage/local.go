package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/carbocation/pfx"
)

// Local is a Client over a directory tree. Buckets are subdirectories of
// Root; with an empty Root and bucket, keys are plain filesystem paths.
type Local struct {
	Root string
}

func (l *Local) base(bucket string) string {
	return filepath.Join(l.Root, bucket)
}

func (l *Local) path(bucket, key string) string {
	return filepath.Join(l.base(bucket), filepath.FromSlash(key))
}

// key reverses path for a file found while walking.
func (l *Local) key(bucket, p string) string {
	base := l.base(bucket)
	if base == "" {
		return filepath.ToSlash(p)
	}

	return strings.TrimPrefix(filepath.ToSlash(strings.TrimPrefix(p, base)), "/")
}

func (l *Local) List(ctx context.Context, bucket, prefix string) ([]Object, error) {
	// Walk from the deepest directory the prefix names, then filter by the
	// full prefix so that partial file-name prefixes behave like S3.
	start := l.path(bucket, prefix)
	if fi, err := os.Stat(start); err != nil || !fi.IsDir() {
		start = filepath.Dir(start)
	}

	if _, err := os.Stat(start); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var out []Object
	err := filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}

		key := l.key(bucket, p)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		out = append(out, Object{
			Bucket:       bucket,
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})

		return nil
	})
	if err != nil {
		return nil, pfx.Err(err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })

	return out, nil
}

func (l *Local) Stat(ctx context.Context, bucket, key string) (Object, error) {
	info, err := os.Stat(l.path(bucket, key))
	if errors.Is(err, fs.ErrNotExist) {
		return Object{}, fmt.Errorf("%s: %w", l.path(bucket, key), ErrNotExist)
	} else if err != nil {
		return Object{}, pfx.Err(err)
	}

	if info.IsDir() {
		return Object{}, fmt.Errorf("%s is a directory: %w", l.path(bucket, key), ErrNotExist)
	}

	return Object{Bucket: bucket, Key: key, Size: info.Size(), LastModified: info.ModTime()}, nil
}

func (l *Local) Download(ctx context.Context, bucket, key, localPath string) error {
	return copyFile(l.path(bucket, key), localPath)
}

func (l *Local) Upload(ctx context.Context, localPath, bucket, key string) error {
	return copyFile(localPath, l.path(bucket, key))
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return pfx.Err(err)
	}
	defer in.Close()

	return writeLocal(dst, in)
}
