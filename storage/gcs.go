package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	gcs "cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCS is a Client backed by Google Cloud Storage, using application default
// credentials unless options say otherwise.
type GCS struct {
	client      *gcs.Client
	maxAttempts int
}

func NewGCS(ctx context.Context, maxAttempts int, opts ...option.ClientOption) (*GCS, error) {
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, pfx.Err(err)
	}

	return &GCS{client: client, maxAttempts: maxAttempts}, nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}

func (g *GCS) handle(bucket, key string) *gcs.ObjectHandle {
	handle := g.client.Bucket(bucket).Object(key)
	if g.maxAttempts > 0 {
		handle = handle.Retryer(gcs.WithMaxAttempts(g.maxAttempts), gcs.WithPolicy(gcs.RetryAlways))
	}

	return handle
}

func (g *GCS) List(ctx context.Context, bucket, prefix string) ([]Object, error) {
	var out []Object

	it := g.client.Bucket(bucket).Objects(ctx, &gcs.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		} else if err != nil {
			return nil, pfx.Err(fmt.Errorf("gs://%s/%s: %w", bucket, prefix, err))
		}

		// Skip the placeholder "directory" objects some tools create
		if attrs.Name == "" {
			continue
		}

		out = append(out, Object{
			Bucket:       bucket,
			Key:          attrs.Name,
			Size:         attrs.Size,
			LastModified: attrs.Updated,
		})
	}

	return out, nil
}

func (g *GCS) Stat(ctx context.Context, bucket, key string) (Object, error) {
	attrs, err := g.handle(bucket, key).Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return Object{}, fmt.Errorf("gs://%s/%s: %w", bucket, key, ErrNotExist)
	} else if err != nil {
		return Object{}, pfx.Err(err)
	}

	return Object{Bucket: bucket, Key: key, Size: attrs.Size, LastModified: attrs.Updated}, nil
}

func (g *GCS) Download(ctx context.Context, bucket, key, localPath string) error {
	rdr, err := g.handle(bucket, key).NewReader(ctx)
	if err != nil {
		return pfx.Err(fmt.Errorf("gs://%s/%s: %w", bucket, key, err))
	}
	defer rdr.Close()

	return writeLocal(localPath, rdr)
}

func (g *GCS) Upload(ctx context.Context, localPath, bucket, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	// Cancelling the context is the only way to abandon a GCS write.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := g.handle(bucket, key).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		cancel()
		w.Close()
		return pfx.Err(fmt.Errorf("gs://%s/%s: %w", bucket, key, err))
	}

	if err := w.Close(); err != nil {
		return pfx.Err(fmt.Errorf("gs://%s/%s: %w", bucket, key, err))
	}

	return nil
}

// writeLocal copies r into a freshly created file, removing it if the copy
// fails partway.
func writeLocal(localPath string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return pfx.Err(err)
	}

	f, err := os.OpenFile(localPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pfx.Err(err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(localPath)
		return pfx.Err(err)
	}

	return f.Close()
}
