package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/carbocation/pfx"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
)

// ErrTimeout is returned when a polled condition does not come true in time.
var ErrTimeout = errors.New("timed out")

var errNotYet = errors.New("not yet")

// DownloadAll fetches keys[i] from bucket into paths[i], with at most
// concurrency transfers in flight. The first failure cancels the rest.
func DownloadAll(ctx context.Context, c Client, bucket string, keys, paths []string, concurrency int) error {
	if len(keys) != len(paths) {
		return fmt.Errorf("DownloadAll: %d keys but %d destination paths", len(keys), len(paths))
	}

	if concurrency < 1 {
		concurrency = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i := range keys {
		key, dst := keys[i], paths[i]
		g.Go(func() error {
			return c.Download(ctx, bucket, key, dst)
		})
	}

	return g.Wait()
}

// Poll calls check with exponential backoff until it reports true, returns an
// error, or timeout elapses. A non-positive timeout checks exactly once.
func Poll(ctx context.Context, timeout time.Duration, check func(context.Context) (bool, error)) error {
	if timeout <= 0 {
		ok, err := check(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTimeout
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = timeout

	err := backoff.Retry(func() error {
		ok, err := check(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return errNotYet
		}
		return nil
	}, backoff.WithContext(b, ctx))

	if errors.Is(err, errNotYet) {
		return fmt.Errorf("after %s: %w", timeout, ErrTimeout)
	}

	return err
}

// WaitForObject polls Stat until the object is visible.
func WaitForObject(ctx context.Context, c Client, bucket, key string, timeout time.Duration) (Object, error) {
	var obj Object

	err := Poll(ctx, timeout, func(ctx context.Context) (bool, error) {
		var err error
		obj, err = c.Stat(ctx, bucket, key)
		if errors.Is(err, ErrNotExist) {
			return false, nil
		}
		return err == nil, err
	})
	if err != nil {
		return Object{}, pfx.Err(fmt.Errorf("%s: %w", key, err))
	}

	return obj, nil
}

// WaitForFile polls until a local file exists and its size has stopped
// changing between two consecutive checks.
func WaitForFile(ctx context.Context, path string, timeout time.Duration) error {
	lastSize := int64(-1)

	err := Poll(ctx, timeout, func(ctx context.Context) (bool, error) {
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		} else if err != nil {
			return false, err
		}

		if info.Size() == lastSize {
			return true, nil
		}
		lastSize = info.Size()

		return false, nil
	})
	if err != nil {
		return pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return nil
}
