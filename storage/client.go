// Package storage moves objects between local disk and the object stores the
// pipeline reads from and writes to.
package storage

import (
	"context"
	"errors"
	"path"
	"time"

	"github.com/carbocation/seqbot"
)

// ErrNotExist is returned by Stat when the object is absent.
var ErrNotExist = errors.New("object does not exist")

// DefaultMaxAttempts is the number of attempts each backend makes for a
// transfer before giving up.
const DefaultMaxAttempts = 25

type Object struct {
	Bucket       string
	Key          string
	Size         int64
	LastModified time.Time
}

// Client is the subset of object-store behavior the tools need. Keys are
// slash-separated regardless of backend.
type Client interface {
	List(ctx context.Context, bucket, prefix string) ([]Object, error)
	Stat(ctx context.Context, bucket, key string) (Object, error)
	Download(ctx context.Context, bucket, key, localPath string) error
	Upload(ctx context.Context, localPath, bucket, key string) error
}

// Location pairs a Client with a bucket and a key prefix.
type Location struct {
	Client Client
	URL    seqbot.ObjectURL
}

func (l Location) Bucket() string { return l.URL.Bucket }
func (l Location) Prefix() string { return l.URL.Key }

// Key returns the key for name beneath the location's prefix.
func (l Location) Key(name string) string {
	if l.URL.Key == "" {
		return name
	}
	return path.Join(l.URL.Key, name)
}

func (l Location) List(ctx context.Context) ([]Object, error) {
	return l.Client.List(ctx, l.URL.Bucket, l.URL.Key)
}

func (l Location) String() string {
	return l.URL.String()
}
