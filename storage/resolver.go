package storage

import (
	"context"
	"fmt"

	"github.com/carbocation/pfx"
	"github.com/carbocation/seqbot"
)

// Resolver turns object URLs into Locations, opening at most one Client per
// scheme. It is not safe for concurrent use.
type Resolver struct {
	MaxAttempts int

	clients map[string]Client
}

// Register installs a Client for a scheme, replacing whatever the Resolver
// would otherwise open. Mostly useful in tests.
func (r *Resolver) Register(scheme string, c Client) {
	if r.clients == nil {
		r.clients = make(map[string]Client)
	}
	r.clients[scheme] = c
}

func (r *Resolver) Resolve(ctx context.Context, raw string) (Location, error) {
	u, err := seqbot.ParseObjectURL(raw)
	if err != nil {
		return Location{}, err
	}

	c, err := r.client(ctx, u.Scheme)
	if err != nil {
		return Location{}, pfx.Err(fmt.Errorf("%s: %w", raw, err))
	}

	return Location{Client: c, URL: u}, nil
}

func (r *Resolver) client(ctx context.Context, scheme string) (Client, error) {
	if c, exists := r.clients[scheme]; exists {
		return c, nil
	}

	attempts := r.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	var c Client
	var err error
	switch scheme {
	case seqbot.SchemeS3:
		c, err = NewS3(ctx, attempts)
	case seqbot.SchemeGS:
		c, err = NewGCS(ctx, attempts)
	case seqbot.SchemeFile:
		c = &Local{}
	default:
		err = fmt.Errorf("no storage backend for scheme %q", scheme)
	}
	if err != nil {
		return nil, err
	}

	r.Register(scheme, c)

	return c, nil
}
