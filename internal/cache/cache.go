package cache

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable marks a transient failure of the backing key/value store.
// Read and write paths never return it; it is only logged.
var ErrUnavailable = errors.New("exact cache unavailable")

// ExactCache maps a fingerprint to an answer text. Put always restarts the
// TTL clock for the key; Get never extends it.
type ExactCache interface {
	Get(ctx context.Context, fingerprint string) (string, bool)
	Put(ctx context.Context, fingerprint, answer string, ttl time.Duration)
	Clear(ctx context.Context) (int, error)
	Len(ctx context.Context) (int, error)
}
