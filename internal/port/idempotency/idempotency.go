package idempotency

import (
	"context"
	"time"
)

// Response is a recorded HTTP response replayed for a repeated
// Idempotency-Key. A zero Status marks a reservation whose request is still
// in flight.
type Response struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

func (r Response) Pending() bool { return r.Status == 0 }

// Store keeps responses keyed by client-supplied idempotency keys.
type Store interface {
	// Get returns the completed response for key, if any.
	Get(ctx context.Context, key string) (Response, bool, error)

	// Reserve claims key for one in-flight request until ttl elapses or Put
	// completes it. When the key is already taken it returns false with what
	// is stored, which may be a pending reservation.
	Reserve(ctx context.Context, key string, ttl time.Duration) (Response, bool, error)

	// Put records the response for key, completing a reservation. A completed,
	// unexpired response is never overwritten.
	Put(ctx context.Context, key string, resp Response, ttl time.Duration) error

	// Release drops a pending reservation so the request can be retried.
	Release(ctx context.Context, key string) error
}
