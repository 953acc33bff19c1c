package memory

import (
	"context"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	portidem "github.com/alanyang/promptledger/internal/port/idempotency"
)

const idempotencyCleanupInterval = 10 * time.Minute

// IdempotencyStore keeps replayable responses in process memory. Reservations
// rely on go-cache's Add, which fails while an unexpired entry exists.
type IdempotencyStore struct {
	cache *gocache.Cache
}

func NewIdempotencyStore(defaultTTL time.Duration) *IdempotencyStore {
	return &IdempotencyStore{cache: gocache.New(defaultTTL, idempotencyCleanupInterval)}
}

func (s *IdempotencyStore) Get(_ context.Context, key string) (portidem.Response, bool, error) {
	resp, found := s.lookup(key)
	if !found || resp.Pending() {
		return portidem.Response{}, false, nil
	}
	return resp, true, nil
}

func (s *IdempotencyStore) Reserve(_ context.Context, key string, ttl time.Duration) (portidem.Response, bool, error) {
	for {
		if err := s.cache.Add(key, portidem.Response{}, ttl); err == nil {
			return portidem.Response{}, true, nil
		}
		// The holder may expire between Add and Get; try to claim again.
		if resp, found := s.lookup(key); found {
			return resp, false, nil
		}
	}
}

func (s *IdempotencyStore) Put(_ context.Context, key string, resp portidem.Response, ttl time.Duration) error {
	if existing, found := s.lookup(key); found && !existing.Pending() {
		return nil
	}
	s.cache.Set(key, resp, ttl)
	return nil
}

func (s *IdempotencyStore) Release(_ context.Context, key string) error {
	if existing, found := s.lookup(key); found && existing.Pending() {
		s.cache.Delete(key)
	}
	return nil
}

func (s *IdempotencyStore) lookup(key string) (portidem.Response, bool) {
	value, found := s.cache.Get(key)
	if !found {
		return portidem.Response{}, false
	}
	resp, ok := value.(portidem.Response)
	if !ok {
		slog.Error("idempotency cache holds unexpected type", "key", key)
		return portidem.Response{}, false
	}
	return resp, true
}
