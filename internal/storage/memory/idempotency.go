package memory

import (
	"context"
	"encoding/json"
	"sync"

	"workforce/internal/transport/http/middleware"
)

type idempotencyKey struct {
	userID, endpoint, key string
}

type idempotencyEntry struct {
	hash     string
	response json.RawMessage
}

// IdempotencyStore is the in-process counterpart of
// middleware.PGIdempotencyStore.
type IdempotencyStore struct {
	mu      sync.Mutex
	entries map[idempotencyKey]idempotencyEntry
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{entries: map[idempotencyKey]idempotencyEntry{}}
}

func (s *IdempotencyStore) Check(_ context.Context, userID, endpoint, key, requestHash string) (json.RawMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[idempotencyKey{userID, endpoint, key}]
	if !ok {
		return nil, false, nil
	}
	if entry.hash != requestHash {
		return nil, false, middleware.ErrIdempotencyConflict
	}
	return append(json.RawMessage(nil), entry.response...), true, nil
}

func (s *IdempotencyStore) Save(_ context.Context, userID, endpoint, key, requestHash string, response json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := idempotencyKey{userID, endpoint, key}
	if entry, ok := s.entries[k]; ok && entry.hash != requestHash {
		return middleware.ErrIdempotencyConflict
	}
	s.entries[k] = idempotencyEntry{hash: requestHash, response: append(json.RawMessage(nil), response...)}
	return nil
}
