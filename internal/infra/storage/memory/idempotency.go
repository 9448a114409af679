package memory

import (
	"context"
	"sync"
	"time"

	"github.com/andresg0412/waiwahost-plataforma/internal/app/middleware"
)

// IdempotencyStore keeps replayable command results. Records older than TTL
// are treated as absent.
type IdempotencyStore struct {
	mu    sync.RWMutex
	items map[string]middleware.IdempotencyRecord
	TTL   time.Duration
	now   func() time.Time
}

func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{items: make(map[string]middleware.IdempotencyRecord), TTL: ttl, now: time.Now}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.items[key]
	if !ok || s.expired(rec) {
		return middleware.IdempotencyRecord{}, false, nil
	}
	return rec, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[rec.Key] = rec
	return nil
}

// Prune drops expired records and reports how many were removed.
func (s *IdempotencyStore) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, rec := range s.items {
		if s.expired(rec) {
			delete(s.items, key)
			n++
		}
	}
	return n
}

func (s *IdempotencyStore) expired(rec middleware.IdempotencyRecord) bool {
	return s.TTL > 0 && s.now().Sub(rec.OccurredAt) > s.TTL
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
