package cache

import (
	"context"
	"sync"
	"time"

	"github.com/locoganga/storefront/internal/domain/shared"
)

const cleanupInterval = 5 * time.Minute

// InMemoryIdempotencyStore holds webhook event claims in a process-local map.
// Suitable for single-instance deployments and tests; a second instance would
// not see its claims, use Redis there.
type InMemoryIdempotencyStore struct {
	mu        sync.RWMutex
	claims    map[string]time.Time // event ID -> claim expiry
	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates the store and starts its expiry sweeper
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		claims: make(map[string]time.Time),
		stop:   make(chan struct{}),
	}

	s.wg.Add(1)
	go s.sweep()

	return s
}

// MarkProcessed claims an event ID for the TTL window. A live claim loses;
// an expired claim is taken over.
func (s *InMemoryIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expiry, held := s.claims[eventID]; held && time.Now().Before(expiry) {
		return false, nil
	}
	s.claims[eventID] = time.Now().Add(ttl)
	return true, nil
}

// IsProcessed reports whether the event ID holds a live claim
func (s *InMemoryIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiry, held := s.claims[eventID]
	return held && time.Now().Before(expiry), nil
}

// Close stops the sweeper. Safe to call more than once.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
	})
	return nil
}

// Size returns the number of claims, expired ones included
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.claims)
}

func (s *InMemoryIdempotencyStore) sweep() {
	defer s.wg.Done()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryIdempotencyStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for eventID, expiry := range s.claims {
		if now.After(expiry) {
			delete(s.claims, eventID)
		}
	}
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
