package receipt

import (
	"context"
	"sync"
	"time"

	"github.com/YASH-YADAV-dynamo/solana-animal-x402/pkg/platform/sentinel"
)

// InMemoryStore is a process-local Store for single-instance deployments and tests.
type InMemoryStore struct {
	mu       sync.Mutex
	redeemed map[string]time.Time
	now      func() time.Time
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		redeemed: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Redeem marks id as used until ttl elapses.
func (s *InMemoryStore) Redeem(_ context.Context, id string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictExpired(now)
	if _, used := s.redeemed[id]; used {
		return sentinel.ErrAlreadyUsed
	}
	s.redeemed[id] = now.Add(ttl)
	return nil
}

// Len returns the number of tracked receipts.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.redeemed)
}

func (s *InMemoryStore) evictExpired(now time.Time) {
	for id, until := range s.redeemed {
		if !now.Before(until) {
			delete(s.redeemed, id)
		}
	}
}
