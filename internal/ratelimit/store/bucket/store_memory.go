package bucket

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/ratelimit/models"
)

// DefaultIdleTTL is how long an untouched bucket is kept before Sweep drops it.
const DefaultIdleTTL = 10 * time.Minute

// InMemoryBucketStore keeps one token bucket per key. It is process-local.
type InMemoryBucketStore struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
}

type tokenBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewInMemoryBucketStore creates a store refilling rps tokens per second up to
// burst. A non-positive rps means unlimited.
func NewInMemoryBucketStore(rps float64, burst int) *InMemoryBucketStore {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &InMemoryBucketStore{
		buckets: make(map[string]*tokenBucket),
		limit:   limit,
		burst:   burst,
		idleTTL: DefaultIdleTTL,
	}
}

// Allow takes one token from key's bucket at now.
func (s *InMemoryBucketStore) Allow(_ context.Context, key string, now time.Time) (*models.RateLimitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.getOrCreateBucket(key, now)
	b.lastSeen = now

	reservation := b.limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	if !reservation.OK() || delay > 0 {
		reservation.CancelAt(now)
		retryAfter := int(math.Ceil(delay.Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		return &models.RateLimitResult{
			Allowed:    false,
			Limit:      s.burst,
			Remaining:  0,
			ResetAt:    now.Add(time.Duration(retryAfter) * time.Second),
			RetryAfter: retryAfter,
		}, nil
	}

	remaining := int(b.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return &models.RateLimitResult{
		Allowed:   true,
		Limit:     s.burst,
		Remaining: remaining,
		ResetAt:   now.Add(s.refillTime(s.burst - remaining)),
	}, nil
}

// Reset drops the bucket for key.
func (s *InMemoryBucketStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, key)
	return nil
}

// Sweep drops buckets idle for longer than the idle TTL and returns how many
// were removed.
func (s *InMemoryBucketStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, b := range s.buckets {
		if now.Sub(b.lastSeen) > s.idleTTL {
			delete(s.buckets, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (s *InMemoryBucketStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

func (s *InMemoryBucketStore) refillTime(tokens int) time.Duration {
	if s.limit == rate.Inf || tokens <= 0 {
		return 0
	}
	return time.Duration(float64(tokens) / float64(s.limit) * float64(time.Second))
}

// getOrCreateBucket returns an existing bucket or creates a new one.
// Must be called while holding s.mu lock.
func (s *InMemoryBucketStore) getOrCreateBucket(key string, now time.Time) *tokenBucket {
	if b := s.buckets[key]; b != nil {
		return b
	}
	b := &tokenBucket{limiter: rate.NewLimiter(s.limit, s.burst), lastSeen: now}
	s.buckets[key] = b
	return b
}
