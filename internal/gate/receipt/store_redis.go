package receipt

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/YASH-YADAV-dynamo/solana-animal-x402/pkg/platform/sentinel"
)

// Redis key prefix for redeemed receipts
const redeemedKeyPrefix = "x402:receipt:"

// RedisStore is a Redis-backed Store shared by every instance behind a load balancer.
type RedisStore struct {
	client           *redis.Client
	redeemDurationMs prometheus.Histogram
}

// NewRedisStore constructs a Redis-backed receipt store. Redemption latency is
// registered with reg.
func NewRedisStore(client *redis.Client, reg prometheus.Registerer) *RedisStore {
	return &RedisStore{
		client: client,
		redeemDurationMs: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "animal_receipt_redeem_duration_ms",
			Help:    "Latency of receipt redemption in Redis in milliseconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
		}),
	}
}

// Redeem uses SET NX with expiry so only the first redemption wins.
func (s *RedisStore) Redeem(ctx context.Context, id string, ttl time.Duration) error {
	start := time.Now()
	defer func() {
		s.redeemDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	ok, err := s.client.SetNX(ctx, redeemedKeyPrefix+id, "1", ttl).Result()
	if err != nil {
		return fmt.Errorf("redeem receipt: %w: %v", sentinel.ErrUnavailable, err)
	}
	if !ok {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}
