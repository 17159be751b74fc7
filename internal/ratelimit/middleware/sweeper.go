package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/ratelimit/metrics"
)

// Sweepable is a bucket store that can drop idle keys.
type Sweepable interface {
	Sweep(now time.Time) int
	Len() int
}

// RunSweeper periodically evicts idle buckets until ctx is done.
func RunSweeper(ctx context.Context, store Sweepable, interval time.Duration, logger *slog.Logger, m *metrics.Metrics) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if removed := store.Sweep(now); removed > 0 {
				logger.Debug("evicted idle rate limit buckets", "removed", removed)
			}
			m.SetTrackedIPs(store.Len())
		}
	}
}
