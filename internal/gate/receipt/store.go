// Package receipt issues and redeems single-use payment receipts.
//
// After the gate settles a payment it hands the caller a signed receipt.
// The receipt lets exactly one follow-up request through, so the results view
// can fetch the paid payload after the browser redirect without paying twice.
package receipt

import (
	"context"
	"time"
)

// Store records redeemed receipt IDs. Redeem must be atomic: of any number of
// concurrent calls for the same ID, exactly one succeeds and the rest return
// sentinel.ErrAlreadyUsed.
type Store interface {
	Redeem(ctx context.Context, id string, ttl time.Duration) error
}
