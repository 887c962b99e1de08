package ratelimit

import (
	"context"
	"time"

	"github.com/kishore28kumar/pulss/engine/core"
)

// CounterStore is the injected key-value store behind the limiter. It is
// deliberately not a process-wide map so it can be swapped for a distributed
// store under load.
//
// Increments must be atomic at the store level (single upsert/increment, never
// application-side read-modify-write): concurrent requests for the same
// (credential, window, start) must both be reflected.
type CounterStore interface {
	// Counts reads the current counts for every window of the credential at
	// the given instant. Absent counters read as 0.
	Counts(ctx context.Context, credentialID core.ID, now time.Time) (map[Window]int64, error)
	// IncrementAll increments every window counter for the credential in one
	// indivisible operation. A request that was admitted increments all
	// windows or none.
	IncrementAll(ctx context.Context, credentialID core.ID, now time.Time) error
}
