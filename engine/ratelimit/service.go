package ratelimit

import (
	"context"
	"time"

	"github.com/kishore28kumar/pulss/engine/auth/credential"
	"github.com/kishore28kumar/pulss/engine/core"
	"github.com/kishore28kumar/pulss/pkg/logger"
)

// Result describes a limiter decision.
type Result struct {
	Allowed bool
	// Degraded marks decisions taken while the counter store was unavailable.
	Degraded bool
	// FailedWindows lists the windows whose budget was exhausted.
	FailedWindows []Window
	// RetryAfter is the time until every failed window has rolled over.
	RetryAfter time.Duration
	// Limits and Remaining are keyed by window for response headers; only
	// windows with a configured budget appear.
	Limits    map[Window]int64
	Remaining map[Window]int64
}

// Limiter decides admit/reject across independent time windows. All windows
// must pass before any counter is incremented: a request that fails one
// window's check must not partially increment the others.
//
// When the counter store is unavailable the limiter fails open, guarded by an
// in-process token bucket so a store outage does not remove throttling entirely.
type Limiter struct {
	store    CounterStore
	fallback *LocalGuard
	failOpen bool
}

// NewLimiter creates a limiter over the given counter store.
func NewLimiter(store CounterStore, fallback *LocalGuard, failOpen bool) *Limiter {
	return &Limiter{store: store, fallback: fallback, failOpen: failOpen}
}

// Allow evaluates every configured window for the credential and, only if all
// pass, atomically increments all window counters.
func (l *Limiter) Allow(
	ctx context.Context,
	credentialID core.ID,
	limits credential.WindowLimits,
) (*Result, error) {
	now := time.Now().UTC()
	return l.allowAt(ctx, credentialID, limits, now)
}

func (l *Limiter) allowAt(
	ctx context.Context,
	credentialID core.ID,
	limits credential.WindowLimits,
	now time.Time,
) (*Result, error) {
	log := logger.FromContext(ctx)
	counts, err := l.store.Counts(ctx, credentialID, now)
	if err != nil {
		return l.degraded(ctx, credentialID, limits, err), nil
	}
	result := &Result{
		Allowed:   true,
		Limits:    make(map[Window]int64, len(Windows)),
		Remaining: make(map[Window]int64, len(Windows)),
	}
	for _, w := range Windows {
		limit := w.LimitFor(limits)
		if limit <= 0 {
			continue
		}
		result.Limits[w] = limit
		count := counts[w]
		if count >= limit {
			result.Allowed = false
			result.FailedWindows = append(result.FailedWindows, w)
			result.Remaining[w] = 0
			if ra := w.RetryAfter(now); ra > result.RetryAfter {
				result.RetryAfter = ra
			}
			continue
		}
		result.Remaining[w] = limit - count - 1
	}
	if !result.Allowed {
		return result, nil
	}
	if err := l.store.IncrementAll(ctx, credentialID, now); err != nil {
		// The admit decision stands; a missed increment is tolerable,
		// a blocked request because of a counter-store error is not.
		log.Error("rate counter increment failed, admitting",
			"credential_id", credentialID, "error", core.RedactError(err))
		result.Degraded = true
	}
	return result, nil
}

// degraded handles counter-store outages: admit (fail open) behind the local
// token-bucket guard, or reject everything when fail-open is disabled.
func (l *Limiter) degraded(
	ctx context.Context,
	credentialID core.ID,
	limits credential.WindowLimits,
	cause error,
) *Result {
	log := logger.FromContext(ctx)
	log.Error("rate counter store unavailable",
		"credential_id", credentialID, "error", core.RedactError(cause))
	if !l.failOpen {
		return &Result{Allowed: false, Degraded: true, RetryAfter: time.Minute}
	}
	allowed := true
	if l.fallback != nil {
		allowed = l.fallback.Allow(credentialID, limits)
	}
	return &Result{Allowed: allowed, Degraded: true}
}
