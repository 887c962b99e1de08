package ratelimit

import (
	"sync"
	"time"

	"github.com/kishore28kumar/pulss/engine/auth/credential"
	"github.com/kishore28kumar/pulss/engine/core"
	"github.com/kishore28kumar/pulss/pkg/logger"
	"golang.org/x/time/rate"
)

// GuardConfig holds the degraded-mode guard configuration.
type GuardConfig struct {
	// DefaultRequestsPerSecond applies when a credential has no minute budget.
	DefaultRequestsPerSecond float64
	// BurstCapacity per credential.
	BurstCapacity int
	// CleanupInterval between sweeps of idle limiters.
	CleanupInterval time.Duration
	// LimiterExpiry is how long an unused limiter is kept.
	LimiterExpiry time.Duration
}

// DefaultGuardConfig returns the default guard configuration.
func DefaultGuardConfig() *GuardConfig {
	return &GuardConfig{
		DefaultRequestsPerSecond: 10,
		BurstCapacity:            20,
		CleanupInterval:          time.Hour,
		LimiterExpiry:            24 * time.Hour,
	}
}

// guardEntry holds a token bucket and its last access time.
type guardEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// LocalGuard is the in-process token bucket consulted while the counter store
// is down. It trades precision for availability: per-process, no windows, no
// persistence. Idle entries are swept by a background loop; readers never
// block on the sweep.
type LocalGuard struct {
	mu       sync.RWMutex
	limiters map[string]*guardEntry
	config   *GuardConfig
	done     chan struct{}
}

// NewLocalGuard creates the guard and starts its sweep loop.
func NewLocalGuard(config *GuardConfig) *LocalGuard {
	if config == nil {
		config = DefaultGuardConfig()
	}
	g := &LocalGuard{
		limiters: make(map[string]*guardEntry),
		config:   config,
		done:     make(chan struct{}),
	}
	go g.cleanupLoop()
	return g
}

// Stop stops the sweep loop.
func (g *LocalGuard) Stop() {
	close(g.done)
}

// Allow reports whether the credential may proceed under the degraded-mode
// token bucket.
func (g *LocalGuard) Allow(credentialID core.ID, limits credential.WindowLimits) bool {
	return g.getLimiter(credentialID.String(), limits).Allow()
}

func (g *LocalGuard) getLimiter(key string, limits credential.WindowLimits) *rate.Limiter {
	g.mu.RLock()
	entry, exists := g.limiters[key]
	g.mu.RUnlock()
	if exists {
		g.mu.Lock()
		entry.lastAccess = time.Now()
		g.mu.Unlock()
		return entry.limiter
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	// Double-check pattern
	if entry, exists := g.limiters[key]; exists {
		entry.lastAccess = time.Now()
		return entry.limiter
	}
	rps := g.config.DefaultRequestsPerSecond
	if limits.PerMinute > 0 {
		rps = float64(limits.PerMinute) / 60.0
	}
	limiter := rate.NewLimiter(rate.Limit(rps), g.config.BurstCapacity)
	g.limiters[key] = &guardEntry{limiter: limiter, lastAccess: time.Now()}
	return limiter
}

// cleanupLoop periodically removes idle limiters.
func (g *LocalGuard) cleanupLoop() {
	ticker := time.NewTicker(g.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			g.cleanup()
		case <-g.done:
			return
		}
	}
}

func (g *LocalGuard) cleanup() {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := time.Now()
	expired := 0
	for key, entry := range g.limiters {
		if now.Sub(entry.lastAccess) > g.config.LimiterExpiry {
			delete(g.limiters, key)
			expired++
		}
	}
	if expired > 0 {
		logger.GetDefault().Debug("swept idle degraded-mode limiters",
			"expired_count", expired, "remaining_count", len(g.limiters))
	}
}
