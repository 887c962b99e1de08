package ratelimit

import (
	"time"

	"github.com/kishore28kumar/pulss/engine/auth/credential"
)

// Window is a fixed time bucket used for rate limiting.
type Window string

const (
	WindowMinute Window = "minute"
	WindowHour   Window = "hour"
	WindowDay    Window = "day"
	WindowMonth  Window = "month"
)

// Windows lists every window type in evaluation order.
var Windows = []Window{WindowMinute, WindowHour, WindowDay, WindowMonth}

// Start returns the canonical floor of t to the window granularity. Counters
// are always keyed by this value; a new start implies a fresh counter, never a
// reset of the old one.
func (w Window) Start(t time.Time) time.Time {
	t = t.UTC()
	switch w {
	case WindowMinute:
		return t.Truncate(time.Minute)
	case WindowHour:
		return t.Truncate(time.Hour)
	case WindowDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case WindowMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return t
	}
}

// Next returns the boundary at which the window containing t rolls over.
func (w Window) Next(t time.Time) time.Time {
	start := w.Start(t)
	switch w {
	case WindowMinute:
		return start.Add(time.Minute)
	case WindowHour:
		return start.Add(time.Hour)
	case WindowDay:
		return start.AddDate(0, 0, 1)
	case WindowMonth:
		return start.AddDate(0, 1, 0)
	default:
		return start
	}
}

// RetryAfter returns the time remaining until the window's boundary.
func (w Window) RetryAfter(t time.Time) time.Duration {
	return w.Next(t).Sub(t.UTC())
}

// LimitFor extracts the configured budget for this window from the
// credential's limits. Zero means unlimited.
func (w Window) LimitFor(limits credential.WindowLimits) int64 {
	switch w {
	case WindowMinute:
		return int64(limits.PerMinute)
	case WindowHour:
		return int64(limits.PerHour)
	case WindowDay:
		return int64(limits.PerDay)
	case WindowMonth:
		return int64(limits.PerMonth)
	default:
		return 0
	}
}
