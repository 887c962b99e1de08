package ratelimit

import (
	"testing"
	"time"

	"github.com/kishore28kumar/pulss/engine/auth/credential"
	"github.com/stretchr/testify/assert"
)

func TestWindow_Start(t *testing.T) {
	at := time.Date(2026, time.March, 15, 14, 37, 42, 123456789, time.UTC)

	t.Run("Should floor to the minute", func(t *testing.T) {
		assert.Equal(t, time.Date(2026, time.March, 15, 14, 37, 0, 0, time.UTC), WindowMinute.Start(at))
	})

	t.Run("Should floor to the hour", func(t *testing.T) {
		assert.Equal(t, time.Date(2026, time.March, 15, 14, 0, 0, 0, time.UTC), WindowHour.Start(at))
	})

	t.Run("Should floor to midnight", func(t *testing.T) {
		assert.Equal(t, time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC), WindowDay.Start(at))
	})

	t.Run("Should floor to the first of the month", func(t *testing.T) {
		assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), WindowMonth.Start(at))
	})

	t.Run("Should normalize non-UTC times", func(t *testing.T) {
		loc := time.FixedZone("plus2", 2*3600)
		local := at.In(loc)
		assert.Equal(t, WindowHour.Start(at), WindowHour.Start(local))
	})
}

func TestWindow_Next(t *testing.T) {
	at := time.Date(2026, time.January, 31, 23, 59, 30, 0, time.UTC)

	t.Run("Should roll over at the boundary", func(t *testing.T) {
		assert.Equal(t, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC), WindowMinute.Next(at))
		assert.Equal(t, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC), WindowDay.Next(at))
		assert.Equal(t, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC), WindowMonth.Next(at))
	})

	t.Run("Should handle month lengths", func(t *testing.T) {
		feb := time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), WindowMonth.Next(feb))
	})
}

func TestWindow_RetryAfter(t *testing.T) {
	t.Run("Should report time until the boundary", func(t *testing.T) {
		at := time.Date(2026, time.March, 15, 14, 37, 42, 0, time.UTC)
		assert.Equal(t, 18*time.Second, WindowMinute.RetryAfter(at))
		assert.Equal(t, 22*time.Minute+18*time.Second, WindowHour.RetryAfter(at))
	})
}

func TestWindow_LimitFor(t *testing.T) {
	t.Run("Should pick the matching budget", func(t *testing.T) {
		limits := credential.WindowLimits{PerMinute: 60, PerHour: 3600, PerDay: 50000, PerMonth: 0}
		assert.Equal(t, int64(60), WindowMinute.LimitFor(limits))
		assert.Equal(t, int64(3600), WindowHour.LimitFor(limits))
		assert.Equal(t, int64(50000), WindowDay.LimitFor(limits))
		assert.Zero(t, WindowMonth.LimitFor(limits))
	})
}
