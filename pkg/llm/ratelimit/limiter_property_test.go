package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// Property: with rpm admissions/minute configured, N back-to-back Acquire
// calls never complete faster than (N-1) * (60/rpm), the minimum spacing
// spec §4.2 requires.
func TestProperty_Limiter_SpacesAcquireCallsByRPMInterval(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		rpm := rapid.IntRange(2000, 6000).Draw(rt, "rpm")
		calls := rapid.IntRange(2, 3).Draw(rt, "calls")

		limiter := New(rpm)
		require.NotNil(t, limiter)

		interval := time.Minute / time.Duration(rpm)
		start := time.Now()
		for i := 0; i < calls; i++ {
			require.NoError(t, limiter.Acquire(context.Background()))
		}
		elapsed := time.Since(start)

		minExpected := time.Duration(calls-1) * interval
		// Allow a small scheduling slop; this property only asserts a floor.
		assert.GreaterOrEqual(t, elapsed, minExpected-5*time.Millisecond)
	})
}

// Property: a nil Limiter (rpm <= 0) never blocks Acquire.
func TestProperty_Limiter_NilWhenRPMNotPositive(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		rpm := rapid.IntRange(-1000, 0).Draw(rt, "rpm")
		assert.Nil(t, New(rpm))
	})
}
