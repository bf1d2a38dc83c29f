// Package ratelimit implements the single-bucket, RPM-parameterized
// admission limiter of spec §4.2.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter spaces successive Acquire calls by 60/RPM, serving FIFO when
// multiple callers are waiting (golang.org/x/time/rate.Limiter.Wait queues
// reservations in arrival order). It wraps golang.org/x/time/rate, the
// library the wider example pack reaches for when it needs RPM-style
// admission control.
type Limiter struct {
	limiter *rate.Limiter
}

// New builds a Limiter admitting rpm requests per minute. rpm <= 0 produces
// a nil Limiter (Acquire never blocks), matching "If rpm is unset or ≤0,
// the limiter is absent".
func New(rpm int) *Limiter {
	if rpm <= 0 {
		return nil
	}
	interval := time.Minute / time.Duration(rpm)
	// Burst of 1: the bucket starts full so the first Acquire returns
	// immediately, and every later Acquire is spaced by interval from the
	// previous admission.
	return &Limiter{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Acquire blocks until the next admission token is available, or ctx is
// cancelled.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}
