// Package ratelimit implements the hub's per-user message admission control
// and outgoing-content validation policy.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a token-bucket admission gate for a single UserSession. Unlike
// golang.org/x/time/rate (used elsewhere in this module for IP-level
// connection-flood protection, see internal/wsconn), this bucket keeps a
// real-valued balance and stamps its own last-update time on every check.
// x/time/rate does not expose a check-and-consume-in-one-step API with a
// caller-visible fractional balance, so it cannot express this algorithm
// directly.
type Limiter struct {
	mu         sync.Mutex
	capacity   float64
	regenTime  time.Duration
	tokens     float64
	lastUpdate time.Time
}

// New creates a limiter starting at full capacity.
func New(capacity int, regenTime time.Duration) *Limiter {
	return &Limiter{
		capacity:   float64(capacity),
		regenTime:  regenTime,
		tokens:     float64(capacity),
		lastUpdate: time.Now(),
	}
}

// Allow adds accrued tokens since the last check, then admits iff the
// resulting balance is at least 1, decrementing by 1 on admission.
func (l *Limiter) Allow() bool {
	return l.AllowAt(time.Now())
}

// AllowAt is Allow with an explicit "now", used by tests to exercise the
// capacity/regen_time boundary behaviors deterministically.
func (l *Limiter) AllowAt(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.regenTime > 0 {
		elapsed := now.Sub(l.lastUpdate)
		accrued := float64(elapsed) / float64(l.regenTime)
		l.tokens += accrued
		if l.tokens > l.capacity {
			l.tokens = l.capacity
		}
	}
	l.lastUpdate = now

	if l.tokens >= 1 {
		l.tokens--
		return true
	}
	return false
}
