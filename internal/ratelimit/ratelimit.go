// Package ratelimit is a process-local fixed-window request limiter.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Common windows and ceilings per operation.
const (
	Window = time.Minute

	LimitCreateOrder         = 10
	LimitCreateIntent        = 20
	LimitVerifyPayment       = 30
	LimitUpdatePaymentStatus = 20
	LimitAdminLogin          = 5
	LimitSubmission          = 10
)

type entry struct {
	count   int
	resetAt time.Time
}

// Limiter counts requests per key inside fixed windows. The zero value is not usable; call New.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

func New() *Limiter {
	return &Limiter{entries: make(map[string]*entry), now: time.Now}
}

// Allow records a request for key and reports whether it fits in the current window.
func (l *Limiter) Allow(key string, max int, window time.Duration) bool {
	ok, _ := l.Decide(key, max, window)
	return ok
}

// Decide is Allow plus the time the current window resets.
func (l *Limiter) Decide(key string, max int, window time.Duration) (bool, time.Time) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || !now.Before(e.resetAt) {
		e = &entry{count: 0, resetAt: now.Add(window)}
		l.entries[key] = e
	}
	if e.count >= max {
		return false, e.resetAt
	}
	e.count++
	return true, e.resetAt
}

// Sweep drops entries whose window has passed.
func (l *Limiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for k, e := range l.entries {
		if !now.Before(e.resetAt) {
			delete(l.entries, k)
			removed++
		}
	}
	return removed
}

// Len is the number of live keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Run sweeps every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}
