package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLimiter() (*Limiter, *clock) {
	c := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := New()
	l.now = c.Now
	return l, c
}

func TestAllow_Ceiling(t *testing.T) {
	l, _ := newTestLimiter()

	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow("1.2.3.4:create-order", 10, time.Minute), "request %d", i+1)
	}
	assert.False(t, l.Allow("1.2.3.4:create-order", 10, time.Minute))
	assert.True(t, l.Allow("5.6.7.8:create-order", 10, time.Minute))
}

func TestAllow_WindowReset(t *testing.T) {
	l, c := newTestLimiter()

	assert.True(t, l.Allow("k", 1, time.Minute))
	assert.False(t, l.Allow("k", 1, time.Minute))

	c.Advance(time.Minute)
	assert.True(t, l.Allow("k", 1, time.Minute))
}

func TestDecide_ReturnsReset(t *testing.T) {
	l, c := newTestLimiter()
	start := c.Now()

	ok, reset := l.Decide("k", 2, time.Minute)
	assert.True(t, ok)
	assert.Equal(t, start.Add(time.Minute), reset)

	c.Advance(10 * time.Second)
	l.Allow("k", 2, time.Minute)
	ok, reset = l.Decide("k", 2, time.Minute)
	assert.False(t, ok)
	assert.Equal(t, start.Add(time.Minute), reset)
}

func TestAllow_ConcurrentNeverExceedsMax(t *testing.T) {
	l := New()
	var allowed int64
	var wg sync.WaitGroup

	for i := 0; i < 500; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("hot", 30, time.Minute) {
				atomic.AddInt64(&allowed, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(30), allowed)
}

func TestSweep(t *testing.T) {
	l, c := newTestLimiter()
	l.Allow("a", 5, time.Minute)
	l.Allow("b", 5, 2*time.Minute)

	c.Advance(90 * time.Second)
	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Len())
}
