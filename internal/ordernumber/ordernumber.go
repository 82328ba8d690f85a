// Package ordernumber issues human-readable order numbers of the form PREFIX-YYYYMMDD-NNNN.
package ordernumber

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

const (
	maxCandidateAttempts = 5
	collisionDelay       = 50 * time.Millisecond
)

// Sequence hands out a strictly increasing per-day counter. It is optional.
type Sequence interface {
	Next(ctx context.Context, day string) (int64, error)
}

// Checker reports whether an order number is already taken.
type Checker interface {
	OrderNumberExists(ctx context.Context, number string) (bool, error)
}

// Generator produces order numbers. Generate never fails.
type Generator struct {
	prefix  string
	seq     Sequence
	checker Checker
	log     *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
	rand  func() int
}

func New(prefix string, seq Sequence, checker Checker, log *zap.Logger) *Generator {
	if prefix == "" {
		prefix = "3L"
	}
	return &Generator{
		prefix:  prefix,
		seq:     seq,
		checker: checker,
		log:     log,
		now:     time.Now,
		sleep:   sleepCtx,
		rand:    func() int { return 1000 + rand.Intn(9000) },
	}
}

// Generate returns a fresh order number.
//  1. the database sequence for today, when available
//  2. a random four-digit suffix confirmed unused, retried on collision
//  3. a suffix taken from the millisecond clock, returned unconditionally
func (g *Generator) Generate(ctx context.Context) string {
	now := g.now().UTC()
	day := now.Format("20060102")

	if g.seq != nil {
		n, err := g.seq.Next(ctx, day)
		if err == nil {
			return fmt.Sprintf("%s-%s-%04d", g.prefix, day, n)
		}
		g.log.Warn("order sequence unavailable, falling back to random suffix", zap.Error(err))
	}

	if g.checker != nil {
		for attempt := 1; attempt <= maxCandidateAttempts; attempt++ {
			candidate := fmt.Sprintf("%s-%s-%04d", g.prefix, day, g.rand())
			taken, err := g.checker.OrderNumberExists(ctx, candidate)
			if err == nil && !taken {
				return candidate
			}
			if err != nil {
				g.log.Warn("order number lookup failed", zap.String("candidate", candidate), zap.Error(err))
			}
			if attempt < maxCandidateAttempts {
				g.sleep(ctx, collisionDelay)
			}
		}
	}

	suffix := now.UnixMilli() % 1_000_000
	number := fmt.Sprintf("%s-%s-%06d", g.prefix, day, suffix)
	g.log.Warn("order number fallback used", zap.String("order_number", number))
	return number
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
