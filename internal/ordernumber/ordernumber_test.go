package ordernumber

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/3lprints/storefront/internal/database/dbtest"
)

var numberPattern = regexp.MustCompile(`^3L-\d{8}-\d{4,6}$`)

type MockSequence struct {
	NextFunc func(ctx context.Context, day string) (int64, error)
}

func (m *MockSequence) Next(ctx context.Context, day string) (int64, error) {
	return m.NextFunc(ctx, day)
}

type MockChecker struct {
	mu     sync.Mutex
	calls  int
	Exists func(number string) (bool, error)
}

func (m *MockChecker) OrderNumberExists(_ context.Context, number string) (bool, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.Exists(number)
}

func fixed(g *Generator) *Generator {
	g.now = func() time.Time { return time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC) }
	g.sleep = func(context.Context, time.Duration) {}
	return g
}

func TestGenerate_UsesSequence(t *testing.T) {
	seq := &MockSequence{NextFunc: func(_ context.Context, day string) (int64, error) {
		assert.Equal(t, "20260314", day)
		return 7, nil
	}}
	g := fixed(New("3L", seq, nil, zap.NewNop()))

	assert.Equal(t, "3L-20260314-0007", g.Generate(context.Background()))
}

func TestGenerate_RandomWhenSequenceFails(t *testing.T) {
	seq := &MockSequence{NextFunc: func(context.Context, string) (int64, error) { return 0, errors.New("down") }}
	checker := &MockChecker{Exists: func(string) (bool, error) { return false, nil }}
	g := fixed(New("3L", seq, checker, zap.NewNop()))
	g.rand = func() int { return 4242 }

	assert.Equal(t, "3L-20260314-4242", g.Generate(context.Background()))
	assert.Equal(t, 1, checker.calls)
}

func TestGenerate_RetriesCollisions(t *testing.T) {
	taken := map[string]bool{"3L-20260314-1111": true, "3L-20260314-2222": true}
	checker := &MockChecker{Exists: func(n string) (bool, error) { return taken[n], nil }}
	g := fixed(New("3L", nil, checker, zap.NewNop()))
	suffixes := []int{1111, 2222, 3333}
	i := 0
	g.rand = func() int { v := suffixes[i]; i++; return v }

	assert.Equal(t, "3L-20260314-3333", g.Generate(context.Background()))
	assert.Equal(t, 3, checker.calls)
}

func TestGenerate_FallbackAfterFiveFailures(t *testing.T) {
	checker := &MockChecker{Exists: func(string) (bool, error) { return false, errors.New("lookup failed") }}
	g := fixed(New("3L", nil, checker, zap.NewNop()))

	got := g.Generate(context.Background())
	assert.Equal(t, maxCandidateAttempts, checker.calls)
	assert.Regexp(t, numberPattern, got)
	assert.Len(t, got, len("3L-20260314-")+6)
}

func TestGenerate_NeverFailsWithoutDependencies(t *testing.T) {
	g := New("3L", nil, nil, zap.NewNop())
	assert.Regexp(t, numberPattern, g.Generate(context.Background()))
}

func TestDBSequence_ConcurrentUniqueness(t *testing.T) {
	db := dbtest.New(t)
	g := New("3L", NewDBSequence(db), nil, zap.NewNop())

	const n = 1000
	results := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = g.Generate(context.Background())
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, r := range results {
		require.Regexp(t, numberPattern, r)
		require.False(t, seen[r], "duplicate %s", r)
		seen[r] = true
	}
}
