package outbox

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/3lprints/storefront/internal/models"
)

const (
	baseRetryDelay = 2 * time.Second
	maxRetryDelay  = 10 * time.Minute
	defaultLease   = 2 * time.Minute
)

// Store is the queue the relay drains.
type Store interface {
	ClaimDue(ctx context.Context, at time.Time, limit int, lease time.Duration) ([]models.OutboxTask, error)
	MarkDone(ctx context.Context, id string) error
	Retry(ctx context.Context, id string, cause error, next time.Time) error
	MarkFailed(ctx context.Context, id string, cause error) error
}

// Relay periodically claims due tasks and hands them to an Executor.
// A failed task is retried with exponential backoff until maxAttempts, then parked as failed.
type Relay struct {
	store       Store
	exec        Executor
	log         *zap.Logger
	interval    time.Duration
	batchSize   int
	maxAttempts int
	lease       time.Duration

	now  func() time.Time
	wake chan struct{}
}

func NewRelay(store Store, exec Executor, log *zap.Logger, interval time.Duration, batchSize, maxAttempts int) *Relay {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 20
	}
	if maxAttempts <= 0 {
		maxAttempts = 8
	}
	return &Relay{
		store:       store,
		exec:        exec,
		log:         log,
		interval:    interval,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
		lease:       defaultLease,
		now:         time.Now,
		wake:        make(chan struct{}, 1),
	}
}

// Notify asks the relay to poll now instead of waiting for the next tick. It never blocks.
func (r *Relay) Notify() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("outbox relay started", zap.Duration("interval", r.interval), zap.Int("batch_size", r.batchSize))
	for {
		if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			r.log.Error("outbox poll failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			r.log.Info("outbox relay stopped")
			return
		case <-ticker.C:
		case <-r.wake:
		}
	}
}

// RunOnce claims one batch and processes it. It returns how many tasks completed.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	tasks, err := r.store.ClaimDue(ctx, r.now(), r.batchSize, r.lease)
	if err != nil {
		return 0, err
	}

	done := 0
	for _, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		if r.process(ctx, task) {
			done++
		}
	}
	return done, nil
}

func (r *Relay) process(ctx context.Context, task models.OutboxTask) bool {
	log := r.log.With(zap.String("task_id", task.ID), zap.String("kind", task.Kind), zap.Int("attempt", task.Attempts))

	err := r.exec.Execute(ctx, task)
	if err == nil {
		if err := r.store.MarkDone(ctx, task.ID); err != nil {
			log.Error("could not mark task done", zap.Error(err))
			return false
		}
		log.Debug("task completed")
		return true
	}

	Settle(ctx, r.store, log, task, err, r.maxAttempts, r.now())
	return false
}

// Settle records a failed attempt: the task is parked once it used maxAttempts or its kind is
// unknown, otherwise it is rescheduled with backoff. Failures never propagate to the order.
func Settle(ctx context.Context, store Store, log *zap.Logger, task models.OutboxTask, cause error, maxAttempts int, now time.Time) {
	if task.Attempts >= maxAttempts || errors.Is(cause, ErrUnknownKind) {
		log.Error("task failed permanently", zap.Error(cause))
		if err := store.MarkFailed(ctx, task.ID, cause); err != nil {
			log.Error("could not park failed task", zap.Error(err))
		}
		return
	}

	next := now.Add(Backoff(task.Attempts))
	log.Warn("task failed, will retry", zap.Time("next_attempt", next), zap.Error(cause))
	if err := store.Retry(ctx, task.ID, cause, next); err != nil {
		log.Error("could not reschedule task", zap.Error(err))
	}
}

// Backoff returns the delay after the given (1-based) attempt: 2s, 4s, 8s ... capped at 10m.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := baseRetryDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return d
}
