package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/3lprints/storefront/internal/apperrors"
	"github.com/3lprints/storefront/internal/database"
	"github.com/3lprints/storefront/internal/models"
)

const outboxColumns = `id, kind, payload, status, attempts, last_error, available_at, locked_until, created_at, updated_at`

// OutboxRepository persists phase-2 tasks.
type OutboxRepository struct {
	db *database.DB
}

// Enqueue writes a pending task. Pass the order's transaction so the task commits with it.
func (r *OutboxRepository) Enqueue(ctx context.Context, q database.Querier, kind string, payload any) (*models.OutboxTask, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	ts := now()
	t := &models.OutboxTask{
		ID:          uuid.NewString(),
		Kind:        kind,
		Payload:     models.JSON[json.RawMessage]{V: raw},
		Status:      models.TaskPending,
		AvailableAt: ts.UnixMilli(),
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}

	_, err = database.ExecuteOn(ctx, r.db, q, "enqueue task", func(ctx context.Context, q database.Querier) (sql.Result, error) {
		return sqlx.NamedExecContext(ctx, q, `
			INSERT INTO outbox_tasks (id, kind, payload, status, attempts, last_error, available_at, locked_until, created_at, updated_at)
			VALUES (:id, :kind, :payload, :status, :attempts, :last_error, :available_at, :locked_until, :created_at, :updated_at)`, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ClaimDue leases up to limit due tasks for lease. Tasks whose lease expired while processing
// are due again. A task is claimed by exactly one caller.
func (r *OutboxRepository) ClaimDue(ctx context.Context, at time.Time, limit int, lease time.Duration) ([]models.OutboxTask, error) {
	nowMs := at.UnixMilli()
	candidates, err := database.Execute(ctx, r.db, "select due tasks", func(ctx context.Context, q database.Querier) ([]models.OutboxTask, error) {
		var out []models.OutboxTask
		err := q.SelectContext(ctx, &out, q.Rebind("SELECT "+outboxColumns+` FROM outbox_tasks
			WHERE (status = ? AND available_at <= ?) OR (status = ? AND locked_until < ?)
			ORDER BY available_at LIMIT ?`),
			models.TaskPending, nowMs, models.TaskProcessing, nowMs, limit)
		return out, err
	})
	if err != nil {
		return nil, err
	}

	claimed := make([]models.OutboxTask, 0, len(candidates))
	for _, t := range candidates {
		until := nowMs + lease.Milliseconds()
		ok, err := database.Execute(ctx, r.db, "claim task", func(ctx context.Context, q database.Querier) (bool, error) {
			res, err := q.ExecContext(ctx, q.Rebind(`
				UPDATE outbox_tasks SET status = ?, locked_until = ?, attempts = attempts + 1, updated_at = ?
				WHERE id = ? AND status = ? AND locked_until = ?`),
				models.TaskProcessing, until, at.UTC(), t.ID, t.Status, t.LockedUntil)
			if err != nil {
				return false, err
			}
			n, err := res.RowsAffected()
			return n == 1, err
		})
		if err != nil {
			return claimed, err
		}
		if ok {
			t.Status = models.TaskProcessing
			t.LockedUntil = until
			t.Attempts++
			claimed = append(claimed, t)
		}
	}
	return claimed, nil
}

// Get returns a task by id.
func (r *OutboxRepository) Get(ctx context.Context, id string) (*models.OutboxTask, error) {
	t, err := database.Execute(ctx, r.db, "get task", func(ctx context.Context, q database.Querier) (*models.OutboxTask, error) {
		var t models.OutboxTask
		err := q.GetContext(ctx, &t, q.Rebind("SELECT "+outboxColumns+" FROM outbox_tasks WHERE id = ?"), id)
		return &t, err
	})
	if apperrors.IsNoData(err) {
		return nil, apperrors.NotFound("task", id)
	}
	return t, err
}

// MarkDone completes a task still held by the caller's claim. A task that was already
// rescheduled or parked meanwhile is left as is.
func (r *OutboxRepository) MarkDone(ctx context.Context, id string) error {
	err := r.setStatus(ctx, "complete task", id, models.TaskDone, nil, 0, models.TaskProcessing)
	if apperrors.IsKind(err, apperrors.KindNotFound) {
		return nil
	}
	return err
}

// Retry puts a task back in the queue, available again at next.
func (r *OutboxRepository) Retry(ctx context.Context, id string, cause error, next time.Time) error {
	msg := cause.Error()
	return r.setStatus(ctx, "retry task", id, models.TaskPending, &msg, next.UnixMilli(), "")
}

// MarkFailed parks a task that exhausted its attempts.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id string, cause error) error {
	msg := cause.Error()
	return r.setStatus(ctx, "fail task", id, models.TaskFailed, &msg, 0, "")
}

// setStatus moves task id to status. A non-empty from restricts the update to tasks
// currently in that status.
func (r *OutboxRepository) setStatus(ctx context.Context, label, id, status string, lastErr *string, availableAt int64, from string) error {
	_, err := database.Execute(ctx, r.db, label, func(ctx context.Context, q database.Querier) (sql.Result, error) {
		query := "UPDATE outbox_tasks SET status = ?, last_error = ?, locked_until = 0, updated_at = ?"
		args := []any{status, lastErr, now()}
		if availableAt > 0 {
			query += ", available_at = ?"
			args = append(args, availableAt)
		}
		query += " WHERE id = ?"
		args = append(args, id)
		if from != "" {
			query += " AND status = ?"
			args = append(args, from)
		}

		res, err := q.ExecContext(ctx, q.Rebind(query), args...)
		if err != nil {
			return nil, err
		}
		return res, affected(res, "task", id)
	})
	return err
}

// CountByStatus reports queue depth per status for the dashboard and health checks.
func (r *OutboxRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	type row struct {
		Status string `db:"status"`
		N      int    `db:"n"`
	}
	rows, err := database.Execute(ctx, r.db, "count tasks", func(ctx context.Context, q database.Querier) ([]row, error) {
		var out []row
		err := q.SelectContext(ctx, &out, "SELECT status, COUNT(*) AS n FROM outbox_tasks GROUP BY status")
		return out, err
	})
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.N
	}
	return counts, nil
}
