package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/3lprints/storefront/internal/database"
	"github.com/3lprints/storefront/internal/models"
)

const reviewColumns = `id, product_id, order_id, user_email, user_name, rating, comment, status, created_at`

type ReviewRepository struct {
	db *database.DB
}

// Create stores a review awaiting moderation.
func (r *ReviewRepository) Create(ctx context.Context, rv *models.Review) error {
	rv.ID = uuid.NewString()
	rv.Status = models.ReviewPending
	rv.CreatedAt = now()

	_, err := database.Execute(ctx, r.db, "insert review", func(ctx context.Context, q database.Querier) (sql.Result, error) {
		return sqlx.NamedExecContext(ctx, q, `
			INSERT INTO reviews (id, product_id, order_id, user_email, user_name, rating, comment, status, created_at)
			VALUES (:id, :product_id, :order_id, :user_email, :user_name, :rating, :comment, :status, :created_at)`, rv)
	})
	return err
}

// ListApproved returns the public reviews of a product, newest first.
func (r *ReviewRepository) ListApproved(ctx context.Context, productID string, page Page) ([]models.Review, error) {
	page = page.normalize()
	out, err := database.Execute(ctx, r.db, "list product reviews", func(ctx context.Context, q database.Querier) ([]models.Review, error) {
		var out []models.Review
		err := q.SelectContext(ctx, &out, q.Rebind("SELECT "+reviewColumns+
			" FROM reviews WHERE product_id = ? AND status = ? ORDER BY created_at DESC LIMIT ? OFFSET ?"),
			productID, models.ReviewApproved, page.Limit, page.Offset)
		return out, err
	})
	if out == nil && err == nil {
		out = []models.Review{}
	}
	return out, err
}

// List is the moderation queue. An empty status lists everything.
func (r *ReviewRepository) List(ctx context.Context, status string, page Page) ([]models.Review, error) {
	var w where
	if status != "" {
		w.add("status = ?", status)
	}
	page = page.normalize()
	args := append(w.args, page.Limit, page.Offset)

	out, err := database.Execute(ctx, r.db, "list reviews", func(ctx context.Context, q database.Querier) ([]models.Review, error) {
		var out []models.Review
		err := q.SelectContext(ctx, &out, q.Rebind("SELECT "+reviewColumns+" FROM reviews"+w.String()+
			" ORDER BY created_at DESC LIMIT ? OFFSET ?"), args...)
		return out, err
	})
	if out == nil && err == nil {
		out = []models.Review{}
	}
	return out, err
}

func (r *ReviewRepository) SetStatus(ctx context.Context, id, status string) error {
	_, err := database.Execute(ctx, r.db, "moderate review", func(ctx context.Context, q database.Querier) (sql.Result, error) {
		res, err := q.ExecContext(ctx, q.Rebind("UPDATE reviews SET status = ? WHERE id = ?"), status, id)
		if err != nil {
			return nil, err
		}
		return res, affected(res, "review", id)
	})
	return err
}

func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	_, err := database.Execute(ctx, r.db, "delete review", func(ctx context.Context, q database.Querier) (sql.Result, error) {
		res, err := q.ExecContext(ctx, q.Rebind("DELETE FROM reviews WHERE id = ?"), id)
		if err != nil {
			return nil, err
		}
		return res, affected(res, "review", id)
	})
	return err
}
