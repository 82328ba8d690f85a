package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/3lprints/storefront/internal/apperrors"
	"github.com/3lprints/storefront/internal/database"
	"github.com/3lprints/storefront/internal/models"
)

const userColumns = `id, email, full_name, phone, role, password_hash, created_at, updated_at`

type UserRepository struct {
	db *database.DB
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = models.RoleCustomer
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = now()
	u.UpdatedAt = u.CreatedAt

	_, err := database.Execute(ctx, r.db, "insert user", func(ctx context.Context, q database.Querier) (sql.Result, error) {
		return sqlx.NamedExecContext(ctx, q, `
			INSERT INTO users (id, email, full_name, phone, role, password_hash, created_at, updated_at)
			VALUES (:id, :email, :full_name, :phone, :role, :password_hash, :created_at, :updated_at)`, u)
	})
	return err
}

// GetByEmail returns the user or NotFound. Emails compare case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := database.Execute(ctx, r.db, "get user by email", func(ctx context.Context, q database.Querier) (*models.User, error) {
		var u models.User
		err := q.GetContext(ctx, &u, q.Rebind("SELECT "+userColumns+" FROM users WHERE email = ?"), email)
		return &u, err
	})
	if apperrors.IsNoData(err) {
		return nil, apperrors.NotFound("user", email)
	}
	return u, err
}

func (r *UserRepository) List(ctx context.Context, role string, page Page) ([]models.User, int, error) {
	var w where
	if role != "" {
		w.add("role = ?", role)
	}
	page = page.normalize()

	type result struct {
		users []models.User
		total int
	}
	res, err := database.Execute(ctx, r.db, "list users", func(ctx context.Context, q database.Querier) (result, error) {
		var out result
		if err := q.GetContext(ctx, &out.total, q.Rebind("SELECT COUNT(*) FROM users"+w.String()), w.args...); err != nil {
			return out, err
		}
		args := append(append([]any{}, w.args...), page.Limit, page.Offset)
		err := q.SelectContext(ctx, &out.users, q.Rebind("SELECT "+userColumns+" FROM users"+w.String()+
			" ORDER BY created_at DESC LIMIT ? OFFSET ?"), args...)
		return out, err
	})
	if err != nil {
		return nil, 0, err
	}
	if res.users == nil {
		res.users = []models.User{}
	}
	return res.users, res.total, nil
}

func (r *UserRepository) UpdateRole(ctx context.Context, id, role string) error {
	_, err := database.Execute(ctx, r.db, "update user role", func(ctx context.Context, q database.Querier) (sql.Result, error) {
		res, err := q.ExecContext(ctx, q.Rebind("UPDATE users SET role = ?, updated_at = ? WHERE id = ?"), role, now(), id)
		if err != nil {
			return nil, err
		}
		return res, affected(res, "user", id)
	})
	return err
}

// SetPassword stores a new bcrypt hash.
func (r *UserRepository) SetPassword(ctx context.Context, id, hash string) error {
	_, err := database.Execute(ctx, r.db, "set user password", func(ctx context.Context, q database.Querier) (sql.Result, error) {
		res, err := q.ExecContext(ctx, q.Rebind("UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?"), hash, now(), id)
		if err != nil {
			return nil, err
		}
		return res, affected(res, "user", id)
	})
	return err
}
