package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jmoiron/sqlx"

	"github.com/3lprints/storefront/internal/apperrors"
	"github.com/3lprints/storefront/internal/database"
	"github.com/3lprints/storefront/internal/models"
)

const productColumns = `id, name, slug, description, price, discount_percent, stock, images,
	is_customizable, is_active, created_at, updated_at, deleted_at`

type ProductRepository struct {
	db *database.DB
}

// Create inserts p with a unique slug derived from its name.
func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Images.V == nil {
		p.Images.V = []string{}
	}
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt

	s, err := r.uniqueSlug(ctx, p.Name, "")
	if err != nil {
		return err
	}
	p.Slug = s

	_, err = database.Execute(ctx, r.db, "insert product", func(ctx context.Context, q database.Querier) (sql.Result, error) {
		return sqlx.NamedExecContext(ctx, q, `
			INSERT INTO products (id, name, slug, description, price, discount_percent, stock, images,
				is_customizable, is_active, created_at, updated_at)
			VALUES (:id, :name, :slug, :description, :price, :discount_percent, :stock, :images,
				:is_customizable, :is_active, :created_at, :updated_at)`, p)
	})
	return err
}

// Update overwrites the editable fields. The slug follows a name change.
func (r *ProductRepository) Update(ctx context.Context, p *models.Product) error {
	s, err := r.uniqueSlug(ctx, p.Name, p.ID)
	if err != nil {
		return err
	}
	p.Slug = s
	p.UpdatedAt = now()
	if p.Images.V == nil {
		p.Images.V = []string{}
	}

	_, err = database.Execute(ctx, r.db, "update product", func(ctx context.Context, q database.Querier) (sql.Result, error) {
		res, err := sqlx.NamedExecContext(ctx, q, `
			UPDATE products SET name = :name, slug = :slug, description = :description, price = :price,
				discount_percent = :discount_percent, stock = :stock, images = :images,
				is_customizable = :is_customizable, is_active = :is_active, updated_at = :updated_at
			WHERE id = :id AND deleted_at IS NULL`, p)
		if err != nil {
			return nil, err
		}
		return res, affected(res, "product", p.ID)
	})
	return err
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	return r.getBy(ctx, "id", id)
}

// GetBySlug returns an active, non-deleted product.
func (r *ProductRepository) GetBySlug(ctx context.Context, s string) (*models.Product, error) {
	p, err := r.getBy(ctx, "slug", s)
	if err != nil {
		return nil, err
	}
	if !p.IsActive || p.DeletedAt != nil {
		return nil, apperrors.NotFound("product", s)
	}
	return p, nil
}

func (r *ProductRepository) getBy(ctx context.Context, col, val string) (*models.Product, error) {
	p, err := database.Execute(ctx, r.db, "get product", func(ctx context.Context, q database.Querier) (*models.Product, error) {
		var p models.Product
		err := q.GetContext(ctx, &p, q.Rebind("SELECT "+productColumns+" FROM products WHERE "+col+" = ?"), val)
		return &p, err
	})
	if apperrors.IsNoData(err) {
		return nil, apperrors.NotFound("product", val)
	}
	return p, err
}

// ProductFilter narrows product lists. Public callers always set ActiveOnly.
type ProductFilter struct {
	ActiveOnly   bool
	Customizable *bool
	Search       string
	Page         Page
}

func (r *ProductRepository) List(ctx context.Context, f ProductFilter) ([]models.Product, int, error) {
	var w where
	w.add("deleted_at IS NULL")
	if f.ActiveOnly {
		w.add("is_active = ?", true)
	}
	if f.Customizable != nil {
		w.add("is_customizable = ?", *f.Customizable)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		w.add("LOWER(name) LIKE ?", likePattern(s))
	}
	page := f.Page.normalize()

	type result struct {
		products []models.Product
		total    int
	}
	res, err := database.Execute(ctx, r.db, "list products", func(ctx context.Context, q database.Querier) (result, error) {
		var out result
		if err := q.GetContext(ctx, &out.total, q.Rebind("SELECT COUNT(*) FROM products"+w.String()), w.args...); err != nil {
			return out, err
		}
		args := append(append([]any{}, w.args...), page.Limit, page.Offset)
		err := q.SelectContext(ctx, &out.products, q.Rebind("SELECT "+productColumns+" FROM products"+w.String()+
			" ORDER BY created_at DESC LIMIT ? OFFSET ?"), args...)
		return out, err
	})
	if err != nil {
		return nil, 0, err
	}
	if res.products == nil {
		res.products = []models.Product{}
	}
	return res.products, res.total, nil
}

// Delete soft-deletes by default. A hard delete detaches reviews first.
func (r *ProductRepository) Delete(ctx context.Context, id string, hard bool) error {
	if !hard {
		_, err := database.Execute(ctx, r.db, "soft delete product", func(ctx context.Context, q database.Querier) (sql.Result, error) {
			ts := now()
			res, err := q.ExecContext(ctx, q.Rebind("UPDATE products SET deleted_at = ?, is_active = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL"), ts, false, ts, id)
			if err != nil {
				return nil, err
			}
			return res, affected(res, "product", id)
		})
		return err
	}
	return r.db.InTx(ctx, "hard delete product", func(tx database.Querier) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind("UPDATE reviews SET product_id = NULL WHERE product_id = ?"), id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM products WHERE id = ?"), id)
		if err != nil {
			return err
		}
		return affected(res, "product", id)
	})
}

// uniqueSlug derives a slug from name and appends -2, -3, ... until no other product holds it.
func (r *ProductRepository) uniqueSlug(ctx context.Context, name, selfID string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "product"
	}
	candidate := base
	for i := 2; i < 1000; i++ {
		taken, err := database.Execute(ctx, r.db, "check product slug", func(ctx context.Context, q database.Querier) (bool, error) {
			var n int
			err := q.GetContext(ctx, &n, q.Rebind("SELECT COUNT(*) FROM products WHERE slug = ? AND id <> ?"), candidate, selfID)
			return n > 0, err
		})
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return base + "-" + uuid.NewString()[:8], nil
}
