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

const customizedColumns = `id, user_id, user_email, user_name, user_phone, product_id, product_name, price,
	customization_details, drive_link, quantity, status, order_id, created_at, updated_at, deleted_at`

// CustomizedOrderRepository reads and writes 'customized_orders'.
type CustomizedOrderRepository struct {
	db *database.DB
}

// Create inserts a new record. ID, status and timestamps get defaults.
func (r *CustomizedOrderRepository) Create(ctx context.Context, q database.Querier, c *models.CustomizedOrder) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = models.CustomizationPending
	}
	if c.Quantity < 1 {
		c.Quantity = 1
	}
	c.CreatedAt = now()
	c.UpdatedAt = c.CreatedAt

	_, err := database.ExecuteOn(ctx, r.db, q, "insert customized order", func(ctx context.Context, q database.Querier) (sql.Result, error) {
		return sqlx.NamedExecContext(ctx, q, `
			INSERT INTO customized_orders (id, user_id, user_email, user_name, user_phone, product_id,
				product_name, price, customization_details, drive_link, quantity, status, order_id,
				created_at, updated_at)
			VALUES (:id, :user_id, :user_email, :user_name, :user_phone, :product_id,
				:product_name, :price, :customization_details, :drive_link, :quantity, :status, :order_id,
				:created_at, :updated_at)`, c)
	})
	return err
}

// FindUnlinked returns the newest live record for this purchaser and product that is not yet
// attached to an order, or nil. The product matches by id, or by name when id is absent.
func (r *CustomizedOrderRepository) FindUnlinked(ctx context.Context, q database.Querier, email string, productID, productName *string) (*models.CustomizedOrder, error) {
	var w where
	w.add("LOWER(user_email) = ?", strings.ToLower(email))
	w.add("order_id IS NULL")
	w.add("deleted_at IS NULL")
	switch {
	case productID != nil && *productID != "":
		w.add("product_id = ?", *productID)
	case productName != nil && *productName != "":
		w.add("product_id IS NULL AND product_name = ?", *productName)
	default:
		return nil, nil
	}

	c, err := database.ExecuteOn(ctx, r.db, q, "find unlinked customization", func(ctx context.Context, q database.Querier) (*models.CustomizedOrder, error) {
		var c models.CustomizedOrder
		err := q.GetContext(ctx, &c, q.Rebind("SELECT "+customizedColumns+" FROM customized_orders"+w.String()+
			" ORDER BY created_at DESC LIMIT 1"), w.args...)
		return &c, err
	})
	if apperrors.IsNoData(err) {
		return nil, nil
	}
	return c, err
}

// CountForOrder counts live records already linked to orderID.
func (r *CustomizedOrderRepository) CountForOrder(ctx context.Context, q database.Querier, orderID string) (int, error) {
	return database.ExecuteOn(ctx, r.db, q, "count customizations for order", func(ctx context.Context, q database.Querier) (int, error) {
		var n int
		err := q.GetContext(ctx, &n, q.Rebind("SELECT COUNT(*) FROM customized_orders WHERE order_id = ? AND deleted_at IS NULL"), orderID)
		return n, err
	})
}

// LinkToOrder attaches an unlinked record to an order and refreshes the purchase snapshot.
// A record that is already linked is left alone.
func (r *CustomizedOrderRepository) LinkToOrder(ctx context.Context, q database.Querier, c *models.CustomizedOrder) error {
	_, err := database.ExecuteOn(ctx, r.db, q, "link customization", func(ctx context.Context, q database.Querier) (sql.Result, error) {
		c.UpdatedAt = now()
		res, err := q.ExecContext(ctx, q.Rebind(`
			UPDATE customized_orders SET order_id = ?, user_id = ?, user_name = ?, user_phone = ?,
				product_name = ?, price = ?, customization_details = ?, drive_link = ?, quantity = ?,
				updated_at = ?
			WHERE id = ? AND order_id IS NULL`),
			c.OrderID, c.UserID, c.UserName, c.UserPhone, c.ProductName, c.Price,
			c.CustomizationDetails, c.DriveLink, c.Quantity, c.UpdatedAt, c.ID)
		if err != nil {
			return nil, err
		}
		return res, affected(res, "customized order", c.ID)
	})
	return err
}

// GetByID returns a record or NotFound.
func (r *CustomizedOrderRepository) GetByID(ctx context.Context, id string) (*models.CustomizedOrder, error) {
	c, err := database.Execute(ctx, r.db, "get customized order", func(ctx context.Context, q database.Querier) (*models.CustomizedOrder, error) {
		var c models.CustomizedOrder
		err := q.GetContext(ctx, &c, q.Rebind("SELECT "+customizedColumns+" FROM customized_orders WHERE id = ?"), id)
		return &c, err
	})
	if apperrors.IsNoData(err) {
		return nil, apperrors.NotFound("customized order", id)
	}
	return c, err
}

// CustomizedFilter narrows the admin list.
type CustomizedFilter struct {
	Status string
	Linked *bool
	Search string
	Page   Page
}

func (r *CustomizedOrderRepository) List(ctx context.Context, f CustomizedFilter) ([]models.CustomizedOrder, int, error) {
	var w where
	w.add("deleted_at IS NULL")
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	if f.Linked != nil {
		if *f.Linked {
			w.add("order_id IS NOT NULL")
		} else {
			w.add("order_id IS NULL")
		}
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := likePattern(s)
		w.add("(LOWER(user_email) LIKE ? OR LOWER(product_name) LIKE ?)", p, p)
	}
	page := f.Page.normalize()

	type result struct {
		rows  []models.CustomizedOrder
		total int
	}
	res, err := database.Execute(ctx, r.db, "list customized orders", func(ctx context.Context, q database.Querier) (result, error) {
		var out result
		if err := q.GetContext(ctx, &out.total, q.Rebind("SELECT COUNT(*) FROM customized_orders"+w.String()), w.args...); err != nil {
			return out, err
		}
		args := append(append([]any{}, w.args...), page.Limit, page.Offset)
		err := q.SelectContext(ctx, &out.rows, q.Rebind("SELECT "+customizedColumns+" FROM customized_orders"+w.String()+
			" ORDER BY created_at DESC LIMIT ? OFFSET ?"), args...)
		return out, err
	})
	if err != nil {
		return nil, 0, err
	}
	if res.rows == nil {
		res.rows = []models.CustomizedOrder{}
	}
	return res.rows, res.total, nil
}

// CustomizedUpdate carries admin-editable fields. Nil means unchanged.
type CustomizedUpdate struct {
	Status  *models.CustomizationStatus
	Price   *float64
	OrderID *string
}

// Update applies an admin edit. Admins may relink a record; an empty OrderID unlinks it.
func (r *CustomizedOrderRepository) Update(ctx context.Context, id string, u CustomizedUpdate) (*models.CustomizedOrder, error) {
	sets := []string{"updated_at = ?"}
	args := []any{now()}
	if u.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *u.Status)
	}
	if u.Price != nil {
		sets = append(sets, "price = ?")
		args = append(args, *u.Price)
	}
	if u.OrderID != nil {
		sets = append(sets, "order_id = ?")
		if *u.OrderID == "" {
			args = append(args, nil)
		} else {
			args = append(args, *u.OrderID)
		}
	}
	args = append(args, id)

	_, err := database.Execute(ctx, r.db, "update customized order", func(ctx context.Context, q database.Querier) (sql.Result, error) {
		res, err := q.ExecContext(ctx, q.Rebind("UPDATE customized_orders SET "+strings.Join(sets, ", ")+
			" WHERE id = ? AND deleted_at IS NULL"), args...)
		if err != nil {
			return nil, err
		}
		return res, affected(res, "customized order", id)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Delete soft-deletes by default; hard removes the row.
func (r *CustomizedOrderRepository) Delete(ctx context.Context, id string, hard bool) error {
	_, err := database.Execute(ctx, r.db, "delete customized order", func(ctx context.Context, q database.Querier) (sql.Result, error) {
		var res sql.Result
		var err error
		if hard {
			res, err = q.ExecContext(ctx, q.Rebind("DELETE FROM customized_orders WHERE id = ?"), id)
		} else {
			ts := now()
			res, err = q.ExecContext(ctx, q.Rebind("UPDATE customized_orders SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL"), ts, ts, id)
		}
		if err != nil {
			return nil, err
		}
		return res, affected(res, "customized order", id)
	})
	return err
}
