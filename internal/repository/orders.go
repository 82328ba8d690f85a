package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/3lprints/storefront/internal/apperrors"
	"github.com/3lprints/storefront/internal/database"
	"github.com/3lprints/storefront/internal/models"
)

const orderColumns = `id, order_number, user_id, user_email, user_name, user_phone, shipping_address, items,
	subtotal, tax, shipping_fee, total_amount, payment_method, payment_status, status,
	razorpay_order_id, razorpay_payment_id, payment_error, order_notes, tracking_number,
	created_at, updated_at, deleted_at`

// OrderRepository reads and writes the 'orders' table.
type OrderRepository struct {
	db *database.DB
}

// Insert stores o. ID and timestamps are filled in when empty.
func (r *OrderRepository) Insert(ctx context.Context, q database.Querier, o *models.Order) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now()
	}
	o.UpdatedAt = o.CreatedAt

	_, err := database.ExecuteOn(ctx, r.db, q, "insert order", func(ctx context.Context, q database.Querier) (sql.Result, error) {
		return sqlx.NamedExecContext(ctx, q, `
			INSERT INTO orders (id, order_number, user_id, user_email, user_name, user_phone,
				shipping_address, items, subtotal, tax, shipping_fee, total_amount, payment_method,
				payment_status, status, razorpay_order_id, razorpay_payment_id, payment_error,
				order_notes, tracking_number, created_at, updated_at)
			VALUES (:id, :order_number, :user_id, :user_email, :user_name, :user_phone,
				:shipping_address, :items, :subtotal, :tax, :shipping_fee, :total_amount, :payment_method,
				:payment_status, :status, :razorpay_order_id, :razorpay_payment_id, :payment_error,
				:order_notes, :tracking_number, :created_at, :updated_at)`, o)
	})
	return err
}

// GetByID returns the order or a NotFound error. Soft-deleted orders are still visible here.
func (r *OrderRepository) GetByID(ctx context.Context, q database.Querier, id string) (*models.Order, error) {
	o, err := database.ExecuteOn(ctx, r.db, q, "get order", func(ctx context.Context, q database.Querier) (*models.Order, error) {
		var o models.Order
		err := q.GetContext(ctx, &o, q.Rebind("SELECT "+orderColumns+" FROM orders WHERE id = ?"), id)
		return &o, err
	})
	if apperrors.IsNoData(err) {
		return nil, apperrors.NotFound("order", id)
	}
	return o, err
}

// FindByGatewayPair returns the order already holding the gateway ids, or nil.
func (r *OrderRepository) FindByGatewayPair(ctx context.Context, q database.Querier, gatewayOrderID, paymentID string) (*models.Order, error) {
	o, err := database.ExecuteOn(ctx, r.db, q, "find order by gateway pair", func(ctx context.Context, q database.Querier) (*models.Order, error) {
		var o models.Order
		err := q.GetContext(ctx, &o, q.Rebind("SELECT "+orderColumns+
			" FROM orders WHERE razorpay_order_id = ? AND razorpay_payment_id = ?"), gatewayOrderID, paymentID)
		return &o, err
	})
	if apperrors.IsNoData(err) {
		return nil, nil
	}
	return o, err
}

// FindByNumberAndEmail is the customer-facing lookup. Both must match.
func (r *OrderRepository) FindByNumberAndEmail(ctx context.Context, number, email string) (*models.Order, error) {
	o, err := database.Execute(ctx, r.db, "find order by number", func(ctx context.Context, q database.Querier) (*models.Order, error) {
		var o models.Order
		err := q.GetContext(ctx, &o, q.Rebind("SELECT "+orderColumns+
			" FROM orders WHERE order_number = ? AND LOWER(user_email) = ? AND deleted_at IS NULL"), number, strings.ToLower(email))
		return &o, err
	})
	if apperrors.IsNoData(err) {
		return nil, apperrors.NotFound("order", number)
	}
	return o, err
}

// OrderNumberExists is used by the order-number generator to confirm a candidate is free.
func (r *OrderRepository) OrderNumberExists(ctx context.Context, number string) (bool, error) {
	return database.Execute(ctx, r.db, "check order number", func(ctx context.Context, q database.Querier) (bool, error) {
		var n int
		err := q.GetContext(ctx, &n, q.Rebind("SELECT COUNT(*) FROM orders WHERE order_number = ?"), number)
		return n > 0, err
	})
}

// MarkPaid records a verified payment on an existing order.
func (r *OrderRepository) MarkPaid(ctx context.Context, q database.Querier, id, method, gatewayOrderID, paymentID string) error {
	_, err := database.ExecuteOn(ctx, r.db, q, "mark order paid", func(ctx context.Context, q database.Querier) (sql.Result, error) {
		res, err := q.ExecContext(ctx, q.Rebind(`
			UPDATE orders SET payment_status = ?, payment_method = ?, razorpay_order_id = ?,
				razorpay_payment_id = ?, status = ?, payment_error = NULL, updated_at = ?
			WHERE id = ?`),
			models.PaymentPaid, method, gatewayOrderID, paymentID, models.StatusConfirmed, now(), id)
		if err != nil {
			return nil, err
		}
		return res, affected(res, "order", id)
	})
	return err
}

// SetPaymentStatus updates payment_status and payment_error only.
func (r *OrderRepository) SetPaymentStatus(ctx context.Context, id string, status models.PaymentStatus, paymentError *string) error {
	_, err := database.Execute(ctx, r.db, "update payment status", func(ctx context.Context, q database.Querier) (sql.Result, error) {
		res, err := q.ExecContext(ctx, q.Rebind(
			"UPDATE orders SET payment_status = ?, payment_error = ?, updated_at = ? WHERE id = ?"),
			status, paymentError, now(), id)
		if err != nil {
			return nil, err
		}
		return res, affected(res, "order", id)
	})
	return err
}

// OrderFilter narrows the admin order list.
type OrderFilter struct {
	Status            string
	PaymentStatus     string
	Search            string
	From, To          *time.Time
	IncludeFailed     bool
	IncludeCustomized bool
	IncludeDeleted    bool
	Page              Page
}

// List returns one page of orders plus the total count for the filter.
// By default failed payments, soft-deleted rows and orders claimed by a customized record are hidden.
func (r *OrderRepository) List(ctx context.Context, f OrderFilter) ([]models.Order, int, error) {
	var w where
	if !f.IncludeDeleted {
		w.add("o.deleted_at IS NULL")
	}
	if f.Status != "" {
		w.add("o.status = ?", f.Status)
	}
	switch {
	case f.PaymentStatus != "":
		w.add("o.payment_status = ?", f.PaymentStatus)
	case !f.IncludeFailed:
		w.add("o.payment_status <> ?", models.PaymentFailed)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := likePattern(s)
		w.add("(LOWER(o.order_number) LIKE ? OR LOWER(o.user_email) LIKE ? OR LOWER(o.user_name) LIKE ?)", p, p, p)
	}
	if f.From != nil {
		w.add("o.created_at >= ?", f.From.UTC())
	}
	if f.To != nil {
		w.add("o.created_at <= ?", f.To.UTC())
	}
	if !f.IncludeCustomized {
		w.add("NOT EXISTS (SELECT 1 FROM customized_orders co WHERE co.order_id = o.id AND co.deleted_at IS NULL)")
	}
	page := f.Page.normalize()

	type result struct {
		orders []models.Order
		total  int
	}
	res, err := database.Execute(ctx, r.db, "list orders", func(ctx context.Context, q database.Querier) (result, error) {
		var out result
		if err := q.GetContext(ctx, &out.total, q.Rebind("SELECT COUNT(*) FROM orders o"+w.String()), w.args...); err != nil {
			return out, err
		}
		args := append(append([]any{}, w.args...), page.Limit, page.Offset)
		query := "SELECT " + prefixed("o", orderColumns) + " FROM orders o" + w.String() +
			" ORDER BY o.created_at DESC LIMIT ? OFFSET ?"
		err := q.SelectContext(ctx, &out.orders, q.Rebind(query), args...)
		return out, err
	})
	if err != nil {
		return nil, 0, err
	}
	if res.orders == nil {
		res.orders = []models.Order{}
	}
	return res.orders, res.total, nil
}

// OrderUpdate carries the admin-editable fields. Nil means unchanged.
type OrderUpdate struct {
	Status         *models.OrderStatus
	PaymentStatus  *models.PaymentStatus
	TrackingNumber *string
	OrderNotes     *string
}

// Update applies u and returns the fresh row.
func (r *OrderRepository) Update(ctx context.Context, id string, u OrderUpdate) (*models.Order, error) {
	sets := []string{"updated_at = ?"}
	args := []any{now()}
	if u.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *u.Status)
	}
	if u.PaymentStatus != nil {
		sets = append(sets, "payment_status = ?")
		args = append(args, *u.PaymentStatus)
	}
	if u.TrackingNumber != nil {
		sets = append(sets, "tracking_number = ?")
		args = append(args, *u.TrackingNumber)
	}
	if u.OrderNotes != nil {
		sets = append(sets, "order_notes = ?")
		args = append(args, *u.OrderNotes)
	}
	args = append(args, id)

	_, err := database.Execute(ctx, r.db, "update order", func(ctx context.Context, q database.Querier) (sql.Result, error) {
		res, err := q.ExecContext(ctx, q.Rebind("UPDATE orders SET "+strings.Join(sets, ", ")+" WHERE id = ? AND deleted_at IS NULL"), args...)
		if err != nil {
			return nil, err
		}
		return res, affected(res, "order", id)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, nil, id)
}

// SoftDelete hides the order from every list.
func (r *OrderRepository) SoftDelete(ctx context.Context, id string) error {
	_, err := database.Execute(ctx, r.db, "soft delete order", func(ctx context.Context, q database.Querier) (sql.Result, error) {
		ts := now()
		res, err := q.ExecContext(ctx, q.Rebind("UPDATE orders SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL"), ts, ts, id)
		if err != nil {
			return nil, err
		}
		return res, affected(res, "order", id)
	})
	return err
}

// HardDelete removes the row after detaching customized orders and reviews that point at it.
func (r *OrderRepository) HardDelete(ctx context.Context, id string) error {
	return r.db.InTx(ctx, "hard delete order", func(tx database.Querier) error {
		ts := now()
		if _, err := tx.ExecContext(ctx, tx.Rebind("UPDATE customized_orders SET order_id = NULL, updated_at = ? WHERE order_id = ?"), ts, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind("UPDATE reviews SET order_id = NULL WHERE order_id = ?"), id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM orders WHERE id = ?"), id)
		if err != nil {
			return err
		}
		return affected(res, "order", id)
	})
}

// Stats is the admin dashboard summary.
type Stats struct {
	TotalOrders         int   `json:"total_orders" db:"total_orders"`
	PaidOrders          int   `json:"paid_orders" db:"paid_orders"`
	PendingOrders       int   `json:"pending_orders" db:"pending_orders"`
	Revenue             int64 `json:"revenue" db:"revenue"`
	OpenCustomizations  int   `json:"open_customizations" db:"open_customizations"`
	PendingReviews      int   `json:"pending_reviews" db:"pending_reviews"`
	ActiveProducts      int   `json:"active_products" db:"active_products"`
	RegisteredCustomers int   `json:"registered_customers" db:"registered_customers"`
}

// Stats aggregates dashboard counters. Revenue counts paid, non-deleted orders only.
func (r *OrderRepository) Stats(ctx context.Context) (*Stats, error) {
	return database.Execute(ctx, r.db, "dashboard stats", func(ctx context.Context, q database.Querier) (*Stats, error) {
		var s Stats
		err := q.GetContext(ctx, &s, q.Rebind(`
			SELECT
				(SELECT COUNT(*) FROM orders WHERE deleted_at IS NULL) AS total_orders,
				(SELECT COUNT(*) FROM orders WHERE deleted_at IS NULL AND payment_status = ?) AS paid_orders,
				(SELECT COUNT(*) FROM orders WHERE deleted_at IS NULL AND status = ?) AS pending_orders,
				(SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE deleted_at IS NULL AND payment_status = ?) AS revenue,
				(SELECT COUNT(*) FROM customized_orders WHERE deleted_at IS NULL AND status NOT IN (?, ?)) AS open_customizations,
				(SELECT COUNT(*) FROM reviews WHERE status = ?) AS pending_reviews,
				(SELECT COUNT(*) FROM products WHERE deleted_at IS NULL AND is_active = ?) AS active_products,
				(SELECT COUNT(*) FROM users WHERE role = ?) AS registered_customers`),
			models.PaymentPaid, models.StatusPending, models.PaymentPaid,
			models.CustomizationCompleted, models.CustomizationCancelled,
			models.ReviewPending, true, models.RoleCustomer)
		return &s, err
	})
}

// prefixed qualifies a comma-separated column list with alias.
func prefixed(alias, cols string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
