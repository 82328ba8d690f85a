package repository

import (
	"strings"
	"time"

	"github.com/3lprints/storefront/internal/apperrors"
	"github.com/3lprints/storefront/internal/database"
)

// Repositories bundles every repository over one facade.
type Repositories struct {
	DB               *database.DB
	Orders           *OrderRepository
	CustomizedOrders *CustomizedOrderRepository
	Users            *UserRepository
	Products         *ProductRepository
	Reviews          *ReviewRepository
	Settings         *SettingRepository
	Outbox           *OutboxRepository
}

func New(db *database.DB) *Repositories {
	return &Repositories{
		DB:               db,
		Orders:           &OrderRepository{db: db},
		CustomizedOrders: &CustomizedOrderRepository{db: db},
		Users:            &UserRepository{db: db},
		Products:         &ProductRepository{db: db},
		Reviews:          &ReviewRepository{db: db},
		Settings:         &SettingRepository{db: db},
		Outbox:           &OutboxRepository{db: db},
	}
}

// Page is the common limit/offset pair for list queries.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalize() Page {
	if p.Limit <= 0 || p.Limit > 200 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

func now() time.Time {
	return time.Now().UTC()
}

// where accumulates AND-ed conditions with their arguments.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, args ...any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// affected turns "zero rows touched" into a NotFound error.
func affected(res interface{ RowsAffected() (int64, error) }, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.NotFound(resource, id)
	}
	return nil
}

// likePattern builds a case-folded contains pattern. Wildcards in the input are dropped.
func likePattern(s string) string {
	s = strings.NewReplacer("%", "", "_", "").Replace(s)
	return "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}
