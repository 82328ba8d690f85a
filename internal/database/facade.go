package database

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/3lprints/storefront/internal/apperrors"
)

// Querier is satisfied by both *sqlx.DB and *sqlx.Tx, so repository code runs inside or
// outside a transaction unchanged.
type Querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

const (
	schemaProbeTTL     = 5 * time.Minute
	schemaProbeTimeout = 3 * time.Second
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type probeResult struct {
	ok      bool
	expires time.Time
}

// DB is the access facade every repository goes through.
type DB struct {
	*sqlx.DB
	log *zap.Logger

	mu     sync.Mutex
	probes map[string]probeResult
	group  singleflight.Group
	now    func() time.Time
}

func New(db *sqlx.DB, log *zap.Logger) *DB {
	return &DB{DB: db, log: log, probes: make(map[string]probeResult), now: time.Now}
}

// Logger exposes the facade's logger to repositories.
func (d *DB) Logger() *zap.Logger {
	return d.log
}

// Execute runs op against the pool. Any error comes back as a normalised Database AppError
// and is logged with its label.
func Execute[T any](ctx context.Context, d *DB, label string, op func(ctx context.Context, q Querier) (T, error)) (T, error) {
	return ExecuteOn(ctx, d, nil, label, op)
}

// ExecuteOn is Execute against q, typically an open transaction. A nil q means the pool.
func ExecuteOn[T any](ctx context.Context, d *DB, q Querier, label string, op func(ctx context.Context, q Querier) (T, error)) (T, error) {
	if q == nil {
		q = d.DB
	}
	res, err := op(ctx, q)
	if err != nil {
		var zero T
		return zero, d.fail(label, err)
	}
	return res, nil
}

// InTx runs fn inside a transaction. The transaction is committed only when fn returns nil.
func (d *DB) InTx(ctx context.Context, label string, fn func(tx Querier) error) error {
	tx, err := d.BeginTxx(ctx, nil)
	if err != nil {
		return d.fail(label, err)
	}
	defer tx.Rollback() // Safety net

	if err := fn(tx); err != nil {
		return d.fail(label, err)
	}
	if err := tx.Commit(); err != nil {
		return d.fail(label, err)
	}
	return nil
}

func (d *DB) fail(label string, err error) error {
	norm := Normalize(label, err)
	appErr, ok := apperrors.As(norm)
	if !ok || appErr.Kind != apperrors.KindDatabase {
		return norm
	}
	switch appErr.Code {
	case apperrors.CodeNoData:
		d.log.Debug("no data returned", zap.String("label", label))
	case apperrors.CodeUniqueViolation:
		d.log.Info("unique violation", zap.String("label", label), zap.String("hint", appErr.Hint))
	default:
		d.log.Error("database error",
			zap.String("label", label),
			zap.String("code", appErr.Code),
			zap.String("hint", appErr.Hint),
			zap.Error(appErr.Err),
		)
	}
	return norm
}

// VerifySchemaShape reports whether table exposes every column in cols. It never fails:
// probe errors and unsafe identifiers yield false. Confirmed shapes and missing
// tables/columns are cached for five minutes; any other probe error is not cached.
// Concurrent probes of the same shape share one query, which runs detached from the
// caller's cancellation.
func (d *DB) VerifySchemaShape(ctx context.Context, table string, cols ...string) bool {
	if !identPattern.MatchString(table) || len(cols) == 0 {
		return false
	}
	for _, c := range cols {
		if !identPattern.MatchString(c) {
			return false
		}
	}

	key := table + ":" + strings.Join(cols, ",")

	d.mu.Lock()
	if p, ok := d.probes[key]; ok && d.now().Before(p.expires) {
		d.mu.Unlock()
		return p.ok
	}
	d.mu.Unlock()

	v, _, _ := d.group.Do(key, func() (any, error) {
		probeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), schemaProbeTimeout)
		defer cancel()

		query := fmt.Sprintf("SELECT %s FROM %s WHERE 1=0", strings.Join(cols, ", "), table)
		rows, err := d.QueryContext(probeCtx, query)
		if err == nil {
			rows.Close()
		}

		switch {
		case err == nil:
		case isSchemaError(err):
			d.log.Warn("schema shape mismatch", zap.String("table", table), zap.Strings("columns", cols), zap.Error(err))
		default:
			d.log.Warn("schema probe failed", zap.String("table", table), zap.Error(err))
			return false, nil
		}

		d.mu.Lock()
		d.probes[key] = probeResult{ok: err == nil, expires: d.now().Add(schemaProbeTTL)}
		d.mu.Unlock()
		return err == nil, nil
	})
	return v.(bool)
}

// Migrate applies pending migrations and forgets cached schema probes.
func (d *DB) Migrate(ctx context.Context) ([]string, error) {
	ran, err := Migrate(ctx, d.DB, d.log)
	if len(ran) > 0 {
		d.InvalidateSchemaCache()
	}
	return ran, err
}

// InvalidateSchemaCache forgets every probe result, e.g. after migrations ran.
func (d *DB) InvalidateSchemaCache() {
	d.mu.Lock()
	d.probes = make(map[string]probeResult)
	d.mu.Unlock()
}

// SchemaMismatch is the error returned when a required table shape is missing.
func SchemaMismatch(table string) error {
	return apperrors.Database("schema check", fmt.Errorf("table %s is missing required columns", table),
		apperrors.CodeSchemaMismatch, "run migrations")
}
