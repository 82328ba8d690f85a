package ordernumber

import (
	"context"

	"github.com/3lprints/storefront/internal/database"
)

// DBSequence keeps one counter row per day in 'order_sequences'.
type DBSequence struct {
	db *database.DB
}

func NewDBSequence(db *database.DB) *DBSequence {
	return &DBSequence{db: db}
}

// Next increments and returns today's counter inside a transaction.
func (s *DBSequence) Next(ctx context.Context, day string) (int64, error) {
	var upsert string
	switch s.db.DriverName() {
	case database.DriverMySQL:
		upsert = "INSERT INTO order_sequences (day, last_value) VALUES (?, 1) ON DUPLICATE KEY UPDATE last_value = last_value + 1"
	default:
		upsert = "INSERT INTO order_sequences (day, last_value) VALUES (?, 1) ON CONFLICT (day) DO UPDATE SET last_value = order_sequences.last_value + 1"
	}

	var n int64
	err := s.db.InTx(ctx, "next order sequence", func(tx database.Querier) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(upsert), day); err != nil {
			return err
		}
		return tx.GetContext(ctx, &n, tx.Rebind("SELECT last_value FROM order_sequences WHERE day = ?"), day)
	})
	return n, err
}
