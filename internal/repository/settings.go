package repository

import (
	"context"
	"encoding/json"

	"github.com/3lprints/storefront/internal/apperrors"
	"github.com/3lprints/storefront/internal/database"
	"github.com/3lprints/storefront/internal/models"
)

// Key/value tables served by SettingRepository.
const (
	TableSettings    = "settings"
	TableHomeContent = "home_content"
)

type SettingRepository struct {
	db *database.DB
}

func (r *SettingRepository) Get(ctx context.Context, table, key string) (*models.Setting, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	s, err := database.Execute(ctx, r.db, "get "+table, func(ctx context.Context, q database.Querier) (*models.Setting, error) {
		var s models.Setting
		err := q.GetContext(ctx, &s, q.Rebind("SELECT key_name, value, updated_at FROM "+table+" WHERE key_name = ?"), key)
		return &s, err
	})
	if apperrors.IsNoData(err) {
		return nil, apperrors.NotFound(table, key)
	}
	return s, err
}

// Put creates or replaces the document stored under key.
func (r *SettingRepository) Put(ctx context.Context, table, key string, value json.RawMessage) (*models.Setting, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	s := &models.Setting{Key: key, Value: models.JSON[json.RawMessage]{V: value}, UpdatedAt: now()}

	err := r.db.InTx(ctx, "put "+table, func(tx database.Querier) error {
		res, err := tx.ExecContext(ctx, tx.Rebind("UPDATE "+table+" SET value = ?, updated_at = ? WHERE key_name = ?"), s.Value, s.UpdatedAt, key)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil || n > 0 {
			return err
		}
		_, err = tx.ExecContext(ctx, tx.Rebind("INSERT INTO "+table+" (key_name, value, updated_at) VALUES (?, ?, ?)"), key, s.Value, s.UpdatedAt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func checkTable(table string) error {
	switch table {
	case TableSettings, TableHomeContent:
		return nil
	}
	return apperrors.Validation("unknown content table")
}
