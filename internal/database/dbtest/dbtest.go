// Package dbtest opens migrated in-memory SQLite databases for package tests.
package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/3lprints/storefront/internal/database"
)

var seq atomic.Int64

// New returns a facade over a fresh, fully migrated in-memory database.
// The database is closed when the test ends.
func New(t *testing.T) *database.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	log := zap.NewNop()
	db, err := database.OpenDB(context.Background(), database.DriverSQLite, dsn, log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	facade := database.New(db, log)
	_, err = facade.Migrate(context.Background())
	require.NoError(t, err)

	return facade
}
