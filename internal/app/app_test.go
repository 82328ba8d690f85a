package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/3lprints/storefront/internal/config"
	"github.com/3lprints/storefront/internal/models"
	"github.com/3lprints/storefront/internal/repository"
)

func fp(v float64) *float64 { return &v }

func TestNew_RelayRunsOrderTasksInProcess(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("DB_DSN", "file:app_relay?mode=memory&cache=shared")
	t.Setenv("DB_AUTO_MIGRATE", "true")
	cfg, err := config.Load()
	require.NoError(t, err)

	ctx := context.Background()
	a, err := New(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	relay, closeRelay := a.Relay()
	defer closeRelay()
	woken := false
	a.Checkout.OnTasksQueued(func() { woken = true })

	order, err := a.Checkout.CreateOrder(ctx, &models.OrderRequest{
		UserEmail: "meera@example.com",
		ShippingAddress: &models.ShippingAddress{
			FlatNumber: "4", Colony: "Koramangala", City: "Bengaluru", State: "Karnataka", Pincode: "560034",
		},
		Items: []models.OrderItem{{
			ProductName:   "Name Plate",
			Price:         fp(899),
			Quantity:      1,
			IsCustomized:  true,
			Customization: &models.Customization{Details: "Text: MEERA, font: serif"},
		}},
		TotalAmount: fp(899),
	})
	require.NoError(t, err)
	assert.True(t, woken)

	done, err := relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, done, "customization and confirmation email")

	records, total, err := a.Repos.CustomizedOrders.List(ctx, repository.CustomizedFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.NotNil(t, records[0].OrderID)
	assert.Equal(t, order.ID, *records[0].OrderID)

	counts, err := a.Repos.Outbox.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[models.TaskDone])
}
