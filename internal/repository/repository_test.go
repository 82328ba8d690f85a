package repository_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3lprints/storefront/internal/apperrors"
	"github.com/3lprints/storefront/internal/database/dbtest"
	"github.com/3lprints/storefront/internal/models"
	"github.com/3lprints/storefront/internal/repository"
)

func strp(s string) *string { return &s }

func newOrder(number string) *models.Order {
	price := 250.0
	return &models.Order{
		ID:          uuid.NewString(),
		OrderNumber: number,
		UserEmail:   gofakeit.Email(),
		ShippingAddress: models.JSON[models.ShippingAddress]{V: models.ShippingAddress{
			FlatNumber: "1", Colony: "c", City: gofakeit.City(), State: "KA", Pincode: "560001",
		}},
		Items:         models.JSON[[]models.OrderItem]{V: []models.OrderItem{{ProductName: "Lamp", Price: &price, Quantity: 2}}},
		TotalAmount:   500,
		PaymentStatus: models.PaymentPending,
		Status:        models.StatusPending,
	}
}

func TestOrders_InsertAndGet(t *testing.T) {
	repos := repository.New(dbtest.New(t))
	ctx := context.Background()

	o := newOrder("3L-20260101-1001")
	require.NoError(t, repos.Orders.Insert(ctx, nil, o))

	got, err := repos.Orders.GetByID(ctx, nil, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.OrderNumber, got.OrderNumber)
	assert.Equal(t, "560001", got.ShippingAddress.V.Pincode)
	require.Len(t, got.Items.V, 1)
	assert.Equal(t, 2, got.Items.V[0].Quantity)

	exists, err := repos.Orders.OrderNumberExists(ctx, o.OrderNumber)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = repos.Orders.GetByID(ctx, nil, uuid.NewString())
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestOrders_UniqueConstraints(t *testing.T) {
	repos := repository.New(dbtest.New(t))
	ctx := context.Background()

	a := newOrder("3L-20260101-2001")
	a.RazorpayOrderID, a.RazorpayPaymentID = strp("order_A"), strp("pay_A")
	require.NoError(t, repos.Orders.Insert(ctx, nil, a))

	dupNumber := newOrder("3L-20260101-2001")
	err := repos.Orders.Insert(ctx, nil, dupNumber)
	assert.True(t, apperrors.IsUniqueViolation(err))

	dupPair := newOrder("3L-20260101-2002")
	dupPair.RazorpayOrderID, dupPair.RazorpayPaymentID = strp("order_A"), strp("pay_A")
	err = repos.Orders.Insert(ctx, nil, dupPair)
	assert.True(t, apperrors.IsUniqueViolation(err))

	found, err := repos.Orders.FindByGatewayPair(ctx, nil, "order_A", "pay_A")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, a.ID, found.ID)

	none, err := repos.Orders.FindByGatewayPair(ctx, nil, "order_B", "pay_B")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestOrders_ListHidesFailedDeletedAndCustomized(t *testing.T) {
	repos := repository.New(dbtest.New(t))
	ctx := context.Background()

	visible := newOrder("3L-20260101-3001")
	failed := newOrder("3L-20260101-3002")
	failed.PaymentStatus = models.PaymentFailed
	deleted := newOrder("3L-20260101-3003")
	claimed := newOrder("3L-20260101-3004")
	for _, o := range []*models.Order{visible, failed, deleted, claimed} {
		require.NoError(t, repos.Orders.Insert(ctx, nil, o))
	}
	require.NoError(t, repos.Orders.SoftDelete(ctx, deleted.ID))
	require.NoError(t, repos.CustomizedOrders.Create(ctx, nil, &models.CustomizedOrder{
		UserEmail: claimed.UserEmail, CustomizationDetails: "engrave", OrderID: &claimed.ID,
	}))

	list, total, err := repos.Orders.List(ctx, repository.OrderFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, visible.ID, list[0].ID)

	_, total, err = repos.Orders.List(ctx, repository.OrderFilter{IncludeFailed: true, IncludeCustomized: true})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestOrders_HardDeleteDetachesDependents(t *testing.T) {
	repos := repository.New(dbtest.New(t))
	ctx := context.Background()

	o := newOrder("3L-20260101-4001")
	require.NoError(t, repos.Orders.Insert(ctx, nil, o))
	co := &models.CustomizedOrder{UserEmail: o.UserEmail, CustomizationDetails: "text", OrderID: &o.ID}
	require.NoError(t, repos.CustomizedOrders.Create(ctx, nil, co))
	rv := &models.Review{OrderID: &o.ID, UserEmail: o.UserEmail, UserName: "A", Rating: 5}
	require.NoError(t, repos.Reviews.Create(ctx, rv))

	require.NoError(t, repos.Orders.HardDelete(ctx, o.ID))

	got, err := repos.CustomizedOrders.GetByID(ctx, co.ID)
	require.NoError(t, err)
	assert.Nil(t, got.OrderID)

	_, err = repos.Orders.GetByID(ctx, nil, o.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestOrders_UpdateMissing(t *testing.T) {
	repos := repository.New(dbtest.New(t))
	st := models.StatusShipped
	_, err := repos.Orders.Update(context.Background(), uuid.NewString(), repository.OrderUpdate{Status: &st})
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestCustomized_FindUnlinkedAndLink(t *testing.T) {
	repos := repository.New(dbtest.New(t))
	ctx := context.Background()

	pid := "prod-1"
	co := &models.CustomizedOrder{UserEmail: "Maker@Example.com", ProductID: &pid, CustomizationDetails: "blue"}
	require.NoError(t, repos.CustomizedOrders.Create(ctx, nil, co))

	found, err := repos.CustomizedOrders.FindUnlinked(ctx, nil, "maker@example.com", &pid, nil)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, co.ID, found.ID)

	o := newOrder("3L-20260101-5001")
	require.NoError(t, repos.Orders.Insert(ctx, nil, o))
	found.OrderID = &o.ID
	found.CustomizationDetails = "red"
	require.NoError(t, repos.CustomizedOrders.LinkToOrder(ctx, nil, found))

	again, err := repos.CustomizedOrders.FindUnlinked(ctx, nil, "maker@example.com", &pid, nil)
	require.NoError(t, err)
	assert.Nil(t, again)

	n, err := repos.CustomizedOrders.CountForOrder(ctx, nil, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// a linked record keeps its order
	other := "someone-else"
	found.OrderID = &other
	err = repos.CustomizedOrders.LinkToOrder(ctx, nil, found)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestProducts_SlugIsUnique(t *testing.T) {
	repos := repository.New(dbtest.New(t))
	ctx := context.Background()

	a := &models.Product{Name: "Low Poly Fox", Price: 799, IsActive: true}
	b := &models.Product{Name: "Low-Poly fox!", Price: 899, IsActive: true}
	require.NoError(t, repos.Products.Create(ctx, a))
	require.NoError(t, repos.Products.Create(ctx, b))

	assert.Equal(t, "low-poly-fox", a.Slug)
	assert.Equal(t, "low-poly-fox-2", b.Slug)

	got, err := repos.Products.GetBySlug(ctx, "low-poly-fox-2")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	require.NoError(t, repos.Products.Delete(ctx, b.ID, false))
	_, err = repos.Products.GetBySlug(ctx, "low-poly-fox-2")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	list, total, err := repos.Products.List(ctx, repository.ProductFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, a.ID, list[0].ID)
}

func TestSettings_PutAndGet(t *testing.T) {
	repos := repository.New(dbtest.New(t))
	ctx := context.Background()

	_, err := repos.Settings.Put(ctx, repository.TableHomeContent, "hero", json.RawMessage(`{"title":"Print anything"}`))
	require.NoError(t, err)
	_, err = repos.Settings.Put(ctx, repository.TableHomeContent, "hero", json.RawMessage(`{"title":"Print everything"}`))
	require.NoError(t, err)

	got, err := repos.Settings.Get(ctx, repository.TableHomeContent, "hero")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Print everything"}`, string(got.Value.V))

	_, err = repos.Settings.Get(ctx, repository.TableSettings, "hero")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	_, err = repos.Settings.Get(ctx, "users", "x")
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestOutbox_ClaimOnceAndRetry(t *testing.T) {
	repos := repository.New(dbtest.New(t))
	ctx := context.Background()

	task, err := repos.Outbox.Enqueue(ctx, nil, models.TaskOrderConfirmationEmail, models.OrderTaskPayload{OrderID: "o1"})
	require.NoError(t, err)

	at := time.Now().Add(time.Second)
	claimed, err := repos.Outbox.ClaimDue(ctx, at, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, 1, claimed[0].Attempts)

	again, err := repos.Outbox.ClaimDue(ctx, at, 10, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, again)

	require.NoError(t, repos.Outbox.Retry(ctx, task.ID, errors.New("smtp down"), at.Add(time.Hour)))
	notYet, err := repos.Outbox.ClaimDue(ctx, at, 10, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, notYet)

	later, err := repos.Outbox.ClaimDue(ctx, at.Add(2*time.Hour), 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, later, 1)
	require.NoError(t, repos.Outbox.MarkDone(ctx, task.ID))

	counts, err := repos.Outbox.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[models.TaskDone])
}

func TestOutbox_MarkDoneKeepsConcurrentRetry(t *testing.T) {
	repos := repository.New(dbtest.New(t))
	ctx := context.Background()

	task, err := repos.Outbox.Enqueue(ctx, nil, models.TaskMaterializeCustomization, models.OrderTaskPayload{OrderID: "o3"})
	require.NoError(t, err)
	claimed, err := repos.Outbox.ClaimDue(ctx, time.Now().Add(time.Second), 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	// the consumer settles the failure before the relay records the publish
	require.NoError(t, repos.Outbox.Retry(ctx, task.ID, errors.New("no matching product"), time.Now().Add(time.Minute)))
	require.NoError(t, repos.Outbox.MarkDone(ctx, task.ID))

	stored, err := repos.Outbox.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskPending, stored.Status)
	require.NotNil(t, stored.LastError)
	assert.Equal(t, "no matching product", *stored.LastError)
}

func TestOutbox_ExpiredLeaseIsReclaimed(t *testing.T) {
	repos := repository.New(dbtest.New(t))
	ctx := context.Background()

	_, err := repos.Outbox.Enqueue(ctx, nil, models.TaskMaterializeCustomization, models.OrderTaskPayload{OrderID: "o2"})
	require.NoError(t, err)

	at := time.Now().Add(time.Second)
	first, err := repos.Outbox.ClaimDue(ctx, at, 10, time.Second)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := repos.Outbox.ClaimDue(ctx, at.Add(5*time.Second), 10, time.Second)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, 2, second[0].Attempts)
}
