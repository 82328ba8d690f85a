package email

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/3lprints/storefront/internal/models"
)

type MockSender struct {
	SendFunc func(ctx context.Context, msg Message) error
}

func (m *MockSender) Send(ctx context.Context, msg Message) error {
	return m.SendFunc(ctx, msg)
}

func sampleOrder(status models.PaymentStatus) *models.Order {
	name := "Kiran"
	price := 350.0
	return &models.Order{
		ID:          "0b8f9c2e-6d0e-4c53-9d0c-2a7f4f6b1c11",
		OrderNumber: "3L-20260314-0042",
		UserEmail:   "kiran@example.com",
		UserName:    &name,
		ShippingAddress: models.JSON[models.ShippingAddress]{V: models.ShippingAddress{
			FlatNumber: "7", Colony: "Anna Nagar", City: "Chennai", State: "TN", Pincode: "600040",
		}},
		Items:         models.JSON[[]models.OrderItem]{V: []models.OrderItem{{ProductName: "Vase", Price: &price, Quantity: 2}}},
		TotalAmount:   700,
		PaymentStatus: status,
	}
}

func TestOrderConfirmation(t *testing.T) {
	msg, err := OrderConfirmation(sampleOrder(models.PaymentPaid))
	require.NoError(t, err)
	assert.Equal(t, "kiran@example.com", msg.To)
	assert.Equal(t, "Order confirmed: 3L-20260314-0042", msg.Subject)
	assert.Contains(t, msg.Body, "Hi Kiran")
	assert.Contains(t, msg.Body, "Vase x2")
	assert.Contains(t, msg.Body, "Rs. 700")
	assert.Contains(t, msg.Body, "600040")

	pending, err := OrderConfirmation(sampleOrder(models.PaymentPending))
	require.NoError(t, err)
	assert.Equal(t, "Order received: 3L-20260314-0042", pending.Subject)
	assert.Contains(t, pending.Body, "once payment completes")
}

func TestNotifier_HandleTask(t *testing.T) {
	o := sampleOrder(models.PaymentPaid)
	var sent []Message
	sender := &MockSender{SendFunc: func(_ context.Context, msg Message) error {
		sent = append(sent, msg)
		return nil
	}}
	loader := func(_ context.Context, id string) (*models.Order, error) {
		assert.Equal(t, o.ID, id)
		return o, nil
	}
	n := NewNotifier(loader, sender, zap.NewNop())

	raw, _ := json.Marshal(models.OrderTaskPayload{OrderID: o.ID, OrderNumber: o.OrderNumber})
	task := models.OutboxTask{Kind: models.TaskOrderConfirmationEmail, Payload: models.JSON[json.RawMessage]{V: raw}}
	require.NoError(t, n.HandleTask(context.Background(), task))
	require.Len(t, sent, 1)
	assert.Equal(t, o.UserEmail, sent[0].To)

	sender.SendFunc = func(context.Context, Message) error { return errors.New("smtp down") }
	assert.ErrorContains(t, n.HandleTask(context.Background(), task), "smtp down")
}

func TestNotifier_BadPayload(t *testing.T) {
	n := NewNotifier(nil, LogSender{Log: zap.NewNop()}, zap.NewNop())
	err := n.HandleTask(context.Background(), models.OutboxTask{Payload: models.JSON[json.RawMessage]{V: json.RawMessage(`"x"`)}})
	assert.ErrorContains(t, err, "decode email payload")
}
