// Package email sends order notifications. Delivery goes through a Sender; the default
// sender writes the message to the structured log.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"

	"go.uber.org/zap"

	"github.com/3lprints/storefront/internal/models"
)

// Message is a rendered notification.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender records messages instead of delivering them.
type LogSender struct {
	Log *zap.Logger
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	s.Log.Info("email queued for delivery",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("body_bytes", len(msg.Body)),
	)
	return nil
}

var confirmationTmpl = template.Must(template.New("confirmation").Parse(
	`Hi {{if .UserName}}{{.UserName}}{{else}}there{{end}},

{{if .Paid}}We have received your payment for order {{.OrderNumber}}.{{else}}We have received your order {{.OrderNumber}}. It will be confirmed once payment completes.{{end}}

{{range .Items}}- {{.ProductName}} x{{.Quantity}}
{{end}}
Total: Rs. {{.Total}}
Ship to: {{.Address}}

Thank you for shopping with 3L Prints.
`))

type confirmationData struct {
	UserName    string
	OrderNumber string
	Paid        bool
	Items       []models.OrderItem
	Total       int64
	Address     string
}

// Notifier renders and sends order emails.
type Notifier struct {
	orders func(ctx context.Context, id string) (*models.Order, error)
	sender Sender
	log    *zap.Logger
}

func NewNotifier(orders func(ctx context.Context, id string) (*models.Order, error), sender Sender, log *zap.Logger) *Notifier {
	return &Notifier{orders: orders, sender: sender, log: log}
}

// HandleTask is the outbox handler for email.order_confirmation.
func (n *Notifier) HandleTask(ctx context.Context, task models.OutboxTask) error {
	var p models.OrderTaskPayload
	if err := json.Unmarshal(task.Payload.V, &p); err != nil {
		return fmt.Errorf("decode email payload: %w", err)
	}
	o, err := n.orders(ctx, p.OrderID)
	if err != nil {
		return err
	}
	msg, err := OrderConfirmation(o)
	if err != nil {
		return err
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send confirmation for %s: %w", o.OrderNumber, err)
	}
	return nil
}

// OrderConfirmation renders the confirmation for o.
func OrderConfirmation(o *models.Order) (Message, error) {
	addr := o.ShippingAddress.V
	data := confirmationData{
		OrderNumber: o.OrderNumber,
		Paid:        o.PaymentStatus == models.PaymentPaid,
		Items:       o.Items.V,
		Total:       o.TotalAmount,
		Address:     fmt.Sprintf("%s, %s, %s, %s %s", addr.FlatNumber, addr.Colony, addr.City, addr.State, addr.Pincode),
	}
	if o.UserName != nil {
		data.UserName = *o.UserName
	}

	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, data); err != nil {
		return Message{}, fmt.Errorf("render confirmation: %w", err)
	}

	subject := "Order received: " + o.OrderNumber
	if data.Paid {
		subject = "Order confirmed: " + o.OrderNumber
	}
	return Message{To: o.UserEmail, Subject: subject, Body: buf.String()}, nil
}
