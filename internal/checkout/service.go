// Package checkout owns the order lifecycle up to payment: pre-payment order creation,
// payment intents, signature verification with order materialisation, and status updates.
package checkout

import (
	"context"

	"go.uber.org/zap"

	"github.com/3lprints/storefront/internal/database"
	"github.com/3lprints/storefront/internal/models"
	"github.com/3lprints/storefront/internal/razorpay"
	"github.com/3lprints/storefront/internal/repository"
)

// maxInsertAttempts bounds order-number regeneration after a collision.
const maxInsertAttempts = 3

// NumberGenerator issues order numbers.
type NumberGenerator interface {
	Generate(ctx context.Context) string
}

// IntentCreator creates gateway payment intents.
type IntentCreator interface {
	CreateIntent(ctx context.Context, amount float64, currency, receipt string, notes map[string]string) (*razorpay.Intent, error)
}

// Service wires the pipeline dependencies.
type Service struct {
	db            *database.DB
	repos         *repository.Repositories
	numbers       NumberGenerator
	intents       IntentCreator
	gatewaySecret string
	log           *zap.Logger

	// afterCommit is called once phase-2 tasks are durable, to wake the relay early.
	afterCommit func()
}

func NewService(repos *repository.Repositories, numbers NumberGenerator, intents IntentCreator, gatewaySecret string, log *zap.Logger) *Service {
	return &Service{
		db:            repos.DB,
		repos:         repos,
		numbers:       numbers,
		intents:       intents,
		gatewaySecret: gatewaySecret,
		log:           log,
		afterCommit:   func() {},
	}
}

// OnTasksQueued registers a hook run after a transaction that enqueued phase-2 tasks commits.
func (s *Service) OnTasksQueued(fn func()) {
	if fn != nil {
		s.afterCommit = fn
	}
}

// CreateIntent forwards to the payment-intent service.
func (s *Service) CreateIntent(ctx context.Context, amount float64, currency, receipt string, notes map[string]string) (*razorpay.Intent, error) {
	return s.intents.CreateIntent(ctx, amount, currency, receipt, notes)
}

// enqueueOrderTasks writes the phase-2 tasks for o inside tx.
func (s *Service) enqueueOrderTasks(ctx context.Context, tx database.Querier, o *models.Order) error {
	payload := models.OrderTaskPayload{OrderID: o.ID, OrderNumber: o.OrderNumber}
	if needsCustomization(o.Items.V) {
		if _, err := s.repos.Outbox.Enqueue(ctx, tx, models.TaskMaterializeCustomization, payload); err != nil {
			return err
		}
	}
	_, err := s.repos.Outbox.Enqueue(ctx, tx, models.TaskOrderConfirmationEmail, payload)
	return err
}

func needsCustomization(items []models.OrderItem) bool {
	for _, it := range items {
		if it.NeedsCustomization() {
			return true
		}
	}
	return false
}
