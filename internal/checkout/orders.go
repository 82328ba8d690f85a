package checkout

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/3lprints/storefront/internal/apperrors"
	"github.com/3lprints/storefront/internal/database"
	"github.com/3lprints/storefront/internal/models"
	"github.com/3lprints/storefront/internal/sanitize"
	"github.com/3lprints/storefront/internal/validation"
)

// CreateOrder stores a pre-payment order as pending/pending. A client-supplied
// payment_status is ignored.
func (s *Service) CreateOrder(ctx context.Context, req *models.OrderRequest) (*models.Order, error) {
	// 1. --- Sanitize & Validate ---
	if req == nil {
		return nil, apperrors.Validation("order data is required")
	}
	sanitize.OrderRequest(req)
	if res := validation.ValidateOrder(req); !res.Valid {
		return nil, apperrors.Validation("invalid order data", res.Errors...)
	}

	// 2. --- Insert With Number Retry ---
	var lastErr error
	for attempt := 1; attempt <= maxInsertAttempts; attempt++ {
		o := models.NewOrderFromRequest(req)
		o.ID = uuid.NewString()
		o.OrderNumber = s.numbers.Generate(ctx)
		o.PaymentStatus = models.PaymentPending
		o.Status = models.StatusPending

		err := s.db.InTx(ctx, "create order", func(tx database.Querier) error {
			if err := s.repos.Orders.Insert(ctx, tx, o); err != nil {
				return err
			}
			return s.enqueueOrderTasks(ctx, tx, o)
		})
		if err == nil {
			s.afterCommit()
			s.log.Info("Order created",
				zap.String("order_id", o.ID),
				zap.String("order_number", o.OrderNumber),
				zap.Int64("total_amount", o.TotalAmount),
			)
			return o, nil
		}
		lastErr = err
		if !apperrors.IsUniqueViolation(err) {
			return nil, err
		}
		s.log.Warn("order number collision, regenerating", zap.String("order_number", o.OrderNumber), zap.Int("attempt", attempt))
	}
	return nil, lastErr
}

// UpdatePaymentStatus records a client-reported payment outcome (typically a failure or
// a pending retry). Only a verified signature may mark an order paid, and settled orders
// are immutable here.
func (s *Service) UpdatePaymentStatus(ctx context.Context, orderID, status, paymentError string) (*models.Order, error) {
	// 1. --- Validate Input ---
	if !validation.ValidUUID(orderID) {
		return nil, apperrors.Validation("order_id must be a valid UUID")
	}
	if !validation.ValidPaymentStatus(status) {
		return nil, apperrors.Validation("invalid payment_status", "payment_status must be one of pending, paid, failed, refunded")
	}
	if models.PaymentStatus(status) == models.PaymentPaid {
		return nil, apperrors.Authorization("payment status 'paid' can only be set by a verified payment")
	}

	// 2. --- Load & Guard ---
	o, err := s.repos.Orders.GetByID(ctx, nil, orderID)
	if err != nil {
		return nil, err
	}
	if o.DeletedAt != nil {
		return nil, apperrors.NotFound("order", orderID)
	}
	if o.PaymentStatus == models.PaymentPaid || o.PaymentStatus == models.PaymentRefunded {
		s.log.Warn("refused payment status change on settled order",
			zap.String("order_id", orderID),
			zap.String("current", string(o.PaymentStatus)),
			zap.String("requested", status),
		)
		return nil, apperrors.Authorization("order payment is already settled")
	}

	// 3. --- Update ---
	var errPtr *string
	if msg := sanitize.String(paymentError, 500); strings.TrimSpace(msg) != "" {
		errPtr = &msg
	}
	if err := s.repos.Orders.SetPaymentStatus(ctx, orderID, models.PaymentStatus(status), errPtr); err != nil {
		return nil, err
	}
	o.PaymentStatus = models.PaymentStatus(status)
	o.PaymentError = errPtr
	return o, nil
}
