package checkout

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/3lprints/storefront/internal/apperrors"
	"github.com/3lprints/storefront/internal/database"
	"github.com/3lprints/storefront/internal/models"
	"github.com/3lprints/storefront/internal/razorpay"
	"github.com/3lprints/storefront/internal/sanitize"
	"github.com/3lprints/storefront/internal/validation"
)

// State is a step of the verification pipeline.
type State string

const (
	StateReceived               State = "RECEIVED"
	StateSignatureChecked       State = "SIGNATURE_CHECKED"
	StateOrderMaterialized      State = "ORDER_MATERIALIZED"
	StateSecondaryRecordsQueued State = "SECONDARY_RECORDS_QUEUED"
	StateDone                   State = "DONE"

	StateRejectedInvalidInput  State = "REJECTED_INVALID_INPUT"
	StateRejectedBadSignature  State = "REJECTED_BAD_SIGNATURE"
	StateFailedMaterialization State = "FAILED_MATERIALIZATION"
)

const defaultPaymentMethod = "razorpay"

// ErrInvalidSignature is returned when the gateway signature does not match.
var ErrInvalidSignature = &apperrors.AppError{
	Kind:    apperrors.KindValidation,
	Message: "payment signature verification failed",
	Status:  http.StatusBadRequest,
	Code:    "INVALID_SIGNATURE",
}

// VerifyRequest is the browser's post-checkout callback. Exactly one of OrderData
// (create the order now) or OrderID (mark an existing order paid) must be set.
type VerifyRequest struct {
	RazorpayOrderID   string               `json:"razorpay_order_id"`
	RazorpayPaymentID string               `json:"razorpay_payment_id"`
	RazorpaySignature string               `json:"razorpay_signature"`
	OrderData         *models.OrderRequest `json:"order_data,omitempty"`
	OrderID           string               `json:"order_id,omitempty"`
}

// VerifyResult is the outcome of a successful verification.
type VerifyResult struct {
	Success          bool   `json:"success"`
	Verified         bool   `json:"verified"`
	Message          string `json:"message"`
	PaymentID        string `json:"payment_id"`
	OrderID          string `json:"order_id"`
	OrderNumber      string `json:"order_number"`
	AlreadyProcessed bool   `json:"already_processed,omitempty"`

	State State         `json:"-"`
	Order *models.Order `json:"-"`
}

// VerifyPayment checks the gateway signature and then records the payment, either by
// creating the order from OrderData or by marking OrderID paid. Nothing touches the
// orders table before the signature is confirmed.
func (s *Service) VerifyPayment(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	log := s.log.With(
		zap.String("razorpay_order_id", req.RazorpayOrderID),
		zap.String("razorpay_payment_id", req.RazorpayPaymentID),
	)

	// 1. --- Check Input Shape ---
	if err := checkVerifyInput(req); err != nil {
		log.Info("verification rejected", zap.String("state", string(StateRejectedInvalidInput)), zap.Error(err))
		return nil, err
	}

	// 2. --- Verify Signature ---
	if !razorpay.VerifySignature(s.gatewaySecret, req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		log.Warn("payment signature mismatch", zap.String("state", string(StateRejectedBadSignature)))
		return nil, ErrInvalidSignature
	}

	// 3. --- Materialize ---
	if req.OrderData != nil {
		return s.verifyNewOrder(ctx, log, req)
	}
	return s.verifyExistingOrder(ctx, log, req)
}

func checkVerifyInput(req VerifyRequest) error {
	var missing []string
	if strings.TrimSpace(req.RazorpayOrderID) == "" {
		missing = append(missing, "razorpay_order_id is required")
	}
	if strings.TrimSpace(req.RazorpayPaymentID) == "" {
		missing = append(missing, "razorpay_payment_id is required")
	}
	if strings.TrimSpace(req.RazorpaySignature) == "" {
		missing = append(missing, "razorpay_signature is required")
	}
	if len(missing) > 0 {
		return apperrors.Validation("missing payment verification fields", missing...)
	}

	hasID := strings.TrimSpace(req.OrderID) != ""
	switch {
	case req.OrderData == nil && !hasID:
		return apperrors.Validation("either order_data or order_id is required")
	case req.OrderData != nil && hasID:
		return apperrors.Validation("order_data and order_id are mutually exclusive")
	}
	return nil
}

func (s *Service) verifyNewOrder(ctx context.Context, log *zap.Logger, req VerifyRequest) (*VerifyResult, error) {
	data := req.OrderData
	sanitize.OrderRequest(data)
	if res := validation.ValidateOrder(data); !res.Valid {
		log.Info("verification rejected", zap.String("state", string(StateRejectedInvalidInput)), zap.Strings("errors", res.Errors))
		return nil, apperrors.Validation("invalid order data", res.Errors...)
	}

	existing, err := s.repos.Orders.FindByGatewayPair(ctx, nil, req.RazorpayOrderID, req.RazorpayPaymentID)
	if err != nil {
		return nil, s.materializationFailed(log, err)
	}
	if existing != nil {
		log.Info("payment already processed", zap.String("order_id", existing.ID))
		return alreadyProcessed(req, existing), nil
	}

	if !s.db.VerifySchemaShape(ctx, "orders", "razorpay_order_id", "razorpay_payment_id", "payment_status") {
		return nil, s.materializationFailed(log, database.SchemaMismatch("orders"))
	}

	method := data.PaymentMethod
	if method == "" {
		method = defaultPaymentMethod
	}

	var lastErr error
	for attempt := 1; attempt <= maxInsertAttempts; attempt++ {
		o := models.NewOrderFromRequest(data)
		o.ID = uuid.NewString()
		o.OrderNumber = s.numbers.Generate(ctx)
		o.PaymentStatus = models.PaymentPaid
		o.Status = models.StatusConfirmed
		o.PaymentMethod = &method
		o.RazorpayOrderID = &req.RazorpayOrderID
		o.RazorpayPaymentID = &req.RazorpayPaymentID

		err := s.db.InTx(ctx, "materialize paid order", func(tx database.Querier) error {
			if err := s.repos.Orders.Insert(ctx, tx, o); err != nil {
				return err
			}
			return s.enqueueOrderTasks(ctx, tx, o)
		})
		if err == nil {
			return s.done(log, req, o), nil
		}
		lastErr = err

		if !apperrors.IsUniqueViolation(err) {
			return nil, s.materializationFailed(log, err)
		}
		holder, findErr := s.repos.Orders.FindByGatewayPair(ctx, nil, req.RazorpayOrderID, req.RazorpayPaymentID)
		if findErr != nil {
			return nil, s.materializationFailed(log, findErr)
		}
		if holder != nil {
			log.Info("payment already processed by concurrent request", zap.String("order_id", holder.ID))
			return alreadyProcessed(req, holder), nil
		}
		log.Warn("order number collision, regenerating", zap.String("order_number", o.OrderNumber), zap.Int("attempt", attempt))
	}
	return nil, s.materializationFailed(log, lastErr)
}

func (s *Service) verifyExistingOrder(ctx context.Context, log *zap.Logger, req VerifyRequest) (*VerifyResult, error) {
	if !validation.ValidUUID(req.OrderID) {
		return nil, apperrors.Validation("order_id must be a valid UUID")
	}

	o, err := s.repos.Orders.GetByID(ctx, nil, req.OrderID)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return nil, err
		}
		return nil, s.materializationFailed(log, err)
	}
	if o.DeletedAt != nil {
		return nil, apperrors.NotFound("order", req.OrderID)
	}

	if o.PaymentStatus == models.PaymentPaid {
		if deref(o.RazorpayOrderID) == req.RazorpayOrderID && deref(o.RazorpayPaymentID) == req.RazorpayPaymentID {
			return alreadyProcessed(req, o), nil
		}
		log.Warn("verified payment for an order paid with different gateway ids", zap.String("order_id", o.ID))
		return nil, apperrors.Authorization("order is already paid")
	}

	method := deref(o.PaymentMethod)
	if method == "" {
		method = defaultPaymentMethod
	}

	err = s.db.InTx(ctx, "mark order paid", func(tx database.Querier) error {
		if err := s.repos.Orders.MarkPaid(ctx, tx, o.ID, method, req.RazorpayOrderID, req.RazorpayPaymentID); err != nil {
			return err
		}
		return s.enqueueOrderTasks(ctx, tx, o)
	})
	if err != nil {
		if apperrors.IsUniqueViolation(err) {
			holder, findErr := s.repos.Orders.FindByGatewayPair(ctx, nil, req.RazorpayOrderID, req.RazorpayPaymentID)
			if findErr == nil && holder != nil {
				log.Info("payment already processed", zap.String("order_id", holder.ID))
				return alreadyProcessed(req, holder), nil
			}
		}
		return nil, s.materializationFailed(log, err)
	}

	o.PaymentStatus = models.PaymentPaid
	o.Status = models.StatusConfirmed
	o.PaymentMethod = &method
	o.RazorpayOrderID = &req.RazorpayOrderID
	o.RazorpayPaymentID = &req.RazorpayPaymentID
	o.PaymentError = nil
	return s.done(log, req, o), nil
}

// done runs after the order and its phase-2 tasks have committed together.
func (s *Service) done(log *zap.Logger, req VerifyRequest, o *models.Order) *VerifyResult {
	log.Info("payment verified",
		zap.String("state", string(StateSecondaryRecordsQueued)),
		zap.String("order_id", o.ID),
		zap.String("order_number", o.OrderNumber),
	)
	s.afterCommit()
	return &VerifyResult{
		Success:     true,
		Verified:    true,
		Message:     "Payment verified successfully",
		PaymentID:   req.RazorpayPaymentID,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		State:       StateDone,
		Order:       o,
	}
}

func alreadyProcessed(req VerifyRequest, o *models.Order) *VerifyResult {
	return &VerifyResult{
		Success:          true,
		Verified:         true,
		Message:          "Payment already processed",
		PaymentID:        req.RazorpayPaymentID,
		OrderID:          o.ID,
		OrderNumber:      o.OrderNumber,
		AlreadyProcessed: true,
		State:            StateDone,
		Order:            o,
	}
}

// materializationFailed logs a verified-but-unrecorded payment for manual reconciliation and
// returns a 500 that keeps the driver code and hint.
func (s *Service) materializationFailed(log *zap.Logger, err error) error {
	code, hint := "MATERIALIZATION_FAILED", ""
	if appErr, ok := apperrors.As(err); ok {
		if appErr.Code != "" {
			code = appErr.Code
		}
		hint = appErr.Hint
	}
	log.Error("verified payment could not be recorded, manual reconciliation required",
		zap.String("state", string(StateFailedMaterialization)),
		zap.String("code", code),
		zap.String("hint", hint),
		zap.Error(err),
	)
	return &apperrors.AppError{
		Kind:    apperrors.KindDatabase,
		Message: "payment verified but the order could not be recorded; contact support with your payment id",
		Status:  http.StatusInternalServerError,
		Code:    code,
		Hint:    hint,
		Err:     fmt.Errorf("materialize order: %w", err),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
