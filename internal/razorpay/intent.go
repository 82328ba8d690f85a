package razorpay

import (
	"context"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/3lprints/storefront/internal/apperrors"
)

const (
	CurrencyINR = "INR"
	// minimum chargeable amount in paise
	minMinorAmount  = 100
	maxReceiptBytes = 40
)

// Gateway is the part of the client the intent service needs.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
}

// Intent is a payment intent as returned to the browser checkout.
type Intent struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Receipt   string `json:"receipt"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

// IntentService creates gateway orders with bounded retries.
type IntentService struct {
	gateway     Gateway
	log         *zap.Logger
	timeout     time.Duration
	maxAttempts int
	backoff     time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewIntentService(gw Gateway, log *zap.Logger, timeout time.Duration, maxAttempts int, backoff time.Duration) *IntentService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	if backoff <= 0 {
		backoff = time.Second
	}
	return &IntentService{
		gateway:     gw,
		log:         log,
		timeout:     timeout,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		sleep:       sleepCtx,
	}
}

// CreateIntent converts amount (whole rupees, fractional allowed) to paise and asks the
// gateway for an order. Transient failures are retried with linear backoff.
func (s *IntentService) CreateIntent(ctx context.Context, amount float64, currency, receipt string, notes map[string]string) (*Intent, error) {
	// 1. --- Validate Input ---
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return nil, apperrors.Validation("amount must be a positive number")
	}
	if currency == "" {
		currency = CurrencyINR
	}
	currency = strings.ToUpper(currency)
	if currency != CurrencyINR {
		return nil, apperrors.Validation("currency must be INR")
	}
	minor := int64(math.Round(amount * 100))
	if minor < minMinorAmount {
		return nil, apperrors.Validation("amount must be at least 1 INR")
	}
	receipt = truncateReceipt(receipt)

	req := OrderRequest{Amount: minor, Currency: currency, Receipt: receipt, Notes: notes}

	// 2. --- Call Gateway With Retries ---
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
		order, err := s.gateway.CreateOrder(attemptCtx, req)
		cancel()

		if err == nil {
			return &Intent{
				ID:        order.ID,
				Amount:    order.Amount,
				Currency:  order.Currency,
				Receipt:   order.Receipt,
				Status:    order.Status,
				CreatedAt: order.CreatedAt,
			}, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		if !isTransient(err) {
			s.log.Warn("gateway rejected intent", zap.Int64("amount", minor), zap.Error(err))
			return nil, apperrors.Gateway("payment gateway rejected the request", err)
		}

		s.log.Warn("gateway call failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.maxAttempts),
			zap.Error(err),
		)
		if attempt < s.maxAttempts {
			if err := s.sleep(ctx, time.Duration(attempt)*s.backoff); err != nil {
				break
			}
		}
	}

	s.log.Error("gateway unavailable", zap.Int64("amount", minor), zap.Error(lastErr))
	return nil, apperrors.Gateway("payment gateway unavailable: "+lastErr.Error(), lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// truncateReceipt cuts receipt to the gateway's 40-byte limit without splitting a rune.
func truncateReceipt(receipt string) string {
	if len(receipt) <= maxReceiptBytes {
		return receipt
	}
	// last rune start within the limit
	cut := 0
	for i := range receipt {
		if i > maxReceiptBytes {
			break
		}
		cut = i
	}
	return receipt[:cut]
}
