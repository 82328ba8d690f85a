package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/3lprints/storefront/internal/apperrors"
	"github.com/3lprints/storefront/internal/checkout"
	"github.com/3lprints/storefront/internal/models"
	"github.com/3lprints/storefront/internal/sanitize"
	"github.com/3lprints/storefront/internal/validation"
)

//
// --- Checkout Handlers (Public) ---
//

// CreateOrder is the handler for POST /api/orders/create
func (h *Handlers) CreateOrder(c *gin.Context) {
	// 1. --- Bind JSON ---
	var req models.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badBody(c, err)
		return
	}

	// 2. --- Create Pending Order ---
	order, err := h.Checkout.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	// 3. --- Send Success Response ---
	c.JSON(http.StatusCreated, gin.H{
		"success":      true,
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"message":      "Order created successfully",
	})
}

type createIntentRequest struct {
	Amount   float64           `json:"amount" binding:"required"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes"`
}

// CreatePaymentIntent is the handler for POST /api/razorpay/create-order
func (h *Handlers) CreatePaymentIntent(c *gin.Context) {
	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badBody(c, err)
		return
	}

	notes := make(map[string]string, len(req.Notes))
	for k, v := range req.Notes {
		notes[sanitize.String(k, 40)] = sanitize.String(v, 256)
	}

	intent, err := h.Checkout.CreateIntent(c.Request.Context(), req.Amount, req.Currency, sanitize.String(req.Receipt, 40), notes)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "order": intent})
}

// VerifyPayment is the handler for POST /api/razorpay/verify-payment
func (h *Handlers) VerifyPayment(c *gin.Context) {
	// 1. --- Bind JSON ---
	var req checkout.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "verified": false, "error": "invalid request body"})
		return
	}

	// 2. --- Verify & Materialize ---
	res, err := h.Checkout.VerifyPayment(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, checkout.ErrInvalidSignature) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success":  false,
				"verified": false,
				"error":    checkout.ErrInvalidSignature.Message,
				"code":     checkout.ErrInvalidSignature.Code,
			})
			return
		}
		h.respondError(c, err)
		return
	}

	// 3. --- Send Success Response ---
	c.JSON(http.StatusOK, res)
}

type updatePaymentStatusRequest struct {
	OrderID       string `json:"order_id" binding:"required"`
	PaymentStatus string `json:"payment_status" binding:"required"`
	PaymentError  string `json:"payment_error"`
}

// UpdatePaymentStatus is the handler for POST /api/orders/update-payment-status
func (h *Handlers) UpdatePaymentStatus(c *gin.Context) {
	var req updatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badBody(c, err)
		return
	}

	order, err := h.Checkout.UpdatePaymentStatus(c.Request.Context(), req.OrderID, req.PaymentStatus, req.PaymentError)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"order_id":       order.ID,
		"payment_status": order.PaymentStatus,
	})
}

// TrackOrder is the handler for GET /api/orders/:order_number?email=
// Both the number and the purchaser's email must match.
func (h *Handlers) TrackOrder(c *gin.Context) {
	number := strings.TrimSpace(c.Param("order_number"))
	email := sanitize.Email(c.Query("email"))
	if number == "" || !validation.ValidEmail(email) {
		h.respondError(c, apperrors.Validation("order number and a valid email are required"))
		return
	}

	order, err := h.Repos.Orders.FindByNumberAndEmail(c.Request.Context(), number, email)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

// CreateCustomizedOrder is the handler for POST /api/customized-orders
// It captures a customization from the cart before the order exists.
func (h *Handlers) CreateCustomizedOrder(c *gin.Context) {
	var in models.CustomizedOrderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badBody(c, err)
		return
	}

	rec, err := h.Customization.Capture(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "customized_order": rec})
}
