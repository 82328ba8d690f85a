package models

import (
	"math"
	"strings"
	"time"
)

// PaymentStatus is the payment state of an order.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// IsValid checks the value against the fixed enumeration.
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// OrderStatus is the fulfillment state of an order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
	StatusConfirmed  OrderStatus = "confirmed"
)

// IsValid checks the value against the fixed enumeration.
func (s OrderStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled, StatusConfirmed:
		return true
	}
	return false
}

// PaymentMethods is the allow-list accepted on order payloads.
var PaymentMethods = []string{"razorpay", "cod", "upi", "card", "netbanking", "wallet"}

// ShippingAddress is the structured delivery address. All five fields are required.
type ShippingAddress struct {
	FlatNumber string `json:"flat_number" validate:"notblank"`
	Colony     string `json:"colony" validate:"notblank"`
	City       string `json:"city" validate:"notblank"`
	State      string `json:"state" validate:"notblank"`
	Pincode    string `json:"pincode" validate:"notblank,pincode"`
}

// Customization is the free-form follow-up attached to a line item that needs manual work.
type Customization struct {
	Details   string `json:"details"`
	DriveLink string `json:"drive_link,omitempty"`
}

// OrderItem is one line of an order as submitted by the client and stored on the order.
type OrderItem struct {
	ProductID     *string        `json:"product_id,omitempty"`
	ProductName   string         `json:"product_name" validate:"notblank"`
	Price         *float64       `json:"price" validate:"required,gte=0"`
	Quantity      int            `json:"quantity" validate:"gte=1"`
	IsCustomized  bool           `json:"is_customized,omitempty"`
	Customization *Customization `json:"customization,omitempty"`
}

// NeedsCustomization reports whether the line must produce a customized order record.
func (i OrderItem) NeedsCustomization() bool {
	if i.IsCustomized {
		return true
	}
	return i.Customization != nil && strings.TrimSpace(i.Customization.Details) != ""
}

// UnitPrice returns the price or zero when absent.
func (i OrderItem) UnitPrice() float64 {
	if i.Price == nil {
		return 0
	}
	return *i.Price
}

// OrderRequest is the order payload accepted by create-order and verify-payment.
type OrderRequest struct {
	UserID          *string          `json:"user_id,omitempty"`
	UserEmail       string           `json:"user_email" validate:"required,basic_email"`
	UserName        string           `json:"user_name,omitempty"`
	UserPhone       string           `json:"user_phone,omitempty" validate:"omitempty,in_phone"`
	ShippingAddress *ShippingAddress `json:"shipping_address" validate:"required"`
	Items           []OrderItem      `json:"items" validate:"required,min=1,dive"`
	Subtotal        *float64         `json:"subtotal,omitempty" validate:"omitempty,gte=0,lte=1000000000000"`
	Tax             *float64         `json:"tax,omitempty" validate:"omitempty,gte=0,lte=1000000000000"`
	ShippingFee     *float64         `json:"shipping_fee,omitempty" validate:"omitempty,gte=0,lte=1000000000000"`
	TotalAmount     *float64         `json:"total_amount" validate:"required,gt=0,lte=1000000000000"`
	PaymentMethod   string           `json:"payment_method,omitempty" validate:"omitempty,payment_method"`
	PaymentStatus   string           `json:"payment_status,omitempty"`
	OrderNotes      string           `json:"order_notes,omitempty"`
}

// Order is the model for the 'orders' table.
// Monetary fields are whole currency units; see RoundAmount.
type Order struct {
	ID                string                `json:"id" db:"id"`
	OrderNumber       string                `json:"order_number" db:"order_number"`
	UserID            *string               `json:"user_id,omitempty" db:"user_id"`
	UserEmail         string                `json:"user_email" db:"user_email"`
	UserName          *string               `json:"user_name,omitempty" db:"user_name"`
	UserPhone         *string               `json:"user_phone,omitempty" db:"user_phone"`
	ShippingAddress   JSON[ShippingAddress] `json:"shipping_address" db:"shipping_address"`
	Items             JSON[[]OrderItem]     `json:"items" db:"items"`
	Subtotal          int64                 `json:"subtotal" db:"subtotal"`
	Tax               int64                 `json:"tax" db:"tax"`
	ShippingFee       int64                 `json:"shipping_fee" db:"shipping_fee"`
	TotalAmount       int64                 `json:"total_amount" db:"total_amount"`
	PaymentMethod     *string               `json:"payment_method,omitempty" db:"payment_method"`
	PaymentStatus     PaymentStatus         `json:"payment_status" db:"payment_status"`
	Status            OrderStatus           `json:"status" db:"status"`
	RazorpayOrderID   *string               `json:"razorpay_order_id,omitempty" db:"razorpay_order_id"`
	RazorpayPaymentID *string               `json:"razorpay_payment_id,omitempty" db:"razorpay_payment_id"`
	PaymentError      *string               `json:"payment_error,omitempty" db:"payment_error"`
	OrderNotes        *string               `json:"order_notes,omitempty" db:"order_notes"`
	TrackingNumber    *string               `json:"tracking_number,omitempty" db:"tracking_number"`
	CreatedAt         time.Time             `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at" db:"updated_at"`
	DeletedAt         *time.Time            `json:"deleted_at,omitempty" db:"deleted_at"`
}

// MaxAmount is the largest monetary value an order field may carry, in whole units.
const MaxAmount = 1e12

// RoundAmount rounds a monetary input to whole units. Nil, NaN and values outside
// ±MaxAmount count as zero.
func RoundAmount(v *float64) int64 {
	if v == nil || math.IsNaN(*v) || math.Abs(*v) > MaxAmount {
		return 0
	}
	return int64(math.Round(*v))
}

// NewOrderFromRequest copies a validated request into an Order row.
// Identity, number and statuses are left for the caller.
func NewOrderFromRequest(req *OrderRequest) *Order {
	o := &Order{
		UserID:      req.UserID,
		UserEmail:   req.UserEmail,
		UserName:    optional(req.UserName),
		UserPhone:   optional(req.UserPhone),
		Items:       JSON[[]OrderItem]{V: req.Items},
		Subtotal:    RoundAmount(req.Subtotal),
		Tax:         RoundAmount(req.Tax),
		ShippingFee: RoundAmount(req.ShippingFee),
		TotalAmount: RoundAmount(req.TotalAmount),
		OrderNotes:  optional(req.OrderNotes),
	}
	if req.ShippingAddress != nil {
		o.ShippingAddress = JSON[ShippingAddress]{V: *req.ShippingAddress}
	}
	if req.PaymentMethod != "" {
		o.PaymentMethod = optional(req.PaymentMethod)
	}
	return o
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
