package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/3lprints/storefront/internal/models"
)

func f(v float64) *float64 { return &v }

func validOrder() *models.OrderRequest {
	return &models.OrderRequest{
		UserEmail: "buyer@example.com",
		UserPhone: "+91 98765-43210",
		ShippingAddress: &models.ShippingAddress{
			FlatNumber: "12B", Colony: "MG Road", City: "Pune", State: "MH", Pincode: "411001",
		},
		Items:         []models.OrderItem{{ProductName: "Dragon Vase", Price: f(499.5), Quantity: 2}},
		TotalAmount:   f(999),
		PaymentMethod: "razorpay",
	}
}

func joined(r Result) string { return strings.Join(r.Errors, "; ") }

func TestValidateOrder_Valid(t *testing.T) {
	res := ValidateOrder(validOrder())
	assert.True(t, res.Valid, joined(res))
	assert.Empty(t, res.Errors)
}

func TestValidateOrder_Nil(t *testing.T) {
	res := ValidateOrder(nil)
	assert.False(t, res.Valid)
	assert.NotEmpty(t, res.Errors)
}

func TestValidateOrder_Rules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *models.OrderRequest)
		want   string
	}{
		{"missing email", func(o *models.OrderRequest) { o.UserEmail = "" }, "user_email"},
		{"bad email", func(o *models.OrderRequest) { o.UserEmail = "nobody@nowhere" }, "user_email"},
		{"missing address", func(o *models.OrderRequest) { o.ShippingAddress = nil }, "shipping_address"},
		{"blank city", func(o *models.OrderRequest) { o.ShippingAddress.City = "   " }, "shipping_address.city"},
		{"bad pincode", func(o *models.OrderRequest) { o.ShippingAddress.Pincode = "4110" }, "pincode"},
		{"no items", func(o *models.OrderRequest) { o.Items = nil }, "items"},
		{"empty items", func(o *models.OrderRequest) { o.Items = []models.OrderItem{} }, "items"},
		{"item without name", func(o *models.OrderRequest) { o.Items[0].ProductName = "" }, "items[0].product_name"},
		{"item without price", func(o *models.OrderRequest) { o.Items[0].Price = nil }, "items[0].price"},
		{"negative price", func(o *models.OrderRequest) { o.Items[0].Price = f(-1) }, "items[0].price"},
		{"zero quantity", func(o *models.OrderRequest) { o.Items[0].Quantity = 0 }, "items[0].quantity"},
		{"missing total", func(o *models.OrderRequest) { o.TotalAmount = nil }, "total_amount"},
		{"zero total", func(o *models.OrderRequest) { o.TotalAmount = f(0) }, "total_amount"},
		{"total rounds to zero", func(o *models.OrderRequest) { o.TotalAmount = f(0.4) }, "total_amount must be at least 1"},
		{"huge total", func(o *models.OrderRequest) { o.TotalAmount = f(1e20) }, "total_amount must be at most"},
		{"negative tax", func(o *models.OrderRequest) { o.Tax = f(-5) }, "tax"},
		{"negative shipping", func(o *models.OrderRequest) { o.ShippingFee = f(-0.5) }, "shipping_fee"},
		{"huge subtotal", func(o *models.OrderRequest) { o.Subtotal = f(5e15) }, "subtotal"},
		{"landline phone", func(o *models.OrderRequest) { o.UserPhone = "020-2612345" }, "user_phone"},
		{"unknown method", func(o *models.OrderRequest) { o.PaymentMethod = "bitcoin" }, "payment_method"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := validOrder()
			tt.mutate(o)
			res := ValidateOrder(o)
			assert.False(t, res.Valid)
			assert.Contains(t, joined(res), tt.want)
		})
	}
}

func TestValidateOrder_ReportsEveryViolation(t *testing.T) {
	o := validOrder()
	o.UserEmail = ""
	o.ShippingAddress.Pincode = "abc"
	o.TotalAmount = nil

	res := ValidateOrder(o)
	assert.False(t, res.Valid)
	assert.Len(t, res.Errors, 3)
}

func TestValidPhone(t *testing.T) {
	assert.True(t, ValidPhone("9876543210"))
	assert.True(t, ValidPhone("+919876543210"))
	assert.True(t, ValidPhone("91 98765 43210"))
	assert.False(t, ValidPhone("5876543210"))
	assert.False(t, ValidPhone("98765"))
}

func TestHelpers(t *testing.T) {
	assert.True(t, ValidUUID("7f1c2a0e-4b5d-4e7a-9c1b-2d3e4f5a6b7c"))
	assert.False(t, ValidUUID("order-1"))
	assert.True(t, ValidOrderStatus("shipped"))
	assert.False(t, ValidOrderStatus("lost"))
	assert.True(t, ValidPaymentStatus("refunded"))
	assert.False(t, ValidPaymentStatus("partially_paid"))
	assert.True(t, ValidPercentage(0))
	assert.True(t, ValidPercentage(100))
	assert.False(t, ValidPercentage(100.5))
	assert.False(t, ValidPercentage(-1))
}
