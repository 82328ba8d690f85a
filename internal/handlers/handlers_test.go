package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/3lprints/storefront/internal/auth"
	"github.com/3lprints/storefront/internal/checkout"
	"github.com/3lprints/storefront/internal/customization"
	"github.com/3lprints/storefront/internal/database/dbtest"
	"github.com/3lprints/storefront/internal/handlers"
	"github.com/3lprints/storefront/internal/models"
	"github.com/3lprints/storefront/internal/ordernumber"
	"github.com/3lprints/storefront/internal/ratelimit"
	"github.com/3lprints/storefront/internal/razorpay"
	"github.com/3lprints/storefront/internal/repository"
	"github.com/3lprints/storefront/internal/routes"
)

const (
	testSecret        = "rzp_test_secret"
	testSessionSecret = "session-secret-for-tests"
	adminEmail        = "admin@3lprints.in"
	adminPassword     = "correct horse battery"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockIntents struct {
	CreateIntentFunc func(ctx context.Context, amount float64, currency, receipt string, notes map[string]string) (*razorpay.Intent, error)
}

func (m *MockIntents) CreateIntent(ctx context.Context, amount float64, currency, receipt string, notes map[string]string) (*razorpay.Intent, error) {
	if m.CreateIntentFunc != nil {
		return m.CreateIntentFunc(ctx, amount, currency, receipt, notes)
	}
	return &razorpay.Intent{ID: "order_mock", Amount: int64(amount * 100), Currency: "INR", Receipt: receipt, Status: "created"}, nil
}

type server struct {
	router *gin.Engine
	repos  *repository.Repositories
}

func newServer(t *testing.T) *server {
	t.Helper()
	return newServerBehind(t, nil)
}

// newServerBehind builds a server that honours X-Forwarded-For from proxies.
func newServerBehind(t *testing.T, proxies []string) *server {
	t.Helper()
	log := zap.NewNop()
	db := dbtest.New(t)
	repos := repository.New(db)
	gen := ordernumber.New("3L", ordernumber.NewDBSequence(db), repos.Orders, log)

	h := &handlers.Handlers{
		Repos:         repos,
		Checkout:      checkout.NewService(repos, gen, &MockIntents{}, testSecret, log),
		Customization: customization.NewService(repos, log),
		Auth:          auth.NewService(repos.Users, testSessionSecret, time.Hour, log),
		Log:           log,
		UploadDir:     t.TempDir(),
		BaseURL:       "http://localhost:8080",
	}
	router := routes.SetupRouter(h, routes.Options{
		AllowedOrigin:  "http://localhost:5173",
		TrustedProxies: proxies,
		Limiter:        ratelimit.New(),
	})
	return &server{router: router, repos: repos}
}

func (s *server) do(t *testing.T, method, path string, body any, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	return s.doForwarded(t, method, path, body, token, "")
}

// doForwarded sends the request from the fixed socket peer with forwardedFor in X-Forwarded-For.
func (s *server) doForwarded(t *testing.T, method, path string, body any, token, forwardedFor string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.10:4000"
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func (s *server) adminToken(t *testing.T) string {
	t.Helper()
	var pw models.Password
	require.NoError(t, pw.Set(adminPassword))
	require.NoError(t, s.repos.Users.Create(context.Background(), &models.User{
		Email: adminEmail, Role: models.RoleAdmin, PasswordHash: &pw.Hash,
	}))

	w, body := s.do(t, http.MethodPost, "/api/admin/login", gin.H{"email": adminEmail, "password": adminPassword}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return body["token"].(string)
}

func orderBody() gin.H {
	return gin.H{
		"user_email": "asha@example.com",
		"user_name":  "Asha",
		"user_phone": "+91 98765-43210",
		"shipping_address": gin.H{
			"flat_number": "12B", "colony": "Indiranagar", "city": "Bengaluru", "state": "Karnataka", "pincode": "560038",
		},
		"items":        []gin.H{{"product_name": "Dragon Lamp", "price": 499.6, "quantity": 1}},
		"subtotal":     499.6,
		"total_amount": 499.6,
	}
}

func TestCreateOrder(t *testing.T) {
	s := newServer(t)

	w, body := s.do(t, http.MethodPost, "/api/orders/create", orderBody(), "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, true, body["success"])
	assert.Regexp(t, `^3L-\d{8}-\d{4,6}$`, body["order_number"])

	o, err := s.repos.Orders.GetByID(context.Background(), nil, body["order_id"].(string))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, o.PaymentStatus)
	assert.EqualValues(t, 500, o.TotalAmount)
}

func TestCreateOrder_InvalidPincode(t *testing.T) {
	s := newServer(t)
	req := orderBody()
	req["shipping_address"].(gin.H)["pincode"] = "56003"

	w, body := s.do(t, http.MethodPost, "/api/orders/create", req, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, w.Body.String(), "pincode")
}

func TestCreateOrder_RateLimited(t *testing.T) {
	s := newServer(t)
	for i := 0; i < ratelimit.LimitCreateOrder; i++ {
		w, _ := s.do(t, http.MethodPost, "/api/orders/create", orderBody(), "")
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w, body := s.do(t, http.MethodPost, "/api/orders/create", orderBody(), "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", body["code"])
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestCreateOrder_RateLimitIgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	s := newServer(t)
	for i := 0; i < ratelimit.LimitCreateOrder; i++ {
		w, _ := s.doForwarded(t, http.MethodPost, "/api/orders/create", orderBody(), "", fmt.Sprintf("198.51.100.%d", i+1))
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w, _ := s.doForwarded(t, http.MethodPost, "/api/orders/create", orderBody(), "", "198.51.100.200")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestCreateOrder_RateLimitPerClientBehindTrustedProxy(t *testing.T) {
	s := newServerBehind(t, []string{"203.0.113.0/24"})
	for i := 0; i < ratelimit.LimitCreateOrder; i++ {
		w, _ := s.doForwarded(t, http.MethodPost, "/api/orders/create", orderBody(), "", "198.51.100.7")
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w, _ := s.doForwarded(t, http.MethodPost, "/api/orders/create", orderBody(), "", "198.51.100.7")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w, _ = s.doForwarded(t, http.MethodPost, "/api/orders/create", orderBody(), "", "198.51.100.8")
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreatePaymentIntent(t *testing.T) {
	s := newServer(t)

	w, body := s.do(t, http.MethodPost, "/api/razorpay/create-order", gin.H{"amount": 500, "receipt": "cart-1"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	order := body["order"].(map[string]any)
	assert.Equal(t, "order_mock", order["id"])
	assert.EqualValues(t, 50000, order["amount"])
}

func TestVerifyPayment(t *testing.T) {
	s := newServer(t)
	req := gin.H{
		"razorpay_order_id":   "order_H1",
		"razorpay_payment_id": "pay_H1",
		"razorpay_signature":  razorpay.Sign(testSecret, "order_H1", "pay_H1"),
		"order_data":          orderBody(),
	}

	t.Run("happy path", func(t *testing.T) {
		w, body := s.do(t, http.MethodPost, "/api/razorpay/verify-payment", req, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, true, body["verified"])
		assert.Equal(t, "pay_H1", body["payment_id"])
		assert.Regexp(t, `^3L-\d{8}-\d{4,6}$`, body["order_number"])
	})

	t.Run("replay returns the same order", func(t *testing.T) {
		w, body := s.do(t, http.MethodPost, "/api/razorpay/verify-payment", req, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, body["already_processed"])

		_, total, err := s.repos.Orders.List(context.Background(), repository.OrderFilter{IncludeCustomized: true})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
	})

	t.Run("bad signature", func(t *testing.T) {
		bad := gin.H{
			"razorpay_order_id":   "order_H2",
			"razorpay_payment_id": "pay_H2",
			"razorpay_signature":  "deadbeef",
			"order_data":          orderBody(),
		}
		w, body := s.do(t, http.MethodPost, "/api/razorpay/verify-payment", bad, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, false, body["verified"])
		assert.Equal(t, "INVALID_SIGNATURE", body["code"])
	})
}

func TestUpdatePaymentStatus_CannotMarkPaid(t *testing.T) {
	s := newServer(t)
	_, created := s.do(t, http.MethodPost, "/api/orders/create", orderBody(), "")

	w, _ := s.do(t, http.MethodPost, "/api/orders/update-payment-status",
		gin.H{"order_id": created["order_id"], "payment_status": "paid"}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body := s.do(t, http.MethodPost, "/api/orders/update-payment-status",
		gin.H{"order_id": created["order_id"], "payment_status": "failed", "payment_error": "card declined"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "failed", body["payment_status"])
}

func TestTrackOrder(t *testing.T) {
	s := newServer(t)
	_, created := s.do(t, http.MethodPost, "/api/orders/create", orderBody(), "")
	number := created["order_number"].(string)

	w, _ := s.do(t, http.MethodGet, "/api/orders/"+number+"?email=ASHA@example.com", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/orders/"+number+"?email=someone@example.com", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminRoutes_RequireSession(t *testing.T) {
	s := newServer(t)

	w, body := s.do(t, http.MethodGet, "/api/admin/orders", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, false, body["success"])

	w, _ = s.do(t, http.MethodGet, "/api/admin/orders", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminOrders(t *testing.T) {
	s := newServer(t)
	token := s.adminToken(t)

	_, created := s.do(t, http.MethodPost, "/api/orders/create", orderBody(), "")
	id := created["order_id"].(string)

	t.Run("list", func(t *testing.T) {
		w, body := s.do(t, http.MethodGet, "/api/admin/orders?status=pending", nil, token)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.EqualValues(t, 1, body["total"])
	})

	t.Run("list rejects unknown status", func(t *testing.T) {
		w, _ := s.do(t, http.MethodGet, "/api/admin/orders?status=lost", nil, token)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("update", func(t *testing.T) {
		w, body := s.do(t, http.MethodPut, "/api/admin/orders", gin.H{"id": id, "status": "shipped", "tracking_number": "DTDC123"}, token)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		order := body["order"].(map[string]any)
		assert.Equal(t, "shipped", order["status"])
		assert.Equal(t, "DTDC123", order["tracking_number"])
	})

	t.Run("update rejects unknown enum", func(t *testing.T) {
		w, _ := s.do(t, http.MethodPut, "/api/admin/orders", gin.H{"id": id, "payment_status": "maybe"}, token)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("soft delete hides the order", func(t *testing.T) {
		w, _ := s.do(t, http.MethodDelete, "/api/admin/orders?id="+id, nil, token)
		require.Equal(t, http.StatusOK, w.Code)

		_, body := s.do(t, http.MethodGet, "/api/admin/orders", nil, token)
		assert.EqualValues(t, 0, body["total"])

		w, _ = s.do(t, http.MethodDelete, "/api/admin/orders?id="+id+"&hard=true", nil, token)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestAdminLogin_WrongPassword(t *testing.T) {
	s := newServer(t)
	s.adminToken(t)

	w, _ := s.do(t, http.MethodPost, "/api/admin/login", gin.H{"email": adminEmail, "password": "guess"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProductsAndReviews(t *testing.T) {
	s := newServer(t)
	token := s.adminToken(t)

	w, body := s.do(t, http.MethodPost, "/api/admin/products", gin.H{
		"name": "Moon Lamp", "price": 1299, "discount_percent": 10, "stock": 5,
		"images": []string{"https://cdn.example.com/moon.jpg", "javascript:alert(1)"},
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	product := body["product"].(map[string]any)
	assert.Equal(t, "moon-lamp", product["slug"])
	assert.Len(t, product["images"], 1)

	w, body = s.do(t, http.MethodGet, "/api/products/moon-lamp", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1169, body["sale_price"])

	w, body = s.do(t, http.MethodPost, "/api/reviews", gin.H{
		"product_id": product["id"], "user_email": "ravi@example.com", "user_name": "Ravi", "rating": 5, "comment": "<b>great</b>",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reviewID := body["review"].(map[string]any)["id"].(string)

	_, body = s.do(t, http.MethodGet, "/api/products/moon-lamp/reviews", nil, "")
	assert.Empty(t, body["reviews"], "pending reviews are not public")

	w, _ = s.do(t, http.MethodPatch, "/api/admin/reviews/"+reviewID+"/approve", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	_, body = s.do(t, http.MethodGet, "/api/products/moon-lamp/reviews", nil, "")
	assert.Len(t, body["reviews"], 1)

	w, _ = s.do(t, http.MethodPost, "/api/reviews", gin.H{"user_email": "ravi@example.com", "user_name": "Ravi", "rating": 9}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSettingsRoundTrip(t *testing.T) {
	s := newServer(t)
	token := s.adminToken(t)

	w, _ := s.do(t, http.MethodPut, "/api/admin/settings/shipping", gin.H{
		"free_above": 999, "note": "<script>ships in 3 days</script>",
	}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, body := s.do(t, http.MethodGet, "/api/settings/shipping", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	value := body["value"].(map[string]any)
	assert.EqualValues(t, 999, value["free_above"])
	assert.NotContains(t, value["note"], "<")

	w, _ = s.do(t, http.MethodGet, "/api/settings/Bad_Key", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCustomizedOrderCapture(t *testing.T) {
	s := newServer(t)
	token := s.adminToken(t)

	w, body := s.do(t, http.MethodPost, "/api/customized-orders", gin.H{
		"user_email": "asha@example.com", "product_name": "Dragon Lamp",
		"customization_details": "Engrave 'Asha' on the base",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := body["customized_order"].(map[string]any)["id"].(string)

	w, body = s.do(t, http.MethodGet, "/api/admin/customized-orders?linked=false", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body["total"])

	w, body = s.do(t, http.MethodPut, "/api/admin/customized-orders/"+id, gin.H{"status": "quoted", "price": 750}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "quoted", body["customized_order"].(map[string]any)["status"])

	w, _ = s.do(t, http.MethodPut, "/api/admin/customized-orders/"+id, gin.H{"status": "lost"}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDashboardAndHealth(t *testing.T) {
	s := newServer(t)
	token := s.adminToken(t)
	s.do(t, http.MethodPost, "/api/orders/create", orderBody(), "")

	w, body := s.do(t, http.MethodGet, "/api/admin/dashboard", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	stats := body["stats"].(map[string]any)
	assert.EqualValues(t, 1, stats["total_orders"])
	tasks := body["tasks"].(map[string]any)
	assert.EqualValues(t, 1, tasks[models.TaskPending])

	w, body = s.do(t, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
}
