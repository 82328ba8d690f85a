package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/3lprints/storefront/internal/handlers"
	"github.com/3lprints/storefront/internal/middleware"
	"github.com/3lprints/storefront/internal/ratelimit"
	"github.com/3lprints/storefront/internal/validation"
)

// Options carries the router settings that do not belong to the handlers.
type Options struct {
	AllowedOrigin  string
	// TrustedProxies may set X-Forwarded-For. Nil means the socket peer is the client.
	TrustedProxies []string
	Limiter        *ratelimit.Limiter
}

func SetupRouter(h *handlers.Handlers, opts Options) *gin.Engine {
	router := gin.New()

	// --- Client Address ---
	// Rate limits key on ClientIP, so forwarded headers count only from known proxies
	if err := router.SetTrustedProxies(opts.TrustedProxies); err != nil {
		h.Log.Error("Invalid trusted proxies, trusting none", zap.Error(err))
		_ = router.SetTrustedProxies(nil)
	}

	// --- Shared Validator Tags ---
	// Binding tags on request structs may use the storefront's custom rules (in_phone, pincode, ...)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		validation.RegisterTags(v)
	}

	// --- Global Middleware ---
	// CORS must answer preflights before anything else runs
	router.Use(middleware.CORSMiddleware(opts.AllowedOrigin))
	router.Use(middleware.Recovery(h.Log), middleware.RequestLogger(h.Log))

	// --- Uploaded Media ---
	router.Static("/uploads", h.UploadDir)

	limit := func(op string, max int) gin.HandlerFunc {
		return middleware.RateLimit(opts.Limiter, op, max, ratelimit.Window)
	}

	api := router.Group("/api")
	{
		api.GET("/health", h.Health)

		// --- Checkout Routes (Public, Rate Limited) ---
		api.POST("/orders/create", limit("create-order", ratelimit.LimitCreateOrder), h.CreateOrder)
		api.POST("/razorpay/create-order", limit("create-intent", ratelimit.LimitCreateIntent), h.CreatePaymentIntent)
		api.POST("/razorpay/verify-payment", limit("verify-payment", ratelimit.LimitVerifyPayment), h.VerifyPayment)
		api.POST("/orders/update-payment-status", limit("update-payment-status", ratelimit.LimitUpdatePaymentStatus), h.UpdatePaymentStatus)
		api.GET("/orders/:order_number", h.TrackOrder)

		// --- Catalog & Content Routes (Public) ---
		api.GET("/products", h.ListProducts)
		api.GET("/products/:slug", h.GetProduct)
		api.GET("/products/:slug/reviews", h.GetProductReviews)
		api.POST("/reviews", limit("submit-review", ratelimit.LimitSubmission), h.SubmitReview)
		api.POST("/customized-orders", limit("customized-order", ratelimit.LimitSubmission), h.CreateCustomizedOrder)
		api.GET("/settings/:key", h.GetSetting)
		api.GET("/home-content/:section", h.GetHomeContent)

		// --- Admin Login (Public, Rate Limited) ---
		api.POST("/admin/login", limit("admin-login", ratelimit.LimitAdminLogin), h.AdminLogin)

		// --- Admin Routes (Admin Session Required) ---
		admin := api.Group("/admin")
		admin.Use(middleware.AdminMiddleware(h.Auth))
		{
			admin.GET("/dashboard", h.GetDashboard)

			// --- Orders ---
			admin.GET("/orders", h.AdminListOrders)
			admin.PUT("/orders", h.AdminUpdateOrder)
			admin.DELETE("/orders", h.AdminDeleteOrder)

			// --- Customized Orders ---
			admin.GET("/customized-orders", h.AdminListCustomizedOrders)
			admin.PUT("/customized-orders/:id", h.AdminUpdateCustomizedOrder)
			admin.DELETE("/customized-orders/:id", h.AdminDeleteCustomizedOrder)

			// --- Products ---
			admin.GET("/products", h.AdminListProducts)
			admin.POST("/products", h.CreateProduct)
			admin.PUT("/products/:id", h.UpdateProduct)
			admin.DELETE("/products/:id", h.DeleteProduct)

			// --- Users ---
			admin.GET("/users", h.AdminListUsers)
			admin.PUT("/users/:id/role", h.AdminUpdateUserRole)

			// --- Reviews ---
			admin.GET("/reviews", h.AdminListReviews)
			admin.PATCH("/reviews/:id/approve", h.AdminApproveReview)
			admin.PATCH("/reviews/:id/reject", h.AdminRejectReview)
			admin.DELETE("/reviews/:id", h.AdminDeleteReview)

			// --- Site Content ---
			admin.PUT("/settings/:key", h.PutSetting)
			admin.PUT("/home-content/:section", h.PutHomeContent)

			// --- Media ---
			admin.POST("/media", h.UploadMedia)
		}
	}

	return router
}
