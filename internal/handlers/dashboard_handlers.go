package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//
// --- Admin Dashboard ---
//

// GetDashboard returns KPI data for the admin dashboard
// GET /api/admin/dashboard
func (h *Handlers) GetDashboard(c *gin.Context) {
	ctx := c.Request.Context()

	// 1. Order, catalog and review counters
	stats, err := h.Repos.Orders.Stats(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}

	// 2. Background task backlog
	tasks, err := h.Repos.Outbox.CountByStatus(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats, "tasks": tasks})
}

// Health is the handler for GET /api/health
// It reports 503 when the database is unreachable or the orders table lacks the gateway columns.
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	db := h.Repos.DB
	if err := db.PingContext(ctx); err != nil {
		h.Log.Warn("Health check: database unreachable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "unreachable"})
		return
	}
	if !db.VerifySchemaShape(ctx, "orders", "razorpay_order_id", "razorpay_payment_id", "payment_status") {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "schema mismatch"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "ok"})
}
