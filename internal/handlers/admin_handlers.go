package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/3lprints/storefront/internal/apperrors"
	"github.com/3lprints/storefront/internal/models"
	"github.com/3lprints/storefront/internal/repository"
	"github.com/3lprints/storefront/internal/sanitize"
	"github.com/3lprints/storefront/internal/validation"
)

//
// --- Admin: Orders ---
//

// AdminListOrders is the handler for GET /api/admin/orders
// Failed payments and orders already claimed by a customized record are hidden unless asked for.
func (h *Handlers) AdminListOrders(c *gin.Context) {
	// 1. --- Read Filters ---
	f := repository.OrderFilter{
		Status:            c.Query("status"),
		PaymentStatus:     c.Query("payment_status"),
		Search:            sanitize.String(c.Query("search"), 100),
		IncludeFailed:     queryBool(c, "include_failed"),
		IncludeCustomized: queryBool(c, "include_customized"),
		IncludeDeleted:    queryBool(c, "include_deleted"),
		Page:              pageFromQuery(c),
	}
	if f.Status != "" && !validation.ValidOrderStatus(f.Status) {
		h.respondError(c, apperrors.Validation("invalid status filter", "status: "+f.Status))
		return
	}
	if f.PaymentStatus != "" && !validation.ValidPaymentStatus(f.PaymentStatus) {
		h.respondError(c, apperrors.Validation("invalid payment_status filter", "payment_status: "+f.PaymentStatus))
		return
	}

	var err error
	if f.From, err = queryTime(c, "from"); err != nil {
		h.respondError(c, err)
		return
	}
	if f.To, err = queryTime(c, "to"); err != nil {
		h.respondError(c, err)
		return
	}

	// 2. --- Query ---
	orders, total, err := h.Repos.Orders.List(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "orders": orders, "total": total})
}

type adminOrderUpdate struct {
	ID             string  `json:"id" binding:"required"`
	Status         *string `json:"status"`
	PaymentStatus  *string `json:"payment_status"`
	TrackingNumber *string `json:"tracking_number"`
	OrderNotes     *string `json:"order_notes"`
}

// AdminUpdateOrder is the handler for PUT /api/admin/orders
func (h *Handlers) AdminUpdateOrder(c *gin.Context) {
	var in adminOrderUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badBody(c, err)
		return
	}

	// 1. --- Validate Enumerations ---
	var errs []string
	if !validation.ValidUUID(in.ID) {
		errs = append(errs, "id: must be a UUID")
	}
	var u repository.OrderUpdate
	if in.Status != nil {
		if !validation.ValidOrderStatus(*in.Status) {
			errs = append(errs, "status: unknown value "+*in.Status)
		}
		s := models.OrderStatus(*in.Status)
		u.Status = &s
	}
	if in.PaymentStatus != nil {
		if !validation.ValidPaymentStatus(*in.PaymentStatus) {
			errs = append(errs, "payment_status: unknown value "+*in.PaymentStatus)
		}
		ps := models.PaymentStatus(*in.PaymentStatus)
		u.PaymentStatus = &ps
	}
	if in.TrackingNumber != nil {
		t := sanitize.String(*in.TrackingNumber, 100)
		u.TrackingNumber = &t
	}
	if in.OrderNotes != nil {
		n := sanitize.String(*in.OrderNotes, 2000)
		u.OrderNotes = &n
	}
	if len(errs) > 0 {
		h.respondError(c, apperrors.Validation("invalid order update", errs...))
		return
	}
	if u == (repository.OrderUpdate{}) {
		h.respondError(c, apperrors.Validation("nothing to update"))
		return
	}

	// 2. --- Apply ---
	order, err := h.Repos.Orders.Update(c.Request.Context(), in.ID, u)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

// AdminDeleteOrder is the handler for DELETE /api/admin/orders?id=&hard=true
func (h *Handlers) AdminDeleteOrder(c *gin.Context) {
	id := c.Query("id")
	if !validation.ValidUUID(id) {
		h.respondError(c, apperrors.Validation("invalid order id"))
		return
	}

	ctx := c.Request.Context()
	var err error
	if queryBool(c, "hard") {
		err = h.Repos.Orders.HardDelete(ctx, id)
	} else {
		err = h.Repos.Orders.SoftDelete(ctx, id)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Order deleted"})
}

//
// --- Admin: Customized Orders ---
//

// AdminListCustomizedOrders is the handler for GET /api/admin/customized-orders
func (h *Handlers) AdminListCustomizedOrders(c *gin.Context) {
	f := repository.CustomizedFilter{
		Status: c.Query("status"),
		Search: sanitize.String(c.Query("search"), 100),
		Page:   pageFromQuery(c),
	}
	if f.Status != "" && !models.CustomizationStatus(f.Status).IsValid() {
		h.respondError(c, apperrors.Validation("invalid status filter", "status: "+f.Status))
		return
	}
	switch c.Query("linked") {
	case "true":
		v := true
		f.Linked = &v
	case "false":
		v := false
		f.Linked = &v
	}

	records, total, err := h.Repos.CustomizedOrders.List(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "customized_orders": records, "total": total})
}

type customizedUpdateInput struct {
	Status  *string  `json:"status"`
	Price   *float64 `json:"price" binding:"omitempty,gte=0"`
	OrderID *string  `json:"order_id"`
}

// AdminUpdateCustomizedOrder is the handler for PUT /api/admin/customized-orders/:id
// An empty order_id unlinks the record.
func (h *Handlers) AdminUpdateCustomizedOrder(c *gin.Context) {
	id := c.Param("id")
	if !validation.ValidUUID(id) {
		h.respondError(c, apperrors.Validation("invalid customized order id"))
		return
	}

	var in customizedUpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badBody(c, err)
		return
	}

	u := repository.CustomizedUpdate{Price: in.Price}
	if in.Status != nil {
		s := models.CustomizationStatus(*in.Status)
		if !s.IsValid() {
			h.respondError(c, apperrors.Validation("invalid customized order update", "status: unknown value "+*in.Status))
			return
		}
		u.Status = &s
	}
	if in.OrderID != nil {
		if *in.OrderID != "" && !validation.ValidUUID(*in.OrderID) {
			h.respondError(c, apperrors.Validation("invalid customized order update", "order_id: must be a UUID"))
			return
		}
		u.OrderID = in.OrderID
	}

	rec, err := h.Repos.CustomizedOrders.Update(c.Request.Context(), id, u)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "customized_order": rec})
}

// AdminDeleteCustomizedOrder is the handler for DELETE /api/admin/customized-orders/:id?hard=true
func (h *Handlers) AdminDeleteCustomizedOrder(c *gin.Context) {
	id := c.Param("id")
	if !validation.ValidUUID(id) {
		h.respondError(c, apperrors.Validation("invalid customized order id"))
		return
	}
	if err := h.Repos.CustomizedOrders.Delete(c.Request.Context(), id, queryBool(c, "hard")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Customized order deleted"})
}

//
// --- Admin: Review Moderation ---
//

// AdminListReviews is the handler for GET /api/admin/reviews?status=
func (h *Handlers) AdminListReviews(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case "", models.ReviewPending, models.ReviewApproved, models.ReviewRejected:
	default:
		h.respondError(c, apperrors.Validation("invalid status filter", "status: "+status))
		return
	}

	reviews, err := h.Repos.Reviews.List(c.Request.Context(), status, pageFromQuery(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "reviews": reviews})
}

// AdminApproveReview is the handler for PATCH /api/admin/reviews/:id/approve
func (h *Handlers) AdminApproveReview(c *gin.Context) {
	h.moderateReview(c, models.ReviewApproved)
}

// AdminRejectReview is the handler for PATCH /api/admin/reviews/:id/reject
func (h *Handlers) AdminRejectReview(c *gin.Context) {
	h.moderateReview(c, models.ReviewRejected)
}

func (h *Handlers) moderateReview(c *gin.Context, status string) {
	id := c.Param("id")
	if !validation.ValidUUID(id) {
		h.respondError(c, apperrors.Validation("invalid review id"))
		return
	}
	if err := h.Repos.Reviews.SetStatus(c.Request.Context(), id, status); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id, "status": status})
}

// AdminDeleteReview is the handler for DELETE /api/admin/reviews/:id
func (h *Handlers) AdminDeleteReview(c *gin.Context) {
	id := c.Param("id")
	if !validation.ValidUUID(id) {
		h.respondError(c, apperrors.Validation("invalid review id"))
		return
	}
	if err := h.Repos.Reviews.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Review deleted"})
}

// queryTime accepts RFC 3339 or a bare YYYY-MM-DD date.
func queryTime(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, apperrors.Validation("invalid date filter", key+": expected YYYY-MM-DD or RFC 3339")
}
