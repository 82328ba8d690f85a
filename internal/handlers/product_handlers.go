package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/3lprints/storefront/internal/apperrors"
	"github.com/3lprints/storefront/internal/models"
	"github.com/3lprints/storefront/internal/repository"
	"github.com/3lprints/storefront/internal/sanitize"
	"github.com/3lprints/storefront/internal/validation"
)

//
// --- Catalog (Public) ---
//

// ListProducts is the handler for GET /api/products
func (h *Handlers) ListProducts(c *gin.Context) {
	h.listProducts(c, true)
}

// GetProduct is the handler for GET /api/products/:slug
func (h *Handlers) GetProduct(c *gin.Context) {
	p, err := h.Repos.Products.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !p.IsActive {
		h.respondError(c, apperrors.NotFound("product", p.Slug))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "product": p, "sale_price": p.SalePrice()})
}

// GetProductReviews is the handler for GET /api/products/:slug/reviews
func (h *Handlers) GetProductReviews(c *gin.Context) {
	ctx := c.Request.Context()
	p, err := h.Repos.Products.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	reviews, err := h.Repos.Reviews.ListApproved(ctx, p.ID, pageFromQuery(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "reviews": reviews})
}

// SubmitReview is the handler for POST /api/reviews
// New reviews wait in 'pending' until an admin approves them.
func (h *Handlers) SubmitReview(c *gin.Context) {
	var in models.ReviewInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badBody(c, err)
		return
	}

	rv := &models.Review{
		UserEmail: sanitize.Email(in.UserEmail),
		UserName:  sanitize.String(in.UserName, 120),
		Rating:    in.Rating,
		Comment:   sanitize.String(in.Comment, 2000),
	}
	if !validation.ValidEmail(rv.UserEmail) {
		h.respondError(c, apperrors.Validation("invalid review", "user_email: must be a valid email"))
		return
	}
	if in.ProductID != nil {
		if !validation.ValidUUID(*in.ProductID) {
			h.respondError(c, apperrors.Validation("invalid review", "product_id: must be a UUID"))
			return
		}
		rv.ProductID = in.ProductID
	}
	if in.OrderID != nil && validation.ValidUUID(*in.OrderID) {
		rv.OrderID = in.OrderID
	}

	if err := h.Repos.Reviews.Create(c.Request.Context(), rv); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "review": rv})
}

//
// --- Catalog (Admin) ---
//

// AdminListProducts is the handler for GET /api/admin/products
func (h *Handlers) AdminListProducts(c *gin.Context) {
	h.listProducts(c, false)
}

func (h *Handlers) listProducts(c *gin.Context, activeOnly bool) {
	f := repository.ProductFilter{
		ActiveOnly: activeOnly,
		Search:     sanitize.String(c.Query("search"), 100),
		Page:       pageFromQuery(c),
	}
	if raw := c.Query("customizable"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.respondError(c, apperrors.Validation("customizable must be true or false"))
			return
		}
		f.Customizable = &v
	}

	products, total, err := h.Repos.Products.List(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "products": products, "total": total})
}

// CreateProduct is the handler for POST /api/admin/products
func (h *Handlers) CreateProduct(c *gin.Context) {
	var in models.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badBody(c, err)
		return
	}

	p := &models.Product{IsActive: true}
	if err := applyProductInput(p, in); err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.Repos.Products.Create(c.Request.Context(), p); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "product": p})
}

// UpdateProduct is the handler for PUT /api/admin/products/:id
func (h *Handlers) UpdateProduct(c *gin.Context) {
	id := c.Param("id")
	if !validation.ValidUUID(id) {
		h.respondError(c, apperrors.Validation("invalid product id"))
		return
	}

	var in models.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badBody(c, err)
		return
	}

	ctx := c.Request.Context()
	p, err := h.Repos.Products.GetByID(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := applyProductInput(p, in); err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.Repos.Products.Update(ctx, p); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "product": p})
}

// DeleteProduct is the handler for DELETE /api/admin/products/:id?hard=true
func (h *Handlers) DeleteProduct(c *gin.Context) {
	id := c.Param("id")
	if !validation.ValidUUID(id) {
		h.respondError(c, apperrors.Validation("invalid product id"))
		return
	}
	if err := h.Repos.Products.Delete(c.Request.Context(), id, queryBool(c, "hard")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Product deleted"})
}

// applyProductInput copies the sanitized admin payload onto p.
func applyProductInput(p *models.Product, in models.ProductInput) error {
	name := sanitize.String(in.Name, 200)
	if name == "" {
		return apperrors.Validation("invalid product", "name: is required")
	}
	if !validation.ValidPercentage(in.DiscountPercent) {
		return apperrors.Validation("invalid product", "discount_percent: must be between 0 and 100")
	}

	images := make([]string, 0, len(in.Images))
	for _, raw := range in.Images {
		if u := sanitize.URL(raw); u != "" {
			images = append(images, u)
		}
	}

	p.Name = name
	p.Description = sanitize.String(in.Description, 5000)
	p.Price = *in.Price
	p.DiscountPercent = in.DiscountPercent
	p.Stock = in.Stock
	p.Images = models.JSON[[]string]{V: images}
	p.IsCustomizable = in.IsCustomizable
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	return nil
}
