package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/3lprints/storefront/internal/apperrors"
	"github.com/3lprints/storefront/internal/middleware"
	"github.com/3lprints/storefront/internal/models"
	"github.com/3lprints/storefront/internal/sanitize"
	"github.com/3lprints/storefront/internal/validation"
)

type loginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AdminLogin is the handler for POST /api/admin/login
// It issues a signed session token to an admin with a matching bcrypt password.
func (h *Handlers) AdminLogin(c *gin.Context) {
	// 1. --- Bind JSON ---
	var in loginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badBody(c, err)
		return
	}

	// 2. --- Check Credentials ---
	token, expires, user, err := h.Auth.Login(c.Request.Context(), sanitize.Email(in.Email), in.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	// 3. --- Send Token ---
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"token":      token,
		"expires_at": expires,
		"user":       user,
	})
}

// AdminListUsers is the handler for GET /api/admin/users?role=
func (h *Handlers) AdminListUsers(c *gin.Context) {
	role := c.Query("role")
	if role != "" && role != models.RoleCustomer && role != models.RoleAdmin {
		h.respondError(c, apperrors.Validation("invalid role filter", "role: "+role))
		return
	}

	users, total, err := h.Repos.Users.List(c.Request.Context(), role, pageFromQuery(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "users": users, "total": total})
}

type roleInput struct {
	Role string `json:"role" binding:"required,oneof=customer admin"`
}

// AdminUpdateUserRole is the handler for PUT /api/admin/users/:id/role
// An admin cannot change their own role.
func (h *Handlers) AdminUpdateUserRole(c *gin.Context) {
	id := c.Param("id")
	if !validation.ValidUUID(id) {
		h.respondError(c, apperrors.Validation("invalid user id"))
		return
	}

	var in roleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badBody(c, err)
		return
	}

	if p, ok := middleware.GetAdmin(c); ok && p.UserID == id {
		h.respondError(c, apperrors.Authorization("admins cannot change their own role"))
		return
	}

	if err := h.Repos.Users.UpdateRole(c.Request.Context(), id, in.Role); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id, "role": in.Role})
}
