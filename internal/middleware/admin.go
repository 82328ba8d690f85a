package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/3lprints/storefront/internal/apperrors"
	"github.com/3lprints/storefront/internal/auth"
)

const AdminContextKey = "admin"

// Authenticator resolves an Authorization header to an admin.
type Authenticator interface {
	Authenticate(ctx context.Context, header string) (auth.AdminPrincipal, error)
}

// AdminMiddleware rejects the request unless it carries a valid admin session.
func AdminMiddleware(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := a.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			status, body := apperrors.Response(err)
			c.AbortWithStatusJSON(status, body)
			return
		}
		c.Set(AdminContextKey, principal)
		c.Next()
	}
}

// GetAdmin returns the principal stored by AdminMiddleware.
func GetAdmin(c *gin.Context) (auth.AdminPrincipal, bool) {
	v, exists := c.Get(AdminContextKey)
	if !exists {
		return auth.AdminPrincipal{}, false
	}
	p, ok := v.(auth.AdminPrincipal)
	return p, ok
}
