package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/3lprints/storefront/internal/apperrors"
	"github.com/3lprints/storefront/internal/auth"
	"github.com/3lprints/storefront/internal/checkout"
	"github.com/3lprints/storefront/internal/customization"
	"github.com/3lprints/storefront/internal/repository"
)

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	Repos         *repository.Repositories
	Checkout      *checkout.Service
	Customization *customization.Service
	Auth          *auth.Service
	Log           *zap.Logger

	UploadDir string
	BaseURL   string
}

// respondError writes err as {success:false, error, code?, hint?, details?}.
func (h *Handlers) respondError(c *gin.Context, err error) {
	status, body := apperrors.Response(err)
	if status >= http.StatusInternalServerError {
		h.Log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	c.JSON(status, body)
}

// badBody answers a request whose JSON could not be bound.
func (h *Handlers) badBody(c *gin.Context, err error) {
	h.respondError(c, apperrors.Validation("invalid request body", err.Error()))
}

// pageFromQuery reads ?limit=&offset=. Bounds are applied by the repositories.
func pageFromQuery(c *gin.Context) repository.Page {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	return repository.Page{Limit: limit, Offset: offset}
}

func queryBool(c *gin.Context, key string) bool {
	v, _ := strconv.ParseBool(c.Query(key))
	return v
}
