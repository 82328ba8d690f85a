package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/3lprints/storefront/internal/apperrors"
	"github.com/3lprints/storefront/internal/repository"
	"github.com/3lprints/storefront/internal/sanitize"
)

// Site settings and home-page sections are free-form JSON documents keyed by name.

var contentKeyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{0,63}$`)

// GetSetting is the handler for GET /api/settings/:key
func (h *Handlers) GetSetting(c *gin.Context) {
	h.getContent(c, repository.TableSettings, c.Param("key"))
}

// GetHomeContent is the handler for GET /api/home-content/:section
func (h *Handlers) GetHomeContent(c *gin.Context) {
	h.getContent(c, repository.TableHomeContent, c.Param("section"))
}

// PutSetting is the handler for PUT /api/admin/settings/:key
func (h *Handlers) PutSetting(c *gin.Context) {
	h.putContent(c, repository.TableSettings, c.Param("key"))
}

// PutHomeContent is the handler for PUT /api/admin/home-content/:section
func (h *Handlers) PutHomeContent(c *gin.Context) {
	h.putContent(c, repository.TableHomeContent, c.Param("section"))
}

func (h *Handlers) getContent(c *gin.Context, table, key string) {
	if !contentKeyPattern.MatchString(key) {
		h.respondError(c, apperrors.Validation("invalid key"))
		return
	}
	s, err := h.Repos.Settings.Get(c.Request.Context(), table, key)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "key": s.Key, "value": s.Value, "updated_at": s.UpdatedAt})
}

func (h *Handlers) putContent(c *gin.Context, table, key string) {
	if !contentKeyPattern.MatchString(key) {
		h.respondError(c, apperrors.Validation("invalid key"))
		return
	}

	// 1. --- Decode Any JSON Document ---
	var doc any
	if err := c.ShouldBindJSON(&doc); err != nil {
		h.badBody(c, err)
		return
	}

	// 2. --- Sanitize Every String Leaf ---
	raw, err := json.Marshal(sanitize.Object(doc))
	if err != nil {
		h.badBody(c, err)
		return
	}

	// 3. --- Upsert ---
	s, err := h.Repos.Settings.Put(c.Request.Context(), table, key, raw)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "key": s.Key, "value": s.Value, "updated_at": s.UpdatedAt})
}
