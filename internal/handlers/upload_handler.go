package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/3lprints/storefront/internal/apperrors"
)

const maxUploadBytes = 20 << 20

// Product photos plus the model formats customers send for custom prints.
var allowedUploadExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true,
	".stl": true, ".3mf": true, ".obj": true,
}

// UploadMedia handles POST /api/admin/media
// It saves the file to the configured upload folder and returns the public URL.
func (h *Handlers) UploadMedia(c *gin.Context) {
	// 1. Get the file from the request
	file, err := c.FormFile("file")
	if err != nil {
		h.respondError(c, apperrors.Validation("no file uploaded"))
		return
	}
	if file.Size > maxUploadBytes {
		h.respondError(c, apperrors.Validation("file too large", fmt.Sprintf("file: at most %d MB", maxUploadBytes>>20)))
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedUploadExt[ext] {
		h.respondError(c, apperrors.Validation("unsupported file type", "file: "+ext))
		return
	}

	// 2. Create the upload directory if it doesn't exist
	if err := os.MkdirAll(h.UploadDir, 0o755); err != nil {
		h.Log.Error("Upload: cannot create directory", zap.String("dir", h.UploadDir), zap.Error(err))
		h.respondError(c, err)
		return
	}

	// 3. Generate a safe unique filename (uuid + extension)
	name := uuid.NewString() + ext
	if err := c.SaveUploadedFile(file, filepath.Join(h.UploadDir, name)); err != nil {
		h.Log.Error("Upload: save failed", zap.String("file", name), zap.Error(err))
		h.respondError(c, err)
		return
	}

	// 4. Return the public URL
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"url":     strings.TrimRight(h.BaseURL, "/") + "/uploads/" + name,
	})
}
