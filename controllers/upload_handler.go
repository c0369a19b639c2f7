package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"catalog-admin/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UploadHandler handles gallery image uploads for categories, both proxied
// through the service and via presigned URLs for direct browser upload.
type UploadHandler struct {
	coordinator     UploadCoordinatorAPI
	categoryService CategoryServiceAPI
	presigner       PresignerAPI
	validator       *RequestValidator
	folder          string
	timeout         time.Duration
}

func NewUploadHandler(coordinator UploadCoordinatorAPI, cs CategoryServiceAPI, presigner PresignerAPI, validator *RequestValidator, folder string) *UploadHandler {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		folder = "categories"
	}
	return &UploadHandler{
		coordinator:     coordinator,
		categoryService: cs,
		presigner:       presigner,
		validator:       validator,
		folder:          folder,
		timeout:         DefaultContextTimeout,
	}
}

// UploadImages accepts a multipart batch of candidate files, filters and
// caps them against the category's remaining gallery capacity, uploads the
// survivors, and appends the resulting URLs to the category in input order.
func (h *UploadHandler) UploadImages(c *gin.Context) {
	categoryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID format"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Expected multipart form data"})
		return
	}
	candidates := form.File["images"]

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	category, err := h.categoryService.GetCategory(ctx, categoryID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
		zap.L().Error("Failed to load category for upload", zap.Error(err), zap.String("id", categoryID.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load category"})
		return
	}

	accepted := h.coordinator.SelectFiles(candidates, len(category.Images))
	if len(accepted) == 0 {
		// Nothing survived the filter/cap; not an error.
		c.JSON(http.StatusOK, gin.H{
			"uploaded":   []string{},
			"images":     category.Images,
			"max_images": h.coordinator.MaxImages(),
			"message":    "No files accepted",
		})
		return
	}

	urls, err := h.coordinator.UploadBatch(ctx, accepted, h.folder, nil)
	if err != nil {
		zap.L().Error("Batch upload failed", zap.Error(err), zap.String("id", categoryID.String()))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Upload failed; no images were saved"})
		return
	}

	updated, err := h.categoryService.AppendImages(ctx, categoryID, urls)
	if err != nil {
		zap.L().Error("Failed to append images", zap.Error(err), zap.String("id", categoryID.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save image URLs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"uploaded": urls,
		"images":   updated.Images,
		"message":  fmt.Sprintf("%d of %d files uploaded", len(urls), len(candidates)),
	})
}

// GetPresignUpload returns a presigned PUT URL for direct upload.
func (h *UploadHandler) GetPresignUpload(c *gin.Context) {
	folder := strings.Trim(c.DefaultQuery("folder", h.folder), "/")
	filename := c.DefaultQuery("filename", "upload")
	contentType := c.DefaultQuery("content_type", "image/jpeg")

	if !IsAllowedImageContentType(contentType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid content type. Allowed: jpeg, jpg, png, webp, gif"})
		return
	}

	expires := h.validator.ParsePresignExpiry(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	key := fmt.Sprintf("%s/%s%s", folder, uuid.New().String(), filepath.Ext(filename))
	uploadURL, err := h.presigner.PresignPut(ctx, key, contentType, expires)
	if err != nil {
		zap.L().Error("Failed to generate presigned upload", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate presigned upload"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"upload_url": uploadURL,
		"method":     "PUT",
		"key":        key,
		"public_url": h.presigner.PublicURL(key),
		"expires_in": expires,
	})
}
