package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"catalog-admin/repository"
	"catalog-admin/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CategoryController struct {
	service   CategoryServiceAPI
	cache     *CacheManager
	validator *RequestValidator
	timeout   time.Duration
}

func NewCategoryController(s CategoryServiceAPI, cache *CacheManager, validator *RequestValidator) *CategoryController {
	return &CategoryController{
		service:   s,
		cache:     cache,
		validator: validator,
		timeout:   DefaultContextTimeout,
	}
}

func (ctrl *CategoryController) CreateCategory(c *gin.Context) {
	var req services.CategoryCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := ctrl.validator.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctrl.timeout)
	defer cancel()

	category, err := ctrl.service.CreateCategory(ctx, req, actingUser(c))
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		if strings.Contains(err.Error(), "not found") || strings.Contains(err.Error(), "invalid parent_id") {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		zap.L().Error("Service failed to create category", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create category"})
		return
	}

	ctrl.invalidateCache(ctx)
	c.JSON(http.StatusCreated, category)
}

// GetCategories returns the category tree, cached between writes.
func (ctrl *CategoryController) GetCategories(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), ctrl.timeout)
	defer cancel()

	if ctrl.cache != nil {
		if tree, ok := ctrl.cache.GetTree(ctx); ok {
			c.JSON(http.StatusOK, tree)
			return
		}
	}

	tree, err := ctrl.service.GetCategoryTree(ctx)
	if err != nil {
		zap.L().Error("Service failed to get category tree", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
		return
	}

	if ctrl.cache != nil {
		ctrl.cache.SetTreeAsync(tree)
	}
	c.JSON(http.StatusOK, tree)
}

// ListCategories returns the flat, name-ordered listing used by table views.
// ?top_level=true restricts it to categories without a parent.
func (ctrl *CategoryController) ListCategories(c *gin.Context) {
	topLevelOnly := strings.EqualFold(strings.TrimSpace(c.Query("top_level")), "true")

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctrl.timeout)
	defer cancel()

	categories, err := ctrl.service.ListCategories(ctx, topLevelOnly)
	if err != nil {
		zap.L().Error("Service failed to list categories", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories, "total": len(categories)})
}

func (ctrl *CategoryController) GetCategoryByID(c *gin.Context) {
	categoryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID format"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctrl.timeout)
	defer cancel()

	category, err := ctrl.service.GetCategory(ctx, categoryID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
		zap.L().Error("Service failed to get category", zap.Error(err), zap.String("id", categoryID.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch category"})
		return
	}
	c.JSON(http.StatusOK, category)
}

func (ctrl *CategoryController) UpdateCategory(c *gin.Context) {
	categoryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID format"})
		return
	}

	var req services.CategoryCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := ctrl.validator.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctrl.timeout)
	defer cancel()

	if err := ctrl.service.UpdateCategory(ctx, categoryID, req); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
		if strings.Contains(err.Error(), "parent") {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		zap.L().Error("Service failed to update category", zap.Error(err), zap.String("id", categoryID.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update category"})
		return
	}

	ctrl.invalidateCache(ctx)
	c.JSON(http.StatusOK, gin.H{"message": "Category updated successfully"})
}

func (ctrl *CategoryController) DeleteCategory(c *gin.Context) {
	categoryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID format"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctrl.timeout)
	defer cancel()

	if err := ctrl.service.DeleteCategory(ctx, categoryID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
		zap.L().Error("Service failed to delete category", zap.Error(err), zap.String("id", categoryID.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete category"})
		return
	}

	ctrl.invalidateCache(ctx)
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted successfully"})
}

// RemoveImage drops the gallery image at a position. The stored object is
// not deleted from object storage.
func (ctrl *CategoryController) RemoveImage(c *gin.Context) {
	categoryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID format"})
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image index"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctrl.timeout)
	defer cancel()

	category, err := ctrl.service.RemoveImage(ctx, categoryID, index)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
		if strings.Contains(err.Error(), "out of range") {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		zap.L().Error("Service failed to remove image", zap.Error(err), zap.String("id", categoryID.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove image"})
		return
	}

	ctrl.invalidateCache(ctx)
	c.JSON(http.StatusOK, category)
}

func (ctrl *CategoryController) invalidateCache(ctx context.Context) {
	if ctrl.cache == nil {
		return
	}
	if err := ctrl.cache.Invalidate(ctx); err != nil {
		zap.L().Error("Failed to invalidate category cache", zap.Error(err))
	}
}
