package controllers

import (
	"context"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"catalog-admin/models"
	"catalog-admin/services"
	"catalog-admin/storage"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Default configuration values
const (
	DefaultCacheTTL       = 10 * time.Minute
	DefaultContextTimeout = 30 * time.Second
)

// CategoryServiceAPI defines the interface for category service operations
type CategoryServiceAPI interface {
	CreateCategory(ctx context.Context, req services.CategoryCreateRequest, user *models.ActingUser) (*models.Category, error)
	GetCategoryTree(ctx context.Context) ([]*models.Category, error)
	ListCategories(ctx context.Context, topLevelOnly bool) ([]models.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, req services.CategoryCreateRequest) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	AppendImages(ctx context.Context, id uuid.UUID, urls []string) (*models.Category, error)
	RemoveImage(ctx context.Context, id uuid.UUID, index int) (*models.Category, error)
}

// ImportServiceAPI defines the interface for spreadsheet import operations
type ImportServiceAPI interface {
	Run(ctx context.Context, filename string, r io.Reader, user *models.ActingUser, progress services.ProgressFunc) (*models.ImportResult, error)
	Validate(ctx context.Context, filename string, r io.Reader) (*models.ImportValidation, error)
}

// UploadCoordinatorAPI defines the interface for batch image uploads
type UploadCoordinatorAPI interface {
	SelectFiles(candidates []*multipart.FileHeader, alreadyHeld int) []*multipart.FileHeader
	UploadBatch(ctx context.Context, files []*multipart.FileHeader, folder string, onProgress storage.ProgressFunc) ([]string, error)
	MaxImages() int
}

// PresignerAPI defines the interface for direct-to-storage upload URLs
type PresignerAPI interface {
	PresignPut(ctx context.Context, key, contentType string, expiresSeconds int64) (string, error)
	PublicURL(key string) string
}

// RedisAPI is the subset of redis commands the controllers use, satisfied by
// *redis.Client and by fakes in tests.
type RedisAPI interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// actingUser reads the identity the gateway forwards with each request.
// Nil means the request is unattributed; writers fall back to "unknown".
func actingUser(c *gin.Context) *models.ActingUser {
	uid := strings.TrimSpace(c.GetHeader("X-User-Id"))
	email := strings.TrimSpace(c.GetHeader("X-User-Email"))
	if uid == "" && email == "" {
		return nil
	}
	return &models.ActingUser{UID: uid, Email: email}
}
