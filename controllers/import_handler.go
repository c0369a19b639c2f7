package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"catalog-admin/services"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ImportHandler handles bulk category import operations
type ImportHandler struct {
	importService ImportServiceAPI
	redis         RedisAPI
	cache         *CacheManager
	validator     *RequestValidator
	storageDir    string
	timeout       time.Duration
}

func NewImportHandler(is ImportServiceAPI, redis RedisAPI, cache *CacheManager, validator *RequestValidator, storageDir string) *ImportHandler {
	if storageDir == "" {
		storageDir = "./data/imports"
	}
	return &ImportHandler{
		importService: is,
		redis:         redis,
		cache:         cache,
		validator:     validator,
		storageDir:    storageDir,
		timeout:       DefaultContextTimeout,
	}
}

// ValidateImport dry-runs the spreadsheet before a real import
func (h *ImportHandler) ValidateImport(c *gin.Context) {
	file, err := h.getAndValidateFile(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fileHandle, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open file"})
		return
	}
	defer fileHandle.Close()

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	validation, err := h.importService.Validate(ctx, file.Filename, fileHandle)
	if err != nil {
		zap.L().Error("Import validation failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, validation)
}

// ImportCategories imports categories from an uploaded spreadsheet
func (h *ImportHandler) ImportCategories(c *gin.Context) {
	file, err := h.getAndValidateFile(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fileHandle, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open file"})
		return
	}
	defer fileHandle.Close()

	// Check if async processing is requested
	async := strings.ToLower(strings.TrimSpace(c.Query("async"))) == "true"
	if async {
		h.handleAsyncImport(c, file.Filename, fileHandle)
		return
	}

	h.handleSyncImport(c, file.Filename, fileHandle)
}

// GetImportJobStatus returns the job status/result stored in Redis
func (h *ImportHandler) GetImportJobStatus(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Job ID required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	jobKey := fmt.Sprintf(services.ImportJobKeyFmt, id)
	val, err := h.redis.Get(ctx, jobKey).Result()
	if err == redis.Nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	if err != nil {
		zap.L().Error("Failed to get job status", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve job status"})
		return
	}

	var jobStatus map[string]interface{}
	if err := json.Unmarshal([]byte(val), &jobStatus); err != nil {
		zap.L().Error("Failed to parse job status", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse job result"})
		return
	}

	c.JSON(http.StatusOK, jobStatus)
}

// Private helper methods

func (h *ImportHandler) getAndValidateFile(c *gin.Context) (*multipart.FileHeader, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("file is required")
	}

	if !h.validator.IsValidSpreadsheetFile(file) {
		return nil, fmt.Errorf("invalid file type. Only CSV and XLSX files are allowed")
	}

	if err := h.validator.ValidateFileSize(file); err != nil {
		return nil, err
	}

	return file, nil
}

func (h *ImportHandler) handleSyncImport(c *gin.Context, filename string, fileHandle multipart.File) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	result, err := h.importService.Run(ctx, filename, fileHandle, actingUser(c), nil)
	if err != nil {
		zap.L().Error("Import processing failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Invalidate cache if any categories were created
	if result.SuccessCount > 0 && h.cache != nil {
		if err := h.cache.Invalidate(ctx); err != nil {
			zap.L().Error("CRITICAL: Failed to invalidate cache after import", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, result)
}

func (h *ImportHandler) handleAsyncImport(c *gin.Context, filename string, fileHandle multipart.File) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	jobID, err := h.enqueueJob(ctx, c, filename, fileHandle)
	if err != nil {
		zap.L().Error("Failed to enqueue async import", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue import job"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":  jobID,
		"message": "Import queued for processing",
	})
}

func (h *ImportHandler) enqueueJob(ctx context.Context, c *gin.Context, filename string, fileHandle multipart.File) (string, error) {
	data, err := io.ReadAll(fileHandle)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	if err := os.MkdirAll(h.storageDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create storage directory: %w", err)
	}

	// Keep the original extension so the worker picks the right parser.
	jobID := uuid.New().String()
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".csv"
	}
	filePath := filepath.Join(h.storageDir, jobID+ext)

	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to persist file: %w", err)
	}

	if err := h.storeJobMetadata(ctx, c, jobID, filePath, filename); err != nil {
		os.Remove(filePath)
		return "", err
	}

	if err := h.redis.RPush(ctx, services.ImportQueueKey, jobID).Err(); err != nil {
		os.Remove(filePath)
		h.redis.Del(ctx, fmt.Sprintf(services.ImportJobKeyFmt, jobID))
		return "", fmt.Errorf("failed to enqueue job: %w", err)
	}

	zap.L().Info("Import job queued", zap.String("job_id", jobID))
	return jobID, nil
}

func (h *ImportHandler) storeJobMetadata(ctx context.Context, c *gin.Context, jobID, filePath, filename string) error {
	jobInfo := map[string]interface{}{
		"status":     "pending",
		"created_at": time.Now().UTC().Format(time.RFC3339),
		"file_path":  filePath,
		"filename":   filename,
	}
	if user := actingUser(c); user != nil {
		jobInfo["user_uid"] = user.UID
		jobInfo["user_email"] = user.Email
	}

	jobData, err := json.Marshal(jobInfo)
	if err != nil {
		return fmt.Errorf("failed to marshal job info: %w", err)
	}

	jobKey := fmt.Sprintf(services.ImportJobKeyFmt, jobID)
	if err := h.redis.Set(ctx, jobKey, jobData, services.ImportJobStateTTL).Err(); err != nil {
		return fmt.Errorf("failed to store job metadata: %w", err)
	}

	return nil
}
