package controllers

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Validation constants
const (
	MaxUploadSize    = 50 * 1024 * 1024 // 50MB
	MaxPresignExpiry = 3600             // cap at 1 hour
)

// Allowed file types
var (
	allowedSpreadsheetExtensions = map[string]bool{
		".csv":  true,
		".txt":  true,
		".xlsx": true,
	}

	allowedSpreadsheetTypes = map[string]bool{
		"text/csv":        true,
		"application/csv": true,
		"text/plain":      true,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	}

	allowedImageTypes = map[string]bool{
		"image/jpeg": true,
		"image/jpg":  true,
		"image/png":  true,
		"image/webp": true,
		"image/gif":  true,
	}
)

// RequestValidator handles all input validation
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{
		validate: validator.New(),
	}
}

// Struct validates a request struct against its validate tags.
func (rv *RequestValidator) Struct(v interface{}) error {
	return rv.validate.Struct(v)
}

// IsValidSpreadsheetFile checks if the file is an importable spreadsheet
func (rv *RequestValidator) IsValidSpreadsheetFile(file *multipart.FileHeader) bool {
	if allowedSpreadsheetTypes[file.Header.Get("Content-Type")] {
		return true
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	return allowedSpreadsheetExtensions[ext]
}

// IsAllowedImageContentType validates a declared content type for presigning.
func IsAllowedImageContentType(contentType string) bool {
	return allowedImageTypes[contentType]
}

// ValidateFileSize checks if file size is within limits
func (rv *RequestValidator) ValidateFileSize(file *multipart.FileHeader) error {
	if file.Size > MaxUploadSize {
		return fmt.Errorf("file too large (max %dMB)", MaxUploadSize/(1024*1024))
	}
	return nil
}

// ParsePresignExpiry parses the expires query parameter, clamped to 1 hour.
func (rv *RequestValidator) ParsePresignExpiry(c *gin.Context) int64 {
	expiresStr := c.DefaultQuery("expires", "900")
	expires, err := strconv.ParseInt(expiresStr, 10, 64)
	if err != nil || expires <= 0 {
		expires = 900
	}
	if expires > MaxPresignExpiry {
		expires = MaxPresignExpiry
	}
	return expires
}
