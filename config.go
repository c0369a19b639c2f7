package main

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all environment variables for the catalog-admin service.
type Config struct {
	Env  string // "development" or "production"
	Port string // Service port (default: 8084)

	RedisURL string

	AWSRegion     string
	AWSEndpoint   string // custom endpoint for LocalStack, empty for real AWS
	AWSS3Endpoint string

	S3Bucket  string
	S3Prefix  string
	CDNDomain string

	DDBCategoriesTable string

	MaxImagesPerCategory int
	ImportStorageDir     string
}

// LoadConfig loads environment variables into the Config struct and applies
// defaults suitable for local development against LocalStack.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Env:                os.Getenv("APP_ENV"),
		Port:               os.Getenv("PORT"),
		RedisURL:           os.Getenv("REDIS_URL"),
		AWSRegion:          os.Getenv("AWS_REGION"),
		AWSEndpoint:        os.Getenv("AWS_ENDPOINT"),
		AWSS3Endpoint:      os.Getenv("AWS_S3_ENDPOINT"),
		S3Bucket:           os.Getenv("AWS_S3_BUCKET"),
		S3Prefix:           os.Getenv("AWS_S3_PREFIX"),
		CDNDomain:          os.Getenv("AWS_CLOUDFRONT_DOMAIN"),
		DDBCategoriesTable: os.Getenv("DDB_TABLE_CATEGORIES"),
		ImportStorageDir:   os.Getenv("IMPORT_STORAGE_DIR"),
	}

	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.Port == "" {
		cfg.Port = "8084"
	}
	if cfg.RedisURL == "" {
		cfg.RedisURL = "redis://redis:6379"
	}
	if cfg.AWSRegion == "" {
		cfg.AWSRegion = "us-east-1"
	}
	if cfg.AWSS3Endpoint == "" {
		cfg.AWSS3Endpoint = cfg.AWSEndpoint
	}
	if cfg.S3Bucket == "" {
		cfg.S3Bucket = "catalog-media"
	}
	if cfg.S3Prefix == "" {
		cfg.S3Prefix = "categories/"
	}
	if cfg.DDBCategoriesTable == "" {
		cfg.DDBCategoriesTable = "Categories"
	}
	if cfg.ImportStorageDir == "" {
		cfg.ImportStorageDir = "./data/imports"
	}

	cfg.MaxImagesPerCategory = 5
	if raw := os.Getenv("MAX_IMAGES_PER_CATEGORY"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("MAX_IMAGES_PER_CATEGORY must be a positive integer, got %q", raw)
		}
		cfg.MaxImagesPerCategory = n
	}

	return cfg, nil
}
