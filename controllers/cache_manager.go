package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"catalog-admin/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	CategoryTreeCachePrefix = "categories:tree:v:"
	CacheVersionKey         = "categories:version"
)

// CacheManager handles Redis caching of the category tree. Any write to the
// category store bumps the version, which implicitly drops older entries.
type CacheManager struct {
	redis RedisAPI
	ttl   time.Duration
}

func NewCacheManager(redis RedisAPI) *CacheManager {
	return &CacheManager{
		redis: redis,
		ttl:   DefaultCacheTTL,
	}
}

// GetTree retrieves the cached category tree, if present.
func (cm *CacheManager) GetTree(ctx context.Context) ([]*models.Category, bool) {
	version, err := cm.getCacheVersion(ctx)
	if err != nil || version == 0 {
		return nil, false
	}

	cacheKey := fmt.Sprintf("%s%d", CategoryTreeCachePrefix, version)
	cachedData, err := cm.redis.Get(ctx, cacheKey).Result()
	if err != nil {
		return nil, false
	}

	var tree []*models.Category
	if err := json.Unmarshal([]byte(cachedData), &tree); err != nil {
		zap.L().Warn("Failed to unmarshal cached category tree", zap.Error(err))
		return nil, false
	}
	return tree, true
}

// SetTreeAsync caches the category tree without blocking the request.
func (cm *CacheManager) SetTreeAsync(tree []*models.Category) {
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		version, err := cm.getCacheVersion(bgCtx)
		if err != nil || version == 0 {
			return
		}

		cacheKey := fmt.Sprintf("%s%d", CategoryTreeCachePrefix, version)
		jsonBytes, err := json.Marshal(tree)
		if err != nil {
			zap.L().Warn("Failed to marshal category tree for cache", zap.Error(err))
			return
		}

		if err := cm.redis.Set(bgCtx, cacheKey, jsonBytes, cm.ttl).Err(); err != nil {
			zap.L().Warn("Failed to cache category tree", zap.Error(err))
		}
	}()
}

// Invalidate invalidates all category caches by bumping the version
func (cm *CacheManager) Invalidate(ctx context.Context) error {
	newVersion, err := cm.redis.Incr(ctx, CacheVersionKey).Result()
	if err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}

	zap.L().Info("Category cache invalidated", zap.Int64("new_version", newVersion))
	return nil
}

// getCacheVersion retrieves the current cache version with retry logic
func (cm *CacheManager) getCacheVersion(ctx context.Context) (int64, error) {
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		ver, err := cm.redis.Get(ctx, CacheVersionKey).Int64()
		if err == nil && ver > 0 {
			return ver, nil
		}

		if err == redis.Nil {
			// Initialize version key if it doesn't exist
			if err := cm.redis.Set(ctx, CacheVersionKey, 1, 0).Err(); err == nil {
				return 1, nil
			}
		}

		if i < maxRetries-1 {
			time.Sleep(time.Millisecond * 50)
		}
	}

	return 0, fmt.Errorf("failed to get cache version after %d retries", maxRetries)
}
