package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"catalog-admin/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	ImportQueueKey    = "category_import:queue"
	ImportJobKeyFmt   = "category_import:job:%s"
	ImportJobStateTTL = 24 * time.Hour
)

// ImportJobStore is the subset of redis commands the worker uses, satisfied
// by *redis.Client and by fakes in tests.
type ImportJobStore interface {
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// StartImportWorker starts a background worker that consumes job IDs from
// the Redis queue and processes persisted spreadsheet files.
func StartImportWorker(ctx context.Context, rdb ImportJobStore, importSvc *ImportService, storageDir string) {
	if rdb == nil || importSvc == nil {
		zap.L().Warn("import worker not started: missing dependencies")
		return
	}

	if storageDir == "" {
		storageDir = "./data/imports"
	}
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		zap.L().Error("failed to create import storage dir", zap.Error(err))
		return
	}

	go func() {
		zap.L().Info("import worker started", zap.String("queue", ImportQueueKey), zap.String("dir", storageDir))
		for {
			select {
			case <-ctx.Done():
				zap.L().Info("import worker stopping")
				return
			default:
			}

			// BLPop with no timeout blocks until an item is available
			res, err := rdb.BLPop(ctx, 0*time.Second, ImportQueueKey).Result()
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}
				zap.L().Error("redis BLPop failed", zap.Error(err))
				time.Sleep(500 * time.Millisecond)
				continue
			}
			if len(res) < 2 {
				continue
			}
			processImportJob(ctx, rdb, importSvc, res[1])
		}
	}()
}

func processImportJob(ctx context.Context, rdb ImportJobStore, importSvc *ImportService, jobID string) {
	jobKey := fmt.Sprintf(ImportJobKeyFmt, jobID)

	val, err := rdb.Get(ctx, jobKey).Result()
	if err != nil {
		zap.L().Error("failed to read job metadata", zap.String("job", jobID), zap.Error(err))
		return
	}
	var meta map[string]interface{}
	if err := json.Unmarshal([]byte(val), &meta); err != nil {
		zap.L().Error("failed to parse job metadata", zap.String("job", jobID), zap.Error(err))
		return
	}

	filePath, _ := meta["file_path"].(string)
	filename, _ := meta["filename"].(string)

	var user *models.ActingUser
	if uid, ok := meta["user_uid"].(string); ok && uid != "" {
		email, _ := meta["user_email"].(string)
		user = &models.ActingUser{UID: uid, Email: email}
	}

	setState := func() {
		if b, err := json.Marshal(meta); err == nil {
			rdb.Set(ctx, jobKey, b, ImportJobStateTTL)
		} else {
			zap.L().Error("failed to marshal job state", zap.String("job", jobID), zap.Error(err))
		}
	}

	meta["status"] = "processing"
	setState()

	f, err := os.Open(filepath.Clean(filePath))
	if err != nil {
		zap.L().Error("failed to open job file", zap.String("job", jobID), zap.String("path", filePath), zap.Error(err))
		meta["status"] = "failed"
		meta["error"] = err.Error()
		setState()
		return
	}

	result, err := importSvc.Run(ctx, filename, f, user, nil)
	f.Close()
	_ = os.Remove(filePath)

	if err != nil {
		zap.L().Error("import processing failed", zap.String("job", jobID), zap.Error(err))
		meta["status"] = "failed"
		meta["error"] = err.Error()
		setState()
		return
	}

	meta["status"] = "done"
	meta["result"] = result
	setState()
}
