package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

// fakeJobStore records job-state writes so transitions can be asserted.
type fakeJobStore struct {
	mu       sync.Mutex
	data     map[string]string
	statuses []string
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{data: make(map[string]string)}
}

func (f *fakeJobStore) BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd {
	return redis.NewStringSliceResult(nil, redis.Nil)
}

func (f *fakeJobStore) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.data[key]; ok {
		return redis.NewStringResult(v, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func (f *fakeJobStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		b, _ := json.Marshal(v)
		s = string(b)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = s

	var meta map[string]interface{}
	if json.Unmarshal([]byte(s), &meta) == nil {
		if status, ok := meta["status"].(string); ok {
			f.statuses = append(f.statuses, status)
		}
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeJobStore) seedJob(t *testing.T, jobID string, meta map[string]interface{}) string {
	t.Helper()
	b, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("failed to marshal job metadata: %v", err)
	}
	key := fmt.Sprintf(ImportJobKeyFmt, jobID)
	f.data[key] = string(b)
	return key
}

func (f *fakeJobStore) jobState(t *testing.T, key string) map[string]interface{} {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	var meta map[string]interface{}
	if err := json.Unmarshal([]byte(f.data[key]), &meta); err != nil {
		t.Fatalf("failed to parse job state: %v", err)
	}
	return meta
}

func TestProcessImportJobTransitionsToDone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job-1.csv")
	if err := os.WriteFile(path, []byte("name\nElectronics\nBooks\n"), 0o644); err != nil {
		t.Fatalf("failed to write job file: %v", err)
	}

	store := newFakeJobStore()
	jobKey := store.seedJob(t, "job-1", map[string]interface{}{
		"status":     "pending",
		"file_path":  path,
		"filename":   "categories.csv",
		"user_uid":   "u-1",
		"user_email": "admin@example.com",
	})

	repo := newFakeCategoryRepo()
	processImportJob(context.Background(), store, NewImportService(repo), "job-1")

	if len(store.statuses) != 2 || store.statuses[0] != "processing" || store.statuses[1] != "done" {
		t.Errorf("status transitions = %v, want [processing done]", store.statuses)
	}

	final := store.jobState(t, jobKey)
	result, ok := final["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("final state carries no result: %v", final)
	}
	if got := result["success_count"].(float64); got != 2 {
		t.Errorf("success_count = %v, want 2", got)
	}
	if len(repo.created) != 2 {
		t.Errorf("created %d categories, want 2", len(repo.created))
	}
	if repo.created[0].CreatedBy.UID != "u-1" {
		t.Errorf("CreatedBy = %+v, want job submitter", repo.created[0].CreatedBy)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("processed job file should be removed")
	}
}

func TestProcessImportJobMissingFileFails(t *testing.T) {
	store := newFakeJobStore()
	jobKey := store.seedJob(t, "job-2", map[string]interface{}{
		"status":    "pending",
		"file_path": filepath.Join(t.TempDir(), "gone.csv"),
		"filename":  "gone.csv",
	})

	processImportJob(context.Background(), store, NewImportService(newFakeCategoryRepo()), "job-2")

	if len(store.statuses) != 2 || store.statuses[0] != "processing" || store.statuses[1] != "failed" {
		t.Errorf("status transitions = %v, want [processing failed]", store.statuses)
	}
	if final := store.jobState(t, jobKey); final["error"] == nil {
		t.Error("failed job must record an error")
	}
}

func TestProcessImportJobParseFailureFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job-3.csv")
	if err := os.WriteFile(path, []byte("name\n"), 0o644); err != nil {
		t.Fatalf("failed to write job file: %v", err)
	}

	store := newFakeJobStore()
	jobKey := store.seedJob(t, "job-3", map[string]interface{}{
		"status":    "pending",
		"file_path": path,
		"filename":  "empty.csv",
	})

	processImportJob(context.Background(), store, NewImportService(newFakeCategoryRepo()), "job-3")

	final := store.jobState(t, jobKey)
	if final["status"] != "failed" {
		t.Errorf("status = %v, want failed", final["status"])
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("job file should be removed even when parsing fails")
	}
}
