package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"catalog-admin/storage"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ObjectStore is the storage surface the upload coordinator needs.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64, progress storage.ProgressFunc) (string, error)
}

var imageContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// UploadCoordinator filters and caps a batch of candidate files, uploads the
// survivors concurrently, and reports per-file and aggregate progress.
type UploadCoordinator struct {
	store     ObjectStore
	maxImages int
}

func NewUploadCoordinator(store ObjectStore, maxImages int) *UploadCoordinator {
	return &UploadCoordinator{store: store, maxImages: maxImages}
}

// MaxImages returns the per-record gallery capacity.
func (u *UploadCoordinator) MaxImages() int {
	return u.maxImages
}

// SelectFiles drops non-image candidates, then truncates so that
// alreadyHeld + accepted never exceeds the capacity. Input order is kept.
// An empty result is a silent no-op, not an error.
func (u *UploadCoordinator) SelectFiles(candidates []*multipart.FileHeader, alreadyHeld int) []*multipart.FileHeader {
	var accepted []*multipart.FileHeader
	for _, fh := range candidates {
		if isImageFile(fh) {
			accepted = append(accepted, fh)
		}
	}

	remaining := u.maxImages - alreadyHeld
	if remaining < 0 {
		remaining = 0
	}
	if len(accepted) > remaining {
		accepted = accepted[:remaining]
	}
	return accepted
}

// UploadOne stores a single file under a collision-resistant name scoped to
// folder and returns its public URL. Any transport or permission failure
// propagates to the caller.
func (u *UploadCoordinator) UploadOne(ctx context.Context, fh *multipart.FileHeader, folder string, progress storage.ProgressFunc) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return u.store.Upload(ctx, objectKey(folder, fh.Filename), contentType, f, fh.Size, progress)
}

// UploadBatch uploads all files concurrently and resolves to their public
// URLs in input order. If any single upload fails the whole batch fails and
// no URL list is returned.
func (u *UploadCoordinator) UploadBatch(ctx context.Context, files []*multipart.FileHeader, folder string, onProgress storage.ProgressFunc) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}

	urls := make([]string, len(files))
	fractions := make([]float64, len(files))
	var mu sync.Mutex
	n := float64(len(files))

	g, gctx := errgroup.WithContext(ctx)
	for i, fh := range files {
		i, fh := i, fh
		g.Go(func() error {
			fileProgress := func(frac float64) {
				if onProgress == nil {
					return
				}
				mu.Lock()
				fractions[i] = frac
				var sum float64
				for _, f := range fractions {
					sum += f
				}
				mu.Unlock()
				onProgress(sum / n)
			}

			url, err := u.UploadOne(gctx, fh, folder, fileProgress)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch upload failed: %w", err)
	}
	return urls, nil
}

// isImageFile checks the declared content type, falling back to the file
// extension for clients that omit it.
func isImageFile(fh *multipart.FileHeader) bool {
	if imageContentTypes[fh.Header.Get("Content-Type")] {
		return true
	}
	switch strings.ToLower(filepath.Ext(fh.Filename)) {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif":
		return true
	}
	return false
}

// objectKey builds "folder/<uuid>-<sanitized filename>".
func objectKey(folder, filename string) string {
	base := filepath.Base(filename)
	base = unsafeKeyChars.ReplaceAllString(base, "-")
	return fmt.Sprintf("%s/%s-%s", strings.Trim(folder, "/"), uuid.New().String(), base)
}
