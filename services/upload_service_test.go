package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/textproto"
	"regexp"
	"strings"
	"sync"
	"testing"

	"catalog-admin/storage"
)

type fakeObjectStore struct {
	mu     sync.Mutex
	keys   []string
	failOn string
}

func (f *fakeObjectStore) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64, progress storage.ProgressFunc) (string, error) {
	if f.failOn != "" && strings.Contains(key, f.failOn) {
		return "", errors.New("simulated storage outage")
	}
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	if progress != nil {
		progress(0.5)
		progress(1)
	}
	f.mu.Lock()
	f.keys = append(f.keys, key)
	f.mu.Unlock()
	return "https://cdn.example.com/" + key, nil
}

type testFile struct {
	name        string
	contentType string
	content     string
}

// makeFileHeaders builds real multipart.FileHeader values by round-tripping
// a multipart body, the same way gin receives them.
func makeFileHeaders(t *testing.T, files []testFile) []*multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename="%s"`, f.name))
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("failed to create part: %v", err)
		}
		if _, err := part.Write([]byte(f.content)); err != nil {
			t.Fatalf("failed to write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(32 << 20)
	if err != nil {
		t.Fatalf("failed to parse form: %v", err)
	}
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["images"]
}

func TestSelectFilesFiltersAndCaps(t *testing.T) {
	coord := NewUploadCoordinator(&fakeObjectStore{}, 3)

	candidates := makeFileHeaders(t, []testFile{
		{"a.png", "image/png", "aa"},
		{"notes.pdf", "application/pdf", "pdf"},
		{"b.jpg", "image/jpeg", "bb"},
		{"c.webp", "image/webp", "cc"},
		{"d.gif", "image/gif", "dd"},
	})

	// Two slots already taken, so only one of the four images fits.
	accepted := coord.SelectFiles(candidates, 2)
	if len(accepted) != 1 {
		t.Fatalf("accepted %d files, want 1", len(accepted))
	}
	if accepted[0].Filename != "a.png" {
		t.Errorf("accepted %q, want first image in input order", accepted[0].Filename)
	}
}

func TestSelectFilesFullGalleryAcceptsNothing(t *testing.T) {
	coord := NewUploadCoordinator(&fakeObjectStore{}, 3)
	candidates := makeFileHeaders(t, []testFile{
		{"a.png", "image/png", "aa"},
	})

	if got := coord.SelectFiles(candidates, 3); len(got) != 0 {
		t.Errorf("full gallery accepted %d files, want 0", len(got))
	}
	if got := coord.SelectFiles(candidates, 5); len(got) != 0 {
		t.Errorf("over-full gallery accepted %d files, want 0", len(got))
	}
}

func TestSelectFilesSkipsNonImages(t *testing.T) {
	coord := NewUploadCoordinator(&fakeObjectStore{}, 10)
	candidates := makeFileHeaders(t, []testFile{
		{"script.sh", "application/x-sh", "#!"},
		{"photo.jpeg", "image/jpeg", "pp"},
		{"data.csv", "text/csv", "a,b"},
	})

	accepted := coord.SelectFiles(candidates, 0)
	if len(accepted) != 1 || accepted[0].Filename != "photo.jpeg" {
		t.Errorf("accepted = %v, want only photo.jpeg", fileNames(accepted))
	}
}

func TestUploadOneKeyFormat(t *testing.T) {
	store := &fakeObjectStore{}
	coord := NewUploadCoordinator(store, 5)

	files := makeFileHeaders(t, []testFile{
		{"photo 1 (final).png", "image/png", "content"},
	})

	url, err := coord.UploadOne(context.Background(), files[0], "categories", nil)
	if err != nil {
		t.Fatalf("UploadOne returned error: %v", err)
	}
	if url == "" {
		t.Fatal("UploadOne returned empty URL")
	}

	// Unsafe characters collapse to hyphens and a uuid prefixes the name.
	wantPattern := regexp.MustCompile(`^categories/[0-9a-f]{8}(-[0-9a-f]{4}){3}-[0-9a-f]{12}-photo-1-final-\.png$`)
	if len(store.keys) != 1 {
		t.Fatalf("stored %d keys, want 1", len(store.keys))
	}
	if !wantPattern.MatchString(store.keys[0]) {
		t.Errorf("object key %q does not match expected shape", store.keys[0])
	}
}

func TestUploadBatchPreservesInputOrder(t *testing.T) {
	store := &fakeObjectStore{}
	coord := NewUploadCoordinator(store, 10)

	files := makeFileHeaders(t, []testFile{
		{"first.png", "image/png", "11"},
		{"second.jpg", "image/jpeg", "22"},
		{"third.gif", "image/gif", "33"},
	})

	urls, err := coord.UploadBatch(context.Background(), files, "categories", nil)
	if err != nil {
		t.Fatalf("UploadBatch returned error: %v", err)
	}
	if len(urls) != 3 {
		t.Fatalf("got %d urls, want 3", len(urls))
	}

	for i, suffix := range []string{"-first.png", "-second.jpg", "-third.gif"} {
		if !strings.HasSuffix(urls[i], suffix) {
			t.Errorf("urls[%d] = %q, want suffix %q", i, urls[i], suffix)
		}
	}
}

func TestUploadBatchFailsWholesale(t *testing.T) {
	store := &fakeObjectStore{failOn: "second"}
	coord := NewUploadCoordinator(store, 10)

	files := makeFileHeaders(t, []testFile{
		{"first.png", "image/png", "11"},
		{"second.jpg", "image/jpeg", "22"},
		{"third.gif", "image/gif", "33"},
	})

	urls, err := coord.UploadBatch(context.Background(), files, "categories", nil)
	if err == nil {
		t.Fatal("expected batch error")
	}
	if urls != nil {
		t.Errorf("failed batch must return no URLs, got %v", urls)
	}
}

func TestUploadBatchAggregateProgressReachesOne(t *testing.T) {
	coord := NewUploadCoordinator(&fakeObjectStore{}, 10)

	files := makeFileHeaders(t, []testFile{
		{"a.png", "image/png", "11"},
		{"b.png", "image/png", "22"},
	})

	var mu sync.Mutex
	var max float64
	onProgress := func(frac float64) {
		mu.Lock()
		if frac > max {
			max = frac
		}
		if frac > 1.000001 {
			t.Errorf("aggregate progress exceeded 1.0: %v", frac)
		}
		mu.Unlock()
	}

	if _, err := coord.UploadBatch(context.Background(), files, "categories", onProgress); err != nil {
		t.Fatalf("UploadBatch returned error: %v", err)
	}
	if math.Abs(max-1.0) > 1e-9 {
		t.Errorf("final aggregate progress = %v, want 1.0", max)
	}
}

func TestUploadBatchEmptyInput(t *testing.T) {
	coord := NewUploadCoordinator(&fakeObjectStore{}, 10)
	urls, err := coord.UploadBatch(context.Background(), nil, "categories", nil)
	if err != nil {
		t.Fatalf("empty batch returned error: %v", err)
	}
	if urls != nil {
		t.Errorf("empty batch returned %v, want nil", urls)
	}
}

func fileNames(fhs []*multipart.FileHeader) []string {
	names := make([]string, len(fhs))
	for i, fh := range fhs {
		names[i] = fh.Filename
	}
	return names
}
