package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"catalog-admin/models"
	"catalog-admin/repository"

	"github.com/google/uuid"
)

// fakeCategoryRepo is an in-memory CategoryRepo for service tests.
type fakeCategoryRepo struct {
	created    []*models.Category
	createErr  error
	byName     map[string]*models.Category
	lastUpdate map[string]interface{}
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{byName: make(map[string]*models.Category)}
}

func (f *fakeCategoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	for _, c := range f.created {
		if c.ID == id {
			return c, nil
		}
	}
	for _, c := range f.byName {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCategoryRepo) FindByName(ctx context.Context, name string) (*models.Category, error) {
	if c, ok := f.byName[name]; ok {
		return c, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCategoryRepo) FindByNames(ctx context.Context, names []string) ([]models.Category, error) {
	var out []models.Category
	for _, n := range names {
		if c, ok := f.byName[n]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCategoryRepo) FindAll(ctx context.Context, topLevelOnly bool) ([]models.Category, error) {
	var out []models.Category
	for _, c := range f.created {
		if topLevelOnly && c.ParentID != nil {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeCategoryRepo) Create(ctx context.Context, category *models.Category) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, category)
	return nil
}

func (f *fakeCategoryRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	f.lastUpdate = updates
	return nil
}

func (f *fakeCategoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return nil
}

func TestImportRunCountsMatchRows(t *testing.T) {
	repo := newFakeCategoryRepo()
	svc := NewImportService(repo)

	csvData := "name,description,parentId\nElectronics,Gadgets,\nBooks,Reading,\nToys,,\n"
	result, err := svc.Run(context.Background(), "categories.csv", strings.NewReader(csvData), nil, nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.SuccessCount != 3 || result.FailureCount != 0 {
		t.Errorf("got success=%d failure=%d, want 3/0", result.SuccessCount, result.FailureCount)
	}
	if len(repo.created) != 3 {
		t.Fatalf("created %d categories, want 3", len(repo.created))
	}
	if repo.created[0].Slug != "electronics" {
		t.Errorf("slug = %q, want electronics", repo.created[0].Slug)
	}
	if !repo.created[0].IsActive {
		t.Error("imported category should be active")
	}
}

func TestImportRunRowFailuresDoNotAbort(t *testing.T) {
	repo := newFakeCategoryRepo()
	svc := NewImportService(repo)

	// Row 3 has a blank name, row 4 has an unparseable parent reference.
	csvData := "name,parentId\nElectronics,\n  ,\nBooks,not-a-uuid\nToys,\n"
	result, err := svc.Run(context.Background(), "categories.csv", strings.NewReader(csvData), nil, nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.SuccessCount != 2 {
		t.Errorf("SuccessCount = %d, want 2", result.SuccessCount)
	}
	if result.FailureCount != 2 {
		t.Errorf("FailureCount = %d, want 2", result.FailureCount)
	}
	if result.SuccessCount+result.FailureCount != 4 {
		t.Errorf("counts must partition all parsed rows, got %d+%d",
			result.SuccessCount, result.FailureCount)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("got %d row errors, want 2", len(result.Errors))
	}
	if result.Errors[0]["row"] != 3 {
		t.Errorf("first error row = %v, want 3", result.Errors[0]["row"])
	}
}

func TestImportRunStoreFailureIsCounted(t *testing.T) {
	repo := newFakeCategoryRepo()
	repo.createErr = errors.New("write throttled")
	svc := NewImportService(repo)

	csvData := "name\nElectronics\nBooks\n"
	result, err := svc.Run(context.Background(), "categories.csv", strings.NewReader(csvData), nil, nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.SuccessCount != 0 || result.FailureCount != 2 {
		t.Errorf("got success=%d failure=%d, want 0/2", result.SuccessCount, result.FailureCount)
	}
}

func TestImportRunAbortsOnEmptySpreadsheet(t *testing.T) {
	svc := NewImportService(newFakeCategoryRepo())

	for name, data := range map[string]string{
		"header only": "name,description\n",
		"empty file":  "",
	} {
		_, err := svc.Run(context.Background(), "categories.csv", strings.NewReader(data), nil, nil)
		if err == nil {
			t.Errorf("%s: expected parse error, got nil", name)
		}
	}
}

func TestImportRunMalformedLineIsRowFailure(t *testing.T) {
	repo := newFakeCategoryRepo()
	svc := NewImportService(repo)

	// The bare quote makes row 3 unparseable; the run still completes.
	csvData := "name\nElectronics\nbad\"quote\nBooks\n"
	result, err := svc.Run(context.Background(), "categories.csv", strings.NewReader(csvData), nil, nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.FailureCount != 1 {
		t.Errorf("FailureCount = %d, want 1", result.FailureCount)
	}
	if result.SuccessCount != 2 {
		t.Errorf("SuccessCount = %d, want 2", result.SuccessCount)
	}
}

func TestImportRunCreatesDuplicatesOnReimport(t *testing.T) {
	repo := newFakeCategoryRepo()
	svc := NewImportService(repo)

	csvData := "name\nElectronics\n"
	for i := 0; i < 2; i++ {
		result, err := svc.Run(context.Background(), "categories.csv", strings.NewReader(csvData), nil, nil)
		if err != nil {
			t.Fatalf("Run %d returned error: %v", i, err)
		}
		if result.SuccessCount != 1 {
			t.Errorf("Run %d: SuccessCount = %d, want 1", i, result.SuccessCount)
		}
	}
	if len(repo.created) != 2 {
		t.Errorf("re-import should create a duplicate, got %d records", len(repo.created))
	}
}

func TestImportRunAttribution(t *testing.T) {
	repo := newFakeCategoryRepo()
	svc := NewImportService(repo)
	csvData := "name\nElectronics\n"

	user := &models.ActingUser{UID: "u-1", Email: "admin@example.com"}
	if _, err := svc.Run(context.Background(), "categories.csv", strings.NewReader(csvData), user, nil); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := repo.created[0].CreatedBy; got.UID != "u-1" || got.Email != "admin@example.com" {
		t.Errorf("CreatedBy = %+v, want acting user", got)
	}

	// Unattributed requests fall back to the literal "unknown".
	if _, err := svc.Run(context.Background(), "categories.csv", strings.NewReader(csvData), nil, nil); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := repo.created[1].CreatedBy; got.UID != "unknown" || got.Email != "unknown" {
		t.Errorf("CreatedBy = %+v, want unknown/unknown", got)
	}
}

func TestImportRunProgressIsMonotonicAndCompletes(t *testing.T) {
	svc := NewImportService(newFakeCategoryRepo())

	var reports []int
	progress := func(pct int) { reports = append(reports, pct) }

	csvData := "name\nA\nB\nC\nD\n"
	if _, err := svc.Run(context.Background(), "categories.csv", strings.NewReader(csvData), nil, progress); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(reports) == 0 {
		t.Fatal("no progress reported")
	}
	if reports[0] != 10 {
		t.Errorf("first report = %d, want 10", reports[0])
	}
	if last := reports[len(reports)-1]; last != 100 {
		t.Errorf("last report = %d, want 100", last)
	}
	for i := 1; i < len(reports); i++ {
		if reports[i] < reports[i-1] {
			t.Errorf("progress went backwards: %v", reports)
			break
		}
	}
}

func TestImportValidateWarnsOnExistingNames(t *testing.T) {
	repo := newFakeCategoryRepo()
	repo.byName["Electronics"] = &models.Category{ID: uuid.New(), Name: "Electronics"}
	svc := NewImportService(repo)

	csvData := "name\nElectronics\nBooks\n \n"
	validation, err := svc.Validate(context.Background(), "categories.csv", strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}

	if validation.TotalRows != 3 || validation.ValidRows != 2 || validation.InvalidRows != 1 {
		t.Errorf("got total=%d valid=%d invalid=%d, want 3/2/1",
			validation.TotalRows, validation.ValidRows, validation.InvalidRows)
	}
	if len(validation.ExistingNames) != 1 || validation.ExistingNames[0] != "Electronics" {
		t.Errorf("ExistingNames = %v, want [Electronics]", validation.ExistingNames)
	}
	if len(repo.created) != 0 {
		t.Error("Validate must not write to the store")
	}
}
