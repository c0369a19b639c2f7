package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"catalog-admin/models"
	"catalog-admin/repository"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// ProgressFunc receives a monotonically increasing percentage while an
// import runs. It is UI feedback only; callers must not derive state from it.
type ProgressFunc func(percent int)

// rawRow is one data row as parsed from the workbook, keyed by lowercased
// header name. Err carries a row-level parse failure instead of field values.
type rawRow struct {
	Num    int
	Fields map[string]string
	Err    string
}

// ImportService turns an uploaded spreadsheet into category records,
// tolerating row-level errors.
type ImportService struct {
	repo repository.CategoryRepo
}

func NewImportService(repo repository.CategoryRepo) *ImportService {
	return &ImportService{repo: repo}
}

// parseWorkbook reads the spreadsheet into rows in file order. It fails when
// the byte stream is not readable as a workbook/CSV or has no data rows
// after the header; anything past that is a per-row concern.
func (s *ImportService) parseWorkbook(filename string, r io.Reader) ([]rawRow, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".xlsx" {
		return parseXLSX(r)
	}
	return parseCSV(r)
}

func parseXLSX(r io.Reader) ([]rawRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("unreadable workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	// First sheet only; additional sheets are ignored.
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(records) < 2 {
		return nil, errors.New("spreadsheet has no data rows")
	}

	headers := normalizeHeaders(records[0])
	rows := make([]rawRow, 0, len(records)-1)
	for i, record := range records[1:] {
		rows = append(rows, rawRow{Num: i + 2, Fields: mapRecord(headers, record)})
	}
	return rows, nil
}

func parseCSV(r io.Reader) ([]rawRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	headerRecord, err := cr.Read()
	if err != nil {
		return nil, errors.New("spreadsheet must include a header row")
	}
	headers := normalizeHeaders(headerRecord)

	var rows []rawRow
	rowNum := 2
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A malformed line is a row failure, not a run failure.
			rows = append(rows, rawRow{Num: rowNum, Err: "failed to parse row"})
			rowNum++
			continue
		}
		rows = append(rows, rawRow{Num: rowNum, Fields: mapRecord(headers, record)})
		rowNum++
	}
	if len(rows) == 0 {
		return nil, errors.New("spreadsheet has no data rows")
	}
	return rows, nil
}

func normalizeHeaders(record []string) []string {
	headers := make([]string, len(record))
	for i, h := range record {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return headers
}

func mapRecord(headers, record []string) map[string]string {
	fields := make(map[string]string, len(headers))
	for i, h := range headers {
		if h == "" {
			continue
		}
		if i < len(record) {
			fields[h] = record[i]
		} else {
			fields[h] = ""
		}
	}
	return fields
}

// validateRow maps a raw row to an ImportRow, or returns the rejection
// reason. A row is rejected only when its name is missing or blank.
func validateRow(row rawRow) (models.ImportRow, string) {
	if row.Err != "" {
		return models.ImportRow{}, row.Err
	}
	name := strings.TrimSpace(row.Fields["name"])
	if name == "" {
		return models.ImportRow{}, "missing required field: name"
	}
	return models.ImportRow{
		Name:        name,
		Slug:        Slugify(name),
		Description: strings.TrimSpace(row.Fields["description"]),
		ParentID:    strings.TrimSpace(row.Fields["parentid"]),
	}, ""
}

// commitRow writes one category record. No uniqueness check is made against
// existing slugs or names; re-importing a file creates duplicates.
func (s *ImportService) commitRow(ctx context.Context, row models.ImportRow, user *models.ActingUser) error {
	createdBy := models.CreatedBy{UID: "unknown", Email: "unknown"}
	if user != nil {
		if user.UID != "" {
			createdBy.UID = user.UID
		}
		if user.Email != "" {
			createdBy.Email = user.Email
		}
	}

	now := time.Now().UTC()
	category := &models.Category{
		ID:          uuid.New(),
		Name:        row.Name,
		Slug:        row.Slug,
		Description: row.Description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
		CreatedBy:   createdBy,
	}
	if row.ParentID != "" {
		parentID, err := uuid.Parse(row.ParentID)
		if err != nil {
			return fmt.Errorf("invalid parentId %q", row.ParentID)
		}
		category.ParentID = &parentID
	}

	return s.repo.Create(ctx, category)
}

// Run orchestrates parse -> validate -> commit and accumulates counts.
// A parse failure aborts the run with no partial counts; row-level failures
// (missing name, store write error) are counted and never stop the loop.
func (s *ImportService) Run(ctx context.Context, filename string, r io.Reader, user *models.ActingUser, progress ProgressFunc) (*models.ImportResult, error) {
	report := func(pct int) {
		if progress != nil {
			progress(pct)
		}
	}

	report(10)
	rows, err := s.parseWorkbook(filename, r)
	if err != nil {
		return nil, err
	}
	report(40)
	report(60)

	result := &models.ImportResult{Message: "Category import completed"}
	for i, row := range rows {
		importRow, rejection := validateRow(row)
		switch {
		case rejection != "":
			result.FailureCount++
			result.Errors = append(result.Errors, map[string]interface{}{"row": row.Num, "error": rejection})
		default:
			if err := s.commitRow(ctx, importRow, user); err != nil {
				result.FailureCount++
				result.Errors = append(result.Errors, map[string]interface{}{"row": row.Num, "error": err.Error()})
			} else {
				result.SuccessCount++
			}
		}
		report(60 + (30*(i+1))/len(rows))
	}
	report(100)

	return result, nil
}

// Validate dry-runs the pipeline without writing anything: it reports row
// counts, per-row errors, and warnings for names that already exist (a real
// import would still create duplicates for those).
func (s *ImportService) Validate(ctx context.Context, filename string, r io.Reader) (*models.ImportValidation, error) {
	rows, err := s.parseWorkbook(filename, r)
	if err != nil {
		return nil, err
	}

	validation := &models.ImportValidation{TotalRows: len(rows)}
	var names []string
	for _, row := range rows {
		importRow, rejection := validateRow(row)
		if rejection != "" {
			validation.InvalidRows++
			validation.Errors = append(validation.Errors, map[string]interface{}{"row": row.Num, "error": rejection})
			continue
		}
		validation.ValidRows++
		names = append(names, importRow.Name)
	}

	existing, err := s.repo.FindByNames(ctx, names)
	if err != nil {
		return nil, err
	}
	for _, cat := range existing {
		validation.ExistingNames = append(validation.ExistingNames, cat.Name)
		validation.Warnings = append(validation.Warnings, map[string]interface{}{
			"name":    cat.Name,
			"warning": "category already exists - import will create a duplicate",
		})
	}

	return validation, nil
}
