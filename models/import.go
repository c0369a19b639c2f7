package models

// ActingUser identifies the dashboard user on whose behalf an import runs.
// A nil *ActingUser means the run is unattributed.
type ActingUser struct {
	UID   string
	Email string
}

// ImportRow is one validated spreadsheet row, ready to be committed.
type ImportRow struct {
	Name        string
	Slug        string
	Description string
	ParentID    string // empty means top-level
}

// ImportResult is the aggregate outcome of one import run.
// SuccessCount + FailureCount always equals the number of parsed data rows.
type ImportResult struct {
	SuccessCount int                      `json:"success_count"`
	FailureCount int                      `json:"failure_count"`
	Errors       []map[string]interface{} `json:"errors,omitempty"`
	Message      string                   `json:"message"`
}

// ImportValidation is the dry-run report returned before a real import.
type ImportValidation struct {
	TotalRows     int                      `json:"total_rows"`
	ValidRows     int                      `json:"valid_rows"`
	InvalidRows   int                      `json:"invalid_rows"`
	ExistingNames []string                 `json:"existing_names,omitempty"`
	Errors        []map[string]interface{} `json:"errors,omitempty"`
	Warnings      []map[string]interface{} `json:"warnings,omitempty"`
}
