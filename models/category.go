package models

import (
	"time"

	"github.com/google/uuid"
)

// CreatedBy records which dashboard user wrote a record. Both fields fall
// back to the literal "unknown" when no authenticated user was available.
type CreatedBy struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

type Category struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description string     `json:"description,omitempty"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"` // nil for top-level categories
	Image       string     `json:"image,omitempty"`
	Images      []string   `json:"images,omitempty"` // gallery URLs, order matters
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CreatedBy   CreatedBy  `json:"created_by"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`

	// Children is populated only when assembling the category tree.
	Children []*Category `json:"children,omitempty"`
}
