package repository

import (
	"context"
	"errors"

	"catalog-admin/models"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a record does not exist or is soft-deleted.
var ErrNotFound = errors.New("record not found")

// CategoryRepo defines the operations used for category management.
// It uses plain Go types (no SDK types) to make swapping adapters easier.
type CategoryRepo interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	FindByName(ctx context.Context, name string) (*models.Category, error)
	FindByNames(ctx context.Context, names []string) ([]models.Category, error)
	// FindAll returns non-deleted categories ordered by name. When
	// topLevelOnly is true, only categories without a parent are returned.
	FindAll(ctx context.Context, topLevelOnly bool) ([]models.Category, error)
	Create(ctx context.Context, category *models.Category) error
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
}
