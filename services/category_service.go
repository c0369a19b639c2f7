package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catalog-admin/models"
	"catalog-admin/repository"

	"github.com/google/uuid"
)

// CategoryCreateRequest is the request payload for creating or updating a
// category from the dashboard forms.
type CategoryCreateRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	ParentID    string `json:"parent_id"`
	Image       string `json:"image"`
	IsActive    bool   `json:"is_active"`
}

type CategoryService struct {
	repo repository.CategoryRepo
}

func NewCategoryService(repo repository.CategoryRepo) *CategoryService {
	return &CategoryService{repo: repo}
}

// CreateCategory handles the business logic for creating a single category.
func (s *CategoryService) CreateCategory(ctx context.Context, req CategoryCreateRequest, user *models.ActingUser) (*models.Category, error) {
	// Check for duplicates
	_, err := s.repo.FindByName(ctx, req.Name)
	if err == nil {
		return nil, fmt.Errorf("category with name '%s' already exists", req.Name)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	parentID, err := s.resolveParent(ctx, req.ParentID)
	if err != nil {
		return nil, err
	}

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
	newCategory := &models.Category{
		ID:          uuid.New(),
		Name:        req.Name,
		Slug:        Slugify(req.Name),
		Description: req.Description,
		ParentID:    parentID,
		Image:       req.Image,
		IsActive:    req.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
		CreatedBy:   createdBy,
	}

	if err := s.repo.Create(ctx, newCategory); err != nil {
		return nil, err
	}
	return newCategory, nil
}

// resolveParent parses and verifies the parent reference. Empty means
// top-level.
func (s *CategoryService) resolveParent(ctx context.Context, parentID string) (*uuid.UUID, error) {
	if parentID == "" {
		return nil, nil
	}
	id, err := uuid.Parse(parentID)
	if err != nil {
		return nil, fmt.Errorf("invalid parent_id format")
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("parent category not found")
		}
		return nil, err
	}
	return &id, nil
}

// GetCategoryTree assembles the parent/child tree from the flat listing.
func (s *CategoryService) GetCategoryTree(ctx context.Context) ([]*models.Category, error) {
	categories, err := s.repo.FindAll(ctx, false)
	if err != nil {
		return nil, err
	}

	categoryMap := make(map[uuid.UUID]*models.Category)
	for i := range categories {
		categoryMap[categories[i].ID] = &categories[i]
	}

	var rootCategories []*models.Category
	for i := range categories {
		cat := &categories[i]
		if cat.ParentID == nil {
			rootCategories = append(rootCategories, cat)
			continue
		}
		if parent, ok := categoryMap[*cat.ParentID]; ok {
			parent.Children = append(parent.Children, cat)
		} else {
			// Parent was deleted; surface the orphan at the top level.
			rootCategories = append(rootCategories, cat)
		}
	}
	return rootCategories, nil
}

// ListCategories returns the flat, name-ordered listing the table views use.
func (s *CategoryService) ListCategories(ctx context.Context, topLevelOnly bool) ([]models.Category, error) {
	return s.repo.FindAll(ctx, topLevelOnly)
}

func (s *CategoryService) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *CategoryService) UpdateCategory(ctx context.Context, id uuid.UUID, req CategoryCreateRequest) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}

	parentID, err := s.resolveParent(ctx, req.ParentID)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"name":        req.Name,
		"slug":        Slugify(req.Name),
		"description": req.Description,
		"image":       req.Image,
		"is_active":   req.IsActive,
		"updated_at":  time.Now().UTC().Format(time.RFC3339),
	}
	if parentID != nil {
		updates["parent_id"] = parentID.String()
	} else {
		// nil removes the attribute so the record matches the
		// parent-absence filter used by top-level listings.
		updates["parent_id"] = nil
	}

	return s.repo.Update(ctx, id, updates)
}

func (s *CategoryService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// AppendImages adds uploaded gallery URLs to the category, preserving the
// order produced by the upload batch.
func (s *CategoryService) AppendImages(ctx context.Context, id uuid.UUID, urls []string) (*models.Category, error) {
	cat, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cat.Images = append(cat.Images, urls...)
	if err := s.repo.Update(ctx, id, map[string]interface{}{
		"images":     cat.Images,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return nil, err
	}
	return cat, nil
}

// RemoveImage drops the gallery URL at index, keeping the relative order of
// the rest. The remote object is left in place.
func (s *CategoryService) RemoveImage(ctx context.Context, id uuid.UUID, index int) (*models.Category, error) {
	cat, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(cat.Images) {
		return nil, fmt.Errorf("image index %d out of range", index)
	}

	cat.Images = append(cat.Images[:index], cat.Images[index+1:]...)
	if err := s.repo.Update(ctx, id, map[string]interface{}{
		"images":     cat.Images,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return nil, err
	}
	return cat, nil
}
