package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hverma/enrollhub/internal/app/models"
	"github.com/hverma/enrollhub/internal/app/repositories"
	"github.com/hverma/enrollhub/internal/pkg/apperrors"
)

// CategoryService handles category group operations
type CategoryService struct {
	categoryRepo CategoryRepository
}

// NewCategoryService creates a new category service instance
func NewCategoryService(categoryRepo CategoryRepository) *CategoryService {
	return &CategoryService{categoryRepo: categoryRepo}
}

// CreateCategory creates a new category. Program and batch are mandatory.
func (s *CategoryService) CreateCategory(ctx context.Context, category *models.Category) error {
	if category == nil {
		return apperrors.NewValidationError("category payload is required")
	}
	if strings.TrimSpace(category.Program) == "" {
		return apperrors.NewValidationError("program is required")
	}
	if strings.TrimSpace(category.Batch) == "" {
		return apperrors.NewValidationError("batch is required")
	}
	if category.Capacity != nil && *category.Capacity <= 0 {
		return apperrors.NewValidationError("capacity must be positive")
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return fmt.Errorf("error creating category: %w", err)
	}
	return nil
}

// GetCategoryByID retrieves a category by ID
func (s *CategoryService) GetCategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	if id <= 0 {
		return nil, apperrors.NewValidationError("invalid category ID")
	}

	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrCategoryNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("error retrieving category: %w", err)
	}

	return category, nil
}

// GetAllCategories retrieves all categories
func (s *CategoryService) GetAllCategories(ctx context.Context) ([]*models.Category, error) {
	categories, err := s.categoryRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("error retrieving categories: %w", err)
	}
	return categories, nil
}
