package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hverma/enrollhub/internal/app/models"
)

// Category error types
var (
	ErrCategoryNotFound = errors.New("category not found")
)

// CategoryRepository handles database operations for categories
type CategoryRepository struct {
	db Querier
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db Querier) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Create creates a new category
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	query := `
		INSERT INTO categories (program, batch, capacity, qualification)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		category.Program, category.Batch, category.Capacity, category.Qualification,
	).Scan(&category.ID)
	if err != nil {
		return fmt.Errorf("error creating category: %w", err)
	}

	return nil
}

// GetByID retrieves a category by ID
func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*models.Category, error) {
	query := `
		SELECT id, program, batch, capacity, qualification
		FROM categories
		WHERE id = $1
	`

	var category models.Category
	err := r.db.QueryRow(ctx, query, id).Scan(
		&category.ID,
		&category.Program,
		&category.Batch,
		&category.Capacity,
		&category.Qualification,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("error retrieving category: %w", err)
	}

	return &category, nil
}

// GetAll retrieves all categories
func (r *CategoryRepository) GetAll(ctx context.Context) ([]*models.Category, error) {
	query := `
		SELECT id, program, batch, capacity, qualification
		FROM categories
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		var category models.Category
		if err := rows.Scan(
			&category.ID,
			&category.Program,
			&category.Batch,
			&category.Capacity,
			&category.Qualification,
		); err != nil {
			return nil, err
		}
		categories = append(categories, &category)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return categories, nil
}
