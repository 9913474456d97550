package services

import (
	"context"

	"github.com/hverma/enrollhub/internal/app/models"
)

// StudentRepository is the record-store surface the enrollment service needs.
// Satisfied by repositories.StudentRepository; faked in tests.
type StudentRepository interface {
	Create(ctx context.Context, student *models.Student) error
	GetByID(ctx context.Context, id int64) (*models.Student, error)
	GetAll(ctx context.Context) ([]*models.Student, error)
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id int64) error
	ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error)
	LastRollNumberWithPrefix(ctx context.Context, prefix string) (string, error)
}

// CategoryRepository is the record-store surface the category service needs.
type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, id int64) (*models.Category, error)
	GetAll(ctx context.Context) ([]*models.Category, error)
}

// TokenVerifier validates an id token against the identity provider and
// returns the verified identity.
type TokenVerifier interface {
	ValidateIdentity(ctx context.Context, idToken string) (string, error)
}
