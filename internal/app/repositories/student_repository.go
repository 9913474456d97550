package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hverma/enrollhub/internal/app/models"
	"github.com/hverma/enrollhub/internal/pkg/dberrors"
)

// Student error types
var (
	ErrStudentNotFound    = errors.New("student not found")
	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrRollNumberExists   = errors.New("roll number already assigned")
)

const studentColumns = `id, roll_number, first_name, last_name, email, photograph_path,
		cgpa, total_credits, graduation_year, specialisation_id, placement_id, category_id`

// StudentRepository handles database operations for enrollment records
type StudentRepository struct {
	db Querier
}

// NewStudentRepository creates a new student repository
func NewStudentRepository(db Querier) *StudentRepository {
	return &StudentRepository{db: db}
}

func scanStudent(row pgx.Row) (*models.Student, error) {
	var s models.Student
	err := row.Scan(
		&s.ID,
		&s.RollNumber,
		&s.FirstName,
		&s.LastName,
		&s.Email,
		&s.PhotographPath,
		&s.CGPA,
		&s.TotalCredits,
		&s.GraduationYear,
		&s.SpecialisationID,
		&s.PlacementID,
		&s.CategoryID,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create persists a new enrollment record
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	query := `
		INSERT INTO students (roll_number, first_name, last_name, email, photograph_path,
			cgpa, total_credits, graduation_year, specialisation_id, placement_id, category_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		student.RollNumber, student.FirstName, student.LastName, student.Email,
		student.PhotographPath, student.CGPA, student.TotalCredits, student.GraduationYear,
		student.SpecialisationID, student.PlacementID, student.CategoryID,
	).Scan(&student.ID)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "students_email_key") {
			return ErrEmailAlreadyExists
		}
		if dberrors.IsDuplicateConstraintError(err, "students_roll_number_key") {
			return ErrRollNumberExists
		}
		return fmt.Errorf("error creating student: %w", err)
	}

	return nil
}

// GetByID retrieves an enrollment record by ID
func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`

	student, err := scanStudent(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("error retrieving student: %w", err)
	}

	return student, nil
}

// GetAll retrieves all enrollment records
func (r *StudentRepository) GetAll(ctx context.Context) ([]*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students ORDER BY id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []*models.Student
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, student)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return students, nil
}

// Update replaces all mutable fields of an enrollment record. The roll
// number is immutable and deliberately absent from the statement.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	query := `
		UPDATE students
		SET first_name = $1, last_name = $2, email = $3, photograph_path = $4,
			cgpa = $5, total_credits = $6, graduation_year = $7,
			specialisation_id = $8, placement_id = $9, category_id = $10
		WHERE id = $11
	`

	cmdTag, err := r.db.Exec(ctx, query,
		student.FirstName, student.LastName, student.Email, student.PhotographPath,
		student.CGPA, student.TotalCredits, student.GraduationYear,
		student.SpecialisationID, student.PlacementID, student.CategoryID,
		student.ID,
	)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "students_email_key") {
			return ErrEmailAlreadyExists
		}
		return fmt.Errorf("error updating student: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrStudentNotFound
	}

	return nil
}

// Delete removes an enrollment record by ID
func (r *StudentRepository) Delete(ctx context.Context, id int64) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting student: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrStudentNotFound
	}

	return nil
}

// ExistsByEmail checks whether any record holds the given email. A non-zero
// excludeID leaves that record out of the check, for updates.
func (r *StudentRepository) ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM students WHERE email = $1 AND id != $2)`,
		email, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking email existence: %w", err)
	}

	return exists, nil
}

// LastRollNumberWithPrefix returns the lexicographically greatest roll number
// starting with the given allocation key, or "" when none exists. The
// fixed-width zero-padded sequence makes lexicographic order numeric order.
func (r *StudentRepository) LastRollNumberWithPrefix(ctx context.Context, prefix string) (string, error) {
	var rollNumber string
	err := r.db.QueryRow(ctx, `
		SELECT roll_number FROM students
		WHERE roll_number LIKE $1 || '%'
		ORDER BY roll_number DESC
		LIMIT 1`, prefix).Scan(&rollNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("error retrieving last roll number: %w", err)
	}

	return rollNumber, nil
}
