package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hverma/enrollhub/internal/app/models"
	"github.com/hverma/enrollhub/internal/app/models/dto"
	"github.com/hverma/enrollhub/internal/app/repositories"
	"github.com/hverma/enrollhub/internal/pkg/apperrors"
	"github.com/hverma/enrollhub/internal/pkg/filestorage"
	"github.com/hverma/enrollhub/internal/pkg/logger"
)

// keyedMutex serializes work per string key. Used to make roll number
// allocation linearizable per allocation key: two concurrent creates in the
// same category+batch must not both read the same last-issued number.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for key and returns its unlock function. Key
// mutexes are retained for the process lifetime; the key space is the small
// set of allocation keys.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// StudentService coordinates enrollment record creation, update and deletion,
// keeping the persisted record and its stored photograph consistent.
type StudentService struct {
	studentRepo  StudentRepository
	categoryRepo CategoryRepository
	attachments  filestorage.AttachmentStore
	allocLock    *keyedMutex
}

// NewStudentService creates a new student service instance
func NewStudentService(studentRepo StudentRepository, categoryRepo CategoryRepository, attachments filestorage.AttachmentStore) *StudentService {
	return &StudentService{
		studentRepo:  studentRepo,
		categoryRepo: categoryRepo,
		attachments:  attachments,
		allocLock:    newKeyedMutex(),
	}
}

// validateStudentRequest checks the required fields beyond what transport
// binding guarantees.
func validateStudentRequest(req *dto.StudentRequest) error {
	if req == nil {
		return apperrors.NewValidationError("student payload is required")
	}
	if strings.TrimSpace(req.FirstName) == "" {
		return apperrors.NewValidationError("first name is required")
	}
	if strings.TrimSpace(req.LastName) == "" {
		return apperrors.NewValidationError("last name is required")
	}
	if strings.TrimSpace(req.Email) == "" {
		return apperrors.NewValidationError("email is required")
	}
	if req.CGPA == nil {
		return apperrors.NewValidationError("cgpa is required")
	}
	if req.TotalCredits == nil {
		return apperrors.NewValidationError("total credits is required")
	}
	if req.GraduationYear == nil {
		return apperrors.NewValidationError("graduation year is required")
	}
	if req.CategoryID == nil {
		return apperrors.NewValidationError("category ID is required")
	}
	return nil
}

func applyRequest(student *models.Student, req *dto.StudentRequest, category *models.Category) {
	student.FirstName = strings.TrimSpace(req.FirstName)
	student.LastName = strings.TrimSpace(req.LastName)
	student.Email = strings.TrimSpace(req.Email)
	student.CGPA = *req.CGPA
	student.TotalCredits = *req.TotalCredits
	student.GraduationYear = *req.GraduationYear
	student.SpecialisationID = req.SpecialisationID
	student.PlacementID = req.PlacementID
	student.CategoryID = category.ID
	student.Category = category
}

// CreateStudent registers a new enrollment record: allocates a roll number,
// stores the photograph under it, then persists the record. A persistence
// failure after the photograph was written triggers best-effort cleanup of
// the fresh file.
func (s *StudentService) CreateStudent(ctx context.Context, req *dto.StudentRequest, photo *filestorage.Upload) (*models.Student, error) {
	if err := validateStudentRequest(req); err != nil {
		return nil, err
	}
	if photo.IsEmpty() {
		return nil, apperrors.NewCustomError(apperrors.ErrValidationFailed, "photograph is required and cannot be empty")
	}

	// Duplicate email is rejected before any attachment write happens.
	exists, err := s.studentRepo.ExistsByEmail(ctx, strings.TrimSpace(req.Email), 0)
	if err != nil {
		return nil, fmt.Errorf("error checking email: %w", err)
	}
	if exists {
		return nil, apperrors.ErrEmailAlreadyExists
	}

	category, err := s.categoryRepo.GetByID(ctx, *req.CategoryID)
	if err != nil {
		if errors.Is(err, repositories.ErrCategoryNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("error resolving category: %w", err)
	}

	// Read-last, compute-next and persist must be serialized per allocation
	// key or two concurrent creates can race to the same sequence number.
	key := AllocationKey(category)
	unlock := s.allocLock.lock(key)
	defer unlock()

	lastIssued, err := s.studentRepo.LastRollNumberWithPrefix(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("error reading roll number sequence: %w", err)
	}
	rollNumber := NextRollNumber(category, lastIssued)

	photoPath, err := s.attachments.Store(photo, rollNumber)
	if err != nil {
		return nil, err
	}

	student := &models.Student{
		RollNumber:     rollNumber,
		PhotographPath: photoPath,
	}
	applyRequest(student, req, category)

	if err := s.studentRepo.Create(ctx, student); err != nil {
		// The stored file would otherwise be orphaned.
		if delErr := s.attachments.Delete(photoPath); delErr != nil {
			logger.Warn().Err(delErr).Str("path", photoPath).Msg("Cleanup of stored photograph failed after create error")
		}
		return nil, mapStudentRepoError(err)
	}

	return student, nil
}

// UpdateStudent replaces all mutable fields of a record. The roll number is
// never re-derived. When a new photograph is supplied it is durably stored
// before the previous file is removed.
func (s *StudentService) UpdateStudent(ctx context.Context, id int64, req *dto.StudentRequest, photo *filestorage.Upload) (*models.Student, error) {
	if err := validateStudentRequest(req); err != nil {
		return nil, err
	}

	student, err := s.studentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapStudentRepoError(err)
	}

	exists, err := s.studentRepo.ExistsByEmail(ctx, strings.TrimSpace(req.Email), id)
	if err != nil {
		return nil, fmt.Errorf("error checking email: %w", err)
	}
	if exists {
		return nil, apperrors.ErrEmailAlreadyExists
	}

	category, err := s.categoryRepo.GetByID(ctx, *req.CategoryID)
	if err != nil {
		if errors.Is(err, repositories.ErrCategoryNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("error resolving category: %w", err)
	}

	applyRequest(student, req, category)

	oldPhotoPath := student.PhotographPath
	newPhotoPath := ""
	if !photo.IsEmpty() {
		newPhotoPath, err = s.attachments.Store(photo, student.RollNumber)
		if err != nil {
			return nil, err
		}
		student.PhotographPath = newPhotoPath
	}

	if err := s.studentRepo.Update(ctx, student); err != nil {
		if newPhotoPath != "" {
			if delErr := s.attachments.Delete(newPhotoPath); delErr != nil {
				logger.Warn().Err(delErr).Str("path", newPhotoPath).Msg("Cleanup of stored photograph failed after update error")
			}
		}
		return nil, mapStudentRepoError(err)
	}

	// Only now that the record points at the new file is the old one removed.
	if newPhotoPath != "" && oldPhotoPath != "" {
		if delErr := s.attachments.Delete(oldPhotoPath); delErr != nil {
			logger.Warn().Err(delErr).Str("path", oldPhotoPath).Msg("Failed to delete replaced photograph")
		}
	}

	return student, nil
}

// DeleteStudent removes a record and its photograph. Attachment deletion is
// attempted first and is best-effort; its failure never blocks the removal.
func (s *StudentService) DeleteStudent(ctx context.Context, id int64) error {
	student, err := s.studentRepo.GetByID(ctx, id)
	if err != nil {
		return mapStudentRepoError(err)
	}

	if student.PhotographPath != "" {
		if delErr := s.attachments.Delete(student.PhotographPath); delErr != nil {
			logger.Warn().Err(delErr).Str("path", student.PhotographPath).Msg("Failed to delete photograph during student removal")
		}
	}

	if err := s.studentRepo.Delete(ctx, id); err != nil {
		return mapStudentRepoError(err)
	}

	return nil
}

// GetStudent retrieves a record by ID with its category attached.
func (s *StudentService) GetStudent(ctx context.Context, id int64) (*models.Student, error) {
	student, err := s.studentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapStudentRepoError(err)
	}

	if category, err := s.categoryRepo.GetByID(ctx, student.CategoryID); err == nil {
		student.Category = category
	}

	return student, nil
}

// GetAllStudents retrieves all records
func (s *StudentService) GetAllStudents(ctx context.Context) ([]*models.Student, error) {
	students, err := s.studentRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("error retrieving students: %w", err)
	}

	for _, student := range students {
		if category, err := s.categoryRepo.GetByID(ctx, student.CategoryID); err == nil {
			student.Category = category
		}
	}

	return students, nil
}

// GetStudentPhoto opens the stored photograph of a record, returning the
// stream, the probed content type and the stored filename.
func (s *StudentService) GetStudentPhoto(ctx context.Context, id int64) (io.ReadSeekCloser, string, string, error) {
	student, err := s.studentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, "", "", mapStudentRepoError(err)
	}

	if student.PhotographPath == "" {
		return nil, "", "", apperrors.NewResourceNotFoundError(fmt.Sprintf("photograph not available for student %d", id))
	}

	handle, contentType, err := s.attachments.Retrieve(student.PhotographPath)
	if err != nil {
		return nil, "", "", err
	}

	return handle, contentType, filepath.Base(student.PhotographPath), nil
}

func mapStudentRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrStudentNotFound):
		return apperrors.ErrStudentNotFound
	case errors.Is(err, repositories.ErrEmailAlreadyExists):
		return apperrors.ErrEmailAlreadyExists
	case errors.Is(err, repositories.ErrRollNumberExists):
		return apperrors.ErrRollNumberExists
	default:
		return err
	}
}
