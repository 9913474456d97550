package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/hverma/enrollhub/internal/app/models"
	"github.com/hverma/enrollhub/internal/app/models/dto"
	"github.com/hverma/enrollhub/internal/app/repositories"
	"github.com/hverma/enrollhub/internal/pkg/apperrors"
	"github.com/hverma/enrollhub/internal/pkg/filestorage"
)

type fakeStudentRepo struct {
	mu       sync.Mutex
	nextID   int64
	students map[int64]*models.Student

	failCreate error
	failUpdate error
}

func newFakeStudentRepo() *fakeStudentRepo {
	return &fakeStudentRepo{students: make(map[int64]*models.Student)}
}

func (r *fakeStudentRepo) Create(ctx context.Context, student *models.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failCreate != nil {
		return r.failCreate
	}
	for _, existing := range r.students {
		if existing.Email == student.Email {
			return repositories.ErrEmailAlreadyExists
		}
		if existing.RollNumber == student.RollNumber {
			return repositories.ErrRollNumberExists
		}
	}

	r.nextID++
	student.ID = r.nextID
	copied := *student
	r.students[student.ID] = &copied
	return nil
}

func (r *fakeStudentRepo) GetByID(ctx context.Context, id int64) (*models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	student, ok := r.students[id]
	if !ok {
		return nil, repositories.ErrStudentNotFound
	}
	copied := *student
	return &copied, nil
}

func (r *fakeStudentRepo) GetAll(ctx context.Context) ([]*models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.Student, 0, len(r.students))
	for _, student := range r.students {
		copied := *student
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeStudentRepo) Update(ctx context.Context, student *models.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failUpdate != nil {
		return r.failUpdate
	}
	if _, ok := r.students[student.ID]; !ok {
		return repositories.ErrStudentNotFound
	}
	copied := *student
	r.students[student.ID] = &copied
	return nil
}

func (r *fakeStudentRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.students[id]; !ok {
		return repositories.ErrStudentNotFound
	}
	delete(r.students, id)
	return nil
}

func (r *fakeStudentRepo) ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, student := range r.students {
		if student.Email == email && student.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeStudentRepo) LastRollNumberWithPrefix(ctx context.Context, prefix string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	last := ""
	for _, student := range r.students {
		if strings.HasPrefix(student.RollNumber, prefix) && student.RollNumber > last {
			last = student.RollNumber
		}
	}
	return last, nil
}

type fakeCategoryRepo struct {
	mu         sync.Mutex
	categories map[int64]*models.Category
}

func newFakeCategoryRepo(categories ...*models.Category) *fakeCategoryRepo {
	r := &fakeCategoryRepo{categories: make(map[int64]*models.Category)}
	for _, c := range categories {
		r.categories[c.ID] = c
	}
	return r
}

func (r *fakeCategoryRepo) Create(ctx context.Context, category *models.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	category.ID = int64(len(r.categories) + 1)
	r.categories[category.ID] = category
	return nil
}

func (r *fakeCategoryRepo) GetByID(ctx context.Context, id int64) (*models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	category, ok := r.categories[id]
	if !ok {
		return nil, repositories.ErrCategoryNotFound
	}
	return category, nil
}

func (r *fakeCategoryRepo) GetAll(ctx context.Context) ([]*models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.Category, 0, len(r.categories))
	for _, c := range r.categories {
		out = append(out, c)
	}
	return out, nil
}

type nopReadSeekCloser struct{ *bytes.Reader }

func (nopReadSeekCloser) Close() error { return nil }

// fakeAttachmentStore records store and delete calls in order.
type fakeAttachmentStore struct {
	mu      sync.Mutex
	counter int
	content map[string][]byte
	events  []string

	failStore error
}

func newFakeAttachmentStore() *fakeAttachmentStore {
	return &fakeAttachmentStore{content: make(map[string][]byte)}
}

func (s *fakeAttachmentStore) Store(upload *filestorage.Upload, recordKey string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failStore != nil {
		return "", s.failStore
	}

	data, err := io.ReadAll(upload.Reader)
	if err != nil {
		return "", err
	}

	s.counter++
	path := fmt.Sprintf("/attachments/%s_%d.jpg", recordKey, s.counter)
	s.content[path] = data
	s.events = append(s.events, "store:"+path)
	return path, nil
}

func (s *fakeAttachmentStore) Retrieve(storagePath string) (io.ReadSeekCloser, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.content[storagePath]
	if !ok {
		return nil, "", apperrors.NewResourceNotFoundError("attachment not found")
	}
	return nopReadSeekCloser{bytes.NewReader(data)}, "image/jpeg", nil
}

func (s *fakeAttachmentStore) Delete(storagePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.content, storagePath)
	s.events = append(s.events, "delete:"+storagePath)
	return nil
}

func (s *fakeAttachmentStore) storedPaths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths := make([]string, 0, len(s.content))
	for p := range s.content {
		paths = append(paths, p)
	}
	return paths
}

func fptr(f float64) *float64 { return &f }
func iptr(i int) *int         { return &i }
func i64ptr(i int64) *int64   { return &i }

func validRequest(email string) *dto.StudentRequest {
	return &dto.StudentRequest{
		FirstName:      "Asha",
		LastName:       "Verma",
		Email:          email,
		CGPA:           fptr(8.7),
		TotalCredits:   iptr(142),
		GraduationYear: iptr(2026),
		CategoryID:     i64ptr(1),
	}
}

func validPhoto() *filestorage.Upload {
	data := []byte("fake image bytes")
	return &filestorage.Upload{
		Reader:   bytes.NewReader(data),
		Filename: "photo.jpg",
		Size:     int64(len(data)),
	}
}

func newTestStudentService() (*StudentService, *fakeStudentRepo, *fakeAttachmentStore) {
	studentRepo := newFakeStudentRepo()
	categoryRepo := newFakeCategoryRepo(&models.Category{ID: 1, Program: "CS", Batch: "25"})
	store := newFakeAttachmentStore()
	return NewStudentService(studentRepo, categoryRepo, store), studentRepo, store
}

func TestCreateStudentAllocatesSequentialRollNumbers(t *testing.T) {
	svc, _, store := newTestStudentService()
	ctx := context.Background()

	first, err := svc.CreateStudent(ctx, validRequest("a@example.com"), validPhoto())
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	second, err := svc.CreateStudent(ctx, validRequest("b@example.com"), validPhoto())
	if err != nil {
		t.Fatalf("second create failed: %v", err)
	}

	if first.RollNumber != "CS25001" {
		t.Errorf("first roll number = %q, want CS25001", first.RollNumber)
	}
	if second.RollNumber != "CS25002" {
		t.Errorf("second roll number = %q, want CS25002", second.RollNumber)
	}
	if !strings.Contains(first.PhotographPath, first.RollNumber) {
		t.Errorf("photograph path %q not derived from roll number %q", first.PhotographPath, first.RollNumber)
	}
	if len(store.storedPaths()) != 2 {
		t.Errorf("stored attachments = %d, want 2", len(store.storedPaths()))
	}
}

func TestCreateStudentRejectsDuplicateEmailBeforeStoring(t *testing.T) {
	svc, _, store := newTestStudentService()
	ctx := context.Background()

	if _, err := svc.CreateStudent(ctx, validRequest("dup@example.com"), validPhoto()); err != nil {
		t.Fatalf("setup create failed: %v", err)
	}

	_, err := svc.CreateStudent(ctx, validRequest("dup@example.com"), validPhoto())
	if !errors.Is(err, apperrors.ErrEmailAlreadyExists) {
		t.Fatalf("err = %v, want ErrEmailAlreadyExists", err)
	}
	if got := len(store.storedPaths()); got != 1 {
		t.Errorf("stored attachments = %d, want 1 (rejected create must not write)", got)
	}
}

func TestCreateStudentRequiresPhotograph(t *testing.T) {
	svc, _, _ := newTestStudentService()

	_, err := svc.CreateStudent(context.Background(), validRequest("a@example.com"), nil)
	if !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Fatalf("err = %v, want ErrValidationFailed", err)
	}

	empty := &filestorage.Upload{}
	_, err = svc.CreateStudent(context.Background(), validRequest("a@example.com"), empty)
	if !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Fatalf("err = %v, want ErrValidationFailed for empty upload", err)
	}
}

func TestCreateStudentUnknownCategory(t *testing.T) {
	svc, _, store := newTestStudentService()

	req := validRequest("a@example.com")
	req.CategoryID = i64ptr(99)

	_, err := svc.CreateStudent(context.Background(), req, validPhoto())
	if !errors.Is(err, apperrors.ErrCategoryNotFound) {
		t.Fatalf("err = %v, want ErrCategoryNotFound", err)
	}
	if len(store.storedPaths()) != 0 {
		t.Error("attachment stored despite unknown category")
	}
}

func TestCreateStudentCleansUpAttachmentOnPersistFailure(t *testing.T) {
	svc, repo, store := newTestStudentService()
	repo.failCreate = errors.New("connection reset")

	_, err := svc.CreateStudent(context.Background(), validRequest("a@example.com"), validPhoto())
	if err == nil {
		t.Fatal("expected create to fail")
	}
	if got := len(store.storedPaths()); got != 0 {
		t.Errorf("orphaned attachments remain: %v", store.storedPaths())
	}
	if len(store.events) != 2 || !strings.HasPrefix(store.events[0], "store:") || !strings.HasPrefix(store.events[1], "delete:") {
		t.Errorf("events = %v, want store then delete", store.events)
	}
}

func TestUpdateStudentStoresNewPhotographBeforeDeletingOld(t *testing.T) {
	svc, _, store := newTestStudentService()
	ctx := context.Background()

	student, err := svc.CreateStudent(ctx, validRequest("a@example.com"), validPhoto())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	oldPath := student.PhotographPath

	req := validRequest("a@example.com")
	req.FirstName = "Renamed"
	updated, err := svc.UpdateStudent(ctx, student.ID, req, validPhoto())
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if updated.RollNumber != student.RollNumber {
		t.Errorf("roll number changed on update: %q -> %q", student.RollNumber, updated.RollNumber)
	}
	if updated.PhotographPath == oldPath {
		t.Error("photograph path not replaced")
	}
	if updated.FirstName != "Renamed" {
		t.Errorf("first name = %q, want Renamed", updated.FirstName)
	}

	// store(create), store(new), delete(old): the new file must be durable
	// before the old one goes away.
	if len(store.events) != 3 {
		t.Fatalf("events = %v, want 3 entries", store.events)
	}
	if store.events[1] != "store:"+updated.PhotographPath {
		t.Errorf("second event = %q, want store of new path", store.events[1])
	}
	if store.events[2] != "delete:"+oldPath {
		t.Errorf("third event = %q, want delete of old path", store.events[2])
	}
}

func TestUpdateStudentWithoutPhotographKeepsExisting(t *testing.T) {
	svc, _, _ := newTestStudentService()
	ctx := context.Background()

	student, err := svc.CreateStudent(ctx, validRequest("a@example.com"), validPhoto())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := svc.UpdateStudent(ctx, student.ID, validRequest("a@example.com"), nil)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.PhotographPath != student.PhotographPath {
		t.Errorf("photograph path changed without a new upload: %q -> %q", student.PhotographPath, updated.PhotographPath)
	}
}

func TestUpdateStudentCleansUpNewPhotographOnPersistFailure(t *testing.T) {
	svc, repo, store := newTestStudentService()
	ctx := context.Background()

	student, err := svc.CreateStudent(ctx, validRequest("a@example.com"), validPhoto())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	oldPath := student.PhotographPath

	repo.failUpdate = errors.New("connection reset")
	_, err = svc.UpdateStudent(ctx, student.ID, validRequest("a@example.com"), validPhoto())
	if err == nil {
		t.Fatal("expected update to fail")
	}

	paths := store.storedPaths()
	if len(paths) != 1 || paths[0] != oldPath {
		t.Errorf("remaining attachments = %v, want only the original %q", paths, oldPath)
	}
}

func TestUpdateStudentDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestStudentService()
	ctx := context.Background()

	if _, err := svc.CreateStudent(ctx, validRequest("a@example.com"), validPhoto()); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	second, err := svc.CreateStudent(ctx, validRequest("b@example.com"), validPhoto())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err = svc.UpdateStudent(ctx, second.ID, validRequest("a@example.com"), nil)
	if !errors.Is(err, apperrors.ErrEmailAlreadyExists) {
		t.Fatalf("err = %v, want ErrEmailAlreadyExists", err)
	}

	// Updating a record to its own current email stays legal.
	if _, err := svc.UpdateStudent(ctx, second.ID, validRequest("b@example.com"), nil); err != nil {
		t.Fatalf("self-email update failed: %v", err)
	}
}

func TestDeleteStudentRemovesRecordAndAttachment(t *testing.T) {
	svc, repo, store := newTestStudentService()
	ctx := context.Background()

	student, err := svc.CreateStudent(ctx, validRequest("a@example.com"), validPhoto())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := svc.DeleteStudent(ctx, student.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := repo.GetByID(ctx, student.ID); !errors.Is(err, repositories.ErrStudentNotFound) {
		t.Error("record still present after delete")
	}
	if len(store.storedPaths()) != 0 {
		t.Errorf("attachments remain after delete: %v", store.storedPaths())
	}
}

func TestDeleteStudentNotFound(t *testing.T) {
	svc, _, _ := newTestStudentService()

	err := svc.DeleteStudent(context.Background(), 42)
	if !errors.Is(err, apperrors.ErrStudentNotFound) {
		t.Fatalf("err = %v, want ErrStudentNotFound", err)
	}
}

func TestGetStudentAttachesCategory(t *testing.T) {
	svc, _, _ := newTestStudentService()
	ctx := context.Background()

	created, err := svc.CreateStudent(ctx, validRequest("a@example.com"), validPhoto())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	student, err := svc.GetStudent(ctx, created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if student.Category == nil || student.Category.Program != "CS" {
		t.Errorf("category not attached: %+v", student.Category)
	}
}

func TestGetStudentPhoto(t *testing.T) {
	svc, _, _ := newTestStudentService()
	ctx := context.Background()

	student, err := svc.CreateStudent(ctx, validRequest("a@example.com"), validPhoto())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	handle, contentType, filename, err := svc.GetStudentPhoto(ctx, student.ID)
	if err != nil {
		t.Fatalf("photo retrieval failed: %v", err)
	}
	defer handle.Close()

	if contentType != "image/jpeg" {
		t.Errorf("content type = %q, want image/jpeg", contentType)
	}
	if !strings.HasPrefix(filename, student.RollNumber) {
		t.Errorf("filename = %q, want %q prefix", filename, student.RollNumber)
	}

	data, err := io.ReadAll(handle)
	if err != nil {
		t.Fatalf("reading photo: %v", err)
	}
	if string(data) != "fake image bytes" {
		t.Errorf("photo content mismatch: %q", data)
	}
}

func TestGetStudentPhotoMissing(t *testing.T) {
	svc, _, _ := newTestStudentService()

	_, _, _, err := svc.GetStudentPhoto(context.Background(), 42)
	if !errors.Is(err, apperrors.ErrStudentNotFound) {
		t.Fatalf("err = %v, want ErrStudentNotFound", err)
	}
}

func TestConcurrentCreatesAllocateDistinctRollNumbers(t *testing.T) {
	svc, _, _ := newTestStudentService()
	ctx := context.Background()

	const workers = 16
	results := make(chan string, workers)
	errCh := make(chan error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			student, err := svc.CreateStudent(ctx, validRequest(fmt.Sprintf("u%d@example.com", n)), validPhoto())
			if err != nil {
				errCh <- err
				return
			}
			results <- student.RollNumber
		}(i)
	}
	wg.Wait()
	close(results)
	close(errCh)

	for err := range errCh {
		t.Fatalf("concurrent create failed: %v", err)
	}

	seen := make(map[string]bool)
	for roll := range results {
		if seen[roll] {
			t.Fatalf("roll number %q allocated twice", roll)
		}
		seen[roll] = true
	}
	if len(seen) != workers {
		t.Fatalf("allocated %d roll numbers, want %d", len(seen), workers)
	}
}
