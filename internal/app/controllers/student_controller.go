package controllers

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hverma/enrollhub/internal/app/models"
	"github.com/hverma/enrollhub/internal/app/models/dto"
	"github.com/hverma/enrollhub/internal/app/services"
	"github.com/hverma/enrollhub/internal/middleware"
	"github.com/hverma/enrollhub/internal/pkg/filestorage"
)

// Multipart part names for student create/update.
const (
	studentPart    = "student"
	photographPart = "photograph"
)

// StudentController handles enrollment record operations
type StudentController struct {
	studentService *services.StudentService
}

// NewStudentController creates a new StudentController
func NewStudentController(studentService *services.StudentService) *StudentController {
	return &StudentController{studentService: studentService}
}

// CreateStudent handles enrollment record creation
// @Summary Register a new student
// @Description Registers a student under a category, allocating a roll number and storing the photograph
// @Tags students
// @Accept multipart/form-data
// @Produce json
// @Param student formData string true "Student JSON payload"
// @Param photograph formData file true "Photograph"
// @Success 201 {object} dto.APIResponse{data=dto.StudentResponse} "Student registered"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 404 {object} dto.ErrorResponse "Category not found"
// @Failure 409 {object} dto.ErrorResponse "Email already registered"
// @Router /students [post]
func (c *StudentController) CreateStudent(ctx *gin.Context) {
	req, photo, cleanup, err := extractStudentPayload(ctx)
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid student payload")
		errorDetail = errorDetail.WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}
	defer cleanup()

	student, err := c.studentService.CreateStudent(ctx.Request.Context(), req, photo)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.APIResponse{
		Data:      toStudentResponse(student),
		Timestamp: time.Now(),
	})
}

// UpdateStudent handles enrollment record updates
// @Summary Update a student
// @Description Replaces the mutable fields of a record; a supplied photograph replaces the stored one
// @Tags students
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} dto.APIResponse{data=dto.StudentResponse}
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Failure 409 {object} dto.ErrorResponse "Email already registered"
// @Router /students/{id} [put]
func (c *StudentController) UpdateStudent(ctx *gin.Context) {
	id, ok := parseStudentID(ctx)
	if !ok {
		return
	}

	req, photo, cleanup, err := extractStudentPayload(ctx)
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid student payload")
		errorDetail = errorDetail.WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}
	defer cleanup()

	student, err := c.studentService.UpdateStudent(ctx.Request.Context(), id, req, photo)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      toStudentResponse(student),
		Timestamp: time.Now(),
	})
}

// DeleteStudent removes an enrollment record and its photograph
// @Summary Delete a student
// @Tags students
// @Param id path int true "Student ID"
// @Success 204 "Student deleted"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /students/{id} [delete]
func (c *StudentController) DeleteStudent(ctx *gin.Context) {
	id, ok := parseStudentID(ctx)
	if !ok {
		return
	}

	if err := c.studentService.DeleteStudent(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// GetStudent retrieves a single enrollment record
// @Summary Get student by ID
// @Tags students
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} dto.APIResponse{data=dto.StudentResponse}
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /students/{id} [get]
func (c *StudentController) GetStudent(ctx *gin.Context) {
	id, ok := parseStudentID(ctx)
	if !ok {
		return
	}

	student, err := c.studentService.GetStudent(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      toStudentResponse(student),
		Timestamp: time.Now(),
	})
}

// GetAllStudents retrieves all enrollment records
// @Summary List students
// @Tags students
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]dto.StudentResponse}
// @Router /students [get]
func (c *StudentController) GetAllStudents(ctx *gin.Context) {
	students, err := c.studentService.GetAllStudents(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	responses := make([]*dto.StudentResponse, 0, len(students))
	for _, student := range students {
		responses = append(responses, toStudentResponse(student))
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      responses,
		Timestamp: time.Now(),
	})
}

// GetStudentPhoto streams a student's photograph
// @Summary Get student photograph
// @Tags students
// @Produce octet-stream
// @Param id path int true "Student ID"
// @Success 200 {file} file "Photograph"
// @Failure 404 {object} dto.ErrorResponse "Photograph not found"
// @Router /students/{id}/photo [get]
func (c *StudentController) GetStudentPhoto(ctx *gin.Context) {
	id, ok := parseStudentID(ctx)
	if !ok {
		return
	}

	handle, contentType, filename, err := c.studentService.GetStudentPhoto(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	defer handle.Close()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if filename == "" {
		filename = fmt.Sprintf("student-%d-photo", id)
	}

	ctx.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	ctx.Header("Content-Type", contentType)
	ctx.Status(http.StatusOK)
	_, _ = io.Copy(ctx.Writer, handle)
}

func parseStudentID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid student ID")
		errorDetail = errorDetail.WithDetails("Student ID must be a valid number")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return 0, false
	}
	return id, true
}

// extractStudentPayload pulls the JSON part and the optional photograph out
// of the multipart form. The JSON may arrive as a form value or as a file
// part named "student"; some clients send it either way.
func extractStudentPayload(ctx *gin.Context) (*dto.StudentRequest, *filestorage.Upload, func(), error) {
	cleanup := func() {}

	form, err := ctx.MultipartForm()
	if err != nil {
		return nil, nil, cleanup, fmt.Errorf("request must be multipart/form-data: %w", err)
	}

	studentJSON := ctx.PostForm(studentPart)
	if strings.TrimSpace(studentJSON) == "" {
		if files := form.File[studentPart]; len(files) > 0 {
			content, err := readPart(files[0])
			if err != nil {
				return nil, nil, cleanup, fmt.Errorf("error reading student data: %w", err)
			}
			studentJSON = content
		}
	}

	if strings.TrimSpace(studentJSON) == "" {
		return nil, nil, cleanup, fmt.Errorf("missing %q part", studentPart)
	}

	var req dto.StudentRequest
	if err := json.Unmarshal([]byte(studentJSON), &req); err != nil {
		return nil, nil, cleanup, fmt.Errorf("malformed student JSON: %w", err)
	}

	var upload *filestorage.Upload
	if files := form.File[photographPart]; len(files) > 0 && files[0].Size > 0 {
		file, err := files[0].Open()
		if err != nil {
			return nil, nil, cleanup, fmt.Errorf("error opening photograph: %w", err)
		}
		cleanup = func() { _ = file.Close() }
		upload = &filestorage.Upload{
			Reader:   file,
			Filename: files[0].Filename,
			Size:     files[0].Size,
		}
	}

	return &req, upload, cleanup, nil
}

func readPart(header *multipart.FileHeader) (string, error) {
	file, err := header.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func toStudentResponse(student *models.Student) *dto.StudentResponse {
	resp := &dto.StudentResponse{
		ID:               student.ID,
		RollNumber:       student.RollNumber,
		FirstName:        student.FirstName,
		LastName:         student.LastName,
		Email:            student.Email,
		PhotographPath:   student.PhotographPath,
		CGPA:             student.CGPA,
		TotalCredits:     student.TotalCredits,
		GraduationYear:   student.GraduationYear,
		SpecialisationID: student.SpecialisationID,
		PlacementID:      student.PlacementID,
		CategoryID:       student.CategoryID,
	}

	if student.Category != nil {
		resp.CategoryProgram = student.Category.Program
		resp.CategoryBatch = student.Category.Batch
	}

	return resp
}
