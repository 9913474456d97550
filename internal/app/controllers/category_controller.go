package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hverma/enrollhub/internal/app/models"
	"github.com/hverma/enrollhub/internal/app/models/dto"
	"github.com/hverma/enrollhub/internal/app/services"
	"github.com/hverma/enrollhub/internal/middleware"
)

// CategoryController handles category group operations
type CategoryController struct {
	categoryService *services.CategoryService
}

// NewCategoryController creates a new CategoryController
func NewCategoryController(categoryService *services.CategoryService) *CategoryController {
	return &CategoryController{categoryService: categoryService}
}

// CreateCategory handles category creation
// @Summary Create a new category
// @Description Creates a category group (program/batch) that enrollment records belong to
// @Tags categories
// @Accept json
// @Produce json
// @Param request body dto.CreateCategoryRequest true "Category information"
// @Success 201 {object} dto.APIResponse{data=dto.CategoryResponse} "Category created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Router /categories [post]
func (c *CategoryController) CreateCategory(ctx *gin.Context) {
	var req dto.CreateCategoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid category data")
		errorDetail = errorDetail.WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	category := &models.Category{
		Program:       req.Program,
		Batch:         req.Batch,
		Capacity:      req.Capacity,
		Qualification: req.Qualification,
	}

	if err := c.categoryService.CreateCategory(ctx.Request.Context(), category); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.APIResponse{
		Data:      toCategoryResponse(category),
		Timestamp: time.Now(),
	})
}

// GetCategoryByID retrieves a category by ID
// @Summary Get category by ID
// @Tags categories
// @Produce json
// @Param id path int true "Category ID"
// @Success 200 {object} dto.APIResponse{data=dto.CategoryResponse}
// @Failure 404 {object} dto.ErrorResponse "Category not found"
// @Router /categories/{id} [get]
func (c *CategoryController) GetCategoryByID(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid category ID")
		errorDetail = errorDetail.WithDetails("Category ID must be a valid number")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	category, err := c.categoryService.GetCategoryByID(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      toCategoryResponse(category),
		Timestamp: time.Now(),
	})
}

// GetAllCategories retrieves all categories
// @Summary List categories
// @Tags categories
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]dto.CategoryResponse}
// @Router /categories [get]
func (c *CategoryController) GetAllCategories(ctx *gin.Context) {
	categories, err := c.categoryService.GetAllCategories(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	responses := make([]*dto.CategoryResponse, 0, len(categories))
	for _, category := range categories {
		responses = append(responses, toCategoryResponse(category))
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      responses,
		Timestamp: time.Now(),
	})
}

func toCategoryResponse(category *models.Category) *dto.CategoryResponse {
	return &dto.CategoryResponse{
		ID:            category.ID,
		Program:       category.Program,
		Batch:         category.Batch,
		Capacity:      category.Capacity,
		Qualification: category.Qualification,
	}
}
