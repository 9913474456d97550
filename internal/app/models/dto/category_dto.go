package dto

// CreateCategoryRequest carries the payload for category creation.
type CreateCategoryRequest struct {
	Program       string  `json:"program" binding:"required" example:"Computer Science"`
	Batch         string  `json:"batch" binding:"required" example:"2025"`
	Capacity      *int    `json:"capacity,omitempty" binding:"omitempty,gt=0" example:"120"`
	Qualification *string `json:"qualification,omitempty" example:"BTech"`
}

// CategoryResponse is the outward representation of a category.
type CategoryResponse struct {
	ID            int64   `json:"id"`
	Program       string  `json:"program"`
	Batch         string  `json:"batch"`
	Capacity      *int    `json:"capacity,omitempty"`
	Qualification *string `json:"qualification,omitempty"`
}
