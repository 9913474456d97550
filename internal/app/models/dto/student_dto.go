package dto

// StudentRequest carries the JSON part of the multipart create/update payload.
// The photograph travels as a separate file part.
type StudentRequest struct {
	FirstName        string   `json:"firstName" binding:"required" example:"Asha"`
	LastName         string   `json:"lastName" binding:"required" example:"Verma"`
	Email            string   `json:"email" binding:"required,email" example:"asha.verma@example.com"`
	CGPA             *float64 `json:"cgpa" binding:"required" example:"8.7"`
	TotalCredits     *int     `json:"totalCredits" binding:"required" example:"142"`
	GraduationYear   *int     `json:"graduationYear" binding:"required" example:"2026"`
	SpecialisationID *int64   `json:"specialisationId,omitempty"`
	PlacementID      *int64   `json:"placementId,omitempty"`
	CategoryID       *int64   `json:"categoryId" binding:"required" example:"1"`
}

// StudentResponse is the outward representation of an enrollment record.
type StudentResponse struct {
	ID               int64   `json:"id"`
	RollNumber       string  `json:"rollNumber"`
	FirstName        string  `json:"firstName"`
	LastName         string  `json:"lastName"`
	Email            string  `json:"email"`
	PhotographPath   string  `json:"photographPath,omitempty"`
	CGPA             float64 `json:"cgpa"`
	TotalCredits     int     `json:"totalCredits"`
	GraduationYear   int     `json:"graduationYear"`
	SpecialisationID *int64  `json:"specialisationId,omitempty"`
	PlacementID      *int64  `json:"placementId,omitempty"`
	CategoryID       int64   `json:"categoryId"`
	CategoryProgram  string  `json:"categoryProgram,omitempty"`
	CategoryBatch    string  `json:"categoryBatch,omitempty"`
}
