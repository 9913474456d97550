package models

// Category groups enrollment records and drives roll number prefix
// derivation. Program and batch are mandatory; qualification, when present,
// takes precedence over program for the prefix.
type Category struct {
	ID            int64   `json:"id" example:"1"`
	Program       string  `json:"program" example:"Computer Science"`
	Batch         string  `json:"batch" example:"2025"`
	Capacity      *int    `json:"capacity,omitempty" example:"120"`
	Qualification *string `json:"qualification,omitempty" example:"BTech"`
}
