package models

// Student defines a registered enrollment record. RollNumber is assigned at
// creation and never changes; PhotographPath points at the stored attachment.
type Student struct {
	ID               int64   `json:"id" example:"1"`
	RollNumber       string  `json:"rollNumber" example:"CS25001"`
	FirstName        string  `json:"firstName" example:"Asha"`
	LastName         string  `json:"lastName" example:"Verma"`
	Email            string  `json:"email" example:"asha.verma@example.com"`
	PhotographPath   string  `json:"photographPath,omitempty"`
	CGPA             float64 `json:"cgpa" example:"8.7"`
	TotalCredits     int     `json:"totalCredits" example:"142"`
	GraduationYear   int     `json:"graduationYear" example:"2026"`
	SpecialisationID *int64  `json:"specialisationId,omitempty"`
	PlacementID      *int64  `json:"placementId,omitempty"`
	CategoryID       int64   `json:"categoryId" example:"1"`

	// Relation (populated when needed)
	Category *Category `json:"category,omitempty"`
}
