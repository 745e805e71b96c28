package domain

// StudentProfile is the caller-supplied identity the card is issued for.
// JSON keys match the client payload.
type StudentProfile struct {
	Name           string `json:"name" validate:"required"`
	StudentID      string `json:"studentId" validate:"required"`
	Major          string `json:"major"`
	Classification string `json:"classification"`
	Email          string `json:"email" validate:"omitempty,email"`
	ImageURL       string `json:"imageUrl"`
}
