package dto

import "github.com/noah-isme/academy-portal/internal/models"

// FormIDHeader identifies one mounted registration form across retries.
const FormIDHeader = "X-Form-ID"

// RegistrationForm is the public registration form as entered.
type RegistrationForm struct {
	FullName string `json:"fullName" validate:"notblank,max=200"`
	Phone    string `json:"phone" validate:"required,mobile"`
	CourseID string `json:"courseId" validate:"required"`
	LevelID  string `json:"levelId"`
	Notes    string `json:"notes" validate:"max=1000"`
}

// ValidationResult is either OK with the normalised value or a set of field errors.
type ValidationResult struct {
	OK          bool              `json:"ok"`
	Value       *RegistrationForm `json:"value,omitempty"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

// SubmissionResult is returned after the backend accepted a registration. Form is the
// reset form with the course kept, Redirect the page to navigate to.
type SubmissionResult struct {
	Registration *models.Registration `json:"registration"`
	Form         RegistrationForm     `json:"form"`
	Redirect     string               `json:"redirect"`
	Notice       string               `json:"notice"`
}
