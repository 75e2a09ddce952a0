package dto

import "github.com/noah-isme/academy-portal/internal/models"

// CourseFormOptions feeds the admin course dialog dropdowns.
type CourseFormOptions struct {
	Subjects []models.Subject       `json:"subjects"`
	Levels   []models.Level         `json:"levels"`
	Teachers []models.TeacherOption `json:"teachers"`
	Statuses []models.CourseStatus  `json:"statuses"`
}

// NamedRequest is the payload for levels and subjects.
type NamedRequest struct {
	Name        string `json:"name" validate:"notblank,max=120"`
	Description string `json:"description,omitempty" validate:"max=500"`
}
