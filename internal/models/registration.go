package models

import (
	"time"

	"github.com/noah-isme/academy-portal/pkg/query"
)

// RegistrationStatus is the review state of a registration. The backend may define more.
type RegistrationStatus string

const (
	RegistrationStatusPending  RegistrationStatus = "PENDING"
	RegistrationStatusApproved RegistrationStatus = "APPROVED"
	RegistrationStatusRejected RegistrationStatus = "REJECTED"
)

// Registration represents a course registration submitted from the public site.
type Registration struct {
	ID        string             `json:"id"`
	FullName  string             `json:"fullName"`
	Phone     string             `json:"phone"`
	CourseID  string             `json:"courseId"`
	LevelID   string             `json:"levelId,omitempty"`
	Notes     string             `json:"notes,omitempty"`
	Status    RegistrationStatus `json:"status"`
	CreatedAt time.Time          `json:"createdAt"`
	Course    *Course            `json:"Course,omitempty"`
	Level     *Level             `json:"Level,omitempty"`
}

// RegistrationFilter captures admin listing filters.
type RegistrationFilter struct {
	Search   string `form:"search"`
	Course   string `form:"course"`
	Level    string `form:"level"`
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"limit"`
}

// Params converts the filter into the list query tuple.
func (f RegistrationFilter) Params() query.Params {
	return query.Params{
		Search:   f.Search,
		Filters:  map[string]string{"course": f.Course, "level": f.Level, "status": f.Status},
		Page:     f.Page,
		PageSize: f.PageSize,
	}
}
