package models

import (
	"time"

	"github.com/noah-isme/academy-portal/pkg/query"
)

// Teacher represents an instructor profile.
type Teacher struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	Bio          string    `json:"bio"`
	Education    string    `json:"education"`
	Experience   int       `json:"experience"`
	ImageURL     string    `json:"imageUrl"`
	Achievements []string  `json:"achievements"`
	Subjects     []Subject `json:"subjects"`
	CreatedAt    time.Time `json:"createdAt"`
}

// TeacherOption is the id/name pair used by dropdowns.
type TeacherOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Search   string `form:"search"`
	Subject  string `form:"subject"`
	Page     int    `form:"page"`
	PageSize int    `form:"limit"`
}

// Params converts the filter into the list query tuple.
func (f TeacherFilter) Params() query.Params {
	return query.Params{
		Search:   f.Search,
		Filters:  map[string]string{"subject": f.Subject},
		Page:     f.Page,
		PageSize: f.PageSize,
	}
}
