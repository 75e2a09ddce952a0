package models

import (
	"time"

	"github.com/noah-isme/academy-portal/pkg/query"
)

// Student represents an enrolled learner shown in the admin roster.
type Student struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Phone            string    `json:"phone"`
	Level            string    `json:"level"`
	RegistrationDate time.Time `json:"registrationDate"`
	Status           string    `json:"status"`
}

// StudentFilter captures filtering options for listing students.
type StudentFilter struct {
	Search   string `form:"search"`
	Level    string `form:"level"`
	Page     int    `form:"page"`
	PageSize int    `form:"limit"`
}

// Params converts the filter into the list query tuple.
func (f StudentFilter) Params() query.Params {
	return query.Params{
		Search:   f.Search,
		Filters:  map[string]string{"level": f.Level},
		Page:     f.Page,
		PageSize: f.PageSize,
	}
}
