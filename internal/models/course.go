package models

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/noah-isme/academy-portal/pkg/query"
)

// CourseStatus is the lifecycle state of a course.
type CourseStatus string

const (
	CourseStatusActive     CourseStatus = "ACTIVE"
	CourseStatusCompleted  CourseStatus = "COMPLETED"
	CourseStatusNotStarted CourseStatus = "NOT_STARTED"
)

// CourseStatuses lists every valid status in display order.
var CourseStatuses = []CourseStatus{CourseStatusActive, CourseStatusCompleted, CourseStatusNotStarted}

// Valid reports whether s is one of the enumerated statuses.
func (s CourseStatus) Valid() bool {
	switch s {
	case CourseStatusActive, CourseStatusCompleted, CourseStatusNotStarted:
		return true
	}
	return false
}

// OpenForRegistration reports whether new registrations may reference a course in this state.
func (s CourseStatus) OpenForRegistration() bool {
	return s.Valid() && s != CourseStatusCompleted
}

// Price keeps the backend's price verbatim. The backend has been seen sending both
// numbers and strings.
type Price string

// UnmarshalJSON accepts a JSON string or number.
func (p *Price) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*p = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = Price(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*p = Price(n.String())
	return nil
}

// Course represents a course offered by the academy.
type Course struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Price       Price        `json:"price"`
	Status      CourseStatus `json:"status"`
	Level       *Level       `json:"level,omitempty"`
	Subject     *Subject     `json:"subject,omitempty"`
	Teachers    []Teacher    `json:"teachers"`
	ImageURL    string       `json:"imageUrl"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// CourseFilter captures supported filters for listing courses.
type CourseFilter struct {
	Search   string `form:"search"`
	Subject  string `form:"subject"`
	Level    string `form:"level"`
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"limit"`
}

// Params converts the filter into the list query tuple.
func (f CourseFilter) Params() query.Params {
	return query.Params{
		Search:   f.Search,
		Filters:  map[string]string{"subject": f.Subject, "level": f.Level, "status": f.Status},
		Page:     f.Page,
		PageSize: f.PageSize,
	}
}
