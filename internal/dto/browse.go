package dto

import (
	"time"

	"github.com/noah-isme/academy-portal/pkg/filter"
	"github.com/noah-isme/academy-portal/pkg/pagination"
)

// CreateBrowseSessionRequest mounts a list view.
type CreateBrowseSessionRequest struct {
	Kind     string            `json:"kind" binding:"required"`
	Search   string            `json:"search"`
	Filters  map[string]string `json:"filters"`
	PageSize int               `json:"pageSize"`
}

// BrowseSearchRequest carries one keystroke. Flush settles it without waiting.
type BrowseSearchRequest struct {
	Value string `json:"value"`
	Flush bool   `json:"flush"`
}

// BrowseFilterRequest sets one categorical filter.
type BrowseFilterRequest struct {
	Value string `json:"value"`
}

// BrowsePageRequest moves to a page.
type BrowsePageRequest struct {
	Page int `json:"page"`
}

// BrowseView is everything a mounted list view renders.
type BrowseView struct {
	ID         string             `json:"id"`
	Kind       string             `json:"kind"`
	RawSearch  string             `json:"rawSearch"`
	Search     string             `json:"search"`
	Filters    map[string]string  `json:"filters"`
	Dimensions []filter.Dimension `json:"dimensions"`
	Page       int                `json:"page"`
	PageSize   int                `json:"pageSize"`
	Status     string             `json:"status"`
	Loading    bool               `json:"loading"`
	Items      interface{}        `json:"items"`
	TotalCount int                `json:"totalCount"`
	TotalPages int                `json:"totalPages"`
	Controls   pagination.Control `json:"controls"`
	Error      string             `json:"error,omitempty"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}
