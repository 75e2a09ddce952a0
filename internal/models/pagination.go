package models

// Pagination mirrors the backend's pagination block.
type Pagination struct {
	CurrentPage int `json:"currentPage"`
	TotalCount  int `json:"totalCount"`
	TotalPages  int `json:"totalPages"`
	PageSize    int `json:"pageSize,omitempty"`
}

// Page is one page of a list plus its pagination metadata.
type Page[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}
