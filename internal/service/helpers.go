package service

import (
	"errors"

	"github.com/noah-isme/academy-portal/internal/models"
	appErrors "github.com/noah-isme/academy-portal/pkg/errors"
	"github.com/noah-isme/academy-portal/pkg/query"
)

// Query cache names. Admin mutations invalidate by these names.
const (
	QueryCourses       = "courses"
	QueryTeachers      = "teachers"
	QueryRegistrations = "registrations"
	QueryStudents      = "students"
)

func resultFromPage[T any](page models.Page[T]) query.Result[T] {
	return query.Result[T]{
		Items:       page.Items,
		TotalCount:  page.Pagination.TotalCount,
		TotalPages:  page.Pagination.TotalPages,
		CurrentPage: page.Pagination.CurrentPage,
	}
}

func paginationFor[T any](res query.Result[T], params query.Params) *models.Pagination {
	current := res.CurrentPage
	if current < 1 {
		current = params.Page
	}
	pages := res.TotalPages
	if pages < 1 {
		pages = 1
	}
	return &models.Pagination{
		CurrentPage: current,
		TotalCount:  res.TotalCount,
		TotalPages:  pages,
		PageSize:    params.PageSize,
	}
}

// notFound replaces a backend 404 with a resource specific message; other errors pass through.
func notFound(err error, message string) error {
	if appErrors.Is(err, appErrors.ErrNotFound) {
		return appErrors.Clone(appErrors.ErrNotFound, message)
	}
	return backendError(err, message)
}

// backendError keeps typed errors and wraps anything else as internal.
func backendError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// clampPageSize applies the configured default and ceiling.
func clampPageSize(size, def, ceiling int) int {
	if size <= 0 {
		return def
	}
	if ceiling > 0 && size > ceiling {
		return ceiling
	}
	return size
}
