package repository

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/noah-isme/academy-portal/internal/models"
	appErrors "github.com/noah-isme/academy-portal/pkg/errors"
	"github.com/noah-isme/academy-portal/pkg/query"
	"github.com/noah-isme/academy-portal/pkg/upstream"
)

const backendPrefix = "/api/v1"

const coursesPath = backendPrefix + "/courses"

// CourseRepository reads and writes courses through the academy backend.
type CourseRepository struct {
	backend Backend
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(backend Backend) *CourseRepository {
	return &CourseRepository{backend: backend}
}

// List returns one page of courses for the given parameters.
func (r *CourseRepository) List(ctx context.Context, params query.Params) (models.Page[models.Course], error) {
	var raw json.RawMessage
	if err := r.backend.Get(ctx, "courses.list", coursesPath, params.Values(), &raw); err != nil {
		return models.Page[models.Course]{}, err
	}
	return decodePage[models.Course](raw, "courses")
}

// FindByID returns a single course.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	var raw json.RawMessage
	if err := r.backend.Get(ctx, "courses.get", itemPath(coursesPath, id), nil, &raw); err != nil {
		return nil, err
	}
	course, err := decodeItem[models.Course](raw, "course")
	if err != nil {
		return nil, err
	}
	if course == nil || course.ID == "" {
		return nil, appErrors.ErrNotFound
	}
	return course, nil
}

// Create posts a multipart course form.
func (r *CourseRepository) Create(ctx context.Context, form upstream.Multipart) (*models.Course, error) {
	var raw json.RawMessage
	if err := r.backend.SendMultipart(ctx, http.MethodPost, "courses.create", coursesPath, form, &raw); err != nil {
		return nil, err
	}
	return decodeItem[models.Course](raw, "course")
}

// Update patches a course with a multipart form.
func (r *CourseRepository) Update(ctx context.Context, id string, form upstream.Multipart) (*models.Course, error) {
	var raw json.RawMessage
	if err := r.backend.SendMultipart(ctx, http.MethodPatch, "courses.update", itemPath(coursesPath, id), form, &raw); err != nil {
		return nil, err
	}
	return decodeItem[models.Course](raw, "course")
}

// Delete removes a course.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	return r.backend.Delete(ctx, "courses.delete", itemPath(coursesPath, id))
}
