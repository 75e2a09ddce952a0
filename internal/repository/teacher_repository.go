package repository

import (
	"context"
	"encoding/json"

	"github.com/noah-isme/academy-portal/internal/models"
	appErrors "github.com/noah-isme/academy-portal/pkg/errors"
	"github.com/noah-isme/academy-portal/pkg/query"
)

const teachersPath = backendPrefix + "/teachers"

// TeacherRepository reads and writes teachers through the academy backend.
type TeacherRepository struct {
	backend Backend
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(backend Backend) *TeacherRepository {
	return &TeacherRepository{backend: backend}
}

// List returns one page of teachers.
func (r *TeacherRepository) List(ctx context.Context, params query.Params) (models.Page[models.Teacher], error) {
	var raw json.RawMessage
	if err := r.backend.Get(ctx, "teachers.list", teachersPath, params.Values(), &raw); err != nil {
		return models.Page[models.Teacher]{}, err
	}
	return decodePage[models.Teacher](raw, "teachers")
}

// Options returns the id/name pairs used by the course form.
func (r *TeacherRepository) Options(ctx context.Context) ([]models.TeacherOption, error) {
	var raw json.RawMessage
	if err := r.backend.Get(ctx, "teachers.name_id", teachersPath+"/name-id", nil, &raw); err != nil {
		return nil, err
	}
	page, err := decodePage[models.TeacherOption](raw, "teachers")
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// FindByID returns a single teacher.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	var raw json.RawMessage
	if err := r.backend.Get(ctx, "teachers.get", itemPath(teachersPath, id), nil, &raw); err != nil {
		return nil, err
	}
	teacher, err := decodeItem[models.Teacher](raw, "teacher")
	if err != nil {
		return nil, err
	}
	if teacher == nil || teacher.ID == "" {
		return nil, appErrors.ErrNotFound
	}
	return teacher, nil
}

// Create posts a new teacher.
func (r *TeacherRepository) Create(ctx context.Context, body interface{}) (*models.Teacher, error) {
	var raw json.RawMessage
	if err := r.backend.PostJSON(ctx, "teachers.create", teachersPath, body, &raw); err != nil {
		return nil, err
	}
	return decodeItem[models.Teacher](raw, "teacher")
}

// Update patches a teacher.
func (r *TeacherRepository) Update(ctx context.Context, id string, body interface{}) (*models.Teacher, error) {
	var raw json.RawMessage
	if err := r.backend.PatchJSON(ctx, "teachers.update", itemPath(teachersPath, id), body, &raw); err != nil {
		return nil, err
	}
	return decodeItem[models.Teacher](raw, "teacher")
}

// Delete removes a teacher.
func (r *TeacherRepository) Delete(ctx context.Context, id string) error {
	return r.backend.Delete(ctx, "teachers.delete", itemPath(teachersPath, id))
}
