package repository

import (
	"context"
	"encoding/json"

	"github.com/noah-isme/academy-portal/internal/models"
	"github.com/noah-isme/academy-portal/pkg/query"
)

const studentsPath = backendPrefix + "/students"

// StudentRepository lists and removes students on the backend.
type StudentRepository struct {
	backend Backend
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(backend Backend) *StudentRepository {
	return &StudentRepository{backend: backend}
}

// List returns one page of students.
func (r *StudentRepository) List(ctx context.Context, params query.Params) (models.Page[models.Student], error) {
	var raw json.RawMessage
	if err := r.backend.Get(ctx, "students.list", studentsPath, params.Values(), &raw); err != nil {
		return models.Page[models.Student]{}, err
	}
	return decodePage[models.Student](raw, "students")
}

// Delete removes a student.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	return r.backend.Delete(ctx, "students.delete", itemPath(studentsPath, id))
}
