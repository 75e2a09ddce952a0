package repository

import (
	"context"
	"encoding/json"

	"github.com/noah-isme/academy-portal/internal/models"
)

const (
	levelsPath   = backendPrefix + "/levels"
	subjectsPath = backendPrefix + "/subjects"
)

// referenceRepository handles the flat reference collections that share one shape.
type referenceRepository[T any] struct {
	backend Backend
	name    string
	single  string
	path    string
}

func (r *referenceRepository[T]) List(ctx context.Context) ([]T, error) {
	var raw json.RawMessage
	if err := r.backend.Get(ctx, r.name+".list", r.path, nil, &raw); err != nil {
		return nil, err
	}
	page, err := decodePage[T](raw, r.name)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

func (r *referenceRepository[T]) Create(ctx context.Context, body interface{}) (*T, error) {
	var raw json.RawMessage
	if err := r.backend.PostJSON(ctx, r.name+".create", r.path, body, &raw); err != nil {
		return nil, err
	}
	return decodeItem[T](raw, r.single)
}

func (r *referenceRepository[T]) Update(ctx context.Context, id string, body interface{}) (*T, error) {
	var raw json.RawMessage
	if err := r.backend.PatchJSON(ctx, r.name+".update", itemPath(r.path, id), body, &raw); err != nil {
		return nil, err
	}
	return decodeItem[T](raw, r.single)
}

func (r *referenceRepository[T]) Delete(ctx context.Context, id string) error {
	return r.backend.Delete(ctx, r.name+".delete", itemPath(r.path, id))
}

// LevelRepository manages study levels on the backend.
type LevelRepository struct {
	referenceRepository[models.Level]
}

// NewLevelRepository constructs a LevelRepository.
func NewLevelRepository(backend Backend) *LevelRepository {
	return &LevelRepository{referenceRepository[models.Level]{backend: backend, name: "levels", single: "level", path: levelsPath}}
}

// SubjectRepository manages subjects on the backend.
type SubjectRepository struct {
	referenceRepository[models.Subject]
}

// NewSubjectRepository constructs a SubjectRepository.
func NewSubjectRepository(backend Backend) *SubjectRepository {
	return &SubjectRepository{referenceRepository[models.Subject]{backend: backend, name: "subjects", single: "subject", path: subjectsPath}}
}
