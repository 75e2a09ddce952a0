package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-portal/internal/dto"
	"github.com/noah-isme/academy-portal/internal/models"
)

// SubjectService manages subjects.
type SubjectService struct {
	ref referenceService[models.Subject]
}

// NewSubjectService constructs a SubjectService.
func NewSubjectService(repo namedRepository[models.Subject], cache *CacheService, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{ref: referenceService[models.Subject]{
		repo:      repo,
		cache:     cache,
		cacheKey:  cacheKeySubjects,
		noun:      "subject",
		validator: ensureValidator(validate),
		logger:    logger,
	}}
}

// List returns every subject.
func (s *SubjectService) List(ctx context.Context) ([]models.Subject, error) {
	return s.ref.list(ctx)
}

// Create adds a subject.
func (s *SubjectService) Create(ctx context.Context, req dto.NamedRequest) (*models.Subject, error) {
	return s.ref.create(ctx, req)
}

// Update renames a subject.
func (s *SubjectService) Update(ctx context.Context, id string, req dto.NamedRequest) (*models.Subject, error) {
	return s.ref.update(ctx, id, req)
}

// Delete removes a subject.
func (s *SubjectService) Delete(ctx context.Context, id string) error {
	return s.ref.delete(ctx, id)
}
