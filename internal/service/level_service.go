package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-portal/internal/dto"
	"github.com/noah-isme/academy-portal/internal/models"
	appErrors "github.com/noah-isme/academy-portal/pkg/errors"
)

type namedRepository[T any] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, body interface{}) (*T, error)
	Update(ctx context.Context, id string, body interface{}) (*T, error)
	Delete(ctx context.Context, id string) error
}

// referenceService implements list/create/update/delete for a flat reference collection
// with the list cached in Redis.
type referenceService[T any] struct {
	repo      namedRepository[T]
	cache     *CacheService
	cacheKey  string
	noun      string
	validator *validator.Validate
	logger    *zap.Logger
}

func (s *referenceService[T]) list(ctx context.Context) ([]T, error) {
	items, _, err := remember(ctx, s.cache, s.cacheKey, s.repo.List)
	if err != nil {
		return nil, backendError(err, "failed to list "+s.noun+"s")
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (s *referenceService[T]) create(ctx context.Context, req dto.NamedRequest) (*T, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid "+s.noun+" payload")
	}
	item, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, backendError(err, "failed to create "+s.noun)
	}
	s.cache.Invalidate(ctx, s.cacheKey)
	return item, nil
}

func (s *referenceService[T]) update(ctx context.Context, id string, req dto.NamedRequest) (*T, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid "+s.noun+" payload")
	}
	item, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return nil, notFound(err, s.noun+" not found")
	}
	s.cache.Invalidate(ctx, s.cacheKey)
	return item, nil
}

func (s *referenceService[T]) delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if appErrors.Is(err, appErrors.ErrConflict) {
			return appErrors.Clone(appErrors.ErrConflict, s.noun+" is still in use")
		}
		return notFound(err, s.noun+" not found")
	}
	s.cache.Invalidate(ctx, s.cacheKey)
	s.logger.Info(s.noun+" deleted", zap.String("id", id))
	return nil
}

// LevelService manages study levels.
type LevelService struct {
	ref referenceService[models.Level]
}

// NewLevelService constructs a LevelService.
func NewLevelService(repo namedRepository[models.Level], cache *CacheService, validate *validator.Validate, logger *zap.Logger) *LevelService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LevelService{ref: referenceService[models.Level]{
		repo:      repo,
		cache:     cache,
		cacheKey:  cacheKeyLevels,
		noun:      "level",
		validator: ensureValidator(validate),
		logger:    logger,
	}}
}

// List returns every level.
func (s *LevelService) List(ctx context.Context) ([]models.Level, error) {
	return s.ref.list(ctx)
}

// Create adds a level.
func (s *LevelService) Create(ctx context.Context, req dto.NamedRequest) (*models.Level, error) {
	return s.ref.create(ctx, req)
}

// Update renames a level.
func (s *LevelService) Update(ctx context.Context, id string, req dto.NamedRequest) (*models.Level, error) {
	return s.ref.update(ctx, id, req)
}

// Delete removes a level.
func (s *LevelService) Delete(ctx context.Context, id string) error {
	return s.ref.delete(ctx, id)
}
