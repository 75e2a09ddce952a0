package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-portal/internal/models"
	appErrors "github.com/noah-isme/academy-portal/pkg/errors"
	"github.com/noah-isme/academy-portal/pkg/query"
	"github.com/noah-isme/academy-portal/pkg/upstream"
)

type teacherRepository interface {
	List(ctx context.Context, params query.Params) (models.Page[models.Teacher], error)
	Options(ctx context.Context) ([]models.TeacherOption, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	Create(ctx context.Context, body interface{}) (*models.Teacher, error)
	Update(ctx context.Context, id string, body interface{}) (*models.Teacher, error)
	Delete(ctx context.Context, id string) error
}

// TeacherRequest represents the payload for creating or updating teachers.
type TeacherRequest struct {
	Name         string   `json:"name" validate:"notblank,max=120"`
	Phone        string   `json:"phone,omitempty" validate:"omitempty,mobile"`
	Email        string   `json:"email,omitempty" validate:"omitempty,email"`
	Bio          string   `json:"bio,omitempty" validate:"max=2000"`
	Education    string   `json:"education,omitempty" validate:"max=300"`
	Experience   int      `json:"experience" validate:"min=0,max=80"`
	ImageURL     string   `json:"imageUrl,omitempty" validate:"omitempty,url"`
	Achievements []string `json:"achievements,omitempty" validate:"max=20,dive,max=200"`
	SubjectIDs   []string `json:"subjectIds,omitempty"`
}

// TeacherService orchestrates teacher operations.
type TeacherService struct {
	repo        teacherRepository
	cache       *query.Cache
	refCache    *CacheService
	invalidator QueryInvalidator
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         ListConfig
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(repo teacherRepository, cfg ListConfig, cache *query.Cache, refCache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{
		repo:      repo,
		cache:     cache,
		refCache:  refCache,
		metrics:   metrics,
		validator: ensureValidator(validate),
		logger:    logger,
		cfg:       cfg,
	}
}

// SetInvalidator wires the browse service after construction.
func (s *TeacherService) SetInvalidator(inv QueryInvalidator) {
	s.invalidator = inv
}

// Fetch loads one page of teachers from the backend.
func (s *TeacherService) Fetch(ctx context.Context, params query.Params) (query.Result[models.Teacher], error) {
	page, err := s.repo.List(ctx, params)
	if err != nil {
		return query.Result[models.Teacher]{}, backendError(err, "failed to list teachers")
	}
	return resultFromPage(page), nil
}

// List returns teachers plus pagination data.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, bool, error) {
	params := s.cfg.normalize(filter.Params())
	res, hit, err := query.Load(ctx, s.cache, QueryTeachers, params, s.Fetch)
	if err != nil {
		s.metrics.ObserveQuery(QueryTeachers, query.OutcomeError)
		return nil, nil, false, err
	}
	if hit {
		s.metrics.ObserveQuery(QueryTeachers, query.OutcomeHit)
	} else {
		s.metrics.ObserveQuery(QueryTeachers, query.OutcomeMiss)
	}
	return res.Items, paginationFor(res, params), hit, nil
}

// Options returns the id/name dropdown. It is an admin list, so the Redis entry is kept per
// caller credentials.
func (s *TeacherService) Options(ctx context.Context) ([]models.TeacherOption, error) {
	opts, _, err := remember(ctx, s.refCache, teacherOptionsKey(ctx), s.repo.Options)
	if err != nil {
		return nil, backendError(err, "failed to load teachers")
	}
	if opts == nil {
		opts = []models.TeacherOption{}
	}
	return opts, nil
}

// Get returns a teacher by id.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "teacher not found")
	}
	return teacher, nil
}

// Create registers a new teacher.
func (s *TeacherService) Create(ctx context.Context, req TeacherRequest) (*models.Teacher, error) {
	req = normalizeTeacher(req)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid teacher payload")
	}
	teacher, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, backendError(err, "failed to create teacher")
	}
	s.invalidate(ctx)
	return teacher, nil
}

// Update modifies an existing teacher.
func (s *TeacherService) Update(ctx context.Context, id string, req TeacherRequest) (*models.Teacher, error) {
	req = normalizeTeacher(req)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid teacher payload")
	}
	teacher, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return nil, notFound(err, "teacher not found")
	}
	s.invalidate(ctx)
	return teacher, nil
}

// Delete removes a teacher.
func (s *TeacherService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if appErrors.Is(err, appErrors.ErrConflict) {
			return appErrors.Clone(appErrors.ErrConflict, "teacher is assigned to a course")
		}
		return notFound(err, "teacher not found")
	}
	s.invalidate(ctx)
	return nil
}

func (s *TeacherService) invalidate(ctx context.Context) {
	s.refCache.Invalidate(ctx, cacheKeyTeacherOptions+":*")
	if s.invalidator != nil {
		s.invalidator.InvalidateQueries(ctx, QueryTeachers)
		// Course cards embed teacher names.
		s.invalidator.InvalidateQueries(ctx, QueryCourses)
		return
	}
	s.cache.Invalidate(QueryTeachers)
	s.cache.Invalidate(QueryCourses)
}

func teacherOptionsKey(ctx context.Context) string {
	scope := upstream.CredentialScope(ctx)
	if scope == "" {
		scope = "anonymous"
	}
	return cacheKeyTeacherOptions + ":" + scope
}

func normalizeTeacher(req TeacherRequest) TeacherRequest {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Email = strings.TrimSpace(req.Email)
	req.Bio = strings.TrimSpace(req.Bio)
	req.Education = strings.TrimSpace(req.Education)
	req.ImageURL = strings.TrimSpace(req.ImageURL)
	return req
}
