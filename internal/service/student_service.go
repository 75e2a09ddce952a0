package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-portal/internal/models"
	"github.com/noah-isme/academy-portal/pkg/query"
)

type studentRepository interface {
	List(ctx context.Context, params query.Params) (models.Page[models.Student], error)
	Delete(ctx context.Context, id string) error
}

// StudentService backs the admin student roster.
type StudentService struct {
	repo        studentRepository
	cache       *query.Cache
	invalidator QueryInvalidator
	logger      *zap.Logger
	cfg         ListConfig
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentRepository, cfg ListConfig, cache *query.Cache, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, cache: cache, logger: logger, cfg: cfg}
}

// SetInvalidator wires the browse service after construction.
func (s *StudentService) SetInvalidator(inv QueryInvalidator) {
	s.invalidator = inv
}

// Fetch loads one page of students from the backend.
func (s *StudentService) Fetch(ctx context.Context, params query.Params) (query.Result[models.Student], error) {
	page, err := s.repo.List(ctx, params)
	if err != nil {
		return query.Result[models.Student]{}, backendError(err, "failed to list students")
	}
	return resultFromPage(page), nil
}

// List returns one page of students.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	params := s.cfg.normalize(filter.Params())
	res, _, err := query.Load(ctx, s.cache, QueryStudents, params, s.Fetch)
	if err != nil {
		return nil, nil, err
	}
	return res.Items, paginationFor(res, params), nil
}

// Count returns the total number of students.
func (s *StudentService) Count(ctx context.Context) (int, error) {
	res, err := s.Fetch(ctx, query.Params{Page: 1, PageSize: 1})
	if err != nil {
		return 0, err
	}
	return res.TotalCount, nil
}

// Delete removes a student.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound(err, "student not found")
	}
	if s.invalidator != nil {
		s.invalidator.InvalidateQueries(ctx, QueryStudents)
	} else {
		s.cache.Invalidate(QueryStudents)
	}
	s.logger.Info("student deleted", zap.String("id", id))
	return nil
}
