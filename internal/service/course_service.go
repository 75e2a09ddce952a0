package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/academy-portal/internal/dto"
	"github.com/noah-isme/academy-portal/internal/models"
	appErrors "github.com/noah-isme/academy-portal/pkg/errors"
	"github.com/noah-isme/academy-portal/pkg/query"
	"github.com/noah-isme/academy-portal/pkg/upstream"
)

type courseRepository interface {
	List(ctx context.Context, params query.Params) (models.Page[models.Course], error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, form upstream.Multipart) (*models.Course, error)
	Update(ctx context.Context, id string, form upstream.Multipart) (*models.Course, error)
	Delete(ctx context.Context, id string) error
}

// QueryInvalidator drops cached list results for a query name and refreshes mounted views.
type QueryInvalidator interface {
	InvalidateQueries(ctx context.Context, name string)
}

type courseOptionSources interface {
	Subjects(ctx context.Context) ([]models.Subject, error)
	Levels(ctx context.Context) ([]models.Level, error)
	TeacherOptions(ctx context.Context) ([]models.TeacherOption, error)
}

// CourseRequest is the admin course dialog payload. TeacherIDs travel to the backend as
// a JSON array in a single multipart field.
type CourseRequest struct {
	Title       string         `json:"title" form:"title" validate:"notblank,max=200"`
	Description string         `json:"description" form:"description" validate:"max=5000"`
	SubjectID   string         `json:"subjectId" form:"subjectId" validate:"required"`
	LevelID     string         `json:"levelId" form:"levelId" validate:"required"`
	Status      string         `json:"status" form:"status" validate:"required,course_status"`
	Price       string         `json:"price" form:"price" validate:"required,numeric"`
	TeacherIDs  []string       `json:"teacherIds" form:"teacherIds"`
	Image       *upstream.File `json:"-" form:"-" validate:"-"`
}

// ListConfig bounds list page sizes.
type ListConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

func (c ListConfig) normalize(params query.Params) query.Params {
	def := c.DefaultPageSize
	if def <= 0 {
		def = 10
	}
	params.PageSize = clampPageSize(params.PageSize, def, c.MaxPageSize)
	return params.Normalize(def)
}

// CourseService serves the public catalogue and the admin course screens.
type CourseService struct {
	repo        courseRepository
	cache       *query.Cache
	invalidator QueryInvalidator
	options     courseOptionSources
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         ListConfig
}

// CourseServiceDeps groups the optional collaborators of CourseService.
type CourseServiceDeps struct {
	Cache       *query.Cache
	Invalidator QueryInvalidator
	Options     courseOptionSources
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
}

// NewCourseService constructs a CourseService.
func NewCourseService(repo courseRepository, cfg ListConfig, deps CourseServiceDeps) *CourseService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &CourseService{
		repo:        repo,
		cache:       deps.Cache,
		invalidator: deps.Invalidator,
		options:     deps.Options,
		metrics:     deps.Metrics,
		validator:   ensureValidator(deps.Validator),
		logger:      deps.Logger,
		cfg:         cfg,
	}
}

// SetInvalidator wires the browse service after construction.
func (s *CourseService) SetInvalidator(inv QueryInvalidator) {
	s.invalidator = inv
}

// Fetch loads one page straight from the backend. Browse sessions use it as their fetcher.
func (s *CourseService) Fetch(ctx context.Context, params query.Params) (query.Result[models.Course], error) {
	page, err := s.repo.List(ctx, params)
	if err != nil {
		return query.Result[models.Course]{}, backendError(err, "failed to list courses")
	}
	return resultFromPage(page), nil
}

// List returns one page of the catalogue. The bool reports a cache hit.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, bool, error) {
	if status := strings.TrimSpace(filter.Status); status != "" && !strings.EqualFold(status, query.AllValue) && !models.CourseStatus(status).Valid() {
		return nil, nil, false, appErrors.Validation("invalid course filter", map[string]string{
			"status": "must be one of ACTIVE, COMPLETED, NOT_STARTED or all",
		})
	}
	params := s.cfg.normalize(filter.Params())
	res, hit, err := query.Load(ctx, s.cache, QueryCourses, params, s.Fetch)
	s.observe(hit, err)
	if err != nil {
		return nil, nil, false, err
	}
	return res.Items, paginationFor(res, params), hit, nil
}

func (s *CourseService) observe(hit bool, err error) {
	switch {
	case err != nil:
		s.metrics.ObserveQuery(QueryCourses, query.OutcomeError)
	case hit:
		s.metrics.ObserveQuery(QueryCourses, query.OutcomeHit)
	default:
		s.metrics.ObserveQuery(QueryCourses, query.OutcomeMiss)
	}
}

// Get returns a course by id.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	if strings.TrimSpace(id) == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "course not found")
	}
	return course, nil
}

// Create validates and submits a new course.
func (s *CourseService) Create(ctx context.Context, req CourseRequest) (*models.Course, error) {
	form, err := s.buildForm(req)
	if err != nil {
		return nil, err
	}
	course, err := s.repo.Create(ctx, form)
	if err != nil {
		return nil, backendError(err, "failed to create course")
	}
	s.invalidate(ctx)
	s.logger.Info("course created", zap.String("title", req.Title))
	return course, nil
}

// Update validates and patches a course.
func (s *CourseService) Update(ctx context.Context, id string, req CourseRequest) (*models.Course, error) {
	form, err := s.buildForm(req)
	if err != nil {
		return nil, err
	}
	course, err := s.repo.Update(ctx, id, form)
	if err != nil {
		return nil, notFound(err, "course not found")
	}
	s.invalidate(ctx)
	return course, nil
}

// Delete removes a course.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound(err, "course not found")
	}
	s.invalidate(ctx)
	return nil
}

// FormOptions loads the course dialog dropdowns concurrently.
func (s *CourseService) FormOptions(ctx context.Context) (*dto.CourseFormOptions, error) {
	if s.options == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "course options unavailable")
	}
	out := &dto.CourseFormOptions{Statuses: models.CourseStatuses}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		subjects, err := s.options.Subjects(gctx)
		out.Subjects = subjects
		return err
	})
	g.Go(func() error {
		levels, err := s.options.Levels(gctx)
		out.Levels = levels
		return err
	})
	g.Go(func() error {
		teachers, err := s.options.TeacherOptions(gctx)
		out.Teachers = teachers
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, backendError(err, "failed to load course options")
	}
	return out, nil
}

func (s *CourseService) buildForm(req CourseRequest) (upstream.Multipart, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Price = strings.TrimSpace(req.Price)
	if err := s.validator.Struct(req); err != nil {
		return upstream.Multipart{}, validationError(err, "invalid course payload")
	}

	teacherIDs := req.TeacherIDs
	if teacherIDs == nil {
		teacherIDs = []string{}
	}
	encoded, err := json.Marshal(teacherIDs)
	if err != nil {
		return upstream.Multipart{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode teachers")
	}

	form := upstream.Multipart{Fields: []upstream.Field{
		{Name: "title", Value: req.Title},
		{Name: "description", Value: req.Description},
		{Name: "subjectId", Value: req.SubjectID},
		{Name: "levelId", Value: req.LevelID},
		{Name: "status", Value: req.Status},
		{Name: "price", Value: req.Price},
		{Name: "teacherIds", Value: string(encoded)},
	}}
	if req.Image != nil && len(req.Image.Data) > 0 {
		img := *req.Image
		img.FieldName = "image"
		form.File = &img
	}
	return form, nil
}

func (s *CourseService) invalidate(ctx context.Context) {
	if s.invalidator != nil {
		s.invalidator.InvalidateQueries(ctx, QueryCourses)
		return
	}
	s.cache.Invalidate(QueryCourses)
}

// ReferenceOptions adapts the reference services to the course dialog option source.
type ReferenceOptions struct {
	LevelService   *LevelService
	SubjectService *SubjectService
	TeacherService *TeacherService
}

// Subjects lists subjects.
func (o ReferenceOptions) Subjects(ctx context.Context) ([]models.Subject, error) {
	return o.SubjectService.List(ctx)
}

// Levels lists levels.
func (o ReferenceOptions) Levels(ctx context.Context) ([]models.Level, error) {
	return o.LevelService.List(ctx)
}

// TeacherOptions lists the teacher dropdown.
func (o ReferenceOptions) TeacherOptions(ctx context.Context) ([]models.TeacherOption, error) {
	return o.TeacherService.Options(ctx)
}
