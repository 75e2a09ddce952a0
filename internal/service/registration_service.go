package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-portal/internal/dto"
	"github.com/noah-isme/academy-portal/internal/models"
	appErrors "github.com/noah-isme/academy-portal/pkg/errors"
	"github.com/noah-isme/academy-portal/pkg/query"
)

// Submission outcomes recorded in metrics.
const (
	submissionAccepted = "accepted"
	submissionInvalid  = "invalid"
	submissionRejected = "rejected"
	submissionFailed   = "failed"
	submissionInFlight = "in_flight"
)

const submittedNotice = "Registration received. We will contact you shortly."

type registrationRepository interface {
	Create(ctx context.Context, reg *models.Registration) (*models.Registration, error)
	List(ctx context.Context, params query.Params) (models.Page[models.Registration], error)
	Delete(ctx context.Context, id string) error
}

type courseLookup interface {
	Get(ctx context.Context, id string) (*models.Course, error)
}

// RegistrationConfig controls registration form rules.
type RegistrationConfig struct {
	RequireLevel bool
	List         ListConfig
}

// RegistrationService validates and submits public registrations and backs the admin list.
type RegistrationService struct {
	repo        registrationRepository
	courses     courseLookup
	cache       *query.Cache
	invalidator QueryInvalidator
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         RegistrationConfig
	now         func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(repo registrationRepository, courses courseLookup, cfg RegistrationConfig, cache *query.Cache, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		repo:      repo,
		courses:   courses,
		cache:     cache,
		metrics:   metrics,
		validator: ensureValidator(validate),
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
		inFlight:  make(map[string]struct{}),
	}
}

// SetInvalidator wires the browse service after construction.
func (s *RegistrationService) SetInvalidator(inv QueryInvalidator) {
	s.invalidator = inv
}

// Validate checks the form without touching the network.
func (s *RegistrationService) Validate(form dto.RegistrationForm) dto.ValidationResult {
	form = normalizeRegistration(form)

	fields := map[string]string{}
	if err := s.validator.Struct(form); err != nil {
		fields = fieldErrors(err)
		if fields == nil {
			fields = map[string]string{"form": "is invalid"}
		}
	}
	if s.cfg.RequireLevel && form.LevelID == "" {
		if _, exists := fields["levelId"]; !exists {
			fields["levelId"] = "is required"
		}
	}
	if len(fields) > 0 {
		return dto.ValidationResult{OK: false, FieldErrors: fields}
	}
	return dto.ValidationResult{OK: true, Value: &form}
}

// Submit validates the form and posts it to the backend. While a submission for formID is
// pending, further calls with the same id fail fast without a network call.
func (s *RegistrationService) Submit(ctx context.Context, formID string, form dto.RegistrationForm) (*dto.SubmissionResult, error) {
	result := s.Validate(form)
	if !result.OK {
		s.metrics.RecordSubmission(submissionInvalid)
		return nil, appErrors.Validation("invalid registration", result.FieldErrors)
	}
	value := *result.Value

	key := strings.TrimSpace(formID)
	if key == "" {
		key = value.FullName + "|" + value.Phone + "|" + value.CourseID
	}
	if !s.acquire(key) {
		s.metrics.RecordSubmission(submissionInFlight)
		return nil, appErrors.ErrSubmissionInFlight
	}
	defer s.release(key)

	if err := s.ensureCourseOpen(ctx, value.CourseID); err != nil {
		s.metrics.RecordSubmission(submissionInvalid)
		return nil, err
	}

	reg := &models.Registration{
		FullName:  value.FullName,
		Phone:     value.Phone,
		CourseID:  value.CourseID,
		LevelID:   value.LevelID,
		Notes:     value.Notes,
		Status:    models.RegistrationStatusPending,
		CreatedAt: s.now(),
	}
	created, err := s.repo.Create(ctx, reg)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrValidation) {
			s.metrics.RecordSubmission(submissionRejected)
			return nil, err
		}
		s.metrics.RecordSubmission(submissionFailed)
		s.logger.Warn("registration submission failed", zap.String("course_id", value.CourseID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrSubmissionFailed.Code, appErrors.ErrSubmissionFailed.Status, appErrors.ErrSubmissionFailed.Message)
	}

	s.metrics.RecordSubmission(submissionAccepted)
	s.invalidate(ctx)
	s.logger.Info("registration submitted", zap.String("id", created.ID), zap.String("course_id", created.CourseID))

	return &dto.SubmissionResult{
		Registration: created,
		Form:         dto.RegistrationForm{CourseID: value.CourseID},
		Redirect:     "/",
		Notice:       submittedNotice,
	}, nil
}

// ensureCourseOpen rejects registrations for completed courses. An unknown course is a
// field error; a backend failure is left for the backend to judge on POST.
func (s *RegistrationService) ensureCourseOpen(ctx context.Context, courseID string) error {
	if s.courses == nil {
		return nil
	}
	course, err := s.courses.Get(ctx, courseID)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrNotFound) {
			return appErrors.Validation("invalid registration", map[string]string{"courseId": "course does not exist"})
		}
		s.logger.Warn("course lookup failed", zap.String("course_id", courseID), zap.Error(err))
		return nil
	}
	if course.Status != "" && !course.Status.OpenForRegistration() {
		closed := appErrors.Clone(appErrors.ErrCourseClosed, "")
		closed.Fields = map[string]string{"courseId": "course is not open for registration"}
		return closed
	}
	return nil
}

func (s *RegistrationService) acquire(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[key]; busy {
		return false
	}
	s.inFlight[key] = struct{}{}
	return true
}

func (s *RegistrationService) release(key string) {
	s.mu.Lock()
	delete(s.inFlight, key)
	s.mu.Unlock()
}

// Fetch loads one page of registrations from the backend.
func (s *RegistrationService) Fetch(ctx context.Context, params query.Params) (query.Result[models.Registration], error) {
	page, err := s.repo.List(ctx, params)
	if err != nil {
		return query.Result[models.Registration]{}, backendError(err, "failed to list registrations")
	}
	return resultFromPage(page), nil
}

// List returns one page of registrations for the admin screen.
func (s *RegistrationService) List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, *models.Pagination, error) {
	params := s.cfg.List.normalize(filter.Params())
	res, hit, err := query.Load(ctx, s.cache, QueryRegistrations, params, s.Fetch)
	switch {
	case err != nil:
		s.metrics.ObserveQuery(QueryRegistrations, query.OutcomeError)
		return nil, nil, err
	case hit:
		s.metrics.ObserveQuery(QueryRegistrations, query.OutcomeHit)
	default:
		s.metrics.ObserveQuery(QueryRegistrations, query.OutcomeMiss)
	}
	return res.Items, paginationFor(res, params), nil
}

// Delete removes a registration.
func (s *RegistrationService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound(err, "registration not found")
	}
	s.invalidate(ctx)
	return nil
}

func (s *RegistrationService) invalidate(ctx context.Context) {
	if s.invalidator != nil {
		s.invalidator.InvalidateQueries(ctx, QueryRegistrations)
		return
	}
	s.cache.Invalidate(QueryRegistrations)
}

func normalizeRegistration(form dto.RegistrationForm) dto.RegistrationForm {
	form.FullName = strings.TrimSpace(form.FullName)
	form.Phone = strings.TrimSpace(form.Phone)
	form.CourseID = strings.TrimSpace(form.CourseID)
	form.LevelID = strings.TrimSpace(form.LevelID)
	form.Notes = strings.TrimSpace(form.Notes)
	return form
}
