package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/academy-portal/internal/dto"
	"github.com/noah-isme/academy-portal/internal/models"
	"github.com/noah-isme/academy-portal/pkg/query"
)

type courseFetcher interface {
	Fetch(ctx context.Context, params query.Params) (query.Result[models.Course], error)
}

type teacherFetcher interface {
	Fetch(ctx context.Context, params query.Params) (query.Result[models.Teacher], error)
}

type studentFetcher interface {
	Fetch(ctx context.Context, params query.Params) (query.Result[models.Student], error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	RecentRegistrations int
	TeachersShown       int
	// TodayScanPages bounds how many newest-first registration pages are read to count today's.
	TodayScanPages int
	TodayPageSize  int
}

// DashboardService composes the back-office landing page.
type DashboardService struct {
	courses       courseFetcher
	teachers      teacherFetcher
	students      studentFetcher
	registrations registrationFetcher
	logger        *zap.Logger
	now           func() time.Time
	cfg           DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Courses       courseFetcher
	Teachers      teacherFetcher
	Students      studentFetcher
	Registrations registrationFetcher
	Logger        *zap.Logger
	Config        DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.RecentRegistrations <= 0 {
		cfg.RecentRegistrations = 5
	}
	if cfg.TeachersShown <= 0 {
		cfg.TeachersShown = 4
	}
	if cfg.TodayScanPages <= 0 {
		cfg.TodayScanPages = 10
	}
	if cfg.TodayPageSize <= 0 {
		cfg.TodayPageSize = 50
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		courses:       params.Courses,
		teachers:      params.Teachers,
		students:      params.Students,
		registrations: params.Registrations,
		logger:        logger,
		now:           time.Now,
		cfg:           cfg,
	}
}

// Admin loads every stat card concurrently. Any failing source fails the whole payload.
func (s *DashboardService) Admin(ctx context.Context) (*dto.AdminDashboardResponse, error) {
	out := &dto.AdminDashboardResponse{
		RecentRegistrations: []models.Registration{},
		Teachers:            []models.Teacher{},
	}
	out.Stats.GeneratedAt = s.now().UTC()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := s.students.Fetch(gctx, query.Params{Page: 1, PageSize: 1})
		out.Stats.TotalStudents = res.TotalCount
		return err
	})
	g.Go(func() error {
		res, err := s.teachers.Fetch(gctx, query.Params{Page: 1, PageSize: s.cfg.TeachersShown})
		out.Stats.TotalTeachers = res.TotalCount
		if res.Items != nil {
			out.Teachers = res.Items
		}
		return err
	})
	g.Go(func() error {
		res, err := s.courses.Fetch(gctx, query.Params{
			Filters:  map[string]string{"status": string(models.CourseStatusActive)},
			Page:     1,
			PageSize: 1,
		})
		out.Stats.ActiveCourses = res.TotalCount
		return err
	})
	g.Go(func() error {
		recent, today, err := s.registrationsToday(gctx)
		out.RecentRegistrations = recent
		out.Stats.RegistrationsToday = today
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.Warn("dashboard composition failed", zap.Error(err))
		return nil, backendError(err, "failed to load dashboard")
	}
	return out, nil
}

// registrationsToday walks newest-first pages until it meets a registration from an earlier day.
func (s *DashboardService) registrationsToday(ctx context.Context) ([]models.Registration, int, error) {
	now := s.now()
	year, month, day := now.Date()
	startOfDay := time.Date(year, month, day, 0, 0, 0, 0, now.Location())

	recent := []models.Registration{}
	count := 0
	for page := 1; page <= s.cfg.TodayScanPages; page++ {
		res, err := s.registrations.Fetch(ctx, query.Params{Page: page, PageSize: s.cfg.TodayPageSize})
		if err != nil {
			return nil, 0, err
		}
		older := false
		for _, reg := range res.Items {
			if len(recent) < s.cfg.RecentRegistrations {
				recent = append(recent, reg)
			}
			if reg.CreatedAt.Before(startOfDay) {
				older = true
				continue
			}
			count++
		}
		if older || len(res.Items) == 0 || page >= res.TotalPages {
			break
		}
	}
	return recent, count, nil
}
