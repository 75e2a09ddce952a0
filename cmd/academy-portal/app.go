package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-portal/internal/handler"
	"github.com/noah-isme/academy-portal/internal/models"
	"github.com/noah-isme/academy-portal/internal/repository"
	"github.com/noah-isme/academy-portal/internal/service"
	"github.com/noah-isme/academy-portal/pkg/cache"
	"github.com/noah-isme/academy-portal/pkg/config"
	"github.com/noah-isme/academy-portal/pkg/database"
	"github.com/noah-isme/academy-portal/pkg/export"
	"github.com/noah-isme/academy-portal/pkg/query"
	"github.com/noah-isme/academy-portal/pkg/tracing"
	"github.com/noah-isme/academy-portal/pkg/upstream"
)

// app holds every wired service. Redis and Postgres are optional.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	tracing   *tracing.Provider
	redis     *redis.Client
	db        *sqlx.DB
	auditRepo *repository.AuditRepository

	metrics       *service.MetricsService
	queries       *query.Cache
	courses       *service.CourseService
	teachers      *service.TeacherService
	levels        *service.LevelService
	subjects      *service.SubjectService
	students      *service.StudentService
	registrations *service.RegistrationService
	exports       *service.ExportService
	dashboard     *service.DashboardService
	browse        *service.BrowseService
	audit         *service.AuditService
}

func newApp(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logr, metrics: service.NewMetricsService()}

	tp, err := tracing.NewProvider(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.tracing = tp

	client := upstream.New(upstream.Options{
		BaseURL: cfg.Upstream.BaseURL,
		Timeout: cfg.Upstream.Timeout,
		Tracer:  tp.Tracer(),
		Metrics: a.metrics,
		Logger:  logr,
	})

	var cacheRepo service.CacheRepository
	if cfg.Reference.Enabled {
		rdb, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, reference cache disabled", zap.Error(err))
		} else {
			a.redis = rdb
			cacheRepo = repository.NewCacheRepository(rdb, "academy-portal", logr)
		}
	}
	refCache := service.NewCacheService(cacheRepo, a.metrics, cfg.Reference.TTL, logr, cfg.Reference.Enabled)

	list := service.ListConfig{DefaultPageSize: cfg.Browse.DefaultPageSize, MaxPageSize: cfg.Browse.MaxPageSize}
	validate := service.NewValidator()
	a.queries = query.NewCache(cfg.Browse.QueryCacheTTL, query.WithScope(upstream.CredentialScope))

	a.levels = service.NewLevelService(repository.NewLevelRepository(client), refCache, validate, logr)
	a.subjects = service.NewSubjectService(repository.NewSubjectRepository(client), refCache, validate, logr)
	a.teachers = service.NewTeacherService(repository.NewTeacherRepository(client), list, a.queries, refCache, a.metrics, validate, logr)
	a.courses = service.NewCourseService(repository.NewCourseRepository(client), list, service.CourseServiceDeps{
		Cache:     a.queries,
		Options:   service.ReferenceOptions{LevelService: a.levels, SubjectService: a.subjects, TeacherService: a.teachers},
		Metrics:   a.metrics,
		Validator: validate,
		Logger:    logr,
	})
	a.students = service.NewStudentService(repository.NewStudentRepository(client), list, a.queries, logr)
	a.registrations = service.NewRegistrationService(
		repository.NewRegistrationRepository(client),
		a.courses,
		service.RegistrationConfig{RequireLevel: cfg.Registration.RequireLevel, List: list},
		a.queries, a.metrics, validate, logr,
	)
	a.exports = service.NewExportService(a.registrations, service.ExportConfig{}, logr, map[export.Format]export.Renderer{
		export.FormatCSV: export.NewCSVRenderer(),
		export.FormatPDF: export.NewPDFRenderer(),
	})
	a.dashboard = service.NewDashboardService(service.DashboardServiceParams{
		Courses:       a.courses,
		Teachers:      a.teachers,
		Students:      a.students,
		Registrations: a.registrations,
		Logger:        logr,
	})
	a.browse = service.NewBrowseService(service.BrowseFetchers{
		Courses:       a.courses.Fetch,
		Teachers:      a.teachers.Fetch,
		Registrations: a.registrations.Fetch,
		Students:      a.students.Fetch,
	}, a.queries, service.BrowseConfig{
		SearchDebounce: cfg.Browse.SearchDebounce,
		SessionTTL:     cfg.Browse.SessionTTL,
		List:           list,
	}, a.metrics, logr)

	a.courses.SetInvalidator(a.browse)
	a.teachers.SetInvalidator(a.browse)
	a.students.SetInvalidator(a.browse)
	a.registrations.SetInvalidator(a.browse)

	if cfg.Audit.Enabled {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logr.Warn("postgres unavailable, audit trail disabled", zap.Error(err))
		} else {
			auditRepo := repository.NewAuditRepository(db)
			if err := auditRepo.EnsureSchema(ctx); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("prepare audit schema: %w", err)
			}
			a.db, a.auditRepo = db, auditRepo
			a.audit = service.NewAuditService(auditRepo, service.AuditConfig{Workers: cfg.Audit.Workers}, a.metrics, logr)
		}
	}

	return a, nil
}

func (a *app) readinessChecks() []handler.ReadinessCheck {
	var checks []handler.ReadinessCheck
	if a.redis != nil {
		checks = append(checks, handler.ReadinessCheck{Name: "redis", Check: func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		}})
	}
	if a.auditRepo != nil {
		checks = append(checks, handler.ReadinessCheck{Name: "postgres", Check: a.auditRepo.Ping})
	}
	return checks
}

func (a *app) handlers() handler.Handlers {
	return handler.Handlers{
		Courses:       handler.NewCourseHandler(a.courses),
		Teachers:      handler.NewTeacherHandler(a.teachers),
		Levels:        handler.NewReferenceHandler[models.Level](a.levels),
		Subjects:      handler.NewReferenceHandler[models.Subject](a.subjects),
		Registrations: handler.NewRegistrationHandler(a.registrations, a.exports),
		Students:      handler.NewStudentHandler(a.students),
		Dashboard:     handler.NewDashboardHandler(a.dashboard),
		Browse:        handler.NewBrowseHandler(a.browse.Restrict(service.QueryCourses, service.QueryTeachers)),
		AdminBrowse:   handler.NewBrowseHandler(a.browse),
		Audit:         handler.NewAuditHandler(a.audit),
		Metrics:       handler.NewMetricsHandler(a.metrics, a.readinessChecks()...),
	}
}

func (a *app) close(ctx context.Context) {
	a.browse.Shutdown()
	a.audit.Stop()
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if err := a.tracing.Shutdown(ctx); err != nil {
		a.logger.Warn("tracing shutdown failed", zap.Error(err))
	}
}
