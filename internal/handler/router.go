package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-portal/internal/middleware"
	"github.com/noah-isme/academy-portal/internal/models"
	"github.com/noah-isme/academy-portal/pkg/config"
	"github.com/noah-isme/academy-portal/pkg/logger"
	corsmiddleware "github.com/noah-isme/academy-portal/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/academy-portal/pkg/middleware/requestid"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Courses       *CourseHandler
	Teachers      *TeacherHandler
	Levels        *ReferenceHandler[models.Level]
	Subjects      *ReferenceHandler[models.Subject]
	Registrations *RegistrationHandler
	Students      *StudentHandler
	Dashboard     *DashboardHandler
	Browse        *BrowseHandler
	AdminBrowse   *BrowseHandler
	Audit         *AuditHandler
	Metrics       *MetricsHandler
}

// RouterDeps carries the cross-cutting collaborators of the router.
type RouterDeps struct {
	Config      *config.Config
	Logger      *zap.Logger
	Metrics     middleware.HTTPObserver
	Audit       middleware.AuditRecorder
	RateLimiter *middleware.RateLimiter
}

// NewRouter builds the gin engine with public, admin and ops routes.
func NewRouter(deps RouterDeps, h Handlers) *gin.Engine {
	cfg := deps.Config
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta(), middleware.ForwardCredentials())

	api.GET("/courses", h.Courses.List)
	api.GET("/courses/:id", h.Courses.Get)
	api.GET("/teachers", h.Teachers.List)
	api.GET("/teachers/:id", h.Teachers.Get)
	api.GET("/levels", h.Levels.List)
	api.GET("/subjects", h.Subjects.List)
	api.POST("/registrations/validate", h.Registrations.Validate)
	api.POST("/registrations", deps.RateLimiter.Middleware(), h.Registrations.Submit)

	mountBrowse(api.Group("/browse/sessions"), h.Browse)

	admin := api.Group("/admin")
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(deps.Audit, action, resource)
	}

	if h.AdminBrowse != nil {
		mountBrowse(admin.Group("/browse/sessions"), h.AdminBrowse)
	}
	admin.GET("/dashboard", h.Dashboard.Admin)
	admin.GET("/audit-logs", h.Audit.List)

	courses := admin.Group("/courses")
	courses.GET("/options", h.Courses.Options)
	courses.POST("", audit(models.AuditActionCreate, "courses"), h.Courses.Create)
	courses.PATCH("/:id", audit(models.AuditActionUpdate, "courses"), h.Courses.Update)
	courses.DELETE("/:id", audit(models.AuditActionDelete, "courses"), h.Courses.Delete)

	teachers := admin.Group("/teachers")
	teachers.GET("/name-id", h.Teachers.Options)
	teachers.POST("", audit(models.AuditActionCreate, "teachers"), h.Teachers.Create)
	teachers.PATCH("/:id", audit(models.AuditActionUpdate, "teachers"), h.Teachers.Update)
	teachers.DELETE("/:id", audit(models.AuditActionDelete, "teachers"), h.Teachers.Delete)

	levels := admin.Group("/levels")
	levels.POST("", audit(models.AuditActionCreate, "levels"), h.Levels.Create)
	levels.PATCH("/:id", audit(models.AuditActionUpdate, "levels"), h.Levels.Update)
	levels.DELETE("/:id", audit(models.AuditActionDelete, "levels"), h.Levels.Delete)

	subjects := admin.Group("/subjects")
	subjects.POST("", audit(models.AuditActionCreate, "subjects"), h.Subjects.Create)
	subjects.PATCH("/:id", audit(models.AuditActionUpdate, "subjects"), h.Subjects.Update)
	subjects.DELETE("/:id", audit(models.AuditActionDelete, "subjects"), h.Subjects.Delete)

	registrations := admin.Group("/registrations")
	registrations.GET("", h.Registrations.List)
	registrations.GET("/export", audit(models.AuditActionExport, "registrations"), h.Registrations.Export)
	registrations.DELETE("/:id", audit(models.AuditActionDelete, "registrations"), h.Registrations.Delete)

	students := admin.Group("/students")
	students.GET("", h.Students.List)
	students.DELETE("/:id", audit(models.AuditActionDelete, "students"), h.Students.Delete)

	return r
}

func mountBrowse(g *gin.RouterGroup, b *BrowseHandler) {
	g.POST("", b.Create)
	g.GET("/:id", b.View)
	g.PUT("/:id/search", b.Search)
	g.PUT("/:id/filters/:dimension", b.Filter)
	g.PUT("/:id/page", b.Page)
	g.POST("/:id/refresh", b.Refresh)
	g.GET("/:id/events", b.Events)
	g.DELETE("/:id", b.Close)
}
