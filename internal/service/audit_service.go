package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-portal/internal/models"
	appErrors "github.com/noah-isme/academy-portal/pkg/errors"
	"github.com/noah-isme/academy-portal/pkg/jobs"
)

type auditRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
	List(ctx context.Context, resource string, limit int) ([]models.AuditLog, error)
}

// AuditConfig tunes the asynchronous audit writer.
type AuditConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
}

// AuditService records admin mutations off the request path. A nil service or repository
// turns recording into a no-op.
type AuditService struct {
	repo    auditRepository
	queue   *jobs.Queue[*models.AuditLog]
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewAuditService constructs an AuditService. Call Start before recording.
func NewAuditService(repo auditRepository, cfg AuditConfig, metrics *MetricsService, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	s := &AuditService{repo: repo, metrics: metrics, logger: logger, now: time.Now}
	s.queue = jobs.NewQueue("audit", s.write, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: 200 * time.Millisecond,
		Logger:     logger,
	})
	return s
}

// Start launches the writer workers.
func (s *AuditService) Start(ctx context.Context) {
	if s == nil || s.repo == nil {
		return
	}
	s.queue.Start(ctx)
}

// Stop flushes buffered records and stops the workers.
func (s *AuditService) Stop() {
	if s == nil || s.repo == nil {
		return
	}
	s.queue.Stop()
}

// Record enqueues an audit entry. A full queue drops the entry.
func (s *AuditService) Record(entry models.AuditLog) {
	if s == nil || s.repo == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	if err := s.queue.Enqueue(&entry); err != nil {
		s.metrics.RecordAuditDropped()
		s.logger.Warn("audit record dropped", zap.String("action", entry.Action), zap.String("resource", entry.Resource), zap.Error(err))
	}
}

// Recent returns the latest entries recorded for a resource, newest first.
func (s *AuditService) Recent(ctx context.Context, resource string, limit int) ([]models.AuditLog, error) {
	if s == nil || s.repo == nil {
		return nil, appErrors.Clone(appErrors.ErrUpstreamUnavailable, "audit trail is disabled")
	}
	resource = strings.ToLower(strings.TrimSpace(resource))
	if resource == "" {
		return nil, appErrors.Validation("invalid query parameters", map[string]string{"resource": "is required"})
	}
	logs, err := s.repo.List(ctx, resource, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit logs")
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}
	return logs, nil
}

func (s *AuditService) write(ctx context.Context, entry *models.AuditLog) error {
	return s.repo.Create(ctx, entry)
}
