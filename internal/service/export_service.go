package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-portal/internal/models"
	appErrors "github.com/noah-isme/academy-portal/pkg/errors"
	"github.com/noah-isme/academy-portal/pkg/export"
	"github.com/noah-isme/academy-portal/pkg/query"
)

type registrationFetcher interface {
	Fetch(ctx context.Context, params query.Params) (query.Result[models.Registration], error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	PageSize int
	MaxRows  int
}

// ExportResult is a rendered file ready to stream.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
	Rows        int
}

// ExportService renders registration lists as CSV or PDF.
type ExportService struct {
	registrations registrationFetcher
	renderers     map[export.Format]export.Renderer
	logger        *zap.Logger
	cfg           ExportConfig
	now           func() time.Time
}

var registrationColumns = []export.Column{
	{Key: "createdAt", Header: "Submitted", Width: 1.4},
	{Key: "fullName", Header: "Full name", Width: 2},
	{Key: "phone", Header: "Phone", Width: 1.2},
	{Key: "course", Header: "Course", Width: 2},
	{Key: "level", Header: "Level", Width: 1},
	{Key: "status", Header: "Status", Width: 1},
	{Key: "notes", Header: "Notes", Width: 2.4},
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(registrations registrationFetcher, cfg ExportConfig, logger *zap.Logger, renderers map[export.Format]export.Renderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 10000
	}
	if renderers == nil {
		renderers = map[export.Format]export.Renderer{}
	}
	for _, f := range []export.Format{export.FormatCSV, export.FormatPDF} {
		if renderers[f] == nil {
			renderers[f] = export.RendererFor(f)
		}
	}
	return &ExportService{
		registrations: registrations,
		renderers:     renderers,
		logger:        logger,
		cfg:           cfg,
		now:           time.Now,
	}
}

// Registrations renders every registration matching filter. Pages are walked until the
// backend reports the last one or MaxRows is reached.
func (s *ExportService) Registrations(ctx context.Context, filter models.RegistrationFilter, rawFormat string) (*ExportResult, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.Validation("invalid export request", map[string]string{"format": "must be csv or pdf"})
	}

	params := filter.Params()
	params.PageSize = s.cfg.PageSize
	params = params.Normalize(s.cfg.PageSize)

	table := export.Table{Title: "Course registrations", Columns: registrationColumns}
	for page := 1; ; page++ {
		params.Page = page
		res, err := s.registrations.Fetch(ctx, params)
		if err != nil {
			return nil, err
		}
		for _, reg := range res.Items {
			table.Rows = append(table.Rows, registrationRow(reg))
		}
		if len(table.Rows) >= s.cfg.MaxRows {
			table.Rows = table.Rows[:s.cfg.MaxRows]
			s.logger.Warn("registration export truncated", zap.Int("max_rows", s.cfg.MaxRows))
			break
		}
		if len(res.Items) == 0 || page >= res.TotalPages {
			break
		}
	}

	data, err := s.renderers[format].Render(table)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	return &ExportResult{
		Filename:    s.filename("registrations", format),
		ContentType: format.ContentType(),
		Data:        data,
		Rows:        len(table.Rows),
	}, nil
}

func (s *ExportService) filename(prefix string, format export.Format) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s_%s.%s", sanitizeFilename(prefix), timestamp, format)
}

func registrationRow(reg models.Registration) map[string]string {
	row := map[string]string{
		"fullName": reg.FullName,
		"phone":    reg.Phone,
		"course":   reg.CourseID,
		"level":    reg.LevelID,
		"status":   string(reg.Status),
		"notes":    reg.Notes,
	}
	if !reg.CreatedAt.IsZero() {
		row["createdAt"] = reg.CreatedAt.Format("2006-01-02 15:04")
	}
	if reg.Course != nil && reg.Course.Title != "" {
		row["course"] = reg.Course.Title
	}
	if reg.Level != nil && reg.Level.Name != "" {
		row["level"] = reg.Level.Name
	}
	return row
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
