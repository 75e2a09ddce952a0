package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-portal/internal/models"
	appErrors "github.com/noah-isme/academy-portal/pkg/errors"
	"github.com/noah-isme/academy-portal/pkg/export"
	"github.com/noah-isme/academy-portal/pkg/query"
)

type captureRenderer struct {
	table export.Table
}

func (r *captureRenderer) Render(t export.Table) ([]byte, error) {
	r.table = t
	return []byte("rendered"), nil
}

func pagedRegistrations(total, pageSize int) fetchFunc[models.Registration] {
	return func(ctx context.Context, params query.Params) (query.Result[models.Registration], error) {
		pages := (total + pageSize - 1) / pageSize
		var items []models.Registration
		for i := (params.Page - 1) * pageSize; i < total && i < params.Page*pageSize; i++ {
			items = append(items, models.Registration{ID: string(rune('a' + i)), FullName: "Student", Status: models.RegistrationStatusPending})
		}
		return query.Result[models.Registration]{Items: items, TotalCount: total, TotalPages: pages}, nil
	}
}

func TestExportServiceRegistrationsWalksPages(t *testing.T) {
	renderer := &captureRenderer{}
	svc := NewExportService(pagedRegistrations(5, 2), ExportConfig{PageSize: 2}, nil, map[export.Format]export.Renderer{export.FormatCSV: renderer})
	svc.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	res, err := svc.Registrations(context.Background(), models.RegistrationFilter{}, "csv")
	require.NoError(t, err)
	assert.Equal(t, 5, res.Rows)
	assert.Len(t, renderer.table.Rows, 5)
	assert.Equal(t, "registrations_20260102_030405.csv", res.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", res.ContentType)
	assert.Equal(t, "PENDING", renderer.table.Rows[0]["status"])
}

func TestExportServiceRegistrationsTruncates(t *testing.T) {
	renderer := &captureRenderer{}
	svc := NewExportService(pagedRegistrations(9, 2), ExportConfig{PageSize: 2, MaxRows: 3}, nil, map[export.Format]export.Renderer{export.FormatPDF: renderer})

	res, err := svc.Registrations(context.Background(), models.RegistrationFilter{}, "PDF")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)
	assert.True(t, strings.HasSuffix(res.Filename, ".pdf"))
	assert.Equal(t, "application/pdf", res.ContentType)
}

func TestExportServiceRejectsFormat(t *testing.T) {
	svc := NewExportService(pagedRegistrations(1, 1), ExportConfig{}, nil, nil)
	_, err := svc.Registrations(context.Background(), models.RegistrationFilter{}, "xlsx")
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Fields, "format")
}

func TestRegistrationRowPrefersNames(t *testing.T) {
	row := registrationRow(models.Registration{
		CourseID: "c1",
		LevelID:  "l1",
		Course:   &models.Course{Title: "Algebra"},
		Level:    &models.Level{Name: "Beginner"},
	})
	assert.Equal(t, "Algebra", row["course"])
	assert.Equal(t, "Beginner", row["level"])
	assert.Empty(t, row["createdAt"])
}
