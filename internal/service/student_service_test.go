package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-portal/internal/models"
	appErrors "github.com/noah-isme/academy-portal/pkg/errors"
	"github.com/noah-isme/academy-portal/pkg/query"
)

type mockStudentRepo struct {
	students   []models.Student
	total      int
	lastParams query.Params
	deleted    []string
	err        error
}

func (m *mockStudentRepo) List(ctx context.Context, params query.Params) (models.Page[models.Student], error) {
	m.lastParams = params
	if m.err != nil {
		return models.Page[models.Student]{}, m.err
	}
	return models.Page[models.Student]{
		Items:      m.students,
		Pagination: models.Pagination{CurrentPage: params.Page, TotalCount: m.total, TotalPages: 1},
	}, nil
}

func (m *mockStudentRepo) Delete(ctx context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func TestStudentServiceList(t *testing.T) {
	repo := &mockStudentRepo{students: []models.Student{{ID: "s1", Name: "Rui"}}, total: 1}
	svc := NewStudentService(repo, ListConfig{DefaultPageSize: 10}, query.NewCache(time.Minute), nil)

	items, pagination, err := svc.List(context.Background(), models.StudentFilter{Search: "rui", Level: "all"})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, "rui", repo.lastParams.Values().Get("search"))
	assert.False(t, repo.lastParams.Values().Has("level"))
}

func TestStudentServiceCount(t *testing.T) {
	repo := &mockStudentRepo{total: 42}
	svc := NewStudentService(repo, ListConfig{}, nil, nil)

	count, err := svc.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, count)
	assert.Equal(t, 1, repo.lastParams.PageSize)
}

func TestStudentServiceDelete(t *testing.T) {
	repo := &mockStudentRepo{}
	cache := query.NewCache(time.Minute)
	svc := NewStudentService(repo, ListConfig{}, cache, nil)

	_, _, err := svc.List(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, cache.Len())

	require.NoError(t, svc.Delete(context.Background(), "s1"))
	assert.Equal(t, []string{"s1"}, repo.deleted)
	assert.Zero(t, cache.Len())

	failing := NewStudentService(&mockStudentRepo{err: appErrors.ErrNotFound}, ListConfig{}, nil, nil)
	err = failing.Delete(context.Background(), "missing")
	assert.Equal(t, "student not found", appErrors.FromError(err).Message)
}
