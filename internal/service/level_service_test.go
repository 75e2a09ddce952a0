package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-portal/internal/dto"
	"github.com/noah-isme/academy-portal/internal/models"
	appErrors "github.com/noah-isme/academy-portal/pkg/errors"
)

type mockNamedRepo[T any] struct {
	items     []T
	listCalls int
	lastBody  interface{}
	err       error
	build     func(id, name string) T
}

func (m *mockNamedRepo[T]) List(ctx context.Context) ([]T, error) {
	m.listCalls++
	return m.items, m.err
}

func (m *mockNamedRepo[T]) Create(ctx context.Context, body interface{}) (*T, error) {
	m.lastBody = body
	if m.err != nil {
		return nil, m.err
	}
	item := m.build("new", body.(dto.NamedRequest).Name)
	return &item, nil
}

func (m *mockNamedRepo[T]) Update(ctx context.Context, id string, body interface{}) (*T, error) {
	m.lastBody = body
	if m.err != nil {
		return nil, m.err
	}
	item := m.build(id, body.(dto.NamedRequest).Name)
	return &item, nil
}

func (m *mockNamedRepo[T]) Delete(ctx context.Context, id string) error {
	return m.err
}

func levelRepo(levels ...models.Level) *mockNamedRepo[models.Level] {
	return &mockNamedRepo[models.Level]{
		items: levels,
		build: func(id, name string) models.Level { return models.Level{ID: id, Name: name} },
	}
}

func TestLevelServiceListCachesInRedis(t *testing.T) {
	repo := levelRepo(models.Level{ID: "l1", Name: "Beginner"})
	cacheRepo := newMemoryCacheRepo()
	svc := NewLevelService(repo, NewCacheService(cacheRepo, nil, time.Minute, nil, true), nil, nil)

	levels, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, levels, 1)

	levels, err = svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Beginner", levels[0].Name)
	assert.Equal(t, 1, repo.listCalls)
}

func TestLevelServiceListWithoutCache(t *testing.T) {
	repo := levelRepo()
	svc := NewLevelService(repo, nil, nil, nil)

	levels, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, levels)
	assert.Empty(t, levels)
}

func TestLevelServiceCreateTrimsAndInvalidates(t *testing.T) {
	repo := levelRepo()
	cacheRepo := newMemoryCacheRepo()
	svc := NewLevelService(repo, NewCacheService(cacheRepo, nil, time.Minute, nil, true), nil, nil)

	level, err := svc.Create(context.Background(), dto.NamedRequest{Name: "  Advanced "})
	require.NoError(t, err)
	assert.Equal(t, "Advanced", level.Name)
	assert.Equal(t, []string{cacheKeyLevels}, cacheRepo.deleted)

	_, err = svc.Create(context.Background(), dto.NamedRequest{Name: "  "})
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Fields, "name")
}

func TestSubjectServiceDeleteInUse(t *testing.T) {
	repo := &mockNamedRepo[models.Subject]{err: appErrors.ErrConflict}
	svc := NewSubjectService(repo, nil, nil, nil)

	err := svc.Delete(context.Background(), "s1")
	require.Error(t, err)
	assert.Equal(t, "subject is still in use", appErrors.FromError(err).Message)

	repo.err = appErrors.ErrNotFound
	err = svc.Delete(context.Background(), "s1")
	assert.Equal(t, "subject not found", appErrors.FromError(err).Message)
}
