package service

import (
	"context"
	"encoding/json"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-portal/internal/models"
	appErrors "github.com/noah-isme/academy-portal/pkg/errors"
	"github.com/noah-isme/academy-portal/pkg/query"
	"github.com/noah-isme/academy-portal/pkg/upstream"
)

type mockTeacherRepo struct {
	teachers    map[string]models.Teacher
	optionCalls int
	lastBody    interface{}
	lastParams  query.Params
	deleteErr   error
	listErr     error
}

func (m *mockTeacherRepo) List(ctx context.Context, params query.Params) (models.Page[models.Teacher], error) {
	m.lastParams = params
	if m.listErr != nil {
		return models.Page[models.Teacher]{}, m.listErr
	}
	items := []models.Teacher{}
	for _, t := range m.teachers {
		items = append(items, t)
	}
	return models.Page[models.Teacher]{Items: items, Pagination: models.Pagination{CurrentPage: 1, TotalCount: len(items), TotalPages: 1}}, nil
}

func (m *mockTeacherRepo) Options(ctx context.Context) ([]models.TeacherOption, error) {
	m.optionCalls++
	out := []models.TeacherOption{}
	for id, t := range m.teachers {
		out = append(out, models.TeacherOption{ID: id, Name: t.Name})
	}
	return out, nil
}

func (m *mockTeacherRepo) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if t, ok := m.teachers[id]; ok {
		return &t, nil
	}
	return nil, appErrors.ErrNotFound
}

func (m *mockTeacherRepo) Create(ctx context.Context, body interface{}) (*models.Teacher, error) {
	m.lastBody = body
	return &models.Teacher{ID: "t-new"}, nil
}

func (m *mockTeacherRepo) Update(ctx context.Context, id string, body interface{}) (*models.Teacher, error) {
	m.lastBody = body
	if _, ok := m.teachers[id]; !ok {
		return nil, appErrors.ErrNotFound
	}
	return &models.Teacher{ID: id}, nil
}

func (m *mockTeacherRepo) Delete(ctx context.Context, id string) error {
	return m.deleteErr
}

// memoryCacheRepo is an in-memory CacheRepository storing JSON like Redis does.
type memoryCacheRepo struct {
	items   map[string][]byte
	deleted []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deleted = append(m.deleted, pattern)
	for key := range m.items {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.items, key)
		}
	}
	return nil
}

func newTeacherService(repo *mockTeacherRepo, refCache *CacheService) *TeacherService {
	return NewTeacherService(repo, ListConfig{DefaultPageSize: 6}, query.NewCache(time.Minute), refCache, nil, nil, nil)
}

func TestTeacherServiceListPassesSubjectFilter(t *testing.T) {
	repo := &mockTeacherRepo{teachers: map[string]models.Teacher{"t1": {ID: "t1", Name: "Ana"}}}
	svc := newTeacherService(repo, nil)

	items, pagination, hit, err := svc.List(context.Background(), models.TeacherFilter{Subject: "math", Page: 1})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, items, 1)
	assert.Equal(t, 6, pagination.PageSize)
	assert.Equal(t, "math", repo.lastParams.Values().Get("subject"))
}

func TestTeacherServiceOptionsCached(t *testing.T) {
	repo := &mockTeacherRepo{teachers: map[string]models.Teacher{"t1": {ID: "t1", Name: "Ana"}}}
	cacheRepo := newMemoryCacheRepo()
	svc := newTeacherService(repo, NewCacheService(cacheRepo, nil, time.Minute, nil, true))

	first, err := svc.Options(context.Background())
	require.NoError(t, err)
	second, err := svc.Options(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.optionCalls)

	_, err = svc.Create(context.Background(), TeacherRequest{Name: "Bruno"})
	require.NoError(t, err)
	assert.Contains(t, cacheRepo.deleted, cacheKeyTeacherOptions+":*")
	assert.Empty(t, cacheRepo.items)

	_, err = svc.Options(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.optionCalls)
}

func TestTeacherServiceCreateValidation(t *testing.T) {
	repo := &mockTeacherRepo{}
	svc := newTeacherService(repo, nil)

	_, err := svc.Create(context.Background(), TeacherRequest{Name: " ", Phone: "12", Email: "nope", Experience: -1})
	require.Error(t, err)
	fields := appErrors.FromError(err).Fields
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "phone")
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "experience")
	assert.Nil(t, repo.lastBody)
}

func TestTeacherServiceMutationsInvalidateCourses(t *testing.T) {
	repo := &mockTeacherRepo{teachers: map[string]models.Teacher{"t1": {ID: "t1"}}}
	svc := newTeacherService(repo, nil)
	inv := &recordingInvalidator{}
	svc.SetInvalidator(inv)

	_, err := svc.Update(context.Background(), "t1", TeacherRequest{Name: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, []string{QueryTeachers, QueryCourses}, inv.names)

	_, err = svc.Update(context.Background(), "missing", TeacherRequest{Name: "Ana"})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestTeacherServiceDeleteConflict(t *testing.T) {
	svc := newTeacherService(&mockTeacherRepo{deleteErr: appErrors.ErrConflict}, nil)
	err := svc.Delete(context.Background(), "t1")
	require.Error(t, err)
	assert.Equal(t, "teacher is assigned to a course", appErrors.FromError(err).Message)
}

func TestTeacherServiceOptionsCachedPerCaller(t *testing.T) {
	repo := &mockTeacherRepo{teachers: map[string]models.Teacher{"t1": {ID: "t1", Name: "Ana"}}}
	cacheRepo := newMemoryCacheRepo()
	svc := newTeacherService(repo, NewCacheService(cacheRepo, nil, time.Minute, nil, true))
	admin := upstream.WithCookie(context.Background(), "session=admin")

	_, err := svc.Options(admin)
	require.NoError(t, err)
	_, err = svc.Options(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.optionCalls)
	assert.Len(t, cacheRepo.items, 2)

	_, err = svc.Options(admin)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.optionCalls)
}
