package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-portal/internal/models"
	appErrors "github.com/noah-isme/academy-portal/pkg/errors"
	"github.com/noah-isme/academy-portal/pkg/query"
	"github.com/noah-isme/academy-portal/pkg/upstream"
)

type mockCourseRepo struct {
	mu         sync.Mutex
	courses    map[string]models.Course
	listCalls  int
	lastParams query.Params
	lastForm   upstream.Multipart
	deleted    []string
	listErr    error
	createErr  error
}

func (m *mockCourseRepo) List(ctx context.Context, params query.Params) (models.Page[models.Course], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	m.lastParams = params
	if m.listErr != nil {
		return models.Page[models.Course]{}, m.listErr
	}
	items := make([]models.Course, 0, len(m.courses))
	for _, c := range m.courses {
		items = append(items, c)
	}
	return models.Page[models.Course]{
		Items:      items,
		Pagination: models.Pagination{CurrentPage: params.Page, TotalCount: len(items), TotalPages: 3},
	}, nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, appErrors.ErrNotFound
}

func (m *mockCourseRepo) Create(ctx context.Context, form upstream.Multipart) (*models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastForm = form
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.Course{ID: "new", Title: form.Fields[0].Value}, nil
}

func (m *mockCourseRepo) Update(ctx context.Context, id string, form upstream.Multipart) (*models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastForm = form
	if _, ok := m.courses[id]; !ok {
		return nil, appErrors.ErrNotFound
	}
	return &models.Course{ID: id}, nil
}

func (m *mockCourseRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	return nil
}

type recordingInvalidator struct {
	mu    sync.Mutex
	names []string
}

func (r *recordingInvalidator) InvalidateQueries(ctx context.Context, name string) {
	r.mu.Lock()
	r.names = append(r.names, name)
	r.mu.Unlock()
}

type stubOptions struct {
	err error
}

func (s stubOptions) Subjects(ctx context.Context) ([]models.Subject, error) {
	return []models.Subject{{ID: "s1", Name: "Math"}}, nil
}

func (s stubOptions) Levels(ctx context.Context) ([]models.Level, error) {
	return []models.Level{{ID: "l1", Name: "Beginner"}}, s.err
}

func (s stubOptions) TeacherOptions(ctx context.Context) ([]models.TeacherOption, error) {
	return []models.TeacherOption{{ID: "t1", Name: "Ana"}}, nil
}

func newCourseService(repo *mockCourseRepo, deps CourseServiceDeps) *CourseService {
	if deps.Cache == nil {
		deps.Cache = query.NewCache(time.Minute)
	}
	return NewCourseService(repo, ListConfig{DefaultPageSize: 2, MaxPageSize: 20}, deps)
}

func TestCourseServiceListUsesCache(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]models.Course{"c1": {ID: "c1", Title: "Go"}}}
	svc := newCourseService(repo, CourseServiceDeps{})

	items, pagination, hit, err := svc.List(context.Background(), models.CourseFilter{Search: "go", Status: "ACTIVE"})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, pagination.CurrentPage)
	assert.Equal(t, 2, pagination.PageSize)
	assert.Equal(t, 3, pagination.TotalPages)

	_, _, hit, err = svc.List(context.Background(), models.CourseFilter{Search: "go", Status: "ACTIVE"})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, repo.listCalls)
}

func TestCourseServiceListAllSharesKeyWithEmpty(t *testing.T) {
	repo := &mockCourseRepo{}
	svc := newCourseService(repo, CourseServiceDeps{})

	_, _, _, err := svc.List(context.Background(), models.CourseFilter{Level: "all", Subject: "all"})
	require.NoError(t, err)
	assert.Empty(t, repo.lastParams.Values().Get("level"))
	assert.Empty(t, repo.lastParams.Values().Get("subject"))

	_, _, hit, err := svc.List(context.Background(), models.CourseFilter{})
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestCourseServiceListRejectsUnknownStatus(t *testing.T) {
	svc := newCourseService(&mockCourseRepo{}, CourseServiceDeps{})

	_, _, _, err := svc.List(context.Background(), models.CourseFilter{Status: "ARCHIVED"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Fields, "status")
}

func TestCourseServiceListPropagatesBackendError(t *testing.T) {
	repo := &mockCourseRepo{listErr: appErrors.ErrUpstreamUnavailable}
	svc := newCourseService(repo, CourseServiceDeps{})

	_, _, _, err := svc.List(context.Background(), models.CourseFilter{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUpstreamUnavailable))
}

func TestCourseServiceGetNotFound(t *testing.T) {
	svc := newCourseService(&mockCourseRepo{}, CourseServiceDeps{})

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, "course not found", appErrors.FromError(err).Message)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestCourseServiceCreateBuildsMultipartAndInvalidates(t *testing.T) {
	repo := &mockCourseRepo{}
	inv := &recordingInvalidator{}
	svc := newCourseService(repo, CourseServiceDeps{Invalidator: inv})

	course, err := svc.Create(context.Background(), CourseRequest{
		Title:      "  Algebra ",
		SubjectID:  "s1",
		LevelID:    "l1",
		Status:     "ACTIVE",
		Price:      "150",
		TeacherIDs: []string{"t1", "t2"},
		Image:      &upstream.File{FileName: "a.png", ContentType: "image/png", Data: []byte{1}},
	})
	require.NoError(t, err)
	assert.Equal(t, "new", course.ID)

	fields := map[string]string{}
	for _, f := range repo.lastForm.Fields {
		fields[f.Name] = f.Value
	}
	assert.Equal(t, "Algebra", fields["title"])
	assert.Equal(t, `["t1","t2"]`, fields["teacherIds"])
	require.NotNil(t, repo.lastForm.File)
	assert.Equal(t, "image", repo.lastForm.File.FieldName)
	assert.Equal(t, []string{QueryCourses}, inv.names)
}

func TestCourseServiceCreateValidation(t *testing.T) {
	repo := &mockCourseRepo{}
	svc := newCourseService(repo, CourseServiceDeps{})

	_, err := svc.Create(context.Background(), CourseRequest{Title: " ", Status: "DONE", Price: "abc"})
	require.Error(t, err)
	fields := appErrors.FromError(err).Fields
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "status")
	assert.Contains(t, fields, "price")
	assert.Contains(t, fields, "subjectId")
	assert.Empty(t, repo.lastForm.Fields)
}

func TestCourseServiceMutationDropsCachedPages(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]models.Course{"c1": {ID: "c1"}}}
	cache := query.NewCache(time.Minute)
	svc := newCourseService(repo, CourseServiceDeps{Cache: cache})

	_, _, _, err := svc.List(context.Background(), models.CourseFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, cache.Len())

	require.NoError(t, svc.Delete(context.Background(), "c1"))
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, []string{"c1"}, repo.deleted)
}

func TestCourseServiceFormOptions(t *testing.T) {
	svc := newCourseService(&mockCourseRepo{}, CourseServiceDeps{Options: stubOptions{}})

	opts, err := svc.FormOptions(context.Background())
	require.NoError(t, err)
	assert.Len(t, opts.Subjects, 1)
	assert.Len(t, opts.Levels, 1)
	assert.Len(t, opts.Teachers, 1)
	assert.Equal(t, models.CourseStatuses, opts.Statuses)

	failing := newCourseService(&mockCourseRepo{}, CourseServiceDeps{Options: stubOptions{err: errors.New("boom")}})
	_, err = failing.FormOptions(context.Background())
	require.Error(t, err)
}
