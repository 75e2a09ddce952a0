package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-portal/internal/dto"
	"github.com/noah-isme/academy-portal/internal/models"
	"github.com/noah-isme/academy-portal/pkg/debounce"
	appErrors "github.com/noah-isme/academy-portal/pkg/errors"
	"github.com/noah-isme/academy-portal/pkg/pubsub"
	"github.com/noah-isme/academy-portal/pkg/query"
	"github.com/noah-isme/academy-portal/pkg/upstream"
)

type recordingCourseFetcher struct {
	mu      sync.Mutex
	calls   []query.Params
	cookies []string
	pages   map[string]int
	holds   map[string]chan struct{}
}

func (f *recordingCourseFetcher) fetch(ctx context.Context, params query.Params) (query.Result[models.Course], error) {
	status := params.Filter("status")
	f.mu.Lock()
	f.calls = append(f.calls, params)
	f.cookies = append(f.cookies, upstream.CookieFromContext(ctx))
	pages := 3
	if n, ok := f.pages[status]; ok {
		pages = n
	}
	hold := f.holds[status]
	f.mu.Unlock()

	if hold != nil {
		<-hold
	}
	return query.Result[models.Course]{
		Items:       []models.Course{{ID: "c-" + params.Search, Status: models.CourseStatus(status)}},
		TotalCount:  pages * 2,
		TotalPages:  pages,
		CurrentPage: params.Page,
	}, nil
}

func (f *recordingCourseFetcher) setPages(status string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pages == nil {
		f.pages = map[string]int{}
	}
	f.pages[status] = n
}

// hold blocks fetches for status until the returned channel is closed.
func (f *recordingCourseFetcher) hold(status string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.holds == nil {
		f.holds = map[string]chan struct{}{}
	}
	ch := make(chan struct{})
	f.holds[status] = ch
	return ch
}

func (f *recordingCourseFetcher) snapshot() []query.Params {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]query.Params(nil), f.calls...)
}

func (f *recordingCourseFetcher) seenCookies() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cookies...)
}

func newBrowseService(t *testing.T, fetchers BrowseFetchers, clock debounce.Clock) *BrowseService {
	t.Helper()
	svc := NewBrowseService(fetchers, query.NewCache(time.Minute, query.WithScope(upstream.CredentialScope)), BrowseConfig{
		SearchDebounce: 500 * time.Millisecond,
		SessionTTL:     time.Minute,
		List:           ListConfig{DefaultPageSize: 2, MaxPageSize: 10},
		Clock:          clock,
	}, nil, nil)
	t.Cleanup(svc.Shutdown)
	return svc
}

func newBrowseFixture(t *testing.T) (*BrowseService, *recordingCourseFetcher, *debounce.ManualClock) {
	t.Helper()
	fetcher := &recordingCourseFetcher{}
	clock := debounce.NewManualClock()
	return newBrowseService(t, BrowseFetchers{Courses: fetcher.fetch}, clock), fetcher, clock
}

func waitForStatus(t *testing.T, svc *BrowseService, id string, status query.Status) *dto.BrowseView {
	t.Helper()
	return waitForStatusAs(t, context.Background(), svc, id, status)
}

func waitForStatusAs(t *testing.T, ctx context.Context, svc *BrowseService, id string, status query.Status) *dto.BrowseView {
	t.Helper()
	var view *dto.BrowseView
	require.Eventually(t, func() bool {
		v, err := svc.View(ctx, id)
		if err != nil {
			return false
		}
		view = v
		return v.Status == string(status)
	}, 2*time.Second, 5*time.Millisecond)
	return view
}

func TestBrowseCreateUsesDefaults(t *testing.T) {
	svc, fetcher, _ := newBrowseFixture(t)

	view, err := svc.Create(context.Background(), dto.CreateBrowseSessionRequest{Kind: "Courses"})
	require.NoError(t, err)
	assert.Equal(t, QueryCourses, view.Kind)
	assert.Equal(t, "ACTIVE", view.Filters["status"])
	assert.Equal(t, "all", view.Filters["level"])
	assert.Equal(t, 2, view.PageSize)

	view = waitForStatus(t, svc, view.ID, query.StatusSuccess)
	assert.Equal(t, 6, view.TotalCount)
	assert.Equal(t, 3, view.TotalPages)
	assert.False(t, view.Controls.HasPrevious)
	assert.True(t, view.Controls.HasNext)

	calls := fetcher.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "ACTIVE", calls[0].Values().Get("status"))
	assert.False(t, calls[0].Values().Has("level"))
	assert.Equal(t, 1, svc.Count())
}

func TestBrowseCreateRejectsUnknownKindAndFilter(t *testing.T) {
	svc, _, _ := newBrowseFixture(t)

	_, err := svc.Create(context.Background(), dto.CreateBrowseSessionRequest{Kind: "students"})
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Fields, "kind")

	_, err = svc.Create(context.Background(), dto.CreateBrowseSessionRequest{Kind: "courses", Filters: map[string]string{"status": "ARCHIVED"}})
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Fields, "status")
	assert.Zero(t, svc.Count())
}

func TestBrowseTypingSettlesOnce(t *testing.T) {
	svc, fetcher, clock := newBrowseFixture(t)
	view, err := svc.Create(context.Background(), dto.CreateBrowseSessionRequest{Kind: "courses"})
	require.NoError(t, err)
	waitForStatus(t, svc, view.ID, query.StatusSuccess)

	for _, raw := range []string{"m", "ma", "mat", "math"} {
		typed, err := svc.Type(context.Background(), view.ID, raw, false)
		require.NoError(t, err)
		assert.Equal(t, raw, typed.RawSearch)
		assert.Equal(t, "", typed.Search)
		clock.Advance(300 * time.Millisecond)
	}
	assert.Len(t, fetcher.snapshot(), 1)

	clock.Advance(200 * time.Millisecond)
	settled := waitForStatus(t, svc, view.ID, query.StatusSuccess)
	require.Eventually(t, func() bool { return len(fetcher.snapshot()) == 2 }, time.Second, 5*time.Millisecond)

	calls := fetcher.snapshot()
	assert.Equal(t, "math", calls[1].Search)
	assert.Equal(t, 1, calls[1].Page)
	v, err := svc.View(context.Background(), view.ID)
	require.NoError(t, err)
	assert.Equal(t, "math", v.Search)
	assert.Equal(t, 1, settled.Page)
}

func TestBrowseFlushSettlesImmediately(t *testing.T) {
	svc, fetcher, clock := newBrowseFixture(t)
	view, err := svc.Create(context.Background(), dto.CreateBrowseSessionRequest{Kind: "courses"})
	require.NoError(t, err)

	_, err = svc.Type(context.Background(), view.ID, "go", true)
	require.NoError(t, err)
	assert.Zero(t, clock.Pending())
	require.Eventually(t, func() bool {
		for _, p := range fetcher.snapshot() {
			if p.Search == "go" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func TestBrowseFilterChangeResetsPage(t *testing.T) {
	svc, fetcher, _ := newBrowseFixture(t)
	view, err := svc.Create(context.Background(), dto.CreateBrowseSessionRequest{Kind: "courses"})
	require.NoError(t, err)
	waitForStatus(t, svc, view.ID, query.StatusSuccess)

	paged, err := svc.SetPage(context.Background(), view.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, paged.Page)
	assert.Equal(t, "ACTIVE", paged.Filters["status"])

	_, err = svc.SetPage(context.Background(), view.ID, 4)
	assert.True(t, appErrors.Is(err, appErrors.ErrPageOutOfRange))
	_, err = svc.SetPage(context.Background(), view.ID, 0)
	assert.True(t, appErrors.Is(err, appErrors.ErrPageOutOfRange))

	filtered, err := svc.SetFilter(context.Background(), view.ID, "status", "COMPLETED")
	require.NoError(t, err)
	assert.Equal(t, 1, filtered.Page)
	assert.Equal(t, "COMPLETED", filtered.Filters["status"])

	require.Eventually(t, func() bool {
		calls := fetcher.snapshot()
		last := calls[len(calls)-1]
		return last.Filter("status") == "COMPLETED" && last.Page == 1
	}, time.Second, 5*time.Millisecond)
}

func TestBrowseCloseDropsSession(t *testing.T) {
	svc, fetcher, clock := newBrowseFixture(t)
	view, err := svc.Create(context.Background(), dto.CreateBrowseSessionRequest{Kind: "courses"})
	require.NoError(t, err)
	waitForStatus(t, svc, view.ID, query.StatusSuccess)

	_, err = svc.Type(context.Background(), view.ID, "late", false)
	require.NoError(t, err)
	require.NoError(t, svc.Close(context.Background(), view.ID))

	clock.Advance(time.Second)
	assert.Len(t, fetcher.snapshot(), 1)

	_, err = svc.View(context.Background(), view.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrSessionNotFound))
	assert.True(t, appErrors.Is(svc.Close(context.Background(), view.ID), appErrors.ErrSessionNotFound))
	assert.Zero(t, svc.Count())
}

func TestBrowseInvalidateRefetchesMountedViews(t *testing.T) {
	svc, fetcher, _ := newBrowseFixture(t)
	view, err := svc.Create(context.Background(), dto.CreateBrowseSessionRequest{Kind: "courses"})
	require.NoError(t, err)
	waitForStatus(t, svc, view.ID, query.StatusSuccess)

	svc.InvalidateQueries(context.Background(), QueryCourses)
	require.Eventually(t, func() bool { return len(fetcher.snapshot()) == 2 }, time.Second, 5*time.Millisecond)

	svc.InvalidateQueries(context.Background(), QueryTeachers)
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, fetcher.snapshot(), 2)
}

func TestBrowseEventsStreamCommits(t *testing.T) {
	svc, _, _ := newBrowseFixture(t)
	view, err := svc.Create(context.Background(), dto.CreateBrowseSessionRequest{Kind: "courses"})
	require.NoError(t, err)
	waitForStatus(t, svc, view.ID, query.StatusSuccess)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := svc.Events(ctx, view.ID)
	require.NoError(t, err)

	_, err = svc.SetFilter(context.Background(), view.ID, "level", "l1")
	require.NoError(t, err)

	var committed []pubsub.Event[dto.BrowseView]
	timeout := time.After(2 * time.Second)
	for len(committed) == 0 || committed[len(committed)-1].Payload.Status != string(query.StatusSuccess) {
		select {
		case ev := <-events:
			committed = append(committed, ev)
		case <-timeout:
			t.Fatal("no committed view received")
		}
	}
	last := committed[len(committed)-1]
	assert.Equal(t, pubsub.CommittedEvent, last.Type)
	assert.Equal(t, "l1", last.Payload.Filters["level"])

	require.NoError(t, svc.Close(context.Background(), view.ID))
	for ev := range events {
		if ev.Type == pubsub.ClosedEvent {
			return
		}
	}
}

func TestBrowsePageCountFollowsTheCurrentFilter(t *testing.T) {
	svc, fetcher, _ := newBrowseFixture(t)
	ctx := context.Background()
	fetcher.setPages("COMPLETED", 1)
	hold := fetcher.hold("COMPLETED")

	view, err := svc.Create(ctx, dto.CreateBrowseSessionRequest{Kind: "courses"})
	require.NoError(t, err)
	waitForStatus(t, svc, view.ID, query.StatusSuccess)
	_, err = svc.SetPage(ctx, view.ID, 3)
	require.NoError(t, err)

	loading, err := svc.SetFilter(ctx, view.ID, "status", "COMPLETED")
	require.NoError(t, err)
	assert.Equal(t, string(query.StatusLoading), loading.Status)

	_, err = svc.SetPage(ctx, view.ID, 3)
	assert.True(t, appErrors.Is(err, appErrors.ErrPageOutOfRange))
	_, err = svc.SetPage(ctx, view.ID, 2)
	assert.True(t, appErrors.Is(err, appErrors.ErrPageOutOfRange))

	close(hold)
	done := waitForStatus(t, svc, view.ID, query.StatusSuccess)
	assert.Equal(t, 1, done.Page)
	assert.Equal(t, 1, done.TotalPages)
	assert.False(t, done.Controls.HasNext)
	for _, p := range fetcher.snapshot() {
		if p.Filter("status") == "COMPLETED" {
			assert.Equal(t, 1, p.Page)
		}
	}
}

func TestBrowseClampsPageWhenResultShrinks(t *testing.T) {
	svc, fetcher, _ := newBrowseFixture(t)
	ctx := context.Background()
	view, err := svc.Create(ctx, dto.CreateBrowseSessionRequest{Kind: "courses"})
	require.NoError(t, err)
	waitForStatus(t, svc, view.ID, query.StatusSuccess)
	_, err = svc.SetPage(ctx, view.ID, 3)
	require.NoError(t, err)
	waitForStatus(t, svc, view.ID, query.StatusSuccess)

	fetcher.setPages("ACTIVE", 1)
	svc.InvalidateQueries(ctx, QueryCourses)

	require.Eventually(t, func() bool {
		calls := fetcher.snapshot()
		if calls[len(calls)-1].Page != 1 {
			return false
		}
		v, err := svc.View(ctx, view.ID)
		return err == nil && v.Page == 1 && v.Status == string(query.StatusSuccess) && v.TotalPages == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestBrowseSettledSearchIsTrimmed(t *testing.T) {
	svc, fetcher, _ := newBrowseFixture(t)
	ctx := context.Background()
	view, err := svc.Create(ctx, dto.CreateBrowseSessionRequest{Kind: "courses"})
	require.NoError(t, err)

	typed, err := svc.Type(ctx, view.ID, "  math ", true)
	require.NoError(t, err)
	assert.Equal(t, "  math ", typed.RawSearch)

	require.Eventually(t, func() bool {
		v, err := svc.View(ctx, view.ID)
		return err == nil && v.Search == "math"
	}, time.Second, 5*time.Millisecond)
	for _, p := range fetcher.snapshot() {
		assert.Equal(t, strings.TrimSpace(p.Search), p.Search)
	}
}

func TestBrowseSessionBelongsToItsCaller(t *testing.T) {
	svc, fetcher, _ := newBrowseFixture(t)
	admin := upstream.WithCookie(context.Background(), "session=admin")

	view, err := svc.Create(admin, dto.CreateBrowseSessionRequest{Kind: "courses"})
	require.NoError(t, err)
	waitForStatusAs(t, admin, svc, view.ID, query.StatusSuccess)

	_, err = svc.View(context.Background(), view.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrSessionNotFound))
	_, err = svc.SetPage(upstream.WithCookie(context.Background(), "session=other"), view.ID, 2)
	assert.True(t, appErrors.Is(err, appErrors.ErrSessionNotFound))
	assert.True(t, appErrors.Is(svc.Close(context.Background(), view.ID), appErrors.ErrSessionNotFound))

	_, err = svc.Type(admin, view.ID, "go", true)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(fetcher.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	for _, cookie := range fetcher.seenCookies() {
		assert.Equal(t, "session=admin", cookie)
	}
}

func TestBrowseInvalidateRefetchesWithEachViewsCredentials(t *testing.T) {
	svc, fetcher, _ := newBrowseFixture(t)
	view, err := svc.Create(context.Background(), dto.CreateBrowseSessionRequest{Kind: "courses"})
	require.NoError(t, err)
	waitForStatus(t, svc, view.ID, query.StatusSuccess)

	svc.InvalidateQueries(upstream.WithCookie(context.Background(), "session=admin"), QueryCourses)
	require.Eventually(t, func() bool { return len(fetcher.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"", ""}, fetcher.seenCookies())
}

func TestBrowseRestrictHidesOtherKinds(t *testing.T) {
	courses := &recordingCourseFetcher{}
	students := func(ctx context.Context, params query.Params) (query.Result[models.Student], error) {
		return query.Result[models.Student]{Items: []models.Student{{ID: "s-1"}}, TotalCount: 1, TotalPages: 1}, nil
	}
	svc := newBrowseService(t, BrowseFetchers{Courses: courses.fetch, Students: students}, debounce.NewManualClock())
	public := svc.Restrict(QueryCourses)
	ctx := context.Background()

	assert.Equal(t, []string{QueryCourses}, public.Kinds())
	_, err := public.Create(ctx, dto.CreateBrowseSessionRequest{Kind: QueryStudents})
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Fields, "kind")

	adminView, err := svc.Create(ctx, dto.CreateBrowseSessionRequest{Kind: QueryStudents})
	require.NoError(t, err)
	_, err = public.View(ctx, adminView.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrSessionNotFound))
	_, err = svc.View(ctx, adminView.ID)
	require.NoError(t, err)

	publicView, err := public.Create(ctx, dto.CreateBrowseSessionRequest{Kind: QueryCourses})
	require.NoError(t, err)
	assert.Equal(t, 2, svc.Count())
	require.NoError(t, public.Close(ctx, publicView.ID))
}
