package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-portal/internal/dto"
	"github.com/noah-isme/academy-portal/internal/models"
	"github.com/noah-isme/academy-portal/pkg/debounce"
	appErrors "github.com/noah-isme/academy-portal/pkg/errors"
	"github.com/noah-isme/academy-portal/pkg/filter"
	"github.com/noah-isme/academy-portal/pkg/pagination"
	"github.com/noah-isme/academy-portal/pkg/pubsub"
	"github.com/noah-isme/academy-portal/pkg/query"
	"github.com/noah-isme/academy-portal/pkg/upstream"
)

// BrowseFetchers supplies the backend loader of every mountable list. A nil fetcher leaves
// that kind unavailable.
type BrowseFetchers struct {
	Courses       query.Fetcher[models.Course]
	Teachers      query.Fetcher[models.Teacher]
	Registrations query.Fetcher[models.Registration]
	Students      query.Fetcher[models.Student]
}

// BrowseConfig tunes browse sessions.
type BrowseConfig struct {
	SearchDebounce time.Duration
	SessionTTL     time.Duration
	List           ListConfig
	// Clock drives the search debounce. Defaults to the wall clock.
	Clock debounce.Clock
}

// listQuery hides the item type of a mounted query.
type listQuery interface {
	Set(ctx context.Context, params query.Params)
	Refetch(ctx context.Context)
	Close()
	Wait()
	snapshot() listSnapshot
	watch(ctx context.Context, fn func(listSnapshot))
}

type listSnapshot struct {
	Params    query.Params
	Status    query.Status
	Items     interface{}
	Total     int
	Pages     int
	Error     string
	UpdatedAt time.Time
}

type typedQuery[T any] struct {
	*query.Query[T]
}

func (q typedQuery[T]) snapshot() listSnapshot {
	return snapshotOf(q.Snapshot())
}

func (q typedQuery[T]) watch(ctx context.Context, fn func(listSnapshot)) {
	events := q.Subscribe(ctx)
	go func() {
		for ev := range events {
			fn(snapshotOf(ev.Payload))
		}
	}()
}

func snapshotOf[T any](snap query.Snapshot[T]) listSnapshot {
	return listSnapshot{
		Params:    snap.Params,
		Status:    snap.Status,
		Items:     snap.Items,
		Total:     snap.Total,
		Pages:     snap.Pages,
		Error:     snap.Error,
		UpdatedAt: snap.UpdatedAt,
	}
}

type browseKind struct {
	dims     []filter.Dimension
	newQuery func(cache *query.Cache, pageSize int, obs query.Observer, logger *zap.Logger) listQuery
}

func kindOf[T any](name string, fetch query.Fetcher[T], dims ...filter.Dimension) browseKind {
	return browseKind{
		dims: dims,
		newQuery: func(cache *query.Cache, pageSize int, obs query.Observer, logger *zap.Logger) listQuery {
			return typedQuery[T]{query.New(query.Options[T]{
				Name:            name,
				Fetch:           fetch,
				Cache:           cache,
				DefaultPageSize: pageSize,
				Logger:          logger,
				Observer:        obs,
			})}
		},
	}
}

func courseStatusValues() []string {
	out := make([]string, len(models.CourseStatuses))
	for i, s := range models.CourseStatuses {
		out[i] = string(s)
	}
	return out
}

type browseSession struct {
	id        string
	kind      string
	owner     string
	search    *debounce.State
	filters   *filter.Controller
	query     listQuery
	events    *pubsub.Broker[dto.BrowseView]
	cancel    context.CancelFunc
	dims      []filter.Dimension
	pipeMu    sync.Mutex
	ready     bool
	closeOnce sync.Once

	// reqCtx carries the credentials of the latest request; fetches run under it.
	ctxMu  sync.Mutex
	reqCtx context.Context
}

// BrowseService holds mounted list views: debounced search feeding a filter controller
// feeding a paged query.
type BrowseService struct {
	kinds   map[string]browseKind
	allowed map[string]struct{}
	cache   *query.Cache
	store   *gocache.Cache
	metrics *MetricsService
	logger  *zap.Logger
	cfg     BrowseConfig
}

// NewBrowseService constructs a BrowseService. Sessions idle for longer than SessionTTL are
// evicted and closed.
func NewBrowseService(fetchers BrowseFetchers, cache *query.Cache, cfg BrowseConfig, metrics *MetricsService, logger *zap.Logger) *BrowseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SearchDebounce <= 0 {
		cfg.SearchDebounce = debounce.DefaultWindow
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if cfg.Clock == nil {
		cfg.Clock = debounce.RealClock{}
	}

	kinds := map[string]browseKind{}
	if fetchers.Courses != nil {
		kinds[QueryCourses] = kindOf(QueryCourses, fetchers.Courses,
			filter.Dimension{Name: "subject"},
			filter.Dimension{Name: "level"},
			filter.Dimension{Name: "status", Default: string(models.CourseStatusActive), Values: courseStatusValues()},
		)
	}
	if fetchers.Teachers != nil {
		kinds[QueryTeachers] = kindOf(QueryTeachers, fetchers.Teachers, filter.Dimension{Name: "subject"})
	}
	if fetchers.Registrations != nil {
		kinds[QueryRegistrations] = kindOf(QueryRegistrations, fetchers.Registrations,
			filter.Dimension{Name: "course"},
			filter.Dimension{Name: "level"},
			filter.Dimension{Name: "status"},
		)
	}
	if fetchers.Students != nil {
		kinds[QueryStudents] = kindOf(QueryStudents, fetchers.Students, filter.Dimension{Name: "level"})
	}

	s := &BrowseService{
		kinds:   kinds,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
	s.store = gocache.New(cfg.SessionTTL, cfg.SessionTTL/2)
	s.store.OnEvicted(func(id string, v interface{}) {
		if sess, ok := v.(*browseSession); ok {
			sess.close()
			s.logger.Debug("browse session closed", zap.String("session_id", id), zap.String("kind", sess.kind))
		}
		s.metrics.SetBrowseSessions(s.store.ItemCount())
	})
	return s
}

// Restrict returns a view of the service that only mounts and serves the named kinds.
// Sessions of other kinds look unknown through it.
func (s *BrowseService) Restrict(kinds ...string) *BrowseService {
	out := *s
	out.allowed = make(map[string]struct{}, len(kinds))
	for _, k := range kinds {
		out.allowed[k] = struct{}{}
	}
	return &out
}

func (s *BrowseService) allows(kind string) bool {
	if s.allowed == nil {
		return true
	}
	_, ok := s.allowed[kind]
	return ok
}

// Kinds lists the mountable list names.
func (s *BrowseService) Kinds() []string {
	out := make([]string, 0, len(s.kinds))
	for k := range s.kinds {
		if s.allows(k) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Create mounts a view and starts its first fetch.
func (s *BrowseService) Create(ctx context.Context, req dto.CreateBrowseSessionRequest) (*dto.BrowseView, error) {
	kindName := strings.ToLower(strings.TrimSpace(req.Kind))
	kind, ok := s.kinds[kindName]
	if !ok || !s.allows(kindName) {
		return nil, appErrors.Validation("invalid browse session", map[string]string{
			"kind": "must be one of " + strings.Join(s.Kinds(), ", "),
		})
	}

	def := s.cfg.List.DefaultPageSize
	if def <= 0 {
		def = 10
	}
	pageSize := clampPageSize(req.PageSize, def, s.cfg.List.MaxPageSize)

	sess := &browseSession{
		id:     uuid.NewString(),
		kind:   kindName,
		owner:  upstream.CredentialScope(ctx),
		query:  kind.newQuery(s.cache, pageSize, s.metrics, s.logger),
		events: pubsub.NewBroker[dto.BrowseView](),
		dims:   kind.dims,
	}
	sess.bind(ctx)
	sess.filters = filter.New(kind.dims, filter.Options{PageSize: pageSize, OnChange: func(query.Params) { sess.apply() }})

	for name, value := range req.Filters {
		if _, err := sess.filters.SetFilter(name, value); err != nil {
			sess.query.Close()
			return nil, err
		}
	}
	initial := strings.TrimSpace(req.Search)
	sess.filters.SetSearch(initial)
	sess.search = debounce.New(debounce.Options{
		Window:   s.cfg.SearchDebounce,
		Clock:    s.cfg.Clock,
		Initial:  initial,
		OnSettle: func(settled string) { sess.filters.SetSearch(strings.TrimSpace(settled)) },
	})

	watchCtx, cancel := context.WithCancel(context.Background())
	sess.cancel = cancel
	sess.query.watch(watchCtx, func(snap listSnapshot) {
		if snap.Status == query.StatusSuccess {
			sess.filters.ApplyResult(snap.Params, snap.Pages)
		}
		sess.events.Publish(pubsub.CommittedEvent, sess.view())
	})

	sess.pipeMu.Lock()
	sess.ready = true
	sess.pipeMu.Unlock()
	sess.apply()

	s.store.Set(sess.id, sess, gocache.DefaultExpiration)
	s.metrics.SetBrowseSessions(s.store.ItemCount())
	s.logger.Debug("browse session created", zap.String("session_id", sess.id), zap.String("kind", kindName))

	view := sess.view()
	return &view, nil
}

// Type feeds a keystroke into the debounced search. Flush settles it immediately.
func (s *BrowseService) Type(ctx context.Context, id, raw string, flush bool) (*dto.BrowseView, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.search.Set(raw)
	if flush {
		sess.search.Flush()
	}
	view := sess.view()
	return &view, nil
}

// SetFilter changes one dimension; the page returns to 1.
func (s *BrowseService) SetFilter(ctx context.Context, id, dimension, value string) (*dto.BrowseView, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := sess.filters.SetFilter(dimension, value); err != nil {
		return nil, err
	}
	view := sess.view()
	return &view, nil
}

// SetPage moves to page within the last known page count.
func (s *BrowseService) SetPage(ctx context.Context, id string, page int) (*dto.BrowseView, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.syncPages()
	if _, err := sess.filters.SetPage(page); err != nil {
		return nil, err
	}
	view := sess.view()
	return &view, nil
}

// Refresh refetches the current parameters, bypassing the cache.
func (s *BrowseService) Refresh(ctx context.Context, id string) (*dto.BrowseView, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.query.Refetch(sess.context())
	view := sess.view()
	return &view, nil
}

// View returns the current state of a session.
func (s *BrowseService) View(ctx context.Context, id string) (*dto.BrowseView, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}
	view := sess.view()
	return &view, nil
}

// Events streams a view after every commit until ctx is done or the session closes.
func (s *BrowseService) Events(ctx context.Context, id string) (<-chan pubsub.Event[dto.BrowseView], error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}
	return sess.events.Subscribe(ctx), nil
}

// Close unmounts a session. Late responses for it are dropped.
func (s *BrowseService) Close(ctx context.Context, id string) error {
	if _, err := s.session(ctx, id); err != nil {
		return err
	}
	s.store.Delete(id)
	return nil
}

// Count returns the number of mounted sessions.
func (s *BrowseService) Count() int {
	return s.store.ItemCount()
}

// InvalidateQueries drops cached results for name and refetches every mounted view of it.
// Each view refetches with its own caller's credentials, never with ctx's.
func (s *BrowseService) InvalidateQueries(ctx context.Context, name string) {
	dropped := s.cache.Invalidate(name)
	refreshed := 0
	for _, item := range s.store.Items() {
		sess, ok := item.Object.(*browseSession)
		if !ok || sess.kind != name {
			continue
		}
		sess.query.Refetch(sess.context())
		refreshed++
	}
	s.logger.Debug("queries invalidated", zap.String("query", name), zap.Int("dropped", dropped), zap.Int("refreshed", refreshed))
}

// Shutdown closes every session.
func (s *BrowseService) Shutdown() {
	for id := range s.store.Items() {
		s.store.Delete(id)
	}
}

// session looks up id for the caller in ctx, binds the caller's credentials to later
// fetches and extends the session's lifetime. Sessions of another caller or of a kind this
// view does not serve are reported as unknown.
func (s *BrowseService) session(ctx context.Context, id string) (*browseSession, error) {
	v, ok := s.store.Get(id)
	if !ok {
		return nil, appErrors.ErrSessionNotFound
	}
	sess := v.(*browseSession)
	if !s.allows(sess.kind) || sess.owner != upstream.CredentialScope(ctx) {
		return nil, appErrors.ErrSessionNotFound
	}
	sess.bind(ctx)
	// Replace fails when the session was deleted since Get.
	if err := s.store.Replace(id, sess, gocache.DefaultExpiration); err != nil {
		return nil, appErrors.ErrSessionNotFound
	}
	return sess, nil
}

// apply pushes the controller's current parameters into the query. Serialised so the
// last caller always carries the latest parameters.
func (b *browseSession) apply() {
	b.pipeMu.Lock()
	defer b.pipeMu.Unlock()
	if !b.ready {
		return
	}
	b.query.Set(b.context(), b.filters.Params())
}

// syncPages hands the committed result to the controller so page checks never wait on the
// event watcher.
func (b *browseSession) syncPages() {
	snap := b.query.snapshot()
	if snap.Status == query.StatusSuccess {
		b.filters.ApplyResult(snap.Params, snap.Pages)
	}
}

func (b *browseSession) bind(ctx context.Context) {
	b.ctxMu.Lock()
	b.reqCtx = context.WithoutCancel(ctx)
	b.ctxMu.Unlock()
}

func (b *browseSession) context() context.Context {
	b.ctxMu.Lock()
	defer b.ctxMu.Unlock()
	return b.reqCtx
}

func (b *browseSession) view() dto.BrowseView {
	state := b.filters.State()
	snap := b.query.snapshot()
	pages := snap.Pages
	if snap.Status != query.StatusSuccess {
		pages = state.TotalPages
	}
	items := snap.Items
	if items == nil {
		items = []interface{}{}
	}
	raw := state.Search
	if b.search != nil {
		raw = b.search.Raw()
	}
	controls := pagination.Controls(state.Page, pages)
	return dto.BrowseView{
		ID:         b.id,
		Kind:       b.kind,
		RawSearch:  raw,
		Search:     state.Search,
		Filters:    state.Filters,
		Dimensions: b.dims,
		Page:       state.Page,
		PageSize:   state.PageSize,
		Status:     string(snap.Status),
		Loading:    snap.Status == query.StatusLoading,
		Items:      items,
		TotalCount: snap.Total,
		TotalPages: controls.TotalPages,
		Controls:   controls,
		Error:      snap.Error,
		UpdatedAt:  snap.UpdatedAt,
	}
}

func (b *browseSession) close() {
	b.closeOnce.Do(func() {
		b.pipeMu.Lock()
		b.ready = false
		b.pipeMu.Unlock()
		if b.search != nil {
			b.search.Close()
		}
		b.query.Close()
		if b.cancel != nil {
			b.cancel()
		}
		b.events.Publish(pubsub.ClosedEvent, dto.BrowseView{ID: b.id, Kind: b.kind})
		b.events.Close()
	})
}
