// Package query implements a keyed, cached list query whose visible state follows the
// most recently requested parameters.
package query

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-portal/pkg/pubsub"
)

// Status is the lifecycle state of the visible result.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Outcomes reported to an Observer.
const (
	OutcomeHit   = "hit"
	OutcomeMiss  = "miss"
	OutcomeStale = "stale"
	OutcomeError = "error"
)

// Result is one resolved page.
type Result[T any] struct {
	Items       []T `json:"items"`
	TotalCount  int `json:"totalCount"`
	TotalPages  int `json:"totalPages"`
	CurrentPage int `json:"currentPage"`
}

// Fetcher loads one page for the given parameters.
type Fetcher[T any] func(ctx context.Context, params Params) (Result[T], error)

// Observer receives cache and staleness outcomes, typically for metrics.
type Observer interface {
	ObserveQuery(name, outcome string)
}

// Snapshot is the committed, visible state of a query.
type Snapshot[T any] struct {
	Name      string    `json:"name"`
	Key       string    `json:"key"`
	Params    Params    `json:"params"`
	Status    Status    `json:"status"`
	Items     []T       `json:"items"`
	Total     int       `json:"totalCount"`
	Pages     int       `json:"totalPages"`
	Err       error     `json:"-"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Options configures a Query.
type Options[T any] struct {
	Name            string
	Fetch           Fetcher[T]
	Cache           *Cache
	DefaultPageSize int
	Logger          *zap.Logger
	Observer        Observer
}

// Query owns the visible state for one mounted list view.
type Query[T any] struct {
	mu         sync.Mutex
	name       string
	fetch      Fetcher[T]
	cache      *Cache
	pageSize   int
	logger     *zap.Logger
	observer   Observer
	current    Params
	currentKey string
	scope      string
	snap       Snapshot[T]
	seq        uint64
	inflight   map[string]struct{}
	closed     bool
	wg         sync.WaitGroup
	broker     *pubsub.Broker[Snapshot[T]]

	// pubMu orders publication by commit sequence; published is the last sequence sent.
	pubMu     sync.Mutex
	published uint64
}

// New creates an idle query.
func New[T any](opts Options[T]) *Query[T] {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 10
	}
	return &Query[T]{
		name:     opts.Name,
		fetch:    opts.Fetch,
		cache:    opts.Cache,
		pageSize: opts.DefaultPageSize,
		logger:   opts.Logger,
		observer: opts.Observer,
		snap:     Snapshot[T]{Name: opts.Name, Status: StatusIdle, Items: []T{}},
		inflight: make(map[string]struct{}),
		broker:   pubsub.NewBroker[Snapshot[T]](),
	}
}

// Set makes params current. A cached result commits immediately; otherwise the query
// moves to loading and fetches in the background.
func (q *Query[T]) Set(ctx context.Context, params Params) {
	q.start(ctx, params, false)
}

// Refetch reloads the current parameters, bypassing the cache.
func (q *Query[T]) Refetch(ctx context.Context) {
	q.mu.Lock()
	params := q.current
	started := q.currentKey != ""
	q.mu.Unlock()
	if !started {
		return
	}
	q.start(ctx, params, true)
}

func (q *Query[T]) start(ctx context.Context, params Params, force bool) {
	params = params.Normalize(q.pageSize)
	key := params.Key()
	scope := q.cache.ScopeOf(ctx)

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.current = params
	q.currentKey = key
	q.scope = scope

	if force {
		q.cache.delete(q.name, scope, key)
	} else if cached, ok := q.cache.get(q.name, scope, key); ok {
		if res, ok := cached.(Result[T]); ok {
			seq := q.commit(q.successSnapshot(params, key, res))
			snap := q.snap
			q.mu.Unlock()
			q.observe(OutcomeHit)
			q.publish(seq, snap)
			return
		}
	}

	seq := q.commit(Snapshot[T]{
		Name:      q.name,
		Key:       key,
		Params:    params,
		Status:    StatusLoading,
		Items:     []T{},
		UpdatedAt: time.Now(),
	})
	snap := q.snap
	flight := scope + scopeSeparator + key
	_, running := q.inflight[flight]
	if !running {
		q.inflight[flight] = struct{}{}
		q.wg.Add(1)
	}
	q.mu.Unlock()

	q.observe(OutcomeMiss)
	q.publish(seq, snap)
	if running {
		return
	}

	go q.run(context.WithoutCancel(ctx), params, scope, key)
}

func (q *Query[T]) run(ctx context.Context, params Params, scope, key string) {
	defer q.wg.Done()

	res, err := q.fetch(ctx, params)

	q.mu.Lock()
	delete(q.inflight, scope+scopeSeparator+key)
	if err == nil {
		if res.Items == nil {
			res.Items = []T{}
		}
		q.cache.set(q.name, scope, key, res)
	}
	if q.closed || key != q.currentKey || scope != q.scope {
		q.mu.Unlock()
		q.observe(OutcomeStale)
		q.logger.Debug("dropping stale query result", zap.String("query", q.name), zap.String("key", key))
		return
	}

	var seq uint64
	if err != nil {
		seq = q.commit(Snapshot[T]{
			Name:      q.name,
			Key:       key,
			Params:    params,
			Status:    StatusError,
			Items:     []T{},
			Err:       err,
			Error:     err.Error(),
			UpdatedAt: time.Now(),
		})
	} else {
		seq = q.commit(q.successSnapshot(params, key, res))
	}
	snap := q.snap
	q.mu.Unlock()

	if err != nil {
		q.observe(OutcomeError)
		q.logger.Warn("query fetch failed", zap.String("query", q.name), zap.String("key", key), zap.Error(err))
	}
	q.publish(seq, snap)
}

// commit makes snap visible and returns its sequence. Callers hold q.mu.
func (q *Query[T]) commit(snap Snapshot[T]) uint64 {
	q.snap = snap
	q.seq++
	return q.seq
}

// publish sends snap unless a later commit has already been sent, so subscribers always
// end on the visible state.
func (q *Query[T]) publish(seq uint64, snap Snapshot[T]) {
	q.pubMu.Lock()
	defer q.pubMu.Unlock()
	if seq <= q.published {
		return
	}
	q.published = seq
	q.broker.Publish(pubsub.CommittedEvent, snap)
}

func (q *Query[T]) successSnapshot(params Params, key string, res Result[T]) Snapshot[T] {
	items := res.Items
	if items == nil {
		items = []T{}
	}
	pages := res.TotalPages
	if pages < 1 {
		pages = 1
	}
	return Snapshot[T]{
		Name:      q.name,
		Key:       key,
		Params:    params,
		Status:    StatusSuccess,
		Items:     items,
		Total:     res.TotalCount,
		Pages:     pages,
		UpdatedAt: time.Now(),
	}
}

func (q *Query[T]) observe(outcome string) {
	if q.observer != nil {
		q.observer.ObserveQuery(q.name, outcome)
	}
}

// Snapshot returns the committed state.
func (q *Query[T]) Snapshot() Snapshot[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snap
}

// Params returns the current parameters.
func (q *Query[T]) Params() Params {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current.clone()
}

// Subscribe streams committed snapshots.
func (q *Query[T]) Subscribe(ctx context.Context) <-chan pubsub.Event[Snapshot[T]] {
	return q.broker.Subscribe(ctx)
}

// Invalidate drops every cached result of this query's name.
func (q *Query[T]) Invalidate() int {
	return q.cache.Invalidate(q.name)
}

// Wait blocks until no fetch is running.
func (q *Query[T]) Wait() {
	q.wg.Wait()
}

// Close stops publishing. Fetches still running finish but never commit.
func (q *Query[T]) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()
	q.broker.Close()
}

// Load returns a page for params through cache without keeping any visible state. Used by
// stateless list endpoints that share the cache with mounted queries.
func Load[T any](ctx context.Context, cache *Cache, name string, params Params, fetch Fetcher[T]) (Result[T], bool, error) {
	key := params.Key()
	scope := cache.ScopeOf(ctx)
	if cached, ok := cache.get(name, scope, key); ok {
		if res, ok := cached.(Result[T]); ok {
			return res, true, nil
		}
	}
	res, err := fetch(ctx, params)
	if err != nil {
		return Result[T]{}, false, err
	}
	if res.Items == nil {
		res.Items = []T{}
	}
	cache.set(name, scope, key, res)
	return res, false, nil
}
