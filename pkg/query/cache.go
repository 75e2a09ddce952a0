package query

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	keySeparator   = "?"
	scopeSeparator = "|"
)

// Scope partitions cached results, typically by the caller's credentials. A result
// loaded under one scope is never returned to another.
type Scope func(ctx context.Context) string

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithScope partitions entries by fn(ctx).
func WithScope(fn Scope) CacheOption {
	return func(c *Cache) {
		c.scope = fn
	}
}

// Cache holds successful results keyed by query name, scope and parameter key. One Cache
// is shared by every query of a process so invalidating a name reaches all of them.
type Cache struct {
	store *gocache.Cache
	scope Scope
}

// NewCache creates a result cache whose entries expire after ttl.
func NewCache(ttl time.Duration, opts ...CacheOption) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	c := &Cache{store: gocache.New(ttl, 2*ttl)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ScopeOf returns the partition ctx belongs to.
func (c *Cache) ScopeOf(ctx context.Context) string {
	if c == nil || c.scope == nil || ctx == nil {
		return ""
	}
	return c.scope(ctx)
}

func cacheKey(name, scope, key string) string {
	return name + keySeparator + scope + scopeSeparator + key
}

func (c *Cache) get(name, scope, key string) (interface{}, bool) {
	if c == nil {
		return nil, false
	}
	return c.store.Get(cacheKey(name, scope, key))
}

func (c *Cache) set(name, scope, key string, value interface{}) {
	if c == nil {
		return
	}
	c.store.SetDefault(cacheKey(name, scope, key), value)
}

func (c *Cache) delete(name, scope, key string) {
	if c == nil {
		return
	}
	c.store.Delete(cacheKey(name, scope, key))
}

// Invalidate drops every entry of the named query in every scope and returns how many
// were removed.
func (c *Cache) Invalidate(name string) int {
	if c == nil {
		return 0
	}
	prefix := name + keySeparator
	removed := 0
	for k := range c.store.Items() {
		if strings.HasPrefix(k, prefix) {
			c.store.Delete(k)
			removed++
		}
	}
	return removed
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.store.ItemCount()
}

// Flush removes everything.
func (c *Cache) Flush() {
	if c == nil {
		return
	}
	c.store.Flush()
}
