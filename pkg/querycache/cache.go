package querycache

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultCacheTime is how long a value is retained at all before eviction.
const DefaultCacheTime = 5 * time.Minute

// Query is a declarative descriptor binding a fetch function to a cache key
// and a staleness policy. It is plain data: constructing one performs no
// network activity until a Cache executes it.
type Query struct {
	// Key locates the value in the cache.
	Key Key

	// StaleTime is how long after a fetch the value is served as-is. Once
	// exceeded the next Fetch refetches. Zero means always refetch (while
	// still coalescing concurrent callers).
	StaleTime time.Duration

	// CacheTime is the retention window; entries older than this are
	// evicted outright. Zero means DefaultCacheTime.
	CacheTime time.Duration

	// Fetch produces the value. It must not touch the cache itself.
	Fetch func(ctx context.Context) (any, error)
}

// Mutation describes a state-changing operation and, as pure functions of
// its input, the cache keys to invalidate and to remove on success. The
// separation keeps "what to invalidate" in business logic while "how"
// belongs to the cache.
type Mutation[I, O any] struct {
	// Run performs the mutation.
	Run func(ctx context.Context, input I) (O, error)

	// Invalidates lists ancestor keys whose extensions go stale on success.
	Invalidates func(input I) []Key

	// Removes lists keys whose entries are dropped outright on success,
	// for resources that no longer exist and must not be re-served stale.
	Removes func(input I) []Key
}

type entry struct {
	value     any
	fetchedAt time.Time
	stale     bool
	cacheTime time.Duration
}

// Cache is a map-backed query cache with prefix invalidation and
// at-most-one-in-flight-per-key request coalescing. It is the only shared
// mutable resource in this module; all mutation flows through Invalidate,
// Remove, and Mutate rather than direct writes.
//
// Instantiate one per scope under test; nothing here is a singleton.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	group   singleflight.Group

	// now is a test seam.
	now func() time.Time
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Fetch returns the cached value for q.Key when fresh, otherwise executes
// q.Fetch. Concurrent callers for the same key share a single in-flight
// fetch and all receive its result. Errors are returned, never cached.
func (c *Cache) Fetch(ctx context.Context, q Query) (any, error) {
	key := q.Key.String()

	if v, ok := c.lookup(key, q.StaleTime); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check: a previous holder of this flight may have stored a
		// fresh value between our lookup and joining the flight.
		if v, ok := c.lookup(key, q.StaleTime); ok {
			return v, nil
		}

		value, err := q.Fetch(ctx)
		if err != nil {
			return nil, err
		}

		cacheTime := q.CacheTime
		if cacheTime <= 0 {
			cacheTime = DefaultCacheTime
		}
		c.mu.Lock()
		c.entries[key] = entry{
			value:     value,
			fetchedAt: c.now(),
			cacheTime: cacheTime,
		}
		c.mu.Unlock()
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// lookup returns a fresh cached value, evicting entries past retention.
func (c *Cache) lookup(key string, staleTime time.Duration) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	age := c.now().Sub(e.fetchedAt)
	if age >= e.cacheTime {
		delete(c.entries, key)
		return nil, false
	}
	if e.stale || staleTime <= 0 || age >= staleTime {
		return nil, false
	}
	return e.value, true
}

// Invalidate marks every entry at or under the given keys as stale. Stale
// entries refetch on next use.
func (c *Cache) Invalidate(keys ...Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for canonical, e := range c.entries {
		parts := Key(splitKey(canonical))
		for _, k := range keys {
			if parts.HasPrefix(k) {
				e.stale = true
				c.entries[canonical] = e
				break
			}
		}
	}
}

// Remove drops every entry at or under the given keys outright.
func (c *Cache) Remove(keys ...Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for canonical := range c.entries {
		parts := Key(splitKey(canonical))
		for _, k := range keys {
			if parts.HasPrefix(k) {
				delete(c.entries, canonical)
				break
			}
		}
	}
}

// Mutate runs a mutation and, on success, applies its declared invalidation
// and removal lists.
func Mutate[I, O any](ctx context.Context, c *Cache, m Mutation[I, O], input I) (O, error) {
	out, err := m.Run(ctx, input)
	if err != nil {
		return out, err
	}

	if m.Invalidates != nil {
		c.Invalidate(m.Invalidates(input)...)
	}
	if m.Removes != nil {
		c.Remove(m.Removes(input)...)
	}
	return out, nil
}

// FetchAs is Fetch with a typed result.
func FetchAs[T any](ctx context.Context, c *Cache, q Query) (T, error) {
	var zero T
	v, err := c.Fetch(ctx, q)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, &TypeError{Key: q.Key}
	}
	return t, nil
}

// TypeError reports a cached value whose type does not match the caller's
// expectation, which indicates two queries sharing a key.
type TypeError struct {
	Key Key
}

func (e *TypeError) Error() string {
	return "querycache: cached value type mismatch for key " + e.Key.String()
}

// StartJanitor evicts entries past their retention window every interval
// until ctx is done. Eviction also happens lazily on access, so the janitor
// only bounds memory for keys that stop being read.
func (c *Cache) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.evictExpired()
			}
		}
	}()
}

func (c *Cache) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.entries {
		if now.Sub(e.fetchedAt) >= e.cacheTime {
			delete(c.entries, key)
		}
	}
}

// Len reports the number of retained entries. Intended for tests and
// introspection.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func splitKey(canonical string) []string {
	return strings.Split(canonical, keySep)
}
