package cache

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/gogpu/daro/internal/logx"
	"golang.org/x/sync/singleflight"
)

// Handle identifies a cached resource. Valid handles are positive.
type Handle int32

// Invalid is the handle returned alongside an error.
const Invalid Handle = 0

// DefaultMax is the entry count used when New is given a non-positive max.
const DefaultMax = 256

var (
	// ErrClosed is returned by Load after Close.
	ErrClosed = errors.New("cache: closed")

	// ErrEmptyKey is returned by Load for an empty key.
	ErrEmptyKey = errors.New("cache: empty key")
)

// LoadFunc physically creates the resource for key. It is called without
// the cache lock held.
type LoadFunc[V any] func(key string) (V, error)

// ReleaseFunc physically destroys a resource. It is called without the
// cache lock held, exactly once per successfully loaded value.
type ReleaseFunc[V any] func(key string, v V)

// Cache is a reference-counted cache bounded by a soft entry limit.
//
// Entries are evicted least recently used first, and only when nothing
// references them. When every entry is referenced the cache grows past
// its limit instead of failing; this is logged at warn level.
//
// Cache is safe for concurrent use. Its lock is independent of any lock
// the load and release callbacks take.
type Cache[V any] struct {
	mu       sync.Mutex
	max      int
	entries  map[string]*entry[V]
	byHandle map[Handle]*entry[V]
	order    recency[*entry[V]]
	next     Handle
	closed   bool

	// retainIdle keeps entries resident at refcount zero until the cache
	// needs their slot.
	retainIdle bool

	load    LoadFunc[V]
	release ReleaseFunc[V]
	flight  singleflight.Group

	evictions int
	overflows int
}

type entry[V any] struct {
	key    string
	handle Handle
	refs   int
	res    *result[V]
	node   node[*entry[V]]
}

// result is one physical load, possibly shared by concurrent callers.
// gone is set once the value has been released or discarded.
type result[V any] struct {
	v    V
	gone bool
}

// New creates a cache holding at most max unreferenced entries.
func New[V any](max int, load LoadFunc[V], release ReleaseFunc[V]) *Cache[V] {
	if max <= 0 {
		max = DefaultMax
	}
	if release == nil {
		release = func(string, V) {}
	}
	return &Cache[V]{
		max:      max,
		entries:  make(map[string]*entry[V]),
		byHandle: make(map[Handle]*entry[V]),
		load:     load,
		release:  release,
	}
}

// Load returns the handle for key, loading the resource on first use.
// Each successful Load must be balanced by one Unload.
func (c *Cache[V]) Load(key string) (Handle, error) {
	return c.acquire(key, 1)
}

// Preload loads key without taking a reference, leaving the entry
// resident but evictable. An entry already present is only promoted.
func (c *Cache[V]) Preload(key string) (Handle, error) {
	return c.acquire(key, 0)
}

func (c *Cache[V]) acquire(key string, ref int) (Handle, error) {
	if key == "" {
		return Invalid, ErrEmptyKey
	}
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return Invalid, ErrClosed
		}
		if e, ok := c.entries[key]; ok {
			e.refs += ref
			c.order.moveToFront(&e.node)
			c.mu.Unlock()
			return e.handle, nil
		}
		c.mu.Unlock()

		x, err, _ := c.flight.Do(key, func() (any, error) {
			v, err := c.load(key)
			if err != nil {
				return nil, err
			}
			return &result[V]{v: v}, nil
		})
		if err != nil {
			return Invalid, fmt.Errorf("cache: load %q: %w", key, err)
		}

		h, victims, retry, drop := c.insert(key, x.(*result[V]), ref)
		c.releaseAll(victims)
		if drop != nil {
			c.release(key, drop.v)
		}
		if retry {
			continue
		}
		return h, nil
	}
}

// insert registers a loaded result. It returns retry when the shared
// result was already released by another caller of the same flight.
func (c *Cache[V]) insert(key string, r *result[V], ref int) (h Handle, victims []*entry[V], retry bool, drop *result[V]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		if !r.gone {
			r.gone = true
			drop = r
		}
		return Invalid, nil, false, drop
	}

	if e, ok := c.entries[key]; ok {
		// Someone else inserted first. A value from a different flight is
		// a duplicate; the first caller to notice releases it.
		e.refs += ref
		c.order.moveToFront(&e.node)
		if e.res != r && !r.gone {
			r.gone = true
			drop = r
		}
		return e.handle, nil, false, drop
	}
	if r.gone {
		return Invalid, nil, true, nil
	}

	victims = c.evictLocked(c.max - 1)
	e := &entry[V]{key: key, handle: c.nextHandleLocked(), refs: ref, res: r}
	e.node.val = e
	c.entries[key] = e
	c.byHandle[e.handle] = e
	c.order.pushFront(&e.node)
	return e.handle, victims, false, nil
}

// evictLocked removes unreferenced entries from the LRU end until at most
// limit entries remain or nothing more is evictable.
func (c *Cache[V]) evictLocked(limit int) []*entry[V] {
	var victims []*entry[V]
	for c.order.len() > limit {
		nd, ok := c.order.oldestWhere(func(e *entry[V]) bool { return e.refs == 0 })
		if !ok {
			c.overflows++
			logx.L().Warn("cache: over capacity, every entry is referenced",
				"entries", c.order.len(), "max", c.max)
			break
		}
		victims = append(victims, c.detachLocked(nd.val))
		c.evictions++
	}
	return victims
}

func (c *Cache[V]) detachLocked(e *entry[V]) *entry[V] {
	c.order.remove(&e.node)
	delete(c.entries, e.key)
	delete(c.byHandle, e.handle)
	e.res.gone = true
	return e
}

func (c *Cache[V]) releaseAll(victims []*entry[V]) {
	for _, e := range victims {
		c.release(e.key, e.res.v)
	}
}

// nextHandleLocked returns a positive handle not currently in use,
// wrapping back to 1 after the largest int32.
func (c *Cache[V]) nextHandleLocked() Handle {
	for {
		if c.next >= math.MaxInt32 || c.next < 0 {
			c.next = 0
		}
		c.next++
		if _, used := c.byHandle[c.next]; !used {
			return c.next
		}
	}
}

// Unload drops one reference. When the count reaches zero the resource is
// released, or kept as an eviction candidate if idle entries are retained.
// Unknown or unreferenced handles are ignored; Unload reports whether a
// reference was dropped.
func (c *Cache[V]) Unload(h Handle) bool {
	c.mu.Lock()
	e, ok := c.byHandle[h]
	if !ok || e.refs <= 0 {
		c.mu.Unlock()
		return false
	}
	e.refs--
	var victims []*entry[V]
	if e.refs == 0 {
		if c.retainIdle {
			victims = c.evictLocked(c.max)
		} else {
			victims = append(victims, c.detachLocked(e))
		}
	}
	c.mu.Unlock()

	c.releaseAll(victims)
	return true
}

// UnloadKey is Unload by key.
func (c *Cache[V]) UnloadKey(key string) bool {
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		return false
	}
	return c.Unload(e.handle)
}

// Get returns the value for h and promotes it without changing its
// reference count.
func (c *Cache[V]) Get(h Handle) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.byHandle[h]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.moveToFront(&e.node)
	return e.res.v, true
}

// RefCount returns the reference count of key, or 0 if absent.
func (c *Cache[V]) RefCount(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.refs
	}
	return 0
}

// Contains reports whether key is cached.
func (c *Cache[V]) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.len()
}

// Max returns the soft entry limit.
func (c *Cache[V]) Max() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.max
}

// SetMax changes the soft limit and evicts unreferenced entries that no
// longer fit.
func (c *Cache[V]) SetMax(max int) {
	if max <= 0 {
		max = DefaultMax
	}
	c.mu.Lock()
	c.max = max
	victims := c.evictLocked(max)
	c.mu.Unlock()
	c.releaseAll(victims)
}

// Keys returns the cached keys, most recently used first.
func (c *Cache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, c.order.len())
	c.order.each(func(e *entry[V]) bool {
		keys = append(keys, e.key)
		return true
	})
	return keys
}

// Each calls fn for every entry, most recently used first, with the cache
// lock held. fn must not call back into the cache.
func (c *Cache[V]) Each(fn func(key string, h Handle, v V) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.each(func(e *entry[V]) bool { return fn(e.key, e.handle, e.res.v) })
}

// Stats reports cache activity.
type Stats struct {
	Entries   int
	Max       int
	Evictions int
	Overflows int
}

// Stats returns a snapshot of cache counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Entries: c.order.len(), Max: c.max, Evictions: c.evictions, Overflows: c.overflows}
}

// SetRetainIdle selects what Unload does when a count reaches zero: release
// immediately (the default) or keep the entry as an eviction candidate.
func (c *Cache[V]) SetRetainIdle(retain bool) {
	c.mu.Lock()
	c.retainIdle = retain
	var victims []*entry[V]
	if !retain {
		for _, e := range c.entries {
			if e.refs == 0 {
				victims = append(victims, e)
			}
		}
		for _, e := range victims {
			c.detachLocked(e)
		}
	}
	c.mu.Unlock()
	c.releaseAll(victims)
}

// Close releases every entry regardless of reference count. Later Loads
// fail with ErrClosed; Unload and Get become no-ops.
func (c *Cache[V]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	var victims []*entry[V]
	for _, e := range c.entries {
		victims = append(victims, e)
	}
	for _, e := range victims {
		c.detachLocked(e)
	}
	c.mu.Unlock()
	c.releaseAll(victims)
}
