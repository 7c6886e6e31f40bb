package geocoder

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

type CachedOption func(*Cached)

// WithCacheObserver registers a callback for every lookup, reporting the
// method ("forward" or "reverse") and whether it hit the cache.
func WithCacheObserver(fn func(method string, hit bool)) CachedOption {
	return func(c *Cached) { c.observe = fn }
}

// Cached wraps a Geocoder with a bounded in-memory LRU cache. A hit
// short-circuits the provider call entirely. "Not found" and transport
// errors are never cached so transient failures can be retried.
type Cached struct {
	inner   Geocoder
	cache   *lruCache
	observe func(method string, hit bool)
}

func NewCached(inner Geocoder, maxEntries int, opts ...CachedOption) *Cached {
	c := &Cached{
		inner: inner,
		cache: newLRUCache(maxEntries),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NormalizeQuery produces the cache key form of a free-text query.
func NormalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

func (c *Cached) Geocode(ctx context.Context, query string) (Result, error) {
	key := "fwd:" + NormalizeQuery(query)
	if r, ok := c.cache.get(key); ok {
		c.report("forward", true)
		return r, nil
	}
	c.report("forward", false)
	r, err := c.inner.Geocode(ctx, query)
	if err != nil {
		return r, err
	}
	c.cache.put(key, r)
	return r, nil
}

func (c *Cached) ReverseGeocode(ctx context.Context, lat, lon float64) (Result, error) {
	key := fmt.Sprintf("rev:%.6f,%.6f", lat, lon)
	if r, ok := c.cache.get(key); ok {
		c.report("reverse", true)
		return r, nil
	}
	c.report("reverse", false)
	r, err := c.inner.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return r, err
	}
	c.cache.put(key, r)
	return r, nil
}

func (c *Cached) report(method string, hit bool) {
	if c.observe != nil {
		c.observe(method, hit)
	}
}

// lruCache is a small thread-safe LRU over a doubly linked list.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value Result
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Result{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
