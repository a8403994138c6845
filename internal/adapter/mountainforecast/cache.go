package mountainforecast

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ElevationLister returns the per-elevation forecast URLs of a mountain page.
type ElevationLister interface {
	ElevationURLs(ctx context.Context, pageURL string) ([]string, error)
}

// CachedElevations wraps an ElevationLister with an in-memory LRU cache so
// scheduled runs do not re-discover elevations every time.
type CachedElevations struct {
	inner   ElevationLister
	cache   *lruCache
	lookups *prometheus.CounterVec // labels: result={hit,miss}; may be nil
}

// NewCachedElevations creates a cache decorator around an ElevationLister.
func NewCachedElevations(inner ElevationLister, maxEntries int, lookups *prometheus.CounterVec) *CachedElevations {
	return &CachedElevations{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		lookups: lookups,
	}
}

func (c *CachedElevations) ElevationURLs(ctx context.Context, pageURL string) ([]string, error) {
	if urls, ok := c.cache.get(pageURL); ok {
		c.observe("hit")
		return urls, nil
	}
	c.observe("miss")

	urls, err := c.inner.ElevationURLs(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	// Only cache non-empty results so a page served without the list is retried.
	if len(urls) > 0 {
		c.cache.put(pageURL, urls)
	}
	return urls, nil
}

func (c *CachedElevations) observe(result string) {
	if c.lookups != nil {
		c.lookups.WithLabelValues(result).Inc()
	}
}

// lruCache is a simple thread-safe LRU cache of URL lists.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value []string
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value []string) {
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
