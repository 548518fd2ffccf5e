package services

import (
	"container/list"
	"sync"

	"github.com/vsinha/forecast-recon/pkg/application/dto"
	"github.com/vsinha/forecast-recon/pkg/infrastructure/events"
)

// DefaultCacheEntries bounds the query cache when no size is configured
const DefaultCacheEntries = 128

type cacheKey struct {
	version     string
	fingerprint string
}

type cacheEntry struct {
	key    cacheKey
	result *dto.QueryResult
}

// QueryCache memoizes query results per (dataset version, query fingerprint).
// The least recently used entry is evicted when the cache is full. Results are
// copied on the way in and out, so callers own what they get.
type QueryCache struct {
	mu      sync.Mutex
	max     int
	order   *list.List
	entries map[cacheKey]*list.Element
	hits    int
	misses  int
}

// NewQueryCache creates a cache holding at most maxEntries results.
// maxEntries < 0 disables caching, 0 selects DefaultCacheEntries.
func NewQueryCache(maxEntries int) *QueryCache {
	if maxEntries == 0 {
		maxEntries = DefaultCacheEntries
	}
	return &QueryCache{
		max:     maxEntries,
		order:   list.New(),
		entries: make(map[cacheKey]*list.Element),
	}
}

// Get returns the cached result for the query on the given dataset version
func (c *QueryCache) Get(version, fingerprint string) (*dto.QueryResult, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[cacheKey{version, fingerprint}]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(elem)
	return elem.Value.(*cacheEntry).result.Clone(), true
}

// Put stores a result, evicting the least recently used entry when full
func (c *QueryCache) Put(version, fingerprint string, result *dto.QueryResult) {
	if c == nil || c.max < 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	result = result.Clone()
	key := cacheKey{version, fingerprint}
	if elem, ok := c.entries[key]; ok {
		elem.Value.(*cacheEntry).result = result
		c.order.MoveToFront(elem)
		return
	}
	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, result: result})
	for c.order.Len() > c.max {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

// Invalidate drops every cached result
func (c *QueryCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.entries = make(map[cacheKey]*list.Element)
}

// Len returns the number of cached results
func (c *QueryCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns the hit and miss counters
func (c *QueryCache) Stats() (hits, misses int) {
	if c == nil {
		return 0, 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Handle invalidates the cache when a new dataset is loaded
func (c *QueryCache) Handle(event events.Event) error {
	if event.Type == events.DatasetLoadedEvent {
		c.Invalidate()
	}
	return nil
}

// CanHandle reports interest in dataset load events only
func (c *QueryCache) CanHandle(eventType string) bool {
	return eventType == events.DatasetLoadedEvent
}

var _ events.EventHandler = (*QueryCache)(nil)
