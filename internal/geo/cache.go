package geo

import (
	"container/list"
	"sync"

	"github.com/hyperjump/geocluster/internal/metrics"
	"github.com/hyperjump/geocluster/internal/models"
)

// RecordCache is an LRU cache of fetched series records keyed by GSE accession.
type RecordCache struct {
	capacity int
	cache    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	key   string
	value models.Record
}

// NewRecordCache creates a new cache with the given capacity.
func NewRecordCache(capacity int) *RecordCache {
	return &RecordCache{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Get returns a copy of the cached record for key if present.
func (c *RecordCache) Get(key string) (models.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		metrics.GEOCacheTotal.WithLabelValues("hit").Inc()
		return elem.Value.(*cacheEntry).value, true
	}
	metrics.GEOCacheTotal.WithLabelValues("miss").Inc()
	return models.Record{}, false
}

// Set stores the record for key, evicting the oldest entry if at capacity.
func (c *RecordCache) Set(key string, value models.Record) {
	if c.capacity <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}

	entry := &cacheEntry{key: key, value: value}
	elem := c.lru.PushFront(entry)
	c.cache[key] = elem

	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Len returns the number of cached records.
func (c *RecordCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
