package rates

import (
	"container/list"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Key identifies a cached rate.
type Key struct {
	Date string // yyyy-mm-dd
	Code string
}

// NewKey builds the cache key for date and code.
func NewKey(date time.Time, code string) Key {
	return Key{Date: date.Format(time.DateOnly), Code: code}
}

type cacheEntry struct {
	key  Key
	rate decimal.Decimal
}

// Cache is a fixed-capacity LRU of resolved rates.
// Historical rates never change, so entries are never invalidated, only evicted.
// A capacity <= 0 disables eviction.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[Key]*list.Element

	hits, misses, evictions int64
}

// NewCache creates a cache holding at most capacity entries.
func NewCache(capacity int) *Cache {
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[Key]*list.Element),
	}
}

// Get returns the cached rate for key.
func (c *Cache) Get(key Key) (decimal.Decimal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		return decimal.Zero, false
	}
	c.hits++
	c.ll.MoveToFront(el)
	return el.Value.(*cacheEntry).rate, true
}

// Add stores rate under key, evicting the least recently used entry when full.
func (c *Cache) Add(key Key, rate decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		el.Value.(*cacheEntry).rate = rate
		return
	}

	c.items[key] = c.ll.PushFront(&cacheEntry{key: key, rate: rate})

	if c.capacity > 0 && c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
		c.evictions++
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// CacheStats holds cache counters.
type CacheStats struct {
	Entries   int
	Hits      int64
	Misses    int64
	Evictions int64
}

// Stats returns current counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Entries:   c.ll.Len(),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}
