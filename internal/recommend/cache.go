package recommend

import (
	"container/list"
	"sync"
)

// resultCache is an LRU of recommendation results keyed by query. Each entry remembers
// the model that produced it and is only returned for that same model, so a reload
// invalidates every entry without a purge.
type resultCache struct {
	capacity int
	entries  map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	query string
	model *Model
	res   *Result
}

func newResultCache(capacity int) *resultCache {
	return &resultCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// get returns a private copy of the cached result for query computed by m.
func (c *resultCache) get(m *Model, query string) (*Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[query]
	if !ok {
		return nil, false
	}
	e := elem.Value.(*cacheEntry)
	if e.model != m {
		c.lru.Remove(elem)
		delete(c.entries, query)
		return nil, false
	}
	c.lru.MoveToFront(elem)
	return e.res.clone(), true
}

// set stores a copy of res for query, evicting the least recently used entry at capacity.
func (c *resultCache) set(m *Model, query string, res *Result) {
	res = res.clone()
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[query]; ok {
		c.lru.MoveToFront(elem)
		e := elem.Value.(*cacheEntry)
		e.model, e.res = m, res
		return
	}
	c.entries[query] = c.lru.PushFront(&cacheEntry{query: query, model: m, res: res})
	if c.lru.Len() > c.capacity {
		if oldest := c.lru.Back(); oldest != nil {
			c.lru.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).query)
		}
	}
}

func (c *resultCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
