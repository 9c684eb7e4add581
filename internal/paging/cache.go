package paging

import (
	"container/list"

	"github.com/02loveslollipop/tswater/internal/codec"
)

type cacheEntry struct {
	key  int
	rows []codec.RawRow
}

// WindowCache maps window keys to fetched raw rows. With a positive limit the
// least recently used window is evicted once the limit is exceeded; a zero
// limit keeps every window until Clear.
type WindowCache struct {
	limit   int
	order   *list.List
	entries map[int]*list.Element
}

// NewWindowCache creates an empty cache.
func NewWindowCache(limit int) *WindowCache {
	if limit < 0 {
		limit = 0
	}
	return &WindowCache{
		limit:   limit,
		order:   list.New(),
		entries: make(map[int]*list.Element),
	}
}

// Get returns the rows cached under key.
func (c *WindowCache) Get(key int) ([]codec.RawRow, bool) {
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).rows, true
}

// Put stores rows under key, replacing any previous entry.
func (c *WindowCache) Put(key int, rows []codec.RawRow) {
	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).rows = rows
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, rows: rows})
	if c.limit > 0 && c.order.Len() > c.limit {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

// Clear drops every entry.
func (c *WindowCache) Clear() {
	c.order.Init()
	clear(c.entries)
}

// Len returns the number of cached windows.
func (c *WindowCache) Len() int {
	return c.order.Len()
}
