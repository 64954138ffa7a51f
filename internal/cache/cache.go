// Package cache keeps the in-memory snapshot of one entity collection that
// presentation code reads synchronously.
package cache

import (
	"sync"

	"github.com/ahmetcoskunkizilkaya/donezo/internal/domain"
)

// Cache is an ordered, id-indexed set of records. It never holds two records
// with the same id and keeps no history. Safe for concurrent use.
type Cache[T domain.Entity[T]] struct {
	mu      sync.RWMutex
	items   []T
	index   map[string]int
	prepend bool
}

// New returns an empty cache. With prepend set, records whose id is new are
// inserted at the front ("recently created first"), otherwise at the back.
func New[T domain.Entity[T]](prepend bool) *Cache[T] {
	return &Cache[T]{index: make(map[string]int), prepend: prepend}
}

// ReplaceAll overwrites the whole collection. Later duplicates win.
func (c *Cache[T]) ReplaceAll(entities []T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make([]T, 0, len(entities))
	c.index = make(map[string]int, len(entities))
	for _, e := range entities {
		if i, ok := c.index[e.GetID()]; ok {
			c.items[i] = e.Clone()
			continue
		}
		c.index[e.GetID()] = len(c.items)
		c.items = append(c.items, e.Clone())
	}
}

// Upsert overwrites the record with the same id in place or inserts it.
func (c *Cache[T]) Upsert(e T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i, ok := c.index[e.GetID()]; ok {
		c.items[i] = e.Clone()
		return
	}
	if c.prepend {
		c.insertLocked(0, e)
	} else {
		c.insertLocked(len(c.items), e)
	}
}

// InsertAt puts e at position pos (clamped). An existing record with the same
// id is removed first.
func (c *Cache[T]) InsertAt(pos int, e T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.index[e.GetID()]; ok {
		c.removeLocked(e.GetID())
	}
	c.insertLocked(pos, e)
}

// Replace swaps the record oldID for e at the same position. It returns false
// and changes nothing when oldID is absent.
func (c *Cache[T]) Replace(oldID string, e T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[oldID]
	if !ok {
		return false
	}
	if oldID != e.GetID() {
		if _, dup := c.index[e.GetID()]; dup {
			c.removeLocked(e.GetID())
			i = c.index[oldID]
		}
		delete(c.index, oldID)
		c.index[e.GetID()] = i
	}
	c.items[i] = e.Clone()
	return true
}

// Patch applies fn to the record with the given id. It is a no-op returning
// false when the id is absent.
func (c *Cache[T]) Patch(id string, fn func(*T)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[id]
	if !ok {
		return false
	}
	next := c.items[i].Clone()
	fn(&next)
	if next.GetID() != id {
		// the id is the key; patches must not move records
		return false
	}
	c.items[i] = next
	return true
}

// Remove deletes the record and reports it with its former position.
func (c *Cache[T]) Remove(id string) (T, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[id]
	if !ok {
		var zero T
		return zero, -1, false
	}
	e := c.items[i]
	c.removeLocked(id)
	return e, i, true
}

func (c *Cache[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[id]
	if !ok {
		var zero T
		return zero, false
	}
	return c.items[i].Clone(), true
}

func (c *Cache[T]) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.index[id]
	return ok
}

// All returns a copy of the snapshot in display order.
func (c *Cache[T]) All() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]T, len(c.items))
	for i, e := range c.items {
		out[i] = e.Clone()
	}
	return out
}

func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.index = make(map[string]int)
}

func (c *Cache[T]) insertLocked(pos int, e T) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(c.items) {
		pos = len(c.items)
	}
	var zero T
	c.items = append(c.items, zero)
	copy(c.items[pos+1:], c.items[pos:])
	c.items[pos] = e.Clone()
	c.reindexLocked(pos)
}

func (c *Cache[T]) removeLocked(id string) {
	i := c.index[id]
	c.items = append(c.items[:i], c.items[i+1:]...)
	delete(c.index, id)
	c.reindexLocked(i)
}

func (c *Cache[T]) reindexLocked(from int) {
	for j := from; j < len(c.items); j++ {
		c.index[c.items[j].GetID()] = j
	}
}
