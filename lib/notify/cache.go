package notify

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Name Cache
// --------------------------------------------------------------------------

// NameCache is the write-through cache shared by store implementations for
// name-keyed entities (notification types, preference declarations). Saves
// must call Put (or Invalidate) with the written entity so readers never
// observe stale data. Cache state is never part of the public contract.
type NameCache[T any] struct {
	entries *xsync.MapOf[string, T]
}

// NewNameCache creates an empty cache.
func NewNameCache[T any]() *NameCache[T] {
	return &NameCache[T]{entries: xsync.NewMapOf[string, T]()}
}

// Get returns the cached entity for name.
func (c *NameCache[T]) Get(name string) (T, bool) {
	return c.entries.Load(name)
}

// Put stores the entity under name (write-through on save and on read-miss).
func (c *NameCache[T]) Put(name string, entity T) {
	c.entries.Store(name, entity)
}

// Invalidate drops the entry for name.
func (c *NameCache[T]) Invalidate(name string) {
	c.entries.Delete(name)
}
