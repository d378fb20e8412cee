package assets

import (
	sc "sync"
)

// cell holds one boxed asset together with its own rw-lock. Cells are
// shared-owned: the store's slot table references them, and so does every
// guard checked out to a caller. The store's map lock protects only the
// slot table, never a cell's contents, so a guard stays valid while the
// map is mutated, resized, or even while the entry is detached.
type cell struct {
	mu sc.RWMutex

	// value is always a pointer to the inserted asset (*A for Insert[A]).
	value any
}

func newCell(boxed any) *cell {
	return &cell{value: boxed}
}

// ReadGuard grants shared read access to an asset of type A. The per-cell
// read lock is held until Release is called. Guards must not be copied.
type ReadGuard[A any] struct {
	c        *cell
	v        *A
	released bool
}

// Value returns the guarded asset. The pointer must not be retained past
// Release.
func (g *ReadGuard[A]) Value() *A {
	return g.v
}

// Release drops the read lock. Releasing twice is a no-op.
func (g *ReadGuard[A]) Release() {
	if g.released {
		return
	}
	g.released = true
	g.c.mu.RUnlock()
}

// WriteGuard grants exclusive write access to an asset of type A. The
// per-cell write lock is held until Release is called. Guards must not be
// copied.
type WriteGuard[A any] struct {
	c        *cell
	v        *A
	released bool
}

// Value returns the guarded asset for mutation. The pointer must not be
// retained past Release.
func (g *WriteGuard[A]) Value() *A {
	return g.v
}

// Release drops the write lock. Releasing twice is a no-op.
func (g *WriteGuard[A]) Release() {
	if g.released {
		return
	}
	g.released = true
	g.c.mu.Unlock()
}

// DynamicGuard grants shared read access to an asset without recovering
// its concrete type. Used when the asset is only handed onward to a
// polymorphic operation such as whole-store serialization.
type DynamicGuard struct {
	c        *cell
	released bool
}

// Value returns the boxed asset as stored (a pointer to the concrete type).
func (g *DynamicGuard) Value() any {
	return g.c.value
}

// Release drops the read lock. Releasing twice is a no-op.
func (g *DynamicGuard) Release() {
	if g.released {
		return
	}
	g.released = true
	g.c.mu.RUnlock()
}
