// Package assets implements the engine's generic asset storage: arbitrary
// runtime objects held behind stable handles, with per-asset locking,
// runtime type recovery, and lossless snapshot serialization through a
// process-wide type registry.
package assets

import (
	"reflect"
	sc "sync"

	"github.com/google/uuid"
)

// Store is a concurrent, type-erased asset container. Assets of arbitrary
// type are inserted and addressed through stable, copyable Handle values.
//
// Two locking layers keep contention fine-grained: the store's own rw-lock
// guards the slot table and is held only for the O(1) duration of an
// insert, remove, or lookup; every asset lives in its own independently
// locked cell, so access to unrelated assets never serializes. Asset lock
// attempts never block: a contended cell fails fast with ErrAssetBlocked
// and the caller decides whether to retry on a later tick.
type Store struct {
	mu sc.RWMutex

	id    uuid.UUID
	slots []slot
	free  []uint32
	count int
}

// slot binds a generation counter to a cell. A nil cell marks a free slot;
// the generation advances on removal so stale handles never resolve again.
type slot struct {
	generation uint32
	cell       *cell
}

// NewStore creates an empty asset store with a fresh instance ID.
func NewStore() *Store {
	return &Store{id: uuid.New()}
}

// ID returns the store's instance ID. Handles are only meaningful for the
// store instance that produced them; the ID is stamped into snapshots so
// cross-store handle misuse stays detectable.
func (s *Store) ID() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// Len returns the number of live assets.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Handles returns the handles of all live assets, ordered by slot.
func (s *Store) Handles() []Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	handles := make([]Handle, 0, s.count)
	for i := range s.slots {
		if s.slots[i].cell != nil {
			handles = append(handles, Handle{Slot: uint32(i), Generation: s.slots[i].generation})
		}
	}
	return handles
}

// lookup resolves a handle to its cell. The returned cell pointer stays
// valid after the map lock is released; guards own it independently.
func (s *Store) lookup(h Handle) (*cell, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if int(h.Slot) >= len(s.slots) {
		return nil, false
	}
	sl := s.slots[h.Slot]
	if sl.cell == nil || sl.generation != h.Generation {
		return nil, false
	}
	return sl.cell, true
}

// Insert stores an asset and returns a fresh handle for it. Insert never
// fails; types that should survive persistence must be registered with
// Register, which is checked at serialization time, not here.
func Insert[A any](s *Store, asset A) Handle {
	c := newCell(&asset)

	s.mu.Lock()
	defer s.mu.Unlock()

	var idx uint32
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
		s.slots[idx].cell = c
	} else {
		idx = uint32(len(s.slots))
		s.slots = append(s.slots, slot{generation: 1, cell: c})
	}
	s.count++

	return Handle{Slot: idx, Generation: s.slots[idx].generation}
}

// Get looks up an asset for shared read access.
//
// Failure modes, in priority order: ErrInvalidHandle when the handle does
// not resolve to a live asset, ErrAssetBlocked when a writer currently
// holds the cell (the call fails fast instead of stalling the caller's
// frame), and a *TypeError matching ErrWrongAssetType when the stored
// asset is not of type A.
func Get[A any](s *Store, h Handle) (*ReadGuard[A], error) {
	c, ok := s.lookup(h)
	if !ok {
		return nil, ErrInvalidHandle
	}
	if !c.mu.TryRLock() {
		return nil, ErrAssetBlocked
	}
	v, ok := c.value.(*A)
	if !ok {
		c.mu.RUnlock()
		return nil, &TypeError{AssetType: typeName[A]()}
	}
	return &ReadGuard[A]{c: c, v: v}, nil
}

// GetMut looks up an asset for exclusive write access. Same contract and
// failure modes as Get, with a non-blocking write-lock attempt.
func GetMut[A any](s *Store, h Handle) (*WriteGuard[A], error) {
	c, ok := s.lookup(h)
	if !ok {
		return nil, ErrInvalidHandle
	}
	if !c.mu.TryLock() {
		return nil, ErrAssetBlocked
	}
	v, ok := c.value.(*A)
	if !ok {
		c.mu.Unlock()
		return nil, &TypeError{AssetType: typeName[A]()}
	}
	return &WriteGuard[A]{c: c, v: v}, nil
}

// GetDynamic looks up an asset for shared read access without recovering
// its concrete type.
func (s *Store) GetDynamic(h Handle) (*DynamicGuard, error) {
	c, ok := s.lookup(h)
	if !ok {
		return nil, ErrInvalidHandle
	}
	if !c.mu.TryRLock() {
		return nil, ErrAssetBlocked
	}
	return &DynamicGuard{c: c}, nil
}

// Remove detaches an asset and returns ownership of its value. It succeeds
// only when the handle is live, the stored asset has type A, and exclusive
// access to the cell can be established immediately; otherwise it reports
// false and leaves the store unchanged. Callers that need to distinguish
// the failure cause should probe with GetMut first.
func Remove[A any](s *Store, h Handle) (A, bool) {
	var zero A

	s.mu.Lock()
	defer s.mu.Unlock()

	if int(h.Slot) >= len(s.slots) {
		return zero, false
	}
	sl := &s.slots[h.Slot]
	if sl.cell == nil || sl.generation != h.Generation {
		return zero, false
	}

	c := sl.cell
	if !c.mu.TryLock() {
		// A guard is still checked out; fail instead of fabricating a value.
		return zero, false
	}
	v, ok := c.value.(*A)
	if !ok {
		c.mu.Unlock()
		return zero, false
	}

	sl.cell = nil
	sl.generation++
	s.free = append(s.free, h.Slot)
	s.count--
	c.mu.Unlock()

	return *v, true
}

func typeName[A any]() string {
	return reflect.TypeOf((*A)(nil)).Elem().String()
}
