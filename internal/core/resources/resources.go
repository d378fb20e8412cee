// Package resources holds process-wide engine singletons keyed by type
// identity: at most one instance per type, each in its own independently
// locked cell. It shares the asset store's fail-fast concurrency design
// but has no handle indirection.
package resources

import (
	"errors"
	"reflect"
	sc "sync"

	"github.com/pyrelight/pyrelight/internal/core/observability/log"
)

// Core resource errors
var (
	ErrResourceNotFound = errors.New("requested resource is not registered")
	ErrResourceBlocked  = errors.New("requested resource's rw-lock is blocked")
)

// Registry maps a type to its single registered instance. It is an
// explicit object passed through the application's composition root; there
// is deliberately no package-level default, so lifecycle and test
// isolation stay controllable.
type Registry struct {
	mu  sc.RWMutex
	res map[reflect.Type]*entry
	log log.Log
}

// entry is one resource with its own rw-lock. As with asset cells, the
// registry's map lock protects only the index; guards own the entry
// independently.
type entry struct {
	mu    sc.RWMutex
	value any
}

// NewRegistry creates an empty resource registry. Duplicate registrations
// are reported through the given logger.
func NewRegistry(l log.Log) *Registry {
	return &Registry{
		res: make(map[reflect.Type]*entry),
		log: l,
	}
}

// Len returns the number of registered resources.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.res)
}

func (r *Registry) lookup(rt reflect.Type) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.res[rt]
	return e, ok
}

// Add registers a resource instance for type R. Registration is expected
// to happen at most once per type during setup; a second registration is a
// configuration bug worth surfacing but not worth aborting over, so it is
// logged, skipped, and reported as false. The first instance stays in
// place.
func Add[R any](r *Registry, resource R) bool {
	rt := reflect.TypeOf((*R)(nil)).Elem()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.res[rt]; exists {
		r.log.Warn("resource already registered, keeping first instance",
			log.String("resource", rt.String()),
		)
		return false
	}
	r.res[rt] = &entry{value: &resource}
	return true
}

// Get looks up the resource of type R for shared read access. Fails fast
// with ErrResourceBlocked when a writer holds the entry.
func Get[R any](r *Registry) (*ReadGuard[R], error) {
	e, ok := r.lookup(reflect.TypeOf((*R)(nil)).Elem())
	if !ok {
		return nil, ErrResourceNotFound
	}
	if !e.mu.TryRLock() {
		return nil, ErrResourceBlocked
	}
	return &ReadGuard[R]{e: e, v: e.value.(*R)}, nil
}

// GetMut looks up the resource of type R for exclusive write access. Same
// contract as Get with a non-blocking write-lock attempt.
func GetMut[R any](r *Registry) (*WriteGuard[R], error) {
	e, ok := r.lookup(reflect.TypeOf((*R)(nil)).Elem())
	if !ok {
		return nil, ErrResourceNotFound
	}
	if !e.mu.TryLock() {
		return nil, ErrResourceBlocked
	}
	return &WriteGuard[R]{e: e, v: e.value.(*R)}, nil
}

// Remove unregisters the resource of type R and returns ownership of its
// value. Like the asset store's Remove, it fails when exclusive access
// cannot be established immediately.
func Remove[R any](r *Registry) (R, bool) {
	var zero R
	rt := reflect.TypeOf((*R)(nil)).Elem()

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.res[rt]
	if !ok {
		return zero, false
	}
	if !e.mu.TryLock() {
		return zero, false
	}
	delete(r.res, rt)
	v := e.value.(*R)
	e.mu.Unlock()

	return *v, true
}
