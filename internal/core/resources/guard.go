package resources

// ReadGuard grants shared read access to a resource of type R until
// released. Guards must not be copied.
type ReadGuard[R any] struct {
	e        *entry
	v        *R
	released bool
}

// Value returns the guarded resource. The pointer must not be retained
// past Release.
func (g *ReadGuard[R]) Value() *R {
	return g.v
}

// Release drops the read lock. Releasing twice is a no-op.
func (g *ReadGuard[R]) Release() {
	if g.released {
		return
	}
	g.released = true
	g.e.mu.RUnlock()
}

// WriteGuard grants exclusive access to a resource of type R until
// released. Guards must not be copied.
type WriteGuard[R any] struct {
	e        *entry
	v        *R
	released bool
}

// Value returns the guarded resource for mutation. The pointer must not be
// retained past Release.
func (g *WriteGuard[R]) Value() *R {
	return g.v
}

// Release drops the write lock. Releasing twice is a no-op.
func (g *WriteGuard[R]) Release() {
	if g.released {
		return
	}
	g.released = true
	g.e.mu.Unlock()
}
