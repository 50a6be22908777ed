package store

import "sync/atomic"

// Latest is a concurrency-safe single-slot cache holding the most recently
// published value. It keeps no history: a Set that is not observed before the
// next Set is overwritten. A channel would deliver every intermediate value
// instead, at the cost of readers draining a backlog of stale readings.
//
// Readers never wait on the writer. Each Set publishes a private copy of the
// value through an atomic pointer swap, so a concurrent Get observes either the
// previous value or the new one, never a mixture of both.
//
// A *Latest is a handle: copies of the pointer share the same slot.
type Latest[T any] struct {
	slot atomic.Pointer[T]
}

// NewLatest creates an empty store.
func NewLatest[T any]() *Latest[T] {
	return &Latest[T]{}
}

// Set replaces the slot's contents with v.
func (l *Latest[T]) Set(v T) {
	l.slot.Store(&v)
}

// Get returns a copy of the current value. ok is false if nothing has been
// published yet.
func (l *Latest[T]) Get() (v T, ok bool) {
	p := l.slot.Load()
	if p == nil {
		return v, false
	}
	return *p, true
}

// Reset empties the slot.
func (l *Latest[T]) Reset() {
	l.slot.Store(nil)
}
