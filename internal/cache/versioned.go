package cache

import "sync"

// Versioned drops its contents whenever the source revision moves, so a
// cached view never outlives the data it was computed from.
type Versioned[T any] struct {
	inner    Cache[T]
	revision func() uint64

	mu   sync.Mutex
	seen uint64
}

func NewVersioned[T any](inner Cache[T], revision func() uint64) *Versioned[T] {
	return &Versioned[T]{inner: inner, revision: revision, seen: revision()}
}

// GetOrLoad returns the cached value for key or computes, stores and
// returns it. hit reports whether the value came from the cache.
func (v *Versioned[T]) GetOrLoad(key string, load func() T) (value T, hit bool) {
	v.sync()
	if val, ok := v.inner.Get(key); ok {
		return val, true
	}
	val := load()
	// Only store if nothing changed while loading.
	if v.sync() {
		v.inner.Set(key, val)
	}
	return val, false
}

// sync purges on a revision change and reports whether the revision was
// already current.
func (v *Versioned[T]) sync() bool {
	rev := v.revision()
	v.mu.Lock()
	defer v.mu.Unlock()
	if rev == v.seen {
		return true
	}
	v.seen = rev
	v.inner.Purge()
	return false
}
