package resource

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("resource table closed")

// Table maps keys handed out by the native side (addresses, pointers) to host
// values. Keys may be recycled by the native allocator: registering a key
// that is still present drops the stale value before storing the new one.
type Table[K comparable, V any] struct {
	observers
	entries map[K]V
	ns      Namespace
	mu      sync.RWMutex
	closed  bool
}

// NewTable creates an empty table for the given namespace.
func NewTable[K comparable, V any](ns Namespace) *Table[K, V] {
	return &Table[K, V]{
		entries: make(map[K]V),
		ns:      ns,
	}
}

// Namespace returns the namespace the table was created for.
func (t *Table[K, V]) Namespace() Namespace {
	return t.ns
}

// Register stores v under k. A stale value already stored under k is
// dropped and reported with EventReplaced before EventCreated fires for v.
func (t *Table[K, V]) Register(k K, v V) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	stale, replaced := t.entries[k]
	t.entries[k] = v
	t.mu.Unlock()

	if replaced {
		drop(stale)
		t.notify(Event{Type: EventReplaced, Namespace: t.ns, Key: k, Value: stale})
	}
	t.notify(Event{Type: EventCreated, Namespace: t.ns, Key: k, Value: v})
	return nil
}

// Resolve returns the value stored under k. A miss is a normal outcome.
func (t *Table[K, V]) Resolve(k K) (V, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.entries[k]
	return v, ok
}

// Unregister removes and drops the value stored under k.
// Unregistering an absent key is a no-op.
func (t *Table[K, V]) Unregister(k K) (V, bool) {
	v, ok := t.Detach(k)
	if ok {
		drop(v)
	}
	return v, ok
}

// Detach removes the value stored under k without dropping it, leaving the
// caller responsible for invalidating it.
func (t *Table[K, V]) Detach(k K) (V, bool) {
	t.mu.Lock()
	v, ok := t.entries[k]
	if ok {
		delete(t.entries, k)
	}
	t.mu.Unlock()

	if ok {
		t.notify(Event{Type: EventDropped, Namespace: t.ns, Key: k, Value: v})
	}
	return v, ok
}

// Len returns the number of live entries.
func (t *Table[K, V]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Each iterates over a snapshot of the live entries until fn returns false.
func (t *Table[K, V]) Each(fn func(K, V) bool) {
	keys := t.Keys()
	for _, k := range keys {
		v, ok := t.Resolve(k)
		if !ok {
			continue
		}
		if !fn(k, v) {
			return
		}
	}
}

// Keys returns a snapshot of the live keys.
func (t *Table[K, V]) Keys() []K {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys := make([]K, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	return keys
}

// Clear unregisters every entry.
func (t *Table[K, V]) Clear() {
	// Collect keys first to avoid holding the lock while values are dropped
	for _, k := range t.Keys() {
		t.Unregister(k)
	}
}

// Close clears the table and rejects further registrations.
func (t *Table[K, V]) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	t.Clear()
	return nil
}
