package resource

import (
	"sync"
)

// Arena issues host-side handles for values that native code only ever sees
// as opaque user data. Freed slots are reused with a bumped generation, so a
// handle that outlived its value never resolves to the slot's next occupant.
type Arena[V any] struct {
	observers
	slots []slot[V]
	free  []uint32
	ns    Namespace
	live  int
	mu    sync.RWMutex

	closed bool
}

type slot[V any] struct {
	value V
	gen   uint32
	live  bool
}

// NewArena creates an empty arena for the given namespace.
func NewArena[V any](ns Namespace) *Arena[V] {
	return &Arena[V]{
		slots: make([]slot[V], 0, 16),
		free:  make([]uint32, 0, 8),
		ns:    ns,
	}
}

// Namespace returns the namespace the arena was created for.
func (a *Arena[V]) Namespace() Namespace {
	return a.ns
}

// Insert stores v and returns its handle.
func (a *Arena[V]) Insert(v V) (Handle, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return 0, ErrClosed
	}

	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot[V]{})
		idx = uint32(len(a.slots) - 1)
	}

	s := &a.slots[idx]
	s.gen++
	s.value = v
	s.live = true
	a.live++
	h := makeHandle(idx, s.gen)
	a.mu.Unlock()

	a.notify(Event{Type: EventCreated, Namespace: a.ns, Key: h, Value: v})
	return h, nil
}

// Get returns the value for h if the handle is still current.
func (a *Arena[V]) Get(h Handle) (V, bool) {
	var zero V
	if h == 0 {
		return zero, false
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	idx := h.Index()
	if int(idx) >= len(a.slots) {
		return zero, false
	}
	s := a.slots[idx]
	if !s.live || s.gen != h.Generation() {
		return zero, false
	}
	return s.value, true
}

// Remove frees the slot of h and drops its value.
// Removing a stale or unknown handle is a no-op.
func (a *Arena[V]) Remove(h Handle) (V, bool) {
	var zero V
	if h == 0 {
		return zero, false
	}

	a.mu.Lock()
	idx := h.Index()
	if int(idx) >= len(a.slots) {
		a.mu.Unlock()
		return zero, false
	}
	s := &a.slots[idx]
	if !s.live || s.gen != h.Generation() {
		a.mu.Unlock()
		return zero, false
	}
	v := s.value
	s.value = zero
	s.live = false
	a.live--
	a.free = append(a.free, idx)
	a.mu.Unlock()

	drop(v)
	a.notify(Event{Type: EventDropped, Namespace: a.ns, Key: h, Value: v})
	return v, true
}

// Len returns the number of live values.
func (a *Arena[V]) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.live
}

// Each iterates over a snapshot of the live values until fn returns false.
func (a *Arena[V]) Each(fn func(Handle, V) bool) {
	for _, h := range a.handles() {
		v, ok := a.Get(h)
		if !ok {
			continue
		}
		if !fn(h, v) {
			return
		}
	}
}

func (a *Arena[V]) handles() []Handle {
	a.mu.RLock()
	defer a.mu.RUnlock()
	hs := make([]Handle, 0, a.live)
	for i, s := range a.slots {
		if s.live {
			hs = append(hs, makeHandle(uint32(i), s.gen))
		}
	}
	return hs
}

// Clear removes every live value.
func (a *Arena[V]) Clear() {
	for _, h := range a.handles() {
		a.Remove(h)
	}
}

// Close clears the arena and rejects further inserts.
func (a *Arena[V]) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	a.Clear()
	return nil
}
