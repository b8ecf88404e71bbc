package resource

import (
	"reflect"
	"sync"
)

// observers is the subscriber list shared by Table and Arena.
type observers struct {
	list []Observer
	mu   sync.RWMutex
}

// Subscribe adds an observer for lifecycle events.
func (o *observers) Subscribe(obs Observer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.list = append(o.list, obs)
}

// Unsubscribe removes an observer. Observers whose dynamic type is not
// comparable cannot be found again; subscribe a pointer to unsubscribe later.
func (o *observers) Unsubscribe(obs Observer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, cur := range o.list {
		if Same(cur, obs) {
			o.list = append(o.list[:i], o.list[i+1:]...)
			return
		}
	}
}

func (o *observers) notify(e Event) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, obs := range o.list {
		obs.OnResourceEvent(e)
	}
}

// Same reports whether a and b hold the same comparable value. Values of
// different or non-comparable dynamic types are never the same, so
// comparing them cannot panic.
func Same(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() || !va.Comparable() || !vb.Comparable() {
		return false
	}
	return a == b
}
