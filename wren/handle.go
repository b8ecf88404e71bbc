package wren

import (
	"sync/atomic"

	"github.com/wippyai/wrenit/errors"
)

// Handle keeps a Wren value alive until released.
type Handle struct {
	s        *vmState
	ptr      Ptr
	released atomic.Bool
}

// Alive reports whether the handle is still usable.
func (h *Handle) Alive() bool {
	return h != nil && !h.released.Load() && h.s != nil && !h.s.closed.Load()
}

// Ptr returns the native handle address.
func (h *Handle) Ptr() Ptr {
	if h == nil {
		return 0
	}
	return h.ptr
}

// Release frees the native handle. Releasing twice is a no-op.
func (h *Handle) Release() error {
	if h == nil || h.released.Load() {
		return nil
	}
	if _, ok := h.s.handles.Detach(h.ptr); !ok {
		h.released.Store(true)
		return nil
	}
	if !h.s.closed.Load() {
		h.s.engine.ReleaseHandle(h.s.ptr, h.ptr)
	}
	h.released.Store(true)
	return nil
}

// Drop invalidates the handle without touching the native VM. It runs when
// the owning VM tears down its handle table.
func (h *Handle) Drop() {
	h.released.Store(true)
}

func (h *Handle) check(s *vmState) error {
	if h == nil || !h.Alive() {
		return errors.Disposed(errors.PhaseRuntime, "handle")
	}
	if h.s != s {
		return errors.InvalidOperation(errors.PhaseRuntime, "handle belongs to another vm")
	}
	return nil
}

// CallHandle is a handle to a method signature, used with VM.Call.
type CallHandle struct {
	Handle
	signature string
}

// Signature returns the binding signature the handle calls.
func (h *CallHandle) Signature() string {
	return h.signature
}

func (h *CallHandle) check(s *vmState) error {
	if h == nil {
		return errors.Disposed(errors.PhaseRuntime, "call handle")
	}
	return h.Handle.check(s)
}
