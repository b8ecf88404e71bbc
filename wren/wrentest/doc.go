// Package wrentest provides an in-memory wren.Engine for tests.
//
// The engine interprets a small subset of Wren: module-level var, import and
// class statements, foreign member declarations, calls, operators, lists and
// the System print methods. Script-defined method bodies are parsed past but
// never run. Foreign classes, handles, slots and garbage collection follow the
// native engine closely enough to exercise host bindings end to end:
//
//	eng := wrentest.New()
//	vm, err := wren.New(eng, cfg)
//
// Foreign block addresses are handed out from a free list, so a collected
// object's address is reused by the next allocation.
package wrentest
