// Package resource provides the handle and object tables that correlate
// native Wren pointers with host-side Go values.
//
// Wren calls back into the host with nothing more than an opaque pointer or a
// user-data word. This package holds the tables used to turn those back into
// Go objects.
//
// # Tables
//
// Table maps keys owned by the native side (VM addresses, handle addresses,
// foreign data blocks) to Go values:
//
//	objects := resource.NewTable[uint64, *Object](resource.NamespaceForeignObject)
//
//	objects.Register(addr, obj)      // replaces a stale entry at addr
//	obj, ok := objects.Resolve(addr) // a miss is not an error
//	objects.Unregister(addr)         // idempotent
//
// Native allocators recycle freed addresses. Registering a key that is still
// present drops the stale value first, so a recycled address never resolves to
// an object that was already finalized.
//
// # Arenas
//
// Arena issues host-side handles for values native code only carries around as
// user data (bound foreign methods, foreign classes, VM back-references). A
// handle packs a slot index with a generation counter:
//
//	methods := resource.NewArena[ForeignMethod](resource.NamespaceForeignMethod)
//	h, _ := methods.Insert(fn)
//	fn, ok := methods.Get(h)
//
// Once a slot is freed and reused its generation changes, so handles that
// outlived their value fail to resolve instead of returning the new occupant.
//
// # Observers
//
// Both Table and Arena notify subscribers of lifecycle events:
//
//	table.Subscribe(obs)
//
//	func (o *obs) OnResourceEvent(e resource.Event) {
//	    switch e.Type {
//	    case resource.EventCreated:
//	    case resource.EventReplaced:
//	    case resource.EventDropped:
//	    }
//	}
//
// # Dropping
//
// Values implementing Dropper are invalidated when they leave a table through
// Unregister, Remove, Clear or Close, or when a newer registration replaces
// them. Detach removes an entry without dropping it.
package resource
