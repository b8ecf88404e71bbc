package resource

import "fmt"

// Handle is an opaque host-side id issued by an Arena.
// The low 32 bits hold the slot index plus one, the high 32 bits the slot generation.
// Handle 0 is reserved and always invalid.
type Handle uint64

func makeHandle(index, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(index+1))
}

// Index returns the arena slot the handle refers to.
func (h Handle) Index() uint32 {
	return uint32(h) - 1
}

// Generation returns the slot generation the handle was issued for.
func (h Handle) Generation() uint32 {
	return uint32(h >> 32)
}

func (h Handle) String() string {
	if h == 0 {
		return "handle(invalid)"
	}
	return fmt.Sprintf("handle(%d#%d)", h.Index(), h.Generation())
}

// Namespace identifies which kind of object a table tracks.
type Namespace uint8

const (
	NamespaceVM Namespace = iota
	NamespaceHandle
	NamespaceForeignMethod
	NamespaceForeignClass
	NamespaceForeignObject
)

var namespaceNames = [...]string{
	NamespaceVM:            "vm",
	NamespaceHandle:        "handle",
	NamespaceForeignMethod: "foreign_method",
	NamespaceForeignClass:  "foreign_class",
	NamespaceForeignObject: "foreign_object",
}

func (n Namespace) String() string {
	if int(n) < len(namespaceNames) {
		return namespaceNames[n]
	}
	return "unknown"
}

// Namespaces lists every namespace in declaration order.
func Namespaces() []Namespace {
	return []Namespace{NamespaceVM, NamespaceHandle, NamespaceForeignMethod, NamespaceForeignClass, NamespaceForeignObject}
}

// Event types for resource lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
	// EventReplaced is emitted when a key is registered again while a stale
	// entry still occupies it. The stale value is dropped first.
	EventReplaced
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	case EventReplaced:
		return "replaced"
	}
	return "unknown"
}

// Event represents a resource lifecycle event.
type Event struct {
	Key       any
	Value     any
	Namespace Namespace
	Type      EventType
}

// Observer receives notifications about resource lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// Dropper is optionally implemented by values that must be invalidated when
// their entry leaves a table.
type Dropper interface {
	Drop()
}

func drop(v any) {
	if d, ok := v.(Dropper); ok {
		d.Drop()
	}
}
