package wren

import "fmt"

// Ptr is an opaque native address: a VM, a handle or a foreign data block.
type Ptr uint64

// Version of the Wren C API this package binds.
const (
	VersionMajor  = 0
	VersionMinor  = 4
	VersionPatch  = 0
	VersionString = "0.4.0"
	VersionNumber = VersionMajor*1000000 + VersionMinor*1000 + VersionPatch
)

// FormatVersion renders a Wren version number as major.minor.patch.
func FormatVersion(n int) string {
	return fmt.Sprintf("%d.%d.%d", n/1000000, n/1000%1000, n%1000)
}

// ValueType is the type of the value stored in a slot.
type ValueType uint8

const (
	TypeBool ValueType = iota
	TypeNum
	TypeForeign
	TypeList
	TypeMap
	TypeNull
	TypeString
	TypeUnknown
)

var valueTypeNames = [...]string{"bool", "num", "foreign", "list", "map", "null", "string", "unknown"}

func (t ValueType) String() string {
	if int(t) < len(valueTypeNames) {
		return valueTypeNames[t]
	}
	return "unknown"
}

// ErrorType identifies the kind of report passed to the error callback.
type ErrorType uint8

const (
	// ErrorCompile is a syntax or resolution error detected at compile time.
	ErrorCompile ErrorType = iota
	// ErrorRuntime is the error message of a runtime error.
	ErrorRuntime
	// ErrorStackTrace is one line of the stack trace following a runtime error.
	ErrorStackTrace
	// ErrorHost is reported by this package, for bindings the host failed to provide.
	ErrorHost
)

func (t ErrorType) String() string {
	switch t {
	case ErrorCompile:
		return "compile"
	case ErrorRuntime:
		return "runtime"
	case ErrorStackTrace:
		return "stack_trace"
	case ErrorHost:
		return "host"
	}
	return "unknown"
}

// InterpretResult is the outcome of interpreting source or calling a handle.
type InterpretResult uint8

const (
	ResultSuccess InterpretResult = iota
	ResultCompileError
	ResultRuntimeError
)

func (r InterpretResult) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultCompileError:
		return "compile_error"
	case ResultRuntimeError:
		return "runtime_error"
	}
	return "unknown"
}
