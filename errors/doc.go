// Package errors provides structured error types for the wrenit library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the module/class path involved, the offending value and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseBuild, errors.KindInvalidOperation).
//		Path("AssetsFail", "ImageAsset").
//		Detail("cannot inherit from foreign class %s", "Asset").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Disposed(errors.PhaseRuntime, "vm")
//	err := errors.OutOfBounds(errors.PhaseSlot, 4, 2)
//
// Use-after-release is always reported with KindDisposed so callers can test for it
// regardless of the phase:
//
//	if errors.IsDisposed(err) { ... }
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
