// Package errors provides structured error types for the ChronDB bindings.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Kind set is closed: setup_failed, isolate_creation_failed,
// open_failed, close_failed, not_found, operation_failed and
// serialization_error. No raw native status codes or unwrapped I/O errors
// escape the bindings; every boundary crossing wraps its failure into one of
// these kinds.
//
// Use the convenience constructors for common patterns:
//
//	err := errors.SetupFailed("no prebuilt library for platform", nil)
//	err := errors.NotFound("user:1")
//
// or the Builder for richer context:
//
//	err := errors.New(errors.PhaseSetup, errors.KindSetupFailed).
//		Path("download").
//		Detail("fetch %s", url).
//		Cause(httpErr).
//		Build()
//
// All errors implement the standard error interface and support errors.Is/As.
// A target with an empty Phase matches any phase, so
//
//	errors.Is(err, &errors.Error{Kind: errors.KindNotFound})
//
// matches not-found regardless of origin; IsNotFound is shorthand for the
// common case, which is the only kind callers are expected to branch on.
package errors
