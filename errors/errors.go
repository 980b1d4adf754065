package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseSetup Phase = "setup" // library download and installation
	PhaseLoad  Phase = "load"  // dlopen and symbol resolution
	PhaseOpen  Phase = "open"  // isolate creation and database open
	PhaseCall  Phase = "call"  // database operations
	PhaseClose Phase = "close" // handle close and isolate teardown
	PhaseCodec Phase = "codec" // document encoding/decoding
)

// Kind categorizes the error. The set is closed: every fallible operation
// in this module returns exactly one of these kinds.
type Kind string

const (
	KindSetupFailed           Kind = "setup_failed"
	KindIsolateCreationFailed Kind = "isolate_creation_failed"
	KindOpenFailed            Kind = "open_failed"
	KindCloseFailed           Kind = "close_failed"
	KindNotFound              Kind = "not_found"
	KindOperationFailed       Kind = "operation_failed"
	KindSerializationError    Kind = "serialization_error"
)

// Error is the structured error type used throughout the bindings
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. Kinds must match; a target
// with an empty Phase matches any phase, so sentinel values like
// &Error{Kind: KindNotFound} work with the standard errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	return t.Phase == "" || e.Phase == t.Phase
}

// IsNotFound reports whether err is a not-found error from these bindings.
func IsNotFound(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Kind == KindNotFound
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the context path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for the closed taxonomy

// SetupFailed creates a provisioning failure error
func SetupFailed(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseSetup,
		Kind:   KindSetupFailed,
		Detail: detail,
		Cause:  cause,
	}
}

// LoadFailed creates a symbol resolution failure. Symbol and dlopen
// failures share the setup_failed kind: to the caller both mean the
// native library is unusable.
func LoadFailed(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindSetupFailed,
		Detail: detail,
		Cause:  cause,
	}
}

// IsolateCreationFailed creates an isolate creation error
func IsolateCreationFailed(code int32) *Error {
	return &Error{
		Phase:  PhaseOpen,
		Kind:   KindIsolateCreationFailed,
		Detail: fmt.Sprintf("graal_create_isolate returned %d", code),
	}
}

// OpenFailed creates a database open error
func OpenFailed(detail string) *Error {
	return &Error{
		Phase:  PhaseOpen,
		Kind:   KindOpenFailed,
		Detail: detail,
	}
}

// CloseFailed creates a close error
func CloseFailed(detail string) *Error {
	return &Error{
		Phase:  PhaseClose,
		Kind:   KindCloseFailed,
		Detail: detail,
	}
}

// NotFound creates a not-found error for get/delete semantics
func NotFound(id string) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("document %q not found", id),
	}
}

// OperationFailed creates an operation error carrying the native
// engine's diagnostic text
func OperationFailed(detail string) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindOperationFailed,
		Detail: detail,
	}
}

// SerializationError creates a document encoding/decoding error
func SerializationError(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseCodec,
		Kind:   KindSerializationError,
		Detail: detail,
		Cause:  cause,
	}
}

// WorkerDied is the uniform error observed by callers whose worker
// thread terminated unexpectedly
func WorkerDied() *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindOperationFailed,
		Detail: "worker thread died",
	}
}
