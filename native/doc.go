// Package native binds the ChronDB shared library at run time.
//
// The library is opened with dlopen (via purego, so no cgo is required)
// and its fixed set of entry points is resolved into typed Go functions.
// Load memoizes both outcomes process-wide: a successful load is shared by
// every session, a failed load replays without re-attempting disk I/O.
//
// A Session owns one GraalVM isolate, its attached isolate thread and the
// integer handle of one opened database. GraalVM isolate threads are bound
// to the OS thread that created them, so a Session is only valid on the
// thread where OpenSession ran; the broker package provides that thread
// and serializes every call onto it. Nothing in this package synchronizes.
//
// Native strings returned by the engine are copied and released with
// chrondb_free_string before any method returns; no native memory is
// retained. Native status codes and null pointers are translated into the
// closed error taxonomy of the errors package and never escape.
package native
