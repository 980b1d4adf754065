// Package broker multiplexes concurrent callers onto native sessions.
//
// The native engine requires single-threaded access to each opened
// database and its isolate thread is bound to the OS thread that created
// it. The broker hides both constraints: every distinct resource identity
// (the canonicalized data/index path pair) gets exactly one worker, a
// goroutine locked to an OS thread that owns the session, and all calls
// for that identity are serialized through the worker's FIFO command
// channel. Callers may be many and on arbitrary goroutines; they only ever
// block on a command's private reply channel.
//
// Workers are shared: Acquire with paths that canonicalize identically
// returns a connection to the same worker, reference counted. Closing the
// last connection shuts the worker down: it is removed from the registry,
// told to close the session, and joined. A closing worker is never handed
// out to a new caller.
//
// The broker is written against the Session interface rather than the
// native package directly, so its concurrency behavior is testable with
// instrumented session doubles and the root package decides how sessions
// are opened.
package broker
