// Package chrondb provides Go bindings for ChronDB, a time-traveling JSON
// document database distributed as a prebuilt shared library.
//
// The bindings locate the native library at run time (downloading it on
// first use when absent), create an isolated execution context inside it,
// and multiplex any number of concurrent callers onto that context while
// honoring the engine's single-threaded-access requirement.
//
// # Architecture Overview
//
// The module is organized into flat packages with distinct responsibilities:
//
//	chrondb/         Public DB handle and JSON document mapping
//	├── broker/      Shared workers: one OS thread per database, FIFO dispatch
//	├── native/      dlopen symbol binding and the raw session operations
//	├── setup/       Native library download and installation
//	└── errors/      Closed error taxonomy used by every layer
//
// Control flow for one call: DB handle → broker (locate or start the
// shared worker) → native session (on the worker's own OS thread) →
// shared library.
//
// # Quick Start
//
//	db, err := chrondb.Open("/var/lib/myapp/data", "/var/lib/myapp/index")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer db.Close()
//
//	stored, err := db.Put("user:1", chrondb.Document{"name": "Alice", "age": 30}, "")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	doc, err := db.Get("user:1", "")
//	if errors.IsNotFound(err) {
//		// expected outcome, not an anomaly
//	}
//
// Opening the same paths from several goroutines is cheap: handles with
// equivalent paths share one native session, and all their operations are
// serialized in arrival order on that session's dedicated thread.
//
// # Branches
//
// Every operation accepts a branch name. The empty string selects the
// engine's default branch; any other value is passed through opaquely to
// the engine's version-control layer.
//
// # Errors
//
// All failures surface as *errors.Error values with a closed set of
// kinds. Only not-found (from Get and Delete) is an expected, recoverable
// outcome; test for it with errors.IsNotFound.
package chrondb
