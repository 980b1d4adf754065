// Package setup provisions the ChronDB native library.
//
// ChronDB is distributed as a prebuilt shared library (GraalVM native-image).
// EnsureInstalled checks the expected locations and, when the library is
// absent, downloads the platform-specific release archive and installs it
// under ~/.chrondb/lib. The outcome, success or failure, is computed once
// per process and replayed on every later call; a failed download is not
// retried within the same process run.
//
// # Search order
//
//	1. $CHRONDB_LIB_DIR/<libname>
//	2. ~/.chrondb/lib/<libname>
//
// where <libname> is libchrondb.so on Linux, libchrondb.dylib on macOS and
// chrondb.dll on Windows.
//
// # Download
//
// Archives are fetched from the GitHub release matching the bindings
// Version: a pre-release version (e.g. 0.1.0-dev) maps to the "latest"
// channel, a released version to its vX.Y.Z tag. The tar.gz contains a lib/
// directory (shared objects) and an include/ directory (headers); both are
// flattened into the install directory.
//
// Set CHRONDB_NO_DOWNLOAD to skip provisioning entirely; a missing library
// then fails at load time instead.
package setup
