package native

import (
	"unsafe"

	"github.com/moclojer/chrondb/errors"
)

// Session owns one opened database: a GraalVM isolate, its isolate thread
// and the integer handle returned by chrondb_open. A Session is bound to
// the OS thread that created it and its methods must never run
// concurrently; the broker enforces both by giving each session a
// dedicated, OS-thread-locked worker.
type Session struct {
	lib     *Library
	isolate uintptr
	thread  uintptr
	handle  int32
	closed  bool
}

// OpenSession creates an isolate and opens the database at the given
// paths. On a failed open the isolate is torn down before returning.
func OpenSession(dataPath, indexPath string) (*Session, error) {
	lib, err := Load()
	if err != nil {
		return nil, err
	}

	cData, err := cBytes(dataPath)
	if err != nil {
		return nil, errors.OpenFailed("data path contains an embedded NUL byte")
	}
	cIndex, err := cBytes(indexPath)
	if err != nil {
		return nil, errors.OpenFailed("index path contains an embedded NUL byte")
	}

	var isolate, thread uintptr
	if ret := lib.createIsolate(nil, unsafe.Pointer(&isolate), unsafe.Pointer(&thread)); ret != 0 {
		return nil, errors.IsolateCreationFailed(ret)
	}

	handle := lib.open(thread, cPtr(cData), cPtr(cIndex))
	if handle < 0 {
		msg, _ := rawLastError(lib, thread)
		lib.tearDownIsolate(thread)
		return nil, errors.OpenFailed(msg)
	}

	return &Session{lib: lib, isolate: isolate, thread: thread, handle: handle}, nil
}

// Put stores doc (serialized JSON text) under id and returns the stored
// document as the engine echoes it back.
func (s *Session) Put(id, doc, branch string) (string, error) {
	cID, err := cBytes(id)
	if err != nil {
		return "", err
	}
	cDoc, err := cBytes(doc)
	if err != nil {
		return "", err
	}
	cBranch, err := optBytes(branch)
	if err != nil {
		return "", err
	}

	ptr := s.lib.put(s.thread, s.handle, cPtr(cID), cPtr(cDoc), cPtr(cBranch))
	if ptr == 0 {
		return "", s.lastErrorOr("put failed")
	}
	return s.takeString(ptr), nil
}

// Get returns the document stored under id. A null result means the
// document does not exist.
func (s *Session) Get(id, branch string) (string, error) {
	cID, err := cBytes(id)
	if err != nil {
		return "", err
	}
	cBranch, err := optBytes(branch)
	if err != nil {
		return "", err
	}

	ptr := s.lib.get(s.thread, s.handle, cPtr(cID), cPtr(cBranch))
	if ptr == 0 {
		return "", errors.NotFound(id)
	}
	return s.takeString(ptr), nil
}

// Delete removes the document stored under id.
func (s *Session) Delete(id, branch string) error {
	cID, err := cBytes(id)
	if err != nil {
		return err
	}
	cBranch, err := optBytes(branch)
	if err != nil {
		return err
	}

	switch ret := s.lib.del(s.thread, s.handle, cPtr(cID), cPtr(cBranch)); ret {
	case 0:
		return nil
	case 1:
		return errors.NotFound(id)
	default:
		return s.lastErrorOr("delete failed")
	}
}

// ListByPrefix returns the JSON array of documents whose ids start with
// prefix. A null result means no matches, not an error.
func (s *Session) ListByPrefix(prefix, branch string) (string, error) {
	cPrefix, err := cBytes(prefix)
	if err != nil {
		return "", err
	}
	cBranch, err := optBytes(branch)
	if err != nil {
		return "", err
	}

	ptr := s.lib.listByPrefix(s.thread, s.handle, cPtr(cPrefix), cPtr(cBranch))
	if ptr == 0 {
		return "[]", nil
	}
	return s.takeString(ptr), nil
}

// ListByTable returns the JSON array of documents in the named table.
// A null result means no matches, not an error.
func (s *Session) ListByTable(table, branch string) (string, error) {
	cTable, err := cBytes(table)
	if err != nil {
		return "", err
	}
	cBranch, err := optBytes(branch)
	if err != nil {
		return "", err
	}

	ptr := s.lib.listByTable(s.thread, s.handle, cPtr(cTable), cPtr(cBranch))
	if ptr == 0 {
		return "[]", nil
	}
	return s.takeString(ptr), nil
}

// History returns the JSON array of change history entries for id.
// A null result means no history, not an error.
func (s *Session) History(id, branch string) (string, error) {
	cID, err := cBytes(id)
	if err != nil {
		return "", err
	}
	cBranch, err := optBytes(branch)
	if err != nil {
		return "", err
	}

	ptr := s.lib.history(s.thread, s.handle, cPtr(cID), cPtr(cBranch))
	if ptr == 0 {
		return "[]", nil
	}
	return s.takeString(ptr), nil
}

// Query runs a query (JSON text, Lucene AST format) against the index.
// Unlike the list calls, a null result here IS an error: the engine
// reports query failures through a null pointer plus last-error.
func (s *Session) Query(queryJSON, branch string) (string, error) {
	cQuery, err := cBytes(queryJSON)
	if err != nil {
		return "", err
	}
	cBranch, err := optBytes(branch)
	if err != nil {
		return "", err
	}

	ptr := s.lib.query(s.thread, s.handle, cPtr(cQuery), cPtr(cBranch))
	if ptr == 0 {
		return "", s.lastErrorOr("query failed")
	}
	return s.takeString(ptr), nil
}

// LastError returns the engine's last diagnostic message, if any.
func (s *Session) LastError() (string, bool) {
	return rawLastError(s.lib, s.thread)
}

// Close closes the database handle and tears down the isolate. It is
// idempotent: the second and later calls are no-ops.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var closeErr error
	if s.handle >= 0 {
		if ret := s.lib.closeDB(s.thread, s.handle); ret != 0 {
			closeErr = errors.CloseFailed("chrondb_close returned nonzero status")
		}
		s.handle = -1
	}
	if s.thread != 0 {
		s.lib.tearDownIsolate(s.thread)
		s.thread = 0
		s.isolate = 0
	}
	return closeErr
}

// takeString copies the native string at ptr and releases it.
func (s *Session) takeString(ptr uintptr) string {
	out := goString(ptr)
	s.lib.freeString(s.thread, ptr)
	return out
}

func (s *Session) lastErrorOr(fallback string) error {
	msg, ok := rawLastError(s.lib, s.thread)
	if !ok {
		msg = fallback
	}
	return errors.OperationFailed(msg)
}

func rawLastError(lib *Library, thread uintptr) (string, bool) {
	ptr := lib.lastError(thread)
	if ptr == 0 {
		return "", false
	}
	msg := goString(ptr)
	lib.freeString(thread, ptr)
	return msg, true
}
