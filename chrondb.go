package chrondb

import (
	"encoding/json"
	"strings"

	"github.com/moclojer/chrondb/broker"
	"github.com/moclojer/chrondb/errors"
	"github.com/moclojer/chrondb/native"
	"github.com/moclojer/chrondb/setup"
)

// Version is the bindings version. Pre-release versions provision the
// native library from the rolling "latest" release channel.
const Version = setup.Version

// Document is a JSON document as stored by ChronDB.
type Document map[string]any

// QueryResult is the engine's answer to a Query call.
type QueryResult struct {
	Results []Document `json:"results"`
	Total   int        `json:"total"`
	Limit   int        `json:"limit"`
	Offset  int        `json:"offset"`
}

var defaultRegistry = broker.NewRegistry(func(dataPath, indexPath string) (broker.Session, error) {
	return native.OpenSession(dataPath, indexPath)
})

// acquire indirection lets tests run the full handle path against a
// session double instead of the native library.
var acquire = defaultRegistry.Acquire

// DB is a handle to a ChronDB database.
//
// Handles are cheap and safe for concurrent use. Two handles opened with
// paths that canonicalize identically share one native session and one
// worker thread; the session is closed when the last such handle is
// closed. Every operation takes an optional branch name where "" selects
// the engine's default branch.
type DB struct {
	conn *broker.Conn
}

// Open opens (creating if necessary) the database stored at dataPath with
// its full-text index at indexPath. The first Open in a process may
// download the native library; see package setup.
func Open(dataPath, indexPath string) (*DB, error) {
	conn, err := acquire(dataPath, indexPath)
	if err != nil {
		return nil, err
	}
	return &DB{conn: conn}, nil
}

// Put stores doc under id and returns the document as the engine stored
// it. doc may be any JSON-marshalable value.
func (db *DB) Put(id string, doc any, branch string) (Document, error) {
	if err := checkArgs(id, branch); err != nil {
		return nil, err
	}
	text, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.SerializationError("encode document", err)
	}
	raw, err := db.conn.Put(id, string(text), branch)
	if err != nil {
		return nil, err
	}
	return parseDocument(raw)
}

// Get returns the document stored under id, or a not-found error
// (errors.IsNotFound) when no such document exists.
func (db *DB) Get(id string, branch string) (Document, error) {
	if err := checkArgs(id, branch); err != nil {
		return nil, err
	}
	raw, err := db.conn.Get(id, branch)
	if err != nil {
		return nil, err
	}
	return parseDocument(raw)
}

// Delete removes the document stored under id. Deleting a document that
// does not exist returns a not-found error.
func (db *DB) Delete(id string, branch string) error {
	if err := checkArgs(id, branch); err != nil {
		return err
	}
	return db.conn.Delete(id, branch)
}

// ListByPrefix returns all documents whose ids start with prefix. No
// matches yields an empty slice, not an error.
func (db *DB) ListByPrefix(prefix string, branch string) ([]Document, error) {
	if err := checkArgs(prefix, branch); err != nil {
		return nil, err
	}
	raw, err := db.conn.ListByPrefix(prefix, branch)
	if err != nil {
		return nil, err
	}
	return parseDocuments(raw)
}

// ListByTable returns all documents in the named table (the id segment
// before the first colon). No matches yields an empty slice.
func (db *DB) ListByTable(table string, branch string) ([]Document, error) {
	if err := checkArgs(table, branch); err != nil {
		return nil, err
	}
	raw, err := db.conn.ListByTable(table, branch)
	if err != nil {
		return nil, err
	}
	return parseDocuments(raw)
}

// History returns the change history of the document stored under id,
// newest first. A document with no history yields an empty slice.
func (db *DB) History(id string, branch string) ([]Document, error) {
	if err := checkArgs(id, branch); err != nil {
		return nil, err
	}
	raw, err := db.conn.History(id, branch)
	if err != nil {
		return nil, err
	}
	return parseDocuments(raw)
}

// Query runs a structured query (Lucene AST format) against the index.
// query may be any JSON-marshalable value. Unlike the list calls, a query
// the engine cannot answer is an error, not an empty result.
func (db *DB) Query(query any, branch string) (*QueryResult, error) {
	if err := checkArgs(branch); err != nil {
		return nil, err
	}
	text, err := json.Marshal(query)
	if err != nil {
		return nil, errors.SerializationError("encode query", err)
	}
	raw, err := db.conn.Query(string(text), branch)
	if err != nil {
		return nil, err
	}
	var res QueryResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, errors.SerializationError("decode query result", err)
	}
	return &res, nil
}

// LastError returns the engine's most recent diagnostic message, if any.
func (db *DB) LastError() (string, bool) {
	return db.conn.LastError()
}

// Close releases this handle. Closing the last handle for a database
// shuts its worker down and closes the native session. Idempotent.
func (db *DB) Close() error {
	return db.conn.Close()
}

// checkArgs rejects strings that cannot cross the C boundary. Rejection
// happens here, before a command is ever sent to the worker.
func checkArgs(args ...string) error {
	for _, a := range args {
		if strings.IndexByte(a, 0) >= 0 {
			return errors.OperationFailed("string argument contains an embedded NUL byte")
		}
	}
	return nil
}

func parseDocument(raw string) (Document, error) {
	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, errors.SerializationError("decode document", err)
	}
	return doc, nil
}

func parseDocuments(raw string) ([]Document, error) {
	var docs []Document
	if err := json.Unmarshal([]byte(raw), &docs); err != nil {
		return nil, errors.SerializationError("decode document list", err)
	}
	if docs == nil {
		docs = []Document{}
	}
	return docs, nil
}
