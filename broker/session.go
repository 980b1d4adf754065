package broker

// Session is the set of operations a worker drives against one opened
// database. Documents and query results cross this interface as
// serialized JSON text; parsing happens at the public API layer,
// immediately before results reach the caller.
//
// Implementations are not required to be safe for concurrent use: the
// broker guarantees every call happens on the worker's own OS thread,
// one at a time, in arrival order.
type Session interface {
	Put(id, doc, branch string) (string, error)
	Get(id, branch string) (string, error)
	Delete(id, branch string) error
	ListByPrefix(prefix, branch string) (string, error)
	ListByTable(table, branch string) (string, error)
	History(id, branch string) (string, error)
	Query(queryJSON, branch string) (string, error)
	LastError() (string, bool)
	Close() error
}

// OpenFunc opens a session against a data/index path pair. It runs on the
// worker's dedicated OS thread, so thread-affine setup (isolate creation)
// lands on the thread that will make every later call.
type OpenFunc func(dataPath, indexPath string) (Session, error)
