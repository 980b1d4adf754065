package chrondb

import (
	"reflect"
	"sync"
	"testing"

	"github.com/moclojer/chrondb/broker"
	"github.com/moclojer/chrondb/errors"
)

// memSession is a scripted Session double that behaves like the native
// engine at the JSON-text level: get returns not-found for missing ids,
// list calls return "[]" for no matches, query failures are errors.
type memSession struct {
	mu       sync.Mutex
	docs     map[string]string
	calls    []string
	queryRes string
	queryErr error
}

func newMemSession() *memSession {
	return &memSession{docs: make(map[string]string)}
}

func (s *memSession) record(op string) {
	s.mu.Lock()
	s.calls = append(s.calls, op)
	s.mu.Unlock()
}

func (s *memSession) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *memSession) Put(id, doc, branch string) (string, error) {
	s.record("put:" + id + ":" + branch)
	s.mu.Lock()
	s.docs[id] = doc
	s.mu.Unlock()
	return doc, nil
}

func (s *memSession) Get(id, branch string) (string, error) {
	s.record("get:" + id)
	s.mu.Lock()
	doc, ok := s.docs[id]
	s.mu.Unlock()
	if !ok {
		return "", errors.NotFound(id)
	}
	return doc, nil
}

func (s *memSession) Delete(id, branch string) error {
	s.record("delete:" + id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return errors.NotFound(id)
	}
	delete(s.docs, id)
	return nil
}

func (s *memSession) ListByPrefix(prefix, branch string) (string, error) {
	s.record("list_by_prefix:" + prefix)
	return "[]", nil
}

func (s *memSession) ListByTable(table, branch string) (string, error) {
	s.record("list_by_table:" + table)
	return `[{"name":"Alice"},{"name":"Bob"}]`, nil
}

func (s *memSession) History(id, branch string) (string, error) {
	s.record("history:" + id)
	return "[]", nil
}

func (s *memSession) Query(queryJSON, branch string) (string, error) {
	s.record("query:" + queryJSON)
	if s.queryErr != nil {
		return "", s.queryErr
	}
	return s.queryRes, nil
}

func (s *memSession) LastError() (string, bool) {
	s.record("last_error")
	return "storage failure: disk full", true
}

func (s *memSession) Close() error {
	s.record("close")
	return nil
}

// withSession routes Open through a registry backed by sess for the
// duration of the test.
func withSession(t *testing.T, sess broker.Session) {
	t.Helper()
	reg := broker.NewRegistry(func(dataPath, indexPath string) (broker.Session, error) {
		return sess, nil
	})
	prev := acquire
	acquire = reg.Acquire
	t.Cleanup(func() { acquire = prev })
}

func TestDB_ExampleScenario(t *testing.T) {
	sess := newMemSession()
	withSession(t, sess)

	db, err := Open(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	want := Document{"name": "Alice", "age": float64(30)}

	stored, err := db.Put("user:1", Document{"name": "Alice", "age": 30}, "")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !reflect.DeepEqual(stored, want) {
		t.Errorf("Put = %v, want %v", stored, want)
	}

	got, err := db.Get("user:1", "")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Get = %v, want %v", got, want)
	}

	if err := db.Delete("user:1", ""); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := db.Get("user:1", ""); !errors.IsNotFound(err) {
		t.Errorf("Get after Delete = %v, want not_found", err)
	}
	if err := db.Delete("user:1", ""); !errors.IsNotFound(err) {
		t.Errorf("Delete of missing document = %v, want not_found", err)
	}
}

func TestDB_RoundTripNestedDocument(t *testing.T) {
	sess := newMemSession()
	withSession(t, sess)

	db, err := Open(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	doc := Document{
		"name": "Alice",
		"tags": []any{"admin", "ops"},
		"address": map[string]any{
			"city": "Lisbon",
			"zip":  "1100-048",
		},
	}

	if _, err := db.Put("user:1", doc, ""); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := db.Get("user:1", "")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(got, doc) {
		t.Errorf("round trip changed the document:\n got  %v\n want %v", got, doc)
	}
}

func TestDB_EmbeddedNULRejectedLocally(t *testing.T) {
	sess := newMemSession()
	withSession(t, sess)

	db, err := Open(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	_, err = db.Put("user\x00evil", Document{"x": 1}, "")
	if err == nil {
		t.Fatal("expected error for embedded NUL in id")
	}
	e, ok := err.(*errors.Error)
	if !ok || e.Kind != errors.KindOperationFailed {
		t.Errorf("error = %v, want operation_failed", err)
	}
	if sess.callCount() != 0 {
		t.Errorf("session saw %d calls, want 0 (rejection must be local)", sess.callCount())
	}

	if _, err := db.Get("ok", "bra\x00nch"); err == nil {
		t.Error("expected error for embedded NUL in branch")
	}
	if sess.callCount() != 0 {
		t.Errorf("session saw %d calls after branch rejection, want 0", sess.callCount())
	}
}

func TestDB_EmptyListIsNotAnError(t *testing.T) {
	sess := newMemSession()
	withSession(t, sess)

	db, err := Open(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	docs, err := db.ListByPrefix("user:", "")
	if err != nil {
		t.Fatalf("ListByPrefix: %v", err)
	}
	if docs == nil || len(docs) != 0 {
		t.Errorf("ListByPrefix = %#v, want empty non-nil slice", docs)
	}

	hist, err := db.History("user:1", "")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 0 {
		t.Errorf("History = %#v, want empty", hist)
	}
}

func TestDB_ListByTable(t *testing.T) {
	sess := newMemSession()
	withSession(t, sess)

	db, err := Open(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	docs, err := db.ListByTable("user", "")
	if err != nil {
		t.Fatalf("ListByTable: %v", err)
	}
	if len(docs) != 2 || docs[0]["name"] != "Alice" {
		t.Errorf("ListByTable = %v", docs)
	}
}

func TestDB_QueryFailureIsAnError(t *testing.T) {
	sess := newMemSession()
	sess.queryErr = errors.OperationFailed("query failed")
	withSession(t, sess)

	db, err := Open(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	// the asymmetry: an empty list is fine, an empty query result is not
	_, err = db.Query(Document{"type": "match_all"}, "")
	if err == nil {
		t.Fatal("expected error for failed query")
	}
	e, ok := err.(*errors.Error)
	if !ok || e.Kind != errors.KindOperationFailed {
		t.Errorf("error = %v, want operation_failed", err)
	}
}

func TestDB_QueryResult(t *testing.T) {
	sess := newMemSession()
	sess.queryRes = `{"results":[{"name":"Alice"}],"total":1,"limit":10,"offset":0}`
	withSession(t, sess)

	db, err := Open(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	res, err := db.Query(Document{"term": Document{"name": "Alice"}}, "")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.Total != 1 || res.Limit != 10 {
		t.Errorf("QueryResult = %+v", res)
	}
	if len(res.Results) != 1 || res.Results[0]["name"] != "Alice" {
		t.Errorf("Results = %v", res.Results)
	}
}

func TestDB_SerializationErrors(t *testing.T) {
	sess := newMemSession()
	sess.queryRes = "not json"
	withSession(t, sess)

	db, err := Open(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	// unmarshalable input document
	_, err = db.Put("user:1", func() {}, "")
	if e, ok := err.(*errors.Error); !ok || e.Kind != errors.KindSerializationError {
		t.Errorf("Put(func) = %v, want serialization_error", err)
	}

	// malformed native response
	_, err = db.Query(Document{}, "")
	if e, ok := err.(*errors.Error); !ok || e.Kind != errors.KindSerializationError {
		t.Errorf("Query with bad native JSON = %v, want serialization_error", err)
	}
}

func TestDB_BranchPassthrough(t *testing.T) {
	sess := newMemSession()
	withSession(t, sess)

	db, err := Open(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := db.Put("user:1", Document{"x": 1}, "feature-x"); err != nil {
		t.Fatal(err)
	}
	sess.mu.Lock()
	last := sess.calls[len(sess.calls)-1]
	sess.mu.Unlock()
	if last != "put:user:1:feature-x" {
		t.Errorf("session saw %q, want branch passed through", last)
	}
}

func TestDB_LastError(t *testing.T) {
	sess := newMemSession()
	withSession(t, sess)

	db, err := Open(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	msg, ok := db.LastError()
	if !ok || msg != "storage failure: disk full" {
		t.Errorf("LastError = %q, %v", msg, ok)
	}
}

func TestDB_CloseIdempotent(t *testing.T) {
	sess := newMemSession()
	withSession(t, sess)

	db, err := Open(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	count := 0
	sess.mu.Lock()
	for _, c := range sess.calls {
		if c == "close" {
			count++
		}
	}
	sess.mu.Unlock()
	if count != 1 {
		t.Errorf("session closed %d times, want 1", count)
	}
}
