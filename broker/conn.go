package broker

import (
	"sync/atomic"

	"github.com/moclojer/chrondb/errors"
)

// Conn is one strong reference to a shared worker. Connections are cheap;
// every operation builds a command with a fresh one-shot reply channel,
// sends it to the worker and blocks for the answer. Closing the last Conn
// for an identity shuts the worker down.
//
// A Conn is safe for concurrent use by multiple goroutines.
type Conn struct {
	reg    *Registry
	w      *worker
	closed atomic.Bool
}

func (c *Conn) Put(id, doc, branch string) (string, error) {
	res := c.do(command{op: opPut, arg: id, doc: doc, branch: branch})
	return res.text, res.err
}

func (c *Conn) Get(id, branch string) (string, error) {
	res := c.do(command{op: opGet, arg: id, branch: branch})
	return res.text, res.err
}

func (c *Conn) Delete(id, branch string) error {
	return c.do(command{op: opDelete, arg: id, branch: branch}).err
}

func (c *Conn) ListByPrefix(prefix, branch string) (string, error) {
	res := c.do(command{op: opListByPrefix, arg: prefix, branch: branch})
	return res.text, res.err
}

func (c *Conn) ListByTable(table, branch string) (string, error) {
	res := c.do(command{op: opListByTable, arg: table, branch: branch})
	return res.text, res.err
}

func (c *Conn) History(id, branch string) (string, error) {
	res := c.do(command{op: opHistory, arg: id, branch: branch})
	return res.text, res.err
}

func (c *Conn) Query(queryJSON, branch string) (string, error) {
	res := c.do(command{op: opQuery, arg: queryJSON, branch: branch})
	return res.text, res.err
}

// LastError returns the engine's most recent diagnostic, if any.
func (c *Conn) LastError() (string, bool) {
	res := c.do(command{op: opLastError})
	if res.err != nil {
		return "", false
	}
	return res.text, res.ok
}

// Close releases this reference. Idempotent: only the first call counts.
func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.reg.release(c.w)
	return nil
}

func (c *Conn) do(cmd command) result {
	if c.closed.Load() {
		return result{err: errors.OperationFailed("connection is closed")}
	}

	cmd.reply = make(chan result, 1)
	select {
	case c.w.cmds <- cmd:
	case <-c.w.done:
		return result{err: errors.WorkerDied()}
	}

	select {
	case res := <-cmd.reply:
		return res
	case <-c.w.done:
		// the worker may have answered just before exiting
		select {
		case res := <-cmd.reply:
			return res
		default:
			return result{err: errors.WorkerDied()}
		}
	}
}
