package broker

import (
	"runtime"

	"go.uber.org/zap"

	"github.com/moclojer/chrondb/errors"
)

type op uint8

const (
	opPut op = iota
	opGet
	opDelete
	opListByPrefix
	opListByTable
	opHistory
	opQuery
	opLastError
	opShutdown
)

// command is one request to a worker. Arguments are owned strings: the
// call crosses a goroutine boundary, so nothing borrowed may be carried.
// reply is buffered with capacity 1 and absent for shutdown.
type command struct {
	op     op
	arg    string // id, prefix, table or query text depending on op
	doc    string // serialized document, put only
	branch string
	reply  chan result
}

type result struct {
	text string
	ok   bool // last-error presence
	err  error
}

// worker owns one session on one OS thread. refs and closing are guarded
// by the registry mutex; cmds and done belong to the worker goroutine.
type worker struct {
	id      identity
	cmds    chan command
	done    chan struct{}
	refs    int
	closing bool
}

// spawn starts a worker and blocks until its session is open. A failed
// open is returned to the caller and leaves no worker behind, so there is
// no observable "exists but not ready" state. An open that panics kills
// the worker before it can report readiness; done closing is the signal.
func spawn(id identity, open OpenFunc) (*worker, error) {
	w := &worker{
		id:   id,
		cmds: make(chan command),
		done: make(chan struct{}),
	}
	ready := make(chan error, 1)
	go w.run(open, ready)
	select {
	case err := <-ready:
		if err != nil {
			return nil, err
		}
	case <-w.done:
		// the worker may have reported a plain open failure just before
		// exiting; prefer that over the generic death error
		select {
		case err := <-ready:
			if err != nil {
				return nil, err
			}
		default:
		}
		return nil, errors.WorkerDied()
	}
	return w, nil
}

func (w *worker) run(open OpenFunc, ready chan<- error) {
	// The isolate thread is bound to the OS thread that creates it, and
	// the engine's embedded JGit/Lucene call depth needs a full OS thread
	// stack rather than a goroutine stack.
	runtime.LockOSThread()
	defer close(w.done)
	defer func() {
		// a panic below kills this worker, not the process; every caller
		// holding a connection observes a uniform worker-died error
		if r := recover(); r != nil {
			Logger().Error("worker panicked", zap.Any("panic", r))
		}
	}()

	sess, err := open(w.id.dataPath, w.id.indexPath)
	ready <- err
	if err != nil {
		return
	}

	log := Logger()
	log.Debug("worker started",
		zap.String("data", w.id.dataPath),
		zap.String("index", w.id.indexPath))

	for {
		cmd := <-w.cmds
		if cmd.op == opShutdown {
			if err := sess.Close(); err != nil {
				log.Warn("session close failed", zap.Error(err))
			}
			log.Debug("worker stopped", zap.String("data", w.id.dataPath))
			return
		}

		res := dispatch(sess, cmd)
		if cmd.reply != nil {
			select {
			case cmd.reply <- res:
			default: // receiver gave up; drop the result, never block the loop
			}
		}
	}
}

func dispatch(sess Session, cmd command) result {
	switch cmd.op {
	case opPut:
		text, err := sess.Put(cmd.arg, cmd.doc, cmd.branch)
		return result{text: text, err: err}
	case opGet:
		text, err := sess.Get(cmd.arg, cmd.branch)
		return result{text: text, err: err}
	case opDelete:
		return result{err: sess.Delete(cmd.arg, cmd.branch)}
	case opListByPrefix:
		text, err := sess.ListByPrefix(cmd.arg, cmd.branch)
		return result{text: text, err: err}
	case opListByTable:
		text, err := sess.ListByTable(cmd.arg, cmd.branch)
		return result{text: text, err: err}
	case opHistory:
		text, err := sess.History(cmd.arg, cmd.branch)
		return result{text: text, err: err}
	case opQuery:
		text, err := sess.Query(cmd.arg, cmd.branch)
		return result{text: text, err: err}
	case opLastError:
		text, ok := sess.LastError()
		return result{text: text, ok: ok}
	}
	return result{}
}
