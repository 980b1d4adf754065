package broker

import (
	"path/filepath"
	"sync"
)

// identity is the canonicalized (data path, index path) pair under which
// workers are shared.
type identity struct {
	dataPath  string
	indexPath string
}

func identityFor(dataPath, indexPath string) identity {
	return identity{
		dataPath:  canonicalPath(dataPath),
		indexPath: canonicalPath(indexPath),
	}
}

// canonicalPath resolves p as far as the filesystem allows. Paths that do
// not exist yet (the engine creates them on open) fall back to the
// cleaned absolute form, so equivalent spellings still share a worker.
func canonicalPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

// Registry maps resource identities to live workers. At most one live
// worker exists per identity at any time: lookups, pending creations and
// removals all happen under one short-held mutex that is never held
// across a native call or a channel operation.
type Registry struct {
	open    OpenFunc
	mu      sync.Mutex
	workers map[identity]*worker
	pending map[identity]chan struct{}
}

// NewRegistry creates a registry whose workers open sessions with open.
func NewRegistry(open OpenFunc) *Registry {
	return &Registry{
		open:    open,
		workers: make(map[identity]*worker),
		pending: make(map[identity]chan struct{}),
	}
}

// Acquire returns a connection to the shared worker for the given paths,
// starting one if none is live. The call blocks until the worker's
// session is open; an open failure is returned only to the caller that
// triggered creation and registers nothing, so later acquires retry.
func (r *Registry) Acquire(dataPath, indexPath string) (*Conn, error) {
	id := identityFor(dataPath, indexPath)

	for {
		r.mu.Lock()
		if w, ok := r.workers[id]; ok && !w.closing {
			select {
			case <-w.done:
				// the worker died; drop it so this acquire starts a
				// fresh one. Connections still holding it release
				// through the usual path.
				delete(r.workers, id)
			default:
				w.refs++
				r.mu.Unlock()
				return &Conn{reg: r, w: w}, nil
			}
		}
		if wait, ok := r.pending[id]; ok {
			// another caller is opening this identity right now: wait
			// for its outcome, then share the worker or retry creation
			r.mu.Unlock()
			<-wait
			continue
		}
		wait := make(chan struct{})
		r.pending[id] = wait
		r.mu.Unlock()

		w, err := spawn(id, r.open)

		r.mu.Lock()
		delete(r.pending, id)
		close(wait)
		if err != nil {
			r.mu.Unlock()
			return nil, err
		}
		w.refs = 1
		r.workers[id] = w
		r.mu.Unlock()
		return &Conn{reg: r, w: w}, nil
	}
}

// release drops one reference. The last reference marks the worker as
// closing and removes it from the map before any shutdown work happens,
// so no new acquire can be handed a worker that has started closing.
func (r *Registry) release(w *worker) {
	r.mu.Lock()
	w.refs--
	if w.refs > 0 {
		r.mu.Unlock()
		return
	}
	w.closing = true
	if r.workers[w.id] == w {
		delete(r.workers, w.id)
	}
	r.mu.Unlock()

	select {
	case w.cmds <- command{op: opShutdown}:
	case <-w.done: // worker already dead
	}
	<-w.done
}

// live reports the number of registered workers. Test hook.
func (r *Registry) live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workers)
}
