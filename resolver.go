package permit

import (
	"context"
	"log/slog"
	"sync"

	"github.com/xraph/permit/permission"
)

// State is a snapshot of a Resolver. Permissions must be treated as
// read-only.
type State struct {
	Phase       Phase          `json:"phase"`
	Permissions permission.Set `json:"permissions"`
	Loading     bool           `json:"loading"`
	Error       string         `json:"error,omitempty"`
	IsOwner     bool           `json:"is_owner"`
	Generation  uint64         `json:"generation"`
}

// HasPermission reports whether code is granted in this snapshot.
func (s State) HasPermission(code string) bool { return granted(s.IsOwner, s.Permissions, code) }

// HasAny reports whether at least one of codes is granted.
func (s State) HasAny(codes ...string) bool {
	ok, _ := evaluate(s.IsOwner, s.Permissions, CheckAny, codes)
	return ok
}

// HasAll reports whether every one of codes is granted.
func (s State) HasAll(codes ...string) bool {
	ok, _ := evaluate(s.IsOwner, s.Permissions, CheckAll, codes)
	return ok
}

// Resolver tracks the permissions of one request over time. Every
// resolution attempt gets a new generation and only the latest
// generation may commit its result; a superseded attempt is cancelled
// and its outcome discarded.
type Resolver struct {
	engine *Engine
	base   context.Context

	mu      sync.Mutex
	req     Request
	state   State
	gen     uint64
	cancel  context.CancelFunc
	done    chan struct{}
	pending bool
	closed  bool
	stop    chan struct{}
	subs    map[int]chan State
	nextSub int
}

// NewResolver creates a Resolver for req and starts resolving at once.
// ctx supplies the tenant and session for every attempt and bounds the
// Resolver's lifetime.
func (e *Engine) NewResolver(ctx context.Context, req Request) *Resolver {
	r := &Resolver{
		engine: e,
		base:   ctx,
		req:    req,
		state:  State{Phase: PhaseUninitialized},
		stop:   make(chan struct{}),
		subs:   make(map[int]chan State),
	}
	r.begin(req, false)
	return r
}

// Request returns the request currently being resolved.
func (r *Resolver) Request() Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.req
}

// State returns the current snapshot.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// HasPermission reports whether code is granted in the current state.
func (r *Resolver) HasPermission(code string) bool { return r.State().HasPermission(code) }

// HasAny reports whether at least one of codes is granted in the current state.
func (r *Resolver) HasAny(codes ...string) bool { return r.State().HasAny(codes...) }

// HasAll reports whether every one of codes is granted in the current state.
func (r *Resolver) HasAll(codes ...string) bool { return r.State().HasAll(codes...) }

// Refetch re-runs resolution for the current request. The previous
// permissions stay visible until the new attempt commits.
func (r *Resolver) Refetch() { r.begin(r.Request(), true) }

// SetRequest switches to a new request, clearing the previous permissions.
func (r *Resolver) SetRequest(req Request) { r.begin(req, false) }

func (r *Resolver) begin(req Request, keep bool) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if r.cancel != nil {
		r.cancel()
	}
	if r.pending {
		close(r.done)
	}

	r.gen++
	gen := r.gen
	ctx, cancel := context.WithCancel(r.base)
	r.cancel = cancel
	r.req = req
	r.done = make(chan struct{})
	r.pending = true

	next := State{Phase: PhaseLoading, Loading: true, Generation: gen}
	if keep {
		next.Permissions = r.state.Permissions
		next.IsOwner = r.state.IsOwner
	}
	r.publishLocked(next)
	r.mu.Unlock()

	go func() {
		defer cancel()
		res := r.engine.Resolve(ctx, req)
		r.commit(gen, res)
	}()
}

func (r *Resolver) commit(gen uint64, res *Resolution) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || gen != r.gen {
		r.engine.logger.Debug("permit: discarding stale resolution",
			slog.Uint64("generation", gen),
			slog.String("phase", string(res.Phase)),
		)
		return
	}
	r.publishLocked(State{
		Phase:       res.Phase,
		Permissions: res.Permissions,
		Error:       res.Error,
		IsOwner:     res.IsOwner,
		Generation:  gen,
	})
	r.pending = false
	close(r.done)
}

func (r *Resolver) publishLocked(s State) {
	r.state = s
	for _, ch := range r.subs {
		// Keep only the newest state in each buffer.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

// Wait blocks until the latest attempt reaches a terminal phase and
// returns that state.
func (r *Resolver) Wait(ctx context.Context) (State, error) {
	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return State{}, ErrResolverClosed
		}
		s, done := r.state, r.done
		r.mu.Unlock()

		if !s.Loading {
			return s, nil
		}
		select {
		case <-done:
		case <-r.stop:
		case <-ctx.Done():
			return s, ctx.Err()
		}
	}
}

// Subscribe returns a channel that receives every state change, starting
// with the current state. A slow reader only ever misses intermediate
// states, never the latest one. The returned func unsubscribes.
func (r *Resolver) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		close(ch)
		return ch, func() {}
	}
	ch <- r.state
	key := r.nextSub
	r.nextSub++
	r.subs[key] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if c, ok := r.subs[key]; ok {
				delete(r.subs, key)
				close(c)
			}
		})
	}
}

// Close cancels any in-flight attempt and discards its result. Closing
// twice is a no-op.
func (r *Resolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	if r.cancel != nil {
		r.cancel()
	}
	close(r.stop)
	for k, ch := range r.subs {
		delete(r.subs, k)
		close(ch)
	}
}
