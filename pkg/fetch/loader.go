package fetch

import (
	"context"
	"sync"
)

// Fetcher issues the request(s) behind a page for the given dependency
// snapshot (filters, pagination).
type Fetcher[P, T any] func(ctx context.Context, params P) (T, error)

// Loader owns the State of one mounted page.
//
// Every Load is tagged with a monotonically increasing id; a response is
// applied only if no newer Load, Reset or Close happened in the meantime.
type Loader[P, T any] struct {
	mu        sync.Mutex
	fetch     Fetcher[P, T]
	initial   T
	state     State[T]
	params    P
	seq       uint64
	cancel    context.CancelFunc
	closed    bool
	listeners map[int]func(State[T])
	nextID    int
}

// NewLoader creates a loader whose data starts as initial, usually an empty
// container.
func NewLoader[P, T any](fetch Fetcher[P, T], initial T) *Loader[P, T] {
	return &Loader[P, T]{
		fetch:     fetch,
		initial:   initial,
		state:     State[T]{Data: initial},
		listeners: make(map[int]func(State[T])),
	}
}

// Load starts a request for params and blocks until it settles. The returned
// snapshot is the loader state afterwards, which may belong to a newer Load.
func (l *Loader[P, T]) Load(ctx context.Context, params P) State[T] {
	l.mu.Lock()
	if l.closed {
		s := l.state
		l.mu.Unlock()
		return s
	}
	if l.cancel != nil {
		l.cancel()
	}
	l.seq++
	id := l.seq
	reqCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.params = params
	l.state.Loading = true
	l.state.Err = nil
	started := l.state
	l.mu.Unlock()

	l.notify(started)

	data, err := l.fetch(reqCtx, params)
	cancel()

	l.mu.Lock()
	if l.closed || id != l.seq {
		s := l.state
		l.mu.Unlock()
		return s
	}
	l.cancel = nil
	l.state.Loading = false
	if err != nil {
		l.state.Err = err
	} else {
		l.state.Data = data
		l.state.Loaded = true
	}
	settled := l.state
	l.mu.Unlock()

	l.notify(settled)
	return settled
}

// Reload repeats the last Load with the same params.
func (l *Loader[P, T]) Reload(ctx context.Context) State[T] {
	return l.Load(ctx, l.Params())
}

func (l *Loader[P, T]) State() State[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loader[P, T]) Params() P {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.params
}

// Mutate applies a local change to the data, e.g. an optimistic row update.
// It does not touch Loading or Err.
func (l *Loader[P, T]) Mutate(fn func(T) T) State[T] {
	l.mu.Lock()
	if l.closed {
		s := l.state
		l.mu.Unlock()
		return s
	}
	l.state.Data = fn(l.state.Data)
	s := l.state
	l.mu.Unlock()

	l.notify(s)
	return s
}

// Reset drops data and any in-flight request, e.g. after logout.
func (l *Loader[P, T]) Reset() {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.seq++
	var zero P
	l.params = zero
	l.state = State[T]{Data: l.initial}
	s := l.state
	closed := l.closed
	l.mu.Unlock()

	if !closed {
		l.notify(s)
	}
}

// Close unmounts the page: the in-flight request is cancelled and no further
// state updates happen.
func (l *Loader[P, T]) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.closed = true
	l.listeners = make(map[int]func(State[T]))
}

// Subscribe registers fn for every state change and returns an unsubscribe
// function.
func (l *Loader[P, T]) Subscribe(fn func(State[T])) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextID
	l.nextID++
	l.listeners[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.listeners, id)
	}
}

func (l *Loader[P, T]) notify(s State[T]) {
	l.mu.Lock()
	fns := make([]func(State[T]), 0, len(l.listeners))
	for _, fn := range l.listeners {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}
