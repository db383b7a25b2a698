package fetch

import (
	"context"
	"errors"
	"sync"
)

// ErrBusy is returned when an Action is triggered while it is still running.
var ErrBusy = errors.New("action already in progress")

// Action guards a mutation control (a button). The busy flag is cleared on
// every exit path, including panics in the mutation.
type Action struct {
	mu      sync.Mutex
	busy    bool
	lastErr error
}

func (a *Action) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	a.mu.Lock()
	if a.busy {
		a.mu.Unlock()
		return ErrBusy
	}
	a.busy = true
	a.mu.Unlock()

	var err error
	defer func() {
		a.mu.Lock()
		a.busy = false
		a.lastErr = err
		a.mu.Unlock()
	}()

	err = fn(ctx)
	return err
}

func (a *Action) Busy() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.busy
}

// LastErr is the outcome of the most recent run, for success/failure feedback.
func (a *Action) LastErr() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}
