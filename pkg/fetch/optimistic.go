package fetch

import "context"

// Optimistic applies apply to the loader data immediately, runs call, and
// then reconciles against a full refetch whatever the outcome. When both the
// call and the refetch fail the pre-mutation snapshot is restored, so a
// rejected change never lingers on screen.
//
// The returned error is the error of call.
func Optimistic[P, T any](ctx context.Context, l *Loader[P, T], apply func(T) T, call func(ctx context.Context) error) error {
	snapshot := l.State().Data
	l.Mutate(apply)

	callErr := call(ctx)

	reconciled := l.Reload(ctx)
	if callErr != nil && reconciled.Err != nil {
		l.Mutate(func(T) T { return snapshot })
	}
	return callErr
}
