// Package fetch implements the loading/error/data lifecycle shared by every
// data-bound console page.
package fetch

import "github.com/lborres/volunteer/core"

// State is a snapshot of one page's data request.
//
// Loading implies Err is nil. Data is never cleared by a failed request.
type State[T any] struct {
	Data    T
	Loading bool
	Err     error
	// Loaded is true once any request has succeeded.
	Loaded bool
}

// Message is the user-presentable form of Err.
func (s State[T]) Message() string {
	return core.UserMessage(s.Err)
}

func (s State[T]) Category() core.Category {
	return core.CategoryOf(s.Err)
}

// ViewKind is the single thing a page renders at any moment.
type ViewKind string

const (
	ViewLoading ViewKind = "loading"
	ViewError   ViewKind = "error"
	ViewContent ViewKind = "content"
	ViewEmpty   ViewKind = "empty"
)

// View selects exactly one of loading, error, content or empty. A page whose
// refetch failed still reports the error, with the stale data attached by
// the caller if it wants to show it.
func View[T any](s State[T], isEmpty func(T) bool) ViewKind {
	switch {
	case s.Loading:
		return ViewLoading
	case s.Err != nil:
		return ViewError
	case !s.Loaded || (isEmpty != nil && isEmpty(s.Data)):
		return ViewEmpty
	default:
		return ViewContent
	}
}

// EmptySlice is an isEmpty predicate for list pages.
func EmptySlice[E any](items []E) bool { return len(items) == 0 }
