// Package xiter provides a paging iterator for lazily walked
// collections.
package xiter

import (
	"context"
	"errors"
)

var _ Iterator[string] = IteratorFunc[string](nil)

// ErrIteratorDone indicates the iterator is complete.
var ErrIteratorDone = errors.New("iterator done")

// Iterator is the interface for lazy list operations. Implementations
// load one page of items at a time.
type Iterator[T any] interface {
	// Next returns the next page. If no more items remain it returns an
	// error wrapping [ErrIteratorDone].
	Next(ctx context.Context) ([]T, error)
}

// IteratorFunc is a function that implements [Iterator].
type IteratorFunc[T any] func(context.Context) ([]T, error)

// Next returns the next page.
func (fn IteratorFunc[T]) Next(ctx context.Context) ([]T, error) {
	return fn(ctx)
}

// Collect drains the iterator into a single slice.
func Collect[T any](ctx context.Context, it Iterator[T]) ([]T, error) {
	var items []T
	for {
		page, err := it.Next(ctx)
		if errors.Is(err, ErrIteratorDone) {
			return items, nil
		}
		if err != nil {
			return items, err
		}
		items = append(items, page...)
	}
}
