// Package query turns store reads into live queries: a fetch is re-run after
// every committed mutation and only the latest result is kept for the reader.
package query

import (
	"context"
)

// Source is anything that signals after a commit. *store.Store satisfies it.
type Source interface {
	Subscribe() (<-chan struct{}, func())
}

// Result carries one emission of a live query. Err is set when the fetch
// failed; the query keeps listening and retries on the next change.
type Result[T any] struct {
	Value T
	Err   error
}

// Watch runs fetch immediately and again after every change signalled by src,
// until ctx is done. The returned channel holds at most one undelivered value;
// a newer result replaces an older one. The channel is closed when ctx ends.
func Watch[T any](ctx context.Context, src Source, fetch func(context.Context) (T, error)) <-chan Result[T] {
	out := make(chan Result[T], 1)
	changes, unsubscribe := src.Subscribe()

	go func() {
		defer close(out)
		defer unsubscribe()

		for {
			v, err := fetch(ctx)
			if ctx.Err() != nil {
				return
			}
			replace(out, Result[T]{Value: v, Err: err})

			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
			}
		}
	}()
	return out
}

// replace drops any undelivered value in ch and sends v. ch must have a
// buffer of one and a single writer.
func replace[T any](ch chan T, v T) {
	select {
	case <-ch:
	default:
	}
	ch <- v
}
