// Package workerpool runs a function over a slice of items with bounded
// concurrency. Used for per-channel startup work, where serial awaiting
// would stall the boot.
package workerpool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Run calls fn once per item, at most workers at a time, and waits for all
// of them. The first non-nil error is returned; later items still run, a
// failure for one item must not starve the rest. Items are not scheduled
// once ctx is done.
func Run[T any](ctx context.Context, items []T, workers int, fn func(context.Context, T) error) error {
	if len(items) == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return fn(ctx, item)
		})
	}

	return g.Wait()
}
