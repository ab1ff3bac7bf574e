package engine

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunBounded applies fn to every item with at most limit calls in flight and
// returns once all of them have finished. A limit below 1 is treated as 1.
// Once ctx is done no further items are started; fn owns its own error handling.
func RunBounded[T any](ctx context.Context, items []T, limit int, fn func(context.Context, T)) {
	if limit < 1 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			fn(ctx, item)
			return nil
		})
	}
	_ = g.Wait()
}
