package services

import (
	"context"

	"golang.org/x/sync/errgroup"
)

const fanOutLimit = 8

// fanOut runs fetch for every parent concurrently and concatenates the results in
// parent order. The first error cancels the remaining fetches and is returned.
func fanOut[P, R any](ctx context.Context, parents []P, fetch func(context.Context, P) ([]R, error)) ([]R, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)

	results := make([][]R, len(parents))
	for i, parent := range parents {
		i, parent := i, parent
		g.Go(func() error {
			rows, err := fetch(ctx, parent)
			if err != nil {
				return err
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := []R{}
	for _, rows := range results {
		out = append(out, rows...)
	}
	return out, nil
}
