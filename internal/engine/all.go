package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/oplens/internal/activity"
)

// ProcessAll processes independent stores concurrently. Results are in
// input order. The first error cancels the remaining runs.
func ProcessAll(ctx context.Context, stores []*activity.Store, opts ...EngineOption) ([]*Result, error) {
	e := New(opts...)
	results := make([]*Result, len(stores))

	g, gCtx := errgroup.WithContext(ctx)
	for i, s := range stores {
		i, s := i, s
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			res, err := e.Process(s)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
