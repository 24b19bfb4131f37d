package parallel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Each calls fn for every element of s, running at most limit calls at once,
// and waits for all of them. A failing call does not cancel the others, all
// errors are joined. Once ctx is done, no further calls are started and
// ctx.Err() is part of the result.
//
//	err := parallel.Each(ctx, 4, notifiers, func(ctx context.Context, n Notifier) error {...})
func Each[E any](ctx context.Context, limit int, s []E, fn func(context.Context, E) error) error {
	if limit <= 0 {
		limit = len(s)
	}
	var g errgroup.Group
	g.SetLimit(max(limit, 1))

	var (
		mx      sync.Mutex
		errs    []error
		skipped atomic.Bool
	)
	for _, e := range s {
		if ctx.Err() != nil {
			skipped.Store(true)
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				skipped.Store(true)
				return nil
			}
			if err := fn(ctx, e); err != nil {
				mx.Lock()
				errs = append(errs, err)
				mx.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait() // goroutines do not return an error
	if skipped.Load() {
		errs = append(errs, ctx.Err())
	}
	return errors.Join(errs...)
}
