// Package workpool runs independent network-bound tasks over a fixed number of workers.
package workpool

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"golang.org/x/sync/errgroup"
)

// Result pairs a task key with the value or error its task produced
type Result[K any, R any] struct {
	Key   K
	Value R
	Err   error
}

// DefaultWorkers returns the number of logical CPUs, falling back to runtime.NumCPU
func DefaultWorkers() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// Run applies fn to every key using at most workers concurrent goroutines.
// A failing task never cancels its siblings: each error is recorded on its own Result.
// Results are returned in the order of keys. Keys not yet started when ctx is
// cancelled report ctx.Err().
func Run[K any, R any](ctx context.Context, workers int, keys []K, fn func(context.Context, K) (R, error)) []Result[K, R] {
	if workers < 1 {
		workers = 1
	}

	results := make([]Result[K, R], len(keys))
	var g errgroup.Group
	g.SetLimit(workers)

	for i, key := range keys {
		results[i].Key = key
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Value, results[i].Err = fn(ctx, key)
			return nil
		})
	}

	_ = g.Wait()
	return results
}
