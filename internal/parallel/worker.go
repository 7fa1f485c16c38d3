// Package parallel provides the worker pool that runs chunk parsers and
// partial merges concurrently.
//
// Every item handed to a pool is owned by exactly one goroutine for the
// whole of its processing; results are collected by index, so callers get
// them back in input order regardless of completion order. The first error
// cancels the shared context and is returned once all workers have stopped.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// WorkerPool bounds how many items are processed at once.
type WorkerPool struct {
	numWorkers int
}

// NewWorkerPool creates a new worker pool. A non-positive size selects
// runtime.NumCPU().
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &WorkerPool{numWorkers: numWorkers}
}

// Size returns the number of workers.
func (wp *WorkerPool) Size() int {
	return wp.numWorkers
}

// ProcessIndexed executes worker for every item in parallel while preserving
// order. It blocks until every started worker has returned.
func ProcessIndexed[T, R any](
	ctx context.Context,
	wp *WorkerPool,
	items []T,
	worker func(ctx context.Context, index int, item T) (R, error),
) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}

	results := make([]R, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(wp.numWorkers)

	for i, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := worker(gctx, i, item)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Reduce folds items pairwise as a balanced tree, running the merges of one
// level concurrently. combine must be associative; it receives two distinct
// items and returns their merge. Each item is touched by at most one
// goroutine at a time.
func Reduce[T any](wp *WorkerPool, items []T, combine func(a, b T) T) T {
	var zero T
	if len(items) == 0 {
		return zero
	}

	level := append([]T(nil), items...)
	for len(level) > 1 {
		next := make([]T, (len(level)+1)/2)
		var g errgroup.Group
		g.SetLimit(wp.numWorkers)
		for i := 0; i+1 < len(level); i += 2 {
			g.Go(func() error {
				next[i/2] = combine(level[i], level[i+1])
				return nil
			})
		}
		if len(level)%2 == 1 {
			next[len(next)-1] = level[len(level)-1]
		}
		_ = g.Wait()
		level = next
	}
	return level[0]
}
