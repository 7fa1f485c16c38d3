package aggregate

import (
	"github.com/paveg/colcsv/internal/parallel"
)

// Merge folds parts left to right into parts[0] and returns it. It returns
// the zero value when parts is empty.
func Merge[A Accumulator[A]](parts ...A) A {
	var zero A
	if len(parts) == 0 {
		return zero
	}
	acc := parts[0]
	for _, p := range parts[1:] {
		acc.Combine(p)
	}
	return acc
}

// MergeTree merges parts pairwise as a balanced tree on wp, combining the
// pairs of each level concurrently. A nil wp uses one worker per CPU.
func MergeTree[A Accumulator[A]](wp *parallel.WorkerPool, parts ...A) A {
	if wp == nil {
		wp = parallel.NewWorkerPool(0)
	}
	return parallel.Reduce(wp, parts, func(a, b A) A {
		a.Combine(b)
		return a
	})
}

// MergeAll folds erased parts left to right into parts[0]. All parts must
// wrap the same accumulator type.
func MergeAll(parts ...Aggregator) Aggregator {
	if len(parts) == 0 {
		return nil
	}
	acc := parts[0]
	for _, p := range parts[1:] {
		acc.Merge(p)
	}
	return acc
}

// MergeAllTree is the erased form of MergeTree. It returns nil when parts
// is empty.
func MergeAllTree(wp *parallel.WorkerPool, parts ...Aggregator) Aggregator {
	if wp == nil {
		wp = parallel.NewWorkerPool(0)
	}
	return parallel.Reduce(wp, parts, func(a, b Aggregator) Aggregator {
		a.Merge(b)
		return a
	})
}
