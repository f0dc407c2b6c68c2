package core

import (
	"context"
	"sync"
	"sync/atomic"
)

// RunPool calls fn for every item with at most limit calls in flight and
// returns the results in input order. Workers claim the next index from a
// shared counter, so every item is handled exactly once.
func RunPool[T, R any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, index int, item T) R) []R {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}
	if limit <= 0 {
		limit = 1
	}

	var (
		next atomic.Int64
		wg   sync.WaitGroup
	)
	for range min(limit, len(items)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(next.Add(1) - 1)
				if i >= len(items) {
					return
				}
				results[i] = fn(ctx, i, items[i])
			}
		}()
	}

	wg.Wait()
	return results
}
