package analysis

import (
	"context"

	"github.com/golang/geo/r2"
	"github.com/hpdav/cityflow-backend-go/internal/spatial"
	"golang.org/x/sync/errgroup"
)

// Locator places a record on the plane; ok=false skips the record.
type Locator[T any] func(rec T) (p r2.Point, ok bool)

// Folder applies one record to the state of its cell.
type Folder[T any] func(s *CellState, rec T)

// AccumulateAll folds records into a fresh accumulator on the calling
// goroutine.
func AccumulateAll[T any](grid spatial.GridIndex, records []T, locate Locator[T], fold Folder[T]) *Accumulator {
	acc := NewAccumulator(grid)
	for _, rec := range records {
		p, ok := locate(rec)
		if !ok {
			continue
		}
		acc.Accumulate(p, func(s *CellState) { fold(s, rec) })
	}
	return acc
}

// AccumulateSharded splits records into contiguous shards, accumulates each
// on its own goroutine and merges the partial states. The result equals
// AccumulateAll over the same input.
func AccumulateSharded[T any](ctx context.Context, grid spatial.GridIndex, records []T, shards int, locate Locator[T], fold Folder[T]) (*Accumulator, error) {
	if shards <= 1 || len(records) < 2*shards {
		return AccumulateAll(grid, records, locate, fold), nil
	}

	partial := make([]*Accumulator, shards)
	chunk := (len(records) + shards - 1) / shards

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < shards; i++ {
		lo := i * chunk
		hi := min(lo+chunk, len(records))
		if lo >= hi {
			partial[i] = NewAccumulator(grid)
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			partial[i] = AccumulateAll(grid, records[lo:hi], locate, fold)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := NewAccumulator(grid)
	for _, p := range partial {
		if err := out.Merge(p); err != nil {
			return nil, err
		}
	}
	return out, nil
}
