package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/hpdav/cityflow-backend-go/internal/analysis"
	"github.com/hpdav/cityflow-backend-go/internal/cache"
	"github.com/hpdav/cityflow-backend-go/internal/flowsource"
	"github.com/hpdav/cityflow-backend-go/internal/refdata"
	"github.com/hpdav/cityflow-backend-go/internal/repository"
)

// Deps carries the collaborators shared by every service.
type Deps struct {
	Store            repository.Store
	Tables           *refdata.Tables
	Cache            *cache.QueryCache
	Flows            *flowsource.Selector
	Logger           logrus.FieldLogger
	OutlierThreshold int64
	Shards           int
}

// Services bundles one service per aggregation kind.
type Services struct {
	Area       *AreaService
	Traffic    *TrafficService
	Flow       *FlowService
	Temporal   *TemporalService
	ThemeRiver *ThemeRiverService
	Routines   *RoutineService
	Parallel   *ParallelService
	Venues     *VenueService
	Status     *StatusService
}

// New builds every service over d.
func New(d Deps) *Services {
	if d.Shards < 1 {
		d.Shards = 1
	}
	return &Services{
		Area:       &AreaService{d: d},
		Traffic:    &TrafficService{d: d},
		Flow:       &FlowService{d: d},
		Temporal:   &TemporalService{d: d},
		ThemeRiver: &ThemeRiverService{d: d},
		Routines:   &RoutineService{d: d},
		Parallel:   &ParallelService{d: d},
		Venues:     &VenueService{d: d},
		Status:     &StatusService{d: d},
	}
}

// outliers returns the set to exclude, or nil when exclusion is off.
func (d Deps) outliers(ctx context.Context, exclude bool) (*analysis.OutlierSet, error) {
	if !exclude {
		return nil, nil
	}
	return d.Tables.Outliers(ctx, d.OutlierThreshold)
}

// fetch memoises compute under the key of (kind, fields).
func fetch[T any](ctx context.Context, d Deps, kind string, fields map[string]string, compute func(ctx context.Context) (T, error)) (T, error) {
	key := cache.NewKey(kind, fields)
	return cache.Fetch(ctx, d.Cache, key, func(ctx context.Context) (T, error) {
		start := time.Now()
		v, err := compute(ctx)
		if err == nil {
			d.Logger.WithFields(logrus.Fields{
				"component": "service",
				"kind":      kind,
				"duration":  time.Since(start),
			}).Debug("aggregation finished")
		}
		return v, err
	})
}

const fanOutBatch = 1024

// fanOut streams records to shards workers, each folding into its own
// partial aggregate, and merges the partials. Aggregates must not depend
// on the order records are added.
func fanOut[T, A any](
	ctx context.Context,
	shards int,
	stream func(ctx context.Context, emit func(T) error) error,
	newPart func() A,
	add func(A, T),
	merge func(into, from A) error,
) (A, error) {
	var zero A
	if shards < 1 {
		shards = 1
	}
	parts := make([]A, shards)
	for i := range parts {
		parts[i] = newPart()
	}
	if shards == 1 {
		err := stream(ctx, func(v T) error {
			add(parts[0], v)
			return nil
		})
		if err != nil {
			return zero, err
		}
		return parts[0], nil
	}

	g, gctx := errgroup.WithContext(ctx)
	batches := make(chan []T, shards)
	for i := 0; i < shards; i++ {
		part := parts[i]
		g.Go(func() error {
			for batch := range batches {
				for _, v := range batch {
					add(part, v)
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		defer close(batches)
		send := func(b []T) error {
			select {
			case batches <- b:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		batch := make([]T, 0, fanOutBatch)
		err := stream(gctx, func(v T) error {
			batch = append(batch, v)
			if len(batch) < fanOutBatch {
				return nil
			}
			full := batch
			batch = make([]T, 0, fanOutBatch)
			return send(full)
		})
		if err != nil {
			return err
		}
		if len(batch) > 0 {
			return send(batch)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return zero, err
	}

	for _, p := range parts[1:] {
		if err := merge(parts[0], p); err != nil {
			return zero, err
		}
	}
	return parts[0], nil
}
