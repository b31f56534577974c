// Package flowsource supplies located trips to the flow aggregation, either
// from the precomputed trip_coordinates dataset or by reconstructing trip
// endpoints from position timelines.
package flowsource

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hpdav/cityflow-backend-go/internal/analysis"
	"github.com/hpdav/cityflow-backend-go/internal/config"
	"github.com/hpdav/cityflow-backend-go/internal/models"
	"github.com/hpdav/cityflow-backend-go/internal/refdata"
	"github.com/hpdav/cityflow-backend-go/internal/repository"
)

// Source names the two strategies.
const (
	NamePrecomputed   = "precomputed"
	NameReconstructed = "reconstructed"
)

// Source streams trips with their endpoints. Trips whose endpoints are
// unknown are reported with Resolved=false.
type Source interface {
	Name() string
	Each(ctx context.Context, f models.EventFilter, fn func(models.TripCoordinate) error) error
}

// Precomputed reads the materialized trip_coordinates dataset.
type Precomputed struct {
	store repository.TripCoordinateSource
}

// NewPrecomputed returns the precomputed strategy.
func NewPrecomputed(store repository.TripCoordinateSource) *Precomputed {
	return &Precomputed{store: store}
}

func (p *Precomputed) Name() string { return NamePrecomputed }

func (p *Precomputed) Each(ctx context.Context, f models.EventFilter, fn func(models.TripCoordinate) error) error {
	return p.store.EachTripCoordinate(ctx, f, fn)
}

// Reconstructed resolves trip endpoints with a TripReconstructor over every
// participant's position timeline. The timelines are loaded once.
type Reconstructed struct {
	store    repository.EventSource
	resolver *refdata.Lazy[*analysis.AsOfResolver]
}

// NewReconstructed returns the reconstruction strategy.
func NewReconstructed(store repository.EventSource, logger logrus.FieldLogger) *Reconstructed {
	logger = logger.WithField("component", "flowsource")
	return &Reconstructed{
		store: store,
		resolver: refdata.NewLazy(func(ctx context.Context) (*analysis.AsOfResolver, error) {
			start := time.Now()
			var samples []models.PositionSample
			err := store.EachSample(ctx, models.EventFilter{}, func(s models.PositionSample) error {
				samples = append(samples, s)
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("failed to load timelines: %w", err)
			}
			r := analysis.NewAsOfResolver(samples)
			logger.WithFields(logrus.Fields{
				"samples":  len(samples),
				"duration": time.Since(start),
			}).Info("position timelines loaded")
			return r, nil
		}),
	}
}

func (r *Reconstructed) Name() string { return NameReconstructed }

func (r *Reconstructed) Each(ctx context.Context, f models.EventFilter, fn func(models.TripCoordinate) error) error {
	resolver, err := r.resolver.Get(ctx)
	if err != nil {
		return err
	}
	rec := analysis.NewTripReconstructor(resolver)

	return r.store.EachTrip(ctx, f, func(trip models.Trip) error {
		resolved, ok := rec.Resolve(trip)
		if !ok {
			return fn(models.TripCoordinate{ResolvedTrip: models.ResolvedTrip{Trip: trip}})
		}
		return fn(models.TripCoordinate{ResolvedTrip: resolved, Resolved: true})
	})
}

// Selector picks the strategy for each request. In auto mode the
// precomputed dataset is used whenever it exists; its absence silently
// selects reconstruction.
type Selector struct {
	mode          string
	store         repository.TripCoordinateSource
	precomputed   *Precomputed
	reconstructed *Reconstructed
	logger        logrus.FieldLogger
}

// NewSelector returns a selector for mode (one of the config.FlowSource*
// values).
func NewSelector(mode string, store repository.Store, logger logrus.FieldLogger) *Selector {
	return &Selector{
		mode:          mode,
		store:         store,
		precomputed:   NewPrecomputed(store),
		reconstructed: NewReconstructed(store, logger),
		logger:        logger.WithField("component", "flowsource"),
	}
}

// Select returns the strategy to use now.
func (s *Selector) Select(ctx context.Context) (Source, error) {
	switch s.mode {
	case config.FlowSourceReconstructed:
		return s.reconstructed, nil
	case config.FlowSourcePrecomputed:
		ok, err := s.store.HasTripCoordinates(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, models.SourceUnavailable(NamePrecomputed, repository.ErrNoTripCoordinates)
		}
		return s.precomputed, nil
	}

	ok, err := s.store.HasTripCoordinates(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		return s.precomputed, nil
	}
	s.logger.Debug("trip_coordinates absent, reconstructing trips")
	return s.reconstructed, nil
}

// Materialize resolves every trip through reconstruction and stores the
// result as the precomputed dataset. It returns the number of trips
// written and how many of them are unresolved.
func Materialize(ctx context.Context, store repository.Store, logger logrus.FieldLogger) (total, unresolved int, err error) {
	var rows []models.TripCoordinate
	err = NewReconstructed(store, logger).Each(ctx, models.EventFilter{}, func(tc models.TripCoordinate) error {
		rows = append(rows, tc)
		if !tc.Resolved {
			unresolved++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	if err := store.WriteTripCoordinates(ctx, rows); err != nil {
		return 0, 0, err
	}
	return len(rows), unresolved, nil
}
