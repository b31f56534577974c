package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/hpdav/cityflow-backend-go/internal/analysis"
	"github.com/hpdav/cityflow-backend-go/internal/models"
	"github.com/hpdav/cityflow-backend-go/internal/repository"
	"github.com/hpdav/cityflow-backend-go/internal/spatial"
)

// FlowService computes origin-destination flows. The trip source is
// chosen per computation and is not part of the cache key: both sources
// yield the same result for the same data.
type FlowService struct {
	d Deps
}

// Get validates q and returns the (possibly cached) result.
func (s *FlowService) Get(ctx context.Context, q models.FlowQuery) (*models.FlowResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return fetch(ctx, s.d, models.KindFlow, q.KeyFields(), func(ctx context.Context) (*models.FlowResult, error) {
		return s.compute(ctx, q)
	})
}

func (s *FlowService) compute(ctx context.Context, q models.FlowQuery) (*models.FlowResult, error) {
	grid, err := spatial.NewGridIndex(q.GridSize)
	if err != nil {
		return nil, err
	}
	outliers, err := s.d.outliers(ctx, q.ExcludeOutliers)
	if err != nil {
		return nil, err
	}
	src, err := s.d.Flows.Select(ctx)
	if err != nil {
		return nil, err
	}

	filter := analysis.FlowFilter{
		DayType:  q.DayType,
		Purposes: q.Purposes(),
		Range:    q.Range,
		Exclude:  outliers,
	}
	pushdown := models.EventFilter{Range: q.Range, Categories: q.Purposes()}

	agg, err := fanOut(ctx, s.d.Shards,
		func(ctx context.Context, emit func(models.TripCoordinate) error) error {
			return src.Each(ctx, pushdown, emit)
		},
		func() *analysis.FlowAggregator { return analysis.NewFlowAggregator(grid, filter) },
		func(a *analysis.FlowAggregator, tc models.TripCoordinate) {
			if tc.Resolved {
				a.Add(tc.ResolvedTrip)
			} else {
				a.AddUnresolved(tc.Trip)
			}
		},
		(*analysis.FlowAggregator).Merge,
	)
	if err != nil {
		return nil, err
	}

	counts := agg.Counters()
	s.d.Logger.WithFields(logrus.Fields{
		"component":  "flow",
		"source":     src.Name(),
		"resolved":   counts.Resolved,
		"same_cell":  counts.SameCell,
		"unresolved": counts.Unresolved,
	}).Info("flow aggregation finished")

	venues, err := s.d.Tables.Venues(ctx)
	if err != nil {
		return nil, err
	}
	purposes, err := s.d.Tables.Purposes(ctx)
	if err != nil {
		return nil, err
	}
	span, err := s.d.Tables.Span(ctx, repository.LogTrips)
	if err != nil {
		return nil, err
	}

	flows := agg.Flows(q.MinTrips)
	stats := analysis.SummarizeFlows(flows, counts)
	stats.Source = src.Name()

	return &models.FlowResult{
		GridSize:        q.GridSize,
		DayType:         q.DayType,
		Purpose:         q.Purpose,
		MinTrips:        q.MinTrips,
		StartDate:       q.StartDate,
		EndDate:         q.EndDate,
		ExcludeOutliers: q.ExcludeOutliers,
		Bounds:          analysis.ApartmentBounds(venues),
		AvailableDates:  span,
		Purposes:        purposes,
		Flows:           flows,
		Cells:           agg.Cells(),
		Statistics:      stats,
	}, nil
}
