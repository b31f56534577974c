package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/hpdav/cityflow-backend-go/internal/analysis"
	"github.com/hpdav/cityflow-backend-go/internal/models"
	"github.com/hpdav/cityflow-backend-go/internal/repository"
	"github.com/hpdav/cityflow-backend-go/internal/spatial"
)

// TrafficService computes check-in traffic patterns.
type TrafficService struct {
	d Deps
}

// Get validates q and returns the (possibly cached) result.
func (s *TrafficService) Get(ctx context.Context, q models.TrafficQuery) (*models.TrafficResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return fetch(ctx, s.d, models.KindTraffic, q.KeyFields(), func(ctx context.Context) (*models.TrafficResult, error) {
		return s.compute(ctx, q)
	})
}

func (s *TrafficService) compute(ctx context.Context, q models.TrafficQuery) (*models.TrafficResult, error) {
	grid, err := spatial.NewGridIndex(q.GridSize)
	if err != nil {
		return nil, err
	}
	venues, err := s.d.Tables.VenueIndex(ctx)
	if err != nil {
		return nil, err
	}
	outliers, err := s.d.outliers(ctx, q.ExcludeOutliers)
	if err != nil {
		return nil, err
	}
	filter := analysis.TrafficFilter{
		TimePeriod: q.TimePeriod,
		DayType:    q.DayType,
		Range:      q.Range,
		SampleRate: q.SampleRate,
		Exclude:    outliers,
	}

	agg, err := fanOut(ctx, s.d.Shards,
		func(ctx context.Context, emit func(models.Checkin) error) error {
			return s.d.Store.EachCheckin(ctx, models.EventFilter{Range: q.Range}, emit)
		},
		func() *analysis.TrafficAggregator { return analysis.NewTrafficAggregator(grid, venues, filter) },
		(*analysis.TrafficAggregator).Add,
		(*analysis.TrafficAggregator).Merge,
	)
	if err != nil {
		return nil, err
	}
	if n := agg.Unknown(); n > 0 {
		s.d.Logger.WithFields(logrus.Fields{"component": "traffic", "skipped": n}).Warn("check-ins at unknown venues")
	}

	hourly, err := s.d.Tables.HourlyProfile(ctx)
	if err != nil {
		return nil, err
	}
	span, err := s.d.Tables.Span(ctx, repository.LogCheckins)
	if err != nil {
		return nil, err
	}

	cells := agg.Cells()
	return &models.TrafficResult{
		GridSize:        q.GridSize,
		TimePeriod:      q.TimePeriod,
		DayType:         q.DayType,
		SampleRate:      q.SampleRate,
		StartDate:       q.StartDate,
		EndDate:         q.EndDate,
		ExcludeOutliers: q.ExcludeOutliers,
		Cells:           cells,
		Statistics:      analysis.SummarizeTraffic(cells),
		HourlyPattern:   hourly,
		AvailableDates:  span,
	}, nil
}
