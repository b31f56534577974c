package service

import (
	"context"

	"github.com/hpdav/cityflow-backend-go/internal/analysis"
	"github.com/hpdav/cityflow-backend-go/internal/models"
	"github.com/hpdav/cityflow-backend-go/internal/repository"
)

// ThemeRiverService computes category streams over time.
type ThemeRiverService struct {
	d Deps
}

// Get validates q and returns the (possibly cached) result.
func (s *ThemeRiverService) Get(ctx context.Context, q models.ThemeRiverQuery) (*models.ThemeRiverResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return fetch(ctx, s.d, models.KindThemeRiver, q.KeyFields(), func(ctx context.Context) (*models.ThemeRiverResult, error) {
		return s.compute(ctx, q)
	})
}

func (s *ThemeRiverService) compute(ctx context.Context, q models.ThemeRiverQuery) (*models.ThemeRiverResult, error) {
	outliers, err := s.d.outliers(ctx, q.ExcludeOutliers)
	if err != nil {
		return nil, err
	}
	b := analysis.NewRiverBuilder(q.Granularity, outliers)

	var log repository.EventLog
	switch q.Dimension {
	case models.DimensionMode:
		log = repository.LogSamples
		err = s.d.Store.EachSample(ctx, models.EventFilter{}, func(ps models.PositionSample) error {
			b.AddSample(ps)
			return nil
		})
	case models.DimensionPurpose:
		log = repository.LogTrips
		err = s.d.Store.EachTrip(ctx, models.EventFilter{}, func(t models.Trip) error {
			b.AddTrip(t)
			return nil
		})
	case models.DimensionSpending:
		log = repository.LogFinancial
		err = s.d.Store.EachFinancial(ctx, models.EventFilter{}, func(ev models.FinancialEvent) error {
			b.AddExpense(ev)
			return nil
		})
	}
	if err != nil {
		return nil, err
	}

	res := b.Build(q.Normalize)
	res.Granularity = q.Granularity
	res.Dimension = q.Dimension
	res.Normalize = q.Normalize
	res.ExcludeOutliers = q.ExcludeOutliers
	if res.DateRange, err = s.d.Tables.Span(ctx, log); err != nil {
		return nil, err
	}
	return res, nil
}
