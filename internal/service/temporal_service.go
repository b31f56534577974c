package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hpdav/cityflow-backend-go/internal/analysis"
	"github.com/hpdav/cityflow-backend-go/internal/models"
	"github.com/hpdav/cityflow-backend-go/internal/repository"
)

// TemporalService computes activity, spending and social series.
type TemporalService struct {
	d Deps
}

// Get validates q and returns the (possibly cached) result.
func (s *TemporalService) Get(ctx context.Context, q models.TemporalQuery) (*models.TemporalResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return fetch(ctx, s.d, models.KindTemporal, q.KeyFields(), func(ctx context.Context) (*models.TemporalResult, error) {
		return s.compute(ctx, q)
	})
}

func (s *TemporalService) compute(ctx context.Context, q models.TemporalQuery) (*models.TemporalResult, error) {
	outliers, err := s.d.outliers(ctx, q.ExcludeOutliers)
	if err != nil {
		return nil, err
	}
	res := &models.TemporalResult{
		Granularity:     q.Granularity,
		Metric:          q.Metric,
		VenueType:       q.VenueType,
		ExcludeOutliers: q.ExcludeOutliers,
	}

	// each series writes its own fields
	g, gctx := errgroup.WithContext(ctx)
	if q.Metric.Includes(models.TemporalActivity) {
		g.Go(func() error {
			series := analysis.NewActivitySeries(q.Granularity, q.VenueType, outliers)
			var f models.EventFilter
			if q.VenueType != "all" {
				f.Categories = []string{q.VenueType}
			}
			err := s.d.Store.EachCheckin(gctx, f, func(c models.Checkin) error {
				series.Add(c)
				return nil
			})
			if err != nil {
				return err
			}
			res.Activity = series.Result()
			res.ActivityTrends = analysis.ActivityTrendsOf(res.Activity)
			return nil
		})
	}
	if q.Metric.Includes(models.TemporalSpending) {
		g.Go(func() error {
			series := analysis.NewSpendingSeries(q.Granularity, outliers)
			err := s.d.Store.EachFinancial(gctx, models.EventFilter{}, func(ev models.FinancialEvent) error {
				series.Add(ev)
				return nil
			})
			if err != nil {
				return err
			}
			res.Spending = series.Result()
			res.SpendingTrends = analysis.SpendingTrendsOf(res.Spending)
			return nil
		})
	}
	if q.Metric.Includes(models.TemporalSocial) {
		g.Go(func() error {
			series := analysis.NewSocialSeries(q.Granularity, outliers)
			err := s.d.Store.EachInteraction(gctx, models.EventFilter{}, func(in models.Interaction) error {
				series.Add(in)
				return nil
			})
			if err != nil {
				return err
			}
			res.Social = series.Result()
			return nil
		})
	}
	g.Go(func() error {
		span, err := s.d.Tables.Span(gctx, repository.LogCheckins)
		res.DateRange = span
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}
