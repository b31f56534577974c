package service

import (
	"context"

	"github.com/hpdav/cityflow-backend-go/internal/analysis"
	"github.com/hpdav/cityflow-backend-go/internal/models"
)

// ParallelService computes per-participant activity profiles.
type ParallelService struct {
	d Deps
}

// Get returns the (possibly cached) result.
func (s *ParallelService) Get(ctx context.Context, q models.ParallelQuery) (*models.ParallelResult, error) {
	return fetch(ctx, s.d, models.KindParallel, q.KeyFields(), func(ctx context.Context) (*models.ParallelResult, error) {
		participants, err := s.d.Tables.Participants(ctx)
		if err != nil {
			return nil, err
		}
		outliers, err := s.d.outliers(ctx, q.ExcludeOutliers)
		if err != nil {
			return nil, err
		}

		b := analysis.NewParallelBuilder(participants, outliers)
		if err := s.d.Store.EachCheckin(ctx, models.EventFilter{}, func(c models.Checkin) error {
			b.AddCheckin(c)
			return nil
		}); err != nil {
			return nil, err
		}
		if err := s.d.Store.EachTrip(ctx, models.EventFilter{}, func(t models.Trip) error {
			b.AddTrip(t)
			return nil
		}); err != nil {
			return nil, err
		}
		return &models.ParallelResult{ExcludeOutliers: q.ExcludeOutliers, Participants: b.Result()}, nil
	})
}
