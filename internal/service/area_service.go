package service

import (
	"context"

	"github.com/hpdav/cityflow-backend-go/internal/analysis"
	"github.com/hpdav/cityflow-backend-go/internal/models"
	"github.com/hpdav/cityflow-backend-go/internal/spatial"
)

// AreaService computes area characteristics.
type AreaService struct {
	d Deps
}

// Get validates q and returns the (possibly cached) result.
func (s *AreaService) Get(ctx context.Context, q models.AreaQuery) (*models.AreaResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return fetch(ctx, s.d, models.KindArea, q.KeyFields(), func(ctx context.Context) (*models.AreaResult, error) {
		return s.compute(ctx, q)
	})
}

func (s *AreaService) compute(ctx context.Context, q models.AreaQuery) (*models.AreaResult, error) {
	grid, err := spatial.NewGridIndex(q.GridSize)
	if err != nil {
		return nil, err
	}
	venues, err := s.d.Tables.Venues(ctx)
	if err != nil {
		return nil, err
	}

	res := &models.AreaResult{
		GridSize:        q.GridSize,
		Metric:          q.Metric,
		ExcludeOutliers: q.ExcludeOutliers,
		Bounds:          analysis.ApartmentBounds(venues),
	}

	if q.Metric.Includes(models.MetricDemographics) || q.Metric.Includes(models.MetricFinancial) {
		residents, err := s.residents(ctx, q.ExcludeOutliers)
		if err != nil {
			return nil, err
		}
		if q.Metric.Includes(models.MetricDemographics) {
			if res.Demographics, err = analysis.Demographics(ctx, grid, residents, s.d.Shards); err != nil {
				return nil, err
			}
		}
		if q.Metric.Includes(models.MetricFinancial) {
			ledgers, err := s.d.Tables.Ledgers(ctx)
			if err != nil {
				return nil, err
			}
			if res.Financial, err = analysis.Financial(ctx, grid, residents, ledgers, s.d.Shards); err != nil {
				return nil, err
			}
		}
	}
	if q.Metric.Includes(models.MetricVenues) {
		res.Venues = analysis.VenueCells(grid, venues)
	}
	if q.Metric.Includes(models.MetricApartments) {
		res.Apartments = analysis.ApartmentCells(grid, venues)
	}
	return res, nil
}

// residents returns the residents, without outliers when exclude is set.
func (s *AreaService) residents(ctx context.Context, exclude bool) ([]analysis.Resident, error) {
	all, err := s.d.Tables.Residents(ctx)
	if err != nil {
		return nil, err
	}
	outliers, err := s.d.outliers(ctx, exclude)
	if err != nil {
		return nil, err
	}
	if outliers.Len() == 0 {
		return all, nil
	}
	kept := make([]analysis.Resident, 0, len(all))
	for _, r := range all {
		if outliers.Keep(r.Participant.ID) {
			kept = append(kept, r)
		}
	}
	return kept, nil
}
