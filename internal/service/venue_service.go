package service

import (
	"context"

	"github.com/golang/geo/r2"
	"github.com/samber/lo"

	"github.com/hpdav/cityflow-backend-go/internal/models"
	"github.com/hpdav/cityflow-backend-go/internal/spatial"
)

// VenueService serves the venue map.
type VenueService struct {
	d Deps
}

// Get returns every venue grouped by type.
func (s *VenueService) Get(ctx context.Context) (*models.VenueMapResult, error) {
	return fetch(ctx, s.d, models.KindVenues, nil, func(ctx context.Context) (*models.VenueMapResult, error) {
		venues, err := s.d.Tables.Venues(ctx)
		if err != nil {
			return nil, err
		}
		groups := lo.GroupBy(venues, func(v models.Venue) string { return v.Type })
		return &models.VenueMapResult{
			Bounds: spatial.BoundsOf(lo.Map(venues, func(v models.Venue, _ int) r2.Point { return v.Point() })),
			Counts: lo.MapValues(groups, func(vs []models.Venue, _ string) int { return len(vs) }),
			Venues: groups,
		}, nil
	})
}

// StatusService reports on the store and the cache.
type StatusService struct {
	d Deps
}

// Ping checks that the store is reachable.
func (s *StatusService) Ping(ctx context.Context) error {
	return s.d.Store.Ping(ctx)
}

// CacheEntries returns the number of cached results per kind.
func (s *StatusService) CacheEntries() map[string]int {
	return s.d.Cache.CountByKind()
}
