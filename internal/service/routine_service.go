package service

import (
	"context"

	"github.com/hpdav/cityflow-backend-go/internal/analysis"
	"github.com/hpdav/cityflow-backend-go/internal/models"
)

// Routine types.
const (
	RoutineTypical = "typical"
	RoutineDay     = "day"
)

// RoutineService computes participant day routines.
type RoutineService struct {
	d Deps
}

// Get validates q and returns the (possibly cached) result.
func (s *RoutineService) Get(ctx context.Context, q models.RoutineQuery) (*models.RoutineResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return fetch(ctx, s.d, models.KindRoutines, q.KeyFields(), func(ctx context.Context) (*models.RoutineResult, error) {
		return s.compute(ctx, q)
	})
}

func (s *RoutineService) compute(ctx context.Context, q models.RoutineQuery) (*models.RoutineResult, error) {
	months, err := s.d.Tables.Months(ctx)
	if err != nil {
		return nil, err
	}
	participants, err := s.d.Tables.Participants(ctx)
	if err != nil {
		return nil, err
	}
	res := &models.RoutineResult{AvailableMonths: months, Participants: participants}
	filter := analysis.RoutineFilter{Month: q.MonthRange, DayType: q.DayType}

	if len(q.IDs) == 0 {
		b := analysis.NewSummaryBuilder(filter)
		err := s.d.Store.EachCheckin(ctx, models.EventFilter{}, func(c models.Checkin) error {
			b.Add(c)
			return nil
		})
		if err != nil {
			return nil, err
		}
		res.RoutineSummaries = b.Result()
		return res, nil
	}

	places, err := s.d.Tables.Places(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*models.Participant, len(participants))
	for i := range participants {
		byID[participants[i].ID] = &participants[i]
	}

	routineType := RoutineTypical
	if !q.DayRange.IsZero() {
		routineType = RoutineDay
	}

	res.SelectedIDs = q.IDs
	res.Routines = make(map[int64]*models.ParticipantRoutine, len(q.IDs))
	res.TravelRoutes = make(map[int64][]models.TravelRoute, len(q.IDs))
	for _, id := range q.IDs {
		b := analysis.NewRoutineBuilder(filter, q.DayRange)
		err := s.d.Store.EachCheckin(ctx, models.EventFilter{Participants: []int64{id}}, func(c models.Checkin) error {
			b.Add(c)
			return nil
		})
		if err != nil {
			return nil, err
		}

		routine := &models.ParticipantRoutine{
			Participant: byID[id],
			Type:        routineType,
			Timeline:    b.Timeline(),
			DaysSampled: b.DaysSampled(),
			Checkins:    b.Checkins(),
		}
		if home, ok := places.Homes[id]; ok {
			routine.HomeLocation = &home
		}
		if work, ok := places.Works[id]; ok {
			routine.WorkLocation = &work
		}
		res.Routines[id] = routine

		samples, err := s.d.Store.Timeline(ctx, id)
		if err != nil {
			return nil, err
		}
		res.TravelRoutes[id] = analysis.TravelRoutes(analysis.NewTimeline(samples), filter)
	}
	return res, nil
}
