package repository

import (
	"context"
	"sync"
	"time"

	"github.com/hpdav/cityflow-backend-go/internal/models"
)

// MemoryStore serves a Fixture from memory. It is safe for concurrent use.
type MemoryStore struct {
	fx *Fixture

	mu    sync.RWMutex
	trips []models.TripCoordinate // nil until written
}

// NewMemoryStore wraps fx. fx must not be modified afterwards.
func NewMemoryStore(fx *Fixture) *MemoryStore {
	return &MemoryStore{fx: fx}
}

// Ping always succeeds.
func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryStore) Participants(ctx context.Context) ([]models.Participant, error) {
	return append([]models.Participant(nil), m.fx.Participants...), ctx.Err()
}

func (m *MemoryStore) Venues(ctx context.Context) ([]models.Venue, error) {
	return append([]models.Venue(nil), m.fx.Venues...), ctx.Err()
}

func (m *MemoryStore) Jobs(ctx context.Context) ([]models.Job, error) {
	return append([]models.Job(nil), m.fx.Jobs...), ctx.Err()
}

func (m *MemoryStore) EachSample(ctx context.Context, f models.EventFilter, fn func(models.PositionSample) error) error {
	return each(ctx, m.fx.Samples, func(s models.PositionSample) bool {
		return f.Match(s.ParticipantID, s.Timestamp, s.Mode)
	}, fn)
}

func (m *MemoryStore) EachCheckin(ctx context.Context, f models.EventFilter, fn func(models.Checkin) error) error {
	return each(ctx, m.fx.Checkins, func(c models.Checkin) bool {
		return f.Match(c.ParticipantID, c.Timestamp, c.VenueType)
	}, fn)
}

func (m *MemoryStore) EachTrip(ctx context.Context, f models.EventFilter, fn func(models.Trip) error) error {
	return each(ctx, m.fx.Trips, func(t models.Trip) bool {
		return f.Match(t.ParticipantID, t.Start, t.Purpose)
	}, fn)
}

func (m *MemoryStore) EachFinancial(ctx context.Context, f models.EventFilter, fn func(models.FinancialEvent) error) error {
	return each(ctx, m.fx.Financial, func(ev models.FinancialEvent) bool {
		return f.Match(ev.ParticipantID, ev.Timestamp, ev.Category)
	}, fn)
}

func (m *MemoryStore) EachInteraction(ctx context.Context, f models.EventFilter, fn func(models.Interaction) error) error {
	return each(ctx, m.fx.Interactions, func(in models.Interaction) bool {
		return f.MatchParticipant(in.From) && f.MatchTime(in.Timestamp)
	}, fn)
}

func (m *MemoryStore) SampleCounts(ctx context.Context) (map[int64]int64, error) {
	counts := make(map[int64]int64)
	for _, s := range m.fx.Samples {
		counts[s.ParticipantID]++
	}
	return counts, ctx.Err()
}

func (m *MemoryStore) Timeline(ctx context.Context, participantID int64) ([]models.PositionSample, error) {
	var out []models.PositionSample
	for _, s := range m.fx.Samples {
		if s.ParticipantID == participantID {
			out = append(out, s)
		}
	}
	return out, ctx.Err()
}

func (m *MemoryStore) Span(ctx context.Context, log EventLog) (*models.DateSpan, error) {
	var times []time.Time
	switch log {
	case LogSamples:
		for _, s := range m.fx.Samples {
			times = append(times, s.Timestamp)
		}
	case LogCheckins:
		for _, c := range m.fx.Checkins {
			times = append(times, c.Timestamp)
		}
	case LogTrips:
		for _, t := range m.fx.Trips {
			times = append(times, t.Start)
		}
	case LogFinancial:
		for _, ev := range m.fx.Financial {
			times = append(times, ev.Timestamp)
		}
	case LogInteractions:
		for _, in := range m.fx.Interactions {
			times = append(times, in.Timestamp)
		}
	}

	var first, last int64
	for i, t := range times {
		u := t.Unix()
		if i == 0 || u < first {
			first = u
		}
		if i == 0 || u > last {
			last = u
		}
	}
	return spanOf(first, last, len(times) > 0), ctx.Err()
}

func (m *MemoryStore) HasTripCoordinates(ctx context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trips != nil, ctx.Err()
}

func (m *MemoryStore) EachTripCoordinate(ctx context.Context, f models.EventFilter, fn func(models.TripCoordinate) error) error {
	m.mu.RLock()
	rows := m.trips
	m.mu.RUnlock()
	if rows == nil {
		return ErrNoTripCoordinates
	}
	return each(ctx, rows, func(tc models.TripCoordinate) bool {
		return f.Match(tc.ParticipantID, tc.Start, tc.Purpose)
	}, fn)
}

func (m *MemoryStore) WriteTripCoordinates(ctx context.Context, rows []models.TripCoordinate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp := make([]models.TripCoordinate, len(rows))
	copy(cp, rows)

	m.mu.Lock()
	m.trips = cp
	m.mu.Unlock()
	return nil
}

// each walks rows, checking ctx every 4096 rows.
func each[T any](ctx context.Context, rows []T, keep func(T) bool, fn func(T) error) error {
	for i, r := range rows {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if !keep(r) {
			continue
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return ctx.Err()
}
