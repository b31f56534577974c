package refdata

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/hpdav/cityflow-backend-go/internal/analysis"
	"github.com/hpdav/cityflow-backend-go/internal/models"
	"github.com/hpdav/cityflow-backend-go/internal/repository"
)

// Places holds each participant's home and work location.
type Places struct {
	Homes map[int64]models.PlaceLocation
	Works map[int64]models.PlaceLocation
}

// Tables serves the static reference data of one dataset snapshot. Every
// table is loaded on first use and kept for the process lifetime.
type Tables struct {
	store  repository.Store
	logger logrus.FieldLogger

	participants *Lazy[[]models.Participant]
	venues       *Lazy[[]models.Venue]
	venueIndex   *Lazy[map[models.VenueKey]models.Venue]
	places       *Lazy[*Places]
	residents    *Lazy[[]analysis.Resident]
	ledgers      *Lazy[analysis.Ledgers]
	hourly       *Lazy[[]models.HourlyVisits]
	purposes     *Lazy[[]models.PurposeCount]
	months       *Lazy[[]models.MonthOption]
	sampleCounts *Lazy[map[int64]int64]

	mu       sync.Mutex
	outliers map[int64]*Lazy[*analysis.OutlierSet]
	spans    map[repository.EventLog]*Lazy[*models.DateSpan]
}

// New returns tables backed by store. Nothing is loaded yet.
func New(store repository.Store, logger logrus.FieldLogger) *Tables {
	t := &Tables{
		store:    store,
		logger:   logger.WithField("component", "refdata"),
		outliers: make(map[int64]*Lazy[*analysis.OutlierSet]),
		spans:    make(map[repository.EventLog]*Lazy[*models.DateSpan]),
	}

	t.participants = timed(t, "participants", t.loadParticipants, lenOf[models.Participant])
	t.venues = timed(t, "venues", store.Venues, lenOf[models.Venue])
	t.venueIndex = timed(t, "venue_index", t.loadVenueIndex, func(m map[models.VenueKey]models.Venue) int { return len(m) })
	t.places = timed(t, "places", t.loadPlaces, func(p *Places) int { return len(p.Homes) })
	t.residents = timed(t, "residents", t.loadResidents, lenOf[analysis.Resident])
	t.ledgers = timed(t, "ledgers", t.loadLedgers, func(l analysis.Ledgers) int { return len(l) })
	t.hourly = timed(t, "hourly_profile", t.loadHourly, lenOf[models.HourlyVisits])
	t.purposes = timed(t, "purposes", t.loadPurposes, lenOf[models.PurposeCount])
	t.months = timed(t, "months", t.loadMonths, lenOf[models.MonthOption])
	t.sampleCounts = timed(t, "sample_counts", store.SampleCounts, func(m map[int64]int64) int { return len(m) })
	return t
}

// timed wraps load so that every successful load is logged with its
// duration and cardinality.
func timed[T any](t *Tables, name string, load func(context.Context) (T, error), size func(T) int) *Lazy[T] {
	return NewLazy(func(ctx context.Context) (T, error) {
		start := time.Now()
		v, err := load(ctx)
		if err != nil {
			t.logger.WithError(err).WithField("table", name).Warn("reference table load failed")
			return v, fmt.Errorf("failed to load %s: %w", name, err)
		}
		t.logger.WithFields(logrus.Fields{
			"table":    name,
			"count":    size(v),
			"duration": time.Since(start),
		}).Info("reference table loaded")
		return v, nil
	})
}

func lenOf[E any](s []E) int { return len(s) }

// Participants returns every participant sorted by id.
func (t *Tables) Participants(ctx context.Context) ([]models.Participant, error) {
	return t.participants.Get(ctx)
}

// Venues returns every venue.
func (t *Tables) Venues(ctx context.Context) ([]models.Venue, error) {
	return t.venues.Get(ctx)
}

// VenueIndex maps (id, type) to venue.
func (t *Tables) VenueIndex(ctx context.Context) (map[models.VenueKey]models.Venue, error) {
	return t.venueIndex.Get(ctx)
}

// Places returns home and work locations.
func (t *Tables) Places(ctx context.Context) (*Places, error) {
	return t.places.Get(ctx)
}

// Residents returns participants that have a home, sorted by id.
func (t *Tables) Residents(ctx context.Context) ([]analysis.Resident, error) {
	return t.residents.Get(ctx)
}

// Ledgers returns lifetime financial totals per participant.
func (t *Tables) Ledgers(ctx context.Context) (analysis.Ledgers, error) {
	return t.ledgers.Get(ctx)
}

// HourlyProfile returns the check-in day profile of the whole log.
func (t *Tables) HourlyProfile(ctx context.Context) ([]models.HourlyVisits, error) {
	return t.hourly.Get(ctx)
}

// Purposes returns trip counts per purpose, most frequent first.
func (t *Tables) Purposes(ctx context.Context) ([]models.PurposeCount, error) {
	return t.purposes.Get(ctx)
}

// Months returns the months present in the check-in log.
func (t *Tables) Months(ctx context.Context) ([]models.MonthOption, error) {
	return t.months.Get(ctx)
}

// Outliers returns the outlier set for threshold. Each threshold is
// computed once.
func (t *Tables) Outliers(ctx context.Context, threshold int64) (*analysis.OutlierSet, error) {
	t.mu.Lock()
	l, ok := t.outliers[threshold]
	if !ok {
		name := fmt.Sprintf("outliers_%d", threshold)
		l = timed(t, name, func(ctx context.Context) (*analysis.OutlierSet, error) {
			counts, err := t.sampleCounts.Get(ctx)
			if err != nil {
				return nil, err
			}
			return analysis.ComputeOutliers(counts, threshold), nil
		}, (*analysis.OutlierSet).Len)
		t.outliers[threshold] = l
	}
	t.mu.Unlock()
	return l.Get(ctx)
}

// Span returns the first and last day of log.
func (t *Tables) Span(ctx context.Context, log repository.EventLog) (*models.DateSpan, error) {
	t.mu.Lock()
	l, ok := t.spans[log]
	if !ok {
		l = timed(t, "span_"+string(log), func(ctx context.Context) (*models.DateSpan, error) {
			return t.store.Span(ctx, log)
		}, func(s *models.DateSpan) int {
			if s == nil {
				return 0
			}
			return 1
		})
		t.spans[log] = l
	}
	t.mu.Unlock()
	return l.Get(ctx)
}

// Warm loads the tables every request kind touches, in parallel.
func (t *Tables) Warm(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { _, err := t.Residents(ctx); return err })
	g.Go(func() error { _, err := t.VenueIndex(ctx); return err })
	g.Go(func() error { _, err := t.sampleCounts.Get(ctx); return err })
	g.Go(func() error { _, err := t.Purposes(ctx); return err })
	g.Go(func() error { _, err := t.Months(ctx); return err })
	return g.Wait()
}

func (t *Tables) loadParticipants(ctx context.Context) ([]models.Participant, error) {
	ps, err := t.store.Participants(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i].ID < ps[j].ID })
	return ps, nil
}

func (t *Tables) loadVenueIndex(ctx context.Context) (map[models.VenueKey]models.Venue, error) {
	venues, err := t.venues.Get(ctx)
	if err != nil {
		return nil, err
	}
	return lo.KeyBy(venues, models.Venue.Key), nil
}

// loadPlaces resolves the earliest sample carrying an apartment (home) or
// a job (work) per participant to the matching venue. Ties on timestamp
// keep the first ingested sample.
func (t *Tables) loadPlaces(ctx context.Context) (*Places, error) {
	index, err := t.venueIndex.Get(ctx)
	if err != nil {
		return nil, err
	}
	jobs, err := t.store.Jobs(ctx)
	if err != nil {
		return nil, err
	}
	employers := make(map[int64]int64, len(jobs))
	for _, j := range jobs {
		employers[j.ID] = j.EmployerID
	}

	type first struct {
		at time.Time
		id int64
	}
	homes := make(map[int64]first)
	works := make(map[int64]first)
	keep := func(m map[int64]first, pid int64, at time.Time, id int64) {
		if cur, ok := m[pid]; !ok || at.Before(cur.at) {
			m[pid] = first{at: at, id: id}
		}
	}

	err = t.store.EachSample(ctx, models.EventFilter{}, func(s models.PositionSample) error {
		if s.ApartmentID != nil {
			keep(homes, s.ParticipantID, s.Timestamp, *s.ApartmentID)
		}
		if s.JobID != nil {
			if employer, ok := employers[*s.JobID]; ok {
				keep(works, s.ParticipantID, s.Timestamp, employer)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	places := &Places{
		Homes: make(map[int64]models.PlaceLocation, len(homes)),
		Works: make(map[int64]models.PlaceLocation, len(works)),
	}
	for pid, f := range homes {
		if v, ok := index[models.VenueKey{ID: f.id, Type: models.VenueApartment}]; ok {
			places.Homes[pid] = models.PlaceLocation{ParticipantID: pid, PlaceID: f.id, X: v.X, Y: v.Y}
		}
	}
	for pid, f := range works {
		if v, ok := index[models.VenueKey{ID: f.id, Type: models.VenueWorkplace}]; ok {
			places.Works[pid] = models.PlaceLocation{ParticipantID: pid, PlaceID: f.id, X: v.X, Y: v.Y}
		}
	}
	return places, nil
}

func (t *Tables) loadResidents(ctx context.Context) ([]analysis.Resident, error) {
	ps, err := t.participants.Get(ctx)
	if err != nil {
		return nil, err
	}
	places, err := t.places.Get(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]analysis.Resident, 0, len(ps))
	for _, p := range ps {
		if home, ok := places.Homes[p.ID]; ok {
			out = append(out, analysis.Resident{Participant: p, Home: home})
		}
	}
	return out, nil
}

func (t *Tables) loadLedgers(ctx context.Context) (analysis.Ledgers, error) {
	ledgers := analysis.Ledgers{}
	err := t.store.EachFinancial(ctx, models.EventFilter{}, func(ev models.FinancialEvent) error {
		ledgers.Add(ev)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ledgers, nil
}

func (t *Tables) loadHourly(ctx context.Context) ([]models.HourlyVisits, error) {
	profile := analysis.NewHourlyProfile()
	err := t.store.EachCheckin(ctx, models.EventFilter{}, func(c models.Checkin) error {
		profile.Add(c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile.Result(), nil
}

func (t *Tables) loadPurposes(ctx context.Context) ([]models.PurposeCount, error) {
	counts := make(map[string]int64)
	err := t.store.EachTrip(ctx, models.EventFilter{}, func(trip models.Trip) error {
		counts[trip.Purpose]++
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := lo.MapToSlice(counts, func(purpose string, n int64) models.PurposeCount {
		return models.PurposeCount{Purpose: purpose, Count: n}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Purpose < out[j].Purpose
	})
	return out, nil
}

func (t *Tables) loadMonths(ctx context.Context) ([]models.MonthOption, error) {
	months := analysis.MonthSet{}
	err := t.store.EachCheckin(ctx, models.EventFilter{}, func(c models.Checkin) error {
		months.Add(c.Timestamp)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return months.Options(), nil
}
