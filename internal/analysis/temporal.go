package analysis

import (
	"sort"
	"time"

	"github.com/axiomhq/hyperloglog"
	"github.com/hpdav/cityflow-backend-go/internal/models"
	"github.com/hpdav/cityflow-backend-go/internal/stats"
)

func periodKeys[V any](m map[time.Time]V) []time.Time {
	keys := make([]time.Time, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	return keys
}

func periodLabel(t time.Time) string {
	return t.Format(models.DateLayout)
}

type activityBucket struct {
	row      models.ActivityPeriod
	visitors *hyperloglog.Sketch
}

// ActivitySeries buckets check-ins by period.
type ActivitySeries struct {
	granularity models.Granularity
	venueType   string
	exclude     *OutlierSet
	periods     map[time.Time]*activityBucket
}

// NewActivitySeries returns an empty series. venueType "all" or "" keeps
// every venue type.
func NewActivitySeries(g models.Granularity, venueType string, exclude *OutlierSet) *ActivitySeries {
	if venueType == "all" {
		venueType = ""
	}
	return &ActivitySeries{granularity: g, venueType: venueType, exclude: exclude, periods: make(map[time.Time]*activityBucket)}
}

// Add folds one check-in.
func (a *ActivitySeries) Add(c models.Checkin) {
	if !a.exclude.Keep(c.ParticipantID) {
		return
	}
	if a.venueType != "" && c.VenueType != a.venueType {
		return
	}
	key := a.granularity.Truncate(c.Timestamp)
	b, ok := a.periods[key]
	if !ok {
		b = &activityBucket{visitors: hyperloglog.New14()}
		a.periods[key] = b
	}
	insertID(b.visitors, c.ParticipantID)

	r := &b.row
	r.TotalCheckins++
	switch c.VenueType {
	case models.VenueRestaurant:
		r.RestaurantVisits++
	case models.VenuePub:
		r.PubVisits++
	case models.VenueApartment:
		r.HomeActivity++
	case models.VenueWorkplace:
		r.WorkActivity++
	}
	switch h := models.Hour(c.Timestamp); {
	case h <= 5:
		r.NightActivity++
	case h <= 9:
		r.MorningActivity++
	case h <= 14:
		r.MiddayActivity++
	case h <= 18:
		r.AfternoonActivity++
	default:
		r.EveningActivity++
	}
}

// Result returns the periods in chronological order.
func (a *ActivitySeries) Result() []models.ActivityPeriod {
	out := make([]models.ActivityPeriod, 0, len(a.periods))
	for _, k := range periodKeys(a.periods) {
		b := a.periods[k]
		row := b.row
		row.Period = periodLabel(k)
		row.UniqueVisitors = b.visitors.Estimate()
		out = append(out, row)
	}
	return out
}

type spendingBucket struct {
	count      int64
	spenders   *hyperloglog.Sketch
	income     Fixed
	spending   Fixed
	expenses   int64
	categories map[string]Fixed
}

// SpendingSeries buckets financial events by period.
type SpendingSeries struct {
	granularity models.Granularity
	exclude     *OutlierSet
	periods     map[time.Time]*spendingBucket
}

// NewSpendingSeries returns an empty series.
func NewSpendingSeries(g models.Granularity, exclude *OutlierSet) *SpendingSeries {
	return &SpendingSeries{granularity: g, exclude: exclude, periods: make(map[time.Time]*spendingBucket)}
}

// Add folds one event.
func (s *SpendingSeries) Add(ev models.FinancialEvent) {
	if !s.exclude.Keep(ev.ParticipantID) {
		return
	}
	key := s.granularity.Truncate(ev.Timestamp)
	b, ok := s.periods[key]
	if !ok {
		b = &spendingBucket{spenders: hyperloglog.New14(), categories: make(map[string]Fixed)}
		s.periods[key] = b
	}
	insertID(b.spenders, ev.ParticipantID)
	b.count++

	amount := ToFixed(ev.Amount)
	abs := amount
	if abs < 0 {
		abs = -abs
	}
	switch {
	case amount > 0:
		b.income += amount
	case amount < 0:
		b.spending += abs
		b.expenses++
	}
	b.categories[ev.Category] += abs
}

// Result returns the periods in chronological order.
func (s *SpendingSeries) Result() []models.SpendingPeriod {
	out := make([]models.SpendingPeriod, 0, len(s.periods))
	for _, k := range periodKeys(s.periods) {
		b := s.periods[k]
		row := models.SpendingPeriod{
			Period:             periodLabel(k),
			TransactionCount:   b.count,
			UniqueSpenders:     b.spenders.Estimate(),
			TotalIncome:        b.income.Float(),
			TotalSpending:      b.spending.Float(),
			FoodSpending:       b.categories[models.CategoryFood].Float(),
			RecreationSpending: b.categories[models.CategoryRecreation].Float(),
			ShelterSpending:    b.categories[models.CategoryShelter].Float(),
			EducationSpending:  b.categories[models.CategoryEducation].Float(),
		}
		if b.expenses > 0 {
			row.AvgTransaction = b.spending.Float() / float64(b.expenses)
		}
		out = append(out, row)
	}
	return out
}

type socialBucket struct {
	interactions int64
	initiators   *hyperloglog.Sketch
	contacted    *hyperloglog.Sketch
}

// SocialSeries buckets social interactions by period.
type SocialSeries struct {
	granularity models.Granularity
	exclude     *OutlierSet
	periods     map[time.Time]*socialBucket
}

// NewSocialSeries returns an empty series.
func NewSocialSeries(g models.Granularity, exclude *OutlierSet) *SocialSeries {
	return &SocialSeries{granularity: g, exclude: exclude, periods: make(map[time.Time]*socialBucket)}
}

// Add folds one interaction. Interactions touching an excluded participant
// on either side are dropped.
func (s *SocialSeries) Add(in models.Interaction) {
	if !s.exclude.Keep(in.From) || !s.exclude.Keep(in.To) {
		return
	}
	key := s.granularity.Truncate(in.Timestamp)
	b, ok := s.periods[key]
	if !ok {
		b = &socialBucket{initiators: hyperloglog.New14(), contacted: hyperloglog.New14()}
		s.periods[key] = b
	}
	b.interactions++
	insertID(b.initiators, in.From)
	insertID(b.contacted, in.To)
}

// Result returns the periods in chronological order.
func (s *SocialSeries) Result() []models.SocialPeriod {
	out := make([]models.SocialPeriod, 0, len(s.periods))
	for _, k := range periodKeys(s.periods) {
		b := s.periods[k]
		initiators, contacted := b.initiators.Estimate(), b.contacted.Estimate()
		out = append(out, models.SocialPeriod{
			Period:                  periodLabel(k),
			Interactions:            b.interactions,
			ActiveInitiators:        initiators,
			ContactedPeople:         contacted,
			TotalSocialParticipants: initiators + contacted,
		})
	}
	return out
}

// ActivityTrendsOf compares the first and last periods, or returns nil for
// fewer than two periods.
func ActivityTrendsOf(rows []models.ActivityPeriod) *models.ActivityTrends {
	if len(rows) < 2 {
		return nil
	}
	first, last := rows[0], rows[len(rows)-1]
	return &models.ActivityTrends{
		CheckinChangePct:    stats.PctChange(float64(first.TotalCheckins), float64(last.TotalCheckins), 1),
		RestaurantChangePct: stats.PctChange(float64(first.RestaurantVisits), float64(last.RestaurantVisits), 1),
		PubChangePct:        stats.PctChange(float64(first.PubVisits), float64(last.PubVisits), 1),
	}
}

// SpendingTrendsOf compares the first and last periods, or returns nil for
// fewer than two periods.
func SpendingTrendsOf(rows []models.SpendingPeriod) *models.SpendingTrends {
	if len(rows) < 2 {
		return nil
	}
	first, last := rows[0], rows[len(rows)-1]
	return &models.SpendingTrends{
		SpendingChangePct:   stats.PctChange(first.TotalSpending, last.TotalSpending, 1),
		FoodChangePct:       stats.PctChange(first.FoodSpending, last.FoodSpending, 1),
		RecreationChangePct: stats.PctChange(first.RecreationSpending, last.RecreationSpending, 1),
	}
}
