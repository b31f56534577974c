package analysis

import (
	"fmt"
	"sort"
	"time"

	"github.com/golang/geo/r2"
	"github.com/hpdav/cityflow-backend-go/internal/models"
	"github.com/hpdav/cityflow-backend-go/internal/spatial"
	"github.com/hpdav/cityflow-backend-go/internal/stats"
)

// Activities derived from check-in venue types.
const (
	ActivityAtHome       = "AtHome"
	ActivityAtWork       = "AtWork"
	ActivityAtRestaurant = "AtRestaurant"
	ActivityAtRecreation = "AtRecreation"
	ActivityUnknown      = "Unknown"
)

const (
	maxRouteGap      = 30 * time.Minute
	maxRouteDistance = 3000.0
	minRouteRepeats  = 2
	maxRoutes        = 150
)

// ActivityOf maps a venue type to the activity it implies. Unknown venue
// types map to themselves.
func ActivityOf(venueType string) string {
	switch venueType {
	case models.VenueApartment:
		return ActivityAtHome
	case models.VenueWorkplace, models.VenueSchool:
		return ActivityAtWork
	case models.VenueRestaurant:
		return ActivityAtRestaurant
	case models.VenuePub:
		return ActivityAtRecreation
	}
	return venueType
}

// RoutineFilter restricts routine inputs to a month and a day type.
type RoutineFilter struct {
	Month   models.DateRange
	DayType models.DayType
}

// Match reports whether t passes the filter.
func (f RoutineFilter) Match(t time.Time) bool {
	return f.Month.Contains(t) && f.DayType.Match(t)
}

func dayOf(t time.Time) time.Time {
	return models.Daily.Truncate(t)
}

// MonthSet collects the months present in a log.
type MonthSet map[time.Time]struct{}

// Add records the month of t.
func (m MonthSet) Add(t time.Time) {
	m[models.Monthly.Truncate(t)] = struct{}{}
}

// Options returns the months in chronological order.
func (m MonthSet) Options() []models.MonthOption {
	out := make([]models.MonthOption, 0, len(m))
	for _, k := range periodKeys(m) {
		out = append(out, models.MonthOption{
			Year:  k.Year(),
			Month: int(k.Month()),
			Label: fmt.Sprintf("%s %d", k.Month(), k.Year()),
		})
	}
	return out
}

type summaryState struct {
	total, home, work, restaurant, pub int64
	days                               map[time.Time]struct{}
}

// SummaryBuilder computes the routine overview of every participant.
type SummaryBuilder struct {
	filter RoutineFilter
	rows   map[int64]*summaryState
}

// NewSummaryBuilder returns an empty builder.
func NewSummaryBuilder(filter RoutineFilter) *SummaryBuilder {
	return &SummaryBuilder{filter: filter, rows: make(map[int64]*summaryState)}
}

// Add folds one check-in.
func (b *SummaryBuilder) Add(c models.Checkin) {
	if !b.filter.Match(c.Timestamp) {
		return
	}
	s, ok := b.rows[c.ParticipantID]
	if !ok {
		s = &summaryState{days: make(map[time.Time]struct{})}
		b.rows[c.ParticipantID] = s
	}
	s.total++
	s.days[dayOf(c.Timestamp)] = struct{}{}
	switch c.VenueType {
	case models.VenueApartment:
		s.home++
	case models.VenueWorkplace:
		s.work++
	case models.VenueRestaurant:
		s.restaurant++
	case models.VenuePub:
		s.pub++
	}
}

// Result returns one summary per participant, ordered by id.
func (b *SummaryBuilder) Result() []models.RoutineSummary {
	ids := make([]int64, 0, len(b.rows))
	for id := range b.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]models.RoutineSummary, 0, len(ids))
	for _, id := range ids {
		s := b.rows[id]
		pct := func(n int64) float64 {
			return stats.Round(stats.Ratio(float64(n)*100, float64(s.total)), 1)
		}
		out = append(out, models.RoutineSummary{
			ParticipantID: id,
			DaysTracked:   len(s.days),
			PctAtHome:     pct(s.home),
			PctAtWork:     pct(s.work),
			PctRestaurant: pct(s.restaurant),
			PctRecreation: pct(s.pub),
		})
	}
	return out
}

type hourVenue struct {
	hour  int
	venue string
}

// RoutineBuilder computes the day profile of a single participant from
// its check-ins.
type RoutineBuilder struct {
	filter     RoutineFilter
	day        models.DateRange
	activities [24]map[string]int64
	checkins   map[hourVenue]int64
	days       map[time.Time]struct{}
}

// NewRoutineBuilder returns an empty builder. A non-zero day restricts the
// hourly check-in table to that day.
func NewRoutineBuilder(filter RoutineFilter, day models.DateRange) *RoutineBuilder {
	return &RoutineBuilder{
		filter:   filter,
		day:      day,
		checkins: make(map[hourVenue]int64),
		days:     make(map[time.Time]struct{}),
	}
}

// Add folds one check-in of the participant.
func (b *RoutineBuilder) Add(c models.Checkin) {
	b.days[dayOf(c.Timestamp)] = struct{}{}
	if !b.filter.Match(c.Timestamp) {
		return
	}
	h := models.Hour(c.Timestamp)
	if b.activities[h] == nil {
		b.activities[h] = make(map[string]int64)
	}
	b.activities[h][ActivityOf(c.VenueType)]++
	if b.day.Contains(c.Timestamp) {
		b.checkins[hourVenue{h, c.VenueType}]++
	}
}

// DaysSampled is the number of distinct days with any check-in.
func (b *RoutineBuilder) DaysSampled() int {
	return len(b.days)
}

// Timeline returns 24 hours. The dominant activity is the most frequent
// one, ties broken by name; empty hours are Unknown.
func (b *RoutineBuilder) Timeline() []models.HourActivity {
	out := make([]models.HourActivity, 24)
	for h := range out {
		acts := make([]models.ActivityCount, 0, len(b.activities[h]))
		var total int64
		for a, n := range b.activities[h] {
			acts = append(acts, models.ActivityCount{Activity: a, Count: n})
			total += n
		}
		sort.Slice(acts, func(i, j int) bool {
			if acts[i].Count != acts[j].Count {
				return acts[i].Count > acts[j].Count
			}
			return acts[i].Activity < acts[j].Activity
		})
		row := models.HourActivity{Hour: h, DominantActivity: ActivityUnknown, Activities: acts}
		if total > 0 {
			row.DominantActivity = acts[0].Activity
			row.Confidence = stats.Round(float64(acts[0].Count)/float64(total)*100, 1)
		}
		out[h] = row
	}
	return out
}

// Checkins returns visit counts per hour and venue type.
func (b *RoutineBuilder) Checkins() []models.HourlyCheckins {
	out := make([]models.HourlyCheckins, 0, len(b.checkins))
	for k, n := range b.checkins {
		out = append(out, models.HourlyCheckins{Hour: k.hour, VenueType: k.venue, VisitCount: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Hour != out[j].Hour {
			return out[i].Hour < out[j].Hour
		}
		return out[i].VenueType < out[j].VenueType
	})
	return out
}

type routeKey struct {
	from, to r2.Point
}

// TravelRoutes groups consecutive position changes of one participant's
// timeline into repeated routes. Only samples passing filter are paired;
// a pair counts when the position changed, at most 30 minutes passed and
// the move is at most 3000 units long.
func TravelRoutes(tl *Timeline, filter RoutineFilter) []models.TravelRoute {
	counts := make(map[routeKey]int64)
	samples := tl.Samples()
	var prev *models.PositionSample
	for i := range samples {
		cur := &samples[i]
		if !filter.Match(cur.Timestamp) {
			continue
		}
		if prev != nil {
			from, to := prev.Point(), cur.Point()
			if from != to &&
				cur.Timestamp.Sub(prev.Timestamp) <= maxRouteGap &&
				spatial.Distance(from, to) <= maxRouteDistance {
				counts[routeKey{from, to}]++
			}
		}
		prev = cur
	}

	out := make([]models.TravelRoute, 0)
	for k, n := range counts {
		if n < minRouteRepeats {
			continue
		}
		out = append(out, models.TravelRoute{
			StartX: k.from.X, StartY: k.from.Y,
			EndX: k.to.X, EndY: k.to.Y,
			MovementCount: n,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.MovementCount != b.MovementCount {
			return a.MovementCount > b.MovementCount
		}
		if a.StartX != b.StartX {
			return a.StartX < b.StartX
		}
		if a.StartY != b.StartY {
			return a.StartY < b.StartY
		}
		if a.EndX != b.EndX {
			return a.EndX < b.EndX
		}
		return a.EndY < b.EndY
	})
	if len(out) > maxRoutes {
		out = out[:maxRoutes]
	}
	return out
}
