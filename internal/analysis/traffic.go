package analysis

import (
	"encoding/binary"
	"hash/fnv"
	"sort"

	"github.com/axiomhq/hyperloglog"
	"github.com/hpdav/cityflow-backend-go/internal/models"
	"github.com/hpdav/cityflow-backend-go/internal/spatial"
	"github.com/hpdav/cityflow-backend-go/internal/stats"
)

// TrafficFilter selects the check-ins a TrafficAggregator accepts.
type TrafficFilter struct {
	TimePeriod models.TimePeriod
	DayType    models.DayType
	Range      models.DateRange
	SampleRate int // percent; 0 or 100 keeps everything
	Exclude    *OutlierSet
}

// Match reports whether c passes every predicate.
func (f TrafficFilter) Match(c models.Checkin) bool {
	if !f.Exclude.Keep(c.ParticipantID) {
		return false
	}
	if !f.Range.Contains(c.Timestamp) {
		return false
	}
	if f.TimePeriod != "" && !f.TimePeriod.ContainsHour(models.Hour(c.Timestamp)) {
		return false
	}
	if f.DayType != "" && !f.DayType.Match(c.Timestamp) {
		return false
	}
	return Sampled(c, f.SampleRate)
}

// Sampled deterministically keeps rate percent of check-ins. The decision
// depends only on the check-in itself.
func Sampled(c models.Checkin, rate int) bool {
	if rate <= 0 || rate >= 100 {
		return true
	}
	h := fnv.New64a()
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:], uint64(c.ParticipantID))
	binary.LittleEndian.PutUint64(buf[8:], uint64(c.Timestamp.Unix()))
	binary.LittleEndian.PutUint64(buf[16:], uint64(c.VenueID))
	h.Write(buf[:])
	return h.Sum64()%100 < uint64(rate)
}

// TrafficAggregator counts check-ins at the location of their venue.
type TrafficAggregator struct {
	acc     *Accumulator
	venues  map[models.VenueKey]models.Venue
	filter  TrafficFilter
	unknown int64
}

// NewTrafficAggregator returns an empty aggregator. venues locates
// check-ins; check-ins at unknown venues are skipped.
func NewTrafficAggregator(grid spatial.GridIndex, venues map[models.VenueKey]models.Venue, filter TrafficFilter) *TrafficAggregator {
	return &TrafficAggregator{acc: NewAccumulator(grid), venues: venues, filter: filter}
}

// Add folds one check-in.
func (t *TrafficAggregator) Add(c models.Checkin) {
	if !t.filter.Match(c) {
		return
	}
	v, ok := t.venues[c.VenueKey()]
	if !ok {
		t.unknown++
		return
	}
	t.acc.Accumulate(v.Point(), func(s *CellState) {
		s.AddPopulation(1)
		s.AddVisitor(c.ParticipantID)
		s.Inc(c.VenueType, 1)
	})
}

// Unknown returns the number of check-ins whose venue was not found.
func (t *TrafficAggregator) Unknown() int64 {
	return t.unknown
}

// Merge folds o into t.
func (t *TrafficAggregator) Merge(o *TrafficAggregator) error {
	t.unknown += o.unknown
	return t.acc.Merge(o.acc)
}

// Cells returns the visited cells ordered by total visits descending, then
// by cell.
func (t *TrafficAggregator) Cells() []models.TrafficCell {
	type ranked struct {
		cell spatial.Cell
		row  models.TrafficCell
	}
	rows := Finalize(t.acc, func(c spatial.Cell, s *CellState) ranked {
		return ranked{cell: c, row: models.TrafficCell{
			CellRef:          cellRef(c, s),
			TotalVisits:      s.Population,
			UniqueVisitors:   s.Visitors(),
			RestaurantVisits: s.Count(models.VenueRestaurant),
			PubVisits:        s.Count(models.VenuePub),
			HomeVisits:       s.Count(models.VenueApartment),
			WorkVisits:       s.Count(models.VenueWorkplace),
			SchoolVisits:     s.Count(models.VenueSchool),
		}}
	})
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].row.TotalVisits > rows[j].row.TotalVisits
	})

	out := make([]models.TrafficCell, len(rows))
	for i, r := range rows {
		out[i] = r.row
	}
	return out
}

// SummarizeTraffic computes visit statistics over cells, or nil when there
// are none. p90 uses the nearest-rank rule once ten cells exist.
func SummarizeTraffic(cells []models.TrafficCell) *models.TrafficStatistics {
	if len(cells) == 0 {
		return nil
	}
	visits := make([]float64, len(cells))
	st := &models.TrafficStatistics{TotalLocations: len(cells)}
	for i, c := range cells {
		visits[i] = float64(c.TotalVisits)
		st.TotalVisits += c.TotalVisits
		if c.TotalVisits > st.MaxVisits {
			st.MaxVisits = c.TotalVisits
		}
	}
	st.AvgVisits = stats.Mean(visits)
	cuts := stats.Percentiles(visits, []float64{50, 75})
	st.P50Visits, st.P75Visits = cuts[0], cuts[1]
	st.P90Visits = stats.NearestRank(visits, 0.9, 10)
	return st
}

// HourlyProfile counts check-ins and approximate distinct visitors per
// hour of day.
type HourlyProfile struct {
	visits   [24]int64
	visitors [24]*hyperloglog.Sketch
}

// NewHourlyProfile returns an empty profile.
func NewHourlyProfile() *HourlyProfile {
	p := &HourlyProfile{}
	for h := range p.visitors {
		p.visitors[h] = hyperloglog.New14()
	}
	return p
}

// Add folds one check-in.
func (p *HourlyProfile) Add(c models.Checkin) {
	h := models.Hour(c.Timestamp)
	p.visits[h]++
	insertID(p.visitors[h], c.ParticipantID)
}

// Result returns the hours that saw at least one check-in.
func (p *HourlyProfile) Result() []models.HourlyVisits {
	out := make([]models.HourlyVisits, 0, 24)
	for h, n := range p.visits {
		if n == 0 {
			continue
		}
		out = append(out, models.HourlyVisits{
			Hour:           h,
			Visits:         n,
			UniqueVisitors: p.visitors[h].Estimate(),
		})
	}
	return out
}

func insertID(sk *hyperloglog.Sketch, id int64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(id))
	sk.Insert(buf[:])
}
