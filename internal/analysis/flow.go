package analysis

import (
	"fmt"
	"sort"

	"github.com/hpdav/cityflow-backend-go/internal/models"
	"github.com/hpdav/cityflow-backend-go/internal/spatial"
)

// FlowFilter selects the trips a FlowAggregator accepts.
type FlowFilter struct {
	DayType  models.DayType
	Purposes []string
	Range    models.DateRange
	Exclude  *OutlierSet
}

// Match reports whether trip passes every predicate. Day type and range are
// evaluated on the trip start.
func (f FlowFilter) Match(trip models.Trip) bool {
	if !f.Exclude.Keep(trip.ParticipantID) {
		return false
	}
	if f.DayType != "" && !f.DayType.Match(trip.Start) {
		return false
	}
	if !f.Range.Contains(trip.Start) {
		return false
	}
	if len(f.Purposes) > 0 {
		for _, p := range f.Purposes {
			if p == trip.Purpose {
				return true
			}
		}
		return false
	}
	return true
}

// FlowKey identifies one flow bucket.
type FlowKey struct {
	Hour        int
	Origin      spatial.Cell
	Destination spatial.Cell
}

func (k FlowKey) less(o FlowKey) bool {
	if k.Origin != o.Origin {
		return k.Origin.Less(o.Origin)
	}
	return k.Destination.Less(o.Destination)
}

type flowBucket struct {
	trips    int64
	minutes  Fixed
	purposes map[string]int64
}

type hourCell struct {
	Hour int
	Cell spatial.Cell
}

type cellBalance struct {
	departures int64
	arrivals   int64
}

// FlowCounters reports what happened to the trips offered to an aggregator.
type FlowCounters struct {
	Resolved   int64 // accepted with both endpoints
	SameCell   int64 // accepted but excluded from flows
	Unresolved int64 // accepted by the filter but missing an endpoint
}

// FlowAggregator buckets resolved trips by (hour of start, origin cell,
// destination cell) and keeps a per-hour departure/arrival balance per
// cell. Results do not depend on the order trips are added.
type FlowAggregator struct {
	grid    spatial.GridIndex
	filter  FlowFilter
	buckets map[FlowKey]*flowBucket
	cells   map[hourCell]*cellBalance
	counts  FlowCounters
}

// NewFlowAggregator returns an empty aggregator.
func NewFlowAggregator(grid spatial.GridIndex, filter FlowFilter) *FlowAggregator {
	return &FlowAggregator{
		grid:    grid,
		filter:  filter,
		buckets: make(map[FlowKey]*flowBucket),
		cells:   make(map[hourCell]*cellBalance),
	}
}

// Add folds one resolved trip. It returns false when the filter rejects it.
func (a *FlowAggregator) Add(trip models.ResolvedTrip) bool {
	if !a.filter.Match(trip.Trip) {
		return false
	}
	a.counts.Resolved++

	hour := models.Hour(trip.Start)
	origin := a.grid.CellOf(trip.Origin)
	dest := a.grid.CellOf(trip.Destination)

	a.balance(hour, origin).departures++
	a.balance(hour, dest).arrivals++

	if origin == dest {
		a.counts.SameCell++
		return true
	}

	key := FlowKey{Hour: hour, Origin: origin, Destination: dest}
	b, ok := a.buckets[key]
	if !ok {
		b = &flowBucket{purposes: make(map[string]int64)}
		a.buckets[key] = b
	}
	b.trips++
	b.minutes += ToFixed(trip.TravelMinutes())
	b.purposes[trip.Purpose]++
	return true
}

// AddUnresolved records a trip whose endpoints could not be determined. It
// contributes to no bucket.
func (a *FlowAggregator) AddUnresolved(trip models.Trip) bool {
	if !a.filter.Match(trip) {
		return false
	}
	a.counts.Unresolved++
	return true
}

func (a *FlowAggregator) balance(hour int, cell spatial.Cell) *cellBalance {
	k := hourCell{Hour: hour, Cell: cell}
	b, ok := a.cells[k]
	if !ok {
		b = &cellBalance{}
		a.cells[k] = b
	}
	return b
}

// Merge folds o into a. Both must share a cell size.
func (a *FlowAggregator) Merge(o *FlowAggregator) error {
	if a.grid.Size() != o.grid.Size() {
		return fmt.Errorf("cannot merge flow aggregators with cell sizes %v and %v", a.grid.Size(), o.grid.Size())
	}
	for k, ob := range o.buckets {
		b, ok := a.buckets[k]
		if !ok {
			b = &flowBucket{purposes: make(map[string]int64, len(ob.purposes))}
			a.buckets[k] = b
		}
		b.trips += ob.trips
		b.minutes += ob.minutes
		for p, n := range ob.purposes {
			b.purposes[p] += n
		}
	}
	for k, ob := range o.cells {
		b := a.balance(k.Hour, k.Cell)
		b.departures += ob.departures
		b.arrivals += ob.arrivals
	}
	a.counts.Resolved += o.counts.Resolved
	a.counts.SameCell += o.counts.SameCell
	a.counts.Unresolved += o.counts.Unresolved
	return nil
}

// Counters returns the trip counters.
func (a *FlowAggregator) Counters() FlowCounters {
	return a.counts
}

// Flows returns the buckets holding at least minTrips trips, ordered by
// hour, then trip count descending, then origin and destination cell.
func (a *FlowAggregator) Flows(minTrips int) []models.Flow {
	keys := make([]FlowKey, 0, len(a.buckets))
	for k, b := range a.buckets {
		if b.trips >= int64(minTrips) {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		ki, kj := keys[i], keys[j]
		if ki.Hour != kj.Hour {
			return ki.Hour < kj.Hour
		}
		ti, tj := a.buckets[ki].trips, a.buckets[kj].trips
		if ti != tj {
			return ti > tj
		}
		return ki.less(kj)
	})

	flows := make([]models.Flow, 0, len(keys))
	for _, k := range keys {
		b := a.buckets[k]
		start := a.grid.Centroid(k.Origin)
		end := a.grid.Centroid(k.Destination)
		purposes := make(map[string]int64, len(b.purposes))
		for p, n := range b.purposes {
			purposes[p] = n
		}
		flows = append(flows, models.Flow{
			Hour:                k.Hour,
			StartCellX:          k.Origin.X,
			StartCellY:          k.Origin.Y,
			EndCellX:            k.Destination.X,
			EndCellY:            k.Destination.Y,
			StartX:              start.X,
			StartY:              start.Y,
			EndX:                end.X,
			EndY:                end.Y,
			Trips:               b.trips,
			AvgTravelTime:       b.minutes.Float() / float64(b.trips),
			CommuteTrips:        b.purposes[models.PurposeCommute],
			EatingTrips:         b.purposes[models.PurposeEating],
			RecreationTrips:     b.purposes[models.PurposeRecreation],
			HomeTrips:           b.purposes[models.PurposeGoingHome],
			FromRestaurantTrips: b.purposes[models.PurposeFromRestaurant],
			PurposeCounts:       purposes,
		})
	}
	return flows
}

// Cells returns the per-hour cell balance, ordered by hour, then total
// activity descending, then cell. No minimum applies.
func (a *FlowAggregator) Cells() []models.FlowCell {
	keys := make([]hourCell, 0, len(a.cells))
	for k := range a.cells {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ki, kj := keys[i], keys[j]
		if ki.Hour != kj.Hour {
			return ki.Hour < kj.Hour
		}
		bi, bj := a.cells[ki], a.cells[kj]
		ai, aj := bi.departures+bi.arrivals, bj.departures+bj.arrivals
		if ai != aj {
			return ai > aj
		}
		return ki.Cell.Less(kj.Cell)
	})

	cells := make([]models.FlowCell, 0, len(keys))
	for _, k := range keys {
		b := a.cells[k]
		c := a.grid.Centroid(k.Cell)
		cells = append(cells, models.FlowCell{
			Hour:       k.Hour,
			CellX:      k.Cell.X,
			CellY:      k.Cell.Y,
			X:          c.X,
			Y:          c.Y,
			Departures: b.departures,
			Arrivals:   b.arrivals,
			NetFlow:    b.arrivals - b.departures,
		})
	}
	return cells
}

// SummarizeFlows computes the statistics block of a flow result.
func SummarizeFlows(flows []models.Flow, counts FlowCounters) models.FlowStatistics {
	st := models.FlowStatistics{
		TotalFlows:      len(flows),
		ResolvedTrips:   counts.Resolved,
		UnresolvedTrips: counts.Unresolved,
	}
	hours := make(map[int]struct{})
	for _, f := range flows {
		st.TotalTrips += f.Trips
		if f.Trips > st.MaxTrips {
			st.MaxTrips = f.Trips
		}
		hours[f.Hour] = struct{}{}
	}
	if len(flows) > 0 {
		st.AvgTrips = float64(st.TotalTrips) / float64(len(flows))
	}
	st.HoursCovered = len(hours)
	return st
}
