package analysis

import (
	"math/rand"
	"testing"
	"time"

	"github.com/golang/geo/r2"
	"github.com/hpdav/cityflow-backend-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolved(id, participant int64, start time.Time, minutes int, purpose string, from, to r2.Point) models.ResolvedTrip {
	return models.ResolvedTrip{
		Trip: models.Trip{
			TravelID:      id,
			ParticipantID: participant,
			Start:         start,
			End:           start.Add(time.Duration(minutes) * time.Minute),
			Purpose:       purpose,
		},
		Origin:      from,
		Destination: to,
	}
}

func threeTripsAtEight(t *testing.T) *FlowAggregator {
	grid := mustGrid(t, 100)
	agg := NewFlowAggregator(grid, FlowFilter{})
	start := at("2022-03-02T08:15:00Z")
	// origin cell (2,3), destination cell (5,1)
	agg.Add(resolved(1, 1, start, 10, models.PurposeCommute, r2.Point{X: 210, Y: 310}, r2.Point{X: 550, Y: 150}))
	agg.Add(resolved(2, 2, start, 20, models.PurposeCommute, r2.Point{X: 299, Y: 399}, r2.Point{X: 500, Y: 100}))
	agg.Add(resolved(3, 3, start, 30, models.PurposeEating, r2.Point{X: 250, Y: 350}, r2.Point{X: 599, Y: 199}))
	return agg
}

func TestFlowThreshold(t *testing.T) {
	agg := threeTripsAtEight(t)

	flows := agg.Flows(2)
	require.Len(t, flows, 1)
	f := flows[0]
	assert.Equal(t, 8, f.Hour)
	assert.EqualValues(t, 3, f.Trips)
	assert.Equal(t, [4]int64{2, 3, 5, 1}, [4]int64{f.StartCellX, f.StartCellY, f.EndCellX, f.EndCellY})
	assert.Equal(t, [4]float64{250, 350, 550, 150}, [4]float64{f.StartX, f.StartY, f.EndX, f.EndY})
	assert.InDelta(t, 20.0, f.AvgTravelTime, 1e-9)
	assert.EqualValues(t, 2, f.CommuteTrips)
	assert.EqualValues(t, 1, f.EatingTrips)
	assert.Equal(t, map[string]int64{models.PurposeCommute: 2, models.PurposeEating: 1}, f.PurposeCounts)

	assert.Empty(t, agg.Flows(4))
}

func TestFlowCellSummaryIgnoresThreshold(t *testing.T) {
	agg := threeTripsAtEight(t)
	cells := agg.Cells()
	require.Len(t, cells, 2)
	for _, c := range cells {
		assert.Equal(t, 8, c.Hour)
		assert.Equal(t, c.Arrivals-c.Departures, c.NetFlow)
	}
	assert.Equal(t, models.FlowCell{Hour: 8, CellX: 2, CellY: 3, X: 250, Y: 350, Departures: 3, NetFlow: -3}, cells[0])
	assert.Equal(t, models.FlowCell{Hour: 8, CellX: 5, CellY: 1, X: 550, Y: 150, Arrivals: 3, NetFlow: 3}, cells[1])
}

func TestFlowDropsSameCellTrips(t *testing.T) {
	agg := NewFlowAggregator(mustGrid(t, 300), FlowFilter{})
	start := at("2022-03-02T12:00:00Z")
	for i := int64(0); i < 10; i++ {
		agg.Add(resolved(i, i, start, 5, models.PurposeEating, r2.Point{X: 10, Y: 10}, r2.Point{X: 200, Y: 250}))
	}
	assert.Empty(t, agg.Flows(0))
	assert.EqualValues(t, 10, agg.Counters().SameCell)

	cells := agg.Cells()
	require.Len(t, cells, 1)
	assert.EqualValues(t, 10, cells[0].Departures)
	assert.EqualValues(t, 10, cells[0].Arrivals)
	assert.Zero(t, cells[0].NetFlow)
}

func randomTrips(n int, seed int64) []models.ResolvedTrip {
	r := rand.New(rand.NewSource(seed))
	purposes := []string{models.PurposeCommute, models.PurposeEating, models.PurposeRecreation, models.PurposeGoingHome, "Other"}
	base := at("2022-03-01T00:00:00Z")
	out := make([]models.ResolvedTrip, n)
	for i := range out {
		start := base.Add(time.Duration(r.Intn(14*24*60)) * time.Minute)
		out[i] = resolved(int64(i), r.Int63n(30), start, 1+r.Intn(60), purposes[r.Intn(len(purposes))],
			r2.Point{X: float64(r.Intn(1500)), Y: float64(r.Intn(1500))},
			r2.Point{X: float64(r.Intn(1500)), Y: float64(r.Intn(1500))})
	}
	return out
}

func TestFlowBalance(t *testing.T) {
	grid := mustGrid(t, 300)
	agg := NewFlowAggregator(grid, FlowFilter{})
	for _, tr := range randomTrips(3000, 3) {
		agg.Add(tr)
	}

	prev := -1
	for _, minTrips := range []int{20, 10, 5, 2, 1, 0} {
		flows := agg.Flows(minTrips)
		for _, f := range flows {
			assert.False(t, f.StartCellX == f.EndCellX && f.StartCellY == f.EndCellY, "same-cell bucket emitted")
			assert.GreaterOrEqual(t, f.Trips, int64(minTrips))
		}
		assert.GreaterOrEqual(t, len(flows), prev, "lowering min_trips must not remove buckets")
		prev = len(flows)
	}

	flows := agg.Flows(1)
	for i := 1; i < len(flows); i++ {
		a, b := flows[i-1], flows[i]
		if a.Hour == b.Hour {
			assert.GreaterOrEqual(t, a.Trips, b.Trips)
		} else {
			assert.Less(t, a.Hour, b.Hour)
		}
	}
}

func TestFlowIsOrderIndependent(t *testing.T) {
	grid := mustGrid(t, 300)
	trips := randomTrips(2000, 11)

	forward := NewFlowAggregator(grid, FlowFilter{})
	for _, tr := range trips {
		forward.Add(tr)
	}

	shuffled := append([]models.ResolvedTrip(nil), trips...)
	rand.New(rand.NewSource(99)).Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	left, right := NewFlowAggregator(grid, FlowFilter{}), NewFlowAggregator(grid, FlowFilter{})
	for i, tr := range shuffled {
		if i%2 == 0 {
			left.Add(tr)
		} else {
			right.Add(tr)
		}
	}
	require.NoError(t, right.Merge(left))

	assert.Equal(t, forward.Flows(1), right.Flows(1))
	assert.Equal(t, forward.Cells(), right.Cells())
	assert.Equal(t, forward.Counters(), right.Counters())
}

func TestFlowFilter(t *testing.T) {
	saturday := at("2022-03-05T09:00:00Z")
	monday := at("2022-03-07T09:00:00Z")
	outliers := ComputeOutliers(map[int64]int64{7: 1}, 2000)

	tests := []struct {
		name   string
		filter FlowFilter
		trip   models.Trip
		want   bool
	}{
		{"empty filter", FlowFilter{}, models.Trip{Start: saturday}, true},
		{"weekday rejects saturday", FlowFilter{DayType: models.DayWeekday}, models.Trip{Start: saturday}, false},
		{"weekend keeps saturday", FlowFilter{DayType: models.DayWeekend}, models.Trip{Start: saturday}, true},
		{"purpose mismatch", FlowFilter{Purposes: []string{models.PurposeEating}}, models.Trip{Start: monday, Purpose: models.PurposeCommute}, false},
		{"purpose match", FlowFilter{Purposes: []string{models.PurposeEating}}, models.Trip{Start: monday, Purpose: models.PurposeEating}, true},
		{"range end is exclusive", FlowFilter{Range: models.DateRange{To: monday}}, models.Trip{Start: monday}, false},
		{"outlier excluded", FlowFilter{Exclude: outliers}, models.Trip{ParticipantID: 7, Start: monday}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(tt.trip))
		})
	}
}

func TestUnresolvedTripsAreCountedOnly(t *testing.T) {
	agg := NewFlowAggregator(mustGrid(t, 300), FlowFilter{DayType: models.DayWeekday})
	assert.True(t, agg.AddUnresolved(models.Trip{Start: at("2022-03-07T09:00:00Z")}))
	assert.False(t, agg.AddUnresolved(models.Trip{Start: at("2022-03-05T09:00:00Z")}))

	assert.EqualValues(t, 1, agg.Counters().Unresolved)
	assert.Empty(t, agg.Flows(0))
	assert.Empty(t, agg.Cells())
}

func TestSummarizeFlows(t *testing.T) {
	flows := []models.Flow{{Hour: 8, Trips: 6}, {Hour: 8, Trips: 2}, {Hour: 17, Trips: 4}}
	st := SummarizeFlows(flows, FlowCounters{Resolved: 15, Unresolved: 3})
	assert.Equal(t, 3, st.TotalFlows)
	assert.EqualValues(t, 12, st.TotalTrips)
	assert.EqualValues(t, 6, st.MaxTrips)
	assert.InDelta(t, 4.0, st.AvgTrips, 1e-9)
	assert.Equal(t, 2, st.HoursCovered)
	assert.EqualValues(t, 3, st.UnresolvedTrips)
}
