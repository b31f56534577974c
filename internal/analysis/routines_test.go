package analysis

import (
	"testing"
	"time"

	"github.com/hpdav/cityflow-backend-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityOf(t *testing.T) {
	assert.Equal(t, ActivityAtHome, ActivityOf(models.VenueApartment))
	assert.Equal(t, ActivityAtWork, ActivityOf(models.VenueSchool))
	assert.Equal(t, ActivityAtWork, ActivityOf(models.VenueWorkplace))
	assert.Equal(t, ActivityAtRestaurant, ActivityOf(models.VenueRestaurant))
	assert.Equal(t, ActivityAtRecreation, ActivityOf(models.VenuePub))
	assert.Equal(t, "Gym", ActivityOf("Gym"))
}

func TestMonthSet(t *testing.T) {
	m := MonthSet{}
	m.Add(at("2022-05-31T23:00:00Z"))
	m.Add(at("2022-03-07T08:00:00Z"))
	m.Add(at("2022-03-20T08:00:00Z"))

	assert.Equal(t, []models.MonthOption{
		{Year: 2022, Month: 3, Label: "March 2022"},
		{Year: 2022, Month: 5, Label: "May 2022"},
	}, m.Options())
}

func TestSummaryBuilder(t *testing.T) {
	b := NewSummaryBuilder(RoutineFilter{DayType: models.DayWeekday})
	b.Add(checkin(2, "2022-03-07T08:00:00Z", 1, models.VenueApartment))
	b.Add(checkin(2, "2022-03-07T12:00:00Z", 1, models.VenueRestaurant))
	b.Add(checkin(2, "2022-03-08T09:00:00Z", 1, models.VenueWorkplace))
	b.Add(checkin(2, "2022-03-12T09:00:00Z", 1, models.VenuePub)) // saturday
	b.Add(checkin(1, "2022-03-07T21:00:00Z", 1, models.VenuePub))

	rows := b.Result()
	require.Len(t, rows, 2)
	assert.Equal(t, models.RoutineSummary{ParticipantID: 1, DaysTracked: 1, PctRecreation: 100}, rows[0])
	assert.Equal(t, models.RoutineSummary{
		ParticipantID: 2,
		DaysTracked:   2,
		PctAtHome:     33.3,
		PctAtWork:     33.3,
		PctRestaurant: 33.3,
	}, rows[1])
}

func TestRoutineBuilderTimeline(t *testing.T) {
	b := NewRoutineBuilder(RoutineFilter{}, models.DayRange(at("2022-03-08T00:00:00Z")))
	b.Add(checkin(1, "2022-03-07T08:10:00Z", 1, models.VenueApartment))
	b.Add(checkin(1, "2022-03-08T08:20:00Z", 1, models.VenueApartment))
	b.Add(checkin(1, "2022-03-09T08:30:00Z", 2, models.VenueWorkplace))
	b.Add(checkin(1, "2022-03-08T12:00:00Z", 3, models.VenueRestaurant))
	b.Add(checkin(1, "2022-03-09T12:00:00Z", 4, models.VenueSchool))

	tl := b.Timeline()
	require.Len(t, tl, 24)
	assert.Equal(t, ActivityAtHome, tl[8].DominantActivity)
	assert.Equal(t, 66.7, tl[8].Confidence)
	assert.Equal(t, []models.ActivityCount{{Activity: ActivityAtHome, Count: 2}, {Activity: ActivityAtWork, Count: 1}}, tl[8].Activities)

	assert.Equal(t, ActivityAtRestaurant, tl[12].DominantActivity, "ties resolve by name")
	assert.Equal(t, 50.0, tl[12].Confidence)

	assert.Equal(t, ActivityUnknown, tl[3].DominantActivity)
	assert.Zero(t, tl[3].Confidence)
	assert.Empty(t, tl[3].Activities)

	assert.Equal(t, 3, b.DaysSampled())
	assert.Equal(t, []models.HourlyCheckins{
		{Hour: 8, VenueType: models.VenueApartment, VisitCount: 1},
		{Hour: 12, VenueType: models.VenueRestaurant, VisitCount: 1},
	}, b.Checkins())
}

func TestRoutineBuilderFilterKeepsDaysSampled(t *testing.T) {
	month := models.MonthRange(at("2022-04-01T00:00:00Z"))
	b := NewRoutineBuilder(RoutineFilter{Month: month}, models.DateRange{})
	b.Add(checkin(1, "2022-03-07T08:10:00Z", 1, models.VenueApartment))

	assert.Equal(t, 1, b.DaysSampled())
	assert.Equal(t, ActivityUnknown, b.Timeline()[8].DominantActivity)
	assert.Empty(t, b.Checkins())
}

func TestTravelRoutes(t *testing.T) {
	base := at("2022-03-07T08:00:00Z")
	step := func(i int) time.Time { return base.Add(time.Duration(i) * 5 * time.Minute) }
	var samples []models.PositionSample
	// A -> B twice, B -> A once, one jump that is too long and one that is too late
	pts := [][2]float64{{0, 0}, {100, 0}, {0, 0}, {100, 0}, {100, 0}, {5000, 0}}
	for i, p := range pts {
		samples = append(samples, sample(1, step(i), p[0], p[1]))
	}
	samples = append(samples, sample(1, step(5).Add(time.Hour), 0, 0))

	routes := TravelRoutes(NewTimeline(samples), RoutineFilter{})
	require.Len(t, routes, 1)
	assert.Equal(t, models.TravelRoute{StartX: 0, StartY: 0, EndX: 100, EndY: 0, MovementCount: 2}, routes[0])
}

func TestTravelRoutesRespectsFilter(t *testing.T) {
	sat := at("2022-03-12T08:00:00Z")
	var samples []models.PositionSample
	for i := 0; i < 6; i++ {
		samples = append(samples, sample(1, sat.Add(time.Duration(i)*time.Minute), float64(i%2)*10, 0))
	}
	assert.NotEmpty(t, TravelRoutes(NewTimeline(samples), RoutineFilter{}))
	assert.Empty(t, TravelRoutes(NewTimeline(samples), RoutineFilter{DayType: models.DayWeekday}))
}
