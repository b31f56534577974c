package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParseDateRange(t *testing.T) {
	r, err := ParseDateRange("2022-03-01", "2022-03-07")
	require.NoError(t, err)
	assert.Equal(t, day("2022-03-01"), r.From)
	assert.Equal(t, day("2022-03-08"), r.To, "end day is inclusive")
	assert.True(t, r.Contains(day("2022-03-07").Add(23*time.Hour)))
	assert.False(t, r.Contains(day("2022-03-08")))

	open, err := ParseDateRange("", "")
	require.NoError(t, err)
	assert.True(t, open.IsZero())
	assert.True(t, open.Contains(time.Unix(0, 0)))

	sameDay, err := ParseDateRange("2022-03-01", "2022-03-01")
	require.NoError(t, err)
	assert.Equal(t, DayRange(day("2022-03-01")), sameDay)

	for _, bad := range [][2]string{{"2022-13-01", ""}, {"", "yesterday"}, {"2022-03-05", "2022-03-01"}} {
		_, err := ParseDateRange(bad[0], bad[1])
		assert.ErrorIs(t, err, ErrInvalidParameter, "%v", bad)
	}
}

func TestGranularityTruncate(t *testing.T) {
	ts := time.Date(2022, 3, 6, 17, 30, 0, 0, time.UTC) // Sunday
	assert.Equal(t, day("2022-03-06"), Daily.Truncate(ts))
	assert.Equal(t, day("2022-02-28"), Weekly.Truncate(ts))
	assert.Equal(t, day("2022-03-01"), Monthly.Truncate(ts))
	assert.Equal(t, day("2022-03-07"), Weekly.Truncate(day("2022-03-07")))

	assert.Equal(t, 30, Daily.WindowSize())
	assert.Equal(t, 4, Weekly.WindowSize())
	assert.Equal(t, 1, Monthly.WindowSize())
}

func TestTimePeriodHours(t *testing.T) {
	tests := []struct {
		period TimePeriod
		in     []int
		out    []int
	}{
		{PeriodMorning, []int{6, 9}, []int{5, 10}},
		{PeriodMidday, []int{10, 13}, []int{9, 14}},
		{PeriodAfternoon, []int{14, 17}, []int{13, 18}},
		{PeriodEvening, []int{18, 21}, []int{17, 22}},
		{PeriodNight, []int{22, 23, 0, 5}, []int{6, 21}},
		{PeriodAll, []int{0, 12, 23}, nil},
	}
	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			for _, h := range tt.in {
				assert.True(t, tt.period.ContainsHour(h), "hour %d", h)
			}
			for _, h := range tt.out {
				assert.False(t, tt.period.ContainsHour(h), "hour %d", h)
			}
		})
	}
}

func TestDayType(t *testing.T) {
	friday, saturday := day("2022-03-11"), day("2022-03-12")
	assert.True(t, DayWeekday.Match(friday))
	assert.False(t, DayWeekday.Match(saturday))
	assert.True(t, DayWeekend.Match(saturday))
	assert.True(t, DayAll.Match(saturday))
	assert.ErrorIs(t, DayType("holiday").Validate(), ErrInvalidParameter)

	// Friday 22:00 in New York is Saturday 03:00 UTC.
	local, err := time.Parse(time.RFC3339, "2022-03-04T22:00:00-05:00")
	require.NoError(t, err)
	assert.True(t, DayWeekend.Match(local))
	assert.False(t, DayWeekday.Match(local))
	assert.Equal(t, DayWeekend.Match(local.UTC()), DayWeekend.Match(local))
	assert.Equal(t, 3, Hour(local))
}

func TestTrafficQueryValidate(t *testing.T) {
	valid := TrafficQuery{GridSize: 500, TimePeriod: PeriodAll, DayType: DayAll, SampleRate: 100, StartDate: "2022-03-01", EndDate: "2022-03-01"}
	require.NoError(t, valid.Validate())
	assert.Equal(t, DayRange(day("2022-03-01")), valid.Range)

	tests := []struct {
		name  string
		mod   func(q *TrafficQuery)
		param string
	}{
		{"zero grid", func(q *TrafficQuery) { q.GridSize = 0 }, "grid_size"},
		{"negative grid", func(q *TrafficQuery) { q.GridSize = -5 }, "grid_size"},
		{"sample rate too high", func(q *TrafficQuery) { q.SampleRate = 101 }, "sample_rate"},
		{"sample rate zero", func(q *TrafficQuery) { q.SampleRate = 0 }, "sample_rate"},
		{"bad period", func(q *TrafficQuery) { q.TimePeriod = "dawn" }, "time_period"},
		{"bad date", func(q *TrafficQuery) { q.StartDate = "03/01/2022" }, "start_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := valid
			tt.mod(&q)
			err := q.Validate()
			var pe *ParamError
			require.True(t, errors.As(err, &pe), "got %v", err)
			assert.Equal(t, tt.param, pe.Param)
			assert.ErrorIs(t, err, ErrInvalidParameter)
		})
	}
}

func TestRoutineQueryValidate(t *testing.T) {
	q := RoutineQuery{ParticipantIDs: " 3, 7 ", Month: "2022-04", DayType: DayAll, Date: "2022-04-02"}
	require.NoError(t, q.Validate())
	assert.Equal(t, []int64{3, 7}, q.IDs)
	assert.Equal(t, MonthRange(day("2022-04-01")), q.MonthRange)
	assert.Equal(t, DayRange(day("2022-04-02")), q.DayRange)
	assert.Equal(t, "3,7", q.KeyFields()["participant_ids"])

	none := RoutineQuery{Month: "all", DayType: DayAll, Date: "typical"}
	require.NoError(t, none.Validate())
	assert.Empty(t, none.IDs)
	assert.True(t, none.MonthRange.IsZero())

	for _, bad := range []RoutineQuery{
		{ParticipantIDs: "1,2,3", DayType: DayAll},
		{ParticipantIDs: "abc", DayType: DayAll},
		{Month: "April", DayType: DayAll},
		{Date: "tomorrow", DayType: DayAll},
	} {
		assert.ErrorIs(t, bad.Validate(), ErrInvalidParameter, "%+v", bad)
	}
}

func TestTemporalQueryValidate(t *testing.T) {
	tests := []struct {
		name      string
		venueType string
		want      string
		param     string
	}{
		{"empty means all", "", "all", ""},
		{"all", "all", "all", ""},
		{"pub", VenuePub, VenuePub, ""},
		{"typo", "Pubb", "", "venue_type"},
		{"wrong case", "pub", "", "venue_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := TemporalQuery{Granularity: Weekly, Metric: TemporalAll, VenueType: tt.venueType}
			err := q.Validate()
			if tt.param == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.want, q.VenueType)
				return
			}
			var pe *ParamError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.param, pe.Param)
		})
	}
}

func TestFlowQueryPurposes(t *testing.T) {
	q := FlowQuery{GridSize: 300, DayType: DayAll, Purpose: ""}
	require.NoError(t, q.Validate())
	assert.Equal(t, "all", q.Purpose)
	assert.Nil(t, q.Purposes())

	q.Purpose = PurposeEating
	assert.Equal(t, []string{PurposeEating}, q.Purposes())

	q.MinTrips = -1
	assert.ErrorIs(t, q.Validate(), ErrInvalidParameter)
}

func TestKeyFieldsDistinguishParameters(t *testing.T) {
	a := AreaQuery{GridSize: 500, Metric: MetricAll}
	b := AreaQuery{GridSize: 500, Metric: MetricAll, ExcludeOutliers: true}
	assert.NotEqual(t, a.KeyFields(), b.KeyFields())
	assert.Equal(t, "500", a.KeyFields()["grid_size"])
	assert.Equal(t, "0.5", AreaQuery{GridSize: 0.5}.KeyFields()["grid_size"])
}

func TestSourceUnavailableWrapsCause(t *testing.T) {
	cause := errors.New("disk gone")
	err := SourceUnavailable("checkins", cause)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.ErrorIs(t, err, cause)
}
