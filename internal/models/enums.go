package models

import (
	"time"
)

// TimePeriod selects a fixed range of hours of the day.
type TimePeriod string

const (
	PeriodAll       TimePeriod = "all"
	PeriodMorning   TimePeriod = "morning"   // 06-10
	PeriodMidday    TimePeriod = "midday"    // 10-14
	PeriodAfternoon TimePeriod = "afternoon" // 14-18
	PeriodEvening   TimePeriod = "evening"   // 18-22
	PeriodNight     TimePeriod = "night"     // 22-06
)

// Validate rejects unknown periods.
func (p TimePeriod) Validate() error {
	switch p {
	case PeriodAll, PeriodMorning, PeriodMidday, PeriodAfternoon, PeriodEvening, PeriodNight:
		return nil
	}
	return InvalidParameter("time_period", "unknown value %q", string(p))
}

// ContainsHour reports whether hour (0-23) belongs to the period.
func (p TimePeriod) ContainsHour(hour int) bool {
	switch p {
	case PeriodMorning:
		return hour >= 6 && hour < 10
	case PeriodMidday:
		return hour >= 10 && hour < 14
	case PeriodAfternoon:
		return hour >= 14 && hour < 18
	case PeriodEvening:
		return hour >= 18 && hour < 22
	case PeriodNight:
		return hour >= 22 || hour < 6
	}
	return true
}

// DayType selects weekdays, weekends, or both.
type DayType string

const (
	DayAll     DayType = "all"
	DayWeekday DayType = "weekday"
	DayWeekend DayType = "weekend"
)

// Validate rejects unknown day types.
func (d DayType) Validate() error {
	switch d {
	case DayAll, DayWeekday, DayWeekend:
		return nil
	}
	return InvalidParameter("day_type", "unknown value %q", string(d))
}

// Match reports whether t falls on a matching day in UTC. Weekdays are
// Monday through Friday.
func (d DayType) Match(t time.Time) bool {
	wd := t.UTC().Weekday()
	weekend := wd == time.Saturday || wd == time.Sunday
	switch d {
	case DayWeekday:
		return !weekend
	case DayWeekend:
		return weekend
	}
	return true
}

// Granularity is the width of a temporal bucket.
type Granularity string

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

// Validate rejects unknown granularities.
func (g Granularity) Validate() error {
	switch g {
	case Daily, Weekly, Monthly:
		return nil
	}
	return InvalidParameter("granularity", "unknown value %q", string(g))
}

// Truncate returns the start of the bucket containing t. Weeks start on
// Monday.
func (g Granularity) Truncate(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch g {
	case Weekly:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case Monthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return day
}

// WindowSize is the number of buckets that make up roughly one month.
func (g Granularity) WindowSize() int {
	switch g {
	case Daily:
		return 30
	case Monthly:
		return 1
	}
	return 4
}

// AreaMetric selects the area-characteristics sections to compute.
type AreaMetric string

const (
	MetricDemographics AreaMetric = "demographics"
	MetricFinancial    AreaMetric = "financial"
	MetricVenues       AreaMetric = "venues"
	MetricApartments   AreaMetric = "apartments"
	MetricAll          AreaMetric = "all"
)

// Validate rejects unknown metrics.
func (m AreaMetric) Validate() error {
	switch m {
	case MetricDemographics, MetricFinancial, MetricVenues, MetricApartments, MetricAll:
		return nil
	}
	return InvalidParameter("metric", "unknown value %q", string(m))
}

// Includes reports whether section is requested by m.
func (m AreaMetric) Includes(section AreaMetric) bool {
	return m == MetricAll || m == section
}

// TemporalMetric selects the temporal-pattern series to compute.
type TemporalMetric string

const (
	TemporalActivity TemporalMetric = "activity"
	TemporalSpending TemporalMetric = "spending"
	TemporalSocial   TemporalMetric = "social"
	TemporalAll      TemporalMetric = "all"
)

// Validate rejects unknown metrics.
func (m TemporalMetric) Validate() error {
	switch m {
	case TemporalActivity, TemporalSpending, TemporalSocial, TemporalAll:
		return nil
	}
	return InvalidParameter("metric", "unknown value %q", string(m))
}

// Includes reports whether series is requested by m.
func (m TemporalMetric) Includes(series TemporalMetric) bool {
	return m == TemporalAll || m == series
}

// RiverDimension selects the category stream of the theme river.
type RiverDimension string

const (
	DimensionMode     RiverDimension = "mode"
	DimensionPurpose  RiverDimension = "purpose"
	DimensionSpending RiverDimension = "spending"
)

// Validate rejects unknown dimensions.
func (d RiverDimension) Validate() error {
	switch d {
	case DimensionMode, DimensionPurpose, DimensionSpending:
		return nil
	}
	return InvalidParameter("dimension", "unknown value %q", string(d))
}

// Hour returns the hour of day of t in UTC.
func Hour(t time.Time) int {
	return t.UTC().Hour()
}
