package models

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Aggregation kinds, used as cache-key namespaces.
const (
	KindArea       = "area"
	KindTraffic    = "traffic"
	KindFlow       = "flow"
	KindTemporal   = "temporal"
	KindThemeRiver = "theme_river"
	KindRoutines   = "routines"
	KindParallel   = "parallel"
	KindVenues     = "venues"
)

// Default parameter values.
const (
	DefaultAreaGridSize     = 500
	DefaultFlowGridSize     = 300
	DefaultMinTrips         = 5
	DefaultOutlierThreshold = 2000
	MaxRoutineParticipants  = 2
)

// AreaQuery parameters for GET /api/area-characteristics
type AreaQuery struct {
	GridSize        float64    `form:"grid_size,default=500"`
	Metric          AreaMetric `form:"metric,default=all"`
	ExcludeOutliers bool       `form:"exclude_outliers"`
}

// Validate checks every field.
func (q *AreaQuery) Validate() error {
	if err := validateGridSize(q.GridSize); err != nil {
		return err
	}
	return q.Metric.Validate()
}

// KeyFields returns every parameter that affects the result.
func (q AreaQuery) KeyFields() map[string]string {
	return map[string]string{
		"grid_size":        formatFloat(q.GridSize),
		"metric":           string(q.Metric),
		"exclude_outliers": strconv.FormatBool(q.ExcludeOutliers),
	}
}

// TrafficQuery parameters for GET /api/traffic-patterns
type TrafficQuery struct {
	GridSize        float64    `form:"grid_size,default=500"`
	TimePeriod      TimePeriod `form:"time_period,default=all"`
	DayType         DayType    `form:"day_type,default=all"`
	SampleRate      int        `form:"sample_rate,default=100"` // percent, 1-100
	StartDate       string     `form:"start_date"`              // YYYY-MM-DD, inclusive
	EndDate         string     `form:"end_date"`                // YYYY-MM-DD, inclusive
	ExcludeOutliers bool       `form:"exclude_outliers"`

	Range DateRange `form:"-"`
}

// Validate checks every field and fills Range.
func (q *TrafficQuery) Validate() error {
	if err := validateGridSize(q.GridSize); err != nil {
		return err
	}
	if err := q.TimePeriod.Validate(); err != nil {
		return err
	}
	if err := q.DayType.Validate(); err != nil {
		return err
	}
	if q.SampleRate < 1 || q.SampleRate > 100 {
		return InvalidParameter("sample_rate", "must be between 1 and 100, got %d", q.SampleRate)
	}
	r, err := ParseDateRange(q.StartDate, q.EndDate)
	if err != nil {
		return err
	}
	q.Range = r
	return nil
}

// KeyFields returns every parameter that affects the result.
func (q TrafficQuery) KeyFields() map[string]string {
	return map[string]string{
		"grid_size":        formatFloat(q.GridSize),
		"time_period":      string(q.TimePeriod),
		"day_type":         string(q.DayType),
		"sample_rate":      strconv.Itoa(q.SampleRate),
		"start_date":       q.StartDate,
		"end_date":         q.EndDate,
		"exclude_outliers": strconv.FormatBool(q.ExcludeOutliers),
	}
}

// FlowQuery parameters for GET /api/flow-map
type FlowQuery struct {
	GridSize        float64 `form:"grid_size,default=300"`
	DayType         DayType `form:"day_type,default=all"`
	Purpose         string  `form:"purpose,default=all"`
	MinTrips        int     `form:"min_trips,default=5"`
	StartDate       string  `form:"start_date"`
	EndDate         string  `form:"end_date"`
	ExcludeOutliers bool    `form:"exclude_outliers"`

	Range DateRange `form:"-"`
}

// Validate checks every field and fills Range.
func (q *FlowQuery) Validate() error {
	if err := validateGridSize(q.GridSize); err != nil {
		return err
	}
	if err := q.DayType.Validate(); err != nil {
		return err
	}
	if q.MinTrips < 0 {
		return InvalidParameter("min_trips", "must be non-negative, got %d", q.MinTrips)
	}
	if strings.TrimSpace(q.Purpose) == "" {
		q.Purpose = "all"
	}
	r, err := ParseDateRange(q.StartDate, q.EndDate)
	if err != nil {
		return err
	}
	q.Range = r
	return nil
}

// Purposes returns the purpose filter as a category list.
func (q FlowQuery) Purposes() []string {
	if q.Purpose == "all" {
		return nil
	}
	return []string{q.Purpose}
}

// KeyFields returns every parameter that affects the result.
func (q FlowQuery) KeyFields() map[string]string {
	return map[string]string{
		"grid_size":        formatFloat(q.GridSize),
		"day_type":         string(q.DayType),
		"purpose":          q.Purpose,
		"min_trips":        strconv.Itoa(q.MinTrips),
		"start_date":       q.StartDate,
		"end_date":         q.EndDate,
		"exclude_outliers": strconv.FormatBool(q.ExcludeOutliers),
	}
}

// TemporalQuery parameters for GET /api/temporal-patterns
type TemporalQuery struct {
	Granularity     Granularity    `form:"granularity,default=weekly"`
	Metric          TemporalMetric `form:"metric,default=all"`
	VenueType       string         `form:"venue_type,default=all"`
	ExcludeOutliers bool           `form:"exclude_outliers"`
}

// Validate checks every field.
func (q *TemporalQuery) Validate() error {
	if err := q.Granularity.Validate(); err != nil {
		return err
	}
	if err := q.Metric.Validate(); err != nil {
		return err
	}
	if q.VenueType == "" {
		q.VenueType = "all"
	}
	if q.VenueType != "all" && !slices.Contains(VenueTypes, q.VenueType) {
		return InvalidParameter("venue_type", "unknown venue type %q", q.VenueType)
	}
	return nil
}

// KeyFields returns every parameter that affects the result.
func (q TemporalQuery) KeyFields() map[string]string {
	return map[string]string{
		"granularity":      string(q.Granularity),
		"metric":           string(q.Metric),
		"venue_type":       q.VenueType,
		"exclude_outliers": strconv.FormatBool(q.ExcludeOutliers),
	}
}

// ThemeRiverQuery parameters for GET /api/theme-river
type ThemeRiverQuery struct {
	Granularity     Granularity    `form:"granularity,default=weekly"`
	Dimension       RiverDimension `form:"dimension,default=mode"`
	Normalize       bool           `form:"normalize"`
	ExcludeOutliers bool           `form:"exclude_outliers"`
}

// Validate checks every field.
func (q *ThemeRiverQuery) Validate() error {
	if err := q.Granularity.Validate(); err != nil {
		return err
	}
	return q.Dimension.Validate()
}

// KeyFields returns every parameter that affects the result.
func (q ThemeRiverQuery) KeyFields() map[string]string {
	return map[string]string{
		"granularity":      string(q.Granularity),
		"dimension":        string(q.Dimension),
		"normalize":        strconv.FormatBool(q.Normalize),
		"exclude_outliers": strconv.FormatBool(q.ExcludeOutliers),
	}
}

// RoutineQuery parameters for GET /api/participant-routines
type RoutineQuery struct {
	ParticipantIDs string  `form:"participant_ids"` // comma separated, at most two
	Month          string  `form:"month,default=all"` // YYYY-MM or all
	DayType        DayType `form:"day_type,default=all"`
	Date           string  `form:"date,default=typical"` // YYYY-MM-DD or typical

	IDs        []int64   `form:"-"`
	MonthRange DateRange `form:"-"`
	DayRange   DateRange `form:"-"`
}

// Validate checks every field and fills the parsed fields.
func (q *RoutineQuery) Validate() error {
	if err := q.DayType.Validate(); err != nil {
		return err
	}

	q.IDs = q.IDs[:0]
	for _, part := range strings.Split(q.ParticipantIDs, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return InvalidParameter("participant_ids", "%q is not an integer id", part)
		}
		q.IDs = append(q.IDs, id)
	}
	if len(q.IDs) > MaxRoutineParticipants {
		return InvalidParameter("participant_ids", "at most %d participants can be compared, got %d", MaxRoutineParticipants, len(q.IDs))
	}

	q.MonthRange = DateRange{}
	if q.Month != "" && q.Month != "all" {
		m, err := time.ParseInLocation("2006-01", q.Month, time.UTC)
		if err != nil {
			return InvalidParameter("month", "expected YYYY-MM or all, got %q", q.Month)
		}
		q.MonthRange = MonthRange(m)
	}

	q.DayRange = DateRange{}
	if q.Date != "" && q.Date != "typical" {
		d, err := time.ParseInLocation(DateLayout, q.Date, time.UTC)
		if err != nil {
			return InvalidParameter("date", "expected YYYY-MM-DD or typical, got %q", q.Date)
		}
		q.DayRange = DayRange(d)
	}
	return nil
}

// KeyFields returns every parameter that affects the result.
func (q RoutineQuery) KeyFields() map[string]string {
	ids := make([]string, len(q.IDs))
	for i, id := range q.IDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return map[string]string{
		"participant_ids": strings.Join(ids, ","),
		"month":           q.Month,
		"day_type":        string(q.DayType),
		"date":            q.Date,
	}
}

// ParallelQuery parameters for GET /api/parallel-coordinates
type ParallelQuery struct {
	ExcludeOutliers bool `form:"exclude_outliers"`
}

// KeyFields returns every parameter that affects the result.
func (q ParallelQuery) KeyFields() map[string]string {
	return map[string]string{"exclude_outliers": strconv.FormatBool(q.ExcludeOutliers)}
}

func validateGridSize(size float64) error {
	if math.IsNaN(size) || math.IsInf(size, 0) || size <= 0 {
		return InvalidParameter("grid_size", "must be a positive number, got %v", size)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
