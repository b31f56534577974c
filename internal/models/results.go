package models

import "encoding/json"

// Bounds is an axis-aligned extent.
type Bounds struct {
	MinX float64 `json:"min_x"`
	MaxX float64 `json:"max_x"`
	MinY float64 `json:"min_y"`
	MaxY float64 `json:"max_y"`
}

// DateSpan is the first and last day covered by a log.
type DateSpan struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

// CellRef carries a cell's grid coordinates and a representative
// real-world coordinate (component-wise minimum of its contributors).
type CellRef struct {
	GridX int64   `json:"grid_x"`
	GridY int64   `json:"grid_y"`
	CellX float64 `json:"cell_x"`
	CellY float64 `json:"cell_y"`
}

// AreaResult is the area-characteristics response.
type AreaResult struct {
	GridSize        float64           `json:"grid_size"`
	Metric          AreaMetric        `json:"metric"`
	ExcludeOutliers bool              `json:"exclude_outliers"`
	Bounds          *Bounds           `json:"bounds"`
	Demographics    []DemographicCell `json:"demographics,omitempty"`
	Financial       []FinancialCell   `json:"financial,omitempty"`
	Venues          []VenueCell       `json:"venues,omitempty"`
	Apartments      []ApartmentCell   `json:"apartments,omitempty"`
}

// DemographicCell summarises the residents whose home falls in a cell.
// Percentages are fractions in [0, 1].
type DemographicCell struct {
	CellRef
	Population       int64   `json:"population"`
	AvgAge           float64 `json:"avg_age"`
	AvgHouseholdSize float64 `json:"avg_household_size"`
	AvgJoviality     float64 `json:"avg_joviality"`
	PctWithKids      float64 `json:"pct_with_kids"`
	PctGraduate      float64 `json:"pct_graduate"`
	PctBachelors     float64 `json:"pct_bachelors"`
	PctHighSchool    float64 `json:"pct_highschool"`
	PctLowEducation  float64 `json:"pct_low_education"`
}

// FinancialCell averages per-resident totals over the residents of a cell.
type FinancialCell struct {
	CellRef
	Participants          int64   `json:"participants"`
	AvgIncome             float64 `json:"avg_income"`
	AvgFoodSpending       float64 `json:"avg_food_spending"`
	AvgRecreationSpending float64 `json:"avg_recreation_spending"`
	AvgShelterSpending    float64 `json:"avg_shelter_spending"`
}

// VenueCell counts non-residential venues per type.
type VenueCell struct {
	CellRef
	RestaurantCount int64 `json:"restaurant_count"`
	PubCount        int64 `json:"pub_count"`
	SchoolCount     int64 `json:"school_count"`
	EmployerCount   int64 `json:"employer_count"`
	TotalVenues     int64 `json:"total_venues"`
}

// ApartmentCell summarises the housing stock of a cell.
type ApartmentCell struct {
	CellRef
	ApartmentCount int64   `json:"apartment_count"`
	AvgRentalCost  float64 `json:"avg_rental_cost"`
	AvgRooms       float64 `json:"avg_rooms"`
}

// TrafficResult is the traffic-patterns response.
type TrafficResult struct {
	GridSize        float64            `json:"grid_size"`
	TimePeriod      TimePeriod         `json:"time_period"`
	DayType         DayType            `json:"day_type"`
	SampleRate      int                `json:"sample_rate"`
	StartDate       string             `json:"start_date,omitempty"`
	EndDate         string             `json:"end_date,omitempty"`
	ExcludeOutliers bool               `json:"exclude_outliers"`
	Cells           []TrafficCell      `json:"cells"`
	Statistics      *TrafficStatistics `json:"statistics,omitempty"`
	HourlyPattern   []HourlyVisits     `json:"hourly_pattern"`
	AvailableDates  *DateSpan          `json:"available_dates"`
}

// TrafficCell counts check-ins at venues inside a cell.
type TrafficCell struct {
	CellRef
	TotalVisits      int64 `json:"total_visits"`
	UniqueVisitors   int64 `json:"unique_visitors"`
	RestaurantVisits int64 `json:"restaurant_visits"`
	PubVisits        int64 `json:"pub_visits"`
	HomeVisits       int64 `json:"home_visits"`
	WorkVisits       int64 `json:"work_visits"`
	SchoolVisits     int64 `json:"school_visits"`
}

// TrafficStatistics summarises visits over the emitted cells.
type TrafficStatistics struct {
	TotalLocations int     `json:"total_locations"`
	TotalVisits    int64   `json:"total_visits"`
	MaxVisits      int64   `json:"max_visits"`
	AvgVisits      float64 `json:"avg_visits"`
	P50Visits      float64 `json:"p50_visits"`
	P75Visits      float64 `json:"p75_visits"`
	P90Visits      float64 `json:"p90_visits"`
}

// HourlyVisits is one hour of the check-in day profile.
type HourlyVisits struct {
	Hour           int    `json:"hour"`
	Visits         int64  `json:"visits"`
	UniqueVisitors uint64 `json:"unique_visitors"` // approximate
}

// FlowResult is the flow-map response.
type FlowResult struct {
	GridSize        float64        `json:"grid_size"`
	DayType         DayType        `json:"day_type"`
	Purpose         string         `json:"purpose"`
	MinTrips        int            `json:"min_trips"`
	StartDate       string         `json:"start_date,omitempty"`
	EndDate         string         `json:"end_date,omitempty"`
	ExcludeOutliers bool           `json:"exclude_outliers"`
	Bounds          *Bounds        `json:"bounds"`
	AvailableDates  *DateSpan      `json:"available_dates"`
	Purposes        []PurposeCount `json:"purposes"`
	Flows           []Flow         `json:"flows"`
	Cells           []FlowCell     `json:"cells"`
	Statistics      FlowStatistics `json:"statistics"`
}

// Flow is one (hour, origin cell, destination cell) bucket.
type Flow struct {
	Hour                int              `json:"hour_bucket"`
	StartCellX          int64            `json:"start_cell_x"`
	StartCellY          int64            `json:"start_cell_y"`
	EndCellX            int64            `json:"end_cell_x"`
	EndCellY            int64            `json:"end_cell_y"`
	StartX              float64          `json:"start_x"` // origin cell centroid
	StartY              float64          `json:"start_y"`
	EndX                float64          `json:"end_x"` // destination cell centroid
	EndY                float64          `json:"end_y"`
	Trips               int64            `json:"trips"`
	AvgTravelTime       float64          `json:"avg_travel_time"` // minutes
	CommuteTrips        int64            `json:"commute_trips"`
	EatingTrips         int64            `json:"eating_trips"`
	RecreationTrips     int64            `json:"recreation_trips"`
	HomeTrips           int64            `json:"home_trips"`
	FromRestaurantTrips int64            `json:"from_restaurant_trips"`
	PurposeCounts       map[string]int64 `json:"purpose_counts"`
}

// FlowCell is the per-hour departure/arrival balance of one cell.
type FlowCell struct {
	Hour       int     `json:"hour_bucket"`
	CellX      int64   `json:"cell_x"`
	CellY      int64   `json:"cell_y"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Departures int64   `json:"departures"`
	Arrivals   int64   `json:"arrivals"`
	NetFlow    int64   `json:"net_flow"`
}

// FlowStatistics summarises the emitted flows.
type FlowStatistics struct {
	TotalFlows      int     `json:"total_flows"`
	TotalTrips      int64   `json:"total_trips"`
	MaxTrips        int64   `json:"max_trips"`
	AvgTrips        float64 `json:"avg_trips"`
	HoursCovered    int     `json:"hours_covered"`
	ResolvedTrips   int64   `json:"resolved_trips"`
	UnresolvedTrips int64   `json:"unresolved_trips"`
	Source          string  `json:"source"`
}

// PurposeCount is the number of trips recorded with a purpose.
type PurposeCount struct {
	Purpose string `json:"purpose"`
	Count   int64  `json:"count"`
}

// TemporalResult is the temporal-patterns response.
type TemporalResult struct {
	Granularity     Granularity      `json:"granularity"`
	Metric          TemporalMetric   `json:"metric"`
	VenueType       string           `json:"venue_type"`
	ExcludeOutliers bool             `json:"exclude_outliers"`
	DateRange       *DateSpan        `json:"date_range"`
	Activity        []ActivityPeriod `json:"activity,omitempty"`
	Spending        []SpendingPeriod `json:"spending,omitempty"`
	Social          []SocialPeriod   `json:"social,omitempty"`
	ActivityTrends  *ActivityTrends  `json:"activity_trends,omitempty"`
	SpendingTrends  *SpendingTrends  `json:"spending_trends,omitempty"`
}

// ActivityPeriod counts check-ins in one temporal bucket.
type ActivityPeriod struct {
	Period            string `json:"period"`
	TotalCheckins     int64  `json:"total_checkins"`
	UniqueVisitors    uint64 `json:"unique_visitors"`
	RestaurantVisits  int64  `json:"restaurant_visits"`
	PubVisits         int64  `json:"pub_visits"`
	HomeActivity      int64  `json:"home_activity"`
	WorkActivity      int64  `json:"work_activity"`
	MorningActivity   int64  `json:"morning_activity"`
	MiddayActivity    int64  `json:"midday_activity"`
	AfternoonActivity int64  `json:"afternoon_activity"`
	EveningActivity   int64  `json:"evening_activity"`
	NightActivity     int64  `json:"night_activity"`
}

// SpendingPeriod sums transactions in one temporal bucket.
type SpendingPeriod struct {
	Period             string  `json:"period"`
	TransactionCount   int64   `json:"transaction_count"`
	UniqueSpenders     uint64  `json:"unique_spenders"`
	TotalIncome        float64 `json:"total_income"`
	TotalSpending      float64 `json:"total_spending"`
	FoodSpending       float64 `json:"food_spending"`
	RecreationSpending float64 `json:"recreation_spending"`
	ShelterSpending    float64 `json:"shelter_spending"`
	EducationSpending  float64 `json:"education_spending"`
	AvgTransaction     float64 `json:"avg_transaction"`
}

// SocialPeriod counts interactions in one temporal bucket.
type SocialPeriod struct {
	Period                  string `json:"period"`
	Interactions            int64  `json:"interactions"`
	ActiveInitiators        uint64 `json:"active_initiators"`
	ContactedPeople         uint64 `json:"contacted_people"`
	TotalSocialParticipants uint64 `json:"total_social_participants"`
}

// ActivityTrends compares the first and last activity periods.
type ActivityTrends struct {
	CheckinChangePct    float64 `json:"checkin_change_pct"`
	RestaurantChangePct float64 `json:"restaurant_change_pct"`
	PubChangePct        float64 `json:"pub_change_pct"`
}

// SpendingTrends compares the first and last spending periods.
type SpendingTrends struct {
	SpendingChangePct   float64 `json:"spending_change_pct"`
	FoodChangePct       float64 `json:"food_change_pct"`
	RecreationChangePct float64 `json:"recreation_change_pct"`
}

// ThemeRiverResult is the theme-river response.
type ThemeRiverResult struct {
	Granularity        Granularity      `json:"granularity"`
	Dimension          RiverDimension   `json:"dimension"`
	Normalize          bool             `json:"normalize"`
	ExcludeOutliers    bool             `json:"exclude_outliers"`
	DateRange          *DateSpan        `json:"date_range"`
	Periods            []string         `json:"periods"`
	Categories         []string         `json:"categories"`
	Data               []RiverRow       `json:"data"`
	SignificantChanges []CategoryChange `json:"significant_changes,omitempty"`
}

// RiverRow holds one period's value per category. It marshals flat:
// {"period": "...", "<category>": value, ...}.
type RiverRow struct {
	Period string
	Values map[string]float64
}

// MarshalJSON flattens the row.
func (r RiverRow) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Values)+1)
	for k, v := range r.Values {
		out[k] = v
	}
	out["period"] = r.Period
	return json.Marshal(out)
}

// CategoryChange compares the opening and closing windows of a category.
type CategoryChange struct {
	Category  string  `json:"category"`
	FirstAvg  float64 `json:"first_avg"`
	LastAvg   float64 `json:"last_avg"`
	AbsChange float64 `json:"abs_change"`
	PctChange float64 `json:"pct_change"`
}

// RoutineResult is the participant-routines response.
type RoutineResult struct {
	AvailableMonths  []MonthOption                 `json:"available_months"`
	Participants     []Participant                 `json:"participants"`
	RoutineSummaries []RoutineSummary              `json:"routine_summaries,omitempty"`
	Routines         map[int64]*ParticipantRoutine `json:"routines,omitempty"`
	SelectedIDs      []int64                       `json:"selected_ids,omitempty"`
	TravelRoutes     map[int64][]TravelRoute       `json:"travel_routes,omitempty"`
}

// MonthOption is a month present in the check-in log.
type MonthOption struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Label string `json:"label"`
}

// RoutineSummary is the overview row of one participant.
type RoutineSummary struct {
	ParticipantID int64   `json:"participantid"`
	DaysTracked   int     `json:"days_tracked"`
	PctAtHome     float64 `json:"pct_at_home"`
	PctAtWork     float64 `json:"pct_at_work"`
	PctRestaurant float64 `json:"pct_restaurant"`
	PctRecreation float64 `json:"pct_recreation"`
}

// ParticipantRoutine is the detailed day profile of one participant.
type ParticipantRoutine struct {
	Participant  *Participant     `json:"participant"`
	Type         string           `json:"type"`
	Timeline     []HourActivity   `json:"timeline"`
	DaysSampled  int              `json:"days_sampled"`
	HomeLocation *PlaceLocation   `json:"home_location"`
	WorkLocation *PlaceLocation   `json:"work_location"`
	Checkins     []HourlyCheckins `json:"checkins"`
}

// HourActivity is the dominant activity of one hour of the day.
type HourActivity struct {
	Hour             int             `json:"hour"`
	DominantActivity string          `json:"dominant_activity"`
	Confidence       float64         `json:"confidence"`
	Activities       []ActivityCount `json:"activities"`
}

// ActivityCount is one activity observed in an hour.
type ActivityCount struct {
	Activity string `json:"activity"`
	Count    int64  `json:"count"`
}

// HourlyCheckins counts visits per hour and venue type.
type HourlyCheckins struct {
	Hour       int    `json:"hour"`
	VenueType  string `json:"venue_type"`
	VisitCount int64  `json:"visit_count"`
}

// TravelRoute is a repeated movement between two positions.
type TravelRoute struct {
	StartX        float64 `json:"start_x"`
	StartY        float64 `json:"start_y"`
	EndX          float64 `json:"end_x"`
	EndY          float64 `json:"end_y"`
	MovementCount int64   `json:"movement_count"`
}

// ParallelResult is the parallel-coordinates response.
type ParallelResult struct {
	ExcludeOutliers bool          `json:"exclude_outliers"`
	Participants    []ParallelRow `json:"participants"`
}

// ParallelRow holds per-participant activity counts.
type ParallelRow struct {
	ParticipantID int64 `json:"participantid"`
	Work          int64 `json:"work"`
	Home          int64 `json:"home"`
	Social        int64 `json:"social"`
	Food          int64 `json:"food"`
	Travel        int64 `json:"travel"`
}

// VenueMapResult lists venues grouped by type.
type VenueMapResult struct {
	Bounds *Bounds           `json:"bounds"`
	Counts map[string]int    `json:"counts"`
	Venues map[string][]Venue `json:"venues"`
}
