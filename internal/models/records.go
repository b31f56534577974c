package models

import (
	"time"

	"github.com/golang/geo/r2"
)

// Venue types
const (
	VenueRestaurant = "Restaurant"
	VenuePub        = "Pub"
	VenueApartment  = "Apartment"
	VenueWorkplace  = "Workplace"
	VenueSchool     = "School"
)

// VenueTypes lists every venue type.
var VenueTypes = []string{VenueApartment, VenuePub, VenueRestaurant, VenueSchool, VenueWorkplace}

// Travel purposes
const (
	PurposeCommute        = "Work/Home Commute"
	PurposeEating         = "Eating"
	PurposeRecreation     = "Recreation (Social Gathering)"
	PurposeGoingHome      = "Going Back to Home"
	PurposeFromRestaurant = "Coming Back From Restaurant"
)

// Financial categories
const (
	CategoryWage       = "Wage"
	CategoryFood       = "Food"
	CategoryRecreation = "Recreation"
	CategoryShelter    = "Shelter"
	CategoryEducation  = "Education"
)

// Education levels
const (
	EducationGraduate   = "Graduate"
	EducationBachelors  = "Bachelors"
	EducationHighSchool = "HighSchoolOrCollege"
	EducationLow        = "Low"
)

// Participant is an entity with static demographic attributes.
type Participant struct {
	ID             int64   `json:"participantid" yaml:"id" db:"participantid"`
	Age            int     `json:"age" yaml:"age" db:"age"`
	HouseholdSize  int     `json:"householdsize" yaml:"household_size" db:"householdsize"`
	HaveKids       bool    `json:"havekids" yaml:"have_kids" db:"havekids"`
	EducationLevel string  `json:"education" yaml:"education" db:"educationlevel"`
	InterestGroup  string  `json:"interestgroup" yaml:"interest_group" db:"interestgroup"`
	Joviality      float64 `json:"joviality" yaml:"joviality" db:"joviality"`
}

// PositionSample is one status-log row: where an entity was at an instant.
type PositionSample struct {
	ParticipantID int64     `json:"participantid" yaml:"participant" db:"participantid"`
	Timestamp     time.Time `json:"timestamp" yaml:"timestamp" db:"timestamp"`
	X             float64   `json:"x" yaml:"x" db:"x"`
	Y             float64   `json:"y" yaml:"y" db:"y"`
	Mode          string    `json:"mode,omitempty" yaml:"mode" db:"mode"`                 // AtHome, AtWork, Transport, ...
	ApartmentID   *int64    `json:"apartmentid,omitempty" yaml:"apartment" db:"apartmentid"` // home-place reference
	JobID         *int64    `json:"jobid,omitempty" yaml:"job" db:"jobid"`
}

// Point returns the sample location.
func (s PositionSample) Point() r2.Point {
	return r2.Point{X: s.X, Y: s.Y}
}

// Trip is a travel-journal entry without coordinates.
type Trip struct {
	TravelID      int64     `json:"travelid" yaml:"id" db:"travelid"`
	ParticipantID int64     `json:"participantid" yaml:"participant" db:"participantid"`
	Start         time.Time `json:"start" yaml:"start" db:"travelstarttime"`
	End           time.Time `json:"end" yaml:"end" db:"travelendtime"`
	Purpose       string    `json:"purpose" yaml:"purpose" db:"purpose"`
}

// TravelMinutes returns the trip duration in minutes.
func (t Trip) TravelMinutes() float64 {
	return t.End.Sub(t.Start).Minutes()
}

// ResolvedTrip is a trip with known origin and destination.
type ResolvedTrip struct {
	Trip
	Origin      r2.Point
	Destination r2.Point
}

// TripCoordinate is one row of the precomputed trip dataset. Resolved is
// false when either endpoint could not be determined.
type TripCoordinate struct {
	ResolvedTrip
	Resolved bool
}

// Venue is a static place of a given type.
type Venue struct {
	ID           int64   `json:"venueid" yaml:"id" db:"venueid"`
	Type         string  `json:"venuetype" yaml:"type" db:"venuetype"`
	X            float64 `json:"x" yaml:"x" db:"x"`
	Y            float64 `json:"y" yaml:"y" db:"y"`
	RentalCost   float64 `json:"rentalcost,omitempty" yaml:"rental_cost" db:"rentalcost"`         // apartments only
	Rooms        float64 `json:"numberofrooms,omitempty" yaml:"rooms" db:"numberofrooms"`         // apartments only
	MaxOccupancy int     `json:"maxoccupancy,omitempty" yaml:"max_occupancy" db:"maxoccupancy"`   // apartments, employers
}

// Point returns the venue location.
func (v Venue) Point() r2.Point {
	return r2.Point{X: v.X, Y: v.Y}
}

// Key returns the (id, type) pair identifying v. Venue ids are only unique
// within a type.
func (v Venue) Key() VenueKey {
	return VenueKey{ID: v.ID, Type: v.Type}
}

// VenueKey identifies a venue across types.
type VenueKey struct {
	ID   int64
	Type string
}

// Job links a job to the employer venue where it is performed.
type Job struct {
	ID         int64 `json:"jobid" yaml:"id" db:"jobid"`
	EmployerID int64 `json:"employerid" yaml:"employer" db:"employerid"`
}

// Checkin is a venue visit.
type Checkin struct {
	ParticipantID int64     `json:"participantid" yaml:"participant" db:"participantid"`
	Timestamp     time.Time `json:"timestamp" yaml:"timestamp" db:"timestamp"`
	VenueID       int64     `json:"venueid" yaml:"venue" db:"venueid"`
	VenueType     string    `json:"venuetype" yaml:"venue_type" db:"venuetype"`
}

// VenueKey returns the key of the visited venue.
func (c Checkin) VenueKey() VenueKey {
	return VenueKey{ID: c.VenueID, Type: c.VenueType}
}

// FinancialEvent is a signed transaction: positive is income.
type FinancialEvent struct {
	ParticipantID int64     `json:"participantid" yaml:"participant" db:"participantid"`
	Timestamp     time.Time `json:"timestamp" yaml:"timestamp" db:"timestamp"`
	Category      string    `json:"category" yaml:"category" db:"category"`
	Amount        float64   `json:"amount" yaml:"amount" db:"amount"`
}

// Interaction is a social-network contact from one participant to another.
type Interaction struct {
	Timestamp time.Time `json:"timestamp" yaml:"timestamp" db:"timestamp"`
	From      int64     `json:"participantidfrom" yaml:"from" db:"participantidfrom"`
	To        int64     `json:"participantidto" yaml:"to" db:"participantidto"`
}

// PlaceLocation is a participant's home or work place.
type PlaceLocation struct {
	ParticipantID int64   `json:"-"`
	PlaceID       int64   `json:"place_id"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
}

// Point returns the place location.
func (p PlaceLocation) Point() r2.Point {
	return r2.Point{X: p.X, Y: p.Y}
}
