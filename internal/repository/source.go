package repository

import (
	"context"
	"errors"

	"github.com/hpdav/cityflow-backend-go/internal/models"
)

// EventLog names one append-only log of the store.
type EventLog string

const (
	LogSamples      EventLog = "participantstatuslogs"
	LogCheckins     EventLog = "checkinjournal"
	LogTrips        EventLog = "traveljournal"
	LogFinancial    EventLog = "financialjournal"
	LogInteractions EventLog = "socialnetwork"
)

// ErrNoTripCoordinates is returned by EachTripCoordinate when the
// precomputed trip dataset is absent.
var ErrNoTripCoordinates = errors.New("trip coordinates not materialized")

// ReferenceSource serves the small static tables.
type ReferenceSource interface {
	Participants(ctx context.Context) ([]models.Participant, error)
	Venues(ctx context.Context) ([]models.Venue, error)
	Jobs(ctx context.Context) ([]models.Job, error)
}

// EventSource streams the event logs. Implementations may push any part of
// the filter down to storage but callers re-check with EventFilter.Match.
// Iteration stops at the first error returned by fn.
type EventSource interface {
	// EachSample filters categories on the sample mode.
	EachSample(ctx context.Context, f models.EventFilter, fn func(models.PositionSample) error) error
	// EachCheckin filters categories on the venue type.
	EachCheckin(ctx context.Context, f models.EventFilter, fn func(models.Checkin) error) error
	// EachTrip filters categories on the purpose.
	EachTrip(ctx context.Context, f models.EventFilter, fn func(models.Trip) error) error
	// EachFinancial filters categories on the transaction category.
	EachFinancial(ctx context.Context, f models.EventFilter, fn func(models.FinancialEvent) error) error
	// EachInteraction filters participants on the initiator.
	EachInteraction(ctx context.Context, f models.EventFilter, fn func(models.Interaction) error) error

	// SampleCounts returns the number of position samples per participant.
	SampleCounts(ctx context.Context) (map[int64]int64, error)
	// Timeline returns every sample of one participant in ingestion order.
	Timeline(ctx context.Context, participantID int64) ([]models.PositionSample, error)
	// Span returns the first and last day of a log, or nil when it is empty.
	Span(ctx context.Context, log EventLog) (*models.DateSpan, error)
}

// TripCoordinateSource serves the optional precomputed trip dataset.
type TripCoordinateSource interface {
	HasTripCoordinates(ctx context.Context) (bool, error)
	EachTripCoordinate(ctx context.Context, f models.EventFilter, fn func(models.TripCoordinate) error) error
	WriteTripCoordinates(ctx context.Context, rows []models.TripCoordinate) error
}

// Store is everything the services need from storage.
type Store interface {
	ReferenceSource
	EventSource
	TripCoordinateSource
	Ping(ctx context.Context) error
}

func spanOf(first, last int64, seen bool) *models.DateSpan {
	if !seen {
		return nil
	}
	return &models.DateSpan{
		Min: unixTime(first).Format(models.DateLayout),
		Max: unixTime(last).Format(models.DateLayout),
	}
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
