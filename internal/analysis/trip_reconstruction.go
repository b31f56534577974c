package analysis

import (
	"time"

	"github.com/hpdav/cityflow-backend-go/internal/models"
)

// PositionLookup answers as-of position queries for an entity.
type PositionLookup interface {
	AtOrBefore(id int64, t time.Time) (models.PositionSample, bool)
	AtOrAfter(id int64, t time.Time) (models.PositionSample, bool)
}

// TripReconstructor derives trip endpoints from position timelines: the
// origin is the last position at or before the start, the destination the
// first position at or after the end.
type TripReconstructor struct {
	lookup PositionLookup
}

// NewTripReconstructor returns a reconstructor backed by lookup.
func NewTripReconstructor(lookup PositionLookup) *TripReconstructor {
	return &TripReconstructor{lookup: lookup}
}

// Resolve returns the resolved trip, or ok=false when either endpoint is
// unknown. Unresolved trips are never given a default location.
func (r *TripReconstructor) Resolve(trip models.Trip) (models.ResolvedTrip, bool) {
	origin, ok := r.lookup.AtOrBefore(trip.ParticipantID, trip.Start)
	if !ok {
		return models.ResolvedTrip{}, false
	}
	dest, ok := r.lookup.AtOrAfter(trip.ParticipantID, trip.End)
	if !ok {
		return models.ResolvedTrip{}, false
	}
	return models.ResolvedTrip{
		Trip:        trip,
		Origin:      origin.Point(),
		Destination: dest.Point(),
	}, true
}
