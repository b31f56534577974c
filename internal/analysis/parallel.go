package analysis

import (
	"sort"

	"github.com/hpdav/cityflow-backend-go/internal/models"
)

// ParallelBuilder counts per-participant activity along five axes.
type ParallelBuilder struct {
	exclude *OutlierSet
	rows    map[int64]*models.ParallelRow
}

// NewParallelBuilder seeds one zero row per participant so that inactive
// participants still appear.
func NewParallelBuilder(participants []models.Participant, exclude *OutlierSet) *ParallelBuilder {
	b := &ParallelBuilder{exclude: exclude, rows: make(map[int64]*models.ParallelRow, len(participants))}
	for _, p := range participants {
		b.row(p.ID)
	}
	return b
}

func (b *ParallelBuilder) row(id int64) *models.ParallelRow {
	if !b.exclude.Keep(id) {
		return nil
	}
	r, ok := b.rows[id]
	if !ok {
		r = &models.ParallelRow{ParticipantID: id}
		b.rows[id] = r
	}
	return r
}

// AddCheckin folds one check-in.
func (b *ParallelBuilder) AddCheckin(c models.Checkin) {
	r := b.row(c.ParticipantID)
	if r == nil {
		return
	}
	switch c.VenueType {
	case models.VenueWorkplace:
		r.Work++
	case models.VenueApartment:
		r.Home++
	case models.VenuePub:
		r.Social++
	case models.VenueRestaurant:
		r.Food++
	}
}

// AddTrip folds one trip.
func (b *ParallelBuilder) AddTrip(t models.Trip) {
	r := b.row(t.ParticipantID)
	if r == nil {
		return
	}
	r.Travel++
	switch t.Purpose {
	case models.PurposeCommute:
		r.Work++
	case models.PurposeRecreation:
		r.Social++
	case models.PurposeEating:
		r.Food++
	}
}

// Result returns the rows ordered by participant id.
func (b *ParallelBuilder) Result() []models.ParallelRow {
	out := make([]models.ParallelRow, 0, len(b.rows))
	for _, r := range b.rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ParticipantID < out[j].ParticipantID })
	return out
}
