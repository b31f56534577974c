package analysis

import (
	"sort"
	"time"

	"github.com/hpdav/cityflow-backend-go/internal/models"
)

// Timeline is one entity's position samples in ascending timestamp order.
// Samples sharing a timestamp keep their ingestion order.
type Timeline struct {
	samples []models.PositionSample
}

// NewTimeline copies samples and sorts them stably by timestamp.
func NewTimeline(samples []models.PositionSample) *Timeline {
	sorted := make([]models.PositionSample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return &Timeline{samples: sorted}
}

// Len returns the number of samples.
func (tl *Timeline) Len() int {
	if tl == nil {
		return 0
	}
	return len(tl.samples)
}

// Samples returns the sorted samples. Callers must not modify them.
func (tl *Timeline) Samples() []models.PositionSample {
	if tl == nil {
		return nil
	}
	return tl.samples
}

// AtOrBefore returns the latest sample with timestamp <= t. Among samples
// sharing that timestamp the one ingested last wins.
func (tl *Timeline) AtOrBefore(t time.Time) (models.PositionSample, bool) {
	n := tl.Len()
	i := sort.Search(n, func(i int) bool { return tl.samples[i].Timestamp.After(t) })
	if i == 0 {
		return models.PositionSample{}, false
	}
	return tl.samples[i-1], true
}

// AtOrAfter returns the earliest sample with timestamp >= t. Among samples
// sharing that timestamp the one ingested last wins, matching AtOrBefore.
func (tl *Timeline) AtOrAfter(t time.Time) (models.PositionSample, bool) {
	n := tl.Len()
	i := sort.Search(n, func(i int) bool { return !tl.samples[i].Timestamp.Before(t) })
	if i == n {
		return models.PositionSample{}, false
	}
	for i+1 < n && tl.samples[i+1].Timestamp.Equal(tl.samples[i].Timestamp) {
		i++
	}
	return tl.samples[i], true
}

// AsOfResolver answers as-of position queries over many entities.
type AsOfResolver struct {
	timelines map[int64]*Timeline
}

// NewAsOfResolver groups samples by entity, preserving their order within
// each entity, and sorts every timeline once.
func NewAsOfResolver(samples []models.PositionSample) *AsOfResolver {
	grouped := make(map[int64][]models.PositionSample)
	for _, s := range samples {
		grouped[s.ParticipantID] = append(grouped[s.ParticipantID], s)
	}
	r := &AsOfResolver{timelines: make(map[int64]*Timeline, len(grouped))}
	for id, ss := range grouped {
		r.timelines[id] = NewTimeline(ss)
	}
	return r
}

// Timeline returns the timeline of id, or nil.
func (r *AsOfResolver) Timeline(id int64) *Timeline {
	return r.timelines[id]
}

// AtOrBefore resolves id's last known position at or before t.
func (r *AsOfResolver) AtOrBefore(id int64, t time.Time) (models.PositionSample, bool) {
	return r.timelines[id].AtOrBefore(t)
}

// AtOrAfter resolves id's first known position at or after t.
func (r *AsOfResolver) AtOrAfter(id int64, t time.Time) (models.PositionSample, bool) {
	return r.timelines[id].AtOrAfter(t)
}
