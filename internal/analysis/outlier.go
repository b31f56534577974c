package analysis

import (
	"sort"
)

// OutlierSet holds the entities whose total event count is below a
// threshold. A nil *OutlierSet excludes nothing.
type OutlierSet struct {
	threshold int64
	ids       map[int64]struct{}
}

// ComputeOutliers returns the entities in counts whose count is strictly
// less than threshold.
func ComputeOutliers(counts map[int64]int64, threshold int64) *OutlierSet {
	set := &OutlierSet{threshold: threshold, ids: make(map[int64]struct{})}
	for id, n := range counts {
		if n < threshold {
			set.ids[id] = struct{}{}
		}
	}
	return set
}

// Threshold returns the threshold the set was computed with.
func (o *OutlierSet) Threshold() int64 {
	if o == nil {
		return 0
	}
	return o.threshold
}

// Contains reports whether id is an outlier.
func (o *OutlierSet) Contains(id int64) bool {
	if o == nil {
		return false
	}
	_, ok := o.ids[id]
	return ok
}

// Keep reports whether events of id should enter an aggregation.
func (o *OutlierSet) Keep(id int64) bool {
	return !o.Contains(id)
}

// Len returns the number of outliers.
func (o *OutlierSet) Len() int {
	if o == nil {
		return 0
	}
	return len(o.ids)
}

// IDs returns the outliers in ascending order.
func (o *OutlierSet) IDs() []int64 {
	if o == nil {
		return nil
	}
	ids := make([]int64, 0, len(o.ids))
	for id := range o.ids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
