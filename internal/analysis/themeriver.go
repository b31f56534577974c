package analysis

import (
	"math"
	"sort"
	"time"

	"github.com/hpdav/cityflow-backend-go/internal/models"
	"github.com/hpdav/cityflow-backend-go/internal/stats"
	"github.com/samber/lo"
)

const (
	minPeriodsForChanges = 5
	maxSignificant       = 10
)

// RiverBuilder accumulates (period, category) values for a theme river.
type RiverBuilder struct {
	granularity models.Granularity
	exclude     *OutlierSet
	values      map[time.Time]map[string]Fixed
}

// NewRiverBuilder returns an empty builder.
func NewRiverBuilder(g models.Granularity, exclude *OutlierSet) *RiverBuilder {
	return &RiverBuilder{granularity: g, exclude: exclude, values: make(map[time.Time]map[string]Fixed)}
}

func (b *RiverBuilder) add(participant int64, t time.Time, category string, v Fixed) {
	if category == "" || !b.exclude.Keep(participant) {
		return
	}
	key := b.granularity.Truncate(t)
	row, ok := b.values[key]
	if !ok {
		row = make(map[string]Fixed)
		b.values[key] = row
	}
	row[category] += v
}

// AddSample counts a position sample under its mode.
func (b *RiverBuilder) AddSample(s models.PositionSample) {
	b.add(s.ParticipantID, s.Timestamp, s.Mode, ToFixed(1))
}

// AddTrip counts a trip under its purpose, in the period of its start.
func (b *RiverBuilder) AddTrip(t models.Trip) {
	b.add(t.ParticipantID, t.Start, t.Purpose, ToFixed(1))
}

// AddExpense sums the absolute value of an expense under its category.
// Income and wages are ignored.
func (b *RiverBuilder) AddExpense(ev models.FinancialEvent) {
	if ev.Category == models.CategoryWage || ev.Amount >= 0 {
		return
	}
	b.add(ev.ParticipantID, ev.Timestamp, ev.Category, ToFixed(-ev.Amount))
}

// Build returns the dense river. Zero-valued (period, category) pairs never
// contribute a category; missing pairs are filled with 0.
func (b *RiverBuilder) Build(normalize bool) *models.ThemeRiverResult {
	categorySet := make(map[string]struct{})
	for _, row := range b.values {
		for cat, v := range row {
			if v != 0 {
				categorySet[cat] = struct{}{}
			}
		}
	}
	categories := lo.Keys(categorySet)
	sort.Strings(categories)

	keys := periodKeys(b.values)
	res := &models.ThemeRiverResult{
		Granularity: b.granularity,
		Normalize:   normalize,
		Periods:     make([]string, 0, len(keys)),
		Categories:  categories,
		Data:        make([]models.RiverRow, 0, len(keys)),
	}
	for _, k := range keys {
		row := b.values[k]
		var total Fixed
		for _, cat := range categories {
			total += row[cat]
		}
		values := make(map[string]float64, len(categories))
		for _, cat := range categories {
			v := row[cat].Float()
			if normalize && total > 0 {
				v = float64(row[cat]) / float64(total) * 100
			}
			values[cat] = v
		}
		label := periodLabel(k)
		res.Periods = append(res.Periods, label)
		res.Data = append(res.Data, models.RiverRow{Period: label, Values: values})
	}
	res.SignificantChanges = SignificantChanges(res.Data, categories, b.granularity.WindowSize())
	return res
}

// SignificantChanges compares the mean of the first n rows with the mean of
// the last n rows for every category whose opening mean is positive, and
// returns the largest relative changes first. It needs at least five rows.
func SignificantChanges(rows []models.RiverRow, categories []string, n int) []models.CategoryChange {
	if len(rows) < minPeriodsForChanges || n <= 0 {
		return nil
	}
	n = min(n, len(rows))
	first, last := rows[:n], rows[len(rows)-n:]

	var changes []models.CategoryChange
	for _, cat := range categories {
		firstAvg := windowMean(first, cat)
		if firstAvg <= 0 {
			continue
		}
		lastAvg := windowMean(last, cat)
		changes = append(changes, models.CategoryChange{
			Category:  cat,
			FirstAvg:  stats.Round(firstAvg, 2),
			LastAvg:   stats.Round(lastAvg, 2),
			AbsChange: stats.Round(lastAvg-firstAvg, 2),
			PctChange: stats.Round((lastAvg-firstAvg)/firstAvg*100, 2),
		})
	}
	sort.SliceStable(changes, func(i, j int) bool {
		return math.Abs(changes[i].PctChange) > math.Abs(changes[j].PctChange)
	})
	if len(changes) > maxSignificant {
		changes = changes[:maxSignificant]
	}
	return changes
}

func windowMean(rows []models.RiverRow, cat string) float64 {
	var sum float64
	for _, r := range rows {
		sum += r.Values[cat]
	}
	return sum / float64(len(rows))
}
