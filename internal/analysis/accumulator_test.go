package analysis

import (
	"context"
	"math/rand"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/hpdav/cityflow-backend-go/internal/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type weighted struct {
	p  r2.Point
	w  float64
	id int64
}

func locateWeighted(w weighted) (r2.Point, bool) { return w.p, true }

func foldWeighted(s *CellState, w weighted) {
	s.AddPopulation(1)
	s.AddSum("w", w.w)
	s.AddVisitor(w.id)
	if w.w > 0.5 {
		s.Inc("heavy", 1)
	}
}

func TestAccumulatePopulationsPerCell(t *testing.T) {
	grid := mustGrid(t, 500)
	pts := []weighted{{p: r2.Point{X: 10, Y: 10}}, {p: r2.Point{X: 490, Y: 490}}, {p: r2.Point{X: 500, Y: 10}}}

	acc := AccumulateAll(grid, pts, locateWeighted, foldWeighted)
	require.Equal(t, 2, acc.Len())

	keys := acc.Keys()
	assert.Equal(t, []spatial.Cell{{X: 0, Y: 0}, {X: 1, Y: 0}}, keys)
	assert.EqualValues(t, 2, acc.State(keys[0]).Population)
	assert.EqualValues(t, 1, acc.State(keys[1]).Population)
	assert.Equal(t, r2.Point{X: 10, Y: 10}, acc.State(keys[0]).Anchor())
}

func TestCellStateGuardsEmptyPopulation(t *testing.T) {
	var s CellState
	s.AddSum("x", 3)
	s.Inc("y", 1)
	assert.Zero(t, s.Mean("x"))
	assert.Zero(t, s.Fraction("y"))

	s.AddPopulation(2)
	assert.InDelta(t, 1.5, s.Mean("x"), 1e-9)
	assert.InDelta(t, 0.5, s.Fraction("y"), 1e-9)
}

func randomWeighted(n int, seed int64) []weighted {
	r := rand.New(rand.NewSource(seed))
	out := make([]weighted, n)
	for i := range out {
		out[i] = weighted{
			p:  r2.Point{X: r.Float64()*5000 - 1000, Y: r.Float64() * 5000},
			w:  r.Float64(),
			id: r.Int63n(50),
		}
	}
	return out
}

func snapshot(acc *Accumulator) map[spatial.Cell][5]float64 {
	out := make(map[spatial.Cell][5]float64)
	for _, k := range acc.Keys() {
		s := acc.State(k)
		out[k] = [5]float64{float64(s.Population), s.Sum("w"), float64(s.Count("heavy")), float64(s.Visitors()), s.Anchor().X + s.Anchor().Y*1e6}
	}
	return out
}

func TestShardedAccumulationIsBitIdentical(t *testing.T) {
	grid := mustGrid(t, 250)
	records := randomWeighted(5000, 42)
	want := snapshot(AccumulateAll(grid, records, locateWeighted, foldWeighted))

	for _, shards := range []int{1, 2, 3, 8, 17} {
		acc, err := AccumulateSharded(context.Background(), grid, records, shards, locateWeighted, foldWeighted)
		require.NoError(t, err)
		assert.Equal(t, want, snapshot(acc), "shards=%d", shards)
	}
}

func TestMergeIsOrderIndependent(t *testing.T) {
	grid := mustGrid(t, 400)
	records := randomWeighted(1000, 7)
	a := AccumulateAll(grid, records[:300], locateWeighted, foldWeighted)
	b := AccumulateAll(grid, records[300:], locateWeighted, foldWeighted)

	ab := NewAccumulator(grid)
	require.NoError(t, ab.Merge(a))
	require.NoError(t, ab.Merge(b))
	ba := NewAccumulator(grid)
	require.NoError(t, ba.Merge(b))
	require.NoError(t, ba.Merge(a))

	assert.Equal(t, snapshot(ab), snapshot(ba))
	assert.Equal(t, snapshot(AccumulateAll(grid, records, locateWeighted, foldWeighted)), snapshot(ab))
}

func TestMergeRejectsDifferentGrids(t *testing.T) {
	a := NewAccumulator(mustGrid(t, 100))
	b := NewAccumulator(mustGrid(t, 200))
	assert.Error(t, a.Merge(b))
}

func TestAccumulateShardedHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := AccumulateSharded(ctx, mustGrid(t, 100), randomWeighted(100, 1), 4, locateWeighted, foldWeighted)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFixedRoundTrip(t *testing.T) {
	assert.Equal(t, 12.345678, ToFixed(12.345678).Float())
	assert.Equal(t, Fixed(-1500000), ToFixed(-1.5))
}
