package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/hpdav/cityflow-backend-go/internal/spatial"
)

// fixedScale is the number of fixed-point units per 1.0.
const fixedScale = 1e6

// Fixed is a fixed-point quantity with six decimal places. Integer addition
// is associative, so sums built from any sharding of the input are
// bit-identical.
type Fixed int64

// ToFixed rounds v to the nearest fixed-point unit.
func ToFixed(v float64) Fixed {
	return Fixed(math.Round(v * fixedScale))
}

// Float converts f back to float64.
func (f Fixed) Float() float64 {
	return float64(f) / fixedScale
}

// CellState is the running state of one grid cell: a population counter,
// named sums, named counters, an optional distinct-entity set and the
// component-wise minimum of contributing coordinates.
type CellState struct {
	Population int64

	sums     map[string]Fixed
	counts   map[string]int64
	visitors map[int64]struct{}
	anchor   r2.Point
	anchored bool
}

// AddPopulation adds n to the population counter.
func (s *CellState) AddPopulation(n int64) {
	s.Population += n
}

// AddSum adds v to the named sum.
func (s *CellState) AddSum(name string, v float64) {
	if s.sums == nil {
		s.sums = make(map[string]Fixed)
	}
	s.sums[name] += ToFixed(v)
}

// Inc adds n to the named counter.
func (s *CellState) Inc(name string, n int64) {
	if s.counts == nil {
		s.counts = make(map[string]int64)
	}
	s.counts[name] += n
}

// AddVisitor records a distinct entity.
func (s *CellState) AddVisitor(id int64) {
	if s.visitors == nil {
		s.visitors = make(map[int64]struct{})
	}
	s.visitors[id] = struct{}{}
}

// Touch folds p into the representative coordinate.
func (s *CellState) Touch(p r2.Point) {
	if !s.anchored {
		s.anchor, s.anchored = p, true
		return
	}
	s.anchor = spatial.MinCorner(s.anchor, p)
}

// Sum returns the named sum.
func (s *CellState) Sum(name string) float64 {
	return s.sums[name].Float()
}

// Count returns the named counter.
func (s *CellState) Count(name string) int64 {
	return s.counts[name]
}

// Visitors returns the number of distinct entities recorded.
func (s *CellState) Visitors() int64 {
	return int64(len(s.visitors))
}

// Anchor returns the representative coordinate.
func (s *CellState) Anchor() r2.Point {
	return s.anchor
}

// Mean returns Sum(name)/Population, or 0 for an empty population.
func (s *CellState) Mean(name string) float64 {
	if s.Population == 0 {
		return 0
	}
	return s.sums[name].Float() / float64(s.Population)
}

// Fraction returns Count(name)/Population, or 0 for an empty population.
func (s *CellState) Fraction(name string) float64 {
	if s.Population == 0 {
		return 0
	}
	return float64(s.counts[name]) / float64(s.Population)
}

// Merge folds o into s.
func (s *CellState) Merge(o *CellState) {
	s.Population += o.Population
	for k, v := range o.sums {
		if s.sums == nil {
			s.sums = make(map[string]Fixed, len(o.sums))
		}
		s.sums[k] += v
	}
	for k, v := range o.counts {
		if s.counts == nil {
			s.counts = make(map[string]int64, len(o.counts))
		}
		s.counts[k] += v
	}
	for id := range o.visitors {
		s.AddVisitor(id)
	}
	if o.anchored {
		s.Touch(o.anchor)
	}
}

// Accumulator holds the cell states of one grid. A cell exists iff at
// least one record was folded into it.
type Accumulator struct {
	grid  spatial.GridIndex
	cells map[spatial.Cell]*CellState
}

// NewAccumulator returns an empty accumulator over grid.
func NewAccumulator(grid spatial.GridIndex) *Accumulator {
	return &Accumulator{grid: grid, cells: make(map[spatial.Cell]*CellState)}
}

// Grid returns the grid the accumulator bins into.
func (a *Accumulator) Grid() spatial.GridIndex {
	return a.grid
}

// Accumulate folds one record located at p into its cell.
func (a *Accumulator) Accumulate(p r2.Point, fold func(*CellState)) {
	cell := a.grid.CellOf(p)
	state, ok := a.cells[cell]
	if !ok {
		state = &CellState{}
		a.cells[cell] = state
	}
	state.Touch(p)
	fold(state)
}

// Merge folds every cell of o into a. Both must share a cell size.
func (a *Accumulator) Merge(o *Accumulator) error {
	if a.grid.Size() != o.grid.Size() {
		return fmt.Errorf("cannot merge accumulators with cell sizes %v and %v", a.grid.Size(), o.grid.Size())
	}
	for cell, st := range o.cells {
		if cur, ok := a.cells[cell]; ok {
			cur.Merge(st)
			continue
		}
		cp := &CellState{}
		cp.Merge(st)
		a.cells[cell] = cp
	}
	return nil
}

// Len returns the number of materialised cells.
func (a *Accumulator) Len() int {
	return len(a.cells)
}

// State returns the state of cell, or nil.
func (a *Accumulator) State(cell spatial.Cell) *CellState {
	return a.cells[cell]
}

// Keys returns the materialised cells in (X, Y) order.
func (a *Accumulator) Keys() []spatial.Cell {
	keys := make([]spatial.Cell, 0, len(a.cells))
	for k := range a.cells {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// Finalize maps every cell through fn in (X, Y) order.
func Finalize[T any](a *Accumulator, fn func(spatial.Cell, *CellState) T) []T {
	keys := a.Keys()
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, fn(k, a.cells[k]))
	}
	return out
}
