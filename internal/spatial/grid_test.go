package spatial

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/hpdav/cityflow-backend-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGridIndexRejectsInvalidSize(t *testing.T) {
	for _, size := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := NewGridIndex(size)
		require.Error(t, err, "size %v", size)
		assert.True(t, errors.Is(err, models.ErrInvalidParameter))
	}
}

func TestCellOf(t *testing.T) {
	tests := []struct {
		name string
		x, y float64
		size float64
		want Cell
	}{
		{"origin", 0, 0, 500, Cell{0, 0}},
		{"inside first cell", 499.9, 10, 500, Cell{0, 0}},
		{"on boundary", 500, 10, 500, Cell{1, 0}},
		{"negative floors down", -0.5, -500, 500, Cell{-1, -1}},
		{"fractional size", 1, 1, 0.5, Cell{2, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CellOf(tt.x, tt.y, tt.size)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCellOfIsPure(t *testing.T) {
	g, err := NewGridIndex(300)
	require.NoError(t, err)

	pts := []r2.Point{{X: 12, Y: 7000}, {X: -4, Y: 299}, {X: 600, Y: 601}}
	first := make([]Cell, len(pts))
	for i, p := range pts {
		first[i] = g.CellOf(p)
	}
	for i := len(pts) - 1; i >= 0; i-- {
		assert.Equal(t, first[i], g.CellOf(pts[i]))
	}
}

func TestCentroid(t *testing.T) {
	g, err := NewGridIndex(300)
	require.NoError(t, err)

	c := g.CellOf(r2.Point{X: 650, Y: 10})
	assert.Equal(t, Cell{2, 0}, c)
	assert.Equal(t, r2.Point{X: 750, Y: 150}, g.Centroid(c))
	assert.Equal(t, c, g.CellOf(g.Centroid(c)))
}

func TestCellOrdering(t *testing.T) {
	assert.True(t, Cell{0, 5}.Less(Cell{1, 0}))
	assert.True(t, Cell{1, 0}.Less(Cell{1, 2}))
	assert.False(t, Cell{1, 2}.Less(Cell{1, 2}))
	assert.Equal(t, "(1,-2)", Cell{1, -2}.String())
}

func TestBoundsOf(t *testing.T) {
	assert.Nil(t, BoundsOf(nil))

	b := BoundsOf([]r2.Point{{X: 5, Y: -1}, {X: -3, Y: 8}, {X: 2, Y: 2}})
	require.NotNil(t, b)
	assert.Equal(t, models.Bounds{MinX: -3, MaxX: 5, MinY: -1, MaxY: 8}, *b)
}

func TestMinCornerAndDistance(t *testing.T) {
	assert.Equal(t, r2.Point{X: 1, Y: 2}, MinCorner(r2.Point{X: 1, Y: 9}, r2.Point{X: 4, Y: 2}))
	assert.InDelta(t, 5.0, Distance(r2.Point{}, r2.Point{X: 3, Y: 4}), 1e-9)
}
