package spatial

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/hpdav/cityflow-backend-go/internal/models"
)

// Cell identifies one square bucket of a grid.
type Cell struct {
	X int64 `json:"grid_x"`
	Y int64 `json:"grid_y"`
}

// Less orders cells by X then Y.
func (c Cell) Less(o Cell) bool {
	if c.X != o.X {
		return c.X < o.X
	}
	return c.Y < o.Y
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// GridIndex bins planar coordinates into square cells of a fixed size.
// The zero value is not usable; construct with NewGridIndex.
type GridIndex struct {
	size float64
}

// NewGridIndex validates size and returns an index for it.
func NewGridIndex(size float64) (GridIndex, error) {
	if math.IsNaN(size) || math.IsInf(size, 0) || size <= 0 {
		return GridIndex{}, models.InvalidParameter("grid_size", "must be a positive number, got %v", size)
	}
	return GridIndex{size: size}, nil
}

// CellOf is the functional form of GridIndex.CellOf.
func CellOf(x, y, size float64) (Cell, error) {
	g, err := NewGridIndex(size)
	if err != nil {
		return Cell{}, err
	}
	return g.CellOf(r2.Point{X: x, Y: y}), nil
}

// Size returns the cell edge length.
func (g GridIndex) Size() float64 {
	return g.size
}

// CellOf returns (floor(x/size), floor(y/size)).
func (g GridIndex) CellOf(p r2.Point) Cell {
	return Cell{
		X: int64(math.Floor(p.X / g.size)),
		Y: int64(math.Floor(p.Y / g.size)),
	}
}

// Centroid returns the centre of c: floor(v/size)*size + size/2 per axis.
func (g GridIndex) Centroid(c Cell) r2.Point {
	return r2.Point{
		X: float64(c.X)*g.size + g.size/2,
		Y: float64(c.Y)*g.size + g.size/2,
	}
}

