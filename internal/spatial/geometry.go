package spatial

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/hpdav/cityflow-backend-go/internal/models"
)

// BoundsOf returns the extent of points, or nil when there are none.
func BoundsOf(points []r2.Point) *models.Bounds {
	if len(points) == 0 {
		return nil
	}
	return FromRect(r2.RectFromPoints(points...))
}

// FromRect converts r; an empty rect yields nil.
func FromRect(r r2.Rect) *models.Bounds {
	if r.IsEmpty() {
		return nil
	}
	lo, hi := r.Lo(), r.Hi()
	return &models.Bounds{MinX: lo.X, MaxX: hi.X, MinY: lo.Y, MaxY: hi.Y}
}

// Distance is the planar distance between a and b.
func Distance(a, b r2.Point) float64 {
	return a.Sub(b).Norm()
}

// MinCorner returns the component-wise minimum of a and b. It is used as
// the representative coordinate of a cell because it does not depend on
// the order points were folded in.
func MinCorner(a, b r2.Point) r2.Point {
	return r2.Point{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)}
}
