// Package geom provides the 3D and 2D geometric primitives used by the cover
// engine: parametric segment/quad intersection, polygon clipping, footprint
// shapes and grid tessellation.
//
// 3D points are gonum r3 vectors; all arithmetic is by value, so callers can
// treat points as immutable.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Point is a 3D point or vector in scene units.
type Point = r3.Vec

// paramEpsilon widens the accepted parametric range of a segment/quad crossing
// to [-paramEpsilon, 1+paramEpsilon]. Absorbs floating error when a segment
// endpoint sits exactly on a quad. Empirical; changing it shifts behaviour at
// exact-edge geometry.
const paramEpsilon = 1e-8

// planeEpsilon is the minimum |normal · direction| for a segment to count as
// crossing a plane. Below this the segment is treated as coplanar and the
// intersection reports no crossing.
const planeEpsilon = 1e-12

// Pt is shorthand for constructing a Point.
func Pt(x, y, z float64) Point { return Point{X: x, Y: y, Z: z} }

// Point2 is a 2D point in scene units.
type Point2 struct {
	X, Y float64
}

// Bounds2 is an axis-aligned 2D bounding box.
type Bounds2 struct {
	MinX, MinY, MaxX, MaxY float64
}

// SegmentBounds2 returns the 2D bounding box of the segment a-b.
func SegmentBounds2(a, b Point) Bounds2 {
	return Bounds2{
		MinX: math.Min(a.X, b.X),
		MinY: math.Min(a.Y, b.Y),
		MaxX: math.Max(a.X, b.X),
		MaxY: math.Max(a.Y, b.Y),
	}
}

// Overlaps reports whether two bounds share any area (touching counts).
func (b Bounds2) Overlaps(o Bounds2) bool {
	return b.MinX <= o.MaxX && o.MinX <= b.MaxX &&
		b.MinY <= o.MaxY && o.MinY <= b.MaxY
}

// Expand grows the bounds by m on every side.
func (b Bounds2) Expand(m float64) Bounds2 {
	return Bounds2{MinX: b.MinX - m, MinY: b.MinY - m, MaxX: b.MaxX + m, MaxY: b.MaxY + m}
}

// Width returns the X extent of the bounds.
func (b Bounds2) Width() float64 { return b.MaxX - b.MinX }

// Height returns the Y extent of the bounds.
func (b Bounds2) Height() float64 { return b.MaxY - b.MinY }
