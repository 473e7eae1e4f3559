package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Quad is a planar convex quadrilateral in 3D, corners in winding order.
// The quads built by the scene model are rectangles (wall panels, tile
// surfaces, box faces), which satisfies both constraints by construction.
type Quad [4]Point

// HorizontalQuad builds a quad spanning [x0,x1]×[y0,y1] at elevation z.
func HorizontalQuad(x0, y0, x1, y1, z float64) Quad {
	return Quad{
		Pt(x0, y0, z),
		Pt(x1, y0, z),
		Pt(x1, y1, z),
		Pt(x0, y1, z),
	}
}

// VerticalQuad builds a quad over the 2D segment (x0,y0)-(x1,y1) spanning
// elevations [bottom, top].
func VerticalQuad(x0, y0, x1, y1, bottom, top float64) Quad {
	return Quad{
		Pt(x0, y0, bottom),
		Pt(x1, y1, bottom),
		Pt(x1, y1, top),
		Pt(x0, y0, top),
	}
}

// Center returns the average of the quad's corners.
func (q Quad) Center() Point {
	c := r3.Add(r3.Add(q[0], q[1]), r3.Add(q[2], q[3]))
	return r3.Scale(0.25, c)
}

// Normal returns the (unnormalised) plane normal of the quad.
func (q Quad) Normal() Point {
	e1 := r3.Sub(q[1], q[0])
	e2 := r3.Sub(q[3], q[0])
	return r3.Cross(e1, e2)
}

// IntersectSegmentQuad returns the parametric distance t along dir from p0 at
// which the segment p0..p0+dir crosses the quad, and whether it crosses at
// all. t is accepted within [-paramEpsilon, 1+paramEpsilon]. Coplanar and
// zero-length segments report no crossing.
func IntersectSegmentQuad(p0, dir Point, q Quad) (float64, bool) {
	n := q.Normal()
	denom := r3.Dot(n, dir)
	if math.Abs(denom) < planeEpsilon {
		return 0, false
	}

	t := r3.Dot(n, r3.Sub(q[0], p0)) / denom
	if t < -paramEpsilon || t > 1+paramEpsilon {
		return 0, false
	}

	hit := r3.Add(p0, r3.Scale(t, dir))
	if !pointInQuad(hit, q, n) {
		return 0, false
	}
	return t, true
}

// SegmentIntersectsQuad reports whether the segment p0-p1 crosses the quad.
func SegmentIntersectsQuad(p0, p1 Point, q Quad) bool {
	_, ok := IntersectSegmentQuad(p0, r3.Sub(p1, p0), q)
	return ok
}

// pointInQuad tests a point known to lie on the quad's plane against the
// quad's edges. For a convex quad the point is inside iff it sits on the
// inner side of every edge; the edge cross products all align with the plane
// normal in that case.
func pointInQuad(p Point, q Quad, n Point) bool {
	// Scale the tolerance with the quad so large scenes keep edge points in.
	tol := paramEpsilon * r3.Norm2(n)
	for i := 0; i < 4; i++ {
		edge := r3.Sub(q[(i+1)%4], q[i])
		rel := r3.Sub(p, q[i])
		if r3.Dot(n, r3.Cross(edge, rel)) < -tol {
			return false
		}
	}
	return true
}
