package geom

// Shape is a planar token footprint: an axis-aligned rectangle or an
// arbitrary polygon. Sample-point generation and grid partitioning only need
// the ring, the bounds and a corner enumeration.
type Shape interface {
	// Ring returns the footprint outline as an open polygon.
	Ring() Polygon
	// Bounds returns the footprint's axis-aligned bounding box.
	Bounds() Bounds2
	// SamplePoints returns the footprint's corner sample points at the given
	// elevation, inset so lines to an exactly-adjacent wall register a
	// collision instead of grazing it.
	SamplePoints(elevation float64) []Point
}

// rectCornerInset is how far rectangle corners are pulled in before sampling.
// One scene unit guarantees a wall flush with the rectangle edge still blocks
// the corner ray.
const rectCornerInset = 1.0

// polygonInsetFraction scales the inset for polygon footprints by the
// smaller bounding-box dimension.
const polygonInsetFraction = 0.01

// Rect is an axis-aligned rectangular footprint.
type Rect struct {
	X, Y, W, H float64
}

// Ring returns the rectangle outline counter-clockwise.
func (r Rect) Ring() Polygon {
	return Polygon{
		{X: r.X, Y: r.Y},
		{X: r.X + r.W, Y: r.Y},
		{X: r.X + r.W, Y: r.Y + r.H},
		{X: r.X, Y: r.Y + r.H},
	}
}

// Bounds returns the rectangle itself as bounds.
func (r Rect) Bounds() Bounds2 {
	return Bounds2{MinX: r.X, MinY: r.Y, MaxX: r.X + r.W, MaxY: r.Y + r.H}
}

// Center returns the rectangle's center point.
func (r Rect) Center() Point2 {
	return Point2{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// SamplePoints returns the four corners inset by one unit. A rectangle
// narrower than two units collapses toward its center rather than inverting.
func (r Rect) SamplePoints(elevation float64) []Point {
	inset := rectCornerInset
	if half := min(r.W, r.H) / 2; half < inset {
		inset = half
	}
	x0, y0 := r.X+inset, r.Y+inset
	x1, y1 := r.X+r.W-inset, r.Y+r.H-inset
	return []Point{
		Pt(x0, y0, elevation),
		Pt(x1, y0, elevation),
		Pt(x1, y1, elevation),
		Pt(x0, y1, elevation),
	}
}

// PolygonShape is an arbitrary polygonal footprint.
type PolygonShape struct {
	Points Polygon
}

// Ring returns the polygon outline.
func (p PolygonShape) Ring() Polygon { return p.Points }

// Bounds returns the polygon's bounding box.
func (p PolygonShape) Bounds() Bounds2 { return p.Points.Bounds() }

// SamplePoints enumerates the polygon's vertices (open ring, the closing
// vertex is not repeated), inset by a margin scaled to the footprint size.
func (p PolygonShape) SamplePoints(elevation float64) []Point {
	b := p.Points.Bounds()
	margin := polygonInsetFraction * min(b.Width(), b.Height())
	ring := p.Points.Inset(margin)
	out := make([]Point, len(ring))
	for i, v := range ring {
		out[i] = Pt(v.X, v.Y, elevation)
	}
	return out
}
