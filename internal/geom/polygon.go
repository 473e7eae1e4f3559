package geom

import "math"

// Polygon is an open (non-closing) ring of 2D vertices.
type Polygon []Point2

// degenerateVertexEpsilon is the squared distance under which two clipped
// vertices collapse into one when counting effective vertices.
const degenerateVertexEpsilon = 1e-12

// SignedArea returns the shoelace area; positive for counter-clockwise rings.
func (p Polygon) SignedArea() float64 {
	n := len(p)
	if n < 3 {
		return 0
	}
	var sum float64
	j := n - 1
	for i := 0; i < n; i++ {
		sum += p[j].X*p[i].Y - p[i].X*p[j].Y
		j = i
	}
	return sum / 2
}

// Centroid returns the area centroid, falling back to the vertex mean for
// degenerate (near-zero-area) rings.
func (p Polygon) Centroid() Point2 {
	n := len(p)
	if n == 0 {
		return Point2{}
	}
	area := p.SignedArea()
	if math.Abs(area) < degenerateVertexEpsilon {
		var mx, my float64
		for _, v := range p {
			mx += v.X
			my += v.Y
		}
		return Point2{X: mx / float64(n), Y: my / float64(n)}
	}
	var cx, cy float64
	j := n - 1
	for i := 0; i < n; i++ {
		cross := p[j].X*p[i].Y - p[i].X*p[j].Y
		cx += (p[j].X + p[i].X) * cross
		cy += (p[j].Y + p[i].Y) * cross
		j = i
	}
	f := 1 / (6 * area)
	return Point2{X: cx * f, Y: cy * f}
}

// Contains tests point membership by ray casting.
func (p Polygon) Contains(pt Point2) bool {
	inside := false
	j := len(p) - 1
	for i := 0; i < len(p); i++ {
		xi, yi := p[i].X, p[i].Y
		xj, yj := p[j].X, p[j].Y
		if ((yi > pt.Y) != (yj > pt.Y)) &&
			(pt.X < (xj-xi)*(pt.Y-yi)/(yj-yi)+xi) {
			inside = !inside
		}
		j = i
	}
	return inside
}

// Bounds returns the axis-aligned bounding box of the ring.
func (p Polygon) Bounds() Bounds2 {
	if len(p) == 0 {
		return Bounds2{}
	}
	b := Bounds2{MinX: p[0].X, MinY: p[0].Y, MaxX: p[0].X, MaxY: p[0].Y}
	for _, v := range p[1:] {
		b.MinX = math.Min(b.MinX, v.X)
		b.MinY = math.Min(b.MinY, v.Y)
		b.MaxX = math.Max(b.MaxX, v.X)
		b.MaxY = math.Max(b.MaxY, v.Y)
	}
	return b
}

// Inset moves every vertex toward the centroid by margin scene units.
// Vertices closer to the centroid than the margin collapse onto it.
func (p Polygon) Inset(margin float64) Polygon {
	c := p.Centroid()
	out := make(Polygon, len(p))
	for i, v := range p {
		dx, dy := c.X-v.X, c.Y-v.Y
		d := math.Hypot(dx, dy)
		if d <= margin || d == 0 {
			out[i] = c
			continue
		}
		f := margin / d
		out[i] = Point2{X: v.X + dx*f, Y: v.Y + dy*f}
	}
	return out
}

// CounterClockwise returns the ring with positive winding.
func (p Polygon) CounterClockwise() Polygon {
	if p.SignedArea() >= 0 {
		return p
	}
	out := make(Polygon, len(p))
	for i, v := range p {
		out[len(p)-1-i] = v
	}
	return out
}

// EffectiveVertices counts vertices after collapsing consecutive
// near-coincident points. Clipping against a grid cell can emit rings whose
// vertices all coincide; those carry no area and are discarded by callers.
func (p Polygon) EffectiveVertices() int {
	if len(p) == 0 {
		return 0
	}
	count := 0
	prev := p[len(p)-1]
	for _, v := range p {
		dx, dy := v.X-prev.X, v.Y-prev.Y
		if dx*dx+dy*dy > degenerateVertexEpsilon {
			count++
		}
		prev = v
	}
	return count
}

// ClipConvex clips the subject ring against a convex clip ring using the
// Sutherland–Hodgman algorithm. The clip ring must be convex; winding of
// either ring does not matter. Returns nil when nothing remains.
func ClipConvex(subject, clip Polygon) Polygon {
	if len(subject) < 3 || len(clip) < 3 {
		return nil
	}
	clip = clip.CounterClockwise()
	out := subject
	for i := 0; i < len(clip) && len(out) > 0; i++ {
		a := clip[i]
		b := clip[(i+1)%len(clip)]
		out = clipEdge(out, a, b)
	}
	if len(out) < 3 {
		return nil
	}
	return out
}

// ClipHalfPlane cuts the ring with the infinite line through a and b, keeping
// the side that contains keep. Used to constrain a token border against a
// wall running beside it.
func ClipHalfPlane(subject Polygon, a, b, keep Point2) Polygon {
	side := cross2(a, b, keep)
	if side == 0 {
		return subject
	}
	if side < 0 {
		// Flip the edge so "inside" is always the positive side.
		a, b = b, a
	}
	out := clipEdge(subject, a, b)
	if len(out) < 3 {
		return nil
	}
	return out
}

// clipEdge keeps the part of the ring on the left of the directed edge a->b.
func clipEdge(subject Polygon, a, b Point2) Polygon {
	var out Polygon
	n := len(subject)
	for i := 0; i < n; i++ {
		cur := subject[i]
		prev := subject[(i+n-1)%n]
		curIn := cross2(a, b, cur) >= 0
		prevIn := cross2(a, b, prev) >= 0
		switch {
		case curIn && prevIn:
			out = append(out, cur)
		case curIn && !prevIn:
			out = append(out, lineIntersect(prev, cur, a, b), cur)
		case !curIn && prevIn:
			out = append(out, lineIntersect(prev, cur, a, b))
		}
	}
	return out
}

func cross2(a, b, p Point2) float64 {
	return (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
}

// lineIntersect returns the crossing of segment p-q with the infinite line
// a-b. Callers only invoke it when p and q straddle the line.
func lineIntersect(p, q, a, b Point2) Point2 {
	dp := cross2(a, b, p)
	dq := cross2(a, b, q)
	t := dp / (dp - dq)
	return Point2{X: p.X + t*(q.X-p.X), Y: p.Y + t*(q.Y-p.Y)}
}
