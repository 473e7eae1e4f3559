package cover

import (
	"errors"

	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/geom"
	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/scene"
)

// ErrGridless is returned when a grid-based strategy runs on a scene without
// a discrete grid. Callers must check the grid type first; this is a
// configuration error, not a geometric one.
var ErrGridless = errors.New("cover: grid strategy on gridless scene")

// viewerCenterPoint is the viewer's footprint center at sight-line height.
func viewerCenterPoint(t *scene.Token) geom.Point {
	c := t.Center()
	return geom.Pt(c.X, c.Y, t.SightZ())
}

// targetCenterPoint is the target's footprint center at mean elevation.
func targetCenterPoint(t *scene.Token) geom.Point {
	c := t.Center()
	return geom.Pt(c.X, c.Y, t.MeanZ())
}

// borderPoints returns the corner sample points of the token's constrained
// border at the given elevation. Always non-empty: a border degenerate
// beyond sampling falls back to the token center.
func (c *Calculator) borderPoints(t *scene.Token, elevation float64) []geom.Point {
	ring := c.scene.ConstrainedBorder(t)
	var pts []geom.Point
	if ring.EffectiveVertices() >= 3 {
		if r, ok := t.Shape.(geom.Rect); ok && ringEqualsRect(ring, r) {
			// An unconstrained rectangle keeps the rectangle inset rule.
			pts = r.SamplePoints(elevation)
		} else {
			pts = geom.PolygonShape{Points: ring}.SamplePoints(elevation)
		}
	}
	if len(pts) == 0 {
		center := t.Center()
		pts = []geom.Point{geom.Pt(center.X, center.Y, elevation)}
	}
	return pts
}

func ringEqualsRect(ring geom.Polygon, r geom.Rect) bool {
	want := r.Ring()
	if len(ring) != len(want) {
		return false
	}
	// The clip can rotate the ring; compare as a set.
	for _, v := range want {
		found := false
		for _, u := range ring {
			if u == v {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// gridCellShapesUnder partitions the token's footprint into per-grid-cell
// shapes clipped against its constrained border, discarding degenerate
// results (fewer than three effective vertices).
func (c *Calculator) gridCellShapesUnder(t *scene.Token) ([]geom.Polygon, error) {
	if !c.scene.Grid.Discrete() {
		return nil, ErrGridless
	}
	border := c.scene.ConstrainedBorder(t)
	var shapes []geom.Polygon
	for _, cell := range c.scene.Grid.CellsOver(border.Bounds()) {
		clipped := geom.ClipConvex(border, cell)
		if clipped == nil || clipped.EffectiveVertices() < 3 {
			continue
		}
		shapes = append(shapes, clipped)
	}
	return shapes, nil
}

// gridCornerSets returns, per grid cell under the token, the cell shape's
// corner points at the token's mean elevation.
func (c *Calculator) gridCornerSets(t *scene.Token) ([][]geom.Point, error) {
	shapes, err := c.gridCellShapesUnder(t)
	if err != nil {
		return nil, err
	}
	sets := make([][]geom.Point, 0, len(shapes))
	for _, ring := range shapes {
		pts := geom.PolygonShape{Points: ring}.SamplePoints(t.MeanZ())
		if len(pts) == 0 {
			continue
		}
		sets = append(sets, pts)
	}
	return sets, nil
}

// cubePoints returns the token's border corners at both bottom and top
// elevation as one sample set. The caller handles the zero-height fallback.
func (c *Calculator) cubePoints(t *scene.Token) []geom.Point {
	pts := c.borderPoints(t, t.BottomZ)
	return append(pts, c.borderPoints(t, t.TopZ)...)
}
