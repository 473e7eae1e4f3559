package cover

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/geom"
	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/scene"
)

// tileAlphaThreshold is the opacity a tile texel must reach to block a ray.
// High so that nearly-transparent texels inside a tile's bounding box never
// count as cover.
const tileAlphaThreshold = 0.99

// wallBlocks reports whether any blocking wall crosses the segment vp-tp.
// Candidates come from the spatial index ("any" semantics: first hit wins).
func (c *Calculator) wallBlocks(vp, tp geom.Point) bool {
	if !c.cfg.WallsBlock {
		return false
	}
	lo, hi := minMax(vp.Z, tp.Z)
	for _, w := range c.scene.WallsNear(geom.SegmentBounds2(vp, tp)) {
		if !w.Blocks(c.cfg.Restriction) {
			continue
		}
		if w.TopZ < lo || w.BottomZ > hi {
			continue
		}
		if geom.SegmentIntersectsQuad(vp, tp, w.Quad()) {
			return true
		}
	}
	return false
}

// tileBlocks reports whether any opaque tile crosses the segment vp-tp.
// A tile whose elevation lies strictly outside the segment's z band is
// skipped; a geometric hit only blocks if the alpha sample at the crossing
// point is opaque.
func (c *Calculator) tileBlocks(vp, tp geom.Point) bool {
	if !c.cfg.TilesBlock {
		return false
	}
	lo, hi := minMax(vp.Z, tp.Z)
	dir := r3.Sub(tp, vp)
	for _, t := range c.scene.TilesNear(geom.SegmentBounds2(vp, tp)) {
		if t.Elevation < lo || t.Elevation > hi {
			continue
		}
		tt, ok := geom.IntersectSegmentQuad(vp, dir, t.Quad())
		if !ok {
			continue
		}
		hit := r3.Add(vp, r3.Scale(tt, dir))
		if t.OpaqueAt(hit.X, hit.Y, tileAlphaThreshold) {
			return true
		}
	}
	return false
}

// tokenBlocks reports whether any other token's box occludes the segment
// vp-tp. The viewer and target themselves never count. Defeated and prone
// blockers are represented at half height.
func (c *Calculator) tokenBlocks(vp, tp geom.Point, viewer, target *scene.Token) bool {
	if !c.cfg.tokensBlock() {
		return false
	}
	for _, tok := range c.scene.TokensNear(geom.SegmentBounds2(vp, tp)) {
		if tok.ID == viewer.ID || tok.ID == target.ID {
			continue
		}
		if tok.Defeated && !c.cfg.DeadTokensBlock {
			continue
		}
		if !tok.Defeated && !c.cfg.LiveTokensBlock {
			continue
		}
		if tok.Prone && !c.cfg.ProneTokensBlock {
			continue
		}
		for _, face := range viewableFaces(tok, vp, tok.Defeated || tok.Prone) {
			if geom.SegmentIntersectsQuad(vp, tp, face) {
				return true
			}
		}
	}
	return false
}

// viewableFaces returns the faces of the token's box oriented toward the
// viewer point (back faces culled). halfHeight halves the box's vertical
// extent for defeated or prone tokens.
func viewableFaces(tok *scene.Token, viewer geom.Point, halfHeight bool) []geom.Quad {
	b := tok.Bounds()
	bottom, top := tok.BottomZ, tok.TopZ
	if halfHeight {
		top = bottom + (top-bottom)/2
	}

	faces := []geom.Quad{
		// -X and +X side panels.
		{geom.Pt(b.MinX, b.MinY, bottom), geom.Pt(b.MinX, b.MaxY, bottom), geom.Pt(b.MinX, b.MaxY, top), geom.Pt(b.MinX, b.MinY, top)},
		{geom.Pt(b.MaxX, b.MinY, bottom), geom.Pt(b.MaxX, b.MaxY, bottom), geom.Pt(b.MaxX, b.MaxY, top), geom.Pt(b.MaxX, b.MinY, top)},
		// -Y and +Y side panels.
		{geom.Pt(b.MinX, b.MinY, bottom), geom.Pt(b.MaxX, b.MinY, bottom), geom.Pt(b.MaxX, b.MinY, top), geom.Pt(b.MinX, b.MinY, top)},
		{geom.Pt(b.MinX, b.MaxY, bottom), geom.Pt(b.MaxX, b.MaxY, bottom), geom.Pt(b.MaxX, b.MaxY, top), geom.Pt(b.MinX, b.MaxY, top)},
		// Bottom and top caps.
		geom.HorizontalQuad(b.MinX, b.MinY, b.MaxX, b.MaxY, bottom),
		geom.HorizontalQuad(b.MinX, b.MinY, b.MaxX, b.MaxY, top),
	}
	outward := []geom.Point{
		geom.Pt(-1, 0, 0), geom.Pt(1, 0, 0),
		geom.Pt(0, -1, 0), geom.Pt(0, 1, 0),
		geom.Pt(0, 0, -1), geom.Pt(0, 0, 1),
	}

	var out []geom.Quad
	for i, f := range faces {
		// Face faces the viewer when the outward normal points toward it.
		if r3.Dot(outward[i], r3.Sub(viewer, f.Center())) > 0 {
			out = append(out, f)
		}
	}
	return out
}

func minMax(a, b float64) (float64, float64) {
	if a < b {
		return a, b
	}
	return b, a
}
