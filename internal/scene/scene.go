// Package scene models the static geometry the cover engine tests against:
// walls, alpha-mapped tiles and box-shaped tokens, held in a Scene with a
// bucketed spatial index and a constrained-border cache.
package scene

import (
	"image"
	"sync"

	"github.com/google/uuid"

	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/geom"
)

// Restriction distinguishes what a wall restricts. A wall carries an
// independent blocking flag per restriction.
type Restriction int

const (
	// Sight restriction is the default for cover tests.
	Sight Restriction = iota
	// Move restriction constrains token borders.
	Move
	// Light restriction.
	Light
	// Sound restriction.
	Sound
	restrictionCount
)

var restrictionNames = [restrictionCount]string{"sight", "move", "light", "sound"}

func (r Restriction) String() string {
	if r < 0 || r >= restrictionCount {
		return "unknown"
	}
	return restrictionNames[r]
}

// wallInfiniteZ stands in for a wall with no explicit vertical extent.
const wallInfiniteZ = 1e9

// Wall is a vertical blocking segment.
type Wall struct {
	ID      string
	X0, Y0  float64
	X1, Y1  float64
	BottomZ float64
	TopZ    float64
	// Blocking holds one flag per Restriction.
	Blocking [restrictionCount]bool
}

// NewWall builds a full-height wall blocking sight and movement.
func NewWall(x0, y0, x1, y1 float64) *Wall {
	w := &Wall{
		ID: uuid.New().String(),
		X0: x0, Y0: y0, X1: x1, Y1: y1,
		BottomZ: -wallInfiniteZ,
		TopZ:    wallInfiniteZ,
	}
	w.Blocking[Sight] = true
	w.Blocking[Move] = true
	return w
}

// Blocks reports whether the wall blocks the given restriction.
func (w *Wall) Blocks(r Restriction) bool {
	if r < 0 || r >= restrictionCount {
		return false
	}
	return w.Blocking[r]
}

// Quad returns the wall's panel for 3D intersection tests.
func (w *Wall) Quad() geom.Quad {
	return geom.VerticalQuad(w.X0, w.Y0, w.X1, w.Y1, w.BottomZ, w.TopZ)
}

// Bounds returns the wall's 2D bounding box.
func (w *Wall) Bounds() geom.Bounds2 {
	return geom.SegmentBounds2(geom.Pt(w.X0, w.Y0, 0), geom.Pt(w.X1, w.Y1, 0))
}

// Tile is a horizontal surface at a fixed elevation with an optional
// per-texel alpha map. A missing alpha map means the tile is fully opaque.
type Tile struct {
	ID         string
	X, Y, W, H float64
	Elevation  float64
	Alpha      *image.Alpha
}

// NewTile builds an opaque tile.
func NewTile(x, y, w, h, elevation float64) *Tile {
	return &Tile{ID: uuid.New().String(), X: x, Y: y, W: w, H: h, Elevation: elevation}
}

// Quad returns the tile surface for intersection tests.
func (t *Tile) Quad() geom.Quad {
	return geom.HorizontalQuad(t.X, t.Y, t.X+t.W, t.Y+t.H, t.Elevation)
}

// Bounds returns the tile's 2D bounding box.
func (t *Tile) Bounds() geom.Bounds2 {
	return geom.Bounds2{MinX: t.X, MinY: t.Y, MaxX: t.X + t.W, MaxY: t.Y + t.H}
}

// OpaqueAt samples the tile's alpha map at scene point (x, y) against the
// given threshold in [0,1]. Points outside the tile extent are transparent;
// tiles without an alpha map are opaque everywhere on their extent.
func (t *Tile) OpaqueAt(x, y, threshold float64) bool {
	if x < t.X || x > t.X+t.W || y < t.Y || y > t.Y+t.H {
		return false
	}
	if t.Alpha == nil {
		return true
	}
	b := t.Alpha.Bounds()
	// Map the scene point onto the alpha raster.
	px := b.Min.X + int((x-t.X)/t.W*float64(b.Dx()))
	py := b.Min.Y + int((y-t.Y)/t.H*float64(b.Dy()))
	px = clampInt(px, b.Min.X, b.Max.X-1)
	py = clampInt(py, b.Min.Y, b.Max.Y-1)
	a := t.Alpha.AlphaAt(px, py).A
	return float64(a)/255.0 >= threshold
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Token is a mobile box-shaped entity: a planar footprint swept over a
// vertical extent. Tokens both receive cover and occlude other tokens.
type Token struct {
	ID       string
	Name     string
	Shape    geom.Shape
	BottomZ  float64
	TopZ     float64
	Defeated bool
	Prone    bool
}

// NewToken builds a token over a rectangular footprint.
func NewToken(name string, footprint geom.Rect, bottomZ, topZ float64) *Token {
	return &Token{
		ID:      uuid.New().String(),
		Name:    name,
		Shape:   footprint,
		BottomZ: bottomZ,
		TopZ:    topZ,
	}
}

// Center returns the footprint center.
func (t *Token) Center() geom.Point2 {
	b := t.Shape.Bounds()
	return geom.Point2{X: (b.MinX + b.MaxX) / 2, Y: (b.MinY + b.MaxY) / 2}
}

// MeanZ returns the mid elevation of the token's vertical extent.
func (t *Token) MeanZ() float64 { return (t.BottomZ + t.TopZ) / 2 }

// SightZ returns the elevation a token sees from.
func (t *Token) SightZ() float64 { return t.TopZ }

// Height returns the vertical extent.
func (t *Token) Height() float64 { return t.TopZ - t.BottomZ }

// Bounds returns the footprint bounding box.
func (t *Token) Bounds() geom.Bounds2 { return t.Shape.Bounds() }

// Scene holds the world geometry. Mutations bump a revision counter that
// invalidates the spatial index and the constrained-border cache, so
// concurrent read-only calculations never observe stale geometry.
type Scene struct {
	ID   string
	Name string
	Grid geom.Grid

	mu      sync.Mutex
	rev     uint64
	walls   []*Wall
	tiles   []*Tile
	tokens  []*Token
	index   *bucketIndex
	borders map[string]cachedBorder
}

type cachedBorder struct {
	rev  uint64
	ring geom.Polygon
}

// New creates an empty scene with the given grid.
func New(name string, grid geom.Grid) *Scene {
	return &Scene{
		ID:      uuid.New().String(),
		Name:    name,
		Grid:    grid,
		borders: make(map[string]cachedBorder),
	}
}

// AddWall inserts a wall and invalidates derived geometry.
func (s *Scene) AddWall(w *Wall) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.walls = append(s.walls, w)
	s.bumpLocked()
}

// AddTile inserts a tile and invalidates derived geometry.
func (s *Scene) AddTile(t *Tile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiles = append(s.tiles, t)
	s.bumpLocked()
}

// AddToken inserts a token and invalidates derived geometry.
func (s *Scene) AddToken(t *Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = append(s.tokens, t)
	s.bumpLocked()
}

// RemoveToken removes the token with the given ID, if present.
func (s *Scene) RemoveToken(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tokens {
		if t.ID == id {
			s.tokens = append(s.tokens[:i], s.tokens[i+1:]...)
			s.bumpLocked()
			return
		}
	}
}

func (s *Scene) bumpLocked() {
	s.rev++
	s.index = nil
	clear(s.borders)
}

// Token returns the token with the given ID, or nil.
func (s *Scene) Token(id string) *Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Tokens returns a snapshot of all tokens.
func (s *Scene) Tokens() []*Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Token, len(s.tokens))
	copy(out, s.tokens)
	return out
}

// Walls returns a snapshot of all walls.
func (s *Scene) Walls() []*Wall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Wall, len(s.walls))
	copy(out, s.walls)
	return out
}

// Tiles returns a snapshot of all tiles.
func (s *Scene) Tiles() []*Tile {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Tile, len(s.tiles))
	copy(out, s.tiles)
	return out
}

// WallsNear returns candidate walls whose bounds overlap b. May include
// false positives; the caller runs the exact segment test.
func (s *Scene) WallsNear(b geom.Bounds2) []*Wall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexLocked().wallsNear(b)
}

// TilesNear returns candidate tiles whose bounds overlap b.
func (s *Scene) TilesNear(b geom.Bounds2) []*Tile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexLocked().tilesNear(b)
}

// TokensNear returns candidate tokens whose bounds overlap b.
func (s *Scene) TokensNear(b geom.Bounds2) []*Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexLocked().tokensNear(b)
}

func (s *Scene) indexLocked() *bucketIndex {
	if s.index == nil {
		s.index = buildIndex(s.walls, s.tiles, s.tokens, s.Grid.Size)
	}
	return s.index
}

// ConstrainedBorder returns the token's footprint ring clipped against
// surrounding movement-blocking walls. Results are cached per token until
// the scene geometry changes.
func (s *Scene) ConstrainedBorder(t *Token) geom.Polygon {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.borders[t.ID]; ok && cached.rev == s.rev {
		return cached.ring
	}

	ring := t.Shape.Ring().CounterClockwise()
	center := t.Center()
	near := s.indexLocked().wallsNear(t.Bounds().Expand(1))
	for _, w := range near {
		if !w.Blocks(Move) {
			continue
		}
		// Only walls that actually cross the footprint bounds can cut it.
		if !w.Bounds().Overlaps(t.Bounds()) {
			continue
		}
		cut := geom.ClipHalfPlane(ring,
			geom.Point2{X: w.X0, Y: w.Y0},
			geom.Point2{X: w.X1, Y: w.Y1},
			center)
		if cut != nil {
			ring = cut
		}
	}

	s.borders[t.ID] = cachedBorder{rev: s.rev, ring: ring}
	return ring
}

// Revision returns the current geometry revision, monotonically increasing
// with every mutation.
func (s *Scene) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rev
}
