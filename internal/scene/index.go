package scene

import (
	"math"

	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/geom"
)

// defaultBucketSize sizes index buckets on gridless scenes.
const defaultBucketSize = 100.0

// bucketIndex is a uniform-grid spatial index over 2D bounding boxes.
// Queries return candidates only; exact geometry tests are the caller's
// responsibility, so false positives are fine and entries are stored in
// every bucket their bounds touch.
type bucketIndex struct {
	size   float64
	walls  map[bucketKey][]*Wall
	tiles  map[bucketKey][]*Tile
	tokens map[bucketKey][]*Token
}

type bucketKey struct{ I, J int }

func buildIndex(walls []*Wall, tiles []*Tile, tokens []*Token, gridSize float64) *bucketIndex {
	size := gridSize
	if size <= 0 {
		size = defaultBucketSize
	}
	idx := &bucketIndex{
		size:   size,
		walls:  make(map[bucketKey][]*Wall),
		tiles:  make(map[bucketKey][]*Tile),
		tokens: make(map[bucketKey][]*Token),
	}
	for _, w := range walls {
		for _, k := range idx.keysFor(w.Bounds()) {
			idx.walls[k] = append(idx.walls[k], w)
		}
	}
	for _, t := range tiles {
		for _, k := range idx.keysFor(t.Bounds()) {
			idx.tiles[k] = append(idx.tiles[k], t)
		}
	}
	for _, t := range tokens {
		for _, k := range idx.keysFor(t.Bounds()) {
			idx.tokens[k] = append(idx.tokens[k], t)
		}
	}
	return idx
}

func (idx *bucketIndex) keysFor(b geom.Bounds2) []bucketKey {
	i0 := int(math.Floor(b.MinX / idx.size))
	j0 := int(math.Floor(b.MinY / idx.size))
	i1 := int(math.Floor(b.MaxX / idx.size))
	j1 := int(math.Floor(b.MaxY / idx.size))
	keys := make([]bucketKey, 0, (i1-i0+1)*(j1-j0+1))
	for j := j0; j <= j1; j++ {
		for i := i0; i <= i1; i++ {
			keys = append(keys, bucketKey{I: i, J: j})
		}
	}
	return keys
}

func (idx *bucketIndex) wallsNear(b geom.Bounds2) []*Wall {
	var out []*Wall
	seen := make(map[*Wall]struct{})
	for _, k := range idx.keysFor(b) {
		for _, w := range idx.walls[k] {
			if _, dup := seen[w]; dup {
				continue
			}
			seen[w] = struct{}{}
			if w.Bounds().Overlaps(b) {
				out = append(out, w)
			}
		}
	}
	return out
}

func (idx *bucketIndex) tilesNear(b geom.Bounds2) []*Tile {
	var out []*Tile
	seen := make(map[*Tile]struct{})
	for _, k := range idx.keysFor(b) {
		for _, t := range idx.tiles[k] {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			if t.Bounds().Overlaps(b) {
				out = append(out, t)
			}
		}
	}
	return out
}

func (idx *bucketIndex) tokensNear(b geom.Bounds2) []*Token {
	var out []*Token
	seen := make(map[*Token]struct{})
	for _, k := range idx.keysFor(b) {
		for _, t := range idx.tokens[k] {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			if t.Bounds().Overlaps(b) {
				out = append(out, t)
			}
		}
	}
	return out
}
