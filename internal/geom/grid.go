package geom

import "math"

// GridType identifies the scene's tessellation.
type GridType int

const (
	// Gridless scenes have no discrete cells; grid-based sample strategies
	// are a configuration error on such scenes.
	Gridless GridType = iota
	// SquareGrid tessellates the scene into size×size squares.
	SquareGrid
	// HexRowsGrid tessellates into pointy-top hexes laid out in rows.
	HexRowsGrid
	// HexColumnsGrid tessellates into flat-top hexes laid out in columns.
	HexColumnsGrid
)

// Grid describes a scene tessellation.
type Grid struct {
	Type GridType
	// Size is the cell pitch in scene units: square edge length, or the
	// flat-to-flat distance of a hex.
	Size float64
}

// Discrete reports whether the grid has cells to partition against.
func (g Grid) Discrete() bool { return g.Type != Gridless && g.Size > 0 }

// CellsOver returns the convex cell polygons whose bounds overlap b.
// The caller clips them against the footprint it is partitioning; cells
// only touching b may therefore clip to nothing.
func (g Grid) CellsOver(b Bounds2) []Polygon {
	switch g.Type {
	case SquareGrid:
		return squareCellsOver(b, g.Size)
	case HexRowsGrid:
		return hexCellsOver(b, g.Size, false)
	case HexColumnsGrid:
		return hexCellsOver(b, g.Size, true)
	default:
		return nil
	}
}

func squareCellsOver(b Bounds2, size float64) []Polygon {
	i0 := int(math.Floor(b.MinX / size))
	j0 := int(math.Floor(b.MinY / size))
	i1 := int(math.Ceil(b.MaxX / size))
	j1 := int(math.Ceil(b.MaxY / size))

	var cells []Polygon
	for j := j0; j < j1; j++ {
		for i := i0; i < i1; i++ {
			x, y := float64(i)*size, float64(j)*size
			cells = append(cells, Polygon{
				{X: x, Y: y},
				{X: x + size, Y: y},
				{X: x + size, Y: y + size},
				{X: x, Y: y + size},
			})
		}
	}
	return cells
}

// hexCellsOver enumerates hex cells around b. Size is the flat-to-flat
// distance, so the circumradius is size/√3. Pointy-top hexes advance rows by
// 1.5R with odd rows offset half a cell; flat-top is the transpose.
func hexCellsOver(b Bounds2, size float64, columns bool) []Polygon {
	r := size / math.Sqrt(3)
	var cells []Polygon

	if !columns {
		colPitch := size
		rowPitch := 1.5 * r
		j0 := int(math.Floor(b.MinY/rowPitch)) - 1
		j1 := int(math.Ceil(b.MaxY/rowPitch)) + 1
		for j := j0; j <= j1; j++ {
			offset := 0.0
			if j&1 != 0 {
				offset = colPitch / 2
			}
			i0 := int(math.Floor((b.MinX-offset)/colPitch)) - 1
			i1 := int(math.Ceil((b.MaxX-offset)/colPitch)) + 1
			for i := i0; i <= i1; i++ {
				cx := float64(i)*colPitch + offset
				cy := float64(j) * rowPitch
				cells = append(cells, hexRing(cx, cy, r, math.Pi/6))
			}
		}
		return cells
	}

	colPitch := 1.5 * r
	rowPitch := size
	i0 := int(math.Floor(b.MinX/colPitch)) - 1
	i1 := int(math.Ceil(b.MaxX/colPitch)) + 1
	for i := i0; i <= i1; i++ {
		offset := 0.0
		if i&1 != 0 {
			offset = rowPitch / 2
		}
		j0 := int(math.Floor((b.MinY-offset)/rowPitch)) - 1
		j1 := int(math.Ceil((b.MaxY-offset)/rowPitch)) + 1
		for j := j0; j <= j1; j++ {
			cx := float64(i) * colPitch
			cy := float64(j)*rowPitch + offset
			cells = append(cells, hexRing(cx, cy, r, 0))
		}
	}
	return cells
}

// hexRing builds a regular hexagon of circumradius r around (cx, cy), with
// the first vertex at the given phase angle.
func hexRing(cx, cy, r, phase float64) Polygon {
	ring := make(Polygon, 6)
	for k := 0; k < 6; k++ {
		a := phase + float64(k)*math.Pi/3
		ring[k] = Point2{X: cx + r*math.Cos(a), Y: cy + r*math.Sin(a)}
	}
	return ring
}
