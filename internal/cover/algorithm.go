package cover

import (
	"fmt"

	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/scene"
)

// Algorithm selects one of the nine cover strategies.
type Algorithm int

const (
	// CenterCenter tests the single ray between the two centers.
	CenterCenter Algorithm = iota
	// CenterCorners tests viewer center against target border corners.
	CenterCorners
	// CornerCorners tests each viewer border corner against target corners.
	CornerCorners
	// CenterGridCorners tests viewer center against the corners of each grid
	// cell under the target.
	CenterGridCorners
	// CornerGridCorners tests each viewer corner against each grid cell.
	CornerGridCorners
	// CenterCube tests viewer center against target corners at both top and
	// bottom elevation; falls back to CenterCorners for flat targets.
	CenterCube
	// CubeCube tests each viewer corner against the target cube; falls back
	// to CornerCorners for flat targets.
	CubeCube
	// Area2D delegates to the area-ratio collaborator in 2D mode.
	Area2D
	// Area3D delegates to the area-ratio collaborator in projected 3D mode.
	Area3D
	algorithmCount
)

var algorithmNames = [algorithmCount]string{
	"center-center",
	"center-corners",
	"corner-corners",
	"center-grid-corners",
	"corner-grid-corners",
	"center-cube",
	"cube-cube",
	"area-2d",
	"area-3d",
}

func (a Algorithm) String() string {
	if a < 0 || a >= algorithmCount {
		return "unknown"
	}
	return algorithmNames[a]
}

// ParseAlgorithm maps a strategy name to its Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	for i, n := range algorithmNames {
		if n == s {
			return Algorithm(i), nil
		}
	}
	return 0, fmt.Errorf("unknown cover algorithm %q", s)
}

// strategyFunc computes a cover category for one viewer/target pair.
type strategyFunc func(c *Calculator, viewer, target *scene.Token) (Category, error)

// strategies is the dispatch table. Each entry builds its viewer points and
// target point sets and hands them to the shared reduction, keeping every
// strategy independently testable.
var strategies = [algorithmCount]strategyFunc{
	CenterCenter:      strategyCenterCenter,
	CenterCorners:     strategyCenterCorners,
	CornerCorners:     strategyCornerCorners,
	CenterGridCorners: strategyCenterGridCorners,
	CornerGridCorners: strategyCornerGridCorners,
	CenterCube:        strategyCenterCube,
	CubeCube:          strategyCubeCube,
	Area2D:            strategyArea2D,
	Area3D:            strategyArea3D,
}

func strategyCenterCenter(c *Calculator, viewer, target *scene.Token) (Category, error) {
	vp := viewerCenterPoint(viewer)
	return c.minCoverAcross(viewer, target,
		[]point{vp}, [][]point{{targetCenterPoint(target)}}), nil
}

func strategyCenterCorners(c *Calculator, viewer, target *scene.Token) (Category, error) {
	vp := viewerCenterPoint(viewer)
	return c.minCoverAcross(viewer, target,
		[]point{vp}, [][]point{c.borderPoints(target, target.MeanZ())}), nil
}

func strategyCornerCorners(c *Calculator, viewer, target *scene.Token) (Category, error) {
	return c.minCoverAcross(viewer, target,
		c.borderPoints(viewer, viewer.SightZ()),
		[][]point{c.borderPoints(target, target.MeanZ())}), nil
}

func strategyCenterGridCorners(c *Calculator, viewer, target *scene.Token) (Category, error) {
	sets, err := c.gridCornerSets(target)
	if err != nil {
		return None, err
	}
	vp := viewerCenterPoint(viewer)
	return c.minCoverAcross(viewer, target, []point{vp}, sets), nil
}

func strategyCornerGridCorners(c *Calculator, viewer, target *scene.Token) (Category, error) {
	sets, err := c.gridCornerSets(target)
	if err != nil {
		return None, err
	}
	return c.minCoverAcross(viewer, target,
		c.borderPoints(viewer, viewer.SightZ()), sets), nil
}

func strategyCenterCube(c *Calculator, viewer, target *scene.Token) (Category, error) {
	if target.Height() == 0 {
		return strategyCenterCorners(c, viewer, target)
	}
	vp := viewerCenterPoint(viewer)
	return c.minCoverAcross(viewer, target,
		[]point{vp}, [][]point{c.cubePoints(target)}), nil
}

func strategyCubeCube(c *Calculator, viewer, target *scene.Token) (Category, error) {
	if target.Height() == 0 {
		return strategyCornerCorners(c, viewer, target)
	}
	return c.minCoverAcross(viewer, target,
		c.borderPoints(viewer, viewer.SightZ()),
		[][]point{c.cubePoints(target)}), nil
}

func strategyArea2D(c *Calculator, viewer, target *scene.Token) (Category, error) {
	return c.areaCover(viewer, target, false)
}

func strategyArea3D(c *Calculator, viewer, target *scene.Token) (Category, error) {
	return c.areaCover(viewer, target, true)
}
