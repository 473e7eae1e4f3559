package cover

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/geom"
	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/scene"
)

// samplingAlgorithms are the seven point-sampling strategies (the two area
// strategies delegate to the collaborator instead).
var samplingAlgorithms = []Algorithm{
	CenterCenter, CenterCorners, CornerCorners,
	CenterGridCorners, CornerGridCorners, CenterCube, CubeCube,
}

func nothingBlocks() Config {
	return Config{Restriction: scene.Sight, Thresholds: DefaultThresholds()}
}

func wallsOnly() Config {
	return Config{Restriction: scene.Sight, WallsBlock: true, Thresholds: DefaultThresholds()}
}

// walledScene returns a viewer and target separated by a long sight-blocking
// wall.
func walledScene() (*scene.Scene, *scene.Token, *scene.Token) {
	s := scene.New("walled", geom.Grid{Type: geom.SquareGrid, Size: 10})
	viewer := scene.NewToken("viewer", geom.Rect{X: 0, Y: 0, W: 10, H: 10}, 0, 10)
	target := scene.NewToken("target", geom.Rect{X: 50, Y: 0, W: 10, H: 10}, 0, 10)
	s.AddToken(viewer)
	s.AddToken(target)
	s.AddWall(scene.NewWall(30, -50, 30, 50))
	return s, viewer, target
}

func TestNothingBlocksYieldsNone(t *testing.T) {
	t.Parallel()
	s, viewer, target := walledScene()
	calc := NewCalculator(s, nothingBlocks())
	for _, alg := range samplingAlgorithms {
		cat, err := calc.TargetCover(viewer, target, alg)
		require.NoError(t, err, alg.String())
		assert.Equal(t, None, cat, alg.String())
	}
}

func TestWallBlocksEverySamplingAlgorithm(t *testing.T) {
	t.Parallel()
	s, viewer, target := walledScene()
	calc := NewCalculator(s, wallsOnly())
	for _, alg := range samplingAlgorithms {
		cat, err := calc.TargetCover(viewer, target, alg)
		require.NoError(t, err, alg.String())
		// Every sample ray crosses the wall: fraction 1.0 maps to High
		// under the default thresholds.
		assert.Equal(t, High, cat, alg.String())
	}
}

func TestCenterToCenterSingleWall(t *testing.T) {
	t.Parallel()
	s, viewer, target := walledScene()
	calc := NewCalculator(s, wallsOnly())
	cat, err := calc.TargetCover(viewer, target, CenterCenter)
	require.NoError(t, err)
	assert.Equal(t, High, cat)
}

func TestWallRestrictionRespected(t *testing.T) {
	t.Parallel()
	s := scene.New("move-only", geom.Grid{Type: geom.SquareGrid, Size: 10})
	viewer := scene.NewToken("viewer", geom.Rect{X: 0, Y: 0, W: 10, H: 10}, 0, 10)
	target := scene.NewToken("target", geom.Rect{X: 50, Y: 0, W: 10, H: 10}, 0, 10)
	s.AddToken(viewer)
	s.AddToken(target)
	w := scene.NewWall(30, -50, 30, 50)
	w.Blocking[scene.Sight] = false // movement-only wall
	s.AddWall(w)

	calc := NewCalculator(s, wallsOnly())
	cat, err := calc.TargetCover(viewer, target, CenterCenter)
	require.NoError(t, err)
	assert.Equal(t, None, cat)
}

func TestTileTransparency(t *testing.T) {
	t.Parallel()

	newTileScene := func(alpha *image.Alpha) (*Calculator, *scene.Token, *scene.Token) {
		s := scene.New("tiled", geom.Grid{Type: geom.SquareGrid, Size: 10})
		viewer := scene.NewToken("viewer", geom.Rect{X: 0, Y: 0, W: 10, H: 10}, 0, 10)
		target := scene.NewToken("target", geom.Rect{X: 50, Y: 0, W: 10, H: 10}, 0, 10)
		s.AddToken(viewer)
		s.AddToken(target)
		tile := scene.NewTile(0, -10, 60, 30, 7)
		tile.Alpha = alpha
		s.AddTile(tile)
		cfg := Config{Restriction: scene.Sight, TilesBlock: true, Thresholds: DefaultThresholds()}
		return NewCalculator(s, cfg), viewer, target
	}

	t.Run("opaque tile between viewer and target blocks", func(t *testing.T) {
		t.Parallel()
		calc, viewer, target := newTileScene(nil)
		cat, err := calc.TargetCover(viewer, target, CenterCenter)
		require.NoError(t, err)
		assert.Equal(t, High, cat)
	})

	t.Run("transparent sample point does not block", func(t *testing.T) {
		t.Parallel()
		alpha := image.NewAlpha(image.Rect(0, 0, 1, 1)) // fully transparent
		calc, viewer, target := newTileScene(alpha)
		cat, err := calc.TargetCover(viewer, target, CenterCenter)
		require.NoError(t, err)
		assert.Equal(t, None, cat)
	})

	t.Run("tile outside the elevation band is skipped", func(t *testing.T) {
		t.Parallel()
		s := scene.New("tiled", geom.Grid{Type: geom.SquareGrid, Size: 10})
		viewer := scene.NewToken("viewer", geom.Rect{X: 0, Y: 0, W: 10, H: 10}, 0, 10)
		target := scene.NewToken("target", geom.Rect{X: 50, Y: 0, W: 10, H: 10}, 0, 10)
		s.AddToken(viewer)
		s.AddToken(target)
		s.AddTile(scene.NewTile(0, -10, 60, 30, 50)) // far above both
		cfg := Config{Restriction: scene.Sight, TilesBlock: true, Thresholds: DefaultThresholds()}
		cat, err := NewCalculator(s, cfg).TargetCover(viewer, target, CenterCenter)
		require.NoError(t, err)
		assert.Equal(t, None, cat)
	})
}

// blockerScene puts a tall token squarely between viewer and target.
func blockerScene(mutate func(*scene.Token)) (*scene.Scene, *scene.Token, *scene.Token) {
	s := scene.New("blocked", geom.Grid{Type: geom.SquareGrid, Size: 10})
	viewer := scene.NewToken("viewer", geom.Rect{X: 0, Y: 0, W: 10, H: 10}, 0, 10)
	target := scene.NewToken("target", geom.Rect{X: 40, Y: 0, W: 10, H: 10}, 0, 10)
	blocker := scene.NewToken("blocker", geom.Rect{X: 20, Y: -5, W: 10, H: 20}, 0, 20)
	if mutate != nil {
		mutate(blocker)
	}
	s.AddToken(viewer)
	s.AddToken(target)
	s.AddToken(blocker)
	return s, viewer, target
}

func TestForceHalfCover(t *testing.T) {
	t.Parallel()

	t.Run("token-only occlusion caps at Low", func(t *testing.T) {
		t.Parallel()
		s, viewer, target := blockerScene(nil)
		cfg := nothingBlocks()
		cfg.LiveTokensBlock = true
		cfg.LiveForceHalfCover = true
		cat, err := NewCalculator(s, cfg).TargetCover(viewer, target, CenterCenter)
		require.NoError(t, err)
		assert.Equal(t, Low, cat)
	})

	t.Run("without the policy tokens block fully", func(t *testing.T) {
		t.Parallel()
		s, viewer, target := blockerScene(nil)
		cfg := nothingBlocks()
		cfg.LiveTokensBlock = true
		cat, err := NewCalculator(s, cfg).TargetCover(viewer, target, CenterCenter)
		require.NoError(t, err)
		assert.Equal(t, High, cat)
	})

	t.Run("structure occlusion is not lowered by the policy", func(t *testing.T) {
		t.Parallel()
		s, viewer, target := blockerScene(nil)
		s.AddWall(scene.NewWall(35, -50, 35, 50))
		cfg := wallsOnly()
		cfg.LiveTokensBlock = true
		cfg.LiveForceHalfCover = true
		cat, err := NewCalculator(s, cfg).TargetCover(viewer, target, CenterCenter)
		require.NoError(t, err)
		assert.Equal(t, High, cat)
	})

	t.Run("prone blockers are skipped unless enabled", func(t *testing.T) {
		t.Parallel()
		s, viewer, target := blockerScene(func(b *scene.Token) { b.Prone = true })
		cfg := nothingBlocks()
		cfg.LiveTokensBlock = true
		cfg.LiveForceHalfCover = true
		cat, err := NewCalculator(s, cfg).TargetCover(viewer, target, CenterCenter)
		require.NoError(t, err)
		assert.Equal(t, None, cat)
	})

	t.Run("defeated blockers need dead token blocking", func(t *testing.T) {
		t.Parallel()
		s, viewer, target := blockerScene(func(b *scene.Token) { b.Defeated = true })
		cfg := nothingBlocks()
		cfg.LiveTokensBlock = true
		cat, err := NewCalculator(s, cfg).TargetCover(viewer, target, CenterCenter)
		require.NoError(t, err)
		assert.Equal(t, None, cat)

		cfg.DeadTokensBlock = true
		cfg.LiveForceHalfCover = true
		cat, err = NewCalculator(s, cfg).TargetCover(viewer, target, CenterCenter)
		require.NoError(t, err)
		assert.Equal(t, Low, cat)
	})
}

func TestMinCoverAcross(t *testing.T) {
	t.Parallel()
	s, viewer, target := walledScene()
	calc := NewCalculator(s, wallsOnly())

	blockedVP := geom.Pt(5, 5, 10)
	clearVP := geom.Pt(35, 5, 10) // past the wall
	targetSet := []point{geom.Pt(55, 5, 5)}

	t.Run("single blocked viewer point", func(t *testing.T) {
		t.Parallel()
		got := calc.minCoverAcross(viewer, target, []point{blockedVP}, [][]point{targetSet})
		assert.Equal(t, High, got)
	})

	t.Run("adding a viewer point can only lower the result", func(t *testing.T) {
		t.Parallel()
		one := calc.minCoverAcross(viewer, target, []point{blockedVP}, [][]point{targetSet})
		two := calc.minCoverAcross(viewer, target, []point{blockedVP, clearVP}, [][]point{targetSet})
		assert.LessOrEqual(t, two, one)
		assert.Equal(t, None, two)
	})

	t.Run("any clear pair forces None regardless of the rest", func(t *testing.T) {
		t.Parallel()
		got := calc.minCoverAcross(viewer, target,
			[]point{clearVP, blockedVP, blockedVP, blockedVP}, [][]point{targetSet})
		assert.Equal(t, None, got)
	})
}

func TestGridStrategiesOnGridlessScene(t *testing.T) {
	t.Parallel()
	s := scene.New("void", geom.Grid{Type: geom.Gridless})
	viewer := scene.NewToken("viewer", geom.Rect{X: 0, Y: 0, W: 10, H: 10}, 0, 10)
	target := scene.NewToken("target", geom.Rect{X: 50, Y: 0, W: 10, H: 10}, 0, 10)
	s.AddToken(viewer)
	s.AddToken(target)

	calc := NewCalculator(s, wallsOnly())
	for _, alg := range []Algorithm{CenterGridCorners, CornerGridCorners} {
		_, err := calc.TargetCover(viewer, target, alg)
		assert.ErrorIs(t, err, ErrGridless, alg.String())
	}
}

func TestFlatTargetFallsBackToCorners(t *testing.T) {
	t.Parallel()
	s, viewer, target := walledScene()
	target.TopZ = target.BottomZ // zero height
	calc := NewCalculator(s, wallsOnly())

	cube, err := calc.TargetCover(viewer, target, CenterCube)
	require.NoError(t, err)
	corners, err := calc.TargetCover(viewer, target, CenterCorners)
	require.NoError(t, err)
	assert.Equal(t, corners, cube)
}

func TestMissingTokensComputeNothing(t *testing.T) {
	t.Parallel()
	s, viewer, _ := walledScene()
	calc := NewCalculator(s, wallsOnly())

	cat, err := calc.TargetCover(nil, nil, CenterCenter)
	require.NoError(t, err)
	assert.Equal(t, None, cat)

	cat, err = calc.TargetCover(viewer, nil, CenterCenter)
	require.NoError(t, err)
	assert.Equal(t, None, cat)
}

func TestUnknownAlgorithmRejected(t *testing.T) {
	t.Parallel()
	s, viewer, target := walledScene()
	calc := NewCalculator(s, wallsOnly())
	_, err := calc.TargetCover(viewer, target, Algorithm(99))
	assert.Error(t, err)
}

func TestCoverCalculations(t *testing.T) {
	t.Parallel()
	s, viewer, target := walledScene()
	near := scene.NewToken("near", geom.Rect{X: 0, Y: 20, W: 10, H: 10}, 0, 10)
	s.AddToken(near)

	calc := NewCalculator(s, wallsOnly())
	cats, err := calc.CoverCalculations(viewer, []*scene.Token{target, near, nil}, CenterCenter)
	require.NoError(t, err)
	assert.Equal(t, map[string]Category{
		target.ID: High,
		near.ID:   None,
	}, cats)
}

func TestAreaStrategies(t *testing.T) {
	t.Parallel()
	s, viewer, target := walledScene()

	t.Run("missing collaborator errors", func(t *testing.T) {
		t.Parallel()
		_, err := NewCalculator(s, wallsOnly()).TargetCover(viewer, target, Area2D)
		assert.ErrorIs(t, err, ErrNoAreaRatio)
	})

	t.Run("blocked fraction is one minus visible", func(t *testing.T) {
		t.Parallel()
		stub := func(_, _ *scene.Token, _ Config, _ bool) (float64, error) { return 0.2, nil }
		calc := NewCalculator(s, wallsOnly(), WithAreaRatio(stub))
		cat, err := calc.TargetCover(viewer, target, Area2D)
		require.NoError(t, err)
		assert.Equal(t, Medium, cat)
	})

	t.Run("force half recombines structure and token ratios", func(t *testing.T) {
		t.Parallel()
		cfg := wallsOnly()
		cfg.LiveTokensBlock = true
		cfg.LiveForceHalfCover = true

		// Structures alone hide nothing; tokens alone hide everything.
		stub := func(_, _ *scene.Token, c Config, _ bool) (float64, error) {
			if c.WallsBlock {
				return 1.0, nil
			}
			return 0.0, nil
		}
		cat, err := NewCalculator(s, cfg, WithAreaRatio(stub)).TargetCover(viewer, target, Area3D)
		require.NoError(t, err)
		assert.Equal(t, Low, cat)

		// Structures alone already grant Medium; tokens must not change it.
		stub = func(_, _ *scene.Token, c Config, _ bool) (float64, error) {
			if c.WallsBlock {
				return 0.2, nil
			}
			return 0.0, nil
		}
		cat, err = NewCalculator(s, cfg, WithAreaRatio(stub)).TargetCover(viewer, target, Area3D)
		require.NoError(t, err)
		assert.Equal(t, Medium, cat)

		// Nothing hides anything: None, not Low.
		stub = func(_, _ *scene.Token, _ Config, _ bool) (float64, error) { return 1.0, nil }
		cat, err = NewCalculator(s, cfg, WithAreaRatio(stub)).TargetCover(viewer, target, Area3D)
		require.NoError(t, err)
		assert.Equal(t, None, cat)
	})
}
