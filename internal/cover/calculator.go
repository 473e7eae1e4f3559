package cover

import (
	"errors"
	"fmt"

	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/geom"
	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/scene"
)

type point = geom.Point

// AreaRatioFunc is the area-ratio collaborator: the fraction of the target's
// projected area visible to the viewer, in [0,1]. Pure function of its
// inputs. threeD selects the projected-3D mode.
type AreaRatioFunc func(viewer, target *scene.Token, cfg Config, threeD bool) (float64, error)

// ErrNoAreaRatio is returned by the area strategies when no collaborator was
// provided to the calculator.
var ErrNoAreaRatio = errors.New("cover: no area-ratio collaborator configured")

// Calculator computes cover categories against one scene. It is stateless
// apart from the scene's read-only caches, so one value may serve concurrent
// calculations as long as the scene geometry is not mutated underneath it.
type Calculator struct {
	scene *scene.Scene
	cfg   Config
	area  AreaRatioFunc
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithAreaRatio installs the area-ratio collaborator used by the Area2D and
// Area3D strategies.
func WithAreaRatio(f AreaRatioFunc) Option {
	return func(c *Calculator) { c.area = f }
}

// NewCalculator builds a calculator over a scene with a per-call config.
func NewCalculator(sc *scene.Scene, cfg Config, opts ...Option) *Calculator {
	c := &Calculator{scene: sc, cfg: cfg}
	for _, o := range opts {
		o(c)
	}
	return c
}

// TargetCover returns the cover category of target as seen by viewer.
// A nil viewer or target computes nothing and reports None.
func (c *Calculator) TargetCover(viewer, target *scene.Token, alg Algorithm) (Category, error) {
	if viewer == nil || target == nil {
		return None, nil
	}
	if alg < 0 || alg >= algorithmCount {
		return None, fmt.Errorf("unknown cover algorithm %d", alg)
	}
	return strategies[alg](c, viewer, target)
}

// CoverCalculations returns the cover category of every given target as seen
// by viewer, keyed by target ID. Nil entries are skipped.
func (c *Calculator) CoverCalculations(viewer *scene.Token, targets []*scene.Token, alg Algorithm) (map[string]Category, error) {
	out := make(map[string]Category, len(targets))
	if viewer == nil {
		return out, nil
	}
	for _, t := range targets {
		if t == nil {
			continue
		}
		cat, err := c.TargetCover(viewer, t, alg)
		if err != nil {
			return nil, fmt.Errorf("cover for target %s: %w", t.ID, err)
		}
		out[t.ID] = cat
	}
	return out, nil
}

// minCoverAcross runs the shared point-testing reduction: for every
// (viewer point, target point set) pair compute the blocked fraction and its
// category, and keep the MINIMUM across pairs. The minimum represents the
// best unobstructed line available to the viewer. The reduction exits the
// moment any pair yields None, since no better result exists; this bounds
// the cost to the first clear viewer position instead of the full product.
func (c *Calculator) minCoverAcross(viewer, target *scene.Token, viewerPoints []point, targetSets [][]point) Category {
	best := Full
	for _, vp := range viewerPoints {
		for _, set := range targetSets {
			cat := c.coverForPair(vp, set, viewer, target)
			if cat < best {
				best = cat
			}
			if best == None {
				return None
			}
		}
	}
	return best
}

// coverForPair computes the cover category for one viewer point against one
// target sample set. A target point is blocked when a wall or tile crosses
// the ray, or a token does while the force-half policy is inactive.
// Token-only hits are tracked separately: under the force-half policy they
// raise the result to at least Low without contributing to the fraction.
func (c *Calculator) coverForPair(vp point, targetPoints []point, viewer, target *scene.Token) Category {
	if len(targetPoints) == 0 {
		return None
	}
	forceHalf := c.cfg.forceHalfActive()
	blocked := 0
	tokenOnly := false
	for _, tp := range targetPoints {
		if c.wallBlocks(vp, tp) || c.tileBlocks(vp, tp) {
			blocked++
			continue
		}
		if c.tokenBlocks(vp, tp, viewer, target) {
			tokenOnly = true
			if !forceHalf {
				blocked++
			}
		}
	}
	cat := CategoryFor(float64(blocked)/float64(len(targetPoints)), c.cfg.Thresholds)
	if forceHalf && tokenOnly && cat < Low {
		cat = Low
	}
	return cat
}

// areaCover implements the two area strategies: blocked fraction is one
// minus the collaborator's visible fraction. Under the force-half policy the
// ratio is recomputed twice with rewritten configs: once with token blocking
// disabled, once with only token blocking enabled. Structures alone decide
// the category when they reach Low; otherwise tokens alone contribute at
// most Low.
func (c *Calculator) areaCover(viewer, target *scene.Token, threeD bool) (Category, error) {
	if c.area == nil {
		return None, ErrNoAreaRatio
	}

	if !c.cfg.forceHalfActive() {
		visible, err := c.area(viewer, target, c.cfg, threeD)
		if err != nil {
			return None, fmt.Errorf("area ratio: %w", err)
		}
		return CategoryFor(1-visible, c.cfg.Thresholds), nil
	}

	structCfg := c.cfg
	structCfg.LiveTokensBlock = false
	structCfg.DeadTokensBlock = false
	structCfg.LiveForceHalfCover = false
	visible, err := c.area(viewer, target, structCfg, threeD)
	if err != nil {
		return None, fmt.Errorf("area ratio (structures): %w", err)
	}
	structCat := CategoryFor(1-visible, c.cfg.Thresholds)
	if structCat >= Low {
		return structCat, nil
	}

	tokenCfg := c.cfg
	tokenCfg.WallsBlock = false
	tokenCfg.TilesBlock = false
	tokenCfg.LiveForceHalfCover = false
	visible, err = c.area(viewer, target, tokenCfg, threeD)
	if err != nil {
		return None, fmt.Errorf("area ratio (tokens): %w", err)
	}
	if CategoryFor(1-visible, c.cfg.Thresholds) >= Low {
		return Low, nil
	}
	return None, nil
}
