package cover

import "github.com/thatlonelybugbear/fvtt-token-visibility/internal/scene"

// Config is the immutable per-calculation configuration. Every calculation
// receives its own value; the force-half-cover reduction re-runs with a
// modified copy, which never aliases the caller's value.
type Config struct {
	// Restriction selects which wall blocking flag applies.
	Restriction scene.Restriction
	// WallsBlock enables wall collision.
	WallsBlock bool
	// TilesBlock enables tile collision.
	TilesBlock bool
	// DeadTokensBlock makes defeated tokens occlude (at half height).
	DeadTokensBlock bool
	// LiveTokensBlock makes live tokens occlude.
	LiveTokensBlock bool
	// LiveForceHalfCover caps the contribution of blocking tokens: a line
	// blocked only by tokens yields at most Low cover.
	LiveForceHalfCover bool
	// ProneTokensBlock makes prone tokens occlude (at half height).
	// When false, prone tokens are skipped entirely.
	ProneTokensBlock bool
	// Thresholds map blocked fractions to categories.
	Thresholds Thresholds
}

// DefaultConfig blocks on walls and tiles only, with live tokens granting at
// most half cover.
func DefaultConfig() Config {
	return Config{
		Restriction:        scene.Sight,
		WallsBlock:         true,
		TilesBlock:         true,
		LiveTokensBlock:    true,
		LiveForceHalfCover: true,
		Thresholds:         DefaultThresholds(),
	}
}

// tokensBlock reports whether any token collision testing is enabled.
func (c Config) tokensBlock() bool {
	return c.LiveTokensBlock || c.DeadTokensBlock
}

// forceHalfActive reports whether the force-half-cover policy applies to
// this calculation.
func (c Config) forceHalfActive() bool {
	return c.LiveForceHalfCover && c.tokensBlock()
}
