// Package config loads the engine's runtime settings. The JSON schema uses
// pointer-typed optional fields so a partial settings file safely overlays
// the defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/cover"
)

// maxSettingsFileSize bounds how large a settings file may be (1MB).
const maxSettingsFileSize = 1 * 1024 * 1024

// Settings is the root configuration. Nil fields keep their defaults.
type Settings struct {
	// Category thresholds (blocked fractions in [0,1]).
	LowThreshold    *float64 `json:"low_threshold,omitempty"`
	MediumThreshold *float64 `json:"medium_threshold,omitempty"`
	HighThreshold   *float64 `json:"high_threshold,omitempty"`

	// Default blocking flags, copied into each calculation's config.
	WallsBlock         *bool `json:"walls_block,omitempty"`
	TilesBlock         *bool `json:"tiles_block,omitempty"`
	DeadTokensBlock    *bool `json:"dead_tokens_block,omitempty"`
	LiveTokensBlock    *bool `json:"live_tokens_block,omitempty"`
	LiveForceHalfCover *bool `json:"live_force_half_cover,omitempty"`
	ProneTokensBlock   *bool `json:"prone_tokens_block,omitempty"`

	// Algorithm is the default strategy name (see cover.ParseAlgorithm).
	Algorithm *string `json:"algorithm,omitempty"`

	// Service settings.
	Listen       *string `json:"listen,omitempty"`
	DatabasePath *string `json:"database_path,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }

// Defaults returns the canonical default settings.
func Defaults() *Settings {
	return &Settings{
		LowThreshold:       ptrFloat64(0.5),
		MediumThreshold:    ptrFloat64(0.75),
		HighThreshold:      ptrFloat64(1.0),
		WallsBlock:         ptrBool(true),
		TilesBlock:         ptrBool(true),
		DeadTokensBlock:    ptrBool(false),
		LiveTokensBlock:    ptrBool(true),
		LiveForceHalfCover: ptrBool(true),
		ProneTokensBlock:   ptrBool(false),
		Algorithm:          ptrString(cover.CenterCorners.String()),
		Listen:             ptrString(":8080"),
		DatabasePath:       ptrString("cover.db"),
	}
}

// Load reads a settings file and overlays it onto the defaults. Fields
// omitted from the file keep their default values, so partial configs are
// safe.
func Load(path string) (*Settings, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("settings file must have .json extension, got %q", ext)
	}
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat settings file: %w", err)
	}
	if info.Size() > maxSettingsFileSize {
		return nil, fmt.Errorf("settings file too large: %d bytes (max %d)", info.Size(), maxSettingsFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	s := Defaults()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks threshold ordering and the algorithm name.
func (s *Settings) Validate() error {
	low, med, high := *s.LowThreshold, *s.MediumThreshold, *s.HighThreshold
	if low < 0 || high > 1 || low > med || med > high {
		return fmt.Errorf("thresholds must satisfy 0 <= low <= medium <= high <= 1, got %g/%g/%g", low, med, high)
	}
	if _, err := cover.ParseAlgorithm(*s.Algorithm); err != nil {
		return err
	}
	return nil
}

// CoverConfig converts the settings into a per-calculation config.
func (s *Settings) CoverConfig() cover.Config {
	cfg := cover.DefaultConfig()
	cfg.Thresholds = cover.Thresholds{
		Low:    *s.LowThreshold,
		Medium: *s.MediumThreshold,
		High:   *s.HighThreshold,
	}
	cfg.WallsBlock = *s.WallsBlock
	cfg.TilesBlock = *s.TilesBlock
	cfg.DeadTokensBlock = *s.DeadTokensBlock
	cfg.LiveTokensBlock = *s.LiveTokensBlock
	cfg.LiveForceHalfCover = *s.LiveForceHalfCover
	cfg.ProneTokensBlock = *s.ProneTokensBlock
	return cfg
}

// DefaultAlgorithm returns the configured default strategy.
func (s *Settings) DefaultAlgorithm() cover.Algorithm {
	alg, err := cover.ParseAlgorithm(*s.Algorithm)
	if err != nil {
		return cover.CenterCorners
	}
	return alg
}
