// Package effects manages the cover status effects a calculation result
// drives: enable/disable toggles batched behind a FIFO lock and routed
// through a dispatcher that may cross a privileged remote boundary.
package effects

import (
	"context"
	"errors"
	"log"

	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/cover"
)

// toggleable are the categories that exist as real effects. None routes to
// disable-all and Full is reserved for the external targeting-exclusion
// flag, so neither has an effect of its own.
var toggleable = [...]cover.Category{cover.Low, cover.Medium, cover.High}

// ToggleOutcome is one per-item result of a batch.
type ToggleOutcome struct {
	Category cover.Category
	Err      error
}

// Manager serializes effect-toggle batches. Each public operation holds the
// lock for its whole batch, so overlapping enable/disable sequences cannot
// interleave and leave a token with two cover effects or none.
type Manager struct {
	lock Lock
	disp Dispatcher
}

// NewManager builds a manager over the given dispatcher.
func NewManager(disp Dispatcher) *Manager {
	return &Manager{disp: disp}
}

// EnableCover applies the given cover category to the token, removing any
// other cover effect first. None routes to DisableAllCover. Full is a no-op
// reserved for the targeting-exclusion flag. Unknown categories are silent
// no-ops.
func (m *Manager) EnableCover(ctx context.Context, tokenID string, cat cover.Category) error {
	if cat == cover.None {
		return m.DisableAllCover(ctx, tokenID)
	}
	if cat == cover.Full || !cat.Valid() {
		return nil
	}

	if err := m.lock.Acquire(ctx); err != nil {
		return err
	}
	defer m.lock.Release()

	outcomes := make([]ToggleOutcome, 0, len(toggleable))
	for _, other := range toggleable {
		if other == cat {
			continue
		}
		outcomes = append(outcomes, ToggleOutcome{Category: other, Err: m.disp.Remove(ctx, tokenID, other)})
	}
	outcomes = append(outcomes, ToggleOutcome{Category: cat, Err: m.disp.Apply(ctx, tokenID, cat)})
	return batchError(tokenID, outcomes)
}

// DisableAllCover removes every cover effect from the token.
func (m *Manager) DisableAllCover(ctx context.Context, tokenID string) error {
	if err := m.lock.Acquire(ctx); err != nil {
		return err
	}
	defer m.lock.Release()

	outcomes := make([]ToggleOutcome, 0, len(toggleable))
	for _, cat := range toggleable {
		outcomes = append(outcomes, ToggleOutcome{Category: cat, Err: m.disp.Remove(ctx, tokenID, cat)})
	}
	return batchError(tokenID, outcomes)
}

// batchError implements wait-for-all, tolerate-individual-failure batch
// semantics: every toggle ran regardless of sibling failures, and the batch
// only errors when none succeeded. On a partial failure the token's effect
// state may be inconsistent and should be re-queried, not assumed; the
// failures are logged for that reason.
func batchError(tokenID string, outcomes []ToggleOutcome) error {
	failed := 0
	var first error
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			if first == nil {
				first = o.Err
			}
			log.Printf("[effects] toggle %s on %s failed: %v", o.Category, tokenID, o.Err)
		}
	}
	if failed == len(outcomes) && failed > 0 {
		return errors.Join(errors.New("all cover toggles failed"), first)
	}
	return nil
}
