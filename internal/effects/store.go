package effects

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/cover"
)

// Status is one applied cover effect on a token.
type Status struct {
	ID          string
	TokenID     string
	Category    cover.Category
	AppliedAtNs int64
}

// StatusStore persists applied cover effects in sqlite.
type StatusStore struct {
	db *sql.DB
}

// NewStatusStore wraps an open database and bootstraps the schema.
func NewStatusStore(db *sql.DB) (*StatusStore, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS cover_statuses (
			status_id TEXT PRIMARY KEY,
			token_id TEXT NOT NULL,
			category TEXT NOT NULL,
			applied_at_ns INTEGER NOT NULL,
			UNIQUE(token_id, category)
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create status schema: %w", err)
	}
	return &StatusStore{db: db}, nil
}

// Apply records a cover effect on a token. Re-applying the same category is
// idempotent.
func (s *StatusStore) Apply(tokenID string, cat cover.Category) error {
	_, err := s.db.Exec(
		`INSERT INTO cover_statuses (status_id, token_id, category, applied_at_ns)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(token_id, category) DO UPDATE SET applied_at_ns = excluded.applied_at_ns`,
		uuid.New().String(), tokenID, cat.String(), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to apply %s cover on %s: %w", cat, tokenID, err)
	}
	return nil
}

// Remove deletes a cover effect from a token. Removing an absent effect is
// not an error.
func (s *StatusStore) Remove(tokenID string, cat cover.Category) error {
	_, err := s.db.Exec(
		`DELETE FROM cover_statuses WHERE token_id = ? AND category = ?`,
		tokenID, cat.String())
	if err != nil {
		return fmt.Errorf("failed to remove %s cover on %s: %w", cat, tokenID, err)
	}
	return nil
}

// ActiveFor returns the effects currently applied to a token.
func (s *StatusStore) ActiveFor(tokenID string) ([]Status, error) {
	rows, err := s.db.Query(
		`SELECT status_id, token_id, category, applied_at_ns
		 FROM cover_statuses WHERE token_id = ? ORDER BY applied_at_ns`, tokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cover on %s: %w", tokenID, err)
	}
	defer rows.Close()

	var out []Status
	for rows.Next() {
		var st Status
		var cat string
		if err := rows.Scan(&st.ID, &st.TokenID, &cat, &st.AppliedAtNs); err != nil {
			return nil, fmt.Errorf("failed to scan status row: %w", err)
		}
		parsed, ok := cover.ParseCategory(cat)
		if !ok {
			// Rows written by a newer schema are skipped rather than fatal.
			continue
		}
		st.Category = parsed
		out = append(out, st)
	}
	return out, rows.Err()
}
