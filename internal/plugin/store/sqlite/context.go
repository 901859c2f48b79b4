package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/recurator/tram/internal/model"
)

// contextRowID is the primary key SetContext uses when the caller leaves
// c.ID empty; a non-empty c.ID is upserted under its own key.
const contextRowID = "current"

// SetContext replaces any existing current context with c.
func (s *Store) SetContext(ctx context.Context, c model.CurrentContext) error {
	if c.ID == "" {
		c.ID = contextRowID
	}
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO current_context (id, text, created_at, ttl_seconds)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text, created_at = excluded.created_at,
			ttl_seconds = excluded.ttl_seconds`,
		c.ID, c.Text, c.CreatedAt, c.TTLSeconds)
	if err != nil {
		return fmt.Errorf("set context: %w", err)
	}
	return nil
}

// GetContext returns the current context, or ok=false if none is set.
func (s *Store) GetContext(ctx context.Context) (model.CurrentContext, bool, error) {
	var c model.CurrentContext
	err := s.q(ctx).QueryRowContext(ctx, `
		SELECT id, text, created_at, ttl_seconds FROM current_context LIMIT 1`).
		Scan(&c.ID, &c.Text, &c.CreatedAt, &c.TTLSeconds)
	if err == sql.ErrNoRows {
		return model.CurrentContext{}, false, nil
	}
	if err != nil {
		return model.CurrentContext{}, false, fmt.Errorf("get context: %w", err)
	}
	return c, true, nil
}

// ClearContext removes any stored context.
func (s *Store) ClearContext(ctx context.Context) error {
	_, err := s.q(ctx).ExecContext(ctx, `DELETE FROM current_context`)
	if err != nil {
		return fmt.Errorf("clear context: %w", err)
	}
	return nil
}
