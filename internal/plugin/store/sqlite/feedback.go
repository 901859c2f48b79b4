package sqlite

import (
	"context"
	"fmt"

	"github.com/recurator/tram/internal/model"
)

// AppendFeedback records one injected-memory-in-one-session event.
func (s *Store) AppendFeedback(ctx context.Context, f model.InjectionFeedback) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO injection_feedback (id, memory_id, session_key, injected_at,
			access_frequency, session_outcome, injection_density, decay_resistance,
			proxy_score, agent_score, agent_notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.MemoryID, f.SessionKey, f.InjectedAt, f.AccessFrequency,
		f.SessionOutcome, f.InjectionDensity, f.DecayResistance, f.ProxyScore,
		f.AgentScore, f.AgentNotes, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("append feedback: %w", err)
	}
	return nil
}

// IncrementFeedbackAccess bumps access_frequency on the single most recent
// feedback row for memoryID, across all sessions. A no-op, not an error,
// when no feedback row exists yet for the memory.
func (s *Store) IncrementFeedbackAccess(ctx context.Context, memoryID string, _ string) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		UPDATE injection_feedback SET access_frequency = access_frequency + 1
		WHERE id = (
			SELECT id FROM injection_feedback
			WHERE memory_id = ?
			ORDER BY created_at DESC LIMIT 1
		)`, memoryID)
	if err != nil {
		return fmt.Errorf("increment feedback access: %w", err)
	}
	return nil
}

// QueryFeedback returns the most recent feedback rows for a memory.
func (s *Store) QueryFeedback(ctx context.Context, memoryID string, limit int) ([]model.InjectionFeedback, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT id, memory_id, session_key, injected_at, access_frequency,
			session_outcome, injection_density, decay_resistance, proxy_score,
			agent_score, agent_notes, created_at
		FROM injection_feedback WHERE memory_id = ? ORDER BY created_at DESC LIMIT ?`,
		memoryID, nonZeroLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer rows.Close()

	var out []model.InjectionFeedback
	for rows.Next() {
		var f model.InjectionFeedback
		if err := rows.Scan(&f.ID, &f.MemoryID, &f.SessionKey, &f.InjectedAt,
			&f.AccessFrequency, &f.SessionOutcome, &f.InjectionDensity,
			&f.DecayResistance, &f.ProxyScore, &f.AgentScore, &f.AgentNotes,
			&f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
