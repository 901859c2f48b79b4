package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/recurator/tram/internal/model"
)

// AppendAudit records one state-change entry. The audit log is append-only.
func (s *Store) AppendAudit(ctx context.Context, e model.AuditEntry) error {
	oldValue, err := marshalOrNil(e.OldValue)
	if err != nil {
		return fmt.Errorf("marshal audit old_value: %w", err)
	}
	newValue, err := marshalOrNil(e.NewValue)
	if err != nil {
		return fmt.Errorf("marshal audit new_value: %w", err)
	}
	_, err = s.q(ctx).ExecContext(ctx, `
		INSERT INTO audit_log (id, memory_id, action, old_value, new_value, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.MemoryID, string(e.Action), oldValue, newValue, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

// QueryAudit returns the most recent audit entries for a memory, newest
// first.
func (s *Store) QueryAudit(ctx context.Context, memoryID string, limit int) ([]model.AuditEntry, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT id, memory_id, action, old_value, new_value, created_at
		FROM audit_log WHERE memory_id = ? ORDER BY created_at DESC LIMIT ?`,
		memoryID, nonZeroLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var out []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var action string
		var oldValue, newValue []byte
		if err := rows.Scan(&e.ID, &e.MemoryID, &action, &oldValue, &newValue, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Action = model.AuditAction(action)
		if len(oldValue) > 0 {
			_ = json.Unmarshal(oldValue, &e.OldValue)
		}
		if len(newValue) > 0 {
			_ = json.Unmarshal(newValue, &e.NewValue)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func marshalOrNil(m map[string]any) (any, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func nonZeroLimit(limit int) int {
	if limit <= 0 {
		return 1000
	}
	return limit
}
