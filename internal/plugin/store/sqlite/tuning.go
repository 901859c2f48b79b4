package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/recurator/tram/internal/model"
)

// AppendTuningLog records one parameter change or override. The tuning log
// is append-only; reverting a prior change appends a new entry with
// Reverted=true rather than mutating history.
func (s *Store) AppendTuningLog(ctx context.Context, e model.TuningLogEntry) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO tuning_log (id, timestamp, parameter, old_value, new_value,
			reason, source, user_override_until, reverted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp, e.Parameter, e.OldValue, e.NewValue, e.Reason,
		string(e.Source), e.UserOverrideUntil, boolToInt(e.Reverted))
	if err != nil {
		return fmt.Errorf("append tuning log: %w", err)
	}
	return nil
}

// QueryTuningLog returns the most recent entries for a parameter, newest
// first. An empty parameter returns entries across all parameters.
func (s *Store) QueryTuningLog(ctx context.Context, parameter string, limit int) ([]model.TuningLogEntry, error) {
	query := `SELECT id, timestamp, parameter, old_value, new_value, reason,
		source, user_override_until, reverted FROM tuning_log`
	var args []any
	if parameter != "" {
		query += ` WHERE parameter = ?`
		args = append(args, parameter)
	}
	query += ` ORDER BY timestamp DESC LIMIT ?`
	args = append(args, nonZeroLimit(limit))

	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tuning log: %w", err)
	}
	defer rows.Close()
	return scanTuningLog(rows)
}

// LatestTuningValue returns the most recent non-reverted entry for a
// parameter, used to resolve the effective current value.
func (s *Store) LatestTuningValue(ctx context.Context, parameter string) (model.TuningLogEntry, bool, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT id, timestamp, parameter, old_value, new_value, reason, source,
			user_override_until, reverted
		FROM tuning_log WHERE parameter = ? AND reverted = 0
		ORDER BY timestamp DESC LIMIT 1`, parameter)
	var e model.TuningLogEntry
	var source string
	err := row.Scan(&e.ID, &e.Timestamp, &e.Parameter, &e.OldValue, &e.NewValue,
		&e.Reason, &source, &e.UserOverrideUntil, &e.Reverted)
	if err == sql.ErrNoRows {
		return model.TuningLogEntry{}, false, nil
	}
	if err != nil {
		return model.TuningLogEntry{}, false, fmt.Errorf("latest tuning value: %w", err)
	}
	e.Source = model.TuningSource(source)
	return e, true, nil
}

func scanTuningLog(rows *sql.Rows) ([]model.TuningLogEntry, error) {
	var out []model.TuningLogEntry
	for rows.Next() {
		var e model.TuningLogEntry
		var source string
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Parameter, &e.OldValue,
			&e.NewValue, &e.Reason, &source, &e.UserOverrideUntil, &e.Reverted); err != nil {
			return nil, err
		}
		e.Source = model.TuningSource(source)
		out = append(out, e)
	}
	return out, rows.Err()
}
