package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/recurator/tram/internal/model"
	registrystore "github.com/recurator/tram/internal/registry/store"
)

// InsertMemory inserts m and returns it unchanged (callers assign IDs via
// uuid before calling).
func (s *Store) InsertMemory(ctx context.Context, m model.Memory) (model.Memory, error) {
	useDays, err := json.Marshal(m.UseDays)
	if err != nil {
		return model.Memory{}, fmt.Errorf("marshal use_days: %w", err)
	}
	_, err = s.q(ctx).ExecContext(ctx, `
		INSERT INTO memories (id, text, importance, category, created_at, tier,
			memory_type, do_not_inject, pinned, use_count, last_accessed_at,
			use_days, source, parent_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Text, m.Importance, m.Category, m.CreatedAt, string(m.Tier),
		string(m.MemoryType), boolToInt(m.DoNotInject), boolToInt(m.Pinned),
		m.UseCount, nullTime(m.LastAccessedAt), string(useDays), m.Source, m.ParentID)
	if err != nil {
		if isConstraint(err) {
			return model.Memory{}, &model.InvalidInputError{Field: "id", Message: fmt.Sprintf("memory id %q already exists", m.ID)}
		}
		return model.Memory{}, fmt.Errorf("insert memory: %w", err)
	}
	if err := s.indexMemory(ctx, m.ID, m.Text); err != nil {
		return model.Memory{}, err
	}
	return m, nil
}

// GetMemory fetches one memory by id, including soft-deleted ones.
func (s *Store) GetMemory(ctx context.Context, id string) (model.Memory, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT id, text, importance, category, created_at, tier, memory_type,
			do_not_inject, pinned, use_count, last_accessed_at, use_days,
			source, parent_id
		FROM memories WHERE id = ?`, id)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return model.Memory{}, &model.NotFoundError{Resource: "memory", ID: id}
	}
	return m, err
}

// UpdateMemory overwrites all mutable fields of a memory by ID.
func (s *Store) UpdateMemory(ctx context.Context, m model.Memory) error {
	useDays, err := json.Marshal(m.UseDays)
	if err != nil {
		return fmt.Errorf("marshal use_days: %w", err)
	}
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE memories SET text = ?, importance = ?, category = ?, tier = ?,
			memory_type = ?, do_not_inject = ?, pinned = ?, use_count = ?,
			last_accessed_at = ?, use_days = ?, source = ?, parent_id = ?
		WHERE id = ?`,
		m.Text, m.Importance, m.Category, string(m.Tier), string(m.MemoryType),
		boolToInt(m.DoNotInject), boolToInt(m.Pinned), m.UseCount,
		nullTime(m.LastAccessedAt), string(useDays), m.Source, m.ParentID, m.ID)
	if err != nil {
		return fmt.Errorf("update memory: %w", err)
	}
	if err := requireRowsAffected(res, "memory", m.ID); err != nil {
		return err
	}
	return s.indexMemory(ctx, m.ID, m.Text)
}

// SoftDeleteMemory sets do_not_inject so the memory is excluded from
// default injection/search but remains restorable.
func (s *Store) SoftDeleteMemory(ctx context.Context, id string) error {
	res, err := s.q(ctx).ExecContext(ctx, `UPDATE memories SET do_not_inject = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("soft delete memory: %w", err)
	}
	return requireRowsAffected(res, "memory", id)
}

// HardDeleteMemory removes a memory permanently, cascading its vector,
// postings, audit trail, and feedback rows.
func (s *Store) HardDeleteMemory(ctx context.Context, id string) error {
	q := s.q(ctx)
	for _, del := range []string{
		`DELETE FROM lexical_postings WHERE memory_id = ?`,
		`DELETE FROM vectors WHERE memory_id = ?`,
		`DELETE FROM audit_log WHERE memory_id = ?`,
		`DELETE FROM injection_feedback WHERE memory_id = ?`,
	} {
		if _, err := q.ExecContext(ctx, del, id); err != nil {
			return fmt.Errorf("hard delete cascade: %w", err)
		}
	}
	res, err := q.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("hard delete memory: %w", err)
	}
	return requireRowsAffected(res, "memory", id)
}

// ListByTier lists memories restricted to tiers (all tiers if empty),
// optionally including soft-deleted ones.
func (s *Store) ListByTier(ctx context.Context, tiers registrystore.TierFilter, includeForgotten bool) ([]model.Memory, error) {
	var where []string
	var args []any
	if len(tiers) > 0 {
		placeholders := make([]string, len(tiers))
		for i, t := range tiers {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		where = append(where, "tier IN ("+strings.Join(placeholders, ",")+")")
	}
	if !includeForgotten {
		where = append(where, "do_not_inject = 0")
	}
	query := `SELECT id, text, importance, category, created_at, tier, memory_type,
		do_not_inject, pinned, use_count, last_accessed_at, use_days, source, parent_id
		FROM memories`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"
	return s.queryMemories(ctx, query, args...)
}

// ListAll lists every memory regardless of tier.
func (s *Store) ListAll(ctx context.Context, includeForgotten bool) ([]model.Memory, error) {
	return s.ListByTier(ctx, nil, includeForgotten)
}

func (s *Store) queryMemories(ctx context.Context, query string, args ...any) ([]model.Memory, error) {
	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	defer rows.Close()

	var out []model.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemory(row rowScanner) (model.Memory, error) {
	var m model.Memory
	var tier, memType, useDays string
	var lastAccessed sql.NullTime
	var category, source, parentID sql.NullString
	if err := row.Scan(&m.ID, &m.Text, &m.Importance, &category, &m.CreatedAt,
		&tier, &memType, &m.DoNotInject, &m.Pinned, &m.UseCount, &lastAccessed,
		&useDays, &source, &parentID); err != nil {
		return model.Memory{}, err
	}
	m.Tier = model.Tier(tier)
	m.MemoryType = model.MemoryType(memType)
	m.Category = category.String
	m.Source = source.String
	m.ParentID = parentID.String
	if lastAccessed.Valid {
		m.LastAccessedAt = lastAccessed.Time
	}
	if useDays != "" {
		_ = json.Unmarshal([]byte(useDays), &m.UseDays)
	}
	return m, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func requireRowsAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &model.NotFoundError{Resource: resource, ID: id}
	}
	return nil
}
