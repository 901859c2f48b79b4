package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/recurator/tram/internal/model"
)

// encodeVector serializes a []float32 to a little-endian binary blob.
// Writes are always binary; reads tolerate a legacy JSON-array encoding
// for hand-edited/imported data.
func encodeVector(values []float32) []byte {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(raw []byte) ([]float32, error) {
	if len(raw) > 0 && (raw[0] == '[' || raw[0] == ' ') {
		var values []float32
		if err := json.Unmarshal(raw, &values); err == nil {
			return values, nil
		}
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d not a multiple of 4", len(raw))
	}
	values := make([]float32, len(raw)/4)
	r := bytes.NewReader(raw)
	for i := range values {
		var bits uint32
		if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
			return nil, fmt.Errorf("decode vector: %w", err)
		}
		values[i] = math.Float32frombits(bits)
	}
	return values, nil
}

// UpsertVector stores or replaces a memory's embedding.
func (s *Store) UpsertVector(ctx context.Context, v model.Vector) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO vectors (memory_id, embedding) VALUES (?, ?)
		ON CONFLICT(memory_id) DO UPDATE SET embedding = excluded.embedding`,
		v.MemoryID, encodeVector(v.Values))
	if err != nil {
		return fmt.Errorf("upsert vector: %w", err)
	}
	return nil
}

// GetVector returns a memory's embedding, or ok=false if none is stored.
func (s *Store) GetVector(ctx context.Context, memoryID string) (model.Vector, bool, error) {
	var raw []byte
	err := s.q(ctx).QueryRowContext(ctx, `SELECT embedding FROM vectors WHERE memory_id = ?`, memoryID).Scan(&raw)
	if err == sql.ErrNoRows {
		return model.Vector{}, false, nil
	}
	if err != nil {
		return model.Vector{}, false, fmt.Errorf("get vector: %w", err)
	}
	values, err := decodeVector(raw)
	if err != nil {
		return model.Vector{}, false, err
	}
	return model.Vector{MemoryID: memoryID, Values: values}, true, nil
}

// DeleteVector removes a memory's embedding, if present.
func (s *Store) DeleteVector(ctx context.Context, memoryID string) error {
	_, err := s.q(ctx).ExecContext(ctx, `DELETE FROM vectors WHERE memory_id = ?`, memoryID)
	if err != nil {
		return fmt.Errorf("delete vector: %w", err)
	}
	return nil
}

// AllVectors returns every stored embedding, for the exhaustive vector
// index's full scan and for Rebuild operations.
func (s *Store) AllVectors(ctx context.Context) ([]model.Vector, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `SELECT memory_id, embedding FROM vectors`)
	if err != nil {
		return nil, fmt.Errorf("list vectors: %w", err)
	}
	defer rows.Close()

	var out []model.Vector
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		values, err := decodeVector(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, model.Vector{MemoryID: id, Values: values})
	}
	return out, rows.Err()
}
