// Package sqlitevec implements VectorIndex on top of the sqlite-vec
// extension's vec0 virtual table, giving native ANN search inside the same
// database file the Store already uses. Availability is probed by
// attempting to create a throwaway vec0 table and checking for an error,
// since the extension is only loadable when the binary was built with cgo
// and the sqlite_vec build tag (see register_extension.go's init()).
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	registryvector "github.com/recurator/tram/internal/registry/vector"
)

func init() {
	registryvector.Register(registryvector.Plugin{
		Name: "sqlitevec",
		Loader: func(ctx context.Context, storeHandle any) (registryvector.Index, error) {
			db, ok := storeHandle.(*sql.DB)
			if !ok {
				return nil, fmt.Errorf("sqlitevec vector index requires a *sql.DB handle")
			}
			return open(ctx, db)
		},
	})
}

// Dimension is fixed per table in sqlite-vec; TRAM recreates the virtual
// table if the configured embedder dimension changes (Rebuild handles
// this).
type Index struct {
	db        *sql.DB
	dimension int
}

func open(ctx context.Context, db *sql.DB) (*Index, error) {
	if !probe(ctx, db) {
		return nil, fmt.Errorf("sqlite-vec extension not available")
	}
	idx := &Index{db: db}
	if err := idx.ensureTable(ctx, defaultProbeDimension); err != nil {
		return nil, err
	}
	return idx, nil
}

const defaultProbeDimension = 384

// probe attempts to create and drop a throwaway vec0 virtual table; success
// means the extension is loaded in this process.
func probe(ctx context.Context, db *sql.DB) bool {
	_, err := db.ExecContext(ctx, `CREATE VIRTUAL TABLE IF NOT EXISTS tram_vec_probe USING vec0(embedding FLOAT[8])`)
	if err != nil {
		return false
	}
	_, _ = db.ExecContext(ctx, `DROP TABLE IF EXISTS tram_vec_probe`)
	return true
}

func (i *Index) ensureTable(ctx context.Context, dimension int) error {
	if i.dimension == dimension {
		return nil
	}
	stmt := fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS vec_memories USING vec0(memory_id TEXT PRIMARY KEY, embedding FLOAT[%d])`, dimension)
	if _, err := i.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create vec0 table: %w", err)
	}
	i.dimension = dimension
	return nil
}

// Name reports this backend's identifier.
func (i *Index) Name() string { return "sqlitevec" }

// Upsert (re)indexes a single memory's embedding, creating the virtual table
// at the embedding's dimension if it does not exist yet. An existing table
// keeps the dimension it was created with; only Rebuild recreates it.
func (i *Index) Upsert(ctx context.Context, memoryID string, embedding []float32) error {
	if err := i.ensureTable(ctx, len(embedding)); err != nil {
		return err
	}
	if _, err := i.db.ExecContext(ctx, `DELETE FROM vec_memories WHERE memory_id = ?`, memoryID); err != nil {
		return fmt.Errorf("clear prior vec0 row: %w", err)
	}
	_, err := i.db.ExecContext(ctx, `INSERT INTO vec_memories (memory_id, embedding) VALUES (?, ?)`,
		memoryID, encodeJSON(embedding))
	if err != nil {
		return fmt.Errorf("insert vec0 row: %w", err)
	}
	return nil
}

// Delete removes a memory's embedding from the vec0 table.
func (i *Index) Delete(ctx context.Context, memoryID string) error {
	_, err := i.db.ExecContext(ctx, `DELETE FROM vec_memories WHERE memory_id = ?`, memoryID)
	if err != nil {
		return fmt.Errorf("delete vec0 row: %w", err)
	}
	return nil
}

// Rebuild drops and repopulates the virtual table from the Store's vectors
// table, used after a dimension change or to recover from extension
// reinitialization.
func (i *Index) Rebuild(ctx context.Context) error {
	vectors, err := i.allVectors(ctx)
	if err != nil {
		return err
	}
	if _, err := i.db.ExecContext(ctx, `DROP TABLE IF EXISTS vec_memories`); err != nil {
		return fmt.Errorf("drop vec0 table: %w", err)
	}
	i.dimension = 0
	for _, v := range vectors {
		if err := i.Upsert(ctx, v.memoryID, v.embedding); err != nil {
			return err
		}
	}
	return nil
}

type storedVector struct {
	memoryID  string
	embedding []float32
}

func (i *Index) allVectors(ctx context.Context) ([]storedVector, error) {
	rows, err := i.db.QueryContext(ctx, `SELECT memory_id, embedding FROM vectors`)
	if err != nil {
		return nil, fmt.Errorf("list store vectors: %w", err)
	}
	defer rows.Close()
	var out []storedVector
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		// The Store writes little-endian float32 blobs; JSON arrays are
		// accepted as well.
		values, err := decodeJSON(raw)
		if err != nil {
			if len(raw)%4 != 0 {
				return nil, fmt.Errorf("vector blob for %s: length %d not a multiple of 4", id, len(raw))
			}
			values = make([]float32, len(raw)/4)
			for j := range values {
				values[j] = math.Float32frombits(binary.LittleEndian.Uint32(raw[j*4:]))
			}
		}
		out = append(out, storedVector{memoryID: id, embedding: values})
	}
	return out, rows.Err()
}

// Search performs a k-nearest-neighbor query using vec0's MATCH operator
// with vec0's default L2 distance, converted to a cosine similarity score.
func (i *Index) Search(ctx context.Context, query []float32, limit int) ([]registryvector.Match, error) {
	if err := i.ensureTable(ctx, len(query)); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := i.db.QueryContext(ctx, `
		SELECT memory_id, distance FROM vec_memories
		WHERE embedding MATCH ? AND k = ?
		ORDER BY distance`, encodeJSON(query), limit)
	if err != nil {
		return nil, fmt.Errorf("vec0 search: %w", err)
	}
	defer rows.Close()

	var matches []registryvector.Match
	for rows.Next() {
		var id string
		var distance float64
		if err := rows.Scan(&id, &distance); err != nil {
			return nil, err
		}
		// vec0's default distance for FLOAT[] is L2; for vectors TRAM
		// always stores L2-normalized, cosine similarity = 1 - distance^2/2.
		score := clampSimilarity(1 - (distance*distance)/2)
		matches = append(matches, registryvector.Match{MemoryID: id, Score: score})
	}
	return matches, rows.Err()
}

var _ registryvector.Index = (*Index)(nil)
