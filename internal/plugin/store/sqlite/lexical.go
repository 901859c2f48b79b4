// Lexical search is a hand-rolled BM25 ranking over an inverted index
// (token -> memory_id postings) maintained in the lexical_postings table,
// so the ranking math stays portable across SQLite builds that lack the
// FTS5 compile-time option. The tokenizer
// mirrors the one in the local embedder (internal/plugin/embed/local).
package sqlite

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	registrystore "github.com/recurator/tram/internal/registry/store"
)

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

func tokenize(text string) []string {
	text = strings.TrimSpace(strings.ToLower(text))
	if text == "" {
		return nil
	}
	return strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsNumber(r))
	})
}

// indexMemory replaces the postings for one memory. Called from InsertMemory
// and UpdateMemory, or via RebuildLexicalIndex for all memories.
func (s *Store) indexMemory(ctx context.Context, memoryID, text string) error {
	q := s.q(ctx)
	if _, err := q.ExecContext(ctx, `DELETE FROM lexical_postings WHERE memory_id = ?`, memoryID); err != nil {
		return fmt.Errorf("clear postings: %w", err)
	}
	counts := map[string]int{}
	for _, tok := range tokenize(text) {
		counts[tok]++
	}
	for tok, tf := range counts {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO lexical_postings (token, memory_id, tf) VALUES (?, ?, ?)
			ON CONFLICT(token, memory_id) DO UPDATE SET tf = excluded.tf`,
			tok, memoryID, tf); err != nil {
			return fmt.Errorf("insert posting: %w", err)
		}
	}
	return nil
}

// RebuildLexicalIndex recomputes the inverted index from scratch over every
// non-deleted memory's text.
func (s *Store) RebuildLexicalIndex(ctx context.Context) error {
	return s.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.q(ctx).ExecContext(ctx, `DELETE FROM lexical_postings`); err != nil {
			return fmt.Errorf("clear lexical index: %w", err)
		}
		memories, err := s.ListAll(ctx, true)
		if err != nil {
			return err
		}
		for _, m := range memories {
			if err := s.indexMemory(ctx, m.ID, m.Text); err != nil {
				return err
			}
		}
		return nil
	})
}

// LexicalSearch ranks memories by BM25 score against the query's tokens.
func (s *Store) LexicalSearch(ctx context.Context, query string, limit int) ([]registrystore.LexicalHit, error) {
	terms := uniqueTokens(tokenize(query))
	if len(terms) == 0 {
		return nil, nil
	}

	docCount, avgLen, err := s.corpusStats(ctx)
	if err != nil {
		return nil, err
	}
	if docCount == 0 {
		return nil, nil
	}

	docLens, err := s.docLengths(ctx)
	if err != nil {
		return nil, err
	}

	scores := map[string]float64{}
	for _, term := range terms {
		df, postings, err := s.postingsForTerm(ctx, term)
		if err != nil {
			return nil, err
		}
		if df == 0 {
			continue
		}
		idf := math.Log(1 + (float64(docCount)-float64(df)+0.5)/(float64(df)+0.5))
		for memoryID, tf := range postings {
			dl := float64(docLens[memoryID])
			if dl == 0 {
				dl = avgLen
			}
			denom := float64(tf) + bm25K1*(1-bm25B+bm25B*dl/avgLen)
			scores[memoryID] += idf * (float64(tf) * (bm25K1 + 1)) / denom
		}
	}

	hits := make([]registrystore.LexicalHit, 0, len(scores))
	for id, score := range scores {
		hits = append(hits, registrystore.LexicalHit{MemoryID: id, Score: score})
	}
	sortHitsDesc(hits)
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *Store) corpusStats(ctx context.Context) (count int, avgLen float64, err error) {
	row := s.q(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM memories WHERE do_not_inject = 0`)
	if err = row.Scan(&count); err != nil {
		return 0, 0, fmt.Errorf("corpus count: %w", err)
	}
	if count == 0 {
		return 0, 0, nil
	}
	row = s.q(ctx).QueryRowContext(ctx, `
		SELECT COALESCE(SUM(tf), 0) FROM lexical_postings p
		JOIN memories m ON m.id = p.memory_id WHERE m.do_not_inject = 0`)
	var totalTokens int64
	if err = row.Scan(&totalTokens); err != nil {
		return 0, 0, fmt.Errorf("corpus token total: %w", err)
	}
	avgLen = float64(totalTokens) / float64(count)
	if avgLen == 0 {
		avgLen = 1
	}
	return count, avgLen, nil
}

func (s *Store) docLengths(ctx context.Context) (map[string]int, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT memory_id, SUM(tf) FROM lexical_postings GROUP BY memory_id`)
	if err != nil {
		return nil, fmt.Errorf("doc lengths: %w", err)
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var id string
		var total int
		if err := rows.Scan(&id, &total); err != nil {
			return nil, err
		}
		out[id] = total
	}
	return out, rows.Err()
}

func (s *Store) postingsForTerm(ctx context.Context, term string) (df int, postings map[string]int, err error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT p.memory_id, p.tf FROM lexical_postings p
		JOIN memories m ON m.id = p.memory_id
		WHERE p.token = ? AND m.do_not_inject = 0`, term)
	if err != nil {
		return 0, nil, fmt.Errorf("postings for %q: %w", term, err)
	}
	defer rows.Close()
	postings = map[string]int{}
	for rows.Next() {
		var id string
		var tf int
		if err := rows.Scan(&id, &tf); err != nil {
			return 0, nil, err
		}
		postings[id] = tf
	}
	return len(postings), postings, rows.Err()
}

func uniqueTokens(tokens []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func sortHitsDesc(hits []registrystore.LexicalHit) {
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
}
