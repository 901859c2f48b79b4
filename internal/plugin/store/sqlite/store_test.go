package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/recurator/tram/internal/model"
	registrystore "github.com/recurator/tram/internal/registry/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tram.db")
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newMemory(text string) model.Memory {
	return model.Memory{
		ID:         uuid.NewString(),
		Text:       text,
		Importance: 0.5,
		CreatedAt:  time.Now().UTC(),
		Tier:       model.TierHot,
		MemoryType: model.TypeFactual,
	}
}

func TestInsertGetMemory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	m := newMemory("the user prefers dark mode")
	_, err := s.InsertMemory(ctx, m)
	require.NoError(t, err)

	got, err := s.GetMemory(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, m.Text, got.Text)
	require.Equal(t, m.Tier, got.Tier)
}

func TestGetMemoryNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetMemory(ctx, "missing")
	require.Error(t, err)
	var nf *model.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestSoftDeleteExcludesFromListByTier(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	m := newMemory("ephemeral note")
	_, err := s.InsertMemory(ctx, m)
	require.NoError(t, err)

	require.NoError(t, s.SoftDeleteMemory(ctx, m.ID))

	visible, err := s.ListByTier(ctx, nil, false)
	require.NoError(t, err)
	require.Empty(t, visible)

	all, err := s.ListByTier(ctx, nil, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestHardDeleteRemovesVectorAndPostings(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	m := newMemory("deep dish pizza is superior")
	_, err := s.InsertMemory(ctx, m)
	require.NoError(t, err)
	require.NoError(t, s.UpsertVector(ctx, model.Vector{MemoryID: m.ID, Values: []float32{0.1, 0.2, 0.3}}))

	require.NoError(t, s.HardDeleteMemory(ctx, m.ID))

	_, err = s.GetMemory(ctx, m.ID)
	require.Error(t, err)
	_, ok, err := s.GetVector(ctx, m.ID)
	require.NoError(t, err)
	require.False(t, ok)
	var postings int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lexical_postings WHERE memory_id = ?`, m.ID).Scan(&postings))
	require.Zero(t, postings)
}

func TestLexicalSearchRanksExactMatchHigher(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := newMemory("the agent prefers concise commit messages")
	b := newMemory("weather report for tomorrow morning")
	_, err := s.InsertMemory(ctx, a)
	require.NoError(t, err)
	_, err = s.InsertMemory(ctx, b)
	require.NoError(t, err)

	hits, err := s.LexicalSearch(ctx, "commit messages", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	require.Equal(t, a.ID, hits[0].MemoryID)
}

func TestVectorRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	m := newMemory("vector test")
	_, err := s.InsertMemory(ctx, m)
	require.NoError(t, err)

	want := []float32{0.5, -0.25, 0.125, 1.0}
	require.NoError(t, s.UpsertVector(ctx, model.Vector{MemoryID: m.ID, Values: want}))

	got, ok, err := s.GetVector(ctx, m.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, want, got.Values)
}

func TestContextSetGetClear(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, ok, err := s.GetContext(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	cc := model.CurrentContext{Text: "working on the billing migration", CreatedAt: time.Now().UTC(), TTLSeconds: 3600}
	require.NoError(t, s.SetContext(ctx, cc))

	got, ok, err := s.GetContext(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, cc.Text, got.Text)

	require.NoError(t, s.ClearContext(ctx))
	_, ok, err = s.GetContext(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAuditAppendQuery(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	m := newMemory("pin me")
	_, err := s.InsertMemory(ctx, m)
	require.NoError(t, err)

	entry := model.AuditEntry{
		ID:        uuid.NewString(),
		MemoryID:  m.ID,
		Action:    model.ActionPin,
		NewValue:  map[string]any{"pinned": true},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.AppendAudit(ctx, entry))

	entries, err := s.QueryAudit(ctx, m.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, model.ActionPin, entries[0].Action)
}

func TestTuningLogLatestValue(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	older := model.TuningLogEntry{
		ID: uuid.NewString(), Timestamp: time.Now().Add(-time.Hour), Parameter: "vector_weight",
		OldValue: "0.7", NewValue: "0.65", Source: model.TuningSourceAuto,
	}
	newer := model.TuningLogEntry{
		ID: uuid.NewString(), Timestamp: time.Now(), Parameter: "vector_weight",
		OldValue: "0.65", NewValue: "0.6", Source: model.TuningSourceAuto,
	}
	require.NoError(t, s.AppendTuningLog(ctx, older))
	require.NoError(t, s.AppendTuningLog(ctx, newer))

	latest, ok, err := s.LatestTuningValue(ctx, "vector_weight")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "0.6", latest.NewValue)
}

func TestMetaGetSet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, ok, err := s.GetMeta(ctx, model.MetaSchemaVersion)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.SetMeta(ctx, model.MetaSchemaVersion, "1"))
	v, ok, err := s.GetMeta(ctx, model.MetaSchemaVersion)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", v)
}

var _ registrystore.Store = (*Store)(nil)
