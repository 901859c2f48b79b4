package search_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	_ "github.com/recurator/tram/internal/plugin/embed/local"
	sqlitestore "github.com/recurator/tram/internal/plugin/store/sqlite"
	_ "github.com/recurator/tram/internal/plugin/vector/exhaustive"

	"github.com/recurator/tram/internal/model"
	registryembed "github.com/recurator/tram/internal/registry/embed"
	registryvector "github.com/recurator/tram/internal/registry/vector"
	"github.com/recurator/tram/internal/search"
)

func TestHybridSearchBlendsLegsAndDedupes(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tram.db")
	st, err := sqlitestore.Open(ctx, path)
	require.NoError(t, err)
	defer st.Close()

	embedLoader, err := registryembed.Select("local")
	require.NoError(t, err)
	embedder, err := embedLoader(ctx, "", 64, "", "")
	require.NoError(t, err)

	vectorLoader, err := registryvector.Select("exhaustive")
	require.NoError(t, err)
	idx, err := vectorLoader(ctx, st)
	require.NoError(t, err)

	mA := model.Memory{ID: uuid.NewString(), Text: "the user likes terse commit messages", CreatedAt: time.Now(), Tier: model.TierHot, MemoryType: model.TypeFactual}
	mB := model.Memory{ID: uuid.NewString(), Text: "weather report for tomorrow morning rain", CreatedAt: time.Now(), Tier: model.TierHot, MemoryType: model.TypeFactual}
	_, err = st.InsertMemory(ctx, mA)
	require.NoError(t, err)
	_, err = st.InsertMemory(ctx, mB)
	require.NoError(t, err)

	vecs, err := embedder.EmbedTexts(ctx, []string{mA.Text, mB.Text})
	require.NoError(t, err)
	require.NoError(t, st.UpsertVector(ctx, model.Vector{MemoryID: mA.ID, Values: vecs[0]}))
	require.NoError(t, st.UpsertVector(ctx, model.Vector{MemoryID: mB.ID, Values: vecs[1]}))

	results, err := search.Search(ctx, st, idx, embedder, "terse commit messages", 10, search.Weights{})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, mA.ID, results[0].MemoryID)
	// mA is a hit in both legs and must appear only once.
	seen := 0
	for _, r := range results {
		if r.MemoryID == mA.ID {
			seen++
		}
	}
	require.Equal(t, 1, seen)
}

func TestHybridSearchLexicalOnlyWhenEmbeddingDisabled(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tram.db")
	st, err := sqlitestore.Open(ctx, path)
	require.NoError(t, err)
	defer st.Close()

	vectorLoader, err := registryvector.Select("exhaustive")
	require.NoError(t, err)
	idx, err := vectorLoader(ctx, st)
	require.NoError(t, err)

	m := model.Memory{ID: uuid.NewString(), Text: "keep calm and ship it", CreatedAt: time.Now(), Tier: model.TierHot, MemoryType: model.TypeFactual}
	_, err = st.InsertMemory(ctx, m)
	require.NoError(t, err)

	results, err := search.Search(ctx, st, idx, nil, "ship it", 10, search.Weights{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, m.ID, results[0].MemoryID)
	require.Zero(t, results[0].VectorScore)
}
