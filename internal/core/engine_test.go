package core_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/recurator/tram/internal/bootstrap"
	"github.com/recurator/tram/internal/config"
	"github.com/recurator/tram/internal/core"
	"github.com/recurator/tram/internal/model"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.StorePath = filepath.Join(t.TempDir(), "tram.db")
	cfg.VectorBackend = "exhaustive"
	cfg.CacheBackend = "none"
	cfg.EmbedType = "local"
	cfg.EmbedDimension = 32
	cfg.Reporter.Channel = config.ChannelLog
	return &cfg
}

// TestStoreDetectsDuplicate: inserting the
// same text twice returns the original id with isDuplicate=true and
// similarity >= 0.95 on the second call.
func TestStoreDetectsDuplicate(t *testing.T) {
	ctx := context.Background()
	app, err := bootstrap.New(ctx, testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	first, err := app.Engine.Store(ctx, core.StoreOptions{Text: "Machine learning is a subset of AI"})
	require.NoError(t, err)
	require.False(t, first.IsDuplicate)
	require.NotEmpty(t, first.ID)

	second, err := app.Engine.Store(ctx, core.StoreOptions{Text: "Machine learning is a subset of AI"})
	require.NoError(t, err)
	require.True(t, second.IsDuplicate)
	require.Equal(t, first.ID, second.ID)
	require.GreaterOrEqual(t, second.Similarity, 0.95)
}

// TestStoreDistinctTextIsNotDuplicate asserts unrelated text is stored as a
// new memory.
func TestStoreDistinctTextIsNotDuplicate(t *testing.T) {
	ctx := context.Background()
	app, err := bootstrap.New(ctx, testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	a, err := app.Engine.Store(ctx, core.StoreOptions{Text: "Machine learning is a subset of AI"})
	require.NoError(t, err)
	b, err := app.Engine.Store(ctx, core.StoreOptions{Text: "The weather tomorrow is expected to be sunny"})
	require.NoError(t, err)

	require.False(t, b.IsDuplicate)
	require.NotEqual(t, a.ID, b.ID)
}

// TestForgetHidesFromDefaultRecall: a
// forgotten memory is absent from a default recall and present with
// forgotten=true when includeForgotten is requested.
func TestForgetHidesFromDefaultRecall(t *testing.T) {
	ctx := context.Background()
	app, err := bootstrap.New(ctx, testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	stored, err := app.Engine.Store(ctx, core.StoreOptions{Text: "Temporary note about auth"})
	require.NoError(t, err)

	require.NoError(t, app.Engine.Forget(ctx, stored.ID, false))

	defaultHits, err := app.Engine.Recall(ctx, core.RecallOptions{Query: "auth"})
	require.NoError(t, err)
	for _, h := range defaultHits {
		require.NotEqual(t, stored.ID, h.ID)
	}

	withForgotten, err := app.Engine.Recall(ctx, core.RecallOptions{Query: "auth", IncludeForgotten: true})
	require.NoError(t, err)
	var found bool
	for _, h := range withForgotten {
		if h.ID == stored.ID {
			found = true
			require.True(t, h.Forgotten)
		}
	}
	require.True(t, found)
}

// TestRestoreFailsWhenNotForgotten asserts Restore rejects a memory that was
// never forgotten.
func TestRestoreFailsWhenNotForgotten(t *testing.T) {
	ctx := context.Background()
	app, err := bootstrap.New(ctx, testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	stored, err := app.Engine.Store(ctx, core.StoreOptions{Text: "never forgotten"})
	require.NoError(t, err)

	err = app.Engine.Restore(ctx, stored.ID)
	require.Error(t, err)
}

// TestPinColdMemoryPromotesToWarm: pinning a COLD memory promotes it to
// WARM.
func TestPinColdMemoryPromotesToWarm(t *testing.T) {
	ctx := context.Background()
	app, err := bootstrap.New(ctx, testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	stored, err := app.Engine.Store(ctx, core.StoreOptions{Text: "cold memory", Tier: "COLD"})
	require.NoError(t, err)

	require.NoError(t, app.Engine.Pin(ctx, stored.ID))

	m, err := app.Store.GetMemory(ctx, stored.ID)
	require.NoError(t, err)
	require.True(t, m.Pinned)
	require.Equal(t, "WARM", string(m.Tier))
}

// TestPinAlreadyPinnedIsIllegalState asserts double-pinning fails.
func TestPinAlreadyPinnedIsIllegalState(t *testing.T) {
	ctx := context.Background()
	app, err := bootstrap.New(ctx, testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	stored, err := app.Engine.Store(ctx, core.StoreOptions{Text: "pin me once"})
	require.NoError(t, err)
	require.NoError(t, app.Engine.Pin(ctx, stored.ID))

	err = app.Engine.Pin(ctx, stored.ID)
	require.Error(t, err)
}

// TestRecallExcludesPinnedArchiveByDefault: pinning does not exempt an
// ARCHIVE memory from the default includeArchive=false filter.
func TestRecallExcludesPinnedArchiveByDefault(t *testing.T) {
	ctx := context.Background()
	app, err := bootstrap.New(ctx, testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	stored, err := app.Engine.Store(ctx, core.StoreOptions{Text: "archived release checklist", Tier: "ARCHIVE", Pinned: true})
	require.NoError(t, err)

	hits, err := app.Engine.Recall(ctx, core.RecallOptions{Query: "archived release checklist"})
	require.NoError(t, err)
	for _, h := range hits {
		require.NotEqual(t, stored.ID, h.ID)
	}

	withArchive, err := app.Engine.Recall(ctx, core.RecallOptions{Query: "archived release checklist", IncludeArchive: true})
	require.NoError(t, err)
	var found bool
	for _, h := range withArchive {
		if h.ID == stored.ID {
			found = true
		}
	}
	require.True(t, found)
}

// TestTunePersistAgentScopeRequiresAgentID: persisting an agent-scoped
// override without an agent id is invalid input, not a silent no-op.
func TestTunePersistAgentScopeRequiresAgentID(t *testing.T) {
	ctx := context.Background()
	app, err := bootstrap.New(ctx, testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	_, err = app.Engine.Tune(ctx, core.TuneOptions{
		Retrieval: "balanced",
		Persist:   true,
		Scope:     core.ScopeAgent,
	})
	require.Error(t, err)
	var iie *model.InvalidInputError
	require.ErrorAs(t, err, &iie)
	require.Equal(t, "agent", iie.Field)
}
