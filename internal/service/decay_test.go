package service_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/recurator/tram/internal/config"
	"github.com/recurator/tram/internal/model"
	"github.com/recurator/tram/internal/plugin/store/sqlite"
	registrystore "github.com/recurator/tram/internal/registry/store"
	"github.com/recurator/tram/internal/service"
)

func newDecayStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "tram.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// TestDecayDemotesHotToWarm: a HOT memory
// last accessed 73h ago with per-type TTL overrides {hot:72h, warm:60d,
// cold:180d} demotes to WARM, writes one "demote" audit entry, and records
// meta.last_decay_run.
func TestDecayDemotesHotToWarm(t *testing.T) {
	ctx := context.Background()
	st := newDecayStore(t)
	cfg := config.DefaultConfig()
	cfg.DecayOverrides = map[string]config.DecayOverride{
		"factual": {HotTTL: "72h", WarmTTL: "60d", ColdTTL: "180d"},
	}
	resolver := config.NewResolver(&cfg)

	now := time.Now().UTC()
	m := model.Memory{
		ID: uuid.NewString(), Text: "stale fact", Tier: model.TierHot,
		MemoryType: model.TypeFactual, CreatedAt: now.Add(-100 * time.Hour),
		LastAccessedAt: now.Add(-73 * time.Hour),
	}
	_, err := st.InsertMemory(ctx, m)
	require.NoError(t, err)

	engine := service.NewDecayEngine(st, &cfg, resolver, nil)
	report, err := engine.Run(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 1, report.Demotions)

	got, err := st.GetMemory(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, model.TierWarm, got.Tier)

	entries, err := st.QueryAudit(ctx, m.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, model.ActionDemote, entries[0].Action)
	require.Equal(t, string(model.TierHot), entries[0].OldValue["tier"])
	require.Equal(t, string(model.TierWarm), entries[0].NewValue["tier"])

	lastRun, ok, err := st.GetMeta(ctx, model.MetaLastDecayRun)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, lastRun)
}

// TestDecayIsIdempotent runs the engine twice with no intervening access and
// asserts the second pass makes no further changes to the already-demoted
// memory.
func TestDecayIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := newDecayStore(t)
	cfg := config.DefaultConfig()
	cfg.DecayOverrides = map[string]config.DecayOverride{
		"factual": {HotTTL: "72h", WarmTTL: "60d", ColdTTL: "180d"},
	}
	resolver := config.NewResolver(&cfg)

	now := time.Now().UTC()
	m := model.Memory{
		ID: uuid.NewString(), Text: "stale fact", Tier: model.TierHot,
		MemoryType: model.TypeFactual, CreatedAt: now.Add(-100 * time.Hour),
		LastAccessedAt: now.Add(-73 * time.Hour),
	}
	_, err := st.InsertMemory(ctx, m)
	require.NoError(t, err)

	engine := service.NewDecayEngine(st, &cfg, resolver, nil)
	_, err = engine.Run(ctx, "")
	require.NoError(t, err)

	firstRun, _, err := st.GetMeta(ctx, model.MetaLastDecayRun)
	require.NoError(t, err)

	report, err := engine.Run(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 0, report.Demotions)

	got, err := st.GetMemory(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, model.TierWarm, got.Tier)

	secondRun, _, err := st.GetMeta(ctx, model.MetaLastDecayRun)
	require.NoError(t, err)
	require.NotEqual(t, "", secondRun)
	_ = firstRun
}

// TestDecayNeverDemotesPinnedMemory: pinned memories keep their tier no
// matter how stale they are.
func TestDecayNeverDemotesPinnedMemory(t *testing.T) {
	ctx := context.Background()
	st := newDecayStore(t)
	cfg := config.DefaultConfig()
	cfg.DecayOverrides = map[string]config.DecayOverride{
		"factual": {HotTTL: "1h", WarmTTL: "1h", ColdTTL: "1h"},
	}
	resolver := config.NewResolver(&cfg)

	now := time.Now().UTC()
	m := model.Memory{
		ID: uuid.NewString(), Text: "pinned fact", Tier: model.TierHot,
		MemoryType: model.TypeFactual, Pinned: true,
		CreatedAt: now.Add(-1000 * time.Hour), LastAccessedAt: now.Add(-1000 * time.Hour),
	}
	_, err := st.InsertMemory(ctx, m)
	require.NoError(t, err)

	engine := service.NewDecayEngine(st, &cfg, resolver, nil)
	report, err := engine.Run(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 0, report.Demotions)

	got, err := st.GetMemory(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, model.TierHot, got.Tier)
}

var _ registrystore.Store = (*sqlite.Store)(nil)
