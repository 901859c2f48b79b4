package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/recurator/tram/internal/config"
	"github.com/recurator/tram/internal/model"
	"github.com/recurator/tram/internal/service"
)

// TestPromotionColdToWarm: a COLD
// memory meeting the active profile's use-count and distinct-day thresholds
// is promoted to WARM with an audit entry.
func TestPromotionColdToWarm(t *testing.T) {
	ctx := context.Background()
	st := newDecayStore(t)
	cfg := config.DefaultConfig()
	cfg.GlobalPromotionProfile = "fair" // uses:2, days:2
	resolver := config.NewResolver(&cfg)

	now := time.Now().UTC()
	m := model.Memory{
		ID: uuid.NewString(), Text: "frequently recalled", Tier: model.TierCold,
		MemoryType: model.TypeFactual, CreatedAt: now.Add(-10 * 24 * time.Hour),
		LastAccessedAt: now, UseCount: 3, UseDays: []string{"2026-07-27", "2026-07-28"},
	}
	_, err := st.InsertMemory(ctx, m)
	require.NoError(t, err)

	engine := service.NewPromotionEngine(st, resolver, nil)
	report, err := engine.Run(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 1, report.Promotions)

	got, err := st.GetMemory(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, model.TierWarm, got.Tier)

	entries, err := st.QueryAudit(ctx, m.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, model.ActionPromote, entries[0].Action)
}

// TestPromotionColdToWarmBelowThresholdNoChange asserts the engine leaves a
// COLD memory alone when it falls short of the profile's thresholds.
func TestPromotionColdToWarmBelowThresholdNoChange(t *testing.T) {
	ctx := context.Background()
	st := newDecayStore(t)
	cfg := config.DefaultConfig()
	cfg.GlobalPromotionProfile = "fair" // uses:2, days:2
	resolver := config.NewResolver(&cfg)

	now := time.Now().UTC()
	m := model.Memory{
		ID: uuid.NewString(), Text: "barely used", Tier: model.TierCold,
		MemoryType: model.TypeFactual, CreatedAt: now.Add(-10 * 24 * time.Hour),
		LastAccessedAt: now, UseCount: 1, UseDays: []string{"2026-07-28"},
	}
	_, err := st.InsertMemory(ctx, m)
	require.NoError(t, err)

	engine := service.NewPromotionEngine(st, resolver, nil)
	report, err := engine.Run(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 0, report.Promotions)

	got, err := st.GetMemory(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, model.TierCold, got.Tier)
}

// TestPromotionWarmToHotRequiresStrongerEvidence: WARM->HOT needs double
// the use-count and one extra distinct day versus the active profile's
// COLD->WARM thresholds.
func TestPromotionWarmToHotRequiresStrongerEvidence(t *testing.T) {
	ctx := context.Background()
	st := newDecayStore(t)
	cfg := config.DefaultConfig()
	cfg.GlobalPromotionProfile = "fair" // uses:2, days:2 -> warm->hot needs uses:4, days:3
	resolver := config.NewResolver(&cfg)
	now := time.Now().UTC()

	notEnough := model.Memory{
		ID: uuid.NewString(), Text: "warm but not hot yet", Tier: model.TierWarm,
		MemoryType: model.TypeFactual, CreatedAt: now.Add(-10 * 24 * time.Hour),
		LastAccessedAt: now, UseCount: 3, UseDays: []string{"2026-07-26", "2026-07-27"},
	}
	_, err := st.InsertMemory(ctx, notEnough)
	require.NoError(t, err)

	enough := model.Memory{
		ID: uuid.NewString(), Text: "warm and heavily used", Tier: model.TierWarm,
		MemoryType: model.TypeFactual, CreatedAt: now.Add(-10 * 24 * time.Hour),
		LastAccessedAt: now, UseCount: 5, UseDays: []string{"2026-07-25", "2026-07-26", "2026-07-27"},
	}
	_, err = st.InsertMemory(ctx, enough)
	require.NoError(t, err)

	engine := service.NewPromotionEngine(st, resolver, nil)
	report, err := engine.Run(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 1, report.Promotions)

	gotNotEnough, err := st.GetMemory(ctx, notEnough.ID)
	require.NoError(t, err)
	require.Equal(t, model.TierWarm, gotNotEnough.Tier)

	gotEnough, err := st.GetMemory(ctx, enough.ID)
	require.NoError(t, err)
	require.Equal(t, model.TierHot, gotEnough.Tier)
}

// TestPromotionSkipsPinnedMemories asserts pinned memories are left alone
// even when their use stats clear the promotion threshold.
func TestPromotionSkipsPinnedMemories(t *testing.T) {
	ctx := context.Background()
	st := newDecayStore(t)
	cfg := config.DefaultConfig()
	cfg.GlobalPromotionProfile = "forgiving" // uses:1, days:1
	resolver := config.NewResolver(&cfg)
	now := time.Now().UTC()

	m := model.Memory{
		ID: uuid.NewString(), Text: "pinned cold memory", Tier: model.TierCold, Pinned: true,
		MemoryType: model.TypeFactual, CreatedAt: now.Add(-10 * 24 * time.Hour),
		LastAccessedAt: now, UseCount: 5, UseDays: []string{"2026-07-28"},
	}
	_, err := st.InsertMemory(ctx, m)
	require.NoError(t, err)

	engine := service.NewPromotionEngine(st, resolver, nil)
	report, err := engine.Run(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 0, report.Promotions)
}
