package scoring_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/recurator/tram/internal/model"
	"github.com/recurator/tram/internal/scoring"
)

func TestScorePinnedBypassesDecay(t *testing.T) {
	now := time.Now()
	m := model.Memory{
		Pinned:         true,
		Tier:           model.TierCold,
		MemoryType:     model.TypeEpisodic,
		LastAccessedAt: now.Add(-365 * 24 * time.Hour),
	}
	exp := scoring.Explain(m, 0.8, now, scoring.DefaultWeights())
	require.Equal(t, 1.0, exp.RecencyComponent)
}

func TestScoreColdTierHalvesRecency(t *testing.T) {
	now := time.Now()
	base := model.Memory{MemoryType: model.TypeFactual, LastAccessedAt: now}
	hot := base
	hot.Tier = model.TierHot
	cold := base
	cold.Tier = model.TierCold

	hotExp := scoring.Explain(hot, 0.5, now, scoring.DefaultWeights())
	coldExp := scoring.Explain(cold, 0.5, now, scoring.DefaultWeights())
	require.InDelta(t, hotExp.RecencyComponent/2, coldExp.RecencyComponent, 1e-9)
}

func TestScoreClampedToUnitInterval(t *testing.T) {
	now := time.Now()
	m := model.Memory{Pinned: true, MemoryType: model.TypeProject, UseCount: 1_000_000, LastAccessedAt: now}
	exp := scoring.Explain(m, 1.0, now, scoring.DefaultWeights())
	require.LessOrEqual(t, exp.Score, 1.0)
	require.GreaterOrEqual(t, exp.Score, 0.0)
}

func TestExplainEligibility(t *testing.T) {
	archived := model.Memory{Tier: model.TierArchive}
	require.False(t, scoring.Explain(archived, 0, time.Now(), scoring.DefaultWeights()).Eligible)

	pinnedArchived := model.Memory{Tier: model.TierArchive, Pinned: true}
	require.True(t, scoring.Explain(pinnedArchived, 0, time.Now(), scoring.DefaultWeights()).Eligible)

	forgotten := model.Memory{DoNotInject: true}
	require.False(t, scoring.Explain(forgotten, 0, time.Now(), scoring.DefaultWeights()).Eligible)
}

func TestHalfLivesByMemoryType(t *testing.T) {
	now := time.Now()
	age := 90 * 24 * time.Hour
	factual := model.Memory{MemoryType: model.TypeFactual, LastAccessedAt: now.Add(-age)}
	episodic := model.Memory{MemoryType: model.TypeEpisodic, LastAccessedAt: now.Add(-age)}

	factualExp := scoring.Explain(factual, 0, now, scoring.DefaultWeights())
	episodicExp := scoring.Explain(episodic, 0, now, scoring.DefaultWeights())
	require.Greater(t, factualExp.RecencyComponent, episodicExp.RecencyComponent)
}
