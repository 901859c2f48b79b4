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

func seedHotMemories(t *testing.T, ctx context.Context, st interface {
	InsertMemory(ctx context.Context, m model.Memory) (model.Memory, error)
}, n int) {
	t.Helper()
	now := time.Now().UTC()
	for i := 0; i < n; i++ {
		_, err := st.InsertMemory(ctx, model.Memory{
			ID: uuid.NewString(), Text: "hot memory", Tier: model.TierHot,
			MemoryType: model.TypeFactual, CreatedAt: now, LastAccessedAt: now,
		})
		require.NoError(t, err)
	}
}

// TestTuningLockPreventsAdjustmentUntilUnlocked: 60 HOT memories against the default hotTargetSize {min:10,
// max:50}; while importanceThreshold is locked, Run makes no change; after
// Unlock, Run bumps the value by +0.05, bounded by the configured max.
func TestTuningLockPreventsAdjustmentUntilUnlocked(t *testing.T) {
	ctx := context.Background()
	st := newDecayStore(t)
	cfg := config.DefaultConfig()
	reporter := service.NewReporter(nil, cfg.Reporter, nil)

	seedHotMemories(t, ctx, st, 60)

	require.NoError(t, service.Lock(ctx, st, service.ImportanceThresholdParameter, time.Now().Add(time.Hour), "operator investigating", nil))

	engine := service.NewTuningEngine(st, &cfg, reporter, nil)
	report, err := engine.Run(ctx)
	require.NoError(t, err)
	require.False(t, report.Adjusted)

	require.NoError(t, service.Unlock(ctx, st, service.ImportanceThresholdParameter, "done investigating", nil))

	report, err = engine.Run(ctx)
	require.NoError(t, err)
	require.True(t, report.Adjusted)
	require.InDelta(t, cfg.Injection.MinScore+cfg.Tuning.Step, report.NewValue, 1e-9)
	require.LessOrEqual(t, report.NewValue, cfg.Tuning.MaxBound)
}

// TestTuningNoOpWhenHotWithinBand asserts the control loop makes no change
// when the HOT tier count already sits inside the target band.
func TestTuningNoOpWhenHotWithinBand(t *testing.T) {
	ctx := context.Background()
	st := newDecayStore(t)
	cfg := config.DefaultConfig()
	reporter := service.NewReporter(nil, cfg.Reporter, nil)

	seedHotMemories(t, ctx, st, 20) // within [10,50]

	engine := service.NewTuningEngine(st, &cfg, reporter, nil)
	report, err := engine.Run(ctx)
	require.NoError(t, err)
	require.False(t, report.Adjusted)
}

// TestTuningDisabledModeIsNoOp asserts mode=manual/disabled gating.
func TestTuningDisabledModeIsNoOp(t *testing.T) {
	ctx := context.Background()
	st := newDecayStore(t)
	cfg := config.DefaultConfig()
	cfg.Tuning.Mode = config.ModeManual
	reporter := service.NewReporter(nil, cfg.Reporter, nil)

	seedHotMemories(t, ctx, st, 60)

	engine := service.NewTuningEngine(st, &cfg, reporter, nil)
	report, err := engine.Run(ctx)
	require.NoError(t, err)
	require.False(t, report.Adjusted)
}

// TestUnlockUnlockedParameterIsIllegalState asserts Unlock rejects a
// parameter that is already Free.
func TestUnlockUnlockedParameterIsIllegalState(t *testing.T) {
	ctx := context.Background()
	st := newDecayStore(t)

	err := service.Unlock(ctx, st, service.ImportanceThresholdParameter, "no-op", nil)
	require.Error(t, err)
	var ise *model.IllegalStateError
	require.ErrorAs(t, err, &ise)
}
