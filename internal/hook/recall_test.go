package hook_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/recurator/tram/internal/bootstrap"
	"github.com/recurator/tram/internal/config"
	"github.com/recurator/tram/internal/core"
	"github.com/recurator/tram/internal/hook"
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
	// Use the "narrow" budget profile (pinned 70 / hot 20 / warm 10 / cold 0)
	// so every seeded HOT memory competes for the same small hot bucket.
	cfg.GlobalRetrievalProfile = "narrow" // hot bucket gets floor(max_items*20/100) slots
	return &cfg
}

// TestAutoRecallDensityMatchesInjectedOverConsidered: 10 HOT memories
// present, max_items=5 with budgets giving the
// entire allocation to HOT; AutoRecallHook over a prompt matching all of
// them records one feedback row per injected memory, each with
// injection_density = 5/10 = 0.5.
func TestAutoRecallDensityMatchesInjectedOverConsidered(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Injection.MaxItems = 5
	cfg.RetrievalProfiles = map[string]config.RetrievalProfileConfig{
		"all-hot": {Pinned: 0, Hot: 100, Warm: 0, Cold: 0, Archive: 0},
	}
	cfg.GlobalRetrievalProfile = "all-hot"

	app, err := bootstrap.New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	for i := 0; i < 10; i++ {
		_, err := app.Engine.Store(ctx, core.StoreOptions{
			Text: fmt.Sprintf("shared project onboarding note number %d", i),
			Tier: "HOT",
		})
		require.NoError(t, err)
	}

	recall := hook.NewAutoRecallHook(app.Engine)
	result, err := recall.Run(ctx, "shared project onboarding note", hook.RequestContext{SessionKey: "sess-1", SessionType: "main"})
	require.NoError(t, err)
	require.Equal(t, 5, result.MemoriesInjected)

	// Feedback recording is fire-and-forget; poll briefly for the rows to
	// land rather than sleeping a fixed duration.
	require.Eventually(t, func() bool {
		rows, err := countAllFeedback(ctx, app)
		return err == nil && rows == 5
	}, 2*time.Second, 10*time.Millisecond)

	densities, err := allFeedbackDensities(ctx, app)
	require.NoError(t, err)
	for _, d := range densities {
		require.InDelta(t, 0.5, d, 1e-9)
	}
}

// TestAutoRecallSessionGateOff asserts the hook is a no-op when the session
// type's autoInject gate is disabled.
func TestAutoRecallSessionGateOff(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Sessions["main"] = config.SessionTypeConfig{AutoInject: false, AutoCapture: true, DefaultTier: "HOT"}

	app, err := bootstrap.New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	_, err = app.Engine.Store(ctx, core.StoreOptions{Text: "irrelevant to this test", Tier: "HOT"})
	require.NoError(t, err)

	recall := hook.NewAutoRecallHook(app.Engine)
	result, err := recall.Run(ctx, "irrelevant", hook.RequestContext{SessionType: "main"})
	require.NoError(t, err)
	require.Equal(t, 0, result.MemoriesInjected)
}

// TestAutoRecallUnknownSessionKeyDefaultsToUnknown: feedback rows fall
// back to the session key "unknown" when the host omits one.
func TestAutoRecallUnknownSessionKeyDefaultsToUnknown(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Injection.MaxItems = 5

	app, err := bootstrap.New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	stored, err := app.Engine.Store(ctx, core.StoreOptions{Text: "a note about deployment pipelines", Tier: "HOT"})
	require.NoError(t, err)

	recall := hook.NewAutoRecallHook(app.Engine)
	result, err := recall.Run(ctx, "deployment pipelines", hook.RequestContext{SessionType: "main"})
	require.NoError(t, err)
	require.Equal(t, 1, result.MemoriesInjected)

	require.Eventually(t, func() bool {
		feedback, err := app.Store.QueryFeedback(ctx, stored.ID, 10)
		return err == nil && len(feedback) == 1
	}, 2*time.Second, 10*time.Millisecond)

	feedback, err := app.Store.QueryFeedback(ctx, stored.ID, 10)
	require.NoError(t, err)
	require.Len(t, feedback, 1)
	require.Equal(t, "unknown", feedback[0].SessionKey)
}

func countAllFeedback(ctx context.Context, app *bootstrap.App) (int, error) {
	memories, err := app.Store.ListAll(ctx, true)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, m := range memories {
		rows, err := app.Store.QueryFeedback(ctx, m.ID, 10)
		if err != nil {
			return 0, err
		}
		total += len(rows)
	}
	return total, nil
}

func allFeedbackDensities(ctx context.Context, app *bootstrap.App) ([]float64, error) {
	memories, err := app.Store.ListAll(ctx, true)
	if err != nil {
		return nil, err
	}
	var out []float64
	for _, m := range memories {
		rows, err := app.Store.QueryFeedback(ctx, m.ID, 10)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			out = append(out, r.InjectionDensity)
		}
	}
	return out, nil
}
