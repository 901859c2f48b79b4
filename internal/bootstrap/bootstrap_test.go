package bootstrap_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/recurator/tram/internal/bootstrap"
	"github.com/recurator/tram/internal/config"
)

// testConfig builds a Config that wires only dependency-free backends
// (local embedder, exhaustive vector scan, no-op cache, log channel) so tests
// never touch the network or a native sqlite extension.
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

func TestNewWiresAllComponents(t *testing.T) {
	ctx := context.Background()
	app, err := bootstrap.New(ctx, testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	require.NotNil(t, app.Store)
	require.NotNil(t, app.Vector)
	require.NotNil(t, app.Embedder)
	require.NotNil(t, app.Cache)
	require.NotNil(t, app.Channel)
	require.NotNil(t, app.Engine)
	require.NotNil(t, app.Cycle)
	require.NotNil(t, app.Recall)
	require.NotNil(t, app.Capture)
	require.Equal(t, "exhaustive", app.Vector.Name())
}

func TestNewFallsBackToExhaustiveWhenSqlitevecUnavailable(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.VectorBackend = "sqlitevec"
	app, err := bootstrap.New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	// sqlitevec either succeeds (native extension present) or falls back;
	// either way New must not fail and must return a usable index.
	require.NotEmpty(t, app.Vector.Name())
}

func TestCloseIsSafeToCallTwice(t *testing.T) {
	// Close must be safe to call twice (withApp's defer plus an explicit
	// caller Close, e.g. in an error path).
	ctx := context.Background()
	app, err := bootstrap.New(ctx, testConfig(t))
	require.NoError(t, err)
	require.NoError(t, app.Close())
	require.NoError(t, app.Close())
}
