// Package bootstrap wires a Config into a fully assembled set of backend
// plugins (store/vector/embedder/cache/channel) and the core engine/hook/
// background-cycle objects built on top of them. Every TRAM entrypoint
// (CLI commands, an embedding host process) goes through New.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/recurator/tram/internal/config"
	"github.com/recurator/tram/internal/core"
	"github.com/recurator/tram/internal/hook"
	registrycache "github.com/recurator/tram/internal/registry/cache"
	registrychannel "github.com/recurator/tram/internal/registry/channel"
	registryembed "github.com/recurator/tram/internal/registry/embed"
	registrystore "github.com/recurator/tram/internal/registry/store"
	registryvector "github.com/recurator/tram/internal/registry/vector"
	"github.com/recurator/tram/internal/service"

	// Blank-import every backend plugin so its init() registers with the
	// matching registry.
	_ "github.com/recurator/tram/internal/plugin/cache/noop"
	_ "github.com/recurator/tram/internal/plugin/cache/ristretto"
	_ "github.com/recurator/tram/internal/plugin/channel/discord"
	_ "github.com/recurator/tram/internal/plugin/channel/logchannel"
	_ "github.com/recurator/tram/internal/plugin/channel/none"
	_ "github.com/recurator/tram/internal/plugin/channel/slack"
	_ "github.com/recurator/tram/internal/plugin/channel/telegram"
	_ "github.com/recurator/tram/internal/plugin/embed/disabled"
	_ "github.com/recurator/tram/internal/plugin/embed/local"
	_ "github.com/recurator/tram/internal/plugin/embed/openai"
	_ "github.com/recurator/tram/internal/plugin/store/sqlite"
	_ "github.com/recurator/tram/internal/plugin/vector/exhaustive"
	_ "github.com/recurator/tram/internal/plugin/vector/sqlitevec"
)

// App holds every wired component a CLI command or hook handler needs.
type App struct {
	Cfg      *config.Config
	Resolver *config.Resolver
	Store    registrystore.Store
	Vector   registryvector.Index
	Embedder registryembed.Embedder
	Cache    registrycache.SearchCache
	Channel  registrychannel.Channel
	Engine   *core.Engine
	Cycle    *service.Cycle
	Recall   *hook.AutoRecallHook
	Capture  *hook.AutoCaptureHook
}

// Close releases the Store (and any backend holding its own resources).
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// New selects and opens every backend named in cfg, falling back from the
// native vector ANN index to the exhaustive scan when the native extension
// is unavailable.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	storeLoader, err := registrystore.Select("sqlite")
	if err != nil {
		return nil, err
	}
	st, err := storeLoader(ctx, cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	vector, err := openVector(ctx, cfg, st)
	if err != nil {
		st.Close()
		return nil, err
	}

	embedLoader, err := registryembed.Select(cfg.EmbedType)
	if err != nil {
		st.Close()
		return nil, err
	}
	embedder, err := embedLoader(ctx, cfg.OpenAIModelName, cfg.EmbedDimension, cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("init embedder: %w", err)
	}

	cacheLoader, err := registrycache.Select(cfg.CacheBackend)
	if err != nil {
		st.Close()
		return nil, err
	}
	cache, err := cacheLoader(ctx)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("init cache: %w", err)
	}

	channelLoader, err := registrychannel.Select(string(cfg.Reporter.Channel))
	if err != nil {
		st.Close()
		return nil, err
	}
	channel, err := channelLoader(ctx)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("init reporter channel: %w", err)
	}

	resolver := config.NewResolver(cfg)
	engine := core.New(st, vector, embedder, cache, cfg, resolver, nil)
	cycle := service.NewCycle(st, cfg, resolver, channel, nil)
	recall := hook.NewAutoRecallHook(engine)
	capture := hook.NewAutoCaptureHook(engine)

	return &App{
		Cfg: cfg, Resolver: resolver, Store: st, Vector: vector, Embedder: embedder,
		Cache: cache, Channel: channel, Engine: engine, Cycle: cycle, Recall: recall, Capture: capture,
	}, nil
}

// openVector selects cfg.VectorBackend, transparently falling back to the
// exhaustive scan when the native backend (currently only "sqlitevec")
// cannot be initialized in this process.
func openVector(ctx context.Context, cfg *config.Config, st registrystore.Store) (registryvector.Index, error) {
	backend := cfg.VectorBackend
	if backend == "" {
		backend = "sqlitevec"
	}
	if backend == "sqlitevec" {
		loader, err := registryvector.Select("sqlitevec")
		if err == nil {
			handle, ok := st.(dbHandle)
			if ok {
				idx, err := loader(ctx, handle.DB())
				if err == nil {
					return idx, nil
				}
				log.Warn("sqlitevec unavailable, falling back to exhaustive vector search", "err", err)
			}
		}
		backend = "exhaustive"
	}
	loader, err := registryvector.Select(backend)
	if err != nil {
		return nil, err
	}
	return loader(ctx, st)
}

// dbHandle is satisfied by the sqlite Store, letting the sqlitevec loader
// share its *sql.DB without bootstrap importing the sqlite package's
// concrete type.
type dbHandle interface {
	DB() *sql.DB
}
