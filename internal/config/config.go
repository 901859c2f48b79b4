// Package config holds TRAM's runtime configuration: store/vector/embedder
// backend selection, injection/tuning/decay/promotion/reporter settings, and
// per-session-type and per-agent overrides. A flat struct with a
// DefaultConfig constructor and env-var overrides.
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// TuningMode gates whether the TuningEngine may act.
type TuningMode string

const (
	ModeAuto     TuningMode = "auto"
	ModeHybrid   TuningMode = "hybrid"
	ModeManual   TuningMode = "manual"
	ModeDisabled TuningMode = "disabled"
)

// ReporterFrequency controls how the Reporter batches adjustments.
type ReporterFrequency string

const (
	FrequencyOnChange      ReporterFrequency = "on-change"
	FrequencyDailySummary  ReporterFrequency = "daily-summary"
	FrequencyWeeklySummary ReporterFrequency = "weekly-summary"
)

// ChannelKind selects the Reporter's delivery channel.
type ChannelKind string

const (
	ChannelLog      ChannelKind = "log"
	ChannelTelegram ChannelKind = "telegram"
	ChannelDiscord  ChannelKind = "discord"
	ChannelSlack    ChannelKind = "slack"
	ChannelNone     ChannelKind = "none"
)

// TierTarget is a [min,max] band the TuningEngine tries to keep a tier
// within.
type TierTarget struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// InjectionConfig governs Allocator defaults used by AutoRecallHook.
type InjectionConfig struct {
	MaxItems  int     `yaml:"max_items"`
	MinScore  float64 `yaml:"min_score"` // default/fallback importanceThreshold
	Retrieval string  `yaml:"retrieval"` // retrieval profile name; not read by the Resolver, which falls back to GlobalRetrievalProfile and then the builtin default
}

// TuningConfig governs the TuningEngine control loop.
type TuningConfig struct {
	Enabled     bool       `yaml:"enabled"`
	Mode        TuningMode `yaml:"mode"`
	Step        float64    `yaml:"step"`
	MinBound    float64    `yaml:"min_bound"`
	MaxBound    float64    `yaml:"max_bound"`
	HotTarget   TierTarget `yaml:"hot_target"`
	IntervalHrs float64    `yaml:"interval_hours"`
}

// ReporterConfig governs notification delivery.
type ReporterConfig struct {
	Enabled        bool              `yaml:"enabled"`
	Channel        ChannelKind       `yaml:"channel"`
	Frequency      ReporterFrequency `yaml:"frequency"`
	IncludeMetrics bool              `yaml:"include_metrics"`
}

// SessionTypeConfig controls AutoRecallHook/AutoCaptureHook gating for one
// session type (main/cron/spawned).
type SessionTypeConfig struct {
	AutoInject  bool   `yaml:"auto_inject"`
	AutoCapture bool   `yaml:"auto_capture"`
	DefaultTier string `yaml:"default_tier"`
}

// AgentConfig holds an agent-scoped profile override set.
type AgentConfig struct {
	Retrieval string `yaml:"retrieval"`
	Decay     string `yaml:"decay"`
	Promotion string `yaml:"promotion"`
}

// DecayOverride allows per-memory-type TTL overrides bypassing the active
// decay profile.
type DecayOverride struct {
	HotTTL  string `yaml:"hot_ttl"`
	WarmTTL string `yaml:"warm_ttl"`
	ColdTTL string `yaml:"cold_ttl"`
}

// Config holds all configuration for the TRAM engine.
type Config struct {
	// Store
	StorePath string `yaml:"store_path"`

	// Vector backend: "sqlitevec" (native ANN, falls back automatically) or
	// "exhaustive" (force the linear fallback, e.g. for tests).
	VectorBackend string `yaml:"vector_backend"`

	// Cache: "ristretto" (in-process hot-candidate cache) or "none".
	CacheBackend string `yaml:"cache_backend"`

	// Embedder: "local", "openai", or "none".
	EmbedType       string `yaml:"embed_type"`
	EmbedDimension  int    `yaml:"embed_dimension"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	OpenAIModelName string `yaml:"openai_model"`
	OpenAIBaseURL   string `yaml:"openai_base_url"`

	Injection InjectionConfig `yaml:"injection"`
	Tuning    TuningConfig    `yaml:"tuning"`
	Reporter  ReporterConfig  `yaml:"reporter"`

	DecayIntervalHrs float64                  `yaml:"decay_interval_hours"`
	DecayOverrides   map[string]DecayOverride `yaml:"decay_overrides"` // memory_type -> override

	Sessions map[string]SessionTypeConfig `yaml:"sessions"`
	Agents   map[string]AgentConfig       `yaml:"agents"`

	RetrievalProfiles map[string]RetrievalProfileConfig `yaml:"retrieval_profiles"`
	DecayProfiles     map[string]DecayProfileConfig     `yaml:"decay_profiles"`
	PromotionProfiles map[string]PromotionProfileConfig `yaml:"promotion_profiles"`

	// Global-scope profile selections (lowest priority above builtin).
	GlobalRetrievalProfile string `yaml:"global_retrieval_profile"`
	GlobalDecayProfile     string `yaml:"global_decay_profile"`
	GlobalPromotionProfile string `yaml:"global_promotion_profile"`
}

// RetrievalProfileConfig is the YAML-shaped form of a custom RetrievalProfile.
type RetrievalProfileConfig struct {
	Pinned  int `yaml:"pinned"`
	Hot     int `yaml:"hot"`
	Warm    int `yaml:"warm"`
	Cold    int `yaml:"cold"`
	Archive int `yaml:"archive"`
}

// DecayProfileConfig is the YAML-shaped form of a custom DecayProfile.
type DecayProfileConfig struct {
	HotTTL  string `yaml:"hot_ttl"`
	WarmTTL string `yaml:"warm_ttl"`
	ColdTTL string `yaml:"cold_ttl"`
}

// PromotionProfileConfig is the YAML-shaped form of a custom PromotionProfile.
type PromotionProfileConfig struct {
	Uses int `yaml:"uses"`
	Days int `yaml:"days"`
}

// DefaultConfig returns a Config with TRAM's documented defaults.
func DefaultConfig() Config {
	return Config{
		StorePath:       "tram.db",
		VectorBackend:   "sqlitevec",
		CacheBackend:    "ristretto",
		EmbedType:       "local",
		EmbedDimension:  384,
		OpenAIModelName: "text-embedding-3-small",
		OpenAIBaseURL:   "https://api.openai.com/v1",
		Injection: InjectionConfig{
			MaxItems:  10,
			MinScore:  0.5,
			Retrieval: DefaultRetrievalProfile,
		},
		Tuning: TuningConfig{
			Enabled:  true,
			Mode:     ModeAuto,
			Step:     0.05,
			MinBound: 0.1,
			MaxBound: 0.9,
			HotTarget: TierTarget{
				Min: 10,
				Max: 50,
			},
			IntervalHrs: 6,
		},
		Reporter: ReporterConfig{
			Enabled:        true,
			Channel:        ChannelLog,
			Frequency:      FrequencyOnChange,
			IncludeMetrics: true,
		},
		DecayIntervalHrs: 6,
		DecayOverrides:   map[string]DecayOverride{},
		Sessions: map[string]SessionTypeConfig{
			"main":    {AutoInject: true, AutoCapture: true, DefaultTier: "HOT"},
			"cron":    {AutoInject: true, AutoCapture: false, DefaultTier: "WARM"},
			"spawned": {AutoInject: true, AutoCapture: false, DefaultTier: "WARM"},
		},
		Agents:            map[string]AgentConfig{},
		RetrievalProfiles: map[string]RetrievalProfileConfig{},
		DecayProfiles:     map[string]DecayProfileConfig{},
		PromotionProfiles: map[string]PromotionProfileConfig{},
	}
}

// Load reads a YAML config file at path over DefaultConfig(), then applies
// TRAM_* environment overrides, so env always wins over the file. A
// missing file is not an error:
// Load returns DefaultConfig() with env overrides applied, so a bare `tram`
// invocation works with zero configuration.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overlays well-known TRAM_* environment variables onto cfg.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("TRAM_STORE_PATH"); v != "" {
		c.StorePath = v
	}
	if v := os.Getenv("TRAM_VECTOR_BACKEND"); v != "" {
		c.VectorBackend = v
	}
	if v := os.Getenv("TRAM_CACHE_BACKEND"); v != "" {
		c.CacheBackend = v
	}
	if v := os.Getenv("TRAM_EMBED_TYPE"); v != "" {
		c.EmbedType = v
	}
	if v := os.Getenv("TRAM_EMBED_DIMENSION"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TRAM_EMBED_DIMENSION: %w", err)
		}
		c.EmbedDimension = n
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAIAPIKey = v
	}
	if v := os.Getenv("TRAM_OPENAI_MODEL"); v != "" {
		c.OpenAIModelName = v
	}
	if v := os.Getenv("TRAM_TUNING_MODE"); v != "" {
		c.Tuning.Mode = TuningMode(v)
	}
	if v := os.Getenv("TRAM_REPORTER_CHANNEL"); v != "" {
		c.Reporter.Channel = ChannelKind(v)
	}
	if v := os.Getenv("TRAM_REPORTER_FREQUENCY"); v != "" {
		c.Reporter.Frequency = ReporterFrequency(v)
	}
	return nil
}

// DecayInterval returns the configured background-cycle interval.
func (c *Config) DecayInterval() time.Duration {
	if c.DecayIntervalHrs <= 0 {
		return 6 * time.Hour
	}
	return time.Duration(c.DecayIntervalHrs * float64(time.Hour))
}

// SessionConfig looks up the session-type config (an empty type means
// "main"). Unrecognized types get auto-inject on, auto-capture off, and a
// WARM default tier.
func (c *Config) SessionConfig(sessionType string) SessionTypeConfig {
	if sessionType == "" {
		sessionType = "main"
	}
	if sc, ok := c.Sessions[strings.ToLower(sessionType)]; ok {
		return sc
	}
	return SessionTypeConfig{AutoInject: true, AutoCapture: false, DefaultTier: "WARM"}
}

// contextKey is the unexported key type for stashing a *Config on a
// context.Context, so CLI commands avoid a process-wide config global.
type contextKey struct{}

// WithContext returns a copy of ctx carrying cfg.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext retrieves the *Config stashed by WithContext, or nil.
func FromContext(ctx context.Context) *Config {
	cfg, _ := ctx.Value(contextKey{}).(*Config)
	return cfg
}
