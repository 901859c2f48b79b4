// Package service holds TRAM's background engines: DecayEngine,
// PromotionEngine, TuningEngine, and the Reporter, run in sequence by one
// ticker-driven cycle. Engines log and continue on a single-item failure
// rather than aborting the whole pass.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/recurator/tram/internal/config"
	"github.com/recurator/tram/internal/durationx"
	"github.com/recurator/tram/internal/model"
	registrystore "github.com/recurator/tram/internal/registry/store"
)

// DecayEngine demotes stale memories HOT->WARM->COLD->ARCHIVE, one hop
// per run, comparing now-last_accessed_at against per-type
// TTLs resolved through the override chain: per-type override -> active
// decay profile -> builtin default.
type DecayEngine struct {
	store    registrystore.Store
	cfg      *config.Config
	resolver *config.Resolver
	clock    registrystore.Clock
}

// NewDecayEngine wires a DecayEngine against the given Store/Config.
func NewDecayEngine(store registrystore.Store, cfg *config.Config, resolver *config.Resolver, clock registrystore.Clock) *DecayEngine {
	if clock == nil {
		clock = registrystore.SystemClock{}
	}
	return &DecayEngine{store: store, cfg: cfg, resolver: resolver, clock: clock}
}

// DecayReport summarizes one DecayEngine.Run pass.
type DecayReport struct {
	Examined  int
	Demotions int
}

// Run examines every non-pinned memory and demotes it one tier if its
// resolved TTL has elapsed. agentID selects the active decay profile
// (empty for the global background cycle).
func (d *DecayEngine) Run(ctx context.Context, agentID string) (DecayReport, error) {
	resolved, err := d.resolver.ResolveDecay(agentID)
	if err != nil {
		return DecayReport{}, fmt.Errorf("resolve decay profile: %w", err)
	}

	memories, err := d.store.ListAll(ctx, true)
	if err != nil {
		return DecayReport{}, fmt.Errorf("list memories for decay: %w", err)
	}

	now := d.clock.Now()
	report := DecayReport{Examined: len(memories)}

	for _, m := range memories {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}
		if m.Pinned || m.Tier == model.TierArchive {
			continue
		}
		newTier, ok, err := d.nextTier(m, resolved.Value, now)
		if err != nil {
			log.Error("decay: resolve TTL failed", "memory", m.ID, "err", err)
			continue
		}
		if !ok {
			continue
		}
		oldTier := m.Tier
		m.Tier = newTier
		if err := d.store.WithTx(ctx, func(ctx context.Context) error {
			if err := d.store.UpdateMemory(ctx, m); err != nil {
				return err
			}
			return d.store.AppendAudit(ctx, model.AuditEntry{
				ID:        model.NewID(),
				MemoryID:  m.ID,
				Action:    model.ActionDemote,
				OldValue:  map[string]any{"tier": string(oldTier)},
				NewValue:  map[string]any{"tier": string(newTier), "memory_type": string(m.MemoryType)},
				CreatedAt: now,
			})
		}); err != nil {
			log.Error("decay: demote failed", "memory", m.ID, "err", err)
			continue
		}
		report.Demotions++
		log.Info("decay: demoted", "memory", m.ID, "from", oldTier, "to", newTier)
	}

	if err := d.store.SetMeta(ctx, model.MetaLastDecayRun, now.UTC().Format(time.RFC3339)); err != nil {
		return report, fmt.Errorf("set last_decay_run: %w", err)
	}
	return report, nil
}

// nextTier returns the memory's next tier and whether a demotion applies.
func (d *DecayEngine) nextTier(m model.Memory, profile config.DecayProfile, now time.Time) (model.Tier, bool, error) {
	age := now.Sub(m.LastAccessedAt)
	if age < 0 {
		age = 0
	}
	switch m.Tier {
	case model.TierHot:
		ttl, never, err := d.resolveTTL(m.MemoryType, "hot", profile.HotTTL, time.Hour)
		if err != nil || never {
			return "", false, err
		}
		if age > ttl {
			return model.TierWarm, true, nil
		}
	case model.TierWarm:
		ttl, never, err := d.resolveTTL(m.MemoryType, "warm", profile.WarmTTL, 24*time.Hour)
		if err != nil || never {
			return "", false, err
		}
		if age > ttl {
			return model.TierCold, true, nil
		}
	case model.TierCold:
		ttl, never, err := d.resolveTTL(m.MemoryType, "cold", profile.ColdTTL, 24*time.Hour)
		if err != nil || never {
			return "", false, err
		}
		if age > ttl {
			return model.TierArchive, true, nil
		}
	}
	return "", false, nil
}

// resolveTTL applies the override chain: per-type override for this memory
// type/tier -> the profile default -> (handled by caller's default string).
// A "null" value (case-insensitive) means never demote from this tier.
func (d *DecayEngine) resolveTTL(memType model.MemoryType, tier string, profileValue string, unit time.Duration) (ttl time.Duration, never bool, err error) {
	raw := profileValue
	if override, ok := d.cfg.DecayOverrides[string(memType)]; ok {
		switch tier {
		case "hot":
			if override.HotTTL != "" {
				raw = override.HotTTL
			}
		case "warm":
			if override.WarmTTL != "" {
				raw = override.WarmTTL
			}
		case "cold":
			if override.ColdTTL != "" {
				raw = override.ColdTTL
			}
		}
	}
	if strings.EqualFold(strings.TrimSpace(raw), "null") {
		return 0, true, nil
	}
	if raw == "" {
		return 0, true, nil
	}
	parsed, err := durationx.Parse(raw, unit)
	if err != nil {
		return 0, false, &model.InvalidInputError{Field: tier + "TTL", Message: err.Error()}
	}
	return parsed, false, nil
}
