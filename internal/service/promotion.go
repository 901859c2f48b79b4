package service

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/recurator/tram/internal/config"
	"github.com/recurator/tram/internal/model"
	registrystore "github.com/recurator/tram/internal/registry/store"
)

// PromotionEngine promotes COLD->WARM (and WARM->HOT under stricter
// evidence) based on use-count and distinct-use-day thresholds. It must
// run after DecayEngine within a cycle so demotions based on stale state
// are not immediately reverted by promotions using freshly-read access
// stats.
type PromotionEngine struct {
	store    registrystore.Store
	resolver *config.Resolver
	clock    registrystore.Clock
}

// NewPromotionEngine wires a PromotionEngine against the given Store.
func NewPromotionEngine(store registrystore.Store, resolver *config.Resolver, clock registrystore.Clock) *PromotionEngine {
	if clock == nil {
		clock = registrystore.SystemClock{}
	}
	return &PromotionEngine{store: store, resolver: resolver, clock: clock}
}

// PromotionReport summarizes one PromotionEngine.Run pass.
type PromotionReport struct {
	Examined   int
	Promotions int
}

// warmToHotFactor and warmToHotDaysBonus make WARM->HOT stricter than
// COLD->WARM: double the use count and one more distinct day than the
// active profile requires.
const (
	warmToHotFactor    = 2
	warmToHotDaysBonus = 1
)

// Run examines every non-pinned COLD and WARM memory and promotes it when
// its use-count/distinct-day evidence clears the active profile's
// threshold. agentID selects the active promotion profile (empty for the
// global background cycle).
func (p *PromotionEngine) Run(ctx context.Context, agentID string) (PromotionReport, error) {
	resolved, err := p.resolver.ResolvePromotion(agentID)
	if err != nil {
		return PromotionReport{}, fmt.Errorf("resolve promotion profile: %w", err)
	}
	profile := resolved.Value

	memories, err := p.store.ListAll(ctx, true)
	if err != nil {
		return PromotionReport{}, fmt.Errorf("list memories for promotion: %w", err)
	}

	now := p.clock.Now()
	report := PromotionReport{Examined: len(memories)}

	for _, m := range memories {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}
		if m.Pinned {
			continue
		}
		var newTier model.Tier
		switch m.Tier {
		case model.TierCold:
			if m.UseCount >= profile.Uses && len(m.UseDays) >= profile.Days {
				newTier = model.TierWarm
			}
		case model.TierWarm:
			if m.UseCount >= profile.Uses*warmToHotFactor && len(m.UseDays) >= profile.Days+warmToHotDaysBonus {
				newTier = model.TierHot
			}
		}
		if newTier == "" {
			continue
		}
		oldTier := m.Tier
		m.Tier = newTier
		if err := p.store.WithTx(ctx, func(ctx context.Context) error {
			if err := p.store.UpdateMemory(ctx, m); err != nil {
				return err
			}
			return p.store.AppendAudit(ctx, model.AuditEntry{
				ID:        model.NewID(),
				MemoryID:  m.ID,
				Action:    model.ActionPromote,
				OldValue:  map[string]any{"tier": string(oldTier)},
				NewValue:  map[string]any{"tier": string(newTier), "memory_type": string(m.MemoryType)},
				CreatedAt: now,
			})
		}); err != nil {
			log.Error("promotion: promote failed", "memory", m.ID, "err", err)
			continue
		}
		report.Promotions++
		log.Info("promotion: promoted", "memory", m.ID, "from", oldTier, "to", newTier)
	}
	return report, nil
}
