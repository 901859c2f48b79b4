package service

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/recurator/tram/internal/config"
	"github.com/recurator/tram/internal/model"
	registrychannel "github.com/recurator/tram/internal/registry/channel"
	registrystore "github.com/recurator/tram/internal/registry/store"
)

// Cycle runs Decay -> Promotion -> Tuning -> Reporter in sequence on a
// single ticker-driven Start(ctx)/RunOnce loop. The four engines share
// one ticker and one non-overlapping run guard so the engines always run
// in order within a pass.
type Cycle struct {
	store     registrystore.Store
	cfg       *config.Config
	decay     *DecayEngine
	promotion *PromotionEngine
	tuning    *TuningEngine
	reporter  *Reporter

	mu      sync.Mutex
	running bool
}

// NewCycle wires a Cycle from its component engines. channel may be nil
// (Reporter.deliver then no-ops), used when config.Reporter.Enabled is
// false.
func NewCycle(store registrystore.Store, cfg *config.Config, resolver *config.Resolver, channel registrychannel.Channel, clock registrystore.Clock) *Cycle {
	if clock == nil {
		clock = registrystore.SystemClock{}
	}
	reporter := NewReporter(channel, cfg.Reporter, clock)
	return &Cycle{
		store:     store,
		cfg:       cfg,
		decay:     NewDecayEngine(store, cfg, resolver, clock),
		promotion: NewPromotionEngine(store, resolver, clock),
		tuning:    NewTuningEngine(store, cfg, reporter, clock),
		reporter:  reporter,
	}
}

// Reporter exposes the Cycle's Reporter so CLI commands (the `stats`
// command's pending-report count) share the same batching state rather than
// constructing a second one.
func (c *Cycle) Reporter() *Reporter { return c.reporter }

// CycleReport summarizes one full pass.
type CycleReport struct {
	Decay     DecayReport
	Promotion PromotionReport
	Tuning    TuningReport
}

// RunOnce executes one Decay->Promotion->Tuning pass, skipping the pass
// entirely (returning a zero report, no error) if a prior pass is still
// running.
func (c *Cycle) RunOnce(ctx context.Context) (CycleReport, error) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		log.Warn("cycle: previous pass still running, skipping this tick")
		return CycleReport{}, nil
	}
	c.running = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	var report CycleReport

	decayReport, err := c.decay.Run(ctx, "")
	if err != nil {
		log.Error("cycle: decay pass failed", "err", err)
	}
	report.Decay = decayReport

	promotionReport, err := c.promotion.Run(ctx, "")
	if err != nil {
		log.Error("cycle: promotion pass failed", "err", err)
	}
	report.Promotion = promotionReport

	tuningReport, err := c.tuning.Run(ctx)
	if err != nil {
		log.Error("cycle: tuning pass failed", "err", err)
	}
	report.Tuning = tuningReport

	log.Info("cycle: pass complete",
		"decay_examined", report.Decay.Examined, "demotions", report.Decay.Demotions,
		"promotion_examined", report.Promotion.Examined, "promotions", report.Promotion.Promotions,
		"tuning_adjusted", report.Tuning.Adjusted)

	return report, nil
}

// Start runs RunOnce immediately if the last recorded decay run is stale
// by more than the configured interval (catch-up after a restart), then on
// every subsequent tick of cfg.DecayInterval(), until ctx is canceled. On
// cancellation it flushes the Reporter before returning.
func (c *Cycle) Start(ctx context.Context) {
	interval := c.cfg.DecayInterval()

	if c.isStale(ctx, interval) {
		log.Info("cycle: last run stale, running catch-up pass")
		if _, err := c.RunOnce(ctx); err != nil {
			log.Error("cycle: catch-up pass failed", "err", err)
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := c.reporter.Flush(flushCtx); err != nil {
				log.Error("cycle: flush on shutdown failed", "err", err)
			}
			return
		case <-ticker.C:
			if _, err := c.RunOnce(ctx); err != nil {
				log.Error("cycle: pass failed", "err", err)
			}
		}
	}
}

func (c *Cycle) isStale(ctx context.Context, interval time.Duration) bool {
	raw, ok, err := c.store.GetMeta(ctx, model.MetaLastDecayRun)
	if err != nil || !ok {
		return true
	}
	last, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return true
	}
	return time.Since(last) > interval
}
