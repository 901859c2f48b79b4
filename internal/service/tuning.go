package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/recurator/tram/internal/config"
	"github.com/recurator/tram/internal/model"
	registrystore "github.com/recurator/tram/internal/registry/store"
)

// ImportanceThresholdParameter is the sole tunable parameter TRAM ships
// with.
const ImportanceThresholdParameter = "importanceThreshold"

// TuningState is the TuningEngine's per-parameter state machine value.
type TuningState int

const (
	// StateFree means the TuningEngine may adjust the parameter.
	StateFree TuningState = iota
	// StateLocked means a user override is in effect until a given time.
	StateLocked
)

// TuningEngine observes tier sizes and adjusts importanceThreshold to keep
// HOT within its target band, subject to bounds, lock windows, and mode
// gating.
type TuningEngine struct {
	store    registrystore.Store
	cfg      *config.Config
	reporter *Reporter
	clock    registrystore.Clock
}

// NewTuningEngine wires a TuningEngine against the Store/Config/Reporter.
func NewTuningEngine(store registrystore.Store, cfg *config.Config, reporter *Reporter, clock registrystore.Clock) *TuningEngine {
	if clock == nil {
		clock = registrystore.SystemClock{}
	}
	return &TuningEngine{store: store, cfg: cfg, reporter: reporter, clock: clock}
}

// TuningReport summarizes one TuningEngine.Run pass.
type TuningReport struct {
	Adjusted   bool
	OldValue   float64
	NewValue   float64
	Reason     string
	TierCounts map[string]int
}

// State resolves the current Free/Locked state of parameter from its
// tuning log.
func State(ctx context.Context, store registrystore.Store, parameter string, now time.Time) (TuningState, *time.Time, error) {
	entry, ok, err := store.LatestTuningValue(ctx, parameter)
	if err != nil {
		return StateFree, nil, fmt.Errorf("resolve tuning state: %w", err)
	}
	if !ok {
		return StateFree, nil, nil
	}
	if entry.Source == model.TuningSourceUser && entry.UserOverrideUntil != nil && entry.UserOverrideUntil.After(now) {
		until := *entry.UserOverrideUntil
		return StateLocked, &until, nil
	}
	return StateFree, nil, nil
}

// CurrentValue resolves the effective current value of parameter: the most
// recent non-reverted tuning log entry's new_value, or cfg's default if
// none exists.
func CurrentValue(ctx context.Context, store registrystore.Store, parameter string, defaultValue float64) (float64, error) {
	entry, ok, err := store.LatestTuningValue(ctx, parameter)
	if err != nil {
		return 0, fmt.Errorf("resolve current tuning value: %w", err)
	}
	if !ok {
		return defaultValue, nil
	}
	// Lock/Unlock entries carry a JSON null value when no prior adjustment
	// exists; that means "no recorded value", not zero.
	var v *float64
	if err := json.Unmarshal([]byte(entry.NewValue), &v); err != nil {
		return 0, fmt.Errorf("decode tuning value %q: %w", entry.NewValue, err)
	}
	if v == nil {
		return defaultValue, nil
	}
	return *v, nil
}

// Run executes one TuningEngine pass: gated by config.Tuning.Enabled and
// Mode, and by the parameter's lock state.
func (t *TuningEngine) Run(ctx context.Context) (TuningReport, error) {
	if !t.cfg.Tuning.Enabled || (t.cfg.Tuning.Mode != config.ModeAuto && t.cfg.Tuning.Mode != config.ModeHybrid) {
		return TuningReport{}, nil
	}

	now := t.clock.Now()
	state, _, err := State(ctx, t.store, ImportanceThresholdParameter, now)
	if err != nil {
		return TuningReport{}, err
	}
	if state == StateLocked {
		return TuningReport{}, nil
	}

	counts, err := t.tierCounts(ctx)
	if err != nil {
		return TuningReport{}, err
	}

	current, err := CurrentValue(ctx, t.store, ImportanceThresholdParameter, t.cfg.Injection.MinScore)
	if err != nil {
		return TuningReport{}, err
	}

	hot := counts[string(model.TierHot)]
	target := t.cfg.Tuning.HotTarget
	step := t.cfg.Tuning.Step

	var newValue float64
	var reason string
	switch {
	case hot > target.Max:
		newValue = current + step
		if newValue > t.cfg.Tuning.MaxBound {
			newValue = t.cfg.Tuning.MaxBound
		}
		reason = fmt.Sprintf("hot tier size %d exceeds target max %d", hot, target.Max)
	case hot < target.Min:
		newValue = current - step
		if newValue < t.cfg.Tuning.MinBound {
			newValue = t.cfg.Tuning.MinBound
		}
		reason = fmt.Sprintf("hot tier size %d below target min %d", hot, target.Min)
	default:
		return TuningReport{TierCounts: counts}, nil
	}

	if newValue == current {
		return TuningReport{TierCounts: counts}, nil
	}

	entry := model.TuningLogEntry{
		ID:        model.NewID(),
		Timestamp: now,
		Parameter: ImportanceThresholdParameter,
		OldValue:  formatFloat(current),
		NewValue:  formatFloat(newValue),
		Reason:    reason,
		Source:    model.TuningSourceAuto,
	}
	if err := t.store.AppendTuningLog(ctx, entry); err != nil {
		return TuningReport{}, fmt.Errorf("append tuning log: %w", err)
	}

	if t.reporter != nil && t.cfg.Reporter.Enabled {
		_ = t.reporter.Report(ctx, Adjustment{
			Parameter:  ImportanceThresholdParameter,
			OldValue:   formatFloat(current),
			NewValue:   formatFloat(newValue),
			Reason:     reason,
			Source:     string(model.TuningSourceAuto),
			Timestamp:  now,
			TierCounts: counts,
		})
	}

	return TuningReport{Adjusted: true, OldValue: current, NewValue: newValue, Reason: reason, TierCounts: counts}, nil
}

// Lock appends a user-override TuningLogEntry that locks parameter until
// until.
func Lock(ctx context.Context, store registrystore.Store, parameter string, until time.Time, reason string, clock registrystore.Clock) error {
	if clock == nil {
		clock = registrystore.SystemClock{}
	}
	now := clock.Now()
	current, ok, err := store.LatestTuningValue(ctx, parameter)
	if err != nil {
		return err
	}
	currentValue := "null"
	if ok {
		currentValue = current.NewValue
	}
	return store.AppendTuningLog(ctx, model.TuningLogEntry{
		ID:                model.NewID(),
		Timestamp:         now,
		Parameter:         parameter,
		OldValue:          currentValue,
		NewValue:          currentValue,
		Reason:            reason,
		Source:            model.TuningSourceUser,
		UserOverrideUntil: &until,
	})
}

// Unlock appends a TuningLogEntry with user_override_until=nil, returning
// the parameter to Free immediately. Fails with IllegalState if the
// parameter is already Free.
func Unlock(ctx context.Context, store registrystore.Store, parameter string, reason string, clock registrystore.Clock) error {
	if clock == nil {
		clock = registrystore.SystemClock{}
	}
	now := clock.Now()
	state, _, err := State(ctx, store, parameter, now)
	if err != nil {
		return err
	}
	if state == StateFree {
		return &model.IllegalStateError{Message: fmt.Sprintf("parameter %q is not locked", parameter)}
	}
	current, ok, err := store.LatestTuningValue(ctx, parameter)
	if err != nil {
		return err
	}
	currentValue := "null"
	if ok {
		currentValue = current.NewValue
	}
	return store.AppendTuningLog(ctx, model.TuningLogEntry{
		ID:        model.NewID(),
		Timestamp: now,
		Parameter: parameter,
		OldValue:  currentValue,
		NewValue:  currentValue,
		Reason:    reason,
		Source:    model.TuningSourceUser,
	})
}

func (t *TuningEngine) tierCounts(ctx context.Context) (map[string]int, error) {
	memories, err := t.store.ListAll(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list memories for tuning: %w", err)
	}
	counts := map[string]int{
		string(model.TierHot):     0,
		string(model.TierWarm):    0,
		string(model.TierCold):    0,
		string(model.TierArchive): 0,
	}
	for _, m := range memories {
		counts[string(m.Tier)]++
	}
	return counts, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
