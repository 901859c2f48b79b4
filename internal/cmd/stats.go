package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/recurator/tram/internal/bootstrap"
	"github.com/recurator/tram/internal/model"
	"github.com/recurator/tram/internal/service"
)

// statsReport is stats' JSON/human output shape.
type statsReport struct {
	TierCounts          map[string]int `json:"tier_counts"`
	ImportanceThreshold float64        `json:"importance_threshold"`
	TuningLocked        bool           `json:"tuning_locked"`
	LastDecayRun        string         `json:"last_decay_run,omitempty"`
	PendingReports      int            `json:"pending_reports,omitempty"`
}

// StatsCommand reports tier sizes and tuning state; --metrics
// additionally surfaces last_decay_run and the
// Reporter's pending-batch count.
func StatsCommand() *cli.Command {
	var metrics, jsonOut bool
	return &cli.Command{
		Name:  "stats",
		Usage: "Show tier sizes and tuning state",
		Flags: []cli.Flag{
			configFlag, newJSONFlag(&jsonOut),
			&cli.BoolFlag{Name: "metrics", Usage: "include last_decay_run and pending report count", Destination: &metrics},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withApp(ctx, cmd, func(ctx context.Context, app *bootstrap.App) error {
				memories, err := app.Store.ListAll(ctx, false)
				if err != nil {
					return err
				}
				counts := map[string]int{
					string(model.TierHot): 0, string(model.TierWarm): 0,
					string(model.TierCold): 0, string(model.TierArchive): 0,
				}
				for _, m := range memories {
					counts[string(m.Tier)]++
				}

				current, err := service.CurrentValue(ctx, app.Store, service.ImportanceThresholdParameter, app.Cfg.Injection.MinScore)
				if err != nil {
					return err
				}
				state, _, err := service.State(ctx, app.Store, service.ImportanceThresholdParameter, time.Now())
				if err != nil {
					return err
				}

				report := statsReport{TierCounts: counts, ImportanceThreshold: current, TuningLocked: state == service.StateLocked}
				if metrics {
					if raw, ok, _ := app.Store.GetMeta(ctx, model.MetaLastDecayRun); ok {
						report.LastDecayRun = raw
					}
					report.PendingReports = app.Cycle.Reporter().PendingCount()
				}

				if jsonOut {
					return printJSON(report)
				}
				fmt.Printf("HOT=%d WARM=%d COLD=%d ARCHIVE=%d  importanceThreshold=%.3f locked=%v\n",
					counts[string(model.TierHot)], counts[string(model.TierWarm)],
					counts[string(model.TierCold)], counts[string(model.TierArchive)],
					report.ImportanceThreshold, report.TuningLocked)
				if metrics {
					fmt.Printf("last_decay_run=%s pending_reports=%d\n", report.LastDecayRun, report.PendingReports)
				}
				return nil
			})
		},
	}
}
