package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/recurator/tram/internal/bootstrap"
)

// DecayCommand exposes the background cycle (Decay -> Promotion -> Tuning
// -> Reporter) as `decay run`. It runs the full ordered pass rather than
// the DecayEngine alone: demotions must land before promotions read the
// fresh access stats.
func DecayCommand() *cli.Command {
	return &cli.Command{
		Name:     "decay",
		Usage:    "Background-cycle operations",
		Commands: []*cli.Command{decayRunCommand()},
	}
}

func decayRunCommand() *cli.Command {
	var jsonOut bool
	return &cli.Command{
		Name:  "run",
		Usage: "Run one Decay->Promotion->Tuning->Reporter pass immediately",
		Flags: []cli.Flag{configFlag, newJSONFlag(&jsonOut)},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withApp(ctx, cmd, func(ctx context.Context, app *bootstrap.App) error {
				report, err := app.Cycle.RunOnce(ctx)
				if err != nil {
					return err
				}
				if jsonOut {
					return printJSON(report)
				}
				fmt.Printf("decay: examined=%d demotions=%d\n", report.Decay.Examined, report.Decay.Demotions)
				fmt.Printf("promotion: examined=%d promotions=%d\n", report.Promotion.Examined, report.Promotion.Promotions)
				fmt.Printf("tuning: adjusted=%v\n", report.Tuning.Adjusted)
				return nil
			})
		},
	}
}
