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

// knownParameter reports whether name is one of TRAM's tunable parameters.
func knownParameter(name string) bool {
	return name == service.ImportanceThresholdParameter
}

// LockCommand wraps service.Lock.
func LockCommand() *cli.Command {
	var forDuration time.Duration
	return &cli.Command{
		Name:      "lock",
		Usage:     "Lock a tuning parameter, preventing auto-adjustment until it expires",
		ArgsUsage: "<parameter>",
		Flags: []cli.Flag{
			configFlag,
			&cli.DurationFlag{Name: "for", Value: 24 * time.Hour, Destination: &forDuration, Usage: "lock duration"},
			&cli.StringFlag{Name: "reason"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			param, err := parameterArg(cmd)
			if err != nil {
				return err
			}
			if !knownParameter(param) {
				return &model.IllegalStateError{Message: fmt.Sprintf("unknown tuning parameter %q", param)}
			}
			return withApp(ctx, cmd, func(ctx context.Context, app *bootstrap.App) error {
				until := time.Now().Add(forDuration)
				if err := service.Lock(ctx, app.Store, param, until, cmd.String("reason"), nil); err != nil {
					return err
				}
				fmt.Printf("locked %s until %s\n", param, until.Format(time.RFC3339))
				return nil
			})
		},
	}
}

// UnlockCommand wraps service.Unlock. Fails with IllegalState if the
// parameter is already Free.
func UnlockCommand() *cli.Command {
	return &cli.Command{
		Name:      "unlock",
		Usage:     "Unlock a tuning parameter, returning it to Free immediately",
		ArgsUsage: "<parameter>",
		Flags: []cli.Flag{
			configFlag,
			&cli.StringFlag{Name: "reason"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			param, err := parameterArg(cmd)
			if err != nil {
				return err
			}
			if !knownParameter(param) {
				return &model.IllegalStateError{Message: fmt.Sprintf("unknown tuning parameter %q", param)}
			}
			return withApp(ctx, cmd, func(ctx context.Context, app *bootstrap.App) error {
				if err := service.Unlock(ctx, app.Store, param, cmd.String("reason"), nil); err != nil {
					return err
				}
				fmt.Printf("unlocked %s\n", param)
				return nil
			})
		},
	}
}
