package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/recurator/tram/internal/bootstrap"
	"github.com/recurator/tram/internal/model"
)

// SetContextCommand wraps core.Engine.SetContext.
func SetContextCommand() *cli.Command {
	var ttl time.Duration
	return &cli.Command{
		Name:      "set-context",
		Usage:     "Set the ephemeral current-context note",
		ArgsUsage: "<text>",
		Flags: []cli.Flag{
			configFlag,
			&cli.DurationFlag{Name: "ttl", Value: 4 * time.Hour, Destination: &ttl, Usage: "how long the note stays active"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			text := cmd.Args().First()
			if text == "" {
				return &model.InvalidInputError{Field: "text", Message: "required positional argument"}
			}
			return withApp(ctx, cmd, func(ctx context.Context, app *bootstrap.App) error {
				if err := app.Engine.SetContext(ctx, text, ttl.Hours()); err != nil {
					return err
				}
				fmt.Println("context set")
				return nil
			})
		},
	}
}

// ClearContextCommand wraps core.Engine.ClearContext.
func ClearContextCommand() *cli.Command {
	return &cli.Command{
		Name:  "clear-context",
		Usage: "Clear the ephemeral current-context note",
		Flags: []cli.Flag{configFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withApp(ctx, cmd, func(ctx context.Context, app *bootstrap.App) error {
				if err := app.Engine.ClearContext(ctx); err != nil {
					return err
				}
				fmt.Println("context cleared")
				return nil
			})
		},
	}
}
