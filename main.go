package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/recurator/tram/internal/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "tram",
		Usage: "Tiered associative memory engine for AI agents",
		Commands: []*cli.Command{
			cmd.StoreCommand(),
			cmd.RecallCommand(),
			cmd.SearchCommand(),
			cmd.ForgetCommand(),
			cmd.RestoreCommand(),
			cmd.PinCommand(),
			cmd.UnpinCommand(),
			cmd.ExplainCommand(),
			cmd.SetContextCommand(),
			cmd.ClearContextCommand(),
			cmd.TuneCommand(),
			cmd.ListCommand(),
			cmd.StatsCommand(),
			cmd.DecayCommand(),
			cmd.IndexCommand(),
			cmd.MigrateCommand(),
			cmd.LockCommand(),
			cmd.UnlockCommand(),
		},
	}
	if err := app.Run(ctx, os.Args); err != nil {
		log.Error(err)
		os.Exit(cmd.ExitCode(err))
	}
}
