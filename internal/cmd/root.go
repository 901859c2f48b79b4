// Package cmd implements TRAM's CLI surface: one thin command
// per core operation, each opening the engine via internal/bootstrap,
// invoking the matching internal/core.Engine (or internal/service) method,
// and printing a result. One *cli.Command-returning function per
// sub-command, wired together in main.go.
package cmd

import (
	"context"
	"encoding/json"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/recurator/tram/internal/bootstrap"
	"github.com/recurator/tram/internal/config"
	"github.com/recurator/tram/internal/model"
)

// configFlag is shared by every sub-command needing a live engine.
var configFlag = &cli.StringFlag{
	Name:    "config",
	Sources: cli.EnvVars("TRAM_CONFIG"),
	Usage:   "Path to a TRAM YAML config file",
}

// newJSONFlag builds the --json flag that toggles machine-readable output,
// binding it to a command-local destination: one flag value per
// *cli.Command built, since Flags are constructed once per Command() call.
func newJSONFlag(dest *bool) *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:        "json",
		Usage:       "Emit JSON instead of a human-readable table",
		Destination: dest,
	}
}

// ExitCode maps an error to its process exit code.
func ExitCode(err error) int { return model.ExitCode(err) }

// withApp loads config from the --config flag and runs fn against a fully
// wired bootstrap.App, always closing the Store afterward.
func withApp(ctx context.Context, cmd *cli.Command, fn func(ctx context.Context, app *bootstrap.App) error) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	app, err := bootstrap.New(ctx, &cfg)
	if err != nil {
		return &model.ResourceUnavailableError{Resource: "engine", Cause: err}
	}
	defer app.Close()
	return fn(ctx, app)
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
