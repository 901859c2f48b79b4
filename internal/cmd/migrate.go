package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/recurator/tram/internal/bootstrap"
	"github.com/recurator/tram/internal/model"
)

// MigrateCommand applies the Store's schema (the sqlite backend's Open
// already runs its full CREATE TABLE IF NOT EXISTS DDL unconditionally) and
// records the resulting schema version in meta.
func MigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply the store schema and record its version",
		Flags: []cli.Flag{configFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withApp(ctx, cmd, func(ctx context.Context, app *bootstrap.App) error {
				previous, _, err := app.Store.GetMeta(ctx, model.MetaSchemaVersion)
				if err != nil {
					return err
				}
				if err := app.Store.SetMeta(ctx, model.MetaSchemaVersion, model.CurrentSchemaVersion); err != nil {
					return err
				}
				if previous == model.CurrentSchemaVersion {
					fmt.Printf("schema already at version %s\n", model.CurrentSchemaVersion)
				} else if previous == "" {
					fmt.Printf("initialized schema at version %s\n", model.CurrentSchemaVersion)
				} else {
					fmt.Printf("migrated schema %s -> %s\n", previous, model.CurrentSchemaVersion)
				}
				return nil
			})
		},
	}
}
