package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/recurator/tram/internal/bootstrap"
)

// IndexCommand rebuilds the lexical full-text index from the Store's
// memories table. Idempotent: after completion the indexed count equals
// the number of memories.
func IndexCommand() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Rebuild the lexical search index from stored memories",
		Flags: []cli.Flag{configFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withApp(ctx, cmd, func(ctx context.Context, app *bootstrap.App) error {
				if err := app.Store.RebuildLexicalIndex(ctx); err != nil {
					return err
				}
				memories, err := app.Store.ListAll(ctx, true)
				if err != nil {
					return err
				}
				fmt.Printf("rebuilt lexical index over %d memories\n", len(memories))
				return nil
			})
		},
	}
}
