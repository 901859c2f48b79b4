package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/recurator/tram/internal/bootstrap"
	"github.com/recurator/tram/internal/core"
	"github.com/recurator/tram/internal/model"
)

// TuneCommand wraps core.Engine.Tune.
func TuneCommand() *cli.Command {
	var persist, jsonOut bool
	return &cli.Command{
		Name:  "tune",
		Usage: "Set or validate a retrieval/decay/promotion profile override",
		Flags: []cli.Flag{
			configFlag, newJSONFlag(&jsonOut),
			&cli.StringFlag{Name: "retrieval"},
			&cli.StringFlag{Name: "decay"},
			&cli.StringFlag{Name: "promotion"},
			&cli.BoolFlag{Name: "persist", Destination: &persist},
			&cli.StringFlag{Name: "scope", Value: "session", Usage: "session|agent|global"},
			&cli.StringFlag{Name: "agent", Usage: "agent id, required when --scope=agent"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withApp(ctx, cmd, func(ctx context.Context, app *bootstrap.App) error {
				res, err := app.Engine.Tune(ctx, core.TuneOptions{
					Retrieval: cmd.String("retrieval"),
					Decay:     cmd.String("decay"),
					Promotion: cmd.String("promotion"),
					Persist:   persist,
					Scope:     core.TuneScope(cmd.String("scope")),
					AgentID:   cmd.String("agent"),
				})
				if err != nil {
					return err
				}
				if jsonOut {
					return printJSON(res)
				}
				fmt.Printf("retrieval=%q decay=%q promotion=%q persisted=%v\n", res.Retrieval, res.Decay, res.Promotion, persist)
				return nil
			})
		},
	}
}

// parameterArg validates the <parameter> positional argument lock/unlock
// share; TRAM ships a single tunable parameter.
func parameterArg(cmd *cli.Command) (string, error) {
	p := cmd.Args().First()
	if p == "" {
		return "", &model.InvalidInputError{Field: "parameter", Message: "required positional argument"}
	}
	return p, nil
}
