package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/recurator/tram/internal/bootstrap"
	"github.com/recurator/tram/internal/core"
	"github.com/recurator/tram/internal/model"
)

// parseFloatFlag parses a --flag string value as a float64, wrapped as an
// InvalidInputError on failure. Importance is taken as a string flag and
// parsed here so a bad value maps to the invalid-input exit code instead
// of a flag-parse error.
func parseFloatFlag(field, raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &model.InvalidInputError{Field: field, Message: fmt.Sprintf("%q is not a number", raw)}
	}
	return v, nil
}

// StoreCommand wraps core.Engine.Store.
func StoreCommand() *cli.Command {
	var pinned, jsonOut bool
	return &cli.Command{
		Name:      "store",
		Usage:     "Store a new memory",
		ArgsUsage: "<text>",
		Flags: []cli.Flag{
			configFlag, newJSONFlag(&jsonOut),
			&cli.StringFlag{Name: "tier", Value: string(model.TierHot), Usage: "HOT|WARM|COLD|ARCHIVE"},
			&cli.StringFlag{Name: "memory-type", Value: string(model.TypeFactual), Usage: "procedural|factual|project|episodic"},
			&cli.StringFlag{Name: "importance", Value: "0.5", Usage: "importance in [0,1]"},
			&cli.BoolFlag{Name: "pinned", Destination: &pinned},
			&cli.StringFlag{Name: "category"},
			&cli.StringFlag{Name: "source"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			text := cmd.Args().First()
			if text == "" {
				return &model.InvalidInputError{Field: "text", Message: "required positional argument"}
			}
			importance, err := parseFloatFlag("importance", cmd.String("importance"))
			if err != nil {
				return err
			}
			return withApp(ctx, cmd, func(ctx context.Context, app *bootstrap.App) error {
				res, err := app.Engine.Store(ctx, core.StoreOptions{
					Text:       text,
					Tier:       model.Tier(cmd.String("tier")),
					MemoryType: model.MemoryType(cmd.String("memory-type")),
					Importance: importance,
					Pinned:     pinned,
					Category:   cmd.String("category"),
					Source:     cmd.String("source"),
				})
				if err != nil {
					return err
				}
				if jsonOut {
					return printJSON(res)
				}
				if res.IsDuplicate {
					fmt.Printf("duplicate of %s (similarity %.3f)\n", res.ID, res.Similarity)
				} else {
					fmt.Printf("stored %s [%s/%s]\n", res.ID, res.Tier, res.MemoryType)
				}
				return nil
			})
		},
	}
}

// RecallCommand wraps core.Engine.Recall.
func RecallCommand() *cli.Command {
	var limit int
	var includeArchive, includeForgotten, jsonOut bool
	return &cli.Command{
		Name:      "recall",
		Usage:     "Recall memories matching a query, ranked by composite score",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			configFlag, newJSONFlag(&jsonOut),
			&cli.IntFlag{Name: "limit", Value: 5, Destination: &limit},
			&cli.StringFlag{Name: "tier"},
			&cli.BoolFlag{Name: "include-archive", Destination: &includeArchive},
			&cli.BoolFlag{Name: "include-forgotten", Destination: &includeForgotten},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			query := cmd.Args().First()
			return withApp(ctx, cmd, func(ctx context.Context, app *bootstrap.App) error {
				hits, err := app.Engine.Recall(ctx, core.RecallOptions{
					Query:            query,
					Limit:            limit,
					Tier:             model.Tier(cmd.String("tier")),
					IncludeArchive:   includeArchive,
					IncludeForgotten: includeForgotten,
				})
				if err != nil {
					return err
				}
				if jsonOut {
					return printJSON(hits)
				}
				for _, h := range hits {
					fmt.Printf("%.3f  %-8s %-10s %s  %s\n", h.Score, h.Tier, h.MemoryType, h.ID, h.Text)
				}
				return nil
			})
		},
	}
}

// SearchCommand exposes the raw HybridSearch leg scores (text,
// vector, combined) without the Scorer/Allocator composite ranking, useful
// for debugging why a memory did or didn't surface.
func SearchCommand() *cli.Command {
	var limit int
	var jsonOut bool
	return &cli.Command{
		Name:      "search",
		Usage:     "Run raw hybrid (lexical+vector) search, showing each leg's score",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			configFlag, newJSONFlag(&jsonOut),
			&cli.IntFlag{Name: "limit", Value: 10, Destination: &limit},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			query := cmd.Args().First()
			if query == "" {
				return &model.InvalidInputError{Field: "query", Message: "required positional argument"}
			}
			return withApp(ctx, cmd, func(ctx context.Context, app *bootstrap.App) error {
				results, err := app.Engine.SearchRaw(ctx, query, limit)
				if err != nil {
					return err
				}
				if jsonOut {
					return printJSON(results)
				}
				for _, r := range results {
					fmt.Printf("%.3f  (text=%.3f vec=%.3f)  %s\n", r.CombinedScore, r.TextScore, r.VectorScore, r.MemoryID)
				}
				return nil
			})
		},
	}
}

// ForgetCommand wraps core.Engine.Forget.
// Accepts either a memory id or a lexical query; when the positional
// argument doesn't resolve to an existing id it is treated as a query and
// the single best lexical match is forgotten instead.
func ForgetCommand() *cli.Command {
	var hard bool
	return &cli.Command{
		Name:      "forget",
		Usage:     "Soft- (or hard-) delete a memory by id or best-matching query",
		ArgsUsage: "<id|query>",
		Flags: []cli.Flag{
			configFlag,
			&cli.BoolFlag{Name: "hard", Usage: "permanently delete instead of soft-forgetting", Destination: &hard},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			arg := cmd.Args().First()
			if arg == "" {
				return &model.InvalidInputError{Field: "id", Message: "required positional argument"}
			}
			return withApp(ctx, cmd, func(ctx context.Context, app *bootstrap.App) error {
				id, err := resolveMemoryRef(ctx, app, arg)
				if err != nil {
					return err
				}
				if err := app.Engine.Forget(ctx, id, hard); err != nil {
					return err
				}
				fmt.Printf("forgot %s (hard=%v)\n", id, hard)
				return nil
			})
		},
	}
}

// RestoreCommand wraps core.Engine.Restore.
func RestoreCommand() *cli.Command {
	return &cli.Command{
		Name:      "restore",
		Usage:     "Restore a previously forgotten memory",
		ArgsUsage: "<id>",
		Flags:     []cli.Flag{configFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return &model.InvalidInputError{Field: "id", Message: "required positional argument"}
			}
			return withApp(ctx, cmd, func(ctx context.Context, app *bootstrap.App) error {
				if err := app.Engine.Restore(ctx, id); err != nil {
					return err
				}
				fmt.Printf("restored %s\n", id)
				return nil
			})
		},
	}
}

// PinCommand wraps core.Engine.Pin.
func PinCommand() *cli.Command {
	return &cli.Command{
		Name:      "pin",
		Usage:     "Pin a memory, promoting COLD/ARCHIVE memories to WARM",
		ArgsUsage: "<id>",
		Flags:     []cli.Flag{configFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return &model.InvalidInputError{Field: "id", Message: "required positional argument"}
			}
			return withApp(ctx, cmd, func(ctx context.Context, app *bootstrap.App) error {
				if err := app.Engine.Pin(ctx, id); err != nil {
					return err
				}
				fmt.Printf("pinned %s\n", id)
				return nil
			})
		},
	}
}

// UnpinCommand wraps core.Engine.Unpin.
func UnpinCommand() *cli.Command {
	return &cli.Command{
		Name:      "unpin",
		Usage:     "Unpin a memory",
		ArgsUsage: "<id>",
		Flags:     []cli.Flag{configFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return &model.InvalidInputError{Field: "id", Message: "required positional argument"}
			}
			return withApp(ctx, cmd, func(ctx context.Context, app *bootstrap.App) error {
				if err := app.Engine.Unpin(ctx, id); err != nil {
					return err
				}
				fmt.Printf("unpinned %s\n", id)
				return nil
			})
		},
	}
}

// ExplainCommand wraps core.Engine.Explain.
func ExplainCommand() *cli.Command {
	var jsonOut bool
	return &cli.Command{
		Name:      "explain",
		Usage:     "Show the Scorer's breakdown for a memory",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			configFlag, newJSONFlag(&jsonOut),
			&cli.StringFlag{Name: "query", Usage: "optional query to compute similarity against"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return &model.InvalidInputError{Field: "id", Message: "required positional argument"}
			}
			return withApp(ctx, cmd, func(ctx context.Context, app *bootstrap.App) error {
				exp, err := app.Engine.Explain(ctx, id, cmd.String("query"))
				if err != nil {
					return err
				}
				if jsonOut {
					return printJSON(exp)
				}
				fmt.Printf("score=%.3f similarity=%.3f recency=%.3f frequency=%.3f age_days=%.1f half_life=%.0fd eligible=%v\n",
					exp.Score, exp.SimilarityComponent, exp.RecencyComponent, exp.FrequencyComponent,
					exp.AgeDays, exp.HalfLifeDays, exp.Eligible)
				return nil
			})
		},
	}
}

// resolveMemoryRef treats ref as a memory id first; if no such memory
// exists, treats it as a lexical query and resolves to the top hit's id.
func resolveMemoryRef(ctx context.Context, app *bootstrap.App, ref string) (string, error) {
	if _, err := app.Store.GetMemory(ctx, ref); err == nil {
		return ref, nil
	}
	hits, err := app.Store.LexicalSearch(ctx, ref, 1)
	if err != nil {
		return "", err
	}
	if len(hits) == 0 {
		return "", &model.NotFoundError{Resource: "memory", ID: ref}
	}
	return hits[0].MemoryID, nil
}
