package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/urfave/cli/v3"

	"github.com/recurator/tram/internal/bootstrap"
	"github.com/recurator/tram/internal/model"
	registrystore "github.com/recurator/tram/internal/registry/store"
)

// ListCommand lists stored memories, filtered by --tier, --forgotten,
// --pinned, --sort, --limit, --json.
func ListCommand() *cli.Command {
	var forgotten, pinnedOnly, jsonOut bool
	var limit int
	return &cli.Command{
		Name:  "list",
		Usage: "List stored memories",
		Flags: []cli.Flag{
			configFlag, newJSONFlag(&jsonOut),
			&cli.StringFlag{Name: "tier", Usage: "restrict to one tier"},
			&cli.BoolFlag{Name: "forgotten", Usage: "include forgotten memories", Destination: &forgotten},
			&cli.BoolFlag{Name: "pinned", Usage: "restrict to pinned memories", Destination: &pinnedOnly},
			&cli.StringFlag{Name: "sort", Value: "created", Usage: "created|recency|uses"},
			&cli.IntFlag{Name: "limit", Value: 50, Destination: &limit},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withApp(ctx, cmd, func(ctx context.Context, app *bootstrap.App) error {
				var tiers registrystore.TierFilter
				if t := cmd.String("tier"); t != "" {
					tiers = registrystore.TierFilter{model.Tier(t)}
				}
				memories, err := app.Store.ListByTier(ctx, tiers, forgotten)
				if err != nil {
					return err
				}
				if pinnedOnly {
					memories = filterPinned(memories)
				}
				sortMemories(memories, cmd.String("sort"))
				if limit > 0 && len(memories) > limit {
					memories = memories[:limit]
				}
				if jsonOut {
					return printJSON(memories)
				}
				for _, m := range memories {
					flags := ""
					if m.Pinned {
						flags += "P"
					}
					if m.Forgotten() {
						flags += "F"
					}
					fmt.Printf("%-36s %-8s %-10s uses=%-4d %-2s %s\n", m.ID, m.Tier, m.MemoryType, m.UseCount, flags, m.Text)
				}
				return nil
			})
		},
	}
}

func filterPinned(memories []model.Memory) []model.Memory {
	out := memories[:0]
	for _, m := range memories {
		if m.Pinned {
			out = append(out, m)
		}
	}
	return out
}

func sortMemories(memories []model.Memory, by string) {
	switch by {
	case "recency":
		sort.Slice(memories, func(i, j int) bool { return memories[i].LastAccessedAt.After(memories[j].LastAccessedAt) })
	case "uses":
		sort.Slice(memories, func(i, j int) bool { return memories[i].UseCount > memories[j].UseCount })
	default:
		sort.Slice(memories, func(i, j int) bool { return memories[i].CreatedAt.Before(memories[j].CreatedAt) })
	}
}
