package commands

import (
	"context"

	"github.com/spf13/cobra"

	"h2olog/internal/cli"
	"h2olog/internal/core"
	"h2olog/internal/printers"
)

func addList(topLevel *cobra.Command, r *root) {
	var (
		date   string
		showID bool
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls", "history"},
		Short:   "List entries grouped by day, newest first.",
		Example: `
h2olog list
h2olog list --date 2024-03-01 --id
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, app *cli.App, pp *printers.PrettyPrint) error {
				pp.ShowID = showID
				groups := app.Dashboard.History(ctx)
				if date != "" {
					d, err := core.ParseDate(date, app.Location)
					if err != nil {
						return err
					}
					groups = onDay(groups, d)
				}
				if r.oo.JSON {
					var out []core.LogEntry
					for _, g := range groups {
						out = append(out, g.Entries...)
					}
					if out == nil {
						out = []core.LogEntry{}
					}
					return pp.JSON(out)
				}
				pp.History(groups, app.Dashboard.Today())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Only show this day (YYYY-MM-DD).")
	cmd.Flags().BoolVar(&showID, "id", false, "Show entry IDs, needed by delete.")

	topLevel.AddCommand(cmd)
}

func onDay(groups []core.DayGroup, d core.Date) []core.DayGroup {
	for _, g := range groups {
		if g.Date.Equal(d) {
			return []core.DayGroup{g}
		}
	}
	return nil
}
