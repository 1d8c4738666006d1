package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"h2olog/internal/cli"
	"h2olog/internal/core"
	"h2olog/internal/printers"
)

func addAdd(topLevel *cobra.Command, r *root) {
	var (
		note string
		at   string
	)
	cmd := &cobra.Command{
		Use:   "add <intake|output> <ml>",
		Short: "Record what you drank or passed.",
		Example: `
h2olog add intake 250
h2olog add output 300 --at 2024-03-01T07:30 --note "after run"
`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return errors.New("requires an entry type and an amount in ml")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, app *cli.App, pp *printers.PrettyPrint) error {
				draft, err := parseDraft(args[0], args[1], at, note, app.Location)
				if err != nil {
					return err
				}
				e, err := app.Entries.Add(ctx, draft)
				if err != nil {
					return err
				}
				if r.oo.JSON {
					return pp.JSON(e)
				}
				pp.Success("Added %s %s ml at %s (%s)", e.Type, core.FormatVolume(e.Amount),
					e.Timestamp.In(app.Location).Format("15:04"), e.ID)
				pp.NewLine()
				day := core.DateOf(e.Timestamp, app.Location)
				pp.Title(day.String())
				sum := app.Dashboard.Summary(ctx, day)
				pp.Summary(sum, nil)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "Optional note.")
	cmd.Flags().StringVar(&at, "at", "", "When it happened, as 2006-01-02T15:04 or RFC 3339. Defaults to now.")

	topLevel.AddCommand(cmd)
}

func parseDraft(typ, amount, at, note string, loc *time.Location) (core.Draft, error) {
	t, err := core.ParseEntryType(typ)
	if err != nil {
		return core.Draft{}, err
	}
	v, err := core.ParseVolume(amount)
	if err != nil {
		return core.Draft{}, err
	}
	d := core.Draft{Type: t, Amount: v, Note: note}
	if at != "" {
		ts, err := time.ParseInLocation("2006-01-02T15:04", at, loc)
		if err != nil {
			if ts, err = time.Parse(time.RFC3339, at); err != nil {
				return core.Draft{}, fmt.Errorf("invalid --at %q", at)
			}
		}
		d.Timestamp = ts
	}
	return d, nil
}
