package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"h2olog/internal/cli"
	"h2olog/internal/core"
	"h2olog/internal/printers"
)

func addPresets(topLevel *cobra.Command, r *root) {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "Show the quick-add amounts.",
		Example: `
h2olog presets
h2olog presets add intake 330
h2olog presets remove output 400
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, app *cli.App, pp *printers.PrettyPrint) error {
				return r.showPresets(pp, app.Settings.Get(ctx))
			})
		},
	}

	change := func(use, short string, fn func(*cli.App) func(context.Context, core.EntryType, int) (core.UserSettings, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <intake|output> <ml>",
			Short: short,
			Args: func(cmd *cobra.Command, args []string) error {
				if len(args) != 2 {
					return errors.New("requires an entry type and a whole amount in ml")
				}
				return nil
			},
			RunE: func(cmd *cobra.Command, args []string) error {
				return r.run(cmd, func(ctx context.Context, app *cli.App, pp *printers.PrettyPrint) error {
					kind, err := core.ParseEntryType(args[0])
					if err != nil {
						return err
					}
					v, err := core.ParsePreset(args[1])
					if err != nil {
						return err
					}
					s, err := fn(app)(ctx, kind, v)
					if err != nil {
						return err
					}
					return r.showPresets(pp, s)
				})
			},
		}
	}
	cmd.AddCommand(
		change("add", "Add a quick-add amount.", func(a *cli.App) func(context.Context, core.EntryType, int) (core.UserSettings, error) {
			return a.Settings.AddPreset
		}),
		change("remove", "Remove a quick-add amount.", func(a *cli.App) func(context.Context, core.EntryType, int) (core.UserSettings, error) {
			return a.Settings.RemovePreset
		}),
	)

	topLevel.AddCommand(cmd)
}

func (r *root) showPresets(pp *printers.PrettyPrint, s core.UserSettings) error {
	if r.oo.JSON {
		return pp.JSON(s)
	}
	pp.Presets(s)
	return nil
}
