package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"h2olog/internal/cli"
	"h2olog/internal/confirm"
	"h2olog/internal/core"
	"h2olog/internal/printers"
)

func addDelete(topLevel *cobra.Command, r *root) {
	var yes bool
	cmd := &cobra.Command{
		Use:     "delete <entry id>",
		Aliases: []string{"rm"},
		Short:   "Delete one entry after confirmation.",
		Example: `
h2olog list --id
h2olog delete 7f1c2a9e-...
`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("requires an entry id")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, app *cli.App, pp *printers.PrettyPrint) error {
				id := args[0]
				e, ok := app.Entries.Get(ctx, id)
				if !ok {
					return fmt.Errorf("no entry with id %q", id)
				}
				desc := fmt.Sprintf("%s ml %s at %s", core.FormatVolume(e.Amount), e.Type,
					e.Timestamp.In(app.Location).Format("2006-01-02 15:04"))
				req := app.Confirm.RequestDelete(id, desc)

				decision := confirm.DecisionConfirm
				if !yes {
					ok, err := r.opts.Prompter.Confirm(req.Message)
					if err != nil {
						return err
					}
					if !ok {
						decision = confirm.DecisionCancel
					}
				}
				out, err := app.Confirm.Decide(ctx, req.Token, decision, "", func(ctx context.Context, req confirm.Request) error {
					return app.Entries.Delete(ctx, req.EntryID)
				})
				if err != nil {
					return err
				}
				return r.afterDecision(ctx, app, pp, out)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt.")

	topLevel.AddCommand(cmd)
}

func addClear(topLevel *cobra.Command, r *root) {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every entry. Requires typing " + confirm.StrongPhrase + ".",
		Example: `
h2olog clear
h2olog clear --yes
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, app *cli.App, pp *printers.PrettyPrint) error {
				n := app.Entries.Len()
				if n == 0 {
					if r.oo.JSON {
						return pp.JSON(map[string]any{"performed": false, "remaining": 0})
					}
					pp.Message("Nothing to clear.")
					return nil
				}
				req := app.Confirm.RequestClear(n)

				phrase := confirm.StrongPhrase
				if !yes {
					pp.Warn(req.Message)
					typed, err := r.opts.Prompter.Phrase(fmt.Sprintf("Type %s to confirm", confirm.StrongPhrase))
					if err != nil {
						return err
					}
					phrase = typed
				}
				out, err := app.Confirm.Decide(ctx, req.Token, confirm.DecisionConfirm, phrase, func(ctx context.Context, _ confirm.Request) error {
					return app.Entries.Clear(ctx)
				})
				if errors.Is(err, confirm.ErrPhraseMismatch) {
					// drop the pending request; the next run asks again
					_, _ = app.Confirm.Decide(ctx, req.Token, confirm.DecisionCancel, "", nil)
					return fmt.Errorf("confirmation phrase did not match, nothing was deleted")
				}
				if err != nil {
					return err
				}
				return r.afterDecision(ctx, app, pp, out)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip typing the confirmation phrase.")

	topLevel.AddCommand(cmd)
}

// afterDecision reports the outcome and shows the log as it now is.
func (r *root) afterDecision(ctx context.Context, app *cli.App, pp *printers.PrettyPrint, out confirm.Outcome) error {
	if r.oo.JSON {
		return pp.JSON(map[string]any{"performed": out.Performed, "remaining": app.Entries.Len()})
	}
	if !out.Performed {
		pp.Message("Cancelled, nothing was deleted.")
		return nil
	}
	pp.Success("Deleted.")
	pp.NewLine()
	pp.History(app.Dashboard.History(ctx), app.Dashboard.Today())
	return nil
}
