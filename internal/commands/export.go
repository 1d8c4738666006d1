package commands

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"h2olog/internal/cli"
	"h2olog/internal/core"
	"h2olog/internal/printers"
)

func addExport(topLevel *cobra.Command, r *root) {
	var (
		output string
		format string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every entry as JSON or CSV.",
		Example: `
h2olog export > backup.json
h2olog export --format csv --output log.csv
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "csv" {
				return fmt.Errorf("unknown format %q: must be json or csv", format)
			}
			return r.run(cmd, func(ctx context.Context, app *cli.App, pp *printers.PrettyPrint) error {
				entries := app.Entries.List(ctx)
				w := r.opts.Out
				if output != "" {
					f, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("create %s: %w", output, err)
					}
					defer f.Close()
					w = f
				}

				var err error
				if format == "csv" {
					err = writeCSV(w, entries, app.Location)
				} else {
					err = printers.New(w, app.Location).JSON(entries)
				}
				if err != nil {
					return fmt.Errorf("export: %w", err)
				}
				if output != "" {
					pp.Success("Exported %d entries to %s", len(entries), output)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "File to write instead of stdout.")
	cmd.Flags().StringVar(&format, "format", "json", "Output format. One of 'json' or 'csv'.")

	topLevel.AddCommand(cmd)
}

func writeCSV(w io.Writer, entries []core.LogEntry, loc *time.Location) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "timestamp", "type", "amount_ml", "note"}); err != nil {
		return err
	}
	for _, e := range entries {
		rec := []string{e.ID, e.Timestamp.In(loc).Format(time.RFC3339), string(e.Type), core.FormatVolume(e.Amount), e.Note}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
