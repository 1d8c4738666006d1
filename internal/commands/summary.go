package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"h2olog/internal/cli"
	"h2olog/internal/core"
	"h2olog/internal/printers"
)

var errDays = errors.New("--days must be between 1 and 90")

type summaryOutput struct {
	Date        string  `json:"date"`
	TotalIntake float64 `json:"totalIntake"`
	TotalOutput float64 `json:"totalOutput"`
	CountIntake int     `json:"countIntake"`
	CountOutput int     `json:"countOutput"`
	Balance     float64 `json:"balance"`
	OutputRatio float64 `json:"outputRatio"`
	Hint        string  `json:"hint,omitempty"`
}

func addSummary(topLevel *cobra.Command, r *root) {
	var date string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show one day's totals, today by default.",
		Example: `
h2olog summary
h2olog summary --date 2024-03-01
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, app *cli.App, pp *printers.PrettyPrint) error {
				day := app.Dashboard.Today()
				if date != "" {
					d, err := core.ParseDate(date, app.Location)
					if err != nil {
						return err
					}
					day = d
				}
				sum := app.Dashboard.Summary(ctx, day)

				var hint *core.Hint
				if day.Equal(app.Dashboard.Today()) {
					h := core.IntakeHint(sum, app.Config.LowIntakeML)
					hint = &h
				}
				if r.oo.JSON {
					out := summaryOutput{
						Date:        sum.Date.String(),
						TotalIntake: sum.TotalIntake,
						TotalOutput: sum.TotalOutput,
						CountIntake: sum.CountIntake,
						CountOutput: sum.CountOutput,
						Balance:     sum.Balance(),
						OutputRatio: sum.OutputRatio(),
					}
					if hint != nil {
						out.Hint = hint.Message
					}
					return pp.JSON(out)
				}
				pp.Title(day.String())
				pp.Summary(sum, hint)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Day to summarise (YYYY-MM-DD).")

	topLevel.AddCommand(cmd)
}

func addTrend(topLevel *cobra.Command, r *root) {
	var days int
	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Show daily intake and output for the last days.",
		Example: `
h2olog trend
h2olog trend --days 14
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, app *cli.App, pp *printers.PrettyPrint) error {
				if days < 0 || days > 90 {
					return errDays
				}
				points := app.Dashboard.Series(ctx, days)
				if r.oo.JSON {
					type point struct {
						Date        string  `json:"date"`
						IntakeTotal float64 `json:"intakeTotal"`
						OutputTotal float64 `json:"outputTotal"`
					}
					out := make([]point, 0, len(points))
					for _, p := range points {
						out = append(out, point{Date: p.Date.String(), IntakeTotal: p.IntakeTotal, OutputTotal: p.OutputTotal})
					}
					return pp.JSON(out)
				}
				pp.Title("Trend")
				pp.Series(points)
				if len(points) > 0 {
					pp.NewLine()
					pp.Range(core.SummarizeRange(app.Entries.List(ctx), points[0].Date, points[len(points)-1].Date))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Number of days, 1 to 90. Defaults to TREND_DAYS.")

	topLevel.AddCommand(cmd)
}
