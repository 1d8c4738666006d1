package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"h2olog/internal/cli"
	"h2olog/internal/printers"
)

func addInsight(topLevel *cobra.Command, r *root) {
	cmd := &cobra.Command{
		Use:   "insight",
		Short: "Ask the text-generation API for a short summary of recent habits.",
		Example: `
GEMINI_API_KEY=... h2olog insight
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, app *cli.App, pp *printers.PrettyPrint) error {
				if !r.oo.JSON && app.Requester.Configured() {
					pp.Message("Generating insight...")
				}
				res := app.Insights.Run(ctx)
				if r.oo.JSON {
					return pp.JSON(insightOutput{
						Status:      string(res.Status),
						Text:        res.Text,
						Provider:    res.Provider,
						GeneratedAt: res.GeneratedAt.Format(time.RFC3339),
					})
				}
				pp.Insight(res)
				return nil
			})
		},
	}

	topLevel.AddCommand(cmd)
}

type insightOutput struct {
	Status      string `json:"status"`
	Text        string `json:"text"`
	Provider    string `json:"provider,omitempty"`
	GeneratedAt string `json:"generatedAt"`
}
