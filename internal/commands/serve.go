package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"h2olog/internal/cli"
	apphttp "h2olog/internal/http"
	"h2olog/internal/log"
	"h2olog/internal/printers"
	"h2olog/internal/realtime"
	"h2olog/internal/scheduler"
)

const (
	shutdownTimeout      = 30 * time.Second
	cacheCleanupInterval = time.Minute
)

func addServe(topLevel *cobra.Command, r *root) {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web interface, the daily digest and the change publisher.",
		Example: `
h2olog serve
PORT=9000 DATA_BACKEND=sqlite h2olog serve
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := cli.SignalContext(cmd.Context())
			defer stop()
			return r.runContext(ctx, func(ctx context.Context, app *cli.App, _ *printers.PrettyPrint) error {
				if addr == "" {
					addr = app.Config.Addr()
				}
				return serve(ctx, app, addr)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address. Defaults to BIND_ADDR:PORT.")

	topLevel.AddCommand(cmd)
}

// serve runs every long-lived part under one errgroup; the first
// failure or a signal stops them all.
func serve(ctx context.Context, app *cli.App, addr string) error {
	logger := app.Logger

	hub := realtime.NewHub(logger)
	unsubEntries := app.Entries.Subscribe(hub.Listener())
	unsubSettings := app.Settings.Subscribe(hub.Listener())
	defer unsubEntries()
	defer unsubSettings()

	srv, err := apphttp.NewServer(addr, apphttp.Deps{
		Dashboard: app.Dashboard,
		Insights:  app.Insights,
		Requester: app.Requester,
		Confirm:   app.Confirm,
		Hub:       hub,
		Blobs:     app.Blobs,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	var sinks []scheduler.Sink
	if app.Publisher != nil {
		sinks = append(sinks, app.Publisher)
	}
	sched, err := scheduler.New(app.Config.DigestSchedule, app.Location, app.Dashboard, logger, sinks...)
	if err != nil {
		return err
	}

	app.Caches.StartCleanup(cacheCleanupInterval)
	defer app.Caches.Stop()

	logger.Info("Starting h2olog",
		log.FieldOperation, log.OpStartup,
		"addr", addr,
		"backend", app.Config.DataBackend,
		"insight_configured", app.Requester.Configured(),
		"change_events", app.Publisher != nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx, shutdownTimeout) })
	g.Go(func() error { return sched.Run(gctx) })
	if app.Publisher != nil {
		g.Go(func() error { return app.Publisher.Run(gctx) })
	}
	err = g.Wait()
	logger.Info("Stopped h2olog", log.FieldOperation, log.OpShutdown)
	return err
}
