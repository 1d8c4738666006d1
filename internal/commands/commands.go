// Package commands builds the h2olog command line.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"h2olog/internal/cli"
	"h2olog/internal/printers"
)

// Options are the process-level collaborators of every command.
type Options struct {
	Out      io.Writer
	Prompter Prompter
	// OpenApp loads configuration and opens storage.
	OpenApp func(ctx context.Context) (*cli.App, error)
}

// OutputOptions switch commands to JSON output.
type OutputOptions struct {
	JSON bool
}

func AddOutputArg(cmd *cobra.Command, po *OutputOptions) {
	cmd.PersistentFlags().BoolVar(&po.JSON, "json", false,
		"Output as JSON.")
}

// HandleError prints err as JSON when --json is set, so scripts always
// get a parseable body; the command still fails.
func (o *OutputOptions) HandleError(out io.Writer, err error) error {
	if o.JSON && err != nil {
		b, merr := json.Marshal(map[string]string{"error": err.Error()})
		if merr != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, string(b))
	}
	return err
}

type root struct {
	opts Options
	oo   OutputOptions
}

func New() *cobra.Command {
	return NewWithOptions(Options{})
}

func NewWithOptions(opts Options) *cobra.Command {
	if opts.Out == nil {
		opts.Out = color.Output
	}
	if opts.Prompter == nil {
		opts.Prompter = &promptUI{in: os.Stdin, out: os.Stdout}
	}
	if opts.OpenApp == nil {
		opts.OpenApp = openApp
	}
	r := &root{opts: opts}

	cmd := &cobra.Command{
		Use:           "h2olog",
		Short:         "Log what you drink and pass, and see how your hydration trends.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.SetOut(opts.Out)
	AddOutputArg(cmd, &r.oo)

	r.addCommands(cmd)
	return cmd
}

func (r *root) addCommands(topLevel *cobra.Command) {
	addServe(topLevel, r)
	addAdd(topLevel, r)
	addList(topLevel, r)
	addDelete(topLevel, r)
	addClear(topLevel, r)
	addSummary(topLevel, r)
	addTrend(topLevel, r)
	addPresets(topLevel, r)
	addInsight(topLevel, r)
	addExport(topLevel, r)
	addWatch(topLevel, r)
	addVersion(topLevel, r)
}

func openApp(ctx context.Context) (*cli.App, error) {
	cli.LoadEnvFile()
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return nil, err
	}
	logger := cli.SetupLogger(cfg, os.Stderr)
	return cli.NewApp(ctx, cfg, logger)
}

// run opens the app, hands it to fn and closes it afterwards.
func (r *root) run(cmd *cobra.Command, fn func(ctx context.Context, app *cli.App, pp *printers.PrettyPrint) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return r.runContext(ctx, fn)
}

func (r *root) runContext(ctx context.Context, fn func(ctx context.Context, app *cli.App, pp *printers.PrettyPrint) error) error {
	app, err := r.opts.OpenApp(ctx)
	if err != nil {
		return r.oo.HandleError(r.opts.Out, err)
	}
	pp := printers.New(r.opts.Out, app.Location)
	err = fn(ctx, app, pp)
	if cerr := app.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return r.oo.HandleError(r.opts.Out, err)
}
