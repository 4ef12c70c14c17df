package main

import (
	"io"
	"os"
	"runtime"

	"github.com/okian/segmentor/internal/adapters/render"
	"github.com/okian/segmentor/internal/adapters/source"
	app "github.com/okian/segmentor/internal/app"
	"github.com/okian/segmentor/internal/domain/tier"
	"github.com/okian/segmentor/pkg/logger"
	"github.com/okian/segmentor/pkg/metrics"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type runFlags struct {
	snapshot    string
	format      string
	out         string
	tiers       string
	skipDetails bool
	textfile    string
	top         int
}

func newRunCmd(c *cli) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Segment the configured source and print the tier report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, f)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.snapshot, "snapshot", "", "read a YAML snapshot file instead of the configured source")
	fs.StringVarP(&f.format, "format", "f", "", "output format: table, json or yaml")
	fs.StringVarP(&f.out, "out", "o", "", "write the report to this file instead of stdout")
	fs.StringVar(&f.tiers, "tiers", "", `tier list, e.g. "High Value=0.8,Medium Value=0.5,Low Value=0"`)
	fs.BoolVar(&f.skipDetails, "skip-details", false, "do not load detail records")
	fs.StringVar(&f.textfile, "metrics-textfile", "", "write Prometheus metrics to this file after the run")
	fs.IntVar(&f.top, "top", 0, "also list the N largest entities of every tier")
	return cmd
}

func (c *cli) run(cmd *cobra.Command, f runFlags) error {
	ctx := cmd.Context()
	cfg := c.cfg

	if f.snapshot != "" {
		cfg.Source.Kind = source.KindFile
		cfg.Source.Path = f.snapshot
	}
	if f.format != "" {
		cfg.Output.Format = f.format
	}
	if f.out != "" {
		cfg.Output.Path = f.out
	}
	if f.tiers != "" {
		levels, err := tier.Parse(f.tiers)
		if err != nil {
			return err
		}
		cfg.Tiers.Tiers = levels
	}
	if cmd.Flags().Changed("skip-details") {
		cfg.Source.SkipDetails = f.skipDetails
	}
	if f.textfile != "" {
		cfg.Metrics.Textfile = f.textfile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	renderer, err := render.New(cfg.Output.Format)
	if err != nil {
		return err
	}

	src, err := source.New(ctx, cfg.Source)
	if err != nil {
		return err
	}

	svc := app.New(src,
		app.WithLogger(c.log),
		app.WithDefinition(cfg.Tiers),
		app.WithSkipDetails(cfg.Source.SkipDetails),
		app.WithTop(f.top),
	)
	defer func() {
		if err := svc.Close(); err != nil {
			c.log.Warn(ctx, "closing source failed", logger.Error(err))
		}
	}()

	run, runErr := svc.Run(ctx)
	if runErr == nil {
		runErr = c.writeReport(cmd.OutOrStdout(), cfg.Output.Path, svc, renderer, run)
	}

	updateSystemMetrics()
	if cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			c.log.Error(ctx, "writing metrics textfile failed", logger.String("path", cfg.Metrics.Textfile), logger.Error(err))
		}
	}
	return runErr
}

func (c *cli) writeReport(stdout io.Writer, path string, svc *app.Service, r *render.Renderer, run *app.Run) error {
	if path == "" {
		return svc.Render(stdout, r, run)
	}
	out, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create report %s", path)
	}
	if err := svc.Render(out, r, run); err != nil {
		_ = out.Close()
		return err
	}
	return errors.Wrapf(out.Close(), "close report %s", path)
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystem(m.Alloc, runtime.NumGoroutine())
}
