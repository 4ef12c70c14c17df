package main

import (
	"github.com/okian/segmentor/internal/adapters/render"
	"github.com/okian/segmentor/internal/adapters/source"
	app "github.com/okian/segmentor/internal/app"
	"github.com/okian/segmentor/pkg/logger"
	"github.com/spf13/cobra"
)

func newTrendCmd(c *cli) *cobra.Command {
	var (
		snapshot string
		format   string
		lag      int
	)
	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Compare every period's total with an earlier period",
		Long: "Compare every period's total with the period lag steps earlier.\n" +
			"On monthly series use --lag 1 for month over month and --lag 12 for year over year.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := c.cfg
			if snapshot != "" {
				cfg.Source.Kind = source.KindFile
				cfg.Source.Path = snapshot
			}
			if format != "" {
				cfg.Output.Format = format
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
			svc := app.New(src, app.WithLogger(c.log))
			defer func() {
				if err := svc.Close(); err != nil {
					c.log.Warn(ctx, "closing source failed", logger.Error(err))
				}
			}()

			rep, err := svc.Trend(ctx, lag)
			if err != nil {
				return err
			}
			return renderer.WriteTrend(cmd.OutOrStdout(), rep)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&snapshot, "snapshot", "", "read a YAML snapshot file instead of the configured source")
	fs.StringVarP(&format, "format", "f", "", "output format: table, json or yaml")
	fs.IntVar(&lag, "lag", 1, "number of periods to look back")
	return cmd
}
