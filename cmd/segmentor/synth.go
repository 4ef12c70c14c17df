package main

import (
	"github.com/okian/segmentor/internal/adapters/source"
	"github.com/okian/segmentor/internal/synth"
	"github.com/okian/segmentor/pkg/logger"
	"github.com/spf13/cobra"
)

// Default generation settings.
const (
	defaultCustomers = 1000
	defaultSeed      = 42
)

func newSynthCmd(c *cli) *cobra.Command {
	var (
		cfg synth.Config
		out string
	)
	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Generate a synthetic customer snapshot as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			doc, err := synth.Generate(ctx, cfg)
			if err != nil {
				return err
			}
			if out == "" {
				return source.Encode(cmd.OutOrStdout(), doc)
			}
			if err := source.WriteFile(out, doc); err != nil {
				return err
			}
			c.log.Info(ctx, "snapshot written",
				logger.String("path", out),
				logger.String("id", doc.ID),
				logger.Int("entities", len(doc.Entities)),
				logger.Int("details", len(doc.Details)),
			)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.IntVar(&cfg.Customers, "customers", defaultCustomers, "number of customers")
	fs.Int64Var(&cfg.Seed, "seed", defaultSeed, "random seed")
	fs.IntVar(&cfg.Orphans, "orphans", 0, "detail rows referencing unknown customers")
	fs.StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}
