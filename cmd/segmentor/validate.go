package main

import (
	"fmt"

	"github.com/okian/segmentor/internal/domain/tier"
	"github.com/spf13/cobra"
)

func newValidateCmd(c *cli) *cobra.Command {
	var tiers string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and print the tier definition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			def := c.cfg.Tiers
			if tiers != "" {
				levels, err := tier.Parse(tiers)
				if err != nil {
					return err
				}
				def.Tiers = levels
			}
			if err := def.Validate(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "source: %s\n", c.cfg.Source.Kind)
			fmt.Fprintf(out, "basis: %s\n", def.EffectiveBasis())
			for i, t := range def.Tiers {
				if i == len(def.Tiers)-1 {
					fmt.Fprintf(out, "  %s: remainder (>= %g)\n", t.Label, t.Threshold)
					continue
				}
				fmt.Fprintf(out, "  %s: >= %g\n", t.Label, t.Threshold)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tiers, "tiers", "", "tier list to check instead of the configured one")
	return cmd
}
