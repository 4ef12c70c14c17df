package main

import (
	"github.com/okian/segmentor/internal/config"
	"github.com/okian/segmentor/pkg/logger"
	"github.com/spf13/cobra"
)

// cli carries state shared by subcommands after the persistent pre-run.
type cli struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg *config.Config
	log logger.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "segmentor",
		Short:         "Percentile-rank entities and summarize them by tier",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "YAML config file (overrides "+config.EnvConfigFile+")")
	pf.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&c.logFormat, "log-format", "", "log format: text or json")

	root.AddCommand(
		newRunCmd(c),
		newValidateCmd(c),
		newSynthCmd(c),
		newTrendCmd(c),
	)
	return root
}

// setup initializes logging and loads configuration
// (defaults -> optional file -> env -> flags).
func (c *cli) setup(cmd *cobra.Command) error {
	ctx := cmd.Context()

	cfg, err := config.Load(ctx, c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if c.logFormat != "" {
		cfg.LogFormat = c.logFormat
	}

	if err := logger.InitWithOptions(
		logger.WithFormat(cfg.LogFormat),
		logger.WithOutput(cmd.ErrOrStderr()),
	); err != nil {
		return err
	}
	c.log = logger.Named("segmentor")

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		c.log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	c.cfg = cfg
	return nil
}
