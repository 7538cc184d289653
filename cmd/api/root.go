package main

import (
	"fmt"
	"log/slog"

	"github.com/cimillas/client-ledger/internal/config"
	"github.com/cimillas/client-ledger/internal/logging"
	"github.com/spf13/cobra"
)

// env is what every subcommand shares once the root has loaded it.
type env struct {
	cfg    config.Config
	logger *slog.Logger
	sync   func() error
}

func newRootCommand() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "api",
		Short:         "Client profit ledger service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, sync, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			if cfg.EnvFile != "" {
				logger.Info("loaded env file", "path", cfg.EnvFile)
			}
			e.cfg, e.logger, e.sync = cfg, logger, sync
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.sync != nil {
				_ = e.sync()
			}
		},
	}

	serve := newServeCommand(e)
	root.RunE = serve.RunE
	root.AddCommand(serve, newMigrateCommand(e), newScenarioCommand(e))
	return root
}
