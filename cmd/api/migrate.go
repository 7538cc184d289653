package main

import (
	"context"
	"fmt"

	"github.com/cimillas/client-ledger/internal/config"
	"github.com/cimillas/client-ledger/migrations"
	"github.com/spf13/cobra"
)

func newMigrateCommand(e *env) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending Postgres migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				names, err := migrations.Names()
				if err != nil {
					return err
				}
				for _, n := range names {
					fmt.Fprintln(cmd.OutOrStdout(), n)
				}
				return nil
			}
			if e.cfg.StoreDriver != config.DriverPostgres {
				e.logger.Info("sqlite schema is created on open, nothing to migrate")
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), startupTimeout)
			defer cancel()
			pool, err := connectPostgres(ctx, e.cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			applied, err := migrations.Apply(ctx, pool, e.logger)
			if err != nil {
				return err
			}
			e.logger.Info("migrations complete", "applied", len(applied))
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "print the embedded migrations and exit")
	return cmd
}
