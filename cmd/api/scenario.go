package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cimillas/client-ledger/internal/scenario"
	"github.com/spf13/cobra"
)

func newScenarioCommand(e *env) *cobra.Command {
	opts := scenario.DefaultOptions()
	cmd := &cobra.Command{
		Use:       "scenario {" + strings.Join(scenario.Names(), "|") + "}",
		Short:     "Run a demonstration scenario against the configured store",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: scenario.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := openStores(ctx, e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer st.Close()

			svc, err := buildServices(ctx, e.cfg, e.logger, st, nil)
			if err != nil {
				return err
			}
			runner := scenario.NewRunner(svc.clients, st.clients, svc.orders, svc.lifecycle, opts, e.logger)
			rep, err := runner.Run(ctx, args[0])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(rep); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.DuplicateAttempts, "attempts", opts.DuplicateAttempts, "identical orders submitted by the duplicate scenario")
	cmd.Flags().IntVar(&opts.DeactivationOrders, "orders", opts.DeactivationOrders, "sequential orders in the deactivation scenario")
	cmd.Flags().DurationVar(&opts.DeactivationDelay, "delay", opts.DeactivationDelay, "time before the consumer is deactivated")
	return cmd
}
