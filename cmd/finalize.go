package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func finalizeCommand(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "finalize",
		Short: "Close and score every eligible trip once",
		Long: `Runs one finalize pass against the configured store and prints the
result as JSON. The command fails when any trip could not be finalized.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, err := startService(ctx, env.cfg, env.log, env.cfg.AutoMigrate)
			if err != nil {
				return err
			}
			defer svc.Stop()

			res, err := svc.FinalizeEligible(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			if len(res.Errors) > 0 {
				return fmt.Errorf("%d trips failed to finalize", len(res.Errors))
			}
			return nil
		},
	}
}
