package main

import (
	"fmt"

	"github.com/okian/drivescore/internal/adapters/repository"
	"github.com/spf13/cobra"
)

func migrateCommand(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	withStore := func(run func(cmd *cobra.Command, store *repository.SQLStore) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(cmd.Context(), env.cfg, env.log)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			return run(cmd, store)
		}
	}

	printVersion := func(cmd *cobra.Command, store *repository.SQLStore) error {
		v, dirty, err := store.MigrateVersion(cmd.Context())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "version %d dirty %t\n", v, dirty)
		return err
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withStore(func(cmd *cobra.Command, store *repository.SQLStore) error {
				if err := store.MigrateUp(cmd.Context()); err != nil {
					return err
				}
				return printVersion(cmd, store)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: withStore(func(cmd *cobra.Command, store *repository.SQLStore) error {
				if err := store.MigrateDown(cmd.Context()); err != nil {
					return err
				}
				return printVersion(cmd, store)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE:  withStore(printVersion),
		},
	)
	return cmd
}
