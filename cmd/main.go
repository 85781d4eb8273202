package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/drivescore/internal/config"
	"github.com/okian/drivescore/pkg/logger"
	"github.com/spf13/cobra"
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// cliEnv carries what PersistentPreRunE prepared for the sub-commands.
type cliEnv struct {
	configPath string
	cfg        *config.Config
	log        logger.Logger
}

func newRootCommand() *cobra.Command {
	env := &cliEnv{}

	rootCmd := &cobra.Command{
		Use:          "drivescore",
		Short:        "Telematics trip safety scoring",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&env.configPath, "config", "c", "", "YAML config file (overrides DRIVESCORE_CONFIG)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return env.init(cmd.Context())
	}

	rootCmd.AddCommand(
		serveCommand(env),
		finalizeCommand(env),
		migrateCommand(env),
	)
	return rootCmd
}

// init loads configuration (defaults -> optional file -> env) and sets up
// the global logger.
func (e *cliEnv) init(ctx context.Context) error {
	if e.configPath != "" {
		if err := os.Setenv("DRIVESCORE_CONFIG", e.configPath); err != nil {
			return err
		}
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.Init(
		logger.WithLevel(cfg.LogLevel),
		logger.WithFormat(cfg.LogFormat),
		logger.WithWriter(os.Stderr),
	); err != nil {
		return err
	}
	e.cfg = cfg
	e.log = logger.Get()
	return nil
}
