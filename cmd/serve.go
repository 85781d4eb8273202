package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/okian/drivescore/internal/adapters/http/api"
	"github.com/okian/drivescore/internal/adapters/http/swagger"
	service "github.com/okian/drivescore/internal/app"
	"github.com/okian/drivescore/pkg/logger"
	"github.com/okian/drivescore/pkg/metrics"
	"github.com/spf13/cobra"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func serveCommand(env *cliEnv) *cobra.Command {
	var finalizeEvery time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), env, finalizeEvery)
		},
	}
	cmd.Flags().DurationVar(&finalizeEvery, "finalize-every", 0, "run finalize on this interval; 0 leaves it to POST /finalize")
	return cmd
}

func serve(ctx context.Context, env *cliEnv, finalizeEvery time.Duration) error {
	cfg, log := env.cfg, env.log

	svc, err := startService(ctx, cfg, log, cfg.AutoMigrate)
	if err != nil {
		return err
	}
	defer svc.Stop()

	if err := metrics.StartRuntimeCollector(ctx); err != nil {
		log.Warn(ctx, "runtime metrics disabled", logger.Error(err))
	}
	if finalizeEvery > 0 {
		go finalizeLoop(ctx, svc, log, finalizeEvery)
	}

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, api.WithLogger(log.Named("api"))).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("storage", cfg.StorageDriver),
			logger.String("mapProvider", cfg.MapProvider),
			logger.String("weatherProvider", cfg.WeatherProvider),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// finalizeLoop triggers a finalize run every interval until ctx is done.
// A tick that overlaps a run started through the API is skipped.
func finalizeLoop(ctx context.Context, svc *service.Service, log logger.Logger, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := svc.FinalizeEligible(ctx)
			switch {
			case errors.Is(err, service.ErrRunInProgress):
				log.Debug(ctx, "finalize tick skipped; run in progress")
			case err != nil:
				log.Error(ctx, "scheduled finalize failed", logger.Error(err))
			case res.Finalized > 0 || len(res.Errors) > 0:
				log.Info(ctx, "scheduled finalize",
					logger.Int("finalized", res.Finalized),
					logger.Int("failed", len(res.Errors)),
				)
			}
		}
	}
}
