package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"crudkit/internal/catalog"
	"crudkit/internal/engine"
	"crudkit/internal/instrument"
	"crudkit/internal/logger"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port > 0 {
				opts.cfg.Server.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg := opts.cfg
	log := logger.Get()

	db, err := openStore(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}
	log.Info("database ready", "driver", cfg.Database.Driver)

	var metrics *instrument.Metrics
	deps := catalog.Deps{Store: db, Logger: log}
	if cfg.Metrics.Enabled {
		metrics = instrument.NewMetrics("crudkit")
	}

	reg := engine.NewRegistry()
	if err := catalog.Register(reg, deps); err != nil {
		return fmt.Errorf("register catalog: %w", err)
	}

	app := newApp(cfg, reg, metrics, log)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		log.Info("starting server", "addr", addr, "auth", cfg.Auth.Enabled)
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}
