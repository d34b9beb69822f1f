package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/aretw0/hfsm"
	"github.com/aretw0/hfsm/internal/cli"
	httpAdapter "github.com/aretw0/hfsm/pkg/adapters/http"
	"github.com/aretw0/hfsm/pkg/observability"
	"github.com/aretw0/hfsm/pkg/persistence/middleware"
	"github.com/aretw0/hfsm/pkg/ports"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the engine as an HTTP server. Stateless transitions are served on
/transition, stored machines under /machines, Prometheus metrics on /metrics
and change notifications on /events. The graph is reloaded when its source
changes; a reload that fails keeps the previous graph.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		if !cmd.Flags().Changed("addr") {
			addr = cfg.HTTP.Addr
		}

		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics, err := observability.NewMetrics(registry)
		if err != nil {
			return err
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		engine, err := cli.NewReloader(sigCtx, func(ctx context.Context) (*hfsm.Engine, error) {
			return cli.OpenEngine(ctx, cfg, logger, metrics.Hooks(), observability.LogHooks(logger))
		}, logger)
		if err != nil {
			return err
		}

		backend, err := cli.OpenBackend(cmd.Context(), cfg, storeDir(cmd))
		if err != nil {
			return err
		}
		defer backend.Close()

		storeMetrics, err := middleware.NewMetricsMiddleware(registry)
		if err != nil {
			return err
		}
		backend.Use(storeMetrics, middleware.NewGraphSourceMiddleware(engine.Graph))

		opts := []httpAdapter.Option{
			httpAdapter.WithLogger(logger),
			httpAdapter.WithMetrics(registry),
		}
		if w, ok := engine.Engine().Loader().(ports.Watchable); ok {
			changes, err := w.Watch(sigCtx)
			if err != nil {
				logger.Warn("Watch unavailable, graph will not be reloaded", "err", err)
			} else {
				go engine.Run(sigCtx, changes)
			}
			opts = append(opts, httpAdapter.WithWatcher(w))
		}

		srv := &http.Server{
			Addr:              addr,
			Handler:           httpAdapter.NewHandler(cli.NewManager(engine, backend, logger), opts...),
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("Starting hfsm server", "addr", srv.Addr, "graph", cfg.Graph)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case <-sigCtx.Done():
			logger.Info("Start shutdown", "signal", sigCtx.Signal())

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			logger.Info("hfsm server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on")
}
