package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/young1lin/openclaw-responses/internal/handler"
	"github.com/young1lin/openclaw-responses/internal/metrics"
	"github.com/young1lin/openclaw-responses/internal/storage"
	"github.com/young1lin/openclaw-responses/pkg/llm"
	"github.com/young1lin/openclaw-responses/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

var port int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the normalized model interface over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Override config with command line flags
		if port > 0 {
			cfg.Server.Port = port
		}
		return runServer(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides config)")
}

func runServer(parent context.Context) error {
	provider, err := newProvider()
	if err != nil {
		return err
	}
	defer provider.Close()

	opts := handler.Options{DefaultModel: cfg.Provider.DefaultModel}

	if cfg.Storage.Enabled {
		store, err := storage.NewUsageStore(cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		opts.Ledger = store
	}

	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		if err := metrics.Register(reg); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		opts.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
		opts.MetricsPath = cfg.Metrics.Path
	}

	bridge := handler.NewBridgeHandler(func(modelID string) llm.LanguageModel {
		return provider.LanguageModel(modelID)
	}, opts)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      bridge,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server listening",
			zap.String("version", Version),
			zap.String("addr", srv.Addr),
			zap.String("target", cfg.Provider.BaseURL),
			zap.Bool("storage", cfg.Storage.Enabled),
			zap.Bool("metrics", cfg.Metrics.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")

		// Graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		logger.Info("server stopped")
		return nil
	})

	return g.Wait()
}
