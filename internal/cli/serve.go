package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/pz-stationxml/internal/adapter/fsource"
	httpadapter "github.com/couchcryptid/pz-stationxml/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/pz-stationxml/internal/adapter/kafka"
	"github.com/couchcryptid/pz-stationxml/internal/adapter/sqlite"
	"github.com/couchcryptid/pz-stationxml/internal/config"
	"github.com/couchcryptid/pz-stationxml/internal/inventory"
	"github.com/couchcryptid/pz-stationxml/internal/observability"
	"github.com/couchcryptid/pz-stationxml/internal/pipeline"
	"github.com/couchcryptid/pz-stationxml/internal/stationxml"
)

// newMetrics is replaced in tests to avoid registering twice with the default registry.
var newMetrics = observability.NewMetrics

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the conversion service",
	Long: `Runs until SIGINT or SIGTERM. PZ files are read from Kafka or a watched
directory (PZ_SOURCE), converted, and written to a Kafka topic and/or a SQLite
inventory. Health, readiness, metrics and the current StationXML document are
served over HTTP. All settings come from environment variables or .env.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, observability.NewLogger(cfg))
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	md, err := config.LoadMetadata(cfg.MetadataFile)
	if err != nil {
		return err
	}
	metrics := newMetrics()

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				logger.Error("close error", "error", err)
			}
		}
	}()

	var extractor pipeline.BatchExtractor
	switch cfg.Source {
	case config.SourceWatch:
		w, err := fsource.NewWatcher(cfg.WatchDir, cfg.WatchPattern, cfg.BatchFlushInterval, logger)
		if err != nil {
			return err
		}
		closers = append(closers, w)
		extractor = w
	default:
		r := kafkaadapter.NewReader(cfg, logger)
		closers = append(closers, r)
		extractor = r
	}

	var loaders pipeline.MultiLoader
	var records stationxml.RecordSource
	checks := httpadapter.ReadinessChecks{}

	if cfg.KafkaSinkEnabled {
		w := kafkaadapter.NewWriter(cfg, logger)
		closers = append(closers, w)
		loaders = append(loaders, w)
	}
	if cfg.InventoryDB != "" {
		store, err := sqlite.NewStore(cfg.InventoryDB, metrics)
		if err != nil {
			return fmt.Errorf("open inventory db: %w", err)
		}
		closers = append(closers, store)
		loaders = append(loaders, store)
		records = store
		checks = append(checks, store)
	} else {
		inv := inventory.NewWithMetrics(metrics)
		loaders = append(loaders, inv)
		records = inv
	}

	p := pipeline.New(extractor, pipeline.NewTransformer(logger, metrics), loaders, logger, metrics, cfg.BatchSize)
	checks = append(checks, p)

	pub := stationxml.NewPublisher(stationxml.NewEncoder(headerFrom(md), nil), records)
	srv := httpadapter.NewServer(cfg.HTTPAddr, checks, pub, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}

	logger.Info("shutdown complete", "consumed", p.Stats().Consumed, "loaded", p.Stats().Loaded)
	return nil
}
