// Market-analytics producer — a sharded, fault-tolerant service that
// consumes a live order-book/trade feed for a configured symbol universe
// and publishes fast- and slow-tier analytics reports to a shared store.
//
// Architecture:
//
//	main.go                    — entry point: loads config, wires components, waits for SIGINT/SIGTERM
//	internal/strategy          — supervisor: owned-symbol lifecycle, ingestion routing, report cycles
//	internal/coordinator       — membership heartbeat, HRW symbol assignment, fenced leases
//	internal/feed              — upstream market-data WS/REST boundary adapter
//	internal/kvstore           — Redis-backed membership/lease/report store
//	internal/state             — per-symbol windowed order book and trade state
//	internal/calculators       — spread, depth, flow, liquidity, anomaly, health metrics
//	internal/report            — fast/slow report assembly to the published schema
//	internal/telemetry         — Prometheus metrics and /health HTTP surface
//
// In single-instance mode (coordination disabled) the process owns every
// configured symbol directly. In coordinated mode, multiple processes
// share a symbol universe via HRW-hashed, leased assignment so each
// symbol has exactly one writer at a time.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/forgequant/nimbus-trader/internal/config"
	"github.com/forgequant/nimbus-trader/internal/feed"
	"github.com/forgequant/nimbus-trader/internal/kvstore"
	"github.com/forgequant/nimbus-trader/internal/strategy"
	"github.com/forgequant/nimbus-trader/internal/telemetry"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("NT_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	store, err := kvstore.New(cfg.Redis.URL, cfg.Redis.Namespace)
	if err != nil {
		logger.Error("failed to connect to store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	var feedClient *feed.Feed
	if cfg.Feed.WSURL != "" {
		feedClient = feed.New(cfg.Feed.WSURL, logger)
	}

	metrics := telemetry.NewMetrics()
	sup := strategy.New(cfg, store, feedClient, metrics, logger)
	telemetryServer := telemetry.NewServer(cfg.Telemetry.ListenAddr, metrics, sup, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := telemetryServer.Run(ctx); err != nil {
			logger.Error("telemetry server failed", "error", err)
		}
	}()

	if err := sup.Start(ctx); err != nil {
		logger.Error("failed to start supervisor", "error", err)
		os.Exit(1)
	}

	logger.Info("market-analytics producer started",
		"symbols", cfg.Symbols,
		"coordination", cfg.Coordination.Enabled,
		"node_id", sup.NodeID(),
	)

	<-ctx.Done()
	logger.Info("received shutdown signal")

	sup.Stop()
	logger.Info("producer stopped")
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
