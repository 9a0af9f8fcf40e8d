package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"bybit-ticker-bot/internal/api"
	"bybit-ticker-bot/internal/bybit"
	"bybit-ticker-bot/internal/bybit/bybitobs"
	"bybit-ticker-bot/internal/collector"
	"bybit-ticker-bot/internal/collector/collectorobs"
	"bybit-ticker-bot/internal/interfaces"
	"bybit-ticker-bot/internal/journal"
	"bybit-ticker-bot/internal/logger"
	"bybit-ticker-bot/internal/store"
	"bybit-ticker-bot/internal/telegram"
	"bybit-ticker-bot/internal/trace"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// initializeSystem initializes logger, tracer and meter provider
func initializeSystem() error {
	// Load environment variables
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize telemetry: %v\n", err)
	}
	return nil
}

func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// openAuditTrail compresses old journals and returns a logger appending to
// today's file. On failure requests are still served, just not journaled.
func openAuditTrail(ctx context.Context, cfg *store.Config) (*zap.Logger, func()) {
	if err := journal.CompressOlder(cfg.Audit.Dir, cfg.Audit.RetentionDays); err != nil {
		logger.Warn(ctx, "Failed to compress old request journals", "error", err)
	}

	w, err := journal.Open(cfg.Audit.Dir)
	if err != nil {
		logger.Warn(ctx, "Request journal disabled", "dir", cfg.Audit.Dir, "error", err)
		return zap.NewNop(), func() {}
	}

	log := journal.NewLogger(w)
	return log, func() {
		_ = log.Sync()
		_ = w.Close()
	}
}

// app holds the collector components shared by both front ends
type app struct {
	collector *collector.Collector
	manager   *collector.BatchManager
	facade    interfaces.QueryFacade
	requests  interfaces.RequestLog
}

func initializeCollector(cfg *store.Config, auditLog *zap.Logger) *app {
	st := collector.NewState()
	tickers := collector.NewTickerStore(st)

	factory := bybitobs.WrapFactory(bybit.NewFactory(bybit.ConnectionOptions{
		URL:          cfg.Venue.StreamURL,
		PingInterval: cfg.Collector.PingInterval,
	}))
	manager := collector.NewBatchManager(st, tickers, factory, cfg.Collector.StartInterval)

	client := api.NewClient(
		api.WithBaseURL(cfg.Venue.RestURL),
		api.WithTimeout(cfg.Venue.HTTPTimeout),
		api.WithLogging(true),
	)
	dir := bybitobs.Wrap(bybit.NewDirectory(client, cfg.Venue.Category))

	audit := collector.NewRequestAudit(st, auditLog)
	facade := collector.NewFacade(st, tickers, collector.NewSymbolResolver(st, cfg.Collector.QuoteSuffix), audit)

	return &app{
		collector: collector.New(st, dir, manager, collector.Options{
			BatchSize:        cfg.Collector.BatchSize,
			ProgressInterval: cfg.Collector.ProgressInterval,
		}),
		manager:  manager,
		facade:   collectorobs.Wrap(facade),
		requests: facade,
	}
}

// runCollection discovers and subscribes, then waits for every batch.
// A discovery failure stops collection but leaves the front ends running.
func runCollection(ctx context.Context, a *app) {
	if err := a.collector.Run(ctx); err != nil {
		var de *bybit.DiscoveryError
		switch {
		case errors.As(err, &de):
			logger.ErrorWithErr(ctx, "Symbol discovery failed; collection stopped", err, "status", de.Status)
		case ctx.Err() == nil:
			logger.ErrorWithErr(ctx, "Collection failed", err)
		}
		return
	}

	if err := a.collector.WaitReady(ctx); err != nil && ctx.Err() == nil {
		logger.Warn(ctx, "Collection incomplete", "error", err)
	}
}

// initializeTelegram returns nil when no token is configured
func initializeTelegram(ctx context.Context, cfg *store.Config, facade interfaces.QueryFacade) *telegram.Bot {
	token, err := telegram.ReadToken(cfg.Telegram.TokenFile)
	if err != nil {
		logger.Warn(ctx, "Telegram bot disabled", "error", err)
		return nil
	}
	return telegram.New(token, facade, telegram.Options{
		APIURL:      cfg.Telegram.APIURL,
		PollTimeout: cfg.Telegram.PollTimeout,
	})
}
