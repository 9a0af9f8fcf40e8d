package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bybit-ticker-bot/internal/console"
	"bybit-ticker-bot/internal/logger"
	"bybit-ticker-bot/internal/trace"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	if err := initializeSystem(); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx, *configPath)
	if err != nil {
		os.Exit(1)
	}

	auditLog, closeAudit := openAuditTrail(ctx, cfg)
	defer closeAudit()

	a := initializeCollector(cfg, auditLog)
	defer a.manager.Close()

	logger.Info(ctx, "Starting Bybit data collection",
		"rest_url", cfg.Venue.RestURL,
		"stream_url", cfg.Venue.StreamURL,
		"batch_size", cfg.Collector.BatchSize,
		"tracing", trace.Enabled(),
		"metrics", trace.MetricsEnabled())
	go runCollection(ctx, a)

	if bot := initializeTelegram(ctx, cfg, a.facade); bot != nil {
		go func() {
			if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.ErrorWithErr(ctx, "Telegram bot stopped", err)
			}
		}()
	}

	con := console.New(a.facade, a.requests, os.Stdin, os.Stdout)
	if err := con.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.ErrorWithErr(ctx, "Console stopped", err)
	}

	logger.Info(ctx, "Shutting down...")
	stop()
	a.manager.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := trace.Shutdown(shutdownCtx); err != nil {
		logger.Warn(shutdownCtx, "Telemetry shutdown failed", "error", err)
	}
}
