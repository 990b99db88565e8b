package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"ReversalSentinel/internal/collector"
	"ReversalSentinel/internal/config"
	"ReversalSentinel/internal/confirm"
	"ReversalSentinel/internal/httpapi"
	"ReversalSentinel/internal/logger"
	"ReversalSentinel/internal/metrics"
	"ReversalSentinel/internal/notifier"
	"ReversalSentinel/internal/recorder"
	"ReversalSentinel/internal/scheduler"
	"ReversalSentinel/internal/tracker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	root, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	log := logger.For(root, "main")
	log.Info().Str("config", cfgPath).Msg("ReversalSentinel starting")

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mr := metrics.New(reg)

	// Init fetcher
	fetcher, err := collector.NewFetcher(collector.Options{
		Provider: cfg.DataSource.Provider,
		BaseURL:  cfg.DataSource.BaseURL,
		APIKey:   cfg.DataSource.APIKey,
		WSURL:    cfg.DataSource.WSURL,
		Proxy:    cfg.Proxy,
	})
	if err != nil {
		return fmt.Errorf("init fetcher: %w", err)
	}
	log.Info().Str("source", fetcher.Name()).Int("watches", len(cfg.Watches)).Msg("data source ready")
	col := collector.NewCollector(fetcher, 0, logger.For(root, "collector"))

	// Init signal tracker
	tm, err := tracker.NewManager(cfg.State.File, logger.For(root, "tracker"))
	if err != nil {
		return fmt.Errorf("init tracker: %w", err)
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger.For(root, "recorder"))
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}
	defer rec.Close()

	// Init notifier
	var (
		notify notifier.Notifier
		tn     *notifier.TelegramNotifier
	)
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, logger.For(root, "telegram"))
		notify = tn
	} else {
		log.Warn().Msg("telegram not configured, notifications go to the log")
		notify = notifier.NewLogNotifier(logger.For(root, "notifier"))
	}

	deps := scheduler.Deps{
		Collector:   col,
		Tracker:     tm,
		Notifier:    notify,
		Recorder:    rec,
		Metrics:     mr,
		ContextBars: cfg.Confirmation.ContextBars,
		Model:       cfg.Confirmation.Model,
	}
	if cfg.Confirmation.Enabled {
		deps.Confirmer = confirm.NewLLMClient(confirm.Config{
			BaseURL:    cfg.Confirmation.BaseURL,
			APIKey:     cfg.Confirmation.APIKey,
			Model:      cfg.Confirmation.Model,
			Timeout:    cfg.Confirmation.Timeout,
			MaxRetries: cfg.Confirmation.MaxRetries,
			Proxy:      cfg.Proxy,
		}, logger.For(root, "confirm"))
		log.Info().Str("model", cfg.Confirmation.Model).Msg("confirmation enabled")
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, cfg.Watches, deps, logger.For(root, "scheduler"))
	if err := sched.RegisterAll(); err != nil {
		return fmt.Errorf("register cron tasks: %w", err)
	}
	sched.Start()
	defer sched.Stop()
	if n := sched.StartStreams(); n > 0 {
		log.Info().Int("streams", n).Msg("kline streams started")
	}

	// HTTP API
	srv := httpapi.NewServer(cfg.HTTP.Addr, httpapi.NewHandler(tm), reg, logger.For(root, "http"))
	srv.Start()
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := srv.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown")
		}
	}()

	// Start Telegram polling
	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, scanning every watch now")
		go sched.RunAllNow("startup")
	}

	log.Info().Msg("ReversalSentinel is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	log.Info().Str("signal", sig.String()).Msg("shutdown signal received, stopping")
	cancel()
	return nil
}
