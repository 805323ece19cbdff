package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"StockSentinel/internal/collector"
	"StockSentinel/internal/config"
	"StockSentinel/internal/levermann"
	"StockSentinel/internal/notifier"
	"StockSentinel/internal/recorder"
	"StockSentinel/internal/scheduler"
	"StockSentinel/internal/server"
	"StockSentinel/internal/watchlist"
	"StockSentinel/pkg/logger"
)

func main() {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		bootLog := logger.New(logger.Config{})
		bootLog.Fatal().Err(err).Msg("load config")
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	logger.SetGlobalLogger(log)
	log.Info().Str("config", cfgPath).Msg("StockSentinel starting")

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}
	capIndexes, _ := cfg.CapIndexes()

	// Quotes
	fetcher := newFetcher(cfg, log)
	log.Info().Str("provider", fetcher.Name()).Msg("data source selected")
	cache := collector.NewQuoteCache(cfg.DataSource.CacheTTL, cfg.DataSource.CacheSize)
	col := collector.NewCollector(fetcher, cache, log)
	snapshots := collector.NewFileSnapshotSource(cfg.DataSource.SnapshotDir)
	if r, ok := fetcher.(collector.SymbolResolver); ok {
		snapshots.WithSymbolResolver(r, log)
	}

	// Result store
	rec := newRecorder(cfg, log)
	defer rec.Close()

	ids := cfg.Watchlist
	if len(ids) == 0 {
		if ids, err = snapshots.List(); err != nil {
			log.Fatal().Err(err).Str("dir", cfg.DataSource.SnapshotDir).Msg("list snapshots")
		}
	}
	wl, err := watchlist.NewManager(ids, cfg.HistoryDir, snapshots, col, rec, log,
		levermann.WithReferenceIndexes(capIndexes))
	if err != nil {
		log.Fatal().Err(err).Msg("init watchlist")
	}
	log.Info().Int("stocks", len(wl.IDs())).Msg("watchlist loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telegram is optional.
	var sender notifier.Sender
	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		sender = tn
	} else {
		log.Warn().Msg("telegram not configured, notifications disabled")
	}

	sched := scheduler.NewScheduler(ctx, wl, sender, cfg.Report.XLSXPath, log)
	if err := sched.RegisterAll(cfg.Schedule.EvaluateCron, cfg.Schedule.ReportCron); err != nil {
		log.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	srv := server.New(server.Config{Addr: cfg.Server.Addr, Log: log, Watchlist: wl, Scores: rec})
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server stopped")
		}
	}()

	if cfg.Schedule.RunOnStart {
		log.Info().Msg("run_on_start enabled, evaluating watchlist now")
		go sched.RunNow()
	}

	log.Info().Msg("StockSentinel is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping")
	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown")
	}
	log.Info().Msg("StockSentinel stopped")
}

func newFetcher(cfg *config.Config, log zerolog.Logger) collector.Fetcher {
	switch cfg.DataSource.Provider {
	case "alphavantage":
		opts := []collector.AlphaVantageOption{
			collector.WithRequestsPerMinute(cfg.DataSource.RateLimit),
			collector.WithAlphaVantageLogger(log),
			collector.WithAlphaVantageProxy(cfg.Proxy),
		}
		if cfg.DataSource.BaseURL != "" {
			opts = append(opts, collector.WithAlphaVantageBaseURL(cfg.DataSource.BaseURL))
		}
		return collector.NewAlphaVantageFetcher(cfg.DataSource.APIKey, opts...)
	case "mock":
		return &collector.MockFetcher{Price: 100}
	default:
		f := collector.NewYahooFetcher(cfg.Proxy)
		if cfg.DataSource.BaseURL != "" {
			f.BaseURL = cfg.DataSource.BaseURL
		}
		return f
	}
}

func newRecorder(cfg *config.Config, log zerolog.Logger) recorder.Recorder {
	switch cfg.Database.Driver {
	case "mysql":
		r, err := recorder.NewMySQLRecorder(cfg.Database.MySQLDSN, log)
		if err != nil {
			log.Warn().Err(err).Msg("init mysql recorder failed, using noop")
			return recorder.NewNoopRecorder()
		}
		return r
	case "sqlite":
		r, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			return recorder.NewNoopRecorder()
		}
		return r
	default:
		return recorder.NewNoopRecorder()
	}
}
