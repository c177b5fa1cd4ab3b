package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hnbabel/internal/config"
	"hnbabel/internal/feed"
	"hnbabel/internal/generate"
	"hnbabel/internal/hncomments"
	"hnbabel/internal/logger"
	"hnbabel/internal/metrics"
	"hnbabel/internal/notify"
	"hnbabel/internal/pipeline"
	"hnbabel/internal/ratelimit"
	"hnbabel/internal/scraper"
	"hnbabel/internal/store"
	"hnbabel/internal/summarize"
	"hnbabel/internal/translate"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger.Init()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}

	if os.Getenv("ENABLE_HTTP_MONITORING") == "true" {
		go startMonitoringServer()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p, cleanup, err := buildPipeline(ctx, cfg)
	if err != nil {
		logger.Error("pipeline setup failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	stats, err := p.Run(ctx)
	if err != nil {
		logger.Error("pipeline run failed", "error", err)
		os.Exit(1)
	}

	logger.Info("done",
		"new_items", stats.NewItems,
		"feeds", stats.Feeds,
		"cache_hit_rate", fmt.Sprintf("%.1f%%", metrics.Global.CacheHitRate()),
	)
}

func buildPipeline(ctx context.Context, cfg *config.Config) (*pipeline.Pipeline, func(), error) {
	cleanup := func() {}

	fetcher := feed.NewFetcher(cfg.General.SourceFeed)

	scr := scraper.New(scraper.Config{
		Timeout:          time.Duration(cfg.Scraping.TimeoutSeconds) * time.Second,
		MaxContentLength: cfg.Scraping.MaxContentLength,
		UserAgent:        cfg.Scraping.UserAgent,
	})

	var comments pipeline.CommentsFetcher
	if cfg.Comments.Enabled {
		comments = hncomments.NewFetcher(cfg.Comments.MaxPerItem)
	}

	var summarizer pipeline.Summarizer
	if gem, err := summarize.NewGemini(ctx, cfg.GeminiAPIKey, cfg.Summarize.Model,
		cfg.Summarize.MinContentLength, cfg.Summarize.MaxSentences); err == nil {
		logger.Info("using gemini summarizer", "model", cfg.Summarize.Model)
		summarizer = gem
		cleanup = func() { gem.Close() }
	} else {
		logger.Info("gemini unavailable, using extractive summarizer", "reason", err)
		summarizer = summarize.NewLightweight(cfg.Summarize.MaxSentences)
	}

	translator := translate.NewGoogle(cfg.Translation.SourceLanguage)
	limiter := ratelimit.New(cfg.Translation.RateLimitPerSecond)

	renderer := generate.NewRenderer(cfg.Output.BaseURL, cfg.Output.Directory, cfg.Output.GenerateIndex)

	itemStore := store.NewItemStore(cfg.General.CacheDir, cfg.Output.KeepDays)
	opCache := store.NewOpCache(cfg.General.CacheDir)

	var notifier *notify.Telegram
	if cfg.Notify.Telegram.Enabled {
		notifier = notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
	}

	p := pipeline.New(cfg, fetcher, scr, comments, summarizer, translator,
		limiter, renderer, itemStore, opCache, notifier)
	return p, cleanup, nil
}

func startMonitoringServer() {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		stats := metrics.Global.GetStats()
		w.Header().Set("Content-Type", "application/json")
		if healthy, ok := stats["is_healthy"].(bool); ok && !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status":     "ok",
			"is_healthy": stats["is_healthy"],
			"last_run":   stats["last_run_time"],
		})
	})

	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(metrics.Global.GetStats())
	})

	port := os.Getenv("MONITORING_PORT")
	if port == "" {
		port = "8080"
	}

	logger.Info("monitoring server listening", "port", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		logger.Error("monitoring server failed", "error", err)
	}
}
