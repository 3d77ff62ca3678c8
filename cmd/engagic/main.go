// Engagic processor daemon: connects to PostgreSQL, applies migrations, and
// runs the queue worker pool that summarizes municipal meetings and matters.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Engagic/engagic/pkg/cleanup"
	"github.com/Engagic/engagic/pkg/config"
	"github.com/Engagic/engagic/pkg/database"
	"github.com/Engagic/engagic/pkg/llm"
	"github.com/Engagic/engagic/pkg/pdf"
	"github.com/Engagic/engagic/pkg/processor"
	"github.com/Engagic/engagic/pkg/queue"
	"github.com/Engagic/engagic/pkg/store"
	"github.com/Engagic/engagic/pkg/version"
	"github.com/joho/godotenv"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configPath := flag.String("config",
		getEnv("ENGAGIC_CONFIG", "engagic.yaml"),
		"Path to configuration file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file, continuing with existing environment")
	}

	slog.Info("Starting engagic processor", "version", version.Full())

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := database.NewPool(ctx, database.ConfigFrom(cfg.Database))
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	slog.Info("Connected to PostgreSQL", "host", cfg.Database.Host, "db", cfg.Database.Name)

	st := store.New(pool)
	q := queue.New(pool, cfg.Queue)

	summarizer, err := llm.NewAnthropicSummarizer(cfg.LLM)
	if err != nil {
		slog.Error("Failed to create summarizer", "error", err)
		os.Exit(1)
	}

	fetcher := pdf.NewFetcher(cfg.Fetch)
	extractor := pdf.NewPlainTextExtractor(0)
	proc := processor.New(st, q, fetcher, extractor, summarizer, cfg)

	workers := queue.NewWorkerPool(pool, q, cfg.Queue, proc)
	if err := workers.Start(ctx); err != nil {
		slog.Error("Failed to start worker pool", "error", err)
		os.Exit(1)
	}

	retention := cleanup.NewService(cfg.Retention, q, pool)
	retention.Start(ctx)

	slog.Info("Engagic processor running",
		"workers", cfg.Queue.WorkerCount,
		"banana", cfg.Queue.Banana,
		"model", cfg.LLM.Model)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("Shutdown signal received", "signal", sig.String())

	retention.Stop()
	workers.Stop()
	slog.Info("Shutdown complete")
}
