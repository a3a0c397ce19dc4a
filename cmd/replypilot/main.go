// Command replypilot runs the ticket reply pipeline: it loads exported
// tickets, generates replies with the Gemini API using the configured key
// pool, and writes the results to the output directory.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/nonsonwune/jamb-support/internal/config"
	"github.com/nonsonwune/jamb-support/internal/gemini"
	"github.com/nonsonwune/jamb-support/internal/keypool"
	"github.com/nonsonwune/jamb-support/internal/logging"
	"github.com/nonsonwune/jamb-support/internal/pipeline"
	"github.com/nonsonwune/jamb-support/internal/store"
	"github.com/nonsonwune/jamb-support/internal/version"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.Init(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "build", version.Get().String())

	if err := config.ApplyGRPCBuildEnv(); err != nil {
		slog.Error("Failed to export build flags", "error", err)
		os.Exit(1)
	}

	pool, err := keypool.New(cfg.GeminiAPIKeys(), clock)
	if err != nil {
		slog.Error("Failed to create key pool", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded Gemini API keys", "count", pool.Len())

	client := gemini.NewClient(cfg.GeminiModel)
	processor := gemini.NewProcessor(client, pool, clock, gemini.ProcessorOptions{
		MaxRetries:       cfg.MaxRetries,
		CallLimit:        cfg.APICallLimit,
		MinMessageLength: cfg.MinMessageLength,
		MinBackoff:       cfg.RetryDelay,
	})

	db, err := store.New(cfg.OutputDir, clock)
	if err != nil {
		slog.Error("Failed to open output store", "error", err)
		os.Exit(1)
	}

	source := pipeline.NewFileSource(cfg.TicketsFile, cfg.MinMessageLength)
	run := pipeline.New(source, processor, db, clock, pipeline.Options{
		BatchSize:    cfg.MaxParallelTickets,
		SaveInterval: cfg.SaveInterval,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run.Run(ctx); err != nil {
		slog.Error("Pipeline run failed", "error", err)
		os.Exit(1)
	}
}
