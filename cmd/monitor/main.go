// Package main contains the entrypoint for the WhatsApp Groups Monitor.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tsuri55/whatsappgroupsmonitor/internal/app"
	"github.com/tsuri55/whatsappgroupsmonitor/internal/commands"
	"github.com/tsuri55/whatsappgroupsmonitor/internal/config"
	"github.com/tsuri55/whatsappgroupsmonitor/internal/database"
	"github.com/tsuri55/whatsappgroupsmonitor/internal/gemini"
	"github.com/tsuri55/whatsappgroupsmonitor/internal/logger"
	"github.com/tsuri55/whatsappgroupsmonitor/internal/scheduler"
	"github.com/tsuri55/whatsappgroupsmonitor/internal/summary"
	"github.com/tsuri55/whatsappgroupsmonitor/internal/webhook"
	"github.com/tsuri55/whatsappgroupsmonitor/internal/whatsapp"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop() // Ensure context cancellation is signaled before exit
	os.Exit(exitCode)
}

// run initializes and starts all application components (config, logger, db,
// clients, webhook server, scheduler), handles graceful shutdown, and returns
// an exit code (0 for success, 1 for failure).
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	// Best effort: a .env file is a development convenience, production sets
	// real environment variables.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db) // Ensure DB is closed on function exit

	codec, err := database.NewCodec(cfg.Database.EncryptionKey)
	if err != nil {
		log.Error("Failed to initialize content codec", "error", err)
		return 1
	}
	store := database.NewStore(db, codec, log)

	gemClient, err := gemini.NewClient(ctx, cfg.Gemini, log)
	if err != nil {
		log.Error("Failed to initialize Gemini client", "error", err)
		return 1
	}

	bridge := whatsapp.NewClient(cfg.WhatsApp, log)

	aggregator, err := summary.NewAggregator(store, gemClient, bridge, cfg.Summary, log)
	if err != nil {
		log.Error("Failed to initialize summary aggregator", "error", err)
		return 1
	}

	dispatcher, err := commands.NewDispatcher(store, aggregator, bridge, cfg.Summary, log)
	if err != nil {
		log.Error("Failed to initialize command dispatcher", "error", err)
		return 1
	}

	ingestor := webhook.NewIngestor(store, dispatcher, "", log)
	server := webhook.NewServer(cfg.Webhook, ingestor, log)

	sched, err := scheduler.NewScheduler(cfg.Summary, aggregator.RunScheduled, log)
	if err != nil {
		log.Error("Failed to initialize scheduler", "error", err)
		return 1
	}

	monitor := app.New(log, store, bridge, server, sched)

	log.Info("Starting monitor...")
	runErr := monitor.Run(ctx) // Run blocks until context is cancelled or an error occurs
	log.Info("Monitor run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Monitor stopped due to error", "error", runErr)
		// Allow logs to flush before exiting on error
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Monitor stopped gracefully.")
	// Allow logs to flush before exiting gracefully
	time.Sleep(time.Second)
	return 0
}
