package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/MGMAppDev/soccerview/internal/pkg/checkpoint"
	"github.com/MGMAppDev/soccerview/internal/pkg/config"
	"github.com/MGMAppDev/soccerview/internal/pkg/logging"
	"github.com/MGMAppDev/soccerview/internal/pkg/notify"
	"github.com/MGMAppDev/soccerview/internal/pkg/storage"
	"github.com/MGMAppDev/soccerview/internal/scraper/adapters"
	"github.com/MGMAppDev/soccerview/internal/scraper/engine"

	// Register all source adapters via init().
	_ "github.com/MGMAppDev/soccerview/internal/scraper/adapters/all"
)

type flags struct {
	configPath string
	adapter    string
	event      string
	reset      bool
	resume     int
	limit      int
	dryRun     bool
	standings  bool
}

func main() {
	if err := run(); err != nil {
		slog.Error("scrape failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	var f flags
	flag.StringVar(&f.configPath, "config", "", "path to YAML config (optional)")
	flag.StringVar(&f.adapter, "adapter", "", "adapter id to run (required)")
	flag.StringVar(&f.event, "event", "", "restrict the run to a single event id")
	flag.BoolVar(&f.reset, "reset", false, "discard the checkpoint before starting")
	flag.IntVar(&f.resume, "resume", -1, "force the starting event offset")
	flag.IntVar(&f.limit, "limit", 0, "cap the number of events this run")
	flag.BoolVar(&f.dryRun, "dry-run", false, "scrape and count but write nothing")
	flag.BoolVar(&f.standings, "standings", false, "also scrape standings sources")
	flag.Parse()

	if f.adapter == "" {
		return fmt.Errorf("--adapter is required; available: %s", strings.Join(adapters.IDs(), ", "))
	}
	adapter, ok := adapters.ByID(f.adapter)
	if !ok {
		return fmt.Errorf("unknown adapter %q; available: %s", f.adapter, strings.Join(adapters.IDs(), ", "))
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	logging.Setup("scrape", cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	checkpoints, err := checkpoint.NewStore(cfg.Scraper.CheckpointDir)
	if err != nil {
		return err
	}
	notifier := notify.New(cfg.Notify.TelegramBotToken, cfg.Notify.TelegramChatID)

	eng := engine.New(adapter, store, checkpoints, notifier, cfg.Scraper)
	res, err := eng.Run(ctx, engine.Options{
		EventID:   f.event,
		Reset:     f.reset,
		Resume:    f.resume,
		Limit:     f.limit,
		DryRun:    f.dryRun,
		Standings: f.standings,
	})
	if err != nil {
		notifier.Fatal("scrape", f.adapter, err)
		return err
	}

	// Timeout is a normal exit: the next scheduled run resumes from the
	// checkpoint.
	slog.Info("scrape exit", "adapter", f.adapter, "reason", res.ExitReason, "run_id", res.RunID)
	return nil
}
