package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/MGMAppDev/soccerview/internal/fuzzy"
	"github.com/MGMAppDev/soccerview/internal/pipeline"
	"github.com/MGMAppDev/soccerview/internal/pkg/config"
	"github.com/MGMAppDev/soccerview/internal/pkg/logging"
	"github.com/MGMAppDev/soccerview/internal/pkg/models"
	"github.com/MGMAppDev/soccerview/internal/pkg/notify"
	"github.com/MGMAppDev/soccerview/internal/pkg/storage"
	"github.com/MGMAppDev/soccerview/internal/resolver"
)

func main() {
	if err := run(); err != nil {
		slog.Error("validate failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", "", "path to YAML config (optional)")
		source     = flag.String("source", "", "only process staged rows from this platform")
		limit      = flag.Int("limit", 0, "cap total rows this run; 0 drains the backlog")
		dryRun     = flag.Bool("dry-run", false, "validate without resolving or writing")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logging.Setup("validate", cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	season, err := store.CurrentSeason(ctx)
	if err != nil {
		return err
	}
	if sy := models.SeasonYear(time.Now()); sy != season.Year {
		slog.Warn("seasons table disagrees with the calendar rule", "db", season.Year, "computed", sy)
	}

	teams := resolver.New(store, season.Year, season.ID, cfg.Elo.StartingRating)
	matcher := fuzzy.NewMatcher(store, cfg.Matching)
	notifier := notify.New(cfg.Notify.TelegramBotToken, cfg.Notify.TelegramChatID)

	v := pipeline.New(store, teams, matcher, cfg.Scraper.BatchSize)
	res, err := v.Run(ctx, pipeline.Options{Source: *source, Limit: *limit, DryRun: *dryRun})
	if err != nil {
		notifier.Fatal("validate", *source, err)
		return err
	}
	if !*dryRun {
		notifier.RunSummary("validate", *source, "COMPLETED", res.Inserted, res.Errored, res.Elapsed)
	}
	return nil
}
