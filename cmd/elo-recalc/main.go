package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/MGMAppDev/soccerview/internal/elo"
	"github.com/MGMAppDev/soccerview/internal/pkg/config"
	"github.com/MGMAppDev/soccerview/internal/pkg/logging"
	"github.com/MGMAppDev/soccerview/internal/pkg/storage"
)

// elo-recalc applies only matches completed since the last rank snapshot.
// The nightly job runs this; elo-backfill does the full replay.
func main() {
	if err := run(); err != nil {
		slog.Error("elo-recalc failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", "", "path to YAML config (optional)")
		dryRun     = flag.Bool("dry-run", false, "compute without writing")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logging.Setup("elo-recalc", cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	if !*dryRun {
		if err := store.AuthorizePipelineWrites(ctx); err != nil {
			return err
		}
	}

	eng := elo.New(store, cfg.Elo.KFactor, cfg.Elo.StartingRating, *dryRun)
	_, err = eng.Incremental(ctx)
	return err
}
