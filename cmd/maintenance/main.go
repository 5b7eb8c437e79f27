package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/MGMAppDev/soccerview/internal/fuzzy"
	"github.com/MGMAppDev/soccerview/internal/maintenance"
	"github.com/MGMAppDev/soccerview/internal/pkg/config"
	"github.com/MGMAppDev/soccerview/internal/pkg/logging"
	"github.com/MGMAppDev/soccerview/internal/pkg/models"
	"github.com/MGMAppDev/soccerview/internal/pkg/storage"
	"github.com/MGMAppDev/soccerview/internal/resolver"
)

const usage = `usage: maintenance <op> [flags]

ops:
  birth-year        repair birth years that disagree with the display name
  unlinked-matches  attach events to keyed matches missing one
  legacy-matches    attach events to pre-key matches by date and names
  alias-cleanup     drop aliases contradicting their team's year or gender
  aggressive-link   low-threshold fuzzy pass over frequent unlinked names
  seed-curated      flag established teams and events as curated
  queue             list pending ambiguous-name entries
  queue-resolve     settle a queue entry: --id N --team N [--by name]
  queue-dismiss     mark a queue entry not actionable: --id N [--by name]
  delete-match      soft-delete one match: --id N --reason text`

func main() {
	if err := run(); err != nil {
		slog.Error("maintenance failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	op := os.Args[1]

	fs := flag.NewFlagSet("maintenance", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config (optional)")
	limit := fs.Int("limit", 0, "cap rows per op; 0 uses the op default")
	dryRun := fs.Bool("dry-run", false, "report what would change without writing")
	minMatches := fs.Int("min-matches", 10, "curation threshold for seed-curated")
	entryID := fs.Int64("id", 0, "queue entry id for queue-resolve/queue-dismiss")
	teamID := fs.Int64("team", 0, "winning team id for queue-resolve")
	resolvedBy := fs.String("by", "cli", "reviewer recorded on queue decisions")
	reason := fs.String("reason", "", "delete reason for delete-match")
	if err := fs.Parse(os.Args[2:]); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logging.Setup("maintenance", cfg.Logging.Level)

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

	if !*dryRun {
		if err := store.AuthorizePipelineWrites(ctx); err != nil {
			return err
		}
	}

	teams := resolver.New(store, season.Year, season.ID, cfg.Elo.StartingRating)
	matcher := fuzzy.NewMatcher(store, cfg.Matching)
	runner := maintenance.New(store, teams, matcher, season.Year, *dryRun)

	switch op {
	case "birth-year":
		_, err = runner.BirthYearRepair(ctx)
	case "unlinked-matches":
		_, err = runner.RecoverUnlinkedMatches(ctx, *limit)
	case "legacy-matches":
		_, err = runner.RecoverLegacyMatches(ctx, *limit)
	case "alias-cleanup":
		_, err = runner.AliasCleanup(ctx)
	case "aggressive-link":
		topN := *limit
		if topN <= 0 {
			topN = cfg.Matching.AggressiveTopN
		}
		_, err = runner.AggressiveLink(ctx, topN)
	case "seed-curated":
		err = seedCurated(ctx, store, *minMatches, *dryRun)
	case "queue":
		err = listQueue(ctx, store, *limit)
	case "queue-resolve":
		if *entryID == 0 || *teamID == 0 {
			return fmt.Errorf("queue-resolve needs --id and --team")
		}
		err = store.ResolveAmbiguous(ctx, *entryID, *teamID, *resolvedBy)
	case "queue-dismiss":
		if *entryID == 0 {
			return fmt.Errorf("queue-dismiss needs --id")
		}
		err = store.DismissAmbiguous(ctx, *entryID, *resolvedBy)
	case "delete-match":
		if *entryID == 0 || *reason == "" {
			return fmt.Errorf("delete-match needs --id and --reason")
		}
		err = store.SoftDeleteMatch(ctx, *entryID, *reason)
	default:
		fmt.Fprintln(os.Stderr, usage)
		return fmt.Errorf("unknown op %q", op)
	}
	return err
}

func listQueue(ctx context.Context, store *storage.Store, limit int) error {
	if limit <= 0 {
		limit = 50
	}
	entries, err := store.PendingAmbiguous(ctx, limit)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%d\t%q\t%d (%.2f) vs %d (%.2f)\t%s/%s\n",
			e.ID, e.RawName,
			e.Candidate1Team, e.Candidate1Sim, e.Candidate2Team, e.Candidate2Sim,
			e.MatchKey, e.FieldType)
	}
	slog.Info("pending queue listed", "entries", len(entries))
	return nil
}

func seedCurated(ctx context.Context, store *storage.Store, minMatches int, dryRun bool) error {
	if dryRun {
		slog.Info("would seed curated registries", "min_matches", minMatches)
		return nil
	}
	teams, err := store.SeedCuratedTeams(ctx, minMatches)
	if err != nil {
		return err
	}
	events, err := store.SeedCuratedEvents(ctx, minMatches)
	if err != nil {
		return err
	}
	slog.Info("curated registries seeded", "teams", teams, "events", events)
	return nil
}
