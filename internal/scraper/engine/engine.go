package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/MGMAppDev/soccerview/internal/pkg/checkpoint"
	"github.com/MGMAppDev/soccerview/internal/pkg/config"
	"github.com/MGMAppDev/soccerview/internal/pkg/models"
	"github.com/MGMAppDev/soccerview/internal/pkg/notify"
	"github.com/MGMAppDev/soccerview/internal/pkg/storage"
	"github.com/MGMAppDev/soccerview/internal/scraper/adapters"
)

// ExitReason classifies how a run ended. TIMEOUT and COMPLETED are both
// clean exits; the checkpoint decides where the next run picks up.
type ExitReason string

const (
	ExitCompleted ExitReason = "COMPLETED"
	ExitTimeout   ExitReason = "TIMEOUT"
	ExitCancelled ExitReason = "CANCELLED"
)

// Store is the slice of the storage layer the engine writes through.
type Store interface {
	StageGames(ctx context.Context, batch []storage.StagedInsert) (int, error)
	StageEvent(ctx context.Context, key string, ev models.EventRef, source string, raw []byte) error
	StageStandings(ctx context.Context, source string, rows []models.StandingsRow) (int, error)
	ActiveSourceEvents(ctx context.Context, source string, windowDays int) ([]models.EventRef, error)
	RecordFailedItems(ctx context.Context, adapter, runID string, items []storage.FailedItemRow) error
}

// Options are the per-run knobs set from CLI flags.
type Options struct {
	// EventID restricts the run to a single event.
	EventID string
	// Reset discards the checkpoint before starting.
	Reset bool
	// Resume forces the starting offset; negative means use the checkpoint.
	Resume int
	// Limit caps the number of events this run; 0 uses the adapter policy.
	Limit int
	// DryRun scrapes and counts but writes nothing.
	DryRun bool
	// Standings also scrapes standings sources when the adapter has them.
	Standings bool
}

// Result summarizes a finished run.
type Result struct {
	ExitReason ExitReason
	RunID      string
	Counters   checkpoint.Counters
	Elapsed    time.Duration
}

// Engine runs one adapter against its source: discovery, fetch, policy
// filtering, batched staging writes, checkpointing and failure logging.
type Engine struct {
	adapter     *adapters.Adapter
	store       Store
	checkpoints *checkpoint.Store
	notifier    *notify.Notifier
	cfg         config.ScraperConfig

	client *http.Client
	now    func() time.Time
	sleep  func(time.Duration)

	runID    string
	deadline time.Time
	counters checkpoint.Counters
	failed   []checkpoint.FailedItem
	uaIndex  int
}

func New(a *adapters.Adapter, store Store, cps *checkpoint.Store, notifier *notify.Notifier, cfg config.ScraperConfig) *Engine {
	return &Engine{
		adapter:     a,
		store:       store,
		checkpoints: cps,
		notifier:    notifier,
		cfg:         cfg,
		client:      &http.Client{Timeout: cfg.RequestTimeout},
		now:         time.Now,
		sleep:       time.Sleep,
	}
}

// Run executes one scraping run. The error return is fatal only; per-event
// failures are absorbed into counters and the failed-items log.
func (e *Engine) Run(ctx context.Context, opts Options) (*Result, error) {
	start := e.now()
	e.runID = uuid.NewString()
	e.deadline = start.Add(time.Duration(e.cfg.TimeoutMinutes) * time.Minute)
	e.counters = checkpoint.Counters{}
	e.failed = nil

	log := slog.With("adapter", e.adapter.ID, "run_id", e.runID)
	log.Info("run starting", "timeout_minutes", e.cfg.TimeoutMinutes, "dry_run", opts.DryRun)

	events, err := e.workingSet(ctx, opts)
	if err != nil {
		e.notifier.Fatal("scrape", e.adapter.ID, err)
		return nil, err
	}
	log.Info("working set built", "events", len(events))

	cp, err := e.loadCheckpoint(opts)
	if err != nil {
		return nil, err
	}
	if cp.Offset > 0 {
		log.Info("resuming", "offset", cp.Offset)
	}

	reason := e.scrapeEvents(ctx, log, events, cp, opts)

	if reason == ExitCompleted && e.adapter.Standings != nil && opts.Standings {
		e.scrapeStandings(ctx, log, opts)
	}

	e.persistFailures(ctx, log)

	if reason == ExitCompleted {
		// Next run starts from a clean slate.
		if err := e.checkpoints.Reset(e.adapter.CheckpointFile); err != nil {
			log.Warn("checkpoint reset failed", "error", err)
		}
	}

	res := &Result{
		ExitReason: reason,
		RunID:      e.runID,
		Counters:   e.counters,
		Elapsed:    e.now().Sub(start),
	}
	log.Info("run finished",
		"reason", res.ExitReason,
		"events_done", res.Counters.EventsDone,
		"events_failed", res.Counters.EventsFailed,
		"items_processed", res.Counters.ItemsProcessed,
		"items_skipped", res.Counters.ItemsSkipped,
		"items_failed", res.Counters.ItemsFailed,
		"requests", res.Counters.Requests,
		"elapsed", res.Elapsed.Round(time.Second))
	e.notifier.RunSummary("scrape", e.adapter.ID, string(res.ExitReason),
		res.Counters.ItemsProcessed, res.Counters.ItemsFailed, res.Elapsed)
	return res, nil
}

// workingSet unions adapter discovery with DB-derived recently active
// events, deduplicated by event id and capped by policy.
func (e *Engine) workingSet(ctx context.Context, opts Options) ([]models.EventRef, error) {
	var events []models.EventRef
	seen := map[string]bool{}

	add := func(refs []models.EventRef) {
		for _, ev := range refs {
			if ev.ID == "" || seen[ev.ID] {
				continue
			}
			seen[ev.ID] = true
			events = append(events, ev)
		}
	}

	add(e.adapter.StaticEvents)
	if e.adapter.DiscoverEvents != nil {
		discovered, err := e.adapter.DiscoverEvents(ctx, e)
		if err != nil {
			return nil, fmt.Errorf("discover events: %w", err)
		}
		add(discovered)
	}

	active, err := e.store.ActiveSourceEvents(ctx, e.adapter.ID, e.cfg.RecencyWindowDays)
	if err != nil {
		return nil, fmt.Errorf("active events: %w", err)
	}
	add(active)

	if opts.EventID != "" {
		for _, ev := range events {
			if ev.ID == opts.EventID {
				return []models.EventRef{ev}, nil
			}
		}
		// Explicitly requested events are scraped even when discovery
		// no longer lists them.
		return []models.EventRef{{ID: opts.EventID}}, nil
	}

	cap := e.adapter.Policy.MaxEventsPerRun
	if opts.Limit > 0 && (cap == 0 || opts.Limit < cap) {
		cap = opts.Limit
	}
	if cap > 0 && len(events) > cap {
		events = events[:cap]
	}
	return events, nil
}

func (e *Engine) loadCheckpoint(opts Options) (*checkpoint.Checkpoint, error) {
	if opts.Reset {
		if err := e.checkpoints.Reset(e.adapter.CheckpointFile); err != nil {
			return nil, err
		}
	}
	cp, err := e.checkpoints.Load(e.adapter.CheckpointFile)
	if err != nil {
		return nil, err
	}
	if opts.Resume >= 0 {
		cp.Offset = opts.Resume
	}
	cp.RunID = e.runID
	return cp, nil
}

// scrapeEvents walks the working set from the checkpoint offset. The time
// budget is checked between events only; an in-flight event always finishes
// and its buffer is flushed before exit.
func (e *Engine) scrapeEvents(ctx context.Context, log *slog.Logger, events []models.EventRef, cp *checkpoint.Checkpoint, opts Options) ExitReason {
	var buffer []storage.StagedInsert

	for i := cp.Offset; i < len(events); i++ {
		if ctx.Err() != nil {
			return ExitCancelled
		}
		if e.now().After(e.deadline) {
			log.Warn("time budget exhausted", "offset", i, "remaining", len(events)-i)
			return ExitTimeout
		}

		ev := events[i]
		if !opts.DryRun {
			key := e.adapter.ID + "-" + ev.ID
			if err := e.store.StageEvent(ctx, key, ev, e.adapter.ID, nil); err != nil {
				log.Warn("stage event failed", "event", ev.ID, "error", err)
			}
		}

		records, err := e.adapter.ScrapeEvent(ctx, e, ev)
		if err != nil {
			log.Error("event scrape failed", "event", ev.ID, "error", err)
			e.counters.EventsFailed++
			e.fail("event", ev.ID, err)
			// The checkpoint still advances; a permanently broken event
			// must not wedge the run.
			e.advance(cp, i, ev.ID)
			continue
		}

		now := e.now()
		for j := range records {
			rec := &records[j]
			if !e.adapter.Accepts(rec, now) {
				e.counters.ItemsSkipped++
				continue
			}
			buffer = append(buffer, storage.StagedInsert{
				Key:    e.adapter.MatchKey(rec.EventID, rec.MatchID),
				Record: rec,
				Source: e.adapter.ID,
			})
			if len(buffer) >= e.cfg.BatchSize {
				e.flush(ctx, log, &buffer, opts.DryRun)
			}
		}
		e.flush(ctx, log, &buffer, opts.DryRun)

		e.counters.EventsDone++
		e.advance(cp, i, ev.ID)
		log.Debug("event done", "event", ev.ID, "records", len(records))

		if d := e.adapter.RateLimit.InterEventDelay; d > 0 && i < len(events)-1 {
			e.sleep(d)
		}
	}
	return ExitCompleted
}

func (e *Engine) flush(ctx context.Context, log *slog.Logger, buffer *[]storage.StagedInsert, dryRun bool) {
	if len(*buffer) == 0 {
		return
	}
	n := len(*buffer)
	if dryRun {
		e.counters.ItemsProcessed += n
		*buffer = (*buffer)[:0]
		return
	}
	written, err := e.store.StageGames(ctx, *buffer)
	if err != nil {
		log.Error("staging flush failed", "batch", n, "error", err)
		for _, in := range *buffer {
			e.fail("match", in.Key, err)
		}
	} else {
		e.counters.ItemsProcessed += n
		if written < n {
			log.Debug("duplicates dropped", "batch", n, "written", written)
		}
	}
	*buffer = (*buffer)[:0]
}

func (e *Engine) advance(cp *checkpoint.Checkpoint, index int, eventID string) {
	cp.Offset = index + 1
	cp.LastItemID = eventID
	cp.Counters = e.counters
	if err := e.checkpoints.Save(e.adapter.CheckpointFile, cp); err != nil {
		slog.Error("checkpoint save failed", "error", err)
	}
}

func (e *Engine) scrapeStandings(ctx context.Context, log *slog.Logger, opts Options) {
	sources, err := e.adapter.Standings.DiscoverSources(ctx, e)
	if err != nil {
		log.Error("standings discovery failed", "error", err)
		return
	}
	for _, src := range sources {
		rows, err := e.adapter.Standings.ScrapeSource(ctx, e, src)
		if err != nil {
			log.Error("standings scrape failed", "source", src.ID, "error", err)
			e.fail("standings", src.ID, err)
			continue
		}
		if opts.DryRun {
			continue
		}
		if _, err := e.store.StageStandings(ctx, e.adapter.ID, rows); err != nil {
			log.Error("standings stage failed", "source", src.ID, "error", err)
		}
	}
}

func (e *Engine) fail(kind, itemID string, err error) {
	e.counters.ItemsFailed++
	e.failed = append(e.failed, checkpoint.FailedItem{
		Adapter:  e.adapter.ID,
		Kind:     kind,
		ItemID:   itemID,
		Reason:   err.Error(),
		RunID:    e.runID,
		FailedAt: e.now().UTC(),
	})
}

// persistFailures appends the run's failures to the JSON-lines log and
// mirrors them into the DB.
func (e *Engine) persistFailures(ctx context.Context, log *slog.Logger) {
	if len(e.failed) == 0 {
		return
	}
	if err := e.checkpoints.AppendFailedItems(e.failed); err != nil {
		log.Error("failed-items log append failed", "error", err)
	}
	rows := make([]storage.FailedItemRow, len(e.failed))
	for i, f := range e.failed {
		rows[i] = storage.FailedItemRow{Kind: f.Kind, ItemID: f.ItemID, Reason: f.Reason}
	}
	if err := e.store.RecordFailedItems(ctx, e.adapter.ID, e.runID, rows); err != nil {
		log.Error("failed-items table write failed", "error", err)
	}
}
