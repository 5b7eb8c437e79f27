package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MGMAppDev/soccerview/internal/pkg/checkpoint"
	"github.com/MGMAppDev/soccerview/internal/pkg/config"
	"github.com/MGMAppDev/soccerview/internal/pkg/models"
	"github.com/MGMAppDev/soccerview/internal/pkg/storage"
	"github.com/MGMAppDev/soccerview/internal/scraper/adapters"
)

type fakeEngineStore struct {
	staged      []storage.StagedInsert
	events      []string
	failedItems []storage.FailedItemRow
	active      []models.EventRef
}

func (f *fakeEngineStore) StageGames(_ context.Context, batch []storage.StagedInsert) (int, error) {
	f.staged = append(f.staged, batch...)
	return len(batch), nil
}

func (f *fakeEngineStore) StageEvent(_ context.Context, key string, _ models.EventRef, _ string, _ []byte) error {
	f.events = append(f.events, key)
	return nil
}

func (f *fakeEngineStore) StageStandings(_ context.Context, _ string, rows []models.StandingsRow) (int, error) {
	return len(rows), nil
}

func (f *fakeEngineStore) ActiveSourceEvents(_ context.Context, _ string, _ int) ([]models.EventRef, error) {
	return f.active, nil
}

func (f *fakeEngineStore) RecordFailedItems(_ context.Context, _, _ string, items []storage.FailedItemRow) error {
	f.failedItems = append(f.failedItems, items...)
	return nil
}

// fakeClock advances a fixed amount per ScrapeEvent call so timeout
// behavior is deterministic.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func testEngine(t *testing.T, a *adapters.Adapter, store Store) (*Engine, *fakeClock) {
	t.Helper()
	cps, err := checkpoint.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.ScraperConfig{
		TimeoutMinutes:    50,
		BatchSize:         100,
		RequestTimeout:    time.Second,
		RecencyWindowDays: 21,
	}
	e := New(a, store, cps, nil, cfg)
	clock := &fakeClock{now: time.Date(2026, 4, 12, 8, 0, 0, 0, time.UTC)}
	e.now = clock.Now
	e.sleep = func(time.Duration) {}
	return e, clock
}

func scheduledRecord(eventID, matchID string) models.MatchRecord {
	return models.MatchRecord{
		EventID:   eventID,
		MatchID:   matchID,
		MatchDate: "2026-04-20",
		HomeTeam:  "Team A",
		AwayTeam:  "Team B",
		Status:    models.StatusScheduled,
	}
}

func TestRunStagesAndCompletes(t *testing.T) {
	store := &fakeEngineStore{}
	a := &adapters.Adapter{
		ID:             "testsrc",
		CheckpointFile: "testsrc.json",
		StaticEvents: []models.EventRef{
			{ID: "e1", Name: "Event One"},
			{ID: "e2", Name: "Event Two"},
		},
		ScrapeEvent: func(_ context.Context, _ adapters.Fetcher, ev models.EventRef) ([]models.MatchRecord, error) {
			return []models.MatchRecord{scheduledRecord(ev.ID, "m1"), scheduledRecord(ev.ID, "m2")}, nil
		},
	}
	e, _ := testEngine(t, a, store)

	res, err := e.Run(context.Background(), Options{Resume: -1})
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitReason != ExitCompleted {
		t.Errorf("ExitReason = %s, want COMPLETED", res.ExitReason)
	}
	if len(store.staged) != 4 {
		t.Errorf("staged %d records, want 4", len(store.staged))
	}
	if store.staged[0].Key != "testsrc-e1-m1" {
		t.Errorf("first key = %q", store.staged[0].Key)
	}
	if res.Counters.EventsDone != 2 || res.Counters.ItemsProcessed != 4 {
		t.Errorf("counters = %+v", res.Counters)
	}

	// Completion resets the checkpoint for the next run.
	cp, err := e.checkpoints.Load(a.CheckpointFile)
	if err != nil {
		t.Fatal(err)
	}
	if cp.Offset != 0 {
		t.Errorf("post-run offset = %d, want 0", cp.Offset)
	}
}

func TestRunZeroMatchEventAdvances(t *testing.T) {
	store := &fakeEngineStore{}
	a := &adapters.Adapter{
		ID:             "testsrc",
		CheckpointFile: "testsrc.json",
		StaticEvents:   []models.EventRef{{ID: "empty"}},
		ScrapeEvent: func(_ context.Context, _ adapters.Fetcher, _ models.EventRef) ([]models.MatchRecord, error) {
			return nil, nil
		},
	}
	e, _ := testEngine(t, a, store)

	res, err := e.Run(context.Background(), Options{Resume: -1})
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitReason != ExitCompleted || res.Counters.EventsDone != 1 {
		t.Errorf("result = %s %+v", res.ExitReason, res.Counters)
	}
	if res.Counters.EventsFailed != 0 || res.Counters.ItemsFailed != 0 {
		t.Errorf("zero-match event counted as failure: %+v", res.Counters)
	}
}

func TestRunTimeoutFinishesInFlightEvent(t *testing.T) {
	store := &fakeEngineStore{}
	var clock *fakeClock
	a := &adapters.Adapter{
		ID:             "testsrc",
		CheckpointFile: "testsrc.json",
		StaticEvents: []models.EventRef{
			{ID: "e1"}, {ID: "e2"}, {ID: "e3"},
		},
		ScrapeEvent: func(_ context.Context, _ adapters.Fetcher, ev models.EventRef) ([]models.MatchRecord, error) {
			clock.Advance(30 * time.Minute)
			return []models.MatchRecord{scheduledRecord(ev.ID, "m1")}, nil
		},
	}
	e, c := testEngine(t, a, store)
	clock = c

	res, err := e.Run(context.Background(), Options{Resume: -1})
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitReason != ExitTimeout {
		t.Fatalf("ExitReason = %s, want TIMEOUT", res.ExitReason)
	}
	// Budget is 50 minutes: e1 (30m) and e2 (60m, already in flight when
	// the budget ran out) finish; e3 never starts.
	if res.Counters.EventsDone != 2 {
		t.Errorf("EventsDone = %d, want 2", res.Counters.EventsDone)
	}
	if len(store.staged) != 2 {
		t.Errorf("staged %d records, want 2 (no partial event writes)", len(store.staged))
	}

	cp, err := e.checkpoints.Load(a.CheckpointFile)
	if err != nil {
		t.Fatal(err)
	}
	if cp.Offset != 2 {
		t.Errorf("checkpoint offset = %d, want 2", cp.Offset)
	}
}

func TestRunResumeSkipsEvents(t *testing.T) {
	store := &fakeEngineStore{}
	var scraped []string
	a := &adapters.Adapter{
		ID:             "testsrc",
		CheckpointFile: "testsrc.json",
		StaticEvents:   []models.EventRef{{ID: "e1"}, {ID: "e2"}, {ID: "e3"}},
		ScrapeEvent: func(_ context.Context, _ adapters.Fetcher, ev models.EventRef) ([]models.MatchRecord, error) {
			scraped = append(scraped, ev.ID)
			return nil, nil
		},
	}
	e, _ := testEngine(t, a, store)

	if _, err := e.Run(context.Background(), Options{Resume: 2}); err != nil {
		t.Fatal(err)
	}
	if len(scraped) != 1 || scraped[0] != "e3" {
		t.Errorf("scraped = %v, want [e3]", scraped)
	}
}

func TestRunEventFailureIsolated(t *testing.T) {
	store := &fakeEngineStore{}
	a := &adapters.Adapter{
		ID:             "testsrc",
		CheckpointFile: "testsrc.json",
		StaticEvents:   []models.EventRef{{ID: "bad"}, {ID: "good"}},
		ScrapeEvent: func(_ context.Context, _ adapters.Fetcher, ev models.EventRef) ([]models.MatchRecord, error) {
			if ev.ID == "bad" {
				return nil, errors.New("boom")
			}
			return []models.MatchRecord{scheduledRecord(ev.ID, "m1")}, nil
		},
	}
	e, _ := testEngine(t, a, store)

	res, err := e.Run(context.Background(), Options{Resume: -1})
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitReason != ExitCompleted {
		t.Errorf("ExitReason = %s, want COMPLETED despite one bad event", res.ExitReason)
	}
	if res.Counters.EventsFailed != 1 || res.Counters.EventsDone != 1 {
		t.Errorf("counters = %+v", res.Counters)
	}
	if len(store.failedItems) != 1 || store.failedItems[0].ItemID != "bad" {
		t.Errorf("failedItems = %+v", store.failedItems)
	}
	if len(store.staged) != 1 {
		t.Errorf("staged %d records, want 1", len(store.staged))
	}
}

func TestRunCancelled(t *testing.T) {
	store := &fakeEngineStore{}
	ctx, cancel := context.WithCancel(context.Background())
	a := &adapters.Adapter{
		ID:             "testsrc",
		CheckpointFile: "testsrc.json",
		StaticEvents:   []models.EventRef{{ID: "e1"}, {ID: "e2"}},
		ScrapeEvent: func(_ context.Context, _ adapters.Fetcher, _ models.EventRef) ([]models.MatchRecord, error) {
			cancel()
			return nil, nil
		},
	}
	e, _ := testEngine(t, a, store)

	res, err := e.Run(ctx, Options{Resume: -1})
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitReason != ExitCancelled {
		t.Errorf("ExitReason = %s, want CANCELLED", res.ExitReason)
	}
}

func TestWorkingSetDedupAndCap(t *testing.T) {
	store := &fakeEngineStore{
		active: []models.EventRef{{ID: "e2"}, {ID: "e4"}},
	}
	a := &adapters.Adapter{
		ID:             "testsrc",
		CheckpointFile: "testsrc.json",
		StaticEvents:   []models.EventRef{{ID: "e1"}, {ID: "e2"}, {ID: "e3"}},
		Policy:         adapters.Policy{MaxEventsPerRun: 3},
		ScrapeEvent: func(_ context.Context, _ adapters.Fetcher, _ models.EventRef) ([]models.MatchRecord, error) {
			return nil, nil
		},
	}
	e, _ := testEngine(t, a, store)

	events, err := e.workingSet(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 {
		t.Fatalf("working set = %d events, want cap 3", len(events))
	}
	if events[0].ID != "e1" || events[1].ID != "e2" || events[2].ID != "e3" {
		t.Errorf("working set order = %v", events)
	}
}

func TestWorkingSetSingleEventFilter(t *testing.T) {
	store := &fakeEngineStore{}
	a := &adapters.Adapter{
		ID:           "testsrc",
		StaticEvents: []models.EventRef{{ID: "e1", Name: "One"}, {ID: "e2", Name: "Two"}},
		ScrapeEvent: func(_ context.Context, _ adapters.Fetcher, _ models.EventRef) ([]models.MatchRecord, error) {
			return nil, nil
		},
	}
	e, _ := testEngine(t, a, store)

	events, err := e.workingSet(context.Background(), Options{EventID: "e2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Name != "Two" {
		t.Errorf("events = %v, want the named e2", events)
	}

	// Unknown ids still scrape: explicit request beats discovery.
	events, err = e.workingSet(context.Background(), Options{EventID: "e9"})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].ID != "e9" {
		t.Errorf("events = %v, want bare e9", events)
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	store := &fakeEngineStore{}
	a := &adapters.Adapter{
		ID:             "testsrc",
		CheckpointFile: "testsrc.json",
		StaticEvents:   []models.EventRef{{ID: "e1"}},
		ScrapeEvent: func(_ context.Context, _ adapters.Fetcher, ev models.EventRef) ([]models.MatchRecord, error) {
			return []models.MatchRecord{scheduledRecord(ev.ID, "m1")}, nil
		},
	}
	e, _ := testEngine(t, a, store)

	res, err := e.Run(context.Background(), Options{Resume: -1, DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(store.staged) != 0 || len(store.events) != 0 {
		t.Errorf("dry run wrote staged=%d events=%d", len(store.staged), len(store.events))
	}
	if res.Counters.ItemsProcessed != 1 {
		t.Errorf("ItemsProcessed = %d, want 1", res.Counters.ItemsProcessed)
	}
}
