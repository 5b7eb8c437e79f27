package htgsports

import (
	"context"
	"fmt"
	"time"

	"github.com/MGMAppDev/soccerview/internal/pkg/models"
	"github.com/MGMAppDev/soccerview/internal/scraper/adapters"
)

const (
	sourceID = "htgsports"
	baseURL  = "https://events.htgsports.net"

	scheduleSelector = "div.schedule-container table"
)

// The schedule SPA renders client-side; the rows are read out of the DOM
// after the table mounts.
const extractScript = `
(() => {
  const rows = [];
  document.querySelectorAll('div.schedule-container table tbody tr').forEach(tr => {
    const td = tr.querySelectorAll('td');
    if (td.length < 6) return;
    rows.push({
      match_id:   tr.getAttribute('data-game-id') || '',
      date:       td[0].innerText.trim(),
      time:       td[1].innerText.trim(),
      home_team:  td[2].innerText.trim(),
      home_score: td[3].innerText.trim(),
      away_score: td[4].innerText.trim(),
      away_team:  td[5].innerText.trim(),
      division:   td.length > 6 ? td[6].innerText.trim() : ''
    });
  });
  return JSON.stringify(rows);
})()`

const discoverScript = `
(() => {
  const events = [];
  document.querySelectorAll('a[href*="/schedules/"]').forEach(a => {
    const m = a.getAttribute('href').match(/schedules\/(\d+)/);
    if (m) events.push({ id: m[1], name: a.innerText.trim() });
  });
  return JSON.stringify(events);
})()`

func init() {
	adapters.Register(&adapters.Adapter{
		ID:        sourceID,
		Name:      "Heartland (HTG Sports)",
		BaseURL:   baseURL,
		Transport: adapters.TransportBrowser,

		RateLimit: adapters.RateLimit{
			MinDelay:        2 * time.Second,
			MaxDelay:        5 * time.Second,
			InterEventDelay: 8 * time.Second,
			MaxRetries:      2,
			Backoff:         []time.Duration{10 * time.Second, 30 * time.Second},
		},
		Endpoints: map[string]string{
			"events":   baseURL + "/#/events",
			"schedule": baseURL + "/#/schedules/%s",
		},

		MatchKeyFormat: models.DefaultKeyFormat,
		CheckpointFile: "htgsports.json",

		DiscoverEvents: discoverEvents,
		ScrapeEvent:    scrapeEvent,

		Transform: adapters.Transform{
			NormalizeName: normalizeName,
			ParseDivision: parseDivision,
			ParseDate:     parseDate,
			ParseTime:     parseTime,
			ParseScore:    parseScore,
			// Heartland is a Kansas-area platform.
			InferState: func(models.EventRef) string { return "KS" },
		},
		Policy: adapters.Policy{
			EarliestDate:    func(now time.Time) time.Time { return now.AddDate(-1, 0, 0) },
			LatestDate:      func(now time.Time) time.Time { return now.AddDate(0, 6, 0) },
			MaxEventsPerRun: 40,
		},
	})
}

func discoverEvents(ctx context.Context, f adapters.Fetcher) ([]models.EventRef, error) {
	b, err := f.Browser(ctx)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	if err := b.Open(ctx, baseURL+"/#/events", "a[href*='/schedules/']"); err != nil {
		return nil, fmt.Errorf("open events page: %w", err)
	}
	var raw string
	if err := b.Evaluate(ctx, discoverScript, &raw); err != nil {
		return nil, fmt.Errorf("extract events: %w", err)
	}
	refs, err := decodeEventRefs(raw)
	if err != nil {
		return nil, err
	}
	for i := range refs {
		refs[i].State = "KS"
	}
	return refs, nil
}

func scrapeEvent(ctx context.Context, f adapters.Fetcher, ev models.EventRef) ([]models.MatchRecord, error) {
	b, err := f.Browser(ctx)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	url := fmt.Sprintf(baseURL+"/#/schedules/%s", ev.ID)
	if err := b.Open(ctx, url, scheduleSelector); err != nil {
		return nil, fmt.Errorf("open schedule %s: %w", ev.ID, err)
	}
	var raw string
	if err := b.Evaluate(ctx, extractScript, &raw); err != nil {
		return nil, fmt.Errorf("extract schedule %s: %w", ev.ID, err)
	}
	return decodeScheduleRows(ev, raw)
}
