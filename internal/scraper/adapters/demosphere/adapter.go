package demosphere

import (
	"context"
	"fmt"
	"time"

	"github.com/MGMAppDev/soccerview/internal/pkg/models"
	"github.com/MGMAppDev/soccerview/internal/scraper/adapters"
)

const (
	sourceID = "demosphere"
	baseURL  = "https://www.demosphere.com"
)

func init() {
	adapters.Register(&adapters.Adapter{
		ID:        sourceID,
		Name:      "Demosphere",
		BaseURL:   baseURL,
		Transport: adapters.TransportAPI,

		RateLimit: adapters.RateLimit{
			MinDelay:          1 * time.Second,
			MaxDelay:          3 * time.Second,
			InterEventDelay:   5 * time.Second,
			MaxRetries:        3,
			Backoff:           []time.Duration{5 * time.Second, 20 * time.Second, 60 * time.Second},
			RateLimitCooldown: 90 * time.Second,
		},
		UserAgents: []string{
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36",
		},
		Endpoints: map[string]string{
			"schedule":  baseURL + "/league/%s/schedule",
			"standings": baseURL + "/league/%s/standings",
		},

		MatchKeyFormat: models.DefaultKeyFormat,
		CheckpointFile: "demosphere.json",

		// Demosphere has no crawlable index; leagues are configured.
		StaticEvents: []models.EventRef{
			{ID: "heartland-invitational", Name: "Heartland Invitational League", Type: "league"},
			{ID: "midwest-conference", Name: "Midwest Youth Conference", Type: "league"},
		},
		ScrapeEvent: scrapeEvent,

		Transform: adapters.Transform{
			NormalizeName: normalizeName,
			ParseDate:     parseDate,
			ParseTime:     parseTime,
			ParseScore:    parseScore,
			InferState:    func(models.EventRef) string { return "" },
		},
		Policy: adapters.Policy{
			EarliestDate:    func(now time.Time) time.Time { return now.AddDate(-1, 0, 0) },
			LatestDate:      func(now time.Time) time.Time { return now.AddDate(0, 6, 0) },
			MaxEventsPerRun: 20,
		},

		Standings: &adapters.Standings{
			DiscoverSources: discoverStandingsSources,
			ScrapeSource:    scrapeStandings,
		},
	})
}

func scrapeEvent(ctx context.Context, f adapters.Fetcher, ev models.EventRef) ([]models.MatchRecord, error) {
	url := fmt.Sprintf(baseURL+"/league/%s/schedule", ev.ID)
	body, err := f.FetchBody(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("schedule %s: %w", ev.ID, err)
	}
	return parseSchedule(ev, string(body))
}

func discoverStandingsSources(ctx context.Context, f adapters.Fetcher) ([]models.EventRef, error) {
	a, _ := adapters.ByID(sourceID)
	return a.StaticEvents, nil
}

func scrapeStandings(ctx context.Context, f adapters.Fetcher, ev models.EventRef) ([]models.StandingsRow, error) {
	url := fmt.Sprintf(baseURL+"/league/%s/standings", ev.ID)
	body, err := f.FetchBody(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("standings %s: %w", ev.ID, err)
	}
	return parseStandings(ev, string(body))
}
