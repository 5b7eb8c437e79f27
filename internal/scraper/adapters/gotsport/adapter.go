package gotsport

import (
	"context"
	"fmt"
	"time"

	"github.com/MGMAppDev/soccerview/internal/pkg/models"
	"github.com/MGMAppDev/soccerview/internal/scraper/adapters"
)

const (
	sourceID = "gotsport"
	baseURL  = "https://system.gotsport.com/api"

	// The national firehose lists thousands of events; one run takes a
	// bounded slice and the recency window supplies the rest.
	maxEventsPerRun = 150
	maxEventPages   = 5
)

func init() {
	adapters.Register(&adapters.Adapter{
		ID:        sourceID,
		Name:      "GotSport",
		BaseURL:   baseURL,
		Transport: adapters.TransportAPI,

		RateLimit: adapters.RateLimit{
			MinDelay:          800 * time.Millisecond,
			MaxDelay:          2 * time.Second,
			InterEventDelay:   3 * time.Second,
			MaxRetries:        3,
			Backoff:           []time.Duration{5 * time.Second, 15 * time.Second, 45 * time.Second},
			RateLimitCooldown: 60 * time.Second,
		},
		UserAgents: []string{
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/141.0.0.0 Safari/537.36",
		},
		Endpoints: map[string]string{
			"events":  baseURL + "/events?page=%d",
			"matches": baseURL + "/events/%s/matches?page=%d",
		},

		MatchKeyFormat: models.DefaultKeyFormat,
		CheckpointFile: "gotsport.json",

		DiscoverEvents: discoverEvents,
		ScrapeEvent:    scrapeEvent,

		Transform: adapters.Transform{
			NormalizeName: normalizeName,
			ParseDivision: parseDivision,
			ParseDate:     parseDate,
			ParseTime:     parseTime,
			ParseScore:    parseScore,
			// National platform: no state signal.
			InferState: func(models.EventRef) string { return "" },
		},
		Policy: adapters.Policy{
			EarliestDate:    func(now time.Time) time.Time { return now.AddDate(-1, 0, 0) },
			LatestDate:      func(now time.Time) time.Time { return now.AddDate(0, 6, 0) },
			MaxEventsPerRun: maxEventsPerRun,
			IsValidMatch: func(r *models.MatchRecord) bool {
				return r.MatchID != ""
			},
		},
	})
}

func discoverEvents(ctx context.Context, f adapters.Fetcher) ([]models.EventRef, error) {
	var out []models.EventRef
	for page := 1; page <= maxEventPages; page++ {
		var resp eventsResponse
		url := fmt.Sprintf(baseURL+"/events?page=%d", page)
		if err := f.FetchJSON(ctx, url, nil, &resp); err != nil {
			return nil, fmt.Errorf("events page %d: %w", page, err)
		}
		for _, ev := range resp.Events {
			out = append(out, models.EventRef{
				ID:    fmt.Sprintf("%d", ev.ID),
				Name:  ev.Name,
				Type:  ev.Type,
				State: ev.State,
			})
		}
		if resp.Meta.CurrentPage >= resp.Meta.TotalPages {
			break
		}
	}
	return out, nil
}

func scrapeEvent(ctx context.Context, f adapters.Fetcher, ev models.EventRef) ([]models.MatchRecord, error) {
	var out []models.MatchRecord
	for page := 1; ; page++ {
		var resp matchesResponse
		url := fmt.Sprintf(baseURL+"/events/%s/matches?page=%d", ev.ID, page)
		if err := f.FetchJSON(ctx, url, nil, &resp); err != nil {
			return nil, fmt.Errorf("event %s matches page %d: %w", ev.ID, page, err)
		}
		for _, m := range resp.Matches {
			rec, err := buildRecord(ev, m)
			if err != nil {
				continue
			}
			out = append(out, rec)
		}
		if resp.Meta.CurrentPage >= resp.Meta.TotalPages || len(resp.Matches) == 0 {
			break
		}
	}
	return out, nil
}

func buildRecord(ev models.EventRef, m apiMatch) (models.MatchRecord, error) {
	date, err := parseDate(m.Date)
	if err != nil {
		return models.MatchRecord{}, err
	}
	gender, ageGroup := parseDivision(m.Division)
	rec := models.MatchRecord{
		EventID:    ev.ID,
		EventName:  ev.Name,
		MatchID:    fmt.Sprintf("%d", m.ID),
		MatchDate:  date,
		MatchTime:  parseTime(m.Time),
		HomeTeam:   normalizeName(m.HomeTeam.Name),
		AwayTeam:   normalizeName(m.AwayTeam.Name),
		HomeScore:  m.HomeScore,
		AwayScore:  m.AwayScore,
		HomeTeamID: fmt.Sprintf("%d", m.HomeTeam.ID),
		AwayTeamID: fmt.Sprintf("%d", m.AwayTeam.ID),
		Location:   m.Venue,
		Division:   m.Division,
		Gender:     gender,
		AgeGroup:   ageGroup,
		Raw:        m,
	}
	if rec.Completed() {
		rec.Status = models.StatusCompleted
	} else {
		rec.Status = models.StatusScheduled
	}
	return rec, nil
}
