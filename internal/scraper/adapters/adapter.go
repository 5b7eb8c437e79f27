package adapters

import (
	"context"
	"time"

	"github.com/MGMAppDev/soccerview/internal/pkg/models"
)

// Transport selects how the engine fetches for this source.
type Transport int

const (
	// TransportAPI fetches JSON or HTML over plain HTTP.
	TransportAPI Transport = iota
	// TransportBrowser drives a headless browser for script-rendered pages.
	TransportBrowser
)

func (t Transport) String() string {
	if t == TransportBrowser {
		return "browser"
	}
	return "api"
}

// RateLimit is the per-source politeness contract. Backoff entries apply to
// 5xx and network failures; a 429 costs one cooldown and a free retry.
type RateLimit struct {
	MinDelay        time.Duration
	MaxDelay        time.Duration
	InterEventDelay time.Duration
	MaxRetries      int
	Backoff         []time.Duration
	RateLimitCooldown time.Duration
}

// Transform bundles the per-source parsing rules the scrape closures use.
// Any field may be nil when the source does not carry that signal.
type Transform struct {
	NormalizeName func(raw string) string
	// ParseDivision extracts gender and age group from a division label.
	ParseDivision func(division string) (models.Gender, string)
	// ParseDate converts a source date string to ISO YYYY-MM-DD.
	ParseDate func(raw string) (string, error)
	ParseTime func(raw string) string
	// ParseScore returns nil for unplayed markers ("-", "", "TBD").
	ParseScore func(raw string) *int
	// InferState assigns a US state to teams from this source, "" if none.
	InferState func(ev models.EventRef) string
}

// Policy bounds what a run accepts from this source.
type Policy struct {
	// EarliestDate/LatestDate bound accepted match dates relative to now.
	// Nil means unbounded on that side.
	EarliestDate func(now time.Time) time.Time
	LatestDate   func(now time.Time) time.Time
	MaxEventsPerRun int
	// IsValidMatch gates records before staging; nil accepts everything
	// with two team names.
	IsValidMatch func(r *models.MatchRecord) bool
}

// Standings is the optional standings capability of a source.
type Standings struct {
	DiscoverSources func(ctx context.Context, f Fetcher) ([]models.EventRef, error)
	ScrapeSource    func(ctx context.Context, f Fetcher, ev models.EventRef) ([]models.StandingsRow, error)
}

// Adapter declares one external source: metadata, limits, parsing rules and
// the scrape closures. The engine depends only on this type.
type Adapter struct {
	ID        string
	Name      string
	BaseURL   string
	Transport Transport

	RateLimit  RateLimit
	UserAgents []string
	Endpoints  map[string]string

	MatchKeyFormat string
	CheckpointFile string

	StaticEvents   []models.EventRef
	DiscoverEvents func(ctx context.Context, f Fetcher) ([]models.EventRef, error)

	Transform Transform
	Policy    Policy

	ScrapeEvent func(ctx context.Context, f Fetcher, ev models.EventRef) ([]models.MatchRecord, error)
	Standings   *Standings
}

// MatchKey renders this source's key for one (event, match) pair.
func (a *Adapter) MatchKey(eventID, matchID string) string {
	format := a.MatchKeyFormat
	if format == "" {
		format = models.DefaultKeyFormat
	}
	return models.MatchKey(format, a.ID, eventID, matchID)
}

// AcceptsDate applies the policy date window.
func (a *Adapter) AcceptsDate(d, now time.Time) bool {
	if d.IsZero() {
		return false
	}
	if a.Policy.EarliestDate != nil && d.Before(a.Policy.EarliestDate(now)) {
		return false
	}
	if a.Policy.LatestDate != nil && d.After(a.Policy.LatestDate(now)) {
		return false
	}
	return true
}

// Accepts runs the full policy filter over one record.
func (a *Adapter) Accepts(r *models.MatchRecord, now time.Time) bool {
	if r.HomeTeam == "" || r.AwayTeam == "" {
		return false
	}
	if !a.AcceptsDate(r.Date(), now) {
		return false
	}
	if a.Policy.IsValidMatch != nil && !a.Policy.IsValidMatch(r) {
		return false
	}
	return true
}

// Fetcher is the engine surface the scrape closures call. The engine owns
// delays, retries and user-agent rotation behind these methods.
type Fetcher interface {
	FetchJSON(ctx context.Context, url string, headers map[string]string, out any) error
	FetchBody(ctx context.Context, url string, headers map[string]string) ([]byte, error)
	Browser(ctx context.Context) (Browser, error)
}

// Browser is a minimal headless-browser session for TransportBrowser
// sources.
type Browser interface {
	Open(ctx context.Context, url, waitSelector string) error
	Evaluate(ctx context.Context, script string, out any) error
	Close() error
}
