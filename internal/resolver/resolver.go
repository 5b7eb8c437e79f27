package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MGMAppDev/soccerview/internal/pkg/models"
	"github.com/MGMAppDev/soccerview/internal/pkg/storage"
)

// Store is the slice of the storage layer the resolver needs. *storage.Store
// satisfies it; tests substitute a fake.
type Store interface {
	TeamsByCanonicalName(ctx context.Context, canonical string, birthYear *int) ([]*storage.Team, error)
	TeamsByKeyParts(ctx context.Context, keyParts []string, birthYear *int, limit int) ([]*storage.Team, error)
	CreateTeam(ctx context.Context, t *storage.Team) (*storage.Team, error)
	FindOrCreateClub(ctx context.Context, name, canonical, state string) (int64, error)
	SetTeamClub(ctx context.Context, teamID, clubID int64) error
	EventBySourceID(ctx context.Context, t models.EventType, source, sourceEventID string) (*storage.Event, error)
	EventByName(ctx context.Context, t models.EventType, name string, seasonID int64) (*storage.Event, error)
	CreateLeague(ctx context.Context, name, source, sourceEventID, state string, seasonID int64) (*storage.Event, error)
	CreateTournament(ctx context.Context, name, source, sourceEventID, state string, seasonID int64, start, end *time.Time) (*storage.Event, error)
}

// levelTwoLimit caps the contains-all candidate set.
const levelTwoLimit = 5

// levelTwoAccept is the minimum candidate score for a level-2 hit.
const levelTwoAccept = 0.6

// sourceStates maps adapters to the state a new team inherits. Heartland
// platforms are Kansas-local; national platforms give no signal.
var sourceStates = map[string]string{
	"htgsports": "KS",
}

type teamCacheKey struct {
	rawName string
	source  string
}

type eventCacheKey struct {
	eventID string
	name    string
	source  string
}

// Resolver finds or creates canonical teams and events for staged rows.
// Caches are per-run and discarded with the resolver; they are never shared
// across processes.
type Resolver struct {
	store      Store
	seasonYear int
	seasonID   int64
	startElo   float64

	teamCache  map[teamCacheKey]*storage.Team
	eventCache map[eventCacheKey]*storage.Event
}

func New(store Store, seasonYear int, seasonID int64, startingElo float64) *Resolver {
	return &Resolver{
		store:      store,
		seasonYear: seasonYear,
		seasonID:   seasonID,
		startElo:   startingElo,
		teamCache:  make(map[teamCacheKey]*storage.Team),
		eventCache: make(map[eventCacheKey]*storage.Event),
	}
}

// FindOrCreateTeam resolves a raw team name to a canonical team, creating
// one when no confident match exists.
func (r *Resolver) FindOrCreateTeam(ctx context.Context, rawName, source string) (*storage.Team, error) {
	rawName = strings.TrimSpace(rawName)
	if rawName == "" {
		return nil, fmt.Errorf("empty team name")
	}

	key := teamCacheKey{rawName: rawName, source: source}
	if t, ok := r.teamCache[key]; ok {
		return t, nil
	}

	meta := ParseTeamName(rawName, r.seasonYear)

	// Level 1: canonical-name equality, birth-year filtered when known.
	teams, err := r.store.TeamsByCanonicalName(ctx, meta.CanonicalName, meta.BirthYear)
	if err != nil {
		return nil, fmt.Errorf("level-1 lookup %q: %w", rawName, err)
	}
	if len(teams) == 1 {
		r.teamCache[key] = teams[0]
		return teams[0], nil
	}

	// Level 2: contains-all key parts plus scoring.
	if t := r.levelTwo(ctx, meta); t != nil {
		r.teamCache[key] = t
		return t, nil
	}

	created, err := r.createTeam(ctx, rawName, meta, source)
	if err != nil {
		return nil, err
	}
	r.teamCache[key] = created
	return created, nil
}

func (r *Resolver) levelTwo(ctx context.Context, meta TeamMeta) *storage.Team {
	parts := KeyParts(meta.CanonicalName)
	if len(parts) < 2 {
		return nil
	}
	candidates, err := r.store.TeamsByKeyParts(ctx, parts, meta.BirthYear, levelTwoLimit)
	if err != nil {
		slog.Warn("level-2 lookup failed", "error", err)
		return nil
	}

	var best *storage.Team
	bestScore := 0.0
	for _, c := range candidates {
		score := ScoreCandidate(meta.CanonicalName, meta.BirthYear, c.CanonicalName, c.BirthYear)
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	if best != nil && bestScore >= levelTwoAccept {
		return best
	}
	return nil
}

func (r *Resolver) createTeam(ctx context.Context, rawName string, meta TeamMeta, source string) (*storage.Team, error) {
	state := sourceStates[source]
	t := &storage.Team{
		CanonicalName:    meta.CanonicalName,
		DisplayName:      rawName,
		BirthYear:        meta.BirthYear,
		Gender:           meta.Gender,
		AgeGroup:         meta.AgeGroup,
		State:            state,
		EloRating:        r.startElo,
		DataQualityScore: DataQualityScore(meta, state),
		BirthYearSource:  meta.BirthYearSource,
		GenderSource:     meta.GenderSource,
	}
	created, err := r.store.CreateTeam(ctx, t)
	if err == nil {
		r.attachClub(ctx, created, meta, state)
		return created, nil
	}

	// A concurrent run created the same identity; the level-1 retry
	// reuses its row.
	if storage.IsUniqueViolation(err) {
		teams, retryErr := r.store.TeamsByCanonicalName(ctx, meta.CanonicalName, meta.BirthYear)
		if retryErr == nil && len(teams) > 0 {
			return teams[0], nil
		}
	}
	return nil, fmt.Errorf("create team %q: %w", rawName, err)
}

// attachClub links a freshly created team to its club, derived from the
// leading name tokens. Best effort; a team without a club stays valid.
func (r *Resolver) attachClub(ctx context.Context, team *storage.Team, meta TeamMeta, state string) {
	club := ClubName(meta.CanonicalName)
	if club == "" {
		return
	}
	clubID, err := r.store.FindOrCreateClub(ctx, club, club, state)
	if err != nil {
		slog.Warn("club resolution failed", "club", club, "error", err)
		return
	}
	if err := r.store.SetTeamClub(ctx, team.ID, clubID); err != nil {
		slog.Warn("club link failed", "team_id", team.ID, "club_id", clubID, "error", err)
		return
	}
	team.ClubID = &clubID
}

// FindOrCreateEvent resolves an event to exactly one league or tournament.
func (r *Resolver) FindOrCreateEvent(ctx context.Context, eventID, eventName, typeHint, source string) (*storage.Event, error) {
	eventName = strings.TrimSpace(eventName)
	if eventID == "" && eventName == "" {
		return nil, fmt.Errorf("event has neither id nor name")
	}

	key := eventCacheKey{eventID: eventID, name: strings.ToLower(eventName), source: source}
	if ev, ok := r.eventCache[key]; ok {
		return ev, nil
	}

	evType := models.EventTournament
	if strings.EqualFold(typeHint, string(models.EventLeague)) ||
		strings.Contains(strings.ToLower(eventName), "league") {
		evType = models.EventLeague
	}

	if eventID != "" {
		ev, err := r.store.EventBySourceID(ctx, evType, source, eventID)
		if err == nil {
			r.eventCache[key] = ev
			return ev, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
	}
	if eventName != "" {
		ev, err := r.store.EventByName(ctx, evType, eventName, r.seasonID)
		if err == nil {
			r.eventCache[key] = ev
			return ev, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
	}

	name := eventName
	if name == "" {
		name = fmt.Sprintf("%s event %s", source, eventID)
	}
	state := sourceStates[source]

	var ev *storage.Event
	var err error
	if evType == models.EventLeague {
		ev, err = r.store.CreateLeague(ctx, name, source, eventID, state, r.seasonID)
	} else {
		// Tournament dates are unknown at ingest; the storage layer
		// fills placeholders and flags them estimated.
		ev, err = r.store.CreateTournament(ctx, name, source, eventID, state, r.seasonID, nil, nil)
	}
	if err != nil {
		if storage.IsUniqueViolation(err) {
			if retry, retryErr := r.store.EventByName(ctx, evType, name, r.seasonID); retryErr == nil {
				r.eventCache[key] = retry
				return retry, nil
			}
		}
		return nil, fmt.Errorf("create event %q: %w", name, err)
	}
	r.eventCache[key] = ev
	return ev, nil
}
