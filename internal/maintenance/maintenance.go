// Package maintenance holds the idempotent batch repair ops the nightly
// jobs run: birth-year repair, unlinked-match recovery, alias cleanup and
// the aggressive linking pass.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MGMAppDev/soccerview/internal/fuzzy"
	"github.com/MGMAppDev/soccerview/internal/pkg/models"
	"github.com/MGMAppDev/soccerview/internal/pkg/storage"
)

// Store is the slice of the storage layer the repair ops use.
type Store interface {
	TeamsWithBirthYearMismatch(ctx context.Context, minYear, maxYear int) ([]storage.BirthYearMismatch, error)
	FindIdentityTeam(ctx context.Context, canonical string, birthYear int, gender, state string) (int64, error)
	MergeTeams(ctx context.Context, keeperID, loserID int64, reason string) error
	SetTeamBirthYear(ctx context.Context, teamID int64, birthYear int) error
	UnlinkedMatchesWithKey(ctx context.Context, limit int) ([]storage.UnlinkedMatch, error)
	LegacyMatchesWithoutKey(ctx context.Context, limit int) ([]storage.UnlinkedMatch, error)
	LinkMatchEvent(ctx context.Context, matchID int64, leagueID, tournamentID *int64) error
	AllAliases(ctx context.Context) ([]storage.AliasWithTeam, error)
	DeleteAlias(ctx context.Context, aliasID int64) error
	UnlinkedStagedNames(ctx context.Context, limit int) ([]storage.UnlinkedName, error)
	RefreshViews(ctx context.Context) error
}

// Resolver finds or creates the event a recovered match links to.
type Resolver interface {
	FindOrCreateEvent(ctx context.Context, eventID, eventName, typeHint, source string) (*storage.Event, error)
}

// Matcher is the aggressive-mode alias matcher.
type Matcher interface {
	ResolveAggressive(ctx context.Context, rawName, state string) (int64, bool, error)
}

// sourceStates mirrors the per-source state inference used at ingest.
var sourceStates = map[string]string{
	"htgsports": "KS",
}

const defaultRecoveryLimit = 5000

// Runner executes maintenance ops against one store.
type Runner struct {
	store      Store
	resolver   Resolver
	matcher    Matcher
	seasonYear int
	dryRun     bool
}

func New(store Store, resolver Resolver, matcher Matcher, seasonYear int, dryRun bool) *Runner {
	return &Runner{store: store, resolver: resolver, matcher: matcher, seasonYear: seasonYear, dryRun: dryRun}
}

// Report counts what one op did, or would have done under dry run.
type Report struct {
	Scanned int
	Merged  int
	Updated int
	Linked  int
	Deleted int
}

// BirthYearRepair brings stored birth years back in line with the 4-digit
// year in the display name. Phase 1 merges duplicate groups that share the
// post-fix identity, phase 2 merges rows whose corrected identity collides
// with an existing team, phase 3 updates the survivors, phase 4 refreshes
// the views. Running it twice is a no-op the second time.
func (r *Runner) BirthYearRepair(ctx context.Context) (*Report, error) {
	rep := &Report{}
	log := slog.With("op", "birth-year-repair", "dry_run", r.dryRun)

	minYear, maxYear := r.seasonYear-19, r.seasonYear-7
	rows, err := r.store.TeamsWithBirthYearMismatch(ctx, minYear, maxYear)
	if err != nil {
		return nil, err
	}
	rep.Scanned = len(rows)

	// Rows come ordered by canonical name then matches played, so the first
	// row of each identity group is the keeper.
	type group struct {
		keeper storage.BirthYearMismatch
		losers []storage.BirthYearMismatch
	}
	var groups []*group
	index := map[string]*group{}
	for _, row := range rows {
		key := fmt.Sprintf("%s|%d|%s|%s", row.CanonicalName, row.NameYear, row.Gender, row.State)
		if g, ok := index[key]; ok {
			g.losers = append(g.losers, row)
			continue
		}
		g := &group{keeper: row}
		index[key] = g
		groups = append(groups, g)
	}

	for _, g := range groups {
		for _, loser := range g.losers {
			log.Info("merging duplicate", "keeper", g.keeper.TeamID, "loser", loser.TeamID,
				"name", loser.DisplayName, "year", g.keeper.NameYear)
			if !r.dryRun {
				if err := r.store.MergeTeams(ctx, g.keeper.TeamID, loser.TeamID, "birth-year repair duplicate"); err != nil {
					return rep, fmt.Errorf("merge %d into %d: %w", loser.TeamID, g.keeper.TeamID, err)
				}
			}
			rep.Merged++
		}

		// The corrected identity may already exist; fold the keeper into it
		// instead of colliding on the unique key.
		blocker, err := r.store.FindIdentityTeam(ctx, g.keeper.CanonicalName, g.keeper.NameYear, g.keeper.Gender, g.keeper.State)
		switch {
		case err == nil && blocker != g.keeper.TeamID:
			log.Info("merging into existing identity", "keeper", blocker, "loser", g.keeper.TeamID,
				"name", g.keeper.DisplayName)
			if !r.dryRun {
				if err := r.store.MergeTeams(ctx, blocker, g.keeper.TeamID, "birth-year repair identity collision"); err != nil {
					return rep, fmt.Errorf("merge %d into %d: %w", g.keeper.TeamID, blocker, err)
				}
			}
			rep.Merged++
		case errors.Is(err, storage.ErrNotFound):
			log.Info("updating birth year", "team", g.keeper.TeamID, "name", g.keeper.DisplayName,
				"year", g.keeper.NameYear)
			if !r.dryRun {
				if err := r.store.SetTeamBirthYear(ctx, g.keeper.TeamID, g.keeper.NameYear); err != nil {
					return rep, err
				}
			}
			rep.Updated++
		case err != nil:
			return rep, err
		}
	}

	if !r.dryRun && rep.Merged+rep.Updated > 0 {
		if err := r.store.RefreshViews(ctx); err != nil {
			log.Warn("view refresh failed", "error", err)
		}
	}
	log.Info("done", "scanned", rep.Scanned, "merged", rep.Merged, "updated", rep.Updated)
	return rep, nil
}

// RecoverUnlinkedMatches attaches events to matches that have a source key
// but no league or tournament, using event metadata joined back from
// staging.
func (r *Runner) RecoverUnlinkedMatches(ctx context.Context, limit int) (*Report, error) {
	if limit <= 0 {
		limit = defaultRecoveryLimit
	}
	rows, err := r.store.UnlinkedMatchesWithKey(ctx, limit)
	if err != nil {
		return nil, err
	}
	return r.linkRecovered(ctx, "unlinked-matches", rows)
}

// RecoverLegacyMatches does the same for matches predating source keys,
// joined by date and normalized names in either orientation.
func (r *Runner) RecoverLegacyMatches(ctx context.Context, limit int) (*Report, error) {
	if limit <= 0 {
		limit = defaultRecoveryLimit
	}
	rows, err := r.store.LegacyMatchesWithoutKey(ctx, limit)
	if err != nil {
		return nil, err
	}
	return r.linkRecovered(ctx, "legacy-matches", rows)
}

func (r *Runner) linkRecovered(ctx context.Context, op string, rows []storage.UnlinkedMatch) (*Report, error) {
	rep := &Report{Scanned: len(rows)}
	log := slog.With("op", op, "dry_run", r.dryRun)

	for _, row := range rows {
		if r.dryRun {
			log.Info("would link", "match", row.MatchID, "event", row.EventName)
			rep.Linked++
			continue
		}
		ev, err := r.resolver.FindOrCreateEvent(ctx, row.EventID, row.EventName, "", row.SourcePlatform)
		if err != nil {
			log.Warn("event resolution failed", "match", row.MatchID, "event", row.EventName, "error", err)
			continue
		}
		var leagueID, tournamentID *int64
		if ev.Type == models.EventLeague {
			leagueID = &ev.ID
		} else {
			tournamentID = &ev.ID
		}
		if err := r.store.LinkMatchEvent(ctx, row.MatchID, leagueID, tournamentID); err != nil {
			return rep, err
		}
		rep.Linked++
	}
	log.Info("done", "scanned", rep.Scanned, "linked", rep.Linked)
	return rep, nil
}

// AliasCleanup drops aliases whose year or gender token contradicts the
// team they point at. Manual aliases are never touched.
func (r *Runner) AliasCleanup(ctx context.Context) (*Report, error) {
	aliases, err := r.store.AllAliases(ctx)
	if err != nil {
		return nil, err
	}
	rep := &Report{Scanned: len(aliases)}
	log := slog.With("op", "alias-cleanup", "dry_run", r.dryRun)

	for _, a := range aliases {
		if a.Source == models.AliasManual {
			continue
		}
		if !aliasContradictsTeam(&a) {
			continue
		}
		log.Info("deleting alias", "alias", a.AliasName, "team", a.TeamID,
			"team_year", a.TeamBirthYear, "team_gender", a.TeamGender)
		if !r.dryRun {
			if err := r.store.DeleteAlias(ctx, a.ID); err != nil {
				return rep, err
			}
		}
		rep.Deleted++
	}
	log.Info("done", "scanned", rep.Scanned, "deleted", rep.Deleted)
	return rep, nil
}

func aliasContradictsTeam(a *storage.AliasWithTeam) bool {
	if year := fuzzy.YearToken(a.AliasName); year != nil && a.TeamBirthYear != nil && *year != *a.TeamBirthYear {
		return true
	}
	gender := fuzzy.GenderToken(a.AliasName)
	if gender != models.GenderUnknown && a.TeamGender != models.GenderUnknown && gender != a.TeamGender {
		return true
	}
	return false
}

// AggressiveLink runs the low-threshold matcher over the most frequent
// still-unlinked staged names. The matcher emits the learned aliases; this
// op only selects the candidates.
func (r *Runner) AggressiveLink(ctx context.Context, topN int) (*Report, error) {
	names, err := r.store.UnlinkedStagedNames(ctx, topN)
	if err != nil {
		return nil, err
	}
	rep := &Report{Scanned: len(names)}
	log := slog.With("op", "aggressive-link", "dry_run", r.dryRun)

	for _, n := range names {
		if r.dryRun {
			log.Info("would attempt", "name", n.Name, "occurrences", n.Occurrences)
			continue
		}
		id, linked, err := r.matcher.ResolveAggressive(ctx, n.Name, sourceStates[n.SourcePlatform])
		if err != nil {
			return rep, err
		}
		if linked {
			log.Info("linked", "name", n.Name, "team", id, "occurrences", n.Occurrences)
			rep.Linked++
		}
	}
	log.Info("done", "scanned", rep.Scanned, "linked", rep.Linked)
	return rep, nil
}
