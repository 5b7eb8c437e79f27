package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MGMAppDev/soccerview/internal/fuzzy"
	"github.com/MGMAppDev/soccerview/internal/pkg/models"
	"github.com/MGMAppDev/soccerview/internal/pkg/storage"
)

// ErrSameTeam rejects rows where both sides resolve to one canonical team.
var ErrSameTeam = errors.New("home and away resolve to the same team")

// Store is the slice of the storage layer the validator writes through.
type Store interface {
	AuthorizePipelineWrites(ctx context.Context) error
	FetchUnprocessed(ctx context.Context, source string, limit, offset int) ([]storage.StagedGame, error)
	MarkProcessed(ctx context.Context, keys []string) error
	MarkProcessedError(ctx context.Context, key, message string) error
	UpsertMatches(ctx context.Context, matches []*storage.Match) error
	InsertAlias(ctx context.Context, teamID int64, aliasName string, source models.AliasSource) error
	RefreshViews(ctx context.Context) error
}

// Resolver finds or creates canonical teams and events.
type Resolver interface {
	FindOrCreateTeam(ctx context.Context, rawName, source string) (*storage.Team, error)
	FindOrCreateEvent(ctx context.Context, eventID, eventName, typeHint, source string) (*storage.Event, error)
}

// Matcher resolves raw names through the alias table.
type Matcher interface {
	ResolveName(ctx context.Context, rawName, matchKey, fieldType string) (int64, bool, error)
}

// Options for one validation run.
type Options struct {
	// Source filters staged rows by platform; empty processes all.
	Source string
	// Limit caps total rows this run; 0 means drain the backlog.
	Limit int
	// DryRun validates without resolving or writing.
	DryRun bool
}

// Result of one validation run.
type Result struct {
	Fetched  int
	Inserted int
	Errored  int
	Elapsed  time.Duration
}

// Validator turns staged rows into canonical matches: validate, resolve
// both teams through the alias matcher or the resolver, resolve the event,
// upsert, mark the staged row. Every staged row ends processed with either
// a canonical match or an error message.
type Validator struct {
	store     Store
	resolver  Resolver
	matcher   Matcher
	batchSize int
}

func New(store Store, resolver Resolver, matcher Matcher, batchSize int) *Validator {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Validator{store: store, resolver: resolver, matcher: matcher, batchSize: batchSize}
}

func (v *Validator) Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	res := &Result{}
	log := slog.With("source", opts.Source, "dry_run", opts.DryRun)

	if !opts.DryRun {
		if err := v.store.AuthorizePipelineWrites(ctx); err != nil {
			return nil, fmt.Errorf("authorize pipeline writes: %w", err)
		}
	}

	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		batch := v.batchSize
		if opts.Limit > 0 && opts.Limit-res.Fetched < batch {
			batch = opts.Limit - res.Fetched
		}
		if batch <= 0 {
			break
		}

		rows, err := v.store.FetchUnprocessed(ctx, opts.Source, batch, offset)
		if err != nil {
			return res, err
		}
		if len(rows) == 0 {
			break
		}
		res.Fetched += len(rows)

		if opts.DryRun {
			// Nothing gets marked in a dry run; page by offset or the
			// store re-serves the same rows forever.
			offset += len(rows)
			for i := range rows {
				if err := validateRow(&rows[i]); err != nil {
					res.Errored++
				}
			}
			continue
		}
		if err := v.processBatch(ctx, log, rows, res); err != nil {
			return res, err
		}
	}

	if !opts.DryRun && res.Inserted > 0 {
		if err := v.store.RefreshViews(ctx); err != nil {
			log.Warn("view refresh failed", "error", err)
		}
	}

	res.Elapsed = time.Since(start)
	log.Info("validation finished",
		"fetched", res.Fetched, "inserted", res.Inserted, "errored", res.Errored,
		"elapsed", res.Elapsed.Round(time.Millisecond))
	return res, nil
}

// processBatch validates and resolves one batch. Row-level failures mark
// the row and continue; only storage failures abort the run.
func (v *Validator) processBatch(ctx context.Context, log *slog.Logger, rows []storage.StagedGame, res *Result) error {
	var matches []*storage.Match
	var doneKeys []string

	for i := range rows {
		row := &rows[i]
		m, err := v.buildMatch(ctx, row)
		if err != nil {
			res.Errored++
			log.Debug("staged row rejected", "key", row.SourceMatchKey, "reason", err)
			if markErr := v.store.MarkProcessedError(ctx, row.SourceMatchKey, err.Error()); markErr != nil {
				return markErr
			}
			continue
		}
		matches = append(matches, m)
		doneKeys = append(doneKeys, row.SourceMatchKey)
	}

	if len(matches) == 0 {
		return nil
	}
	if err := v.store.UpsertMatches(ctx, matches); err != nil {
		if !storage.IsUniqueViolation(err) {
			return err
		}
		// A cross-source duplicate tripped the semantic unique index.
		// Retry row by row so the offender gets marked instead of
		// wedging the whole batch behind it.
		return v.upsertIndividually(ctx, log, matches, doneKeys, res)
	}
	if err := v.store.MarkProcessed(ctx, doneKeys); err != nil {
		return err
	}
	res.Inserted += len(matches)
	return nil
}

func (v *Validator) upsertIndividually(ctx context.Context, log *slog.Logger, matches []*storage.Match, keys []string, res *Result) error {
	var done []string
	for i, m := range matches {
		err := v.store.UpsertMatches(ctx, []*storage.Match{m})
		switch {
		case err == nil:
			done = append(done, keys[i])
		case storage.IsUniqueViolation(err):
			res.Errored++
			log.Debug("duplicate canonical match", "key", keys[i], "reason", err)
			if markErr := v.store.MarkProcessedError(ctx, keys[i], "duplicate canonical match: "+err.Error()); markErr != nil {
				return markErr
			}
		default:
			return err
		}
	}
	if len(done) == 0 {
		return nil
	}
	if err := v.store.MarkProcessed(ctx, done); err != nil {
		return err
	}
	res.Inserted += len(done)
	return nil
}

func (v *Validator) buildMatch(ctx context.Context, row *storage.StagedGame) (*storage.Match, error) {
	if err := validateRow(row); err != nil {
		return nil, err
	}

	homeID, err := v.resolveSide(ctx, row, "home", row.HomeTeamName)
	if err != nil {
		return nil, err
	}
	awayID, err := v.resolveSide(ctx, row, "away", row.AwayTeamName)
	if err != nil {
		return nil, err
	}
	if homeID == awayID {
		return nil, fmt.Errorf("%w: %q / %q", ErrSameTeam, row.HomeTeamName, row.AwayTeamName)
	}

	ev, err := v.resolver.FindOrCreateEvent(ctx, row.EventID, row.EventName, "", row.SourcePlatform)
	if err != nil {
		return nil, fmt.Errorf("resolve event: %w", err)
	}

	m := &storage.Match{
		MatchDate:      row.MatchDate.Time,
		HomeTeamID:     homeID,
		AwayTeamID:     awayID,
		HomeScore:      row.HomeScore,
		AwayScore:      row.AwayScore,
		SourcePlatform: row.SourcePlatform,
		SourceMatchKey: row.SourceMatchKey,
	}
	if row.MatchTime.Valid && row.MatchTime.String != "" {
		t := row.MatchTime.String
		m.MatchTime = &t
	}
	if ev.Type == models.EventLeague {
		m.LeagueID = &ev.ID
	} else {
		m.TournamentID = &ev.ID
	}
	return m, nil
}

// resolveSide tries the alias matcher first; an unlinked name falls back to
// find-or-create and leaves an alias behind so the next run hits phase 1.
func (v *Validator) resolveSide(ctx context.Context, row *storage.StagedGame, side, rawName string) (int64, error) {
	teamID, linked, err := v.matcher.ResolveName(ctx, rawName, row.SourceMatchKey, side)
	if err != nil {
		return 0, fmt.Errorf("%s team %q: %w", side, rawName, err)
	}
	if linked {
		return teamID, nil
	}

	team, err := v.resolver.FindOrCreateTeam(ctx, rawName, row.SourcePlatform)
	if err != nil {
		return 0, fmt.Errorf("%s team %q: %w", side, rawName, err)
	}
	if err := v.store.InsertAlias(ctx, team.ID, fuzzy.Normalize(rawName), models.AliasFullStripped); err != nil {
		slog.Warn("alias emission failed", "team_id", team.ID, "error", err)
	}
	return team.ID, nil
}

func validateRow(row *storage.StagedGame) error {
	home := strings.TrimSpace(row.HomeTeamName)
	away := strings.TrimSpace(row.AwayTeamName)
	if home == "" || away == "" {
		return errors.New("validation_error: missing team name")
	}
	if strings.EqualFold(home, away) {
		return errors.New("validation_error: identical team names")
	}
	if !row.MatchDate.Valid || row.MatchDate.Time.IsZero() {
		return errors.New("validation_error: missing or unparseable match date")
	}
	return nil
}
