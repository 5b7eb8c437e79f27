package fuzzy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hbollon/go-edlib"

	"github.com/MGMAppDev/soccerview/internal/pkg/config"
	"github.com/MGMAppDev/soccerview/internal/pkg/models"
	"github.com/MGMAppDev/soccerview/internal/pkg/storage"
)

// candidateLimit caps the phase-3 trigram candidate set.
const candidateLimit = 10

// jaroWinklerConfirm is the second-opinion floor for aggressive links. The
// trigram threshold alone is too loose at 0.50.
const jaroWinklerConfirm = 0.80

// ErrAmbiguous reports that a name was diverted to the review queue. The
// caller must not create a team for it.
var ErrAmbiguous = errors.New("ambiguous team name")

// Store is the slice of the storage layer the matcher uses.
type Store interface {
	AliasLookup(ctx context.Context, normalizedName string) (int64, error)
	FuzzyAliasCandidates(ctx context.Context, normalizedName string, threshold float64, limit int, stateFilter string) ([]storage.FuzzyCandidate, error)
	InsertAlias(ctx context.Context, teamID int64, aliasName string, source models.AliasSource) error
	EnqueueAmbiguous(ctx context.Context, e *storage.QueueEntry) error
}

// Matcher resolves raw team names against the alias table in three phases:
// exact, normalized-variant, trigram. Links learned in phase 3 are written
// back as fuzzy_learned aliases so the next identical input stops at phase 1.
type Matcher struct {
	store Store
	cfg   config.MatchingConfig
}

func NewMatcher(store Store, cfg config.MatchingConfig) *Matcher {
	return &Matcher{store: store, cfg: cfg}
}

// ResolveName runs the three phases for one raw name. Returns the linked
// team id, or (0, false, nil) when the name stayed unlinked, including the
// ambiguous case where a queue entry was written instead. matchKey and
// fieldType carry provenance into the queue entry.
func (m *Matcher) ResolveName(ctx context.Context, rawName, matchKey, fieldType string) (int64, bool, error) {
	normalized := Normalize(rawName)
	if normalized == "" {
		return 0, false, nil
	}

	// Phase 1: exact alias.
	teamID, err := m.store.AliasLookup(ctx, normalized)
	if err == nil {
		return teamID, true, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return 0, false, fmt.Errorf("phase 1 %q: %w", rawName, err)
	}

	// Phase 2: normalized variants. A hit teaches the original spelling
	// under the variant's source so the next occurrence stops at phase 1.
	for _, v := range Variants(normalized) {
		teamID, err = m.store.AliasLookup(ctx, v.Name)
		if err == nil {
			if insErr := m.store.InsertAlias(ctx, teamID, normalized, v.Source); insErr != nil {
				slog.Warn("variant alias emission failed", "name", normalized, "error", insErr)
			}
			return teamID, true, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return 0, false, fmt.Errorf("phase 2 %q: %w", rawName, err)
		}
	}

	// Phase 3: trigram candidates plus guards and the ambiguity gap.
	candidates, err := m.store.FuzzyAliasCandidates(ctx, normalized, m.cfg.SimilarityThreshold, candidateLimit, "")
	if err != nil {
		return 0, false, fmt.Errorf("phase 3 %q: %w", rawName, err)
	}

	switch d := Decide(normalized, candidates, m.cfg.AmbiguityGap); d.Outcome {
	case Link:
		if err := m.learn(ctx, d.Winner.TeamID, normalized); err != nil {
			return 0, false, err
		}
		slog.Debug("fuzzy link", "name", normalized, "team_id", d.Winner.TeamID, "sim", d.Winner.Similarity)
		return d.Winner.TeamID, true, nil

	case Ambiguous:
		entry := &storage.QueueEntry{
			MatchKey:       matchKey,
			FieldType:      fieldType,
			RawName:        rawName,
			Candidate1Team: d.Winner.TeamID,
			Candidate1Sim:  d.Winner.Similarity,
			Candidate2Team: d.RunnerUp.TeamID,
			Candidate2Sim:  d.RunnerUp.Similarity,
		}
		if err := m.store.EnqueueAmbiguous(ctx, entry); err != nil {
			return 0, false, err
		}
		slog.Info("ambiguous name queued", "name", normalized,
			"sim_1", d.Winner.Similarity, "sim_2", d.RunnerUp.Similarity)
		return 0, false, ErrAmbiguous
	}
	return 0, false, nil
}

// ResolveAggressive retries one still-unlinked name at the lower threshold
// with a state filter, requiring a Jaro-Winkler confirmation before linking.
// The caller bounds how many names get this treatment.
func (m *Matcher) ResolveAggressive(ctx context.Context, rawName, state string) (int64, bool, error) {
	normalized := Normalize(rawName)
	if normalized == "" {
		return 0, false, nil
	}

	candidates, err := m.store.FuzzyAliasCandidates(ctx, normalized, m.cfg.AggressiveThreshold, candidateLimit, state)
	if err != nil {
		return 0, false, fmt.Errorf("aggressive %q: %w", rawName, err)
	}

	d := Decide(normalized, candidates, m.cfg.AmbiguityGap)
	if d.Outcome != Link {
		return 0, false, nil
	}
	jw, err := edlib.StringsSimilarity(normalized, d.Winner.AliasName, edlib.JaroWinkler)
	if err != nil || float64(jw) < jaroWinklerConfirm {
		return 0, false, nil
	}
	if err := m.learn(ctx, d.Winner.TeamID, normalized); err != nil {
		return 0, false, err
	}
	slog.Info("aggressive fuzzy link", "name", normalized,
		"team_id", d.Winner.TeamID, "sim", d.Winner.Similarity, "jw", jw)
	return d.Winner.TeamID, true, nil
}

func (m *Matcher) learn(ctx context.Context, teamID int64, normalized string) error {
	if err := m.store.InsertAlias(ctx, teamID, normalized, models.AliasFuzzyLearned); err != nil {
		return fmt.Errorf("learn alias %q: %w", normalized, err)
	}
	return nil
}
