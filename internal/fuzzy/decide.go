package fuzzy

import (
	"sort"

	"github.com/MGMAppDev/soccerview/internal/pkg/models"
	"github.com/MGMAppDev/soccerview/internal/pkg/storage"
)

// Outcome of a fuzzy decision over a candidate set.
type Outcome int

const (
	// NoMatch means no candidate survived the guards.
	NoMatch Outcome = iota
	// Link means the top candidate won cleanly.
	Link
	// Ambiguous means the top two were too close to call.
	Ambiguous
)

// Decision is the result of Decide. Winner is set for Link and Ambiguous;
// RunnerUp only for Ambiguous.
type Decision struct {
	Outcome  Outcome
	Winner   storage.FuzzyCandidate
	RunnerUp storage.FuzzyCandidate
}

// Decide applies the year guard, the gender guard and the top-2 ambiguity
// gap to a candidate set. Candidates need not be pre-sorted. Pure function;
// all I/O stays in the Matcher.
func Decide(input string, candidates []storage.FuzzyCandidate, ambiguityGap float64) Decision {
	inputYear := YearToken(input)
	inputGender := GenderToken(input)

	kept := make([]storage.FuzzyCandidate, 0, len(candidates))
	for _, c := range candidates {
		if yearConflicts(inputYear, c) {
			continue
		}
		if genderConflicts(inputGender, c) {
			continue
		}
		kept = append(kept, c)
	}
	if len(kept) == 0 {
		return Decision{Outcome: NoMatch}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Similarity > kept[j].Similarity
	})

	if len(kept) >= 2 && kept[0].Similarity-kept[1].Similarity < ambiguityGap {
		return Decision{Outcome: Ambiguous, Winner: kept[0], RunnerUp: kept[1]}
	}
	return Decision{Outcome: Link, Winner: kept[0]}
}

// yearConflicts reports whether the candidate's year contradicts the
// input's. The candidate year comes from its alias text when present, else
// from the team row. Missing on either side is never a conflict.
func yearConflicts(inputYear *int, c storage.FuzzyCandidate) bool {
	if inputYear == nil {
		return false
	}
	candYear := YearToken(c.AliasName)
	if candYear == nil {
		candYear = c.BirthYear
	}
	return candYear != nil && *candYear != *inputYear
}

func genderConflicts(inputGender models.Gender, c storage.FuzzyCandidate) bool {
	if inputGender == models.GenderUnknown {
		return false
	}
	candGender := GenderToken(c.AliasName)
	if candGender == models.GenderUnknown {
		candGender = c.Gender
	}
	return candGender != models.GenderUnknown && candGender != inputGender
}
