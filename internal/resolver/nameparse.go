package resolver

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/MGMAppDev/soccerview/internal/pkg/models"
)

// TeamMeta is everything the parser can pull out of a raw team name.
type TeamMeta struct {
	CanonicalName   string
	BirthYear       *int
	Gender          models.Gender
	AgeGroup        string
	BirthYearSource models.Provenance
	GenderSource    models.Provenance
}

var (
	fourDigitYearRe = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	// B14 / G09 and the flipped 14B / 09G forms.
	genderCodeRe = regexp.MustCompile(`(?i)\b([bg])(\d{2})\b|\b(\d{2})([bg])\b`)
	ageGroupRe   = regexp.MustCompile(`(?i)\bu-?(\d{1,2})\b`)
	boysRe       = regexp.MustCompile(`(?i)\bboys\b`)
	girlsRe      = regexp.MustCompile(`(?i)\bgirls\b`)
)

// ParseTeamName extracts canonical name, birth year, gender and age group
// from a raw team name. Birth-year rules are tried in priority order:
// 4-digit year, 2-digit year next to a B/G code, U<n> age group, unknown.
func ParseTeamName(raw string, seasonYear int) TeamMeta {
	meta := TeamMeta{
		CanonicalName:   CanonicalName(raw),
		Gender:          models.GenderUnknown,
		BirthYearSource: models.ProvenanceUnknown,
		GenderSource:    models.ProvenanceUnknown,
	}

	// Gender words take priority over letter codes.
	switch {
	case boysRe.MatchString(raw):
		meta.Gender = models.GenderMale
		meta.GenderSource = models.ParsedAgeGroup
	case girlsRe.MatchString(raw):
		meta.Gender = models.GenderFemale
		meta.GenderSource = models.ParsedAgeGroup
	}

	// Rule 1: explicit 4-digit year within the playable range.
	if m := fourDigitYearRe.FindString(raw); m != "" {
		if year, err := strconv.Atoi(m); err == nil && models.BirthYearInRange(seasonYear, year) {
			meta.BirthYear = &year
			meta.BirthYearSource = models.Parsed4Digit
		}
	}

	// Rule 2: 2-digit year adjacent to a B/G gender code (B14, 09G).
	if gm := genderCodeRe.FindStringSubmatch(raw); gm != nil {
		letter, digits := gm[1], gm[2]
		if letter == "" {
			letter, digits = gm[4], gm[3]
		}
		if meta.Gender == models.GenderUnknown {
			if strings.EqualFold(letter, "b") {
				meta.Gender = models.GenderMale
			} else {
				meta.Gender = models.GenderFemale
			}
			meta.GenderSource = models.Parsed2Digit
		}
		if meta.BirthYear == nil {
			if n, err := strconv.Atoi(digits); err == nil {
				year := 2000 + n
				if models.BirthYearInRange(seasonYear, year) {
					meta.BirthYear = &year
					meta.BirthYearSource = models.Parsed2Digit
				}
			}
		}
	}

	// Rule 3: U<n> age group, back-computed against the season year.
	if meta.BirthYear == nil {
		if am := ageGroupRe.FindStringSubmatch(raw); am != nil {
			if n, err := strconv.Atoi(am[1]); err == nil && n >= 7 && n <= 19 {
				year := models.BirthYearFromAge(seasonYear, n)
				meta.BirthYear = &year
				meta.BirthYearSource = models.ParsedAgeGroup
			}
		}
	}

	if meta.BirthYear != nil {
		meta.AgeGroup = models.AgeGroup(seasonYear, *meta.BirthYear)
	}
	return meta
}

// CanonicalName lowercases, trims and collapses whitespace.
func CanonicalName(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	return strings.Join(strings.Fields(s), " ")
}

// stopTokens never count as identifying key parts: club-type suffixes, age
// labels and gender words appear in nearly every youth team name.
var stopTokens = map[string]bool{
	"fc": true, "sc": true, "cf": true, "ac": true, "afc": true,
	"soccer": true, "club": true, "academy": true, "united": true,
	"boys": true, "girls": true,
}

var numericTokenRe = regexp.MustCompile(`^\d+$`)

func isStopToken(tok string) bool {
	if stopTokens[tok] {
		return true
	}
	if ageGroupRe.MatchString(tok) {
		return true
	}
	if genderCodeRe.MatchString(tok) {
		return true
	}
	return false
}

// KeyParts extracts identifying tokens (length >= 2, stop tokens excluded)
// from a canonical name. Fewer than two parts means the name is too generic
// for a contains-all lookup.
func KeyParts(canonical string) []string {
	var parts []string
	for _, tok := range strings.Fields(canonical) {
		if len(tok) < 2 || isStopToken(tok) {
			continue
		}
		parts = append(parts, tok)
	}
	return parts
}

// ScoreCandidate scores a level-2 candidate against the parsed input:
// shared token ratio, plus 0.2 when the birth-year token matches, plus
// 0.2 weighted by the matching-numeric-token ratio.
func ScoreCandidate(inputCanonical string, inputYear *int, candidateCanonical string, candidateYear *int) float64 {
	inTokens := strings.Fields(inputCanonical)
	candTokens := strings.Fields(candidateCanonical)
	if len(inTokens) == 0 || len(candTokens) == 0 {
		return 0
	}

	candSet := make(map[string]bool, len(candTokens))
	for _, t := range candTokens {
		candSet[t] = true
	}

	shared, numericTotal, numericShared := 0, 0, 0
	for _, t := range inTokens {
		if candSet[t] {
			shared++
		}
		if numericTokenRe.MatchString(t) {
			numericTotal++
			if candSet[t] {
				numericShared++
			}
		}
	}

	score := float64(shared) / float64(len(inTokens))
	if inputYear != nil && candidateYear != nil && *inputYear == *candidateYear {
		score += 0.2
	}
	if numericTotal > 0 {
		score += 0.2 * float64(numericShared) / float64(numericTotal)
	}
	return score
}

// ClubName returns the leading tokens of a canonical name, up to the first
// year, age or gender token. Those tokens name the club; the rest names the
// squad. Empty when the name starts with a non-club token.
func ClubName(canonical string) string {
	var parts []string
	for _, tok := range strings.Fields(canonical) {
		if numericTokenRe.MatchString(tok) || ageGroupRe.MatchString(tok) ||
			genderCodeRe.MatchString(tok) || boysRe.MatchString(tok) || girlsRe.MatchString(tok) {
			break
		}
		parts = append(parts, tok)
	}
	return strings.Join(parts, " ")
}

// DataQualityScore summarizes parse confidence for a new team row.
func DataQualityScore(meta TeamMeta, state string) float64 {
	score := 0.0
	switch meta.BirthYearSource {
	case models.Parsed4Digit:
		score += 0.4
	case models.Parsed2Digit:
		score += 0.3
	case models.ParsedAgeGroup:
		score += 0.2
	}
	if meta.Gender != models.GenderUnknown {
		score += 0.3
	}
	if state != "" {
		score += 0.3
	}
	return score
}
