package fuzzy

import (
	"regexp"
	"strings"

	"github.com/MGMAppDev/soccerview/internal/pkg/models"
)

var (
	punctRe       = regexp.MustCompile(`[.'"-]`)
	parenSuffixRe = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
	yearTokenRe   = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	genderWordRe  = regexp.MustCompile(`(?i)\b(boys|girls)\b`)
	genderCodeRe  = regexp.MustCompile(`(?i)\b([bg])\d{2}\b|\b\d{2}([bg])\b`)
)

// colorTokens are uniform colors that sources append inconsistently to the
// same team ("Rush Blue" vs "Rush").
var colorTokens = map[string]bool{
	"red": true, "blue": true, "black": true, "white": true, "gold": true,
	"silver": true, "green": true, "orange": true, "navy": true, "royal": true,
	"gray": true, "grey": true, "purple": true, "yellow": true, "maroon": true,
	"teal": true, "pink": true,
}

// Normalize lowercases, trims and collapses whitespace. Every alias and
// every lookup key goes through this, so normalization is idempotent.
func Normalize(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(raw))), " ")
}

// Variant is one phase-2 rewrite of the input name.
type Variant struct {
	Name   string
	Source models.AliasSource
}

// Variants returns the phase-2 transformations of the normalized input, in
// application order, excluding rewrites that change nothing.
func Variants(normalized string) []Variant {
	var out []Variant
	seen := map[string]bool{normalized: true}

	add := func(name string, src models.AliasSource) {
		name = Normalize(name)
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, Variant{Name: name, Source: src})
	}

	add(punctRe.ReplaceAllString(normalized, " "), models.AliasPunctNorm)
	add(stripColors(normalized), models.AliasColorRemoved)
	add(parenSuffixRe.ReplaceAllString(normalized, ""), models.AliasFullStripped)
	return out
}

func stripColors(normalized string) string {
	fields := strings.Fields(normalized)
	kept := fields[:0]
	for _, f := range fields {
		if colorTokens[f] {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

// YearToken pulls the first 4-digit year token, if any.
func YearToken(name string) *int {
	m := yearTokenRe.FindString(name)
	if m == "" {
		return nil
	}
	year := int(m[0]-'0')*1000 + int(m[1]-'0')*100 + int(m[2]-'0')*10 + int(m[3]-'0')
	return &year
}

// GenderToken reads a gender indicator (boys/girls word or B<nn>/G<nn>
// code) out of a name.
func GenderToken(name string) models.Gender {
	if m := genderWordRe.FindString(name); m != "" {
		if strings.EqualFold(m, "boys") {
			return models.GenderMale
		}
		return models.GenderFemale
	}
	if m := genderCodeRe.FindStringSubmatch(name); m != nil {
		letter := m[1]
		if letter == "" {
			letter = m[2]
		}
		if strings.EqualFold(letter, "b") {
			return models.GenderMale
		}
		return models.GenderFemale
	}
	return models.GenderUnknown
}
