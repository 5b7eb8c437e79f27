package gotsport

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/MGMAppDev/soccerview/internal/pkg/models"
)

var divisionRe = regexp.MustCompile(`(?i)\b(?:([bg])\s?(20\d{2}|\d{2})|u-?(\d{1,2})\s*(boys|girls)?|(boys|girls)\s*u-?(\d{1,2}))\b`)

// parseDivision reads gender and age group out of a division label like
// "B2012 Premier", "G12 Gold" or "U14 Boys".
func parseDivision(division string) (models.Gender, string) {
	m := divisionRe.FindStringSubmatch(division)
	if m == nil {
		return models.GenderUnknown, ""
	}

	gender := models.GenderUnknown
	switch {
	case strings.EqualFold(m[1], "b") || strings.EqualFold(m[4], "boys") || strings.EqualFold(m[5], "boys"):
		gender = models.GenderMale
	case strings.EqualFold(m[1], "g") || strings.EqualFold(m[4], "girls") || strings.EqualFold(m[5], "girls"):
		gender = models.GenderFemale
	}

	ageDigits := m[3]
	if ageDigits == "" {
		ageDigits = m[6]
	}
	if ageDigits != "" {
		return gender, "U" + ageDigits
	}
	// Birth-year form: the age group depends on the season and is filled
	// downstream; report only gender here.
	return gender, ""
}

// parseDate accepts the two date shapes the API emits.
func parseDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"2006-01-02", time.RFC3339, "01/02/2006"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("unparseable date %q", raw)
}

// parseTime normalizes "3:04 PM" style times to HH:MM, "" if absent.
func parseTime(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "tbd") {
		return ""
	}
	for _, layout := range []string{"15:04", "3:04 PM", "3:04PM"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("15:04")
		}
	}
	return ""
}

// parseScore maps unplayed markers to nil, not zero.
func parseScore(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "-" || strings.EqualFold(raw, "tbd") {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

func normalizeName(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
