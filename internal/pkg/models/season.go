package models

import (
	"fmt"
	"time"
)

// SeasonYear returns the soccer season year for a point in time.
// Youth seasons roll over in August: from August onward the season carries
// the next calendar year's label.
func SeasonYear(t time.Time) int {
	if t.Month() >= time.August {
		return t.Year() + 1
	}
	return t.Year()
}

// AgeGroup derives the "U<n>" label from the season year and a birth year.
// Empty when the birth year is unknown or out of the playable range.
func AgeGroup(seasonYear, birthYear int) string {
	if birthYear == 0 {
		return ""
	}
	n := seasonYear - birthYear
	if n < 7 || n > 19 {
		return ""
	}
	return fmt.Sprintf("U%d", n)
}

// BirthYearFromAge back-computes the birth year encoded by a U<n> age group.
func BirthYearFromAge(seasonYear, age int) int {
	return seasonYear - age
}

// BirthYearInRange reports whether a 4-digit year is a plausible birth year
// for the given season (players aged 7 through 19).
func BirthYearInRange(seasonYear, year int) bool {
	return year >= seasonYear-19 && year <= seasonYear-7
}
