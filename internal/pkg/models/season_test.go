package models

import (
	"testing"
	"time"
)

func TestSeasonYear(t *testing.T) {
	tests := []struct {
		date string
		want int
	}{
		{"2026-07-31", 2026},
		{"2026-08-01", 2027},
		{"2026-12-15", 2027},
		{"2027-01-10", 2027},
	}
	for _, tt := range tests {
		d, _ := time.Parse("2006-01-02", tt.date)
		if got := SeasonYear(d); got != tt.want {
			t.Errorf("SeasonYear(%s) = %d, want %d", tt.date, got, tt.want)
		}
	}
}

func TestAgeGroup(t *testing.T) {
	tests := []struct {
		season, birth int
		want          string
	}{
		{2026, 2012, "U14"},
		{2026, 2019, "U7"},
		{2026, 2007, "U19"},
		{2026, 2020, ""}, // too young
		{2026, 2006, ""}, // too old
		{2026, 0, ""},
	}
	for _, tt := range tests {
		if got := AgeGroup(tt.season, tt.birth); got != tt.want {
			t.Errorf("AgeGroup(%d, %d) = %q, want %q", tt.season, tt.birth, got, tt.want)
		}
	}
}

func TestAgeGroupBirthYearRoundTrip(t *testing.T) {
	for birth := 2007; birth <= 2019; birth++ {
		age := 2026 - birth
		if got := BirthYearFromAge(2026, age); got != birth {
			t.Errorf("BirthYearFromAge(2026, %d) = %d, want %d", age, got, birth)
		}
		if !BirthYearInRange(2026, birth) {
			t.Errorf("BirthYearInRange(2026, %d) = false", birth)
		}
	}
}
