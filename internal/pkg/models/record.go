package models

import (
	"encoding/json"
	"time"
)

// MatchRecord is the normalized match a source adapter emits to the engine.
// Scores stay nil for matches that have not been played; nil is not 0-0.
type MatchRecord struct {
	EventID    string      `json:"event_id"`
	EventName  string      `json:"event_name"`
	MatchID    string      `json:"match_id"`
	MatchDate  string      `json:"match_date"` // ISO date YYYY-MM-DD
	MatchTime  string      `json:"match_time,omitempty"`
	HomeTeam   string      `json:"home_team"`
	AwayTeam   string      `json:"away_team"`
	HomeScore  *int        `json:"home_score,omitempty"`
	AwayScore  *int        `json:"away_score,omitempty"`
	HomeTeamID string      `json:"home_team_id,omitempty"`
	AwayTeamID string      `json:"away_team_id,omitempty"`
	Status     MatchStatus `json:"status"`
	Location   string      `json:"location,omitempty"`
	Division   string      `json:"division,omitempty"`
	Gender     Gender      `json:"gender,omitempty"`
	AgeGroup   string      `json:"age_group,omitempty"`
	Raw        any         `json:"raw,omitempty"` // opaque provenance payload
}

// Date parses MatchDate; zero time when unparseable.
func (r *MatchRecord) Date() time.Time {
	t, err := time.Parse("2006-01-02", r.MatchDate)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Completed reports whether both scores are present.
func (r *MatchRecord) Completed() bool {
	return r.HomeScore != nil && r.AwayScore != nil
}

// RawJSON marshals the full record for the staging raw_data column.
func (r *MatchRecord) RawJSON() []byte {
	b, err := json.Marshal(r)
	if err != nil {
		return []byte("{}")
	}
	return b
}

// EventRef identifies one scrapeable event of a source.
type EventRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type,omitempty"` // "league"/"tournament" hint, may be empty
	State string `json:"state,omitempty"`
	URL   string `json:"url,omitempty"`
}

// StandingsRow is one row of a scraped standings table.
type StandingsRow struct {
	EventID  string `json:"event_id"`
	TeamName string `json:"team_name"`
	Played   int    `json:"played"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
	Draws    int    `json:"draws"`
	Points   int    `json:"points"`
	Division string `json:"division,omitempty"`
}
