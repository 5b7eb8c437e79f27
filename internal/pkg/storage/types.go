package storage

import (
	"database/sql"
	"time"

	"github.com/MGMAppDev/soccerview/internal/pkg/models"
)

// Team is a canonical team row.
type Team struct {
	ID               int64
	CanonicalName    string
	DisplayName      string
	BirthYear        *int
	Gender           models.Gender
	AgeGroup         string
	State            string
	ClubID           *int64
	EloRating        float64
	Wins             int
	Losses           int
	Draws            int
	MatchesPlayed    int
	LastMatchDate    *time.Time
	DataQualityScore float64
	BirthYearSource  models.Provenance
	GenderSource     models.Provenance
}

// Match is a canonical match row.
type Match struct {
	ID             int64
	MatchDate      time.Time
	MatchTime      *string
	HomeTeamID     int64
	AwayTeamID     int64
	HomeScore      *int
	AwayScore      *int
	LeagueID       *int64
	TournamentID   *int64
	SourcePlatform string
	SourceMatchKey string
	UpdatedAt      time.Time
}

// Completed reports whether both scores are present.
func (m *Match) Completed() bool {
	return m.HomeScore != nil && m.AwayScore != nil
}

// Event is either a league or tournament row; Type tells which table.
type Event struct {
	ID            int64
	Type          models.EventType
	Name          string
	SourceEventID string
	State         string
	SeasonID      int64
}

// StagedGame is one raw staging row awaiting validation.
type StagedGame struct {
	SourceMatchKey string
	MatchDate      sql.NullTime
	MatchTime      sql.NullString
	HomeTeamName   string
	AwayTeamName   string
	HomeScore      *int
	AwayScore      *int
	EventName      string
	EventID        string
	SourcePlatform string
	RawData        []byte
	ScrapedAt      time.Time
}

// Alias is one team-name alias row.
type Alias struct {
	ID        int64
	TeamID    int64
	AliasName string
	Source    models.AliasSource
}

// FuzzyCandidate is a trigram candidate with its DB-computed similarity.
type FuzzyCandidate struct {
	TeamID     int64
	AliasName  string
	Similarity float64
	BirthYear  *int
	Gender     models.Gender
	State      string
}

// QueueEntry is one ambiguous-match queue row.
type QueueEntry struct {
	ID             int64
	MatchKey       string
	FieldType      string // "home" or "away"
	RawName        string
	Candidate1Team int64
	Candidate1Sim  float64
	Candidate2Team int64
	Candidate2Sim  float64
	Status         models.QueueStatus
}

// Season row.
type Season struct {
	ID        int64
	Year      int
	StartDate time.Time
	EndDate   time.Time
}

// RankSnapshot is one per-team per-day rank history row.
type RankSnapshot struct {
	TeamID       int64
	SnapshotDate time.Time
	EloRating    float64
	NationalRank *int
	StateRank    *int
}
