package models

// Gender of a team as parsed from its name or division string.
type Gender string

const (
	GenderMale    Gender = "Male"
	GenderFemale  Gender = "Female"
	GenderUnknown Gender = "Unknown"
)

// MatchStatus as reported by a source.
type MatchStatus string

const (
	StatusScheduled  MatchStatus = "scheduled"
	StatusInProgress MatchStatus = "in_progress"
	StatusCompleted  MatchStatus = "completed"
)

// EventType distinguishes the two canonical event kinds.
type EventType string

const (
	EventLeague     EventType = "league"
	EventTournament EventType = "tournament"
)

// Provenance records how a parsed team attribute was obtained.
type Provenance string

const (
	Parsed4Digit       Provenance = "parsed_4digit"
	Parsed2Digit       Provenance = "parsed_2digit"
	ParsedAgeGroup     Provenance = "parsed_age_group"
	InferredFromSource Provenance = "inferred_from_source"
	ProvenanceUnknown  Provenance = "unknown"
)

// AliasSource records which normalization produced an alias row.
type AliasSource string

const (
	AliasFullStripped   AliasSource = "full_stripped"
	AliasShortForm      AliasSource = "short_form"
	AliasPunctNorm      AliasSource = "punct_norm"
	AliasColorRemoved   AliasSource = "color_removed"
	AliasYearNormalized AliasSource = "year_normalized"
	AliasFuzzyLearned   AliasSource = "fuzzy_learned"
	AliasManual         AliasSource = "manual"
)

// QueueStatus of an ambiguous-match queue entry.
type QueueStatus string

const (
	QueuePending   QueueStatus = "pending"
	QueueResolved  QueueStatus = "resolved"
	QueueDismissed QueueStatus = "dismissed"
)
