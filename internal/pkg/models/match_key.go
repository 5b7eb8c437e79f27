package models

import (
	"fmt"
	"strings"
)

// MatchKey builds the source-unique staging key from an adapter's template.
// Templates use {source}, {event_id} and {match_id} placeholders, e.g.
// "{source}-{event_id}-{match_id}".
func MatchKey(format, source, eventID, matchID string) string {
	r := strings.NewReplacer(
		"{source}", source,
		"{event_id}", normalizeKeyPart(eventID),
		"{match_id}", normalizeKeyPart(matchID),
	)
	return r.Replace(format)
}

// DefaultKeyFormat is the template used by every current adapter.
const DefaultKeyFormat = "{source}-{event_id}-{match_id}"

// ParseMatchKey inverts a key built with DefaultKeyFormat. The inner
// fields never contain '-' because normalizeKeyPart maps it to '_'.
func ParseMatchKey(key string) (source, eventID, matchID string, err error) {
	parts := strings.SplitN(key, "-", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", fmt.Errorf("malformed match key %q", key)
	}
	return parts[0], parts[1], parts[2], nil
}

func normalizeKeyPart(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, "|", "_")
	// '-' is the key separator; an id carrying one would shift the
	// fields on parse.
	s = strings.ReplaceAll(s, "-", "_")
	return s
}
