package htgsports

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/MGMAppDev/soccerview/internal/pkg/models"
)

// scheduleRow is what the in-page extraction script emits per table row.
type scheduleRow struct {
	MatchID   string `json:"match_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	HomeTeam  string `json:"home_team"`
	HomeScore string `json:"home_score"`
	AwayScore string `json:"away_score"`
	AwayTeam  string `json:"away_team"`
	Division  string `json:"division"`
}

func decodeEventRefs(raw string) ([]models.EventRef, error) {
	var refs []models.EventRef
	if err := json.Unmarshal([]byte(raw), &refs); err != nil {
		return nil, fmt.Errorf("decode event refs: %w", err)
	}
	return refs, nil
}

func decodeScheduleRows(ev models.EventRef, raw string) ([]models.MatchRecord, error) {
	var rows []scheduleRow
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return nil, fmt.Errorf("decode schedule rows: %w", err)
	}

	out := make([]models.MatchRecord, 0, len(rows))
	for i, row := range rows {
		date, err := parseDate(row.Date)
		if err != nil {
			continue
		}
		matchID := row.MatchID
		if matchID == "" {
			// Older events render rows without game ids; position within
			// the schedule is stable for a published event.
			matchID = fmt.Sprintf("row%d", i)
		}
		gender, ageGroup := parseDivision(row.Division)
		rec := models.MatchRecord{
			EventID:   ev.ID,
			EventName: ev.Name,
			MatchID:   matchID,
			MatchDate: date,
			MatchTime: parseTime(row.Time),
			HomeTeam:  normalizeName(row.HomeTeam),
			AwayTeam:  normalizeName(row.AwayTeam),
			HomeScore: parseScore(row.HomeScore),
			AwayScore: parseScore(row.AwayScore),
			Division:  row.Division,
			Gender:    gender,
			AgeGroup:  ageGroup,
			Raw:       row,
		}
		if rec.Completed() {
			rec.Status = models.StatusCompleted
		} else {
			rec.Status = models.StatusScheduled
		}
		out = append(out, rec)
	}
	return out, nil
}

var divisionRe = regexp.MustCompile(`(?i)\b(?:([bg])\s?-?\s?(\d{2})|u-?(\d{1,2})\s*(boys|girls)?)\b`)

func parseDivision(division string) (models.Gender, string) {
	m := divisionRe.FindStringSubmatch(division)
	if m == nil {
		return models.GenderUnknown, ""
	}
	gender := models.GenderUnknown
	switch {
	case strings.EqualFold(m[1], "b") || strings.EqualFold(m[4], "boys"):
		gender = models.GenderMale
	case strings.EqualFold(m[1], "g") || strings.EqualFold(m[4], "girls"):
		gender = models.GenderFemale
	}
	if m[3] != "" {
		return gender, "U" + m[3]
	}
	return gender, ""
}

// parseDate handles "Sat 04/12/2025", "04/12/2025" and ISO dates.
func parseDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if i := strings.LastIndexByte(raw, ' '); i >= 0 && !strings.ContainsAny(raw[:i], "0123456789") {
		raw = raw[i+1:]
	}
	for _, layout := range []string{"01/02/2006", "2006-01-02", "1/2/2006"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("unparseable date %q", raw)
}

func parseTime(raw string) string {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"3:04 PM", "3:04PM", "15:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("15:04")
		}
	}
	return ""
}

func parseScore(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "-" || raw == "--" {
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
