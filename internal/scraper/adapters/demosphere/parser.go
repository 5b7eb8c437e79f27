package demosphere

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/MGMAppDev/soccerview/internal/pkg/models"
)

// Demosphere serves server-rendered tables; rows are pulled with regular
// expressions rather than a DOM parser since the markup is flat and stable.
var (
	rowRe  = regexp.MustCompile(`(?s)<tr[^>]*>(.*?)</tr>`)
	cellRe = regexp.MustCompile(`(?s)<td[^>]*>(.*?)</td>`)
	tagRe  = regexp.MustCompile(`<[^>]+>`)
	gameRe = regexp.MustCompile(`data-game-id="(\d+)"`)
)

func cells(row string) []string {
	var out []string
	for _, m := range cellRe.FindAllStringSubmatch(row, -1) {
		text := tagRe.ReplaceAllString(m[1], " ")
		out = append(out, strings.Join(strings.Fields(html.UnescapeString(text)), " "))
	}
	return out
}

// parseSchedule reads the schedule table. Expected cell order:
// date, time, home, score ("2 - 1" or "-"), away, division.
func parseSchedule(ev models.EventRef, page string) ([]models.MatchRecord, error) {
	var out []models.MatchRecord
	for _, rm := range rowRe.FindAllStringSubmatch(page, -1) {
		c := cells(rm[1])
		if len(c) < 5 {
			continue
		}
		date, err := parseDate(c[0])
		if err != nil {
			continue
		}
		home, away := normalizeName(c[2]), normalizeName(c[4])
		if home == "" || away == "" {
			continue
		}
		homeScore, awayScore := parseScorePair(c[3])

		matchID := ""
		if gm := gameRe.FindStringSubmatch(rm[0]); gm != nil {
			matchID = gm[1]
		}
		if matchID == "" {
			matchID = syntheticID(date, home, away)
		}

		division := ""
		if len(c) > 5 {
			division = c[5]
		}

		rec := models.MatchRecord{
			EventID:   ev.ID,
			EventName: ev.Name,
			MatchID:   matchID,
			MatchDate: date,
			MatchTime: parseTime(c[1]),
			HomeTeam:  home,
			AwayTeam:  away,
			HomeScore: homeScore,
			AwayScore: awayScore,
			Division:  division,
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

// parseStandings reads the standings table. Expected cell order:
// team, played, wins, losses, draws, points.
func parseStandings(ev models.EventRef, page string) ([]models.StandingsRow, error) {
	var out []models.StandingsRow
	for _, rm := range rowRe.FindAllStringSubmatch(page, -1) {
		c := cells(rm[1])
		if len(c) < 6 {
			continue
		}
		name := normalizeName(c[0])
		if name == "" {
			continue
		}
		played, err := strconv.Atoi(c[1])
		if err != nil {
			// Header row.
			continue
		}
		row := models.StandingsRow{
			EventID:  ev.ID,
			TeamName: name,
			Played:   played,
		}
		row.Wins, _ = strconv.Atoi(c[2])
		row.Losses, _ = strconv.Atoi(c[3])
		row.Draws, _ = strconv.Atoi(c[4])
		row.Points, _ = strconv.Atoi(c[5])
		out = append(out, row)
	}
	return out, nil
}

var scorePairRe = regexp.MustCompile(`^(\d+)\s*-\s*(\d+)$`)

// parseScorePair splits "2 - 1"; anything else means unplayed.
func parseScorePair(raw string) (*int, *int) {
	m := scorePairRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return nil, nil
	}
	h, _ := strconv.Atoi(m[1])
	a, _ := strconv.Atoi(m[2])
	return &h, &a
}

func parseScore(raw string) *int {
	raw = strings.TrimSpace(raw)
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

func parseDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"Jan 2, 2006", "01/02/2006", "2006-01-02", "1/2/2006"} {
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

func normalizeName(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// syntheticID keys rows on unid'd legacy pages; stable for a published
// schedule.
func syntheticID(date, home, away string) string {
	s := strings.ToLower(date + "_" + home + "_" + away)
	return strings.ReplaceAll(s, " ", "_")
}
