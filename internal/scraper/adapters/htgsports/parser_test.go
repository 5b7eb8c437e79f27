package htgsports

import (
	"testing"

	"github.com/MGMAppDev/soccerview/internal/pkg/models"
)

func TestDecodeScheduleRows(t *testing.T) {
	ev := models.EventRef{ID: "991", Name: "Heartland Premier", State: "KS"}
	raw := `[
		{"match_id":"70012","date":"Sat 04/12/2025","time":"9:00 AM",
		 "home_team":"Sporting BV 2012 Elite","home_score":"3","away_score":"1",
		 "away_team":"Rush 2012","division":"B13 Division 1"},
		{"match_id":"","date":"Sun 04/13/2025","time":"TBD",
		 "home_team":"KC Fusion G11","home_score":"-","away_score":"-",
		 "away_team":"Legends G11 White","division":"G11"}
	]`

	recs, err := decodeScheduleRows(ev, raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("decoded %d records, want 2", len(recs))
	}

	r := recs[0]
	if r.MatchID != "70012" || r.MatchDate != "2025-04-12" || r.MatchTime != "09:00" {
		t.Errorf("first record = %q %q %q", r.MatchID, r.MatchDate, r.MatchTime)
	}
	if r.HomeScore == nil || *r.HomeScore != 3 || r.Status != models.StatusCompleted {
		t.Errorf("first record scores/status = %v %s", r.HomeScore, r.Status)
	}
	if r.Gender != models.GenderMale {
		t.Errorf("first record gender = %s", r.Gender)
	}

	r = recs[1]
	if r.MatchID != "row1" {
		t.Errorf("fallback id = %q, want row1", r.MatchID)
	}
	if r.HomeScore != nil || r.AwayScore != nil || r.Status != models.StatusScheduled {
		t.Errorf("unplayed row = %v %v %s", r.HomeScore, r.AwayScore, r.Status)
	}
	if r.Gender != models.GenderFemale {
		t.Errorf("second record gender = %s", r.Gender)
	}
}

func TestDecodeScheduleRowsSkipsBadDates(t *testing.T) {
	ev := models.EventRef{ID: "991"}
	raw := `[{"match_id":"1","date":"unknown","home_team":"A","away_team":"B"}]`
	recs, err := decodeScheduleRows(ev, raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 0 {
		t.Errorf("decoded %d records, want 0", len(recs))
	}
}

func TestDecodeEventRefs(t *testing.T) {
	refs, err := decodeEventRefs(`[{"id":"991","name":"Heartland Premier"}]`)
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 1 || refs[0].ID != "991" {
		t.Errorf("refs = %+v", refs)
	}
}

func TestParseDateShapes(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Sat 04/12/2025", "2025-04-12"},
		{"04/12/2025", "2025-04-12"},
		{"4/5/2025", "2025-04-05"},
		{"2025-04-12", "2025-04-12"},
	}
	for _, tt := range tests {
		got, err := parseDate(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("parseDate(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestParseDivision(t *testing.T) {
	tests := []struct {
		in         string
		wantGender models.Gender
		wantAge    string
	}{
		{"B13 Division 1", models.GenderMale, ""},
		{"G11", models.GenderFemale, ""},
		{"U12 Boys Gold", models.GenderMale, "U12"},
		{"Premier", models.GenderUnknown, ""},
	}
	for _, tt := range tests {
		gender, age := parseDivision(tt.in)
		if gender != tt.wantGender || age != tt.wantAge {
			t.Errorf("parseDivision(%q) = (%s, %q), want (%s, %q)",
				tt.in, gender, age, tt.wantGender, tt.wantAge)
		}
	}
}
