package models

import "testing"

func TestMatchKeyRoundTrip(t *testing.T) {
	tests := []struct {
		source, eventID, matchID string
		wantEvent, wantMatch     string
	}{
		{"gotsport", "38221", "90412377", "38221", "90412377"},
		{"htgsports", "4411", "g-2231", "4411", "g_2231"},
		{"demosphere", "spring2026", "12 044", "spring2026", "12 044"},
		// Hyphenated event ids must not shift the fields.
		{"demosphere", "spring-2026-u12", "778", "spring_2026_u12", "778"},
	}
	for _, tt := range tests {
		key := MatchKey(DefaultKeyFormat, tt.source, tt.eventID, tt.matchID)
		src, ev, m, err := ParseMatchKey(key)
		if err != nil {
			t.Fatalf("ParseMatchKey(%q): %v", key, err)
		}
		if src != tt.source || ev != tt.wantEvent || m != tt.wantMatch {
			t.Errorf("ParseMatchKey(%q) = (%q, %q, %q), want (%q, %q, %q)",
				key, src, ev, m, tt.source, tt.wantEvent, tt.wantMatch)
		}
	}
}

func TestMatchKeyNormalizesSeparators(t *testing.T) {
	key := MatchKey(DefaultKeyFormat, "gotsport", "38221", "a|b/c-d")
	if key != "gotsport-38221-a_b_c_d" {
		t.Errorf("MatchKey = %q", key)
	}
}

func TestParseMatchKeyRejectsMalformed(t *testing.T) {
	for _, bad := range []string{"", "gotsport", "gotsport-", "gotsport-38221-", "-x-y"} {
		if _, _, _, err := ParseMatchKey(bad); err == nil {
			t.Errorf("ParseMatchKey(%q) should fail", bad)
		}
	}
}
