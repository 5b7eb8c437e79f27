package maintenance

import (
	"context"
	"strconv"
	"testing"

	"github.com/MGMAppDev/soccerview/internal/pkg/models"
	"github.com/MGMAppDev/soccerview/internal/pkg/storage"
)

type merge struct {
	keeper, loser int64
}

type fakeMaintStore struct {
	mismatches []storage.BirthYearMismatch
	identity   map[string]int64
	unlinked   []storage.UnlinkedMatch
	legacy     []storage.UnlinkedMatch
	aliases    []storage.AliasWithTeam
	names      []storage.UnlinkedName

	merges    []merge
	years     map[int64]int
	links     map[int64]storage.Event
	deleted   []int64
	refreshed bool
}

func identityKey(canonical string, year int, gender, state string) string {
	return canonical + "|" + strconv.Itoa(year) + "|" + gender + "|" + state
}

func (f *fakeMaintStore) TeamsWithBirthYearMismatch(context.Context, int, int) ([]storage.BirthYearMismatch, error) {
	return f.mismatches, nil
}

func (f *fakeMaintStore) FindIdentityTeam(_ context.Context, canonical string, year int, gender, state string) (int64, error) {
	if id, ok := f.identity[identityKey(canonical, year, gender, state)]; ok {
		return id, nil
	}
	return 0, storage.ErrNotFound
}

func (f *fakeMaintStore) MergeTeams(_ context.Context, keeperID, loserID int64, _ string) error {
	f.merges = append(f.merges, merge{keeperID, loserID})
	return nil
}

func (f *fakeMaintStore) SetTeamBirthYear(_ context.Context, teamID int64, year int) error {
	if f.years == nil {
		f.years = map[int64]int{}
	}
	f.years[teamID] = year
	return nil
}

func (f *fakeMaintStore) UnlinkedMatchesWithKey(context.Context, int) ([]storage.UnlinkedMatch, error) {
	return f.unlinked, nil
}

func (f *fakeMaintStore) LegacyMatchesWithoutKey(context.Context, int) ([]storage.UnlinkedMatch, error) {
	return f.legacy, nil
}

func (f *fakeMaintStore) LinkMatchEvent(_ context.Context, matchID int64, leagueID, tournamentID *int64) error {
	if f.links == nil {
		f.links = map[int64]storage.Event{}
	}
	ev := storage.Event{}
	if leagueID != nil {
		ev = storage.Event{ID: *leagueID, Type: models.EventLeague}
	}
	if tournamentID != nil {
		ev = storage.Event{ID: *tournamentID, Type: models.EventTournament}
	}
	f.links[matchID] = ev
	return nil
}

func (f *fakeMaintStore) AllAliases(context.Context) ([]storage.AliasWithTeam, error) {
	return f.aliases, nil
}

func (f *fakeMaintStore) DeleteAlias(_ context.Context, aliasID int64) error {
	f.deleted = append(f.deleted, aliasID)
	return nil
}

func (f *fakeMaintStore) UnlinkedStagedNames(context.Context, int) ([]storage.UnlinkedName, error) {
	return f.names, nil
}

func (f *fakeMaintStore) RefreshViews(context.Context) error {
	f.refreshed = true
	return nil
}

type fakeEventResolver struct {
	evType models.EventType
}

func (f *fakeEventResolver) FindOrCreateEvent(context.Context, string, string, string, string) (*storage.Event, error) {
	t := f.evType
	if t == "" {
		t = models.EventTournament
	}
	return &storage.Event{ID: 42, Type: t}, nil
}

type fakeAggressiveMatcher struct {
	links  map[string]int64
	states []string
}

func (f *fakeAggressiveMatcher) ResolveAggressive(_ context.Context, rawName, state string) (int64, bool, error) {
	f.states = append(f.states, state)
	if id, ok := f.links[rawName]; ok {
		return id, true, nil
	}
	return 0, false, nil
}

func intPtr(n int) *int { return &n }

func mismatch(id int64, canonical, display string, stored *int, nameYear int, matches int) storage.BirthYearMismatch {
	return storage.BirthYearMismatch{
		TeamID: id, CanonicalName: canonical, DisplayName: display,
		StoredYear: stored, NameYear: nameYear, Gender: "Male", State: "KS",
		MatchesPlayed: matches,
	}
}

func TestBirthYearRepairMergesDuplicateGroup(t *testing.T) {
	// Two rows share the post-fix identity; the first (most matches) keeps.
	store := &fakeMaintStore{mismatches: []storage.BirthYearMismatch{
		mismatch(10, "rush 2014 elite", "Rush 2014 Elite", intPtr(2013), 2014, 40),
		mismatch(11, "rush 2014 elite", "Rush 2014 Elite", nil, 2014, 3),
	}}
	r := New(store, &fakeEventResolver{}, &fakeAggressiveMatcher{}, 2026, false)

	rep, err := r.BirthYearRepair(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rep.Merged != 1 || rep.Updated != 1 {
		t.Fatalf("report = %+v", rep)
	}
	if len(store.merges) != 1 || store.merges[0] != (merge{10, 11}) {
		t.Errorf("merges = %v", store.merges)
	}
	if store.years[10] != 2014 {
		t.Errorf("years = %v", store.years)
	}
	if !store.refreshed {
		t.Error("views not refreshed")
	}
}

func TestBirthYearRepairMergesIntoExistingIdentity(t *testing.T) {
	store := &fakeMaintStore{
		mismatches: []storage.BirthYearMismatch{
			mismatch(10, "rush 2014 elite", "Rush 2014 Elite", intPtr(2013), 2014, 5),
		},
		identity: map[string]int64{
			identityKey("rush 2014 elite", 2014, "Male", "KS"): 99,
		},
	}
	r := New(store, &fakeEventResolver{}, &fakeAggressiveMatcher{}, 2026, false)

	rep, err := r.BirthYearRepair(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rep.Merged != 1 || rep.Updated != 0 {
		t.Fatalf("report = %+v", rep)
	}
	// The existing correctly-keyed team absorbs the mismatched row.
	if len(store.merges) != 1 || store.merges[0] != (merge{99, 10}) {
		t.Errorf("merges = %v", store.merges)
	}
	if len(store.years) != 0 {
		t.Errorf("no update expected, got %v", store.years)
	}
}

func TestBirthYearRepairDryRun(t *testing.T) {
	store := &fakeMaintStore{mismatches: []storage.BirthYearMismatch{
		mismatch(10, "rush 2014 elite", "Rush 2014 Elite", intPtr(2013), 2014, 40),
		mismatch(11, "rush 2014 elite", "Rush 2014 Elite", nil, 2014, 3),
	}}
	r := New(store, &fakeEventResolver{}, &fakeAggressiveMatcher{}, 2026, true)

	rep, err := r.BirthYearRepair(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rep.Merged != 1 || rep.Updated != 1 {
		t.Fatalf("report = %+v", rep)
	}
	if len(store.merges) != 0 || len(store.years) != 0 || store.refreshed {
		t.Error("dry run wrote to the store")
	}
}

func TestRecoverUnlinkedMatches(t *testing.T) {
	store := &fakeMaintStore{unlinked: []storage.UnlinkedMatch{
		{MatchID: 1, SourceMatchKey: "gotsport-38221-1", EventName: "Spring Shootout", SourcePlatform: "gotsport"},
	}}
	r := New(store, &fakeEventResolver{evType: models.EventTournament}, &fakeAggressiveMatcher{}, 2026, false)

	rep, err := r.RecoverUnlinkedMatches(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Linked != 1 {
		t.Fatalf("report = %+v", rep)
	}
	ev := store.links[1]
	if ev.Type != models.EventTournament || ev.ID != 42 {
		t.Errorf("linked event = %+v", ev)
	}
}

func TestRecoverLegacyMatchesLinksLeague(t *testing.T) {
	store := &fakeMaintStore{legacy: []storage.UnlinkedMatch{
		{MatchID: 7, EventName: "Heartland League", SourcePlatform: "demosphere"},
	}}
	r := New(store, &fakeEventResolver{evType: models.EventLeague}, &fakeAggressiveMatcher{}, 2026, false)

	rep, err := r.RecoverLegacyMatches(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Linked != 1 {
		t.Fatalf("report = %+v", rep)
	}
	if ev := store.links[7]; ev.Type != models.EventLeague {
		t.Errorf("linked event = %+v", ev)
	}
}

func TestAliasCleanup(t *testing.T) {
	store := &fakeMaintStore{aliases: []storage.AliasWithTeam{
		// Year token 2013 against a 2014 team: delete.
		{ID: 1, TeamID: 10, AliasName: "rush 2013 elite", Source: models.AliasFuzzyLearned, TeamBirthYear: intPtr(2014)},
		// Matching year: keep.
		{ID: 2, TeamID: 10, AliasName: "rush 2014 elite", Source: models.AliasFuzzyLearned, TeamBirthYear: intPtr(2014)},
		// Girls alias on a male team: delete.
		{ID: 3, TeamID: 11, AliasName: "legends girls u12", Source: models.AliasPunctNorm, TeamGender: models.GenderMale},
		// No tokens: keep.
		{ID: 4, TeamID: 11, AliasName: "legends black", Source: models.AliasColorRemoved, TeamGender: models.GenderMale},
		// Manual aliases survive even when contradictory.
		{ID: 5, TeamID: 10, AliasName: "rush 2013", Source: models.AliasManual, TeamBirthYear: intPtr(2014)},
	}}
	r := New(store, &fakeEventResolver{}, &fakeAggressiveMatcher{}, 2026, false)

	rep, err := r.AliasCleanup(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rep.Scanned != 5 || rep.Deleted != 2 {
		t.Fatalf("report = %+v", rep)
	}
	if len(store.deleted) != 2 || store.deleted[0] != 1 || store.deleted[1] != 3 {
		t.Errorf("deleted = %v", store.deleted)
	}
}

func TestAggressiveLink(t *testing.T) {
	store := &fakeMaintStore{names: []storage.UnlinkedName{
		{Name: "sporting kaw valley 2012", SourcePlatform: "htgsports", Occurrences: 14},
		{Name: "nowhere fc 2015", SourcePlatform: "gotsport", Occurrences: 2},
	}}
	matcher := &fakeAggressiveMatcher{links: map[string]int64{"sporting kaw valley 2012": 4}}
	r := New(store, &fakeEventResolver{}, matcher, 2026, false)

	rep, err := r.AggressiveLink(context.Background(), 200)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Scanned != 2 || rep.Linked != 1 {
		t.Fatalf("report = %+v", rep)
	}
	// State inference rides along for sources that imply one.
	if matcher.states[0] != "KS" || matcher.states[1] != "" {
		t.Errorf("states = %v", matcher.states)
	}
}

func TestAggressiveLinkDryRun(t *testing.T) {
	store := &fakeMaintStore{names: []storage.UnlinkedName{
		{Name: "sporting kaw valley 2012", SourcePlatform: "htgsports", Occurrences: 14},
	}}
	matcher := &fakeAggressiveMatcher{links: map[string]int64{"sporting kaw valley 2012": 4}}
	r := New(store, &fakeEventResolver{}, matcher, 2026, true)

	rep, err := r.AggressiveLink(context.Background(), 200)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Linked != 0 || len(matcher.states) != 0 {
		t.Error("dry run invoked the matcher")
	}
	if rep.Scanned != 1 {
		t.Errorf("Scanned = %d", rep.Scanned)
	}
}
