package gotsport

// API payload shapes for system.gotsport.com. Only the fields the scraper
// reads are declared.

type eventsResponse struct {
	Events []apiEvent `json:"events"`
	Meta   struct {
		CurrentPage int `json:"current_page"`
		TotalPages  int `json:"total_pages"`
	} `json:"meta"`
}

type apiEvent struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"event_type"` // "league" or "tournament"
	State string `json:"state"`
}

type matchesResponse struct {
	Matches []apiMatch `json:"matches"`
	Meta    struct {
		CurrentPage int `json:"current_page"`
		TotalPages  int `json:"total_pages"`
	} `json:"meta"`
}

type apiMatch struct {
	ID        int64   `json:"id"`
	Date      string  `json:"match_date"`
	Time      string  `json:"match_time"`
	HomeTeam  apiTeam `json:"home_team"`
	AwayTeam  apiTeam `json:"away_team"`
	HomeScore *int    `json:"home_score"`
	AwayScore *int    `json:"away_score"`
	Division  string  `json:"division_name"`
	Venue     string  `json:"venue_name"`
	Status    string  `json:"status"`
}

type apiTeam struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
