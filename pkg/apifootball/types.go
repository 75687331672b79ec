package apifootball

import "time"

// fixturesEnvelope is the top-level shape of every /fixtures response.
type fixturesEnvelope struct {
	Results  int              `json:"results"`
	Errors   interface{}      `json:"errors"`
	Response []FixturePayload `json:"response"`
}

// FixtureStatus holds the live status block of a fixture.
type FixtureStatus struct {
	Short   string `json:"short"`
	Elapsed *int   `json:"elapsed"`
}

// FixtureInfo is the fixture block of the API response.
type FixtureInfo struct {
	ID     int64         `json:"id"`
	Date   time.Time     `json:"date"`
	Status FixtureStatus `json:"status"`
	Venue  struct {
		Name string `json:"name"`
	} `json:"venue"`
}

// LeagueInfo is the league block of the API response.
type LeagueInfo struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Season int    `json:"season"`
}

// TeamInfo identifies one side of a fixture.
type TeamInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// GoalPair holds a home/away goal count; values are null for
// fixtures that have not been played.
type GoalPair struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}

// EventPayload is one in-play event; live fixtures carry the full
// event list.
type EventPayload struct {
	Time struct {
		Elapsed int `json:"elapsed"`
	} `json:"time"`
	Team TeamInfo `json:"team"`
	Type string   `json:"type"`
}

// FixturePayload is one raw fixture entry from the API.
type FixturePayload struct {
	Fixture FixtureInfo `json:"fixture"`
	League  LeagueInfo  `json:"league"`
	Teams   struct {
		Home TeamInfo `json:"home"`
		Away TeamInfo `json:"away"`
	} `json:"teams"`
	Goals GoalPair `json:"goals"`
	Score struct {
		Halftime GoalPair `json:"halftime"`
		Fulltime GoalPair `json:"fulltime"`
	} `json:"score"`
	Events []EventPayload `json:"events,omitempty"`
}

// Result is the outcome of a finished match from the tracked team's
// point of view.
type Result string

const (
	ResultWin  Result = "W"
	ResultDraw Result = "D"
	ResultLoss Result = "L"
)

// MatchRecord is one finished match normalized to the tracked team's
// perspective. Records are immutable once parsed.
type MatchRecord struct {
	FixtureID     int64     `json:"fixture_id"`
	Date          time.Time `json:"date"`
	Competition   string    `json:"competition"`
	LeagueID      int       `json:"league_id"`
	IsHome        bool      `json:"is_home"`
	Opponent      string    `json:"opponent"`
	OpponentID    int       `json:"opponent_id"`
	TeamGoals     int       `json:"team_goals"`
	OpponentGoals int       `json:"opponent_goals"`
	TotalGoals    int       `json:"total_goals"`
	HTTeamGoals   int       `json:"ht_team_goals"`
	HTOppGoals    int       `json:"ht_opponent_goals"`
	HTTotal       int       `json:"ht_total"`
	Result        Result    `json:"result"`
	CleanSheet    bool      `json:"clean_sheet"`
	BTTS          bool      `json:"btts"`
	Over25        bool      `json:"over_2_5"`
	HTOver15      bool      `json:"over_1_5_ht"`
}

// Fixture is an upcoming match for the tracked team.
type Fixture struct {
	FixtureID   int64     `json:"fixture_id"`
	Date        time.Time `json:"date"`
	Competition string    `json:"competition"`
	LeagueID    int       `json:"league_id"`
	IsHome      bool      `json:"is_home"`
	TeamID      int       `json:"team_id"`
	TeamName    string    `json:"team_name"`
	Opponent    string    `json:"opponent"`
	OpponentID  int       `json:"opponent_id"`
	Venue       string    `json:"venue"`
}

// LiveMatch is an in-play snapshot for the tracked team.
type LiveMatch struct {
	FixtureID     int64  `json:"fixture_id"`
	Elapsed       int    `json:"elapsed"`
	IsHome        bool   `json:"is_home"`
	TeamID        int    `json:"team_id"`
	Opponent      string `json:"opponent"`
	TeamGoals     int    `json:"team_goals"`
	OpponentGoals int    `json:"opponent_goals"`
	HTTeamGoals   int    `json:"ht_team_goals"`
	HTOppGoals    int    `json:"ht_opponent_goals"`
	Score         string `json:"score"`

	// LastTeamGoalMinute is the minute of the team's latest goal, zero
	// when it has not scored.
	LastTeamGoalMinute int `json:"last_team_goal_minute,omitempty"`
}
