package analysis

import (
	"time"

	"github.com/Xavi146570/team-specialist-bot/pkg/apifootball"
)

// Scenario is a betting market outcome whose historical frequency
// backs a stake recommendation.
type Scenario string

const (
	ScenarioOver15       Scenario = "over_1.5"
	ScenarioOver25       Scenario = "over_2.5"
	ScenarioOver35       Scenario = "over_3.5"
	ScenarioBTTS         Scenario = "btts"
	ScenarioCleanSheet   Scenario = "clean_sheet"
	ScenarioTeamOver15   Scenario = "team_over_1.5"
	ScenarioHTOver05     Scenario = "ht_over_0.5"
	ScenarioSecondHalf05 Scenario = "2h_over_0.5"
	ScenarioSecondHalf15 Scenario = "2h_over_1.5"
)

// VenueStats aggregates one venue's (home or away) historical window:
// minimum sets for the key statistics, result rates and scenario
// frequencies.
type VenueStats struct {
	Matches int `json:"matches"`

	TeamGoals  MinimumSet `json:"team_goals"`
	TotalGoals MinimumSet `json:"total_goals"`
	HTGoals    MinimumSet `json:"ht_goals"`

	Wins   int `json:"wins"`
	Draws  int `json:"draws"`
	Losses int `json:"losses"`

	WinRate        float64 `json:"win_rate"`
	CleanSheetRate float64 `json:"clean_sheet_rate"`
	BTTSRate       float64 `json:"btts_rate"`
	Over25Rate     float64 `json:"over_2_5_rate"`

	Scenarios map[Scenario]float64 `json:"scenarios"`
}

// TeamAnalysis is the full derived snapshot for one team: both venues
// plus historical trigger-pattern counts. Snapshots are immutable and
// superseded by the next computation.
type TeamAnalysis struct {
	TeamID     int       `json:"team_id"`
	TeamName   string    `json:"team_name"`
	ComputedAt time.Time `json:"computed_at"`
	RangeStart time.Time `json:"range_start"`
	RangeEnd   time.Time `json:"range_end"`

	TotalMatches int        `json:"total_matches"`
	Home         VenueStats `json:"home"`
	Away         VenueStats `json:"away"`

	// Patterns counts historical occurrences per trigger key, used as
	// sample-size guards during live evaluation.
	Patterns map[string]int `json:"patterns,omitempty"`
}

// Venue returns the stats for the requested venue.
func (a *TeamAnalysis) Venue(isHome bool) VenueStats {
	if isHome {
		return a.Home
	}
	return a.Away
}

// scenarioHit reports whether one match satisfied a scenario.
func scenarioHit(m apifootball.MatchRecord, s Scenario) bool {
	secondHalf := m.TotalGoals - m.HTTotal
	switch s {
	case ScenarioOver15:
		return m.TotalGoals > 1
	case ScenarioOver25:
		return m.TotalGoals > 2
	case ScenarioOver35:
		return m.TotalGoals > 3
	case ScenarioBTTS:
		return m.BTTS
	case ScenarioCleanSheet:
		return m.CleanSheet
	case ScenarioTeamOver15:
		return m.TeamGoals > 1
	case ScenarioHTOver05:
		return m.HTTotal > 0
	case ScenarioSecondHalf05:
		return secondHalf > 0
	case ScenarioSecondHalf15:
		return secondHalf > 1
	}
	return false
}

var allScenarios = []Scenario{
	ScenarioOver15, ScenarioOver25, ScenarioOver35,
	ScenarioBTTS, ScenarioCleanSheet, ScenarioTeamOver15,
	ScenarioHTOver05, ScenarioSecondHalf05, ScenarioSecondHalf15,
}

// ScenarioProbability returns the historical frequency of a scenario
// over a match window. This is the conservative probability source for
// Kelly sizing.
func ScenarioProbability(matches []apifootball.MatchRecord, s Scenario) float64 {
	if len(matches) == 0 {
		return 0
	}
	hits := 0
	for _, m := range matches {
		if scenarioHit(m, s) {
			hits++
		}
	}
	return float64(hits) / float64(len(matches))
}

// ComputeVenueStats aggregates matches played at one venue.
func ComputeVenueStats(matches []apifootball.MatchRecord) (VenueStats, error) {
	if len(matches) == 0 {
		return VenueStats{}, ErrInsufficientData
	}

	teamGoals := make([]int, 0, len(matches))
	totalGoals := make([]int, 0, len(matches))
	htGoals := make([]int, 0, len(matches))

	stats := VenueStats{
		Matches:   len(matches),
		Scenarios: make(map[Scenario]float64, len(allScenarios)),
	}

	cleanSheets, btts, over25 := 0, 0, 0
	for _, m := range matches {
		teamGoals = append(teamGoals, m.TeamGoals)
		totalGoals = append(totalGoals, m.TotalGoals)
		htGoals = append(htGoals, m.HTTotal)

		switch m.Result {
		case apifootball.ResultWin:
			stats.Wins++
		case apifootball.ResultDraw:
			stats.Draws++
		case apifootball.ResultLoss:
			stats.Losses++
		}
		if m.CleanSheet {
			cleanSheets++
		}
		if m.BTTS {
			btts++
		}
		if m.Over25 {
			over25++
		}
	}

	var err error
	if stats.TeamGoals, err = ComputeMinimums(teamGoals); err != nil {
		return VenueStats{}, err
	}
	if stats.TotalGoals, err = ComputeMinimums(totalGoals); err != nil {
		return VenueStats{}, err
	}
	if stats.HTGoals, err = ComputeMinimums(htGoals); err != nil {
		return VenueStats{}, err
	}

	n := float64(len(matches))
	stats.WinRate = float64(stats.Wins) / n
	stats.CleanSheetRate = float64(cleanSheets) / n
	stats.BTTSRate = float64(btts) / n
	stats.Over25Rate = float64(over25) / n

	for _, s := range allScenarios {
		stats.Scenarios[s] = ScenarioProbability(matches, s)
	}

	return stats, nil
}

// Analyze builds the full per-team snapshot from a historical window.
// The window must contain at least one home and one away match.
func Analyze(teamID int, teamName string, matches []apifootball.MatchRecord, rangeStart, rangeEnd time.Time) (*TeamAnalysis, error) {
	if len(matches) == 0 {
		return nil, ErrInsufficientData
	}

	var home, away []apifootball.MatchRecord
	for _, m := range matches {
		if m.IsHome {
			home = append(home, m)
		} else {
			away = append(away, m)
		}
	}

	homeStats, err := ComputeVenueStats(home)
	if err != nil {
		return nil, err
	}
	awayStats, err := ComputeVenueStats(away)
	if err != nil {
		return nil, err
	}

	return &TeamAnalysis{
		TeamID:       teamID,
		TeamName:     teamName,
		ComputedAt:   time.Now().UTC(),
		RangeStart:   rangeStart,
		RangeEnd:     rangeEnd,
		TotalMatches: len(matches),
		Home:         homeStats,
		Away:         awayStats,
	}, nil
}
