package apifootball

import "fmt"

// goalCount dereferences a nullable goal value. The API reports null
// for fixtures without data; the original feed treats that as zero.
func goalCount(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

// ParseMatch converts a raw finished fixture into a MatchRecord from
// the tracked team's perspective.
func ParseMatch(raw FixturePayload, teamID int) MatchRecord {
	isHome := raw.Teams.Home.ID == teamID

	opponent := raw.Teams.Away
	if !isHome {
		opponent = raw.Teams.Home
	}

	teamGoals := goalCount(raw.Goals.Home)
	oppGoals := goalCount(raw.Goals.Away)
	htTeam := goalCount(raw.Score.Halftime.Home)
	htOpp := goalCount(raw.Score.Halftime.Away)
	if !isHome {
		teamGoals, oppGoals = oppGoals, teamGoals
		htTeam, htOpp = htOpp, htTeam
	}

	result := ResultDraw
	switch {
	case teamGoals > oppGoals:
		result = ResultWin
	case teamGoals < oppGoals:
		result = ResultLoss
	}

	total := teamGoals + oppGoals
	htTotal := htTeam + htOpp

	return MatchRecord{
		FixtureID:     raw.Fixture.ID,
		Date:          raw.Fixture.Date,
		Competition:   raw.League.Name,
		LeagueID:      raw.League.ID,
		IsHome:        isHome,
		Opponent:      opponent.Name,
		OpponentID:    opponent.ID,
		TeamGoals:     teamGoals,
		OpponentGoals: oppGoals,
		TotalGoals:    total,
		HTTeamGoals:   htTeam,
		HTOppGoals:    htOpp,
		HTTotal:       htTotal,
		Result:        result,
		CleanSheet:    oppGoals == 0,
		BTTS:          teamGoals > 0 && oppGoals > 0,
		Over25:        total > 2,
		HTOver15:      htTotal > 1,
	}
}

// ParseFixture converts a raw not-started fixture into a Fixture.
func ParseFixture(raw FixturePayload, teamID int) Fixture {
	isHome := raw.Teams.Home.ID == teamID

	team := raw.Teams.Home
	opponent := raw.Teams.Away
	if !isHome {
		team, opponent = opponent, team
	}

	return Fixture{
		FixtureID:   raw.Fixture.ID,
		Date:        raw.Fixture.Date,
		Competition: raw.League.Name,
		LeagueID:    raw.League.ID,
		IsHome:      isHome,
		TeamID:      team.ID,
		TeamName:    team.Name,
		Opponent:    opponent.Name,
		OpponentID:  opponent.ID,
		Venue:       raw.Fixture.Venue.Name,
	}
}

// ParseLiveMatch converts a raw in-play fixture into a LiveMatch.
func ParseLiveMatch(raw FixturePayload, teamID int) LiveMatch {
	isHome := raw.Teams.Home.ID == teamID

	team := raw.Teams.Home
	opponent := raw.Teams.Away
	if !isHome {
		team, opponent = opponent, team
	}

	elapsed := 0
	if raw.Fixture.Status.Elapsed != nil {
		elapsed = *raw.Fixture.Status.Elapsed
	}

	homeGoals := goalCount(raw.Goals.Home)
	awayGoals := goalCount(raw.Goals.Away)
	teamGoals, oppGoals := homeGoals, awayGoals
	htTeam := goalCount(raw.Score.Halftime.Home)
	htOpp := goalCount(raw.Score.Halftime.Away)
	if !isHome {
		teamGoals, oppGoals = awayGoals, homeGoals
		htTeam, htOpp = htOpp, htTeam
	}

	lastGoal := 0
	for _, ev := range raw.Events {
		if ev.Type == "Goal" && ev.Team.ID == teamID && ev.Time.Elapsed > lastGoal {
			lastGoal = ev.Time.Elapsed
		}
	}

	return LiveMatch{
		FixtureID:          raw.Fixture.ID,
		Elapsed:            elapsed,
		IsHome:             isHome,
		TeamID:             team.ID,
		Opponent:           opponent.Name,
		TeamGoals:          teamGoals,
		OpponentGoals:      oppGoals,
		HTTeamGoals:        htTeam,
		HTOppGoals:         htOpp,
		Score:              fmt.Sprintf("%d-%d", homeGoals, awayGoals),
		LastTeamGoalMinute: lastGoal,
	}
}
