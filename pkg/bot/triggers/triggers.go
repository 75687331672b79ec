// Package triggers evaluates the fixed set of twelve betting triggers:
// six pre-match predicates over fixture metadata and six live
// half-time predicates over the in-play state inside a configurable
// window, minutes 30 to 45 by default. Predicates are independent and
// pure; re-evaluating identical inputs yields identical results.
package triggers

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Xavi146570/team-specialist-bot/pkg/apifootball"
	"github.com/Xavi146570/team-specialist-bot/pkg/bot/analysis"
)

// ErrMissingLiveState is returned when live triggers are evaluated
// without an in-play snapshot.
var ErrMissingLiveState = errors.New("triggers: live state required for half-time evaluation")

// Key identifies one of the twelve triggers. The enumeration is
// closed; no other triggers exist.
type Key string

// Pre-match triggers, evaluated once per fixture before kickoff.
const (
	VsBottom5Home Key = "vs_bottom5_home"
	VsTop3Home    Key = "vs_top3_home"
	PostLossHome  Key = "post_loss_home"
	Classico      Key = "classico"
	ChampionsWeek Key = "champions_week"
	VsBottom5Away Key = "vs_bottom5_away"
)

// Live half-time triggers, evaluated between minutes 30 and 45.
const (
	HT0x0After30Home   Key = "ht_0x0_after_30min_home"
	HT0x0After30Away   Key = "ht_0x0_after_30min_away"
	HT1x0WinningHome   Key = "ht_1x0_winning_home"
	HTLosingHome       Key = "ht_losing_home"
	HTDrawingAway      Key = "ht_drawing_away"
	SecondHalfMomentum Key = "second_half_momentum"
)

// PreMatchKeys and LiveKeys partition the twelve triggers.
var (
	PreMatchKeys = []Key{VsBottom5Home, VsTop3Home, PostLossHome, Classico, ChampionsWeek, VsBottom5Away}
	LiveKeys     = []Key{HT0x0After30Home, HT0x0After30Away, HT1x0WinningHome, HTLosingHome, HTDrawingAway, SecondHalfMomentum}
)

// The default live monitoring window in match minutes.
const (
	LiveWindowStart = 30
	LiveWindowEnd   = 45
)

// defaultMinSample is the default sample floor: a half-time pattern
// needs strictly more historical occurrences than this before its
// trigger may fire.
const defaultMinSample = 5

// comebackRateFloor gates ht_losing_home: the team must have rescued
// more than 30% of matches it trailed at half time.
const comebackRateFloor = 0.30

// comebackPatternKey counts home matches rescued to a win or draw
// after trailing at half time. It rides in the same pattern map as
// the trigger occurrence counts.
const comebackPatternKey = "ht_losing_home_comebacks"

// LiveConfig bounds live evaluation: the half-time window in match
// minutes and the sample floor for pattern-gated triggers.
type LiveConfig struct {
	WindowStart int
	WindowEnd   int
	MinSample   int
}

// DefaultLiveConfig mirrors the production schedule.
func DefaultLiveConfig() LiveConfig {
	return LiveConfig{
		WindowStart: LiveWindowStart,
		WindowEnd:   LiveWindowEnd,
		MinSample:   defaultMinSample,
	}
}

// Result is one evaluated trigger with the contextual values that
// justified the decision.
type Result struct {
	Key    Key                    `json:"key"`
	Fired  bool                   `json:"fired"`
	Values map[string]interface{} `json:"values,omitempty"`
}

// NearbyFixture is another scheduled match used by the champions_week
// predicate.
type NearbyFixture struct {
	FixtureID int64
	LeagueID  int
	Kickoff   time.Time
}

// FixtureContext is the pre-match metadata for one fixture.
type FixtureContext struct {
	FixtureID  int64
	TeamID     int
	OpponentID int
	IsHome     bool
	LeagueID   int
	Kickoff    time.Time

	// OpponentName backs the classico check when the feed reports a
	// rival under an unexpected ID.
	OpponentName string

	// OpponentRank is the opponent's current league position, zero
	// when unknown.
	OpponentRank int

	// PrevResult is the tracked team's most recent finished result,
	// empty when unknown.
	PrevResult apifootball.Result

	// NearbyFixtures are the team's other scheduled matches around
	// this one.
	NearbyFixtures []NearbyFixture
}

// LiveState is the in-play snapshot for one fixture.
type LiveState struct {
	FixtureID     int64
	Minute        int
	TeamGoals     int
	OpponentGoals int

	// LastTeamGoalMinute is the minute of the team's most recent goal,
	// zero when the team has not scored.
	LastTeamGoalMinute int
}

const (
	bottomRankFrom = 14 // bottom five of an 18-team table
	topRankTo      = 3
	europeanWindow = 3 * 24 * time.Hour
)

func isEuropean(leagueID int) bool {
	return leagueID == apifootball.LeagueChampionsLeague || leagueID == apifootball.LeagueEuropaLeague
}

// trackedRival resolves the opponent against the tracked clubs, by ID
// first and by normalized name when the ID is not a known one. Feeds
// occasionally re-key clubs between seasons.
func trackedRival(ctx FixtureContext) bool {
	if apifootball.IsBig3(ctx.OpponentID) {
		return true
	}
	_, ok := apifootball.MatchBig3Name(ctx.OpponentName)
	return ok
}

// weakOpponent applies the opponent-rank rule with the cup heuristic
// as fallback when the rank is unknown.
func weakOpponent(ctx FixtureContext) bool {
	if trackedRival(ctx) {
		return false
	}
	if ctx.OpponentRank > 0 {
		return ctx.OpponentRank >= bottomRankFrom
	}
	return ctx.LeagueID == apifootball.LeagueTacaPortugal
}

func strongOpponent(ctx FixtureContext) bool {
	if trackedRival(ctx) {
		return false
	}
	if ctx.OpponentRank > 0 && ctx.OpponentRank <= topRankTo {
		return true
	}
	return isEuropean(ctx.LeagueID)
}

func nearbyEuropean(ctx FixtureContext) (NearbyFixture, bool) {
	for _, nf := range ctx.NearbyFixtures {
		if nf.FixtureID == ctx.FixtureID || !isEuropean(nf.LeagueID) {
			continue
		}
		gap := nf.Kickoff.Sub(ctx.Kickoff)
		if gap < 0 {
			gap = -gap
		}
		if gap <= europeanWindow {
			return nf, true
		}
	}
	return NearbyFixture{}, false
}

// EvaluatePreMatch evaluates the six pre-match triggers. The minimum
// set is carried into the audit values of every fired result.
func EvaluatePreMatch(ctx FixtureContext, mins analysis.MinimumSet) []Result {
	results := make([]Result, 0, len(PreMatchKeys))

	fire := func(key Key, values map[string]interface{}) {
		if values == nil {
			values = map[string]interface{}{}
		}
		values["minimums"] = mins
		results = append(results, Result{Key: key, Fired: true, Values: values})
	}

	if ctx.IsHome && weakOpponent(ctx) {
		fire(VsBottom5Home, map[string]interface{}{
			"opponent_id":   ctx.OpponentID,
			"opponent_rank": ctx.OpponentRank,
			"league_id":     ctx.LeagueID,
		})
	}

	if ctx.IsHome && strongOpponent(ctx) {
		fire(VsTop3Home, map[string]interface{}{
			"opponent_id":   ctx.OpponentID,
			"opponent_rank": ctx.OpponentRank,
			"league_id":     ctx.LeagueID,
		})
	}

	if ctx.IsHome && ctx.PrevResult == apifootball.ResultLoss {
		fire(PostLossHome, map[string]interface{}{
			"previous_result": string(ctx.PrevResult),
		})
	}

	if apifootball.IsBig3(ctx.TeamID) && trackedRival(ctx) {
		fire(Classico, map[string]interface{}{
			"team_id":       ctx.TeamID,
			"opponent_id":   ctx.OpponentID,
			"opponent_name": ctx.OpponentName,
		})
	}

	if nf, ok := nearbyEuropean(ctx); ok {
		fire(ChampionsWeek, map[string]interface{}{
			"european_fixture_id": nf.FixtureID,
			"european_league_id":  nf.LeagueID,
			"days_apart":          int(nf.Kickoff.Sub(ctx.Kickoff).Hours() / 24),
		})
	}

	if !ctx.IsHome && weakOpponent(ctx) {
		fire(VsBottom5Away, map[string]interface{}{
			"opponent_id":   ctx.OpponentID,
			"opponent_rank": ctx.OpponentRank,
			"league_id":     ctx.LeagueID,
		})
	}

	return results
}

// EvaluateLive evaluates the six live half-time triggers. A nil live
// state is a caller contract violation. Outside the configured window
// nothing fires and no error is returned; the evaluator is invoked on
// a fixed interval externally and stays idempotent.
func EvaluateLive(ctx FixtureContext, mins analysis.MinimumSet, patterns map[string]int, live *LiveState, cfg LiveConfig) ([]Result, error) {
	if live == nil {
		return nil, fmt.Errorf("%w: fixture %d", ErrMissingLiveState, ctx.FixtureID)
	}
	if live.Minute < cfg.WindowStart || live.Minute > cfg.WindowEnd {
		return nil, nil
	}

	var results []Result
	fire := func(key Key, values map[string]interface{}) {
		if values == nil {
			values = map[string]interface{}{}
		}
		values["minute"] = live.Minute
		values["score"] = fmt.Sprintf("%d-%d", live.TeamGoals, live.OpponentGoals)
		values["minimums"] = mins
		results = append(results, Result{Key: key, Fired: true, Values: values})
	}

	sampled := func(key Key) bool {
		return patterns[string(key)] > cfg.MinSample
	}

	goalless := live.TeamGoals == 0 && live.OpponentGoals == 0

	if ctx.IsHome && goalless && sampled(HT0x0After30Home) {
		fire(HT0x0After30Home, map[string]interface{}{
			"pattern_occurrences": patterns[string(HT0x0After30Home)],
		})
	}
	if !ctx.IsHome && goalless && sampled(HT0x0After30Away) {
		fire(HT0x0After30Away, map[string]interface{}{
			"pattern_occurrences": patterns[string(HT0x0After30Away)],
		})
	}

	if ctx.IsHome && live.TeamGoals == 1 && live.OpponentGoals == 0 {
		fire(HT1x0WinningHome, nil)
	}

	// A half-time deficit only pays when the team historically rescues
	// such matches.
	if ctx.IsHome && live.TeamGoals < live.OpponentGoals {
		if rate, ok := comebackRate(patterns); ok && rate > comebackRateFloor {
			fire(HTLosingHome, map[string]interface{}{
				"deficit":       live.OpponentGoals - live.TeamGoals,
				"comeback_rate": rate,
			})
		}
	}

	if !ctx.IsHome && live.TeamGoals == live.OpponentGoals && live.TeamGoals > 0 {
		fire(HTDrawingAway, nil)
	}

	// Momentum carries into the second half when the team scored in
	// the closing stretch of the first.
	if live.LastTeamGoalMinute >= LiveWindowStart && live.LastTeamGoalMinute <= live.Minute {
		fire(SecondHalfMomentum, map[string]interface{}{
			"last_goal_minute": live.LastTeamGoalMinute,
		})
	}

	return results, nil
}

// comebackRate returns the fraction of half-time home deficits the
// team still rescued to a win or draw. ok is false with no such
// deficits on record.
func comebackRate(patterns map[string]int) (float64, bool) {
	deficits := patterns[string(HTLosingHome)]
	if deficits == 0 {
		return 0, false
	}
	return float64(patterns[comebackPatternKey]) / float64(deficits), true
}

// Score converts fired triggers into a 0-100 confidence score:
// 10 points per trigger, 20 for a classico, 15 for champions week.
func Score(fired []Result) int {
	score := 0
	for _, r := range fired {
		if !r.Fired {
			continue
		}
		switch r.Key {
		case Classico:
			score += 20
		case ChampionsWeek:
			score += 15
		default:
			score += 10
		}
	}
	if score > 100 {
		score = 100
	}
	return score
}

// CountPatterns counts historical occurrences of each trigger pattern
// in a finished-match window, plus comeback outcomes for half-time
// deficits. The counts gate live triggers.
func CountPatterns(matches []apifootball.MatchRecord) map[string]int {
	counts := make(map[string]int, 13)
	for _, k := range PreMatchKeys {
		counts[string(k)] = 0
	}
	for _, k := range LiveKeys {
		counts[string(k)] = 0
	}
	counts[comebackPatternKey] = 0

	sorted := make([]apifootball.MatchRecord, len(matches))
	copy(sorted, matches)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	for i, m := range sorted {
		if m.IsHome {
			if apifootball.IsBig3(m.OpponentID) {
				counts[string(Classico)]++
			}
			if i > 0 && sorted[i-1].Result == apifootball.ResultLoss {
				counts[string(PostLossHome)]++
			}
		}

		// Half-time patterns from the recorded HT score.
		switch {
		case m.IsHome && m.HTTeamGoals == 0 && m.HTOppGoals == 0:
			counts[string(HT0x0After30Home)]++
		case !m.IsHome && m.HTTeamGoals == 0 && m.HTOppGoals == 0:
			counts[string(HT0x0After30Away)]++
		case m.IsHome && m.HTTeamGoals == 1 && m.HTOppGoals == 0:
			counts[string(HT1x0WinningHome)]++
		case m.IsHome && m.HTTeamGoals < m.HTOppGoals:
			counts[string(HTLosingHome)]++
			if m.Result != apifootball.ResultLoss {
				counts[comebackPatternKey]++
			}
		case !m.IsHome && m.HTTeamGoals == m.HTOppGoals && m.HTTeamGoals > 0:
			counts[string(HTDrawingAway)]++
		}

		if m.TotalGoals-m.HTTotal > m.HTTotal {
			counts[string(SecondHalfMomentum)]++
		}
	}

	return counts
}
