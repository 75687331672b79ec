package kelly

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Xavi146570/team-specialist-bot/pkg/apifootball"
	"github.com/Xavi146570/team-specialist-bot/pkg/bot/analysis"
	"github.com/Xavi146570/team-specialist-bot/pkg/bot/triggers"
)

// Market names quoted in plans and alerts.
const (
	MarketOver15     = "Over 1.5 Goals"
	MarketOver25     = "Over 2.5 Goals"
	MarketBTTS       = "BTTS"
	MarketLiveOver15 = "Over 1.5 Goals 2nd Half"
)

// maxProbability keeps perfect historical frequencies inside the Kelly
// domain.
var maxProbability = decimal.RequireFromString("0.99")

// MarketOdds are the bookmaker decimal prices used to size stakes.
// There is no live odds feed; prices come from configuration.
type MarketOdds struct {
	Over15     decimal.Decimal
	Over25     decimal.Decimal
	BTTS       decimal.Decimal
	LiveOver15 decimal.Decimal
}

// DefaultMarketOdds returns the configured fallback prices.
func DefaultMarketOdds() MarketOdds {
	return MarketOdds{
		Over15:     decimal.RequireFromString("1.5"),
		Over25:     decimal.RequireFromString("2.0"),
		BTTS:       decimal.RequireFromString("1.8"),
		LiveOver15: decimal.RequireFromString("2.0"),
	}
}

// PlanConfig configures plan building.
type PlanConfig struct {
	Cap      decimal.Decimal
	Bankroll decimal.Decimal
	Odds     MarketOdds
}

// DefaultPlanConfig returns conservative defaults.
func DefaultPlanConfig() PlanConfig {
	return PlanConfig{
		Cap:      DefaultCap,
		Bankroll: decimal.NewFromInt(1000),
		Odds:     DefaultMarketOdds(),
	}
}

// StakeRecommendation is one sized bet inside a plan.
type StakeRecommendation struct {
	Market      string          `json:"market"`
	Scenario    string          `json:"scenario"`
	Probability decimal.Decimal `json:"probability"`
	Odds        decimal.Decimal `json:"odds"`
	Fraction    decimal.Decimal `json:"fraction"`
	Stake       decimal.Decimal `json:"stake"`

	// Guaranteed is set when the minimum at the selected confidence
	// level already covers the market outcome.
	Guaranteed bool `json:"guaranteed,omitempty"`
}

// EntryPhase is one step of the phased entry strategy.
type EntryPhase struct {
	Phase    string          `json:"phase"`
	Fraction decimal.Decimal `json:"fraction"`
	Timing   string          `json:"timing"`
	Markets  []string        `json:"markets"`
}

// TradingPlan is the per-fixture bundle of minimums, fired triggers
// and stake recommendations. Plans are immutable after creation and
// superseded by the next run's plan for the same fixture.
type TradingPlan struct {
	ID          string    `json:"id"`
	FixtureID   int64     `json:"fixture_id"`
	TeamID      int       `json:"team_id"`
	TeamName    string    `json:"team_name"`
	Opponent    string    `json:"opponent"`
	Competition string    `json:"competition"`
	Kickoff     time.Time `json:"kickoff"`
	IsHome      bool      `json:"is_home"`

	Confidence   analysis.Confidence `json:"confidence"`
	TriggerScore int                 `json:"trigger_score"`
	Triggers     []triggers.Result   `json:"triggers"`

	TeamGoalMins  analysis.MinimumSet `json:"team_goal_minimums"`
	TotalGoalMins analysis.MinimumSet `json:"total_goal_minimums"`
	HTGoalMins    analysis.MinimumSet `json:"ht_goal_minimums"`

	Primary             StakeRecommendation   `json:"primary_bet"`
	Backups             []StakeRecommendation `json:"backup_bets"`
	RecommendedFraction decimal.Decimal       `json:"recommended_fraction"`
	EntryPhases         []EntryPhase          `json:"entry_phases"`

	// Exit annotations carried on every plan. Execution is manual;
	// these are instructions for the person placing the bets.
	StopLoss   string `json:"stop_loss"`
	TakeProfit string `json:"take_profit"`

	CreatedAt time.Time `json:"created_at"`
}

// LivePlan is the half-time recommendation emitted from the live
// monitoring window.
type LivePlan struct {
	FixtureID int64        `json:"fixture_id"`
	TeamName  string       `json:"team_name"`
	Opponent  string       `json:"opponent"`
	Minute    int          `json:"minute"`
	Score     string       `json:"score"`
	Trigger   triggers.Key `json:"trigger"`

	Recommendation StakeRecommendation `json:"recommendation"`
	Timing         string              `json:"timing"`
	CreatedAt      time.Time           `json:"created_at"`
}

// highValueTriggers promote the plan to the stricter confidence level
// on their own.
var highValueTriggers = map[triggers.Key]bool{
	triggers.VsBottom5Home: true,
	triggers.Classico:      true,
	triggers.PostLossHome:  true,
}

// SelectConfidence chooses the confidence level backing the plan: a
// high-value trigger or two concurrent triggers justify the 80% level,
// anything else stays at the conservative 70%.
func SelectConfidence(fired []triggers.Result) analysis.Confidence {
	count := 0
	for _, r := range fired {
		if !r.Fired {
			continue
		}
		count++
		if highValueTriggers[r.Key] {
			return analysis.Confidence80
		}
	}
	if count >= 2 {
		return analysis.Confidence80
	}
	return analysis.Confidence70
}

// marketProbability derives the probability backing one market. When
// the minimum at the chosen confidence level already covers the
// outcome, the confidence level itself is the probability; otherwise
// the historical scenario frequency is used. Both are conservative
// minimum-achievement rates, never means.
func marketProbability(venue analysis.VenueStats, scenario analysis.Scenario, mins analysis.MinimumSet, threshold int, c analysis.Confidence) (decimal.Decimal, bool) {
	if mins.At(c) >= threshold {
		return decimal.NewFromFloat(float64(c)), true
	}
	p := decimal.NewFromFloat(venue.Scenarios[scenario])
	if p.GreaterThan(maxProbability) {
		p = maxProbability
	}
	return p, false
}

func sizeMarket(market string, scenario analysis.Scenario, prob decimal.Decimal, odds decimal.Decimal, guaranteed bool, cfg PlanConfig) (StakeRecommendation, error) {
	rec := StakeRecommendation{
		Market:      market,
		Scenario:    string(scenario),
		Probability: prob,
		Odds:        odds,
		Guaranteed:  guaranteed,
	}
	if prob.LessThanOrEqual(decimal.Zero) {
		// No historical support for the scenario; recommend nothing.
		rec.Fraction = decimal.Zero
		rec.Stake = decimal.Zero
		return rec, nil
	}

	f, err := Fraction(prob, odds, cfg.Cap)
	if err != nil {
		return rec, err
	}
	rec.Fraction = f
	rec.Stake = cfg.Bankroll.Mul(f).Round(2)
	return rec, nil
}

const (
	defaultStopLoss   = "50% of stake"
	defaultTakeProfit = "80% profit target"
)

var phaseSplit = []struct {
	name   string
	share  decimal.Decimal
	timing string
}{
	{"Pre-match", decimal.RequireFromString("0.4"), "30 minutes before kickoff"},
	{"Live Entry 1", decimal.RequireFromString("0.3"), "15-20 minutes if 0-0"},
	{"Live Entry 2", decimal.RequireFromString("0.3"), "HT if triggers active"},
}

// BuildPlan assembles the trading plan for one upcoming fixture from
// the team's current analysis and the fired pre-match triggers.
func BuildPlan(fx apifootball.Fixture, team *analysis.TeamAnalysis, fired []triggers.Result, cfg PlanConfig) (*TradingPlan, error) {
	venue := team.Venue(fx.IsHome)
	confidence := SelectConfidence(fired)

	over15Prob, over15Guar := marketProbability(venue, analysis.ScenarioOver15, venue.TotalGoals, 2, confidence)
	over25Prob, over25Guar := marketProbability(venue, analysis.ScenarioOver25, venue.TotalGoals, 3, confidence)
	bttsProb := decimal.NewFromFloat(venue.Scenarios[analysis.ScenarioBTTS])
	if bttsProb.GreaterThan(maxProbability) {
		bttsProb = maxProbability
	}

	primary, err := sizeMarket(MarketOver15, analysis.ScenarioOver15, over15Prob, cfg.Odds.Over15, over15Guar, cfg)
	if err != nil {
		return nil, err
	}
	over25, err := sizeMarket(MarketOver25, analysis.ScenarioOver25, over25Prob, cfg.Odds.Over25, over25Guar, cfg)
	if err != nil {
		return nil, err
	}
	btts, err := sizeMarket(MarketBTTS, analysis.ScenarioBTTS, bttsProb, cfg.Odds.BTTS, false, cfg)
	if err != nil {
		return nil, err
	}

	recommended := primary.Fraction
	if over25.Fraction.GreaterThan(recommended) {
		recommended = over25.Fraction
	}

	phases := make([]EntryPhase, 0, len(phaseSplit))
	for _, p := range phaseSplit {
		phases = append(phases, EntryPhase{
			Phase:    p.name,
			Fraction: recommended.Mul(p.share).Round(4),
			Timing:   p.timing,
			Markets:  []string{primary.Market},
		})
	}

	return &TradingPlan{
		ID:                  uuid.NewString(),
		FixtureID:           fx.FixtureID,
		TeamID:              fx.TeamID,
		TeamName:            fx.TeamName,
		Opponent:            fx.Opponent,
		Competition:         fx.Competition,
		Kickoff:             fx.Date,
		IsHome:              fx.IsHome,
		Confidence:          confidence,
		TriggerScore:        triggers.Score(fired),
		Triggers:            fired,
		TeamGoalMins:        venue.TeamGoals,
		TotalGoalMins:       venue.TotalGoals,
		HTGoalMins:          venue.HTGoals,
		Primary:             primary,
		Backups:             []StakeRecommendation{over25, btts},
		RecommendedFraction: recommended,
		EntryPhases:         phases,
		StopLoss:            defaultStopLoss,
		TakeProfit:          defaultTakeProfit,
		CreatedAt:           time.Now().UTC(),
	}, nil
}

// BuildLivePlan sizes the half-time recommendation for one fired live
// trigger. The probability is the historical second-half goal rate at
// the fixture's venue.
func BuildLivePlan(match apifootball.LiveMatch, teamName string, team *analysis.TeamAnalysis, trigger triggers.Result, cfg PlanConfig) (*LivePlan, error) {
	venue := team.Venue(match.IsHome)

	prob := decimal.NewFromFloat(venue.Scenarios[analysis.ScenarioSecondHalf15])
	if prob.GreaterThan(maxProbability) {
		prob = maxProbability
	}

	rec, err := sizeMarket(MarketLiveOver15, analysis.ScenarioSecondHalf15, prob, cfg.Odds.LiveOver15, false, cfg)
	if err != nil {
		return nil, err
	}

	return &LivePlan{
		FixtureID:      match.FixtureID,
		TeamName:       teamName,
		Opponent:       match.Opponent,
		Minute:         match.Elapsed,
		Score:          match.Score,
		Trigger:        trigger.Key,
		Recommendation: rec,
		Timing:         "HT - 2nd half kickoff",
		CreatedAt:      time.Now().UTC(),
	}, nil
}
