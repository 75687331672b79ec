package kelly

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Xavi146570/team-specialist-bot/pkg/apifootball"
	"github.com/Xavi146570/team-specialist-bot/pkg/bot/analysis"
	"github.com/Xavi146570/team-specialist-bot/pkg/bot/triggers"
)

func fired(keys ...triggers.Key) []triggers.Result {
	results := make([]triggers.Result, len(keys))
	for i, k := range keys {
		results[i] = triggers.Result{Key: k, Fired: true}
	}
	return results
}

func TestSelectConfidence(t *testing.T) {
	tests := []struct {
		name  string
		fired []triggers.Result
		want  analysis.Confidence
	}{
		{"no triggers", nil, analysis.Confidence70},
		{"single ordinary trigger", fired(triggers.VsTop3Home), analysis.Confidence70},
		{"high value trigger alone", fired(triggers.VsBottom5Home), analysis.Confidence80},
		{"classico alone", fired(triggers.Classico), analysis.Confidence80},
		{"post loss alone", fired(triggers.PostLossHome), analysis.Confidence80},
		{"two ordinary triggers", fired(triggers.VsTop3Home, triggers.ChampionsWeek), analysis.Confidence80},
		{
			name: "unfired results ignored",
			fired: []triggers.Result{
				{Key: triggers.Classico, Fired: false},
				{Key: triggers.VsTop3Home, Fired: true},
			},
			want: analysis.Confidence70,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SelectConfidence(tt.fired); got != tt.want {
				t.Errorf("SelectConfidence() = %v, want %v", got, tt.want)
			}
		})
	}
}

func testAnalysis() *analysis.TeamAnalysis {
	venue := analysis.VenueStats{
		Matches:    20,
		TeamGoals:  analysis.MinimumSet{Min70: 2, Min80: 1, Min90: 1, SampleSize: 20},
		TotalGoals: analysis.MinimumSet{Min70: 3, Min80: 2, Min90: 1, SampleSize: 20},
		HTGoals:    analysis.MinimumSet{Min70: 1, Min80: 1, Min90: 0, SampleSize: 20},
		Scenarios: map[analysis.Scenario]float64{
			analysis.ScenarioOver15:       0.85,
			analysis.ScenarioOver25:       0.60,
			analysis.ScenarioBTTS:         0.55,
			analysis.ScenarioSecondHalf15: 0.45,
		},
	}
	return &analysis.TeamAnalysis{
		TeamID:   212,
		TeamName: "FC Porto",
		Home:     venue,
		Away:     venue,
	}
}

func testFixture() apifootball.Fixture {
	return apifootball.Fixture{
		FixtureID:   9001,
		Date:        time.Date(2026, 3, 7, 20, 30, 0, 0, time.UTC),
		Competition: "Primeira Liga",
		LeagueID:    apifootball.LeaguePrimeiraLiga,
		IsHome:      true,
		TeamID:      212,
		TeamName:    "FC Porto",
		Opponent:    "Estrela",
		OpponentID:  15001,
	}
}

func TestBuildPlan(t *testing.T) {
	plan, err := BuildPlan(testFixture(), testAnalysis(), fired(triggers.VsBottom5Home), DefaultPlanConfig())
	if err != nil {
		t.Fatalf("BuildPlan() error = %v", err)
	}

	if plan.ID == "" {
		t.Error("plan has no ID")
	}
	if plan.Confidence != analysis.Confidence80 {
		t.Errorf("Confidence = %v, want 0.80", plan.Confidence)
	}
	if plan.TriggerScore != 10 {
		t.Errorf("TriggerScore = %d, want 10", plan.TriggerScore)
	}

	// Min80 for total goals is 2, covering over 1.5: the confidence
	// level itself backs the primary market.
	if !plan.Primary.Guaranteed {
		t.Error("Primary.Guaranteed = false, want true")
	}
	if !plan.Primary.Probability.Equal(dec("0.8")) {
		t.Errorf("Primary.Probability = %s, want 0.8", plan.Primary.Probability)
	}

	// f = (0.5*0.8 - 0.2) / 0.5 = 0.4, capped at 0.25
	if !plan.Primary.Fraction.Equal(dec("0.25")) {
		t.Errorf("Primary.Fraction = %s, want 0.25", plan.Primary.Fraction)
	}
	if !plan.Primary.Stake.Equal(dec("250")) {
		t.Errorf("Primary.Stake = %s, want 250", plan.Primary.Stake)
	}

	if len(plan.Backups) != 2 {
		t.Fatalf("len(Backups) = %d, want 2", len(plan.Backups))
	}

	if plan.RecommendedFraction.LessThan(plan.Primary.Fraction) &&
		plan.RecommendedFraction.LessThan(plan.Backups[0].Fraction) {
		t.Errorf("RecommendedFraction = %s, below both candidate markets", plan.RecommendedFraction)
	}

	if plan.StopLoss != "50% of stake" {
		t.Errorf("StopLoss = %q, want the standing exit rule", plan.StopLoss)
	}
	if plan.TakeProfit != "80% profit target" {
		t.Errorf("TakeProfit = %q, want the standing exit rule", plan.TakeProfit)
	}
}

func TestBuildPlanEntryPhases(t *testing.T) {
	plan, err := BuildPlan(testFixture(), testAnalysis(), fired(triggers.VsTop3Home), DefaultPlanConfig())
	if err != nil {
		t.Fatalf("BuildPlan() error = %v", err)
	}

	if len(plan.EntryPhases) != 3 {
		t.Fatalf("len(EntryPhases) = %d, want 3", len(plan.EntryPhases))
	}

	total := decimal.Zero
	for _, ph := range plan.EntryPhases {
		total = total.Add(ph.Fraction)
	}
	if !total.Equal(plan.RecommendedFraction.Round(4)) {
		t.Errorf("phase fractions sum to %s, want %s", total, plan.RecommendedFraction)
	}

	wantShares := []string{"0.4", "0.3", "0.3"}
	for i, ph := range plan.EntryPhases {
		want := plan.RecommendedFraction.Mul(dec(wantShares[i])).Round(4)
		if !ph.Fraction.Equal(want) {
			t.Errorf("phase %q fraction = %s, want %s", ph.Phase, ph.Fraction, want)
		}
	}
}

func TestBuildPlanNoHistoricalSupport(t *testing.T) {
	snap := testAnalysis()
	venue := snap.Home
	venue.Scenarios = map[analysis.Scenario]float64{}
	venue.TotalGoals = analysis.MinimumSet{Min70: 0, Min80: 0, Min90: 0, SampleSize: 20}
	snap.Home = venue

	plan, err := BuildPlan(testFixture(), snap, fired(triggers.VsTop3Home), DefaultPlanConfig())
	if err != nil {
		t.Fatalf("BuildPlan() error = %v", err)
	}
	if !plan.Primary.Fraction.IsZero() {
		t.Errorf("Primary.Fraction = %s, want 0 with no historical support", plan.Primary.Fraction)
	}
	if !plan.RecommendedFraction.IsZero() {
		t.Errorf("RecommendedFraction = %s, want 0", plan.RecommendedFraction)
	}
}

func TestBuildLivePlan(t *testing.T) {
	match := apifootball.LiveMatch{
		FixtureID: 9002,
		Elapsed:   38,
		IsHome:    true,
		TeamID:    212,
		Opponent:  "Braga",
		Score:     "0-0",
	}
	trigger := triggers.Result{Key: triggers.HT0x0After30Home, Fired: true}

	plan, err := BuildLivePlan(match, "FC Porto", testAnalysis(), trigger, DefaultPlanConfig())
	if err != nil {
		t.Fatalf("BuildLivePlan() error = %v", err)
	}

	if plan.Trigger != triggers.HT0x0After30Home {
		t.Errorf("Trigger = %s, want %s", plan.Trigger, triggers.HT0x0After30Home)
	}
	if plan.Recommendation.Market != MarketLiveOver15 {
		t.Errorf("Market = %s, want %s", plan.Recommendation.Market, MarketLiveOver15)
	}
	if !plan.Recommendation.Probability.Equal(dec("0.45")) {
		t.Errorf("Probability = %s, want 0.45 (historical 2nd half rate)", plan.Recommendation.Probability)
	}
	if plan.Minute != 38 || plan.Score != "0-0" {
		t.Errorf("Minute/Score = %d/%s, want 38/0-0", plan.Minute, plan.Score)
	}
}
