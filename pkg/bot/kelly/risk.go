package kelly

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// RiskLimits bounds how much of the bankroll the bot may commit across
// plans, on top of the per-bet Kelly cap.
type RiskLimits struct {
	MaxFractionPerFixture decimal.Decimal // cumulative fraction per fixture
	MaxDailyFraction      decimal.Decimal // cumulative fraction per day
	MaxPlansPerDay        int
}

// DefaultRiskLimits returns conservative default limits.
func DefaultRiskLimits() *RiskLimits {
	return &RiskLimits{
		MaxFractionPerFixture: decimal.RequireFromString("0.25"),
		MaxDailyFraction:      decimal.RequireFromString("0.50"),
		MaxPlansPerDay:        10,
	}
}

// RiskManager tracks committed fractions and enforces the limits.
type RiskManager struct {
	limits *RiskLimits

	mu              sync.Mutex
	fixtureExposure map[int64]decimal.Decimal
	dailyFraction   decimal.Decimal
	dailyPlans      int
	day             int // day of year
}

// NewRiskManager creates a risk manager with the given limits.
func NewRiskManager(limits *RiskLimits) *RiskManager {
	if limits == nil {
		limits = DefaultRiskLimits()
	}
	return &RiskManager{
		limits:          limits,
		fixtureExposure: make(map[int64]decimal.Decimal),
		day:             time.Now().YearDay(),
	}
}

// Allow checks whether a plan's recommended fraction fits the limits.
// It returns the blocking reason when it does not.
func (r *RiskManager) Allow(fixtureID int64, fraction decimal.Decimal) (bool, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetDailyIfNeeded()

	if r.dailyPlans >= r.limits.MaxPlansPerDay {
		return false, "daily plan limit reached"
	}
	if r.fixtureExposure[fixtureID].Add(fraction).GreaterThan(r.limits.MaxFractionPerFixture) {
		return false, "would exceed per-fixture exposure limit"
	}
	if r.dailyFraction.Add(fraction).GreaterThan(r.limits.MaxDailyFraction) {
		return false, "would exceed daily exposure limit"
	}
	return true, ""
}

// Record commits a plan's fraction against the limits.
func (r *RiskManager) Record(fixtureID int64, fraction decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetDailyIfNeeded()

	r.fixtureExposure[fixtureID] = r.fixtureExposure[fixtureID].Add(fraction)
	r.dailyFraction = r.dailyFraction.Add(fraction)
	r.dailyPlans++
}

// FixtureExposure returns the committed fraction for one fixture.
func (r *RiskManager) FixtureExposure(fixtureID int64) decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fixtureExposure[fixtureID]
}

func (r *RiskManager) resetDailyIfNeeded() {
	today := time.Now().YearDay()
	if r.day != today {
		r.dailyFraction = decimal.Zero
		r.dailyPlans = 0
		r.day = today
	}
}
