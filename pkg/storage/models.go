package storage

import "time"

// Plan lifecycle states.
const (
	PlanStatusPending = "pending"
	PlanStatusExpired = "expired"
)

// TeamAnalysisRecord is one persisted analysis snapshot, upserted per
// team per computation day.
type TeamAnalysisRecord struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"`
	TeamID         int       `gorm:"column:team_id;uniqueIndex:idx_analysis_team_day"`
	ComputationDay string    `gorm:"column:computation_day;size:10;uniqueIndex:idx_analysis_team_day"`
	TeamName       string    `gorm:"column:team_name"`
	TotalMatches   int       `gorm:"column:total_matches"`
	RangeStart     time.Time `gorm:"column:range_start"`
	RangeEnd       time.Time `gorm:"column:range_end"`

	// Payload is the full serialized TeamAnalysis.
	Payload string `gorm:"column:payload;type:jsonb"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName sets the table name for GORM.
func (TeamAnalysisRecord) TableName() string {
	return "team_specialist_analysis"
}

// MinimumSetRecord is one persisted minimum-value set, upserted per
// (team, venue, statistic, computation day).
type MinimumSetRecord struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	TeamID         int    `gorm:"column:team_id;uniqueIndex:idx_minimums_key"`
	Venue          string `gorm:"column:venue;size:4;uniqueIndex:idx_minimums_key"`
	Statistic      string `gorm:"column:statistic;size:16;uniqueIndex:idx_minimums_key"`
	ComputationDay string `gorm:"column:computation_day;size:10;uniqueIndex:idx_minimums_key"`

	Min70      int  `gorm:"column:min_70"`
	Min80      int  `gorm:"column:min_80"`
	Min90      int  `gorm:"column:min_90"`
	SampleSize int  `gorm:"column:sample_size"`
	Degenerate bool `gorm:"column:degenerate"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName sets the table name for GORM.
func (MinimumSetRecord) TableName() string {
	return "team_minimum_sets"
}

// TradingPlanRecord is one persisted trading plan. Plans are inserted
// per analysis run; live half-time data is appended later by fixture.
type TradingPlanRecord struct {
	ID          string    `gorm:"primaryKey;size:36"`
	FixtureID   int64     `gorm:"column:fixture_id;index"`
	TeamID      int       `gorm:"column:team_id"`
	TeamName    string    `gorm:"column:team_name"`
	Opponent    string    `gorm:"column:opponent"`
	Competition string    `gorm:"column:competition"`
	IsHome      bool      `gorm:"column:is_home"`
	MatchDate   time.Time `gorm:"column:match_date;index"`

	Confidence          string `gorm:"column:confidence;size:8"`
	TriggerScore        int    `gorm:"column:trigger_score"`
	RecommendedFraction string `gorm:"column:recommended_fraction;size:16"`
	Status              string `gorm:"column:status;size:16;default:pending;index"`

	// Payload is the full serialized TradingPlan; LivePayload holds
	// the half-time update when one arrives.
	Payload      string     `gorm:"column:payload;type:jsonb"`
	LivePayload  string     `gorm:"column:live_payload;type:jsonb"`
	HTScore      string     `gorm:"column:ht_score;size:8"`
	HTDetectedAt *time.Time `gorm:"column:ht_detected_at"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName sets the table name for GORM.
func (TradingPlanRecord) TableName() string {
	return "team_trading_plans"
}
