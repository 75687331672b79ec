// Package storage persists team analyses, minimum sets and trading
// plans to Postgres, and guards alert duplication through Redis.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/Xavi146570/team-specialist-bot/pkg/bot/analysis"
	"github.com/Xavi146570/team-specialist-bot/pkg/bot/kelly"
)

// ErrNotFound is returned when a lookup matches no rows.
var ErrNotFound = errors.New("storage: not found")

// Config holds the Postgres connection parameters.
type Config struct {
	Host     string
	Port     int
	DBName   string
	User     string
	Password string
	SSLMode  string
}

// Database wraps the GORM connection.
type Database struct {
	db *gorm.DB
}

// Connect establishes the database connection and migrates the schema.
func Connect(cfg Config) (*Database, error) {
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.DBName, cfg.User, cfg.Password, sslmode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := db.AutoMigrate(&TeamAnalysisRecord{}, &MinimumSetRecord{}, &TradingPlanRecord{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &Database{db: db}, nil
}

// Close closes the underlying connection.
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Repository implements the orchestrator's store contract over the
// database.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a repository over an open database.
func NewRepository(d *Database) *Repository {
	return &Repository{db: d.db}
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// SaveAnalysis upserts one analysis snapshot keyed by (team,
// computation day), together with its six minimum-set rows.
func (r *Repository) SaveAnalysis(ctx context.Context, a *analysis.TeamAnalysis) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	record := TeamAnalysisRecord{
		TeamID:         a.TeamID,
		ComputationDay: dayKey(a.ComputedAt),
		TeamName:       a.TeamName,
		TotalMatches:   a.TotalMatches,
		RangeStart:     a.RangeStart,
		RangeEnd:       a.RangeEnd,
		Payload:        string(payload),
	}

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "team_id"}, {Name: "computation_day"}},
		DoUpdates: clause.AssignmentColumns([]string{"team_name", "total_matches", "range_start", "range_end", "payload", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}

	return r.saveMinimumSets(ctx, a)
}

func (r *Repository) saveMinimumSets(ctx context.Context, a *analysis.TeamAnalysis) error {
	day := dayKey(a.ComputedAt)

	rows := make([]MinimumSetRecord, 0, 6)
	add := func(venue, statistic string, set analysis.MinimumSet) {
		rows = append(rows, MinimumSetRecord{
			TeamID:         a.TeamID,
			Venue:          venue,
			Statistic:      statistic,
			ComputationDay: day,
			Min70:          set.Min70,
			Min80:          set.Min80,
			Min90:          set.Min90,
			SampleSize:     set.SampleSize,
			Degenerate:     set.Degenerate,
		})
	}

	add("home", "team_goals", a.Home.TeamGoals)
	add("home", "total_goals", a.Home.TotalGoals)
	add("home", "ht_goals", a.Home.HTGoals)
	add("away", "team_goals", a.Away.TeamGoals)
	add("away", "total_goals", a.Away.TotalGoals)
	add("away", "ht_goals", a.Away.HTGoals)

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "team_id"}, {Name: "venue"}, {Name: "statistic"}, {Name: "computation_day"}},
		DoUpdates: clause.AssignmentColumns([]string{"min_70", "min_80", "min_90", "sample_size", "degenerate", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("save minimum sets: %w", err)
	}
	return nil
}

// LatestAnalysis loads the most recent analysis snapshot for a team.
func (r *Repository) LatestAnalysis(ctx context.Context, teamID int) (*analysis.TeamAnalysis, error) {
	var record TeamAnalysisRecord
	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("computation_day DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: analysis for team %d", ErrNotFound, teamID)
	}
	if err != nil {
		return nil, fmt.Errorf("load analysis: %w", err)
	}

	var a analysis.TeamAnalysis
	if err := json.Unmarshal([]byte(record.Payload), &a); err != nil {
		return nil, fmt.Errorf("unmarshal analysis: %w", err)
	}
	return &a, nil
}

// SavePlan inserts one trading plan.
func (r *Repository) SavePlan(ctx context.Context, p *kelly.TradingPlan) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}

	record := TradingPlanRecord{
		ID:                  p.ID,
		FixtureID:           p.FixtureID,
		TeamID:              p.TeamID,
		TeamName:            p.TeamName,
		Opponent:            p.Opponent,
		Competition:         p.Competition,
		IsHome:              p.IsHome,
		MatchDate:           p.Kickoff,
		Confidence:          fmt.Sprintf("%.2f", float64(p.Confidence)),
		TriggerScore:        p.TriggerScore,
		RecommendedFraction: p.RecommendedFraction.String(),
		Status:              PlanStatusPending,
		Payload:             string(payload),
	}

	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	return nil
}

// UpdatePlanLive appends half-time data to the latest plan for a
// fixture.
func (r *Repository) UpdatePlanLive(ctx context.Context, fixtureID int64, live *kelly.LivePlan) error {
	payload, err := json.Marshal(live)
	if err != nil {
		return fmt.Errorf("marshal live plan: %w", err)
	}

	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&TradingPlanRecord{}).
		Where("fixture_id = ?", fixtureID).
		Updates(map[string]interface{}{
			"live_payload":   string(payload),
			"ht_score":       live.Score,
			"ht_detected_at": &now,
		})
	if result.Error != nil {
		return fmt.Errorf("update plan live: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: plan for fixture %d", ErrNotFound, fixtureID)
	}
	return nil
}

// UpcomingPlans lists pending plans with match dates inside the next N
// days.
func (r *Repository) UpcomingPlans(ctx context.Context, days int) ([]TradingPlanRecord, error) {
	now := time.Now().UTC()
	var records []TradingPlanRecord
	err := r.db.WithContext(ctx).
		Where("match_date >= ? AND match_date <= ? AND status = ?", now, now.AddDate(0, 0, days), PlanStatusPending).
		Order("match_date ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("load upcoming plans: %w", err)
	}
	return records, nil
}

// ExpireOrphanPlans marks pending plans older than the cutoff as
// expired so stale recommendations never accumulate.
func (r *Repository) ExpireOrphanPlans(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	result := r.db.WithContext(ctx).
		Model(&TradingPlanRecord{}).
		Where("status = ? AND created_at < ?", PlanStatusPending, cutoff).
		Update("status", PlanStatusExpired)
	if result.Error != nil {
		return 0, fmt.Errorf("expire orphan plans: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		log.Info().Int64("plans", result.RowsAffected).Msg("expired orphan plans")
	}
	return result.RowsAffected, nil
}
