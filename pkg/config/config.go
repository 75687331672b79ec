// Package config loads the bot configuration from a YAML file plus
// environment variables for secrets.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/Xavi146570/team-specialist-bot/pkg/apifootball"
	"github.com/Xavi146570/team-specialist-bot/pkg/bot/kelly"
)

// Duration decodes YAML duration strings such as "5m" or "48h".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the standard library duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Team identifies one monitored team. The ID may be omitted for the
// tracked clubs; Load resolves it from the name.
type Team struct {
	ID   int    `yaml:"id,omitempty"`
	Name string `yaml:"name"`
}

// ScheduleConfig holds the cron expressions driving the bot.
type ScheduleConfig struct {
	FullAnalysis  string `yaml:"full_analysis"`
	FixtureChecks string `yaml:"fixture_checks"`
	Cleanup       string `yaml:"cleanup"`
}

// LiveConfig bounds the live half-time monitoring loop.
type LiveConfig struct {
	PollInterval Duration `yaml:"poll_interval"`
	WindowStart  int      `yaml:"window_start"`
	WindowEnd    int      `yaml:"window_end"`
	AlertTTL     Duration `yaml:"alert_ttl"`

	// MinPatternSample is the sample floor for pattern-gated triggers:
	// a pattern needs strictly more historical occurrences to arm.
	MinPatternSample int `yaml:"min_pattern_sample"`
}

// OddsConfig holds the bookmaker decimal prices per market.
type OddsConfig struct {
	Over15     float64 `yaml:"over_1_5"`
	Over25     float64 `yaml:"over_2_5"`
	BTTS       float64 `yaml:"btts"`
	LiveOver15 float64 `yaml:"live_over_1_5"`
}

// MarketOdds converts the configured prices into sizing inputs.
func (o OddsConfig) MarketOdds() kelly.MarketOdds {
	return kelly.MarketOdds{
		Over15:     decimal.NewFromFloat(o.Over15),
		Over25:     decimal.NewFromFloat(o.Over25),
		BTTS:       decimal.NewFromFloat(o.BTTS),
		LiveOver15: decimal.NewFromFloat(o.LiveOver15),
	}
}

// KellyConfig holds stake sizing parameters.
type KellyConfig struct {
	Cap      float64    `yaml:"cap"`
	Bankroll float64    `yaml:"bankroll"`
	Odds     OddsConfig `yaml:"odds"`
}

// APIConfig configures the football data client.
type APIConfig struct {
	BaseURL        string  `yaml:"base_url"`
	RequestsPerSec float64 `yaml:"requests_per_sec"`
	Burst          int     `yaml:"burst"`
}

// Config is the full immutable runtime configuration.
type Config struct {
	Teams []Team `yaml:"teams"`

	HistoryYears      int `yaml:"history_years"`
	FixtureWindowDays int `yaml:"fixture_window_days"`

	Schedule ScheduleConfig `yaml:"schedule"`
	Live     LiveConfig     `yaml:"live"`
	Kelly    KellyConfig    `yaml:"kelly"`
	API      APIConfig      `yaml:"api"`

	ReportDir     string   `yaml:"report_dir"`
	PlanExpiryAge Duration `yaml:"plan_expiry_age"`
	EnableRedis   bool     `yaml:"enable_redis"`

	// Secrets, populated from the environment.
	APIFootballKey   string `yaml:"-"`
	TelegramBotToken string `yaml:"-"`
	TelegramChatID   int64  `yaml:"-"`

	DatabaseHost     string `yaml:"-"`
	DatabasePort     int    `yaml:"-"`
	DatabaseName     string `yaml:"-"`
	DatabaseUser     string `yaml:"-"`
	DatabasePassword string `yaml:"-"`

	RedisAddr     string `yaml:"-"`
	RedisPassword string `yaml:"-"`
}

// Default returns the configuration used when no file overrides it:
// the three Portuguese giants, five seasons of history and the
// production schedule.
func Default() *Config {
	return &Config{
		Teams: []Team{
			{ID: 212, Name: "FC Porto"},
			{ID: 211, Name: "Benfica"},
			{ID: 228, Name: "Sporting CP"},
		},
		HistoryYears:      5,
		FixtureWindowDays: 7,
		Schedule: ScheduleConfig{
			FullAnalysis:  "0 2 * * 0",
			FixtureChecks: "0 10,18 * * *",
			Cleanup:       "0 3 * * *",
		},
		Live: LiveConfig{
			PollInterval:     Duration(5 * time.Minute),
			WindowStart:      30,
			WindowEnd:        45,
			AlertTTL:         Duration(2 * time.Hour),
			MinPatternSample: 5,
		},
		Kelly: KellyConfig{
			Cap:      0.25,
			Bankroll: 1000,
			Odds: OddsConfig{
				Over15:     1.5,
				Over25:     2.0,
				BTTS:       1.8,
				LiveOver15: 2.0,
			},
		},
		API: APIConfig{
			RequestsPerSec: 5,
			Burst:          3,
		},
		ReportDir:     "reports",
		PlanExpiryAge: Duration(48 * time.Hour),
		EnableRedis:   true,
	}
}

// Load reads the YAML file (when path is non-empty), applies defaults
// for anything unset and pulls secrets from the environment. A .env
// file is honored when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	if err := cfg.resolveTeams(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveTeams fills in missing team IDs from the club name.
func (c *Config) resolveTeams() error {
	for i := range c.Teams {
		t := &c.Teams[i]
		if t.ID != 0 {
			continue
		}
		id, ok := apifootball.MatchBig3Name(t.Name)
		if !ok {
			return fmt.Errorf("unknown team %q: configure an explicit id", t.Name)
		}
		t.ID = id
	}
	return nil
}

func (c *Config) loadEnv() error {
	c.APIFootballKey = os.Getenv("APIFOOTBALL_API_KEY")
	c.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")

	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse TELEGRAM_CHAT_ID: %w", err)
		}
		c.TelegramChatID = id
	}

	c.DatabaseHost = envOr("DATABASE_HOST", "localhost")
	c.DatabaseName = envOr("DATABASE_NAME", "specialist")
	c.DatabaseUser = envOr("DATABASE_USER", "specialist")
	c.DatabasePassword = os.Getenv("DATABASE_PASSWORD")
	if v := os.Getenv("DATABASE_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse DATABASE_PORT: %w", err)
		}
		c.DatabasePort = port
	} else {
		c.DatabasePort = 5432
	}

	c.RedisAddr = envOr("REDIS_ADDR", "localhost:6379")
	c.RedisPassword = os.Getenv("REDIS_PASSWORD")
	return nil
}

func (c *Config) validate() error {
	if c.APIFootballKey == "" {
		return fmt.Errorf("APIFOOTBALL_API_KEY is required")
	}
	if len(c.Teams) == 0 {
		return fmt.Errorf("at least one team must be configured")
	}
	if c.Live.WindowStart >= c.Live.WindowEnd {
		return fmt.Errorf("live window start (%d) must precede end (%d)", c.Live.WindowStart, c.Live.WindowEnd)
	}
	if c.Kelly.Cap <= 0 || c.Kelly.Cap > 1 {
		return fmt.Errorf("kelly cap must be in (0, 1], got %v", c.Kelly.Cap)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
