package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APIFOOTBALL_API_KEY", "test-key")
	t.Setenv("TELEGRAM_BOT_TOKEN", "bot-token")
	t.Setenv("TELEGRAM_CHAT_ID", "12345")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Teams) != 3 {
		t.Errorf("len(Teams) = %d, want the three tracked clubs", len(cfg.Teams))
	}
	if cfg.HistoryYears != 5 {
		t.Errorf("HistoryYears = %d, want 5", cfg.HistoryYears)
	}
	if cfg.Live.WindowStart != 30 || cfg.Live.WindowEnd != 45 {
		t.Errorf("live window = %d-%d, want 30-45", cfg.Live.WindowStart, cfg.Live.WindowEnd)
	}
	if cfg.Kelly.Cap != 0.25 {
		t.Errorf("Kelly.Cap = %v, want 0.25", cfg.Kelly.Cap)
	}
	if cfg.Schedule.FullAnalysis != "0 2 * * 0" {
		t.Errorf("FullAnalysis = %q, want weekly Sunday 02:00", cfg.Schedule.FullAnalysis)
	}
	if cfg.PlanExpiryAge.Std() != 48*time.Hour {
		t.Errorf("PlanExpiryAge = %v, want 48h", cfg.PlanExpiryAge)
	}

	if cfg.APIFootballKey != "test-key" {
		t.Errorf("APIFootballKey = %q, want test-key", cfg.APIFootballKey)
	}
	if cfg.TelegramChatID != 12345 {
		t.Errorf("TelegramChatID = %d, want 12345", cfg.TelegramChatID)
	}
	if cfg.DatabasePort != 5432 {
		t.Errorf("DatabasePort = %d, want 5432", cfg.DatabasePort)
	}
}

func TestLoadYAMLOverrides(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
teams:
  - id: 212
    name: FC Porto
history_years: 3
fixture_window_days: 10
live:
  poll_interval: 2m
  window_start: 30
  window_end: 45
  alert_ttl: 1h
  min_pattern_sample: 5
kelly:
  cap: 0.2
  bankroll: 500
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Teams) != 1 || cfg.Teams[0].ID != 212 {
		t.Errorf("Teams = %+v, want only FC Porto", cfg.Teams)
	}
	if cfg.HistoryYears != 3 {
		t.Errorf("HistoryYears = %d, want 3", cfg.HistoryYears)
	}
	if cfg.Live.PollInterval.Std() != 2*time.Minute {
		t.Errorf("PollInterval = %v, want 2m", cfg.Live.PollInterval)
	}
	if cfg.Kelly.Cap != 0.2 || cfg.Kelly.Bankroll != 500 {
		t.Errorf("Kelly = %+v, want cap 0.2 bankroll 500", cfg.Kelly)
	}
	// Untouched values keep their defaults.
	if cfg.Schedule.Cleanup != "0 3 * * *" {
		t.Errorf("Cleanup = %q, want default", cfg.Schedule.Cleanup)
	}
}

func TestLoadResolvesTeamNames(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("teams:\n  - name: Sporting CP\n  - name: SL Benfica\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Teams[0].ID != 228 {
		t.Errorf("Sporting CP resolved to %d, want 228", cfg.Teams[0].ID)
	}
	if cfg.Teams[1].ID != 211 {
		t.Errorf("SL Benfica resolved to %d, want 211", cfg.Teams[1].ID)
	}
}

func TestLoadRejectsUnknownTeamName(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("teams:\n  - name: Gil Vicente\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load() = nil, want error for an unresolvable team name")
	}
}

func TestLoadValidation(t *testing.T) {
	t.Run("missing api key", func(t *testing.T) {
		t.Setenv("APIFOOTBALL_API_KEY", "")
		if _, err := Load(""); err == nil {
			t.Error("Load() = nil, want error without APIFOOTBALL_API_KEY")
		}
	})

	t.Run("inverted live window", func(t *testing.T) {
		setRequiredEnv(t)
		path := filepath.Join(t.TempDir(), "config.yaml")
		data := []byte("live:\n  poll_interval: 5m\n  window_start: 45\n  window_end: 30\n  alert_ttl: 1h\n  min_pattern_sample: 5\n")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Error("Load() = nil, want error for inverted live window")
		}
	})

	t.Run("bad chat id", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("TELEGRAM_CHAT_ID", "not-a-number")
		if _, err := Load(""); err == nil {
			t.Error("Load() = nil, want error for malformed chat id")
		}
	})
}
