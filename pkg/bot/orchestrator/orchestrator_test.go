package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Xavi146570/team-specialist-bot/pkg/apifootball"
	"github.com/Xavi146570/team-specialist-bot/pkg/bot/analysis"
	"github.com/Xavi146570/team-specialist-bot/pkg/bot/kelly"
	"github.com/Xavi146570/team-specialist-bot/pkg/bot/metrics"
	"github.com/Xavi146570/team-specialist-bot/pkg/config"
)

type fakeSource struct {
	history  map[int][]apifootball.MatchRecord
	upcoming map[int][]apifootball.Fixture
	live     map[int][]apifootball.LiveMatch

	historyErr map[int]error
}

func (f *fakeSource) TeamHistory(ctx context.Context, teamID, years int) ([]apifootball.MatchRecord, error) {
	if err := f.historyErr[teamID]; err != nil {
		return nil, err
	}
	return f.history[teamID], nil
}

func (f *fakeSource) UpcomingFixtures(ctx context.Context, teamID, days int) ([]apifootball.Fixture, error) {
	return f.upcoming[teamID], nil
}

func (f *fakeSource) LiveFixtures(ctx context.Context, teamID int) ([]apifootball.LiveMatch, error) {
	return f.live[teamID], nil
}

type fakeStore struct {
	mu          sync.Mutex
	analyses    []*analysis.TeamAnalysis
	plans       []*kelly.TradingPlan
	liveUpdates map[int64]*kelly.LivePlan
	expired     int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{liveUpdates: make(map[int64]*kelly.LivePlan)}
}

func (f *fakeStore) SaveAnalysis(ctx context.Context, a *analysis.TeamAnalysis) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyses = append(f.analyses, a)
	return nil
}

func (f *fakeStore) LatestAnalysis(ctx context.Context, teamID int) (*analysis.TeamAnalysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.analyses) - 1; i >= 0; i-- {
		if f.analyses[i].TeamID == teamID {
			return f.analyses[i], nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeStore) SavePlan(ctx context.Context, p *kelly.TradingPlan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plans = append(f.plans, p)
	return nil
}

func (f *fakeStore) UpdatePlanLive(ctx context.Context, fixtureID int64, live *kelly.LivePlan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.liveUpdates[fixtureID] = live
	return nil
}

func (f *fakeStore) ExpireOrphanPlans(ctx context.Context, olderThan time.Duration) (int64, error) {
	return f.expired, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	plans []*kelly.TradingPlan
	lives []*kelly.LivePlan
	texts []string
	docs  []string
}

func (f *fakeNotifier) SendPlan(p *kelly.TradingPlan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plans = append(f.plans, p)
	return nil
}

func (f *fakeNotifier) SendLive(p *kelly.LivePlan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lives = append(f.lives, p)
	return nil
}

func (f *fakeNotifier) SendText(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeNotifier) SendDocument(path, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = append(f.docs, path)
	return nil
}

type fakeReporter struct {
	path string
	err  error
}

func (f *fakeReporter) Consolidated(analyses []*analysis.TeamAnalysis) (string, error) {
	return f.path, f.err
}

type fakeGuard struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (f *fakeGuard) FirstAlert(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func historyFor(teamID int) []apifootball.MatchRecord {
	base := time.Date(2025, 1, 4, 20, 0, 0, 0, time.UTC)
	var matches []apifootball.MatchRecord
	for i := 0; i < 12; i++ {
		isHome := i%2 == 0
		matches = append(matches, apifootball.MatchRecord{
			FixtureID:   int64(teamID*1000 + i),
			Date:        base.AddDate(0, 0, i*7),
			IsHome:      isHome,
			LeagueID:    apifootball.LeaguePrimeiraLiga,
			TeamGoals:   2,
			TotalGoals:  3,
			HTTeamGoals: 1,
			HTTotal:     1,
			Result:      apifootball.ResultWin,
			Over25:      true,
		})
	}
	return matches
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Teams = []config.Team{
		{ID: apifootball.TeamPorto, Name: "FC Porto"},
		{ID: apifootball.TeamBenfica, Name: "Benfica"},
	}
	return cfg
}

func newTestOrchestrator(source *fakeSource, store *fakeStore, notifier *fakeNotifier, opts ...Option) *Orchestrator {
	return New(testConfig(), source, store, notifier, &fakeReporter{path: "/tmp/report.pdf"}, metrics.New(), opts...)
}

func TestRunFullAnalysis(t *testing.T) {
	source := &fakeSource{history: map[int][]apifootball.MatchRecord{
		apifootball.TeamPorto:   historyFor(apifootball.TeamPorto),
		apifootball.TeamBenfica: historyFor(apifootball.TeamBenfica),
	}}
	store := newFakeStore()
	notifier := &fakeNotifier{}

	orch := newTestOrchestrator(source, store, notifier)
	if err := orch.RunFullAnalysis(context.Background()); err != nil {
		t.Fatalf("RunFullAnalysis() error = %v", err)
	}

	if len(store.analyses) != 2 {
		t.Errorf("saved %d analyses, want 2", len(store.analyses))
	}
	for _, a := range store.analyses {
		if a.Patterns == nil {
			t.Errorf("analysis for team %d has no pattern counts", a.TeamID)
		}
		if a.Home.Matches == 0 || a.Away.Matches == 0 {
			t.Errorf("analysis for team %d missing a venue", a.TeamID)
		}
	}
	if len(notifier.docs) != 1 {
		t.Errorf("sent %d reports, want 1", len(notifier.docs))
	}
}

func TestRunFullAnalysisIsolatesFailures(t *testing.T) {
	source := &fakeSource{
		history: map[int][]apifootball.MatchRecord{
			apifootball.TeamBenfica: historyFor(apifootball.TeamBenfica),
		},
		historyErr: map[int]error{
			apifootball.TeamPorto: apifootball.ErrUnavailable,
		},
	}
	store := newFakeStore()

	orch := newTestOrchestrator(source, store, &fakeNotifier{})
	if err := orch.RunFullAnalysis(context.Background()); err != nil {
		t.Fatalf("RunFullAnalysis() error = %v, one failing team must not abort the batch", err)
	}

	if len(store.analyses) != 1 {
		t.Fatalf("saved %d analyses, want 1", len(store.analyses))
	}
	if store.analyses[0].TeamID != apifootball.TeamBenfica {
		t.Errorf("surviving analysis is for team %d, want %d", store.analyses[0].TeamID, apifootball.TeamBenfica)
	}
}

func TestRunFullAnalysisAllFail(t *testing.T) {
	source := &fakeSource{historyErr: map[int]error{
		apifootball.TeamPorto:   apifootball.ErrUnavailable,
		apifootball.TeamBenfica: apifootball.ErrUnavailable,
	}}

	orch := newTestOrchestrator(source, newFakeStore(), &fakeNotifier{})
	if err := orch.RunFullAnalysis(context.Background()); err == nil {
		t.Fatal("RunFullAnalysis() = nil, want error when every team fails")
	}
}

func TestCheckUpcomingFixturesEmitsPlans(t *testing.T) {
	source := &fakeSource{
		history: map[int][]apifootball.MatchRecord{
			apifootball.TeamPorto:   historyFor(apifootball.TeamPorto),
			apifootball.TeamBenfica: historyFor(apifootball.TeamBenfica),
		},
		upcoming: map[int][]apifootball.Fixture{
			apifootball.TeamPorto: {{
				FixtureID:   9001,
				Date:        time.Now().AddDate(0, 0, 3),
				Competition: "Primeira Liga",
				LeagueID:    apifootball.LeagueTacaPortugal, // weak-opponent heuristic
				IsHome:      true,
				TeamID:      apifootball.TeamPorto,
				TeamName:    "FC Porto",
				Opponent:    "Amarante",
				OpponentID:  15001,
			}},
		},
	}
	store := newFakeStore()
	notifier := &fakeNotifier{}

	orch := newTestOrchestrator(source, store, notifier)
	if err := orch.RunFullAnalysis(context.Background()); err != nil {
		t.Fatalf("RunFullAnalysis() error = %v", err)
	}
	if err := orch.CheckUpcomingFixtures(context.Background()); err != nil {
		t.Fatalf("CheckUpcomingFixtures() error = %v", err)
	}

	if len(store.plans) != 1 {
		t.Fatalf("saved %d plans, want 1", len(store.plans))
	}
	plan := store.plans[0]
	if plan.FixtureID != 9001 {
		t.Errorf("plan fixture = %d, want 9001", plan.FixtureID)
	}
	if plan.Confidence != analysis.Confidence80 {
		t.Errorf("plan confidence = %v, want 0.80 for a high-value trigger", plan.Confidence)
	}
	if len(notifier.plans) != 1 {
		t.Errorf("sent %d plan alerts, want 1", len(notifier.plans))
	}
}

func TestCheckUpcomingFixturesSkipsQuietFixtures(t *testing.T) {
	source := &fakeSource{
		history: map[int][]apifootball.MatchRecord{
			apifootball.TeamPorto:   historyFor(apifootball.TeamPorto),
			apifootball.TeamBenfica: historyFor(apifootball.TeamBenfica),
		},
		upcoming: map[int][]apifootball.Fixture{
			apifootball.TeamPorto: {{
				FixtureID:  9002,
				Date:       time.Now().AddDate(0, 0, 2),
				LeagueID:   apifootball.LeaguePrimeiraLiga,
				IsHome:     false,
				TeamID:     apifootball.TeamPorto,
				Opponent:   "Braga",
				OpponentID: 15002,
			}},
		},
	}
	store := newFakeStore()

	orch := newTestOrchestrator(source, store, &fakeNotifier{})
	if err := orch.RunFullAnalysis(context.Background()); err != nil {
		t.Fatalf("RunFullAnalysis() error = %v", err)
	}
	if err := orch.CheckUpcomingFixtures(context.Background()); err != nil {
		t.Fatalf("CheckUpcomingFixtures() error = %v", err)
	}

	if len(store.plans) != 0 {
		t.Errorf("saved %d plans, want 0 with no fired triggers", len(store.plans))
	}
}

func TestMonitorLive(t *testing.T) {
	source := &fakeSource{
		history: map[int][]apifootball.MatchRecord{
			apifootball.TeamPorto:   historyFor(apifootball.TeamPorto),
			apifootball.TeamBenfica: historyFor(apifootball.TeamBenfica),
		},
		live: map[int][]apifootball.LiveMatch{
			apifootball.TeamPorto: {{
				FixtureID: 9100,
				Elapsed:   38,
				IsHome:    true,
				TeamID:    apifootball.TeamPorto,
				Opponent:  "Braga",
				TeamGoals: 1,
				Score:     "1-0",
			}},
		},
	}
	store := newFakeStore()
	notifier := &fakeNotifier{}
	guard := &fakeGuard{}

	orch := newTestOrchestrator(source, store, notifier, WithAlertGuard(guard))
	if err := orch.RunFullAnalysis(context.Background()); err != nil {
		t.Fatalf("RunFullAnalysis() error = %v", err)
	}

	if err := orch.MonitorLive(context.Background()); err != nil {
		t.Fatalf("MonitorLive() error = %v", err)
	}
	if len(notifier.lives) != 1 {
		t.Fatalf("sent %d live alerts, want 1", len(notifier.lives))
	}
	if notifier.lives[0].FixtureID != 9100 {
		t.Errorf("live alert fixture = %d, want 9100", notifier.lives[0].FixtureID)
	}
	if _, ok := store.liveUpdates[9100]; !ok {
		t.Error("live plan was not persisted against the fixture")
	}

	// Second poll inside the same window must not alert again.
	if err := orch.MonitorLive(context.Background()); err != nil {
		t.Fatalf("MonitorLive() second pass error = %v", err)
	}
	if len(notifier.lives) != 1 {
		t.Errorf("sent %d live alerts after second poll, want 1", len(notifier.lives))
	}
}

func TestMonitorLiveHonorsConfiguredWindow(t *testing.T) {
	source := &fakeSource{
		history: map[int][]apifootball.MatchRecord{
			apifootball.TeamPorto:   historyFor(apifootball.TeamPorto),
			apifootball.TeamBenfica: historyFor(apifootball.TeamBenfica),
		},
		live: map[int][]apifootball.LiveMatch{
			apifootball.TeamPorto: {{
				FixtureID: 9103,
				Elapsed:   25,
				IsHome:    true,
				TeamID:    apifootball.TeamPorto,
				Opponent:  "Braga",
				TeamGoals: 1,
				Score:     "1-0",
			}},
		},
	}
	notifier := &fakeNotifier{}

	cfg := testConfig()
	cfg.Live.WindowStart = 20
	orch := New(cfg, source, newFakeStore(), notifier, &fakeReporter{path: "/tmp/report.pdf"}, metrics.New())
	if err := orch.RunFullAnalysis(context.Background()); err != nil {
		t.Fatalf("RunFullAnalysis() error = %v", err)
	}

	if err := orch.MonitorLive(context.Background()); err != nil {
		t.Fatalf("MonitorLive() error = %v", err)
	}
	if len(notifier.lives) != 1 {
		t.Errorf("sent %d live alerts with the window widened to 20', want 1", len(notifier.lives))
	}
}

func TestMonitorLiveOutsideWindow(t *testing.T) {
	source := &fakeSource{
		history: map[int][]apifootball.MatchRecord{
			apifootball.TeamPorto:   historyFor(apifootball.TeamPorto),
			apifootball.TeamBenfica: historyFor(apifootball.TeamBenfica),
		},
		live: map[int][]apifootball.LiveMatch{
			apifootball.TeamPorto: {
				{FixtureID: 9101, Elapsed: 20, IsHome: true, TeamID: apifootball.TeamPorto},
				{FixtureID: 9102, Elapsed: 70, IsHome: true, TeamID: apifootball.TeamPorto},
			},
		},
	}
	notifier := &fakeNotifier{}

	orch := newTestOrchestrator(source, newFakeStore(), notifier)
	if err := orch.RunFullAnalysis(context.Background()); err != nil {
		t.Fatalf("RunFullAnalysis() error = %v", err)
	}

	if err := orch.MonitorLive(context.Background()); err != nil {
		t.Fatalf("MonitorLive() error = %v", err)
	}
	if len(notifier.lives) != 0 {
		t.Errorf("sent %d live alerts outside the window, want 0", len(notifier.lives))
	}
}

func TestCleanupOrphans(t *testing.T) {
	store := newFakeStore()
	store.expired = 3
	notifier := &fakeNotifier{}

	orch := newTestOrchestrator(&fakeSource{}, store, notifier)
	if err := orch.CleanupOrphans(context.Background()); err != nil {
		t.Fatalf("CleanupOrphans() error = %v", err)
	}
	if len(notifier.texts) != 1 {
		t.Errorf("sent %d cleanup notices, want 1", len(notifier.texts))
	}
}
