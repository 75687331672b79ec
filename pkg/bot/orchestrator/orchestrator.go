// Package orchestrator coordinates the analysis pipeline: historical
// refresh, pre-match trigger checks, live half-time monitoring and
// plan cleanup, on a cron-driven schedule.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/Xavi146570/team-specialist-bot/pkg/apifootball"
	"github.com/Xavi146570/team-specialist-bot/pkg/bot/analysis"
	"github.com/Xavi146570/team-specialist-bot/pkg/bot/kelly"
	"github.com/Xavi146570/team-specialist-bot/pkg/bot/metrics"
	"github.com/Xavi146570/team-specialist-bot/pkg/bot/streaming"
	"github.com/Xavi146570/team-specialist-bot/pkg/bot/triggers"
	"github.com/Xavi146570/team-specialist-bot/pkg/config"
)

// DataSource provides fixture and match data for one team.
type DataSource interface {
	TeamHistory(ctx context.Context, teamID, years int) ([]apifootball.MatchRecord, error)
	UpcomingFixtures(ctx context.Context, teamID, days int) ([]apifootball.Fixture, error)
	LiveFixtures(ctx context.Context, teamID int) ([]apifootball.LiveMatch, error)
}

// Store persists analyses and trading plans.
type Store interface {
	SaveAnalysis(ctx context.Context, a *analysis.TeamAnalysis) error
	LatestAnalysis(ctx context.Context, teamID int) (*analysis.TeamAnalysis, error)
	SavePlan(ctx context.Context, p *kelly.TradingPlan) error
	UpdatePlanLive(ctx context.Context, fixtureID int64, live *kelly.LivePlan) error
	ExpireOrphanPlans(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Notifier delivers alerts.
type Notifier interface {
	SendPlan(p *kelly.TradingPlan) error
	SendLive(p *kelly.LivePlan) error
	SendText(text string) error
	SendDocument(path, caption string) error
}

// Reporter renders the consolidated PDF report.
type Reporter interface {
	Consolidated(analyses []*analysis.TeamAnalysis) (string, error)
}

// AlertGuard deduplicates alerts across restarts and poll intervals.
type AlertGuard interface {
	FirstAlert(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// StageResult summarizes one completed pipeline stage.
type StageResult struct {
	Stage    string
	Team     string
	Duration time.Duration
	Err      error
	Details  map[string]interface{}
}

// Callbacks hook pipeline events for the streaming layer and tests.
type Callbacks struct {
	OnStageComplete func(StageResult)
	OnPlan          func(*kelly.TradingPlan)
	OnLivePlan      func(*kelly.LivePlan)
	OnError         func(stage string, err error)
}

// Orchestrator runs the bot's scheduled pipeline.
type Orchestrator struct {
	cfg      *config.Config
	source   DataSource
	store    Store
	notifier Notifier
	reporter Reporter
	guard    AlertGuard
	risk     *kelly.RiskManager
	metrics  *metrics.BotMetrics
	hub      *streaming.Hub
	cb       Callbacks

	planCfg kelly.PlanConfig
	liveCfg triggers.LiveConfig

	mu         sync.RWMutex
	analyses   map[int]*analysis.TeamAnalysis
	lastResult map[int]apifootball.Result

	cron   *cron.Cron
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithCallbacks installs pipeline event hooks.
func WithCallbacks(cb Callbacks) Option {
	return func(o *Orchestrator) { o.cb = cb }
}

// WithHub attaches the WebSocket streaming hub.
func WithHub(hub *streaming.Hub) Option {
	return func(o *Orchestrator) { o.hub = hub }
}

// WithAlertGuard attaches the alert deduplication guard.
func WithAlertGuard(guard AlertGuard) Option {
	return func(o *Orchestrator) { o.guard = guard }
}

// WithRiskLimits overrides the default risk limits.
func WithRiskLimits(limits *kelly.RiskLimits) Option {
	return func(o *Orchestrator) { o.risk = kelly.NewRiskManager(limits) }
}

// New creates the orchestrator. Source, store, notifier and reporter
// are required; the alert guard and hub are optional.
func New(cfg *config.Config, source DataSource, store Store, notifier Notifier, reporter Reporter, m *metrics.BotMetrics, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		source:   source,
		store:    store,
		notifier: notifier,
		reporter: reporter,
		risk:     kelly.NewRiskManager(nil),
		metrics:  m,
		planCfg: kelly.PlanConfig{
			Cap:      decimal.NewFromFloat(cfg.Kelly.Cap),
			Bankroll: decimal.NewFromFloat(cfg.Kelly.Bankroll),
			Odds:     cfg.Kelly.Odds.MarketOdds(),
		},
		liveCfg: triggers.LiveConfig{
			WindowStart: cfg.Live.WindowStart,
			WindowEnd:   cfg.Live.WindowEnd,
			MinSample:   cfg.Live.MinPatternSample,
		},
		analyses:   make(map[int]*analysis.TeamAnalysis),
		lastResult: make(map[int]apifootball.Result),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) stageDone(result StageResult) {
	if o.metrics != nil {
		o.metrics.StageDuration.WithLabelValues(result.Stage).Observe(result.Duration.Seconds())
	}
	if result.Err != nil && o.cb.OnError != nil {
		o.cb.OnError(result.Stage, result.Err)
	}
	if o.cb.OnStageComplete != nil {
		o.cb.OnStageComplete(result)
	}
	if o.hub != nil {
		o.hub.BroadcastStatus(map[string]interface{}{
			"stage":    result.Stage,
			"team":     result.Team,
			"duration": result.Duration.String(),
			"error":    errString(result.Err),
			"details":  result.Details,
		})
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// RunFullAnalysis refreshes the historical snapshot of every
// configured team, persists it and delivers the consolidated report.
// A failing team never blocks the others.
func (o *Orchestrator) RunFullAnalysis(ctx context.Context) error {
	log.Info().Int("teams", len(o.cfg.Teams)).Msg("full analysis starting")

	var snapshots []*analysis.TeamAnalysis
	var firstErr error

	for _, team := range o.cfg.Teams {
		start := time.Now()
		snap, err := o.analyzeTeam(ctx, team)
		o.stageDone(StageResult{
			Stage:    "analysis",
			Team:     team.Name,
			Duration: time.Since(start),
			Err:      err,
		})

		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			if o.metrics != nil {
				o.metrics.AnalysisRuns.WithLabelValues(team.Name, "error").Inc()
			}
			log.Error().Err(err).Str("team", team.Name).Msg("team analysis failed")
			continue
		}
		if o.metrics != nil {
			o.metrics.AnalysisRuns.WithLabelValues(team.Name, "ok").Inc()
			o.metrics.MatchesLoaded.WithLabelValues(team.Name).Set(float64(snap.TotalMatches))
		}
		snapshots = append(snapshots, snap)
	}

	if len(snapshots) == 0 {
		return fmt.Errorf("full analysis: no team produced a snapshot: %w", firstErr)
	}

	o.deliverReport(snapshots)
	log.Info().Int("analyzed", len(snapshots)).Msg("full analysis complete")
	return nil
}

func (o *Orchestrator) analyzeTeam(ctx context.Context, team config.Team) (*analysis.TeamAnalysis, error) {
	matches, err := o.source.TeamHistory(ctx, team.ID, o.cfg.HistoryYears)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", team.Name, err)
	}

	rangeStart, rangeEnd := matchRange(matches)
	snap, err := analysis.Analyze(team.ID, team.Name, matches, rangeStart, rangeEnd)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", team.Name, err)
	}
	snap.Patterns = triggers.CountPatterns(matches)

	if err := o.store.SaveAnalysis(ctx, snap); err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.analyses[team.ID] = snap
	o.lastResult[team.ID] = latestResult(matches)
	o.mu.Unlock()

	if o.hub != nil {
		o.hub.BroadcastAnalysis(snap)
	}
	return snap, nil
}

func (o *Orchestrator) deliverReport(snapshots []*analysis.TeamAnalysis) {
	start := time.Now()
	path, err := o.reporter.Consolidated(snapshots)
	if err != nil {
		if o.metrics != nil {
			o.metrics.ReportsRender.WithLabelValues("error").Inc()
		}
		log.Error().Err(err).Msg("report rendering failed")
		o.stageDone(StageResult{Stage: "report", Duration: time.Since(start), Err: err})
		return
	}
	if o.metrics != nil {
		o.metrics.ReportsRender.WithLabelValues("ok").Inc()
	}

	caption := fmt.Sprintf("Weekly analysis report, %d teams", len(snapshots))
	if err := o.notifier.SendDocument(path, caption); err != nil {
		o.alertStatus("report", err)
		log.Error().Err(err).Str("path", path).Msg("report delivery failed")
	} else {
		o.alertStatus("report", nil)
	}
	o.stageDone(StageResult{
		Stage:    "report",
		Duration: time.Since(start),
		Details:  map[string]interface{}{"path": path},
	})
}

func (o *Orchestrator) alertStatus(kind string, err error) {
	if o.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	o.metrics.AlertsSent.WithLabelValues(kind, status).Inc()
}

// CheckUpcomingFixtures evaluates pre-match triggers for every fixture
// inside the configured window and emits trading plans for fixtures
// with at least one fired trigger.
func (o *Orchestrator) CheckUpcomingFixtures(ctx context.Context) error {
	var firstErr error

	for _, team := range o.cfg.Teams {
		start := time.Now()
		plans, err := o.checkTeamFixtures(ctx, team)
		o.stageDone(StageResult{
			Stage:    "fixtures",
			Team:     team.Name,
			Duration: time.Since(start),
			Err:      err,
			Details:  map[string]interface{}{"plans": plans},
		})
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (o *Orchestrator) checkTeamFixtures(ctx context.Context, team config.Team) (int, error) {
	snap, err := o.teamAnalysis(ctx, team.ID)
	if err != nil {
		return 0, fmt.Errorf("no analysis for %s: %w", team.Name, err)
	}

	fixtures, err := o.source.UpcomingFixtures(ctx, team.ID, o.cfg.FixtureWindowDays)
	if err != nil {
		return 0, fmt.Errorf("load fixtures for %s: %w", team.Name, err)
	}

	nearby := make([]triggers.NearbyFixture, 0, len(fixtures))
	for _, fx := range fixtures {
		nearby = append(nearby, triggers.NearbyFixture{
			FixtureID: fx.FixtureID,
			LeagueID:  fx.LeagueID,
			Kickoff:   fx.Date,
		})
	}

	o.mu.RLock()
	prev := o.lastResult[team.ID]
	o.mu.RUnlock()

	plans := 0
	for _, fx := range fixtures {
		fctx := triggers.FixtureContext{
			FixtureID:      fx.FixtureID,
			TeamID:         fx.TeamID,
			OpponentID:     fx.OpponentID,
			OpponentName:   fx.Opponent,
			IsHome:         fx.IsHome,
			LeagueID:       fx.LeagueID,
			Kickoff:        fx.Date,
			PrevResult:     prev,
			NearbyFixtures: nearby,
		}

		venue := snap.Venue(fx.IsHome)
		fired := triggers.EvaluatePreMatch(fctx, venue.TotalGoals)
		if len(fired) == 0 {
			continue
		}

		for _, r := range fired {
			if o.metrics != nil {
				o.metrics.TriggersFired.WithLabelValues(string(r.Key), "prematch").Inc()
			}
			if o.hub != nil {
				o.hub.BroadcastTrigger(r)
			}
		}
		if o.metrics != nil {
			o.metrics.TriggerScore.WithLabelValues(team.Name).Observe(float64(triggers.Score(fired)))
		}

		if err := o.emitPlan(ctx, fx, snap, fired, team.Name); err != nil {
			log.Error().Err(err).Int64("fixture", fx.FixtureID).Msg("plan emission failed")
			continue
		}
		plans++
	}
	return plans, nil
}

func (o *Orchestrator) emitPlan(ctx context.Context, fx apifootball.Fixture, snap *analysis.TeamAnalysis, fired []triggers.Result, teamName string) error {
	plan, err := kelly.BuildPlan(fx, snap, fired, o.planCfg)
	if err != nil {
		return fmt.Errorf("build plan: %w", err)
	}

	if ok, reason := o.risk.Allow(fx.FixtureID, plan.RecommendedFraction); !ok {
		if o.metrics != nil {
			o.metrics.RiskBlocks.WithLabelValues(reason).Inc()
		}
		log.Warn().Int64("fixture", fx.FixtureID).Str("reason", reason).Msg("plan blocked by risk limits")
		return nil
	}

	if err := o.store.SavePlan(ctx, plan); err != nil {
		return err
	}
	o.risk.Record(fx.FixtureID, plan.RecommendedFraction)

	if o.metrics != nil {
		o.metrics.PlansCreated.WithLabelValues(teamName, "prematch").Inc()
		frac, _ := plan.RecommendedFraction.Float64()
		o.metrics.KellyFraction.Observe(frac)
	}

	err = o.notifier.SendPlan(plan)
	o.alertStatus("plan", err)
	if err != nil {
		log.Error().Err(err).Int64("fixture", fx.FixtureID).Msg("plan alert failed")
	}

	if o.cb.OnPlan != nil {
		o.cb.OnPlan(plan)
	}
	if o.hub != nil {
		o.hub.BroadcastPlan(plan)
	}
	return nil
}

// MonitorLive polls live fixtures and evaluates the half-time triggers
// inside the configured window. Each fixture alerts at most once per
// window.
func (o *Orchestrator) MonitorLive(ctx context.Context) error {
	var firstErr error

	for _, team := range o.cfg.Teams {
		start := time.Now()
		err := o.monitorTeamLive(ctx, team)
		o.stageDone(StageResult{
			Stage:    "live",
			Team:     team.Name,
			Duration: time.Since(start),
			Err:      err,
		})
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (o *Orchestrator) monitorTeamLive(ctx context.Context, team config.Team) error {
	live, err := o.source.LiveFixtures(ctx, team.ID)
	if err != nil {
		return fmt.Errorf("load live fixtures for %s: %w", team.Name, err)
	}
	if len(live) == 0 {
		return nil
	}

	snap, err := o.teamAnalysis(ctx, team.ID)
	if err != nil {
		return fmt.Errorf("no analysis for %s: %w", team.Name, err)
	}

	for _, match := range live {
		if match.Elapsed < o.cfg.Live.WindowStart || match.Elapsed > o.cfg.Live.WindowEnd {
			continue
		}
		if o.metrics != nil {
			o.metrics.LiveEvaluations.Inc()
		}

		fctx := triggers.FixtureContext{
			FixtureID:    match.FixtureID,
			TeamID:       match.TeamID,
			OpponentName: match.Opponent,
			IsHome:       match.IsHome,
		}
		state := &triggers.LiveState{
			FixtureID:          match.FixtureID,
			Minute:             match.Elapsed,
			TeamGoals:          match.TeamGoals,
			OpponentGoals:      match.OpponentGoals,
			LastTeamGoalMinute: match.LastTeamGoalMinute,
		}

		venue := snap.Venue(match.IsHome)
		fired, err := triggers.EvaluateLive(fctx, venue.HTGoals, snap.Patterns, state, o.liveCfg)
		if err != nil {
			return err
		}
		if len(fired) == 0 {
			continue
		}

		for _, r := range fired {
			if o.metrics != nil {
				o.metrics.TriggersFired.WithLabelValues(string(r.Key), "live").Inc()
			}
			if o.hub != nil {
				o.hub.BroadcastTrigger(r)
			}
		}

		if err := o.emitLivePlan(ctx, match, team, snap, fired[0]); err != nil {
			log.Error().Err(err).Int64("fixture", match.FixtureID).Msg("live plan failed")
		}
	}
	return nil
}

func (o *Orchestrator) emitLivePlan(ctx context.Context, match apifootball.LiveMatch, team config.Team, snap *analysis.TeamAnalysis, trigger triggers.Result) error {
	if o.guard != nil {
		key := fmt.Sprintf("live:%d", match.FixtureID)
		first, err := o.guard.FirstAlert(ctx, key, o.cfg.Live.AlertTTL.Std())
		if err != nil {
			log.Warn().Err(err).Msg("alert guard unavailable, alerting anyway")
		} else if !first {
			return nil
		}
	}

	plan, err := kelly.BuildLivePlan(match, team.Name, snap, trigger, o.planCfg)
	if err != nil {
		return fmt.Errorf("build live plan: %w", err)
	}

	// Live updates attach to the pre-match plan when one exists; a
	// missing plan is not an error.
	if err := o.store.UpdatePlanLive(ctx, match.FixtureID, plan); err != nil {
		log.Debug().Err(err).Int64("fixture", match.FixtureID).Msg("no pre-match plan to update")
	}

	if o.metrics != nil {
		o.metrics.PlansCreated.WithLabelValues(team.Name, "live").Inc()
	}

	err = o.notifier.SendLive(plan)
	o.alertStatus("live", err)
	if err != nil {
		return err
	}

	if o.cb.OnLivePlan != nil {
		o.cb.OnLivePlan(plan)
	}
	if o.hub != nil {
		o.hub.BroadcastLive(plan)
	}
	return nil
}

// CleanupOrphans expires pending plans past the configured age.
func (o *Orchestrator) CleanupOrphans(ctx context.Context) error {
	start := time.Now()
	expired, err := o.store.ExpireOrphanPlans(ctx, o.cfg.PlanExpiryAge.Std())
	o.stageDone(StageResult{
		Stage:    "cleanup",
		Duration: time.Since(start),
		Err:      err,
		Details:  map[string]interface{}{"expired": expired},
	})
	if err != nil {
		return err
	}
	if expired > 0 {
		_ = o.notifier.SendText(fmt.Sprintf("🧹 Expired %d stale pending plans", expired))
	}
	return nil
}

// teamAnalysis returns the cached snapshot, falling back to the store
// after a restart.
func (o *Orchestrator) teamAnalysis(ctx context.Context, teamID int) (*analysis.TeamAnalysis, error) {
	o.mu.RLock()
	snap, ok := o.analyses[teamID]
	o.mu.RUnlock()
	if ok {
		return snap, nil
	}

	snap, err := o.store.LatestAnalysis(ctx, teamID)
	if err != nil {
		return nil, err
	}
	o.mu.Lock()
	o.analyses[teamID] = snap
	o.mu.Unlock()
	return snap, nil
}

// Start registers the cron schedule and launches the live monitoring
// loop. It returns immediately; Stop shuts everything down.
func (o *Orchestrator) Start(ctx context.Context) error {
	ctx, o.cancel = context.WithCancel(ctx)

	o.cron = cron.New()
	jobs := []struct {
		expr string
		name string
		run  func(context.Context) error
	}{
		{o.cfg.Schedule.FullAnalysis, "full_analysis", o.RunFullAnalysis},
		{o.cfg.Schedule.FixtureChecks, "fixture_checks", o.CheckUpcomingFixtures},
		{o.cfg.Schedule.Cleanup, "cleanup", o.CleanupOrphans},
	}
	for _, job := range jobs {
		job := job
		if _, err := o.cron.AddFunc(job.expr, func() {
			if err := job.run(ctx); err != nil {
				log.Error().Err(err).Str("job", job.name).Msg("scheduled job failed")
			}
		}); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", job.name, job.expr, err)
		}
	}
	o.cron.Start()

	o.wg.Add(1)
	go o.liveLoop(ctx)

	log.Info().
		Str("full_analysis", o.cfg.Schedule.FullAnalysis).
		Str("fixture_checks", o.cfg.Schedule.FixtureChecks).
		Str("cleanup", o.cfg.Schedule.Cleanup).
		Dur("live_poll", o.cfg.Live.PollInterval.Std()).
		Msg("orchestrator started")
	return nil
}

func (o *Orchestrator) liveLoop(ctx context.Context) {
	defer o.wg.Done()

	ticker := time.NewTicker(o.cfg.Live.PollInterval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := o.MonitorLive(ctx); err != nil {
				log.Error().Err(err).Msg("live monitoring failed")
			}
		}
	}
}

// Stop halts the cron schedule and the live loop, waiting for running
// jobs to finish.
func (o *Orchestrator) Stop() {
	if o.cron != nil {
		cronCtx := o.cron.Stop()
		<-cronCtx.Done()
	}
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
	log.Info().Msg("orchestrator stopped")
}

func matchRange(matches []apifootball.MatchRecord) (time.Time, time.Time) {
	if len(matches) == 0 {
		return time.Time{}, time.Time{}
	}
	start, end := matches[0].Date, matches[0].Date
	for _, m := range matches[1:] {
		if m.Date.Before(start) {
			start = m.Date
		}
		if m.Date.After(end) {
			end = m.Date
		}
	}
	return start, end
}

func latestResult(matches []apifootball.MatchRecord) apifootball.Result {
	if len(matches) == 0 {
		return ""
	}
	sorted := make([]apifootball.MatchRecord, len(matches))
	copy(sorted, matches)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.After(sorted[j].Date) })
	return sorted[0].Result
}
