// Package metrics provides Prometheus metrics for the bot.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BotMetrics collects and exposes bot-related Prometheus metrics.
type BotMetrics struct {
	registry *prometheus.Registry

	// Pipeline metrics
	AnalysisRuns  *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	MatchesLoaded *prometheus.GaugeVec

	// Trigger metrics
	TriggersFired   *prometheus.CounterVec
	TriggerScore    *prometheus.HistogramVec
	LiveEvaluations prometheus.Counter

	// Plan metrics
	PlansCreated  *prometheus.CounterVec
	KellyFraction prometheus.Histogram
	RiskBlocks    *prometheus.CounterVec

	// Delivery metrics
	AlertsSent    *prometheus.CounterVec
	ReportsRender *prometheus.CounterVec
}

// New creates a new metrics collector backed by its own registry.
func New() *BotMetrics {
	registry := prometheus.NewRegistry()

	m := &BotMetrics{
		registry: registry,

		AnalysisRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "specialist_analysis_runs_total",
				Help: "Full analysis runs per team",
			},
			[]string{"team", "status"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "specialist_stage_duration_seconds",
				Help:    "Pipeline stage duration",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
			},
			[]string{"stage"},
		),
		MatchesLoaded: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "specialist_matches_loaded",
				Help: "Matches in the current historical window",
			},
			[]string{"team"},
		),

		TriggersFired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "specialist_triggers_fired_total",
				Help: "Fired triggers by key",
			},
			[]string{"trigger", "class"},
		),
		TriggerScore: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "specialist_trigger_score",
				Help:    "Trigger confidence score per evaluated fixture",
				Buckets: []float64{0, 10, 20, 30, 40, 50, 75, 100},
			},
			[]string{"team"},
		),
		LiveEvaluations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "specialist_live_evaluations_total",
				Help: "Live half-time evaluations performed",
			},
		),

		PlansCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "specialist_plans_created_total",
				Help: "Trading plans created",
			},
			[]string{"team", "kind"},
		),
		KellyFraction: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "specialist_kelly_fraction",
				Help:    "Recommended Kelly fraction per plan",
				Buckets: []float64{0, 0.01, 0.02, 0.05, 0.10, 0.15, 0.20, 0.25},
			},
		),
		RiskBlocks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "specialist_risk_blocks_total",
				Help: "Plans blocked by risk limits",
			},
			[]string{"reason"},
		),

		AlertsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "specialist_alerts_sent_total",
				Help: "Alerts delivered",
			},
			[]string{"type", "status"},
		),
		ReportsRender: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "specialist_reports_rendered_total",
				Help: "PDF reports rendered",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		m.AnalysisRuns,
		m.StageDuration,
		m.MatchesLoaded,
		m.TriggersFired,
		m.TriggerScore,
		m.LiveEvaluations,
		m.PlansCreated,
		m.KellyFraction,
		m.RiskBlocks,
		m.AlertsSent,
		m.ReportsRender,
	)

	return m
}

// Handler returns an HTTP handler serving the registry.
func (m *BotMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
