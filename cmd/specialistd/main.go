// specialistd is the team specialist betting bot daemon. It keeps a
// statistical profile of the monitored teams, checks upcoming fixtures
// for pre-match triggers and watches live matches for half-time
// entries.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Xavi146570/team-specialist-bot/pkg/apifootball"
	"github.com/Xavi146570/team-specialist-bot/pkg/bot/kelly"
	"github.com/Xavi146570/team-specialist-bot/pkg/bot/metrics"
	"github.com/Xavi146570/team-specialist-bot/pkg/bot/orchestrator"
	"github.com/Xavi146570/team-specialist-bot/pkg/bot/streaming"
	"github.com/Xavi146570/team-specialist-bot/pkg/config"
	"github.com/Xavi146570/team-specialist-bot/pkg/notify"
	"github.com/Xavi146570/team-specialist-bot/pkg/report"
	"github.com/Xavi146570/team-specialist-bot/pkg/storage"
)

var (
	configPath = flag.String("config", "", "Path to the YAML configuration file")
	httpAddr   = flag.String("http", ":8080", "HTTP server address for status API")
	runOnce    = flag.Bool("once", false, "Run one full analysis pass and exit")
	verbose    = flag.Bool("verbose", false, "Verbose logging")
)

func main() {
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("daemon failed")
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	clientOpts := []apifootball.ClientOption{
		apifootball.WithRateLimit(cfg.API.RequestsPerSec, cfg.API.Burst),
	}
	if cfg.API.BaseURL != "" {
		clientOpts = append(clientOpts, apifootball.WithBaseURL(cfg.API.BaseURL))
	}
	client := apifootball.NewClient(cfg.APIFootballKey, clientOpts...)

	db, err := storage.Connect(storage.Config{
		Host:     cfg.DatabaseHost,
		Port:     cfg.DatabasePort,
		DBName:   cfg.DatabaseName,
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
	})
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer db.Close()
	store := storage.NewRepository(db)

	notifier, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID)
	if err != nil {
		return fmt.Errorf("notifier: %w", err)
	}

	reporter, err := report.NewGenerator(cfg.ReportDir)
	if err != nil {
		return fmt.Errorf("reporter: %w", err)
	}

	botMetrics := metrics.New()
	hub := streaming.NewHub()
	go hub.Run(ctx)

	opts := []orchestrator.Option{
		orchestrator.WithHub(hub),
		orchestrator.WithCallbacks(orchestrator.Callbacks{
			OnPlan: func(p *kelly.TradingPlan) {
				log.Info().
					Str("team", p.TeamName).
					Str("opponent", p.Opponent).
					Int("score", p.TriggerScore).
					Str("fraction", p.RecommendedFraction.String()).
					Msg("trading plan created")
			},
			OnLivePlan: func(p *kelly.LivePlan) {
				log.Info().
					Str("team", p.TeamName).
					Int("minute", p.Minute).
					Str("score", p.Score).
					Msg("live recommendation sent")
			},
			OnError: func(stage string, err error) {
				hub.BroadcastError(err, stage)
			},
		}),
	}

	if cfg.EnableRedis {
		guard, err := storage.NewAlertGuard(ctx, storage.AlertGuardConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, live alerts will not deduplicate across restarts")
		} else {
			defer guard.Close()
			opts = append(opts, orchestrator.WithAlertGuard(guard))
		}
	}

	orch := orchestrator.New(cfg, client, store, notifier, reporter, botMetrics, opts...)

	if *runOnce {
		if err := orch.RunFullAnalysis(ctx); err != nil {
			return err
		}
		return orch.CheckUpcomingFixtures(ctx)
	}

	go serveHTTP(*httpAddr, cfg, botMetrics, hub)

	// Prime the pipeline so the bot is useful before the first cron
	// fire.
	if err := orch.RunFullAnalysis(ctx); err != nil {
		log.Error().Err(err).Msg("initial analysis failed, continuing on schedule")
	} else if err := orch.CheckUpcomingFixtures(ctx); err != nil {
		log.Error().Err(err).Msg("initial fixture check failed")
	}

	if err := orch.Start(ctx); err != nil {
		return fmt.Errorf("start orchestrator: %w", err)
	}

	log.Info().Str("http", *httpAddr).Int("teams", len(cfg.Teams)).Msg("specialist bot running")

	<-sigCh
	log.Info().Msg("shutting down")
	orch.Stop()
	cancel()
	return nil
}

func serveHTTP(addr string, cfg *config.Config, m *metrics.BotMetrics, hub *streaming.Hub) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		teams := make([]map[string]interface{}, len(cfg.Teams))
		for i, t := range cfg.Teams {
			teams[i] = map[string]interface{}{"id": t.ID, "name": t.Name}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"teams":       teams,
			"ws_clients":  hub.ClientCount(),
			"live_window": fmt.Sprintf("%d-%d", cfg.Live.WindowStart, cfg.Live.WindowEnd),
		})
	})

	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/ws", hub.ServeWS)

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("http server listening")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Error().Err(err).Msg("http server error")
	}
}
