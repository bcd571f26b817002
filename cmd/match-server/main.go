package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tri-league/internal/config"
	"tri-league/internal/goalfeed"
	"tri-league/internal/history"
	"tri-league/internal/logging"
	"tri-league/internal/matchclock"
	"tri-league/internal/matchflow"
	"tri-league/internal/roster"
	"tri-league/internal/store"
	httptransport "tri-league/internal/transport/http"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const janitorInterval = time.Minute

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("load .env failed")
	}
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	if err := logging.Init(cfg.Log); err != nil {
		panic(err)
	}
	defer logging.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		primary history.Sink
		reader  history.Reader
		pinger  httptransport.Pinger
	)
	if cfg.Server.PostgresDSN != "" {
		st, err := store.New(ctx, cfg.Server.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("store init failed")
		}
		defer st.Close()
		if err := st.Ping(ctx); err != nil {
			log.Fatal().Err(err).Msg("db ping failed")
		}
		primary, reader, pinger = st, st, st
	} else {
		mem := history.NewMemory()
		primary, reader = mem, mem
		log.Warn().Msg("POSTGRES_DSN not set; match history is kept in memory")
	}

	var outputs []history.NamedSink
	if cfg.History.WebhookURL != "" {
		timeout := time.Duration(cfg.History.WebhookTimeoutMS) * time.Millisecond
		outputs = append(outputs, history.NamedSink{
			Name: "webhook",
			Sink: history.NewWebhook(cfg.History.WebhookURL, timeout),
		})
	}

	var nc *nats.Conn
	if cfg.Server.NATSURL != "" {
		nc, err = nats.Connect(cfg.Server.NATSURL, nats.Name("tri-league-match-server"), nats.MaxReconnects(-1))
		if err != nil {
			log.Fatal().Err(err).Str("url", cfg.Server.NATSURL).Msg("nats connect failed")
		}
		defer nc.Close()
		outputs = append(outputs, history.NamedSink{
			Name: "nats",
			Sink: history.NewNATSPublisher(nc, cfg.History.NATSSubject),
		})
	}

	clock := clockwork.NewRealClock()
	fanout := &history.Fanout{Primary: primary}
	if len(outputs) > 0 {
		fanout.Outputs = history.NewDispatcher(history.DispatchConfigFrom(cfg.History), clock, outputs...)
		fanout.Outputs.Start(ctx)
	}

	src, err := loadRoster(cfg.Match)
	if err != nil {
		log.Fatal().Err(err).Msg("roster load failed")
	}

	registry := matchclock.NewRegistry(clock, matchclock.SettingsFromConfig(cfg.Match))
	defer registry.Close()
	registry.StartJanitor(ctx, janitorInterval, time.Duration(cfg.Server.SessionIdleTTLSec)*time.Second)

	matches := matchflow.NewManager(registry, src, fanout, matchflow.Options{
		Scoring:     matchflow.ScoringFromConfig(cfg.Match),
		AutoConfirm: cfg.Match.AutoConfirm,
		Clock:       clock,
	})
	registry.AddListener(matches)

	if nc != nil {
		feed := goalfeed.New(nc, cfg.History.GoalSubject, matches)
		if err := feed.Start(); err != nil {
			log.Fatal().Err(err).Msg("goal feed subscribe failed")
		}
		defer func() { _ = feed.Stop() }()
	}

	r := httptransport.NewRouter(httptransport.Deps{
		Config:  cfg.Server,
		Clocks:  registry,
		Matches: matches,
		History: reader,
		Pinger:  pinger,
		Clock:   clock,
	})
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	log.Info().
		Str("addr", cfg.Server.HTTPAddr).
		Int("duration_sec", cfg.Match.DurationSec).
		Int("alarm_threshold_sec", cfg.Match.AlarmThresholdSec).
		Bool("nats", nc != nil).
		Msg("http listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server stopped")
		return
	}
	log.Info().Msg("server stopped")
}

func loadRoster(cfg config.MatchConfig) (roster.Source, error) {
	if cfg.RosterPath != "" {
		return roster.LoadFile(cfg.RosterPath)
	}
	return roster.FromNames(cfg.DefaultTeams)
}
