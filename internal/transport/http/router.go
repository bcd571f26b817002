package httptransport

import (
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"tri-league/internal/config"
	"tri-league/internal/history"
	"tri-league/internal/matchclock"
	"tri-league/internal/matchflow"
	"tri-league/internal/mcpserver"
	"tri-league/internal/spectatorgateway"
	"tri-league/internal/stream"
	"tri-league/internal/ws"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

// Registry is everything the router needs from the clock registry.
type Registry interface {
	Clocks
	Start(sessionID string)
	Events(sessionID string) *stream.Buffer
}

type Deps struct {
	Config  config.ServerConfig
	Clocks  Registry
	Matches *matchflow.Manager
	History history.Reader
	// Pinger is nil when no database is configured.
	Pinger Pinger
	// Clock drives SSE keepalives; defaults to the real clock.
	Clock clockwork.Clock
}

var _ Registry = (*matchclock.Registry)(nil)

func NewRouter(d Deps) *chi.Mux {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	mcpSrv := mcpserver.New(d.Clocks, d.Matches, d.History)
	wsSrv := ws.NewServer(d.Clocks, ws.Options{ReadOnly: !d.Config.WSCommandsEnabled})

	clockHandlers := NewClockHandlers(d.Clocks, d.Matches)
	matchHandlers := NewMatchHandlers(d.Matches)
	historyHandlers := NewHistoryHandlers(d.History)
	adminHandlers := NewAdminHandlers(d.Pinger, d.Clocks, d.Matches)
	eventsOpts := spectatorgateway.EventsOptions{
		PingInterval: time.Duration(d.Config.SSEPingIntervalSec) * time.Second,
		Clock:        d.Clock,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: d.Config.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Admin-Key", "Last-Event-ID", "Mcp-Session-Id"},
	}).Handler)

	r.With(APILogMiddleware()).Get("/healthz", adminHandlers.Health())
	r.With(APILogMiddleware()).Method(http.MethodPost, "/mcp", mcpSrv.Handler())
	r.With(APILogMiddleware()).Method(http.MethodGet, "/mcp", mcpSrv.Handler())
	r.With(APILogMiddleware()).Method(http.MethodDelete, "/mcp", mcpSrv.Handler())
	r.With(APILogMiddleware()).Get("/ws/sessions/{session_id}", wsSrv.HandleWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())

		r.Route("/sessions/{session_id}", func(r chi.Router) {
			r.Use(SessionIDMiddleware)
			r.Get("/state", spectatorgateway.StateHandler(d.Clocks))
			r.Get("/events", spectatorgateway.EventsHandler(d.Clocks, eventsOpts))

			r.Get("/status", matchHandlers.Status())
			r.Get("/matches", historyHandlers.Matches())
			r.Get("/standings", historyHandlers.Standings())

			r.Group(func(r chi.Router) {
				r.Use(AuditBodyMiddleware(4096))
				r.Post("/start", clockHandlers.Start())
				r.Post("/stop", clockHandlers.Stop())
				r.Post("/reset", clockHandlers.Reset())
				r.Post("/clear-alarm", clockHandlers.ClearAlarm())

				r.Post("/goals", matchHandlers.Goal())
				r.Post("/result/preview", matchHandlers.Preview())
				r.Post("/result/confirm", matchHandlers.Confirm())

				r.With(AdminAuthMiddleware(d.Config.AdminAPIKey)).Post("/history/retry", matchHandlers.Retry())
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(d.Config.AdminAPIKey))
			r.Get("/sessions", adminHandlers.Sessions())
			r.Post("/history/retry", adminHandlers.RetryAll())

			r.Get("/debug/vars", expvar.Handler().ServeHTTP)
		})
	})
	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 32)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
