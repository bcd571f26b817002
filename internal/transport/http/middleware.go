package httptransport

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"tri-league/internal/logging"
	"tri-league/internal/matchclock"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v3"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

// APILogMiddleware writes one JSON access line per request into the same
// sink as the zerolog logger.
func APILogMiddleware() func(http.Handler) http.Handler {
	logger := slog.New(slog.NewJSONHandler(logging.Writer(), &slog.HandlerOptions{}))
	return httplog.RequestLogger(logger, &httplog.Options{
		Level:              slog.LevelInfo,
		Schema:             httplog.Schema{ResponseStatus: "status", ResponseDuration: "duration_ms"},
		LogRequestBody:     func(*http.Request) bool { return false },
		LogResponseBody:    func(*http.Request) bool { return false },
		LogRequestHeaders:  []string{},
		LogResponseHeaders: []string{},
		LogExtraAttrs:      accessAttrs,
	})
}

func accessAttrs(req *http.Request, _ string, _ int) []slog.Attr {
	route := req.URL.Path
	sessionID := ""
	if rc := chi.RouteContext(req.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			route = p
		}
		sessionID = rc.URLParam("session_id")
	}
	attrs := []slog.Attr{
		slog.String("request_id", chimw.GetReqID(req.Context())),
		slog.String("method", req.Method),
		slog.String("route", route),
	}
	if sessionID != "" {
		attrs = append(attrs, slog.String("session_id", sessionID))
	}
	return attrs
}

// AuditBodyMiddleware attaches request and response bodies, capped at limit
// bytes each, to the access line. Streams are passed through untouched.
func AuditBodyMiddleware(limit int) func(http.Handler) http.Handler {
	if limit <= 0 {
		limit = 4096
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isStreamRequest(r) {
				next.ServeHTTP(w, r)
				return
			}
			var reqBody []byte
			if r.Body != nil {
				reqBody, _ = io.ReadAll(r.Body)
				r.Body = io.NopCloser(bytes.NewReader(reqBody))
			}
			rec := &bodyRecorder{ResponseWriter: w, limit: limit}
			next.ServeHTTP(rec, r)

			reqShown, reqCut := capBytes(reqBody, limit)
			httplog.SetAttrs(r.Context(),
				slog.Any("request_body", decodeForLog(reqShown)),
				slog.Bool("request_body_truncated", reqCut),
				slog.Any("response_body", decodeForLog(rec.buf.Bytes())),
				slog.Bool("response_body_truncated", rec.cut),
			)
		})
	}
}

type bodyRecorder struct {
	http.ResponseWriter
	buf   bytes.Buffer
	limit int
	cut   bool
}

func (b *bodyRecorder) Write(p []byte) (int, error) {
	room := b.limit - b.buf.Len()
	switch {
	case room >= len(p):
		b.buf.Write(p)
	case room > 0:
		b.buf.Write(p[:room])
		b.cut = true
	default:
		b.cut = b.cut || len(p) > 0
	}
	return b.ResponseWriter.Write(p)
}

func (b *bodyRecorder) Flush() {
	if f, ok := b.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func capBytes(b []byte, limit int) ([]byte, bool) {
	if len(b) > limit {
		return b[:limit], true
	}
	return b, false
}

func decodeForLog(b []byte) any {
	if len(b) == 0 {
		return ""
	}
	var v any
	if json.Unmarshal(b, &v) == nil {
		return v
	}
	return string(b)
}

func isStreamRequest(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		return true
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/sessions/") && strings.HasSuffix(r.URL.Path, "/events")
}

func WriteHTTPError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": code})
}

// SessionIDMiddleware rejects requests whose {session_id} is not a valid id.
func SessionIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !matchclock.ValidSessionID(chi.URLParam(r, "session_id")) {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_session_id")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ParsePagination reads limit and offset, clamping limit to [1, 500] and
// falling back to the defaults on unparsable input.
func ParsePagination(r *http.Request) (int, int) {
	q := r.URL.Query()
	limit := queryInt(q.Get("limit"), defaultPageLimit)
	offset := queryInt(q.Get("offset"), 0)
	limit = max(1, min(limit, maxPageLimit))
	return limit, max(0, offset)
}

func queryInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
