package spectatorgateway

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"tri-league/internal/matchclock"
	"tri-league/internal/stream"
)

const (
	defaultPingInterval = 15 * time.Second
	subscriberBuffer    = 64
)

type EventsOptions struct {
	PingInterval time.Duration
	Clock        clockwork.Clock
}

// EventsHandler streams a session's clock over SSE. The first event is the
// drift-corrected clock_state from joining; live events follow in order with
// nothing at or before the snapshot repeated. A Last-Event-ID header replays
// the buffered events the client missed ahead of the snapshot.
func EventsHandler(clocks Clocks, opts EventsOptions) http.HandlerFunc {
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "session_id")
		if !matchclock.ValidSessionID(sessionID) {
			writeError(w, http.StatusBadRequest, "invalid_session_id")
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		buf := clocks.Events(sessionID)
		ch := buf.Subscribe(subscriberBuffer)
		defer buf.Unsubscribe(ch)
		state := clocks.Join(sessionID)

		metricObserverStreamsOpened.Add(1)
		metricObserverStreamsActive.Add(1)
		defer metricObserverStreamsActive.Add(-1)
		log.Debug().Str("session_id", sessionID).Int64("seq", state.Seq).Msg("spectator_stream_opened")

		stream.SetSSEHeaders(w)
		w.WriteHeader(http.StatusOK)

		if last := stream.ParseLastEventID(r.Header.Get("Last-Event-ID")); last > 0 {
			for _, ev := range buf.ReplayAfter(last) {
				if ev.ID > state.Seq {
					break
				}
				if ev.Event == matchclock.EventClockState {
					continue
				}
				if err := stream.WriteSSE(w, ev); err != nil {
					return
				}
				metricObserverReplayedEvents.Add(1)
			}
		}
		snapshot := stream.Event{
			ID:        state.Seq,
			Event:     matchclock.EventClockState,
			SessionID: sessionID,
			ServerTS:  opts.Clock.Now().UnixMilli(),
			Data:      state,
		}
		if err := stream.WriteSSE(w, snapshot); err != nil {
			return
		}
		flusher.Flush()

		ticker := opts.Clock.NewTicker(opts.PingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case ev, ok := <-ch:
				if !ok {
					metricObserverStreamsEvicted.Add(1)
					log.Warn().Str("session_id", sessionID).Msg("spectator_stream_evicted")
					return
				}
				if ev.ID <= state.Seq {
					continue
				}
				if err := stream.WriteSSE(w, ev); err != nil {
					return
				}
				flusher.Flush()
			case <-ticker.Chan():
				now := opts.Clock.Now().UnixMilli()
				ping := stream.Event{
					Event:     "ping",
					SessionID: sessionID,
					ServerTS:  now,
					Data:      map[string]any{"ts": now},
				}
				if err := stream.WriteSSE(w, ping); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}
