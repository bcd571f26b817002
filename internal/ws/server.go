package ws

import (
	"encoding/json"
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"tri-league/internal/matchclock"
	"tri-league/internal/stream"
)

const (
	writeWait      = 10 * time.Second
	sendBuffer     = 32
	eventBuffer    = 64
	maxMessageSize = 4096
)

var (
	metricWSConnectionsTotal  = expvar.NewInt("ws_connections_total")
	metricWSConnectionsActive = expvar.NewInt("ws_connections_active")
	metricWSCommandsTotal     = expvar.NewInt("ws_commands_total")
)

// Clocks is the clock registry surface a socket reads and drives.
type Clocks interface {
	Join(sessionID string) matchclock.State
	Events(sessionID string) *stream.Buffer
	Start(sessionID string)
	Stop(sessionID string)
	Reset(sessionID string)
	ClearAlarm(sessionID string)
}

type Options struct {
	// ReadOnly rejects commands; sockets only observe.
	ReadOnly    bool
	CheckOrigin func(r *http.Request) bool
}

type Client struct {
	id        string
	sessionID string
	conn      *websocket.Conn
	send      chan []byte
}

type Server struct {
	clocks   Clocks
	opts     Options
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*Client]struct{}
}

func NewServer(clocks Clocks, opts Options) *Server {
	check := opts.CheckOrigin
	if check == nil {
		check = func(r *http.Request) bool { return true }
	}
	return &Server{
		clocks:   clocks,
		opts:     opts,
		upgrader: websocket.Upgrader{CheckOrigin: check},
		clients:  map[*Client]struct{}{},
	}
}

// HandleWS serves /ws/sessions/{session_id}. The socket receives a welcome,
// the joined clock_state snapshot and then every later session event.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if !matchclock.ValidSessionID(sessionID) {
		http.Error(w, `{"error":"invalid_session_id"}`, http.StatusBadRequest)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn.SetReadLimit(maxMessageSize)
	client := &Client{
		id:        uuid.NewString(),
		sessionID: sessionID,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
	}
	s.register(client)
	log.Info().Str("connection_id", client.id).Str("session_id", sessionID).Msg("ws_connected")

	buf := s.clocks.Events(sessionID)
	events := buf.Subscribe(eventBuffer)
	state := s.clocks.Join(sessionID)

	go s.writeLoop(client)
	s.sendJSON(client, Welcome{
		Type:            "welcome",
		ProtocolVersion: ProtocolVersion,
		ConnectionID:    client.id,
		SessionID:       sessionID,
		CommandsEnabled: !s.opts.ReadOnly,
	})
	s.sendJSON(client, eventMessage(stream.Event{
		ID:        state.Seq,
		Event:     matchclock.EventClockState,
		SessionID: sessionID,
		ServerTS:  time.Now().UnixMilli(),
		Data:      state,
	}))
	go s.pump(client, events, state.Seq)

	s.readLoop(client)
	buf.Unsubscribe(events)
}

func (s *Server) pump(c *Client, events <-chan stream.Event, after int64) {
	for ev := range events {
		if ev.ID <= after {
			continue
		}
		s.sendJSON(c, eventMessage(ev))
	}
	// Evicted or unsubscribed; a closed socket ends the read loop.
	_ = c.conn.Close()
}

func (s *Server) readLoop(c *Client) {
	defer func() {
		s.unregister(c)
		_ = c.conn.Close()
	}()
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		s.handleCommand(c, msg)
	}
}

func (s *Server) writeLoop(c *Client) {
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			_ = c.conn.Close()
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (s *Server) handleCommand(c *Client, raw []byte) {
	var cmd CommandMessage
	if err := json.Unmarshal(raw, &cmd); err != nil {
		s.sendResult(c, cmd, false, "invalid_message")
		return
	}
	if len(cmd.RequestID) > maxRequestIDLen {
		s.sendResult(c, cmd, false, "invalid_request_id")
		return
	}
	if s.opts.ReadOnly {
		s.sendResult(c, cmd, false, "commands_disabled")
		return
	}
	switch cmd.Type {
	case CommandStart:
		s.clocks.Start(c.sessionID)
	case CommandStop:
		s.clocks.Stop(c.sessionID)
	case CommandReset:
		s.clocks.Reset(c.sessionID)
	case CommandClearAlarm:
		s.clocks.ClearAlarm(c.sessionID)
	default:
		s.sendResult(c, cmd, false, "unknown_command")
		return
	}
	metricWSCommandsTotal.Add(1)
	log.Info().
		Str("connection_id", c.id).
		Str("session_id", c.sessionID).
		Str("command", cmd.Type).
		Str("request_id", cmd.RequestID).
		Msg("ws_command")
	s.sendResult(c, cmd, true, "")
}

func (s *Server) sendResult(c *Client, cmd CommandMessage, ok bool, code string) {
	s.sendJSON(c, CommandResult{
		Type:            "command_result",
		ProtocolVersion: ProtocolVersion,
		RequestID:       cmd.RequestID,
		Command:         cmd.Type,
		Ok:              ok,
		Error:           code,
	})
}

func (s *Server) sendJSON(c *Client, v any) {
	msg, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.id).Msg("ws_encode_failed")
		return
	}
	if !safeSend(c.send, msg) {
		log.Warn().Str("connection_id", c.id).Str("session_id", c.sessionID).Msg("ws_client_too_slow")
		_ = c.conn.Close()
	}
}

// Connections returns the number of open sockets per session.
func (s *Server) Connections() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]int{}
	for c := range s.clients {
		out[c.sessionID]++
	}
	return out
}

func (s *Server) register(c *Client) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	metricWSConnectionsTotal.Add(1)
	metricWSConnectionsActive.Add(1)
}

func (s *Server) unregister(c *Client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()
	if !ok {
		return
	}
	metricWSConnectionsActive.Add(-1)
	safeClose(c.send)
	log.Info().Str("connection_id", c.id).Str("session_id", c.sessionID).Msg("ws_disconnected")
}

func eventMessage(ev stream.Event) EventMessage {
	return EventMessage{
		Type:            "event",
		ProtocolVersion: ProtocolVersion,
		EventID:         ev.ID,
		Event:           ev.Event,
		SessionID:       ev.SessionID,
		ServerTS:        ev.ServerTS,
		Data:            ev.Data,
	}
}

func safeClose(ch chan []byte) {
	defer func() {
		_ = recover()
	}()
	close(ch)
}

// safeSend reports false when the client is gone or its queue is full.
func safeSend(ch chan []byte, msg []byte) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case ch <- msg:
		return true
	default:
		return false
	}
}
