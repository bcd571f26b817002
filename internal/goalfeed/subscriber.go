package goalfeed

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"tri-league/internal/matchclock"
	"tri-league/internal/matchflow"
	"tri-league/internal/rotation"
)

const handleTimeout = 5 * time.Second

var (
	metricGoalMessagesTotal = expvar.NewInt("goalfeed_messages_total")
	metricGoalMessagesBad   = expvar.NewInt("goalfeed_messages_rejected_total")
)

var (
	ErrBadSubject       = errors.New("goal subject has no session id")
	ErrInvalidSessionID = errors.New("goal subject carries an invalid session id")
)

// Recorder is the part of matchflow.Manager the feed drives.
type Recorder interface {
	RecordGoal(ctx context.Context, sessionID string, side rotation.Slot, scorer string) (matchflow.Status, error)
}

type Message struct {
	Side   string `json:"side"`
	Scorer string `json:"scorer,omitempty"`
}

type reply struct {
	OK    bool             `json:"ok"`
	Error string           `json:"error,omitempty"`
	Phase matchflow.Phase  `json:"phase,omitempty"`
	Score *matchflow.Score `json:"score,omitempty"`
}

// Subscriber turns goal messages on <prefix>.<session_id> into recorded goals.
// Messages with a reply subject get the resulting score back.
type Subscriber struct {
	nc      *nats.Conn
	subject string
	rec     Recorder
	sub     *nats.Subscription
}

// New subscribes to subject, which should end in a single-token wildcard
// such as trileague.goals.*.
func New(nc *nats.Conn, subject string, rec Recorder) *Subscriber {
	if subject == "" {
		subject = "trileague.goals.*"
	}
	return &Subscriber{nc: nc, subject: subject, rec: rec}
}

func (s *Subscriber) Start() error {
	sub, err := s.nc.Subscribe(s.subject, s.handle)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.subject, err)
	}
	s.sub = sub
	log.Info().Str("subject", s.subject).Msg("goal_feed_started")
	return nil
}

// Stop drains in-flight messages and unsubscribes.
func (s *Subscriber) Stop() error {
	if s.sub == nil {
		return nil
	}
	return s.sub.Drain()
}

func (s *Subscriber) handle(msg *nats.Msg) {
	metricGoalMessagesTotal.Add(1)
	sessionID, side, scorer, err := decode(msg)
	if err != nil {
		metricGoalMessagesBad.Add(1)
		log.Warn().Err(err).Str("subject", msg.Subject).Msg("goal_message_dropped")
		s.respond(msg, reply{Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()
	st, err := s.rec.RecordGoal(ctx, sessionID, side, scorer)
	if err != nil {
		metricGoalMessagesBad.Add(1)
		log.Warn().Err(err).Str("session_id", sessionID).Msg("goal_message_rejected")
		s.respond(msg, reply{Error: err.Error(), Phase: st.Phase})
		return
	}
	s.respond(msg, reply{OK: true, Phase: st.Phase, Score: &st.Score})
}

func (s *Subscriber) respond(msg *nats.Msg, r reply) {
	if msg.Reply == "" {
		return
	}
	b, _ := json.Marshal(r)
	if err := msg.Respond(b); err != nil {
		log.Warn().Err(err).Str("subject", msg.Subject).Msg("goal_reply_failed")
	}
}

func decode(msg *nats.Msg) (string, rotation.Slot, string, error) {
	idx := strings.LastIndexByte(msg.Subject, '.')
	if idx < 0 || idx == len(msg.Subject)-1 {
		return "", rotation.SlotNone, "", ErrBadSubject
	}
	sessionID := msg.Subject[idx+1:]
	if !matchclock.ValidSessionID(sessionID) {
		return "", rotation.SlotNone, "", fmt.Errorf("%w: %q", ErrInvalidSessionID, sessionID)
	}

	var m Message
	if err := json.Unmarshal(msg.Data, &m); err != nil {
		return "", rotation.SlotNone, "", fmt.Errorf("decode goal: %w", err)
	}
	side, err := rotation.ParseSlot(m.Side)
	if err != nil {
		return "", rotation.SlotNone, "", err
	}
	if side == rotation.SlotNone {
		return "", rotation.SlotNone, "", matchflow.ErrInvalidSide
	}
	return sessionID, side, strings.TrimSpace(m.Scorer), nil
}
