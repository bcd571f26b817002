package matchflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"tri-league/internal/history"
	"tri-league/internal/matchclock"
	"tri-league/internal/rotation"
	"tri-league/internal/store"
)

const autoConfirmTimeout = 10 * time.Second

type Options struct {
	Scoring     Scoring
	AutoConfirm bool
	Coin        rotation.Coin
	Clock       clockwork.Clock
	NewID       func() string
}

func (o Options) withDefaults() Options {
	if o.Scoring.OutrightWinGoals <= 0 {
		o.Scoring = DefaultScoring()
	}
	if o.Coin == nil {
		o.Coin = rotation.DefaultCoin
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.NewID == nil {
		o.NewID = store.NewID
	}
	return o
}

// Coordinator classifies how each match of one session ends and commits it
// exactly once: rotation, history record, clock reset.
type Coordinator struct {
	sessionID string
	clock     ClockControl
	engine    *rotation.Engine
	sink      history.Sink
	opts      Options

	mu          sync.Mutex
	phase       Phase
	matchID     string
	startedAt   time.Time
	score       Score
	goals       []Goal
	alarmFired  bool
	pending     *Result
	choice      *rotation.PendingDrawChoice
	undelivered []history.MatchRecord
	last        *history.MatchRecord

	retryMu sync.Mutex
}

func NewCoordinator(sessionID string, clock ClockControl, engine *rotation.Engine, sink history.Sink, opts Options) *Coordinator {
	return &Coordinator{
		sessionID: sessionID,
		clock:     clock,
		engine:    engine,
		sink:      sink,
		opts:      opts.withDefaults(),
		phase:     PhaseIdle,
	}
}

func (c *Coordinator) SessionID() string { return c.sessionID }

// StartMatch opens a match if none is open and starts the clock.
func (c *Coordinator) StartMatch() error {
	c.mu.Lock()
	switch c.phase {
	case PhaseIdle:
		c.beginLocked()
	case PhaseRunning:
	default:
		phase := c.phase
		c.mu.Unlock()
		return fmt.Errorf("%w: phase %s", ErrMatchNotRunning, phase)
	}
	c.mu.Unlock()
	c.clock.Start(c.sessionID)
	return nil
}

// RecordGoal adds a goal for side. Reaching the outright tally ends the match
// and stops the clock. Goals after a match has ended are rejected.
func (c *Coordinator) RecordGoal(side rotation.Slot, scorer string) (Status, error) {
	if side != rotation.SlotA && side != rotation.SlotB {
		return Status{}, ErrInvalidSide
	}
	c.mu.Lock()
	switch c.phase {
	case PhaseIdle:
		c.beginLocked()
	case PhaseRunning:
	default:
		phase := c.phase
		st := c.statusLocked()
		c.mu.Unlock()
		log.Warn().
			Str("session_id", c.sessionID).
			Str("phase", string(phase)).
			Str("side", side.String()).
			Msg("goal_rejected")
		return st, fmt.Errorf("%w: phase %s", ErrMatchNotRunning, phase)
	}

	if side == rotation.SlotA {
		c.score.A++
	} else {
		c.score.B++
	}
	c.goals = append(c.goals, Goal{Side: side, Scorer: scorer, ScoredAt: c.opts.Clock.Now()})
	metricGoalsRecorded.Add(1)

	ended := c.score.Of(side) >= c.opts.Scoring.OutrightWinGoals
	if ended {
		res := c.opts.Scoring.Threshold(c.score, side)
		c.pending = &res
		c.phase = PhaseThresholdReached
	}
	score := c.score
	matchID := c.matchID
	c.mu.Unlock()

	log.Info().
		Str("session_id", c.sessionID).
		Str("match_id", matchID).
		Str("side", side.String()).
		Str("scorer", scorer).
		Int("score_a", score.A).
		Int("score_b", score.B).
		Msg("goal_recorded")

	if ended {
		c.clock.Stop(c.sessionID)
		log.Info().Str("session_id", c.sessionID).Str("match_id", matchID).Msg("match_threshold_reached")
		c.autoConfirm()
	}
	return c.Status(), nil
}

func (c *Coordinator) OnAlarm(matchclock.State) {
	c.mu.Lock()
	c.alarmFired = true
	c.mu.Unlock()
}

// OnExpiry classifies the match at the current score. An expiry arriving after
// the match already ended is a duplicate finalization and is dropped, and so
// is one from a countdown the clock has since been reset away from.
func (c *Coordinator) OnExpiry(st matchclock.State) {
	c.mu.Lock()
	if cur, ok := c.clock.Snapshot(c.sessionID); !ok || cur.Cycle != st.Cycle {
		phase := c.phase
		c.mu.Unlock()
		metricFinalizationsRejected.Add(1)
		log.Warn().
			Str("session_id", c.sessionID).
			Str("phase", string(phase)).
			Uint64("expiry_cycle", st.Cycle).
			Uint64("clock_cycle", cur.Cycle).
			Bool("clock_known", ok).
			Msg("stale_expiry_rejected")
		return
	}
	switch c.phase {
	case PhaseIdle:
		c.beginLocked()
	case PhaseRunning:
	default:
		phase := c.phase
		c.mu.Unlock()
		metricFinalizationsRejected.Add(1)
		log.Warn().
			Str("session_id", c.sessionID).
			Str("phase", string(phase)).
			Msg("expiry_finalization_rejected")
		return
	}
	res := c.opts.Scoring.Expiry(c.score)
	c.pending = &res
	c.phase = PhaseExpired
	matchID := c.matchID
	c.mu.Unlock()

	log.Info().
		Str("session_id", c.sessionID).
		Str("match_id", matchID).
		Str("kind", res.Kind).
		Int("score_a", res.Score.A).
		Int("score_b", res.Score.B).
		Msg("match_expired")
	c.autoConfirm()
}

// OpenConfirmation returns the result preview. For a first-match draw it
// flips the coin once and keeps the choice until it is consumed, so reopening
// the dialog shows the same team leaving.
func (c *Coordinator) OpenConfirmation(req PreviewRequest) (Preview, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, err := c.resultLocked(req.Outcome)
	if err != nil {
		return Preview{}, err
	}
	snap := c.engine.Snapshot()
	p := Preview{
		SessionID: c.sessionID,
		MatchID:   c.matchID,
		Result:    res,
		Current:   snap.Assignment,
	}
	precomputed := rotation.SlotNone
	if res.Outcome == rotation.OutcomeDraw && snap.Memory.Empty() {
		if c.choice == nil || c.choice.Consumed() {
			c.choice = c.engine.NewDrawChoice(c.opts.NewID(), c.opts.Coin)
		}
		precomputed = c.choice.Preview()
		p.DrawChoice = &DrawChoiceView{
			ID:          c.choice.ID,
			LeavingSlot: precomputed,
			LeavingTeam: string(snap.Assignment.In(precomputed)),
		}
	}
	p.Next, _ = c.engine.Preview(res.Outcome, precomputed)
	return p, nil
}

// ConfirmResult commits the concluded match and returns the next assignment.
// When the history sink fails the rotation and clock reset still stand: the
// record is queued for RetryUndelivered and the returned error wraps
// ErrSinkFailed alongside the valid assignment.
func (c *Coordinator) ConfirmResult(ctx context.Context, req ConfirmRequest) (rotation.Assignment, error) {
	c.mu.Lock()
	if c.phase == PhaseFinalizing {
		c.mu.Unlock()
		metricFinalizationsRejected.Add(1)
		log.Warn().Str("session_id", c.sessionID).Msg("confirm_rejected_in_progress")
		return rotation.Assignment{}, ErrFinalizationInProgress
	}
	res, err := c.resultLocked(req.Outcome)
	if err != nil {
		c.mu.Unlock()
		if errors.Is(err, ErrNothingToConfirm) {
			metricFinalizationsRejected.Add(1)
			log.Warn().Str("session_id", c.sessionID).Msg("confirm_rejected_nothing_pending")
		}
		return rotation.Assignment{}, err
	}

	snap := c.engine.Snapshot()
	precomputed := rotation.SlotNone
	if res.Outcome == rotation.OutcomeDraw && snap.Memory.Empty() {
		if c.choice == nil || req.DrawChoiceID == "" || req.DrawChoiceID != c.choice.ID {
			c.mu.Unlock()
			return rotation.Assignment{}, ErrDrawPreviewRequired
		}
		slot, err := c.choice.Consume()
		if err != nil {
			c.mu.Unlock()
			return rotation.Assignment{}, err
		}
		precomputed = slot
	}

	manual := c.phase == PhaseRunning
	c.phase = PhaseFinalizing
	matchID := c.matchID
	startedAt := c.startedAt
	c.mu.Unlock()

	if manual {
		c.clock.Stop(c.sessionID)
	}
	next := c.engine.Apply(res.Outcome, precomputed)
	rec := c.record(matchID, startedAt, snap.Assignment, res, next)
	sinkErr := c.sink.RecordMatch(ctx, rec)
	c.clock.Reset(c.sessionID)

	c.mu.Lock()
	c.phase = PhaseIdle
	c.matchID = ""
	c.pending = nil
	c.choice = nil
	c.score = Score{}
	c.goals = nil
	c.alarmFired = false
	c.last = &rec
	if sinkErr != nil {
		c.undelivered = append(c.undelivered, rec)
	}
	c.mu.Unlock()

	metricMatchesFinalized.Add(1)
	if sinkErr != nil {
		metricSinkFailures.Add(1)
		log.Error().
			Err(sinkErr).
			Str("session_id", c.sessionID).
			Str("match_id", rec.ID).
			Msg("match_record_undelivered")
		return next.Assignment, fmt.Errorf("%w: match %s: %v", ErrSinkFailed, rec.ID, sinkErr)
	}
	log.Info().
		Str("session_id", c.sessionID).
		Str("match_id", rec.ID).
		Str("kind", rec.Kind).
		Str("outcome", rec.Outcome).
		Str("next_waiting", rec.NextWaiting).
		Msg("match_finalized")
	return next.Assignment, nil
}

// RetryUndelivered resends queued records in order, stopping at the first
// failure. It returns how many were delivered.
func (c *Coordinator) RetryUndelivered(ctx context.Context) (int, error) {
	c.retryMu.Lock()
	defer c.retryMu.Unlock()

	c.mu.Lock()
	queue := append([]history.MatchRecord(nil), c.undelivered...)
	c.mu.Unlock()

	delivered := 0
	var err error
	for _, rec := range queue {
		if err = c.sink.RecordMatch(ctx, rec); err != nil {
			err = fmt.Errorf("%w: match %s: %v", ErrSinkFailed, rec.ID, err)
			break
		}
		delivered++
	}

	c.mu.Lock()
	c.undelivered = c.undelivered[delivered:]
	remaining := len(c.undelivered)
	c.mu.Unlock()

	if delivered > 0 || err != nil {
		log.Info().
			Str("session_id", c.sessionID).
			Int("delivered", delivered).
			Int("remaining", remaining).
			Err(err).
			Msg("match_records_retried")
	}
	return delivered, err
}

func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *Coordinator) statusLocked() Status {
	snap := c.engine.Snapshot()
	st := Status{
		SessionID:   c.sessionID,
		Phase:       c.phase,
		MatchID:     c.matchID,
		Score:       c.score,
		Goals:       append([]Goal(nil), c.goals...),
		Assignment:  snap.Assignment,
		Memory:      snap.Memory,
		Matches:     snap.Matches,
		AlarmFired:  c.alarmFired,
		Undelivered: len(c.undelivered),
	}
	if c.pending != nil {
		p := *c.pending
		st.Pending = &p
	}
	if c.last != nil {
		rec := *c.last
		st.LastRecord = &rec
	}
	return st
}

func (c *Coordinator) beginLocked() {
	c.phase = PhaseRunning
	c.matchID = c.opts.NewID()
	c.startedAt = c.opts.Clock.Now()
	c.score = Score{}
	c.goals = nil
	c.pending = nil
	c.choice = nil
	log.Info().Str("session_id", c.sessionID).Str("match_id", c.matchID).Msg("match_started")
}

func (c *Coordinator) resultLocked(outcome *rotation.Outcome) (Result, error) {
	if outcome != nil && !outcome.Valid() {
		return Result{}, rotation.ErrInvalidOutcome
	}
	switch c.phase {
	case PhaseExpired, PhaseThresholdReached:
		if outcome != nil && *outcome != c.pending.Outcome {
			return Result{}, fmt.Errorf("%w: classified %s", ErrOutcomeMismatch, c.pending.Outcome)
		}
		return *c.pending, nil
	case PhaseRunning:
		if outcome == nil {
			return Result{}, ErrMatchNotConcluded
		}
		return c.opts.Scoring.Manual(c.score, *outcome), nil
	case PhaseFinalizing:
		return Result{}, ErrFinalizationInProgress
	default:
		return Result{}, ErrNothingToConfirm
	}
}

func (c *Coordinator) record(matchID string, startedAt time.Time, played rotation.Assignment, res Result, next rotation.Snapshot) history.MatchRecord {
	rec := history.MatchRecord{
		ID:          matchID,
		SessionID:   c.sessionID,
		MatchNumber: next.Matches,
		SlotA:       string(played.SlotA),
		SlotB:       string(played.SlotB),
		Waiting:     string(played.Waiting),
		ScoreA:      res.Score.A,
		ScoreB:      res.Score.B,
		Outcome:     res.Outcome.String(),
		Kind:        res.Kind,
		Trigger:     string(res.Trigger),
		PointsA:     res.PointsA,
		PointsB:     res.PointsB,
		StartedAt:   startedAt,
		ConcludedAt: c.opts.Clock.Now(),
		NextSlotA:   string(next.Assignment.SlotA),
		NextSlotB:   string(next.Assignment.SlotB),
		NextWaiting: string(next.Assignment.Waiting),
	}
	switch res.Outcome {
	case rotation.OutcomeSlotAWins:
		rec.Winner = rec.SlotA
	case rotation.OutcomeSlotBWins:
		rec.Winner = rec.SlotB
	}
	return rec
}

func (c *Coordinator) autoConfirm() {
	if !c.opts.AutoConfirm {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), autoConfirmTimeout)
	defer cancel()

	req := ConfirmRequest{}
	preview, err := c.OpenConfirmation(PreviewRequest{})
	if err != nil {
		log.Warn().Err(err).Str("session_id", c.sessionID).Msg("auto_confirm_preview_failed")
		return
	}
	if preview.DrawChoice != nil {
		req.DrawChoiceID = preview.DrawChoice.ID
	}
	if _, err := c.ConfirmResult(ctx, req); err != nil && !errors.Is(err, ErrSinkFailed) {
		log.Warn().Err(err).Str("session_id", c.sessionID).Msg("auto_confirm_failed")
	}
}
