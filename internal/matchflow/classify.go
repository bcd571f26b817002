package matchflow

import (
	"tri-league/internal/history"
	"tri-league/internal/rotation"
)

// Threshold classifies a match that side ended by reaching the outright goal tally.
func (s Scoring) Threshold(score Score, side rotation.Slot) Result {
	return s.win(score, side, history.KindWin, TriggerThreshold, s.WinPoints)
}

// Expiry classifies a match at the end of the countdown: the leader wins on
// time whatever the margin, equal scores draw.
func (s Scoring) Expiry(score Score) Result {
	switch {
	case score.A > score.B:
		return s.win(score, rotation.SlotA, history.KindTimeWin, TriggerExpiry, s.TimeWinPoints)
	case score.B > score.A:
		return s.win(score, rotation.SlotB, history.KindTimeWin, TriggerExpiry, s.TimeWinPoints)
	default:
		return s.draw(score, TriggerExpiry)
	}
}

// Manual classifies an operator-declared ending. Declared wins score as time wins.
func (s Scoring) Manual(score Score, outcome rotation.Outcome) Result {
	switch outcome {
	case rotation.OutcomeSlotAWins:
		return s.win(score, rotation.SlotA, history.KindTimeWin, TriggerManual, s.TimeWinPoints)
	case rotation.OutcomeSlotBWins:
		return s.win(score, rotation.SlotB, history.KindTimeWin, TriggerManual, s.TimeWinPoints)
	default:
		return s.draw(score, TriggerManual)
	}
}

func (s Scoring) win(score Score, side rotation.Slot, kind string, trigger Trigger, points int) Result {
	r := Result{Kind: kind, Trigger: trigger, Score: score}
	if side == rotation.SlotA {
		r.Outcome = rotation.OutcomeSlotAWins
		r.PointsA = points
	} else {
		r.Outcome = rotation.OutcomeSlotBWins
		r.PointsB = points
	}
	return r
}

func (s Scoring) draw(score Score, trigger Trigger) Result {
	return Result{
		Outcome: rotation.OutcomeDraw,
		Kind:    history.KindDraw,
		Trigger: trigger,
		Score:   score,
		PointsA: s.DrawPoints,
		PointsB: s.DrawPoints,
	}
}
