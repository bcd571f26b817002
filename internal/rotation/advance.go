package rotation

import "fmt"

// Advance computes the assignment and memory after a match. precomputed is
// only read when outcome is a draw and memory is empty; it must then be the
// slot that was previewed to the operator.
//
// Advance panics on an unknown outcome, an invalid assignment, or a
// first-match draw without a precomputed slot.
func Advance(a Assignment, m Memory, outcome Outcome, precomputed Slot) (Assignment, Memory) {
	if err := a.Validate(); err != nil {
		panic(fmt.Sprintf("rotation: advance on %v", err))
	}
	switch outcome {
	case OutcomeSlotAWins:
		return rotateOut(a, SlotB), Memory{MustLeave: SlotA}
	case OutcomeSlotBWins:
		return rotateOut(a, SlotA), Memory{MustLeave: SlotB}
	case OutcomeDraw:
		leaving := m.MustLeave
		if leaving == SlotNone {
			leaving = precomputed
		}
		if leaving != SlotA && leaving != SlotB {
			panic("rotation: first-match draw needs a precomputed slot")
		}
		return rotateOut(a, leaving), Memory{MustLeave: leaving.Other()}
	default:
		panic(fmt.Sprintf("rotation: invalid outcome %d", int(outcome)))
	}
}

// rotateOut sends the occupant of s to waiting and brings the waiting team into s.
func rotateOut(a Assignment, s Slot) Assignment {
	leaving := a.In(s)
	next := a.with(s, a.Waiting)
	next.Waiting = leaving
	return next
}
