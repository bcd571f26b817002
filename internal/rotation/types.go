package rotation

import (
	"errors"
	"fmt"
)

type TeamID string

// Slot is one of the two on-field positions.
type Slot int

const (
	SlotNone Slot = iota
	SlotA
	SlotB
)

func (s Slot) String() string {
	switch s {
	case SlotA:
		return "A"
	case SlotB:
		return "B"
	default:
		return ""
	}
}

// Other returns the opposite on-field slot. It panics for SlotNone.
func (s Slot) Other() Slot {
	switch s {
	case SlotA:
		return SlotB
	case SlotB:
		return SlotA
	default:
		panic(fmt.Sprintf("rotation: no opposite for slot %d", int(s)))
	}
}

func (s Slot) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Slot) UnmarshalText(b []byte) error {
	v, err := ParseSlot(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func ParseSlot(raw string) (Slot, error) {
	switch raw {
	case "A", "a":
		return SlotA, nil
	case "B", "b":
		return SlotB, nil
	case "":
		return SlotNone, nil
	default:
		return SlotNone, fmt.Errorf("%w: %q", ErrInvalidSlot, raw)
	}
}

type Outcome int

const (
	OutcomeSlotAWins Outcome = iota + 1
	OutcomeSlotBWins
	OutcomeDraw
)

func (o Outcome) Valid() bool {
	return o >= OutcomeSlotAWins && o <= OutcomeDraw
}

func (o Outcome) String() string {
	switch o {
	case OutcomeSlotAWins:
		return "slot_a_wins"
	case OutcomeSlotBWins:
		return "slot_b_wins"
	case OutcomeDraw:
		return "draw"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOutcome, int(o))
	}
	return []byte(o.String()), nil
}

func (o *Outcome) UnmarshalText(b []byte) error {
	v, err := ParseOutcome(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

func ParseOutcome(raw string) (Outcome, error) {
	switch raw {
	case "slot_a_wins":
		return OutcomeSlotAWins, nil
	case "slot_b_wins":
		return OutcomeSlotBWins, nil
	case "draw":
		return OutcomeDraw, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidOutcome, raw)
	}
}

var (
	ErrInvalidSlot        = errors.New("invalid_slot")
	ErrInvalidOutcome     = errors.New("invalid_outcome")
	ErrInvalidAssignment  = errors.New("invalid_assignment")
	ErrDrawChoiceConsumed = errors.New("draw_choice_consumed")
)

// Assignment places the three teams: two on the field, one waiting.
type Assignment struct {
	SlotA   TeamID `json:"slot_a"`
	SlotB   TeamID `json:"slot_b"`
	Waiting TeamID `json:"waiting"`
}

func NewAssignment(teams [3]TeamID) (Assignment, error) {
	a := Assignment{SlotA: teams[0], SlotB: teams[1], Waiting: teams[2]}
	if err := a.Validate(); err != nil {
		return Assignment{}, err
	}
	return a, nil
}

func (a Assignment) Validate() error {
	if a.SlotA == "" || a.SlotB == "" || a.Waiting == "" {
		return fmt.Errorf("%w: empty team id", ErrInvalidAssignment)
	}
	if a.SlotA == a.SlotB || a.SlotA == a.Waiting || a.SlotB == a.Waiting {
		return fmt.Errorf("%w: team listed twice", ErrInvalidAssignment)
	}
	return nil
}

func (a Assignment) In(s Slot) TeamID {
	switch s {
	case SlotA:
		return a.SlotA
	case SlotB:
		return a.SlotB
	default:
		panic(fmt.Sprintf("rotation: no team for slot %d", int(s)))
	}
}

// SlotOf reports the on-field slot of team, or SlotNone when it is waiting or unknown.
func (a Assignment) SlotOf(team TeamID) Slot {
	switch team {
	case a.SlotA:
		return SlotA
	case a.SlotB:
		return SlotB
	default:
		return SlotNone
	}
}

func (a Assignment) with(s Slot, team TeamID) Assignment {
	if s == SlotA {
		a.SlotA = team
	} else {
		a.SlotB = team
	}
	return a
}

// Memory records which slot owes the next rotation on a draw. The zero value
// means no match has concluded yet.
type Memory struct {
	MustLeave Slot `json:"must_leave_slot"`
}

func (m Memory) Empty() bool { return m.MustLeave == SlotNone }
