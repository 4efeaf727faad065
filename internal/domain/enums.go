package domain

import "strings"

// Phase identifies one sub-step of a player turn.
type Phase string

const (
	PhaseCommand  Phase = "COMMAND"
	PhaseMovement Phase = "MOVEMENT"
	PhaseShooting Phase = "SHOOTING"
	PhaseCharge   Phase = "CHARGE"
	PhaseFight    Phase = "FIGHT"
	PhaseMorale   Phase = "MORALE"
)

// phaseOrdinals is the stable index used by feature encoders.
// Keep it explicit; do not derive from declaration order.
var phaseOrdinals = map[Phase]int{
	PhaseCommand:  0,
	PhaseMovement: 1,
	PhaseShooting: 2,
	PhaseCharge:   3,
	PhaseFight:    4,
	PhaseMorale:   5,
}

// MaxPhaseOrdinal is the ordinal of the last phase in a turn.
const MaxPhaseOrdinal = 5

// Phases lists every phase in turn order.
func Phases() []Phase {
	return []Phase{PhaseCommand, PhaseMovement, PhaseShooting, PhaseCharge, PhaseFight, PhaseMorale}
}

func (p Phase) Valid() bool {
	_, ok := phaseOrdinals[p]
	return ok
}

// Ordinal returns the position of p within a turn, or -1 for an unknown phase.
func (p Phase) Ordinal() int {
	if n, ok := phaseOrdinals[p]; ok {
		return n
	}
	return -1
}

func (p Phase) String() string { return string(p) }

// ParsePhase accepts any letter case and surrounding whitespace.
func ParsePhase(s string) (Phase, error) {
	p := Phase(strings.ToUpper(strings.TrimSpace(s)))
	if !p.Valid() {
		names := make([]string, 0, len(phaseOrdinals))
		for _, known := range Phases() {
			names = append(names, string(known))
		}
		return "", &ValidationError{Field: "phase", Value: s, Reason: "unknown phase, expected one of " + strings.Join(names, ", ")}
	}
	return p, nil
}

// UnitStatus is the battlefield status of a unit.
type UnitStatus string

const (
	StatusActive    UnitStatus = "ACTIVE"
	StatusDestroyed UnitStatus = "DESTROYED"
	StatusFled      UnitStatus = "FLED"
	StatusInReserve UnitStatus = "IN_RESERVE"
)

var statusOrdinals = map[UnitStatus]int{
	StatusActive:    0,
	StatusDestroyed: 1,
	StatusFled:      2,
	StatusInReserve: 3,
}

// StatusCount is the number of distinct unit statuses.
const StatusCount = 4

func (s UnitStatus) Valid() bool {
	_, ok := statusOrdinals[s]
	return ok
}

// Ordinal returns the one-hot slot for s, or -1 for an unknown status.
func (s UnitStatus) Ordinal() int {
	if n, ok := statusOrdinals[s]; ok {
		return n
	}
	return -1
}

func (s UnitStatus) String() string { return string(s) }

func ParseUnitStatus(s string) (UnitStatus, error) {
	st := UnitStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", &ValidationError{Field: "status", Value: s, Reason: "unknown unit status"}
	}
	return st, nil
}
