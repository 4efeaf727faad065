package domain

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Move is a single recorded action. ActionType is a free-form label
// ("move", "shoot", "charge", ...); no legality is implied.
type Move struct {
	ID         uuid.UUID `json:"id"`
	UnitID     uuid.UUID `json:"unit_id"`
	Phase      Phase     `json:"phase"`
	ActionType string    `json:"action_type"`

	TargetID       *uuid.UUID `json:"target_id,omitempty"`
	TargetPosition *Position  `json:"target_position,omitempty"`

	DiceRequired   []int   `json:"dice_required,omitempty"`
	ExpectedDamage float64 `json:"expected_damage"`

	Timestamp time.Time `json:"timestamp"`
}

// NewMove stamps a move with a fresh id and the current UTC time.
func NewMove(unitID uuid.UUID, phase Phase, actionType string) Move {
	return Move{
		ID:         uuid.New(),
		UnitID:     unitID,
		Phase:      phase,
		ActionType: strings.TrimSpace(actionType),
		Timestamp:  time.Now().UTC(),
	}
}

// WithTarget returns a copy of m aimed at another unit.
func (m Move) WithTarget(id uuid.UUID) Move {
	m.TargetID = &id
	return m
}

// WithTargetPosition returns a copy of m aimed at a point.
func (m Move) WithTargetPosition(p Position) Move {
	m.TargetPosition = &p
	return m
}

func (m Move) Validate() error {
	if m.ID == uuid.Nil {
		return invalidField("move.id", nil, "must be set")
	}
	if m.UnitID == uuid.Nil {
		return invalidField("move.unit_id", nil, "must be set")
	}
	if !m.Phase.Valid() {
		return invalidField("move.phase", string(m.Phase), "unknown phase")
	}
	if m.ExpectedDamage < 0 || math.IsNaN(m.ExpectedDamage) || math.IsInf(m.ExpectedDamage, 0) {
		return invalidField("move.expected_damage", m.ExpectedDamage, "must be a finite non-negative number")
	}
	for _, d := range m.DiceRequired {
		if d <= 0 {
			return invalidField("move.dice_required", d, "die size must be positive")
		}
	}
	return nil
}

// clone copies the slices and pointers so history entries cannot be
// changed through the caller's value.
func (m Move) clone() Move {
	out := m
	if m.TargetID != nil {
		id := *m.TargetID
		out.TargetID = &id
	}
	if m.TargetPosition != nil {
		p := *m.TargetPosition
		out.TargetPosition = &p
	}
	out.DiceRequired = append([]int(nil), m.DiceRequired...)
	return out
}
