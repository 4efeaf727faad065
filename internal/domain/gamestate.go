package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const unknownLabel = "unknown"

// GameState is the complete state of a game at one point in time.
// Each unit belongs to exactly one roster. Evaluation never mutates a state;
// callers that share a state across goroutines own its synchronisation.
type GameState struct {
	ID uuid.UUID `json:"id"`

	TurnNumber   int   `json:"turn_number"`
	CurrentPhase Phase `json:"current_phase"`
	ActivePlayer int   `json:"active_player"`

	Player1Units []*Unit `json:"player1_units"`
	Player2Units []*Unit `json:"player2_units"`

	Mission        string `json:"mission"`
	DeploymentType string `json:"deployment_type"`

	Player1VP int `json:"player1_vp"`
	Player2VP int `json:"player2_vp"`

	MoveHistory []Move `json:"move_history"`

	CreatedAt time.Time `json:"created_at"`
}

// StateOption customises a GameState built by NewGameState.
type StateOption func(*GameState)

func WithID(id uuid.UUID) StateOption {
	return func(s *GameState) { s.ID = id }
}

func WithTurn(turn int, phase Phase, activePlayer int) StateOption {
	return func(s *GameState) {
		s.TurnNumber = turn
		s.CurrentPhase = phase
		s.ActivePlayer = activePlayer
	}
}

func WithMission(mission, deployment string) StateOption {
	return func(s *GameState) {
		if v := strings.TrimSpace(mission); v != "" {
			s.Mission = v
		}
		if v := strings.TrimSpace(deployment); v != "" {
			s.DeploymentType = v
		}
	}
}

func WithVictoryPoints(p1, p2 int) StateOption {
	return func(s *GameState) {
		s.Player1VP = p1
		s.Player2VP = p2
	}
}

func WithHistory(moves ...Move) StateOption {
	return func(s *GameState) {
		for _, m := range moves {
			s.MoveHistory = append(s.MoveHistory, m.clone())
		}
	}
}

func WithCreatedAt(t time.Time) StateOption {
	return func(s *GameState) { s.CreatedAt = t }
}

// NewGameState builds a state at turn 1, command phase, player 1 active,
// and validates it once. The roster slices are copied; the units are not.
func NewGameState(player1, player2 []*Unit, opts ...StateOption) (*GameState, error) {
	s := &GameState{
		ID:             uuid.New(),
		TurnNumber:     1,
		CurrentPhase:   PhaseCommand,
		ActivePlayer:   1,
		Player1Units:   append([]*Unit{}, player1...),
		Player2Units:   append([]*Unit{}, player2...),
		Mission:        unknownLabel,
		DeploymentType: unknownLabel,
		MoveHistory:    []Move{},
		CreatedAt:      time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate enforces the structural invariants every lookup relies on:
// unit ids are unique across both rosters and no current count exceeds its maximum.
// Turn, phase and victory point values are taken as given.
func (s *GameState) Validate() error {
	if s == nil {
		return &InvalidStateError{Reason: "nil game state"}
	}
	seen := make(map[uuid.UUID]int, len(s.Player1Units)+len(s.Player2Units))
	check := func(player int, units []*Unit) error {
		for i, u := range units {
			if u == nil {
				return &InvalidStateError{Reason: fmt.Sprintf("player %d roster has nil unit at index %d", player, i)}
			}
			if owner, dup := seen[u.ID]; dup {
				if owner == player {
					return &InvalidStateError{Reason: fmt.Sprintf("duplicate unit id in player %d roster", player), UnitID: u.ID}
				}
				return &InvalidStateError{Reason: "unit id present in both rosters", UnitID: u.ID}
			}
			seen[u.ID] = player
			if u.WoundsCurrent > u.WoundsMax {
				return &InvalidStateError{Reason: "wounds_current exceeds wounds_max", UnitID: u.ID}
			}
			if u.ModelsCurrent > u.ModelsMax {
				return &InvalidStateError{Reason: "models_current exceeds models_max", UnitID: u.ID}
			}
		}
		return nil
	}
	if err := check(1, s.Player1Units); err != nil {
		return err
	}
	return check(2, s.Player2Units)
}

// AllUnits returns player 1's roster followed by player 2's.
func (s *GameState) AllUnits() []*Unit {
	out := make([]*Unit, 0, len(s.Player1Units)+len(s.Player2Units))
	out = append(out, s.Player1Units...)
	return append(out, s.Player2Units...)
}

// ActiveUnits returns the living units of both rosters, in roster order.
func (s *GameState) ActiveUnits() []*Unit {
	var out []*Unit
	for _, u := range s.AllUnits() {
		if u.IsAlive() {
			out = append(out, u)
		}
	}
	return out
}

// GetUnit is a linear scan; rosters hold tens of units at most.
func (s *GameState) GetUnit(id uuid.UUID) (*Unit, bool) {
	for _, u := range s.Player1Units {
		if u.ID == id {
			return u, true
		}
	}
	for _, u := range s.Player2Units {
		if u.ID == id {
			return u, true
		}
	}
	return nil, false
}

// Owner returns 1 or 2 for the roster holding id, 0 when absent.
func (s *GameState) Owner(id uuid.UUID) int {
	for _, u := range s.Player1Units {
		if u.ID == id {
			return 1
		}
	}
	for _, u := range s.Player2Units {
		if u.ID == id {
			return 2
		}
	}
	return 0
}

// Roster returns the units of player 1 or 2.
func (s *GameState) Roster(player int) []*Unit {
	switch player {
	case 1:
		return s.Player1Units
	case 2:
		return s.Player2Units
	default:
		return nil
	}
}

// RecordMove appends m to the history. The acting unit must be on a roster.
func (s *GameState) RecordMove(m Move) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if _, ok := s.GetUnit(m.UnitID); !ok {
		return &InvalidStateError{Reason: "move references unknown unit", UnitID: m.UnitID}
	}
	s.MoveHistory = append(s.MoveHistory, m.clone())
	return nil
}

// LastMove returns the most recent history entry.
func (s *GameState) LastMove() (Move, bool) {
	if len(s.MoveHistory) == 0 {
		return Move{}, false
	}
	return s.MoveHistory[len(s.MoveHistory)-1], true
}
