package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/park285/primordia/internal/domain"
	yaml "gopkg.in/yaml.v3"
)

var (
	ErrEmpty     = errors.New("empty scenario")
	ErrMalformed = errors.New("malformed scenario")
)

// Document is the on-disk and on-the-wire form of a game state. JSON is
// accepted as well since it is a subset of YAML. Omitted ids are generated;
// omitted turn, phase and active player default to 1, COMMAND and 1.
type Document struct {
	ID           string    `yaml:"id" json:"id,omitempty"`
	Mission      string    `yaml:"mission" json:"mission,omitempty"`
	Deployment   string    `yaml:"deployment" json:"deployment,omitempty"`
	Turn         int       `yaml:"turn" json:"turn,omitempty"`
	Phase        string    `yaml:"phase" json:"phase,omitempty"`
	ActivePlayer int       `yaml:"active_player" json:"active_player,omitempty"`
	Player1VP    int       `yaml:"player1_vp" json:"player1_vp"`
	Player2VP    int       `yaml:"player2_vp" json:"player2_vp"`
	Player1      []UnitDoc `yaml:"player1" json:"player1"`
	Player2      []UnitDoc `yaml:"player2" json:"player2"`
	Moves        []MoveDoc `yaml:"moves" json:"moves,omitempty"`
}

// UnitDoc describes one unit. Current counts default to the maximum.
type UnitDoc struct {
	ID            string          `yaml:"id" json:"id,omitempty"`
	Name          string          `yaml:"name" json:"name"`
	Faction       string          `yaml:"faction" json:"faction"`
	Wounds        int             `yaml:"wounds" json:"wounds"`
	WoundsCurrent *int            `yaml:"wounds_current" json:"wounds_current,omitempty"`
	Models        int             `yaml:"models" json:"models"`
	ModelsCurrent *int            `yaml:"models_current" json:"models_current,omitempty"`
	Points        int             `yaml:"points" json:"points"`
	Position      domain.Position `yaml:"position" json:"position"`
	Status        string          `yaml:"status" json:"status,omitempty"`
	HasMoved      bool            `yaml:"has_moved" json:"has_moved,omitempty"`
	HasShot       bool            `yaml:"has_shot" json:"has_shot,omitempty"`
	HasCharged    bool            `yaml:"has_charged" json:"has_charged,omitempty"`
	HasFought     bool            `yaml:"has_fought" json:"has_fought,omitempty"`
	Keywords      []string        `yaml:"keywords" json:"keywords,omitempty"`
}

// MoveDoc references units by id or by unique name.
type MoveDoc struct {
	Unit           string           `yaml:"unit" json:"unit"`
	Phase          string           `yaml:"phase" json:"phase"`
	Action         string           `yaml:"action" json:"action"`
	Target         string           `yaml:"target" json:"target,omitempty"`
	TargetPosition *domain.Position `yaml:"target_position" json:"target_position,omitempty"`
	Dice           []int            `yaml:"dice" json:"dice,omitempty"`
	ExpectedDamage float64          `yaml:"expected_damage" json:"expected_damage,omitempty"`
}

// Load reads and builds a scenario file.
func Load(path string) (*domain.GameState, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(raw)
}

// Parse decodes YAML or JSON and builds a validated GameState. Unknown
// fields are rejected.
func Parse(raw []byte) (*domain.GameState, error) {
	doc, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	return doc.Build()
}

func Decode(raw []byte) (*Document, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmpty
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &doc, nil
}

// Build converts the document into a GameState. Turn, active player and
// victory points are range-checked here; NewGameState then checks ids and counts.
func (d *Document) Build() (*domain.GameState, error) {
	turn := d.Turn
	if turn == 0 {
		turn = 1
	}
	if turn < 1 {
		return nil, &domain.ValidationError{Field: "turn", Value: d.Turn, Reason: "must be at least 1"}
	}
	active := d.ActivePlayer
	if active == 0 {
		active = 1
	}
	if active != 1 && active != 2 {
		return nil, &domain.ValidationError{Field: "active_player", Value: d.ActivePlayer, Reason: "must be 1 or 2"}
	}
	if d.Player1VP < 0 {
		return nil, &domain.ValidationError{Field: "player1_vp", Value: d.Player1VP, Reason: "must be non-negative"}
	}
	if d.Player2VP < 0 {
		return nil, &domain.ValidationError{Field: "player2_vp", Value: d.Player2VP, Reason: "must be non-negative"}
	}
	phase := domain.PhaseCommand
	if strings.TrimSpace(d.Phase) != "" {
		p, err := domain.ParsePhase(d.Phase)
		if err != nil {
			return nil, err
		}
		phase = p
	}

	p1, err := buildUnits("player1", d.Player1)
	if err != nil {
		return nil, err
	}
	p2, err := buildUnits("player2", d.Player2)
	if err != nil {
		return nil, err
	}

	opts := []domain.StateOption{
		domain.WithTurn(turn, phase, active),
		domain.WithMission(d.Mission, d.Deployment),
		domain.WithVictoryPoints(d.Player1VP, d.Player2VP),
	}
	if strings.TrimSpace(d.ID) != "" {
		id, err := uuid.Parse(strings.TrimSpace(d.ID))
		if err != nil {
			return nil, &domain.ValidationError{Field: "id", Value: d.ID, Reason: "must be a UUID"}
		}
		opts = append(opts, domain.WithID(id))
	}

	state, err := domain.NewGameState(p1, p2, opts...)
	if err != nil {
		return nil, err
	}
	for i, md := range d.Moves {
		m, err := md.build(state)
		if err != nil {
			return nil, fmt.Errorf("moves[%d]: %w", i, err)
		}
		if err := state.RecordMove(m); err != nil {
			return nil, fmt.Errorf("moves[%d]: %w", i, err)
		}
	}
	return state, nil
}

func buildUnits(side string, docs []UnitDoc) ([]*domain.Unit, error) {
	units := make([]*domain.Unit, 0, len(docs))
	for i, ud := range docs {
		u, err := ud.build()
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", side, i, err)
		}
		units = append(units, u)
	}
	return units, nil
}

func (ud UnitDoc) build() (*domain.Unit, error) {
	u := domain.NewUnit(ud.Name, ud.Faction, ud.Wounds, ud.Models, ud.Points)
	if strings.TrimSpace(ud.ID) != "" {
		id, err := uuid.Parse(strings.TrimSpace(ud.ID))
		if err != nil {
			return nil, &domain.ValidationError{Field: "unit.id", Value: ud.ID, Reason: "must be a UUID"}
		}
		u.ID = id
	}
	if ud.WoundsCurrent != nil {
		u.WoundsCurrent = *ud.WoundsCurrent
	}
	if ud.ModelsCurrent != nil {
		u.ModelsCurrent = *ud.ModelsCurrent
	}
	if strings.TrimSpace(ud.Status) != "" {
		st, err := domain.ParseUnitStatus(ud.Status)
		if err != nil {
			return nil, err
		}
		u.Status = st
	}
	u.Position = ud.Position
	u.HasMoved = ud.HasMoved
	u.HasShot = ud.HasShot
	u.HasCharged = ud.HasCharged
	u.HasFought = ud.HasFought
	u.Keywords = append([]string(nil), ud.Keywords...)
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

func (md MoveDoc) build(state *domain.GameState) (domain.Move, error) {
	unitID, err := resolveUnit(state, md.Unit)
	if err != nil {
		return domain.Move{}, err
	}
	phase, err := domain.ParsePhase(md.Phase)
	if err != nil {
		return domain.Move{}, err
	}
	m := domain.NewMove(unitID, phase, strings.TrimSpace(md.Action))
	if strings.TrimSpace(md.Target) != "" {
		target, err := resolveUnit(state, md.Target)
		if err != nil {
			return domain.Move{}, err
		}
		m = m.WithTarget(target)
	}
	if md.TargetPosition != nil {
		m = m.WithTargetPosition(*md.TargetPosition)
	}
	m.DiceRequired = append([]int(nil), md.Dice...)
	m.ExpectedDamage = md.ExpectedDamage
	return m, nil
}

// resolveUnit accepts a unit id or a name that matches exactly one unit.
func resolveUnit(state *domain.GameState, ref string) (uuid.UUID, error) {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		if _, ok := state.GetUnit(id); ok {
			return id, nil
		}
		return uuid.Nil, &domain.ValidationError{Field: "unit", Value: ref, Reason: "no unit with this id"}
	}
	var found []uuid.UUID
	for _, u := range state.AllUnits() {
		if strings.EqualFold(u.Name, ref) {
			found = append(found, u.ID)
		}
	}
	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return uuid.Nil, &domain.ValidationError{Field: "unit", Value: ref, Reason: "no unit with this name"}
	default:
		return uuid.Nil, &domain.ValidationError{Field: "unit", Value: ref, Reason: "name is ambiguous, use the unit id"}
	}
}
