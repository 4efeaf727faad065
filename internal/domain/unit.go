package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Position is an abstract battlefield coordinate in inches.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Unit is a battlefield entity owned by exactly one roster.
// Units are never removed from a roster; losses are expressed through Status.
type Unit struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Faction string    `json:"faction"`

	WoundsCurrent int `json:"wounds_current"`
	WoundsMax     int `json:"wounds_max"`
	ModelsCurrent int `json:"models_current"`
	ModelsMax     int `json:"models_max"`

	Position Position `json:"position"`

	Status     UnitStatus `json:"status"`
	HasMoved   bool       `json:"has_moved"`
	HasShot    bool       `json:"has_shot"`
	HasCharged bool       `json:"has_charged"`
	HasFought  bool       `json:"has_fought"`

	PointsCost int      `json:"points_cost"`
	Keywords   []string `json:"keywords,omitempty"`
}

// NewUnit returns an active, unwounded unit with a fresh id.
func NewUnit(name, faction string, wounds, models, points int) *Unit {
	return &Unit{
		ID:            uuid.New(),
		Name:          strings.TrimSpace(name),
		Faction:       strings.TrimSpace(faction),
		WoundsCurrent: wounds,
		WoundsMax:     wounds,
		ModelsCurrent: models,
		ModelsMax:     models,
		Status:        StatusActive,
		PointsCost:    points,
	}
}

// IsAlive reports whether the unit is still fighting.
func (u *Unit) IsAlive() bool {
	return u != nil && u.Status == StatusActive && u.WoundsCurrent > 0
}

// HasKeyword matches case-insensitively.
func (u *Unit) HasKeyword(kw string) bool {
	kw = strings.TrimSpace(kw)
	for _, k := range u.Keywords {
		if strings.EqualFold(k, kw) {
			return true
		}
	}
	return false
}

// Validate checks the unit's own fields. Counts above their maximum are
// reported as *InvalidStateError, everything else as *ValidationError.
func (u *Unit) Validate() error {
	if u == nil {
		return invalidField("unit", nil, "nil unit")
	}
	if u.ID == uuid.Nil {
		return invalidField("unit.id", nil, "must be set")
	}
	if !u.Status.Valid() {
		return invalidField("unit.status", string(u.Status), "unknown unit status")
	}
	counts := []struct {
		field string
		value int
	}{
		{"unit.wounds_current", u.WoundsCurrent},
		{"unit.wounds_max", u.WoundsMax},
		{"unit.models_current", u.ModelsCurrent},
		{"unit.models_max", u.ModelsMax},
		{"unit.points_cost", u.PointsCost},
	}
	for _, c := range counts {
		if c.value < 0 {
			return invalidField(c.field, c.value, "must be non-negative")
		}
	}
	if u.WoundsCurrent > u.WoundsMax {
		return &InvalidStateError{Reason: "wounds_current exceeds wounds_max", UnitID: u.ID}
	}
	if u.ModelsCurrent > u.ModelsMax {
		return &InvalidStateError{Reason: "models_current exceeds models_max", UnitID: u.ID}
	}
	return nil
}
