package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// InvalidStateError reports a GameState that breaks a structural invariant,
// such as a unit id appearing twice across the rosters.
type InvalidStateError struct {
	Reason string
	UnitID uuid.UUID
}

func (e *InvalidStateError) Error() string {
	if e.UnitID != uuid.Nil {
		return fmt.Sprintf("invalid game state: %s (unit %s)", e.Reason, e.UnitID)
	}
	return "invalid game state: " + e.Reason
}

// ValidationError reports a malformed field on a value type.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalidField(field string, value any, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}
