package command

import (
	"fmt"
	"strings"
)

// Action identifies a command type. Its value is the literal payload
// prefix on the wire.
type Action string

// Supported actions.
const (
	// ActionLight dims a room's light via the dimmer backend.
	ActionLight Action = "Light"

	// ActionStore positions a room's roller blinds via bus writes.
	ActionStore Action = "Store"

	// ActionRad sets a room's radiator level via bus writes.
	ActionRad Action = "Rad"
)

// ParseAction maps an action name to its Action, accepting any case
// ("light", "Light", "LIGHT"). Returns ErrInvalidAction for names
// outside the grammar.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(s) {
	case "light":
		return ActionLight, nil
	case "store":
		return ActionStore, nil
	case "rad":
		return ActionRad, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
	}
}

// Name returns the lowercase action name used in API paths, journal
// rows, and telemetry tags.
func (a Action) Name() string {
	return strings.ToLower(string(a))
}
