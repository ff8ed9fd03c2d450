package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nerrad567/roomcast/internal/infrastructure/config"
)

// maxPercent is the inclusive upper bound for level inputs.
const maxPercent = 100

// byteScale is the top of the bus value range.
const byteScale = 255

// busWriteTrailer holds the fixed parameters appended to every bus
// write segment. The router hands them to the gateway write helper
// verbatim.
var busWriteTrailer = []string{"2", "2"}

// Encoder builds command payloads from the deployment's room → node
// table and group address scheme.
//
// An Encoder is immutable after construction and safe for concurrent
// use.
type Encoder struct {
	lightNodes map[string]string
	storeMain  uint8
	radMain    uint8
	middle     uint8
}

// NewEncoder creates an Encoder from the commands configuration. The
// group values are range-checked by config validation before they
// reach here.
func NewEncoder(cfg config.CommandsConfig) *Encoder {
	nodes := make(map[string]string, len(cfg.LightNodes))
	for room, node := range cfg.LightNodes {
		nodes[room] = node
	}

	return &Encoder{
		lightNodes: nodes,
		storeMain:  uint8(cfg.StoreMainGroup),    //nolint:gosec // validated 0-31
		radMain:    uint8(cfg.RadiatorMainGroup), //nolint:gosec // validated 0-31
		middle:     uint8(cfg.MiddleGroup),       //nolint:gosec // validated 0-7
	}
}

// Encode builds the payload for an action targeting room at percent.
func (e *Encoder) Encode(action Action, room string, percent int) (string, error) {
	switch action {
	case ActionLight:
		return e.Light(room, percent)
	case ActionStore:
		return e.Store(room, percent)
	case ActionRad:
		return e.Rad(room, percent)
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
}

// Light builds a dimmer payload for the room's light node. The level
// is carried as a raw percent.
//
// Example:
//
//	payload, err := e.Light("1", 75)
//	// payload = "Light.2.75"
func (e *Encoder) Light(room string, percent int) (string, error) {
	if err := validatePercent(percent); err != nil {
		return "", err
	}

	node, ok := e.lightNodes[room]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRoom, room)
	}

	return fmt.Sprintf("%s.%s.%d", ActionLight, node, percent), nil
}

// Store builds a blind position payload. It addresses the room's pair
// of group addresses with the scaled level.
//
// Example:
//
//	payload, err := e.Store("1", 100)
//	// payload = "Store.3/4/1 255 2 2.3/4/2 255 2 2"
func (e *Encoder) Store(room string, percent int) (string, error) {
	return e.pairWrites(ActionStore, e.storeMain, room, percent)
}

// Rad builds a radiator level payload. It addresses the room's pair of
// group addresses with the scaled level.
//
// Example:
//
//	payload, err := e.Rad("10", 50)
//	// payload = "Rad.0/4/10 127 2 2.0/4/11 127 2 2"
func (e *Encoder) Rad(room string, percent int) (string, error) {
	return e.pairWrites(ActionRad, e.radMain, room, percent)
}

// pairWrites formats the two-segment payload shared by store and
// radiator commands: one write to the room's own sub address and one
// to the address directly above it.
func (e *Encoder) pairWrites(action Action, main uint8, room string, percent int) (string, error) {
	if err := validatePercent(percent); err != nil {
		return "", err
	}

	sub, err := roomSub(room)
	if err != nil {
		return "", err
	}

	val := scaleByte(percent)
	first := RawWrite{
		Address: GroupAddress{Main: main, Middle: e.middle, Sub: sub},
		Args:    writeArgs(val),
	}
	second := RawWrite{
		Address: GroupAddress{Main: main, Middle: e.middle, Sub: sub + 1},
		Args:    writeArgs(val),
	}

	return fmt.Sprintf("%s.%s.%s", action, formatWrite(first), formatWrite(second)), nil
}

// roomSub converts a room label to its group sub address. Labels are
// numeric and capped one below the sub range so the paired address
// stays in range.
func roomSub(room string) (uint8, error) {
	n, err := strconv.Atoi(room)
	if err != nil || n < 0 || n > maxSub-1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRoom, room)
	}
	return uint8(n), nil //nolint:gosec // bounds checked above
}

// scaleByte maps a 0-100 level onto the 0-255 bus range with integer
// truncation: 0 -> 0, 50 -> 127, 100 -> 255.
func scaleByte(percent int) int {
	return percent * byteScale / maxPercent
}

// writeArgs builds the argument list for one bus write segment: the
// scaled value followed by the fixed trailer.
func writeArgs(val int) []string {
	return append([]string{strconv.Itoa(val)}, busWriteTrailer...)
}

// formatWrite renders a write segment: the group address followed by
// its space-separated arguments.
func formatWrite(w RawWrite) string {
	return w.Address.String() + " " + strings.Join(w.Args, " ")
}

// validatePercent rejects levels outside the 0-100 range.
func validatePercent(percent int) error {
	if percent < 0 || percent > maxPercent {
		return fmt.Errorf("%w: %d", ErrInvalidPercent, percent)
	}
	return nil
}
