package command

import (
	"fmt"
	"strconv"
	"strings"
)

// RawWrite is one bus write decoded from a store or radiator payload
// segment: the target group address and the arguments the gateway
// write helper receives after it.
type RawWrite struct {
	Address GroupAddress
	Args    []string
}

// Message is a decoded command payload.
//
// Action selects which fields are populated: light commands carry Node
// and Percent, store and radiator commands carry Writes in payload
// order.
type Message struct {
	Action Action

	// Node and Percent are set for light commands.
	Node    string
	Percent int

	// Writes is set for store and radiator commands.
	Writes []RawWrite
}

// ParseMessage decodes a command payload received from the broker.
//
// Returns ErrMalformedPayload if the payload does not match the
// grammar. Decoding is all-or-nothing: a payload with any bad segment
// yields no message.
func ParseMessage(payload string) (Message, error) {
	prefix, rest, found := strings.Cut(payload, ".")
	if !found {
		return Message{}, fmt.Errorf("%w: missing action prefix in %q", ErrMalformedPayload, payload)
	}

	switch Action(prefix) {
	case ActionLight:
		return parseLight(rest)
	case ActionStore:
		return parseWrites(ActionStore, rest)
	case ActionRad:
		return parseWrites(ActionRad, rest)
	default:
		return Message{}, fmt.Errorf("%w: unknown action %q", ErrMalformedPayload, prefix)
	}
}

// parseLight decodes the node and percent segments of a light payload.
func parseLight(rest string) (Message, error) {
	node, pctText, found := strings.Cut(rest, ".")
	if !found || node == "" {
		return Message{}, fmt.Errorf("%w: light payload needs node and percent, got %q", ErrMalformedPayload, rest)
	}

	percent, err := strconv.Atoi(pctText)
	if err != nil || percent < 0 || percent > maxPercent {
		return Message{}, fmt.Errorf("%w: bad light percent %q", ErrMalformedPayload, pctText)
	}

	return Message{Action: ActionLight, Node: node, Percent: percent}, nil
}

// parseWrites decodes the dot-separated write segments of a store or
// radiator payload. Group address text never contains a dot, so the
// split is unambiguous.
func parseWrites(action Action, rest string) (Message, error) {
	segments := strings.Split(rest, ".")

	writes := make([]RawWrite, 0, len(segments))
	for _, seg := range segments {
		fields := strings.Fields(seg)
		if len(fields) < 2 {
			return Message{}, fmt.Errorf("%w: write segment %q needs an address and a value", ErrMalformedPayload, seg)
		}

		addr, err := ParseGroupAddress(fields[0])
		if err != nil {
			return Message{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}

		writes = append(writes, RawWrite{Address: addr, Args: fields[1:]})
	}

	return Message{Action: action, Writes: writes}, nil
}
