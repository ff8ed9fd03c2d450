package command

import "errors"

// Encoding and decoding errors.
var (
	// ErrInvalidAction indicates an action name that is not part of the
	// payload grammar.
	ErrInvalidAction = errors.New("command: invalid action")

	// ErrInvalidPercent indicates a level outside the 0-100 range.
	ErrInvalidPercent = errors.New("command: percent out of range")

	// ErrInvalidRoom indicates a room label that cannot be mapped onto
	// a group sub address.
	ErrInvalidRoom = errors.New("command: invalid room label")

	// ErrUnknownRoom indicates a room with no configured light node.
	ErrUnknownRoom = errors.New("command: no light node for room")

	// ErrInvalidGroupAddress indicates a group address string that does
	// not match the 3-level format or exceeds its level limits.
	ErrInvalidGroupAddress = errors.New("command: invalid group address")

	// ErrMalformedPayload indicates a payload that does not match the
	// command grammar.
	ErrMalformedPayload = errors.New("command: malformed payload")
)
