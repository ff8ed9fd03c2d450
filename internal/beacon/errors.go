package beacon

import "errors"

// Sentinel errors for beacon operations.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, beacon.ErrNoRoom) {
//	    // No resolution yet; reject the command
//	}
var (
	// ErrNoRoom indicates no scan has produced a mapped beacon yet.
	// Commands must be rejected, never sent with a guessed room.
	ErrNoRoom = errors.New("beacon: no room resolved")

	// ErrMalformedScan indicates a scan frame could not be decoded.
	ErrMalformedScan = errors.New("beacon: malformed scan frame")

	// ErrUnknownSourceType indicates the configured source type is not
	// one of "feed" or "exec".
	ErrUnknownSourceType = errors.New("beacon: unknown source type")
)
