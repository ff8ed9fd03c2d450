package router

import "errors"

// Router errors.
var (
	// ErrGatewayWrite indicates the bus-write helper failed for one
	// group address. Remaining writes in the same payload still run.
	ErrGatewayWrite = errors.New("router: gateway write failed")

	// ErrDimmerRequest indicates the dimmer backend rejected a light
	// command or could not be reached.
	ErrDimmerRequest = errors.New("router: dimmer request failed")

	// ErrNoBackend indicates a decoded action has no backend mapping.
	ErrNoBackend = errors.New("router: no backend for action")
)
