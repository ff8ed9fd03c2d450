package journal

import "errors"

// Journal errors.
var (
	// ErrInvalidEntry indicates an entry missing required fields.
	ErrInvalidEntry = errors.New("journal: invalid entry")

	// ErrInvalidStatus indicates a status outside sent/failed.
	ErrInvalidStatus = errors.New("journal: invalid status")
)
