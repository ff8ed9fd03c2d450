package beacon

import (
	"context"
	"fmt"

	"github.com/nerrad567/roomcast/internal/infrastructure/config"
)

// ScanHandler consumes one parsed scan pass. Handlers are invoked on
// the source's receive goroutine and must not block for long.
type ScanHandler func(Scan)

// Source delivers scan passes from a transport to a ScanHandler.
type Source interface {
	// Start begins delivering scans. It returns promptly; delivery
	// continues until Stop is called or ctx is cancelled.
	Start(ctx context.Context) error

	// Stop halts delivery and releases the transport. Safe to call
	// more than once.
	Stop()

	// SetLogger sets the logger for the source.
	SetLogger(logger Logger)
}

// NewSource builds the scan source selected by cfg.Type.
func NewSource(cfg config.SourceConfig, handler ScanHandler) (Source, error) {
	switch cfg.Type {
	case "feed":
		return NewFeedSource(cfg.Feed, handler), nil
	case "exec":
		return NewExecSource(cfg.Exec, handler), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSourceType, cfg.Type)
	}
}
