package router

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/nerrad567/roomcast/internal/command"
	"github.com/nerrad567/roomcast/internal/infrastructure/config"
)

// defaultWriteTimeout bounds a single helper invocation when the
// configured timeout is missing or invalid.
const defaultWriteTimeout = 10 * time.Second

// Gateway executes raw bus writes by invoking an external helper, one
// invocation per group address. The write text travels as a single
// trailing argument after the configured leading arguments, matching
// the helper's CLI.
type Gateway struct {
	command string
	args    []string
	timeout time.Duration
}

// NewGateway creates a gateway client from configuration.
func NewGateway(cfg config.GatewayConfig) *Gateway {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}

	return &Gateway{
		command: cfg.Command,
		args:    append([]string(nil), cfg.Args...),
		timeout: timeout,
	}
}

// Write invokes the helper for one bus write and waits for it to exit.
// The invocation is bounded by the configured timeout; on expiry the
// helper process is killed.
func (g *Gateway) Write(ctx context.Context, w command.RawWrite) error {
	text := w.Address.String()
	if len(w.Args) > 0 {
		text += " " + strings.Join(w.Args, " ")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	args := make([]string, 0, len(g.args)+1)
	args = append(args, g.args...)
	args = append(args, text)

	cmd := exec.CommandContext(ctx, g.command, args...) //nolint:gosec // Helper path comes from operator config
	out, err := cmd.CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%w: %q: %v: %s", ErrGatewayWrite, text, err, msg)
		}
		return fmt.Errorf("%w: %q: %v", ErrGatewayWrite, text, err)
	}

	return nil
}
