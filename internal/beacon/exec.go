package beacon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/nerrad567/roomcast/internal/infrastructure/config"
)

// execKillTimeout is how long Stop waits for a graceful exit before
// sending SIGKILL.
const execKillTimeout = 5 * time.Second

// ExecSource runs a scanner helper as a subprocess and consumes scan
// frames from its stdout, one JSON object per line. The helper is
// restarted with a fixed delay if it exits.
//
// Unlike FeedSource, the first start is synchronous: a helper that
// cannot be launched at all is a configuration error and Start returns
// it. Later exits are handled by the restart loop.
type ExecSource struct {
	command string
	args    []string
	delay   time.Duration
	handler ScanHandler
	logger  Logger

	done chan struct{}
	wg   sync.WaitGroup

	mu      sync.Mutex
	cmd     *exec.Cmd
	running bool
}

// NewExecSource creates a subprocess scan source. The handler is
// invoked on the receive goroutine for every well-formed scan frame.
func NewExecSource(cfg config.ExecSourceConfig, handler ScanHandler) *ExecSource {
	delay := time.Duration(cfg.RestartDelay) * time.Second
	if delay <= 0 {
		delay = defaultRetryDelay
	}

	return &ExecSource{
		command: cfg.Command,
		args:    append([]string(nil), cfg.Args...),
		delay:   delay,
		handler: handler,
		logger:  noopLogger{},
		done:    make(chan struct{}),
	}
}

// SetLogger sets the logger for the source.
func (s *ExecSource) SetLogger(logger Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Start launches the helper and begins receiving scans.
func (s *ExecSource) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("beacon: exec source already running")
	}
	s.running = true
	s.mu.Unlock()

	stdout, err := s.startProcess(ctx)
	if err != nil {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return err
	}

	s.wg.Add(1)
	go s.monitor(ctx, stdout)

	return nil
}

// Stop terminates the helper and waits for the receive loop to exit.
// SIGTERM first so the helper can release the adapter, SIGKILL if it
// does not exit within execKillTimeout.
func (s *ExecSource) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cmd := s.cmd
	s.mu.Unlock()

	close(s.done)

	s.signalGroup(cmd, syscall.SIGTERM)

	waited := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(waited)
	}()

	select {
	case <-waited:
	case <-time.After(execKillTimeout):
		// Re-read under lock; the restart loop may have replaced it.
		s.mu.Lock()
		cmd = s.cmd
		s.mu.Unlock()
		s.logger.Warn("scanner did not exit, killing", "timeout", execKillTimeout)
		s.signalGroup(cmd, syscall.SIGKILL)
		<-waited
	}

	s.logger.Info("exec source stopped")
}

// signalGroup signals the helper's process group so that children
// (shell pipelines, parser helpers) go down with it.
func (s *ExecSource) signalGroup(cmd *exec.Cmd, sig syscall.Signal) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	if err := syscall.Kill(-cmd.Process.Pid, sig); err != nil && !errors.Is(err, syscall.ESRCH) {
		s.logger.Warn("failed to signal scanner", "signal", sig, "error", err)
	}
}

// startProcess launches the helper and returns its stdout.
func (s *ExecSource) startProcess(ctx context.Context) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, s.command, s.args...) //nolint:gosec // Command path comes from validated config

	// New process group so Stop can signal all children on shutdown.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("beacon: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("beacon: stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("beacon: starting scanner %s: %w", s.command, err)
	}

	s.mu.Lock()
	s.cmd = cmd
	s.mu.Unlock()

	go s.drainStderr(stderr)

	s.logger.Info("scanner started", "command", s.command, "pid", cmd.Process.Pid)

	return stdout, nil
}

// monitor consumes stdout, waits for exit, and restarts until stopped.
func (s *ExecSource) monitor(ctx context.Context, stdout io.ReadCloser) {
	defer s.wg.Done()

	for {
		if stdout != nil {
			if err := readFrames(stdout, s.handler, s.logger); err != nil && !s.stopped() {
				s.logger.Warn("scanner read failed", "error", err)
			}

			s.mu.Lock()
			cmd := s.cmd
			s.mu.Unlock()

			err := cmd.Wait()

			if s.stopped() || ctx.Err() != nil {
				return
			}

			s.logger.Warn("scanner exited", "error", err, "retry_in", s.delay)
		}

		if !s.sleep(ctx) {
			return
		}

		next, err := s.startProcess(ctx)
		if err != nil {
			if s.stopped() || ctx.Err() != nil {
				return
			}
			s.logger.Error("scanner restart failed", "error", err, "retry_in", s.delay)
			stdout = nil
			continue
		}
		stdout = next
	}
}

// drainStderr logs helper diagnostics line by line.
func (s *ExecSource) drainStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, initialScanBuffer), maxScanLineSize)
	for scanner.Scan() {
		s.logger.Debug("scanner stderr", "line", scanner.Text())
	}
}

// stopped reports whether Stop has been called.
func (s *ExecSource) stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// sleep waits out the restart delay. Returns false if stopped first.
func (s *ExecSource) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-s.done:
		return false
	case <-time.After(s.delay):
		return true
	}
}
