package beacon

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/nerrad567/roomcast/internal/infrastructure/config"
)

const (
	// feedDialTimeout bounds a single connection attempt.
	feedDialTimeout = 10 * time.Second

	// defaultRetryDelay is used when the configured delay is zero.
	defaultRetryDelay = 5 * time.Second
)

// FeedSource receives scan frames from a TCP feed, one JSON object per
// line. The feed is typically a phone app publishing ranging passes
// over the LAN.
//
// The source reconnects with a fixed delay whenever the feed drops. An
// unreachable feed at startup is normal (the phone may be elsewhere),
// so Start does not fail on connect errors; it keeps retrying until
// Stop or context cancellation.
type FeedSource struct {
	host    string
	port    int
	delay   time.Duration
	handler ScanHandler
	logger  Logger

	done chan struct{}
	wg   sync.WaitGroup

	mu      sync.Mutex
	conn    net.Conn
	running bool
}

// NewFeedSource creates a TCP feed source. The handler is invoked on
// the receive goroutine for every well-formed scan frame.
func NewFeedSource(cfg config.FeedSourceConfig, handler ScanHandler) *FeedSource {
	delay := time.Duration(cfg.ReconnectDelay) * time.Second
	if delay <= 0 {
		delay = defaultRetryDelay
	}

	return &FeedSource{
		host:    cfg.Host,
		port:    cfg.Port,
		delay:   delay,
		handler: handler,
		logger:  noopLogger{},
		done:    make(chan struct{}),
	}
}

// SetLogger sets the logger for the source.
func (s *FeedSource) SetLogger(logger Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Start begins receiving scans.
func (s *FeedSource) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("beacon: feed source already running")
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(ctx)

	return nil
}

// Stop closes the feed connection and waits for the receive loop to
// exit.
func (s *FeedSource) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	conn := s.conn
	s.mu.Unlock()

	close(s.done)

	if conn != nil {
		conn.Close()
	}

	s.wg.Wait()
	s.logger.Info("feed source stopped")
}

// run dials, reads frames, and reconnects until stopped.
func (s *FeedSource) run(ctx context.Context) {
	defer s.wg.Done()

	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		default:
		}

		conn, err := s.dial(ctx, addr)
		if err != nil {
			if s.stopped() || ctx.Err() != nil {
				return
			}
			s.logger.Warn("feed connect failed", "addr", addr, "error", err, "retry_in", s.delay)
			if !s.sleep(ctx) {
				return
			}
			continue
		}

		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()

		// Re-check after publishing the conn; Stop may have missed it.
		if s.stopped() || ctx.Err() != nil {
			conn.Close()
			return
		}

		s.logger.Info("feed connected", "addr", addr)

		if err := readFrames(conn, s.handler, s.logger); err != nil && !s.stopped() {
			s.logger.Warn("feed read failed", "error", err)
		}

		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		conn.Close()

		if s.stopped() || ctx.Err() != nil {
			return
		}

		s.logger.Warn("feed disconnected", "addr", addr, "retry_in", s.delay)
		if !s.sleep(ctx) {
			return
		}
	}
}

// dial attempts a single connection to the feed.
func (s *FeedSource) dial(ctx context.Context, addr string) (net.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, feedDialTimeout)
	defer cancel()

	var dialer net.Dialer
	return dialer.DialContext(dialCtx, "tcp", addr)
}

// stopped reports whether Stop has been called.
func (s *FeedSource) stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// sleep waits out the retry delay. Returns false if stopped first.
func (s *FeedSource) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-s.done:
		return false
	case <-time.After(s.delay):
		return true
	}
}
