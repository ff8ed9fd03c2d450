package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/roomcast/internal/command"
	"github.com/nerrad567/roomcast/internal/infrastructure/config"
)

// Default pipeline settings, applied when the configuration leaves a
// field zero.
const (
	defaultQueueSize      = 16
	defaultConnectTimeout = 10 * time.Second
	defaultPublishTimeout = 10 * time.Second
)

// Bridge is the broker client surface the dispatcher drives. Connect
// must be a no-op on an already connected client; the worker calls it
// before every publish so the connection is established lazily and
// recovered after broker restarts.
type Bridge interface {
	Connect(ctx context.Context) error
	PublishString(ctx context.Context, topic string, payload string, qos byte, retained bool) error
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards all log output. Used when no logger is set.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Outcome reports one completed job to the outcome callback.
type Outcome struct {
	// Job is the completed job; Job.State() is JobSent or JobFailed.
	Job *Job

	// Topic is the broker topic the payload was published to.
	Topic string

	// Err describes the failure, nil when the publish succeeded.
	Err error

	// Latency is the time from worker pickup to broker acknowledgement
	// (or failure).
	Latency time.Duration
}

// Dispatcher serializes command publishes through a single worker.
//
// A Dispatcher is single-use: Start it once, Stop it at shutdown.
// All methods are safe for concurrent use.
type Dispatcher struct {
	bridge Bridge
	topic  string
	qos    byte

	connectTimeout time.Duration
	publishTimeout time.Duration

	queue chan *Job
	done  chan struct{}
	wg    sync.WaitGroup

	mu      sync.Mutex
	running bool
	stopped bool

	onOutcome  func(Outcome)
	callbackMu sync.RWMutex

	logger   Logger
	loggerMu sync.RWMutex
}

// New creates a Dispatcher publishing to topic at the given QoS.
//
// Parameters:
//   - bridge: broker client (unconnected is fine; the worker connects)
//   - cfg: queue size and timeout settings, zero values get defaults
//   - topic: fixed command topic all jobs publish to
//   - qos: MQTT QoS level for command publishes
func New(bridge Bridge, cfg config.DispatchConfig, topic string, qos byte) *Dispatcher {
	queueSize := cfg.QueueSize
	if queueSize < 1 {
		queueSize = defaultQueueSize
	}

	connectTimeout := time.Duration(cfg.ConnectTimeout) * time.Second
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}

	publishTimeout := time.Duration(cfg.PublishTimeout) * time.Second
	if publishTimeout <= 0 {
		publishTimeout = defaultPublishTimeout
	}

	return &Dispatcher{
		bridge:         bridge,
		topic:          topic,
		qos:            qos,
		connectTimeout: connectTimeout,
		publishTimeout: publishTimeout,
		queue:          make(chan *Job, queueSize),
		done:           make(chan struct{}),
		logger:         noopLogger{},
	}
}

// SetLogger sets the logger. Must be called before Start.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.loggerMu.Lock()
	d.logger = logger
	d.loggerMu.Unlock()
}

// SetOnOutcome sets the callback invoked once per completed job, sent
// or failed. The callback runs on the worker goroutine; keep it quick.
// Must be set before Start.
func (d *Dispatcher) SetOnOutcome(callback func(Outcome)) {
	d.callbackMu.Lock()
	d.onOutcome = callback
	d.callbackMu.Unlock()
}

// Start launches the worker goroutine.
//
// Returns an error if the dispatcher is already running or was
// stopped; a Dispatcher cannot be restarted.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return ErrNotRunning
	}
	if d.running {
		return fmt.Errorf("dispatch: already running")
	}
	d.running = true

	d.wg.Add(1)
	go d.run(ctx)

	d.getLogger().Info("dispatcher started",
		"topic", d.topic,
		"queue_size", cap(d.queue),
	)

	return nil
}

// Stop halts the worker and waits for an in-flight job to complete.
// Jobs still queued are dropped. Stop is idempotent.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running || d.stopped {
		d.stopped = true
		d.running = false
		d.mu.Unlock()
		return
	}
	d.running = false
	d.stopped = true
	d.mu.Unlock()

	close(d.done)
	d.wg.Wait()

	d.getLogger().Info("dispatcher stopped", "dropped", len(d.queue))
}

// Dispatch enqueues a command publish and returns the job ID.
//
// It never blocks: a full queue returns ErrQueueFull and a dispatcher
// that is not running returns ErrNotRunning. The job completes
// asynchronously; its outcome is reported through the outcome
// callback.
//
// Parameters:
//   - action: trigger action, recorded in the journal
//   - room: resolved room label the command targets
//   - percent: requested level
//   - payload: encoded wire payload to publish
func (d *Dispatcher) Dispatch(action command.Action, room string, percent int, payload string) (uuid.UUID, error) {
	d.mu.Lock()
	running := d.running
	d.mu.Unlock()

	if !running {
		return uuid.Nil, ErrNotRunning
	}

	job := newJob(action, room, percent, payload)

	select {
	case d.queue <- job:
		d.getLogger().Debug("job queued",
			"job_id", job.ID,
			"action", action.Name(),
			"room", room,
		)
		return job.ID, nil
	default:
		return uuid.Nil, fmt.Errorf("%w: %d jobs pending", ErrQueueFull, cap(d.queue))
	}
}

// run is the worker loop. It drains the queue one job at a time until
// the context is cancelled or Stop is called.
func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			return
		case job := <-d.queue:
			d.process(ctx, job)
		}
	}
}

// process completes one job: connect, claim, publish, report.
func (d *Dispatcher) process(ctx context.Context, job *Job) {
	start := time.Now()

	err := d.send(ctx, job)
	latency := time.Since(start)

	if err != nil {
		job.fail()
		d.getLogger().Error("dispatch failed",
			"job_id", job.ID,
			"action", job.Action.Name(),
			"room", job.Room,
			"error", err,
		)
	} else {
		d.getLogger().Info("command published",
			"job_id", job.ID,
			"action", job.Action.Name(),
			"room", job.Room,
			"latency_ms", latency.Milliseconds(),
		)
	}

	d.notify(Outcome{Job: job, Topic: d.topic, Err: err, Latency: latency})
}

// send performs the connect and publish steps for one job. The
// connection is established on the first job and reused afterwards;
// Connect on a live bridge returns immediately.
func (d *Dispatcher) send(ctx context.Context, job *Job) error {
	connectCtx, cancel := context.WithTimeout(ctx, d.connectTimeout)
	err := d.bridge.Connect(connectCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	// The latch: a job that has already left Created must never reach
	// the broker again.
	if !job.claim() {
		return ErrAlreadyDispatched
	}

	publishCtx, cancel := context.WithTimeout(ctx, d.publishTimeout)
	defer cancel()

	if err := d.bridge.PublishString(publishCtx, d.topic, job.Payload, d.qos, false); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	return nil
}

// notify reports an outcome to the callback, recovering panics so a
// bad consumer cannot kill the worker.
func (d *Dispatcher) notify(outcome Outcome) {
	d.callbackMu.RLock()
	callback := d.onOutcome
	d.callbackMu.RUnlock()

	if callback == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			d.getLogger().Error("outcome callback panic", "job_id", outcome.Job.ID, "panic", r)
		}
	}()
	callback(outcome)
}

// getLogger returns the current logger.
func (d *Dispatcher) getLogger() Logger {
	d.loggerMu.RLock()
	defer d.loggerMu.RUnlock()
	return d.logger
}
