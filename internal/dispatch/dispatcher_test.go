package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/roomcast/internal/command"
	"github.com/nerrad567/roomcast/internal/infrastructure/config"
)

// outcomeTimeout bounds how long tests wait for the worker to report.
const outcomeTimeout = 5 * time.Second

// fakeBridge records connect and publish calls and fails on demand.
type fakeBridge struct {
	mu         sync.Mutex
	connects   int
	publishes  []publishCall
	connectErr error
	publishErr error
}

type publishCall struct {
	topic   string
	payload string
	qos     byte
}

func (b *fakeBridge) Connect(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connects++
	return b.connectErr
}

func (b *fakeBridge) PublishString(_ context.Context, topic, payload string, qos byte, _ bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return b.publishErr
	}
	b.publishes = append(b.publishes, publishCall{topic: topic, payload: payload, qos: qos})
	return nil
}

func (b *fakeBridge) publishCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.publishes)
}

func (b *fakeBridge) lastPublish() (publishCall, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.publishes) == 0 {
		return publishCall{}, false
	}
	return b.publishes[len(b.publishes)-1], true
}

// startDispatcher builds and starts a dispatcher over the fake bridge,
// streaming outcomes into the returned channel.
func startDispatcher(t *testing.T, bridge *fakeBridge, cfg config.DispatchConfig) (*Dispatcher, <-chan Outcome) {
	t.Helper()

	d := New(bridge, cfg, "roomcast/events", 1)

	outcomes := make(chan Outcome, 16)
	d.SetOnOutcome(func(o Outcome) {
		outcomes <- o
	})

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(d.Stop)

	return d, outcomes
}

// waitOutcome receives one outcome or fails the test.
func waitOutcome(t *testing.T, outcomes <-chan Outcome) Outcome {
	t.Helper()

	select {
	case o := <-outcomes:
		return o
	case <-time.After(outcomeTimeout):
		t.Fatal("timed out waiting for outcome")
		return Outcome{}
	}
}

func TestDispatchPublishesOnce(t *testing.T) {
	bridge := &fakeBridge{}
	d, outcomes := startDispatcher(t, bridge, config.DispatchConfig{})

	payload := "Rad.0/4/1 255 2 2.0/4/2 255 2 2"
	jobID, err := d.Dispatch(command.ActionRad, "1", 100, payload)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	outcome := waitOutcome(t, outcomes)
	if outcome.Err != nil {
		t.Fatalf("outcome error = %v, want nil", outcome.Err)
	}
	if outcome.Job.ID != jobID {
		t.Errorf("outcome job ID = %v, want %v", outcome.Job.ID, jobID)
	}
	if got := outcome.Job.State(); got != JobSent {
		t.Errorf("job state = %v, want JobSent", got)
	}
	if outcome.Topic != "roomcast/events" {
		t.Errorf("outcome topic = %q, want roomcast/events", outcome.Topic)
	}

	if got := bridge.publishCount(); got != 1 {
		t.Fatalf("publish count = %d, want exactly 1", got)
	}
	pub, _ := bridge.lastPublish()
	if pub.payload != payload {
		t.Errorf("published payload = %q, want %q", pub.payload, payload)
	}
	if pub.topic != "roomcast/events" {
		t.Errorf("published topic = %q, want roomcast/events", pub.topic)
	}
	if pub.qos != 1 {
		t.Errorf("published qos = %d, want 1", pub.qos)
	}
}

func TestDispatchConnectPrecedesPublish(t *testing.T) {
	bridge := &fakeBridge{}
	d, outcomes := startDispatcher(t, bridge, config.DispatchConfig{})

	if _, err := d.Dispatch(command.ActionLight, "1", 50, "Light.2.50"); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	waitOutcome(t, outcomes)

	bridge.mu.Lock()
	defer bridge.mu.Unlock()
	if bridge.connects < 1 {
		t.Error("bridge was never connected")
	}
	if len(bridge.publishes) != 1 {
		t.Errorf("publish count = %d, want 1", len(bridge.publishes))
	}
}

func TestDispatchConnectFailure(t *testing.T) {
	connectErr := errors.New("connection refused")
	bridge := &fakeBridge{connectErr: connectErr}
	d, outcomes := startDispatcher(t, bridge, config.DispatchConfig{})

	if _, err := d.Dispatch(command.ActionStore, "10", 75, "Store.3/4/10 191 2 2.3/4/11 191 2 2"); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	outcome := waitOutcome(t, outcomes)
	if outcome.Err == nil {
		t.Fatal("outcome error = nil, want connect failure")
	}
	if !errors.Is(outcome.Err, connectErr) {
		t.Errorf("outcome error = %v, want wrapped %v", outcome.Err, connectErr)
	}
	if got := outcome.Job.State(); got != JobFailed {
		t.Errorf("job state = %v, want JobFailed", got)
	}

	// A failed connect never reaches the publish step.
	if got := bridge.publishCount(); got != 0 {
		t.Errorf("publish count = %d, want 0", got)
	}
}

func TestDispatchPublishFailure(t *testing.T) {
	publishErr := errors.New("broker unavailable")
	bridge := &fakeBridge{publishErr: publishErr}
	d, outcomes := startDispatcher(t, bridge, config.DispatchConfig{})

	if _, err := d.Dispatch(command.ActionLight, "1", 0, "Light.2.0"); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	outcome := waitOutcome(t, outcomes)
	if !errors.Is(outcome.Err, publishErr) {
		t.Errorf("outcome error = %v, want wrapped %v", outcome.Err, publishErr)
	}
	if got := outcome.Job.State(); got != JobFailed {
		t.Errorf("job state = %v, want JobFailed", got)
	}
}

func TestDispatchNotRunning(t *testing.T) {
	d := New(&fakeBridge{}, config.DispatchConfig{}, "roomcast/events", 1)

	if _, err := d.Dispatch(command.ActionLight, "1", 50, "Light.2.50"); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Dispatch() before Start error = %v, want ErrNotRunning", err)
	}

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	d.Stop()

	if _, err := d.Dispatch(command.ActionLight, "1", 50, "Light.2.50"); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Dispatch() after Stop error = %v, want ErrNotRunning", err)
	}
}

func TestDispatcherCannotRestart(t *testing.T) {
	d := New(&fakeBridge{}, config.DispatchConfig{}, "roomcast/events", 1)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	d.Stop()

	if err := d.Start(context.Background()); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Start() after Stop error = %v, want ErrNotRunning", err)
	}
}

func TestDispatchQueueFull(t *testing.T) {
	// Hold the worker on a slow connect so the queue backs up.
	release := make(chan struct{})
	bridge := &slowBridge{release: release}

	d := New(bridge, config.DispatchConfig{QueueSize: 1}, "roomcast/events", 1)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		close(release)
		d.Stop()
	})

	// First job is picked up by the worker and blocks in Connect.
	if _, err := d.Dispatch(command.ActionLight, "1", 10, "Light.2.10"); err != nil {
		t.Fatalf("Dispatch() #1 error = %v", err)
	}
	bridge.waitConnecting(t)

	// Second job sits in the queue.
	if _, err := d.Dispatch(command.ActionLight, "1", 20, "Light.2.20"); err != nil {
		t.Fatalf("Dispatch() #2 error = %v", err)
	}

	// Third is rejected: explicit backpressure instead of unbounded
	// concurrent sends.
	if _, err := d.Dispatch(command.ActionLight, "1", 30, "Light.2.30"); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Dispatch() #3 error = %v, want ErrQueueFull", err)
	}
}

func TestSerializedPublishes(t *testing.T) {
	bridge := &fakeBridge{}
	d, outcomes := startDispatcher(t, bridge, config.DispatchConfig{QueueSize: 8})

	payloads := []string{"Light.2.10", "Light.2.20", "Light.2.30", "Light.2.40"}
	for _, p := range payloads {
		if _, err := d.Dispatch(command.ActionLight, "1", 0, p); err != nil {
			t.Fatalf("Dispatch(%q) error = %v", p, err)
		}
	}

	for range payloads {
		outcome := waitOutcome(t, outcomes)
		if outcome.Err != nil {
			t.Fatalf("outcome error = %v", outcome.Err)
		}
	}

	bridge.mu.Lock()
	defer bridge.mu.Unlock()
	if len(bridge.publishes) != len(payloads) {
		t.Fatalf("publish count = %d, want %d", len(bridge.publishes), len(payloads))
	}
	// One worker drains the queue, so publish order matches dispatch order.
	for i, p := range payloads {
		if bridge.publishes[i].payload != p {
			t.Errorf("publishes[%d] = %q, want %q", i, bridge.publishes[i].payload, p)
		}
	}
}

// slowBridge blocks Connect until released, to test queue backpressure.
type slowBridge struct {
	release    <-chan struct{}
	mu         sync.Mutex
	connecting bool
}

func (b *slowBridge) Connect(ctx context.Context) error {
	b.mu.Lock()
	b.connecting = true
	b.mu.Unlock()

	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *slowBridge) PublishString(context.Context, string, string, byte, bool) error {
	return nil
}

func (b *slowBridge) waitConnecting(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(outcomeTimeout)
	for time.Now().Before(deadline) {
		b.mu.Lock()
		connecting := b.connecting
		b.mu.Unlock()
		if connecting {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("worker never reached Connect")
}
