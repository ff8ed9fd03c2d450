package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/nerrad567/roomcast/internal/command"
	"github.com/nerrad567/roomcast/internal/infrastructure/config"
	"github.com/nerrad567/roomcast/internal/infrastructure/mqtt"
)

// Logger is the logging interface the router accepts.
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

// Broker is the subscription surface the router consumes. Satisfied by
// *mqtt.Client.
type Broker interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// BusWriter executes raw bus writes for store and radiator commands.
// Satisfied by *Gateway.
type BusWriter interface {
	Write(ctx context.Context, w command.RawWrite) error
}

// LevelSetter drives the dimmer backend for light commands. Satisfied
// by *Dimmer.
type LevelSetter interface {
	SetLevel(ctx context.Context, node string, percent int) error
}

// Router subscribes to the command topic and fans decoded payloads out
// to the gateway helper and the dimmer backend.
//
// Messages are handled on the broker client's receive goroutines, one
// at a time per message. Handling never blocks the subscription for
// longer than the backend timeouts allow.
type Router struct {
	broker  Broker
	gateway BusWriter
	dimmer  LevelSetter
	topic   string
	qos     byte

	// ctx is cancelled on Stop to abort in-flight backend calls.
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once

	logger Logger
}

// New builds a router over the given broker. Backend clients are
// constructed from cfg; call Start to subscribe.
//
// Returns an error if the gateway helper command or the dimmer base
// URL is missing: a router without both backends cannot route anything
// it is subscribed to.
func New(broker Broker, cfg config.RouterConfig, topic string, qos byte) (*Router, error) {
	if broker == nil {
		return nil, fmt.Errorf("router: broker is required")
	}
	if cfg.Gateway.Command == "" {
		return nil, fmt.Errorf("router: gateway.command is required")
	}
	if cfg.Dimmer.BaseURL == "" {
		return nil, fmt.Errorf("router: dimmer.base_url is required")
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Router{
		broker:  broker,
		gateway: NewGateway(cfg.Gateway),
		dimmer:  NewDimmer(cfg.Dimmer),
		topic:   topic,
		qos:     qos,
		ctx:     ctx,
		cancel:  cancel,
		logger:  noopLogger{},
	}, nil
}

// SetLogger sets the logger. Must be called before Start.
func (r *Router) SetLogger(logger Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Start subscribes to the command topic. Decoding and fan-out run on
// the broker client's receive goroutines.
func (r *Router) Start() error {
	if err := r.broker.Subscribe(r.topic, r.qos, r.handle); err != nil {
		return fmt.Errorf("router: subscribing to %s: %w", r.topic, err)
	}

	r.logger.Info("router started", "topic", r.topic, "qos", r.qos)

	return nil
}

// Stop aborts in-flight backend calls. Stop is idempotent. The broker
// subscription itself is torn down with the client connection.
func (r *Router) Stop() {
	r.stopOnce.Do(func() {
		r.cancel()
		r.logger.Info("router stopped")
	})
}

// handle is the broker message handler. Every failure is terminal for
// the message: unroutable payloads and backend errors are logged and
// the message is dropped. There are no retries.
func (r *Router) handle(topic string, payload []byte) error {
	text := unwrap(string(payload))

	msg, err := command.ParseMessage(text)
	if err != nil {
		r.logger.Warn("dropping unroutable payload",
			"topic", topic,
			"payload", text,
			"error", err,
		)
		return nil
	}

	if err := r.route(msg); err != nil {
		r.logger.Error("routing failed",
			"action", msg.Action.Name(),
			"payload", text,
			"error", err,
		)
		return nil
	}

	r.logger.Info("payload routed", "action", msg.Action.Name(), "payload", text)

	return nil
}

// route fans a decoded message out to its backend. Bus writes run
// sequentially in payload order; a failed write does not stop the
// rest, so a half-applied store still moves the blinds it can.
func (r *Router) route(msg command.Message) error {
	switch msg.Action {
	case command.ActionLight:
		if err := r.dimmer.SetLevel(r.ctx, msg.Node, msg.Percent); err != nil {
			return err
		}
		return nil

	case command.ActionStore, command.ActionRad:
		var errs []error
		for _, w := range msg.Writes {
			if err := r.gateway.Write(r.ctx, w); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)

	default:
		return fmt.Errorf("%w: %q", ErrNoBackend, msg.Action)
	}
}

// unwrap strips the publish envelope some clients wrap payloads in.
// The legacy form is {msg:"Light.2.75"} with an unquoted key; the
// hub publishes payloads bare. Both forms, plus plain JSON-quoted
// strings, route identically.
func unwrap(payload string) string {
	s := strings.TrimSpace(payload)

	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		inner := strings.TrimSpace(s[1 : len(s)-1])
		for _, key := range []string{`"msg"`, "msg"} {
			if rest, ok := strings.CutPrefix(inner, key); ok {
				inner = strings.TrimSpace(rest)
				break
			}
		}
		s = strings.TrimSpace(strings.TrimPrefix(inner, ":"))
	}

	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = s[1 : len(s)-1]
	}

	return s
}
