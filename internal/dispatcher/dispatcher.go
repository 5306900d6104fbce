package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrQueueFull      = errors.New("queue full")
)

// Event is a named command with positional arguments, as produced by a key
// binding, an HTTP handler or the CLI.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
	// Context is nil for fire-and-forget events.
	Context context.Context
}

// Ctx returns the event context, or context.Background when none was set.
func (e Event) Ctx() context.Context {
	if e.Context == nil {
		return context.Background()
	}
	return e.Context
}

// Queued is the result of dispatching to a buffered handler. The handler's own
// result is discarded; failures are logged.
type Queued struct {
	Command string `json:"command"`
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*options)

type options struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered runs the handler on its own goroutine behind a queue of the given size.
func Buffered(size int) Option {
	return func(o *options) { o.bufferSize = size }
}

// Blocking makes a buffered handler wait for queue space instead of dropping.
func Blocking() Option {
	return func(o *options) { o.blocking = true }
}

// Logged logs each event at debug level and failures at error level.
func Logged() Option {
	return func(o *options) { o.logged = true }
}

type metrics struct {
	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter
	duration  metric.Float64Histogram
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	logger  Logger
	metrics metrics

	// guards handlers and buffers
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	buffers  map[string]chan Event
}

const instrumentationName = "github.com/markerlab/markerlab/internal/dispatcher"

// New creates a Dispatcher. Metrics go to the global OTel meter provider,
// which is a no-op unless the process installs one.
func New(logger Logger) (*Dispatcher, error) {
	return NewWithMeter(logger, otel.Meter(instrumentationName))
}

// NewWithMeter creates a Dispatcher that records metrics with m.
func NewWithMeter(logger Logger, m metric.Meter) (*Dispatcher, error) {
	d := &Dispatcher{
		logger:   logger,
		handlers: make(map[string]HandlerFunc),
		buffers:  make(map[string]chan Event),
	}
	if err := d.initMetrics(m); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dispatcher) initMetrics(m metric.Meter) error {
	var err error

	d.metrics.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Events waiting in a buffered handler's queue"),
	)
	if err != nil {
		return fmt.Errorf("creating queue size gauge: %w", err)
	}
	_, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		d.mu.RLock()
		defer d.mu.RUnlock()
		for cmd, buf := range d.buffers {
			o.ObserveInt64(d.metrics.queueSize, int64(len(buf)), metric.WithAttributes(attribute.String("command", cmd)))
		}
		return nil
	}, d.metrics.queueSize)
	if err != nil {
		return fmt.Errorf("registering queue callback: %w", err)
	}

	d.metrics.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Events handled, by command and outcome"),
	)
	if err != nil {
		return fmt.Errorf("creating processed counter: %w", err)
	}

	d.metrics.dropped, err = m.Int64Counter(
		"dispatcher.events.dropped",
		metric.WithDescription("Events dropped because a queue was full"),
	)
	if err != nil {
		return fmt.Errorf("creating dropped counter: %w", err)
	}

	d.metrics.duration, err = m.Float64Histogram(
		"dispatcher.event.duration",
		metric.WithDescription("Time spent in a handler"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("creating duration histogram: %w", err)
	}
	return nil
}

// Register adds a handler for command, replacing any previous one.
// Wrappers apply inside out: metrics, then logging, then buffering, so queued
// events are measured when they run rather than when they are accepted.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	h = d.instrumented(command, h)
	if o.logged {
		h = d.withLogging(command, h)
	}
	if o.bufferSize > 0 {
		h = d.withBuffer(command, o.bufferSize, o.blocking, h)
	}

	d.mu.Lock()
	d.handlers[command] = h
	d.mu.Unlock()
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	d.mu.RLock()
	h, ok := d.handlers[e.Command]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}
	return h(e)
}

// HasHandler reports whether a handler is registered for command.
func (d *Dispatcher) HasHandler(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[command]
	return ok
}

// Commands returns the registered command names in no particular order.
func (d *Dispatcher) Commands() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.handlers))
	for c := range d.handlers {
		out = append(out, c)
	}
	return out
}

func (d *Dispatcher) instrumented(command string, h HandlerFunc) HandlerFunc {
	cmdAttr := attribute.String("command", command)
	return func(e Event) (any, error) {
		start := time.Now()
		result, err := h(e)

		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		ctx := e.Ctx()
		d.metrics.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(cmdAttr))
		d.metrics.processed.Add(ctx, 1, metric.WithAttributes(cmdAttr, attribute.String("outcome", outcome)))
		return result, err
	}
}

func (d *Dispatcher) withBuffer(command string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	buffer := make(chan Event, size)

	d.mu.Lock()
	d.buffers[command] = buffer
	d.mu.Unlock()

	go func() {
		for e := range buffer {
			if _, err := h(e); err != nil && d.logger != nil {
				d.logger.Error("buffered event failed", "command", command, "error", err)
			}
		}
	}()

	queued := Queued{Command: command}
	if blocking {
		return func(e Event) (any, error) {
			buffer <- e
			return queued, nil
		}
	}
	return func(e Event) (any, error) {
		select {
		case buffer <- e:
			return queued, nil
		default:
			d.metrics.dropped.Add(e.Ctx(), 1, metric.WithAttributes(attribute.String("command", command)))
			return nil, fmt.Errorf("%w: %s", ErrQueueFull, command)
		}
	}
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		if d.logger == nil {
			return h(e)
		}
		start := time.Now()
		d.logger.Debug("handling event", "command", command, "args", e.Args)

		result, err := h(e)
		if err != nil {
			d.logger.Error("event failed", "command", command, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "command", command, "duration", time.Since(start))
		}
		return result, err
	}
}
