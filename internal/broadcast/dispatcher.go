package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

type queued struct {
	event Event
	span  trace.SpanContext
}

// Dispatcher hands events to a Publisher on a background goroutine so a slow
// or failing broker never blocks or fails the request that produced them.
// When the buffer is full new events are dropped.
type Dispatcher struct {
	pub     Publisher
	logger  zerolog.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan queued
	done   chan struct{}
}

func NewDispatcher(pub Publisher, logger zerolog.Logger, buffer int, timeout time.Duration) *Dispatcher {
	if buffer < 1 {
		buffer = 1
	}
	d := &Dispatcher{
		pub:     pub,
		logger:  logger.With().Str("component", "broadcast").Logger(),
		timeout: timeout,
		queue:   make(chan queued, buffer),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Dispatch enqueues events without blocking. It reports how many were accepted.
func (d *Dispatcher) Dispatch(ctx context.Context, events ...Event) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return 0
	}

	sc := trace.SpanContextFromContext(ctx)
	accepted := 0
	for _, ev := range events {
		select {
		case d.queue <- queued{event: ev, span: sc}:
			accepted++
		default:
			d.logger.Warn().
				Str("event", ev.Name).
				Strs("channels", ev.Channels).
				Msg("broadcast buffer full, dropping event")
		}
	}
	return accepted
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for q := range d.queue {
		ctx := context.Background()
		if q.span.IsValid() {
			ctx = trace.ContextWithRemoteSpanContext(ctx, q.span)
		}
		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		err := d.pub.Publish(ctx, q.event)
		cancel()

		if err != nil {
			d.logger.Error().
				Err(err).
				Str("event", q.event.Name).
				Strs("channels", q.event.Channels).
				Msg("broadcast failed")
		}
	}
}

// Close stops accepting events, drains what is queued until ctx expires and
// closes the publisher.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
	case <-ctx.Done():
		d.logger.Warn().Int("pending", len(d.queue)).Msg("broadcast drain interrupted")
	}
	return d.pub.Close()
}

// LogPublisher only logs events. It is used when no broker is configured.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, event Event) error {
	p.logger.Info().
		Str("event", event.Name).
		Strs("channels", event.Channels).
		Msg("broadcast")
	return nil
}

func (p *LogPublisher) Close() error { return nil }
