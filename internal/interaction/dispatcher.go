package interaction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const (
	// AckDeadline is the platform's hard limit for acknowledging an
	// interaction, measured from arrival.
	AckDeadline = 3 * time.Second

	// deferMargin is how long before the deadline the dispatcher stops
	// waiting for the handler and sends the deferred acknowledgement
	// itself.
	deferMargin = 500 * time.Millisecond
)

// Handler processes one interaction event. It either responds through ack
// synchronously or defers and finishes out-of-band; returning an error
// without having acknowledged produces a best-effort ephemeral error
// acknowledgement.
type Handler func(ctx context.Context, ev *Event, ack *Ack) error

// route matches events by kind and custom-ID prefix. Custom IDs are
// namespaced ("orders:confirm:1090"), so prefix matching gives one handler
// per namespace.
type route struct {
	kind    Kind
	prefix  string
	handler Handler
}

// Dispatcher routes inbound interaction events to registered handlers and
// guarantees each event is acknowledged before the platform deadline. The
// registry is passed in explicitly at construction; there is no ambient
// handler state.
type Dispatcher struct {
	sink          Sink
	logger        *slog.Logger
	deadline      time.Duration
	margin        time.Duration
	tokenValidity time.Duration

	mu     sync.RWMutex
	routes []route

	wg sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithDeadline overrides the acknowledgement deadline. Tests use this to
// avoid multi-second waits.
func WithDeadline(deadline, margin time.Duration) Option {
	return func(d *Dispatcher) {
		d.deadline = deadline
		d.margin = margin
	}
}

// WithTokenValidity bounds how long after arrival deferred follow-ups may
// still be sent.
func WithTokenValidity(v time.Duration) Option {
	return func(d *Dispatcher) { d.tokenValidity = v }
}

// NewDispatcher creates a dispatcher delivering acknowledgements to sink.
func NewDispatcher(sink Sink, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sink:     sink,
		logger:   logger,
		deadline: AckDeadline,
		margin:   deferMargin,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle registers a handler for events of a kind whose custom ID starts
// with prefix. Longest prefix wins when routes overlap.
func (d *Dispatcher) Handle(kind Kind, prefix string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.routes = append(d.routes, route{kind: kind, prefix: prefix, handler: handler})
}

// Dispatch routes one event. It returns once the event is acknowledged —
// either by the handler or, when the handler cannot finish inside the
// deadline, by the dispatcher's own deferred acknowledgement. Handler work
// still running after a deferral continues out-of-band.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *Event) error {
	handler := d.lookup(ev)
	ack := NewAck(ev, d.sink, d.tokenValidity)

	remaining := d.deadline - time.Since(ev.ArrivedAt) - d.margin
	if remaining < 0 {
		remaining = 0
	}

	done := make(chan error, 1)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		done <- d.runHandler(ctx, handler, ev, ack)
	}()

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case err := <-done:
		return d.finish(ctx, ev, ack, err)
	case <-timer.C:
		// The handler cannot provably finish inside the deadline:
		// switch to the deferred path now, before the deadline passes.
		if err := ack.Defer(ctx, false); err != nil && err != ErrDoubleAck {
			d.logger.Error("interaction_ack_timeout",
				"event_id", ev.ID, "custom_id", ev.CustomID, "error", err)
			return fmt.Errorf("acknowledgement timed out: %w", err)
		}
		// Collect the handler result out-of-band for logging only.
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := <-done; err != nil {
				d.logger.Error("interaction_handler_failed_after_defer",
					"event_id", ev.ID, "custom_id", ev.CustomID, "error", err)
			}
		}()
		return nil
	}
}

// Wait blocks until all in-flight handler work has finished. Used by
// graceful shutdown and tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// lookup returns the longest-prefix route for the event, or the default
// handler which acknowledges unroutable events so the platform never sees
// a dead callback.
func (d *Dispatcher) lookup(ev *Event) Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var best Handler
	bestLen := -1
	for _, r := range d.routes {
		if r.kind != ev.Kind {
			continue
		}
		if strings.HasPrefix(ev.CustomID, r.prefix) && len(r.prefix) > bestLen {
			best = r.handler
			bestLen = len(r.prefix)
		}
	}
	if best != nil {
		return best
	}
	return d.defaultHandler
}

// defaultHandler acknowledges events no route matched.
func (d *Dispatcher) defaultHandler(ctx context.Context, ev *Event, ack *Ack) error {
	d.logger.Warn("interaction_unrouted", "event_id", ev.ID, "kind", ev.Kind, "custom_id", ev.CustomID)
	return ack.Respond(ctx, Reply{Content: "This control is no longer active.", Ephemeral: true})
}

// runHandler invokes the handler with panics converted to errors so a
// broken handler cannot take the dispatcher down.
func (d *Dispatcher) runHandler(ctx context.Context, handler Handler, ev *Event, ack *Ack) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler(ctx, ev, ack)
}

// finish handles the handler outcome once it returned before the deadline:
// errors from an unacknowledged event become a best-effort ephemeral error
// acknowledgement; errors after an acknowledgement are only logged.
func (d *Dispatcher) finish(ctx context.Context, ev *Event, ack *Ack, err error) error {
	if err == nil {
		if !ack.Acknowledged() {
			// Handler forgot to acknowledge; cover for it.
			if ackErr := ack.Respond(ctx, Reply{Content: "Done.", Ephemeral: true}); ackErr != nil {
				d.logger.Error("interaction_ack_failed", "event_id", ev.ID, "error", ackErr)
			}
		}
		return nil
	}

	if ack.Acknowledged() {
		d.logger.Error("interaction_handler_failed", "event_id", ev.ID, "custom_id", ev.CustomID, "error", err)
		return nil
	}

	d.logger.Error("interaction_handler_failed", "event_id", ev.ID, "custom_id", ev.CustomID, "error", err)
	if ackErr := ack.Respond(ctx, Reply{Content: "Something went wrong handling that action.", Ephemeral: true}); ackErr != nil {
		d.logger.Error("interaction_ack_failed", "event_id", ev.ID, "error", ackErr)
	}
	return nil
}
