// Package interaction routes inbound platform callbacks (button clicks,
// select choices, modal submissions) to typed handlers and guarantees a
// single, timely acknowledgement per event.
package interaction

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Kind is the closed set of interaction event kinds.
type Kind string

const (
	KindButton      Kind = "button"
	KindSelectMenu  Kind = "select_menu"
	KindModalSubmit Kind = "modal_submit"
)

// Acknowledgement state machine errors.
var (
	// ErrDoubleAck is returned when an event that was already
	// acknowledged is acknowledged again. The second acknowledgement is
	// never sent to the platform.
	ErrDoubleAck = errors.New("interaction already acknowledged")

	// ErrNotDeferred is returned for a follow-up on an event that was
	// never deferred.
	ErrNotDeferred = errors.New("follow-up requires a deferred acknowledgement")

	// ErrTokenExpired is returned for a follow-up attempted after the
	// interaction token's validity window.
	ErrTokenExpired = errors.New("interaction token expired")
)

// Event is one inbound interaction callback. Payload fields depend on the
// kind: Values for select menus, Fields for modal submissions.
type Event struct {
	ID        string
	Kind      Kind
	Variant   string // select menu variant, when Kind is KindSelectMenu
	CustomID  string
	Token     string // platform token used to respond
	Values    []string
	Fields    map[string]string
	ArrivedAt time.Time
}

// NewEvent stamps an inbound callback with an ID and arrival time.
func NewEvent(kind Kind, customID, token string) *Event {
	return &Event{
		ID:        ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String(),
		Kind:      kind,
		CustomID:  customID,
		Token:     token,
		ArrivedAt: time.Now(),
	}
}

// Reply is the payload of an immediate or follow-up acknowledgement.
type Reply struct {
	Content   string
	Ephemeral bool
}

// Sink delivers acknowledgements to the platform. The platform client
// implements it; tests substitute a recorder.
type Sink interface {
	Respond(ctx context.Context, ev *Event, reply Reply) error
	Defer(ctx context.Context, ev *Event, ephemeral bool) error
	FollowUp(ctx context.Context, ev *Event, reply Reply) error
}

// Ack tracks the Pending -> Acknowledged transition for one event. The
// transition happens exactly once; a second attempt fails with
// ErrDoubleAck before anything reaches the platform.
type Ack struct {
	event *Event
	sink  Sink

	// tokenValidity bounds follow-ups after a deferral; zero means
	// unbounded.
	tokenValidity time.Duration

	mu       sync.Mutex
	acked    bool
	deferred bool
}

// NewAck pairs an event with the sink its acknowledgement goes to.
func NewAck(ev *Event, sink Sink, tokenValidity time.Duration) *Ack {
	return &Ack{event: ev, sink: sink, tokenValidity: tokenValidity}
}

// Respond sends the immediate acknowledgement payload.
func (a *Ack) Respond(ctx context.Context, reply Reply) error {
	if err := a.transition(false); err != nil {
		return err
	}
	return a.sink.Respond(ctx, a.event, reply)
}

// Defer sends the lightweight placeholder acknowledgement, freeing the
// handler to finish its real work outside the deadline.
func (a *Ack) Defer(ctx context.Context, ephemeral bool) error {
	if err := a.transition(true); err != nil {
		return err
	}
	return a.sink.Defer(ctx, a.event, ephemeral)
}

// FollowUp delivers the real response after a deferral. It is not an
// acknowledgement and may be called multiple times within the token's
// validity window.
func (a *Ack) FollowUp(ctx context.Context, reply Reply) error {
	a.mu.Lock()
	deferred := a.deferred
	a.mu.Unlock()

	if !deferred {
		return ErrNotDeferred
	}
	if a.tokenValidity > 0 && time.Since(a.event.ArrivedAt) > a.tokenValidity {
		return ErrTokenExpired
	}
	return a.sink.FollowUp(ctx, a.event, reply)
}

// Acknowledged reports whether the event has left the Pending state.
func (a *Ack) Acknowledged() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.acked
}

// Deferred reports whether the acknowledgement was the deferred kind.
func (a *Ack) Deferred() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.deferred
}

func (a *Ack) transition(deferred bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.acked {
		return ErrDoubleAck
	}
	a.acked = true
	a.deferred = deferred
	return nil
}
