// Package audit records security-relevant events (login success and failure,
// logout, permission denials) as fire-and-forget records. Emission never
// blocks an authorization decision: events go through a buffered channel and
// are dropped, counted, when the buffer is full.
package audit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Event actions emitted by the authentication gate and the guards.
const (
	ActionLoginSuccess     = "login.success"
	ActionLoginFailure     = "login.failure"
	ActionLogout           = "logout"
	ActionLogoutOthers     = "logout.others"
	ActionPermissionDenied = "permission.denied"
)

// Event is one audit record.
type Event struct {
	// Action names what happened (see the Action constants).
	Action string
	// UserID is the affected account, zero when the identifier was unknown.
	UserID uint64
	// Identifier is the login identifier as submitted, for failure events.
	Identifier string
	// IP is the remote address, when known.
	IP string
	// Detail carries the internal reason; it is never shown to the caller.
	Detail string
	// At is the event timestamp.
	At time.Time
}

// Sink consumes audit events.
type Sink interface {
	Write(e Event)
}

// ZerologSink writes audit events to the global zerolog logger.
type ZerologSink struct{}

// Write logs the event at info level with structured fields.
func (ZerologSink) Write(e Event) {
	log.Info().
		Str("audit", e.Action).
		Uint64("user_id", e.UserID).
		Str("identifier", e.Identifier).
		Str("ip", e.IP).
		Str("detail", e.Detail).
		Time("at", e.At).
		Msg("audit event")
}

var dropped = promauto.NewCounter(prometheus.CounterOpts{ //nolint:gochecknoglobals
	Name: "audit_events_dropped_total",
	Help: "Number of audit events dropped because the buffer was full.",
})

// Dispatcher forwards events to a sink asynchronously.
type Dispatcher struct {
	ch   chan Event
	sink Sink
	done chan struct{}
}

// NewDispatcher starts a dispatcher with the given buffer size.
func NewDispatcher(sink Sink, buffer int) *Dispatcher {
	d := &Dispatcher{
		ch:   make(chan Event, buffer),
		sink: sink,
		done: make(chan struct{}),
	}

	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for e := range d.ch {
		d.sink.Write(e)
	}
}

// Emit queues the event without blocking. Events are dropped when the buffer
// is full; auditing must never delay the decision path.
func (d *Dispatcher) Emit(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	select {
	case d.ch <- e:
	default:
		dropped.Inc()
	}
}

// Close flushes queued events and stops the dispatcher.
func (d *Dispatcher) Close() {
	close(d.ch)
	<-d.done
}
