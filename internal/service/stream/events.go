package stream

// EventKind labels a server lifecycle notification.
type EventKind string

const (
	// EventStarted fires once the listener is bound. Port carries the
	// effective listening port.
	EventStarted EventKind = "started"
	EventStopped EventKind = "stopped"

	// EventConnected / EventDisconnected fire exactly once per connection,
	// in that order, regardless of how the session ended.
	EventConnected    EventKind = "connected"
	EventDisconnected EventKind = "disconnected"
)

// Event is a best-effort notification to the host. Delivery is dropped,
// never blocked on, when the subscriber falls behind.
type Event struct {
	Kind      EventKind
	Port      int
	SessionID string
}
