package ch341

// EventType identifies a driver notification.
type EventType int

const (
	// EventReady fires exactly once after a successful Open.
	EventReady EventType = iota
	// EventData carries a received chunk; the slice is owned by the
	// receiver and never reused by the driver.
	EventData
	// EventDisconnected fires exactly once per session, on device removal
	// or Close.
	EventDisconnected
	// EventError carries a fatal open failure.
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventReady:
		return "ready"
	case EventData:
		return "data"
	case EventDisconnected:
		return "disconnected"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is the tagged union delivered on the driver's event channel.
// Data is set for EventData, Err for EventError.
type Event struct {
	Type EventType
	Data []byte
	Err  error
}

// Events returns the driver's notification channel. The channel is
// buffered; a receiver that stops draining it will eventually stall the
// read loop rather than lose events.
func (d *Driver) Events() <-chan Event {
	return d.events
}

// emit delivers an event in order, blocking if the buffer is full.
func (d *Driver) emit(ev Event) {
	d.events <- ev
}
