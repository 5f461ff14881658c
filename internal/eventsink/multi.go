package eventsink

// Multi fans one event out to several sinks. A panic or error in one
// sink must never prevent the others from receiving the event; Sink
// implementations are expected to guard their own work.
type Multi struct {
	sinks []Sink
}

// NewMulti creates a fan-out Sink over the given sinks.
func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

// Emit forwards the event to every wrapped sink.
func (m *Multi) Emit(e Event) {
	for _, s := range m.sinks {
		s.Emit(e)
	}
}
