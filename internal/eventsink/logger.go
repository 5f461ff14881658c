package eventsink

import (
	"github.com/rs/zerolog"
)

// LoggerSink writes every event as a structured zerolog line. This is
// the simplest Sink; the simulator binary always includes it in its
// fan-out, alongside the Prometheus exporter and the optional Kafka sink.
type LoggerSink struct {
	log zerolog.Logger
}

// NewLoggerSink wraps a zerolog.Logger as a Sink.
func NewLoggerSink(log zerolog.Logger) *LoggerSink {
	return &LoggerSink{log: log}
}

// Emit logs the event at debug level; stop-started/ended,
// oee-shift-end and car-completed are logged at info since operators
// care about those at a glance.
func (s *LoggerSink) Emit(e Event) {
	evt := s.log.Debug()
	switch e.Kind {
	case KindStopStarted, KindStopEnded, KindOEEShiftEnd, KindCarCompleted:
		evt = s.log.Info()
	}
	evt.
		Str("kind", string(e.Kind)).
		Int64("ts", e.Timestamp).
		Interface("payload", e.Payload).
		Msg("engine event")
}
