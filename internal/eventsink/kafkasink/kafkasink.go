// Package kafkasink publishes engine events to a Kafka topic so
// external collaborators (persistence, real-time fan-out) can subscribe
// without the engine knowing anything about them.
package kafkasink

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/krugerplant/linesim/internal/eventsink"
)

// Sink publishes every event to a Kafka topic as a JSON-encoded message,
// keyed by event kind so a consumer group can partition by category.
type Sink struct {
	writer *kafka.Writer
}

// New creates a Kafka-backed Sink. brokers is a comma-free single
// address or the first broker in the cluster; kafka-go's Writer dials
// the rest of the cluster from its metadata.
func New(brokers []string, topic string) *Sink {
	return &Sink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
			Async:        true,
		},
	}
}

// Emit publishes the event. Marshal or write failures are logged and
// swallowed; persistence failures must never propagate into the
// engine.
func (s *Sink) Emit(e eventsink.Event) {
	body, err := json.Marshal(e)
	if err != nil {
		log.Warn().Err(err).Str("kind", string(e.Kind)).Msg("failed to marshal event for kafka")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.Kind),
		Value: body,
	})
	if err != nil {
		log.Warn().Err(err).Str("kind", string(e.Kind)).Msg("failed to publish event to kafka")
	}
}

// Close flushes and closes the underlying writer.
func (s *Sink) Close() error {
	return s.writer.Close()
}
