package eventsink

import (
	"github.com/gammazero/workerpool"
	"github.com/rs/zerolog/log"
)

// AsyncDispatcher submits each Emit to a bounded worker pool so a slow
// downstream sink (Kafka, OPC UA, an HTTP collector) never stalls the
// tick that produced the event.
type AsyncDispatcher struct {
	pool *workerpool.WorkerPool
	next Sink
}

// NewAsyncDispatcher wraps next, dispatching every Emit onto a pool of
// maxWorkers goroutines. Submissions never block: if the pool's queue is
// saturated, the oldest queued task is not dropped — workerpool.Submit
// queues without bound, so callers should size maxWorkers to the sink's
// real throughput rather than relying on backpressure.
func NewAsyncDispatcher(next Sink, maxWorkers int) *AsyncDispatcher {
	return &AsyncDispatcher{
		pool: workerpool.New(maxWorkers),
		next: next,
	}
}

// Emit submits the event to the worker pool and returns immediately.
func (d *AsyncDispatcher) Emit(e Event) {
	d.pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("recover", r).Str("kind", string(e.Kind)).Msg("event sink panicked, dropping event")
			}
		}()
		d.next.Emit(e)
	})
}

// Stop waits for all queued events to drain and stops accepting new
// work. Callers should call this during graceful shutdown.
func (d *AsyncDispatcher) Stop() {
	d.pool.StopWait()
}
