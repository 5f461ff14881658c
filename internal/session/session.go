// Package session wires one fully-isolated simulation instance: a
// topology, item store, buffer registry, stop registry, KPI engine,
// scheduler, and clock, plus a uuid correlation id. Constructing a
// Session never touches package-level state; every dependency is built
// fresh and injected, so concurrent sessions share nothing.
package session

import (
	"github.com/google/uuid"

	"github.com/krugerplant/linesim/internal/buffer"
	"github.com/krugerplant/linesim/internal/clock"
	"github.com/krugerplant/linesim/internal/config"
	"github.com/krugerplant/linesim/internal/core"
	"github.com/krugerplant/linesim/internal/eventsink"
	"github.com/krugerplant/linesim/internal/kpi"
	"github.com/krugerplant/linesim/internal/scheduler"
	"github.com/krugerplant/linesim/internal/stop"
	"github.com/krugerplant/linesim/internal/topology"
	"github.com/krugerplant/linesim/internal/workitem"
)

// Session is one isolated simulation instance: the single aggregate
// that owns everything a running simulation needs.
type Session struct {
	ID uuid.UUID

	Topo    *topology.Topology
	Items   *workitem.Store
	Buffers *buffer.Registry
	Stops   *stop.Registry
	KPI     *kpi.Engine
	Sched   *scheduler.Scheduler
	Clock   *clock.Clock

	rng *core.RNG
	rt  *config.RuntimeConfig
}

// New builds a Session from a frozen topology.Input and a
// RuntimeConfig. Topology build errors are fatal configuration errors;
// the caller should log.Fatal on a non-nil error.
func New(in topology.Input, rt *config.RuntimeConfig, seed int64, sink eventsink.Sink) (*Session, error) {
	rng := core.NewRNG(seed)

	topo, err := topology.Build(in, rng)
	if err != nil {
		return nil, err
	}

	if sink == nil {
		sink = eventsink.NopSink{}
	}

	items := workitem.NewStore()
	buffers := buffer.Build(topo)
	stops := stop.NewRegistry(topo)
	kpiEngine := kpi.New(items, stops)
	sched := scheduler.New(topo, items, buffers, stops, kpiEngine, sink, rng)

	s := &Session{
		ID:      uuid.New(),
		Topo:    topo,
		Items:   items,
		Buffers: buffers,
		Stops:   stops,
		KPI:     kpiEngine,
		Sched:   sched,
		rng:     rng,
		rt:      rt,
	}

	s.Clock = clock.New(rt, s.Sched.Execute, s.resetOwnedState)
	s.Clock.OnTickListener(func(t clock.Tick) {
		now := t.SimulatedTimestamp
		sink.Emit(eventsink.Event{
			Kind:      eventsink.KindTickState,
			Key:       "CLOCK",
			Timestamp: now,
			Payload:   t,
		})

		snap := s.Sched.Snapshot(now)
		sink.Emit(eventsink.Event{
			Kind:      eventsink.KindPlantSnapshot,
			Key:       "PLANT",
			Timestamp: now,
			Payload:   snap,
		})
		sink.Emit(eventsink.Event{
			Kind:      eventsink.KindBuffersSnapshot,
			Key:       "BUFFERS",
			Timestamp: now,
			Payload:   snap.Buffers,
		})

		if f, ok := sink.(flusher); ok {
			f.Flush(now)
		}
	})

	return s, nil
}

// flusher is the optional capability eventsink.Throttle implements:
// draining retained events whose category interval has elapsed. Called
// once per tick so quiet categories flush even with no fresh event to
// trigger the boundary check.
type flusher interface {
	Flush(now int64)
}

// resetOwnedState performs the full memory reset Clock.Stop triggers.
// The topology is immutable and is never part of the reset.
func (s *Session) resetOwnedState() {
	s.Items.Reset()
	s.Buffers.Reset()
	s.Stops.Reset()
	s.Sched.Reset()
}

// Start begins tick emission.
func (s *Session) Start() { s.Clock.Start() }

// Pause freezes tick emission without losing accumulated simulated time.
func (s *Session) Pause() { s.Clock.Pause() }

// Resume restores tick emission after Pause.
func (s *Session) Resume() { s.Clock.Resume() }

// Stop halts tick emission and resets all owned engine state.
func (s *Session) Stop() { s.Clock.Stop() }

// Restart reinitializes the simulated day and starts a fresh run.
func (s *Session) Restart() { s.Clock.Restart() }

// SetInitialState seeds the clock for recovery before Start.
func (s *Session) SetInitialState(simulatedTimestamp core.Millis, tickNumber int64) {
	s.Clock.SetInitialState(simulatedTimestamp, tickNumber)
}
