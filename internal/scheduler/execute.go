package scheduler

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/krugerplant/linesim/internal/eventsink"
	"github.com/krugerplant/linesim/internal/stop"
)

var tracer = otel.Tracer("github.com/krugerplant/linesim/internal/scheduler")

// Execute runs the per-tick pipeline. It is not safe to call
// concurrently with itself; the engine is single-threaded per session.
// Each phase runs inside its own child span under one "plant.tick"
// span, so a trace backend can show where tick time goes without the
// engine itself depending on any particular exporter.
//
// Stations advance before items are created: a start station vacated
// during station advancement must be creatable-into the same tick, or a
// plant-entry line at tick period ~= takt would only host a new item
// every second tick and cap out at half its JPH target. createWith
// gating therefore reads the station exits recorded this tick.
func (s *Scheduler) Execute(now int64) {
	ctx, span := tracer.Start(context.Background(), "plant.tick", trace.WithAttributes())
	defer span.End()

	s.phase(ctx, "stop_lifecycle", func() { s.updateStopLifecycle(now) })
	for k := range s.stationExitsThisTick {
		delete(s.stationExitsThisTick, k)
	}
	s.phase(ctx, "advance_stations", func() { s.advanceStations(now) })
	s.phase(ctx, "create_items", func() { s.createItems(now) })
	s.phase(ctx, "advance_buffers", func() { s.advanceBuffers(now) })
	s.phase(ctx, "shift_boundaries", func() { s.checkShiftBoundaries(now) })
	s.phase(ctx, "dynamic_oee", func() { s.emitDynamicOEE(now) })
}

func (s *Scheduler) phase(ctx context.Context, name string, fn func()) {
	_, span := tracer.Start(ctx, "plant.tick."+name)
	defer span.End()
	fn()
}

// updateStopLifecycle applies due stops to stations and clears elapsed
// ones.
func (s *Scheduler) updateStopLifecycle(now int64) {
	result := s.Stops.UpdateLifecycle(now, func(shop, line, station string) bool {
		key := shop + "-" + line + "-" + station
		st, ok := s.stations[key]
		if !ok {
			return false
		}
		return st.Occupied || st.IsStopped
	})

	for _, st := range result.Started {
		s.applyStopToStations(st)
		s.Sink.Emit(eventsink.Event{Kind: eventsink.KindStopStarted, Timestamp: now, Payload: st})
	}
	for _, st := range result.Completed {
		s.clearStopFromStations(st)
		s.Sink.Emit(eventsink.Event{Kind: eventsink.KindStopEnded, Timestamp: now, Payload: st})
	}
}

func (s *Scheduler) affectedStationStates(st *stop.Stop) []*StationState {
	var keys []string
	if st.Scope == stop.ScopeSingleStation {
		keys = []string{st.Shop + "-" + st.Line + "-" + st.Station}
	} else if line, ok := s.Topo.Line(st.Shop, st.Line); ok {
		for _, station := range line.Stations {
			keys = append(keys, station.Key)
		}
	}
	out := make([]*StationState, 0, len(keys))
	for _, k := range keys {
		if stSt, ok := s.stations[k]; ok {
			out = append(out, stSt)
		}
	}
	return out
}

func (s *Scheduler) applyStopToStations(st *stop.Stop) {
	for _, stSt := range s.affectedStationStates(st) {
		if stSt.IsStopped && stop.IsFlowReason(stSt.StopReason) {
			stSt.clearStop()
		}
		stSt.applyStop(st)
	}
}

func (s *Scheduler) clearStopFromStations(st *stop.Stop) {
	for _, stSt := range s.affectedStationStates(st) {
		if stSt.StopID == st.ID {
			stSt.clearStop()
		}
	}
}
