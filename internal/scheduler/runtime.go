// Package scheduler implements the per-tick pipeline that drives the
// whole simulation: stop lifecycle, station advancement, item creation,
// buffer/first-station pulls, shift boundaries, and dynamic OEE.
package scheduler

import (
	"github.com/krugerplant/linesim/internal/buffer"
	"github.com/krugerplant/linesim/internal/core"
	"github.com/krugerplant/linesim/internal/eventsink"
	"github.com/krugerplant/linesim/internal/kpi"
	"github.com/krugerplant/linesim/internal/stop"
	"github.com/krugerplant/linesim/internal/topology"
	"github.com/krugerplant/linesim/internal/workitem"
)

// StationState is the live, mutable state of one station. Topology owns
// the immutable Station; Scheduler owns this runtime overlay, keyed by
// the same station key. Stations hold only ids, never item or stop
// pointers.
type StationState struct {
	Occupied    bool
	CurrentItem string // work item id, "" if unoccupied
	EnteredAt   int64

	IsStopped  bool
	StopReason string
	StopID     int64
	StartStop  int64
	FinishStop int64

	// IsFirstCar is true until this station has pulled its first item
	// ever; propagation stops are suppressed while true.
	IsFirstCar bool
}

// LineRuntime is the live, mutable per-line state the scheduler needs
// beyond the immutable topology.Line: shift-edge tracking, the day's
// fairness toggle, and whether the day's random stops are generated.
type LineRuntime struct {
	PrevTimestamp int64
	ShiftStartMs  int64

	// FairnessToggle alternates cross-shop first-station pulls between
	// the normal input buffer and the upstream shop's rework buffer.
	FairnessToggle bool

	RandomStopsGenerated bool
}

// Scheduler owns the live station/line runtime state and orchestrates
// one tick at a time against the session's topology, item store, buffer
// registry, stop registry, and KPI engine.
type Scheduler struct {
	Topo    *topology.Topology
	Items   *workitem.Store
	Buffers *buffer.Registry
	Stops   *stop.Registry
	KPI     *kpi.Engine
	Sink    eventsink.Sink
	RNG     *core.RNG

	stations map[string]*StationState // key: station key
	lines    map[string]*LineRuntime  // key: line key

	// stationExitsThisTick records {lineKey}|{stationName} pairs whose
	// station pushed out this tick, for createWith synchronization.
	stationExitsThisTick map[string]bool

	// plannedMaterializedDay remembers, per shop, the simulated-day
	// start timestamp planned stops were last materialized for, so a
	// shop with several lines crossing shiftStart in the same tick
	// doesn't re-materialize its planned-stop rules once per line.
	plannedMaterializedDay map[string]int64
}

// New builds a Scheduler with fresh runtime state for every station and
// line in topo.
func New(topo *topology.Topology, items *workitem.Store, buffers *buffer.Registry, stops *stop.Registry, kpiEngine *kpi.Engine, sink eventsink.Sink, rng *core.RNG) *Scheduler {
	s := &Scheduler{
		Topo: topo, Items: items, Buffers: buffers, Stops: stops, KPI: kpiEngine, Sink: sink, RNG: rng,
		stations:               make(map[string]*StationState),
		lines:                  make(map[string]*LineRuntime),
		stationExitsThisTick:   make(map[string]bool),
		plannedMaterializedDay: make(map[string]int64),
	}
	for _, shop := range topo.Shops {
		for _, line := range shop.Lines {
			s.lines[line.Key] = &LineRuntime{}
			for _, st := range line.Stations {
				s.stations[st.Key] = &StationState{IsFirstCar: true}
			}
		}
	}
	return s
}

// Reset reinitializes all runtime state, used by Clock.Stop's full
// memory reset.
func (s *Scheduler) Reset() {
	s.stations = make(map[string]*StationState)
	s.lines = make(map[string]*LineRuntime)
	s.stationExitsThisTick = make(map[string]bool)
	s.plannedMaterializedDay = make(map[string]int64)
	for _, shop := range s.Topo.Shops {
		for _, line := range shop.Lines {
			s.lines[line.Key] = &LineRuntime{}
			for _, st := range line.Stations {
				s.stations[st.Key] = &StationState{IsFirstCar: true}
			}
		}
	}
}

// Station returns the live runtime state for a station key.
func (s *Scheduler) Station(key string) (*StationState, bool) {
	st, ok := s.stations[key]
	return st, ok
}

func exitKey(lineKey, stationName string) string { return lineKey + "|" + stationName }

// applyStop sets a station's stopped fields from a stop record,
// clearing any previous flow/LACK stop first so a station never
// double-applies a stop.
func (st *StationState) applyStop(s *stop.Stop) {
	st.IsStopped = true
	st.StopReason = s.Reason
	st.StopID = s.ID
	st.StartStop = s.StartTime
	st.FinishStop = s.EndTime
}

// clearStop clears a station's stopped fields.
func (st *StationState) clearStop() {
	st.IsStopped = false
	st.StopReason = ""
	st.StopID = 0
	st.StartStop = 0
	st.FinishStop = 0
}
