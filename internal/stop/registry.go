package stop

import (
	"github.com/krugerplant/linesim/internal/core"
	"github.com/krugerplant/linesim/internal/topology"
)

// Registry owns every Stop in a slab keyed by a monotonic int64 id and
// maintains a (shop,line,station) -> stops[] index for the O(1)
// per-station queries the KPI engine and scheduler need.
type Registry struct {
	topo *topology.Topology
	seq  *core.SequenceCounter

	stops map[int64]*Stop

	// byStation indexes every stop (planned or materialized) whose
	// effective scope includes this station key, in creation order.
	byStation map[string][]*Stop

	// activePropagation tracks the single in-progress propagation stop
	// per (stationKey, reason); at most one is ever started per pair.
	activePropagation map[string]*Stop
}

// NewRegistry creates an empty Registry bound to an immutable Topology.
func NewRegistry(topo *topology.Topology) *Registry {
	return &Registry{
		topo:              topo,
		seq:               &core.SequenceCounter{},
		stops:             make(map[int64]*Stop),
		byStation:         make(map[string][]*Stop),
		activePropagation: make(map[string]*Stop),
	}
}

// Reset clears all owned stops, used by Clock.Stop's full memory
// reset.
func (r *Registry) Reset() {
	r.seq = &core.SequenceCounter{}
	r.stops = make(map[int64]*Stop)
	r.byStation = make(map[string][]*Stop)
	r.activePropagation = make(map[string]*Stop)
}

// Get looks up a stop by id.
func (r *Registry) Get(id int64) (*Stop, bool) {
	s, ok := r.stops[id]
	return s, ok
}

// affectedStationKeys resolves a stop's scope to concrete station keys.
func (r *Registry) affectedStationKeys(s *Stop) []string {
	if s.Scope == ScopeSingleStation {
		return []string{core.StationKey(s.Shop, s.Line, s.Station)}
	}
	line, ok := r.topo.Line(s.Shop, s.Line)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(line.Stations))
	for _, st := range line.Stations {
		keys = append(keys, st.Key)
	}
	return keys
}

func (r *Registry) index(s *Stop) {
	for _, key := range r.affectedStationKeys(s) {
		r.byStation[key] = append(r.byStation[key], s)
	}
}

// StopsForStation returns every stop (any status) recorded against a
// station key, in creation order. The KPI engine builds its per-run
// index from this.
func (r *Registry) StopsForStation(stationKey string) []*Stop {
	return r.byStation[stationKey]
}

// add allocates a new id, stores, and indexes a stop.
func (r *Registry) add(s *Stop) *Stop {
	s.ID = r.seq.Next()
	r.stops[s.ID] = s
	r.index(s)
	return s
}

// StartPropagation starts a propagation stop for (shop,line,station,
// reason) if one is not already active. Returns the existing or newly
// created stop, and whether it was newly created.
func (r *Registry) StartPropagation(shop, line, station, reason string, now int64) (*Stop, bool) {
	key := propagationKey(shop, line, station, reason)
	if existing, ok := r.activePropagation[key]; ok {
		return existing, false
	}
	s := &Stop{
		Shop: shop, Line: line, Station: station,
		Scope:    ScopeSingleStation,
		Reason:   reason,
		Type:     TypePropagation,
		Status:   StatusInProgress,
		StartTime: now,
	}
	r.add(s)
	r.activePropagation[key] = s
	return s, true
}

// EndPropagation ends the active propagation stop for (shop,line,
// station,reason), if any, the first tick the blocking condition
// clears. Returns false if there was nothing to end.
func (r *Registry) EndPropagation(shop, line, station, reason string, now int64) bool {
	key := propagationKey(shop, line, station, reason)
	s, ok := r.activePropagation[key]
	if !ok {
		return false
	}
	s.Status = StatusCompleted
	s.EndTime = now
	s.DurationMs = now - s.StartTime
	delete(r.activePropagation, key)
	return true
}

// ActivePropagation returns the in-progress propagation stop for
// (shop,line,station,reason), if any.
func (r *Registry) ActivePropagation(shop, line, station, reason string) (*Stop, bool) {
	s, ok := r.activePropagation[propagationKey(shop, line, station, reason)]
	return s, ok
}

func propagationKey(shop, line, station, reason string) string {
	return core.StationKey(shop, line, station) + "|" + reason
}

// LifecycleResult reports what UpdateLifecycle changed this tick so the
// scheduler can apply/clear station fields and the event sink can emit
// stop-started/stop-ended notifications.
type LifecycleResult struct {
	Started     []*Stop
	Completed   []*Stop
	Rescheduled []*Stop
}

// StationQuery answers whether every station affected by a stop is
// occupied-or-already-stopped, the RANDOM_GENERATE reschedule guard.
type StationQuery func(shop, line, station string) (occupiedOrStopped bool)

// UpdateLifecycle runs the stop-lifecycle phase of the tick:
// transitions Planned stops to InProgress (or reschedules, by two hours,
// RANDOM_GENERATE stops whose affected stations are all occupied or
// already stopped), and transitions
// InProgress stops to Completed once endTime elapses. Propagation and
// LACK-{type} stops are excluded — they terminate only by condition
// (see EndPropagation, EndLackStop), never by time.
func (r *Registry) UpdateLifecycle(now int64, query StationQuery) LifecycleResult {
	var result LifecycleResult

	for _, s := range r.stops {
		if s.Type == TypePropagation || s.IsLack() {
			continue
		}

		switch s.Status {
		case StatusPlanned:
			if s.StartTime > now {
				continue
			}
			if s.Type == TypeRandom && r.allAffectedBusy(s, query) {
				const twoHoursMs = 2 * 60 * 60 * 1000
				s.StartTime += twoHoursMs
				s.EndTime += twoHoursMs
				result.Rescheduled = append(result.Rescheduled, s)
				continue
			}
			s.Status = StatusInProgress
			result.Started = append(result.Started, s)

		case StatusInProgress:
			if s.EndTime <= now {
				s.Status = StatusCompleted
				s.DurationMs = s.EndTime - s.StartTime
				result.Completed = append(result.Completed, s)
			}
		}
	}

	return result
}

func (r *Registry) allAffectedBusy(s *Stop, query StationQuery) bool {
	keys := r.affectedStationKeys(s)
	if len(keys) == 0 {
		return false
	}
	for _, key := range keys {
		shop, line, station := core.SplitStationKey(key)
		if !query(shop, line, station) {
			return false
		}
	}
	return true
}

// NewPlannedLineStop creates a Planned-status stop scoped to every
// station of a line, used for materialized plannedStop rules.
func (r *Registry) NewPlannedLineStop(shop, line, reason, category string, startTime, endTime int64) *Stop {
	s := &Stop{
		Shop: shop, Line: line,
		Scope:    ScopeAllStationsOfLine,
		Reason:   reason,
		Type:     TypePlanned,
		Category: category,
		Status:   StatusPlanned,
		StartTime: startTime,
		EndTime:   endTime,
	}
	return r.add(s)
}

// NewRandomStationStop creates a Planned-status RANDOM_GENERATE stop
// pinned to a single station.
func (r *Registry) NewRandomStationStop(shop, line, station string, severity Severity, startTime, endTime int64) *Stop {
	s := &Stop{
		Shop: shop, Line: line, Station: station,
		Scope:    ScopeSingleStation,
		Reason:   "RANDOM_FAILURE",
		Type:     TypeRandom,
		Severity: severity,
		Status:   StatusPlanned,
		StartTime: startTime,
		EndTime:   endTime,
	}
	return r.add(s)
}

// NewLackStop starts an in-progress LACK-{type} stop at a single
// station; these are raised reactively rather than scheduled.
func (r *Registry) NewLackStop(shop, line, station, partType string, now int64) *Stop {
	s := &Stop{
		Shop: shop, Line: line, Station: station,
		Scope:  ScopeSingleStation,
		Reason: core.LackStopReason(partType),
		Type:   TypeMicro,
		Status: StatusInProgress,
		StartTime: now,
	}
	return r.add(s)
}

// EndLackStop ends the in-progress LACK-{type} stop at a station, if
// any is active. Returns false if none was active.
func (r *Registry) EndLackStop(shop, line, station, partType string, now int64) bool {
	reason := core.LackStopReason(partType)
	for _, s := range r.byStation[core.StationKey(shop, line, station)] {
		if s.Reason == reason && s.Status == StatusInProgress {
			s.Status = StatusCompleted
			s.EndTime = now
			s.DurationMs = now - s.StartTime
			return true
		}
	}
	return false
}

// ActiveBlockingStop returns the in-progress blocking (non-flow,
// non-LACK) stop at a station, if any. A station with an active
// blocking stop must not attempt pull/push.
func (r *Registry) ActiveBlockingStop(stationKey string) (*Stop, bool) {
	for _, s := range r.byStation[stationKey] {
		if s.Status == StatusInProgress && IsBlocking(s.Reason) {
			return s, true
		}
	}
	return nil, false
}

// ActiveLackStop returns the in-progress LACK-{type} stop at a station
// for the given part type, if any.
func (r *Registry) ActiveLackStop(stationKey, partType string) (*Stop, bool) {
	reason := core.LackStopReason(partType)
	for _, s := range r.byStation[stationKey] {
		if s.Status == StatusInProgress && s.Reason == reason {
			return s, true
		}
	}
	return nil, false
}
