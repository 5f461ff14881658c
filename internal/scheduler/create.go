package scheduler

import (
	"github.com/krugerplant/linesim/internal/core"
	"github.com/krugerplant/linesim/internal/eventsink"
	"github.com/krugerplant/linesim/internal/stop"
	"github.com/krugerplant/linesim/internal/topology"
)

// createItems creates new cars and parts at the configured start
// stations. It runs after advanceStations so a start station vacated
// this tick can host a new item this tick, and so createWith gating
// sees the station exits recorded this tick.
func (s *Scheduler) createItems(now int64) {
	for _, ref := range s.Topo.StartStations {
		key := core.StationKey(ref.Shop, ref.Line, ref.Station)
		st, ok := s.stations[key]
		if !ok || st.Occupied {
			continue
		}
		if st.IsStopped && stop.IsBlocking(st.StopReason) {
			continue
		}

		line, ok := s.Topo.Line(ref.Shop, ref.Line)
		if !ok {
			continue
		}

		if line.CreateWith != nil {
			refLineKey := core.LineKey(ref.Shop, line.CreateWith.Line)
			if !s.stationExitsThisTick[exitKey(refLineKey, line.CreateWith.Station)] {
				continue
			}
		}

		if len(line.RequiredParts) > 0 && line.PartConsumptionStation == ref.Station {
			s.createFromParts(line, st, ref.Station, now)
			continue
		}

		s.createPlain(line, st, ref.Station, now)
	}
}

// createFromParts implements the multi-buffer model-matching creation
// path: a car is only born once every required part buffer holds a part
// of a common model, and one part per buffer is consumed with it.
func (s *Scheduler) createFromParts(line *topology.Line, st *StationState, stationName string, now int64) {
	bufIDs := make([]string, 0, len(line.RequiredParts))
	for _, partType := range line.RequiredParts {
		bufIDs = append(bufIDs, core.PartBufferID(line.Shop, partType))
	}

	for _, partType := range line.RequiredParts {
		bufID := core.PartBufferID(line.Shop, partType)
		buf, ok := s.Buffers.Get(bufID)
		if !ok || buf.IsEmpty() {
			s.raiseLack(line.Shop, line.Name, stationName, partType, now)
			return
		}
	}

	model, matched, found := s.Buffers.FindModelAcrossBuffers(bufIDs, s.Items)
	if !found {
		for _, partType := range line.RequiredParts {
			s.raiseLack(line.Shop, line.Name, stationName, partType, now)
		}
		return
	}

	for bufID, itemID := range matched {
		if buf, ok := s.Buffers.Get(bufID); ok {
			buf.Remove(itemID)
			s.Sink.Emit(eventsink.Event{Kind: eventsink.KindPartConsumed, Key: itemID, Timestamp: now, Payload: itemID})
		}
	}
	for _, partType := range line.RequiredParts {
		s.Stops.EndLackStop(line.Shop, line.Name, stationName, partType, now)
	}
	s.clearLackFromStation(core.StationKey(line.Shop, line.Name, stationName))

	car := s.Items.NewCar(model, nil, s.RNG.Bool(s.Topo.DPHU/100.0), now)
	s.occupy(st, car.ID, line.Shop, line.Name, stationName, now)
	s.Sink.Emit(eventsink.Event{Kind: eventsink.KindCarCreated, Key: car.ID, Timestamp: now, Payload: car})
}

// clearLackFromStation drops a station's stopped fields once every
// LACK-{type} stop held against it has ended; the registry ends the
// stop records, this clears the station-side mirror of them.
func (s *Scheduler) clearLackFromStation(stationKey string) {
	if st, ok := s.stations[stationKey]; ok && st.IsStopped && stop.IsLackReason(st.StopReason) {
		st.clearStop()
	}
}

func (s *Scheduler) raiseLack(shop, line, station, partType string, now int64) {
	stationKey := core.StationKey(shop, line, station)
	if _, active := s.Stops.ActiveLackStop(stationKey, partType); active {
		return
	}
	lackStop := s.Stops.NewLackStop(shop, line, station, partType, now)
	if st, ok := s.stations[stationKey]; ok {
		st.applyStop(lackStop)
	}
	s.Sink.Emit(eventsink.Event{Kind: eventsink.KindPartShortage, Key: stationKey, Timestamp: now, Payload: lackStop})
}

// createPlain creates a normal car (planned-mix model, random color
// pair, DPHU defect draw) or a part, depending on line.Kind.
func (s *Scheduler) createPlain(line *topology.Line, st *StationState, stationName string, now int64) {
	if line.IsPartLine() {
		part := s.Items.NewPart(line.PartType, line.PartType, now)
		s.occupy(st, part.ID, line.Shop, line.Name, stationName, now)
		s.Sink.Emit(eventsink.Event{Kind: eventsink.KindPartCreated, Key: part.ID, Timestamp: now, Payload: part})
		return
	}

	model := s.pickPlannedMixModel()
	colors := s.pickColors()
	hasDefect := s.RNG.Bool(s.Topo.DPHU / 100.0)

	car := s.Items.NewCar(model, colors, hasDefect, now)
	s.occupy(st, car.ID, line.Shop, line.Name, stationName, now)
	s.Sink.Emit(eventsink.Event{Kind: eventsink.KindCarCreated, Key: car.ID, Timestamp: now, Payload: car})
}

// pickPlannedMixModel walks the planned production mix: each model gets
// a consecutive block of blockSize cars before the mix moves to the
// next model. Peeks the sequence number the upcoming NewCar call will
// assign without consuming it.
func (s *Scheduler) pickPlannedMixModel() string {
	models := s.Topo.Models
	if len(models) == 0 {
		return "STD"
	}
	blockSize := int64(len(s.Topo.StartStations) * s.Topo.MixItemsPerLine)
	if blockSize <= 0 {
		blockSize = 1
	}
	seq := s.Items.PeekNextSequence()
	numModels := int64(len(models))
	idx := ((seq - 1) % (blockSize * numModels)) / blockSize
	if idx < 0 || idx >= numModels {
		idx = 0
	}
	return models[idx]
}

// pickColors assigns a color pair: single color 85% of the time,
// distinct second color 15%.
func (s *Scheduler) pickColors() []string {
	palette := []string{"black", "white", "silver", "red", "blue", "gray"}
	primary := palette[s.RNG.Intn(len(palette))]
	if !s.RNG.Bool(0.15) {
		return []string{primary}
	}
	secondary := palette[s.RNG.Intn(len(palette))]
	for secondary == primary {
		secondary = palette[s.RNG.Intn(len(palette))]
	}
	return []string{primary, secondary}
}

// occupy pulls an item into a freshly-unoccupied station.
func (s *Scheduler) occupy(st *StationState, itemID, shop, lineName, stationName string, now int64) {
	st.Occupied = true
	st.CurrentItem = itemID
	st.EnteredAt = now
	st.IsFirstCar = false
	if w, ok := s.Items.Get(itemID); ok {
		w.EnterStation(shop, lineName, stationName, now)
		w.EnterShop(shop, now)
		w.EnterLine(shop, core.LineKey(shop, lineName), now)
	}
}
