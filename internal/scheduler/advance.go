package scheduler

import (
	"fmt"

	"github.com/krugerplant/linesim/internal/core"
	"github.com/krugerplant/linesim/internal/eventsink"
	"github.com/krugerplant/linesim/internal/stop"
	"github.com/krugerplant/linesim/internal/topology"
	"github.com/krugerplant/linesim/internal/workitem"
)

// advanceStations moves items through stations, iterating last-to-first
// so a single item is never moved twice in one tick. First-station
// pulls from a buffer are deferred to the buffer-advancement phase;
// this phase handles intermediate-station pulls and every station's
// push attempt.
func (s *Scheduler) advanceStations(now int64) {
	for _, shop := range s.Topo.Shops {
		for _, line := range shop.Lines {
			for i := len(line.Stations) - 1; i >= 0; i-- {
				station := line.Stations[i]
				st := s.stations[station.Key]
				blocked := st.IsStopped && stop.IsBlocking(st.StopReason)

				if !st.Occupied {
					if blocked || i == 0 {
						continue
					}
					s.tryPullFromPrevious(line, station, i, st, now)
					continue
				}

				if blocked {
					continue
				}
				if now-st.EnteredAt < station.TaktMs {
					continue
				}
				s.tryPush(line, station, i, st, now)
			}
		}
	}
}

func (s *Scheduler) tryPullFromPrevious(line *topology.Line, station *topology.Station, idx int, st *StationState, now int64) {
	prev := line.Stations[idx-1]
	prevSt := s.stations[prev.Key]
	prevBlocked := prevSt.IsStopped && stop.IsBlocking(prevSt.StopReason)

	if prevSt.Occupied && !prevBlocked && now-prevSt.EnteredAt >= prev.TaktMs {
		if !st.IsFirstCar {
			s.Stops.EndPropagation(line.Shop, line.Name, station.Name, "PREV_EMPTY", now)
		}
		s.moveItem(prevSt.CurrentItem, line, prev, station, now)
		return
	}

	if !prevSt.Occupied && !st.IsFirstCar {
		s.Stops.StartPropagation(line.Shop, line.Name, station.Name, "PREV_EMPTY", now)
	}
}

func (s *Scheduler) tryPush(line *topology.Line, station *topology.Station, idx int, st *StationState, now int64) {
	isLast := idx == len(line.Stations)-1
	if !isLast {
		next := line.Stations[idx+1]
		nextSt := s.stations[next.Key]
		nextBlocked := nextSt.IsStopped && stop.IsBlocking(nextSt.StopReason)
		if nextSt.Occupied || nextBlocked {
			if !st.IsFirstCar {
				s.Stops.StartPropagation(line.Shop, line.Name, station.Name, "NEXT_FULL", now)
			}
			return
		}
		if !st.IsFirstCar {
			s.Stops.EndPropagation(line.Shop, line.Name, station.Name, "NEXT_FULL", now)
		}
		s.moveItem(st.CurrentItem, line, station, next, now)
		return
	}

	s.pushFromLastStation(line, station, st, now)
}

// moveItem shifts an item from one station to an adjacent one within
// the same line, closing the trace entry, recording the exit for
// createWith synchronization, and opening a new trace entry at the
// destination.
func (s *Scheduler) moveItem(itemID string, line *topology.Line, from, to *topology.Station, now int64) {
	fromSt := s.stations[from.Key]
	toSt := s.stations[to.Key]

	if w, ok := s.Items.Get(itemID); ok {
		w.LeaveStation(now)
	}
	fromSt.Occupied = false
	fromSt.CurrentItem = ""
	fromSt.EnteredAt = 0

	s.stationExitsThisTick[exitKey(line.Key, from.Name)] = true

	s.occupy(toSt, itemID, line.Shop, line.Name, to.Name, now)
	s.Sink.Emit(eventsink.Event{Kind: eventsink.KindCarMoved, Key: itemID, Timestamp: now, Payload: itemID})
}

// pushFromLastStation pushes a completed-line item into its output
// buffer, its destination part buffer, or the shop's rework buffer if
// defective. Required parts are validated and consumed before the push
// goes through.
func (s *Scheduler) pushFromLastStation(line *topology.Line, station *topology.Station, st *StationState, now int64) {
	itemID := st.CurrentItem
	w, ok := s.Items.Get(itemID)
	if !ok {
		return
	}

	if len(line.RequiredParts) > 0 && line.PartConsumptionStation == station.Name {
		if !s.validatePartsBeforePush(line, station, now) {
			return
		}
	}

	destBufID, isRework := s.resolvePushDestination(line, w)
	buf, ok := s.Buffers.Get(destBufID)
	if !ok {
		return
	}

	flowReason := "Buffer Full"
	switch {
	case isRework:
		flowReason = "Rework Full"
	case line.IsPartLine():
		flowReason = "Part Buffer Full"
	}

	if buf.IsFull() {
		if !st.IsFirstCar {
			s.Stops.StartPropagation(line.Shop, line.Name, station.Name, flowReason, now)
		}
		if line.IsPartLine() && !isRework {
			s.divertFullBufferFallback(line, station, st, now)
		}
		return
	}
	s.Stops.EndPropagation(line.Shop, line.Name, station.Name, flowReason, now)

	w.LeaveStation(now)
	w.ExitLine(line.Shop, line.Key, now)
	buf.Push(itemID)

	st.Occupied = false
	st.CurrentItem = ""
	st.EnteredAt = 0
	s.stationExitsThisTick[exitKey(line.Key, station.Name)] = true

	if isRework {
		defectID := fmt.Sprintf("DEF-%s-%d", itemID, now)
		w.EnterRework(defectID, now)
		s.Sink.Emit(eventsink.Event{Kind: eventsink.KindReworkIn, Key: destBufID, Timestamp: now, Payload: map[string]string{"itemId": itemID, "bufferId": destBufID, "defectId": defectID}})
		return
	}

	if w.IsPart {
		s.Sink.Emit(eventsink.Event{Kind: eventsink.KindBufferIn, Key: destBufID, Timestamp: now, Payload: map[string]string{"itemId": itemID, "bufferId": destBufID}})
		return
	}

	if len(line.Routes) == 0 {
		w.ExitShop(line.Shop, now)
		s.Items.MarkCompleted(w, line.Shop, line.Key, now)
		s.Sink.Emit(eventsink.Event{Kind: eventsink.KindCarCompleted, Key: itemID, Timestamp: now, Payload: itemID})
		return
	}
	s.Sink.Emit(eventsink.Event{Kind: eventsink.KindBufferIn, Key: destBufID, Timestamp: now, Payload: map[string]string{"itemId": itemID, "bufferId": destBufID}})
}

// resolvePushDestination picks the buffer id a completing item pushes
// into and whether that destination is a rework buffer.
func (s *Scheduler) resolvePushDestination(line *topology.Line, w *workitem.WorkItem) (string, bool) {
	if !w.IsPart && w.HasDefect && len(line.Routes) == 0 {
		return core.ReworkBufferID(line.Shop), true
	}
	if line.IsFinalPartLine() {
		return core.PartBufferID(line.DestShop, line.PartType), false
	}
	return line.Key, false
}

// divertFullBufferFallback routes an awaiting item to the shop's rework
// buffer when its destination part buffer is full, so a full buffer
// without a matching model can never wedge the line.
func (s *Scheduler) divertFullBufferFallback(line *topology.Line, station *topology.Station, st *StationState, now int64) {
	reworkBuf, ok := s.Buffers.Get(core.ReworkBufferID(line.Shop))
	if !ok || reworkBuf.IsFull() {
		return
	}
	w, ok := s.Items.Get(st.CurrentItem)
	if !ok {
		return
	}
	w.LeaveStation(now)
	w.EnterRework("MISSING_PARTS", now)
	reworkBuf.Push(st.CurrentItem)
	st.Occupied = false
	st.CurrentItem = ""
	st.EnteredAt = 0
	s.stationExitsThisTick[exitKey(line.Key, station.Name)] = true
	s.Sink.Emit(eventsink.Event{Kind: eventsink.KindReworkIn, Key: reworkBuf.ID, Timestamp: now, Payload: map[string]string{"itemId": w.ID, "bufferId": reworkBuf.ID, "defectId": "MISSING_PARTS"}})
}

// validatePartsBeforePush checks that every required part type has a
// part available and consumes one per type before the item pushes.
// Returns false (and raises/keeps a LACK stop) if a required part is
// missing; on success every consumed part is removed from its buffer.
func (s *Scheduler) validatePartsBeforePush(line *topology.Line, station *topology.Station, now int64) bool {
	matches := make(map[string]string, len(line.RequiredParts))
	allOK := true
	for _, partType := range line.RequiredParts {
		buf, ok := s.Buffers.Get(core.PartBufferID(line.Shop, partType))
		if !ok || buf.IsEmpty() {
			s.raiseLack(line.Shop, line.Name, station.Name, partType, now)
			allOK = false
			continue
		}
		itemID, _ := buf.Peek()
		matches[partType] = itemID
	}
	if !allOK {
		return false
	}

	for partType, itemID := range matches {
		if buf, ok := s.Buffers.Get(core.PartBufferID(line.Shop, partType)); ok {
			buf.Remove(itemID)
			s.Sink.Emit(eventsink.Event{Kind: eventsink.KindPartConsumed, Key: itemID, Timestamp: now, Payload: itemID})
		}
		s.Stops.EndLackStop(line.Shop, line.Name, station.Name, partType, now)
	}
	s.clearLackFromStation(station.Key)
	return true
}
