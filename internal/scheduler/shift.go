package scheduler

import (
	"time"

	"github.com/krugerplant/linesim/internal/eventsink"
	"github.com/krugerplant/linesim/internal/kpi"
	"github.com/krugerplant/linesim/internal/stop"
	"github.com/krugerplant/linesim/internal/topology"
)

// checkShiftBoundaries detects, for each line, whether this tick
// crossed shiftEnd or shiftStart, using prevTimestamp exclusive and
// currentTimestamp inclusive.
func (s *Scheduler) checkShiftBoundaries(now int64) {
	for _, shop := range s.Topo.Shops {
		for _, line := range shop.Lines {
			lineRT := s.lines[line.Key]
			if lineRT.PrevTimestamp == 0 {
				lineRT.PrevTimestamp = now
				continue
			}

			prevMin := minuteOfDay(lineRT.PrevTimestamp)
			curMin := minuteOfDay(now)

			if crossedBoundary(prevMin, curMin, line.ShiftEndMin) {
				s.onShiftEnd(shop, line, lineRT, now)
			}
			if crossedBoundary(prevMin, curMin, line.ShiftStartMin) {
				s.onShiftStart(shop, line, lineRT, now)
			}

			lineRT.PrevTimestamp = now
		}
	}
}

func minuteOfDay(ms int64) int {
	t := time.UnixMilli(ms).UTC()
	return t.Hour()*60 + t.Minute()
}

func weekdayOf(ms int64) int {
	return int(time.UnixMilli(ms).UTC().Weekday())
}

// crossedBoundary reports whether boundary lies in (prevMin, curMin], a
// half-open interval handling the ordinary same-day case; on a midnight
// wrap within one tick it treats the boundary as crossed once the clock
// has wrapped past it.
func crossedBoundary(prevMin, curMin, boundary int) bool {
	if prevMin <= curMin {
		return prevMin < boundary && boundary <= curMin
	}
	return boundary > prevMin || boundary <= curMin
}

// productionTimeMinutes computes shift minutes minus planned-stop
// minutes affecting shop on the given simulated day.
func productionTimeMinutes(topo *topology.Topology, shop *topology.Shop, line *topology.Line, now int64) float64 {
	shiftMinutes := float64(line.ShiftEndMin - line.ShiftStartMin)
	planned := stop.PlannedStopMinutesForShop(topo.PlannedStops, shop.Name, weekdayOf(now))
	return shiftMinutes - planned
}

// onShiftEnd computes final OEE and MTTR/MTBF per line and aggregates
// per shop.
func (s *Scheduler) onShiftEnd(shop *topology.Shop, line *topology.Line, lineRT *LineRuntime, now int64) {
	productionMin := productionTimeMinutes(s.Topo, shop, line, now)

	lineOEE := s.KPI.LineOEE(line, productionMin, now, lineRT.ShiftStartMs)
	s.Sink.Emit(eventsink.Event{Kind: eventsink.KindOEEShiftEnd, Timestamp: now, Payload: lineOEE})

	lineMTTRMTBF := s.KPI.LineMTTRMTBF(line, productionMin*60000)
	s.Sink.Emit(eventsink.Event{Kind: eventsink.KindMTTRMTBFCalculated, Timestamp: now, Payload: lineMTTRMTBF})

	shopOEE := s.KPI.ShopOEE(shop, productionMin, now, lineRT.ShiftStartMs)
	s.Sink.Emit(eventsink.Event{Kind: eventsink.KindOEEShiftEnd, Timestamp: now, Payload: shopOEE})

	lineResults := make([]kpi.MTTRMTBFResult, 0, len(shop.Lines))
	for _, l := range shop.Lines {
		lineResults = append(lineResults, s.KPI.LineMTTRMTBF(l, productionMin*60000))
	}
	shopMTTR := s.KPI.ShopMTTRMTBF(shop, lineResults)
	s.Sink.Emit(eventsink.Event{Kind: eventsink.KindMTTRMTBFCalculated, Timestamp: now, Payload: shopMTTR})
}

// onShiftStart resets the random-stop pool for the new day and clears
// the rolling completed-cars collection.
func (s *Scheduler) onShiftStart(shop *topology.Shop, line *topology.Line, lineRT *LineRuntime, now int64) {
	lineRT.ShiftStartMs = now
	lineRT.RandomStopsGenerated = true

	productionMin := productionTimeMinutes(s.Topo, shop, line, now)
	productionMs := int64(productionMin * 60000)
	s.Stops.GenerateRandomStops(line, s.RNG, now, productionMs)

	dayStartMs := now - int64(line.ShiftStartMin)*60000
	if lastDay, ok := s.plannedMaterializedDay[shop.Name]; !ok || lastDay != dayStartMs {
		s.Stops.MaterializePlannedStops(s.Topo.PlannedStops, shop, weekdayOf(now), dayStartMs)
		s.plannedMaterializedDay[shop.Name] = dayStartMs
	}

	s.Items.ClearCompletedCollection([]string{line.Key}, []string{shop.Name})
}

// emitDynamicOEE computes per-line OEE snapshots while the current
// time is inside a line's shift window.
func (s *Scheduler) emitDynamicOEE(now int64) {
	for _, shop := range s.Topo.Shops {
		for _, line := range shop.Lines {
			lineRT := s.lines[line.Key]
			curMin := minuteOfDay(now)
			if curMin < line.ShiftStartMin || curMin >= line.ShiftEndMin {
				continue
			}
			productionMin := productionTimeMinutes(s.Topo, shop, line, now)
			result := s.KPI.LineOEE(line, productionMin, now, lineRT.ShiftStartMs)
			s.Sink.Emit(eventsink.Event{Kind: eventsink.KindOEECalculated, Key: line.Key, Timestamp: now, Payload: result})
		}
	}
}

