package scheduler

import (
	"github.com/krugerplant/linesim/internal/core"
	"github.com/krugerplant/linesim/internal/eventsink"
	"github.com/krugerplant/linesim/internal/stop"
)

// advanceBuffers handles first stations only: attempt to pull from the
// appropriate input buffer, alternating cross-shop entries between the
// normal predecessor buffer and the upstream shop's rework buffer.
func (s *Scheduler) advanceBuffers(now int64) {
	for _, shop := range s.Topo.Shops {
		for _, line := range shop.Lines {
			station := line.FirstStation()
			if station == nil {
				continue
			}
			st := s.stations[station.Key]
			if st.Occupied {
				continue
			}
			if st.IsStopped && stop.IsBlocking(st.StopReason) {
				continue
			}

			predKey, hasPred := s.Buffers.Predecessor(line.Key)
			if !hasPred {
				continue // plant-entry line: occupied only via createItems
			}
			predLine, ok := s.Topo.LineByKey(predKey)
			if !ok {
				continue
			}
			normalBuf, ok := s.Buffers.Get(predKey)
			if !ok {
				continue
			}

			isCrossShop := predLine.Shop != line.Shop
			lineRT := s.lines[line.Key]

			sourceBuf := normalBuf
			fromRework := false
			if isCrossShop {
				preferRework := lineRT.FairnessToggle
				lineRT.FairnessToggle = !lineRT.FairnessToggle

				if preferRework {
					if reworkBuf, ok := s.Buffers.Get(core.ReworkBufferID(predLine.Shop)); ok {
						if itemID, ok := reworkBuf.Peek(); ok && s.reworkEligible(itemID, predLine.Shop, now) {
							sourceBuf = reworkBuf
							fromRework = true
						}
					}
				}
			}

			itemID, ok := sourceBuf.Peek()
			if !ok {
				if !st.IsFirstCar {
					s.Stops.StartPropagation(line.Shop, line.Name, station.Name, "Buffer Empty", now)
				}
				continue
			}
			if !st.IsFirstCar {
				s.Stops.EndPropagation(line.Shop, line.Name, station.Name, "Buffer Empty", now)
			}
			sourceBuf.Pop()

			w, ok := s.Items.Get(itemID)
			if !ok {
				continue
			}
			if fromRework {
				w.ExitRework()
				s.Sink.Emit(eventsink.Event{Kind: eventsink.KindReworkOut, Key: itemID, Timestamp: now, Payload: itemID})
			} else {
				s.Sink.Emit(eventsink.Event{Kind: eventsink.KindBufferOut, Key: itemID, Timestamp: now, Payload: itemID})
			}

			s.occupy(st, itemID, line.Shop, line.Name, station.Name, now)
		}
	}
}

// reworkEligible reports whether the item at the front of a shop's
// rework buffer may leave: now - reworkEnteredAt >= reworkTimeMs.
func (s *Scheduler) reworkEligible(itemID, _ string, now int64) bool {
	w, ok := s.Items.Get(itemID)
	if !ok || !w.InRework {
		return false
	}
	return now-w.ReworkEnteredAt >= s.Topo.ReworkTimeMs
}
