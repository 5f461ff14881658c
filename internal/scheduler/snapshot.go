package scheduler

// StationSnapshot is a read-only view of one station's live state, used
// by the status API and the OPC UA export boundary. Neither owns a
// pointer into the scheduler's own maps.
type StationSnapshot struct {
	Key         string
	Shop        string
	Line        string
	Name        string
	Occupied    bool
	CurrentItem string
	IsStopped   bool
	StopReason  string
}

// BufferSnapshot is a read-only view of one buffer's level.
type BufferSnapshot struct {
	ID       string
	Kind     string
	Count    int
	Capacity int
	Status   string
}

// PlantSnapshot aggregates every station and buffer reading plus the
// current per-line OEE as of now, for external consumers that must not
// reach into live scheduler/buffer state directly.
type PlantSnapshot struct {
	Now      int64
	Stations []StationSnapshot
	Buffers  []BufferSnapshot
	Shops    []ShopSnapshot
}

// ShopSnapshot is one shop's current dynamic OEE, computed the same way
// emitDynamicOEE computes it for event emission, but returned
// synchronously for a point-in-time read instead of pushed through the
// event sink.
type ShopSnapshot struct {
	Name string
	Lines []LineSnapshot
}

// LineSnapshot is one line's current dynamic OEE.
type LineSnapshot struct {
	Key        string
	OEE        float64
	JPHDynamic float64
	CarsProduced int64
}

// Snapshot builds a PlantSnapshot of every station, every buffer, and
// the current dynamic OEE of every line whose shift window covers now.
// Safe to call at any point between ticks; it never mutates scheduler
// state.
func (s *Scheduler) Snapshot(now int64) PlantSnapshot {
	snap := PlantSnapshot{Now: now}

	for _, shop := range s.Topo.Shops {
		shopSnap := ShopSnapshot{Name: shop.Name}
		for _, line := range shop.Lines {
			for _, st := range line.Stations {
				rt := s.stations[st.Key]
				if rt == nil {
					continue
				}
				snap.Stations = append(snap.Stations, StationSnapshot{
					Key: st.Key, Shop: shop.Name, Line: line.Key, Name: st.Name,
					Occupied: rt.Occupied, CurrentItem: rt.CurrentItem,
					IsStopped: rt.IsStopped, StopReason: rt.StopReason,
				})
			}

			lineRT := s.lines[line.Key]
			curMin := minuteOfDay(now)
			if lineRT != nil && curMin >= line.ShiftStartMin && curMin < line.ShiftEndMin {
				productionMin := productionTimeMinutes(s.Topo, shop, line, now)
				result := s.KPI.LineOEE(line, productionMin, now, lineRT.ShiftStartMs)
				shopSnap.Lines = append(shopSnap.Lines, LineSnapshot{
					Key: line.Key, OEE: result.OEE, JPHDynamic: result.JPHDynamic, CarsProduced: result.CarsProduced,
				})
			}
		}
		snap.Shops = append(snap.Shops, shopSnap)
	}

	for _, id := range s.Buffers.IDs() {
		b, ok := s.Buffers.Get(id)
		if !ok {
			continue
		}
		snap.Buffers = append(snap.Buffers, BufferSnapshot{
			ID: b.ID, Kind: b.Kind.String(), Count: b.Count(), Capacity: b.Capacity, Status: b.Status().String(),
		})
	}

	return snap
}
