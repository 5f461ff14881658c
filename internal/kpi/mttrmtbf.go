package kpi

import (
	"github.com/krugerplant/linesim/internal/core"
	"github.com/krugerplant/linesim/internal/stop"
	"github.com/krugerplant/linesim/internal/topology"
)

// MTTRMTBFResult is one MTTR/MTBF snapshot at the station, line, or
// shop scope.
type MTTRMTBFResult struct {
	Scope string
	Key   string
	MTTR  float64
	MTBF  float64
}

// StationMTTRMTBF computes MTTR/MTBF for one station using the stop
// registry's per-station index. MTTR is the mean duration of completed
// non-planned stops; MTBF is production time over their count. With no
// stops, MTTR is 0 and MTBF equals the production time. Values are
// rounded to 2 decimals.
func (e *Engine) StationMTTRMTBF(stationKey string, productionTimeMs float64) MTTRMTBFResult {
	var sumDurationMs float64
	var count int64

	for _, s := range e.Stops.StopsForStation(stationKey) {
		if s.Status != stop.StatusCompleted || s.Type == stop.TypePlanned {
			continue
		}
		sumDurationMs += float64(s.DurationMs)
		count++
	}

	var mttr, mtbf float64
	if count == 0 {
		mttr = 0
		mtbf = productionTimeMs
	} else {
		mttr = sumDurationMs / float64(count)
		mtbf = productionTimeMs / float64(count)
	}

	return MTTRMTBFResult{
		Scope: "station", Key: stationKey,
		MTTR: core.Round2(mttr / 60000.0), // minutes, matching MTTR/MTBF's input unit
		MTBF: core.Round2(mtbf / 60000.0),
	}
}

// LineMTTRMTBF is the mean of its stations' non-zero MTTR/MTBF
// values.
func (e *Engine) LineMTTRMTBF(line *topology.Line, productionTimeMs float64) MTTRMTBFResult {
	stationResults := make([]MTTRMTBFResult, 0, len(line.Stations))
	for _, st := range line.Stations {
		stationResults = append(stationResults, e.StationMTTRMTBF(st.Key, productionTimeMs))
	}
	return MTTRMTBFResult{Scope: "line", Key: line.Key, MTTR: meanNonZero(stationResults, mttrOf), MTBF: meanNonZero(stationResults, mtbfOf)}
}

// ShopMTTRMTBF is the mean of its lines' non-zero MTTR/MTBF values.
func (e *Engine) ShopMTTRMTBF(shop *topology.Shop, lineResults []MTTRMTBFResult) MTTRMTBFResult {
	return MTTRMTBFResult{Scope: "shop", Key: shop.Name, MTTR: meanNonZero(lineResults, mttrOf), MTBF: meanNonZero(lineResults, mtbfOf)}
}

func mttrOf(r MTTRMTBFResult) float64 { return r.MTTR }
func mtbfOf(r MTTRMTBFResult) float64 { return r.MTBF }

func meanNonZero(results []MTTRMTBFResult, field func(MTTRMTBFResult) float64) float64 {
	var sum float64
	var n int
	for _, r := range results {
		v := field(r)
		if v != 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return core.Round2(sum / float64(n))
}
