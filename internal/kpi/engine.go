// Package kpi computes OEE, MTTR, and MTBF for lines, shops, and the
// plant. It reads the live workitem.Store and stop.Registry but owns no
// state of its own beyond the pure calculation rules.
package kpi

import (
	"github.com/krugerplant/linesim/internal/core"
	"github.com/krugerplant/linesim/internal/stop"
	"github.com/krugerplant/linesim/internal/topology"
	"github.com/krugerplant/linesim/internal/workitem"
)

// Engine computes KPI snapshots on demand. It is stateless across calls;
// the scheduler decides when to invoke it (shift boundaries, dynamic
// per-tick snapshots).
type Engine struct {
	Items *workitem.Store
	Stops *stop.Registry
}

// New creates a KPI Engine bound to the session's item store and stop
// registry.
func New(items *workitem.Store, stops *stop.Registry) *Engine {
	return &Engine{Items: items, Stops: stops}
}

// OEEResult is one OEE snapshot at the line, shop, or plant scope.
type OEEResult struct {
	Scope             string // "line", "shop", "plant"
	Key               string
	OEE               float64
	ProductionTimeMin float64
	CarsProduced      int64
	DiffTimeMin       float64
	JPHDynamic        float64
	JPHFinal          float64
}

// countExited counts items whose leadtime entry for (shop,lineKey) has
// exitedAt set within the current shift window. lineKey="" means the
// shop-wide entry, used for shop-scoped OEE. sinceMs=0 (no shift
// crossed yet) counts every exit.
func countExited(items *workitem.Store, shop, lineKey string, sinceMs int64) int64 {
	var n int64
	for _, w := range items.All() {
		if w.ExitedLineSince(shop, lineKey, sinceMs) {
			n++
		}
	}
	return n
}

// LineOEE computes the line OEE snapshot: realized throughput over
// target throughput for the production time. productionTimeMin excludes
// planned-stop time affecting the line's shop on the current day. now
// and shiftStartMs drive the dynamic JPH figure.
func (e *Engine) LineOEE(line *topology.Line, productionTimeMin float64, now, shiftStartMs int64) OEEResult {
	taktTimeMin := float64(line.TaktMs) / 60000.0
	carsProduced := countExited(e.Items, line.Shop, line.Key, shiftStartMs)

	productionTime := productionTimeMin
	oee := core.ClampPositive(safeDiv(taktTimeMin*float64(carsProduced), productionTime) * 100)
	diffTime := productionTime - taktTimeMin*float64(carsProduced)

	elapsedHours := float64(now-shiftStartMs) / 3600000.0
	jphDynamic := safeDiv(float64(carsProduced), elapsedHours)
	jphFinal := safeDiv(float64(carsProduced), productionTime/60.0)

	return OEEResult{
		Scope: "line", Key: line.Key,
		OEE:               oee,
		ProductionTimeMin: productionTime,
		CarsProduced:      carsProduced,
		DiffTimeMin:       diffTime,
		JPHDynamic:        jphDynamic,
		JPHFinal:          jphFinal,
	}
}

// ShopOEE computes the shop OEE snapshot with the shop-scoped
// completion counter. taktTimeMin is taken from the shop's first line
// since shop-level takt is not separately defined; callers that need a
// genuinely shop-wide takt should pre-aggregate before calling.
func (e *Engine) ShopOEE(shop *topology.Shop, productionTimeMin float64, now, shiftStartMs int64) OEEResult {
	var taktTimeMin float64
	if len(shop.Lines) > 0 {
		taktTimeMin = float64(shop.Lines[0].TaktMs) / 60000.0
	}
	carsProduced := countExited(e.Items, shop.Name, "", shiftStartMs)

	oee := core.ClampPositive(safeDiv(taktTimeMin*float64(carsProduced), productionTimeMin) * 100)
	diffTime := productionTimeMin - taktTimeMin*float64(carsProduced)

	elapsedHours := float64(now-shiftStartMs) / 3600000.0
	jphDynamic := safeDiv(float64(carsProduced), elapsedHours)
	jphFinal := safeDiv(float64(carsProduced), productionTimeMin/60.0)

	return OEEResult{
		Scope: "shop", Key: shop.Name,
		OEE:               oee,
		ProductionTimeMin: productionTimeMin,
		CarsProduced:      carsProduced,
		DiffTimeMin:       diffTime,
		JPHDynamic:        jphDynamic,
		JPHFinal:          jphFinal,
	}
}

// PlantOEE is the mean of shop OEEs, with productionTime, carsProduced,
// and diffTime summed across shops.
func (e *Engine) PlantOEE(shopResults []OEEResult) OEEResult {
	if len(shopResults) == 0 {
		return OEEResult{Scope: "plant", Key: "PLANT"}
	}
	var sumOEE, sumProduction, sumDiff float64
	var sumCars int64
	for _, r := range shopResults {
		sumOEE += r.OEE
		sumProduction += r.ProductionTimeMin
		sumDiff += r.DiffTimeMin
		sumCars += r.CarsProduced
	}
	return OEEResult{
		Scope: "plant", Key: "PLANT",
		OEE:               sumOEE / float64(len(shopResults)),
		ProductionTimeMin: sumProduction,
		CarsProduced:      sumCars,
		DiffTimeMin:       sumDiff,
	}
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
