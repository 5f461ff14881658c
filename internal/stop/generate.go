package stop

import (
	"github.com/krugerplant/linesim/internal/core"
	"github.com/krugerplant/linesim/internal/topology"
)

// severityWeights: LOW 0.70, MEDIUM 0.25, HIGH 0.05.
var severityWeights = []float64{0.70, 0.25, 0.05}

// severityDurationRangeMin gives the [min,max] minute range per
// severity.
var severityDurationRangeMin = map[Severity][2]float64{
	SeverityLow:    {1, 5},
	SeverityMedium: {5, 10},
	SeverityHigh:   {10, 60},
}

const (
	minScaledDurationMs = 30 * 1000       // 30s floor on each scaled stop duration
	maxScaledDurationMs = 2 * 60 * 60 * 1000 // 2h ceiling
)

// GenerateRandomStops regenerates the random-stop pool for one line for
// one production day: floor(productionTime/MTBF) stops, one per
// equal-width segment of the shift, durations scaled so their total
// approximates MTTR x numStops. productionTimeMs excludes time lost to
// planned stops affecting the line's shop. shiftStartMs is the
// simulated-time instant the shift opened today.
func (r *Registry) GenerateRandomStops(line *topology.Line, rng *core.RNG, shiftStartMs, productionTimeMs int64) []*Stop {
	if line.MTBFMin <= 0 || len(line.Stations) == 0 {
		return nil
	}

	productionTimeMin := float64(productionTimeMs) / 60000.0
	numStops := int(productionTimeMin / line.MTBFMin)
	if numStops <= 0 {
		return nil
	}

	segmentWidth := productionTimeMs / int64(numStops)
	if segmentWidth <= 0 {
		return nil
	}

	type draft struct {
		stationIdx int
		severity   Severity
		startTime  int64
		durationMs int64
	}

	drafts := make([]draft, 0, numStops)
	var currentTotalMs int64

	for i := 0; i < numStops; i++ {
		offset := int64(i)*segmentWidth + int64(rng.Uniform(0, float64(segmentWidth)))
		startTime := shiftStartMs + offset

		sevIdx := rng.WeightedIndex(severityWeights)
		severity := Severity(sevIdx)
		durRange, ok := severityDurationRangeMin[severity]
		if !ok {
			durRange = severityDurationRangeMin[SeverityLow]
		}
		durationMin := rng.Uniform(durRange[0], durRange[1])
		durationMs := int64(durationMin * 60000.0)

		stationIdx := rng.Intn(len(line.Stations))

		drafts = append(drafts, draft{stationIdx: stationIdx, severity: severity, startTime: startTime, durationMs: durationMs})
		currentTotalMs += durationMs
	}

	targetTotalMs := int64(line.MTTRMin * 60000.0 * float64(numStops))
	scale := 1.0
	if currentTotalMs > 0 && targetTotalMs > 0 {
		scale = float64(targetTotalMs) / float64(currentTotalMs)
	}

	stops := make([]*Stop, 0, numStops)
	for _, d := range drafts {
		scaled := float64(d.durationMs) * scale
		jitter := 1.0 + rng.Uniform(-0.20, 0.20)
		finalDuration := int64(scaled * jitter)
		if finalDuration < minScaledDurationMs {
			finalDuration = minScaledDurationMs
		}
		if finalDuration > maxScaledDurationMs {
			finalDuration = maxScaledDurationMs
		}

		station := line.Stations[d.stationIdx]
		s := r.NewRandomStationStop(line.Shop, line.Name, station.Name, d.severity, d.startTime, d.startTime+finalDuration)
		stops = append(stops, s)
	}

	return stops
}

// MaterializePlannedStops instantiates the plan's per-day rules that
// apply to shop on the given weekday, anchored to dayStartMs (simulated
// midnight for the day being generated). Scope is always
// AllStationsOfLine and affects every line in the shop.
func (r *Registry) MaterializePlannedStops(rules []topology.PlannedStopRule, shop *topology.Shop, weekday int, dayStartMs int64) []*Stop {
	var out []*Stop
	for _, rule := range rules {
		if !rule.DaysOfWeek[weekday] {
			continue
		}
		if !rule.AffectsShops[shop.Name] {
			continue
		}
		startTime := dayStartMs + int64(rule.StartMin)*60000
		endTime := startTime + int64(rule.DurationMin)*60000
		for _, line := range shop.Lines {
			s := r.NewPlannedLineStop(shop.Name, line.Name, rule.Name, rule.Category, startTime, endTime)
			out = append(out, s)
		}
	}
	return out
}

// PlannedStopMinutesForShop sums the duration in minutes of every
// planned-stop rule affecting shop on weekday; production time is shift
// minutes minus this.
func PlannedStopMinutesForShop(rules []topology.PlannedStopRule, shopName string, weekday int) float64 {
	var total float64
	for _, rule := range rules {
		if rule.DaysOfWeek[weekday] && rule.AffectsShops[shopName] {
			total += float64(rule.DurationMin)
		}
	}
	return total
}
