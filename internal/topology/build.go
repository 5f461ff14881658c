package topology

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/krugerplant/linesim/internal/core"
)

// BuildError wraps a fatal configuration error encountered while
// validating an Input; the engine must not start on one. It carries a
// stack via github.com/pkg/errors so the caller's log.Fatal has
// something to print beyond the bare message.
type BuildError struct {
	cause error
}

func (e *BuildError) Error() string { return e.cause.Error() }
func (e *BuildError) Unwrap() error { return e.cause }

func fail(format string, args ...interface{}) error {
	return &BuildError{cause: errors.Errorf(format, args...)}
}

// Build validates an Input and produces an immutable Topology. A route,
// createWith line or station, partConsumptionStation, or start station
// that names a missing line or station is a fatal BuildError; the caller
// should abort startup. The keys of a line's Buffers map and a planned
// stop's affectsShops are not checked.
func Build(in Input, rng *core.RNG) (*Topology, error) {
	if in.StationTaktMinFraction <= 0 {
		in.StationTaktMinFraction = 0.70
	}
	if in.StationTaktMaxFraction <= 0 {
		in.StationTaktMaxFraction = 0.999
	}
	if in.StationTaktMaxFraction <= in.StationTaktMinFraction {
		return nil, fail("stationTaktMaxFraction (%f) must exceed stationTaktMinFraction (%f)",
			in.StationTaktMaxFraction, in.StationTaktMinFraction)
	}
	if in.MixItemsPerLine <= 0 {
		in.MixItemsPerLine = 10
	}
	models := in.Models
	if len(models) == 0 {
		models = []string{"STD"}
	}

	t := &Topology{
		shopByName:             make(map[string]*Shop),
		lineByKey:              make(map[string]*Line),
		stationByKey:           make(map[string]*Station),
		DPHU:                   in.DPHU,
		ReworkTimeMs:           in.ReworkTimeMs,
		TypeSpeedFactor:        in.TypeSpeedFactor,
		StationTaktMinFraction: in.StationTaktMinFraction,
		StationTaktMaxFraction: in.StationTaktMaxFraction,
		MixItemsPerLine:        in.MixItemsPerLine,
		Models:                 models,
	}
	if t.ReworkTimeMs <= 0 {
		t.ReworkTimeMs = 60 * 60 * 1000 // default 60 minutes
	}

	shopNames := sortedKeys(in.Shops)
	for _, shopName := range shopNames {
		shopInput := in.Shops[shopName]
		shop := &Shop{
			Name:                  shopName,
			ReworkBufferCapacity:  shopInput.ReworkBufferCapacity,
			DefaultBufferCapacity: shopInput.BufferCapacity,
		}
		if shop.ReworkBufferCapacity <= 0 {
			shop.ReworkBufferCapacity = 20
		}
		if shop.DefaultBufferCapacity <= 0 {
			shop.DefaultBufferCapacity = 10
		}

		lineNames := sortedKeys(shopInput.Lines)
		for _, lineName := range lineNames {
			lineInput := shopInput.Lines[lineName]
			line, err := buildLine(shopName, lineName, lineInput, rng, in.StationTaktMinFraction, in.StationTaktMaxFraction)
			if err != nil {
				return nil, err
			}
			shop.Lines = append(shop.Lines, line)
			t.lineByKey[line.Key] = line
			for _, st := range line.Stations {
				t.stationByKey[st.Key] = st
			}
		}

		t.shopByName[shopName] = shop
		t.Shops = append(t.Shops, shop)
	}

	if err := validateReferences(t, in); err != nil {
		return nil, err
	}

	t.StartStations = in.StartStations
	for _, rule := range in.PlannedStops {
		days := make(map[int]bool, len(rule.DaysOfWeek))
		for _, d := range rule.DaysOfWeek {
			days[d] = true
		}
		shops := make(map[string]bool, len(rule.AffectsShops))
		for _, s := range rule.AffectsShops {
			shops[s] = true
		}
		t.PlannedStops = append(t.PlannedStops, PlannedStopRule{
			Name:         rule.Name,
			Category:     rule.Category,
			DaysOfWeek:   days,
			AffectsShops: shops,
			StartMin:     rule.StartMin,
			DurationMin:  rule.DurationMin,
		})
	}

	return t, nil
}

func buildLine(shopName, lineName string, in LineInput, rng *core.RNG, minFrac, maxFrac float64) (*Line, error) {
	if len(in.Stations) == 0 {
		return nil, fail("line %s-%s declares no stations", shopName, lineName)
	}
	if in.Takt.JPH <= 0 {
		return nil, fail("line %s-%s has non-positive JPH", shopName, lineName)
	}

	taktMs := int64(3600000.0 / in.Takt.JPH)

	kind := KindCar
	if in.PartType != "" {
		kind = KindPartFinal
		if len(in.Routes) > 0 {
			kind = KindPartIntermediate
		}
	}

	line := &Line{
		Shop:                   shopName,
		Name:                   lineName,
		Key:                    core.LineKey(shopName, lineName),
		Kind:                   kind,
		TaktMs:                 taktMs,
		ShiftStartMin:          in.Takt.ShiftStartMin,
		ShiftEndMin:            in.Takt.ShiftEndMin,
		MTTRMin:                in.MTTRMin,
		MTBFMin:                in.MTBFMin,
		Routes:                 append([]string(nil), in.Routes...),
		Buffers:                copyIntMap(in.Buffers),
		PartType:               in.PartType,
		DestShop:               in.DestShop,
		RequiredParts:          append([]string(nil), in.RequiredParts...),
		PartConsumptionStation: in.PartConsumptionStation,
		CreateWith:             in.CreateWith,
	}
	if line.DestShop == "" {
		line.DestShop = shopName
	}

	seen := make(map[string]bool, len(in.Stations))
	for i, name := range in.Stations {
		if seen[name] {
			return nil, fail("line %s-%s declares station %q twice", shopName, lineName, name)
		}
		seen[name] = true

		frac := rng.Uniform(minFrac, maxFrac)
		stationTakt := int64(float64(taktMs) * frac)
		if stationTakt >= taktMs {
			stationTakt = taktMs - 1 // invariant: station cycle time strictly < line takt
		}
		if stationTakt < 1 {
			stationTakt = 1
		}

		st := &Station{
			Shop:   shopName,
			Line:   lineName,
			Name:   name,
			Key:    core.StationKey(shopName, lineName, name),
			Index:  i,
			TaktMs: stationTakt,
		}
		line.Stations = append(line.Stations, st)
	}

	return line, nil
}

func validateReferences(t *Topology, in Input) error {
	for _, shop := range t.Shops {
		for _, line := range shop.Lines {
			for _, routeKey := range line.Routes {
				if _, ok := t.lineByKey[routeKey]; !ok {
					return fail("line %s routes to unknown line %q", line.Key, routeKey)
				}
			}
			if line.CreateWith != nil {
				refKey := core.LineKey(shop.Name, line.CreateWith.Line)
				target, ok := t.lineByKey[refKey]
				if !ok {
					return fail("line %s createWith references unknown line %q", line.Key, refKey)
				}
				found := false
				for _, st := range target.Stations {
					if st.Name == line.CreateWith.Station {
						found = true
						break
					}
				}
				if !found {
					return fail("line %s createWith references unknown station %q on line %s",
						line.Key, line.CreateWith.Station, refKey)
				}
			}
			if len(line.RequiredParts) > 0 && line.PartConsumptionStation != "" {
				found := false
				for _, st := range line.Stations {
					if st.Name == line.PartConsumptionStation {
						found = true
						break
					}
				}
				if !found {
					return fail("line %s partConsumptionStation %q is not a station on this line",
						line.Key, line.PartConsumptionStation)
				}
			}
		}
	}

	for _, ref := range in.StartStations {
		key := core.StationKey(ref.Shop, ref.Line, ref.Station)
		if _, ok := t.stationByKey[key]; !ok {
			return fail("start-station configuration references unknown station %q", key)
		}
	}

	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func copyIntMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
