package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/krugerplant/linesim/internal/buffer"
	"github.com/krugerplant/linesim/internal/core"
	"github.com/krugerplant/linesim/internal/eventsink"
	"github.com/krugerplant/linesim/internal/kpi"
	"github.com/krugerplant/linesim/internal/stop"
	"github.com/krugerplant/linesim/internal/topology"
	"github.com/krugerplant/linesim/internal/workitem"
)

// recordingSink captures every emitted event in order, for assertions
// against what a tick produced without standing up a real sink backend.
type recordingSink struct {
	events []eventsink.Event
}

func (r *recordingSink) Emit(e eventsink.Event) { r.events = append(r.events, e) }

func (r *recordingSink) byKind(kind eventsink.Kind) []eventsink.Event {
	var out []eventsink.Event
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// harness bundles one scheduler with its backing stores for direct,
// tick-by-tick control in tests (bypassing clock.Clock and session.Session).
type harness struct {
	topo  *topology.Topology
	items *workitem.Store
	bufs  *buffer.Registry
	stops *stop.Registry
	kpi   *kpi.Engine
	sink  *recordingSink
	sched *Scheduler
}

func newHarness(t *testing.T, in topology.Input, seed int64) *harness {
	t.Helper()
	topo, err := topology.Build(in, core.NewRNG(seed))
	require.NoError(t, err)

	items := workitem.NewStore()
	bufs := buffer.Build(topo)
	stops := stop.NewRegistry(topo)
	kpiEngine := kpi.New(items, stops)
	sink := &recordingSink{}
	sched := New(topo, items, bufs, stops, kpiEngine, sink, core.NewRNG(seed))

	return &harness{topo: topo, items: items, bufs: bufs, stops: stops, kpi: kpiEngine, sink: sink, sched: sched}
}

// singleLineInput builds a single-shop, single-line, three-station topology
// with a shift window wide enough to run many ticks without crossing a
// boundary, useful for pipeline-mechanics tests that don't exercise shift
// handling.
func singleLineInput() topology.Input {
	return topology.Input{
		Shops: map[string]topology.ShopInput{
			"BODY": {
				BufferCapacity:       5,
				ReworkBufferCapacity: 5,
				Lines: map[string]topology.LineInput{
					"MAIN": {
						Stations: []string{"S1", "S2", "S3"},
						Takt:     topology.TaktInput{JPH: 60, ShiftStartMin: 0, ShiftEndMin: 1439},
						MTTRMin:  8,
						MTBFMin:  240,
					},
				},
			},
		},
		StartStations: []topology.StationRef{{Shop: "BODY", Line: "MAIN", Station: "S1"}},
		Models:        []string{"STD"},
		MixItemsPerLine: 10,
	}
}

// narrowShiftInput is a single-station line with a 5-minute shift window
// starting at local midnight, for exercising shift-boundary detection
// with small, easy-to-reason-about simulated timestamps.
func narrowShiftInput() topology.Input {
	return topology.Input{
		Shops: map[string]topology.ShopInput{
			"BODY": {
				BufferCapacity:       5,
				ReworkBufferCapacity: 5,
				Lines: map[string]topology.LineInput{
					"MAIN": {
						Stations: []string{"S1"},
						Takt:     topology.TaktInput{JPH: 60, ShiftStartMin: 0, ShiftEndMin: 5},
						MTTRMin:  8,
						MTBFMin:  240,
					},
				},
			},
		},
		StartStations:   []topology.StationRef{{Shop: "BODY", Line: "MAIN", Station: "S1"}},
		Models:          []string{"STD"},
		MixItemsPerLine: 10,
	}
}

// twoLineRouteInput chains BODY-MAIN into BODY-SECOND via Routes, with a
// small buffer between them, for cross-station push/pull and propagation
// tests.
func twoLineRouteInput() topology.Input {
	return topology.Input{
		Shops: map[string]topology.ShopInput{
			"BODY": {
				BufferCapacity:       2,
				ReworkBufferCapacity: 5,
				Lines: map[string]topology.LineInput{
					"MAIN": {
						Stations: []string{"S1", "S2"},
						Takt:     topology.TaktInput{JPH: 60, ShiftStartMin: 0, ShiftEndMin: 1439},
						MTTRMin:  8,
						MTBFMin:  240,
						Routes:   []string{"BODY-SECOND"},
					},
					"SECOND": {
						Stations: []string{"T1"},
						Takt:     topology.TaktInput{JPH: 60, ShiftStartMin: 0, ShiftEndMin: 1439},
						MTTRMin:  8,
						MTBFMin:  240,
					},
				},
			},
		},
		StartStations: []topology.StationRef{{Shop: "BODY", Line: "MAIN", Station: "S1"}},
		Models:        []string{"STD"},
		MixItemsPerLine: 10,
	}
}

// crossShopInput routes BODY-MAIN's output into TRIM-FINISH, a line in a
// different shop, for cross-shop fairness-toggle and rework-eligibility
// tests. ReworkTimeMs is set small so tests don't need to simulate a full
// hour of ticks to observe an item becoming eligible to leave rework.
func crossShopInput() topology.Input {
	return topology.Input{
		Shops: map[string]topology.ShopInput{
			"BODY": {
				BufferCapacity:       5,
				ReworkBufferCapacity: 5,
				Lines: map[string]topology.LineInput{
					"MAIN": {
						Stations: []string{"S1"},
						Takt:     topology.TaktInput{JPH: 60, ShiftStartMin: 0, ShiftEndMin: 1439},
						MTTRMin:  8,
						MTBFMin:  240,
						Routes:   []string{"TRIM-FINISH"},
					},
				},
			},
			"TRIM": {
				BufferCapacity:       5,
				ReworkBufferCapacity: 5,
				Lines: map[string]topology.LineInput{
					"FINISH": {
						Stations: []string{"T1"},
						Takt:     topology.TaktInput{JPH: 60, ShiftStartMin: 0, ShiftEndMin: 1439},
						MTTRMin:  8,
						MTBFMin:  240,
					},
				},
			},
		},
		StartStations:   []topology.StationRef{{Shop: "BODY", Line: "MAIN", Station: "S1"}},
		Models:          []string{"STD"},
		MixItemsPerLine: 10,
		ReworkTimeMs:    1000,
	}
}

// createWithInput has a car line (CARS) and a part line (TRIM) in the same
// shop, where TRIM's single station only creates a part once CARS' first
// station has exited a car, for createWith synchronization tests.
func createWithInput() topology.Input {
	return topology.Input{
		Shops: map[string]topology.ShopInput{
			"BODY": {
				BufferCapacity:       5,
				ReworkBufferCapacity: 5,
				Lines: map[string]topology.LineInput{
					"CARS": {
						Stations: []string{"S1", "S2"},
						Takt:     topology.TaktInput{JPH: 60, ShiftStartMin: 0, ShiftEndMin: 1439},
						MTTRMin:  8,
						MTBFMin:  240,
					},
					"TRIM": {
						Stations: []string{"P1"},
						Takt:     topology.TaktInput{JPH: 60, ShiftStartMin: 0, ShiftEndMin: 1439},
						MTTRMin:  8,
						MTBFMin:  240,
						PartType: "TRIM_PART",
						DestShop: "BODY",
						CreateWith: &topology.CreateWithRef{Line: "CARS", Station: "S1"},
					},
				},
			},
		},
		StartStations: []topology.StationRef{
			{Shop: "BODY", Line: "CARS", Station: "S1"},
			{Shop: "BODY", Line: "TRIM", Station: "P1"},
		},
		Models:          []string{"STD"},
		MixItemsPerLine: 10,
	}
}

// midLinePartConsumptionInput puts the required-part check at a line's
// LAST station rather than its first, exercising validatePartsBeforePush
// (invoked from pushFromLastStation) rather than createFromParts.
func midLinePartConsumptionInput() topology.Input {
	return topology.Input{
		Shops: map[string]topology.ShopInput{
			"HARDWARE": {
				BufferCapacity:       5,
				ReworkBufferCapacity: 5,
				Lines: map[string]topology.LineInput{
					"BOLTS": {
						Stations: []string{"Press1"},
						Takt:     topology.TaktInput{JPH: 60, ShiftStartMin: 0, ShiftEndMin: 1439},
						MTTRMin:  8,
						MTBFMin:  240,
						PartType: "BOLT",
						DestShop: "ASSEMBLY2",
					},
				},
			},
			"ASSEMBLY2": {
				BufferCapacity:       5,
				ReworkBufferCapacity: 5,
				Lines: map[string]topology.LineInput{
					"MAIN2": {
						Stations:               []string{"Install1", "Install2"},
						Takt:                   topology.TaktInput{JPH: 60, ShiftStartMin: 0, ShiftEndMin: 1439},
						MTTRMin:                8,
						MTBFMin:                240,
						RequiredParts:          []string{"BOLT"},
						PartConsumptionStation: "Install2",
					},
				},
			},
		},
		StartStations: []topology.StationRef{
			{Shop: "HARDWARE", Line: "BOLTS", Station: "Press1"},
			{Shop: "ASSEMBLY2", Line: "MAIN2", Station: "Install1"},
		},
		Models:          []string{"STD"},
		MixItemsPerLine: 10,
	}
}

// partsAssemblyInput models a SEATS part line feeding ASSEMBLY's required
// part, for createFromParts/consumption tests.
func partsAssemblyInput() topology.Input {
	return topology.Input{
		Shops: map[string]topology.ShopInput{
			"TRIM": {
				BufferCapacity:       5,
				ReworkBufferCapacity: 5,
				Lines: map[string]topology.LineInput{
					"SEATS": {
						Stations: []string{"Sew1"},
						Takt:     topology.TaktInput{JPH: 60, ShiftStartMin: 0, ShiftEndMin: 1439},
						MTTRMin:  8,
						MTBFMin:  240,
						PartType: "SEAT",
						DestShop: "ASSEMBLY",
					},
				},
			},
			"ASSEMBLY": {
				BufferCapacity:       5,
				ReworkBufferCapacity: 5,
				Lines: map[string]topology.LineInput{
					"MAIN": {
						Stations:               []string{"Install1", "Install2"},
						Takt:                   topology.TaktInput{JPH: 60, ShiftStartMin: 0, ShiftEndMin: 1439},
						MTTRMin:                8,
						MTBFMin:                240,
						RequiredParts:          []string{"SEAT"},
						PartConsumptionStation: "Install1",
					},
				},
			},
		},
		StartStations: []topology.StationRef{
			{Shop: "TRIM", Line: "SEATS", Station: "Sew1"},
			{Shop: "ASSEMBLY", Line: "MAIN", Station: "Install1"},
		},
		Models:          []string{"STD"},
		MixItemsPerLine: 10,
	}
}
