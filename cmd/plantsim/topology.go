package main

import "github.com/krugerplant/linesim/internal/topology"

// defaultPlant returns the frozen topology the process simulates: a
// four-shop plant (Body, Paint, Seats, Assembly) with one car flow and
// one part flow feeding it, enough to exercise routing, part matching,
// and rework across shops. Loading topology from a file or service is
// out of scope; this literal is the configuration.
func defaultPlant() topology.Input {
	return topology.Input{
		Shops: map[string]topology.ShopInput{
			"BODY": {
				BufferCapacity:       10,
				ReworkBufferCapacity: 5,
				Lines: map[string]topology.LineInput{
					"MAIN": {
						Stations: []string{"Weld1", "Weld2", "Weld3", "Weld4"},
						Takt:     topology.TaktInput{JPH: 60, ShiftStartMin: 480, ShiftEndMin: 960},
						MTTRMin:  8,
						MTBFMin:  240,
						Routes:   []string{"PAINT-MAIN"},
					},
				},
			},
			"PAINT": {
				BufferCapacity:       8,
				ReworkBufferCapacity: 5,
				Lines: map[string]topology.LineInput{
					"MAIN": {
						Stations: []string{"Prep", "Paint", "Cure"},
						Takt:     topology.TaktInput{JPH: 55, ShiftStartMin: 480, ShiftEndMin: 960},
						MTTRMin:  10,
						MTBFMin:  200,
						Routes:   []string{"ASSEMBLY-MAIN"},
					},
				},
			},
			"SEATS": {
				BufferCapacity:       20,
				ReworkBufferCapacity: 3,
				Lines: map[string]topology.LineInput{
					"MAIN": {
						Stations:    []string{"Cut", "Sew"},
						Takt:        topology.TaktInput{JPH: 70, ShiftStartMin: 480, ShiftEndMin: 960},
						MTTRMin:     6,
						MTBFMin:     300,
						PartType:    "SEAT",
						DestShop:    "ASSEMBLY",
					},
				},
			},
			"ASSEMBLY": {
				BufferCapacity:       8,
				ReworkBufferCapacity: 5,
				Lines: map[string]topology.LineInput{
					"MAIN": {
						Stations:               []string{"Trim", "Chassis", "Final"},
						Takt:                   topology.TaktInput{JPH: 50, ShiftStartMin: 480, ShiftEndMin: 960},
						MTTRMin:                12,
						MTBFMin:                180,
						RequiredParts:          []string{"SEAT"},
						PartConsumptionStation: "Trim",
					},
				},
			},
		},

		StartStations: []topology.StationRef{
			{Shop: "BODY", Line: "MAIN", Station: "Weld1"},
			{Shop: "SEATS", Line: "MAIN", Station: "Cut"},
		},

		PlannedStops: []topology.PlannedStopInput{
			{
				Name:         "Lunch break",
				Category:     "BREAK",
				DaysOfWeek:   []int{1, 2, 3, 4, 5},
				AffectsShops: []string{"BODY", "PAINT", "SEATS", "ASSEMBLY"},
				StartMin:     720,
				DurationMin:  30,
			},
		},

		DPHU:                   3.0,
		ReworkTimeMs:           3600_000,
		TypeSpeedFactor:        1.0,
		StationTaktMinFraction: 0.80,
		StationTaktMaxFraction: 0.98,
		MixItemsPerLine:        5,
		Models:                 []string{"SedanLX", "SedanSport", "Wagon"},
	}
}
