package topology

// Input is the frozen configuration handed to Build. Loading it from a
// file, database, or remote config service is out of scope here; callers
// construct (or, in tests, decode from YAML fixtures) an Input value and
// pass it to Build once.
type Input struct {
	Shops        map[string]ShopInput `yaml:"shops"`
	Shifts       []ShiftInput         `yaml:"shifts"`
	PlannedStops []PlannedStopInput   `yaml:"plannedStops"`
	StartStations []StationRef        `yaml:"stationstartProduction"`

	DPHU                   float64 `yaml:"DPHU"`
	ReworkTimeMs           int64   `yaml:"Rework_Time"`
	TypeSpeedFactor        float64 `yaml:"typeSpeedFactor"`
	StationTaktMinFraction float64 `yaml:"stationTaktMinFraction"`
	StationTaktMaxFraction float64 `yaml:"stationTaktMaxFraction"`
	MixItemsPerLine        int     `yaml:"MIX_ITEMS_PER_LINE"`

	// Models is the ordered catalog the planned production mix cycles
	// through for cars created without a requiredParts match.
	Models []string `yaml:"models"`
}

// ShopInput describes one shop: its lines, rework buffer capacity, and
// the default capacity new buffers inherit when a line doesn't declare
// one explicitly.
type ShopInput struct {
	Lines                map[string]LineInput `yaml:"lines"`
	BufferCapacity       int                   `yaml:"bufferCapacity"`
	ReworkBufferCapacity int                   `yaml:"reworkBuffer"`
}

// LineInput describes one production line.
type LineInput struct {
	Stations  []string  `yaml:"stations"`
	Takt      TaktInput `yaml:"takt"`
	MTTRMin   float64   `yaml:"MTTR"`
	MTBFMin   float64   `yaml:"MTBF"`
	Routes    []string  `yaml:"routes"`
	Buffers   map[string]int `yaml:"buffers"`

	// Part-line attributes. PartType set means this line produces
	// parts; no Routes on a part line means its output feeds a part
	// buffer directly.
	PartType               string         `yaml:"partType"`
	DestShop               string         `yaml:"destShop"` // Final Part Lines only; defaults to own shop
	RequiredParts          []string       `yaml:"requiredParts"`
	PartConsumptionStation string         `yaml:"partConsumptionStation"`
	CreateWith             *CreateWithRef `yaml:"createWith"`
}

// TaktInput derives the line takt from jobs-per-hour and the shift
// window (minutes since local midnight).
type TaktInput struct {
	JPH            float64 `yaml:"jph"`
	ShiftStartMin  int     `yaml:"shiftStart"`
	ShiftEndMin    int     `yaml:"shiftEnd"`
}

// CreateWithRef synchronizes a part line's creation with a named car
// line's station exit: one part per recorded exit.
type CreateWithRef struct {
	Line    string `yaml:"line"`
	Station string `yaml:"station"`
}

// StationRef identifies one station by its full path.
type StationRef struct {
	Shop    string `yaml:"shop"`
	Line    string `yaml:"line"`
	Station string `yaml:"station"`
}

// ShiftInput names a shift window. Build does not read Input.Shifts:
// each line's shift window comes only from its own takt.ShiftStart/End.
type ShiftInput struct {
	Name         string `yaml:"name"`
	StartMin     int    `yaml:"startMin"`
	EndMin       int    `yaml:"endMin"`
}

// PlannedStopInput is one recurring planned-stop rule, materialized
// into concrete stop records per production day.
type PlannedStopInput struct {
	Name         string        `yaml:"name"`
	Category     string        `yaml:"category"`
	DaysOfWeek   []int         `yaml:"daysOfWeek"` // 0=Sunday .. 6=Saturday, time.Weekday values
	AffectsShops []string      `yaml:"affectsShops"`
	StartMin     int           `yaml:"startMin"` // minutes since local midnight
	DurationMin  int           `yaml:"durationMin"`
}
