package eventsink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	events []Event
}

func (c *captureSink) Emit(e Event) { c.events = append(c.events, e) }

func (c *captureSink) kinds() []Kind {
	out := make([]Kind, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Kind)
	}
	return out
}

func TestThrottlePassesThroughUncategorizedKinds(t *testing.T) {
	next := &captureSink{}
	th := NewThrottle(next, ThrottleIntervals{OEEMs: 5000})

	th.Emit(Event{Kind: KindOEEShiftEnd, Timestamp: 100})
	th.Emit(Event{Kind: KindOEEShiftEnd, Timestamp: 200})

	assert.Equal(t, []Kind{KindOEEShiftEnd, KindOEEShiftEnd}, next.kinds())
}

func TestThrottlePassesThroughWhenIntervalUnset(t *testing.T) {
	next := &captureSink{}
	th := NewThrottle(next, ThrottleIntervals{})

	th.Emit(Event{Kind: KindOEECalculated, Key: "BODY-MAIN", Timestamp: 100})
	th.Emit(Event{Kind: KindOEECalculated, Key: "BODY-MAIN", Timestamp: 200})

	assert.Len(t, next.events, 2)
}

func TestThrottleKeepsLatestPerKeyBetweenBoundaries(t *testing.T) {
	next := &captureSink{}
	th := NewThrottle(next, ThrottleIntervals{OEEMs: 5000})

	// First event for a category opens the bucket and passes through.
	th.Emit(Event{Kind: KindOEECalculated, Key: "BODY-MAIN", Timestamp: 1000, Payload: 1})
	require.Len(t, next.events, 1)

	// Within the interval: retained, superseded, never forwarded.
	th.Emit(Event{Kind: KindOEECalculated, Key: "BODY-MAIN", Timestamp: 2000, Payload: 2})
	th.Emit(Event{Kind: KindOEECalculated, Key: "BODY-MAIN", Timestamp: 3000, Payload: 3})
	th.Emit(Event{Kind: KindOEECalculated, Key: "PAINT-MAIN", Timestamp: 3500, Payload: 40})
	require.Len(t, next.events, 1)

	// Crossing the boundary flushes the latest value per key, in
	// first-seen key order.
	th.Emit(Event{Kind: KindOEECalculated, Key: "BODY-MAIN", Timestamp: 6000, Payload: 4})
	require.Len(t, next.events, 3)
	assert.Equal(t, 4, next.events[1].Payload)
	assert.Equal(t, "BODY-MAIN", next.events[1].Key)
	assert.Equal(t, 40, next.events[2].Payload)
	assert.Equal(t, "PAINT-MAIN", next.events[2].Key)
}

func TestThrottleFlushDrainsQuietCategories(t *testing.T) {
	next := &captureSink{}
	th := NewThrottle(next, ThrottleIntervals{OEEMs: 5000})

	th.Emit(Event{Kind: KindOEECalculated, Key: "BODY-MAIN", Timestamp: 1000, Payload: 1})
	th.Emit(Event{Kind: KindOEECalculated, Key: "BODY-MAIN", Timestamp: 2000, Payload: 2})
	require.Len(t, next.events, 1)

	th.Flush(3000) // interval not elapsed yet
	require.Len(t, next.events, 1)

	th.Flush(7000)
	require.Len(t, next.events, 2)
	assert.Equal(t, 2, next.events[1].Payload)

	// Nothing pending: further flushes are no-ops.
	th.Flush(20000)
	assert.Len(t, next.events, 2)
}

func TestThrottleCategoriesAreIndependent(t *testing.T) {
	next := &captureSink{}
	th := NewThrottle(next, ThrottleIntervals{OEEMs: 5000, PlantMs: 1000})

	th.Emit(Event{Kind: KindOEECalculated, Key: "BODY-MAIN", Timestamp: 1000})
	th.Emit(Event{Kind: KindPlantSnapshot, Key: "PLANT", Timestamp: 1000})
	require.Len(t, next.events, 2)

	th.Emit(Event{Kind: KindOEECalculated, Key: "BODY-MAIN", Timestamp: 2500})
	th.Emit(Event{Kind: KindPlantSnapshot, Key: "PLANT", Timestamp: 2500})
	// Plant interval (1000) elapsed, OEE interval (5000) has not.
	require.Len(t, next.events, 3)
	assert.Equal(t, KindPlantSnapshot, next.events[2].Kind)
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, CategoryCars, CategoryOf(KindCarCreated))
	assert.Equal(t, CategoryCars, CategoryOf(KindCarMoved))
	assert.Equal(t, CategoryBuffers, CategoryOf(KindBufferIn))
	assert.Equal(t, CategoryBuffers, CategoryOf(KindReworkOut))
	assert.Equal(t, CategoryStops, CategoryOf(KindStopStarted))
	assert.Equal(t, CategoryStops, CategoryOf(KindPartShortage))
	assert.Equal(t, CategoryPlant, CategoryOf(KindTickState))
	assert.Equal(t, CategoryOEE, CategoryOf(KindOEECalculated))
	assert.Equal(t, CategoryNone, CategoryOf(KindOEEShiftEnd))
	assert.Equal(t, CategoryNone, CategoryOf(KindMTTRMTBFCalculated))
}
