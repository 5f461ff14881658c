package stop

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFlowReason(t *testing.T) {
	assert.True(t, IsFlowReason("NEXT_FULL"))
	assert.True(t, IsFlowReason("Buffer Empty"))
	assert.False(t, IsFlowReason("RANDOM_FAILURE"))
}

func TestIsLackReason(t *testing.T) {
	assert.True(t, IsLackReason("LACK-SEAT"))
	assert.False(t, IsLackReason("LACKLUSTER"))
	assert.False(t, IsLackReason("NEXT_FULL"))
}

func TestIsBlocking(t *testing.T) {
	assert.True(t, IsBlocking("RANDOM_FAILURE"))
	assert.False(t, IsBlocking("NEXT_FULL"))
	assert.False(t, IsBlocking("LACK-SEAT"))
}

func TestStopIsFlowAndIsLackHelpers(t *testing.T) {
	s := &Stop{Reason: "Buffer Full"}
	assert.True(t, s.IsFlow())
	assert.False(t, s.IsLack())

	s2 := &Stop{Reason: "LACK-ENGINE"}
	assert.False(t, s2.IsFlow())
	assert.True(t, s2.IsLack())
}

func TestTypeStatusSeverityStrings(t *testing.T) {
	assert.Equal(t, "PLANNED", TypePlanned.String())
	assert.Equal(t, "RANDOM_GENERATE", TypeRandom.String())
	assert.Equal(t, "PROPAGATION", TypePropagation.String())
	assert.Equal(t, "MICRO", TypeMicro.String())

	assert.Equal(t, "PLANNED", StatusPlanned.String())
	assert.Equal(t, "IN_PROGRESS", StatusInProgress.String())
	assert.Equal(t, "COMPLETED", StatusCompleted.String())

	assert.Equal(t, "LOW", SeverityLow.String())
	assert.Equal(t, "MEDIUM", SeverityMedium.String())
	assert.Equal(t, "HIGH", SeverityHigh.String())
}
