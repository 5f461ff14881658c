package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMillisFromTimeRoundTrip(t *testing.T) {
	now := time.Date(2026, 7, 31, 10, 30, 0, 0, time.UTC)
	m := FromTime(now)
	assert.Equal(t, now, m.Time())
}

func TestMillisAddSub(t *testing.T) {
	base := Millis(1000)
	after := base.Add(5 * time.Second)
	assert.Equal(t, Millis(6000), after)
	assert.Equal(t, 5*time.Second, after.Sub(base))
}

func TestMillisBeforeAfter(t *testing.T) {
	a, b := Millis(100), Millis(200)
	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
	assert.True(t, b.After(a))
	assert.False(t, a.After(b))
	assert.False(t, a.Before(a))
}
