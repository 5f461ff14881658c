package core

import (
	"math/rand"
)

// RNG is the single source of randomness for a simulation session.
// Every session owns its own seeded generator, so a fixed seed replays
// the same scenario tick for tick.
type RNG struct {
	r *rand.Rand
}

// NewRNG creates a seeded RNG. Use a fixed seed in tests for
// reproducibility; production sessions may seed from a time source at
// the call site.
func NewRNG(seed int64) *RNG {
	return &RNG{r: rand.New(rand.NewSource(seed))}
}

// Float64 returns a uniform value in [0,1).
func (g *RNG) Float64() float64 { return g.r.Float64() }

// Uniform returns a uniform value in [min,max).
func (g *RNG) Uniform(min, max float64) float64 {
	return min + g.r.Float64()*(max-min)
}

// UniformInt returns a uniform integer in [min,max] inclusive.
func (g *RNG) UniformInt(min, max int) int {
	if max <= min {
		return min
	}
	return min + g.r.Intn(max-min+1)
}

// Bool returns true with the given probability.
func (g *RNG) Bool(probability float64) bool {
	return g.r.Float64() < probability
}

// Intn returns a uniform integer in [0,n).
func (g *RNG) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return g.r.Intn(n)
}

// WeightedIndex selects an index from a slice of non-negative weights,
// proportional to weight. Used for stop severity draws (LOW/MEDIUM/HIGH)
// and color-pair selection.
func (g *RNG) WeightedIndex(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return 0
	}
	r := g.r.Float64() * total
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if r <= cumulative {
			return i
		}
	}
	return len(weights) - 1
}

// Shuffle permutes n elements in place using the provided swap function.
func (g *RNG) Shuffle(n int, swap func(i, j int)) {
	g.r.Shuffle(n, swap)
}

// Clamp bounds value within [min,max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// ClampPositive returns value, floored at zero. OEE and related KPI
// results are never reported negative.
func ClampPositive(value float64) float64 {
	if value < 0 {
		return 0
	}
	return value
}

// Round2 rounds to two decimal places, the precision MTTR/MTBF values
// are reported at.
func Round2(value float64) float64 {
	const scale = 100.0
	if value < 0 {
		return -Round2(-value)
	}
	return float64(int64(value*scale+0.5)) / scale
}
