// Package clock implements the fixed-period timer that drives the
// whole simulation. Tick N's OnTick must finish before tick N+1 fires,
// so OnTick always runs synchronously inside the clock's own goroutine
// rather than being dispatched.
package clock

import (
	"sync"
	"time"

	"github.com/krugerplant/linesim/internal/config"
	"github.com/krugerplant/linesim/internal/core"
)

// State is the clock's lifecycle state.
type State int

const (
	StateStopped State = iota
	StateRunning
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Tick is one fired tick.
type Tick struct {
	TickNumber         int64
	SimulatedTimestamp int64 // core.Millis
	SimulatedTimeMs    int64 // same value, kept for payload compatibility
	DeltaMs            int64
	RealTimestamp      int64 // wall-clock unix millis when the tick fired
}

// OnTick is invoked synchronously, once per fired tick, with the new
// simulated timestamp. The scheduler's Execute method is the production
// implementation; it completes before the next tick can fire.
type OnTick func(now int64)

// OnReset is invoked once by Stop, after the tick loop has exited, to
// trigger the full memory reset of scheduler-owned state.
type OnReset func()

// StateListener observes clock state transitions. The clock always
// notifies state listeners before resuming tick emission.
type StateListener func(prev, next State)

// Clock advances simulated time in fixed wall-clock ticks. One Clock
// belongs to exactly one Session; nothing here is package-level or
// shared across sessions.
type Clock struct {
	rt *config.RuntimeConfig

	mu    sync.Mutex
	state State

	simNow     core.Millis
	tickNumber int64
	dayKey     int64

	onTick  OnTick
	onReset OnReset

	tickListeners  []func(Tick)
	stateListeners []StateListener

	pauseCh  chan struct{}
	resumeCh chan struct{}
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New creates a stopped Clock. rt supplies the live base period and
// speed factor; onTick and onReset bind the clock to a Scheduler and
// its owned state.
func New(rt *config.RuntimeConfig, onTick OnTick, onReset OnReset) *Clock {
	return &Clock{
		rt:      rt,
		state:   StateStopped,
		onTick:  onTick,
		onReset: onReset,
	}
}

// OnTickListener registers an additional observer fired after onTick,
// for fan-out to tick-state emission and best-effort exports.
func (c *Clock) OnTickListener(fn func(Tick)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tickListeners = append(c.tickListeners, fn)
}

// OnStateChange registers a state-transition observer.
func (c *Clock) OnStateChange(fn StateListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stateListeners = append(c.stateListeners, fn)
}

// SetInitialState seeds the clock for recovery. Must be called before
// Start.
func (c *Clock) SetInitialState(simulatedTimestamp core.Millis, tickNumber int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.simNow = simulatedTimestamp
	c.tickNumber = tickNumber
}

// Now returns the current simulated timestamp.
func (c *Clock) Now() core.Millis {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.simNow
}

// State returns the clock's current lifecycle state.
func (c *Clock) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// DayKey returns the current simulated-day index, incremented by each
// Restart.
func (c *Clock) DayKey() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dayKey
}

func (c *Clock) setState(next State) {
	prev := c.state
	c.state = next
	listeners := append([]StateListener(nil), c.stateListeners...)
	c.mu.Unlock()
	for _, l := range listeners {
		l(prev, next)
	}
	c.mu.Lock()
}

// Start transitions stopped -> running and begins emitting ticks every
// base period of wall-clock time. Calling Start while already running
// is a no-op.
func (c *Clock) Start() {
	c.mu.Lock()
	if c.state == StateRunning {
		c.mu.Unlock()
		return
	}
	c.setState(StateRunning)
	c.pauseCh = make(chan struct{}, 1)
	c.resumeCh = make(chan struct{}, 1)
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	c.mu.Unlock()

	go c.run()
}

func (c *Clock) run() {
	defer close(c.doneCh)

	ticker := time.NewTicker(time.Duration(c.rt.GetBasePeriodMs()) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return

		case <-c.pauseCh:
			c.awaitResume()
			// Paused wall-clock time is accounted by simply not
			// advancing simNow while paused; resync the ticker so the
			// next tick is one base period after resume, not a backlog
			// of missed ticks.
			ticker.Reset(time.Duration(c.rt.GetBasePeriodMs()) * time.Millisecond)

		case wallNow := <-ticker.C:
			c.fireTick(wallNow)
		}
	}
}

// awaitResume blocks the tick loop until resume() or stop() signals,
// satisfying "pause() freezes tick emission" without busy-waiting.
func (c *Clock) awaitResume() {
	select {
	case <-c.resumeCh:
	case <-c.stopCh:
	}
}

func (c *Clock) fireTick(wallNow time.Time) {
	c.mu.Lock()
	deltaMs := int64(float64(c.rt.GetBasePeriodMs()) * c.rt.GetSpeedFactor())
	c.simNow = c.simNow.Add(time.Duration(deltaMs) * time.Millisecond)
	c.tickNumber++

	t := Tick{
		TickNumber:         c.tickNumber,
		SimulatedTimestamp: int64(c.simNow),
		SimulatedTimeMs:    int64(c.simNow),
		DeltaMs:            deltaMs,
		RealTimestamp:      wallNow.UnixMilli(),
	}
	onTick := c.onTick
	var listeners []func(Tick)
	listeners = append(listeners, c.tickListeners...)
	now := int64(c.simNow)
	c.mu.Unlock()

	// Run-to-completion: onTick (Scheduler.Execute) finishes before this
	// goroutine loops back to select on the next tick.
	if onTick != nil {
		onTick(now)
	}
	for _, l := range listeners {
		l(t)
	}
}

// Pause freezes tick emission without losing accumulated simulated
// time. No-op if not running.
func (c *Clock) Pause() {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return
	}
	c.setState(StatePaused)
	pauseCh := c.pauseCh
	c.mu.Unlock()

	select {
	case pauseCh <- struct{}{}:
	default:
	}
}

// Resume restores tick emission after Pause, without losing
// accumulated simulated time.
func (c *Clock) Resume() {
	c.mu.Lock()
	if c.state != StatePaused {
		c.mu.Unlock()
		return
	}
	c.setState(StateRunning)
	resumeCh := c.resumeCh
	c.mu.Unlock()

	select {
	case resumeCh <- struct{}{}:
	default:
	}
}

// Stop halts tick emission and triggers a full memory reset of
// scheduler-owned state. Blocks until the tick loop has fully exited so
// no tick can fire concurrently with the reset.
func (c *Clock) Stop() {
	c.mu.Lock()
	if c.state == StateStopped {
		c.mu.Unlock()
		return
	}
	stopCh := c.stopCh
	doneCh := c.doneCh
	c.mu.Unlock()

	close(stopCh)
	<-doneCh

	c.mu.Lock()
	c.setState(StateStopped)
	onReset := c.onReset
	c.mu.Unlock()

	if onReset != nil {
		onReset()
	}
}

// Restart reinitializes the simulated day: increments the day key from
// the last value and zeroes the tick counter, then starts a fresh
// run.
func (c *Clock) Restart() {
	c.Stop()

	c.mu.Lock()
	c.dayKey++
	c.tickNumber = 0
	c.mu.Unlock()

	c.Start()
}
