// Package timer provides the tick source, the shared toggle interval and
// the periodic output toggle built on top of them.
package timer

import (
	"context"
	"sync/atomic"
	"time"
)

// TickSource exposes a monotonically increasing tick counter.
// Elapsed ticks must be computed with wrapping subtraction.
type TickSource interface {
	Ticks() uint32
}

// DefaultPeriod is the real-time period of one tick.
const DefaultPeriod = time.Millisecond

// Ticker is a TickSource driven by a real-time clock.
type Ticker struct {
	Period time.Duration
	// Notify is invoked after every tick, usually to wake up
	// the foreground loop.
	Notify func()

	ticks atomic.Uint32
}

// NewTicker creates a Ticker with the default period.
func NewTicker() *Ticker {
	return &Ticker{Period: DefaultPeriod}
}

// Ticks implements TickSource.
func (t *Ticker) Ticks() uint32 {
	return t.ticks.Load()
}

// HandleTick is the timer interrupt handler.
func (t *Ticker) HandleTick() {
	t.ticks.Add(1)
	if fn := t.Notify; fn != nil {
		fn()
	}
}

// Name implements Named.
func (t *Ticker) Name() string {
	return "ticker"
}

// Run implements Runnable.
func (t *Ticker) Run(ctx context.Context) error {
	period := t.Period
	if period <= 0 {
		period = DefaultPeriod
	}
	tick := time.NewTicker(period)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			t.HandleTick()
		}
	}
}

// Elapsed returns ticks passed since start, tolerating wrap-around.
func Elapsed(src TickSource, start uint32) uint32 {
	return src.Ticks() - start
}

// ManualTicks is a TickSource advanced explicitly, used where the
// time base is driven by something other than a clock.
type ManualTicks struct {
	ticks atomic.Uint32
}

// Ticks implements TickSource.
func (m *ManualTicks) Ticks() uint32 {
	return m.ticks.Load()
}

// Advance moves the counter forward by n ticks.
func (m *ManualTicks) Advance(n uint32) {
	m.ticks.Add(n)
}
