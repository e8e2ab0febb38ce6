package timer

import (
	"sync/atomic"

	"github.com/golang/glog"

	fx "github.com/robotalks/regconsole/pkg/framework"
)

// Interval bounds in ticks.
const (
	DefaultInterval uint32 = 1000
	MinInterval     uint32 = 100
	MaxInterval     uint32 = 5000
)

// Interval is the toggle period shared between the command dispatcher
// (the only writer) and the tick comparison.
type Interval struct {
	v atomic.Uint32
}

// NewInterval creates an Interval with the initial value.
func NewInterval(v uint32) *Interval {
	i := &Interval{}
	i.v.Store(v)
	return i
}

// Get returns the current interval.
func (i *Interval) Get() uint32 {
	return i.v.Load()
}

// Set replaces the interval. The value is not validated here.
func (i *Interval) Set(v uint32) {
	i.v.Store(v)
}

// ValidInterval checks v against [MinInterval, MaxInterval].
func ValidInterval(v uint32) bool {
	return v >= MinInterval && v <= MaxInterval
}

// Output is the visible output driven by the toggle.
type Output interface {
	SetLevel(on bool)
}

// OutputFunc is func form of Output.
type OutputFunc func(bool)

// SetLevel implements Output.
func (f OutputFunc) SetLevel(on bool) {
	f(on)
}

// LogOutput reports output changes through the log.
type LogOutput struct{}

// SetLevel implements Output.
func (LogOutput) SetLevel(on bool) {
	glog.V(2).Infof("output level %v", on)
}

// Toggle flips Output every Interval ticks.
type Toggle struct {
	Ticks    TickSource
	Interval *Interval
	Output   Output
	// OnToggle is called after each flip with the total flip count.
	OnToggle func(count uint32)

	last  uint32
	level atomic.Bool
	count atomic.Uint32
}

// NewToggle creates a Toggle.
func NewToggle(ticks TickSource, interval *Interval, out Output) *Toggle {
	return &Toggle{
		Ticks:    ticks,
		Interval: interval,
		Output:   out,
		last:     ticks.Ticks(),
	}
}

// Level returns the current output level.
func (t *Toggle) Level() bool {
	return t.level.Load()
}

// Count returns the number of flips so far.
func (t *Toggle) Count() uint32 {
	return t.count.Load()
}

// Control implements Controller.
func (t *Toggle) Control(fx.ControlContext) error {
	t.Poll()
	return nil
}

// Poll compares elapsed ticks against the interval and flips the
// output when due. It reports whether a flip happened.
func (t *Toggle) Poll() bool {
	now := t.Ticks.Ticks()
	if now-t.last < t.Interval.Get() {
		return false
	}
	t.last = now
	level := !t.level.Load()
	t.level.Store(level)
	if t.Output != nil {
		t.Output.SetLevel(level)
	}
	count := t.count.Add(1)
	if fn := t.OnToggle; fn != nil {
		fn(count)
	}
	return true
}

// AddToLoop implements LoopAdder.
func (t *Toggle) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvOutput, t)
}
