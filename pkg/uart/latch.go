package uart

import (
	"math"
	"sync/atomic"
)

const latchValid uint32 = 1 << 8

// Latch is the single-slot receive mailbox. The value and the valid
// flag share one word so the foreground never observes a torn update.
//
// A byte stored before the previous one was taken overwrites it.
type Latch struct {
	word       atomic.Uint32
	overwrites atomic.Uint32
}

// Store puts b into the latch and marks it valid.
// Only the receive interrupt path calls it.
func (l *Latch) Store(b byte) {
	if prev := l.word.Swap(latchValid | uint32(b)); prev&latchValid != 0 {
		inc(&l.overwrites)
	}
}

// Take returns the latched byte and clears valid in one step.
func (l *Latch) Take() (byte, bool) {
	w := l.word.Swap(0)
	return byte(w), w&latchValid != 0
}

// Valid reports whether an unconsumed byte is present.
func (l *Latch) Valid() bool {
	return l.word.Load()&latchValid != 0
}

// Overwrites counts bytes lost because they were never taken.
func (l *Latch) Overwrites() uint32 {
	return l.overwrites.Load()
}

// inc increments v, sticking at math.MaxUint32.
func inc(v *atomic.Uint32) {
	for {
		n := v.Load()
		if n == math.MaxUint32 || v.CompareAndSwap(n, n+1) {
			return
		}
	}
}

// Counters is a snapshot of receive-side error counters.
type Counters struct {
	Parity  uint32
	Framing uint32
	Overrun uint32
}

// ErrorCounters counts receive-side link errors. Counters only grow,
// saturating at math.MaxUint32, and are written solely by the receive
// interrupt path.
type ErrorCounters struct {
	parity  atomic.Uint32
	framing atomic.Uint32
	overrun atomic.Uint32
}

// Snapshot reads all counters.
func (c *ErrorCounters) Snapshot() Counters {
	return Counters{
		Parity:  c.parity.Load(),
		Framing: c.framing.Load(),
		Overrun: c.overrun.Load(),
	}
}
