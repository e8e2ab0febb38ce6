package uart

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robotalks/regconsole/pkg/timer"
)

// DefaultRingSize is the default transmit ring capacity in bytes.
// One slot is always kept free, so usable capacity is one less.
const DefaultRingSize = 512

// TxInterrupt is the transmit-ready interrupt enable the ring arms
// whenever it has data pending.
type TxInterrupt interface {
	ArmTx()
}

// Ring is the transmit circular buffer.
//
// head is written only by the producer (Enqueue) and tail only by the
// consumer (DrainOne), so both sides can run on different goroutines
// without locks.
type Ring struct {
	IRQ TxInterrupt

	buf  []byte
	head atomic.Uint32
	tail atomic.Uint32

	spaceCh chan struct{}
	emptyCh chan struct{}
}

// NewRing creates a Ring with size slots.
func NewRing(size int) *Ring {
	if size < 2 {
		panic("uart: ring size must be at least 2")
	}
	return &Ring{
		buf:     make([]byte, size),
		spaceCh: make(chan struct{}, 1),
		emptyCh: make(chan struct{}, 1),
	}
}

func (r *Ring) next(i uint32) uint32 {
	return (i + 1) % uint32(len(r.buf))
}

// Cap returns the usable capacity.
func (r *Ring) Cap() int {
	return len(r.buf) - 1
}

// Len returns number of pending bytes.
func (r *Ring) Len() int {
	head, tail := r.head.Load(), r.tail.Load()
	return int((head + uint32(len(r.buf)) - tail) % uint32(len(r.buf)))
}

// Free returns number of bytes that can still be enqueued.
func (r *Ring) Free() int {
	return r.Cap() - r.Len()
}

// Empty indicates no bytes are pending.
func (r *Ring) Empty() bool {
	return r.head.Load() == r.tail.Load()
}

// Enqueue appends b. It returns false without blocking if the ring
// is full, in which case b is dropped.
func (r *Ring) Enqueue(b byte) bool {
	head := r.head.Load()
	next := r.next(head)
	if next == r.tail.Load() {
		return false
	}
	r.buf[head] = b
	r.head.Store(next)
	if irq := r.IRQ; irq != nil {
		irq.ArmTx()
	}
	return true
}

// DrainOne removes the oldest byte. Only the transmit interrupt path
// may call it. When it reports false the caller must disarm the
// transmit-ready interrupt.
func (r *Ring) DrainOne() (byte, bool) {
	tail := r.tail.Load()
	if tail == r.head.Load() {
		return 0, false
	}
	b := r.buf[tail]
	tail = r.next(tail)
	r.tail.Store(tail)
	notify(r.spaceCh)
	if tail == r.head.Load() {
		notify(r.emptyCh)
	}
	return b, true
}

// Flush waits until all pending bytes are drained.
// Never call it from the transmit path.
func (r *Ring) Flush(ctx context.Context) error {
	for !r.Empty() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.emptyCh:
		}
	}
	return nil
}

// enqueuePollInterval bounds how long EnqueueWait sleeps between
// re-checking the tick count when nothing is drained.
const enqueuePollInterval = time.Millisecond

// EnqueueWait retries Enqueue until it succeeds or timeout ticks have
// elapsed on ticks. It reports whether b was enqueued.
func (r *Ring) EnqueueWait(ctx context.Context, b byte, ticks timer.TickSource, timeout uint32) bool {
	start := ticks.Ticks()
	for !r.Enqueue(b) {
		if timer.Elapsed(ticks, start) >= timeout {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-r.spaceCh:
		case <-time.After(enqueuePollInterval):
		}
	}
	return true
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
