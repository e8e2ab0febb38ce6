package uart

import (
	"context"
	"errors"
	"fmt"

	"github.com/robotalks/regconsole/pkg/timer"
)

// ErrRingFull indicates output was dropped because the ring is full.
var ErrRingFull = errors.New("uart: transmit ring full")

// Writer is the line-oriented output on top of a Ring.
// Every '\n' is expanded to "\r\n".
type Writer struct {
	Ring *Ring
}

// NewWriter creates a Writer.
func NewWriter(r *Ring) *Writer {
	return &Writer{Ring: r}
}

// Out returns the Writer for the port's transmit ring.
func (p *Port) Out() *Writer {
	return NewWriter(p.ring)
}

// PutByte queues c and reports whether it (and its '\r' when c is
// '\n') was accepted.
func (w *Writer) PutByte(c byte) bool {
	ok := true
	if c == '\n' {
		ok = w.Ring.Enqueue('\r')
	}
	return w.Ring.Enqueue(c) && ok
}

// Puts queues s, silently dropping what does not fit.
// It returns number of dropped bytes.
func (w *Writer) Puts(s string) (dropped int) {
	for i := 0; i < len(s); i++ {
		if !w.PutByte(s[i]) {
			dropped++
		}
	}
	return
}

// Printf formats and queues the text.
func (w *Writer) Printf(format string, args ...interface{}) int {
	return w.Puts(fmt.Sprintf(format, args...))
}

// Write implements io.Writer. Unlike Puts, it stops at the first
// dropped byte and reports ErrRingFull.
func (w *Writer) Write(p []byte) (int, error) {
	for n, c := range p {
		if !w.PutByte(c) {
			return n, ErrRingFull
		}
	}
	return len(p), nil
}

// PutsWait queues s, waiting up to timeout ticks for space for each
// byte. It stops and returns ErrRingFull on the first timeout.
func (w *Writer) PutsWait(ctx context.Context, s string, ticks timer.TickSource, timeout uint32) error {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\n' && !w.Ring.EnqueueWait(ctx, '\r', ticks, timeout) {
			return ErrRingFull
		}
		if !w.Ring.EnqueueWait(ctx, c, ticks, timeout) {
			return ErrRingFull
		}
	}
	return nil
}
