// Package uart models an interrupt-driven serial port: a transmit ring
// drained by the transmit-ready interrupt, a single-slot receive latch
// filled by the receive interrupt and link error counters.
//
// Interrupt handlers are plain methods (HandleRx, HandleTx) that run to
// completion. Pump goroutines connect them to a byte link and play the
// role of the interrupt controller.
package uart

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/regconsole/pkg/framework"
)

// Status is the receive/transmit status register.
type Status uint32

// Status bits.
const (
	StatusPE   Status = 1 << 0 // parity error
	StatusFE   Status = 1 << 1 // framing error
	StatusBRK  Status = 1 << 2 // break detected
	StatusROE  Status = 1 << 3 // receive overrun
	StatusTOE  Status = 1 << 4 // transmit overrun
	StatusTMT  Status = 1 << 5 // transmitter empty
	StatusTRDY Status = 1 << 6 // transmit ready
	StatusRRDY Status = 1 << 7 // receive data ready
)

// Frame is one receive event: the status latched with the data.
type Frame struct {
	Status Status
	Data   byte
}

// FrameReader is implemented by links which report line errors along
// with received bytes. Plain io.Readers only produce StatusRRDY.
type FrameReader interface {
	ReadFrame() (Frame, error)
}

// DefaultCharTimeout bounds how long the receive pump waits for the
// foreground to take a byte before delivering the next one.
const DefaultCharTimeout = 10 * time.Millisecond

// ErrNoLink indicates the port is run without a link.
var ErrNoLink = errors.New("uart: no link")

// Port is the serial port peripheral.
type Port struct {
	Link        io.ReadWriter
	CharTimeout time.Duration
	// Notify is invoked by the receive handler after a byte is
	// latched, usually to wake up the foreground loop.
	Notify func()

	ring     *Ring
	latch    Latch
	counters ErrorCounters

	txIE    atomic.Bool
	txWake  chan struct{}
	rxTaken chan struct{}
}

// NewPort creates a Port with a transmit ring of ringSize slots.
func NewPort(link io.ReadWriter, ringSize int) *Port {
	p := &Port{
		Link:        link,
		CharTimeout: DefaultCharTimeout,
		ring:        NewRing(ringSize),
		txWake:      make(chan struct{}, 1),
		rxTaken:     make(chan struct{}, 1),
	}
	p.ring.IRQ = p
	return p
}

// Ring returns the transmit ring.
func (p *Port) Ring() *Ring {
	return p.ring
}

// Counters returns a snapshot of link error counters.
func (p *Port) Counters() Counters {
	return p.counters.Snapshot()
}

// Overwrites returns number of received bytes lost in the latch.
func (p *Port) Overwrites() uint32 {
	return p.latch.Overwrites()
}

// Take consumes the latched byte, if any. Foreground only.
func (p *Port) Take() (byte, bool) {
	b, ok := p.latch.Take()
	if ok {
		notify(p.rxTaken)
	}
	return b, ok
}

// TxArmed reports whether the transmit-ready interrupt is enabled.
func (p *Port) TxArmed() bool {
	return p.txIE.Load()
}

// ArmTx implements TxInterrupt.
func (p *Port) ArmTx() {
	p.txIE.Store(true)
	notify(p.txWake)
}

// HandleRx is the receive interrupt handler.
func (p *Port) HandleRx(f Frame) {
	valid := f.Status&StatusRRDY != 0
	if f.Status&StatusPE != 0 {
		inc(&p.counters.parity)
		// read-to-clear consumes the data
		valid = false
	}
	if f.Status&StatusFE != 0 {
		inc(&p.counters.framing)
		valid = false
	}
	if f.Status&StatusROE != 0 {
		inc(&p.counters.overrun)
	}
	if valid {
		p.latch.Store(f.Data)
		if fn := p.Notify; fn != nil {
			fn()
		}
	}
	if glog.V(5) {
		glog.Infof("rx irq status=%02x data=%02x valid=%v", uint32(f.Status), f.Data, valid)
	}
}

// HandleTx is the transmit-ready interrupt handler. It moves one byte
// from the ring into w and reports whether a byte was sent. The
// interrupt is disarmed when the ring is found empty.
func (p *Port) HandleTx(w io.Writer) (bool, error) {
	b, ok := p.ring.DrainOne()
	if !ok {
		p.txIE.Store(false)
		return false, nil
	}
	_, err := w.Write([]byte{b})
	return true, err
}

// AddToLoop implements LoopAdder.
func (p *Port) AddToLoop(loop *fx.Loop) {
	if p.Notify == nil {
		p.Notify = loop.TriggerNext
	}
	loop.AddRunnable(
		fx.NamedRun("uart-rx", fx.RunFunc(p.RunRx)),
		fx.NamedRun("uart-tx", fx.RunFunc(p.RunTx)),
	)
}

// RunRx pumps received bytes into HandleRx until the link fails or
// ctx is canceled.
func (p *Port) RunRx(ctx context.Context) error {
	if p.Link == nil {
		return ErrNoLink
	}
	fn := func() error { return p.readLoop(ctx) }
	if closer, ok := p.Link.(io.Closer); ok {
		return fx.RunWithContextCloser(ctx, closer, fn)
	}
	return fx.RunWithContext(ctx, fn)
}

func (p *Port) readLoop(ctx context.Context) error {
	if fr, ok := p.Link.(FrameReader); ok {
		for {
			f, err := fr.ReadFrame()
			if err != nil {
				return err
			}
			p.deliver(ctx, f)
		}
	}
	buf := make([]byte, 64)
	for {
		n, err := p.Link.Read(buf)
		for i := 0; i < n; i++ {
			p.deliver(ctx, Frame{Status: StatusRRDY, Data: buf[i]})
		}
		if err != nil {
			return err
		}
	}
}

// deliver raises the receive interrupt and then paces the line: it
// waits until the foreground took the byte or one character time
// passed. If the foreground is slower, the next byte overwrites.
func (p *Port) deliver(ctx context.Context, f Frame) {
	select {
	case <-p.rxTaken:
	default:
	}
	p.HandleRx(f)
	if f.Status&StatusRRDY == 0 {
		return
	}
	timeout := p.CharTimeout
	if timeout <= 0 {
		return
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-p.rxTaken:
	case <-t.C:
	case <-ctx.Done():
	}
}

// RunTx services the transmit-ready interrupt while it's armed.
func (p *Port) RunTx(ctx context.Context) error {
	if p.Link == nil {
		return ErrNoLink
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.txWake:
		}
		for {
			sent, err := p.HandleTx(p.Link)
			if err != nil {
				return err
			}
			if !sent {
				break
			}
		}
	}
}
