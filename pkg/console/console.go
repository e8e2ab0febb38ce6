// Package console implements the line command protocol on top of the
// serial port: it assembles received characters into lines, parses
// them into register and timer commands and answers each line with
// exactly one response line.
package console

import (
	"fmt"
	"strings"

	"github.com/robotalks/regconsole/pkg/bridge"
	fx "github.com/robotalks/regconsole/pkg/framework"
	"github.com/robotalks/regconsole/pkg/timer"
)

// Prompt is printed once after the banner.
const Prompt = "Ready> "

// Input is the receive side, normally uart.Port.
type Input interface {
	Take() (byte, bool)
}

// Output is the transmit side, normally uart.Writer.
type Output interface {
	PutByte(c byte) bool
	Puts(s string) int
}

// Console is the foreground controller serving command lines.
type Console struct {
	In         Input
	Out        Output
	Dispatcher *Dispatcher
	// OnResponse is invoked after every response.
	OnResponse func(line, response string)

	assembler *Assembler
}

// New creates a Console with a lineSize line buffer.
func New(in Input, out Output, d *Dispatcher, lineSize int) *Console {
	return &Console{
		In:         in,
		Out:        out,
		Dispatcher: d,
		assembler:  NewAssembler(lineSize, out),
	}
}

// Control implements Controller. At most one character is consumed
// per iteration.
func (c *Console) Control(fx.ControlContext) error {
	c.Poll()
	return nil
}

// Poll takes a pending character, if any, and processes it. It reports
// whether a character was consumed.
func (c *Console) Poll() bool {
	ch, ok := c.In.Take()
	if !ok {
		return false
	}
	c.Feed(ch)
	return true
}

// Feed processes one received character.
func (c *Console) Feed(ch byte) {
	line, ready := c.assembler.Feed(ch)
	if !ready {
		return
	}
	resp := c.Dispatcher.Respond(line)
	c.Out.Puts(resp + "\n")
	if fn := c.OnResponse; fn != nil {
		fn(line, resp)
	}
}

// Reset drops the partial line, e.g. when the peer changes.
func (c *Console) Reset() {
	c.assembler.Reset()
}

// AddToLoop implements LoopAdder.
func (c *Console) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvInput, c)
}

// Banner builds the startup text including the prompt.
func Banner(linkDesc string, interval uint32) string {
	var sb strings.Builder
	sb.WriteString("\n\n*** FIR FPGA Console ***\n")
	if linkDesc != "" {
		sb.WriteString(linkDesc + "\n")
	}
	sb.WriteString("Commands:\n")
	fmt.Fprintf(&sb, "  S<addr>$<value> - Set register (addr: 0-%d, value: signed 16-bit)\n", bridge.MaxAddress)
	fmt.Fprintf(&sb, "  R<addr>         - Read register (addr: 0-%d)\n", bridge.MaxAddress)
	fmt.Fprintf(&sb, "  T<interval>     - Set timer interval in ms (%d-%d)\n", timer.MinInterval, timer.MaxInterval)
	fmt.Fprintf(&sb, "\nCurrent timer interval: %d ms\n", interval)
	sb.WriteString(Prompt)
	return sb.String()
}

// PrintBanner writes the banner to the console output.
func (c *Console) PrintBanner(linkDesc string) {
	c.Out.Puts(Banner(linkDesc, c.Dispatcher.Interval.Get()))
}
