package console

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/robotalks/regconsole/pkg/bridge"
	"github.com/robotalks/regconsole/pkg/timer"
)

// Dispatcher executes commands against the register bridge and the
// shared timer interval.
type Dispatcher struct {
	Bridge   bridge.Bridge
	Interval *timer.Interval
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(b bridge.Bridge, interval *timer.Interval) *Dispatcher {
	return &Dispatcher{Bridge: b, Interval: interval}
}

// Execute runs a parsed command and returns the response line
// without terminator.
func (d *Dispatcher) Execute(cmd Command) (string, error) {
	switch cmd.Kind {
	case CmdSet:
		if err := d.Bridge.WriteRegister(cmd.Addr, bridge.SignExtend(int16(cmd.Value))); err != nil {
			return "", &CommandError{Kind: ErrBridge, Cause: err}
		}
		return fmt.Sprintf("Set reg[%d] = %d", cmd.Addr, cmd.Value), nil
	case CmdRead:
		w, err := d.Bridge.ReadRegister(cmd.Addr)
		if err != nil {
			return "", &CommandError{Kind: ErrBridge, Cause: err}
		}
		return fmt.Sprintf("Read reg[%d] = %d", cmd.Addr, bridge.Low16(w)), nil
	case CmdSetInterval:
		d.Interval.Set(uint32(cmd.Value))
		return fmt.Sprintf("Timer interval set to: %d ms", cmd.Value), nil
	}
	return "", reject(ErrUnknownCommand)
}

// Respond parses and executes line. Exactly one response line is
// returned for every input line.
func (d *Dispatcher) Respond(line string) string {
	cmd, err := Parse(line)
	if err == nil {
		var resp string
		if resp, err = d.Execute(cmd); err == nil {
			return resp
		}
	}
	cerr, ok := err.(*CommandError)
	if !ok {
		cerr = &CommandError{Kind: ErrBridge, Cause: err}
	}
	if cerr.Kind == ErrBridge {
		glog.Warningf("command %q: %v", line, cerr)
	} else {
		glog.V(1).Infof("command %q rejected: %v", line, cerr)
	}
	return cerr.Kind.Message()
}
