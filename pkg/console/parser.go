package console

import (
	"fmt"
	"strings"

	"github.com/robotalks/regconsole/pkg/bridge"
	"github.com/robotalks/regconsole/pkg/timer"
)

// CommandKind is the type of a parsed command.
type CommandKind int

// Command kinds.
const (
	CmdUnknown CommandKind = iota
	CmdSet
	CmdRead
	CmdSetInterval
)

// Signed register value bounds.
const (
	MinValue = -32768
	MaxValue = 32767
)

// separator between address and value in Set.
const separator = '$'

// Command is a validated command line.
type Command struct {
	Kind  CommandKind
	Addr  int
	Value int32
}

// String formats the command in wire syntax.
func (c Command) String() string {
	switch c.Kind {
	case CmdSet:
		return fmt.Sprintf("S%d%c%d", c.Addr, separator, c.Value)
	case CmdRead:
		return fmt.Sprintf("R%d", c.Addr)
	case CmdSetInterval:
		return fmt.Sprintf("T%d", c.Value)
	}
	return "?"
}

// Parse turns a line (without terminator) into a Command.
// The returned error is always a *CommandError.
func Parse(line string) (Command, error) {
	if line == "" {
		return Command{}, reject(ErrUnknownCommand)
	}
	args := line[1:]
	switch line[0] {
	case 'S', 's':
		return parseSet(args)
	case 'R', 'r':
		addr, err := parseAddress(args)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: CmdRead, Addr: addr}, nil
	case 'T', 't':
		return parseInterval(args)
	}
	return Command{}, reject(ErrUnknownCommand)
}

func parseSet(args string) (Command, error) {
	pos := strings.IndexByte(args, separator)
	if pos < 0 || strings.IndexByte(args[pos+1:], separator) >= 0 {
		return Command{}, reject(ErrFormat)
	}
	addr, err := parseAddress(args[:pos])
	if err != nil {
		return Command{}, err
	}
	value, ok := parseInt(args[pos+1:], true)
	if !ok || value < MinValue || value > MaxValue {
		return Command{}, reject(ErrInvalidValue)
	}
	return Command{Kind: CmdSet, Addr: addr, Value: int32(value)}, nil
}

func parseAddress(s string) (int, error) {
	addr, ok := parseInt(s, false)
	if !ok {
		return 0, reject(ErrInvalidAddress)
	}
	if !bridge.ValidAddress(int(addr)) {
		return 0, reject(ErrAddressRange)
	}
	return int(addr), nil
}

func parseInterval(args string) (Command, error) {
	value, ok := parseInt(args, false)
	if !ok {
		return Command{}, reject(ErrInvalidInterval)
	}
	if value < int64(timer.MinInterval) || value > int64(timer.MaxInterval) {
		return Command{}, reject(ErrValueRange)
	}
	return Command{Kind: CmdSetInterval, Value: int32(value)}, nil
}

// saturation keeps accumulated magnitudes far above any accepted
// bound, so overflowing input is always rejected by range checks.
const saturation = 1 << 40

// parseInt skips leading blanks, accepts a sign when signed is set and
// accumulates decimal digits up to the first non-digit. It fails when
// no digit was consumed.
func parseInt(s string, signed bool) (int64, bool) {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	neg := false
	if signed && i < len(s) && (s[i] == '-' || s[i] == '+') {
		neg = s[i] == '-'
		i++
	}
	var v int64
	digits := 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		if v < saturation {
			v = v*10 + int64(s[i]-'0')
		}
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}
