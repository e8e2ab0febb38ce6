package sh

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/regconsole/pkg/bridge"
	"github.com/robotalks/regconsole/pkg/client"
	"github.com/robotalks/regconsole/pkg/console"
	"github.com/robotalks/regconsole/pkg/timer"
)

// RegisterValue is the JSON form of a register.
type RegisterValue struct {
	Addr  int   `json:"addr"`
	Value int16 `json:"value"`
}

// argRange is the accepted range of a numeric argument.
type argRange struct {
	name     string
	min, max int64
}

var (
	addrArg     = argRange{"ADDR", 0, bridge.MaxAddress}
	valueArg    = argRange{"VALUE", console.MinValue, console.MaxValue}
	intervalArg = argRange{"MS", int64(timer.MinInterval), int64(timer.MaxInterval)}
)

// parseArgs parses one number per range. Values outside a range are
// rejected instead of being narrowed.
func parseArgs(args []string, ranges ...argRange) ([]int64, error) {
	if len(args) != len(ranges) {
		names := make([]string, len(ranges))
		for i, r := range ranges {
			names[i] = r.name
		}
		return nil, fmt.Errorf("expect %s", strings.Join(names, " "))
	}
	vals := make([]int64, len(args))
	for i, arg := range args {
		r := ranges[i]
		v, err := strconv.ParseInt(arg, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q", r.name, arg)
		}
		if v < r.min || v > r.max {
			return nil, fmt.Errorf("%s %d out of range (%d-%d)", r.name, v, r.min, r.max)
		}
		vals[i] = v
	}
	return vals, nil
}

// FormatDump formats register values in rows of 8.
func FormatDump(values []int16) string {
	var sb strings.Builder
	for n, v := range values {
		if n%8 == 0 {
			if n > 0 {
				sb.WriteByte('\n')
			}
			fmt.Fprintf(&sb, "%02d:", n)
		}
		fmt.Fprintf(&sb, " %6d", v)
	}
	return sb.String()
}

var (
	// ConnectCmd connects a console.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[URL]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			linkURL := s.Config.LinkURL
			if len(c.Args) > 0 {
				linkURL = c.Args[0]
			}
			if err := s.Connect(linkURL); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects current console.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// SetCmd writes a register.
	SetCmd = ishell.Cmd{
		Name:    "set",
		Aliases: []string{"s"},
		Help:    "ADDR VALUE",
		Func: MustBeConnected(func(c *ishell.Context, cl *client.Client) {
			args, err := parseArgs(c.Args, addrArg, valueArg)
			if err != nil {
				c.Err(err)
				return
			}
			s := ShellFrom(c)
			ctx, cancel := s.Context()
			defer cancel()
			if err := cl.Set(ctx, int(args[0]), int16(args[1])); err != nil {
				c.Err(err)
				return
			}
			s.Print(c, "OK", RegisterValue{Addr: int(args[0]), Value: int16(args[1])})
		}),
	}

	// ReadCmd reads a register.
	ReadCmd = ishell.Cmd{
		Name:    "read",
		Aliases: []string{"r"},
		Help:    "ADDR",
		Func: MustBeConnected(func(c *ishell.Context, cl *client.Client) {
			args, err := parseArgs(c.Args, addrArg)
			if err != nil {
				c.Err(err)
				return
			}
			s := ShellFrom(c)
			ctx, cancel := s.Context()
			defer cancel()
			v, err := cl.Read(ctx, int(args[0]))
			if err != nil {
				c.Err(err)
				return
			}
			s.Print(c, strconv.Itoa(int(v)), RegisterValue{Addr: int(args[0]), Value: v})
		}),
	}

	// IntervalCmd sets the toggle interval.
	IntervalCmd = ishell.Cmd{
		Name:    "interval",
		Aliases: []string{"t"},
		Help:    "MS",
		Func: MustBeConnected(func(c *ishell.Context, cl *client.Client) {
			args, err := parseArgs(c.Args, intervalArg)
			if err != nil {
				c.Err(err)
				return
			}
			s := ShellFrom(c)
			ctx, cancel := s.Context()
			defer cancel()
			if err := cl.SetInterval(ctx, uint32(args[0])); err != nil {
				c.Err(err)
				return
			}
			s.Print(c, "OK", map[string]int64{"interval": args[0]})
		}),
	}

	// DumpCmd reads all coefficient registers.
	DumpCmd = ishell.Cmd{
		Name:    "dump",
		Aliases: []string{"x"},
		Help:    "",
		Func: MustBeConnected(func(c *ishell.Context, cl *client.Client) {
			s := ShellFrom(c)
			ctx, cancel := s.Context()
			defer cancel()
			values, err := cl.Dump(ctx)
			if err != nil {
				c.Err(err)
				return
			}
			s.Print(c, FormatDump(values), values)
		}),
	}

	// SendCmd sends a raw command line.
	SendCmd = ishell.Cmd{
		Name: "send",
		Help: "LINE",
		Func: MustBeConnected(func(c *ishell.Context, cl *client.Client) {
			s := ShellFrom(c)
			ctx, cancel := s.Context()
			defer cancel()
			resp, err := cl.Do(ctx, strings.Join(c.Args, " "))
			if _, rejected := err.(*client.ResponseError); err != nil && !rejected {
				c.Err(err)
				return
			}
			s.Print(c, resp, map[string]string{"response": resp})
		}),
	}
)
