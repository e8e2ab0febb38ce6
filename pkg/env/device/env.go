// Package device assembles the register console from a Config: the
// link, the serial port, the register bridge, the command console, the
// tick source and toggle, and the debug and telemetry sinks.
package device

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/regconsole/pkg/bridge"
	"github.com/robotalks/regconsole/pkg/console"
	"github.com/robotalks/regconsole/pkg/debug"
	fx "github.com/robotalks/regconsole/pkg/framework"
	"github.com/robotalks/regconsole/pkg/link"
	"github.com/robotalks/regconsole/pkg/telemetry"
	"github.com/robotalks/regconsole/pkg/timer"
	"github.com/robotalks/regconsole/pkg/uart"
)

// debugBacklog is the number of debug lines queued for a slow writer.
const debugBacklog = 16

// connectTimeout bounds the initial MQTT connection.
const connectTimeout = 5 * time.Second

// Env is the assembled console device.
type Env struct {
	Config    *Config
	Link      link.Link
	Bridge    bridge.Bridge
	Port      *uart.Port
	Interval  *timer.Interval
	Ticker    *timer.Ticker
	Toggle    *timer.Toggle
	Console   *console.Console
	Debug     debug.Mux
	Telemetry *telemetry.Publisher

	runners  []fx.Runnable
	closers  []io.Closer
	started  bool
	attached atomic.Bool
}

// NewEnv creates Env from config.
func (c *Config) NewEnv() (*Env, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	b, bridgeCloser, err := bridge.Open(c.Bridge)
	if err != nil {
		return nil, fmt.Errorf("open bridge error: %v", err)
	}
	lnk, err := link.Open(c.Link)
	if err != nil {
		bridgeCloser.Close()
		return nil, fmt.Errorf("open link error: %v", err)
	}
	env := &Env{Config: c, closers: []io.Closer{bridgeCloser}}
	env.setup(lnk, b)
	if err := env.setupDebug(); err != nil {
		env.Close()
		return nil, err
	}
	return env, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	env, err := c.NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	return env
}

// NewEnvWith assembles Env on an opened link and bridge, without
// debug or telemetry sinks.
func (c *Config) NewEnvWith(lnk link.Link, b bridge.Bridge) *Env {
	env := &Env{Config: c}
	env.setup(lnk, b)
	return env
}

func (e *Env) setup(lnk link.Link, b bridge.Bridge) {
	c := e.Config
	e.Link, e.Bridge = lnk, b
	e.Port = uart.NewPort(lnk, c.RingSize)
	e.Port.CharTimeout = c.CharTimeout
	e.Interval = timer.NewInterval(c.Interval)
	e.Ticker = &timer.Ticker{Period: c.TickPeriod}
	e.Toggle = timer.NewToggle(e.Ticker, e.Interval, timer.LogOutput{})
	e.Toggle.OnToggle = e.onToggle
	e.Console = console.New(e.Port, e.Port.Out(), console.NewDispatcher(b, e.Interval), c.LineSize)
	e.closers = append(e.closers, lnk)
	e.runners = append(e.runners, e.Ticker)
}

func (e *Env) setupDebug() error {
	c := e.Config
	if c.DebugLog {
		e.Debug = append(e.Debug, debug.LogChannel{})
	}
	if c.DebugFile != "" {
		var w io.Writer = os.Stderr
		if c.DebugFile != "-" {
			f, err := os.OpenFile(c.DebugFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
			if err != nil {
				return fmt.Errorf("open debug file error: %v", err)
			}
			e.closers = append(e.closers, f)
			w = f
		}
		ch := debug.NewWriterChannel(w, debugBacklog)
		e.Debug = append(e.Debug, ch)
		e.runners = append(e.runners, ch)
	}
	if c.MQTTBrokerURL != "" {
		q, err := telemetry.NewQueueFromURL(c.MQTTBrokerURL)
		if err != nil {
			return fmt.Errorf("invalid MQTT URL: %v", err)
		}
		e.closers = append(e.closers, q)
		if token := q.Connect(); !token.WaitTimeout(connectTimeout) {
			glog.Warningf("MQTT connect timeout, telemetry unavailable")
		} else if err := token.Error(); err != nil {
			glog.Warningf("MQTT connect error, telemetry unavailable: %v", err)
		}
		e.Telemetry = telemetry.NewPublisher(q, c.Device, e)
		e.Telemetry.Period = c.StatusPeriod
		e.Debug = append(e.Debug, e.Telemetry)
		e.runners = append(e.runners, e.Telemetry)
	}
	return nil
}

func (e *Env) onToggle(count uint32) {
	if count%e.Config.ToggleReport != 0 {
		return
	}
	cnt := e.Port.Counters()
	debug.Printf(e.Debug, "DEBUG: PIO toggling, errors: PE=%d FE=%d OE=%d\n",
		cnt.Parity, cnt.Framing, cnt.Overrun)
}

// Snapshot implements telemetry.SnapshotSource.
func (e *Env) Snapshot() telemetry.Snapshot {
	cnt := e.Port.Counters()
	ring := e.Port.Ring()
	return telemetry.Snapshot{
		Device:     e.Config.Device,
		Ticks:      e.Ticker.Ticks(),
		Interval:   e.Interval.Get(),
		Level:      e.Toggle.Level(),
		Toggles:    e.Toggle.Count(),
		Parity:     cnt.Parity,
		Framing:    cnt.Framing,
		Overrun:    cnt.Overrun,
		Overwrites: e.Port.Overwrites(),
		RingLen:    ring.Len(),
		RingCap:    ring.Cap(),
	}
}

// Start runs the startup sequence once: preload, startup debug text
// and the banner. It must run on the foreground loop.
func (e *Env) Start() error {
	if e.started {
		return nil
	}
	e.started = true
	e.attached.Store(false)
	debug.Printf(e.Debug, "=== DEBUG: System Starting ===\n")
	debug.Printf(e.Debug, "DEBUG: UART initialized - %s\n", e.Link)
	if e.Config.Preload {
		debug.Printf(e.Debug, "DEBUG: Preloading FIR coefficients...\n")
		if err := bridge.Preload(e.Bridge, bridge.Coefficients[:]); err != nil {
			debug.Printf(e.Debug, "DEBUG: FIR preload failed: %v\n", err)
			glog.Errorf("preload error: %v", err)
		} else {
			debug.Printf(e.Debug, "DEBUG: FIR coefficients loaded\n")
		}
	}
	e.Console.PrintBanner(e.Link.String())
	debug.Printf(e.Debug, "DEBUG: System ready, entering main loop\n")
	return nil
}

// Greet prepares the console for a newly attached client: the partial
// line of the previous client is dropped and the banner is printed
// again. It must run on the foreground loop.
func (e *Env) Greet() {
	e.Console.Reset()
	e.Console.PrintBanner(e.Link.String())
}

// AddToLoop implements LoopAdder.
func (e *Env) AddToLoop(loop *fx.Loop) {
	if n, ok := e.Link.(link.AttachNotifier); ok {
		n.OnAttach(func() {
			e.attached.Store(true)
			loop.TriggerNext()
		})
	}
	loop.AddController(fx.PrLvTop, fx.ControlFunc(func(fx.ControlContext) error {
		if err := e.Start(); err != nil {
			return err
		}
		if e.attached.Swap(false) {
			e.Greet()
		}
		return nil
	}))
	loop.AddRunnable(e.runners...)
	loop.Add(e.Port, e.Console, e.Toggle)
}

// Close releases link, bridge and sinks.
func (e *Env) Close() error {
	var errs fx.AggregatedError
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs.Add(e.closers[i].Close())
	}
	return errs.Aggregate()
}
