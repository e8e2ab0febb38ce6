package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/regconsole/pkg/bridge"
	"github.com/robotalks/regconsole/pkg/console"
	fx "github.com/robotalks/regconsole/pkg/framework"
	"github.com/robotalks/regconsole/pkg/link"
	"github.com/robotalks/regconsole/pkg/timer"
	"github.com/robotalks/regconsole/pkg/uart"
)

type testConsole struct {
	mem      *bridge.Memory
	interval *timer.Interval
	client   *Client
	cancel   context.CancelFunc
	done     chan error
}

func startConsole(t *testing.T) *testConsole {
	return startConsoleWithLineSize(t, console.DefaultLineSize)
}

func startConsoleWithLineSize(t *testing.T, lineSize int) *testConsole {
	devLink, hostLink := link.Pipe()
	tc := &testConsole{
		mem:      bridge.NewMemory(),
		interval: timer.NewInterval(timer.DefaultInterval),
		done:     make(chan error, 1),
	}
	port := uart.NewPort(devLink, uart.DefaultRingSize)
	con := console.New(port, port.Out(), console.NewDispatcher(tc.mem, tc.interval), lineSize)
	con.PrintBanner(devLink.String())

	loop := fx.NewLoop()
	loop.Add(port, con)
	var ctx context.Context
	ctx, tc.cancel = context.WithCancel(context.Background())
	go func() { tc.done <- loop.Run(ctx) }()

	tc.client = New(hostLink)
	tc.client.LineSize = lineSize
	return tc
}

func (tc *testConsole) stop() {
	tc.cancel()
	<-tc.done
	tc.client.Close()
}

func TestClientRoundTrip(t *testing.T) {
	tc := startConsole(t)
	defer tc.stop()
	ctx := context.Background()

	require.NoError(t, tc.client.Set(ctx, 10, -500))
	w, err := tc.mem.ReadRegister(10)
	require.NoError(t, err)
	require.Equal(t, int16(-500), bridge.Low16(w))

	v, err := tc.client.Read(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, int16(-500), v)

	require.NoError(t, tc.client.SetInterval(ctx, 3000))
	require.Equal(t, uint32(3000), tc.interval.Get())
}

func TestClientRejections(t *testing.T) {
	tc := startConsole(t)
	defer tc.stop()
	ctx := context.Background()

	cases := []struct {
		line string
		kind console.ErrKind
	}{
		{"S70$1", console.ErrAddressRange},
		{"Xhello", console.ErrUnknownCommand},
		{"S1", console.ErrFormat},
		{"T99", console.ErrValueRange},
		{"Tabc", console.ErrInvalidInterval},
	}
	for _, c := range cases {
		resp, err := tc.client.Do(ctx, c.line)
		require.Error(t, err, c.line)
		rerr, ok := err.(*ResponseError)
		require.True(t, ok, c.line)
		require.Equal(t, c.kind, rerr.Kind, c.line)
		require.Equal(t, c.kind.Message(), resp)
	}
	require.Equal(t, timer.DefaultInterval, tc.interval.Get())
}

func TestClientDump(t *testing.T) {
	tc := startConsole(t)
	defer tc.stop()
	require.NoError(t, bridge.Preload(tc.mem, bridge.Coefficients[:]))

	values, err := tc.client.Dump(context.Background())
	require.NoError(t, err)
	require.Equal(t, bridge.Coefficients[:], values)
}

func TestClientClosedLink(t *testing.T) {
	a, b := link.Pipe()
	c := New(b)
	a.Close()
	_, err := c.Do(context.Background(), "R1")
	require.Error(t, err)
}

func TestIsEcho(t *testing.T) {
	cases := []struct {
		got, echo string
		match     bool
	}{
		{"R1", "R1", true},
		{"Ready> R1", "R1", true},
		{"Read reg[1] = 0", "R1", false},
		{"", "", true},
		{"Ready> ", "", true},
		{"Read reg[1] = 0", "", false},
		{"*** FIR FPGA Console ***", "", false},
	}
	for _, c := range cases {
		require.Equal(t, c.match, isEcho(c.got, c.echo), "%q/%q", c.got, c.echo)
	}
}

func TestClientEmptyRequest(t *testing.T) {
	tc := startConsole(t)
	defer tc.stop()
	ctx := context.Background()

	_, err := tc.client.Read(ctx, 1)
	require.NoError(t, err)
	resp, err := tc.client.Do(ctx, "")
	require.Error(t, err)
	require.Equal(t, console.ErrUnknownCommand.Message(), resp)
}

func TestClientLineSize(t *testing.T) {
	tc := startConsoleWithLineSize(t, 8)
	defer tc.stop()
	ctx := context.Background()

	// only "S1$0000" fits the console line
	resp, err := tc.client.Do(ctx, "S1$00000000012")
	require.NoError(t, err)
	require.Equal(t, "Set reg[1] = 0", resp)

	require.Equal(t, "R12", tc.client.echoOf("R12"))
	require.Equal(t, "S1$0000", tc.client.echoOf("S1$00000000012"))
}
