package link

import (
	"bufio"
	"io"
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/jacobsa/go-serial/serial"
	"github.com/stretchr/testify/require"
)

func TestSerialOptions(t *testing.T) {
	cases := []struct {
		url  string
		name string
		baud uint
		par  serial.ParityMode
		desc string
		fail bool
	}{
		{url: "serial:///dev/ttyUSB0", name: "/dev/ttyUSB0", baud: 115200, par: serial.PARITY_NONE, desc: "RS232 UART: 115200 baud, 8N1"},
		{url: "serial:///dev/ttyS1?baud=9600&parity=e", name: "/dev/ttyS1", baud: 9600, par: serial.PARITY_EVEN, desc: "RS232 UART: 9600 baud, 8E1"},
		{url: "serial:COM3?parity=O", name: "COM3", baud: 115200, par: serial.PARITY_ODD, desc: "RS232 UART: 115200 baud, 8O1"},
		{url: "serial://", fail: true},
		{url: "serial:///dev/ttyS0?baud=fast", fail: true},
		{url: "serial:///dev/ttyS0?parity=M", fail: true},
	}
	for _, c := range cases {
		t.Run(c.url, func(t *testing.T) {
			u, err := url.Parse(c.url)
			require.NoError(t, err)
			opts, err := SerialOptions(u)
			if c.fail {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, c.name, opts.PortName)
			require.Equal(t, c.baud, opts.BaudRate)
			require.Equal(t, c.par, opts.ParityMode)
			require.Equal(t, uint(1), opts.MinimumReadSize)
			require.Equal(t, c.desc, DescribeSerial(opts))
		})
	}
}

func TestOpenUnknownScheme(t *testing.T) {
	_, err := Open("carrier-pigeon://coop")
	require.Error(t, err)
}

func TestPipe(t *testing.T) {
	a, b := Pipe()
	defer a.Close()
	defer b.Close()
	go a.Write([]byte("R1\r"))
	buf := make([]byte, 3)
	_, err := io.ReadFull(b, buf)
	require.NoError(t, err)
	require.Equal(t, "R1\r", string(buf))
}

func TestListenTCPSingleClient(t *testing.T) {
	l, err := Open("tcp-listen://127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	addr := l.(*serverLink).closer.(net.Listener).Addr().String()

	// no client: writes are discarded
	n, err := l.Write([]byte("lost"))
	require.NoError(t, err)
	require.Equal(t, 4, n)

	first, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer first.Close()
	_, err = first.Write([]byte("T200\r"))
	require.NoError(t, err)

	buf := make([]byte, 5)
	_, err = io.ReadFull(l, buf)
	require.NoError(t, err)
	require.Equal(t, "T200\r", string(buf))

	_, err = l.Write([]byte("ok\r\n"))
	require.NoError(t, err)
	first.SetReadDeadline(time.Now().Add(time.Second))
	line, err := bufio.NewReader(first).ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "ok\r\n", line)

	second, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer second.Close()
	second.SetReadDeadline(time.Now().Add(time.Second))
	line, err = bufio.NewReader(second).ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, BusyMessage, line)
}

func TestListenTCPReattach(t *testing.T) {
	l, err := ListenTCP("127.0.0.1:0")
	require.NoError(t, err)
	sl := l.(*serverLink)
	addr := sl.closer.(net.Listener).Addr().String()

	first, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	first.Write([]byte("a"))
	buf := make([]byte, 1)
	_, err = io.ReadFull(l, buf)
	require.NoError(t, err)
	first.Close()

	got := make(chan byte, 1)
	go func() {
		b := make([]byte, 1)
		if _, err := io.ReadFull(l, b); err == nil {
			got <- b[0]
		}
	}()
	deadline := time.Now().Add(time.Second)
	for {
		if conn, _ := sl.current(); conn == nil {
			break
		}
		require.True(t, time.Now().Before(deadline), "first client not detached")
		time.Sleep(time.Millisecond)
	}

	second, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer second.Close()
	second.Write([]byte("b"))
	select {
	case c := <-got:
		require.Equal(t, byte('b'), c)
	case <-time.After(time.Second):
		t.Fatal("second client not attached")
	}

	require.NoError(t, l.Close())
	_, err = l.Read(buf)
	require.Equal(t, io.EOF, err)
}

func TestListenTCPOnAttach(t *testing.T) {
	l, err := ListenTCP("127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	attached := make(chan struct{}, 4)
	l.(AttachNotifier).OnAttach(func() { attached <- struct{}{} })
	addr := l.(*serverLink).closer.(net.Listener).Addr().String()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	select {
	case <-attached:
	case <-time.After(time.Second):
		t.Fatal("attach not notified")
	}

	busy, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer busy.Close()
	busy.SetReadDeadline(time.Now().Add(time.Second))
	line, err := bufio.NewReader(busy).ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, BusyMessage, line)
	require.Empty(t, attached)
}
