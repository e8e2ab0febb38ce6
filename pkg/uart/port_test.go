package uart

import (
	"context"
	"io"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type chanReadWriter struct {
	readCh  chan byte
	writeCh chan byte
}

func newChanReadWriter() *chanReadWriter {
	return &chanReadWriter{
		readCh:  make(chan byte, 64),
		writeCh: make(chan byte, 1024),
	}
}

func (c *chanReadWriter) Read(p []byte) (int, error) {
	b, ok := <-c.readCh
	if !ok {
		return 0, io.EOF
	}
	p[0] = b
	return 1, nil
}

func (c *chanReadWriter) Write(p []byte) (int, error) {
	for _, b := range p {
		c.writeCh <- b
	}
	return len(p), nil
}

func (c *chanReadWriter) expect(t *testing.T, s string) {
	for i := 0; i < len(s); i++ {
		select {
		case b := <-c.writeCh:
			require.Equalf(t, s[i], b, "byte[%d] of %q mismatch", i, s)
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("byte[%d] of %q timeout", i, s)
		}
	}
}

func TestLatchOverwrite(t *testing.T) {
	var l Latch
	_, ok := l.Take()
	require.False(t, ok)

	l.Store('a')
	require.True(t, l.Valid())
	l.Store('b')
	require.Equal(t, uint32(1), l.Overwrites())

	b, ok := l.Take()
	require.True(t, ok)
	require.Equal(t, byte('b'), b)
	require.False(t, l.Valid())
	_, ok = l.Take()
	require.False(t, ok)
}

func TestCountersSaturate(t *testing.T) {
	p := NewPort(newChanReadWriter(), 8)
	p.counters.parity.Store(math.MaxUint32 - 1)
	p.HandleRx(Frame{Status: StatusRRDY | StatusPE})
	require.Equal(t, uint32(math.MaxUint32), p.Counters().Parity)
	p.HandleRx(Frame{Status: StatusRRDY | StatusPE})
	require.Equal(t, uint32(math.MaxUint32), p.Counters().Parity)

	var l Latch
	l.overwrites.Store(math.MaxUint32)
	l.Store('a')
	l.Store('b')
	require.Equal(t, uint32(math.MaxUint32), l.Overwrites())
}

func TestHandleRxErrors(t *testing.T) {
	testCases := []struct {
		name    string
		frames  []Frame
		expect  Counters
		latched bool
		data    byte
	}{
		{
			name:    "data",
			frames:  []Frame{{Status: StatusRRDY, Data: 'x'}},
			latched: true,
			data:    'x',
		},
		{
			name:   "parity consumes data",
			frames: []Frame{{Status: StatusRRDY | StatusPE, Data: 'x'}},
			expect: Counters{Parity: 1},
		},
		{
			name:   "all errors at once",
			frames: []Frame{{Status: StatusRRDY | StatusPE | StatusFE | StatusROE, Data: 'x'}},
			expect: Counters{Parity: 1, Framing: 1, Overrun: 1},
		},
		{
			name:    "overrun keeps data",
			frames:  []Frame{{Status: StatusRRDY | StatusROE, Data: 'y'}},
			expect:  Counters{Overrun: 1},
			latched: true,
			data:    'y',
		},
		{
			name: "counters accumulate",
			frames: []Frame{
				{Status: StatusFE},
				{Status: StatusFE},
				{Status: StatusROE},
			},
			expect: Counters{Framing: 2, Overrun: 1},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPort(nil, 8)
			var notified int
			p.Notify = func() { notified++ }
			for _, f := range tc.frames {
				p.HandleRx(f)
			}
			require.Equal(t, tc.expect, p.Counters())
			b, ok := p.Take()
			require.Equal(t, tc.latched, ok)
			if tc.latched {
				require.Equal(t, tc.data, b)
				require.Equal(t, 1, notified)
			} else {
				require.Zero(t, notified)
			}
		})
	}
}

func TestHandleTxDisarms(t *testing.T) {
	p := NewPort(nil, 8)
	out := p.Out()
	require.False(t, p.TxArmed())
	out.Puts("a\n")
	require.True(t, p.TxArmed())

	rw := newChanReadWriter()
	for i := 0; i < 3; i++ {
		sent, err := p.HandleTx(rw)
		require.NoError(t, err)
		require.True(t, sent)
	}
	sent, err := p.HandleTx(rw)
	require.NoError(t, err)
	require.False(t, sent)
	require.False(t, p.TxArmed())
	rw.expect(t, "a\r\n")
}

func TestPortPumps(t *testing.T) {
	rw := newChanReadWriter()
	p := NewPort(rw, 16)
	p.CharTimeout = time.Second
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.RunRx(ctx)
	go p.RunTx(ctx)

	out := p.Out()
	out.Puts("hello\n")
	rw.expect(t, "hello\r\n")

	for _, c := range []byte("R1\r") {
		rw.readCh <- c
	}
	var got []byte
	deadline := time.After(time.Second)
	for len(got) < 3 {
		if b, ok := p.Take(); ok {
			got = append(got, b)
			continue
		}
		select {
		case <-deadline:
			t.Fatalf("received %q only", got)
		case <-time.After(time.Millisecond):
		}
	}
	require.Equal(t, []byte("R1\r"), got)
	require.Zero(t, p.Overwrites())
}

func TestPortOutputDropWhenFull(t *testing.T) {
	p := NewPort(nil, 4)
	out := p.Out()
	require.Equal(t, 2, out.Puts("abcde"))
	n, err := out.Write([]byte("x"))
	require.Equal(t, ErrRingFull, err)
	require.Zero(t, n)
}
