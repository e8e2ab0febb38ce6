package debug

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriterChannelDropsWhenNotRunning(t *testing.T) {
	ch := NewWriterChannel(io.Discard, 0)
	ch.WriteBestEffort("lost\n")
	ch.WriteBestEffort("lost\n")
	require.Equal(t, uint32(2), ch.Dropped())
}

func TestWriterChannelDelivers(t *testing.T) {
	r, w := io.Pipe()
	ch := NewWriterChannel(w, 0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ch.Run(ctx) }()

	deadline := time.Now().Add(time.Second)
	buf := make([]byte, 64)
	read := make(chan string, 1)
	go func() {
		n, _ := r.Read(buf)
		read <- string(buf[:n])
	}()
	for {
		before := ch.Dropped()
		ch.WriteBestEffort("DEBUG: hello\n")
		if ch.Dropped() == before {
			break
		}
		require.True(t, time.Now().Before(deadline), "writer goroutine never ready")
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, "DEBUG: hello\n", <-read)

	cancel()
	require.Equal(t, context.Canceled, <-done)
}

func TestWriterChannelBacklog(t *testing.T) {
	ch := NewWriterChannel(io.Discard, 2)
	ch.WriteBestEffort("one\n")
	ch.WriteBestEffort("two\n")
	ch.WriteBestEffort("three\n")
	require.Equal(t, uint32(1), ch.Dropped())
}

func TestMux(t *testing.T) {
	var a, b []string
	m := Mux{
		ChannelFunc(func(s string) { a = append(a, s) }),
		ChannelFunc(func(s string) { b = append(b, s) }),
		LogChannel{},
		Discard,
	}
	Printf(m, "PE=%d", 3)
	Printf(nil, "ignored")
	require.Equal(t, []string{"PE=3"}, a)
	require.Equal(t, []string{"PE=3"}, b)
}
