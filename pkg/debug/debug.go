// Package debug provides the best-effort diagnostic text channel.
// Writers never block and get no acknowledgment; text that cannot be
// delivered immediately is dropped.
package debug

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/golang/glog"
)

// Channel accepts diagnostic text.
type Channel interface {
	WriteBestEffort(text string)
}

// ChannelFunc is func form of Channel.
type ChannelFunc func(string)

// WriteBestEffort implements Channel.
func (f ChannelFunc) WriteBestEffort(text string) {
	f(text)
}

// Printf formats text into ch. ch may be nil.
func Printf(ch Channel, format string, args ...interface{}) {
	if ch != nil {
		ch.WriteBestEffort(fmt.Sprintf(format, args...))
	}
}

// Discard drops everything.
var Discard Channel = ChannelFunc(func(string) {})

// LogChannel forwards text to the log.
type LogChannel struct{}

// WriteBestEffort implements Channel.
func (LogChannel) WriteBestEffort(text string) {
	glog.Info(strings.TrimRight(text, "\n"))
}

// Mux fans text out to all channels.
type Mux []Channel

// WriteBestEffort implements Channel.
func (m Mux) WriteBestEffort(text string) {
	for _, ch := range m {
		ch.WriteBestEffort(text)
	}
}

// WriterChannel hands text over to a writer goroutine. Text is dropped
// when the goroutine is busy and the backlog is full.
type WriterChannel struct {
	W io.Writer

	textCh  chan string
	dropped atomic.Uint32
}

// NewWriterChannel creates a WriterChannel on w. With zero backlog,
// text is only accepted while the writer goroutine is idle.
func NewWriterChannel(w io.Writer, backlog int) *WriterChannel {
	return &WriterChannel{W: w, textCh: make(chan string, backlog)}
}

// Dropped returns the number of dropped writes.
func (c *WriterChannel) Dropped() uint32 {
	return c.dropped.Load()
}

// WriteBestEffort implements Channel.
func (c *WriterChannel) WriteBestEffort(text string) {
	select {
	case c.textCh <- text:
	default:
		c.dropped.Add(1)
	}
}

// Name implements Named.
func (c *WriterChannel) Name() string {
	return "debug-writer"
}

// Run implements Runnable.
func (c *WriterChannel) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case text := <-c.textCh:
			if _, err := io.WriteString(c.W, text); err != nil {
				glog.Warningf("debug write: %v", err)
			}
		}
	}
}
