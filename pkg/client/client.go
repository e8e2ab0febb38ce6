// Package client talks to the register console from the host side:
// it sends command lines and collects the single response line of each.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/regconsole/pkg/bridge"
	"github.com/robotalks/regconsole/pkg/console"
)

// DefaultTimeout bounds a request when ctx has no deadline.
const DefaultTimeout = 2 * time.Second

// DumpSize is the number of registers read by Dump.
const DumpSize = 64

var (
	// ErrClosed indicates the link is gone.
	ErrClosed = errors.New("client: link closed")
)

// ResponseError is a rejection reported by the console.
type ResponseError struct {
	Kind console.ErrKind
	Line string
}

// Error implements error.
func (e *ResponseError) Error() string {
	return "console: " + e.Line
}

// UnexpectedResponseError is a response that doesn't match the request.
type UnexpectedResponseError struct {
	Request  string
	Response string
}

// Error implements error.
func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("unexpected response to %q: %q", e.Request, e.Response)
}

// Client issues one request at a time.
type Client struct {
	Timeout time.Duration
	// LineSize is the line buffer size of the console, see
	// console.DefaultLineSize. Longer requests are echoed truncated.
	LineSize int

	rw     io.ReadWriter
	lines  chan string
	err    error
	doLock sync.Mutex
}

// New creates a Client and starts reading lines from rw.
func New(rw io.ReadWriter) *Client {
	c := &Client{
		Timeout:  DefaultTimeout,
		LineSize: console.DefaultLineSize,
		rw:       rw,
		lines:    make(chan string, 64),
	}
	go c.readLines()
	return c
}

func (c *Client) readLines() {
	r := bufio.NewReader(c.rw)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			c.err = err
			close(c.lines)
			return
		}
		line = strings.TrimRight(line, "\r\n")
		glog.V(3).Infof("RCV %q", line)
		c.lines <- line
	}
}

// Close closes the link if it is an io.Closer.
func (c *Client) Close() error {
	if closer, ok := c.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *Client) drain() {
	for {
		select {
		case line, ok := <-c.lines:
			if !ok {
				return
			}
			glog.V(3).Infof("discard %q", line)
		default:
			return
		}
	}
}

func (c *Client) next(ctx context.Context) (string, error) {
	select {
	case line, ok := <-c.lines:
		if !ok {
			if c.err != nil && c.err != io.EOF {
				return "", fmt.Errorf("%v: %v", ErrClosed, c.err)
			}
			return "", ErrClosed
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Do sends line and returns the response line. Output before the echo
// of line (banner, prompt) is skipped. Rejections are returned as
// *ResponseError.
func (c *Client) Do(ctx context.Context, line string) (string, error) {
	if _, ok := ctx.Deadline(); !ok && c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	c.doLock.Lock()
	defer c.doLock.Unlock()

	c.drain()
	glog.V(2).Infof("SND %q", line)
	if _, err := io.WriteString(c.rw, line+"\r"); err != nil {
		return "", err
	}
	echo := c.echoOf(line)
	for {
		got, err := c.next(ctx)
		if err != nil {
			return "", err
		}
		if isEcho(got, echo) {
			break
		}
	}
	resp, err := c.next(ctx)
	if err != nil {
		return "", err
	}
	if kind, ok := console.KindOfMessage(resp); ok {
		return resp, &ResponseError{Kind: kind, Line: resp}
	}
	return resp, nil
}

// echoOf returns the part of line the console keeps and echoes.
func (c *Client) echoOf(line string) string {
	size := c.LineSize
	if size < 2 {
		size = console.DefaultLineSize
	}
	if len(line) >= size {
		return line[:size-1]
	}
	return line
}

// isEcho reports whether got is the echo of a request. The echo may
// follow the prompt on the same line. An empty request is echoed as an
// empty line.
func isEcho(got, echo string) bool {
	if echo == "" {
		return got == "" || strings.HasSuffix(got, console.Prompt)
	}
	return strings.HasSuffix(got, echo)
}

func (c *Client) expect(ctx context.Context, cmd console.Command, format string, args ...interface{}) error {
	req := cmd.String()
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if n, err := fmt.Sscanf(resp, format, args...); err != nil || n != len(args) {
		return &UnexpectedResponseError{Request: req, Response: resp}
	}
	return nil
}

// Set writes a register.
func (c *Client) Set(ctx context.Context, addr int, value int16) error {
	var gotAddr, gotValue int
	err := c.expect(ctx, console.Command{Kind: console.CmdSet, Addr: addr, Value: int32(value)},
		"Set reg[%d] = %d", &gotAddr, &gotValue)
	if err == nil && (gotAddr != addr || gotValue != int(value)) {
		err = &UnexpectedResponseError{Request: fmt.Sprintf("S%d$%d", addr, value), Response: fmt.Sprintf("Set reg[%d] = %d", gotAddr, gotValue)}
	}
	return err
}

// Read reads a register.
func (c *Client) Read(ctx context.Context, addr int) (int16, error) {
	var gotAddr, value int
	if err := c.expect(ctx, console.Command{Kind: console.CmdRead, Addr: addr},
		"Read reg[%d] = %d", &gotAddr, &value); err != nil {
		return 0, err
	}
	if gotAddr != addr {
		return 0, &UnexpectedResponseError{Request: fmt.Sprintf("R%d", addr), Response: fmt.Sprintf("Read reg[%d] = %d", gotAddr, value)}
	}
	return int16(value), nil
}

// SetInterval changes the toggle interval in milliseconds.
func (c *Client) SetInterval(ctx context.Context, ms uint32) error {
	var got uint32
	return c.expect(ctx, console.Command{Kind: console.CmdSetInterval, Value: int32(ms)},
		"Timer interval set to: %d ms", &got)
}

// Dump reads registers 0..DumpSize-1.
func (c *Client) Dump(ctx context.Context) ([]int16, error) {
	values := make([]int16, 0, DumpSize)
	for addr := 0; addr < DumpSize && addr <= bridge.MaxAddress; addr++ {
		v, err := c.Read(ctx, addr)
		if err != nil {
			return values, fmt.Errorf("read reg[%d]: %v", addr, err)
		}
		values = append(values, v)
	}
	return values, nil
}
