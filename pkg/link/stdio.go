package link

import (
	"bytes"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// Keys ending a stdio session in raw mode.
const (
	keyInterrupt = 0x03
	keyEOF       = 0x04
)

type stdioLink struct {
	in    io.Reader
	out   io.Writer
	fd    int
	state *term.State
	eof   bool
	once  sync.Once
}

// OpenStdio uses the process terminal as the link. When stdin is a
// terminal it is switched to raw mode until Close, and Ctrl-C or
// Ctrl-D ends the input.
func OpenStdio() (Link, error) {
	l := &stdioLink{in: os.Stdin, out: os.Stdout, fd: int(os.Stdin.Fd())}
	if term.IsTerminal(l.fd) {
		state, err := term.MakeRaw(l.fd)
		if err != nil {
			return nil, err
		}
		l.state = state
	}
	return l, nil
}

func (l *stdioLink) String() string {
	return "stdio"
}

// Read implements io.Reader.
func (l *stdioLink) Read(p []byte) (int, error) {
	if l.eof {
		return 0, io.EOF
	}
	n, err := l.in.Read(p)
	if l.state == nil {
		return n, err
	}
	if pos := bytes.IndexAny(p[:n], string([]byte{keyInterrupt, keyEOF})); pos >= 0 {
		l.eof = true
		if pos == 0 {
			return 0, io.EOF
		}
		return pos, nil
	}
	return n, err
}

// Write implements io.Writer.
func (l *stdioLink) Write(p []byte) (int, error) {
	return l.out.Write(p)
}

// Close restores the terminal.
func (l *stdioLink) Close() (err error) {
	l.once.Do(func() {
		if l.state != nil {
			err = term.Restore(l.fd, l.state)
		}
	})
	return
}
