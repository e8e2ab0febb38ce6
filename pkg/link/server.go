package link

import (
	"io"
	"net"
	"sync"

	"github.com/golang/glog"
)

// BusyMessage is sent to a client rejected because another one is
// attached.
const BusyMessage = "console busy\r\n"

// serverLink serves exactly one client at a time. Reads block until a
// client is attached. Writes without a client are discarded.
type serverLink struct {
	desc   string
	closer io.Closer

	lock     sync.Mutex
	onAttach func()
	conn     net.Conn
	done     chan struct{}
	attached chan struct{}
	closed   chan struct{}
	once     sync.Once
}

func newServerLink(desc string, closer io.Closer) *serverLink {
	return &serverLink{
		desc:     desc,
		closer:   closer,
		attached: make(chan struct{}),
		closed:   make(chan struct{}),
	}
}

func (l *serverLink) String() string {
	return l.desc
}

// attach makes conn the current client. The returned channel is closed
// when the client is detached. ok is false when a client is attached.
func (l *serverLink) attach(conn net.Conn) (done <-chan struct{}, ok bool) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.conn != nil {
		return nil, false
	}
	glog.Infof("%s: client %s attached", l.desc, conn.RemoteAddr())
	l.conn, l.done = conn, make(chan struct{})
	close(l.attached)
	l.attached = make(chan struct{})
	return l.done, true
}

// OnAttach implements AttachNotifier.
func (l *serverLink) OnAttach(fn func()) {
	l.lock.Lock()
	l.onAttach = fn
	l.lock.Unlock()
}

// admit attaches conn or rejects it when another client is attached.
func (l *serverLink) admit(conn net.Conn) (<-chan struct{}, bool) {
	done, ok := l.attach(conn)
	if !ok {
		l.reject(conn)
		return nil, false
	}
	l.lock.Lock()
	fn := l.onAttach
	l.lock.Unlock()
	if fn != nil {
		fn()
	}
	return done, true
}

func (l *serverLink) detach(conn net.Conn) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.conn != conn {
		return
	}
	glog.Infof("%s: client %s detached", l.desc, conn.RemoteAddr())
	conn.Close()
	close(l.done)
	l.conn, l.done = nil, nil
}

func (l *serverLink) reject(conn net.Conn) {
	glog.Warningf("%s: client %s rejected, console busy", l.desc, conn.RemoteAddr())
	io.WriteString(conn, BusyMessage)
	conn.Close()
}

func (l *serverLink) current() (net.Conn, <-chan struct{}) {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.conn, l.attached
}

// Read implements io.Reader.
func (l *serverLink) Read(p []byte) (int, error) {
	for {
		conn, attached := l.current()
		if conn == nil {
			select {
			case <-attached:
				continue
			case <-l.closed:
				return 0, io.EOF
			}
		}
		n, err := conn.Read(p)
		if err != nil {
			l.detach(conn)
		}
		if n > 0 {
			return n, nil
		}
	}
}

// Write implements io.Writer.
func (l *serverLink) Write(p []byte) (int, error) {
	conn, _ := l.current()
	if conn == nil {
		return len(p), nil
	}
	if _, err := conn.Write(p); err != nil {
		l.detach(conn)
	}
	return len(p), nil
}

// Close implements io.Closer.
func (l *serverLink) Close() (err error) {
	l.once.Do(func() {
		close(l.closed)
		err = l.closer.Close()
		if conn, _ := l.current(); conn != nil {
			l.detach(conn)
		}
	})
	return
}

// ListenTCP serves the console to one TCP client at a time.
func ListenTCP(addr string) (Link, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	l := newServerLink("TCP server "+ln.Addr().String(), ln)
	go l.acceptLoop(ln)
	return l, nil
}

func (l *serverLink) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-l.closed:
			default:
				glog.Errorf("%s: accept: %v", l.desc, err)
			}
			return
		}
		l.admit(conn)
	}
}
