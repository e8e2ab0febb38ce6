// Package link opens the byte stream the serial port is attached to.
// Links are selected by URL:
//
//	serial:///dev/ttyUSB0?baud=115200&parity=N
//	tcp://host:2323
//	tcp-listen://:2323
//	ws://host:8080/console
//	ws-listen://:8080/console
//	stdio:
package link

import (
	"fmt"
	"io"
	"net"
	"net/url"
)

// Link is an open byte link.
type Link interface {
	io.ReadWriteCloser
	// String describes the link for the startup banner.
	String() string
}

// AttachNotifier is implemented by links serving clients which come
// and go. fn is invoked each time a client is attached.
type AttachNotifier interface {
	OnAttach(fn func())
}

// Open opens a link by URL.
func Open(rawURL string) (Link, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid link URL: %v", err)
	}
	switch u.Scheme {
	case "serial":
		return OpenSerial(u)
	case "tcp":
		conn, err := net.Dial("tcp", u.Host)
		if err != nil {
			return nil, err
		}
		return &connLink{Conn: conn, desc: "TCP " + u.Host}, nil
	case "tcp-listen":
		return ListenTCP(u.Host)
	case "ws", "wss":
		return DialWebsocket(u)
	case "ws-listen":
		return ListenWebsocket(u)
	case "stdio":
		return OpenStdio()
	}
	return nil, fmt.Errorf("unknown link URL scheme: %q", u.Scheme)
}

type connLink struct {
	net.Conn
	desc string
}

func (l *connLink) String() string {
	return l.desc
}

// Pipe creates an in-process pair of connected links.
func Pipe() (Link, Link) {
	a, b := net.Pipe()
	return &connLink{Conn: a, desc: "pipe"}, &connLink{Conn: b, desc: "pipe"}
}
