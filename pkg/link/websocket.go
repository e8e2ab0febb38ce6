package link

import (
	"net"
	"net/http"
	"net/url"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"
)

// DialWebsocket connects to a websocket console server.
func DialWebsocket(u *url.URL) (Link, error) {
	origin := "http://" + u.Host + "/"
	if u.Scheme == "wss" {
		origin = "https://" + u.Host + "/"
	}
	conn, err := websocket.Dial(u.String(), "", origin)
	if err != nil {
		return nil, err
	}
	conn.PayloadType = websocket.BinaryFrame
	return &connLink{Conn: conn, desc: "WebSocket " + u.String()}, nil
}

// ListenWebsocket serves the console to one websocket client at a time
// on the URL path.
func ListenWebsocket(u *url.URL) (Link, error) {
	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return nil, err
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	mux := http.NewServeMux()
	srv := &http.Server{Handler: mux}
	l := newServerLink("WebSocket server "+ln.Addr().String()+path, srv)
	mux.Handle(path, websocket.Server{Handler: l.serveWebsocket})
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			glog.Errorf("%s: %v", l.desc, err)
		}
	}()
	return l, nil
}

func (l *serverLink) serveWebsocket(conn *websocket.Conn) {
	conn.PayloadType = websocket.BinaryFrame
	done, ok := l.admit(conn)
	if !ok {
		return
	}
	select {
	case <-done:
	case <-l.closed:
	}
}
