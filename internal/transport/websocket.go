package transport

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"

	"golang.org/x/net/websocket"
)

// WebsocketListener serves MQTT-over-WebSocket (and, with a TLSConfig,
// WebSocket-over-TLS) by running an http.Server whose single handler
// upgrades every request to a binary-frame websocket.Conn, which
// implements net.Conn and so can be wrapped exactly like a TCP
// accept.
type WebsocketListener struct {
	addr      string
	path      string
	tlsConfig *tls.Config
	server    *http.Server

	connSeq  atomic.Uint64
	handlers []ConnectionHandler
}

// NewWebsocketListener constructs a listener for addr (e.g. ":8083")
// serving the upgrade at path (e.g. "/mqtt"). A non-nil tlsConfig
// serves WSS instead of WS.
func NewWebsocketListener(addr, path string, tlsConfig *tls.Config) *WebsocketListener {
	return &WebsocketListener{addr: addr, path: path, tlsConfig: tlsConfig}
}

// OnConnection registers a handler invoked for every upgraded
// connection. Handlers run sequentially in registration order, as with
// Listener.OnConnection, but the connection is closed as soon as the
// handlers return, whether or not one of them returned an error.
func (w *WebsocketListener) OnConnection(handler ConnectionHandler) {
	w.handlers = append(w.handlers, handler)
}

// Start begins serving; it returns once the listening socket is open,
// with Serve running on its own goroutine.
func (w *WebsocketListener) Start() error {
	mux := http.NewServeMux()
	mux.Handle(w.path, websocket.Handler(w.handleConn))

	w.server = &http.Server{Addr: w.addr, Handler: mux, TLSConfig: w.tlsConfig}

	ln, err := net.Listen("tcp", w.addr)
	if err != nil {
		return fmt.Errorf("failed to start websocket listener: %w", err)
	}

	go func() {
		if w.tlsConfig != nil {
			_ = w.server.ServeTLS(ln, "", "")
		} else {
			_ = w.server.Serve(ln)
		}
	}()
	return nil
}

func (w *WebsocketListener) handleConn(ws *websocket.Conn) {
	ws.PayloadType = websocket.BinaryFrame

	seq := w.connSeq.Add(1)
	conn := NewConnection(ws, fmt.Sprintf("ws-%d", seq), DefaultConnectionConfig())
	defer conn.Close()

	for _, handler := range w.handlers {
		if err := handler(conn); err != nil {
			return
		}
	}
}

// Close shuts down the underlying http.Server.
func (w *WebsocketListener) Close() error {
	if w.server == nil {
		return nil
	}
	return w.server.Close()
}
