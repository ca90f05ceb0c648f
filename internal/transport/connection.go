// Package transport supplies the byte-stream transports the core's
// handshake driver runs over: plain TCP, TLS, and WebSocket/WebSocket
// over TLS. The core itself is transport-agnostic; it only requires a
// paired reader/writer, which Connection satisfies.
package transport

import (
	"crypto/tls"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// ConnectionState is the lifecycle state of an accepted connection.
type ConnectionState int32

const (
	StateConnected ConnectionState = iota
	StateClosing
	StateClosed
)

// Connection wraps a net.Conn with idempotent close, activity
// tracking, and byte counters, presenting the plain io.ReadWriter
// interface the handshake driver's Framer consumes.
type Connection struct {
	conn          net.Conn
	id            string
	state         atomic.Int32
	lastActivity  atomic.Int64
	readDeadline  time.Duration
	writeDeadline time.Duration

	tlsConn *tls.Conn
	isTLS   bool

	closeOnce sync.Once
	closeCh   chan struct{}

	bytesRead    atomic.Uint64
	bytesWritten atomic.Uint64
}

// ConnectionConfig configures per-connection deadlines and keepalive.
type ConnectionConfig struct {
	KeepAlive     time.Duration
	ReadDeadline  time.Duration
	WriteDeadline time.Duration
}

// DefaultConnectionConfig mirrors the listener's default accept-time
// settings.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		KeepAlive:     30 * time.Second,
		ReadDeadline:  60 * time.Second,
		WriteDeadline: 30 * time.Second,
	}
}

// NewConnection wraps conn, applying cfg's keepalive/deadlines.
func NewConnection(conn net.Conn, id string, cfg *ConnectionConfig) *Connection {
	if cfg == nil {
		cfg = DefaultConnectionConfig()
	}

	c := &Connection{
		conn:          conn,
		id:            id,
		readDeadline:  cfg.ReadDeadline,
		writeDeadline: cfg.WriteDeadline,
		closeCh:       make(chan struct{}),
	}
	c.state.Store(int32(StateConnected))
	c.updateActivity()

	if tlsConn, ok := conn.(*tls.Conn); ok {
		c.tlsConn = tlsConn
		c.isTLS = true
	}
	if cfg.KeepAlive > 0 {
		if tcpConn, ok := conn.(*net.TCPConn); ok {
			_ = tcpConn.SetKeepAlive(true)
			_ = tcpConn.SetKeepAlivePeriod(cfg.KeepAlive)
		}
	}
	return c
}

func (c *Connection) ID() string            { return c.id }
func (c *Connection) RemoteAddr() net.Addr  { return c.conn.RemoteAddr() }
func (c *Connection) LocalAddr() net.Addr   { return c.conn.LocalAddr() }
func (c *Connection) State() ConnectionState { return ConnectionState(c.state.Load()) }
func (c *Connection) IsTLS() bool           { return c.isTLS }

// Read implements io.Reader, feeding the handshake driver's Framer.
func (c *Connection) Read(b []byte) (int, error) {
	if c.State() != StateConnected {
		return 0, ErrConnectionClosed
	}
	if c.readDeadline > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.readDeadline))
	}
	n, err := c.conn.Read(b)
	if n > 0 {
		c.bytesRead.Add(uint64(n))
		c.updateActivity()
	}
	return n, err
}

// Write implements io.Writer, used for CONNACK and subsequent frames.
func (c *Connection) Write(b []byte) (int, error) {
	if c.State() != StateConnected {
		return 0, ErrConnectionClosed
	}
	if c.writeDeadline > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeDeadline))
	}
	n, err := c.conn.Write(b)
	if n > 0 {
		c.bytesWritten.Add(uint64(n))
		c.updateActivity()
	}
	return n, err
}

// Close is idempotent: a second call is a no-op returning nil.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosing))
		close(c.closeCh)
		err = c.conn.Close()
		c.state.Store(int32(StateClosed))
	})
	return err
}

// CloseChan returns a channel that is closed once Close runs. The
// handshake driver does not select on it; it only reads and writes the
// Connection as a plain io.ReadWriter.
func (c *Connection) CloseChan() <-chan struct{} { return c.closeCh }

func (c *Connection) updateActivity() { c.lastActivity.Store(time.Now().UnixNano()) }
func (c *Connection) LastActivity() time.Time { return time.Unix(0, c.lastActivity.Load()) }
func (c *Connection) IdleDuration() time.Duration { return time.Since(c.LastActivity()) }
func (c *Connection) BytesRead() uint64    { return c.bytesRead.Load() }
func (c *Connection) BytesWritten() uint64 { return c.bytesWritten.Load() }

// TLSConnectionState returns the negotiated TLS state, if this
// connection is a TLS connection.
func (c *Connection) TLSConnectionState() (tls.ConnectionState, bool) {
	if c.tlsConn != nil {
		return c.tlsConn.ConnectionState(), true
	}
	return tls.ConnectionState{}, false
}
