package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// ListenerConfig configures a TCP or TLS Listener.
type ListenerConfig struct {
	Address        string
	TLSConfig      *tls.Config
	TCPKeepAlive   time.Duration
	AcceptTimeout  time.Duration
	MaxConnections int
}

// DefaultListenerConfig returns sane defaults for address.
func DefaultListenerConfig(address string) *ListenerConfig {
	return &ListenerConfig{
		Address:        address,
		TCPKeepAlive:   30 * time.Second,
		AcceptTimeout:  5 * time.Second,
		MaxConnections: 10000,
	}
}

// ConnectionHandler is invoked once per accepted Connection, typically
// to launch a handshake driver goroutine. Returning an error closes
// the connection immediately.
type ConnectionHandler func(*Connection) error

// Listener runs an accept loop that hands each new Connection to a
// ConnectionHandler on its own goroutine, matching the
// goroutine-per-connection scheduling model.
type Listener struct {
	config   *ListenerConfig
	listener net.Listener

	connSeq  atomic.Uint64
	accepted atomic.Uint64
	rejected atomic.Uint64
	active   atomic.Int64

	mu       sync.RWMutex
	handlers []ConnectionHandler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closed    atomic.Bool
	closeOnce sync.Once
}

// NewListener constructs a Listener; call Start to begin accepting.
func NewListener(config *ListenerConfig) (*Listener, error) {
	if config == nil || config.Address == "" {
		return nil, ErrInvalidAddress
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Listener{config: config, ctx: ctx, cancel: cancel}, nil
}

// Start opens the listening socket and launches the accept loop.
func (l *Listener) Start() error {
	if l.closed.Load() {
		return ErrListenerClosed
	}

	var err error
	if l.config.TLSConfig != nil {
		l.listener, err = tls.Listen("tcp", l.config.Address, l.config.TLSConfig)
	} else {
		l.listener, err = net.Listen("tcp", l.config.Address)
	}
	if err != nil {
		return fmt.Errorf("failed to start listener: %w", err)
	}

	l.wg.Add(1)
	go l.acceptLoop()
	return nil
}

func (l *Listener) acceptLoop() {
	defer l.wg.Done()

	for {
		select {
		case <-l.ctx.Done():
			return
		default:
		}

		if l.config.AcceptTimeout > 0 {
			if tcpListener, ok := l.listener.(*net.TCPListener); ok {
				_ = tcpListener.SetDeadline(time.Now().Add(l.config.AcceptTimeout))
			}
		}

		netConn, err := l.listener.Accept()
		if err != nil {
			if l.closed.Load() {
				return
			}
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			continue
		}

		if l.config.MaxConnections > 0 && l.active.Load() >= int64(l.config.MaxConnections) {
			_ = netConn.Close()
			l.rejected.Add(1)
			continue
		}

		l.wg.Add(1)
		go l.handleConnection(netConn)
	}
}

func (l *Listener) handleConnection(netConn net.Conn) {
	defer l.wg.Done()

	if tcpConn, ok := netConn.(*net.TCPConn); ok && l.config.TCPKeepAlive > 0 {
		_ = tcpConn.SetKeepAlive(true)
		_ = tcpConn.SetKeepAlivePeriod(l.config.TCPKeepAlive)
	}

	connID := l.generateConnectionID()
	conn := NewConnection(netConn, connID, &ConnectionConfig{KeepAlive: l.config.TCPKeepAlive})

	l.active.Add(1)
	l.accepted.Add(1)
	defer l.active.Add(-1)

	l.mu.RLock()
	handlers := make([]ConnectionHandler, len(l.handlers))
	copy(handlers, l.handlers)
	l.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(conn); err != nil {
			_ = conn.Close()
			return
		}
	}
}

func (l *Listener) generateConnectionID() string {
	seq := l.connSeq.Add(1)
	return fmt.Sprintf("conn-%d-%d", time.Now().UnixNano(), seq)
}

// OnConnection registers a handler invoked for every accepted
// connection. Handlers run sequentially per connection, in
// registration order.
func (l *Listener) OnConnection(handler ConnectionHandler) {
	l.mu.Lock()
	l.handlers = append(l.handlers, handler)
	l.mu.Unlock()
}

// Close stops the accept loop and waits for in-flight connection
// handlers to return.
func (l *Listener) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	var err error
	l.closeOnce.Do(func() {
		l.cancel()
		if l.listener != nil {
			err = l.listener.Close()
		}
		l.wg.Wait()
	})
	return err
}

// Addr returns the listening address, or nil before Start.
func (l *Listener) Addr() net.Addr {
	if l.listener != nil {
		return l.listener.Addr()
	}
	return nil
}

// ListenerStats reports accept-loop counters.
type ListenerStats struct {
	Accepted uint64
	Rejected uint64
	Active   int64
}

func (l *Listener) Stats() ListenerStats {
	return ListenerStats{Accepted: l.accepted.Load(), Rejected: l.rejected.Load(), Active: l.active.Load()}
}
