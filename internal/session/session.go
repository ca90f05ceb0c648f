// Package session defines the narrow post-handshake Session handle and
// the SessionStore collaborator interface the handshake driver depends
// on, plus an in-memory, a pebble-backed, and a redis-backed
// implementation of that interface.
package session

import (
	"sync"
	"time"

	"github.com/flowmq/flowmq/codec"
)

// State is the lifecycle state of an established session.
type State byte

const (
	StateActive       State = iota // connected, handshake complete
	StateDisconnected              // client gone, session retained pending expiry
	StateExpired                   // past its expiry interval, eligible for removal
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateDisconnected:
		return "disconnected"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Session is the handle returned by a successful handshake: identity
// and negotiation outcome, not the broker's runtime state. Subscription
// bookkeeping, inflight QoS tracking, and retained-message lookups
// belong to the out-of-scope session lifecycle and are not modeled
// here.
type Session struct {
	mu sync.RWMutex

	ID             string
	ClientID       string
	Dialect        codec.Version
	CleanStart     bool
	KeepAlive      uint16
	ConnectedAt    time.Time
	DisconnectedAt time.Time
	ExpiryInterval uint32 // seconds; 0 with CleanStart=false means "never expires"
	Properties     *codec.ConnectProperties

	state State
}

// New constructs a Session from the fields a completed handshake
// produces.
func New(clientID string, dialect codec.Version, cleanStart bool, keepAlive uint16, props *codec.ConnectProperties) *Session {
	return &Session{
		ID:          clientID,
		ClientID:    clientID,
		Dialect:     dialect,
		CleanStart:  cleanStart,
		KeepAlive:   keepAlive,
		ConnectedAt: time.Now(),
		Properties:  props,
		state:       StateActive,
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SetDisconnected marks the session disconnected, starting its expiry
// clock if ExpiryInterval is nonzero.
func (s *Session) SetDisconnected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateDisconnected
	s.DisconnectedAt = time.Now()
}

// IsExpired reports whether a disconnected session has outlived its
// expiry interval. A persistent session (CleanStart=false,
// ExpiryInterval=0) never expires.
func (s *Session) IsExpired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateDisconnected {
		return false
	}
	if s.ExpiryInterval == 0 {
		return s.CleanStart
	}
	return time.Since(s.DisconnectedAt) > time.Duration(s.ExpiryInterval)*time.Second
}
