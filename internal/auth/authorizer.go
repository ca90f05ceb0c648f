// Package auth defines the Authorizer collaborator consulted once per
// handshake to decide the CONNACK reason code.
package auth

import (
	"context"
	"crypto/subtle"
	"sync"

	"github.com/flowmq/flowmq/codec"
)

// Authorizer is consulted by the handshake driver after a CONNECT
// decodes successfully. It returns the reason code to place in the
// CONNACK; ReasonSuccess admits the connection.
type Authorizer interface {
	Authorize(ctx context.Context, connect *codec.Connect) (codec.ReasonCode, error)
}

// AllowAllAuthorizer admits every CONNECT unconditionally.
type AllowAllAuthorizer struct{}

func (AllowAllAuthorizer) Authorize(ctx context.Context, connect *codec.Connect) (codec.ReasonCode, error) {
	return codec.ReasonSuccess, nil
}

// BasicAuthorizer checks a CONNECT's username/password against a
// registered table using a constant-time comparison.
type BasicAuthorizer struct {
	mu             sync.RWMutex
	users          map[string]string
	allowAnonymous bool
}

// NewBasicAuthorizer constructs an empty BasicAuthorizer.
func NewBasicAuthorizer(allowAnonymous bool) *BasicAuthorizer {
	return &BasicAuthorizer{users: make(map[string]string), allowAnonymous: allowAnonymous}
}

// AddUser registers a username/password pair.
func (a *BasicAuthorizer) AddUser(username, password string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.users[username] = password
}

// RemoveUser deregisters username.
func (a *BasicAuthorizer) RemoveUser(username string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.users, username)
}

// Authorize admits anonymous connections only if allowAnonymous is
// set, and otherwise requires an exact username/password match.
func (a *BasicAuthorizer) Authorize(ctx context.Context, connect *codec.Connect) (codec.ReasonCode, error) {
	if !connect.UsernameFlag {
		a.mu.RLock()
		allow := a.allowAnonymous
		a.mu.RUnlock()
		if allow {
			return codec.ReasonSuccess, nil
		}
		return codec.ReasonBadUserNameOrPassword, nil
	}

	a.mu.RLock()
	expected, ok := a.users[connect.Username]
	a.mu.RUnlock()
	if !ok {
		return codec.ReasonBadUserNameOrPassword, nil
	}
	if subtle.ConstantTimeCompare([]byte(expected), connect.Password) != 1 {
		return codec.ReasonBadUserNameOrPassword, nil
	}
	return codec.ReasonSuccess, nil
}
