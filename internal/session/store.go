package session

import (
	"context"
	"errors"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrStoreClosed          = errors.New("store is closed")
)

// Store is the SessionStore collaborator the handshake driver consults
// to determine session_present on a non-clean-start reconnect and to
// persist the outcome of a handshake.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context, clientID string) (*Session, error)
	Delete(ctx context.Context, clientID string) error
	Exists(ctx context.Context, clientID string) (bool, error)
	List(ctx context.Context) ([]string, error)
	Close() error
}
