package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/flowmq/flowmq/codec"
)

var sessionPrefix = []byte("session:")

// PebbleStore is a pebble-backed Store, durable across process
// restarts.
type PebbleStore struct {
	db     *pebble.DB
	mu     sync.RWMutex
	closed bool
}

// PebbleStoreConfig configures the on-disk store.
type PebbleStoreConfig struct {
	Path string
	Opts *pebble.Options
}

// sessionData is the JSON-serializable mirror of Session.
type sessionData struct {
	ClientID          string                  `json:"client_id"`
	Dialect           codec.Version           `json:"dialect"`
	CleanStart        bool                    `json:"clean_start"`
	State             State                   `json:"state"`
	KeepAlive         uint16                  `json:"keep_alive"`
	ExpiryInterval    uint32                  `json:"expiry_interval"`
	ConnectedAt       time.Time               `json:"connected_at"`
	DisconnectedAt    time.Time               `json:"disconnected_at"`
	SessionExpiry     *uint32                 `json:"session_expiry,omitempty"`
	ReceiveMaximum    *uint16                 `json:"receive_maximum,omitempty"`
	MaxPacketSize     *uint32                 `json:"max_packet_size,omitempty"`
	TopicAliasMaximum *uint16                 `json:"topic_alias_maximum,omitempty"`
	AuthMethod        *string                 `json:"auth_method,omitempty"`
}

// NewPebbleStore opens (or creates) a pebble database at config.Path.
func NewPebbleStore(config PebbleStoreConfig) (*PebbleStore, error) {
	opts := config.Opts
	if opts == nil {
		opts = &pebble.Options{ErrorIfExists: false}
	}
	db, err := pebble.Open(config.Path, opts)
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db}, nil
}

func sessionToData(s *Session) *sessionData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data := &sessionData{
		ClientID:       s.ClientID,
		Dialect:        s.Dialect,
		CleanStart:     s.CleanStart,
		State:          s.state,
		KeepAlive:      s.KeepAlive,
		ExpiryInterval: s.ExpiryInterval,
		ConnectedAt:    s.ConnectedAt,
		DisconnectedAt: s.DisconnectedAt,
	}
	if s.Properties != nil {
		data.SessionExpiry = s.Properties.SessionExpiryInterval
		data.ReceiveMaximum = s.Properties.ReceiveMaximum
		data.MaxPacketSize = s.Properties.MaxPacketSize
		data.TopicAliasMaximum = s.Properties.TopicAliasMaximum
		data.AuthMethod = s.Properties.AuthMethod
	}
	return data
}

func dataToSession(data *sessionData) *Session {
	s := &Session{
		ID:             data.ClientID,
		ClientID:       data.ClientID,
		Dialect:        data.Dialect,
		CleanStart:     data.CleanStart,
		KeepAlive:      data.KeepAlive,
		ExpiryInterval: data.ExpiryInterval,
		ConnectedAt:    data.ConnectedAt,
		DisconnectedAt: data.DisconnectedAt,
		state:          data.State,
	}
	if data.SessionExpiry != nil || data.ReceiveMaximum != nil || data.MaxPacketSize != nil ||
		data.TopicAliasMaximum != nil || data.AuthMethod != nil {
		s.Properties = &codec.ConnectProperties{
			SessionExpiryInterval: data.SessionExpiry,
			ReceiveMaximum:        data.ReceiveMaximum,
			MaxPacketSize:         data.MaxPacketSize,
			TopicAliasMaximum:     data.TopicAliasMaximum,
			AuthMethod:            data.AuthMethod,
		}
	}
	return s
}

func makeKey(clientID string) []byte {
	key := make([]byte, len(sessionPrefix)+len(clientID))
	copy(key, sessionPrefix)
	copy(key[len(sessionPrefix):], clientID)
	return key
}

func (p *PebbleStore) Save(ctx context.Context, s *Session) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrStoreClosed
	}

	value, err := json.Marshal(sessionToData(s))
	if err != nil {
		return err
	}
	return p.db.Set(makeKey(s.ClientID), value, pebble.Sync)
}

func (p *PebbleStore) Load(ctx context.Context, clientID string) (*Session, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return nil, ErrStoreClosed
	}

	value, closer, err := p.db.Get(makeKey(clientID))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	defer closer.Close()

	var data sessionData
	if err := json.Unmarshal(value, &data); err != nil {
		return nil, err
	}
	return dataToSession(&data), nil
}

func (p *PebbleStore) Delete(ctx context.Context, clientID string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrStoreClosed
	}
	return p.db.Delete(makeKey(clientID), pebble.Sync)
}

func (p *PebbleStore) Exists(ctx context.Context, clientID string) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return false, ErrStoreClosed
	}

	_, closer, err := p.db.Get(makeKey(clientID))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	closer.Close()
	return true, nil
}

func (p *PebbleStore) List(ctx context.Context) ([]string, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return nil, ErrStoreClosed
	}

	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: sessionPrefix,
		UpperBound: append(append([]byte(nil), sessionPrefix...), 0xff),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var ids []string
	for iter.First(); iter.Valid(); iter.Next() {
		ids = append(ids, string(iter.Key()[len(sessionPrefix):]))
	}
	return ids, iter.Error()
}

func (p *PebbleStore) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrStoreClosed
	}
	p.closed = true
	return p.db.Close()
}
