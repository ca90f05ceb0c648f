package handshake

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmq/flowmq/codec"
	"github.com/flowmq/flowmq/internal/auth"
	"github.com/flowmq/flowmq/internal/session"
)

// encodeV3Connect builds the wire bytes for a minimal v3.1.1 CONNECT
// using the v3 codec's own encoder, so the test fixture stays in sync
// with the codec package instead of hand-maintaining a byte literal.
func encodeV3Connect(t *testing.T, clientID string, cleanStart bool) []byte {
	t.Helper()
	c := &codec.Connect{
		ProtocolName:  "MQTT",
		ProtocolLevel: "3.1.1",
		Version:       codec.V3,
		CleanStart:    cleanStart,
		KeepAlive:     60,
		ClientID:      clientID,
	}
	out, err := (&codec.V3Codec{}).EncodePacket(c)
	require.NoError(t, err)
	return out
}

func runHandshakeOverPipe(t *testing.T, d *Driver, clientBytes []byte) (*session.Session, []byte, error) {
	t.Helper()
	clientConn, serverConn := net.Pipe()

	done := make(chan struct{})
	var sess *session.Session
	var runErr error
	go func() {
		defer close(done)
		sess, runErr = d.Run(context.Background(), serverConn, "127.0.0.1:1234")
	}()

	go func() {
		_, _ = clientConn.Write(clientBytes)
	}()

	ack := make([]byte, 64)
	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _ := clientConn.Read(ack)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handshake did not complete")
	}
	clientConn.Close()
	serverConn.Close()
	return sess, ack[:n], runErr
}

func TestDriver_SuccessfulV3Handshake(t *testing.T) {
	store := session.NewMemoryStore()
	d := New(DefaultConfig(), &auth.AllowAllAuthorizer{}, store, nil, nil)

	connectBytes := encodeV3Connect(t, "device-1", true)
	sess, ack, err := runHandshakeOverPipe(t, d, connectBytes)

	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "device-1", sess.ClientID)
	assert.Equal(t, codec.V3, sess.Dialect)
	assert.Equal(t, StateEstablished, d.Current())

	require.Len(t, ack, 4)
	assert.Equal(t, byte(0x20), ack[0]) // CONNACK fixed header, flags=0
	assert.Equal(t, byte(0x02), ack[1]) // remaining length
	assert.Equal(t, byte(0x00), ack[2]) // session_present=0 (clean start)
	assert.Equal(t, byte(codec.ReasonSuccess), ack[3])
}

func TestDriver_AuthorizationDenied(t *testing.T) {
	authz := auth.NewBasicAuthorizer(false)
	d := New(DefaultConfig(), authz, session.NewMemoryStore(), nil, nil)

	connectBytes := encodeV3Connect(t, "device-2", true)
	sess, ack, err := runHandshakeOverPipe(t, d, connectBytes)

	require.Error(t, err)
	assert.Nil(t, sess)
	require.Len(t, ack, 4)
	assert.Equal(t, byte(codec.ReasonBadUserNameOrPassword), ack[3])
	assert.Equal(t, StateClosed, d.Current())
}

func TestDriver_MalformedProbeClosesWithoutConnAck(t *testing.T) {
	d := New(DefaultConfig(), nil, nil, nil, nil)
	_, ack, err := runHandshakeOverPipe(t, d, []byte{0x00, 0x00})

	require.Error(t, err)
	assert.Empty(t, ack)
	assert.Equal(t, StateClosed, d.Current())
}

func TestDriver_MalformedConnectAfterDialectChosenSendsConnAck(t *testing.T) {
	d := New(DefaultConfig(), nil, nil, nil, nil)

	connectBytes := encodeV3Connect(t, "device-4", true)
	// Corrupt the client id's 2-byte length prefix so it declares a
	// length that cannot fit inside the frame, without touching the
	// fixed header's remaining-length byte: the probe still detects
	// v3.1.1 from the protocol name/level fields that precede this
	// corruption, so the dialect is chosen before it is ever read.
	const clientIDLenOffset = 12
	connectBytes[clientIDLenOffset] = 0xFF
	connectBytes[clientIDLenOffset+1] = 0xFF

	_, ack, err := runHandshakeOverPipe(t, d, connectBytes)

	require.Error(t, err)
	require.Len(t, ack, 4, "a malformed CONNECT after dialect selection must still get a CONNACK")
	assert.Equal(t, byte(0x20), ack[0])
	assert.Equal(t, byte(codec.ReasonMalformedPacket), ack[3])
	assert.Equal(t, StateClosed, d.Current())
}

func TestDriver_NonCleanStartReflectsSessionPresent(t *testing.T) {
	store := session.NewMemoryStore()
	existing := session.New("device-3", codec.V3, false, 60, nil)
	require.NoError(t, store.Save(context.Background(), existing))

	d := New(DefaultConfig(), &auth.AllowAllAuthorizer{}, store, nil, nil)
	connectBytes := encodeV3Connect(t, "device-3", false)
	sess, ack, err := runHandshakeOverPipe(t, d, connectBytes)

	require.NoError(t, err)
	require.NotNil(t, sess)
	require.Len(t, ack, 4)
	assert.Equal(t, byte(0x01), ack[2], "session_present should be set for a known client with clean_start=0")
}
