package transport

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipeConnections(t *testing.T) (*Connection, *Connection) {
	t.Helper()
	client, server := net.Pipe()
	cc := NewConnection(client, "client", &ConnectionConfig{})
	sc := NewConnection(server, "server", &ConnectionConfig{})
	t.Cleanup(func() {
		cc.Close()
		sc.Close()
	})
	return cc, sc
}

func TestConnection_ReadWrite(t *testing.T) {
	cc, sc := pipeConnections(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 5)
		n, err := sc.Read(buf)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(buf[:n]))
	}()

	n, err := cc.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	<-done

	assert.Equal(t, uint64(5), cc.BytesWritten())
}

func TestConnection_CloseIsIdempotent(t *testing.T) {
	cc, _ := pipeConnections(t)

	require.NoError(t, cc.Close())
	require.NoError(t, cc.Close())
	assert.Equal(t, StateClosed, cc.State())
}

func TestConnection_ReadAfterCloseFails(t *testing.T) {
	cc, _ := pipeConnections(t)
	require.NoError(t, cc.Close())

	_, err := cc.Read(make([]byte, 1))
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestConnection_IdleDuration(t *testing.T) {
	cc, _ := pipeConnections(t)
	assert.Less(t, cc.IdleDuration(), time.Second)
}
