package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFramer_ProbeThenDialectSwitch(t *testing.T) {
	f := NewFramer(0)
	connectBytes := buildConnectBytes(t, V3, "switcher")
	f.Feed(connectBytes)

	pkt, err := f.Decode()
	require.NoError(t, err)
	vp, ok := pkt.(*VersionPacket)
	require.True(t, ok)
	assert.Equal(t, V3, vp.Version)

	f.SwitchDialect(vp.Version)

	pkt, err = f.Decode()
	require.NoError(t, err)
	got, ok := pkt.(*Connect)
	require.True(t, ok)
	assert.Equal(t, "switcher", got.ClientID)
}

func TestFramer_IncrementalFeed(t *testing.T) {
	f := NewFramer(0)
	connectBytes := buildConnectBytes(t, V3, "incremental")

	// Feed one byte at a time. The probe yields the VersionPacket, without
	// consuming, as soon as protocol_name and protocol_level are buffered;
	// after the switch the v3 codec returns (nil, nil) until the full
	// frame has arrived, then yields the CONNECT.
	var pkt Packet
	fed := 0
	for i, b := range connectBytes {
		f.Feed([]byte{b})
		fed = i + 1
		var err error
		pkt, err = f.Decode()
		require.NoError(t, err)
		if pkt != nil {
			break
		}
	}
	require.NotNil(t, pkt)
	vp := pkt.(*VersionPacket)
	assert.Equal(t, V3, vp.Version)

	f.SwitchDialect(vp.Version)
	got, err := f.Decode()
	require.NoError(t, err)
	for got == nil && fed < len(connectBytes) {
		f.Feed(connectBytes[fed : fed+1])
		fed++
		got, err = f.Decode()
		require.NoError(t, err)
	}
	assert.Equal(t, len(connectBytes), fed)
	connect := got.(*Connect)
	assert.Equal(t, "incremental", connect.ClientID)
}

func TestFramer_DecodeWaitsOnEmptyBuffer(t *testing.T) {
	f := NewFramer(0)
	pkt, err := f.Decode()
	require.NoError(t, err)
	assert.Nil(t, pkt)
}

func TestFramer_MalformedVLIPropagatesError(t *testing.T) {
	f := NewFramer(0)
	f.Feed([]byte{0x10, 0xFF, 0xFF, 0xFF, 0xFF})
	_, err := f.Decode()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedPacket)
}

func TestFramer_EncodeForwardsToInnerCodec(t *testing.T) {
	f := NewFramer(0)
	f.SwitchDialect(V3)
	ack := &ConnAck{ReasonCode: ReasonSuccess}
	enc, err := f.Encode(ack)
	require.NoError(t, err)
	assert.Equal(t, byte(0x20), enc[0])
}

func TestFramer_Reset(t *testing.T) {
	f := NewFramer(0)
	f.Feed([]byte{0x10, 0x02, 0x00, 0x00})
	f.Reset()
	pkt, err := f.Decode()
	require.NoError(t, err)
	assert.Nil(t, pkt)
}
