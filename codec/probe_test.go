package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildConnectBytes(t *testing.T, version Version, clientID string) []byte {
	t.Helper()
	c := &Connect{ClientID: clientID, CleanStart: true}
	if version == V5 {
		c.ProtocolName = "MQTT"
		c.ProtocolLevel = "5.0"
		c.Properties = &ConnectProperties{}
		enc, err := (&V5Codec{}).EncodePacket(c)
		require.NoError(t, err)
		return enc
	}
	c.ProtocolName = "MQTT"
	c.ProtocolLevel = "3.1.1"
	enc, err := (&V3Codec{}).EncodePacket(c)
	require.NoError(t, err)
	return enc
}

func TestProbeCodec_DetectsV3(t *testing.T) {
	buf := buildConnectBytes(t, V3, "device")
	pkt, n, err := (&ProbeCodec{}).DecodePacket(buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "the probe must not consume bytes")
	vp := pkt.(*VersionPacket)
	assert.Equal(t, V3, vp.Version)
}

func TestProbeCodec_DetectsV5(t *testing.T) {
	buf := buildConnectBytes(t, V5, "device")
	pkt, n, err := (&ProbeCodec{}).DecodePacket(buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	vp := pkt.(*VersionPacket)
	assert.Equal(t, V5, vp.Version)
}

func TestProbeCodec_DetectsMQIsdp(t *testing.T) {
	var body []byte
	body = EncodeString(body, "MQIsdp")
	body = append(body, 3, 0x00, 0x00, 0x3C)
	body = EncodeString(body, "c")
	enc, err := encodeFrame(CONNECT, 0, body)
	require.NoError(t, err)

	pkt, n, err := (&ProbeCodec{}).DecodePacket(enc)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, V3, pkt.(*VersionPacket).Version)
}

func TestProbeCodec_RejectsNonConnectFirst(t *testing.T) {
	enc, err := encodeFrame(PINGREQ, 0, nil)
	require.NoError(t, err)

	_, n, err := (&ProbeCodec{}).DecodePacket(enc)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedPacket)
	assert.Equal(t, 0, n, "the probe must not consume bytes even on rejection")
}

func TestProbeCodec_RejectsUnrecognizedProtocolName(t *testing.T) {
	var body []byte
	body = EncodeString(body, "BOGUS")
	body = append(body, 5)
	enc, err := encodeFrame(CONNECT, 0, body)
	require.NoError(t, err)

	_, _, err = (&ProbeCodec{}).DecodePacket(enc)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProtocolError)
}

func TestProbeCodec_RejectsUnsupportedLevel(t *testing.T) {
	var body []byte
	body = EncodeString(body, "MQTT")
	body = append(body, 9)
	enc, err := encodeFrame(CONNECT, 0, body)
	require.NoError(t, err)

	_, _, err = (&ProbeCodec{}).DecodePacket(enc)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedProtocolVersion)
}

func TestProbeCodec_WaitsForMoreBytes(t *testing.T) {
	buf := buildConnectBytes(t, V3, "device")
	pkt, n, err := (&ProbeCodec{}).DecodePacket(buf[:3])
	require.NoError(t, err)
	assert.Nil(t, pkt)
	assert.Equal(t, 0, n)
}

func TestProbeCodec_EncodeUnsupported(t *testing.T) {
	_, err := (&ProbeCodec{}).EncodePacket(&Connect{})
	require.Error(t, err)
}
