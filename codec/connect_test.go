package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectFlags_RoundTrip(t *testing.T) {
	c := &Connect{
		UsernameFlag: true,
		PasswordFlag: true,
		WillRetain:   true,
		WillQoS:      QoS1,
		WillFlag:     true,
		CleanStart:   true,
	}
	flags := encodeConnectFlags(c)

	decoded := &Connect{}
	require.NoError(t, decodeConnectFlags(decoded, flags))
	assert.Equal(t, c, decoded)
}

func TestDecodeConnectFlags_RejectsReservedBit(t *testing.T) {
	err := decodeConnectFlags(&Connect{}, 0x01)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProtocolError)
}

func TestDecodeConnectFlags_RejectsWillQoSWithoutWillFlag(t *testing.T) {
	// will_qos=1 (bits 0x08) with will_flag (0x04) clear.
	err := decodeConnectFlags(&Connect{}, 0x08)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProtocolError)
}

func TestDecodeConnectFlags_RejectsPasswordWithoutUsername(t *testing.T) {
	err := decodeConnectFlags(&Connect{}, 0x40)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProtocolError)
}

func TestDecodeConnectFlags_RejectsInvalidWillQoS(t *testing.T) {
	// will_flag set, will_qos bits 0x18 = 3, an invalid QoS level.
	err := decodeConnectFlags(&Connect{}, 0x04|0x18)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProtocolError)
}

func TestProtocolLevelString(t *testing.T) {
	assert.Equal(t, "3.1", protocolLevelString(3))
	assert.Equal(t, "3.1.1", protocolLevelString(4))
	assert.Equal(t, "5.0", protocolLevelString(5))
}

func TestVersion_String(t *testing.T) {
	assert.Equal(t, "v3", V3.String())
	assert.Equal(t, "v5", V5.String())
}
