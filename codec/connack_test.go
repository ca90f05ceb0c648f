package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnAckPropertyList_RoundTrip(t *testing.T) {
	serverRef := "broker-2.example.com"
	maxQoS := byte(1)
	props := &ConnAckProperties{
		ServerReference: &serverRef,
		MaximumQoS:      &maxQoS,
		UserProperties:  []UTF8Pair{{Key: "region", Value: "us-east"}},
	}

	list := connAckPropertyList(props)
	enc, err := EncodePropertiesToBytes(nil, list)
	require.NoError(t, err)

	decoded, n, err := DecodePropertiesFromBytes(enc, ContextConnAck)
	require.NoError(t, err)
	assert.Equal(t, len(enc), n)

	out := connAckPropertiesFromDecoded(decoded)
	require.NotNil(t, out.ServerReference)
	assert.Equal(t, serverRef, *out.ServerReference)
	require.NotNil(t, out.MaximumQoS)
	assert.Equal(t, maxQoS, *out.MaximumQoS)
	require.Len(t, out.UserProperties, 1)
	assert.Equal(t, "region", out.UserProperties[0].Key)
}

func TestConnAckPropertyList_NilProperties(t *testing.T) {
	assert.Nil(t, connAckPropertyList(nil))
}

func TestConnAckPropertiesFromDecoded_EmptyProperties(t *testing.T) {
	out := connAckPropertiesFromDecoded(&Properties{})
	assert.NotNil(t, out)
	assert.Nil(t, out.ServerReference)
}

func TestConnAckPropertiesFromDecoded_NilProperties(t *testing.T) {
	out := connAckPropertiesFromDecoded(nil)
	assert.NotNil(t, out)
}
