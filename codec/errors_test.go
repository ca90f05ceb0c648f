package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReasonCodeFor_ClassifiesPacketError(t *testing.T) {
	err := newMalformed("bad", ErrMalformedPacket)
	assert.Equal(t, ReasonMalformedPacket, ReasonCodeFor(err))
}

func TestReasonCodeFor_ClassifiesWrappedSentinel(t *testing.T) {
	wrapped := errors.Join(ErrProtocolError)
	assert.Equal(t, ReasonProtocolError, ReasonCodeFor(wrapped))
}

func TestReasonCodeFor_UnknownErrorFallsBackToUnspecified(t *testing.T) {
	assert.Equal(t, ReasonUnspecifiedError, ReasonCodeFor(errors.New("boom")))
}

func TestPacketError_ErrorAndUnwrap(t *testing.T) {
	pe := newProtocolError("reserved bit set")
	assert.ErrorIs(t, pe, ErrProtocolError)
	assert.Contains(t, pe.Error(), "reserved bit set")
}
