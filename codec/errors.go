package codec

import (
	"errors"
	"fmt"
)

// Sentinel error kinds, one per row of the error-handling table: every
// decode failure unwraps to exactly one of these via errors.Is.
var (
	ErrIo                         = errors.New("io error")
	ErrMalformedPacket            = errors.New("malformed packet")
	ErrProtocolError              = errors.New("protocol error")
	ErrUnsupportedProtocolVersion = errors.New("unsupported protocol version")
	ErrLenTooLong                 = errors.New("variable-length integer or packet exceeds cap")
	ErrDisconnect                 = errors.New("peer disconnected")
)

// ReasonCode is an MQTT 5 CONNACK/DISCONNECT reason code.
type ReasonCode byte

const (
	ReasonSuccess                     ReasonCode = 0x00
	ReasonUnspecifiedError            ReasonCode = 0x80
	ReasonMalformedPacket             ReasonCode = 0x81
	ReasonProtocolError               ReasonCode = 0x82
	ReasonBadUserNameOrPassword       ReasonCode = 0x86
	ReasonNotAuthorized               ReasonCode = 0x87
	ReasonUnsupportedProtocolVersion  ReasonCode = 0x84
	ReasonClientIdentifierNotValid    ReasonCode = 0x85
	ReasonPacketTooLarge              ReasonCode = 0x95
	ReasonQuotaExceeded               ReasonCode = 0x97
)

// PacketError wraps a sentinel error kind with the reason code it maps
// to and a human-readable message, mirroring the teacher's
// encoding.PacketError.
type PacketError struct {
	Err        error
	ReasonCode ReasonCode
	Message    string
}

func (e *PacketError) Error() string {
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *PacketError) Unwrap() error {
	return e.Err
}

func newMalformed(msg string, kind error) *PacketError {
	reason := ReasonMalformedPacket
	if errors.Is(kind, ErrLenTooLong) {
		// LenTooLong closes the connection outright (§7); it never
		// produces a CONNACK, so this code is never looked at by the
		// driver, which tells the two apart via errors.Is(err, ErrLenTooLong)
		// rather than by reason code.
		reason = ReasonPacketTooLarge
	}
	return &PacketError{Err: kind, ReasonCode: reason, Message: msg}
}

func newProtocolError(msg string) *PacketError {
	return &PacketError{Err: ErrProtocolError, ReasonCode: ReasonProtocolError, Message: msg}
}

func newUnsupportedVersion(msg string) *PacketError {
	return &PacketError{Err: ErrUnsupportedProtocolVersion, ReasonCode: ReasonUnsupportedProtocolVersion, Message: msg}
}

// ReasonCodeFor classifies err per the error-handling table: it
// unwraps sentinel errors to a CONNACK reason code. Errors that should
// never produce a CONNACK (Io, Disconnect) return ReasonUnspecifiedError
// as a fallback; callers must check the sentinel directly to decide
// whether to send a CONNACK at all.
func ReasonCodeFor(err error) ReasonCode {
	var pe *PacketError
	if errors.As(err, &pe) {
		return pe.ReasonCode
	}
	switch {
	case errors.Is(err, ErrMalformedPacket):
		return ReasonMalformedPacket
	case errors.Is(err, ErrProtocolError):
		return ReasonProtocolError
	case errors.Is(err, ErrUnsupportedProtocolVersion):
		return ReasonUnsupportedProtocolVersion
	default:
		return ReasonUnspecifiedError
	}
}
