package codec

// ProbeCodec peeks at the first CONNECT packet to determine which
// dialect codec the framer should switch to, without consuming any
// bytes. This lets a Framer accept both v3 and v5 clients on the same
// listener before a dialect has been chosen.
type ProbeCodec struct{}

// DecodePacket inspects buf for a complete CONNECT fixed header plus
// enough of the body to read protocol_name and protocol_level, and
// returns a synthetic *VersionPacket with consumed=0: the bytes stay
// in the framer's buffer for the real dialect codec to decode next.
// It returns (nil, 0, nil) if buf does not yet hold enough to decide.
func (c *ProbeCodec) DecodePacket(buf []byte) (Packet, int, error) {
	if len(buf) == 0 {
		return nil, 0, nil
	}
	if buf[0] != 0x10 {
		return nil, 0, newMalformed("first packet on a connection must be CONNECT", ErrMalformedPacket)
	}

	fh, hdrLen, err := DecodeFixedHeaderFromBytes(buf)
	if err != nil {
		return nil, 0, err
	}
	if fh == nil {
		return nil, 0, nil
	}

	body := buf[hdrLen:]
	if uint32(len(body)) > fh.RemainingLength {
		body = body[:fh.RemainingLength]
	} else if uint32(len(body)) < fh.RemainingLength && len(body) < 7 {
		// Not yet enough of the body to read protocol_name+level, and
		// the frame itself may also be incomplete; wait for more.
		return nil, 0, nil
	}

	name, n, err := DecodeStringFromBytes(body)
	if err != nil {
		return nil, 0, err
	}
	if n == 0 {
		return nil, 0, nil
	}
	if name != "MQTT" && name != "MQIsdp" {
		return nil, 0, newProtocolError("unrecognized protocol name")
	}
	if len(body) < n+1 {
		return nil, 0, nil
	}
	level := body[n]

	switch level {
	case 3, 4:
		return &VersionPacket{Version: V3}, 0, nil
	case 5:
		return &VersionPacket{Version: V5}, 0, nil
	default:
		return nil, 0, newUnsupportedVersion("unrecognized CONNECT protocol level")
	}
}

// EncodePacket exists only to satisfy the dialect codec shape; the
// probe codec never encodes, since a server never speaks before its
// dialect is chosen.
func (c *ProbeCodec) EncodePacket(pkt Packet) ([]byte, error) {
	return nil, newProtocolError("probe codec cannot encode packets")
}
