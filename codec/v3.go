package codec

// V3Codec decodes and encodes MQTT 3.1/3.1.1 CONNECT/CONNACK packets.
// Unlike V5Codec it carries no property blocks: the wire grammar ends
// at client_id (or password, if a will/username/password are present).
type V3Codec struct {
	MaxPacketSize uint32
}

// DecodePacket mirrors V5Codec.DecodePacket's contract: (nil, 0, nil)
// means buf does not yet hold a complete frame.
func (c *V3Codec) DecodePacket(buf []byte) (Packet, int, error) {
	fh, hdrLen, err := DecodeFixedHeaderFromBytes(buf)
	if err != nil {
		return nil, 0, err
	}
	if fh == nil {
		return nil, 0, nil
	}
	total := hdrLen + int(fh.RemainingLength)
	if c.MaxPacketSize > 0 && uint32(total) > c.MaxPacketSize {
		return nil, 0, newMalformed("packet exceeds configured maximum size", ErrLenTooLong)
	}
	if len(buf) < total {
		return nil, 0, nil
	}
	body := buf[hdrLen:total]

	switch fh.Type {
	case CONNECT:
		pkt, err := decodeConnectV3(body)
		if err != nil {
			return nil, 0, err
		}
		return pkt, total, nil
	case CONNACK:
		pkt, err := decodeConnAckV3(body)
		if err != nil {
			return nil, 0, err
		}
		return pkt, total, nil
	default:
		return nil, 0, newMalformed("packet type not supported by this core", ErrMalformedPacket)
	}
}

// EncodePacket implements the dialect codec contract's encode side.
func (c *V3Codec) EncodePacket(pkt Packet) ([]byte, error) {
	switch p := pkt.(type) {
	case *ConnAck:
		return encodeConnAckV3(p)
	case *Connect:
		return encodeConnectV3(p)
	default:
		return nil, newMalformed("packet type not supported by this core", ErrMalformedPacket)
	}
}

// decodeConnectV3 parses the v3.1/v3.1.1 CONNECT body: protocol name,
// protocol level (3 or 4), connect flags, keepalive, client id, and
// then will/username/password fields gated by the flags byte, with no
// property blocks anywhere.
func decodeConnectV3(body []byte) (*Connect, error) {
	c := &Connect{Version: V3}
	off := 0

	name, n, err := DecodeStringFromBytes(body[off:])
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, newMalformed("truncated protocol name", ErrMalformedPacket)
	}
	c.ProtocolName = name
	off += n

	if off >= len(body) {
		return nil, newMalformed("truncated protocol level", ErrMalformedPacket)
	}
	level := body[off]
	off++
	if level != 3 && level != 4 {
		return nil, newUnsupportedVersion("v3 codec requires protocol level 3 or 4")
	}
	c.ProtocolLevel = protocolLevelString(level)

	if off >= len(body) {
		return nil, newMalformed("truncated connect flags", ErrMalformedPacket)
	}
	if err := decodeConnectFlags(c, body[off]); err != nil {
		return nil, err
	}
	off++

	if off+2 > len(body) {
		return nil, newMalformed("truncated keepalive", ErrMalformedPacket)
	}
	c.KeepAlive = uint16(body[off])<<8 | uint16(body[off+1])
	off += 2

	clientID, n, err := DecodeStringFromBytes(body[off:])
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, newMalformed("truncated client id", ErrMalformedPacket)
	}
	c.ClientID = clientID
	off += n

	if c.WillFlag {
		topic, n, err := DecodeStringFromBytes(body[off:])
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, newMalformed("truncated will topic", ErrMalformedPacket)
		}
		c.WillTopic = topic
		off += n

		payload, n, err := DecodeBinaryFromBytes(body[off:])
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, newMalformed("truncated will payload", ErrMalformedPacket)
		}
		c.WillPayload = append([]byte(nil), payload...)
		off += n
	}

	if c.UsernameFlag {
		username, n, err := DecodeStringFromBytes(body[off:])
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, newMalformed("truncated username", ErrMalformedPacket)
		}
		c.Username = username
		off += n
	}

	if c.PasswordFlag {
		password, n, err := DecodeBinaryFromBytes(body[off:])
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, newMalformed("truncated password", ErrMalformedPacket)
		}
		c.Password = append([]byte(nil), password...)
		off += n
	}

	return c, nil
}

func encodeConnectV3(c *Connect) ([]byte, error) {
	var body []byte
	body = EncodeString(body, c.ProtocolName)
	switch c.ProtocolLevel {
	case "3.1":
		body = append(body, 3)
	default:
		body = append(body, 4)
	}
	body = append(body, encodeConnectFlags(c))
	body = append(body, byte(c.KeepAlive>>8), byte(c.KeepAlive))
	body = EncodeString(body, c.ClientID)

	if c.WillFlag {
		body = EncodeString(body, c.WillTopic)
		body = EncodeBinary(body, c.WillPayload)
	}
	if c.UsernameFlag {
		body = EncodeString(body, c.Username)
	}
	if c.PasswordFlag {
		body = EncodeBinary(body, c.Password)
	}

	return encodeFrame(CONNECT, 0, body)
}

// decodeConnAckV3 parses the legacy 2-byte CONNACK body: a reserved
// byte whose bit 0 is session_present (3.1.1 only; always 0 under
// 3.1), then the return-code byte. Properties is always nil.
func decodeConnAckV3(body []byte) (*ConnAck, error) {
	if len(body) < 2 {
		return nil, newMalformed("truncated connack", ErrMalformedPacket)
	}
	if body[0]&0xFE != 0 {
		return nil, newProtocolError("connack reserved flag bits must be 0")
	}
	return &ConnAck{
		SessionPresent: body[0]&0x01 != 0,
		ReasonCode:     ReasonCode(body[1]),
	}, nil
}

func encodeConnAckV3(ack *ConnAck) ([]byte, error) {
	var sp byte
	if ack.SessionPresent {
		sp = 1
	}
	body := []byte{sp, byte(ack.ReasonCode)}
	return encodeFrame(CONNACK, 0, body)
}
