package codec

// V5Codec decodes and encodes MQTT 5.0 CONNECT/CONNACK packets. It
// holds no per-connection state; all state lives in the Framer that
// owns it.
type V5Codec struct {
	MaxPacketSize uint32 // 0 means no cap beyond MaxVarInt
}

// DecodePacket implements the dialect codec contract of spec §4.3:
// it returns (nil, 0, nil) if buf does not yet hold a complete frame.
func (c *V5Codec) DecodePacket(buf []byte) (Packet, int, error) {
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
		pkt, err := decodeConnectV5(body)
		if err != nil {
			return nil, 0, err
		}
		return pkt, total, nil
	case CONNACK:
		pkt, err := decodeConnAckV5(body)
		if err != nil {
			return nil, 0, err
		}
		return pkt, total, nil
	default:
		return nil, 0, newMalformed("packet type not supported by this core", ErrMalformedPacket)
	}
}

// EncodePacket implements the dialect codec contract's encode side.
func (c *V5Codec) EncodePacket(pkt Packet) ([]byte, error) {
	switch p := pkt.(type) {
	case *ConnAck:
		return encodeConnAckV5(p)
	case *Connect:
		return encodeConnectV5(p)
	default:
		return nil, newMalformed("packet type not supported by this core", ErrMalformedPacket)
	}
}

func decodeConnectV5(body []byte) (*Connect, error) {
	c := &Connect{Version: V5}
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
	if level != 5 {
		return nil, newUnsupportedVersion("v5 codec requires protocol level 5")
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

	props, n, err := DecodePropertiesFromBytes(body[off:], ContextConnect)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, newMalformed("truncated connect properties", ErrMalformedPacket)
	}
	c.Properties = connectPropertiesFromDecoded(props)
	off += n

	clientID, n, err := DecodeStringFromBytes(body[off:])
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, newMalformed("truncated client id", ErrMalformedPacket)
	}
	c.ClientID = clientID
	off += n
	if clientID == "" && !c.CleanStart {
		return nil, &PacketError{Err: ErrProtocolError, ReasonCode: ReasonClientIdentifierNotValid, Message: "empty client id requires clean start"}
	}

	if c.WillFlag {
		wprops, n, err := DecodePropertiesFromBytes(body[off:], ContextWill)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, newMalformed("truncated will properties", ErrMalformedPacket)
		}
		c.WillProperties = willPropertiesFromDecoded(wprops)
		off += n

		topic, n, err := DecodeStringFromBytes(body[off:])
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, newMalformed("truncated will topic", ErrMalformedPacket)
		}
		c.WillTopic = topic
		off += n

		// will_payload is binary per spec's explicit override of the
		// original source's string decode (see DESIGN.md).
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

func connectPropertiesFromDecoded(props *Properties) *ConnectProperties {
	out := &ConnectProperties{}
	if props == nil {
		return out
	}
	if v, ok := props.Get(PropSessionExpiryInterval); ok {
		out.SessionExpiryInterval = u32ptr(v.(uint32))
	}
	if v, ok := props.Get(PropReceiveMaximum); ok {
		out.ReceiveMaximum = u16ptr(v.(uint16))
	}
	if v, ok := props.Get(PropMaximumPacketSize); ok {
		out.MaxPacketSize = u32ptr(v.(uint32))
	}
	if v, ok := props.Get(PropTopicAliasMaximum); ok {
		out.TopicAliasMaximum = u16ptr(v.(uint16))
	}
	if v, ok := props.Get(PropRequestResponseInformation); ok {
		out.RequestResponseInfo = byteptr(v.(byte))
	}
	if v, ok := props.Get(PropRequestProblemInformation); ok {
		out.RequestProblemInfo = byteptr(v.(byte))
	}
	if v, ok := props.Get(PropAuthenticationMethod); ok {
		out.AuthMethod = strptr(v.(string))
	}
	if v, ok := props.Get(PropAuthenticationData); ok {
		// AuthData is always routed through the shared binary decoder
		// (spec's explicit override of the original source's inline
		// get_u16+slice shortcut -- see DESIGN.md).
		out.AuthData = v.([]byte)
	}
	for _, v := range props.GetAll(PropUserProperty) {
		out.UserProperties = append(out.UserProperties, v.(UTF8Pair))
	}
	return out
}

func willPropertiesFromDecoded(props *Properties) *WillProperties {
	out := &WillProperties{}
	if props == nil {
		return out
	}
	if v, ok := props.Get(PropWillDelayInterval); ok {
		out.WillDelayInterval = u32ptr(v.(uint32))
	}
	if v, ok := props.Get(PropMessageExpiryInterval); ok {
		out.MessageExpiryInterval = u32ptr(v.(uint32))
	}
	if v, ok := props.Get(PropPayloadFormatIndicator); ok {
		out.PayloadFormatIndicator = byteptr(v.(byte))
	}
	if v, ok := props.Get(PropContentType); ok {
		out.ContentType = strptr(v.(string))
	}
	if v, ok := props.Get(PropResponseTopic); ok {
		out.ResponseTopic = strptr(v.(string))
	}
	if v, ok := props.Get(PropCorrelationData); ok {
		// Routed through the shared binary decoder, same rationale as
		// AuthData above.
		out.CorrelationData = v.([]byte)
	}
	for _, v := range props.GetAll(PropUserProperty) {
		out.UserProperties = append(out.UserProperties, v.(UTF8Pair))
	}
	return out
}

func connectPropertyList(p *ConnectProperties) []Property {
	if p == nil {
		return nil
	}
	var list []Property
	if p.SessionExpiryInterval != nil {
		list = append(list, Property{PropSessionExpiryInterval, *p.SessionExpiryInterval})
	}
	if p.ReceiveMaximum != nil {
		list = append(list, Property{PropReceiveMaximum, *p.ReceiveMaximum})
	}
	if p.MaxPacketSize != nil {
		list = append(list, Property{PropMaximumPacketSize, *p.MaxPacketSize})
	}
	if p.TopicAliasMaximum != nil {
		list = append(list, Property{PropTopicAliasMaximum, *p.TopicAliasMaximum})
	}
	if p.RequestResponseInfo != nil {
		list = append(list, Property{PropRequestResponseInformation, *p.RequestResponseInfo})
	}
	if p.RequestProblemInfo != nil {
		list = append(list, Property{PropRequestProblemInformation, *p.RequestProblemInfo})
	}
	if p.AuthMethod != nil {
		list = append(list, Property{PropAuthenticationMethod, *p.AuthMethod})
	}
	if p.AuthData != nil {
		list = append(list, Property{PropAuthenticationData, p.AuthData})
	}
	for _, up := range p.UserProperties {
		list = append(list, Property{PropUserProperty, up})
	}
	return list
}

func encodeConnectV5(c *Connect) ([]byte, error) {
	var body []byte
	body = EncodeString(body, "MQTT")
	body = append(body, 5)
	body = append(body, encodeConnectFlags(c))
	body = append(body, byte(c.KeepAlive>>8), byte(c.KeepAlive))

	var err error
	body, err = EncodePropertiesToBytes(body, connectPropertyList(c.Properties))
	if err != nil {
		return nil, err
	}
	body = EncodeString(body, c.ClientID)

	if c.WillFlag {
		body, err = EncodePropertiesToBytes(body, willPropertyList(c.WillProperties))
		if err != nil {
			return nil, err
		}
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

func willPropertyList(p *WillProperties) []Property {
	if p == nil {
		return nil
	}
	var list []Property
	if p.WillDelayInterval != nil {
		list = append(list, Property{PropWillDelayInterval, *p.WillDelayInterval})
	}
	if p.MessageExpiryInterval != nil {
		list = append(list, Property{PropMessageExpiryInterval, *p.MessageExpiryInterval})
	}
	if p.PayloadFormatIndicator != nil {
		list = append(list, Property{PropPayloadFormatIndicator, *p.PayloadFormatIndicator})
	}
	if p.ContentType != nil {
		list = append(list, Property{PropContentType, *p.ContentType})
	}
	if p.ResponseTopic != nil {
		list = append(list, Property{PropResponseTopic, *p.ResponseTopic})
	}
	if p.CorrelationData != nil {
		list = append(list, Property{PropCorrelationData, p.CorrelationData})
	}
	for _, up := range p.UserProperties {
		list = append(list, Property{PropUserProperty, up})
	}
	return list
}

func decodeConnAckV5(body []byte) (*ConnAck, error) {
	if len(body) < 2 {
		return nil, newMalformed("truncated connack", ErrMalformedPacket)
	}
	ack := &ConnAck{
		SessionPresent: body[0]&0x01 != 0, // masked per spec's resolved Open Question
		ReasonCode:     ReasonCode(body[1]),
	}
	if body[0]&0xFE != 0 {
		return nil, newProtocolError("connack reserved flag bits must be 0")
	}
	props, n, err := DecodePropertiesFromBytes(body[2:], ContextConnAck)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, newMalformed("truncated connack properties", ErrMalformedPacket)
	}
	ack.Properties = connAckPropertiesFromDecoded(props)
	return ack, nil
}

func encodeConnAckV5(ack *ConnAck) ([]byte, error) {
	var body []byte
	var sp byte
	if ack.SessionPresent {
		sp = 1
	}
	body = append(body, sp, byte(ack.ReasonCode))

	var err error
	body, err = EncodePropertiesToBytes(body, connAckPropertyList(ack.Properties))
	if err != nil {
		return nil, err
	}

	return encodeFrame(CONNACK, 0, body)
}

// encodeFrame writes the fixed header (type<<4|flags, remaining-length
// VLI) ahead of body, per spec §4.3's encode contract: size the body
// first so the VLI can be emitted before it.
func encodeFrame(typ PacketType, flags byte, body []byte) ([]byte, error) {
	out := []byte{byte(typ)<<4 | flags}
	var err error
	out, err = EncodeLen(out, uint32(len(body)))
	if err != nil {
		return nil, err
	}
	return append(out, body...), nil
}
