package codec

// ConnAckProperties are the v5 CONNACK properties.
type ConnAckProperties struct {
	SessionExpiryInterval     *uint32
	ReceiveMaximum            *uint16
	MaximumQoS                *byte
	RetainAvailable           *byte
	MaxPacketSize             *uint32
	AssignedClientIdentifier  *string
	TopicAliasMaximum         *uint16
	ReasonString              *string
	UserProperties            []UTF8Pair
	WildcardSubAvailable      *byte
	SubIdentifierAvailable    *byte
	SharedSubAvailable        *byte
	ServerKeepAlive           *uint16
	ResponseInformation       *string
	ServerReference           *string
	AuthMethod                *string
	AuthData                  []byte
}

// ConnAck is the dialect-neutral decoded/encoded CONNACK packet. Under
// v3 the reason code is the legacy return-code byte and Properties is
// always nil.
type ConnAck struct {
	SessionPresent bool
	ReasonCode     ReasonCode
	Properties     *ConnAckProperties
}

func connAckPropertyList(p *ConnAckProperties) []Property {
	if p == nil {
		return nil
	}
	var list []Property
	add := func(id PropertyID, v interface{}, present bool) {
		if present {
			list = append(list, Property{ID: id, Value: v})
		}
	}
	add(PropSessionExpiryInterval, derefU32(p.SessionExpiryInterval), p.SessionExpiryInterval != nil)
	add(PropReceiveMaximum, derefU16(p.ReceiveMaximum), p.ReceiveMaximum != nil)
	add(PropMaximumQoS, derefByte(p.MaximumQoS), p.MaximumQoS != nil)
	add(PropRetainAvailable, derefByte(p.RetainAvailable), p.RetainAvailable != nil)
	add(PropMaximumPacketSize, derefU32(p.MaxPacketSize), p.MaxPacketSize != nil)
	add(PropAssignedClientIdentifier, derefStr(p.AssignedClientIdentifier), p.AssignedClientIdentifier != nil)
	add(PropTopicAliasMaximum, derefU16(p.TopicAliasMaximum), p.TopicAliasMaximum != nil)
	add(PropReasonString, derefStr(p.ReasonString), p.ReasonString != nil)
	for _, up := range p.UserProperties {
		list = append(list, Property{ID: PropUserProperty, Value: up})
	}
	add(PropWildcardSubscriptionAvailable, derefByte(p.WildcardSubAvailable), p.WildcardSubAvailable != nil)
	add(PropSubscriptionIdentifierAvailable, derefByte(p.SubIdentifierAvailable), p.SubIdentifierAvailable != nil)
	add(PropSharedSubscriptionAvailable, derefByte(p.SharedSubAvailable), p.SharedSubAvailable != nil)
	add(PropServerKeepAlive, derefU16(p.ServerKeepAlive), p.ServerKeepAlive != nil)
	add(PropResponseInformation, derefStr(p.ResponseInformation), p.ResponseInformation != nil)
	add(PropServerReference, derefStr(p.ServerReference), p.ServerReference != nil)
	add(PropAuthenticationMethod, derefStr(p.AuthMethod), p.AuthMethod != nil)
	add(PropAuthenticationData, p.AuthData, p.AuthData != nil)
	return list
}

func connAckPropertiesFromDecoded(props *Properties) *ConnAckProperties {
	if props == nil || len(props.List) == 0 {
		return &ConnAckProperties{}
	}
	out := &ConnAckProperties{}
	if v, ok := props.Get(PropSessionExpiryInterval); ok {
		out.SessionExpiryInterval = u32ptr(v.(uint32))
	}
	if v, ok := props.Get(PropReceiveMaximum); ok {
		out.ReceiveMaximum = u16ptr(v.(uint16))
	}
	if v, ok := props.Get(PropMaximumQoS); ok {
		out.MaximumQoS = byteptr(v.(byte))
	}
	if v, ok := props.Get(PropRetainAvailable); ok {
		out.RetainAvailable = byteptr(v.(byte))
	}
	if v, ok := props.Get(PropMaximumPacketSize); ok {
		out.MaxPacketSize = u32ptr(v.(uint32))
	}
	if v, ok := props.Get(PropAssignedClientIdentifier); ok {
		out.AssignedClientIdentifier = strptr(v.(string))
	}
	if v, ok := props.Get(PropTopicAliasMaximum); ok {
		out.TopicAliasMaximum = u16ptr(v.(uint16))
	}
	if v, ok := props.Get(PropReasonString); ok {
		out.ReasonString = strptr(v.(string))
	}
	for _, v := range props.GetAll(PropUserProperty) {
		out.UserProperties = append(out.UserProperties, v.(UTF8Pair))
	}
	if v, ok := props.Get(PropWildcardSubscriptionAvailable); ok {
		out.WildcardSubAvailable = byteptr(v.(byte))
	}
	if v, ok := props.Get(PropSubscriptionIdentifierAvailable); ok {
		out.SubIdentifierAvailable = byteptr(v.(byte))
	}
	if v, ok := props.Get(PropSharedSubscriptionAvailable); ok {
		out.SharedSubAvailable = byteptr(v.(byte))
	}
	if v, ok := props.Get(PropServerKeepAlive); ok {
		out.ServerKeepAlive = u16ptr(v.(uint16))
	}
	if v, ok := props.Get(PropResponseInformation); ok {
		out.ResponseInformation = strptr(v.(string))
	}
	if v, ok := props.Get(PropServerReference); ok {
		out.ServerReference = strptr(v.(string))
	}
	if v, ok := props.Get(PropAuthenticationMethod); ok {
		out.AuthMethod = strptr(v.(string))
	}
	if v, ok := props.Get(PropAuthenticationData); ok {
		out.AuthData = v.([]byte)
	}
	return out
}

func derefU32(p *uint32) interface{} {
	if p == nil {
		return uint32(0)
	}
	return *p
}

func derefU16(p *uint16) interface{} {
	if p == nil {
		return uint16(0)
	}
	return *p
}

func derefByte(p *byte) interface{} {
	if p == nil {
		return byte(0)
	}
	return *p
}

func derefStr(p *string) interface{} {
	if p == nil {
		return ""
	}
	return *p
}

func u32ptr(v uint32) *uint32 { return &v }
func u16ptr(v uint16) *uint16 { return &v }
func byteptr(v byte) *byte    { return &v }
func strptr(v string) *string { return &v }
