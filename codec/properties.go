package codec

import "sort"

// PropertyID is an MQTT 5.0 property identifier.
type PropertyID byte

const (
	PropPayloadFormatIndicator          PropertyID = 0x01
	PropMessageExpiryInterval           PropertyID = 0x02
	PropContentType                     PropertyID = 0x03
	PropResponseTopic                   PropertyID = 0x08
	PropCorrelationData                 PropertyID = 0x09
	PropSubscriptionIdentifier          PropertyID = 0x0B
	PropSessionExpiryInterval           PropertyID = 0x11
	PropAssignedClientIdentifier        PropertyID = 0x12
	PropServerKeepAlive                 PropertyID = 0x13
	PropAuthenticationMethod            PropertyID = 0x15
	PropAuthenticationData              PropertyID = 0x16
	PropRequestProblemInformation       PropertyID = 0x17
	PropWillDelayInterval                PropertyID = 0x18
	PropRequestResponseInformation      PropertyID = 0x19
	PropResponseInformation             PropertyID = 0x1A
	PropServerReference                 PropertyID = 0x1C
	PropReasonString                    PropertyID = 0x1F
	PropReceiveMaximum                  PropertyID = 0x21
	PropTopicAliasMaximum               PropertyID = 0x22
	PropTopicAlias                      PropertyID = 0x23
	PropMaximumQoS                      PropertyID = 0x24
	PropRetainAvailable                 PropertyID = 0x25
	PropUserProperty                    PropertyID = 0x26
	PropMaximumPacketSize               PropertyID = 0x27
	PropWildcardSubscriptionAvailable   PropertyID = 0x28
	PropSubscriptionIdentifierAvailable PropertyID = 0x29
	PropSharedSubscriptionAvailable     PropertyID = 0x2A
)

// PropertyType is the wire encoding of a property's value.
type PropertyType byte

const (
	propByte PropertyType = iota + 1
	propTwoByteInt
	propFourByteInt
	propVarInt
	propUTF8String
	propUTF8Pair
	propBinaryData
)

// UTF8Pair is an MQTT user-property (key, value) pair.
type UTF8Pair struct {
	Key   string
	Value string
}

// Property is a single decoded (id, value) pair from a property
// block. Value holds byte, uint16, uint32, uint32 (for VarInt),
// string, []byte, or UTF8Pair depending on ID's propertySpec.
type Property struct {
	ID    PropertyID
	Value interface{}
}

// Properties is a decoded property block.
type Properties struct {
	List []Property
}

type propertySpec struct {
	typ      PropertyType
	multiple bool
}

var propertySpecs = map[PropertyID]propertySpec{
	PropPayloadFormatIndicator:          {propByte, false},
	PropMessageExpiryInterval:           {propFourByteInt, false},
	PropContentType:                     {propUTF8String, false},
	PropResponseTopic:                   {propUTF8String, false},
	PropCorrelationData:                 {propBinaryData, false},
	PropSubscriptionIdentifier:          {propVarInt, true},
	PropSessionExpiryInterval:           {propFourByteInt, false},
	PropAssignedClientIdentifier:        {propUTF8String, false},
	PropServerKeepAlive:                 {propTwoByteInt, false},
	PropAuthenticationMethod:            {propUTF8String, false},
	PropAuthenticationData:              {propBinaryData, false},
	PropRequestProblemInformation:       {propByte, false},
	PropWillDelayInterval:               {propFourByteInt, false},
	PropRequestResponseInformation:      {propByte, false},
	PropResponseInformation:             {propUTF8String, false},
	PropServerReference:                 {propUTF8String, false},
	PropReasonString:                    {propUTF8String, false},
	PropReceiveMaximum:                  {propTwoByteInt, false},
	PropTopicAliasMaximum:               {propTwoByteInt, false},
	PropTopicAlias:                      {propTwoByteInt, false},
	PropMaximumQoS:                      {propByte, false},
	PropRetainAvailable:                 {propByte, false},
	PropUserProperty:                    {propUTF8Pair, true},
	PropMaximumPacketSize:               {propFourByteInt, false},
	PropWildcardSubscriptionAvailable:   {propByte, false},
	PropSubscriptionIdentifierAvailable: {propByte, false},
	PropSharedSubscriptionAvailable:     {propByte, false},
}

// validInContext restricts which packet contexts may carry a given property,
// per MQTT 5 table 2.4. Only the contexts this core decodes (CONNECT,
// CONNACK, and CONNECT's will-properties sub-block) are enumerated.
type propertyContext int

const (
	ContextConnect propertyContext = iota
	ContextWill
	ContextConnAck
)

var validInContext = map[PropertyID]map[propertyContext]bool{
	PropSessionExpiryInterval:           {ContextConnect: true, ContextConnAck: true},
	PropReceiveMaximum:                  {ContextConnect: true, ContextConnAck: true},
	PropMaximumPacketSize:               {ContextConnect: true, ContextConnAck: true},
	PropTopicAliasMaximum:               {ContextConnect: true, ContextConnAck: true},
	PropRequestResponseInformation:      {ContextConnect: true},
	PropRequestProblemInformation:       {ContextConnect: true},
	PropUserProperty:                    {ContextConnect: true, ContextConnAck: true, ContextWill: true},
	PropAuthenticationMethod:            {ContextConnect: true, ContextConnAck: true},
	PropAuthenticationData:              {ContextConnect: true, ContextConnAck: true},
	PropWillDelayInterval:               {ContextWill: true},
	PropPayloadFormatIndicator:          {ContextWill: true},
	PropMessageExpiryInterval:           {ContextWill: true},
	PropContentType:                     {ContextWill: true},
	PropResponseTopic:                   {ContextWill: true},
	PropCorrelationData:                 {ContextWill: true},
	PropAssignedClientIdentifier:        {ContextConnAck: true},
	PropServerKeepAlive:                 {ContextConnAck: true},
	PropResponseInformation:             {ContextConnAck: true},
	PropServerReference:                 {ContextConnAck: true},
	PropReasonString:                    {ContextConnAck: true},
	PropMaximumQoS:                      {ContextConnAck: true},
	PropRetainAvailable:                 {ContextConnAck: true},
	PropWildcardSubscriptionAvailable:   {ContextConnAck: true},
	PropSubscriptionIdentifierAvailable: {ContextConnAck: true},
	PropSharedSubscriptionAvailable:     {ContextConnAck: true},
}

// DecodePropertiesFromBytes reads a VLI-prefixed property block out of
// buf: the length VLI, then that many bytes of (id, value) pairs. It
// returns (nil, 0, nil) if buf does not yet hold the full block.
func DecodePropertiesFromBytes(buf []byte, ctx propertyContext) (*Properties, int, error) {
	length, n, err := DecodeLenFromBytes(buf)
	if err != nil {
		return nil, 0, err
	}
	if n == 0 {
		return nil, 0, nil
	}
	if len(buf) < n+int(length) {
		return nil, 0, nil
	}

	region := buf[n : n+int(length)]
	props := &Properties{}
	seen := make(map[PropertyID]bool)

	for len(region) > 0 {
		id := PropertyID(region[0])
		region = region[1:]

		spec, ok := propertySpecs[id]
		if !ok {
			return nil, 0, newMalformed("unknown property id", ErrMalformedPacket)
		}
		if allowed, known := validInContext[id]; !known || !allowed[ctx] {
			return nil, 0, newMalformed("property not valid in this packet context", ErrMalformedPacket)
		}
		if !spec.multiple && seen[id] {
			return nil, 0, newMalformed("duplicate property id", ErrMalformedPacket)
		}
		seen[id] = true

		var value interface{}
		var consumed int
		switch spec.typ {
		case propByte:
			if len(region) < 1 {
				return nil, 0, newMalformed("property value truncated", ErrMalformedPacket)
			}
			value, consumed = region[0], 1
		case propTwoByteInt:
			if len(region) < 2 {
				return nil, 0, newMalformed("property value truncated", ErrMalformedPacket)
			}
			value, consumed = uint16(region[0])<<8|uint16(region[1]), 2
		case propFourByteInt:
			if len(region) < 4 {
				return nil, 0, newMalformed("property value truncated", ErrMalformedPacket)
			}
			value = uint32(region[0])<<24 | uint32(region[1])<<16 | uint32(region[2])<<8 | uint32(region[3])
			consumed = 4
		case propVarInt:
			v, c, err := DecodeLenFromBytes(region)
			if err != nil {
				return nil, 0, err
			}
			if c == 0 {
				return nil, 0, newMalformed("property value truncated", ErrMalformedPacket)
			}
			value, consumed = v, c
		case propUTF8String:
			s, c, err := DecodeStringFromBytes(region)
			if err != nil {
				return nil, 0, err
			}
			if c == 0 {
				return nil, 0, newMalformed("property value truncated", ErrMalformedPacket)
			}
			value, consumed = s, c
		case propBinaryData:
			b, c, err := DecodeBinaryFromBytes(region)
			if err != nil {
				return nil, 0, err
			}
			if c == 0 {
				return nil, 0, newMalformed("property value truncated", ErrMalformedPacket)
			}
			cp := make([]byte, len(b))
			copy(cp, b)
			value, consumed = cp, c
		case propUTF8Pair:
			k, kc, err := DecodeStringFromBytes(region)
			if err != nil {
				return nil, 0, err
			}
			if kc == 0 {
				return nil, 0, newMalformed("property value truncated", ErrMalformedPacket)
			}
			v, vc, err := DecodeStringFromBytes(region[kc:])
			if err != nil {
				return nil, 0, err
			}
			if vc == 0 {
				return nil, 0, newMalformed("property value truncated", ErrMalformedPacket)
			}
			value, consumed = UTF8Pair{Key: k, Value: v}, kc+vc
		}

		props.List = append(props.List, Property{ID: id, Value: value})
		region = region[consumed:]
	}

	return props, n + int(length), nil
}

// Get returns the first property value for id, or (nil, false).
func (p *Properties) Get(id PropertyID) (interface{}, bool) {
	if p == nil {
		return nil, false
	}
	for _, prop := range p.List {
		if prop.ID == id {
			return prop.Value, true
		}
	}
	return nil, false
}

// GetAll returns every property value for id (used for repeatable
// properties: user-property and subscription-identifier).
func (p *Properties) GetAll(id PropertyID) []interface{} {
	if p == nil {
		return nil
	}
	var out []interface{}
	for _, prop := range p.List {
		if prop.ID == id {
			out = append(out, prop.Value)
		}
	}
	return out
}

// EncodePropertiesToBytes appends the VLI-length-prefixed encoding of
// props to dst, in ascending numeric id order with user properties
// emitted last (per spec §4.2's canonical-order encoder contract).
func EncodePropertiesToBytes(dst []byte, props []Property) ([]byte, error) {
	body, err := encodePropertyBody(props)
	if err != nil {
		return nil, err
	}
	dst, err = EncodeLen(dst, uint32(len(body)))
	if err != nil {
		return nil, err
	}
	return append(dst, body...), nil
}

func encodePropertyBody(props []Property) ([]byte, error) {
	ordered := make([]Property, len(props))
	copy(ordered, props)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].ID == PropUserProperty && ordered[j].ID != PropUserProperty {
			return false
		}
		if ordered[j].ID == PropUserProperty && ordered[i].ID != PropUserProperty {
			return true
		}
		if ordered[i].ID == PropUserProperty && ordered[j].ID == PropUserProperty {
			return false
		}
		return ordered[i].ID < ordered[j].ID
	})

	var body []byte
	for _, prop := range ordered {
		spec, ok := propertySpecs[prop.ID]
		if !ok {
			return nil, newMalformed("unknown property id", ErrMalformedPacket)
		}
		body = append(body, byte(prop.ID))
		switch spec.typ {
		case propByte:
			body = append(body, prop.Value.(byte))
		case propTwoByteInt:
			v := prop.Value.(uint16)
			body = append(body, byte(v>>8), byte(v))
		case propFourByteInt:
			v := prop.Value.(uint32)
			body = append(body, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
		case propVarInt:
			var err error
			body, err = EncodeLen(body, prop.Value.(uint32))
			if err != nil {
				return nil, err
			}
		case propUTF8String:
			body = EncodeString(body, prop.Value.(string))
		case propBinaryData:
			body = EncodeBinary(body, prop.Value.([]byte))
		case propUTF8Pair:
			pair := prop.Value.(UTF8Pair)
			body = EncodeString(body, pair.Key)
			body = EncodeString(body, pair.Value)
		}
	}
	return body, nil
}

// PropertiesLen computes the would-be encoded size of props (VLI
// length prefix plus body), used to size a remaining-length field
// before writing.
func PropertiesLen(props []Property) (int, error) {
	body, err := encodePropertyBody(props)
	if err != nil {
		return 0, err
	}
	return LenLen(uint32(len(body))) + len(body), nil
}
