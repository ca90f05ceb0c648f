package codec

// Version is the negotiated MQTT dialect. V3 covers both protocol
// levels 3 (3.1) and 4 (3.1.1); they share a wire grammar that lacks
// the v5 property system.
type Version byte

const (
	V3 Version = iota
	V5
)

func (v Version) String() string {
	if v == V5 {
		return "v5"
	}
	return "v3"
}

// ConnectProperties are the v5 CONNECT properties (absent entirely
// under v3).
type ConnectProperties struct {
	SessionExpiryInterval *uint32
	ReceiveMaximum        *uint16
	MaxPacketSize         *uint32
	TopicAliasMaximum     *uint16
	RequestResponseInfo   *byte
	RequestProblemInfo    *byte
	AuthMethod            *string
	AuthData              []byte
	UserProperties        []UTF8Pair
}

// WillProperties are the v5 will-message properties, present only
// when the will flag is set under v5.
type WillProperties struct {
	WillDelayInterval      *uint32
	MessageExpiryInterval  *uint32
	PayloadFormatIndicator *byte
	ContentType            *string
	ResponseTopic          *string
	CorrelationData        []byte
	UserProperties         []UTF8Pair
}

// Connect is the dialect-neutral decoded CONNECT packet.
type Connect struct {
	ProtocolName  string
	ProtocolLevel string // "3.1" | "3.1.1" | "5.0"
	Version       Version

	UsernameFlag bool
	PasswordFlag bool
	WillRetain   bool
	WillQoS      QoS
	WillFlag     bool
	CleanStart   bool

	KeepAlive uint16

	Properties *ConnectProperties // v5 only, nil under v3

	ClientID string

	WillProperties *WillProperties // v5 only, and only when WillFlag
	WillTopic      string
	WillPayload    []byte // binary, per spec's explicit override (see DESIGN.md)

	Username string
	Password []byte
}

func protocolLevelString(level byte) string {
	switch level {
	case 3:
		return "3.1"
	case 4:
		return "3.1.1"
	default:
		return "5.0"
	}
}

// decodeConnectFlags unpacks the shared connect-flags byte layout.
func decodeConnectFlags(c *Connect, flags byte) error {
	c.UsernameFlag = flags&0x80 != 0
	c.PasswordFlag = flags&0x40 != 0
	c.WillRetain = flags&0x20 != 0
	c.WillQoS = QoS((flags & 0x18) >> 3)
	c.WillFlag = flags&0x04 != 0
	c.CleanStart = flags&0x02 != 0

	if flags&0x01 != 0 {
		return newProtocolError("connect flags reserved bit must be 0")
	}
	if !c.WillQoS.Valid() {
		return newProtocolError("invalid will QoS")
	}
	if !c.WillFlag && (c.WillQoS != QoS0 || c.WillRetain) {
		return newProtocolError("will_qos/will_retain set without will flag")
	}
	if c.PasswordFlag && !c.UsernameFlag {
		return newProtocolError("password flag set without username flag")
	}
	return nil
}

func encodeConnectFlags(c *Connect) byte {
	var flags byte
	if c.UsernameFlag {
		flags |= 0x80
	}
	if c.PasswordFlag {
		flags |= 0x40
	}
	if c.WillRetain {
		flags |= 0x20
	}
	flags |= byte(c.WillQoS) << 3
	if c.WillFlag {
		flags |= 0x04
	}
	if c.CleanStart {
		flags |= 0x02
	}
	return flags
}
