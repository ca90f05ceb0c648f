package codec

// DefaultMaxPacketSize is used when a Framer is not configured with an
// explicit cap: 256 KiB, per the backpressure default.
const DefaultMaxPacketSize = 256 * 1024

// dialectCodec is implemented by ProbeCodec, V3Codec, and V5Codec. A
// Framer holds exactly one of these as its active inner codec.
type dialectCodec interface {
	DecodePacket(buf []byte) (Packet, int, error)
	EncodePacket(pkt Packet) ([]byte, error)
}

// Framer holds the currently selected dialect codec and an inbound
// byte buffer that may span multiple Feed calls. It is created in
// probe mode and transitions exactly once to a concrete dialect via
// SwitchDialect.
type Framer struct {
	inner         dialectCodec
	buf           []byte
	maxPacketSize uint32
}

// NewFramer creates a Framer in probe mode. maxPacketSize caps any
// single frame's header-plus-body size; 0 selects DefaultMaxPacketSize.
func NewFramer(maxPacketSize uint32) *Framer {
	if maxPacketSize == 0 {
		maxPacketSize = DefaultMaxPacketSize
	}
	return &Framer{inner: &ProbeCodec{}, maxPacketSize: maxPacketSize}
}

// Feed appends newly read bytes to the framer's buffer.
func (f *Framer) Feed(data []byte) {
	f.buf = append(f.buf, data...)
}

// reserve grows the buffer's backing array ahead of a long frame so it
// is resized at most once per frame, per §4.5.
func (f *Framer) reserve(n int) {
	if cap(f.buf)-len(f.buf) >= n {
		return
	}
	grown := make([]byte, len(f.buf), len(f.buf)+n)
	copy(grown, f.buf)
	f.buf = grown
}

// Decode attempts to decode one packet from the buffered bytes using
// the active inner codec. It returns (nil, nil) if the buffer does not
// yet hold a complete frame; the caller should Feed more bytes and
// retry. Consumed bytes are dropped from the buffer, except for the
// probe codec's synthetic Version packet, which is never consumed
// (consumed=0) so the real dialect codec can re-decode the same bytes.
func (f *Framer) Decode() (Packet, error) {
	if fh, hdrLen, err := DecodeFixedHeaderFromBytes(f.buf); err == nil && fh != nil {
		f.reserve(hdrLen + int(fh.RemainingLength) - len(f.buf))
	}

	pkt, consumed, err := f.inner.DecodePacket(f.buf)
	if err != nil {
		return nil, err
	}
	if pkt == nil {
		return nil, nil
	}
	if consumed > 0 {
		remaining := len(f.buf) - consumed
		copy(f.buf, f.buf[consumed:])
		f.buf = f.buf[:remaining]
	}
	return pkt, nil
}

// Encode serializes pkt using the active inner codec.
func (f *Framer) Encode(pkt Packet) ([]byte, error) {
	return f.inner.EncodePacket(pkt)
}

// SwitchDialect atomically replaces the inner codec once the
// handshake driver has learned the negotiated Version from a probe
// decode. It is only ever called once per connection.
func (f *Framer) SwitchDialect(v Version) {
	switch v {
	case V3:
		f.inner = &V3Codec{MaxPacketSize: f.maxPacketSize}
	case V5:
		f.inner = &V5Codec{MaxPacketSize: f.maxPacketSize}
	}
}

// Reset drops the framer's buffered bytes, used on connection close so
// an in-flight decode never leaks buffered data.
func (f *Framer) Reset() {
	f.buf = nil
}
