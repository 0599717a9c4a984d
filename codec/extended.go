package codec

import (
	"encoding/binary"
	"fmt"
)

// Extended-data TLV codes, §6.
const (
	ExtPremisesText byte = 0x10
	ExtLocationText byte = 0x11
	ExtAreaText     byte = 0x12
	ExtURL          byte = 0x13
)

// ExtendedField is one decoded entry of an extended-data TLV section.
type ExtendedField struct {
	Code  byte
	Value []byte
}

// ParseExtended decodes a sequence of code/length/value TLV entries running
// to the end of b. It stops cleanly at the end of the buffer; it does not
// reject unknown codes, since extended fields are forward-compatible by
// design (§6 names four, but does not say the set is closed).
func ParseExtended(b []byte) ([]ExtendedField, error) {
	var fields []ExtendedField
	for len(b) > 0 {
		if len(b) < 2 {
			return nil, fmt.Errorf("%w: truncated extended TLV header", ErrShort)
		}
		code, length := b[0], int(b[1])
		b = b[2:]
		if len(b) < length {
			return nil, fmt.Errorf("%w: extended TLV value truncated", ErrShort)
		}
		fields = append(fields, ExtendedField{Code: code, Value: append([]byte(nil), b[:length]...)})
		b = b[length:]
	}
	return fields, nil
}

// PutExtended appends fields as a TLV section to dst and returns the result.
func PutExtended(dst []byte, fields []ExtendedField) []byte {
	for _, f := range fields {
		dst = append(dst, f.Code, byte(len(f.Value)))
		dst = append(dst, f.Value...)
	}
	return dst
}

// VenueBeacon is the ID 0x30 payload: envelope, a 4-byte venue code, then an
// optional extended-data TLV tail.
type VenueBeacon struct {
	Envelope
	Code     uint32
	Extended []ExtendedField
}

// ParseVenueBeacon decodes a venue beacon payload, §6 ("Venue beacon
// (≥9 bytes): 0x30 | country:u16 | state:u16 | code:u32 | [extended…]").
func ParseVenueBeacon(b []byte) (VenueBeacon, error) {
	env, err := ParseEnvelope(b)
	if err != nil {
		return VenueBeacon{}, err
	}
	if env.ID != IDVenue {
		return VenueBeacon{}, fmt.Errorf("codec: not a venue beacon payload (id=0x%02x)", env.ID)
	}
	if len(b) < EnvelopeLen+4 {
		return VenueBeacon{}, fmt.Errorf("%w: venue beacon needs %d bytes", ErrShort, EnvelopeLen+4)
	}
	code := binary.LittleEndian.Uint32(b[EnvelopeLen : EnvelopeLen+4])
	ext, err := ParseExtended(b[EnvelopeLen+4:])
	if err != nil {
		return VenueBeacon{}, err
	}
	return VenueBeacon{Envelope: env, Code: code, Extended: ext}, nil
}

// Encode serialises v to its wire form.
func (v VenueBeacon) Encode() []byte {
	b := make([]byte, EnvelopeLen+4)
	v.Envelope.ID = IDVenue
	v.Envelope.Put(b)
	binary.LittleEndian.PutUint32(b[EnvelopeLen:EnvelopeLen+4], v.Code)
	return PutExtended(b, v.Extended)
}
