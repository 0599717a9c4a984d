// Package codec implements the wire formats carried in Herald advertisement
// manufacturer data and legacy ABTT payloads: the 5-byte common envelope,
// the fixed and rotating Herald payloads, the ABTT legacy parser, and the
// extended-data TLV section shared by several of them. All multi-byte
// integers are little-endian, per §6 of the governing specification.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Envelope identifier bytes, §6.
const (
	IDFixed      byte = 0x08
	IDRotating   byte = 0x10
	IDVenue      byte = 0x30
	IDABTTLegacy byte = 0x91
)

// EnvelopeLen is the size of the common header every payload format starts
// with: id, country, state.
const EnvelopeLen = 5

// Envelope is the 5-byte header common to every Herald payload format:
// one id byte followed by two little-endian u16 fields.
type Envelope struct {
	ID      byte
	Country uint16
	State   uint16
}

var ErrShort = errors.New("codec: buffer too short")

// ParseEnvelope reads the common header from the front of b.
func ParseEnvelope(b []byte) (Envelope, error) {
	if len(b) < EnvelopeLen {
		return Envelope{}, fmt.Errorf("%w: envelope needs %d bytes, got %d", ErrShort, EnvelopeLen, len(b))
	}
	return Envelope{
		ID:      b[0],
		Country: binary.LittleEndian.Uint16(b[1:3]),
		State:   binary.LittleEndian.Uint16(b[3:5]),
	}, nil
}

// Put writes the envelope to the front of b, which must have length >= EnvelopeLen.
func (e Envelope) Put(b []byte) {
	b[0] = e.ID
	binary.LittleEndian.PutUint16(b[1:3], e.Country)
	binary.LittleEndian.PutUint16(b[3:5], e.State)
}
