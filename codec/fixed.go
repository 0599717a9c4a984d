package codec

import (
	"encoding/binary"
	"fmt"
)

// FixedLen is the wire size of a fixed payload: 1 id + 2 country + 2 state + 8 client.
const FixedLen = EnvelopeLen + 8

// Fixed is the ID 0x08 payload carrying a static, non-rotating client id.
type Fixed struct {
	Envelope
	ClientID uint64
}

// EncodeFixed serialises a fixed payload: §6, "0x08 | country:u16 | state:u16 | client:u64".
func EncodeFixed(country, state uint16, clientID uint64) []byte {
	b := make([]byte, FixedLen)
	Envelope{ID: IDFixed, Country: country, State: state}.Put(b)
	binary.LittleEndian.PutUint64(b[EnvelopeLen:], clientID)
	return b
}

// ParseFixed decodes a fixed payload, requiring an exact 13-byte buffer.
func ParseFixed(b []byte) (Fixed, error) {
	if len(b) != FixedLen {
		return Fixed{}, fmt.Errorf("%w: fixed payload must be exactly %d bytes, got %d", ErrShort, FixedLen, len(b))
	}
	env, err := ParseEnvelope(b)
	if err != nil {
		return Fixed{}, err
	}
	if env.ID != IDFixed {
		return Fixed{}, fmt.Errorf("codec: not a fixed payload (id=0x%02x)", env.ID)
	}
	return Fixed{
		Envelope: env,
		ClientID: binary.LittleEndian.Uint64(b[EnvelopeLen:]),
	}, nil
}
