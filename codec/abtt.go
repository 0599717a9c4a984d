package codec

import (
	"encoding/binary"
	"fmt"
)

// ABTT TLV extension codes, §4.6.
const (
	ABTTExtTXPower byte = 0x41
	ABTTExtRSSI    byte = 0x40
	ABTTExtModel   byte = 0x42
)

// ABTT is the ID 0x91 legacy payload format: envelope, payload length,
// TempID, then a sequence of TLV extension blocks.
type ABTT struct {
	Envelope
	TempID   []byte
	TXPower  *int16
	RSSI     *int8
	Model    string
}

// ParseABTT decodes the legacy ABTT payload, §4.6: "reads the 5-byte
// envelope, then a 2-byte little-endian payload length, then a 2-byte
// TempID length followed by the TempID, then a sequence of TLV extension
// blocks: 1-byte code, 1-byte length, length bytes... Unknown codes
// terminate parsing with an error."
func ParseABTT(b []byte) (ABTT, error) {
	env, err := ParseEnvelope(b)
	if err != nil {
		return ABTT{}, err
	}
	if env.ID != IDABTTLegacy {
		return ABTT{}, fmt.Errorf("codec: not an ABTT payload (id=0x%02x)", env.ID)
	}
	rest := b[EnvelopeLen:]
	if len(rest) < 4 {
		return ABTT{}, fmt.Errorf("%w: ABTT header truncated", ErrShort)
	}
	payloadLen := binary.LittleEndian.Uint16(rest[0:2])
	tempIDLen := binary.LittleEndian.Uint16(rest[2:4])
	rest = rest[4:]
	if len(rest) < int(tempIDLen) {
		return ABTT{}, fmt.Errorf("%w: ABTT tempID truncated", ErrShort)
	}
	result := ABTT{Envelope: env, TempID: append([]byte(nil), rest[:tempIDLen]...)}
	rest = rest[tempIDLen:]

	consumed := 4 + int(tempIDLen)
	for consumed < int(payloadLen) {
		if len(rest) < 2 {
			return ABTT{}, fmt.Errorf("%w: ABTT TLV header truncated", ErrShort)
		}
		code, length := rest[0], int(rest[1])
		rest = rest[2:]
		consumed += 2
		if len(rest) < length {
			return ABTT{}, fmt.Errorf("%w: ABTT TLV value truncated", ErrShort)
		}
		value := rest[:length]
		switch code {
		case ABTTExtTXPower:
			if length != 2 {
				return ABTT{}, fmt.Errorf("codec: ABTT TX power field must be 2 bytes, got %d", length)
			}
			v := int16(binary.LittleEndian.Uint16(value))
			result.TXPower = &v
		case ABTTExtRSSI:
			if length != 1 {
				return ABTT{}, fmt.Errorf("codec: ABTT RSSI field must be 1 byte, got %d", length)
			}
			v := int8(value[0])
			result.RSSI = &v
		case ABTTExtModel:
			result.Model = string(value)
		default:
			return ABTT{}, fmt.Errorf("codec: unrecognized ABTT extension code 0x%02x", code)
		}
		rest = rest[length:]
		consumed += length
	}
	return result, nil
}

// EncodeABTT serialises an ABTT payload.
func EncodeABTT(a ABTT) []byte {
	var tlv []byte
	if a.TXPower != nil {
		v := make([]byte, 2)
		binary.LittleEndian.PutUint16(v, uint16(*a.TXPower))
		tlv = append(tlv, ABTTExtTXPower, 2)
		tlv = append(tlv, v...)
	}
	if a.RSSI != nil {
		tlv = append(tlv, ABTTExtRSSI, 1, byte(*a.RSSI))
	}
	if a.Model != "" {
		tlv = append(tlv, ABTTExtModel, byte(len(a.Model)))
		tlv = append(tlv, a.Model...)
	}

	payloadLen := 4 + len(a.TempID) + len(tlv)
	b := make([]byte, EnvelopeLen, EnvelopeLen+2+payloadLen)
	a.Envelope.ID = IDABTTLegacy
	a.Envelope.Put(b)
	lenBuf := make([]byte, 2)
	binary.LittleEndian.PutUint16(lenBuf, uint16(payloadLen))
	b = append(b, lenBuf...)
	tempIDLenBuf := make([]byte, 2)
	binary.LittleEndian.PutUint16(tempIDLenBuf, uint16(len(a.TempID)))
	b = append(b, tempIDLenBuf...)
	b = append(b, a.TempID...)
	b = append(b, tlv...)
	return b
}
