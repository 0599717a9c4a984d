package codec

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/herald-go/herald/digest"
)

// RotatingMinLen is the minimum wire size of a rotating payload: envelope,
// 2-byte length, and the 16-byte identifier itself (no extended section).
const RotatingMinLen = EnvelopeLen + 2 + 16

// IdentifierLen is the fixed width of a rotating contact identifier.
const IdentifierLen = 16

// SecondsPerDay is the period-math denominator used by DayAndPeriod.
const SecondsPerDay = 86400

// Rotating is the ID 0x10 payload carrying a time-rotated contact identifier
// plus an optional extended-data tail.
type Rotating struct {
	Envelope
	Identifier [IdentifierLen]byte
	Extended   []ExtendedField
}

// DayAndPeriod computes the (day, period) pair for nowSeconds relative to
// epochSeconds and a configured number of periods per day, per §4.6:
// "day = floor((now - epoch)/86400); period = floor(((now - epoch) mod
// 86400) * periodsPerDay / 86400)".
func DayAndPeriod(nowSeconds, epochSeconds uint32, periodsPerDay uint32) (day uint32, period uint32) {
	elapsed := nowSeconds - epochSeconds
	day = elapsed / SecondsPerDay
	remainder := elapsed % SecondsPerDay
	period = remainder * periodsPerDay / SecondsPerDay
	return day, period
}

// KeySchedule derives rotating contact identifiers from a secret key. The
// originating C++ sources leave this derivation (the "K" class) as an
// unimplemented stub, so the exact byte-level construction below is this
// port's own — built only to the documented shape: a three-function
// h/t/xor pattern (hash, truncate, xor) keyed by (secretKey, day, period),
// deterministic and changing at every period boundary. h is SHA-256, t
// truncates to IdentifierLen bytes, and xor folds a per-day subkey
// (derived via HKDF-SHA256, golang.org/x/crypto/hkdf) against the
// per-period hash so that identifiers from the same day but different
// periods are unlinkable without the day subkey.
type KeySchedule struct {
	SecretKey []byte
	Hash      digest.Hash
}

// NewKeySchedule builds a KeySchedule using the default SHA-256 backend.
func NewKeySchedule(secretKey []byte) KeySchedule {
	return KeySchedule{SecretKey: secretKey, Hash: digest.Default}
}

// daySubkey derives a 32-byte subkey for one day via HKDF-SHA256, using the
// day index as salt so each day's subkey is independent of the others.
func (k KeySchedule) daySubkey(day uint32) ([]byte, error) {
	salt := make([]byte, 4)
	binary.BigEndian.PutUint32(salt, day)
	r := hkdf.New(sha256.New, k.SecretKey, salt, []byte("herald-rotating-identifier"))
	sub := make([]byte, 32)
	if _, err := io.ReadFull(r, sub); err != nil {
		return nil, fmt.Errorf("codec: deriving day subkey: %w", err)
	}
	return sub, nil
}

// Identifier computes the 16-byte contact identifier for (day, period). h
// hashes the subkey concatenated with the period index; t truncates the
// digest to IdentifierLen bytes; xor folds the leading IdentifierLen bytes
// of the subkey itself across the truncated hash, binding the result to
// the day even though only a truncated hash is transmitted.
func (k KeySchedule) Identifier(day, period uint32) ([IdentifierLen]byte, error) {
	var id [IdentifierLen]byte
	sub, err := k.daySubkey(day)
	if err != nil {
		return id, err
	}
	msg := make([]byte, len(sub)+4)
	copy(msg, sub)
	binary.BigEndian.PutUint32(msg[len(sub):], period)

	h := k.hash()(msg)
	for i := 0; i < IdentifierLen; i++ {
		id[i] = h[i] ^ sub[i]
	}
	return id, nil
}

func (k KeySchedule) hash() func([]byte) [32]byte {
	if k.Hash != nil {
		return k.Hash.Sum256
	}
	return digest.Default.Sum256
}

// EncodeRotating serialises a rotating payload, §6:
// "0x10 | country:u16 | state:u16 | length:u16 | contactIdentifier:16 | [extended…]".
func EncodeRotating(country, state uint16, id [IdentifierLen]byte, extended []ExtendedField) []byte {
	tail := PutExtended(nil, extended)
	length := uint16(IdentifierLen + len(tail))
	b := make([]byte, EnvelopeLen+2, EnvelopeLen+2+int(length))
	Envelope{ID: IDRotating, Country: country, State: state}.Put(b)
	binary.LittleEndian.PutUint16(b[EnvelopeLen:EnvelopeLen+2], length)
	b = append(b, id[:]...)
	b = append(b, tail...)
	return b
}

// ParseRotating decodes a rotating payload.
func ParseRotating(b []byte) (Rotating, error) {
	if len(b) < RotatingMinLen {
		return Rotating{}, fmt.Errorf("%w: rotating payload needs at least %d bytes, got %d", ErrShort, RotatingMinLen, len(b))
	}
	env, err := ParseEnvelope(b)
	if err != nil {
		return Rotating{}, err
	}
	if env.ID != IDRotating {
		return Rotating{}, fmt.Errorf("codec: not a rotating payload (id=0x%02x)", env.ID)
	}
	length := binary.LittleEndian.Uint16(b[EnvelopeLen : EnvelopeLen+2])
	body := b[EnvelopeLen+2:]
	if len(body) < int(length) || length < IdentifierLen {
		return Rotating{}, fmt.Errorf("%w: rotating payload length field inconsistent", ErrShort)
	}
	var id [IdentifierLen]byte
	copy(id[:], body[:IdentifierLen])
	ext, err := ParseExtended(body[IdentifierLen:length])
	if err != nil {
		return Rotating{}, err
	}
	return Rotating{Envelope: env, Identifier: id, Extended: ext}, nil
}
