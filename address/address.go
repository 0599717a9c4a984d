// Package address implements the 6-byte addresses the proximity engine
// keys everything by: physical BLE MAC addresses and Herald pseudo
// addresses. The two are bit-for-bit interchangeable; they are kept as
// distinct named types only so call sites can't accidentally compare one
// against the other without an explicit conversion.
package address

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Len is the fixed width of every address in this package.
const Len = 6

// ErrBadLength is returned by Parse/FromBytes when the input isn't exactly
// Len bytes.
var ErrBadLength = errors.New("address: must be exactly 6 bytes")

// Address is a 6-byte identifier in big-endian wire order. Comparison is
// lexicographic, byte index 0 most significant, matching §3 of the spec
// ("lexicographic comparison LSB-first (byte index 0 most significant for
// comparison)").
type Address [Len]byte

// MAC is a physical address observed by the radio.
type MAC Address

// Pseudo is a Herald pseudo-address: the first 6 bytes of the advertised
// manufacturer data, or the MAC itself for legacy (non-rotating) devices.
type Pseudo Address

// FromBytes copies b into a new Address, failing if len(b) != Len.
func FromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != Len {
		return a, fmt.Errorf("%w: got %d", ErrBadLength, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// Bytes returns a's big-endian byte representation.
func (a Address) Bytes() []byte {
	b := make([]byte, Len)
	copy(b, a[:])
	return b
}

// Compare returns -1, 0, or 1 as a is less than, equal to, or greater than
// b, comparing byte 0 first (most significant).
func (a Address) Compare(b Address) int {
	for i := 0; i < Len; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Equal reports whether a and b are the same address.
func (a Address) Equal(b Address) bool {
	return a == b
}

// String renders the address as colon-separated hex, most significant
// byte first (e.g. "AA:BB:CC:DD:EE:FF"). Uses encoding/hex as the
// externally-supplied hex codec per §1.
func (a Address) String() string {
	parts := make([]string, Len)
	for i, b := range a {
		parts[i] = hex.EncodeToString([]byte{b})
	}
	return strings.ToUpper(strings.Join(parts, ":"))
}

// Parse reads a colon-separated hex address such as "AA:BB:CC:DD:EE:FF".
func Parse(s string) (Address, error) {
	var a Address
	parts := strings.Split(s, ":")
	if len(parts) != Len {
		return a, fmt.Errorf("%w: %q", ErrBadLength, s)
	}
	for i, p := range parts {
		b, err := hex.DecodeString(p)
		if err != nil || len(b) != 1 {
			return a, fmt.Errorf("address: invalid octet %q in %q", p, s)
		}
		a[i] = b[0]
	}
	return a, nil
}

// AsPseudo reinterprets a as a Pseudo address, e.g. for legacy devices
// whose pseudo-address is simply their MAC.
func (a MAC) AsPseudo() Pseudo { return Pseudo(a) }

func (p Pseudo) Bytes() []byte    { return Address(p).Bytes() }
func (p Pseudo) String() string   { return Address(p).String() }
func (m MAC) Bytes() []byte       { return Address(m).Bytes() }
func (m MAC) String() string      { return Address(m).String() }
func (p Pseudo) Compare(o Pseudo) int { return Address(p).Compare(Address(o)) }
func (m MAC) Compare(o MAC) int       { return Address(m).Compare(Address(o)) }
