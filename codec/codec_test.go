package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFixedRoundTrip(t *testing.T) {
	b := EncodeFixed(0x0102, 0x0003, 0x00000000DEADBEEF)
	require.Len(t, b, FixedLen)
	got, err := ParseFixed(b)
	require.NoError(t, err)
	require.Equal(t, uint16(0x0102), got.Country)
	require.Equal(t, uint16(0x0003), got.State)
	require.EqualValues(t, 0xDEADBEEF, got.ClientID)
}

func TestFixedRejectsWrongLength(t *testing.T) {
	_, err := ParseFixed(make([]byte, FixedLen-1))
	require.ErrorIs(t, err, ErrShort)
}

func TestFixedRejectsWrongID(t *testing.T) {
	b := EncodeFixed(1, 2, 3)
	b[0] = IDRotating
	_, err := ParseFixed(b)
	require.Error(t, err)
}

func TestDayAndPeriodBoundaries(t *testing.T) {
	day, period := DayAndPeriod(0, 0, 96)
	require.EqualValues(t, 0, day)
	require.EqualValues(t, 0, period)

	day, period = DayAndPeriod(SecondsPerDay, 0, 96)
	require.EqualValues(t, 1, day)
	require.EqualValues(t, 0, period)

	day, period = DayAndPeriod(SecondsPerDay/2, 0, 96)
	require.EqualValues(t, 0, day)
	require.EqualValues(t, 48, period)
}

func TestRotatingIdentifierDeterministic(t *testing.T) {
	k := NewKeySchedule([]byte("a secret key"))
	a, err := k.Identifier(3, 7)
	require.NoError(t, err)
	b, err := k.Identifier(3, 7)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestRotatingIdentifierChangesAcrossPeriods(t *testing.T) {
	k := NewKeySchedule([]byte("a secret key"))
	a, err := k.Identifier(3, 7)
	require.NoError(t, err)
	b, err := k.Identifier(3, 8)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestRotatingIdentifierChangesAcrossDays(t *testing.T) {
	k := NewKeySchedule([]byte("a secret key"))
	a, err := k.Identifier(3, 7)
	require.NoError(t, err)
	b, err := k.Identifier(4, 7)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestRotatingRoundTrip(t *testing.T) {
	k := NewKeySchedule([]byte("a secret key"))
	id, err := k.Identifier(1, 1)
	require.NoError(t, err)

	ext := []ExtendedField{{Code: ExtURL, Value: []byte("https://example.test")}}
	b := EncodeRotating(10, 20, id, ext)

	got, err := ParseRotating(b)
	require.NoError(t, err)
	require.Equal(t, uint16(10), got.Country)
	require.Equal(t, uint16(20), got.State)
	require.Equal(t, id, got.Identifier)
	require.Equal(t, ext, got.Extended)
}

func TestRotatingRejectsShortBuffer(t *testing.T) {
	_, err := ParseRotating(make([]byte, RotatingMinLen-1))
	require.ErrorIs(t, err, ErrShort)
}

func TestVenueBeaconRoundTrip(t *testing.T) {
	v := VenueBeacon{
		Envelope: Envelope{Country: 44, State: 1},
		Code:     0xCAFEBABE,
		Extended: []ExtendedField{{Code: ExtPremisesText, Value: []byte("Town Hall")}},
	}
	b := v.Encode()
	got, err := ParseVenueBeacon(b)
	require.NoError(t, err)
	require.Equal(t, v.Code, got.Code)
	require.Equal(t, v.Extended, got.Extended)
}

func TestExtendedRoundTrip(t *testing.T) {
	fields := []ExtendedField{
		{Code: ExtPremisesText, Value: []byte("lobby")},
		{Code: ExtURL, Value: []byte("https://x")},
	}
	b := PutExtended(nil, fields)
	got, err := ParseExtended(b)
	require.NoError(t, err)
	require.Equal(t, fields, got)
}

func TestABTTRoundTrip(t *testing.T) {
	tx := int16(-40)
	rssi := int8(-70)
	a := ABTT{
		Envelope: Envelope{Country: 1, State: 2},
		TempID:   []byte{0xAA, 0xBB, 0xCC, 0xDD},
		TXPower:  &tx,
		RSSI:     &rssi,
		Model:    "pixel",
	}
	b := EncodeABTT(a)
	got, err := ParseABTT(b)
	require.NoError(t, err)
	require.Equal(t, a.TempID, got.TempID)
	require.Equal(t, *a.TXPower, *got.TXPower)
	require.Equal(t, *a.RSSI, *got.RSSI)
	require.Equal(t, a.Model, got.Model)
}

func TestABTTUnknownCodeIsError(t *testing.T) {
	a := ABTT{Envelope: Envelope{ID: IDABTTLegacy}, TempID: []byte{1, 2}}
	b := EncodeABTT(a)
	b = append(b, 0xFE, 1, 0x00) // unknown code
	binaryPatchPayloadLen(t, b)
	_, err := ParseABTT(b)
	require.Error(t, err)
}

// binaryPatchPayloadLen fixes up the payload-length field after the test
// appends an extra TLV block by hand, so the parser's consumed-bytes loop
// actually reaches the injected unknown code instead of stopping early.
func binaryPatchPayloadLen(t *testing.T, b []byte) {
	t.Helper()
	require.True(t, len(b) >= EnvelopeLen+2)
	newLen := len(b) - EnvelopeLen - 2
	b[EnvelopeLen] = byte(newLen)
	b[EnvelopeLen+1] = byte(newLen >> 8)
}
