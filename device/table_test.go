package device

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/herald-go/herald/address"
	"github.com/herald-go/herald/delegate"
)

func newTestTable(capacity int) (*Table, *[]string) {
	events := &[]string{}
	n := delegate.Delegate{
		DidCreate: func(h delegate.Handle, p address.Pseudo) { *events = append(*events, "create:"+p.String()) },
		DidDelete: func(h delegate.Handle, p address.Pseudo) { *events = append(*events, "delete:"+p.String()) },
		DidRead:   func(h delegate.Handle, p address.Pseudo, payload []byte) { *events = append(*events, "read:"+p.String()) },
		DidUpdate: func(h delegate.Handle, p address.Pseudo, state string) { *events = append(*events, "update:"+state) },
	}
	tbl := NewTable(Config{
		Capacity:       capacity,
		Connection:     Backoff{Base: 8, Rate: 2, Reset: 5},
		HeraldNotFound: Backoff{Base: 3600, Rate: 1, Reset: 1},
		Notifier:       n,
	})
	return tbl, events
}

// scenario 1: clean read.
func TestCleanReadScenario(t *testing.T) {
	tbl, events := newTestTable(4)
	mac := address.MAC{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	pseudo := address.Pseudo{1, 2, 3, 4, 5, 6}

	_, created, ok := tbl.Scanned(mac, pseudo, -60, 10)
	require.True(t, ok)
	require.True(t, created)
	require.Contains(t, *events, "create:"+pseudo.String())

	rec, ok := tbl.Get(pseudo)
	require.True(t, ok)
	require.Equal(t, StateIdle, rec.State)
	require.True(t, rec.ShouldRead(10))

	tbl.CompleteRead(pseudo, []byte{0x08}, 10, 300)
	rec, _ = tbl.Get(pseudo)
	require.EqualValues(t, 310, rec.NextRead)
	require.EqualValues(t, 0, rec.connectionCounter)
}

// scenario 2: connection-error backoff, base=8 rate=2 reset=5.
func TestConnectionErrorBackoffScenario(t *testing.T) {
	tbl, _ := newTestTable(4)
	mac := address.MAC{1, 2, 3, 4, 5, 6}
	pseudo := address.Pseudo{1, 2, 3, 4, 5, 6}
	tbl.Scanned(mac, pseudo, -50, 0)

	tbl.Fail(pseudo, FamilyConnection, false, 0)
	rec, _ := tbl.Get(pseudo)
	require.EqualValues(t, 8, rec.NextRead)

	tbl.Fail(pseudo, FamilyConnection, false, 1)
	rec, _ = tbl.Get(pseudo)
	require.EqualValues(t, 17, rec.NextRead)

	tbl.Fail(pseudo, FamilyConnection, false, 2)
	rec, _ = tbl.Get(pseudo)
	require.EqualValues(t, 34, rec.NextRead)
}

// scenario 3: herald-not-found.
func TestHeraldNotFoundScenario(t *testing.T) {
	tbl, _ := newTestTable(4)
	mac := address.MAC{1, 2, 3, 4, 5, 6}
	pseudo := address.Pseudo{1, 2, 3, 4, 5, 6}
	tbl.Scanned(mac, pseudo, -50, 0)

	tbl.Fail(pseudo, FamilyHeraldNotFound, false, 0)
	rec, _ := tbl.Get(pseudo)
	require.EqualValues(t, 1, rec.heraldNotFoundCounter)
	require.EqualValues(t, 3600, rec.NextRead)

	// Rescanning before nextRead only touches LastScan.
	tbl.Scanned(mac, pseudo, -40, 100)
	rec, _ = tbl.Get(pseudo)
	require.EqualValues(t, 100, rec.LastScan)
	require.EqualValues(t, 3600, rec.NextRead)
}

// scenario 5: eviction.
func TestEvictionScenario(t *testing.T) {
	tbl, events := newTestTable(2)
	tbl.DefaultExpiry(50)

	p1 := address.Pseudo{1}
	p2 := address.Pseudo{2}
	p3 := address.Pseudo{3}
	mac := address.MAC{9, 9, 9, 9, 9, 9}

	_, created, ok := tbl.Scanned(mac, p1, 0, 0)
	require.True(t, ok && created)
	_, created, ok = tbl.Scanned(mac, p2, 0, 0)
	require.True(t, ok && created)

	// (N+1)th insert: no slot.
	_, _, ok = tbl.Scanned(mac, p3, 0, 0)
	require.False(t, ok)
	require.NotContains(t, *events, "create:"+p3.String())

	tbl.Sweep(51) // 0 + 50 + 1
	require.Contains(t, *events, "delete:"+p1.String())
	require.Contains(t, *events, "delete:"+p2.String())

	_, created, ok = tbl.Scanned(mac, p3, 0, 52)
	require.True(t, ok)
	require.True(t, created)
}

// A slot recycled from a prior eviction must pick up the table's
// configured default expiry, not the zero value Sweep resets the slot to
// — otherwise a device landing in a reused slot is (incorrectly) expired
// on the very next sweep, regardless of how recently it was scanned.
func TestRecycledSlotKeepsConfiguredExpiry(t *testing.T) {
	tbl, _ := newTestTable(1)
	tbl.DefaultExpiry(50)

	p1 := address.Pseudo{1}
	p2 := address.Pseudo{2}
	mac := address.MAC{9, 9, 9, 9, 9, 9}

	_, _, ok := tbl.Scanned(mac, p1, 0, 0)
	require.True(t, ok)

	tbl.Sweep(51) // evicts p1, frees its slot
	_, created, ok := tbl.Scanned(mac, p2, 0, 100)
	require.True(t, ok)
	require.True(t, created)

	rec, ok := tbl.Get(p2)
	require.True(t, ok)
	require.EqualValues(t, 50, rec.ExpirySec)
	require.False(t, rec.Expired(150), "p2 was just scanned at 100 with a 50s expiry; a stale 0 expiry would report it expired immediately")

	tbl.Sweep(101)
	rec, ok = tbl.Get(p2)
	require.True(t, ok, "p2 must survive the very next sweep after being scanned")
	require.Equal(t, int8(0), rec.RSSI)
}

func TestExpiredBoundary(t *testing.T) {
	rec := &Record{LastScan: 10, ExpirySec: 5}
	require.False(t, rec.Expired(15))
	require.True(t, rec.Expired(16))
}

func TestBeginConnectingOccupiesSlot(t *testing.T) {
	tbl, _ := newTestTable(4)
	mac := address.MAC{1, 2, 3, 4, 5, 6}
	pseudo := address.Pseudo{1, 2, 3, 4, 5, 6}
	tbl.Scanned(mac, pseudo, 0, 0)

	_, ok := tbl.BeginConnecting(pseudo)
	require.True(t, ok)

	_, ok = tbl.BeginConnecting(pseudo)
	require.False(t, ok, "a device already connecting cannot begin a second connection")
}

func TestScannedIdempotentForSameNow(t *testing.T) {
	tbl, _ := newTestTable(4)
	mac := address.MAC{1, 2, 3, 4, 5, 6}
	pseudo := address.Pseudo{1, 2, 3, 4, 5, 6}
	tbl.Scanned(mac, pseudo, -50, 10)
	tbl.Scanned(mac, pseudo, -50, 10)
	rec, _ := tbl.Get(pseudo)
	require.EqualValues(t, 10, rec.LastScan)
}
