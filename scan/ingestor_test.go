package scan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/herald-go/herald/address"
)

func TestParseSegments(t *testing.T) {
	raw := []byte{
		0x02, adFlags, 0x06,
		0x04, adManufacturerData, 0xFA, 0xFF, 0x01,
	}
	segs := ParseSegments(raw)
	require.Len(t, segs, 2)
	require.Equal(t, adFlags, segs[0].Type)
	require.Equal(t, []byte{0x06}, segs[0].Data)
	require.Equal(t, adManufacturerData, segs[1].Type)
}

func TestParseSegmentsDiscardsTruncated(t *testing.T) {
	raw := []byte{0xFF, adManufacturerData, 0x01}
	segs := ParseSegments(raw)
	require.Empty(t, segs)
}

func TestManufacturerData(t *testing.T) {
	seg := Segment{Type: adManufacturerData, Data: []byte{0xFA, 0xFF, 0x01, 0x02, 0x03}}
	id, payload, ok := ManufacturerData(seg)
	require.True(t, ok)
	require.Equal(t, manufacturerHerald, id)
	require.Equal(t, []byte{0x01, 0x02, 0x03}, payload)
}

func TestPseudoAddressFromPayload(t *testing.T) {
	mac := address.MAC{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	p := PseudoAddress(mac, payload)
	require.Equal(t, address.Pseudo{1, 2, 3, 4, 5, 6}, p)
}

func TestPseudoAddressFallsBackToMAC(t *testing.T) {
	mac := address.MAC{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	p := PseudoAddress(mac, []byte{1, 2})
	require.Equal(t, mac.AsPseudo(), p)
}

func TestIngestEnqueuesHeraldAdvert(t *testing.T) {
	ing := NewIngestor(4, nil)
	mac := address.MAC{1, 2, 3, 4, 5, 6}
	raw := []byte{
		0x09, adManufacturerData, 0xFA, 0xFF, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F,
	}
	ing.Ingest(mac, raw, -55)

	select {
	case ev := <-ing.Events():
		require.Equal(t, mac, ev.MAC)
		require.Equal(t, int8(-55), ev.RSSI)
	default:
		t.Fatal("expected an event to be enqueued")
	}
}

func TestIngestSkipsNonHeraldAdvert(t *testing.T) {
	ing := NewIngestor(4, nil)
	mac := address.MAC{1, 2, 3, 4, 5, 6}
	raw := []byte{0x04, adManufacturerData, 0x00, 0x00, 0x01}
	ing.Ingest(mac, raw, -55)

	select {
	case <-ing.Events():
		t.Fatal("expected no event for unrecognized manufacturer id")
	default:
	}
}

func TestIngestDropsOnFullQueue(t *testing.T) {
	ing := NewIngestor(1, nil)
	mac := address.MAC{1, 2, 3, 4, 5, 6}
	raw := []byte{0x04, adManufacturerData, 0xFA, 0xFF, 0x01}
	ing.Ingest(mac, raw, 0)
	ing.Ingest(mac, raw, 0) // should be dropped, not block
	require.Len(t, ing.events, 1)
}
