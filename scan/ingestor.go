// Package scan implements the scan-ingestor: decoding BLE advertisement TLV
// segments into a bounded event queue, per §4.2 of the governing
// specification. Segment parse errors are discarded per-segment rather
// than failing the whole advertisement (§7, "Advertisement TLV parse
// error" → "Segment discarded").
package scan

import (
	"github.com/sirupsen/logrus"

	"github.com/herald-go/herald/address"
)

// AD type codes used by Herald and Apple manufacturer-data advertisers.
const (
	adFlags             byte = 0x01
	adManufacturerData  byte = 0xFF
	adTXPowerLevel      byte = 0x0A
	adUUID128CompleteAll byte = 0x07

	manufacturerHerald uint16 = 0xFFFA
	manufacturerApple  uint16 = 0x004C
)

// Event is one filtered advertisement handed to the device table.
type Event struct {
	MAC             address.MAC
	Pseudo          address.Pseudo
	ManufacturerID  uint16
	ManufacturerTLV []byte
	TXPower         *int8
	RSSI            int8
}

// Segment is one decoded AD structure from an advertisement report.
type Segment struct {
	Type byte
	Data []byte
}

// ParseSegments splits raw advertisement bytes into a sequence of
// length-prefixed AD structures. A segment whose declared length runs past
// the end of the buffer is discarded, along with everything after it,
// rather than failing the whole advertisement.
func ParseSegments(b []byte) []Segment {
	var segs []Segment
	for len(b) > 0 {
		length := int(b[0])
		if length == 0 {
			break
		}
		b = b[1:]
		if length > len(b) {
			break
		}
		segs = append(segs, Segment{Type: b[0], Data: append([]byte(nil), b[1:length]...)})
		b = b[length:]
	}
	return segs
}

// ManufacturerData extracts the (companyID, payload) pair from a
// manufacturer-data AD structure; the first two bytes are the
// little-endian company identifier.
func ManufacturerData(s Segment) (id uint16, payload []byte, ok bool) {
	if s.Type != adManufacturerData || len(s.Data) < 2 {
		return 0, nil, false
	}
	id = uint16(s.Data[0]) | uint16(s.Data[1])<<8
	return id, s.Data[2:], true
}

// PseudoAddress derives the 6-byte pseudo-address advertised in Herald
// manufacturer data: the first 6 bytes of the payload following the
// company identifier, or the MAC itself when the manufacturer payload is
// absent or too short (legacy, non-rotating devices).
func PseudoAddress(mac address.MAC, heraldPayload []byte) address.Pseudo {
	if len(heraldPayload) >= address.Len {
		var p address.Pseudo
		copy(p[:], heraldPayload[:address.Len])
		return p
	}
	return mac.AsPseudo()
}

// Ingestor parses raw advertisement reports and enqueues Events on a
// bounded, non-blocking channel. Enqueue drops the newest item and logs
// when the queue is full (§5, "Queue overflow drops the newest item
// (non-blocking enqueue) and logs").
type Ingestor struct {
	events chan Event
	log    logrus.FieldLogger
}

// NewIngestor builds an Ingestor with the given queue capacity.
func NewIngestor(capacity int, log logrus.FieldLogger) *Ingestor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Ingestor{events: make(chan Event, capacity), log: log}
}

// Events exposes the ingestor's output queue for the scan-processing task
// to range over.
func (ing *Ingestor) Events() <-chan Event { return ing.events }

// Ingest decodes one advertisement report and enqueues an Event derived
// from it. Segments that don't parse, or that carry no recognized
// manufacturer id, are silently skipped.
func (ing *Ingestor) Ingest(mac address.MAC, raw []byte, rssi int8) {
	var (
		txPower       *int8
		heraldID      bool
		payload       []byte
		heraldPayload []byte
	)
	for _, seg := range ParseSegments(raw) {
		switch seg.Type {
		case adManufacturerData:
			id, data, ok := ManufacturerData(seg)
			if !ok {
				continue
			}
			if id == manufacturerHerald || id == manufacturerApple {
				heraldID = true
				payload = data
			}
			if id == manufacturerHerald {
				heraldPayload = data
			}
		case adTXPowerLevel:
			if len(seg.Data) >= 1 {
				v := int8(seg.Data[0])
				txPower = &v
			}
		}
	}
	if !heraldID {
		return
	}
	ev := Event{
		MAC:             mac,
		Pseudo:          PseudoAddress(mac, heraldPayload),
		ManufacturerTLV: payload,
		TXPower:         txPower,
		RSSI:            rssi,
	}
	select {
	case ing.events <- ev:
	default:
		ing.log.WithField("mac", mac.String()).Warn("scan: event queue full, dropping advertisement")
	}
}
