// Package device implements the per-peer device table: records, their
// state machine, and the exponential backoff families that govern retry
// timing after connect/read failures, per §4.3/§4.4 and §7 of the
// governing specification.
package device

import "github.com/herald-go/herald/radio"

// Family names a backoff family; §6 names exactly two.
type Family int

const (
	FamilyConnection Family = iota
	FamilyHeraldNotFound
)

// Backoff is a (base, rate, reset) triple governing exponential retry
// delays for one failure family, confirmed against BleDevice.c: the wait
// used for the *current* attempt is base*rate^counter, computed before the
// counter is incremented; the counter resets to 0 only once it strictly
// exceeds reset (not >=).
type Backoff struct {
	Base  uint32
	Rate  uint32
	Reset uint32
}

// Delay returns the backoff's current wait, in seconds, for the given
// pre-increment counter value.
func (b Backoff) Delay(counter uint32) uint32 {
	return b.Base * ipow(b.Rate, counter)
}

// Next advances counter by one attempt, wrapping to 0 once it strictly
// exceeds Reset, and returns the delay to use for the attempt that just
// failed (computed from the counter's value *before* this increment).
func (b Backoff) Next(counter uint32) (delay uint32, nextCounter uint32) {
	delay = b.Delay(counter)
	nextCounter = counter + 1
	if nextCounter > b.Reset {
		nextCounter = 0
	}
	return delay, nextCounter
}

func ipow(base, exp uint32) uint32 {
	result := uint32(1)
	for i := uint32(0); i < exp; i++ {
		result *= base
	}
	return result
}

// FamilyFor routes a pipeline status code to the backoff family that
// governs its retries, confirmed against BleDevice.c's error-to-family
// table: CONNECTING/GATT_DISCOVERY/HERALD_PAYLOAD_NOT_FOUND fall into the
// connection family; HERALD_SERVICE_NOT_FOUND/PAYLOAD_TOO_BIG fall into
// the herald-not-found family. SYSTEM errors retry immediately and never
// reach this table.
func FamilyFor(status radio.StatusCode) (fam Family, immediate bool) {
	switch status {
	case radio.ErrSystem:
		return FamilyConnection, true
	case radio.ErrConnecting, radio.ErrGATTDiscovery, radio.ErrHeraldPayloadNotFound:
		return FamilyConnection, false
	case radio.ErrHeraldServiceNotFound, radio.ErrPayloadTooBig:
		return FamilyHeraldNotFound, false
	default:
		return FamilyConnection, false
	}
}
