package device

import "github.com/herald-go/herald/address"

// State is a device's position in the read state machine, §4.4.
type State int

const (
	StateIdle State = iota
	StateConnecting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	default:
		return "UNKNOWN"
	}
}

// Record is the per-peer state kept in the device table, §4.3.
type Record struct {
	MAC    address.MAC
	Pseudo address.Pseudo

	State State

	LastScan  uint32
	NextRead  uint32
	ExpirySec uint32

	RSSI    int8
	Payload []byte

	connectionCounter     uint32
	heraldNotFoundCounter uint32

	used bool
}

// Expired reports whether the record's last-scan timestamp plus its
// expiry window has passed now; alive at LastScan+ExpirySec, dead at
// LastScan+ExpirySec+1, per §8.
func (r *Record) Expired(now uint32) bool {
	return r.LastScan+r.ExpirySec < now
}

// ShouldRead reports whether the record is due for a connect/read attempt:
// idle, and either never scheduled or its next-read time has arrived.
func (r *Record) ShouldRead(now uint32) bool {
	return r.State == StateIdle && now >= r.NextRead
}
