// Package radio defines the narrow interfaces the core engine requires
// from a platform-specific BLE driver (§6 of the governing specification),
// plus the radio arbiter that coordinates pausing advertising/scanning
// around outgoing connections (§4.1). Concrete drivers live under
// platform/ (e.g. platform/bluez).
package radio

import "github.com/herald-go/herald/address"

// StatusCode mirrors the pipeline's exposed error codes, §6.
type StatusCode int

const (
	OK                        StatusCode = 0
	StopReading               StatusCode = 1
	ErrSystem                 StatusCode = -1
	ErrConnecting             StatusCode = -2
	ErrGATTDiscovery          StatusCode = -3
	ErrHeraldServiceNotFound  StatusCode = -4
	ErrHeraldPayloadNotFound  StatusCode = -5
	ErrPayloadTooBig          StatusCode = -6
)

func (s StatusCode) String() string {
	switch s {
	case OK:
		return "OK"
	case StopReading:
		return "STOP_READING"
	case ErrSystem:
		return "SYSTEM"
	case ErrConnecting:
		return "ERR_CONNECTING"
	case ErrGATTDiscovery:
		return "ERR_GATT_DISCOVERY"
	case ErrHeraldServiceNotFound:
		return "ERR_HERALD_SERVICE_NOT_FOUND"
	case ErrHeraldPayloadNotFound:
		return "ERR_HERALD_PAYLOAD_NOT_FOUND"
	case ErrPayloadTooBig:
		return "ERR_PAYLOAD_TOO_BIG"
	default:
		return "UNKNOWN"
	}
}

// Advertiser starts/stops local GATT advertising.
type Advertiser interface {
	Init() error
	Start() error
	Stop() error
}

// ScanCallback is invoked once per filtered advertisement.
type ScanCallback func(mac address.MAC, manufacturerData []byte, rssi int8)

// Scanner drives passive/active scanning, delivering one callback per advert.
type Scanner interface {
	Init(cb ScanCallback) error
	Start() error
	Stop() error
}

// PayloadCallback delivers a chunk of a peer's payload characteristic read.
// Returning StopReading instructs the driver to stop reading further chunks.
type PayloadCallback func(mac address.MAC, status StatusCode, data []byte) StatusCode

// DoneCallback fires exactly once per GetPayload call, whether it succeeded
// or failed.
type DoneCallback func(mac address.MAC)

// CentralReader drives the connect/discover/read sequence against a peer.
type CentralReader interface {
	Init(onPayload PayloadCallback, onDone DoneCallback) error
	GetPayload(mac address.MAC) error
}

// AllowCallback reports whether the local GATT service should currently
// accept incoming connections (the peripheral-side mirror of the arbiter).
type AllowCallback func() bool

// GetPayloadCallback supplies the bytes to serve from the local payload
// characteristic to an incoming reader.
type GetPayloadCallback func() []byte

// ReceivedCallback delivers bytes written to the local write/indicate
// characteristic by a remote peer.
type ReceivedCallback func(mac address.MAC, data []byte)

// Peripheral wires the GATT callbacks for the local Herald service.
type Peripheral interface {
	Init(allow AllowCallback, getPayload GetPayloadCallback, received ReceivedCallback) error
}
