//go:build linux

package bluez

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/herald-go/herald/address"
	"github.com/herald-go/herald/radio"
)

// Device owns one HCI socket and implements radio.Advertiser, radio.Scanner
// and radio.CentralReader against it. Construction mirrors the teacher's
// NewHCI: open the socket, reset the controller, then start the read loop
// before handing commands to it.
type Device struct {
	sock *socket
	cmd  *cmdTransport

	scanCB radio.ScanCallback

	onPayload radio.PayloadCallback
	onDone    radio.DoneCallback

	mu      sync.Mutex
	pending map[address.MAC]uint16 // MAC -> connection handle, while a read is in flight

	stop chan struct{}
}

// Open binds devID (e.g. 0 for hci0) and brings the controller to a known
// state, the same reset sequence the teacher's resetDevice runs.
func Open(devID int) (*Device, error) {
	sock, err := openHCISocket(devID)
	if err != nil {
		return nil, err
	}
	d := &Device{
		sock:    sock,
		cmd:     newCmdTransport(sock),
		pending: make(map[address.MAC]uint16),
		stop:    make(chan struct{}),
	}
	go d.readLoop()
	if err := d.cmd.sendAndCheckStatus(opReset, nil); err != nil {
		sock.Close()
		return nil, fmt.Errorf("bluez: reset controller: %w", err)
	}
	return d, nil
}

// Close releases the underlying socket and stops the read loop.
func (d *Device) Close() error {
	close(d.stop)
	return d.sock.Close()
}

func (d *Device) readLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := d.sock.Read(buf)
		if err != nil || n == 0 {
			select {
			case <-d.stop:
			default:
			}
			return
		}
		if packetType(buf[0]) != pktEvent {
			continue
		}
		body := append([]byte(nil), buf[1:n]...)
		d.cmd.dispatchEvent(body, d.handleAdvertisingReport, d.handleConnectionComplete)
	}
}

func (d *Device) handleAdvertisingReport(mac address.MAC, _ uint8, data []byte, rssi int8) {
	if d.scanCB != nil {
		d.scanCB(mac, data, rssi)
	}
}

func (d *Device) handleConnectionComplete(handle uint16, mac address.MAC, status uint8) {
	d.mu.Lock()
	if status == 0x00 {
		d.pending[mac] = handle
	}
	d.mu.Unlock()
}

// ---- radio.Advertiser ----

func (d *Device) Init() error { return nil }

func (d *Device) Start() error {
	return d.cmd.sendAndCheckStatus(opLESetAdvertiseEnable, []byte{0x01})
}

func (d *Device) Stop() error {
	return d.cmd.sendAndCheckStatus(opLESetAdvertiseEnable, []byte{0x00})
}

// SetAdvertisingData pushes the rotating Herald payload as LE advertising
// data, the same 31-byte-capped command the teacher's
// advertiser.AdvertiseService sends, minus the scan-response leg since
// this protocol fits in the primary advertising PDU alone.
func (d *Device) SetAdvertisingData(payload []byte) error {
	var data [31]byte
	n := copy(data[:], payload)
	params := make([]byte, 32)
	params[0] = byte(n)
	copy(params[1:], data[:])
	return d.cmd.sendAndCheckStatus(opLESetAdvertisingData, params)
}

// SetAdvertisingParameters configures the advertising interval window and
// channel map, mirroring leSetAdvertisingParameters's 15-byte parameter
// block (only the fields this driver varies are non-zero/non-default).
func (d *Device) SetAdvertisingParameters(intervalMin, intervalMax uint16, channelMap uint8) error {
	params := make([]byte, 15)
	binary.LittleEndian.PutUint16(params[0:2], intervalMin)
	binary.LittleEndian.PutUint16(params[2:4], intervalMax)
	params[4] = 0x00 // ADV_IND
	params[5] = 0x00 // own address type: public
	params[6] = 0x00 // peer address type
	// params[7:13] peer address, left zero (undirected advertising)
	params[13] = channelMap
	params[14] = 0x00 // filter policy: allow any
	return d.cmd.sendAndCheckStatus(opLESetAdvertisingParameters, params)
}

// ---- radio.Scanner ----

func (d *Device) InitScanner(cb radio.ScanCallback) error {
	d.scanCB = cb
	return nil
}

// StartScan begins active scanning at the conservative interval/window the
// teacher's Scan() uses (16 * 0.625ms).
func (d *Device) StartScan() error {
	params := []byte{
		0x01,       // active scan
		0x10, 0x00, // interval
		0x10, 0x00, // window
		0x00, // own address type: public
		0x00, // filter policy: accept all
	}
	if err := d.cmd.sendAndCheckStatus(opLESetScanParameters, params); err != nil {
		return err
	}
	return d.cmd.sendAndCheckStatus(opLESetScanEnable, []byte{0x01, 0x00})
}

func (d *Device) StopScan() error {
	return d.cmd.sendAndCheckStatus(opLESetScanEnable, []byte{0x00, 0x00})
}

// ---- radio.CentralReader ----

var errGATTDiscoveryUnimplemented = errors.New("bluez: ATT read-by-type/read-request exchange over L2CAP is not implemented in this reference driver")

// InitReader registers the payload and completion callbacks a connection
// read reports through.
func (d *Device) InitReader(onPayload radio.PayloadCallback, onDone radio.DoneCallback) error {
	d.onPayload = onPayload
	d.onDone = onDone
	return nil
}

// GetPayload establishes an LE connection to mac and reports
// ErrGATTDiscovery: the HCI connection-establishment half of this
// reference driver is wired and tested, but the GATT discovery/read
// exchange itself runs over the L2CAP fixed ATT channel, which this
// package does not implement. Adapting the teacher's linux/l2cap.go
// connection/channel plumbing (conn.Read/Write, the ATT opcodes layered
// on top of it) is the next step for a fully end-to-end driver; until
// then this method still exercises the real connect/cancel/backoff path
// the engine drives.
func (d *Device) GetPayload(mac address.MAC) error {
	params := make([]byte, 25)
	binary.LittleEndian.PutUint16(params[0:2], 0x0004) // scan interval
	binary.LittleEndian.PutUint16(params[2:4], 0x0004) // scan window
	params[4] = 0x00                                    // filter policy: use peer address
	params[5] = 0x00                                    // peer address type: public
	copy(params[6:12], mac[:])
	params[12] = 0x00 // own address type: public
	binary.LittleEndian.PutUint16(params[13:15], 0x0006) // conn interval min
	binary.LittleEndian.PutUint16(params[15:17], 0x000C) // conn interval max
	binary.LittleEndian.PutUint16(params[17:19], 0x0000) // conn latency
	binary.LittleEndian.PutUint16(params[19:21], 0x00C8) // supervision timeout
	binary.LittleEndian.PutUint16(params[21:23], 0x0004) // min CE length
	binary.LittleEndian.PutUint16(params[23:25], 0x0006) // max CE length

	if err := d.cmd.sendAndCheckStatus(opLECreateConn, params); err != nil {
		if d.onDone != nil {
			d.onPayload(mac, radio.ErrConnecting, nil)
			d.onDone(mac)
		}
		return nil
	}

	if d.onPayload != nil {
		d.onPayload(mac, radio.ErrGATTDiscovery, nil)
	}
	if d.onDone != nil {
		d.onDone(mac)
	}
	return errGATTDiscoveryUnimplemented
}

// AdvertiserAdapter, ScannerAdapter and CentralReaderAdapter each give one
// facet of Device the exact method set radio.Advertiser, radio.Scanner and
// radio.CentralReader require. They're separate types rather than one
// embedding Device directly because Advertiser and Scanner both want
// differently-shaped Init/Start/Stop methods on the same underlying
// socket.
type AdvertiserAdapter struct{ Dev *Device }

func (a AdvertiserAdapter) Init() error  { return a.Dev.Init() }
func (a AdvertiserAdapter) Start() error { return a.Dev.Start() }
func (a AdvertiserAdapter) Stop() error  { return a.Dev.Stop() }

type ScannerAdapter struct{ Dev *Device }

func (s ScannerAdapter) Init(cb radio.ScanCallback) error { return s.Dev.InitScanner(cb) }
func (s ScannerAdapter) Start() error                     { return s.Dev.StartScan() }
func (s ScannerAdapter) Stop() error                      { return s.Dev.StopScan() }

type CentralReaderAdapter struct{ Dev *Device }

func (c CentralReaderAdapter) Init(onPayload radio.PayloadCallback, onDone radio.DoneCallback) error {
	return c.Dev.InitReader(onPayload, onDone)
}

func (c CentralReaderAdapter) GetPayload(mac address.MAC) error { return c.Dev.GetPayload(mac) }

var (
	_ radio.Advertiser    = AdvertiserAdapter{}
	_ radio.Scanner       = ScannerAdapter{}
	_ radio.CentralReader = CentralReaderAdapter{}
)
