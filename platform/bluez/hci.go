//go:build linux

package bluez

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/herald-go/herald/address"
)

// HCI packet types, opcode group fields, and event codes below are taken
// verbatim from the Bluetooth Core spec's HCI layer, the same constants
// the teacher's linux/const.go and linux/cmd.go hard-code.
const (
	pktCommand packetType = 0x01
	pktACLData            = 0x02
	pktEvent              = 0x04
)

type packetType uint8

const (
	ogfLinkCtl uint16 = 0x01
	ogfHostCtl uint16 = 0x03
	ogfLECtl   uint16 = 0x08
)

type opcode uint16

func mkOpcode(ogf uint16, ocf uint16) opcode { return opcode(ogf<<10 | ocf) }

var (
	opReset                      opcode
	opSetEventMask               opcode
	opLESetAdvertisingParameters opcode
	opLESetAdvertisingData       opcode
	opLESetScanResponseData      opcode
	opLESetAdvertiseEnable       opcode
	opLESetScanParameters        opcode
	opLESetScanEnable            opcode
	opLECreateConn               opcode
	opLECreateConnCancel         opcode
	opDisconnect                 opcode
)

func init() {
	opReset = mkOpcode(ogfHostCtl, 0x0003)
	opSetEventMask = mkOpcode(ogfHostCtl, 0x0001)
	opLESetAdvertisingParameters = mkOpcode(ogfLECtl, 0x0006)
	opLESetAdvertisingData = mkOpcode(ogfLECtl, 0x0008)
	opLESetScanResponseData = mkOpcode(ogfLECtl, 0x0009)
	opLESetAdvertiseEnable = mkOpcode(ogfLECtl, 0x000a)
	opLESetScanParameters = mkOpcode(ogfLECtl, 0x000b)
	opLESetScanEnable = mkOpcode(ogfLECtl, 0x000c)
	opLECreateConn = mkOpcode(ogfLECtl, 0x000d)
	opLECreateConnCancel = mkOpcode(ogfLECtl, 0x000e)
	opDisconnect = mkOpcode(ogfLinkCtl, 0x0006)
}

const (
	evtDisconnectionComplete uint8 = 0x05
	evtCommandComplete       uint8 = 0x0E
	evtCommandStatus         uint8 = 0x0F
	evtLEMeta                uint8 = 0x3E
)

const subEvtLEAdvertisingReport uint8 = 0x02
const subEvtLEConnectionComplete uint8 = 0x01

// buildCommand frames one outbound HCI command: a 3-byte header (packet
// type, opcode) plus a one-byte parameter length, same framing as the
// teacher's cmdPkt.marshal.
func buildCommand(op opcode, params []byte) []byte {
	b := make([]byte, 4+len(params))
	b[0] = byte(pktCommand)
	binary.LittleEndian.PutUint16(b[1:3], uint16(op))
	b[3] = byte(len(params))
	copy(b[4:], params)
	return b
}

// cmdTransport sends HCI commands and blocks the caller until the
// matching command-complete or command-status event arrives, mirroring
// the teacher's cmd.send/sendAndCheckResp pair.
type cmdTransport struct {
	sock *socket

	mu      sync.Mutex
	pending map[opcode]chan []byte
}

func newCmdTransport(sock *socket) *cmdTransport {
	return &cmdTransport{sock: sock, pending: make(map[opcode]chan []byte)}
}

func (c *cmdTransport) send(op opcode, params []byte) ([]byte, error) {
	ch := make(chan []byte, 1)
	c.mu.Lock()
	c.pending[op] = ch
	c.mu.Unlock()

	raw := buildCommand(op, params)
	if _, err := c.sock.Write(raw); err != nil {
		return nil, fmt.Errorf("bluez: write command %#04x: %w", uint16(op), err)
	}
	return <-ch, nil
}

func (c *cmdTransport) sendAndCheckStatus(op opcode, params []byte) error {
	rsp, err := c.send(op, params)
	if err != nil {
		return err
	}
	if len(rsp) > 0 && rsp[0] != 0x00 {
		return fmt.Errorf("bluez: command %#04x returned status %#02x", uint16(op), rsp[0])
	}
	return nil
}

// dispatchEvent resolves one raw HCI event packet (payload after the
// packet-type byte). It completes any pending command and, for LE meta
// events, calls onAdvertisingReport / onConnectionComplete.
func (c *cmdTransport) dispatchEvent(b []byte, onAdvertisingReport func(address.MAC, uint8, []byte, int8), onConnectionComplete func(handle uint16, addr address.MAC, status uint8)) {
	if len(b) < 2 {
		return
	}
	code, plen := b[0], b[1]
	if len(b) < int(2+plen) {
		return
	}
	body := b[2 : 2+plen]

	switch code {
	case evtCommandComplete:
		if len(body) < 3 {
			return
		}
		op := opcode(binary.LittleEndian.Uint16(body[1:3]))
		c.complete(op, body[3:])
	case evtCommandStatus:
		if len(body) < 4 {
			return
		}
		status := body[0]
		op := opcode(binary.LittleEndian.Uint16(body[2:4]))
		c.complete(op, []byte{status})
	case evtLEMeta:
		if len(body) < 1 {
			return
		}
		switch body[0] {
		case subEvtLEAdvertisingReport:
			parseAdvertisingReports(body[1:], onAdvertisingReport)
		case subEvtLEConnectionComplete:
			if len(body) < 13 {
				return
			}
			status := body[1]
			handle := binary.LittleEndian.Uint16(body[2:4])
			var mac address.MAC
			copy(mac[:], body[6:12])
			if onConnectionComplete != nil {
				onConnectionComplete(handle, mac, status)
			}
		}
	}
}

func (c *cmdTransport) complete(op opcode, payload []byte) {
	c.mu.Lock()
	ch, ok := c.pending[op]
	if ok {
		delete(c.pending, op)
	}
	c.mu.Unlock()
	if ok {
		ch <- payload
	}
}

// parseAdvertisingReports decodes the repeated-field LE Advertising Report
// sub-event layout, structurally identical to the teacher's
// leAdvertisingReportEP.unmarshal (numReports, then one array per field,
// each the full report count long, in field order).
func parseAdvertisingReports(b []byte, onReport func(address.MAC, uint8, []byte, int8)) {
	if len(b) < 1 {
		return
	}
	n := int(b[0])
	b = b[1:]
	if n == 0 {
		return
	}
	need := func(k int) bool { return len(b) >= k }

	if !need(n) {
		return
	}
	eventTypes := append([]byte(nil), b[:n]...)
	b = b[n:]
	if !need(n) {
		return
	}
	b = b[n:] // address types, unused by callers today
	if !need(n * 6) {
		return
	}
	addrs := make([]address.MAC, n)
	for i := 0; i < n; i++ {
		copy(addrs[i][:], b[i*6:i*6+6])
	}
	b = b[n*6:]
	if !need(n) {
		return
	}
	lens := append([]byte(nil), b[:n]...)
	b = b[n:]
	datas := make([][]byte, n)
	for i := 0; i < n; i++ {
		l := int(lens[i])
		if !need(l) {
			return
		}
		datas[i] = append([]byte(nil), b[:l]...)
		b = b[l:]
	}
	if !need(n) {
		return
	}
	rssis := make([]int8, n)
	for i := 0; i < n; i++ {
		rssis[i] = int8(b[i])
	}

	if onReport == nil {
		return
	}
	for i := 0; i < n; i++ {
		onReport(addrs[i], eventTypes[i], datas[i], rssis[i])
	}
}

var errShortPacket = errors.New("bluez: short HCI packet")
