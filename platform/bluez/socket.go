//go:build linux

// Package bluez is a reference radio driver for Linux, implementing three
// of the interfaces the radio package declares (Advertiser, Scanner,
// CentralReader) over a raw HCI socket; it does not implement Peripheral.
// It is adapted from the
// teacher's linux/hci.go and linux/device.go, swapping the teacher's
// hand-rolled socket package for golang.org/x/sys/unix, which now carries
// the BTPROTO_HCI/SockaddrHCI definitions that package didn't have when
// the teacher was written.
package bluez

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// socket wraps a bound, raw HCI socket file descriptor with the same
// read/write mutex discipline as the teacher's device type, since HCI
// sockets don't serialize concurrent writers themselves.
type socket struct {
	fd  int
	rmu sync.Mutex
	wmu sync.Mutex
}

// openHCISocket opens the HCI socket for adapter devID, preferring the
// user channel (exclusive access, no interference from bluetoothd) and
// falling back to the raw channel on kernels that don't support it, the
// same fallback the teacher's newSocket performs.
func openHCISocket(devID int) (*socket, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_RAW, unix.BTPROTO_HCI)
	if err != nil {
		return nil, fmt.Errorf("bluez: open HCI socket: %w", err)
	}
	sa := &unix.SockaddrHCI{Dev: uint16(devID), Channel: unix.HCI_CHANNEL_USER}
	if err := unix.Bind(fd, sa); err != nil {
		sa.Channel = unix.HCI_CHANNEL_RAW
		if err := unix.Bind(fd, sa); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("bluez: bind HCI socket: %w", err)
		}
	}
	return &socket{fd: fd}, nil
}

func (s *socket) Read(b []byte) (int, error) {
	s.rmu.Lock()
	defer s.rmu.Unlock()
	return unix.Read(s.fd, b)
}

func (s *socket) Write(b []byte) (int, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return unix.Write(s.fd, b)
}

func (s *socket) Close() error {
	return unix.Close(s.fd)
}
