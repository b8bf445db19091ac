//go:build linux

// Package uhid implements the production hid.Sink: a userspace HID
// device registered with the kernel's /dev/uhid character device.
//
// The wire format here is the kernel's uhid ABI (linux/uhid.h), the
// Go equivalent of what the original device's python-uhid binding
// packs with ctypes (original_source/uhidbin5.py's uhid.UHIDDevice).
// No Go uhid client exists in the example pack, so the event framing
// is built directly with encoding/binary against the kernel's
// documented struct layout rather than through a third-party binding.
package uhid

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/shirosf/binary5kbd/hid"
)

const devPath = "/dev/uhid"

// uhid_event types (linux/uhid.h).
const (
	evCreate2  uint32 = 11
	evDestroy  uint32 = 1
	evStart    uint32 = 2
	evInput2   uint32 = 12
)

const (
	nameSize = 128
	physSize = 64
	uniqSize = 64
	rdSize   = 4096
)

// eventSize is sizeof(struct uhid_event): a 4-byte type tag plus the
// largest union member, the create2 request.
const create2Size = nameSize + physSize + uniqSize + 2 + 2 + 4 + 4 + 4 + 4 + rdSize
const eventSize = 4 + create2Size

// Device is an open uhid character device registered as a USB HID
// keyboard.
type Device struct {
	f *os.File
}

// Open creates a uhid device with the given identity and HID report
// descriptor, and waits briefly for the kernel to acknowledge it with
// a UHID_START event (mirroring wait_for_start_asyncio in the Python
// original).
func Open(vendorID, productID uint32, name string, reportDescriptor []byte) (*Device, error) {
	if len(reportDescriptor) > rdSize {
		return nil, fmt.Errorf("uhid: report descriptor too large (%d > %d)", len(reportDescriptor), rdSize)
	}

	f, err := os.OpenFile(devPath, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("uhid: open %s: %w", devPath, err)
	}
	d := &Device{f: f}

	if err := d.writeCreate2(vendorID, productID, name, reportDescriptor); err != nil {
		f.Close()
		return nil, err
	}
	if err := d.waitStart(2 * time.Second); err != nil {
		f.Close()
		return nil, err
	}
	return d, nil
}

func (d *Device) writeCreate2(vendorID, productID uint32, name string, rd []byte) error {
	if _, err := d.f.Write(buildCreate2Event(vendorID, productID, name, rd)); err != nil {
		return fmt.Errorf("uhid: write create2: %w", err)
	}
	return nil
}

// buildCreate2Event packs a UHID_CREATE2 event, pure so it can be unit
// tested without a real /dev/uhid.
func buildCreate2Event(vendorID, productID uint32, name string, rd []byte) []byte {
	buf := make([]byte, eventSize)
	binary.LittleEndian.PutUint32(buf[0:4], evCreate2)

	off := 4
	copy(buf[off:off+nameSize], name)
	off += nameSize
	off += physSize // phys left zero
	off += uniqSize // uniq left zero

	binary.LittleEndian.PutUint16(buf[off:off+2], uint16(len(rd)))
	off += 2
	binary.LittleEndian.PutUint16(buf[off:off+2], 0x03) // bus: USB
	off += 2
	binary.LittleEndian.PutUint32(buf[off:off+4], vendorID)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:off+4], productID)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:off+4], 0) // version
	off += 4
	binary.LittleEndian.PutUint32(buf[off:off+4], 0) // country
	off += 4
	copy(buf[off:off+len(rd)], rd)
	return buf
}

// buildInputEvent packs a UHID_INPUT2 event carrying report.
func buildInputEvent(report hid.Report) []byte {
	buf := make([]byte, eventSize)
	binary.LittleEndian.PutUint32(buf[0:4], evInput2)
	binary.LittleEndian.PutUint16(buf[4:6], uint16(len(report)))
	copy(buf[6:6+len(report)], report[:])
	return buf
}

// waitStart reads events until UHID_START arrives or timeout elapses.
// The read runs in its own goroutine since a plain character-device
// read has no deadline support; if the kernel never starts the
// device within timeout, waitStart gives up and the pipeline proceeds
// optimistically (writes made before start are simply queued, so a
// missed start is not fatal to the protocol, only to diagnostics).
func (d *Device) waitStart(timeout time.Duration) error {
	found := make(chan struct{})
	go func() {
		buf := make([]byte, eventSize)
		for {
			n, err := d.f.Read(buf)
			if err != nil {
				return
			}
			if n >= 4 && binary.LittleEndian.Uint32(buf[0:4]) == evStart {
				close(found)
				return
			}
		}
	}()

	select {
	case <-found:
	case <-time.After(timeout):
	}
	return nil
}

// Send implements hid.Sink by writing one UHID_INPUT2 event carrying
// the 8-byte boot keyboard report. Every write is the full
// sizeof(struct uhid_event) regardless of payload size, since the
// kernel reads the union's fixed compile-time layout, not a
// variable-length frame.
func (d *Device) Send(report hid.Report) error {
	if _, err := d.f.Write(buildInputEvent(report)); err != nil {
		return fmt.Errorf("uhid: write input: %w", err)
	}
	return nil
}

// Pending always reports false: /dev/uhid writes are synchronous
// character-device writes, not a queued async writer, so there is
// nothing for the reporter to wait on (unlike the python-uhid
// asyncio backend's _writer_registered flag this package's design
// mirrors the shape of, for testability against a fake Sink).
func (d *Device) Pending() bool { return false }

// Close destroys the uhid device and closes the character device.
func (d *Device) Close() error {
	ev := make([]byte, 4)
	binary.LittleEndian.PutUint32(ev, evDestroy)
	d.f.Write(ev)
	return d.f.Close()
}
