//go:build linux

package uhid

import (
	"encoding/binary"
	"testing"

	"github.com/shirosf/binary5kbd/hid"
)

func TestBuildCreate2EventLayout(t *testing.T) {
	rd := []byte{0x05, 0x01, 0x09, 0x06}
	buf := buildCreate2Event(0x15d9, 0x2323, "binary5kbd", rd)

	if len(buf) != eventSize {
		t.Fatalf("event size = %d, want %d", len(buf), eventSize)
	}
	if got := binary.LittleEndian.Uint32(buf[0:4]); got != evCreate2 {
		t.Errorf("type = %d, want %d", got, evCreate2)
	}

	nameOff := 4
	if string(buf[nameOff:nameOff+len("binary5kbd")]) != "binary5kbd" {
		t.Errorf("name not at expected offset: %q", buf[nameOff:nameOff+16])
	}

	rdSizeOff := nameOff + nameSize + physSize + uniqSize
	if got := binary.LittleEndian.Uint16(buf[rdSizeOff : rdSizeOff+2]); got != uint16(len(rd)) {
		t.Errorf("rd_size = %d, want %d", got, len(rd))
	}

	vendorOff := rdSizeOff + 2 + 2
	if got := binary.LittleEndian.Uint32(buf[vendorOff : vendorOff+4]); got != 0x15d9 {
		t.Errorf("vendor = %#x, want 0x15d9", got)
	}
	productOff := vendorOff + 4
	if got := binary.LittleEndian.Uint32(buf[productOff : productOff+4]); got != 0x2323 {
		t.Errorf("product = %#x, want 0x2323", got)
	}

	rdOff := productOff + 4 + 4 + 4
	if string(buf[rdOff:rdOff+len(rd)]) != string(rd) {
		t.Errorf("report descriptor bytes not copied at expected offset")
	}
}

func TestBuildInputEventCarriesReport(t *testing.T) {
	report := hid.Report{0x02, 0, 0x04, 0, 0, 0, 0, 0}
	buf := buildInputEvent(report)

	if len(buf) != eventSize {
		t.Fatalf("event size = %d, want %d", len(buf), eventSize)
	}
	if got := binary.LittleEndian.Uint32(buf[0:4]); got != evInput2 {
		t.Errorf("type = %d, want %d", got, evInput2)
	}
	if got := binary.LittleEndian.Uint16(buf[4:6]); got != 8 {
		t.Errorf("size = %d, want 8", got)
	}
	for i, b := range report {
		if buf[6+i] != b {
			t.Errorf("data[%d] = %#x, want %#x", i, buf[6+i], b)
		}
	}
}

func TestPendingAlwaysFalse(t *testing.T) {
	d := &Device{}
	if d.Pending() {
		t.Error("Pending() must always be false for the synchronous uhid Sink")
	}
}
