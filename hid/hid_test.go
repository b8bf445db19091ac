package hid

import "testing"

type snap map[string]bool

func (s snap) Active(name string) bool { return s[name] }

func TestMapPlainLetterNoModifier(t *testing.T) {
	kc, mb, err := Map("s", "", snap{})
	if err != nil {
		t.Fatal(err)
	}
	if kc != 0x16 || mb != 0 { // 's'-'a'=0x12, +0x04 = 0x16
		t.Errorf("got kc=%#x mb=%#x", kc, mb)
	}
}

func TestMapShiftAltCtrlBitsFromSnapshot(t *testing.T) {
	_, mb, err := Map("a", "", snap{"M1": true})
	if err != nil {
		t.Fatal(err)
	}
	if mb != LeftShift {
		t.Errorf("M1 should set LeftShift, got %#x", mb)
	}
	_, mb, _ = Map("a", "", snap{"M4": true})
	if mb != LeftAlt {
		t.Errorf("M4 should set LeftAlt, got %#x", mb)
	}
	_, mb, _ = Map("a", "", snap{"M5": true})
	if mb != LeftCtrl {
		t.Errorf("M5 should set LeftCtrl, got %#x", mb)
	}
}

func TestMapUpperCaseWithM5SwapsToAlt(t *testing.T) {
	kc, mb, err := Map("s", "S", snap{"M5": true})
	if err != nil {
		t.Fatal(err)
	}
	if mb != LeftAlt {
		t.Errorf("M5+uppercase must swap to Alt, got %#x", mb)
	}
	if kc != 0x16 {
		t.Errorf("keycode should be 's', got %#x", kc)
	}
}

func TestMapUpperCaseWithM4SwapsToCtrl(t *testing.T) {
	_, mb, err := Map("s", "S", snap{"M4": true})
	if err != nil {
		t.Fatal(err)
	}
	if mb != LeftCtrl {
		t.Errorf("M4+uppercase must swap to Ctrl, got %#x", mb)
	}
}

func TestMapUpperCaseWithoutM4M5FallsBackToBase(t *testing.T) {
	kc, mb, err := Map("s", "S", snap{"M1": true})
	if err != nil {
		t.Fatal(err)
	}
	if kc != 0x16 {
		t.Errorf("should fall back to base letter keycode, got %#x", kc)
	}
	if mb != LeftShift {
		t.Errorf("shift bit from snapshot should still apply, got %#x", mb)
	}
}

func TestMapDigit(t *testing.T) {
	kc, _, err := Map("x", "5", snap{})
	if err != nil {
		t.Fatal(err)
	}
	if kc != 0x22 { // 0x1e + (5-1)
		t.Errorf("got %#x", kc)
	}
}

func TestMapSymbolTableForceBits(t *testing.T) {
	kc, mb, err := Map("x", "!", snap{})
	if err != nil {
		t.Fatal(err)
	}
	if kc != 0x1e || mb != LeftShift {
		t.Errorf("got kc=%#x mb=%#x", kc, mb)
	}
}

func TestMapSymbolForceClear(t *testing.T) {
	kc, mb, err := Map("x", "HOME", snap{"M5": true})
	if err != nil {
		t.Fatal(err)
	}
	if kc != 0x4a {
		t.Errorf("got kc=%#x", kc)
	}
	if mb&LeftCtrl != 0 {
		t.Errorf("HOME must force-clear Ctrl even though M5 was active, got %#x", mb)
	}
}

func TestMapUnknownSymbol(t *testing.T) {
	_, _, err := Map("x", "NOPE", snap{})
	if err == nil {
		t.Fatal("want MapMissingError")
	}
	if _, ok := err.(*MapMissingError); !ok {
		t.Errorf("want *MapMissingError, got %T", err)
	}
}

// --- Reporter ---

type fakeSink struct {
	sent    []Report
	pending bool
}

func (f *fakeSink) Send(r Report) error {
	f.sent = append(f.sent, r)
	return nil
}
func (f *fakeSink) Pending() bool { return f.pending }

func TestReporterOneShotSendsPressThenRelease(t *testing.T) {
	sink := &fakeSink{}
	r := NewReporter(sink)
	r.Yield = func() {}
	if err := r.OneShot(LeftShift, 0x16); err != nil {
		t.Fatal(err)
	}
	if len(sink.sent) != 2 {
		t.Fatalf("want 2 reports, got %d", len(sink.sent))
	}
	if sink.sent[0] != NewReport(LeftShift, 0x16) || sink.sent[1] != ZeroReport {
		t.Errorf("got %+v", sink.sent)
	}
}

func TestReporterWaitsOnPending(t *testing.T) {
	sink := &fakeSink{pending: true}
	r := NewReporter(sink)
	yields := 0
	r.Yield = func() {
		yields++
		if yields == 3 {
			sink.pending = false
		}
	}
	if err := r.RepeatEnd(); err != nil {
		t.Fatal(err)
	}
	if yields != 3 {
		t.Errorf("want 3 yields before send, got %d", yields)
	}
	if len(sink.sent) != 1 || sink.sent[0] != ZeroReport {
		t.Errorf("got %+v", sink.sent)
	}
}
