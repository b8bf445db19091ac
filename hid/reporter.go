package hid

// Report is one 8-byte USB HID boot keyboard input report:
// (modifier, reserved, keycode1..6).
type Report [8]byte

// NewReport builds a report with a single keycode pressed.
func NewReport(modByte, keycode byte) Report {
	return Report{modByte, 0, keycode, 0, 0, 0, 0, 0}
}

// ZeroReport is the all-keys-released report.
var ZeroReport = Report{}

// Sink is the collaborator that actually writes a report to the HID
// character device. Pending reports backpressure: a Reporter must
// not send a new report while Pending is true.
type Sink interface {
	Send(r Report) error
	Pending() bool
}

// Reporter drives the press/release/auto-repeat protocol described in
// spec.md §4.5 against a Sink, cooperatively yielding while the sink
// drains a previous write rather than dropping events.
type Reporter struct {
	Sink Sink

	// Yield is called in the backpressure-wait loop; overridable for
	// tests so waiting doesn't spin the real scheduler.
	Yield func()
}

// NewReporter creates a Reporter writing to sink.
func NewReporter(sink Sink) *Reporter {
	return &Reporter{Sink: sink, Yield: defaultYield}
}

func (r *Reporter) wait() {
	for r.Sink.Pending() {
		r.Yield()
	}
}

func (r *Reporter) send(rep Report) error {
	r.wait()
	return r.Sink.Send(rep)
}

// OneShot sends a press immediately followed by a release, for a
// change=true, chord≠0, repeat=false event.
func (r *Reporter) OneShot(modByte, keycode byte) error {
	if err := r.send(NewReport(modByte, keycode)); err != nil {
		return err
	}
	return r.send(ZeroReport)
}

// RepeatStart sends a press and holds it, for the change=true,
// chord≠0, repeat=true event that begins auto-repeat.
func (r *Reporter) RepeatStart(modByte, keycode byte) error {
	return r.send(NewReport(modByte, keycode))
}

// RepeatEnd sends the all-zero release, for the change=true, chord=0,
// repeat=true event that ends auto-repeat.
func (r *Reporter) RepeatEnd() error {
	return r.send(ZeroReport)
}

// Flush sends an all-zero release unconditionally. The pipeline calls
// this on shutdown so a held key never gets stuck on the host.
func (r *Reporter) Flush() error {
	return r.send(ZeroReport)
}
