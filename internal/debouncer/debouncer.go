// Package debouncer turns raw, jittery contact samples into discrete
// chord press/release events with auto-repeat, following the
// sample-to-chord debouncer design (binary5kbd spec.md §4.2).
package debouncer

import (
	"time"

	"github.com/shirosf/binary5kbd/internal/chord"
)

// Timing constants (design values). internal/config stores matching
// settings, but Scan and step always use these constants.
const (
	ScanMinInterval = 10 * time.Millisecond
	ValidMin        = 20 * time.Millisecond
	InvalidMin      = 20 * time.Millisecond
	RepeatStart     = 400 * time.Millisecond
)

// Event is the outcome of one debouncer scan tick.
type Event struct {
	Chord  chord.Chord
	Change bool
	Repeat bool
}

// Sampler is the collaborator that reports the current contact
// bitmap. Implementations (capacitive touch, GPIO switches) live in
// internal/sampler; the debouncer only depends on this narrow
// interface.
type Sampler interface {
	ReadChord() (chord.Chord, error)
}

// Debouncer holds the running state of one sample-to-chord pipeline.
// It is not safe for concurrent use — the pipeline drives it from a
// single cooperative loop.
type Debouncer struct {
	Sampler Sampler

	// Now returns a monotonic timestamp; overridable for tests.
	Now func() time.Time
	// Sleep pauses the calling goroutine; overridable for tests so
	// Scan can be driven without real wall-clock delay.
	Sleep func(time.Duration)

	scanTs     time.Time
	lastKeys   chord.Chord
	stableKeys chord.Chord
	stableTs   time.Duration
	maxBitN    int
	repeat     bool
}

// New creates a Debouncer reading from s.
func New(s Sampler) *Debouncer {
	return &Debouncer{
		Sampler: s,
		Now:     time.Now,
		Sleep:   time.Sleep,
	}
}

// Scan performs one paced sample-and-debounce tick: it enforces
// ScanMinInterval between reads (sleeping if called too soon), reads
// one sample from the Sampler, and runs it through the debounce state
// machine.
func (d *Debouncer) Scan() (Event, error) {
	now := d.Now()
	if d.scanTs.IsZero() {
		d.scanTs = now
	}
	dts := now.Sub(d.scanTs)
	if dts < ScanMinInterval {
		d.Sleep(ScanMinInterval - dts)
		now = d.Now()
		dts = now.Sub(d.scanTs)
	}
	d.scanTs = now

	keys, err := d.Sampler.ReadChord()
	if err != nil {
		return Event{}, err
	}
	return d.step(dts, keys), nil
}

// step runs the pure debounce algorithm (spec.md §4.2 steps 2-5) for
// one sample taken dts after the previous one. It is exercised
// directly by tests against the spec's timed sample sequences, since
// the production Scan's pacing sleep is not worth simulating.
func (d *Debouncer) step(dts time.Duration, keys chord.Chord) Event {
	if keys != d.lastKeys {
		d.lastKeys = keys
		d.stableTs = 0
	} else {
		d.stableTs += dts
	}

	switch {
	case d.lastKeys != 0 && d.stableTs >= ValidMin:
		if pc := d.lastKeys.PopCount(); pc > d.maxBitN {
			d.maxBitN = pc
			d.stableKeys = d.lastKeys
		}
		if d.stableTs >= RepeatStart {
			if d.stableTs-dts < RepeatStart {
				d.repeat = true
				return Event{d.stableKeys, true, true}
			}
			return Event{d.stableKeys, false, true}
		}

	case d.lastKeys == 0 && d.stableTs >= InvalidMin:
		if d.stableKeys != 0 {
			out := d.stableKeys
			d.stableKeys = 0
			d.maxBitN = 0
			if d.repeat {
				d.repeat = false
				return Event{0, true, true}
			}
			return Event{out, true, false}
		}
	}

	return Event{d.stableKeys, false, d.repeat}
}
