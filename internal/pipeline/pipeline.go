// Package pipeline wires the sampler, debouncer, modifier engine and
// HID mapper/reporter into the single cooperative event loop described
// in binary5kbd spec.md §5: one loop drives sampling, debouncing and
// HID reporting, yielding only at the debouncer's paced sleep and the
// HID sink's backpressure wait.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shirosf/binary5kbd/internal/codetable"
	"github.com/shirosf/binary5kbd/internal/debouncer"
	"github.com/shirosf/binary5kbd/internal/diag"
	"github.com/shirosf/binary5kbd/internal/modifier"
	"github.com/shirosf/binary5kbd/hid"
)

// modAdapter bridges modifier.Snapshot (keyed by modifier.ModKey) to
// hid.ModSnapshot (keyed by plain string), so the hid package need not
// import internal/modifier.
type modAdapter struct {
	snap modifier.Snapshot
}

func (a modAdapter) Active(name string) bool {
	return a.snap.Active(modifier.ModKey(name))
}

// Pipeline owns one running sample-to-HID-report loop.
type Pipeline struct {
	Debouncer *debouncer.Debouncer
	Modifier  *modifier.Engine
	Reporter  *hid.Reporter
	Backend   string // "keysw" or "touchpad", for diagnostics
	Logger    *log.Logger

	mu        sync.Mutex
	stats     diag.Status
	startedAt time.Time
}

// New creates a Pipeline. logger may be nil, in which case log.Default
// is used, matching the teacher's package-level logging style.
func New(d *debouncer.Debouncer, m *modifier.Engine, r *hid.Reporter, backend string, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{
		Debouncer: d,
		Modifier:  m,
		Reporter:  r,
		Backend:   backend,
		Logger:    logger,
		startedAt: time.Now(),
	}
}

// Run drives the loop until ctx is cancelled, at which point it
// flushes the HID sink to all-zero (so a held key never sticks on the
// host) and returns a *Error with Kind Cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			if err := p.Reporter.Flush(); err != nil {
				p.Logger.Printf("[pipeline] flush on shutdown: %v", err)
			}
			return &Error{Kind: Cancelled, Err: ctx.Err()}
		default:
		}

		ev, err := p.Debouncer.Scan()
		if err != nil {
			p.recordError(err)
			p.Logger.Printf("[pipeline] sampler read error, retrying next tick: %v", err)
			continue
		}
		if !ev.Change {
			continue
		}

		if err := p.handleEvent(ev); err != nil {
			var mapErr *hid.MapMissingError
			if errors.As(err, &mapErr) {
				p.recordError(err)
				p.Logger.Printf("[pipeline] MapMissing: %v", err)
				continue
			}
			p.recordError(err)
			return &Error{Kind: HidSinkClosed, Err: err}
		}
	}
}

// handleEvent resolves one debouncer event to a HID report and sends
// it, or determines it carries no emission (a modifier press, a SWTB
// layer toggle, a chord with no codetable slot, or a chord-0 event that
// is not a repeat-end). A repeat-end always sends the all-zero report.
func (p *Pipeline) handleEvent(ev debouncer.Event) error {
	if ev.Chord == 0 {
		if ev.Repeat {
			return p.Reporter.RepeatEnd()
		}
		return nil
	}

	var base, modified string
	snap := modifier.Snapshot{}
	if name, ok := ev.Chord.Aux(); ok {
		modified = name
	} else {
		emitted, ok := p.Modifier.Resolve(int(ev.Chord.Main()))
		if !ok {
			return nil // modifier press, or a SWTB layer toggle
		}
		base, modified, snap = emitted.Base, emitted.Modified, emitted.Mods
	}

	keycode, modByte, err := hid.Map(base, modified, modAdapter{snap})
	if err != nil {
		return err
	}

	p.recordKey(base, modified, keycode)
	if ev.Repeat {
		return p.Reporter.RepeatStart(modByte, keycode)
	}
	return p.Reporter.OneShot(modByte, keycode)
}

func (p *Pipeline) recordKey(base, modified string, keycode byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.EventCount++
	p.stats.LastBase = base
	p.stats.LastKeycode = fmt.Sprintf("0x%02x", keycode)
	if modified != "" {
		p.stats.LastChord = modified
	} else {
		p.stats.LastChord = base
	}
}

func (p *Pipeline) recordError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.ErrorCount++
	p.stats.LastError = err.Error()
}

// Status returns a snapshot for the diagnostic endpoint. Layer and
// Modifier are read directly from the codetable/modifier engine since
// those are cheap, lock-free reads from the single pipeline goroutine.
func (p *Pipeline) Status(t *codetable.Table) diag.Status {
	p.mu.Lock()
	s := p.stats
	p.mu.Unlock()

	s.Backend = p.Backend
	s.Layer = string(t.ActiveLayer())
	s.UptimeSeconds = int64(time.Since(p.startedAt).Seconds())
	mod, state := p.Modifier.Status()
	s.Modifier = string(mod)
	s.ModifierState = state.String()
	return s
}
