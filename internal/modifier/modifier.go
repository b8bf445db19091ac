// Package modifier implements the arm/lock state machine that turns a
// bare key chord plus a held modifier into a shifted character
// (binary5kbd spec.md §4.4).
//
// Exactly one modifier can be active at a time: pressing a different
// modifier key always replaces whichever one was armed.
package modifier

import (
	"time"

	"github.com/shirosf/binary5kbd/internal/codetable"
)

// ModKey names one of the five modifier slots, matching the "M1".."M5"
// field names used by internal/codetable.
type ModKey string

const (
	M1 ModKey = "M1"
	M2 ModKey = "M2"
	M3 ModKey = "M3"
	M4 ModKey = "M4"
	M5 ModKey = "M5"
)

// State is a modifier's current activation level.
type State int

const (
	Inactive State = iota
	Armed
	Locked
)

// ModLockTimeout bounds how long a repeat press of the same armed
// modifier may follow its arm before it locks rather than just
// refreshing the arm (design value; the engine always uses this
// constant, not internal/config's setting).
const ModLockTimeout = 500 * time.Millisecond

// swtbValue is the codetable modifier-field value that toggles the
// active layer rather than emitting a character.
const swtbValue = "SWTB"

// Emitted is the result of resolving one key chord against the
// current modifier state. Modified is empty exactly when no modifier
// was active, or when the active modifier has no mapping for this
// key — both cases the hid mapper treats identically (spec.md §4.5
// rule 1).
type Emitted struct {
	Base     string
	Modified string
	Mods     Snapshot
}

// Snapshot is a read-only view of the (at most one) modifier that was
// active at the moment a key resolved, handed to the hid package so
// it can pick the right keycode/modifier-byte pairing.
type Snapshot map[ModKey]State

// Active reports whether m was the active modifier in the snapshot,
// armed or locked.
func (s Snapshot) Active(m ModKey) bool {
	return s[m] == Armed || s[m] == Locked
}

// Engine holds the mutable modifier state for one keyboard session.
// It is not safe for concurrent use — the pipeline drives it from a
// single cooperative loop.
type Engine struct {
	Table *codetable.Table

	// Clock returns the current time; overridable for tests.
	Clock func() time.Time

	lastMod ModKey
	state   State
	modTs   time.Time
}

// New creates an Engine bound to a parsed codetable.
func New(t *codetable.Table) *Engine {
	return &Engine{Table: t, Clock: time.Now}
}

// Status reports the modifier currently armed or locked (empty if
// none) and its state, for diagnostics only — it does not affect
// resolution.
func (e *Engine) Status() (ModKey, State) {
	return e.lastMod, e.state
}

// String renders a State for logging and the diagnostic endpoint.
func (s State) String() string {
	switch s {
	case Armed:
		return "armed"
	case Locked:
		return "locked"
	default:
		return "inactive"
	}
}

// isModKey reports whether base names one of the five modifier slots.
func isModKey(base string) (ModKey, bool) {
	switch ModKey(base) {
	case M1, M2, M3, M4, M5:
		return ModKey(base), true
	}
	return "", false
}

func (e *Engine) snapshot() Snapshot {
	if e.state == Inactive {
		return Snapshot{}
	}
	return Snapshot{e.lastMod: e.state}
}

func (e *Engine) clear() {
	e.lastMod = ""
	e.state = Inactive
}

// press handles a chord landing on a modifier's own slot:
//
//	locked, same key   -> inactive
//	armed, same key,
//	  within timeout    -> locked
//	armed, same key,
//	  after timeout     -> armed, timestamp refreshed
//	anything else
//	  (inactive, or a
//	  different key
//	  armed/locked)      -> armed on the new key
func (e *Engine) press(m ModKey) {
	now := e.Clock()
	switch {
	case e.lastMod == m && e.state == Locked:
		e.clear()
	case e.lastMod == m && e.state == Armed:
		if now.Sub(e.modTs) < ModLockTimeout {
			e.state = Locked
		} else {
			e.modTs = now
		}
	default:
		e.lastMod = m
		e.state = Armed
		e.modTs = now
	}
}

// Resolve takes a key chord (1..31) through the full modifier
// pipeline: modifier-key presses update state and emit nothing; SWTB
// toggles the codetable layer and emits nothing; any other chord
// resolves against the active (possibly empty) modifier, after which
// an armed (not locked) modifier is cleared.
func (e *Engine) Resolve(ch int) (Emitted, bool) {
	kd, ok := e.Table.Slot(ch)
	if !ok {
		return Emitted{}, false
	}

	if mk, isMod := isModKey(kd.Base); isMod {
		e.press(mk)
		return Emitted{}, false
	}

	if e.lastMod == "" {
		return Emitted{Base: kd.Base, Modified: "", Mods: e.snapshot()}, true
	}

	snap := e.snapshot()
	mmValue := kd.Field(string(e.lastMod))
	if mmValue == swtbValue {
		e.Table.ToggleLayer()
		if e.state == Armed {
			e.clear()
		}
		return Emitted{}, false
	}

	wasArmed := e.state == Armed
	if wasArmed {
		e.clear()
	}
	return Emitted{Base: kd.Base, Modified: mmValue, Mods: snap}, true
}
