// Package codetable parses the org-mode-style configuration document
// into a two-layer lookup table and resolves chord/modifier pairs to
// key definitions (binary5kbd spec.md §4.3).
//
// The row grammar mirrors the original binarykbd project's
// CodeTable.readconf (original_source/bkbpractice.py): split each
// line on '|', require at least 11 fields, gate data rows on a
// literal "dcode" header, and stop at the first non-'|' line.
package codetable

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Layer names the two possible codetable layers.
type Layer byte

const (
	LayerA Layer = 'A'
	LayerB Layer = 'B'
)

// ErrKind distinguishes the two documented config parse failures.
type ErrKind int

const (
	ErrConfigBadCode ErrKind = iota
	ErrConfigMissingBase
)

// ParseError reports a config document defect with a line reference.
type ParseError struct {
	Kind ErrKind
	Line int
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case ErrConfigBadCode:
		return fmt.Sprintf("line %d: dcode must be a number in 1..31", e.Line)
	case ErrConfigMissingBase:
		return fmt.Sprintf("line %d: base key is not defined", e.Line)
	default:
		return fmt.Sprintf("line %d: bad codetable row", e.Line)
	}
}

// KeyDef is one chord's definition: a base character plus up to five
// modifier-layer alternates.
type KeyDef struct {
	Base, M1, M2, M3, M4, M5 string
}

// Field returns the modifier field named "M1".."M5", or "" for any
// other name (including "").
func (k *KeyDef) Field(name string) string {
	switch name {
	case "M1":
		return k.M1
	case "M2":
		return k.M2
	case "M3":
		return k.M3
	case "M4":
		return k.M4
	case "M5":
		return k.M5
	default:
		return ""
	}
}

// Table is the two-layer codetable plus the mutable active-layer
// cursor. It is owned jointly with the modifier engine, which is the
// only thing allowed to mutate csel (spec.md §9: "one owning record
// with an inner mutable cell").
type Table struct {
	slots map[Layer]*[32]*KeyDef
	csel  Layer
}

// Parse reads a configuration document and builds a Table.
func Parse(r io.Reader) (*Table, error) {
	t := &Table{
		slots: map[Layer]*[32]*KeyDef{LayerA: {}},
		csel:  LayerA,
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	current := LayerA
	inTable := false
	headerSeen := false

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if !strings.HasPrefix(line, "|") {
			inTable = false
			headerSeen = false
			if idx := strings.Index(line, "code table"); idx >= 0 {
				trimmed := strings.TrimSpace(line)
				if trimmed == "" {
					continue
				}
				switch trimmed[len(trimmed)-1] {
				case byte(LayerA):
					current = LayerA
				case byte(LayerB):
					current = LayerB
				}
			}
			continue
		}

		fields := strings.Split(line, "|")
		if len(fields) < 11 {
			continue
		}

		if !headerSeen {
			if strings.TrimSpace(fields[1]) == "dcode" {
				headerSeen = true
				inTable = true
			}
			continue
		}
		if !inTable {
			continue
		}

		dcode, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil || dcode < 1 || dcode > 31 {
			return nil, &ParseError{Kind: ErrConfigBadCode, Line: lineNo}
		}
		base := strings.TrimSpace(fields[4])
		if base == "" {
			return nil, &ParseError{Kind: ErrConfigMissingBase, Line: lineNo}
		}

		kd := &KeyDef{
			Base: base,
			M1:   strings.TrimSpace(fields[5]),
			M2:   strings.TrimSpace(fields[6]),
			M3:   strings.TrimSpace(fields[7]),
			M4:   strings.TrimSpace(fields[8]),
			M5:   strings.TrimSpace(fields[9]),
		}
		t.ensureLayer(current)
		t.slots[current][dcode] = kd
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) ensureLayer(l Layer) {
	if t.slots[l] == nil {
		t.slots[l] = &[32]*KeyDef{}
	}
}

// HasLayerB reports whether layer B was populated by the document.
func (t *Table) HasLayerB() bool {
	return t.slots[LayerB] != nil
}

// ActiveLayer returns the current layer cursor.
func (t *Table) ActiveLayer() Layer {
	return t.csel
}

// ToggleLayer switches csel to B if layer B is populated, otherwise
// restores A. This is SWTB's effect and is unconditional: it always
// lands on a well-defined layer, never a no-op in the sense of leaving
// csel on an unpopulated layer.
func (t *Table) ToggleLayer() {
	if !t.HasLayerB() {
		t.csel = LayerA
		return
	}
	if t.csel == LayerA {
		t.csel = LayerB
	} else {
		t.csel = LayerA
	}
}

// Slot returns the KeyDef at chord ch (1..31) on the active layer.
func (t *Table) Slot(ch int) (*KeyDef, bool) {
	return t.slotOn(t.csel, ch)
}

func (t *Table) slotOn(l Layer, ch int) (*KeyDef, bool) {
	if ch < 1 || ch > 31 {
		return nil, false
	}
	arr := t.slots[l]
	if arr == nil || arr[ch] == nil {
		return nil, false
	}
	return arr[ch], true
}

// ChrToChord scans the active layer for a character, returning the
// (modifier chord, key chord) pair that types it: (0, slot) if it is
// a base character, or (modifier's own chord, slot) if it is reached
// via one of the modifier fields.
func (t *Table) ChrToChord(c string) (modChord, keyChord int) {
	for i := 1; i <= 31; i++ {
		kd, ok := t.slotOn(t.csel, i)
		if !ok {
			continue
		}
		if kd.Base == c {
			return 0, i
		}
		for _, name := range []string{"M1", "M2", "M3", "M4", "M5"} {
			if kd.Field(name) == c {
				return t.keyChordOf(name), i
			}
		}
	}
	return 0, 0
}

// keyChordOf finds the chord whose base equals a modifier's own name
// (e.g. the row defining the "M1" key itself).
func (t *Table) keyChordOf(modName string) int {
	for i := 1; i <= 31; i++ {
		if kd, ok := t.slotOn(t.csel, i); ok && kd.Base == modName {
			return i
		}
	}
	return 0
}
