// Package chord defines the five-contact chord bitmap that is the
// atomic unit of the binary-5 keyboard's input pipeline.
package chord

// Chord is a 7-bit contact bitmap: bits 0..4 are the five main
// contacts, bit 5 is the auxiliary "space" contact, bit 6 the
// auxiliary "backspace" contact.
type Chord uint8

const (
	AuxSpace     Chord = 1 << 5
	AuxBackspace Chord = 1 << 6

	mainMask Chord = 0x1f
)

// Main returns the low 5 bits (the main-contact combination), ignoring
// the auxiliary bits.
func (c Chord) Main() Chord {
	return c & mainMask
}

// PopCount returns the number of set bits, used by the debouncer to
// pick the peak chord of a roll-in burst.
func (c Chord) PopCount() int {
	n := 0
	for v := c; v != 0; v >>= 1 {
		if v&1 != 0 {
			n++
		}
	}
	return n
}

// Aux reports whether c carries an auxiliary key and, if so, which
// special key name it maps to. Bit 6 (backspace) takes precedence over
// bit 5 (space) when both are set; the main contact bits are ignored
// whenever either aux bit is set.
func (c Chord) Aux() (name string, ok bool) {
	switch {
	case c&AuxBackspace != 0:
		return "BS", true
	case c&AuxSpace != 0:
		return "SP", true
	default:
		return "", false
	}
}
