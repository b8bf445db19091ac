package sampler

import (
	"testing"

	"github.com/shirosf/binary5kbd/internal/chord"
)

func TestSwitchChordFromLevelInvertsActiveLow(t *testing.T) {
	cases := []struct {
		level byte
		want  chord.Chord
	}{
		{0b11111111, 0}, // nothing pressed, all pins idle high
		{0b11111110, 0b00001},
		{0b11100000, 0b11111},
	}
	for _, tc := range cases {
		if got := switchChordFromLevel(tc.level); got != tc.want {
			t.Errorf("switchChordFromLevel(%08b) = %07b, want %07b", tc.level, got, tc.want)
		}
	}
}

func TestSwitchChordFromLevelMasksUnrelatedBits(t *testing.T) {
	// Bit 5 (groundPin / aux space) and bit 6 (aux backspace) must pass
	// through; any bit above 6 must not leak into the chord.
	got := switchChordFromLevel(0b00011111)
	if got&^(contactMask|chord.AuxSpace|chord.AuxBackspace) != 0 {
		t.Errorf("unexpected high bits in %07b", got)
	}
}

func TestTouchChordFromStatusMasksToFiveBits(t *testing.T) {
	if got := touchChordFromStatus(0xff); got != 0b11111 {
		t.Errorf("got %05b, want 11111", got)
	}
	if got := touchChordFromStatus(0x00); got != 0 {
		t.Errorf("got %05b, want 0", got)
	}
}
