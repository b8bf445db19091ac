// Package sampler implements the two hardware backends the debouncer
// reads from: five-contact switches on the FT232H's C-bus GPIO, and
// an AT42QT1070 capacitive touch controller reached over the D-bus
// I²C wiring. Both satisfy debouncer.Sampler (binary5kbd spec.md
// §4.1).
package sampler

import (
	"fmt"

	"github.com/shirosf/binary5kbd/internal/chord"
	"github.com/shirosf/binary5kbd/internal/ftdi"
)

// Sampler is the full contract a backend offers the daemon: probing
// hardware presence at startup and reading chords in the debouncer's
// tight loop. debouncer.Sampler only needs ReadChord; callers that
// also need to probe at startup (cmd/binary5kbd) should depend on
// this interface instead of the narrower one.
type Sampler interface {
	Probe() error
	ReadChord() (chord.Chord, error)
}

// groundPin is the C5 pin the original keyswitch wiring drives low as
// a shared return path for the five active-low contacts on C0-C4.
const groundPin = 1 << 5

// contactMask covers C0-C4, the five main contacts.
const contactMask = 0x1f

// Switch reads the five main contacts plus the two auxiliary
// (space/backspace) contacts from the FT232H's C-bus GPIO.
type Switch struct {
	bridge *ftdi.Bridge
}

// NewSwitch wires a Switch sampler to an already-open bridge.
func NewSwitch(b *ftdi.Bridge) *Switch {
	return &Switch{bridge: b}
}

// Probe configures C0-C4 and the two auxiliary pins as inputs and C5
// as a grounded output, then verifies the bridge responds.
func (s *Switch) Probe() error {
	if err := s.bridge.SetGPIOC(0, groundPin); err != nil {
		return fmt.Errorf("sampler: switch probe: %w", err)
	}
	if _, err := s.bridge.ReadGPIOC(); err != nil {
		return fmt.Errorf("sampler: switch probe readback: %w", err)
	}
	return nil
}

// ReadChord reads the current contact bitmap. The wiring is
// active-low: a closed contact pulls its pin to the grounded
// reference, so the raw level is inverted to produce a Chord bit.
func (s *Switch) ReadChord() (chord.Chord, error) {
	v, err := s.bridge.ReadGPIOC()
	if err != nil {
		return 0, fmt.Errorf("sampler: switch read: %w", err)
	}
	return switchChordFromLevel(v), nil
}

func switchChordFromLevel(v byte) chord.Chord {
	return chord.Chord(^v) & (contactMask | chord.AuxSpace | chord.AuxBackspace)
}

// AT42QT1070 I²C register map (original_source/at42qt1070_ft232_touchpad.py).
const (
	i2cAddress = 0x1B
	chipIDReg  = 0x00
	chipID     = 0x2E
	lpModeReg  = 0x36
	keyStatReg = 0x03
)

// Touchpad reads key status from an AT42QT1070 capacitive touch
// controller over I²C.
type Touchpad struct {
	bridge *ftdi.Bridge
}

// NewTouchpad wires a Touchpad sampler to an already-open bridge.
func NewTouchpad(b *ftdi.Bridge) *Touchpad {
	return &Touchpad{bridge: b}
}

// Probe verifies the chip ID and clears low power mode (writing 0 to
// lpModeReg samples at the fastest rate), matching the original
// probe_device sequence.
func (t *Touchpad) Probe() error {
	if err := t.bridge.EnableI2C(); err != nil {
		return fmt.Errorf("sampler: touchpad i2c setup: %w", err)
	}
	id, err := t.bridge.I2CReadRegister(i2cAddress, chipIDReg)
	if err != nil {
		return fmt.Errorf("sampler: touchpad probe: %w", err)
	}
	if id != chipID {
		return fmt.Errorf("sampler: touchpad probe: unexpected chip id %#x, want %#x", id, chipID)
	}
	if err := t.bridge.I2CWriteRegister(i2cAddress, lpModeReg, 0); err != nil {
		return fmt.Errorf("sampler: touchpad low power mode clear: %w", err)
	}
	return nil
}

// ReadChord reads the key status register; bits 0-4 map directly to
// chord bits 0-4 (binary5kbd spec.md §9.1: no bit reversal).
func (t *Touchpad) ReadChord() (chord.Chord, error) {
	v, err := t.bridge.I2CReadRegister(i2cAddress, keyStatReg)
	if err != nil {
		return 0, fmt.Errorf("sampler: touchpad read: %w", err)
	}
	return touchChordFromStatus(v), nil
}

func touchChordFromStatus(v byte) chord.Chord {
	return chord.Chord(v) & contactMask
}
