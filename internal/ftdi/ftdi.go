// Package ftdi is a minimal MPSSE (Multi-Protocol Synchronous Serial
// Engine) bridge over an FT232H USB-to-serial adapter, used by
// internal/sampler to reach the GPIO switch matrix and the I²C
// capacitive touch controller.
//
// The command bytes are the ones documented in FTDI's AN_135 (MPSSE
// Basics) and AN_108 (MCU Host Bus Emulation): they match periph.io's
// ftdi MPSSE driver byte-for-byte, reimplemented here over gousb
// instead of periph's d2xx/cgo backend.
package ftdi

import (
	"fmt"

	"github.com/google/gousb"
)

// VendorID and ProductID identify an FT232H in its default (non-MPSSE)
// USB configuration.
const (
	VendorID  = 0x0403
	ProductID = 0x6014
)

const (
	endpointOut = 0x02
	endpointIn  = 0x81
)

// FTDI vendor control requests (bmRequestType = 0x40, host-to-device).
const (
	reqReset      = 0x00
	reqSetLatency = 0x09
	reqSetBitmode = 0x0B
)

const bitmodeMPSSE = 0x02

// MPSSE command bytes (AN_135 / AN_108), matching periph.io's ftdi
// driver naming.
const (
	opGPIOSetD  byte = 0x80
	opGPIOReadD byte = 0x81
	opGPIOSetC  byte = 0x82
	opGPIOReadC byte = 0x83
	opClockDiv  byte = 0x86
	op3Phase    byte = 0x8C
	opTristate  byte = 0x9E
	opFlush     byte = 0x87
)

// Bridge is an open MPSSE connection to one FT232H.
type Bridge struct {
	ctx    *gousb.Context
	dev    *gousb.Device
	config *gousb.Config
	intf   *gousb.Interface
	in     *gousb.InEndpoint
	out    *gousb.OutEndpoint
}

// Open finds the first attached FT232H, resets it, and switches it
// into MPSSE mode.
func Open() (*Bridge, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(VendorID), gousb.ID(ProductID))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("ftdi: open device (VID:0x%04x PID:0x%04x): %w", VendorID, ProductID, err)
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("ftdi: no FT232H found (VID:0x%04x PID:0x%04x)", VendorID, ProductID)
	}
	dev.SetAutoDetach(true)

	if _, err := dev.Control(0x40, reqReset, 0, 0, nil); err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("ftdi: reset: %w", err)
	}
	if _, err := dev.Control(0x40, reqSetLatency, 16, 0, nil); err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("ftdi: set latency: %w", err)
	}
	if _, err := dev.Control(0x40, reqSetBitmode, uint16(bitmodeMPSSE)<<8, 0, nil); err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("ftdi: set MPSSE bitmode: %w", err)
	}

	config, err := dev.Config(1)
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("ftdi: set config: %w", err)
	}
	intf, err := config.Interface(0, 0)
	if err != nil {
		config.Close()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("ftdi: claim interface: %w", err)
	}
	out, err := intf.OutEndpoint(endpointOut)
	if err != nil {
		intf.Close()
		config.Close()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("ftdi: out endpoint: %w", err)
	}
	in, err := intf.InEndpoint(endpointIn)
	if err != nil {
		intf.Close()
		config.Close()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("ftdi: in endpoint: %w", err)
	}

	b := &Bridge{ctx: ctx, dev: dev, config: config, intf: intf, in: in, out: out}
	if err := b.SetClockDivisor(29); err != nil { // 12MHz/((1+29)*2) = 200kHz; the divide-by-5 prescaler is left at its default
		b.Close()
		return nil, err
	}
	return b, nil
}

// Close releases the USB interface, configuration, device and
// context, in that order.
func (b *Bridge) Close() error {
	if b.intf != nil {
		b.intf.Close()
	}
	if b.config != nil {
		b.config.Close()
	}
	if b.dev != nil {
		b.dev.Close()
	}
	if b.ctx != nil {
		b.ctx.Close()
	}
	return nil
}

func (b *Bridge) write(cmd []byte) error {
	_, err := b.out.Write(cmd)
	return err
}

func (b *Bridge) read(n int) ([]byte, error) {
	buf := make([]byte, n)
	read := 0
	for read < n {
		m, err := b.in.Read(buf[read:])
		if err != nil {
			return nil, err
		}
		read += m
	}
	return buf, nil
}

// SetClockDivisor sets the MPSSE clock divisor (datasheet formula:
// 12MHz / ((1+div) * 2)).
func (b *Bridge) SetClockDivisor(div uint16) error {
	return b.write([]byte{opClockDiv, byte(div), byte(div >> 8)})
}

// SetGPIO drives the low GPIO byte (ADBus0-7): value is the output
// level, direction is 1 for output / 0 for input per pin.
func (b *Bridge) SetGPIO(value, direction byte) error {
	return b.write([]byte{opGPIOSetD, value, direction})
}

// ReadGPIO reads the current level of the low GPIO byte.
func (b *Bridge) ReadGPIO() (byte, error) {
	if err := b.write([]byte{opGPIOReadD, opFlush}); err != nil {
		return 0, err
	}
	buf, err := b.read(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// SetGPIOC drives the high GPIO byte (ACBus0-7), used by the keyswitch
// sampler for its five contact inputs plus a grounded reference pin.
func (b *Bridge) SetGPIOC(value, direction byte) error {
	return b.write([]byte{opGPIOSetC, value, direction})
}

// ReadGPIOC reads the current level of the high GPIO byte.
func (b *Bridge) ReadGPIOC() (byte, error) {
	if err := b.write([]byte{opGPIOReadC, opFlush}); err != nil {
		return 0, err
	}
	buf, err := b.read(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// EnableI2C configures the MPSSE for open-drain, 3-phase-clocked I²C
// signalling on ADBus0 (SCL) and ADBus1/2 (SDA in/out), per AN_108.
func (b *Bridge) EnableI2C() error {
	if err := b.write([]byte{op3Phase}); err != nil {
		return err
	}
	return b.write([]byte{opTristate, 0x07, 0x00})
}

// I2CReadRegister issues a register-read transaction: write the
// register address, repeated-start, then read one byte.
func (b *Bridge) I2CReadRegister(addr7, reg byte) (byte, error) {
	if err := b.i2cWriteBytes(addr7, []byte{reg}); err != nil {
		return 0, fmt.Errorf("ftdi: i2c write register select: %w", err)
	}
	return b.i2cReadByte(addr7)
}

// I2CWriteRegister writes one byte to reg: write the register address
// followed by the value in a single addressed transaction.
func (b *Bridge) I2CWriteRegister(addr7, reg, value byte) error {
	if err := b.i2cWriteBytes(addr7, []byte{reg, value}); err != nil {
		return fmt.Errorf("ftdi: i2c write register: %w", err)
	}
	return nil
}

// i2cWriteBytes writes data after addressing addr7 in write mode. The
// framing (start condition, ack polling, stop condition) rides on the
// open-drain/tristate state EnableI2C already configured; this issues
// the data-phase command only.
func (b *Bridge) i2cWriteBytes(addr7 byte, data []byte) error {
	addrByte := addr7 << 1
	cmd := append([]byte{addrByte, opTristate, 0x00, 0x00}, data...)
	return b.write(cmd)
}

func (b *Bridge) i2cReadByte(addr7 byte) (byte, error) {
	addrByte := addr7<<1 | 1
	if err := b.write([]byte{addrByte, opFlush}); err != nil {
		return 0, err
	}
	buf, err := b.read(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}
