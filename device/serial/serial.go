// Package serial implements a polled driver for 16550-compatible UARTs.
package serial

import (
	"io"
	"kestrel/device/bus"
	"kestrel/kernel"
	"kestrel/kernel/kfmt"
)

// COM1 is the I/O base of the first serial port.
const COM1 = 0x3f8

// Register offsets from the port base.
const (
	regData        = 0 // DLAB=0
	regDivisorLow  = 0 // DLAB=1
	regIntEnable   = 1 // DLAB=0
	regDivisorHigh = 1 // DLAB=1
	regFifoControl = 2
	regLineControl = 3
	regModemCtrl   = 4
	regLineStatus  = 5
)

const (
	lineDLAB          = 0x80
	line8N1           = 0x03
	fifoEnableClear14 = 0xc7
	modemDTRRTSOut2   = 0x0b
	statusOutputEmpty = 0x20

	// baudDivisor selects 38400 baud.
	baudDivisor = 3
)

// Port is a 16550 UART used as a byte sink. Transmission busy-waits until
// the transmit holding register is empty; received data is ignored.
//
// Port keeps no lock. Asynchronous interrupt handlers must not write to it.
type Port struct {
	ports bus.Ports
	base  uint16
}

// NewPort returns a Port for the UART at base. The UART is not touched until
// DriverInit is called.
func NewPort(ports bus.Ports, base uint16) Port {
	return Port{ports: ports, base: base}
}

// Write implements io.Writer.
func (p *Port) Write(data []byte) (int, error) {
	for _, b := range data {
		p.writeByte(b)
	}
	return len(data), nil
}

func (p *Port) writeByte(b byte) {
	for p.ports.In8(p.base+regLineStatus)&statusOutputEmpty == 0 {
	}
	p.ports.Out8(p.base+regData, b)
}

// DriverName returns the name of this driver.
func (p *Port) DriverName() string {
	return "serial_16550"
}

// DriverVersion returns the version of this driver.
func (p *Port) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit programs the UART for 38400 baud 8N1 with FIFOs enabled and
// interrupts disabled.
func (p *Port) DriverInit(w io.Writer) *kernel.Error {
	p.ports.Out8(p.base+regIntEnable, 0)
	p.ports.Out8(p.base+regLineControl, lineDLAB)
	p.ports.Out8(p.base+regDivisorLow, baudDivisor)
	p.ports.Out8(p.base+regDivisorHigh, 0)
	p.ports.Out8(p.base+regLineControl, line8N1)
	p.ports.Out8(p.base+regFifoControl, fifoEnableClear14)
	p.ports.Out8(p.base+regModemCtrl, modemDTRRTSOut2)

	kfmt.Fprintf(w, "port 0x%x, %d baud\n", p.base, 115200/baudDivisor)
	return nil
}
