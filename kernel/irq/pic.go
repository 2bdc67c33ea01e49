// Package irq drives the legacy 8259 interrupt controller pair and handles
// the timer and keyboard interrupts routed through it.
package irq

import (
	"kestrel/device/bus"
	"kestrel/kernel/gate"
)

// 8259 I/O ports.
const (
	masterCommand = 0x20
	masterData    = 0x21
	slaveCommand  = 0xa0
	slaveData     = 0xa1

	// Writes to the POST diagnostics port take long enough for the
	// controller to settle between initialization words.
	waitPort = 0x80
)

const (
	icw1Init     = 0x10
	icw1NeedICW4 = 0x01
	icw4Mode8086 = 0x01
	commandEOI   = 0x20

	// MasterOffset is the vector that IRQ 0 is delivered at.
	MasterOffset = uint8(gate.FirstIRQ)

	// SlaveOffset is the vector that IRQ 8 is delivered at.
	SlaveOffset = MasterOffset + 8
)

// Line identifies one of the 16 interrupt request lines.
type Line uint8

const (
	// Timer is wired to channel 0 of the programmable interval timer.
	Timer Line = 0

	// Keyboard is raised by the PS/2 controller for each scan code.
	Keyboard Line = 1

	// cascade connects the slave controller to the master.
	cascade Line = 2
)

// Vector returns the interrupt vector l is delivered at.
func (l Line) Vector() gate.InterruptNumber {
	return gate.InterruptNumber(MasterOffset + uint8(l))
}

// Controller is a master/slave 8259 pair.
type Controller struct {
	ports bus.Ports

	// mask has a bit set for every disabled line.
	mask uint16
}

// Init remaps the controllers so that IRQs 0-15 are delivered at vectors
// MasterOffset to SlaveOffset+7 and masks every line apart from the cascade.
// Interrupts must be disabled while Init runs.
func (c *Controller) Init(ports bus.Ports) {
	c.ports = ports
	c.mask = 0xffff &^ (1 << cascade)

	c.outWait(masterCommand, icw1Init|icw1NeedICW4)
	c.outWait(slaveCommand, icw1Init|icw1NeedICW4)
	c.outWait(masterData, MasterOffset)
	c.outWait(slaveData, SlaveOffset)

	// Tell the master that the slave sits on the cascade line and the
	// slave its cascade identity.
	c.outWait(masterData, 1<<cascade)
	c.outWait(slaveData, uint8(cascade))

	c.outWait(masterData, icw4Mode8086)
	c.outWait(slaveData, icw4Mode8086)

	c.writeMask()
}

func (c *Controller) outWait(port uint16, val uint8) {
	c.ports.Out8(port, val)
	c.ports.Out8(waitPort, 0)
}

// Enable unmasks line l.
func (c *Controller) Enable(l Line) {
	c.mask &^= 1 << l
	c.writeMask()
}

// Disable masks line l.
func (c *Controller) Disable(l Line) {
	c.mask |= 1 << l
	c.writeMask()
}

// Mask returns the interrupt mask of both controllers; the low byte belongs
// to the master.
func (c *Controller) Mask() uint16 {
	return c.mask
}

func (c *Controller) writeMask() {
	c.ports.Out8(masterData, uint8(c.mask))
	c.ports.Out8(slaveData, uint8(c.mask>>8))
}

// EndOfInterrupt acknowledges vector n. Lines served by the slave need to
// be acknowledged by both controllers.
func (c *Controller) EndOfInterrupt(n gate.InterruptNumber) {
	if uint8(n) >= SlaveOffset {
		c.ports.Out8(slaveCommand, commandEOI)
	}
	c.ports.Out8(masterCommand, commandEOI)
}
